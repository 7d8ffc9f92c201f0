package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ErrRecognitionFailure wraps every failure of the external speech engine.
// It is never fatal: the engine is restarted after the restart delay.
var ErrRecognitionFailure = errors.New("capture: recognition failure")

// Enabler reports whether a modality should be running.
type Enabler interface {
	Enabled() bool
}

// PhraseConfig configures the speech engine subprocess.
type PhraseConfig struct {
	// Command is the engine executable and its arguments. The engine
	// prints one recognized phrase per line on stdout.
	Command []string
	// RestartDelay separates one recognition turn from the next.
	RestartDelay time.Duration
}

// PhraseSource runs an external speech engine and delivers its phrases
// lower-cased, one per call. The engine is restarted whenever it exits,
// which covers both completed turns and errors.
type PhraseSource struct {
	cfg     PhraseConfig
	enabled Enabler
	logger  *slog.Logger
}

// NewPhraseSource validates cfg. enabled may be nil, meaning always on.
func NewPhraseSource(cfg PhraseConfig, enabled Enabler, logger *slog.Logger) (*PhraseSource, error) {
	if len(cfg.Command) == 0 || cfg.Command[0] == "" {
		return nil, errors.New("speech engine command is empty")
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PhraseSource{cfg: cfg, enabled: enabled, logger: logger}, nil
}

// Run delivers phrases to fn until ctx is cancelled. While the source is
// disabled no engine is started; a turn already running completes.
func (p *PhraseSource) Run(ctx context.Context, fn func(phrase string)) error {
	for {
		if p.enabled == nil || p.enabled.Enabled() {
			err := p.listen(ctx, fn)
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				p.logger.Warn("speech engine failed", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.cfg.RestartDelay):
		}
	}
}

// listen runs one engine process to completion.
func (p *PhraseSource) listen(ctx context.Context, fn func(string)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.cfg.Command[0], p.cfg.Command[1:]...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: stdout pipe: %v", ErrRecognitionFailure, err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start: %v", ErrRecognitionFailure, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		phrase := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if phrase == "" {
			continue
		}
		p.logger.Debug("phrase recognized", "phrase", phrase)
		fn(phrase)
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// Nobody reads stdout any more; stop the engine so Wait returns.
		cancel()
		err := cmd.Wait()
		return fmt.Errorf("%w: read: %v (exit: %v)", ErrRecognitionFailure, scanErr, err)
	}

	if err := cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %v: %s", ErrRecognitionFailure, err, msg)
		}
		return fmt.Errorf("%w: %v", ErrRecognitionFailure, err)
	}
	return nil
}
