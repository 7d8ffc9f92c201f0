package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type flag struct{ on atomic.Bool }

func (f *flag) Enabled() bool { return f.on.Load() }

func TestNewPhraseSource_EmptyCommand(t *testing.T) {
	if _, err := NewPhraseSource(PhraseConfig{}, nil, nil); err == nil {
		t.Error("NewPhraseSource() with empty command should fail")
	}
}

func TestPhraseSource_DeliversLowercasedPhrases(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}

	src, err := NewPhraseSource(PhraseConfig{
		Command:      []string{"/bin/sh", "-c", `printf 'Siguiente\n\n  Me Gusta  \n'`},
		RestartDelay: time.Hour,
	}, nil, nil)
	if err != nil {
		t.Fatalf("NewPhraseSource() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		src.Run(ctx, func(phrase string) {
			mu.Lock()
			got = append(got, phrase)
			n := len(got)
			mu.Unlock()
			if n == 2 {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"siguiente", "me gusta"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("phrases = %q, want %q", got, want)
	}
}

func TestPhraseSource_RestartsAfterFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}

	marker := filepath.Join(t.TempDir(), "runs")
	src, err := NewPhraseSource(PhraseConfig{
		Command:      []string{"/bin/sh", "-c", "echo run >> " + marker + "; exit 3"},
		RestartDelay: 10 * time.Millisecond,
	}, nil, nil)
	if err != nil {
		t.Fatalf("NewPhraseSource() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go src.Run(ctx, func(string) {})

	for {
		data, _ := os.ReadFile(marker)
		if strings.Count(string(data), "run") >= 3 {
			return
		}
		select {
		case <-ctx.Done():
			t.Fatalf("engine was not restarted, runs: %q", data)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPhraseSource_OverlongLineEndsTurn(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}

	// One line longer than the scanner buffer, then the engine keeps running.
	src, err := NewPhraseSource(PhraseConfig{
		Command: []string{"/bin/sh", "-c", `head -c 70000 /dev/zero | tr '\0' a; exec sleep 30`},
	}, nil, nil)
	if err != nil {
		t.Fatalf("NewPhraseSource() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- src.listen(context.Background(), func(string) {}) }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrRecognitionFailure) || !strings.Contains(err.Error(), "too long") {
			t.Errorf("listen() error = %v, want recognition failure for the long line", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("listen() hung after the scanner failed")
	}
}

func TestPhraseSource_DisabledDoesNotStart(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}

	marker := filepath.Join(t.TempDir(), "runs")
	sw := &flag{}
	src, err := NewPhraseSource(PhraseConfig{
		Command:      []string{"/bin/sh", "-c", "echo run >> " + marker},
		RestartDelay: 5 * time.Millisecond,
	}, sw, nil)
	if err != nil {
		t.Fatalf("NewPhraseSource() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	src.Run(ctx, func(string) {})

	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Errorf("engine started while disabled (stat error = %v)", err)
	}
}
