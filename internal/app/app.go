// Package app wires the detectors, the dispatcher and the status line into
// one running process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/status"
	"github.com/ayusman/mudra/internal/store"
)

var (
	// ErrSessionStopped is returned when a sample arrives for a modality
	// whose session is not running.
	ErrSessionStopped = errors.New("app: session not running")

	// ErrUnknownModality is returned for a source other than face, hand or voice.
	ErrUnknownModality = errors.New("app: unknown modality")
)

// historyLimit is the number of action log rows kept by the hourly prune.
const historyLimit = 5000

// PhraseSource delivers recognized phrases until ctx is cancelled.
type PhraseSource interface {
	Run(ctx context.Context, fn func(phrase string)) error
}

// Options are the collaborators of an App. Only Config and Injector are
// required; without Camera and Detector the camera loop does not run and
// samples can only be fed through Feed.
type Options struct {
	Config   config.Config
	Store    *store.Store
	Injector dispatch.Injector
	Camera   capture.Camera
	Detector detector.Detector
	Phrases  PhraseSource
	// Voice is the voice enable switch. Pass the same switch to the phrase
	// source so it stops the speech engine while voice is off. A new switch
	// is created when nil.
	Voice    *gesture.Switch
	Logger   *slog.Logger
	Clock    func() time.Time
	// OnResult is called after every dispatch result has been recorded.
	OnResult func(dispatch.Result)
}

// App owns one session per modality, the shared dispatcher and the status hub.
type App struct {
	cfg      config.Config
	store    *store.Store
	logger   *slog.Logger
	clock    func() time.Time
	onResult func(dispatch.Result)

	hub       *status.Hub
	disp      *dispatch.Dispatcher
	voice     *gesture.Switch
	detecting atomic.Bool

	sessions map[action.Source]*session

	camera   capture.Camera
	detector detector.Detector
	motion   *capture.MotionDetector
	phrases  PhraseSource
}

// New builds an App and starts the sessions enabled in the config. The
// voice switch and the detection switch are restored from the store.
func New(opts Options) (*App, error) {
	if opts.Injector == nil {
		return nil, errors.New("app: injector is required")
	}

	a := &App{
		cfg:      opts.Config,
		store:    opts.Store,
		logger:   opts.Logger,
		clock:    opts.Clock,
		onResult: opts.OnResult,
		camera:   opts.Camera,
		detector: opts.Detector,
		phrases:  opts.Phrases,
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.clock == nil {
		a.clock = time.Now
	}

	voiceOn, detectOn := a.cfg.Voice.Enabled, true
	if a.store != nil {
		var err error
		if voiceOn, err = a.store.Settings().GetBool(store.SettingVoiceEnabled, voiceOn); err != nil {
			return nil, fmt.Errorf("load voice setting: %w", err)
		}
		if detectOn, err = a.store.Settings().GetBool(store.SettingDetectionEnabled, detectOn); err != nil {
			return nil, fmt.Errorf("load detection setting: %w", err)
		}
	}
	a.voice = opts.Voice
	if a.voice == nil {
		a.voice = gesture.NewSwitch(voiceOn)
	}
	a.voice.Set(voiceOn)
	a.detecting.Store(detectOn)

	a.hub = status.NewHub(a.cfg.Status())
	a.disp = dispatch.New(a.cfg.Dispatcher(), opts.Injector, dispatch.Options{
		Status:   a.hub,
		Logger:   a.logger.With("component", "dispatch"),
		Clock:    a.clock,
		OnResult: a.record,
	})

	gate := a.disp.Cooldown()
	faceCfg, handCfg := a.cfg.FaceDetector(), a.cfg.HandDetector()
	voiceLog := a.logger.With("component", "voice")

	a.sessions = map[action.Source]*session{
		action.SourceFace: newSession(action.SourceFace, func() modality {
			return faceModality{gesture.NewFaceDetector(faceCfg, gate)}
		}),
		action.SourceHand: newSession(action.SourceHand, func() modality {
			return handModality{gesture.NewHandDetector(handCfg, gate)}
		}),
		action.SourceVoice: newSession(action.SourceVoice, func() modality {
			return voiceModality{r: gesture.NewVoiceRouter(a.voice, voiceLog), sw: a.voice}
		}),
	}

	if a.cfg.Face.Enabled {
		a.StartSession(action.SourceFace)
	}
	if a.cfg.Hand.Enabled {
		a.StartSession(action.SourceHand)
	}
	a.StartSession(action.SourceVoice)

	if a.camera != nil {
		a.motion = capture.NewMotionDetector(a.cfg.Camera.MotionThreshold)
	}

	return a, nil
}

// Run drives the status hub, the dispatcher worker, the camera loop and
// the voice loop until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	goRun := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}

	goRun(a.hub.Run)
	goRun(a.disp.Run)
	goRun(a.pruneHistory)

	if a.camera != nil && a.detector != nil {
		goRun(a.runCamera)
	}
	if a.phrases != nil {
		goRun(a.runVoice)
	}

	a.logger.Info("gesture control running",
		"camera", a.camera != nil && a.detector != nil,
		"voice", a.phrases != nil,
		"voice_enabled", a.voice.Enabled(),
	)

	<-ctx.Done()
	wg.Wait()

	if a.motion != nil {
		a.motion.Close()
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.logger.Warn("closing landmark detector", "error", err)
		}
	}
	return nil
}

// Feed runs one sample through its modality's detector at the current time
// and dispatches any resulting action. A dispatch rejection is returned as
// err together with the emitted event.
func (a *App) Feed(s gesture.Sample) (action.Event, bool, error) {
	return a.FeedAt(s, a.clock().UnixMilli())
}

// FeedAt is Feed with an explicit timestamp in milliseconds.
func (a *App) FeedAt(s gesture.Sample, nowMs int64) (action.Event, bool, error) {
	sess, ok := a.sessions[s.Source()]
	if !ok {
		return action.Event{}, false, ErrUnknownModality
	}

	metrics.Sample(string(s.Source()))

	ev, emitted, text, err := sess.feed(s, nowMs)
	if err != nil {
		return action.Event{}, false, err
	}
	if text != "" {
		a.hub.SetStatus(text)
	}
	if !emitted {
		return action.Event{}, false, nil
	}

	metrics.Gesture(string(s.Source()), ev.Kind.String())
	a.logger.Debug("gesture detected", "source", s.Source(), "action", ev.String())

	if err := a.disp.Dispatch(s.Source(), ev, nowMs); err != nil {
		a.logger.Debug("action rejected", "source", s.Source(), "action", ev.String(), "error", err)
		return ev, true, err
	}
	return ev, true, nil
}

// StartSession creates fresh detector state for src. It reports whether a
// new session was started.
func (a *App) StartSession(src action.Source) bool {
	sess, ok := a.sessions[src]
	if !ok || !sess.start(a.clock()) {
		return false
	}
	a.logger.Info("session started", "source", src)
	return true
}

// StopSession discards the detector state of src.
func (a *App) StopSession(src action.Source) bool {
	sess, ok := a.sessions[src]
	if !ok || !sess.stop() {
		return false
	}
	a.logger.Info("session stopped", "source", src)
	return true
}

// Interrupt resets the detector state of src after its signal source
// stopped delivering samples. It returns gesture.ErrSessionInterrupted
// when a gesture in progress was lost.
func (a *App) Interrupt(src action.Source, cause error) error {
	sess, ok := a.sessions[src]
	if !ok {
		return ErrUnknownModality
	}
	if !sess.reset() {
		return nil
	}

	metrics.SessionReset(string(src))
	a.logger.Info("gesture interrupted", "source", src, "cause", cause)
	return gesture.ErrSessionInterrupted
}

// Sessions describes every modality in face, hand, voice order.
func (a *App) Sessions() []SessionInfo {
	out := make([]SessionInfo, 0, len(a.sessions))
	for _, src := range action.Sources() {
		out = append(out, a.sessions[src].info())
	}
	return out
}

// VoiceEnabled reports the voice switch.
func (a *App) VoiceEnabled() bool {
	return a.voice.Enabled()
}

// SetVoiceEnabled flips the voice switch and persists it.
func (a *App) SetVoiceEnabled(enabled bool) error {
	a.voice.Set(enabled)
	if enabled {
		a.hub.SetStatus(VoiceStatusListening)
	} else {
		a.hub.SetStatus(VoiceStatusOff)
	}
	return a.persist(store.SettingVoiceEnabled, enabled)
}

// DetectionEnabled reports whether the camera loop analyzes frames.
func (a *App) DetectionEnabled() bool {
	return a.detecting.Load()
}

// SetDetectionEnabled pauses or resumes the camera loop and persists the
// choice. Pausing counts as an interruption of the face and hand sessions.
func (a *App) SetDetectionEnabled(enabled bool) error {
	if a.detecting.Swap(enabled) && !enabled {
		a.interruptCamera(errors.New("detection paused"))
	}
	return a.persist(store.SettingDetectionEnabled, enabled)
}

// Status returns the current status line.
func (a *App) Status() status.Update {
	return a.hub.Current()
}

// Hub exposes the status hub for subscribers.
func (a *App) Hub() *status.Hub {
	return a.hub
}

// Dispatcher exposes the dispatcher.
func (a *App) Dispatcher() *dispatch.Dispatcher {
	return a.disp
}

func (a *App) persist(key string, value bool) error {
	if a.store == nil {
		return nil
	}
	if err := a.store.Settings().SetBool(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// record stores and counts every dispatch result.
func (a *App) record(r dispatch.Result) {
	metrics.Dispatch(r.Event.Kind.String(), string(r.Outcome), r.Latency)

	if a.store != nil {
		rec := &store.ActionRecord{
			Source:    string(r.Source),
			Kind:      r.Event.Kind.String(),
			Result:    string(r.Outcome),
			AtMs:      r.AtMs,
			LatencyMs: r.Latency.Milliseconds(),
		}
		if r.Event.Kind == action.TapAt {
			x, y := r.Event.X, r.Event.Y
			rec.X, rec.Y = &x, &y
		}
		if r.Err != nil {
			rec.Error = r.Err.Error()
		}
		if err := a.store.Actions().Create(rec); err != nil {
			a.logger.Warn("recording action", "error", err)
		}
	}

	if a.onResult != nil {
		a.onResult(r)
	}
}

func (a *App) pruneHistory(ctx context.Context) {
	if a.store == nil {
		return
	}

	prune := func() {
		n, err := a.store.Actions().Prune(historyLimit)
		if err != nil {
			a.logger.Warn("pruning action log", "error", err)
			return
		}
		if n > 0 {
			a.logger.Debug("action log pruned", "removed", n)
		}
	}

	prune()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
