// Package dispatch maps actions to input injection primitives and enforces
// the global cooldown shared by every modality.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/action"
)

// Direction is the direction the finger moves during a swipe.
type Direction int

const (
	// SwipeUp moves from the lower part of the screen to the upper part.
	SwipeUp Direction = iota
	// SwipeDown moves from the upper part of the screen to the lower part.
	SwipeDown
)

func (d Direction) String() string {
	if d == SwipeDown {
		return "down"
	}
	return "up"
}

// Injector is the capability that synthesizes input on the host device.
// Availability may change at any time.
type Injector interface {
	IsAvailable() bool
	Swipe(dir Direction) error
	Tap(x, y float64, d time.Duration) error
	VolumeDown() error
}

// StatusSink receives short status texts. Delivery is best effort.
type StatusSink interface {
	SetStatus(text string)
}

// Outcome classifies the result of a dispatch attempt.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeFailed      Outcome = "failed"
	OutcomeCooldown    Outcome = "cooldown"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeBusy        Outcome = "busy"
	OutcomeStopped     Outcome = "stopped"
	OutcomeInvalid     Outcome = "invalid"
)

// Result describes one dispatch attempt. Rejections are reported right away;
// accepted actions are reported once the worker has performed them.
type Result struct {
	Source  action.Source
	Event   action.Event
	AtMs    int64
	Outcome Outcome
	Err     error
	Latency time.Duration
}

// Status texts published by the dispatcher.
const (
	StatusUnavailable = "Enable input injection"
	StatusFailed      = "Action failed"
)

// Config holds dispatcher timing.
type Config struct {
	// CooldownMs is the minimum gap between two accepted actions of any modality.
	CooldownMs int64
	// DoubleTapGap separates the two taps of a double tap.
	DoubleTapGap time.Duration
	// TapDuration is the press length of a normal tap.
	TapDuration time.Duration
	// LongPressDuration is the press length of a long press.
	LongPressDuration time.Duration
	// QueueSize bounds the number of accepted actions waiting for the worker.
	QueueSize int
}

// DefaultConfig returns the default dispatcher timing.
func DefaultConfig() Config {
	return Config{
		CooldownMs:        800,
		DoubleTapGap:      100 * time.Millisecond,
		TapDuration:       50 * time.Millisecond,
		LongPressDuration: 1000 * time.Millisecond,
		QueueSize:         8,
	}
}

// Options carries the dispatcher's collaborators. Every field is optional.
type Options struct {
	Status   StatusSink
	Logger   *slog.Logger
	Clock    func() time.Time
	After    func(time.Duration) <-chan time.Time
	OnResult func(Result)
}

type job struct {
	src        action.Source
	ev         action.Event
	atMs       int64
	acceptedAt time.Time
}

// Dispatcher accepts actions from any number of detectors and performs them
// on a single worker goroutine in acceptance order.
type Dispatcher struct {
	cfg      Config
	injector Injector
	cooldown *Cooldown

	status   StatusSink
	logger   *slog.Logger
	clock    func() time.Time
	after    func(time.Duration) <-chan time.Time
	onResult func(Result)

	queue   chan job
	stopped chan struct{}
	stop    sync.Once
}

// New creates a Dispatcher. inj may be nil, in which case every dispatch
// fails with ErrCapabilityUnavailable.
func New(cfg Config, inj Injector, opts Options) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}

	d := &Dispatcher{
		cfg:      cfg,
		injector: inj,
		cooldown: NewCooldown(),
		status:   opts.Status,
		logger:   opts.Logger,
		clock:    opts.Clock,
		after:    opts.After,
		onResult: opts.OnResult,
		queue:    make(chan job, cfg.QueueSize),
		stopped:  make(chan struct{}),
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.clock == nil {
		d.clock = time.Now
	}
	if d.after == nil {
		d.after = time.After
	}
	return d
}

// Cooldown exposes the shared cooldown so detectors can short-circuit.
func (d *Dispatcher) Cooldown() *Cooldown {
	return d.cooldown
}

// Dispatch accepts ev for execution. It never blocks on injection: accepted
// actions are queued for the worker started by Run.
func (d *Dispatcher) Dispatch(src action.Source, ev action.Event, nowMs int64) error {
	if ev.IsZero() {
		d.report(Result{Source: src, Event: ev, AtMs: nowMs, Outcome: OutcomeInvalid, Err: ErrEmptyAction})
		return ErrEmptyAction
	}

	if d.injector == nil || !d.injector.IsAvailable() {
		d.setStatus(StatusUnavailable)
		d.report(Result{Source: src, Event: ev, AtMs: nowMs, Outcome: OutcomeUnavailable, Err: ErrCapabilityUnavailable})
		return ErrCapabilityUnavailable
	}

	var rejected error
	accepted := d.cooldown.TryAcquire(nowMs, d.cfg.CooldownMs, func() bool {
		select {
		case <-d.stopped:
			rejected = ErrStopped
			return false
		default:
		}

		select {
		case d.queue <- job{src: src, ev: ev, atMs: nowMs, acceptedAt: d.clock()}:
			return true
		default:
			rejected = ErrBusy
			return false
		}
	})

	if !accepted {
		if rejected == nil {
			rejected = ErrCooldownActive
		}
		d.report(Result{Source: src, Event: ev, AtMs: nowMs, Outcome: OutcomeFor(rejected), Err: rejected})
		return rejected
	}

	d.setStatus(ev.Label())
	d.logger.Debug("action accepted", "source", src, "action", ev.String(), "at_ms", nowMs)
	return nil
}

// Run performs queued actions until ctx is cancelled. Actions still queued
// at shutdown are reported as stopped.
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.cooldown.exclusive(func() {
		d.stop.Do(func() { close(d.stopped) })
	})

	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case j := <-d.queue:
			d.execute(ctx, j)
		}
	}
}

// drain closes stopped under the cooldown lock, which every enqueue holds,
// so no job can be queued once the queue has been emptied.
func (d *Dispatcher) drain() {
	d.cooldown.exclusive(func() {
		d.stop.Do(func() { close(d.stopped) })
	})
	for {
		select {
		case j := <-d.queue:
			d.report(Result{Source: j.src, Event: j.ev, AtMs: j.atMs, Outcome: OutcomeStopped, Err: ErrStopped})
		default:
			return
		}
	}
}

func (d *Dispatcher) execute(ctx context.Context, j job) {
	err := d.perform(ctx, j.ev)

	res := Result{
		Source:  j.src,
		Event:   j.ev,
		AtMs:    j.atMs,
		Outcome: OutcomeOK,
		Latency: d.clock().Sub(j.acceptedAt),
	}
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		if errors.Is(err, context.Canceled) {
			res.Outcome = OutcomeStopped
		}
		d.setStatus(StatusFailed)
		d.logger.Warn("action failed", "source", j.src, "action", j.ev.String(), "error", err)
	}
	d.report(res)
}

// perform issues the injection primitives for ev.
func (d *Dispatcher) perform(ctx context.Context, ev action.Event) error {
	inj := d.injector

	switch ev.Kind {
	case action.SwipeNext:
		return inj.Swipe(SwipeUp)
	case action.SwipePrev:
		return inj.Swipe(SwipeDown)
	case action.Tap:
		return inj.Tap(0.5, 0.5, d.cfg.TapDuration)
	case action.TapAt:
		return inj.Tap(ev.X, ev.Y, d.cfg.TapDuration)
	case action.LongPress:
		return inj.Tap(0.5, 0.5, d.cfg.LongPressDuration)
	case action.VolumeDown:
		return inj.VolumeDown()
	case action.DoubleTap:
		return d.doubleTap(ctx)
	default:
		return fmt.Errorf("unsupported action %s", ev)
	}
}

// doubleTap issues the second tap only after the first one returned and the
// gap elapsed.
func (d *Dispatcher) doubleTap(ctx context.Context) error {
	if err := d.injector.Tap(0.5, 0.5, d.cfg.TapDuration); err != nil {
		return fmt.Errorf("first tap: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.after(d.cfg.DoubleTapGap):
	}

	if err := d.injector.Tap(0.5, 0.5, d.cfg.TapDuration); err != nil {
		return fmt.Errorf("second tap: %w", err)
	}
	return nil
}

func (d *Dispatcher) setStatus(text string) {
	if d.status != nil {
		d.status.SetStatus(text)
	}
}

func (d *Dispatcher) report(r Result) {
	if d.onResult != nil {
		d.onResult(r)
	}
}

// OutcomeFor classifies a dispatch error.
func OutcomeFor(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrEmptyAction):
		return OutcomeInvalid
	case errors.Is(err, ErrCooldownActive):
		return OutcomeCooldown
	case errors.Is(err, ErrBusy):
		return OutcomeBusy
	case errors.Is(err, ErrStopped):
		return OutcomeStopped
	case errors.Is(err, ErrCapabilityUnavailable):
		return OutcomeUnavailable
	default:
		return OutcomeFailed
	}
}
