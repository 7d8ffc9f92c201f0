package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func newManualClock() *manualClock {
	return &manualClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	app     *App
	store   *store.Store
	inj     *dispatch.MockInjector
	clock   *manualClock
	results chan dispatch.Result
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "mudra.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	f := &fixture{
		store:   st,
		inj:     dispatch.NewMockInjector(),
		clock:   newManualClock(),
		results: make(chan dispatch.Result, 64),
	}

	opts := Options{
		Config:   config.DefaultConfig(),
		Store:    st,
		Injector: f.inj,
		Clock:    f.clock.Now,
		OnResult: func(r dispatch.Result) { f.results <- r },
	}
	if mutate != nil {
		mutate(&opts)
	}

	f.app, err = New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return f
}

func (f *fixture) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.app.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func (f *fixture) waitResult(t *testing.T) dispatch.Result {
	t.Helper()
	select {
	case r := <-f.results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch result")
		return dispatch.Result{}
	}
}

func hand(dist float64) gesture.HandSample {
	return gesture.HandFromLandmarks([]detector.HandLandmarks{detector.PinchLandmarks(dist)})
}

func TestNew_RequiresInjector(t *testing.T) {
	if _, err := New(Options{Config: config.DefaultConfig()}); err == nil {
		t.Error("New() without injector should fail")
	}
}

func TestApp_PinchReleaseDispatchesSwipe(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t)

	if _, ok, err := f.app.FeedAt(hand(0.03), 1000); ok || err != nil {
		t.Fatalf("pinch: ok=%v err=%v, want no event", ok, err)
	}

	ev, ok, err := f.app.FeedAt(hand(0.15), 1100)
	if !ok || err != nil {
		t.Fatalf("release: ok=%v err=%v, want accepted event", ok, err)
	}
	if ev.Kind != action.SwipeNext {
		t.Errorf("event = %v, want swipe_next", ev)
	}

	r := f.waitResult(t)
	if r.Outcome != dispatch.OutcomeOK || r.Source != action.SourceHand {
		t.Errorf("result = %+v, want ok from hand", r)
	}
	if calls := f.inj.Calls(); len(calls) != 1 || calls[0] != "swipe up" {
		t.Errorf("injector calls = %v, want [swipe up]", calls)
	}

	recs, err := f.store.Actions().List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(recs) != 1 || recs[0].Source != "hand" || recs[0].Kind != "swipe_next" || recs[0].Result != "ok" {
		t.Errorf("action log = %+v", recs)
	}
}

func TestApp_VoiceTapAtIsRecordedWithPosition(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t)

	ev, ok, err := f.app.FeedAt(gesture.VoiceSample{Phrase: "quiero compartir esto"}, 5000)
	if !ok || err != nil {
		t.Fatalf("FeedAt() ok=%v err=%v", ok, err)
	}
	if ev != action.At(0.9, 0.5) {
		t.Errorf("event = %v, want tap_at(0.90,0.50)", ev)
	}

	f.waitResult(t)
	recs, _ := f.store.Actions().List(1)
	if len(recs) != 1 || recs[0].X == nil || *recs[0].X != 0.9 || *recs[0].Y != 0.5 {
		t.Errorf("action log = %+v, want tap_at with position", recs)
	}
}

func TestApp_CrossModalExactlyOneWins(t *testing.T) {
	f := newFixture(t, nil)

	const racers = 8
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := f.app.FeedAt(gesture.VoiceSample{Phrase: "siguiente"}, 2000)
			if !ok {
				err = errors.New("no event")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	accepted := 0
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, dispatch.ErrCooldownActive):
		default:
			t.Errorf("unexpected error %v", err)
		}
	}
	if accepted != 1 {
		t.Errorf("accepted = %d, want exactly 1", accepted)
	}
}

func TestApp_FaceSuppressesHandInsideCooldown(t *testing.T) {
	f := newFixture(t, nil)

	f.app.FeedAt(hand(0.03), 900)

	ev, ok, err := f.app.FeedAt(gesture.FaceSample{MouthOpenDistance: 30, LeftEyeOpenProb: 1, RightEyeOpenProb: 1}, 1000)
	if !ok || err != nil || ev.Kind != action.SwipeNext {
		t.Fatalf("face: ev=%v ok=%v err=%v", ev, ok, err)
	}

	if _, ok, _ := f.app.FeedAt(hand(0.15), 1200); ok {
		t.Error("hand emitted inside the shared cooldown")
	}
}

func TestApp_SessionLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	if !f.app.StopSession(action.SourceHand) {
		t.Fatal("StopSession(hand) = false for a running session")
	}
	if f.app.StopSession(action.SourceHand) {
		t.Error("second StopSession(hand) = true")
	}

	if _, _, err := f.app.FeedAt(hand(0.03), 1000); !errors.Is(err, ErrSessionStopped) {
		t.Errorf("FeedAt() on stopped session error = %v, want ErrSessionStopped", err)
	}

	if !f.app.StartSession(action.SourceHand) {
		t.Fatal("StartSession(hand) = false")
	}

	for _, info := range f.app.Sessions() {
		if !info.Active || info.ID == "" {
			t.Errorf("session %s = %+v, want active with id", info.Source, info)
		}
	}

	if f.app.StartSession("nose") {
		t.Error("StartSession() accepted an unknown modality")
	}
}

func TestApp_SessionRestartDiscardsState(t *testing.T) {
	f := newFixture(t, nil)

	f.app.FeedAt(hand(0.03), 1000)
	f.app.StopSession(action.SourceHand)
	f.app.StartSession(action.SourceHand)

	if _, ok, _ := f.app.FeedAt(hand(0.15), 1100); ok {
		t.Error("release after session restart emitted an event")
	}
}

func TestApp_InterruptResetsPinch(t *testing.T) {
	f := newFixture(t, nil)

	f.app.FeedAt(hand(0.03), 1000)

	if err := f.app.Interrupt(action.SourceHand, errors.New("camera lost")); !errors.Is(err, gesture.ErrSessionInterrupted) {
		t.Errorf("Interrupt() error = %v, want ErrSessionInterrupted", err)
	}
	if err := f.app.Interrupt(action.SourceHand, nil); err != nil {
		t.Errorf("Interrupt() with nothing in progress = %v, want nil", err)
	}

	if _, ok, _ := f.app.FeedAt(hand(0.15), 1100); ok {
		t.Error("release after interruption emitted an event")
	}
}

func TestApp_VoiceSwitchPersists(t *testing.T) {
	f := newFixture(t, nil)

	if !f.app.VoiceEnabled() {
		t.Fatal("voice should be enabled by default")
	}
	if err := f.app.SetVoiceEnabled(false); err != nil {
		t.Fatalf("SetVoiceEnabled() error = %v", err)
	}
	if _, ok, _ := f.app.FeedAt(gesture.VoiceSample{Phrase: "siguiente"}, 1000); ok {
		t.Error("disabled voice produced an event")
	}

	again, err := New(Options{Config: config.DefaultConfig(), Store: f.store, Injector: f.inj})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if again.VoiceEnabled() {
		t.Error("voice switch was not restored from the store")
	}
}

func TestApp_DetectionSwitchPersists(t *testing.T) {
	f := newFixture(t, nil)

	f.app.FeedAt(hand(0.03), 1000)
	if err := f.app.SetDetectionEnabled(false); err != nil {
		t.Fatalf("SetDetectionEnabled() error = %v", err)
	}
	if f.app.DetectionEnabled() {
		t.Error("DetectionEnabled() = true after disabling")
	}
	if _, ok, _ := f.app.FeedAt(hand(0.15), 1100); ok {
		t.Error("pausing detection did not reset the pinch")
	}

	again, _ := New(Options{Config: config.DefaultConfig(), Store: f.store, Injector: f.inj})
	if again.DetectionEnabled() {
		t.Error("detection switch was not restored from the store")
	}
}

func TestApp_CapabilityUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t)
	f.inj.SetAvailable(false)

	_, ok, err := f.app.FeedAt(gesture.VoiceSample{Phrase: "pausa"}, 1000)
	if !ok || !errors.Is(err, dispatch.ErrCapabilityUnavailable) {
		t.Fatalf("FeedAt() ok=%v err=%v, want ErrCapabilityUnavailable", ok, err)
	}

	r := f.waitResult(t)
	if r.Outcome != dispatch.OutcomeUnavailable {
		t.Errorf("outcome = %s, want unavailable", r.Outcome)
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.app.Status().Text != dispatch.StatusUnavailable {
		if time.Now().After(deadline) {
			t.Fatalf("status = %q, want %q", f.app.Status().Text, dispatch.StatusUnavailable)
		}
		time.Sleep(5 * time.Millisecond)
	}

	f.inj.SetAvailable(true)
	if _, _, err := f.app.FeedAt(gesture.VoiceSample{Phrase: "pausa"}, 1100); err != nil {
		t.Errorf("FeedAt() after injector came back error = %v", err)
	}
}

func TestApp_DisabledModalitiesStartStopped(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Config.Face.Enabled = false
	})

	for _, info := range f.app.Sessions() {
		want := info.Source != action.SourceFace
		if info.Active != want {
			t.Errorf("session %s active = %v, want %v", info.Source, info.Active, want)
		}
	}
}
