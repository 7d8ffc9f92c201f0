package gesture

import (
	"math"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/detector"
)

// Hand status texts, one per transition of the pinch tracker.
const (
	HandStatusReady   = "Ready"
	HandStatusPinched = "Pinched!"
	HandStatusRelease = "Release to scroll"
	HandStatusPinch   = "Pinch fingers"
	HandStatusScroll  = "Scroll!"
)

// HandConfig holds the pinch/release hysteresis band.
type HandConfig struct {
	// CooldownMs suppresses detection while the shared cooldown is younger than this.
	CooldownMs int64
	// PinchThreshold is the thumb-index distance below which fingers count as pinched.
	PinchThreshold float64
	// ReleaseThreshold is the distance above which a pinch counts as released.
	ReleaseThreshold float64
}

// DefaultHandConfig returns the default pinch thresholds.
func DefaultHandConfig() HandConfig {
	return HandConfig{
		CooldownMs:       800,
		PinchThreshold:   0.05,
		ReleaseThreshold: 0.12,
	}
}

// HandDetector tracks a pinch followed by a release and emits SwipeNext when
// the release completes. Distances between the two thresholds hold the
// current state, so jitter around either bound cannot chatter.
type HandDetector struct {
	cfg  HandConfig
	gate Gate

	wasPinched bool
	status     string
}

// NewHandDetector creates a HandDetector. gate may be nil.
func NewHandDetector(cfg HandConfig, gate Gate) *HandDetector {
	return &HandDetector{
		cfg:    cfg,
		gate:   gate,
		status: HandStatusReady,
	}
}

// Detect evaluates one hand sample taken at nowMs.
func (d *HandDetector) Detect(s HandSample, nowMs int64) (action.Event, bool) {
	// tracking cannot span an occlusion
	if !s.Present() {
		d.wasPinched = false
		return action.Event{}, false
	}

	if d.gate != nil && d.gate.Active(nowMs, d.cfg.CooldownMs) {
		return action.Event{}, false
	}

	dist := PinchDistance(s)
	if !isFinite(dist) {
		return action.Event{}, false
	}

	switch {
	case !d.wasPinched && dist < d.cfg.PinchThreshold:
		d.wasPinched = true
		d.status = HandStatusPinched
	case d.wasPinched && dist > d.cfg.ReleaseThreshold:
		d.wasPinched = false
		d.status = HandStatusScroll
		return action.New(action.SwipeNext), true
	case d.wasPinched:
		d.status = HandStatusRelease
	default:
		d.status = HandStatusPinch
	}

	return action.Event{}, false
}

// Reset clears the pinch state.
func (d *HandDetector) Reset() {
	d.wasPinched = false
	d.status = HandStatusReady
}

// Status returns the detector's current status text.
func (d *HandDetector) Status() string {
	return d.status
}

// InProgress reports whether a pinch is being held.
func (d *HandDetector) InProgress() bool {
	return d.wasPinched
}

// PinchDistance returns the 2D distance between the thumb tip and the index
// finger tip, or NaN when the sample has no usable hand.
func PinchDistance(s HandSample) float64 {
	if !s.Present() {
		return math.NaN()
	}
	thumb := s.Landmarks[detector.ThumbTip]
	index := s.Landmarks[detector.IndexTip]
	return math.Hypot(thumb.X-index.X, thumb.Y-index.Y)
}
