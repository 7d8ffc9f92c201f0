package gesture

import (
	"math"

	"github.com/ayusman/mudra/internal/action"
)

// Face status texts.
const (
	FaceStatusReady      = "Ready"
	FaceStatusBlinkAgain = "Blink again"
)

// neverMs marks a timestamp that has not been set yet.
const neverMs int64 = math.MinInt64 / 2

// FaceConfig holds the face gesture thresholds.
type FaceConfig struct {
	// CooldownMs suppresses detection while the shared cooldown is younger than this.
	CooldownMs int64
	// MouthOpenThreshold is the mouth opening (pixels) above which SwipeNext fires.
	MouthOpenThreshold float64
	// EyeClosedThreshold is the open probability below which an eye counts as closed.
	EyeClosedThreshold float64
	// DoubleBlinkWindowMs is the maximum gap between the two blinks of a double blink.
	DoubleBlinkWindowMs int64
}

// DefaultFaceConfig returns the default face thresholds.
func DefaultFaceConfig() FaceConfig {
	return FaceConfig{
		CooldownMs:          1500,
		MouthOpenThreshold:  25,
		EyeClosedThreshold:  0.3,
		DoubleBlinkWindowMs: 800,
	}
}

// FaceDetector emits SwipeNext for an open mouth and DoubleTap for a double
// blink. The only state it keeps is the blink sequence.
type FaceDetector struct {
	cfg  FaceConfig
	gate Gate

	lastBlinkMs int64
	blinkCount  int
	status      string
}

// NewFaceDetector creates a FaceDetector. gate may be nil.
func NewFaceDetector(cfg FaceConfig, gate Gate) *FaceDetector {
	return &FaceDetector{
		cfg:         cfg,
		gate:        gate,
		lastBlinkMs: neverMs,
		status:      FaceStatusReady,
	}
}

// Detect evaluates one face sample taken at nowMs. At most one action is
// returned; the mouth gesture takes precedence over blinks in the same sample.
func (d *FaceDetector) Detect(s FaceSample, nowMs int64) (action.Event, bool) {
	if d.gate != nil && d.gate.Active(nowMs, d.cfg.CooldownMs) {
		return action.Event{}, false
	}

	if isFinite(s.MouthOpenDistance) && s.MouthOpenDistance > d.cfg.MouthOpenThreshold {
		d.status = FaceStatusReady
		return action.New(action.SwipeNext), true
	}

	if !d.eyesClosed(s) {
		return action.Event{}, false
	}

	switch {
	case nowMs-d.lastBlinkMs > d.cfg.DoubleBlinkWindowMs:
		d.blinkCount = 1
		d.lastBlinkMs = nowMs
		d.status = FaceStatusBlinkAgain
	case d.blinkCount == 1:
		d.blinkCount = 0
		d.status = FaceStatusReady
		return action.New(action.DoubleTap), true
	}

	return action.Event{}, false
}

func (d *FaceDetector) eyesClosed(s FaceSample) bool {
	if !isFinite(s.LeftEyeOpenProb) || !isFinite(s.RightEyeOpenProb) {
		return false
	}
	return s.LeftEyeOpenProb < d.cfg.EyeClosedThreshold && s.RightEyeOpenProb < d.cfg.EyeClosedThreshold
}

// Reset restores the initial blink state.
func (d *FaceDetector) Reset() {
	d.lastBlinkMs = neverMs
	d.blinkCount = 0
	d.status = FaceStatusReady
}

// Status returns the detector's current status text.
func (d *FaceDetector) Status() string {
	return d.status
}

// InProgress reports whether a blink sequence is open.
func (d *FaceDetector) InProgress() bool {
	return d.blinkCount == 1
}
