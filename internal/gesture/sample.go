// Package gesture turns per-frame feature samples from the face, hand and voice
// modalities into discrete actions.
//
// Each detector owns its state exclusively and is driven by a single producer.
// Detectors never call each other; the only shared state is the dispatcher's
// cooldown, which they consult through the Gate interface before emitting.
package gesture

import (
	"errors"
	"math"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/detector"
)

// ErrSessionInterrupted is reported when a signal source stops delivering
// samples in the middle of a gesture. The detector state is reset.
var ErrSessionInterrupted = errors.New("gesture: session interrupted")

// Sample is one decoded unit of sensor output. It is one of FaceSample,
// HandSample or VoiceSample.
type Sample interface {
	Source() action.Source
}

// FaceSample is the face landmark and probability bundle for one frame.
type FaceSample struct {
	MouthOpenDistance float64 `json:"mouth_open_distance"`
	LeftEyeOpenProb   float64 `json:"left_eye_open_prob"`
	RightEyeOpenProb  float64 `json:"right_eye_open_prob"`
}

// Source implements Sample.
func (FaceSample) Source() action.Source { return action.SourceFace }

// HandSample holds the landmarks of the first detected hand, normalized to
// [0,1]. A nil Landmarks slice means no hand was present in the frame.
type HandSample struct {
	Landmarks []detector.Point3D `json:"landmarks"`
}

// Source implements Sample.
func (HandSample) Source() action.Source { return action.SourceHand }

// Present reports whether the sample carries a complete hand of
// detector.NumLandmarks points. Partial landmark lists count as no hand.
func (s HandSample) Present() bool {
	return len(s.Landmarks) == detector.NumLandmarks
}

// VoiceSample is one recognized phrase.
type VoiceSample struct {
	Phrase string `json:"phrase"`
}

// Source implements Sample.
func (VoiceSample) Source() action.Source { return action.SourceVoice }

// Gate reports whether the shared action cooldown is still running.
type Gate interface {
	// Active reports whether fewer than windowMs have elapsed since the last
	// accepted action. It is false when no action has been accepted yet.
	Active(nowMs, windowMs int64) bool
}

// FaceFromLandmarks builds a FaceSample from an adapter result. Missing eye
// probabilities are treated as open eyes.
func FaceFromLandmarks(f *detector.FaceLandmarks) FaceSample {
	if f == nil {
		return FaceSample{LeftEyeOpenProb: 1, RightEyeOpenProb: 1}
	}

	s := FaceSample{
		MouthOpenDistance: f.MouthOpenDistance(),
		LeftEyeOpenProb:   1,
		RightEyeOpenProb:  1,
	}
	if f.LeftEyeOpen != nil {
		s.LeftEyeOpenProb = *f.LeftEyeOpen
	}
	if f.RightEyeOpen != nil {
		s.RightEyeOpenProb = *f.RightEyeOpen
	}
	return s
}

// HandFromLandmarks builds a HandSample from the first detected hand, or an
// empty sample when hands is empty.
func HandFromLandmarks(hands []detector.HandLandmarks) HandSample {
	if len(hands) == 0 {
		return HandSample{}
	}
	points := make([]detector.Point3D, detector.NumLandmarks)
	copy(points, hands[0].Points[:])
	return HandSample{Landmarks: points}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
