package detector

import "gocv.io/x/gocv"

// Result holds the landmarks extracted from one frame.
type Result struct {
	Hands []HandLandmarks `json:"hands"`
	Faces []FaceLandmarks `json:"faces"`
}

// FirstFace returns the first detected face, or nil.
func (r Result) FirstFace() *FaceLandmarks {
	if len(r.Faces) == 0 {
		return nil
	}
	return &r.Faces[0]
}

// Detector defines the interface for landmark extraction.
type Detector interface {
	// Detect analyzes a video frame and returns the detected landmarks.
	// Empty slices mean nothing was found.
	Detect(frame *gocv.Mat) (Result, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for landmark extraction.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// Faces enables face mesh extraction alongside hands.
	Faces bool

	// Script overrides the landmarker script location.
	Script string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		Faces:           true,
	}
}
