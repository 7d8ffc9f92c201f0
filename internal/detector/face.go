package detector

import "math"

// FaceLandmarks is the subset of face mesh output the gesture layer needs.
// Lip points are in pixel coordinates of the analyzed frame; eye
// probabilities are nil when the landmarker could not classify the eyes.
type FaceLandmarks struct {
	UpperLipBottom Point3D  `json:"upper_lip_bottom"`
	LowerLipTop    Point3D  `json:"lower_lip_top"`
	LeftEyeOpen    *float64 `json:"left_eye_open,omitempty"`
	RightEyeOpen   *float64 `json:"right_eye_open,omitempty"`
	Score          float64  `json:"score"`
}

// MouthOpenDistance returns the vertical gap between the inner lips.
func (f *FaceLandmarks) MouthOpenDistance() float64 {
	if f == nil {
		return 0
	}
	return math.Abs(f.LowerLipTop.Y - f.UpperLipBottom.Y)
}
