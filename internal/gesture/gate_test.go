package gesture

import (
	"math"

	"github.com/ayusman/mudra/internal/detector"
)

// fakeGate reports an active cooldown for windowMs after lastMs.
type fakeGate struct {
	lastMs int64
	set    bool
}

func (g *fakeGate) Active(nowMs, windowMs int64) bool {
	return g.set && nowMs-g.lastMs < windowMs
}

func (g *fakeGate) accept(nowMs int64) {
	g.lastMs = nowMs
	g.set = true
}

// handAt returns a hand sample whose thumb and index tips are dist apart.
func handAt(dist float64) HandSample {
	points := make([]detector.Point3D, detector.NumLandmarks)
	for i := range points {
		points[i] = detector.Point3D{X: 0.5, Y: 0.6}
	}
	points[detector.ThumbTip] = detector.Point3D{X: 0.4, Y: 0.4}
	points[detector.IndexTip] = detector.Point3D{X: 0.4 + dist, Y: 0.4}
	return HandSample{Landmarks: points}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
