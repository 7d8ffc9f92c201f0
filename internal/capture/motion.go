package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	// blurSize is the Gaussian kernel used to suppress sensor noise.
	blurSize = 21
	// diffThreshold is the per-pixel intensity change that counts as motion.
	diffThreshold = 25
)

// MotionDetector compares consecutive frames and reports the share of
// pixels that changed. It gates the landmarker so a still scene costs one
// grayscale diff per frame instead of a full inference.
type MotionDetector struct {
	threshold float64
	prevGray  gocv.Mat
	hasPrev   bool
	mu        sync.Mutex
}

// NewMotionDetector creates a detector that reports motion when more than
// threshold percent of the pixels changed.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect returns whether frame moved relative to the previous frame, and
// the changed-pixel percentage. The first frame only sets the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurSize, Y: blurSize}, 0, 0, gocv.BorderDefault)

	if !m.hasPrev {
		blurred.CopyTo(&m.prevGray)
		m.hasPrev = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, diffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100.0

	blurred.CopyTo(&m.prevGray)

	return changed > m.threshold, changed
}

// Reset drops the baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases the baseline Mat. The detector may be used again afterwards.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *MotionDetector) release() {
	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.hasPrev = false
}

// SetThreshold changes the motion threshold. Values <= 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// RateConfig controls the adaptive frame rate.
type RateConfig struct {
	IdleFPS     int
	ActiveFPS   int
	IdleTimeout time.Duration
}

// DefaultRateConfig samples at 5 FPS while idle and 15 FPS while moving,
// falling back to idle after two still seconds.
func DefaultRateConfig() RateConfig {
	return RateConfig{
		IdleFPS:     5,
		ActiveFPS:   15,
		IdleTimeout: 2 * time.Second,
	}
}

// RateController switches the capture rate between idle and active based on
// motion observations. It is not safe for concurrent use.
type RateController struct {
	cfg        RateConfig
	active     bool
	lastMotion time.Time
}

// NewRateController returns a controller in idle mode.
func NewRateController(cfg RateConfig) *RateController {
	return &RateController{cfg: cfg}
}

// Observe records one frame's motion result at now. It returns the frame
// rate to use and whether the mode changed with this observation.
func (r *RateController) Observe(motion bool, now time.Time) (fps int, changed bool) {
	switch {
	case motion:
		r.lastMotion = now
		if !r.active {
			r.active = true
			changed = true
		}
	case r.active && now.Sub(r.lastMotion) > r.cfg.IdleTimeout:
		r.active = false
		changed = true
	}
	return r.FPS(), changed
}

// Active reports whether the controller is in active mode.
func (r *RateController) Active() bool {
	return r.active
}

// FPS returns the frame rate for the current mode.
func (r *RateController) FPS() int {
	if r.active {
		return r.cfg.ActiveFPS
	}
	return r.cfg.IdleFPS
}

// Interval returns the time between two frames at the current rate.
func (r *RateController) Interval() time.Duration {
	fps := r.FPS()
	if fps <= 0 {
		fps = 1
	}
	return time.Second / time.Duration(fps)
}
