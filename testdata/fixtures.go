// Package testdata builds synthetic camera frames for pipeline tests.
package testdata

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Frame returns a w x h BGR frame filled with one gray shade.
func Frame(w, h int, shade uint8) *gocv.Mat {
	v := float64(shade)
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), h, w, gocv.MatTypeCV8UC3)
	return &m
}

// MovingSquare returns n black frames with a white square that steps
// left to right across the frame. Consecutive frames differ enough to
// register as motion.
func MovingSquare(n, w, h int) []*gocv.Mat {
	side := h / 3
	step := 0
	if n > 1 {
		step = (w - side) / (n - 1)
	}
	frames := make([]*gocv.Mat, 0, n)
	for i := 0; i < n; i++ {
		f := Frame(w, h, 0)
		x := i * step
		r := image.Rect(x, side, x+side, 2*side)
		gocv.Rectangle(f, r, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
		frames = append(frames, f)
	}
	return frames
}

// CloseAll releases every frame.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		if f != nil {
			f.Close()
		}
	}
}
