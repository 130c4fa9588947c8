// Package renderer composites particle layers into an image on the CPU.
package renderer

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/blas/blas32"
)

// MaxSide bounds the frame buffer dimensions.
const MaxSide = 8192

// ErrBadSize is returned when a frame buffer cannot be allocated.
var ErrBadSize = errors.New("invalid frame size")

// FrameBuffer is a linear RGB float canvas that layers blend into additively.
type FrameBuffer struct {
	W, H int
	Pix  []float32 // r,g,b per pixel, row-major
}

// NewFrameBuffer allocates a black w x h canvas.
func NewFrameBuffer(w, h int) (*FrameBuffer, error) {
	if w <= 0 || h <= 0 || w > MaxSide || h > MaxSide {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadSize, w, h)
	}
	return &FrameBuffer{W: w, H: h, Pix: make([]float32, 3*w*h)}, nil
}

// Clear sets every pixel to black.
func (f *FrameBuffer) Clear() {
	clear(f.Pix)
}

// Fade darkens the canvas by clearRate: 1 clears fully, smaller values
// leave exponential trails.
func (f *FrameBuffer) Fade(clearRate float64) {
	if clearRate >= 1 {
		f.Clear()
		return
	}
	if clearRate <= 0 {
		return
	}
	blas32.Scal(float32(1-clearRate), blas32.Vector{N: len(f.Pix), Inc: 1, Data: f.Pix})
}

// add blends color c with weight a into pixel (x, y). Out-of-range
// coordinates are ignored.
func (f *FrameBuffer) add(x, y int, r, g, b, a float32) {
	if x < 0 || y < 0 || x >= f.W || y >= f.H {
		return
	}
	i := 3 * (y*f.W + x)
	f.Pix[i] += r * a
	f.Pix[i+1] += g * a
	f.Pix[i+2] += b * a
}

// At returns the linear color of pixel (x, y).
func (f *FrameBuffer) At(x, y int) (r, g, b float32) {
	i := 3 * (y*f.W + x)
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}
