package systems

import (
	"gonum.org/v1/gonum/blas/blas32"
)

// Grid is a scalar field laid over the canvas at a resolution decoupled
// from the particle count. Cell (0,0) covers the top-left corner.
// Samples and splats clamp at the canvas edge.
type Grid struct {
	W, H int
	Data []float32

	worldW, worldH float32
}

// NewGrid creates a zeroed w x h grid covering a worldW x worldH canvas.
func NewGrid(w, h int, worldW, worldH float32) *Grid {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return &Grid{
		W:      w,
		H:      h,
		Data:   make([]float32, w*h),
		worldW: worldW,
		worldH: worldH,
	}
}

func (g *Grid) vec() blas32.Vector {
	return blas32.Vector{N: len(g.Data), Inc: 1, Data: g.Data}
}

// cellCoords converts a world position to continuous cell-center coordinates.
func (g *Grid) cellCoords(x, y float32) (float32, float32) {
	gx := x/g.worldW*float32(g.W) - 0.5
	gy := y/g.worldH*float32(g.H) - 0.5
	return clampFloat(gx, 0, float32(g.W-1)), clampFloat(gy, 0, float32(g.H-1))
}

// corners returns the four bilinear taps and their fractional weights.
func (g *Grid) corners(x, y float32) (i00, i10, i01, i11 int, tx, ty float32) {
	gx, gy := g.cellCoords(x, y)
	x0 := int(gx)
	y0 := int(gy)
	x1 := x0 + 1
	if x1 >= g.W {
		x1 = g.W - 1
	}
	y1 := y0 + 1
	if y1 >= g.H {
		y1 = g.H - 1
	}
	tx = gx - float32(x0)
	ty = gy - float32(y0)

	i00 = y0*g.W + x0
	i10 = y0*g.W + x1
	i01 = y1*g.W + x0
	i11 = y1*g.W + x1
	return
}

// Sample returns the bilinearly interpolated value at a world position.
func (g *Grid) Sample(x, y float32) float32 {
	i00, i10, i01, i11, tx, ty := g.corners(x, y)
	a := g.Data[i00] + (g.Data[i10]-g.Data[i00])*tx
	b := g.Data[i01] + (g.Data[i11]-g.Data[i01])*tx
	return a + (b-a)*ty
}

// Splat distributes amount over the four nearest cells with bilinear weights.
func (g *Grid) Splat(x, y, amount float32) {
	if amount == 0 {
		return
	}
	i00, i10, i01, i11, tx, ty := g.corners(x, y)

	// 2x2 bilinear weights
	g.Data[i00] += amount * (1 - tx) * (1 - ty)
	g.Data[i10] += amount * tx * (1 - ty)
	g.Data[i01] += amount * (1 - tx) * ty
	g.Data[i11] += amount * tx * ty
}

// Gradient returns the field gradient in value per world unit using
// central differences over one cell.
func (g *Grid) Gradient(x, y float32) (float32, float32) {
	cw := g.worldW / float32(g.W)
	ch := g.worldH / float32(g.H)
	dx := (g.Sample(x+cw, y) - g.Sample(x-cw, y)) / (2 * cw)
	dy := (g.Sample(x, y+ch) - g.Sample(x, y-ch)) / (2 * ch)
	return dx, dy
}

// Scale multiplies every cell by f.
func (g *Grid) Scale(f float32) {
	if f == 1 {
		return
	}
	blas32.Scal(f, g.vec())
}

// Total returns the sum of absolute cell values.
func (g *Grid) Total() float32 {
	return blas32.Asum(g.vec())
}

// Clear zeroes the grid.
func (g *Grid) Clear() {
	clear(g.Data)
}

// BoxBlur replaces the grid with a separable box blur of the given radius
// in cells. tmp must be at least len(g.Data) long.
func (g *Grid) BoxBlur(radius int, tmp []float32) {
	if radius <= 0 {
		return
	}
	boxBlur(g.Data, tmp[:len(g.Data)], g.W, g.H, radius)
}

// boxBlur blurs src in place using tmp as scratch. Edges clamp.
func boxBlur(src, tmp []float32, w, h, r int) {
	norm := 1 / float32(2*r+1)
	for y := 0; y < h; y++ {
		row := src[y*w : (y+1)*w]
		var acc float32
		for k := -r; k <= r; k++ {
			acc += row[clampIndex(k, w)]
		}
		for x := 0; x < w; x++ {
			tmp[y*w+x] = acc * norm
			acc += row[clampIndex(x+r+1, w)] - row[clampIndex(x-r, w)]
		}
	}
	for x := 0; x < w; x++ {
		var acc float32
		for k := -r; k <= r; k++ {
			acc += tmp[clampIndex(k, h)*w+x]
		}
		for y := 0; y < h; y++ {
			src[y*w+x] = acc * norm
			acc += tmp[clampIndex(y+r+1, h)*w+x] - tmp[clampIndex(y-r, h)*w+x]
		}
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
