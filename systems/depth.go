package systems

import (
	"math"

	"github.com/pthm-cable/particles/config"
)

// DepthField maps canvas positions to an apparent depth in [0,1], where 1
// is nearest the viewer. It combines a blurred mask-derived field with an
// optional ground-plane projection of vertical position.
type DepthField struct {
	params   config.DepthParams
	h        float32
	tilt     float32
	fromMask *Grid // nil when depth is not derived from a mask
}

// NewDepthField builds the depth field for a layer. mask may be nil.
func NewDepthField(p config.DepthParams, mask *MaskView, h float32) *DepthField {
	d := &DepthField{
		params: p,
		h:      h,
		tilt:   float32(math.Tan(p.GroundPlaneTilt * math.Pi / 180)),
	}
	if p.DepthFromMask && mask != nil {
		src := mask.Coverage
		g := NewGrid(src.W, src.H, src.worldW, src.worldH)
		copy(g.Data, src.Data)
		g.BoxBlur(p.DepthBlur, make([]float32, len(g.Data)))
		curve := p.DepthCurve
		if curve <= 0 {
			curve = 1
		}
		for i, v := range g.Data {
			v = float32(math.Pow(float64(clamp01(v)), curve))
			if p.DepthInvert {
				v = 1 - v
			}
			g.Data[i] = v
		}
		d.fromMask = g
	}
	return d
}

// Enabled reports whether the field modulates anything.
func (d *DepthField) Enabled() bool {
	return d != nil && d.params.DepthEnabled
}

// At returns the depth at a canvas position.
func (d *DepthField) At(x, y float32) float32 {
	sum, n := float32(0), 0
	if d.fromMask != nil {
		sum += d.fromMask.Sample(x, y)
		n++
	}
	if d.params.GroundPlaneEnabled && d.h > 0 {
		g := 0.5 + (y/d.h-float32(d.params.GroundPlaneY))*d.tilt
		if d.params.DepthInvert && d.fromMask == nil {
			g = 1 - g
		}
		sum += clamp01(g)
		n++
	}
	if n == 0 {
		return 0.5
	}
	return sum / float32(n)
}

// ScaleAt returns the size and opacity multipliers at a canvas position.
func (d *DepthField) ScaleAt(x, y float32) (size, opacity float32) {
	if !d.Enabled() {
		return 1, 1
	}
	depth := d.At(x, y)
	s := float32(d.params.DepthScale)
	size = 1 + (depth-0.5)*s
	if size < 0.1 {
		size = 0.1
	}
	opacity = clampFloat(1-(1-depth)*s*0.5, 0.05, 1)
	return size, opacity
}
