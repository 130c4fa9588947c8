package renderer

import (
	"math"

	"github.com/pthm-cable/particles/components"
	"github.com/pthm-cable/particles/config"
	"github.com/pthm-cable/particles/systems"
)

// bayer4 is the 4x4 ordered dither matrix, normalized to (0,1).
var bayer4 = [16]float32{
	0.5 / 16, 8.5 / 16, 2.5 / 16, 10.5 / 16,
	12.5 / 16, 4.5 / 16, 14.5 / 16, 6.5 / 16,
	3.5 / 16, 11.5 / 16, 1.5 / 16, 9.5 / 16,
	15.5 / 16, 7.5 / 16, 13.5 / 16, 5.5 / 16,
}

// Modulation scales appearance for one frame, e.g. from audio. Zero
// fields mean no change.
type Modulation struct {
	Size       float32
	Brightness float32
}

func orOne(v float32) float32 {
	if v <= 0 {
		return 1
	}
	return v
}

// Compositor draws layers and fragments into a frame buffer.
type Compositor struct {
	atlas *Atlas
	cfg   config.RenderConfig
}

// NewCompositor rasterizes the sprite atlas.
func NewCompositor(cfg config.RenderConfig) (*Compositor, error) {
	atlas, err := NewAtlas(cfg.SpriteSize)
	if err != nil {
		return nil, err
	}
	return &Compositor{atlas: atlas, cfg: cfg}, nil
}

// DrawLayer splats every live particle of a layer, with trails.
func (c *Compositor) DrawLayer(fb *FrameBuffer, ls *systems.LayerState, mod Modulation) {
	l := &ls.Config
	if !l.Enabled {
		return
	}
	b := ls.Buf
	pal := NewPalette(&l.AppearanceParams)
	sprite := c.atlas.Sprite(l.Shape)
	baseSize := float32(l.PointSize) * orOne(mod.Size)
	baseBright := float32(l.Brightness) * orOne(mod.Brightness)
	sizeJitter := float32(l.SizeJitter)
	brightJitter := float32(l.BrightnessJitter)
	dither := float32(l.Dither)
	steps := int(math.Round(l.TrailLength * float64(c.cfg.TrailSteps)))
	fadeIn := float32(c.cfg.FadeInTime)
	glowBoost := float32(c.cfg.GlowBoost)
	depth := ls.Depth.Enabled()
	invH := 1 / float32(fb.H)

	for i := range b.X {
		if !b.Alive[i] {
			continue
		}
		x, y := b.X[i], b.Y[i]
		ph := b.Phase[i]

		size := baseSize * (1 + (fract(ph*7.31)-0.5)*sizeJitter)
		a := baseBright * (1 + (fract(ph*13.17)-0.5)*brightJitter)
		if depth {
			ds, do := ls.Depth.ScaleAt(x, y)
			size *= ds
			a *= do
		}
		if fadeIn > 0 && b.Age[i] < fadeIn {
			a *= b.Age[i] / fadeIn
		}
		if g := b.Glow[i]; g > 0 {
			a *= 1 + g*glowBoost
		}
		if a <= 0 || size <= 0 {
			continue
		}

		col := pal.Color(b.Age[i], y*invH, ph, b.Transformed[i])
		splat(fb, sprite, x, y, size, col, a, dither)

		if steps == 0 {
			continue
		}
		dx, dy := x-b.PrevX[i], y-b.PrevY[i]
		if dx == 0 && dy == 0 {
			continue
		}
		for k := 1; k <= steps; k++ {
			w := 1 - float32(k)/float32(steps+1)
			fk := float32(k)
			splat(fb, sprite, x-dx*fk, y-dy*fk, size*(0.5+0.5*w), col, a*w*0.5, dither)
		}
	}
}

// DrawFragments splats every live fragment as a fading dot.
func (c *Compositor) DrawFragments(fb *FrameBuffer, frags *systems.Fragments) {
	if frags == nil || frags.Count() == 0 {
		return
	}
	dot := c.atlas.Sprite(config.ShapeDot)
	frags.Each(func(pos *components.Position, f *components.Fragment) {
		col := rgb{float32(f.R) / 255, float32(f.G) / 255, float32(f.B) / 255}
		splat(fb, dot, pos.X, pos.Y, max(f.Size, 1), col, f.Alpha(), 0)
	})
}

// splat blends a sprite of the given pixel size centered at (x, y).
func splat(fb *FrameBuffer, sp *Sprite, x, y, size float32, col rgb, a, dither float32) {
	if size < 1.5 {
		// Sub-pixel particles deposit their area into one pixel
		px, py := int(math.Floor(float64(x))), int(math.Floor(float64(y)))
		w := a * max(size*size*0.785, 0.25)
		if dither > 0 {
			w = ditherWeight(px, py, w, dither)
		}
		fb.add(px, py, col.r, col.g, col.b, w)
		return
	}

	half := size / 2
	left, top := x-half, y-half
	x0 := max(int(math.Floor(float64(left))), 0)
	y0 := max(int(math.Floor(float64(top))), 0)
	x1 := min(int(math.Ceil(float64(x+half))), fb.W)
	y1 := min(int(math.Ceil(float64(y+half))), fb.H)
	inv := 1 / size

	for py := y0; py < y1; py++ {
		v := (float32(py) + 0.5 - top) * inv
		for px := x0; px < x1; px++ {
			u := (float32(px) + 0.5 - left) * inv
			cov := sp.at(u, v)
			if cov == 0 {
				continue
			}
			w := cov * a
			if dither > 0 {
				w = ditherWeight(px, py, w, dither)
			}
			fb.add(px, py, col.r, col.g, col.b, w)
		}
	}
}

// ditherWeight blends a weight toward its ordered-dither quantization.
func ditherWeight(x, y int, w, dither float32) float32 {
	var hard float32
	if min(w, 1) > bayer4[(y&3)*4+(x&3)] {
		hard = 1
	}
	return w + (hard-w)*dither
}

func fract(v float32) float32 {
	return v - float32(math.Floor(float64(v)))
}
