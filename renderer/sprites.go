package renderer

import (
	"fmt"
	"image"
	"math"

	"github.com/fogleman/gg"

	"github.com/pthm-cable/particles/config"
)

// Sprite is a square coverage mask for one particle shape.
type Sprite struct {
	Size  int
	Alpha []float32
}

// at returns coverage at normalized sprite coordinates in [0,1).
func (s *Sprite) at(u, v float32) float32 {
	x := int(u * float32(s.Size))
	y := int(v * float32(s.Size))
	if x < 0 || y < 0 || x >= s.Size || y >= s.Size {
		return 0
	}
	return s.Alpha[y*s.Size+x]
}

// Atlas holds a rasterized sprite for every shape.
type Atlas struct {
	sprites map[config.Shape]*Sprite
}

// NewAtlas rasterizes every shape at size x size pixels.
func NewAtlas(size int) (*Atlas, error) {
	if size < 4 {
		return nil, fmt.Errorf("sprite size %d too small", size)
	}
	a := &Atlas{sprites: make(map[config.Shape]*Sprite, len(config.Shapes))}
	for _, shape := range config.Shapes {
		s, err := rasterize(shape, size)
		if err != nil {
			return nil, err
		}
		a.sprites[shape] = s
	}
	return a, nil
}

// Sprite returns the sprite for shape, falling back to the dot.
func (a *Atlas) Sprite(shape config.Shape) *Sprite {
	if s, ok := a.sprites[shape]; ok {
		return s
	}
	return a.sprites[config.ShapeDot]
}

func rasterize(shape config.Shape, size int) (*Sprite, error) {
	dc := gg.NewContext(size, size)
	dc.SetRGBA(1, 1, 1, 1)
	s := float64(size)
	c := s / 2
	r := s/2 - 1

	switch shape {
	case config.ShapeDot:
		dc.DrawCircle(c, c, r)
		dc.Fill()
	case config.ShapeSquare:
		dc.DrawRectangle(s*0.15, s*0.15, s*0.7, s*0.7)
		dc.Fill()
	case config.ShapeStar:
		drawStar(dc, c, c, r, r*0.45)
		dc.Fill()
	case config.ShapeDash:
		dc.DrawRectangle(1, c-s*0.1, s-2, s*0.2)
		dc.Fill()
	case config.ShapeRing:
		dc.SetLineWidth(s * 0.14)
		dc.DrawCircle(c, c, r-s*0.08)
		dc.Stroke()
	case config.ShapeDiamond:
		dc.DrawRegularPolygon(4, c, c, r, 0)
		dc.Fill()
	case config.ShapeCross:
		dc.DrawRectangle(c-s*0.1, 1, s*0.2, s-2)
		dc.DrawRectangle(1, c-s*0.1, s-2, s*0.2)
		dc.Fill()
	case config.ShapeTilde:
		dc.SetLineWidth(s * 0.14)
		dc.SetLineCapRound()
		for i := 0; i <= 16; i++ {
			t := float64(i) / 16
			x := s*0.1 + t*s*0.8
			y := c - math.Sin(t*2*math.Pi)*s*0.18
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.Stroke()
	default:
		return nil, fmt.Errorf("unknown shape %q", shape)
	}

	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		return nil, fmt.Errorf("rasterizing %s: unexpected image type", shape)
	}
	sp := &Sprite{Size: size, Alpha: make([]float32, size*size)}
	for i := range sp.Alpha {
		sp.Alpha[i] = float32(img.Pix[4*i+3]) / 255
	}
	return sp, nil
}

// drawStar traces a five-pointed star with the tip pointing up.
func drawStar(dc *gg.Context, cx, cy, outer, inner float64) {
	for i := 0; i < 10; i++ {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		a := float64(i)*math.Pi/5 - math.Pi/2
		x := cx + math.Cos(a)*r
		y := cy + math.Sin(a)*r
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.ClosePath()
}
