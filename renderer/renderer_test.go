package renderer

import (
	"image"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/pthm-cable/particles/components"
	"github.com/pthm-cable/particles/config"
	"github.com/pthm-cable/particles/systems"
)

func init() {
	config.MustInit("")
}

func newTestLayer(t *testing.T, w, h float32) *systems.LayerState {
	t.Helper()
	cfg := config.Cfg()
	env := &systems.Env{
		W:         w,
		H:         h,
		Flow:      systems.NewFlowField(w, h, 1, cfg.Flow),
		Rng:       rand.New(rand.NewSource(1)),
		Fragments: systems.NewFragments(cfg.Engine.MaxFragments),
	}
	l := config.NewLayer("draw", config.TypeCrumbs, 1, config.KindForeground)
	l.SizeJitter = 0
	l.BrightnessJitter = 0
	l.TrailLength = 0
	l.Color = "#ffffff"
	ls := systems.NewLayerState(l, env, nil)
	b := ls.Buf
	b.X[0], b.Y[0] = w/2, h/2
	b.PrevX[0], b.PrevY[0] = w/2, h/2
	b.Age[0] = 10
	return ls
}

func TestFrameBufferSize(t *testing.T) {
	tests := []struct {
		w, h int
		ok   bool
	}{
		{64, 64, true},
		{0, 64, false},
		{64, -1, false},
		{MaxSide + 1, 16, false},
	}
	for _, tt := range tests {
		_, err := NewFrameBuffer(tt.w, tt.h)
		if (err == nil) != tt.ok {
			t.Errorf("NewFrameBuffer(%d,%d) err=%v, want ok=%v", tt.w, tt.h, err, tt.ok)
		}
	}
}

func TestFade(t *testing.T) {
	fb, _ := NewFrameBuffer(4, 4)
	fb.add(1, 1, 1, 1, 1, 1)

	fb.Fade(0.25)
	if r, _, _ := fb.At(1, 1); math.Abs(float64(r)-0.75) > 1e-6 {
		t.Errorf("after fade 0.25: r=%v, want 0.75", r)
	}
	fb.Fade(1)
	if r, _, _ := fb.At(1, 1); r != 0 {
		t.Errorf("after full clear: r=%v, want 0", r)
	}
}

func TestAtlasShapes(t *testing.T) {
	atlas, err := NewAtlas(32)
	if err != nil {
		t.Fatal(err)
	}
	for _, shape := range config.Shapes {
		t.Run(string(shape), func(t *testing.T) {
			sp := atlas.Sprite(shape)
			var sum float32
			for _, a := range sp.Alpha {
				sum += a
			}
			if sum == 0 {
				t.Error("sprite is empty")
			}
		})
	}

	dot := atlas.Sprite(config.ShapeDot)
	if dot.at(0.5, 0.5) < 0.99 {
		t.Errorf("dot center coverage %v, want 1", dot.at(0.5, 0.5))
	}
	if dot.at(0.01, 0.01) != 0 {
		t.Errorf("dot corner coverage %v, want 0", dot.at(0.01, 0.01))
	}
	if _, err := NewAtlas(2); err == nil {
		t.Error("expected error for tiny sprite size")
	}
}

func TestDrawLayerSplatsAtParticle(t *testing.T) {
	comp, err := NewCompositor(config.Cfg().Render)
	if err != nil {
		t.Fatal(err)
	}
	fb, _ := NewFrameBuffer(64, 64)
	ls := newTestLayer(t, 64, 64)

	comp.DrawLayer(fb, ls, Modulation{})
	if r, _, _ := fb.At(32, 32); r <= 0 {
		t.Errorf("center pixel r=%v, want lit", r)
	}
	if r, _, _ := fb.At(2, 2); r != 0 {
		t.Errorf("far pixel r=%v, want black", r)
	}
}

func TestDrawLayerSkipsDisabledAndDead(t *testing.T) {
	comp, _ := NewCompositor(config.Cfg().Render)

	tests := []struct {
		name  string
		setup func(ls *systems.LayerState)
	}{
		{"disabled", func(ls *systems.LayerState) { ls.Config.Enabled = false }},
		{"dead", func(ls *systems.LayerState) { ls.Buf.Alive[0] = false }},
		{"newborn", func(ls *systems.LayerState) { ls.Buf.Age[0] = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, _ := NewFrameBuffer(64, 64)
			ls := newTestLayer(t, 64, 64)
			tt.setup(ls)
			comp.DrawLayer(fb, ls, Modulation{})
			for _, v := range fb.Pix {
				if v != 0 {
					t.Fatal("expected empty frame")
				}
			}
		})
	}
}

func TestBrightnessModulation(t *testing.T) {
	comp, _ := NewCompositor(config.Cfg().Render)
	ls := newTestLayer(t, 64, 64)

	base, _ := NewFrameBuffer(64, 64)
	comp.DrawLayer(base, ls, Modulation{})
	bright, _ := NewFrameBuffer(64, 64)
	comp.DrawLayer(bright, ls, Modulation{Brightness: 2})

	r1, _, _ := base.At(32, 32)
	r2, _, _ := bright.At(32, 32)
	if math.Abs(float64(r2-2*r1)) > 1e-5 {
		t.Errorf("doubled brightness r=%v, want %v", r2, 2*r1)
	}
}

func TestTrailsExtendBehindParticle(t *testing.T) {
	comp, _ := NewCompositor(config.Cfg().Render)
	fb, _ := NewFrameBuffer(64, 64)
	ls := newTestLayer(t, 64, 64)
	ls.Config.TrailLength = 1
	ls.Config.PointSize = 2
	ls.Buf.PrevX[0] = ls.Buf.X[0] - 3

	comp.DrawLayer(fb, ls, Modulation{})
	if r, _, _ := fb.At(26, 32); r <= 0 {
		t.Errorf("trail pixel r=%v, want lit", r)
	}
	if r, _, _ := fb.At(38, 32); r != 0 {
		t.Errorf("pixel ahead of particle r=%v, want black", r)
	}
}

func TestDrawFragments(t *testing.T) {
	comp, _ := NewCompositor(config.Cfg().Render)
	fb, _ := NewFrameBuffer(32, 32)
	frags := systems.NewFragments(16)
	frags.Burst(rand.New(rand.NewSource(1)), 16, 16, 1, 0, components.Fragment{
		Layer: "a", Life: 1, Size: 4, R: 255,
	})

	comp.DrawFragments(fb, frags)
	r, g, _ := fb.At(16, 16)
	if r <= 0 || g != 0 {
		t.Errorf("fragment pixel r=%v g=%v, want red", r, g)
	}
}

func TestPost(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		g    config.GlobalConfig
		want uint8
	}{
		{"passthrough", 0.5, config.GlobalConfig{Exposure: 1}, 128},
		{"exposure", 0.25, config.GlobalConfig{Exposure: 2}, 128},
		{"clamp", 3, config.GlobalConfig{Exposure: 1}, 255},
		{"invert", 1, config.GlobalConfig{Exposure: 1, Invert: true}, 0},
		{"hard threshold below", 0.3, config.GlobalConfig{Exposure: 1, Threshold: 0.5, ThresholdGain: 1}, 0},
		{"hard threshold above", 0.6, config.GlobalConfig{Exposure: 1, Threshold: 0.5, ThresholdGain: 1}, 153},
		{"soft threshold center", 0.5, config.GlobalConfig{Exposure: 1, Threshold: 0.5, ThresholdSoft: 0.1, ThresholdGain: 1}, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, _ := NewFrameBuffer(1, 1)
			fb.add(0, 0, 1, 1, 1, tt.in)
			dst := image.NewRGBA(image.Rect(0, 0, 1, 1))
			Post(fb, &tt.g, dst)
			if got := dst.Pix[0]; got != tt.want {
				t.Errorf("red = %d, want %d", got, tt.want)
			}
			if dst.Pix[3] != 255 {
				t.Errorf("alpha = %d, want 255", dst.Pix[3])
			}
		})
	}
}

func TestPostMonochrome(t *testing.T) {
	fb, _ := NewFrameBuffer(1, 1)
	fb.add(0, 0, 1, 0, 0, 1)
	dst := image.NewRGBA(image.Rect(0, 0, 1, 1))
	Post(fb, &config.GlobalConfig{Exposure: 1, Monochrome: true}, dst)
	if dst.Pix[0] != dst.Pix[1] || dst.Pix[1] != dst.Pix[2] {
		t.Errorf("monochrome pixel %v not gray", dst.Pix[:3])
	}
}

func TestPaletteModes(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		p := NewPalette(&config.AppearanceParams{ColorMode: config.ColorSingle, Color: "#ff0000"})
		c := p.Color(3, 0.7, 0.2, false)
		if c.r < 0.99 || c.g > 0.01 || c.b > 0.01 {
			t.Errorf("single color = %+v, want red", c)
		}
	})
	t.Run("gradient by position", func(t *testing.T) {
		p := NewPalette(&config.AppearanceParams{
			ColorMode:      config.ColorGradient,
			GradientBy:     config.GradientByPosition,
			Color:          "#000000",
			ColorSecondary: "#ffffff",
		})
		top := p.Color(0, 0, 0, false)
		bottom := p.Color(0, 1, 0, false)
		if top.r > 0.01 || bottom.r < 0.99 {
			t.Errorf("gradient ends %+v .. %+v, want black .. white", top, bottom)
		}
	})
	t.Run("transformed", func(t *testing.T) {
		p := NewPalette(&config.AppearanceParams{
			ColorMode:      config.ColorSingle,
			Color:          "#ff0000",
			ColorSecondary: "#00ff00",
		})
		c := p.Color(0, 0, 0, true)
		if c.g < 0.99 || c.r > 0.01 {
			t.Errorf("transformed color = %+v, want green", c)
		}
	})
	t.Run("scheme", func(t *testing.T) {
		p := NewPalette(&config.AppearanceParams{ColorMode: config.ColorScheme, ColorScheme: config.SchemeIce})
		lo := p.Color(0, 0, 0, false)
		hi := p.Color(0, 0, 0.999, false)
		if hi.b <= lo.b {
			t.Errorf("ice scheme should brighten: %+v .. %+v", lo, hi)
		}
	})
}

func TestPNGDataURI(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	uri, err := PNGDataURI(img)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Errorf("uri prefix = %q", uri[:min(len(uri), 30)])
	}
}

func TestCaption(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 40))
	if err := Caption(img, "particles"); err != nil {
		t.Fatal(err)
	}
	lit := false
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 200 {
			lit = true
			break
		}
	}
	if !lit {
		t.Error("caption drew nothing")
	}
}
