package systems

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/particles/components"
	"github.com/pthm-cable/particles/config"
)

func TestGridSplatConservesMass(t *testing.T) {
	g := NewGrid(32, 32, 320, 320)
	g.Splat(100, 140, 2)
	g.Splat(3, 317, 1)
	if got := g.Total(); math.Abs(float64(got)-3) > 1e-5 {
		t.Errorf("Total = %v, want 3", got)
	}
	g.Scale(0.5)
	if got := g.Total(); math.Abs(float64(got)-1.5) > 1e-5 {
		t.Errorf("Total after Scale = %v, want 1.5", got)
	}
}

func TestGridSampleAtCellCenter(t *testing.T) {
	g := NewGrid(4, 4, 40, 40)
	g.Data[1*4+2] = 8
	if got := g.Sample(25, 15); math.Abs(float64(got)-8) > 1e-5 {
		t.Errorf("Sample at center = %v, want 8", got)
	}
	if got := g.Sample(20, 15); math.Abs(float64(got)-4) > 1e-5 {
		t.Errorf("Sample halfway = %v, want 4", got)
	}
}

func TestGridGradient(t *testing.T) {
	g := NewGrid(16, 16, 160, 160)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			g.Data[y*16+x] = float32(x)
		}
	}
	gx, gy := g.Gradient(80, 80)
	if math.Abs(float64(gx)-0.1) > 1e-5 || math.Abs(float64(gy)) > 1e-5 {
		t.Errorf("Gradient = (%v,%v), want (0.1,0)", gx, gy)
	}
}

func TestBoxBlurPreservesUniform(t *testing.T) {
	g := NewGrid(10, 10, 10, 10)
	for i := range g.Data {
		g.Data[i] = 0.7
	}
	g.BoxBlur(3, make([]float32, len(g.Data)))
	for i, v := range g.Data {
		if math.Abs(float64(v)-0.7) > 1e-5 {
			t.Fatalf("cell %d = %v after blur, want 0.7", i, v)
		}
	}
}

func TestFlowFieldDeterministic(t *testing.T) {
	cfg := config.Cfg().Flow
	a := NewFlowField(512, 512, 42, cfg)
	b := NewFlowField(512, 512, 42, cfg)
	for range 45 {
		a.Step(testDT)
		b.Step(testDT)
	}
	var nonzero bool
	for i := range a.U {
		if a.U[i] != b.U[i] || a.V[i] != b.V[i] {
			t.Fatalf("cell %d differs between identical seeds", i)
		}
		if !finite(a.U[i]) || !finite(a.V[i]) {
			t.Fatalf("cell %d non-finite", i)
		}
		if a.U[i] != 0 || a.V[i] != 0 {
			nonzero = true
		}
	}
	if !nonzero {
		t.Error("flow field is all zero")
	}
}

func TestFlowFieldBlendBounds(t *testing.T) {
	cfg := config.Cfg().Flow
	f := NewFlowField(256, 256, 7, cfg)
	f.Step(float32(cfg.UpdateSec) / 2)
	for i := range f.U {
		lo := min(f.u0[i], f.u1[i])
		hi := max(f.u0[i], f.u1[i])
		if f.U[i] < lo-1e-5 || f.U[i] > hi+1e-5 {
			t.Fatalf("blended %v outside keyframes [%v,%v]", f.U[i], lo, hi)
		}
	}
}

func TestRippleStaysBounded(t *testing.T) {
	p := &config.SurfaceParams{SurfaceFieldsEnabled: true, RippleFieldEnabled: true, RippleDamping: 0.05, RippleSpeed: 4}
	tune := config.Cfg().Surface
	s := NewSurfaceFields(64, 64, 512, 512)
	s.Feed(p, 256, 256, 0, 5, 0)
	start := s.Ripple.Total()

	for range 600 {
		s.Step(p, 0, &tune, testDT, testDT)
	}
	got := s.Ripple.Total()
	if !finite(got) || got > start*4 {
		t.Errorf("ripple energy grew from %v to %v", start, got)
	}
}

func TestSurfaceDecay(t *testing.T) {
	p := &config.SurfaceParams{SurfaceFieldsEnabled: true, SmearFieldEnabled: true, SmearDecayRate: 1, DentFieldEnabled: true, DentRecoveryRate: 0.5}
	tune := config.Cfg().Surface
	s := NewSurfaceFields(32, 32, 320, 320)
	s.Feed(p, 160, 160, 1, 0, 1)
	for range 60 {
		s.Step(p, 0, &tune, testDT, testDT)
	}
	if got := float64(s.Smear.Total()); math.Abs(got-math.Exp(-1)) > 1e-3 {
		t.Errorf("smear = %v, want %v", got, math.Exp(-1))
	}
	if got := float64(s.Dent.Total()); math.Abs(got-math.Exp(-0.5)) > 1e-3 {
		t.Errorf("dent = %v, want %v", got, math.Exp(-0.5))
	}
}

func TestSurfaceDisabledIgnoresDeposits(t *testing.T) {
	p := &config.SurfaceParams{SmearFieldEnabled: true}
	s := NewSurfaceFields(8, 8, 80, 80)
	s.Feed(p, 40, 40, 1, 1, 1)
	if s.Smear.Total() != 0 {
		t.Error("deposit applied with surface fields disabled")
	}
}

func TestFragmentsLifecycle(t *testing.T) {
	f := NewFragments(10)
	rng := rand.New(rand.NewSource(3))
	tmpl := components.Fragment{Layer: "a", Life: 0.5}

	if n := f.Burst(rng, 10, 10, 6, 100, tmpl); n != 6 {
		t.Fatalf("Burst spawned %d, want 6", n)
	}
	tmpl.Layer = "b"
	tmpl.Life = 2
	if n := f.Burst(rng, 10, 10, 6, 100, tmpl); n != 4 {
		t.Fatalf("Burst at cap spawned %d, want 4", n)
	}

	for range 40 {
		f.Step(testDT)
	}
	if f.Count() != 4 {
		t.Errorf("Count = %d after layer a expired, want 4", f.Count())
	}

	f.Each(func(pos *components.Position, frag *components.Fragment) {
		if frag.Layer != "b" {
			t.Errorf("unexpected survivor from layer %q", frag.Layer)
		}
		if pos.X == 10 && pos.Y == 10 {
			t.Error("fragment did not move")
		}
	})

	f.RemoveLayer("b")
	if f.Count() != 0 {
		t.Errorf("Count = %d after RemoveLayer, want 0", f.Count())
	}
}

func TestMaskViewTransform(t *testing.T) {
	m := solidMask(64, 64, false)
	l := config.NewLayer("mask", config.TypeSand, 1, config.KindForeground)

	v := NewMaskView(m, &l, 512, 512, 64, 64)
	if !v.Solid(100, 256) || v.Solid(400, 256) {
		t.Fatal("left half should be solid")
	}

	// Rotating 180 degrees moves the solid half to the right
	l.MaskTransform.Rotation = 180
	v = NewMaskView(m, &l, 512, 512, 64, 64)
	if v.Solid(100, 256) || !v.Solid(400, 256) {
		t.Error("rotation did not flip the mask")
	}

	l.MaskTransform.Rotation = 0
	l.MaskInvert = false
	v = NewMaskView(m, &l, 512, 512, 64, 64)
	if v.Solid(100, 256) || !v.Solid(400, 256) {
		t.Error("disabling invert should make white solid")
	}

	// Shrunk mask leaves the corners outside the image
	l.MaskInvert = true
	l.MaskTransform.Scale = 0.5
	v = NewMaskView(m, &l, 512, 512, 64, 64)
	if v.Value(10, 10) != 0 {
		t.Error("outside the placed image should read as empty")
	}
	if !v.Matches(m, &l, 512, 512) {
		t.Error("view should match the parameters it was built from")
	}
	l.MaskThreshold = 0.9
	if v.Matches(m, &l, 512, 512) {
		t.Error("threshold change should invalidate the view")
	}
}

func TestMaskNormalPointsOutward(t *testing.T) {
	l := config.NewLayer("mask", config.TypeSand, 1, config.KindForeground)
	v := NewMaskView(solidMask(64, 64, false), &l, 512, 512, 64, 64)
	nx, ny, ok := v.Normal(252, 256)
	if !ok || nx <= 0.9 || math.Abs(float64(ny)) > 0.1 {
		t.Errorf("Normal = (%v,%v,%v), want (+1,0)", nx, ny, ok)
	}
}

func TestLoadMaskDataURI(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	m, err := LoadMask(context.Background(), uri)
	if err != nil {
		t.Fatalf("LoadMask: %v", err)
	}
	if m.W != 4 || m.H != 2 {
		t.Errorf("size = %dx%d, want 4x2", m.W, m.H)
	}
	if m.RGB[0] != 255 || m.RGB[1] != 0 {
		t.Errorf("first pixel = %v, want red", m.RGB[:3])
	}
	// Transparent pixels composite onto white
	if m.Lum[1] < 0.99 {
		t.Errorf("transparent pixel luminance = %v, want 1", m.Lum[1])
	}

	if _, err := LoadMask(context.Background(), ""); err == nil {
		t.Error("expected error for empty url")
	}
	if _, err := LoadMask(context.Background(), "data:text/plain,hello"); err == nil {
		t.Error("expected error for non-base64 data uri")
	}
}

func TestMaterialResolve(t *testing.T) {
	palette := config.Cfg().Materials
	table := NewMaterialTable(config.MaterialPalette, palette)

	m, ok := table.Resolve(250, 60, 60)
	if !ok || m.ID != "gel" {
		t.Errorf("reddish pixel resolved to %q, want gel", m.ID)
	}
	m, _ = table.Resolve(70, 130, 250)
	if m.ID != "liquid" {
		t.Errorf("bluish pixel resolved to %q, want liquid", m.ID)
	}

	rgb := NewMaterialTable(config.MaterialRGBParams, palette)
	m, ok = rgb.Resolve(255, 0, 51)
	if !ok || m.Response.Deflect != 1 || m.Response.Stick != 0 || math.Abs(m.Response.PassThrough-0.2) > 1e-9 {
		t.Errorf("rgb response = %+v", m.Response)
	}

	if _, ok := NewMaterialTable(config.MaterialBinary, palette).Resolve(0, 0, 0); ok {
		t.Error("binary mode should not resolve a material")
	}
}

func TestDepthScale(t *testing.T) {
	p := config.DepthParams{
		DepthEnabled:       true,
		DepthScale:         1,
		GroundPlaneEnabled: true,
		GroundPlaneTilt:    45,
		GroundPlaneY:       0.5,
	}
	d := NewDepthField(p, nil, 100)

	if got := d.At(0, 50); math.Abs(float64(got)-0.5) > 1e-5 {
		t.Errorf("depth at ground line = %v, want 0.5", got)
	}
	near, _ := d.ScaleAt(0, 90)
	far, farOpacity := d.ScaleAt(0, 10)
	if near <= far {
		t.Errorf("near size %v should exceed far size %v", near, far)
	}
	if farOpacity < 0.05 || farOpacity > 1 {
		t.Errorf("opacity %v outside [0.05,1]", farOpacity)
	}

	p.DepthEnabled = false
	if s, o := NewDepthField(p, nil, 100).ScaleAt(0, 90); s != 1 || o != 1 {
		t.Errorf("disabled depth scaled to (%v,%v)", s, o)
	}
}
