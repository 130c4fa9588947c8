package systems

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/pthm-cable/particles/config"
)

// solidMask returns a mask whose left half is black. With the default
// invert setting black reads as solid.
func solidMask(w, h int, full bool) *Mask {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if full || x < w/2 {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return NewMaskFromImage(img, MaxMaskSide)
}

func TestSandScenario(t *testing.T) {
	env := newTestEnv(1024, 768)
	l := config.NewLayer("sand", config.TypeSand, 100, config.KindForeground)
	l.Spawn.Region = config.RegionTopEdge
	l.BoundaryMode = config.BoundaryBounce
	l.Gravity = 0.02
	ls := NewLayerState(l, env, nil)
	sim := NewSimulator(config.Cfg())

	for range 300 {
		env.Flow.Step(testDT)
		sim.Step(ls, env, testDT)
		env.Time += float64(testDT)
	}

	b := ls.Buf
	if b.Len() != 100 {
		t.Fatalf("Len = %d, want 100", b.Len())
	}
	for i := range b.X {
		if math.IsNaN(float64(b.X[i])) || math.IsNaN(float64(b.Y[i])) {
			t.Fatalf("particle %d has NaN position", i)
		}
		if b.Y[i] < 0 || b.Y[i] > env.H {
			t.Fatalf("particle %d at y=%v outside [0,%v]", i, b.Y[i], env.H)
		}
	}
}

func TestAccumulateMonotonic(t *testing.T) {
	env := newTestEnv(512, 512)
	l := config.NewLayer("liquid", config.TypeLiquid, 400, config.KindForeground)
	l.MaskMode = config.MaskAccumulate
	l.DecayRate = 0
	l.Spawn.Region = config.RegionRandom
	view := NewMaskView(solidMask(64, 64, true), &l, env.W, env.H, 64, 64)
	ls := NewLayerState(l, env, view)
	sim := NewSimulator(config.Cfg())

	prev := make([]float32, len(ls.Surface.Deposit.Data))
	for step := range 240 {
		sim.Step(ls, env, testDT)
		for c, v := range ls.Surface.Deposit.Data {
			if v < prev[c] {
				t.Fatalf("step %d: cell %d decreased %v -> %v", step, c, prev[c], v)
			}
		}
		copy(prev, ls.Surface.Deposit.Data)
	}
	if ls.Surface.Deposit.Total() <= 0 {
		t.Error("no deposit accumulated")
	}
	if ls.Buf.StuckCount() == 0 {
		t.Error("no particle stuck to the mask")
	}
}

func TestAccumulateDecays(t *testing.T) {
	env := newTestEnv(512, 512)
	l := config.NewLayer("decay", config.TypeLiquid, 1, config.KindForeground)
	l.DecayRate = 0.5
	ls := NewLayerState(l, env, nil)
	ls.Surface.Deposit.Splat(256, 256, 1)

	sim := NewSimulator(config.Cfg())
	for range 60 {
		sim.Step(ls, env, testDT)
	}
	got := float64(ls.Surface.Deposit.Total())
	want := math.Exp(-0.5)
	if math.Abs(got-want) > 1e-3 {
		t.Errorf("deposit after 1s = %v, want %v", got, want)
	}
}

func TestStuckRelease(t *testing.T) {
	env := newTestEnv(512, 512)
	l := quietLayer(config.BoundaryBounce)
	l.AccumulationTime = 0.5
	ls := NewLayerState(l, env, nil)
	b := ls.Buf
	stick(b, 0)
	b.Age[0] = 1

	sim := NewSimulator(config.Cfg())
	for range 20 {
		sim.Step(ls, env, testDT)
	}
	if !b.Stuck[0] {
		t.Fatal("released before accumulationTime")
	}
	for range 20 {
		sim.Step(ls, env, testDT)
	}
	if b.Stuck[0] {
		t.Error("still stuck after accumulationTime")
	}
}

func TestMaskCollisionReflects(t *testing.T) {
	env := newTestEnv(512, 512)
	l := quietLayer(config.BoundaryBounce)
	l.MaskMode = config.MaskCollision
	l.BoundaryBounce = 1
	view := NewMaskView(solidMask(64, 64, false), &l, env.W, env.H, 64, 64)
	ls := NewLayerState(l, env, view)
	b := ls.Buf

	// Moving left into the solid left half
	b.X[0], b.Y[0] = 262, 256
	b.VX[0], b.VY[0] = -600, 0

	NewSimulator(config.Cfg()).Step(ls, env, testDT)

	if b.X[0] != 262 {
		t.Errorf("x = %v, want restored to 262", b.X[0])
	}
	if b.VX[0] <= 0 {
		t.Errorf("vx = %v, want reflected to positive", b.VX[0])
	}
}

func TestMaskIgnoreWithoutView(t *testing.T) {
	env := newTestEnv(512, 512)
	l := quietLayer(config.BoundaryBounce)
	l.MaskMode = config.MaskCollision
	ls := NewLayerState(l, env, nil)
	b := ls.Buf
	b.X[0], b.Y[0] = 262, 256
	b.VX[0], b.VY[0] = -600, 0

	NewSimulator(config.Cfg()).Step(ls, env, testDT)
	if b.X[0] >= 262 {
		t.Errorf("x = %v, particle should pass freely while no mask is loaded", b.X[0])
	}
}

func TestNonFiniteStateIsReseeded(t *testing.T) {
	env := newTestEnv(512, 512)
	ls := NewLayerState(quietLayer(config.BoundaryBounce), env, nil)
	b := ls.Buf
	b.VX[0] = float32(math.NaN())
	b.Age[0] = 4

	NewSimulator(config.Cfg()).Step(ls, env, testDT)
	if !finite(b.X[0]) || !finite(b.VX[0]) {
		t.Fatalf("NaN survived the step: x=%v vx=%v", b.X[0], b.VX[0])
	}
	if b.Age[0] != 0 {
		t.Errorf("age = %v, want re-seeded", b.Age[0])
	}
}

func TestPatternsStayFinite(t *testing.T) {
	patterns := []config.MovementPattern{
		config.PatternStill, config.PatternLinear, config.PatternOrbit, config.PatternSpiral,
		config.PatternWave, config.PatternVortex, config.PatternBrownian, config.PatternFigure8,
		config.PatternFollowCurl, config.PatternEvade, config.PatternClusters,
		config.PatternRadialOut, config.PatternRadialIn,
	}
	for _, p := range patterns {
		t.Run(string(p), func(t *testing.T) {
			env := newTestEnv(512, 512)
			l := config.NewLayer("pattern", config.TypeDust, 300, config.KindForeground)
			l.Movement.Pattern = p
			l.Movement.Speed = 1
			l.BoundaryMode = config.BoundaryWrap
			ls := NewLayerState(l, env, nil)
			sim := NewSimulator(config.Cfg())
			for range 120 {
				env.Flow.Step(testDT)
				sim.Step(ls, env, testDT)
				env.Time += float64(testDT)
			}
			b := ls.Buf
			for i := range b.X {
				if !finite(b.X[i]) || !finite(b.Y[i]) {
					t.Fatalf("particle %d non-finite", i)
				}
				if b.X[i] < 0 || b.X[i] >= env.W || b.Y[i] < 0 || b.Y[i] >= env.H {
					t.Fatalf("particle %d at (%v,%v) escaped the wrap", i, b.X[i], b.Y[i])
				}
			}
		})
	}
}

func TestLinearPatternOverridesVelocity(t *testing.T) {
	env := newTestEnv(512, 512)
	l := quietLayer(config.BoundaryWrap)
	l.Movement.Pattern = config.PatternLinear
	l.Movement.Direction = 0
	l.Movement.Speed = 0.5
	ls := NewLayerState(l, env, nil)
	b := ls.Buf
	b.X[0], b.Y[0] = 100, 100
	b.VX[0], b.VY[0] = -500, 300

	NewSimulator(config.Cfg()).Step(ls, env, testDT)

	want := float32(0.5 * config.Cfg().Engine.PatternScale)
	if math.Abs(float64(b.VX[0]-want)) > 1e-3 || math.Abs(float64(b.VY[0])) > 1e-3 {
		t.Errorf("velocity = (%v,%v), want (%v,0)", b.VX[0], b.VY[0], want)
	}
}

func TestAttractForceTypes(t *testing.T) {
	sim := NewSimulator(config.Cfg())
	tune := config.Cfg().Engine
	const minDim = 512
	d := 156.0 / minDim
	mag := func(falloff float64) float64 {
		return 0.5 * tune.AttractScale / math.Pow(d+tune.AttractEpsilon, falloff)
	}
	sin60, cos60 := math.Sincos(math.Pi / 3)

	tests := []struct {
		name  string
		typ   config.AttractionType
		phase float32
		t     float64
		wantX float64
		wantY float64
	}{
		{"direct", config.AttractDirect, 0, 0, mag(1), 0},
		{"spiral", config.AttractSpiral, 0, 0, mag(1) * cos60, mag(1) * sin60},
		{"blackhole", config.AttractBlackhole, 0, 0, mag(2), 0},
		{"pulsing peak", config.AttractPulsing, 0, 0.25, mag(1), 0},
		{"pulsing trough", config.AttractPulsing, 0, 0.75, -mag(1), 0},
		{"magnetic attract", config.AttractMagnetic, 0.2, 0, mag(1), 0},
		{"magnetic repel", config.AttractMagnetic, 0.7, 0, -mag(1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx, fy, gotD := sim.attractForce(100, 256, 256, 256, 0.5, 1, tt.typ, tt.phase, tt.t, minDim)
			tol := 1e-3 * mag(2)
			if math.Abs(float64(fx)-tt.wantX) > tol || math.Abs(float64(fy)-tt.wantY) > tol {
				t.Errorf("force = (%v, %v), want (%v, %v)", fx, fy, tt.wantX, tt.wantY)
			}
			if math.Abs(float64(gotD)-d) > 1e-6 {
				t.Errorf("distance = %v, want %v", gotD, d)
			}
		})
	}

	if fx, fy, _ := sim.attractForce(256, 256, 256, 256, 1, 2, config.AttractBlackhole, 0, 0, minDim); fx != 0 || fy != 0 {
		t.Errorf("coincident point force = (%v, %v), want zero", fx, fy)
	}
}

// captureLayer returns a still particle 2px right of a centered
// attraction point with the given effect.
func captureLayer(effect config.AttractionEffect, strength float64) config.LayerConfig {
	l := quietLayer(config.BoundaryBounce)
	l.Spawn.Region = config.RegionTopEdge
	l.Spawn.EdgeOffset = 0
	l.AttractionPoints = []config.AttractionPoint{{
		ID: "p", X: 0.5, Y: 0.5, Strength: strength, Falloff: 1,
		Type: config.AttractDirect, Effect: effect,
	}}
	return l
}

func TestCaptureEffects(t *testing.T) {
	const px, py = 256, 256
	tests := []struct {
		name     string
		effect   config.AttractionEffect
		strength float64
		check    func(t *testing.T, b *ParticleBuffer)
	}{
		{"none", config.EffectNone, 0, func(t *testing.T, b *ParticleBuffer) {
			if b.Captured[0] != NoCapture {
				t.Errorf("captured = %d, want none", b.Captured[0])
			}
		}},
		{"despawn", config.EffectDespawn, 0, func(t *testing.T, b *ParticleBuffer) {
			if math.Abs(float64(b.Y[0])-py) < 100 {
				t.Errorf("particle at y=%v, want re-seeded on the top edge", b.Y[0])
			}
		}},
		{"orbit", config.EffectOrbit, 0.5, func(t *testing.T, b *ParticleBuffer) {
			rx, ry := float64(b.X[0]-px), float64(b.Y[0]-py)
			vx, vy := float64(b.VX[0]), float64(b.VY[0])
			speed := math.Hypot(vx, vy)
			if speed == 0 {
				t.Fatal("orbiting particle has no velocity")
			}
			if cos := (rx*vx + ry*vy) / (math.Hypot(rx, ry) * speed); math.Abs(cos) > 1e-3 {
				t.Errorf("velocity not tangent to the point, cos = %v", cos)
			}
		}},
		{"concentrate", config.EffectConcentrate, 0, func(t *testing.T, b *ParticleBuffer) {
			got := math.Hypot(float64(b.X[0]-px), float64(b.Y[0]-py))
			want := 2 * (1 - 5*float64(testDT))
			if math.Abs(got-want) > 1e-3 {
				t.Errorf("distance = %v, want %v", got, want)
			}
		}},
		{"transform", config.EffectTransform, 0, func(t *testing.T, b *ParticleBuffer) {
			if !b.Transformed[0] {
				t.Error("particle not transformed")
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(512, 512)
			ls := NewLayerState(captureLayer(tt.effect, tt.strength), env, nil)
			b := ls.Buf
			b.X[0], b.Y[0] = px+2, py
			b.VX[0], b.VY[0] = 0, 0

			NewSimulator(config.Cfg()).Step(ls, env, testDT)

			if tt.effect != config.EffectNone && tt.effect != config.EffectDespawn && b.Captured[0] != 0 {
				t.Errorf("captured = %d, want 0", b.Captured[0])
			}
			tt.check(t, b)
		})
	}
}

func TestPassToNextChain(t *testing.T) {
	env := newTestEnv(512, 512)
	l := quietLayer(config.BoundaryBounce)
	l.AttractionPoints = []config.AttractionPoint{
		{ID: "a", X: 0.25, Y: 0.5, Falloff: 1, Type: config.AttractDirect, Effect: config.EffectPassToNext},
		{ID: "mid", X: 0.5, Y: 0.9, Falloff: 1, Type: config.AttractDirect, Effect: config.EffectNone},
		{ID: "b", X: 0.75, Y: 0.5, Falloff: 1, Type: config.AttractDirect, Effect: config.EffectPassToNext},
	}
	ls := NewLayerState(l, env, nil)
	b := ls.Buf
	sim := NewSimulator(config.Cfg())

	steps := []struct {
		x, y       float32
		wantTarget uint8
		wantCap    int8
	}{
		{128, 256, 1, 0},         // captured by a, moves on to b
		{128, 256, 1, NoCapture}, // a is no longer the active link
		{384, 256, 0, 2},         // captured by b, wraps back to a
	}
	for n, st := range steps {
		b.X[0], b.Y[0] = st.x, st.y
		b.VX[0], b.VY[0] = 0, 0
		sim.Step(ls, env, testDT)
		if b.Target[0] != st.wantTarget || b.Captured[0] != st.wantCap {
			t.Errorf("step %d: target=%d captured=%d, want target=%d captured=%d",
				n, b.Target[0], b.Captured[0], st.wantTarget, st.wantCap)
		}
	}
}

// materialLayer returns n still particles over a fully solid mask whose
// contacts resolve to a single material.
func materialLayer(n int, m config.MaterialPreset) config.LayerConfig {
	l := quietLayer(config.BoundaryBounce)
	l.ParticleCount = n
	l.Spawn.Region = config.RegionRandom
	l.MaskMode = config.MaskCollision
	l.MaskInvert = true
	l.MaskThreshold = 0.5
	l.MaterialMode = config.MaterialPalette
	l.MaterialPalette = []config.MaterialPreset{m}
	l.AccumulationRate = 1
	l.SurfaceParams.SurfaceFieldsEnabled = true
	l.SurfaceParams.SmearFieldEnabled = true
	l.SurfaceParams.DentFieldEnabled = true
	return l
}

func TestMaterialContactWeights(t *testing.T) {
	const n = 200
	tests := []struct {
		name  string
		resp  config.MaterialResponse
		frags int
		check func(t *testing.T, ls *LayerState, env *Env)
	}{
		{"stick", config.MaterialResponse{Stick: 1}, 0, func(t *testing.T, ls *LayerState, env *Env) {
			if got := ls.Buf.StuckCount(); got < n*9/10 {
				t.Errorf("stuck = %d, want nearly all of %d", got, n)
			}
			if ls.Surface.Deposit.Total() <= 0 {
				t.Error("sticking laid down no deposit")
			}
		}},
		{"pass through", config.MaterialResponse{PassThrough: 1, Stick: 1}, 3, func(t *testing.T, ls *LayerState, env *Env) {
			if got := ls.Buf.StuckCount(); got != 0 {
				t.Errorf("stuck = %d, want 0", got)
			}
			if got := env.Fragments.Count(); got != 0 {
				t.Errorf("fragments = %d, want 0", got)
			}
		}},
		{"fragment", config.MaterialResponse{Fragment: 1}, 3, func(t *testing.T, ls *LayerState, env *Env) {
			got := env.Fragments.Count()
			if got < 3*n*9/10 || got%3 != 0 {
				t.Errorf("fragments = %d, want three per contact", got)
			}
			if ls.Buf.StuckCount() != 0 {
				t.Error("fragmented particles should be re-seeded, not stuck")
			}
		}},
		{"fragment without count", config.MaterialResponse{Fragment: 1}, 0, func(t *testing.T, ls *LayerState, env *Env) {
			if got := env.Fragments.Count(); got != 0 {
				t.Errorf("fragments = %d, want 0", got)
			}
		}},
		{"deflect", config.MaterialResponse{Deflect: 1}, 0, func(t *testing.T, ls *LayerState, env *Env) {
			if ls.Buf.StuckCount() != 0 || env.Fragments.Count() != 0 {
				t.Error("deflect should neither stick nor fragment")
			}
		}},
		{"glow", config.MaterialResponse{Glow: 0.8}, 0, func(t *testing.T, ls *LayerState, env *Env) {
			lit := 0
			for _, g := range ls.Buf.Glow {
				if math.Abs(float64(g)-0.8) < 1e-6 {
					lit++
				}
			}
			if lit < n*9/10 {
				t.Errorf("glowing = %d, want nearly all of %d", lit, n)
			}
		}},
		{"deposits", config.MaterialResponse{DepositSmear: 1, DepositDent: 1}, 0, func(t *testing.T, ls *LayerState, env *Env) {
			if ls.Surface.Smear.Total() <= 0 {
				t.Error("no smear deposited")
			}
			if ls.Surface.Dent.Total() <= 0 {
				t.Error("no dent deposited")
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(512, 512)
			m := config.MaterialPreset{ID: "test", Color: "#000000", Response: tt.resp, FragmentCount: tt.frags}
			l := materialLayer(n, m)
			view := NewMaskView(solidMask(64, 64, true), &l, env.W, env.H, 64, 64)
			ls := NewLayerState(l, env, view)
			for i := range ls.Buf.X {
				ls.Buf.VX[i], ls.Buf.VY[i] = 0, 0
			}
			NewSimulator(config.Cfg()).Step(ls, env, testDT)
			tt.check(t, ls, env)
		})
	}
}

// colorMask returns a uniformly colored mask.
func colorMask(c color.RGBA) *Mask {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return NewMaskFromImage(img, MaxMaskSide)
}

func TestRGBParamsContact(t *testing.T) {
	const n = 200
	tests := []struct {
		name      string
		c         color.RGBA
		wantStuck bool
	}{
		{"green sticks", color.RGBA{G: 255, A: 255}, true},
		{"blue passes", color.RGBA{B: 255, A: 255}, false},
		{"red deflects", color.RGBA{R: 255, A: 255}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(512, 512)
			l := materialLayer(n, config.MaterialPreset{ID: "base", Color: "#ffffff"})
			l.MaterialMode = config.MaterialRGBParams
			l.MaskThreshold = 0.1
			view := NewMaskView(colorMask(tt.c), &l, env.W, env.H, 16, 16)
			ls := NewLayerState(l, env, view)
			for i := range ls.Buf.X {
				ls.Buf.VX[i], ls.Buf.VY[i] = 0, 0
			}
			NewSimulator(config.Cfg()).Step(ls, env, testDT)

			stuck := ls.Buf.StuckCount()
			if tt.wantStuck && stuck < n*9/10 {
				t.Errorf("stuck = %d, want nearly all of %d", stuck, n)
			}
			if !tt.wantStuck && stuck != 0 {
				t.Errorf("stuck = %d, want 0", stuck)
			}
		})
	}
}
