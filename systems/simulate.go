package systems

import (
	"math/rand"

	"github.com/pthm-cable/particles/config"
)

// Env is the state shared by every layer during one tick.
type Env struct {
	W, H      float32
	Time      float64 // simulated seconds since the last reset
	Flow      *FlowField
	Rng       *rand.Rand
	Fragments *Fragments
	Cfg       *config.Config // nil = config.Cfg()

	// SpeedMul scales position integration, 0 means 1.
	SpeedMul float32
}

func (e *Env) speedMul() float32 {
	if e.SpeedMul <= 0 {
		return 1
	}
	return e.SpeedMul
}

func (e *Env) config() *config.Config {
	if e.Cfg == nil {
		return config.Cfg()
	}
	return e.Cfg
}

// LayerState owns the simulation state of one layer.
type LayerState struct {
	Config    config.LayerConfig
	Buf       *ParticleBuffer
	Surface   *SurfaceFields
	Depth     *DepthField
	Mask      *MaskView // nil until the layer's mask has loaded
	Materials *MaterialTable

	spawner   *Spawner
	clusters  [NumClusters]clusterMean
	chain     []int // passToNext points in list order
	reviveAcc float32
}

// NewLayerState allocates and seeds a layer on env's canvas. mask may be nil.
func NewLayerState(l config.LayerConfig, env *Env, mask *MaskView) *LayerState {
	cfg := env.config()
	ls := &LayerState{
		Config:  l,
		Surface: NewSurfaceFields(cfg.Surface.GridW, cfg.Surface.GridH, env.W, env.H),
		spawner: &Spawner{W: env.W, H: env.H, Rng: env.Rng, Tune: &cfg.Engine},
	}
	ls.bind(mask)
	ls.Buf = NewParticleBuffer(ls.Config.ParticleCount, ls.spawner)
	return ls
}

// bind refreshes everything derived from Config and the mask.
func (ls *LayerState) bind(mask *MaskView) {
	ls.Mask = mask
	ls.spawner.Layer = &ls.Config
	ls.spawner.Mask = mask
	ls.Depth = NewDepthField(ls.Config.DepthParams, mask, ls.spawner.H)
	ls.Materials = NewMaterialTable(ls.Config.MaterialMode, ls.Config.MaterialPalette)
	ls.chain = ls.chain[:0]
	for k, a := range ls.Config.AttractionPoints {
		if a.Effect == config.EffectPassToNext {
			ls.chain = append(ls.chain, k)
		}
	}
}

// Update applies a new configuration. Live particles are kept; only a
// particle count change seeds new slots or truncates.
func (ls *LayerState) Update(l config.LayerConfig, mask *MaskView) {
	ls.Config = l
	ls.bind(mask)
	ls.Buf.Resize(l.ParticleCount, ls.spawner)
}

// SetMask binds a new mask view without touching the particles.
func (ls *LayerState) SetMask(mask *MaskView) {
	ls.bind(mask)
}

// Reset re-seeds every particle and clears the surface fields.
func (ls *LayerState) Reset() {
	ls.Buf.Reset(ls.spawner)
	ls.Surface.Clear()
	ls.reviveAcc = 0
}

// activeMask returns the mask used for contact, or nil.
func (ls *LayerState) activeMask() *MaskView {
	if ls.Config.MaskMode == config.MaskIgnore {
		return nil
	}
	return ls.Mask
}

// Simulator advances layers by explicit Euler steps.
type Simulator struct {
	cfg *config.Config
}

// NewSimulator creates a simulator using the engine constants in cfg.
func NewSimulator(cfg *config.Config) *Simulator {
	return &Simulator{cfg: cfg}
}

// Step advances one layer by dt seconds. dt is already clamped and scaled.
func (s *Simulator) Step(ls *LayerState, env *Env, dt float32) {
	if dt <= 0 || !ls.Config.Enabled {
		return
	}
	l := &ls.Config
	b := ls.Buf
	f := s.tickForces(l, env, dt)
	mask := ls.activeMask()
	if l.Movement.Pattern == config.PatternClusters {
		ls.updateClusters()
	}

	for i := range b.X {
		if !b.Alive[i] {
			continue
		}
		b.Age[i] += dt
		if b.Glow[i] > 0 {
			b.Glow[i] *= f.glowDecay
		}
		if b.Stuck[i] {
			b.StuckTime[i] += dt
			if l.AccumulationTime > 0 && b.StuckTime[i] > float32(l.AccumulationTime) {
				ls.spawner.Seed(b, i)
			}
			continue
		}

		if !s.integrate(ls, env, &f, mask, i, dt) {
			continue
		}
		if !s.boundary(ls, env, i) {
			continue
		}
		if mask != nil {
			s.maskContact(ls, env, mask, i)
		}
		if !finite(b.X[i]) || !finite(b.Y[i]) || !finite(b.VX[i]) || !finite(b.VY[i]) {
			ls.spawner.Seed(b, i)
		}
	}

	s.revive(ls, dt)
	ls.Surface.Step(&l.SurfaceParams, l.DecayRate, &s.cfg.Surface, dt, float32(s.cfg.Engine.RefDT))
}

// integrate accumulates forces on particle i in order (gravity, wind,
// attraction, pattern, curl, jitter), then applies drag and moves it.
// It returns false when a capture effect re-seeded the particle.
func (s *Simulator) integrate(ls *LayerState, env *Env, f *tickForces, mask *MaskView, i int, dt float32) bool {
	l := &ls.Config
	b := ls.Buf
	x, y := b.X[i], b.Y[i]
	vx, vy := b.VX[i], b.VY[i]
	b.PrevX[i], b.PrevY[i] = x, y

	ax, ay := f.ax, f.ay
	captured := s.attraction(ls, env, f, i, &ax, &ay)

	var pvx, pvy float32
	switch kind, px, py := s.pattern(ls, env, f, i); kind {
	case patternOverride:
		vx, vy = px, py
	case patternVelocity:
		pvx, pvy = px, py
	case patternForce:
		ax += px
		ay += py
	}

	if f.curl != 0 && env.Flow != nil {
		cx, cy := env.Flow.Sample(x, y)
		ax += cx * f.curl
		ay += cy * f.curl
	}
	if f.jitter != 0 {
		ax += (env.Rng.Float32() - 0.5) * f.jitter
		ay += (env.Rng.Float32() - 0.5) * f.jitter
	}
	if mask != nil && f.magnetism != 0 {
		gx, gy := mask.Pull(x, y)
		ax += gx * f.magnetism
		ay += gy * f.magnetism
	}
	sax, say, sdrag := ls.Surface.Feedback(&l.SurfaceParams, &s.cfg.Surface, x, y)
	ax += sax
	ay += say

	vx += ax * dt
	vy += ay * dt
	drag := f.drag * (1 - sdrag)
	vx *= drag
	vy *= drag
	if sp := velocityMagnitude(vx, vy); sp > f.maxSpeed {
		k := f.maxSpeed / sp
		vx *= k
		vy *= k
	}

	b.VX[i], b.VY[i] = vx, vy
	b.X[i] = x + (vx+pvx)*f.speed*dt
	b.Y[i] = y + (vy+pvy)*f.speed*dt

	if captured == NoCapture {
		b.Captured[i] = NoCapture
		return true
	}
	s.capture(ls, env, i, captured, dt)
	return l.AttractionPoints[captured].Effect != config.EffectDespawn
}

// revive re-seeds destroyed slots at spawnRate * count per second.
func (s *Simulator) revive(ls *LayerState, dt float32) {
	rate := ls.Config.SpawnRate
	if rate <= 0 || ls.Config.BoundaryMode != config.BoundaryDestroy {
		ls.reviveAcc = 0
		return
	}
	b := ls.Buf
	ls.reviveAcc += float32(rate) * float32(b.Len()) * dt
	n := int(ls.reviveAcc)
	if n == 0 {
		return
	}
	ls.reviveAcc -= float32(n)
	for i := range b.Alive {
		if n == 0 {
			return
		}
		if !b.Alive[i] {
			ls.spawner.Seed(b, i)
			n--
		}
	}
	// Nothing left to revive
	ls.reviveAcc = 0
}
