package systems

import (
	"github.com/pthm-cable/particles/components"
	"github.com/pthm-cable/particles/config"
)

// boundary applies the canvas edge rule to particle i. It returns false
// when the particle was re-seeded or destroyed.
func (s *Simulator) boundary(ls *LayerState, env *Env, i int) bool {
	b := ls.Buf
	l := &ls.Config

	switch l.BoundaryMode {
	case config.BoundaryBounce:
		bounce := float32(l.BoundaryBounce)
		bounceAxis(&b.X[i], &b.VX[i], env.W, bounce)
		bounceAxis(&b.Y[i], &b.VY[i], env.H, bounce)

	case config.BoundaryWrap:
		x, y := wrapPos(b.X[i], env.W), wrapPos(b.Y[i], env.H)
		if x != b.X[i] || y != b.Y[i] {
			// No trail across the seam
			b.PrevX[i], b.PrevY[i] = x, y
		}
		b.X[i], b.Y[i] = x, y

	case config.BoundaryRespawn, config.BoundaryDestroy:
		m := float32(s.cfg.Engine.RespawnMargin)
		if leaving(b.X[i], b.VX[i], env.W, m) || leaving(b.Y[i], b.VY[i], env.H, m) {
			if l.BoundaryMode == config.BoundaryRespawn {
				ls.spawner.Seed(b, i)
			} else {
				b.Alive[i] = false
			}
			return false
		}
	}
	return true
}

// bounceAxis reflects one axis off [0, size], scaling the outgoing speed.
func bounceAxis(p, v *float32, size, bounce float32) {
	if *p < 0 {
		*p = 0
		*v = -*v * bounce
	} else if *p > size {
		*p = size
		*v = -*v * bounce
	}
}

// leaving reports whether a coordinate is past the margin and not heading
// back, so off-canvas spawns can drift in.
func leaving(p, v, size, margin float32) bool {
	return (p < -margin && v <= 0) || (p > size+margin && v >= 0)
}

// maskContact resolves contact between particle i and the layer's mask.
func (s *Simulator) maskContact(ls *LayerState, env *Env, mask *MaskView, i int) {
	b := ls.Buf
	if !mask.Solid(b.X[i], b.Y[i]) {
		return
	}
	if ls.Config.MaterialMode != config.MaterialBinary {
		if m, ok := ls.Materials.Resolve(mask.Color(b.X[i], b.Y[i])); ok {
			s.materialContact(ls, env, mask, &m, i)
			return
		}
	}
	s.maskDefault(ls, env, mask, i)
}

// maskDefault applies the layer's mask mode when no material overrides it.
func (s *Simulator) maskDefault(ls *LayerState, env *Env, mask *MaskView, i int) {
	switch ls.Config.MaskMode {
	case config.MaskCollision:
		s.reflect(ls, mask, i)
	case config.MaskAccumulate:
		s.accumulate(ls, env, i)
	}
}

// reflect bounces particle i off the mask surface and moves it back to
// where it was before entering. A particle already inside is left to escape.
func (s *Simulator) reflect(ls *LayerState, mask *MaskView, i int) {
	b := ls.Buf
	if mask.Solid(b.PrevX[i], b.PrevY[i]) {
		return
	}
	nx, ny, ok := mask.Normal(b.X[i], b.Y[i])
	if !ok {
		nx, ny, ok = mask.Normal(b.PrevX[i], b.PrevY[i])
	}
	vx, vy := b.VX[i], b.VY[i]
	bounce := float32(ls.Config.BoundaryBounce)
	if ok {
		if dot := vx*nx + vy*ny; dot < 0 {
			vx -= (1 + bounce) * dot * nx
			vy -= (1 + bounce) * dot * ny
		}
	} else {
		vx, vy = -vx*bounce, -vy*bounce
	}
	b.VX[i], b.VY[i] = vx, vy
	b.X[i], b.Y[i] = b.PrevX[i], b.PrevY[i]
}

// accumulate deposits mass where particle i touches the mask, slows it by
// the layer stickiness and may stick it in place.
func (s *Simulator) accumulate(ls *LayerState, env *Env, i int) {
	b := ls.Buf
	l := &ls.Config
	if amt := float32(l.AccumulationRate * s.cfg.Surface.DepositAmount); amt > 0 {
		ls.Surface.Deposit.Splat(b.X[i], b.Y[i], amt)
		b.Deposit[i] += amt
	}
	keep := 1 - float32(l.MaskStickiness)
	b.VX[i] *= keep
	b.VY[i] *= keep
	if env.Rng.Float64() < l.MaskStickiness {
		stick(b, i)
	}
}

func stick(b *ParticleBuffer, i int) {
	b.Stuck[i] = true
	b.StuckTime[i] = 0
	b.VX[i], b.VY[i] = 0, 0
}

// materialContact distributes a material's response weights over one
// contact. Each weight gates its outcome independently.
func (s *Simulator) materialContact(ls *LayerState, env *Env, mask *MaskView, m *config.MaterialPreset, i int) {
	b := ls.Buf
	r := &m.Response
	rng := env.Rng
	x, y := b.X[i], b.Y[i]

	if r.Glow > 0 {
		b.Glow[i] = max(b.Glow[i], float32(r.Glow))
	}
	amt := float32(s.cfg.Surface.DepositAmount)
	ls.Surface.Feed(&ls.Config.SurfaceParams, x, y,
		float32(r.DepositSmear)*amt, float32(r.DepositRipple)*amt, float32(r.DepositDent)*amt)

	switch {
	case rng.Float64() < r.PassThrough:
		return
	case m.FragmentCount > 0 && rng.Float64() < r.Fragment:
		s.fragment(ls, env, mask, m, i)
		ls.spawner.Seed(b, i)
	case rng.Float64() < r.Stick:
		if a := float32(ls.Config.AccumulationRate) * amt; a > 0 {
			ls.Surface.Deposit.Splat(x, y, a)
			b.Deposit[i] += a
		}
		stick(b, i)
	case rng.Float64() < r.Deflect:
		s.reflect(ls, mask, i)
	default:
		s.maskDefault(ls, env, mask, i)
	}
}

// fragment breaks particle i into short-lived children colored by the mask.
func (s *Simulator) fragment(ls *LayerState, env *Env, mask *MaskView, m *config.MaterialPreset, i int) {
	if env.Fragments == nil {
		return
	}
	b := ls.Buf
	l := &ls.Config
	life := float32(m.FragmentLifespan)
	if life <= 0 {
		life = 0.3
	}
	cr, cg, cb := mask.Color(b.X[i], b.Y[i])
	tmpl := components.Fragment{
		Layer:   l.ID,
		Life:    life,
		Gravity: float32(l.Gravity * s.cfg.Engine.GravityScale),
		Drag:    float32(m.DecayRate) * 0.1,
		Size:    float32(l.PointSize * s.cfg.Render.FragmentSize),
		R:       cr,
		G:       cg,
		B:       cb,
	}
	env.Fragments.Burst(env.Rng, b.X[i], b.Y[i], m.FragmentCount, float32(s.cfg.Engine.FragmentSpeed), tmpl)
}
