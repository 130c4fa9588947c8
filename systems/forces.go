package systems

import (
	"math"

	"github.com/pthm-cable/particles/config"
)

// Spiral attractors pull at this angle off the radial direction.
const spiralAttractAngle = math.Pi / 3

// glowDecayRate is how fast material glow fades, per second.
const glowDecayRate = 2

// tickForces holds the per-layer terms that are constant over one tick.
type tickForces struct {
	ax, ay    float32 // gravity plus wind
	curl      float32
	jitter    float32
	speed     float32 // position integration multiplier
	drag      float32 // velocity multiplier
	maxSpeed  float32
	minDim    float32
	glowDecay float32
	magnetism float32
}

func (s *Simulator) tickForces(l *config.LayerConfig, env *Env, dt float32) tickForces {
	tune := &s.cfg.Engine
	f := tickForces{
		ay:        float32(l.Gravity * tune.GravityScale),
		curl:      float32(l.Curl * tune.CurlScale),
		jitter:    float32(l.Jitter * tune.JitterScale),
		speed:     float32(l.Speed*tune.SpeedScale) * env.speedMul(),
		drag:      dragFactor(l.Drag, tune.DragMode, float64(dt), tune.RefDT),
		maxSpeed:  float32(tune.MaxSpeed),
		minDim:    min(env.W, env.H),
		glowDecay: decayFactor(glowDecayRate, dt),
	}
	if l.WindStrength != 0 {
		sin, cos := sincos(l.WindAngle)
		wind := float32(l.WindStrength * tune.WindScale)
		f.ax += cos * wind
		f.ay += sin * wind
	}
	if l.MaskMagnetism != 0 {
		f.magnetism = float32(l.MaskMagnetism*l.MaskMagnetismRadius*s.cfg.Surface.MagnetismScale) * f.minDim
	}
	return f
}

// dragFactor returns the velocity multiplier for one tick. per_tick applies
// the raw factor regardless of dt; scaled normalizes it to the reference tick.
func dragFactor(drag float64, mode config.DragMode, dt, refDT float64) float32 {
	if mode == config.DragScaled && refDT > 0 {
		return float32(math.Pow(1-drag, dt/refDT))
	}
	return float32(1 - drag)
}

// attractForce returns the acceleration a point at (px, py) exerts on a
// particle at (x, y), and the distance between them normalized by minDim.
func (s *Simulator) attractForce(x, y, px, py, strength, falloff float32, typ config.AttractionType, phase float32, t float64, minDim float32) (fx, fy, d float32) {
	dx, dy := px-x, py-y
	dist := velocityMagnitude(dx, dy)
	d = dist / minDim
	if dist < 1e-4 {
		return 0, 0, d
	}
	nx, ny := dx/dist, dy/dist

	switch typ {
	case config.AttractSpiral:
		sin, cos := math.Sincos(spiralAttractAngle)
		nx, ny = nx*float32(cos)-ny*float32(sin), nx*float32(sin)+ny*float32(cos)
	case config.AttractBlackhole:
		falloff++
	case config.AttractPulsing:
		strength *= float32(math.Sin(2 * math.Pi * t))
	case config.AttractMagnetic:
		if phase >= 0.5 {
			strength = -strength
		}
	}

	tune := &s.cfg.Engine
	denom := math.Pow(float64(d)+tune.AttractEpsilon, float64(falloff))
	mag := strength * float32(tune.AttractScale/denom)
	return nx * mag, ny * mag, d
}

// attraction adds every attraction force on particle i to (ax, ay) and
// returns the point that captured it, or NoCapture.
func (s *Simulator) attraction(ls *LayerState, env *Env, f *tickForces, i int, ax, ay *float32) int {
	l := &ls.Config
	b := ls.Buf
	x, y := b.X[i], b.Y[i]

	if l.Attract != 0 {
		px := float32(l.AttractPoint.X) * env.W
		py := float32(l.AttractPoint.Y) * env.H
		falloff := float32(l.AttractFalloff)
		if falloff == 0 {
			falloff = 1
		}
		fx, fy, _ := s.attractForce(x, y, px, py, float32(l.Attract), falloff, config.AttractDirect, 0, env.Time, f.minDim)
		*ax += fx
		*ay += fy
	}

	// Only the current link of the passToNext chain pulls on a particle
	target := -1
	if n := len(ls.chain); n > 0 {
		target = ls.chain[int(b.Target[i])%n]
	}

	captured := NoCapture
	capture := float32(s.cfg.Engine.CaptureRadius)
	for k := range l.AttractionPoints {
		a := &l.AttractionPoints[k]
		if a.Effect == config.EffectPassToNext && k != target {
			continue
		}
		px := float32(a.X) * env.W
		py := float32(a.Y) * env.H
		fx, fy, d := s.attractForce(x, y, px, py, float32(a.Strength), float32(a.Falloff), a.Type, b.Phase[i], env.Time, f.minDim)
		*ax += fx
		*ay += fy
		if captured == NoCapture && a.Effect != config.EffectNone && d < capture {
			captured = k
		}
	}
	return captured
}

// capture applies the effect of attraction point k to particle i.
func (s *Simulator) capture(ls *LayerState, env *Env, i, k int, dt float32) {
	a := &ls.Config.AttractionPoints[k]
	b := ls.Buf
	px := float32(a.X) * env.W
	py := float32(a.Y) * env.H
	b.Captured[i] = int8(k)

	switch a.Effect {
	case config.EffectDespawn:
		ls.spawner.Seed(b, i)

	case config.EffectOrbit:
		rx, ry := b.X[i]-px, b.Y[i]-py
		r := max(velocityMagnitude(rx, ry), 1)
		speed := max(velocityMagnitude(b.VX[i], b.VY[i]), float32(math.Abs(a.Strength)*s.cfg.Engine.PatternScale))
		if a.Strength < 0 {
			speed = -speed
		}
		b.VX[i], b.VY[i] = -ry/r*speed, rx/r*speed

	case config.EffectConcentrate:
		pull := clamp01(5 * dt)
		b.X[i] += (px - b.X[i]) * pull
		b.Y[i] += (py - b.Y[i]) * pull
		b.VX[i] *= 0.5
		b.VY[i] *= 0.5

	case config.EffectTransform:
		b.Transformed[i] = true

	case config.EffectPassToNext:
		if n := len(ls.chain); n > 0 {
			b.Target[i] = uint8((int(b.Target[i]) + 1) % n)
		}
	}
}
