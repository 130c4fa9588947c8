package systems

import (
	"math"

	"github.com/pthm-cable/particles/config"
)

// patternKind says how a movement pattern's output combines with physics.
type patternKind uint8

const (
	patternNone     patternKind = iota
	patternOverride             // replaces the carried velocity
	patternVelocity             // added to the integrated velocity, not carried
	patternForce                // added to the acceleration
)

// pattern evaluates the layer's movement pattern for particle i.
func (s *Simulator) pattern(ls *LayerState, env *Env, f *tickForces, i int) (patternKind, float32, float32) {
	m := &ls.Config.Movement
	if m.Pattern == config.PatternStill || m.Pattern == "" {
		return patternNone, 0, 0
	}
	b := ls.Buf
	x, y := b.X[i], b.Y[i]
	scale := float32(m.Speed * s.cfg.Engine.PatternScale)

	cx := float32(m.CenterPoint.X) * env.W
	cy := float32(m.CenterPoint.Y) * env.H
	rx, ry := x-cx, y-cy
	r := velocityMagnitude(rx, ry)
	var ux, uy float32
	if r > 1e-3 {
		ux, uy = rx/r, ry/r
	}
	tx, ty := -uy, ux

	switch m.Pattern {
	case config.PatternLinear:
		sin, cos := sincos(m.Direction)
		return patternOverride, cos * scale, sin * scale

	case config.PatternFollowCurl:
		if env.Flow == nil {
			return patternNone, 0, 0
		}
		fx, fy := env.Flow.Sample(x, y)
		return patternOverride, fx * scale, fy * scale

	case config.PatternOrbit:
		// Tangential motion with a spring toward the orbit radius
		corr := (float32(m.OrbitRadius)*f.minDim - r) / f.minDim * 4
		return patternVelocity, (tx + ux*corr) * scale, (ty + uy*corr) * scale

	case config.PatternSpiral:
		k := float32(m.SpiralTightness)
		return patternVelocity, (tx - ux*k) * scale, (ty - uy*k) * scale

	case config.PatternWave:
		sin, cos := sincos(m.Direction)
		w := 2 * math.Pi * (m.WaveFrequency*float64(b.Age[i]) + float64(b.Phase[i]))
		amp := float32(m.WaveAmplitude*m.WaveFrequency) * f.minDim * float32(math.Sin(w))
		return patternVelocity, cos*scale - sin*amp, sin*scale + cos*amp

	case config.PatternVortex:
		st, in := float32(m.VortexStrength), float32(m.VortexInward)
		return patternVelocity, (tx*st - ux*in) * scale, (ty*st - uy*in) * scale

	case config.PatternBrownian:
		return patternVelocity, (env.Rng.Float32() - 0.5) * 2 * scale, (env.Rng.Float32() - 0.5) * 2 * scale

	case config.PatternFigure8:
		omega := 2 * math.Pi * m.Speed
		th := omega*env.Time + float64(b.Phase[i])*2*math.Pi
		radius := float32(m.OrbitRadius) * f.minDim
		return patternVelocity, radius * float32(omega*math.Cos(th)), radius * float32(omega*math.Cos(2*th))

	case config.PatternEvade:
		radius := float32(m.EvadeRadius) * f.minDim
		if radius <= 0 || r >= radius {
			return patternNone, 0, 0
		}
		push := float32(m.EvadeStrength*s.cfg.Engine.AttractScale) * (1 - r/radius)
		return patternForce, ux * push, uy * push

	case config.PatternClusters:
		c := &ls.clusters[b.Cluster[i]%NumClusters]
		if c.n < 2 {
			return patternNone, 0, 0
		}
		dx, dy := c.x-x, c.y-y
		d := velocityMagnitude(dx, dy) / f.minDim
		if d < 1e-4 || d > float32(m.ClusterBreakThreshold)*0.5 {
			return patternNone, 0, 0
		}
		k := float32(m.ClusterStrength*s.cfg.Engine.AttractScale) * 2 / f.minDim
		return patternForce, dx * k, dy * k

	case config.PatternRadialOut:
		return patternVelocity, ux * scale, uy * scale

	case config.PatternRadialIn:
		return patternVelocity, -ux * scale, -uy * scale
	}
	return patternNone, 0, 0
}

// clusterMean is the running centroid of one cluster group.
type clusterMean struct {
	x, y float32
	n    int
}

// updateClusters recomputes every cluster centroid from live particles.
func (ls *LayerState) updateClusters() {
	var sum [NumClusters]clusterMean
	b := ls.Buf
	for i := range b.X {
		if !b.Alive[i] {
			continue
		}
		c := &sum[b.Cluster[i]%NumClusters]
		c.x += b.X[i]
		c.y += b.Y[i]
		c.n++
	}
	for k := range sum {
		if sum[k].n > 0 {
			sum[k].x /= float32(sum[k].n)
			sum[k].y /= float32(sum[k].n)
		}
	}
	ls.clusters = sum
}
