package systems

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/particles/config"
)

// NumClusters is the number of groups the clusters pattern sorts particles into.
const NumClusters = 8

// Spawner seeds particles for one layer according to its spawn region.
type Spawner struct {
	Layer *config.LayerConfig
	W, H  float32
	Mask  *MaskView // nil when no mask is loaded
	Rng   *rand.Rand
	Tune  *config.EngineConfig
}

// Seed places particle i and gives it a fresh spawn velocity with age zero.
func (s *Spawner) Seed(b *ParticleBuffer, i int) {
	b.clearState(i)
	b.Phase[i] = s.Rng.Float32()
	b.Cluster[i] = uint8(s.Rng.Intn(NumClusters))

	x, y := s.position()
	b.X[i], b.Y[i] = x, y
	b.PrevX[i], b.PrevY[i] = x, y

	vx, vy := s.velocity()
	b.VX[i], b.VY[i] = vx, vy
}

func (s *Spawner) position() (float32, float32) {
	sp := &s.Layer.Spawn
	rng := s.Rng
	w, h := s.W, s.H
	inset := float32(s.Tune.EdgeInset)
	offset := float32(sp.EdgeOffset)
	spread := float32(sp.EdgeSpread)

	// along returns a coordinate spread around the middle of an edge
	along := func(size float32) float32 {
		return size * (0.5 + (rng.Float32()-0.5)*spread)
	}

	switch sp.Region {
	case config.RegionTopEdge:
		return along(w), clampFloat(inset+offset*h, 0, h)
	case config.RegionBottomEdge:
		return along(w), clampFloat(h-inset-offset*h, 0, h)
	case config.RegionLeftEdge:
		return clampFloat(inset+offset*w, 0, w), along(h)
	case config.RegionRightEdge:
		return clampFloat(w-inset-offset*w, 0, w), along(h)
	case config.RegionOffCanvasTop:
		return along(w), -inset - offset*h
	case config.RegionOffCanvasBottom:
		return along(w), h + inset + offset*h
	case config.RegionOffCanvasLeft:
		return -inset - offset*w, along(h)
	case config.RegionOffCanvasRight:
		return w + inset + offset*w, along(h)
	case config.RegionCenter:
		cx, cy := s.center()
		r := float32(s.Tune.CenterSpread)
		return clampFloat(cx+(rng.Float32()-0.5)*2*r, 0, w), clampFloat(cy+(rng.Float32()-0.5)*2*r, 0, h)
	case config.RegionCenterBurst:
		return s.center()
	case config.RegionCustom:
		cx, cy := s.center()
		return clampFloat(cx+(rng.Float32()-0.5)*spread*w, 0, w), clampFloat(cy+(rng.Float32()-0.5)*spread*h, 0, h)
	case config.RegionMask, config.RegionMaskEdge:
		if x, y, ok := s.maskPosition(sp.Region == config.RegionMaskEdge); ok {
			return x, y
		}
	}
	return rng.Float32() * w, rng.Float32() * h
}

func (s *Spawner) center() (float32, float32) {
	return float32(s.Layer.Spawn.CenterPoint.X) * s.W, float32(s.Layer.Spawn.CenterPoint.Y) * s.H
}

// maskPosition rejection-samples a position inside (or on the edge of) the mask.
func (s *Spawner) maskPosition(edge bool) (float32, float32, bool) {
	if s.Mask == nil {
		return 0, 0, false
	}
	attempts := s.Tune.MaskSpawnAttempts
	if attempts <= 0 {
		attempts = 32
	}
	r := max(s.W, s.H) / float32(s.Mask.Coverage.W)
	for range attempts {
		x := s.Rng.Float32() * s.W
		y := s.Rng.Float32() * s.H
		if edge {
			if s.Mask.Edge(x, y, r) {
				return x, y, true
			}
		} else if s.Mask.Solid(x, y) {
			return x, y, true
		}
	}
	return 0, 0, false
}

func (s *Spawner) velocity() (float32, float32) {
	l := s.Layer
	if l.Spawn.Region == config.RegionCenterBurst {
		angle := s.Rng.Float64() * 2 * math.Pi
		speed := float32(l.Spawn.BurstSpeed*s.Tune.BurstScale) * (0.5 + 0.5*s.Rng.Float32())
		sin, cos := math.Sincos(angle)
		return float32(cos) * speed, float32(sin) * speed
	}
	spread := float32(l.SpawnSpeed * s.Tune.SpawnScale)
	return (s.Rng.Float32() - 0.5) * spread, (s.Rng.Float32() - 0.5) * spread
}
