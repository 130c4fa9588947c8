package systems

import (
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/particles/components"
)

// Fragments manages the short-lived child particles spawned when particles
// break on a material. They live in an ECS world shared by every layer and
// are capped at a fixed total.
type Fragments struct {
	world  *ecs.World
	mapper *ecs.Map3[components.Position, components.Velocity, components.Fragment]
	filter *ecs.Filter3[components.Position, components.Velocity, components.Fragment]

	max   int
	count int

	// Reused between steps
	dead []ecs.Entity
}

// NewFragments creates an empty fragment pool holding at most max fragments.
func NewFragments(max int) *Fragments {
	world := ecs.NewWorld()
	return &Fragments{
		world:  world,
		mapper: ecs.NewMap3[components.Position, components.Velocity, components.Fragment](world),
		filter: ecs.NewFilter3[components.Position, components.Velocity, components.Fragment](world),
		max:    max,
	}
}

// Count returns the number of live fragments.
func (f *Fragments) Count() int {
	return f.count
}

// Burst spawns up to n fragments at (x, y) with random directions. It
// returns the number actually spawned, which is lower at the cap.
func (f *Fragments) Burst(rng *rand.Rand, x, y float32, n int, speed float32, tmpl components.Fragment) int {
	spawned := 0
	for range n {
		if f.count >= f.max {
			break
		}
		angle := rng.Float64() * 2 * math.Pi
		sin, cos := math.Sincos(angle)
		s := speed * (0.5 + rng.Float32())
		pos := components.Position{X: x, Y: y}
		vel := components.Velocity{X: float32(cos) * s, Y: float32(sin) * s}
		frag := tmpl
		frag.Age = 0
		f.mapper.NewEntity(&pos, &vel, &frag)
		f.count++
		spawned++
	}
	return spawned
}

// Step ages and integrates every fragment and removes expired ones.
func (f *Fragments) Step(dt float32) {
	if f.count == 0 {
		return
	}
	f.dead = f.dead[:0]

	query := f.filter.Query()
	for query.Next() {
		pos, vel, frag := query.Get()
		frag.Age += dt
		if frag.Age >= frag.Life {
			f.dead = append(f.dead, query.Entity())
			continue
		}
		vel.Y += frag.Gravity * dt
		vel.X *= 1 - frag.Drag
		vel.Y *= 1 - frag.Drag
		pos.X += vel.X * dt
		pos.Y += vel.Y * dt
	}

	// Remove after iteration completes
	for _, e := range f.dead {
		f.world.RemoveEntity(e)
	}
	f.count -= len(f.dead)
}

// Each calls fn for every live fragment.
func (f *Fragments) Each(fn func(pos *components.Position, frag *components.Fragment)) {
	query := f.filter.Query()
	for query.Next() {
		pos, _, frag := query.Get()
		fn(pos, frag)
	}
}

// RemoveLayer removes every fragment owned by a layer.
func (f *Fragments) RemoveLayer(layerID string) {
	f.removeWhere(func(frag *components.Fragment) bool { return frag.Layer == layerID })
}

// Clear removes every fragment.
func (f *Fragments) Clear() {
	f.removeWhere(func(*components.Fragment) bool { return true })
}

func (f *Fragments) removeWhere(pred func(*components.Fragment) bool) {
	f.dead = f.dead[:0]
	query := f.filter.Query()
	for query.Next() {
		_, _, frag := query.Get()
		if pred(frag) {
			f.dead = append(f.dead, query.Entity())
		}
	}
	for _, e := range f.dead {
		f.world.RemoveEntity(e)
	}
	f.count -= len(f.dead)
}
