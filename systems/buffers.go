package systems

// Seeder initializes slot i of a particle buffer.
type Seeder interface {
	Seed(b *ParticleBuffer, i int)
}

// NoCapture marks a particle not held by any attraction point.
const NoCapture = -1

// ParticleBuffer holds one layer's particles in parallel arrays.
// Every slice has the same length. Dead particles keep their slot so the
// layout stays stable; they are skipped by physics and render.
type ParticleBuffer struct {
	X, Y         []float32 // positions (pixels)
	VX, VY       []float32 // velocities (pixels/second)
	PrevX, PrevY []float32 // positions before the last integration
	Age          []float32 // seconds since seeded
	Phase        []float32 // per-particle constant random in [0,1)
	Deposit      []float32 // mass this particle has laid down on the mask
	Glow         []float32 // material glow, decays over time
	StuckTime    []float32 // seconds spent stuck

	Cluster  []uint8 // cluster id for the clusters pattern
	Target   []uint8 // position in the passToNext chain
	Captured []int8  // attraction point holding the particle, or NoCapture

	Alive       []bool
	Stuck       []bool
	Transformed []bool
}

// NewParticleBuffer allocates n particles and seeds every slot.
func NewParticleBuffer(n int, s Seeder) *ParticleBuffer {
	b := &ParticleBuffer{}
	b.Resize(n, s)
	return b
}

// Len returns the number of particle slots.
func (b *ParticleBuffer) Len() int {
	return len(b.X)
}

// Resize changes the slot count. Growing keeps existing particles and seeds
// only the new tail. Shrinking truncates.
func (b *ParticleBuffer) Resize(n int, s Seeder) {
	if n < 0 {
		n = 0
	}
	old := b.Len()
	if n == old {
		return
	}
	if n < old {
		b.truncate(n)
		return
	}

	b.X = grow(b.X, n)
	b.Y = grow(b.Y, n)
	b.VX = grow(b.VX, n)
	b.VY = grow(b.VY, n)
	b.PrevX = grow(b.PrevX, n)
	b.PrevY = grow(b.PrevY, n)
	b.Age = grow(b.Age, n)
	b.Phase = grow(b.Phase, n)
	b.Deposit = grow(b.Deposit, n)
	b.Glow = grow(b.Glow, n)
	b.StuckTime = grow(b.StuckTime, n)
	b.Cluster = grow(b.Cluster, n)
	b.Target = grow(b.Target, n)
	b.Captured = grow(b.Captured, n)
	b.Alive = grow(b.Alive, n)
	b.Stuck = grow(b.Stuck, n)
	b.Transformed = grow(b.Transformed, n)

	for i := old; i < n; i++ {
		s.Seed(b, i)
	}
}

func (b *ParticleBuffer) truncate(n int) {
	b.X = b.X[:n]
	b.Y = b.Y[:n]
	b.VX = b.VX[:n]
	b.VY = b.VY[:n]
	b.PrevX = b.PrevX[:n]
	b.PrevY = b.PrevY[:n]
	b.Age = b.Age[:n]
	b.Phase = b.Phase[:n]
	b.Deposit = b.Deposit[:n]
	b.Glow = b.Glow[:n]
	b.StuckTime = b.StuckTime[:n]
	b.Cluster = b.Cluster[:n]
	b.Target = b.Target[:n]
	b.Captured = b.Captured[:n]
	b.Alive = b.Alive[:n]
	b.Stuck = b.Stuck[:n]
	b.Transformed = b.Transformed[:n]
}

// Reset re-seeds every slot.
func (b *ParticleBuffer) Reset(s Seeder) {
	for i := range b.X {
		s.Seed(b, i)
	}
}

// AliveCount returns the number of live particles.
func (b *ParticleBuffer) AliveCount() int {
	n := 0
	for _, a := range b.Alive {
		if a {
			n++
		}
	}
	return n
}

// StuckCount returns the number of live particles held by the mask.
func (b *ParticleBuffer) StuckCount() int {
	n := 0
	for i, s := range b.Stuck {
		if s && b.Alive[i] {
			n++
		}
	}
	return n
}

// clearState zeroes the per-particle state that seeding does not set.
func (b *ParticleBuffer) clearState(i int) {
	b.Age[i] = 0
	b.Deposit[i] = 0
	b.Glow[i] = 0
	b.StuckTime[i] = 0
	b.Target[i] = 0
	b.Captured[i] = NoCapture
	b.Alive[i] = true
	b.Stuck[i] = false
	b.Transformed[i] = false
}

func grow[T any](s []T, n int) []T {
	if cap(s) >= n {
		return s[:n]
	}
	out := make([]T, n)
	copy(out, s)
	return out
}
