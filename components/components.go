// Package components defines ECS components for fragment particles.
package components

// Position represents a fragment's world position in pixels.
type Position struct {
	X, Y float32
}

// Velocity represents a fragment's velocity in pixels per second.
type Velocity struct {
	X, Y float32
}

// Fragment holds the state of a short-lived child particle spawned when a
// particle breaks on a material.
type Fragment struct {
	Layer   string  // Owning layer ID
	Age     float32 // Seconds since spawn
	Life    float32 // Lifespan in seconds
	Gravity float32 // Downward acceleration (px/s^2)
	Drag    float32 // Per-tick velocity damping
	Size    float32 // Sprite size in pixels
	R, G, B uint8
}

// Alpha returns the fragment's opacity, fading linearly over its life.
func (f *Fragment) Alpha() float32 {
	if f.Life <= 0 {
		return 0
	}
	a := 1 - f.Age/f.Life
	if a < 0 {
		return 0
	}
	return a
}
