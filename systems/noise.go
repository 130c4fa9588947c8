package systems

import (
	"github.com/ojrac/opensimplex-go"
)

// Noise generates coherent fractal noise from an OpenSimplex source.
type Noise struct {
	src        opensimplex.Noise
	Octaves    int
	Lacunarity float64
	Gain       float64
}

// NewNoise creates a noise generator with the given seed and octave count.
func NewNoise(seed int64, octaves int) *Noise {
	if octaves < 1 {
		octaves = 1
	}
	return &Noise{
		src:        opensimplex.New(seed),
		Octaves:    octaves,
		Lacunarity: 2,
		Gain:       0.5,
	}
}

// FBM3 returns fractal Brownian motion at (x, y, z), roughly in [-1, 1].
func (n *Noise) FBM3(x, y, z float64) float64 {
	sum := 0.0
	amp := 0.5
	freq := 1.0
	norm := 0.0
	for o := 0; o < n.Octaves; o++ {
		sum += amp * n.src.Eval3(x*freq, y*freq, z*freq)
		norm += amp
		freq *= n.Lacunarity
		amp *= n.Gain
	}
	return sum / norm
}
