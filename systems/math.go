package systems

import "math"

// clampFloat clamps a float32 value between min and max.
func clampFloat(v, minVal, maxVal float32) float32 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// clamp01 clamps a float32 value to the [0, 1] range.
func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// wrapPos maps x into [0, max) for any finite x.
func wrapPos(x, max float32) float32 {
	if x >= 0 && x < max {
		return x
	}
	r := float32(math.Mod(float64(x), float64(max)))
	if r < 0 {
		r += max
	}
	// Mod can round up to max for tiny negative inputs
	if r >= max {
		r = 0
	}
	return r
}

func distance(x1, y1, x2, y2 float32) float32 {
	dx := x2 - x1
	dy := y2 - y1
	return float32(math.Sqrt(float64(dx*dx + dy*dy)))
}

func velocityMagnitude(vx, vy float32) float32 {
	return float32(math.Sqrt(float64(vx*vx + vy*vy)))
}

func finite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

func sincos(deg float64) (float32, float32) {
	s, c := math.Sincos(deg * math.Pi / 180)
	return float32(s), float32(c)
}
