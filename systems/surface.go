package systems

import (
	"math"

	"github.com/pthm-cable/particles/config"
)

// SurfaceFields holds one layer's persistent scalar fields: the mask
// accumulation deposit plus the smear, ripple and dent surfaces fed by
// material contacts.
type SurfaceFields struct {
	Deposit *Grid
	Smear   *Grid
	Dent    *Grid
	Ripple  *Grid // current wave height; Data rotates through the buffers below

	ripplePrev []float32
	rippleNext []float32
}

// NewSurfaceFields allocates every field at gridW x gridH over a w x h canvas.
func NewSurfaceFields(gridW, gridH int, w, h float32) *SurfaceFields {
	s := &SurfaceFields{
		Deposit: NewGrid(gridW, gridH, w, h),
		Smear:   NewGrid(gridW, gridH, w, h),
		Dent:    NewGrid(gridW, gridH, w, h),
		Ripple:  NewGrid(gridW, gridH, w, h),
	}
	n := len(s.Ripple.Data)
	s.ripplePrev = make([]float32, n)
	s.rippleNext = make([]float32, n)
	return s
}

// Clear zeroes every field.
func (s *SurfaceFields) Clear() {
	s.Deposit.Clear()
	s.Smear.Clear()
	s.Dent.Clear()
	s.Ripple.Clear()
	clear(s.ripplePrev)
	clear(s.rippleNext)
}

// Step decays the fields and propagates the ripple wave. The deposit field
// decays at decayRate per second; zero keeps it monotonic.
func (s *SurfaceFields) Step(p *config.SurfaceParams, decayRate float64, tune *config.SurfaceConfig, dt, refDT float32) {
	if dt <= 0 {
		return
	}
	if decayRate > 0 {
		s.Deposit.Scale(decayFactor(decayRate, dt))
	}
	if !p.SurfaceFieldsEnabled {
		return
	}
	if p.SmearFieldEnabled {
		s.Smear.Scale(decayFactor(p.SmearDecayRate, dt))
	}
	if p.DentFieldEnabled {
		s.Dent.Scale(decayFactor(p.DentRecoveryRate, dt))
	}
	if p.RippleFieldEnabled {
		s.stepRipple(float32(p.RippleSpeed), float32(p.RippleDamping), float32(tune.RippleCFL), dt, refDT)
	}
}

func decayFactor(rate float64, dt float32) float32 {
	return float32(math.Exp(-rate * float64(dt)))
}

// stepRipple advances the damped wave equation one step.
//
//	next = (2*cur - prev + c^2 * laplacian(cur)) * damp
//
// The Courant number c is clamped for stability.
func (s *SurfaceFields) stepRipple(speed, damping, cfl, dt, refDT float32) {
	w, h := s.Ripple.W, s.Ripple.H
	cur := s.Ripple.Data
	prev := s.ripplePrev
	next := s.rippleNext

	c := speed * dt / refDT
	if cfl <= 0 || cfl > 0.7 {
		cfl = 0.5
	}
	if c > cfl {
		c = cfl
	}
	c2 := c * c
	damp := float32(math.Pow(float64(1-clamp01(damping)), float64(dt/refDT)))

	for y := 0; y < h; y++ {
		ym := clampIndex(y-1, h) * w
		yp := clampIndex(y+1, h) * w
		row := y * w
		for x := 0; x < w; x++ {
			xm := clampIndex(x-1, w)
			xp := clampIndex(x+1, w)
			center := cur[row+x]
			lap := cur[row+xm] + cur[row+xp] + cur[ym+x] + cur[yp+x] - 4*center
			next[row+x] = (2*center - prev[row+x] + c2*lap) * damp
		}
	}

	// Rotate: prev <- cur, cur <- next, next <- old prev
	s.ripplePrev, s.Ripple.Data, s.rippleNext = cur, next, prev
}

// Feed splats a contact into the enabled surface fields.
func (s *SurfaceFields) Feed(p *config.SurfaceParams, x, y, smear, ripple, dent float32) {
	if !p.SurfaceFieldsEnabled {
		return
	}
	if p.SmearFieldEnabled && smear > 0 {
		s.Smear.Splat(x, y, smear)
	}
	if p.RippleFieldEnabled && ripple > 0 {
		s.Ripple.Splat(x, y, ripple)
	}
	if p.DentFieldEnabled && dent > 0 {
		s.Dent.Splat(x, y, dent)
	}
}

// Feedback returns the acceleration the surfaces exert at (x, y) and the
// extra drag from smear.
func (s *SurfaceFields) Feedback(p *config.SurfaceParams, tune *config.SurfaceConfig, x, y float32) (ax, ay, drag float32) {
	if !p.SurfaceFieldsEnabled {
		return 0, 0, 0
	}
	if p.RippleFieldEnabled {
		gx, gy := s.Ripple.Gradient(x, y)
		push := float32(tune.RipplePush)
		ax -= gx * push
		ay -= gy * push
	}
	if p.DentFieldEnabled {
		gx, gy := s.Dent.Gradient(x, y)
		pull := float32(tune.DentPull)
		ax += gx * pull
		ay += gy * pull
	}
	if p.SmearFieldEnabled {
		drag = clampFloat(s.Smear.Sample(x, y)*float32(tune.SmearDrag), 0, 0.9)
	}
	return ax, ay, drag
}
