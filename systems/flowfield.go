package systems

import (
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/pthm-cable/particles/config"
)

// FlowField is a divergence-free velocity field built from the curl of an
// evolving noise stream function. Keyframes are generated every UpdateSec
// and blended linearly in between, so sampling cost is independent of the
// noise octave count.
type FlowField struct {
	W, H int

	// Blended field read by Sample
	U, V []float32

	// Keyframes: "from" (0) and "to" (1)
	u0, v0, u1, v1 []float32
	blend          float32
	keyTime        float64

	noise  *Noise
	cfg    config.FlowConfig
	worldW float32
	worldH float32
}

// NewFlowField creates a flow field over a worldW x worldH canvas.
func NewFlowField(worldW, worldH float32, seed int64, cfg config.FlowConfig) *FlowField {
	w, h := cfg.GridW, cfg.GridH
	if w < 2 {
		w = 2
	}
	if h < 2 {
		h = 2
	}
	if cfg.UpdateSec <= 0 {
		cfg.UpdateSec = 0.5
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = 0.01
	}
	n := w * h
	f := &FlowField{
		W:      w,
		H:      h,
		U:      make([]float32, n),
		V:      make([]float32, n),
		u0:     make([]float32, n),
		v0:     make([]float32, n),
		u1:     make([]float32, n),
		v1:     make([]float32, n),
		noise:  NewNoise(seed, cfg.Octaves),
		cfg:    cfg,
		worldW: worldW,
		worldH: worldH,
	}
	f.Reset()
	return f
}

// Reset regenerates both keyframes from time zero.
func (f *FlowField) Reset() {
	f.keyTime = f.cfg.UpdateSec
	f.blend = 0
	f.generateInto(f.u0, f.v0, 0)
	f.generateInto(f.u1, f.v1, f.keyTime)
	copy(f.U, f.u0)
	copy(f.V, f.v0)
}

// generateInto writes the curl of the stream function at time t.
func (f *FlowField) generateInto(flowU, flowV []float32, t float64) {
	eps := f.cfg.Epsilon
	scale := f.cfg.Scale
	z := t * f.cfg.TimeSpeed

	for y := 0; y < f.H; y++ {
		v := (float64(y) + 0.5) / float64(f.H) * scale
		for x := 0; x < f.W; x++ {
			u := (float64(x) + 0.5) / float64(f.W) * scale

			// Curl of scalar potential: (dpsi/dv, -dpsi/du)
			psi0 := f.noise.FBM3(u, v, z)
			psiDu := f.noise.FBM3(u+eps, v, z)
			psiDv := f.noise.FBM3(u, v+eps, z)

			i := y*f.W + x
			flowU[i] = float32((psiDv - psi0) / eps)
			flowV[i] = float32(-(psiDu - psi0) / eps)
		}
	}
}

// Step advances the blend and rolls keyframes when a transition completes.
func (f *FlowField) Step(dt float32) {
	if dt <= 0 {
		return
	}
	f.blend += dt / float32(f.cfg.UpdateSec)
	for f.blend >= 1 {
		f.blend -= 1
		copy(f.u0, f.u1)
		copy(f.v0, f.v1)
		f.keyTime += f.cfg.UpdateSec
		f.generateInto(f.u1, f.v1, f.keyTime)
	}
	f.updateBlend()
}

func (f *FlowField) updateBlend() {
	n := len(f.U)
	t := f.blend
	vu0 := blas32.Vector{N: n, Inc: 1, Data: f.u0}
	vu1 := blas32.Vector{N: n, Inc: 1, Data: f.u1}
	vv0 := blas32.Vector{N: n, Inc: 1, Data: f.v0}
	vv1 := blas32.Vector{N: n, Inc: 1, Data: f.v1}
	vu := blas32.Vector{N: n, Inc: 1, Data: f.U}
	vv := blas32.Vector{N: n, Inc: 1, Data: f.V}

	blas32.Copy(vu0, vu)
	blas32.Scal(1-t, vu)
	blas32.Axpy(t, vu1, vu)

	blas32.Copy(vv0, vv)
	blas32.Scal(1-t, vv)
	blas32.Axpy(t, vv1, vv)
}

// Sample returns the bilinearly interpolated flow vector at a world position.
// Positions outside the canvas clamp to the edge.
func (f *FlowField) Sample(x, y float32) (float32, float32) {
	fx := clampFloat(x/f.worldW*float32(f.W)-0.5, 0, float32(f.W-1))
	fy := clampFloat(y/f.worldH*float32(f.H)-0.5, 0, float32(f.H-1))

	x0 := int(fx)
	y0 := int(fy)
	x1 := x0 + 1
	if x1 >= f.W {
		x1 = f.W - 1
	}
	y1 := y0 + 1
	if y1 >= f.H {
		y1 = f.H - 1
	}
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	i00 := y0*f.W + x0
	i10 := y0*f.W + x1
	i01 := y1*f.W + x0
	i11 := y1*f.W + x1

	ua := f.U[i00] + (f.U[i10]-f.U[i00])*tx
	ub := f.U[i01] + (f.U[i11]-f.U[i01])*tx
	va := f.V[i00] + (f.V[i10]-f.V[i00])*tx
	vb := f.V[i01] + (f.V[i11]-f.V[i01])*tx

	return ua + (ub-ua)*ty, va + (vb-va)*ty
}
