package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/particles/config"
)

const testDT = float32(1.0 / 60)

func TestBoundaryWrap(t *testing.T) {
	tests := []struct {
		name       string
		x, y       float32
		vx, vy     float32
		wantX      float64
		wantY      float64
	}{
		{"cross right", 511, 100, 120, 0, 1, 100},
		{"cross left", 1, 100, -120, 0, 511, 100},
		{"cross bottom", 200, 511.5, 0, 60, 200, 0.5},
		{"cross top", 200, 0.5, 0, -60, 200, 511.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(512, 512)
			ls := NewLayerState(quietLayer(config.BoundaryWrap), env, nil)
			b := ls.Buf
			b.X[0], b.Y[0] = tt.x, tt.y
			b.VX[0], b.VY[0] = tt.vx, tt.vy

			NewSimulator(config.Cfg()).Step(ls, env, testDT)

			if math.Abs(float64(b.X[0])-tt.wantX) > 1e-3 || math.Abs(float64(b.Y[0])-tt.wantY) > 1e-3 {
				t.Errorf("position = (%v,%v), want (%v,%v)", b.X[0], b.Y[0], tt.wantX, tt.wantY)
			}
			if b.VX[0] != tt.vx || b.VY[0] != tt.vy {
				t.Errorf("velocity = (%v,%v), want exactly (%v,%v)", b.VX[0], b.VY[0], tt.vx, tt.vy)
			}
		})
	}
}

func TestBoundaryBounce(t *testing.T) {
	tests := []struct {
		name     string
		bounce   float64
		x, y     float32
		vx, vy   float32
		axisX    bool
		wantPos  float32
	}{
		{"right wall", 0.5, 511, 100, 300, 0, true, 512},
		{"left wall", 0.8, 1, 100, -300, 0, true, 0},
		{"floor", 0.2, 100, 510, 0, 400, false, 512},
		{"ceiling", 1, 100, 1, 0, -400, false, 0},
		{"dead stop", 0, 511, 100, 300, 0, true, 512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(512, 512)
			l := quietLayer(config.BoundaryBounce)
			l.BoundaryBounce = tt.bounce
			ls := NewLayerState(l, env, nil)
			b := ls.Buf
			b.X[0], b.Y[0] = tt.x, tt.y
			b.VX[0], b.VY[0] = tt.vx, tt.vy

			NewSimulator(config.Cfg()).Step(ls, env, testDT)

			pos, vin, vout := b.X[0], tt.vx, b.VX[0]
			if !tt.axisX {
				pos, vin, vout = b.Y[0], tt.vy, b.VY[0]
			}
			if pos != tt.wantPos {
				t.Errorf("position = %v, want clamp to %v", pos, tt.wantPos)
			}
			want := -float64(vin) * tt.bounce
			if math.Abs(float64(vout)-want) > 1e-3 {
				t.Errorf("outgoing velocity = %v, want %v", vout, want)
			}
		})
	}
}

func TestBoundaryRespawn(t *testing.T) {
	env := newTestEnv(512, 512)
	l := quietLayer(config.BoundaryRespawn)
	l.Spawn.Region = config.RegionCenter
	ls := NewLayerState(l, env, nil)
	b := ls.Buf
	b.X[0], b.Y[0] = 600, 100
	b.VX[0], b.VY[0] = 120, 0
	b.Age[0] = 5

	NewSimulator(config.Cfg()).Step(ls, env, testDT)

	if b.Age[0] != 0 {
		t.Errorf("age = %v, want re-seeded", b.Age[0])
	}
	if distance(b.X[0], b.Y[0], 256, 256) > 80 {
		t.Errorf("respawned at (%v,%v), not in the center region", b.X[0], b.Y[0])
	}
}

func TestBoundaryRespawnWaitsForIncomingSpawns(t *testing.T) {
	env := newTestEnv(512, 512)
	ls := NewLayerState(quietLayer(config.BoundaryRespawn), env, nil)
	b := ls.Buf
	b.X[0], b.Y[0] = 200, -100
	b.VX[0], b.VY[0] = 0, 60
	b.Age[0] = 1

	NewSimulator(config.Cfg()).Step(ls, env, testDT)
	if b.Age[0] == 0 {
		t.Error("particle heading onto the canvas was re-seeded")
	}
}

func TestBoundaryDestroyAndRevive(t *testing.T) {
	env := newTestEnv(512, 512)
	l := quietLayer(config.BoundaryDestroy)
	l.ParticleCount = 10
	ls := NewLayerState(l, env, nil)
	b := ls.Buf
	for i := range b.X {
		b.X[i], b.Y[i] = 600, 100
		b.VX[i], b.VY[i] = 10, 0
	}

	sim := NewSimulator(config.Cfg())
	sim.Step(ls, env, testDT)
	if got := b.AliveCount(); got != 0 {
		t.Fatalf("alive = %d after leaving the canvas, want 0", got)
	}
	if b.Len() != 10 {
		t.Fatalf("destroy changed the buffer length to %d", b.Len())
	}

	// spawnRate 0.5 * 10 particles = 5 per second
	ls.Config.SpawnRate = 0.5
	for range 30 {
		sim.Step(ls, env, testDT)
	}
	got := b.AliveCount()
	if got < 2 || got > 3 {
		t.Errorf("alive = %d after 0.5s at 5/s, want 2 or 3", got)
	}
}

func TestDragModes(t *testing.T) {
	perTick := dragFactor(0.1, config.DragPerTick, 1.0/30, 1.0/60)
	if math.Abs(float64(perTick)-0.9) > 1e-6 {
		t.Errorf("per_tick = %v, want 0.9 regardless of dt", perTick)
	}
	scaled := dragFactor(0.1, config.DragScaled, 1.0/30, 1.0/60)
	if math.Abs(float64(scaled)-0.81) > 1e-5 {
		t.Errorf("scaled = %v, want 0.81 for a double-length tick", scaled)
	}
}
