package camera

import (
	"math"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 0.01
}

func TestNewFitsCanvas(t *testing.T) {
	tests := []struct {
		name      string
		vw, vh    float32
		cw, ch    float32
		wantZoom  float32
		wantRectW float32
		wantRectH float32
	}{
		{"larger canvas", 1280, 720, 2048, 2048, 720.0 / 2048, 720, 720},
		{"smaller canvas", 1280, 720, 512, 512, 720.0 / 512, 720, 720},
		{"wide canvas", 1000, 1000, 2000, 1000, 0.5, 1000, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := New(tt.vw, tt.vh, tt.cw, tt.ch)
			if !near(cam.Zoom, tt.wantZoom) {
				t.Errorf("zoom = %f, want %f", cam.Zoom, tt.wantZoom)
			}
			x, y, w, h := cam.Rect()
			if !near(w, tt.wantRectW) || !near(h, tt.wantRectH) {
				t.Errorf("rect size = %fx%f", w, h)
			}
			if !near(x+w/2, tt.vw/2) || !near(y+h/2, tt.vh/2) {
				t.Errorf("canvas not centered: rect at (%f,%f)", x, y)
			}
		})
	}
}

func TestScreenToCanvasRoundtrip(t *testing.T) {
	cam := New(1280, 720, 2048, 2048)
	cam.SetZoom(2)
	cam.Pan(100, -50)

	for _, tc := range []struct{ sx, sy float32 }{{640, 360}, {10, 10}, {1200, 700}} {
		cx, cy := cam.ScreenToCanvas(tc.sx, tc.sy)
		sx, sy := cam.CanvasToScreen(cx, cy)
		if !near(sx, tc.sx) || !near(sy, tc.sy) {
			t.Errorf("roundtrip (%f,%f) -> (%f,%f)", tc.sx, tc.sy, sx, sy)
		}
	}
}

func TestNormalized(t *testing.T) {
	cam := New(1000, 1000, 500, 500)
	nx, ny, ok := cam.Normalized(500, 500)
	if !ok || !near(nx, 0.5) || !near(ny, 0.5) {
		t.Errorf("center = (%f,%f,%v)", nx, ny, ok)
	}
	if _, _, ok := cam.Normalized(-10, 500); ok {
		t.Error("point left of the canvas reported on canvas")
	}
}

func TestPanClampsToCanvas(t *testing.T) {
	cam := New(800, 600, 400, 300)
	cam.Pan(1e6, -1e6)
	if cam.X != 400 || cam.Y != 0 {
		t.Errorf("center = (%f,%f), want (400,0)", cam.X, cam.Y)
	}
}

func TestZoomClamp(t *testing.T) {
	cam := New(1280, 720, 2048, 2048)
	cam.SetZoom(100)
	if cam.Zoom != cam.MaxZoom {
		t.Errorf("zoom = %f, want max %f", cam.Zoom, cam.MaxZoom)
	}
	cam.SetZoom(0.0001)
	if cam.Zoom != cam.MinZoom {
		t.Errorf("zoom = %f, want min %f", cam.Zoom, cam.MinZoom)
	}
}

func TestZoomAtKeepsPointFixed(t *testing.T) {
	cam := New(1000, 1000, 1000, 1000)
	before, _ := cam.ScreenToCanvas(250, 250)
	cam.ZoomAt(250, 250, 2)
	after, _ := cam.ScreenToCanvas(250, 250)
	if !near(before, after) {
		t.Errorf("point under cursor moved: %f -> %f", before, after)
	}
	if !near(cam.Zoom, 2) {
		t.Errorf("zoom = %f", cam.Zoom)
	}
}

func TestSetCanvasRefits(t *testing.T) {
	cam := New(1000, 1000, 1000, 1000)
	cam.SetZoom(4)
	cam.SetCanvas(2000, 2000)
	if !near(cam.Zoom, 0.5) || cam.X != 1000 {
		t.Errorf("zoom=%f x=%f after SetCanvas", cam.Zoom, cam.X)
	}
}
