// Flow field preview tool - interactive view of the curl-noise field.
//
// Usage: go run ./cmd/flowpreview [-config path]
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"os"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/pthm-cable/particles/config"
	"github.com/pthm-cable/particles/systems"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewSize  = 512
	panelWidth   = windowWidth - previewSize - 30
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	defaults := config.Cfg().Flow
	params := defaults
	seed := int64(12345)

	rl.InitWindow(windowWidth, windowHeight, "Flow Field Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	flow := systems.NewFlowField(previewSize, previewSize, seed, params)
	img := rl.GenImageColor(flow.W, flow.H, rl.Black)
	texture := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	defer rl.UnloadTexture(texture)

	var t float64
	animating := true
	needsRegen := false

	for !rl.WindowShouldClose() {
		if needsRegen {
			flow = systems.NewFlowField(previewSize, previewSize, seed, params)
			rl.UnloadTexture(texture)
			img := rl.GenImageColor(flow.W, flow.H, rl.Black)
			texture = rl.LoadTextureFromImage(img)
			rl.UnloadImage(img)
			t = 0
			needsRegen = false
		}
		if animating {
			dt := rl.GetFrameTime()
			flow.Step(dt)
			t += float64(dt)
		}
		peak := updateTexture(texture, flow)

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		rl.DrawTexturePro(
			texture,
			rl.Rectangle{X: 0, Y: 0, Width: float32(flow.W), Height: float32(flow.H)},
			rl.Rectangle{X: 10, Y: 10, Width: previewSize, Height: previewSize},
			rl.Vector2{X: 0, Y: 0},
			0,
			rl.White,
		)
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)
		drawArrows(flow, peak)

		statsY := int32(previewSize + 25)
		rl.DrawText(fmt.Sprintf("Grid: %dx%d  Peak |v|: %.3f", flow.W, flow.H, peak), 15, statsY, 16, rl.DarkGray)
		rl.DrawText(fmt.Sprintf("Time: %.1f", t), 15, statsY+20, 16, rl.DarkGray)

		panelX := float32(previewSize + 20)
		panelY := float32(10)
		rl.DrawText("Flow Field Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		var changed bool
		panelY, changed = slider(panelX, panelY, "Scale (cycles per canvas)", &params.Scale, 0.5, 12, "%.2f")
		needsRegen = needsRegen || changed
		octaves := float64(params.Octaves)
		panelY, changed = slider(panelX, panelY, "Octaves", &octaves, 1, 6, "%.0f")
		if changed && int(octaves) != params.Octaves {
			params.Octaves = int(octaves)
			needsRegen = true
		}
		panelY, changed = slider(panelX, panelY, "Time speed", &params.TimeSpeed, 0, 1, "%.3f")
		needsRegen = needsRegen || changed
		panelY, changed = slider(panelX, panelY, "Keyframe interval (s)", &params.UpdateSec, 0.05, 2, "%.2f")
		needsRegen = needsRegen || changed
		panelY += 10

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, toggleText(animating, "Stop", "Animate")) {
			animating = !animating
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Reset Time") {
			flow.Reset()
			t = 0
		}
		panelY += 45
		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Random Seed") {
			seed = int64(rl.GetRandomValue(0, 99999))
			needsRegen = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = defaults
			needsRegen = true
		}
		panelY += 55

		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		yaml := flowYAML(params)
		rl.DrawText(yaml, int32(panelX), int32(panelY), 14, rl.Gray)

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(yaml)
		}

		rl.EndDrawing()
	}
}

func slider(x, y float32, label string, v *float64, lo, hi float32, format string) (float32, bool) {
	rl.DrawText(label, int32(x), int32(y), 14, rl.Gray)
	y += 18
	cur := float32(*v)
	next := gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: float32(panelWidth - 80), Height: 20}, "", "", cur, lo, hi)
	rl.DrawText(fmt.Sprintf(format, cur), int32(x+float32(panelWidth-70)), int32(y+2), 16, rl.DarkGray)
	if next == cur {
		return y + 35, false
	}
	*v = float64(next)
	return y + 35, true
}

func flowYAML(p config.FlowConfig) string {
	return fmt.Sprintf(`flow:
  grid_w: %d
  grid_h: %d
  scale: %.2f
  octaves: %d
  time_speed: %.3f
  update_sec: %.2f`,
		p.GridW, p.GridH, p.Scale, p.Octaves, p.TimeSpeed, p.UpdateSec)
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}

// updateTexture colors each flow cell by direction (hue) and magnitude
// (value) and returns the peak magnitude.
func updateTexture(texture rl.Texture2D, f *systems.FlowField) float32 {
	var peak float32
	for i := range f.U {
		peak = max(peak, float32(math.Hypot(float64(f.U[i]), float64(f.V[i]))))
	}
	pixels := make([]color.RGBA, len(f.U))
	for i := range f.U {
		u, v := float64(f.U[i]), float64(f.V[i])
		hue := math.Mod(math.Atan2(v, u)*180/math.Pi+360, 360)
		mag := 0.0
		if peak > 0 {
			mag = math.Hypot(u, v) / float64(peak)
		}
		r, g, b := colorful.Hsv(hue, 0.8, 0.15+0.85*mag).Clamped().RGB255()
		pixels[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	rl.UpdateTexture(texture, pixels)
	return peak
}

// drawArrows overlays a sparse grid of direction strokes.
func drawArrows(f *systems.FlowField, peak float32) {
	if peak <= 0 {
		return
	}
	const step = 32
	for py := step / 2; py < previewSize; py += step {
		for px := step / 2; px < previewSize; px += step {
			u, v := f.Sample(float32(px), float32(py))
			k := float32(step/2) / peak
			x0, y0 := float32(px+10), float32(py+10)
			rl.DrawLineV(rl.Vector2{X: x0, Y: y0}, rl.Vector2{X: x0 + u*k, Y: y0 + v*k}, rl.White)
		}
	}
}
