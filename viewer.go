package main

import (
	"encoding/base64"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/particles/camera"
	"github.com/pthm-cable/particles/config"
	"github.com/pthm-cable/particles/ui"
)

const controlsLegend = "[Space] Pause  [R] Reset  [S] Screenshot  [Tab] Panel  [F] Fit  [P] Perf  Wheel: zoom  Right drag: pan"

// viewer is the raylib front end.
type viewer struct {
	r        *runner
	cam      *camera.Camera
	hud      *ui.HUD
	perf     *ui.PerfPanel
	panel    *ui.ControlsPanel
	tex      rl.Texture2D
	texW     int
	texH     int
	pixels   []color.RGBA
	message  string
	showPerf bool
}

func (r *runner) runViewer() error {
	cfg := config.Cfg()
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Particle Studio")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(r.opts.fps))

	w, h := r.eng.Size()
	v := &viewer{
		r:     r,
		cam:   camera.New(float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight()), float32(w), float32(h)),
		hud:   ui.NewHUD(),
		perf:  ui.NewPerfPanel(10, 0),
		panel: ui.NewControlsPanel(300),
	}
	v.allocTexture(w, h)
	defer rl.UnloadTexture(v.tex)

	for !rl.WindowShouldClose() {
		v.handleInput()
		if err := r.step(float64(rl.GetFrameTime())); err != nil {
			return err
		}
		v.draw()
		r.eng.RecordPresent()

		if r.opts.frames > 0 && r.eng.FrameCount() >= r.opts.frames {
			break
		}
	}
	return nil
}

func (v *viewer) allocTexture(w, h int) {
	if v.texW == w && v.texH == h {
		return
	}
	if v.texW != 0 {
		rl.UnloadTexture(v.tex)
	}
	img := rl.GenImageColor(w, h, rl.Black)
	v.tex = rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	v.texW, v.texH = w, h
	v.pixels = make([]color.RGBA, w*h)
	v.cam.SetCanvas(float32(w), float32(h))
}

func (v *viewer) handleInput() {
	if rl.IsWindowResized() {
		v.cam.Resize(float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight()))
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		g := v.r.eng.Global()
		g.Paused = !g.Paused
		v.setGlobal(g)
	}
	if rl.IsKeyPressed(rl.KeyR) {
		v.reset()
	}
	if rl.IsKeyPressed(rl.KeyS) {
		v.screenshot()
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		v.panel.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyF) {
		v.cam.Fit()
	}
	if rl.IsKeyPressed(rl.KeyP) {
		v.showPerf = !v.showPerf
	}
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	mouse := rl.GetMousePosition()
	if v.panel.Contains(mouse.X, mouse.Y) {
		return
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.cam.ZoomAt(mouse.X, mouse.Y, 1+wheel*0.1)
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		v.cam.Pan(-d.X, -d.Y)
	}
}

func (v *viewer) setGlobal(g config.GlobalConfig) {
	if err := v.r.eng.SetGlobal(g); err != nil {
		slog.Error("failed to apply global settings", "error", err)
	}
}

func (v *viewer) reset() {
	if err := v.r.eng.ResetAll(); err != nil {
		slog.Error("reset failed", "error", err)
	}
}

// screenshot saves the captioned frame next to the other outputs.
func (v *viewer) screenshot() {
	uri, err := v.r.eng.Screenshot()
	if err != nil {
		v.message = "screenshot failed: " + err.Error()
		return
	}
	dir := "."
	if v.r.out != nil {
		dir = v.r.out.Dir()
	}
	path := filepath.Join(dir, fmt.Sprintf("screenshot_%06d.png", v.r.eng.FrameCount()))
	if err := writeDataURI(path, uri); err != nil {
		v.message = "screenshot failed: " + err.Error()
		return
	}
	v.message = "saved " + path
	slog.Info("screenshot saved", "path", path)
}

// writeDataURI decodes a base64 data URI into a file.
func writeDataURI(path, uri string) error {
	_, payload, ok := strings.Cut(uri, ";base64,")
	if !ok {
		return fmt.Errorf("not a base64 data uri")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("decoding screenshot: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (v *viewer) uploadFrame() {
	img := v.r.eng.Frame()
	if img == nil {
		return
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	v.allocTexture(w, h)
	for i := range v.pixels {
		p := img.Pix[4*i : 4*i+4 : 4*i+4]
		v.pixels[i] = color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
	}
	rl.UpdateTexture(v.tex, v.pixels)
}

func (v *viewer) draw() {
	v.uploadFrame()

	rl.BeginDrawing()
	rl.ClearBackground(rl.Color{R: 12, G: 12, B: 14, A: 255})

	x, y, w, h := v.cam.Rect()
	rl.DrawTexturePro(
		v.tex,
		rl.Rectangle{X: 0, Y: 0, Width: float32(v.texW), Height: float32(v.texH)},
		rl.Rectangle{X: x, Y: y, Width: w, Height: h},
		rl.Vector2{},
		0,
		rl.White,
	)

	eng := v.r.eng
	global := eng.Global()
	layers := eng.Layers()
	act := v.panel.Draw(&global, layers)
	if act.GlobalDirty {
		v.setGlobal(global)
	}
	if act.LayersDirty {
		if err := eng.SetLayers(layers); err != nil {
			slog.Error("failed to apply layers", "error", err)
		}
	}
	if act.Reset {
		v.reset()
	}
	if act.Screenshot {
		v.screenshot()
	}
	if act.Fit {
		v.cam.Fit()
	}

	cw, ch := eng.Size()
	v.hud.Draw(ui.HUDData{
		Title:         "Particle Studio",
		CanvasW:       cw,
		CanvasH:       ch,
		SimTime:       eng.SimTime(),
		Frame:         eng.FrameCount(),
		FPS:           rl.GetFPS(),
		Paused:        global.Paused,
		Layers:        eng.Stats(),
		Audio:         v.r.lastAudio,
		MasksPending:  eng.Masks().Pending(),
		ScreenshotMsg: v.message,
	})
	if v.showPerf {
		v.perf.SetPosition(10, int32(rl.GetScreenHeight())-160)
		v.perf.Draw(eng.Perf())
	}
	v.hud.DrawControls(int32(rl.GetScreenHeight()), controlsLegend)

	rl.EndDrawing()
}
