package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/particles/audio"
	"github.com/pthm-cable/particles/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title         string
	CanvasW       int
	CanvasH       int
	SimTime       float64
	Frame         int
	FPS           int32
	Paused        bool
	Layers        []telemetry.FrameStats
	Audio         *audio.Analysis
	MasksPending  int
	ScreenshotMsg string
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD in the top-left corner.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)
	rl.DrawText(
		fmt.Sprintf("%dx%d | t=%.1fs | frame %d | FPS: %d", data.CanvasW, data.CanvasH, data.SimTime, data.Frame, data.FPS),
		10, 35, 16, rl.LightGray,
	)

	status := "Running"
	if data.Paused {
		status = "PAUSED"
	}
	if data.MasksPending > 0 {
		status += fmt.Sprintf(" | loading %d mask(s)", data.MasksPending)
	}
	rl.DrawText(status, 10, 55, 16, rl.Yellow)

	y := int32(80)
	for _, s := range data.Layers {
		rl.DrawText(
			fmt.Sprintf("%-12s alive %5d stuck %5d  v %.0f px/s", s.Name, s.Alive, s.Stuck, s.SpeedMean),
			10, y, 12, rl.LightGray,
		)
		y += 14
	}

	if data.Audio != nil {
		y += 6
		r := h.renderer
		y = r.DrawBar(10, y, "Bass", float32(data.Audio.Bass), 260)
		y = r.DrawBar(10, y, "Mid", float32(data.Audio.Mid), 260)
		r.DrawBar(10, y, "Treble", float32(data.Audio.Treble), 260)
	}

	if data.ScreenshotMsg != "" {
		rl.DrawText(data.ScreenshotMsg, 10, int32(rl.GetScreenHeight())-45, 14, rl.Green)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the per-phase frame timing.
type PerfPanel struct {
	x, y int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x, y := p.x, p.y

	rl.DrawText("Frame Phases", x, y, 16, rl.White)
	y += 20
	rl.DrawText(fmt.Sprintf("Total: %s  p95: %s", stats.AvgFrame.Round(time.Microsecond), stats.P95Frame.Round(time.Microsecond)), x, y, 14, rl.Yellow)
	y += 16
	if stats.Budget > 0 {
		rl.DrawText(fmt.Sprintf("Over budget: %d/%d", stats.SlowFrames, stats.Frames), x, y, 12, rl.LightGray)
		y += 14
	}

	for _, phase := range telemetry.Phases {
		pct := stats.PhasePct[phase]
		color := rl.LightGray
		if pct > 40 {
			color = rl.Red
		} else if pct > 20 {
			color = rl.Orange
		}
		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", phase, stats.PhaseAvg[phase].Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
