package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/particles/config"
)

const rowHeight = 20

// ControlsPanel renders the right-side panel editing the global settings
// and the layer list.
type ControlsPanel struct {
	renderer *Renderer
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		width:    width,
		visible:  true,
	}
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Visible reports whether the panel is shown.
func (c *ControlsPanel) Visible() bool {
	return c.visible
}

// Contains reports whether a screen point falls on the panel.
func (c *ControlsPanel) Contains(x, y float32) bool {
	return c.visible && x >= float32(rl.GetScreenWidth())-float32(c.width)
}

// Draw renders the panel, editing g and layers in place, and returns the
// actions requested this frame.
func (c *ControlsPanel) Draw(g *config.GlobalConfig, layers []config.LayerConfig) Actions {
	var act Actions
	if !c.visible {
		return act
	}

	r := c.renderer
	pad := float32(r.Theme.Padding)
	x0 := float32(rl.GetScreenWidth()) - float32(c.width)
	r.DrawPanel(int32(x0), 0, c.width, int32(rl.GetScreenHeight()))

	x := x0 + pad
	w := float32(c.width) - 2*pad
	y := pad

	rl.DrawText("Studio", int32(x), int32(y), 16, rl.White)
	y += 24

	half := (w - 10) / 2
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: 24}, toggleText(g.Paused, "Resume", "Pause")) {
		g.Paused = !g.Paused
		act.GlobalDirty = true
	}
	if gui.Button(rl.Rectangle{X: x + half + 10, Y: y, Width: half, Height: 24}, "Reset") {
		act.Reset = true
	}
	y += 30
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: 24}, "Screenshot") {
		act.Screenshot = true
	}
	if gui.Button(rl.Rectangle{X: x + half + 10, Y: y, Width: half, Height: 24}, "Fit View") {
		act.Fit = true
	}
	y += 36

	y = r.sectionHeader(x, y, "Global")
	y, act.GlobalDirty = c.slider(x, y, w, "Time scale", &g.TimeScale, 0, 3, act.GlobalDirty)
	y, act.GlobalDirty = c.slider(x, y, w, "Clear rate", &g.ClearRate, 0, 1, act.GlobalDirty)
	y, act.GlobalDirty = c.slider(x, y, w, "Exposure", &g.Exposure, 0, 4, act.GlobalDirty)
	y, act.GlobalDirty = c.slider(x, y, w, "Threshold", &g.Threshold, 0, 1, act.GlobalDirty)
	y, act.GlobalDirty = c.slider(x, y, w, "Soft", &g.ThresholdSoft, 0, 0.5, act.GlobalDirty)
	y, act.GlobalDirty = c.slider(x, y, w, "Audio gain", &g.AudioGain, 0, 4, act.GlobalDirty)
	y, act.GlobalDirty = c.check(x, y, "Monochrome", &g.Monochrome, act.GlobalDirty)
	y, act.GlobalDirty = c.check(x, y, "Invert", &g.Invert, act.GlobalDirty)
	y += 8

	y = r.sectionHeader(x, y, "Layers")
	for i := range layers {
		l := &layers[i]
		y, act.LayersDirty = c.check(x, y, fmt.Sprintf("%s (%s, %d)", l.Name, l.Type, l.ParticleCount), &l.Enabled, act.LayersDirty)
		y, act.LayersDirty = c.slider(x+10, y, w-10, "Brightness", &l.Brightness, 0, 2, act.LayersDirty)
		y, act.LayersDirty = c.slider(x+10, y, w-10, "Point size", &l.PointSize, 0.5, 12, act.LayersDirty)
		y += 4
	}
	return act
}

func (r *Renderer) sectionHeader(x, y float32, title string) float32 {
	return float32(r.DrawSectionHeader(int32(x), int32(y), title)) + 4
}

// slider draws a labeled slider bound to v and reports whether it moved.
func (c *ControlsPanel) slider(x, y, w float32, label string, v *float64, lo, hi float32, dirty bool) (float32, bool) {
	t := c.renderer.Theme
	rl.DrawText(label, int32(x), int32(y)+4, t.FontSize, t.LabelColor)
	lw := float32(t.LabelWidth)
	cur := float32(*v)
	next := gui.SliderBar(rl.Rectangle{X: x + lw, Y: y, Width: w - lw - 44, Height: 16}, "", "", cur, lo, hi)
	rl.DrawText(fmt.Sprintf("%.2f", cur), int32(x+w-40), int32(y)+4, t.FontSize, t.ValueColor)
	if next != cur {
		*v = float64(next)
		dirty = true
	}
	return y + rowHeight, dirty
}

// check draws a checkbox bound to v and reports whether it flipped.
func (c *ControlsPanel) check(x, y float32, label string, v *bool, dirty bool) (float32, bool) {
	next := gui.CheckBox(rl.Rectangle{X: x, Y: y + 2, Width: 14, Height: 14}, label, *v)
	if next != *v {
		*v = next
		dirty = true
	}
	return y + rowHeight, dirty
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}
