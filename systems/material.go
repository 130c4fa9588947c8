package systems

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/pthm-cable/particles/config"
)

// MaterialTable resolves mask pixels to material presets for one layer.
type MaterialTable struct {
	Mode    config.MaterialMode
	Presets []config.MaterialPreset
	colors  []colorful.Color
}

// NewMaterialTable parses a layer's palette colors once.
func NewMaterialTable(mode config.MaterialMode, palette []config.MaterialPreset) *MaterialTable {
	t := &MaterialTable{Mode: mode, Presets: palette, colors: make([]colorful.Color, len(palette))}
	for i, p := range palette {
		t.colors[i] = config.ParseColor(p.Color)
	}
	return t
}

// Resolve returns the material for a contact with a mask pixel of the given
// color. ok is false in binary mode or when the palette is empty.
func (t *MaterialTable) Resolve(r, g, b uint8) (config.MaterialPreset, bool) {
	switch t.Mode {
	case config.MaterialPalette:
		if len(t.Presets) == 0 {
			return config.MaterialPreset{}, false
		}
		px := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
		best, bestDist := 0, px.DistanceLab(t.colors[0])
		for i := 1; i < len(t.colors); i++ {
			if d := px.DistanceLab(t.colors[i]); d < bestDist {
				best, bestDist = i, d
			}
		}
		return t.Presets[best], true

	case config.MaterialRGBParams:
		// Channels drive the response directly; fragments and decay come
		// from the first palette entry when present
		m := config.MaterialPreset{ID: "rgb", Name: "RGB"}
		if len(t.Presets) > 0 {
			base := t.Presets[0]
			m.FragmentCount = base.FragmentCount
			m.FragmentLifespan = base.FragmentLifespan
			m.DecayRate = base.DecayRate
		}
		m.Response.Deflect = float64(r) / 255
		m.Response.Stick = float64(g) / 255
		m.Response.PassThrough = float64(b) / 255
		m.Color = colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}.Hex()
		return m, true
	}
	return config.MaterialPreset{}, false
}
