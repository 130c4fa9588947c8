package renderer

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/pthm-cable/particles/config"
)

// lutSize is the number of precomputed entries per palette.
const lutSize = 64

// gradientAgeSpan is the age in seconds a gradient by age reaches its end.
const gradientAgeSpan = 4

var schemes = map[config.SchemeName][]string{
	config.SchemeFire:   {"#3a0000", "#ff2200", "#ff8800", "#ffee88"},
	config.SchemeIce:    {"#0a1a3a", "#2266cc", "#88ccff", "#ffffff"},
	config.SchemeAurora: {"#00ff99", "#00ccff", "#8844ff", "#ff44cc"},
	config.SchemeSunset: {"#2b1055", "#d53369", "#ff7e5f", "#feb47b"},
	config.SchemeNeon:   {"#ff00ff", "#00ffff", "#ffff00", "#00ff66"},
	config.SchemeMono:   {"#202020", "#808080", "#ffffff"},
}

type rgb struct{ r, g, b float32 }

func toRGB(c colorful.Color) rgb {
	c = c.Clamped()
	return rgb{float32(c.R), float32(c.G), float32(c.B)}
}

// Palette is a layer's color mode resolved into a lookup table.
type Palette struct {
	mode      config.ColorMode
	by        config.GradientBy
	lut       [lutSize]rgb
	transform rgb // color of transformed particles
}

// NewPalette builds the palette for a layer's appearance settings.
func NewPalette(a *config.AppearanceParams) *Palette {
	p := &Palette{mode: a.ColorMode, by: a.GradientBy}
	base := config.ParseColor(a.Color)

	var stops []colorful.Color
	switch a.ColorMode {
	case config.ColorGradient:
		stops = []colorful.Color{base, secondary(a, base)}
		if a.ColorTertiary != "" {
			stops = append(stops, config.ParseColor(a.ColorTertiary))
		}
	case config.ColorScheme:
		name := a.ColorScheme
		if !name.Valid() {
			name = config.SchemeFire
		}
		for _, hex := range schemes[name] {
			stops = append(stops, config.ParseColor(hex))
		}
	case config.ColorRange:
		p.fillRange(a, base)
	default:
		stops = []colorful.Color{base}
	}
	if stops != nil {
		for i := range p.lut {
			p.lut[i] = toRGB(sampleStops(stops, float64(i)/(lutSize-1)))
		}
	}
	p.transform = toRGB(secondary(a, base))
	return p
}

// secondary returns the second color, or the complement of base.
func secondary(a *config.AppearanceParams, base colorful.Color) colorful.Color {
	if a.ColorSecondary != "" {
		return config.ParseColor(a.ColorSecondary)
	}
	h, s, l := base.Hsl()
	return colorful.Hsl(math.Mod(h+180, 360), s, l)
}

// fillRange interpolates hue, saturation and lightness between the range ends.
func (p *Palette) fillRange(a *config.AppearanceParams, base colorful.Color) {
	start := base
	if a.ColorRangeStart != "" {
		start = config.ParseColor(a.ColorRangeStart)
	}
	end := secondary(a, base)
	if a.ColorRangeEnd != "" {
		end = config.ParseColor(a.ColorRangeEnd)
	}
	h1, s1, l1 := start.Hsl()
	h2, s2, l2 := end.Hsl()
	for i := range p.lut {
		t := float64(i) / (lutSize - 1)
		p.lut[i] = toRGB(colorful.Hsl(h1+(h2-h1)*t, s1+(s2-s1)*t, l1+(l2-l1)*t))
	}
}

func sampleStops(stops []colorful.Color, t float64) colorful.Color {
	if len(stops) == 1 {
		return stops[0]
	}
	seg := t * float64(len(stops)-1)
	i := int(seg)
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	return stops[i].BlendLab(stops[i+1], seg-float64(i))
}

// Color returns the color of a particle given its age, vertical position
// in [0,1] and per-particle phase.
func (p *Palette) Color(age, y, phase float32, transformed bool) rgb {
	if transformed {
		return p.transform
	}
	var t float32
	switch p.mode {
	case config.ColorSingle:
		return p.lut[0]
	case config.ColorGradient:
		if p.by == config.GradientByPosition {
			t = y
		} else {
			t = age / gradientAgeSpan
		}
	default:
		t = phase
	}
	i := int(t * (lutSize - 1))
	if i < 0 {
		i = 0
	} else if i >= lutSize {
		i = lutSize - 1
	}
	return p.lut[i]
}
