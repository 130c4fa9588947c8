package config

import (
	"github.com/lucasb-eyer/go-colorful"
)

// ParseColor parses a #rrggbb or #rgb hex color. Invalid input yields white.
func ParseColor(hex string) colorful.Color {
	if len(hex) == 4 && hex[0] == '#' {
		hex = string([]byte{'#', hex[1], hex[1], hex[2], hex[2], hex[3], hex[3]})
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{R: 1, G: 1, B: 1}
	}
	return c
}
