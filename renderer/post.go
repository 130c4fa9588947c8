package renderer

import (
	"image"

	"github.com/pthm-cable/particles/config"
)

// Post applies the global post chain to fb and writes the 8-bit result to
// dst, which must match fb's size. The order is exposure, threshold,
// monochrome, invert. A threshold of zero disables the threshold stage.
func Post(fb *FrameBuffer, g *config.GlobalConfig, dst *image.RGBA) {
	exposure := float32(g.Exposure)
	th := float32(g.Threshold)
	soft := float32(g.ThresholdSoft)
	gain := float32(g.ThresholdGain)

	for y := 0; y < fb.H; y++ {
		src := fb.Pix[3*y*fb.W : 3*(y+1)*fb.W]
		out := dst.Pix[dst.PixOffset(0, y):]
		for x := 0; x < fb.W; x++ {
			r := src[3*x] * exposure
			gr := src[3*x+1] * exposure
			b := src[3*x+2] * exposure

			if th > 0 {
				r, gr, b = r*gain, gr*gain, b*gain
				k := thresholdWeight(luma(r, gr, b), th, soft)
				r, gr, b = r*k, gr*k, b*k
			}
			if g.Monochrome {
				l := luma(r, gr, b)
				r, gr, b = l, l, l
			}
			r, gr, b = clamp01(r), clamp01(gr), clamp01(b)
			if g.Invert {
				r, gr, b = 1-r, 1-gr, 1-b
			}

			o := out[4*x : 4*x+4]
			o[0] = uint8(r*255 + 0.5)
			o[1] = uint8(gr*255 + 0.5)
			o[2] = uint8(b*255 + 0.5)
			o[3] = 255
		}
	}
}

// thresholdWeight is a hard cutoff at th, softened over +-soft.
func thresholdWeight(v, th, soft float32) float32 {
	if soft <= 0 {
		if v >= th {
			return 1
		}
		return 0
	}
	t := clamp01((v - (th - soft)) / (2 * soft))
	return t * t * (3 - 2*t)
}

func luma(r, g, b float32) float32 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
