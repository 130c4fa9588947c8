package renderer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

const captionFontSize = 14

// NewImage allocates an output image matching fb.
func NewImage(fb *FrameBuffer) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, fb.W, fb.H))
}

// PNGDataURI encodes img as a data:image/png;base64 URI.
func PNGDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encoding png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Caption draws text in the bottom-left corner of img.
func Caption(img *image.RGBA, text string) error {
	if text == "" {
		return nil
	}
	ttf, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse font: %w", err)
	}
	face := truetype.NewFace(ttf, &truetype.Options{
		Size:    captionFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	defer face.Close()

	dc := gg.NewContextForRGBA(img)
	dc.SetFontFace(face)
	h := float64(img.Bounds().Dy())

	// Shadow first so the text reads on bright frames
	dc.SetColor(color.Black)
	dc.DrawString(text, 9, h-9)
	dc.SetColor(color.White)
	dc.DrawString(text, 8, h-10)
	return nil
}
