package systems

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/pthm-cable/particles/config"
)

// MaxMaskSide bounds the working resolution of decoded masks.
const MaxMaskSide = 1024

// ErrMaskURL is returned for mask references that cannot be resolved.
var ErrMaskURL = errors.New("unsupported mask url")

// Mask is a decoded mask image resampled to a bounded working resolution.
type Mask struct {
	URL  string
	W, H int
	Lum  []float32 // luminance in [0,1]
	RGB  []uint8   // packed r,g,b per pixel
}

// NewMaskFromImage resamples img so its longer side is at most maxSide.
func NewMaskFromImage(img image.Image, maxSide int) *Mask {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return &Mask{W: 1, H: 1, Lum: []float32{1}, RGB: []uint8{255, 255, 255}}
	}
	if maxSide > 0 && (w > maxSide || h > maxSide) {
		if w >= h {
			h = max(1, h*maxSide/w)
			w = maxSide
		} else {
			w = max(1, w*maxSide/h)
			h = maxSide
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// Transparent pixels read as white (empty)
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	m := &Mask{W: w, H: h, Lum: make([]float32, w*h), RGB: make([]uint8, 3*w*h)}
	for i := 0; i < w*h; i++ {
		r, g, bl := dst.Pix[4*i], dst.Pix[4*i+1], dst.Pix[4*i+2]
		m.RGB[3*i], m.RGB[3*i+1], m.RGB[3*i+2] = r, g, bl
		m.Lum[i] = (0.2126*float32(r) + 0.7152*float32(g) + 0.0722*float32(bl)) / 255
	}
	return m
}

// DecodeMask decodes any registered image format into a mask.
func DecodeMask(r io.Reader) (*Mask, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding mask: %w", err)
	}
	return NewMaskFromImage(img, MaxMaskSide), nil
}

// LoadMask resolves a mask reference: a data URI, an http(s) URL, a file://
// URL or a plain file path.
func LoadMask(ctx context.Context, url string) (*Mask, error) {
	var r io.Reader
	switch {
	case url == "":
		return nil, ErrMaskURL
	case strings.HasPrefix(url, "data:"):
		comma := strings.IndexByte(url, ',')
		if comma < 0 || !strings.Contains(url[:comma], ";base64") {
			return nil, fmt.Errorf("%w: data uri must be base64", ErrMaskURL)
		}
		data, err := base64.StdEncoding.DecodeString(url[comma+1:])
		if err != nil {
			return nil, fmt.Errorf("decoding data uri: %w", err)
		}
		r = bytes.NewReader(data)
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("building mask request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching mask: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching mask: status %s", resp.Status)
		}
		r = resp.Body
	default:
		f, err := os.Open(strings.TrimPrefix(url, "file://"))
		if err != nil {
			return nil, fmt.Errorf("opening mask: %w", err)
		}
		defer f.Close()
		r = f
	}

	m, err := DecodeMask(r)
	if err != nil {
		return nil, err
	}
	m.URL = url
	return m, nil
}

// maskKey captures the layer parameters a MaskView depends on.
type maskKey struct {
	mask      *Mask
	w, h      float32
	transform config.MaskTransform
	invert    bool
	threshold float64
	radius    float64
}

// MaskView is a mask placed on a particular canvas with a layer's
// transform, invert and threshold applied.
type MaskView struct {
	Mask *Mask

	// Coverage is the soft mask coverage on a coarse grid.
	// Soft is Coverage blurred over the magnetism radius.
	Coverage *Grid
	Soft     *Grid

	key       maskKey
	threshold float32

	// Inverse affine map from centered canvas UV to centered mask UV
	a, b, c, d float32
	tx, ty     float32
}

// NewMaskView places m on a w x h canvas using the layer's mask parameters.
func NewMaskView(m *Mask, l *config.LayerConfig, w, h float32, gridW, gridH int) *MaskView {
	v := &MaskView{Mask: m, key: newMaskKey(m, l, w, h)}
	v.threshold = float32(math.Max(l.MaskThreshold, 1e-3))

	t := l.MaskTransform
	sin, cos := sincos(t.Rotation)
	scale := float32(t.Scale)
	if scale <= 0 {
		scale = 1
	}
	// Forward: p' = S * K * R * p, with R rotation, K skew, S uniform scale
	kx, ky := float32(t.SkewX), float32(t.SkewY)
	fa := scale * (cos + kx*sin)
	fb := scale * (-sin + kx*cos)
	fc := scale * (ky*cos + sin)
	fd := scale * (-ky*sin + cos)
	det := fa*fd - fb*fc
	if math.Abs(float64(det)) < 1e-6 {
		det = 1e-6
	}
	v.a, v.b, v.c, v.d = fd/det, -fb/det, -fc/det, fa/det
	v.tx, v.ty = float32(t.X), float32(t.Y)

	v.Coverage = NewGrid(gridW, gridH, w, h)
	for gy := 0; gy < gridH; gy++ {
		y := (float32(gy) + 0.5) / float32(gridH) * h
		for gx := 0; gx < gridW; gx++ {
			x := (float32(gx) + 0.5) / float32(gridW) * w
			v.Coverage.Data[gy*gridW+gx] = v.Value(x, y)
		}
	}

	v.Soft = NewGrid(gridW, gridH, w, h)
	copy(v.Soft.Data, v.Coverage.Data)
	radius := int(math.Ceil(l.MaskMagnetismRadius * float64(gridW)))
	v.Soft.BoxBlur(radius, make([]float32, gridW*gridH))
	return v
}

func newMaskKey(m *Mask, l *config.LayerConfig, w, h float32) maskKey {
	return maskKey{
		mask:      m,
		w:         w,
		h:         h,
		transform: l.MaskTransform,
		invert:    l.MaskInvert,
		threshold: l.MaskThreshold,
		radius:    l.MaskMagnetismRadius,
	}
}

// Matches reports whether the view is current for m and the layer's settings.
func (v *MaskView) Matches(m *Mask, l *config.LayerConfig, w, h float32) bool {
	return v != nil && v.key == newMaskKey(m, l, w, h)
}

// pixel maps a canvas position to the mask pixel index, or -1 outside.
func (v *MaskView) pixel(x, y float32) int {
	pu := x/v.key.w - 0.5 - v.tx
	pv := y/v.key.h - 0.5 - v.ty
	u := v.a*pu + v.b*pv + 0.5
	w := v.c*pu + v.d*pv + 0.5
	if u < 0 || u >= 1 || w < 0 || w >= 1 {
		return -1
	}
	px := int(u * float32(v.Mask.W))
	py := int(w * float32(v.Mask.H))
	return py*v.Mask.W + px
}

// Value returns mask coverage at a canvas position in [0,1]. Outside the
// placed image the coverage is zero.
func (v *MaskView) Value(x, y float32) float32 {
	i := v.pixel(x, y)
	if i < 0 {
		return 0
	}
	if v.key.invert {
		return 1 - v.Mask.Lum[i]
	}
	return v.Mask.Lum[i]
}

// Solid reports whether a canvas position is inside the mask region.
func (v *MaskView) Solid(x, y float32) bool {
	return v.Value(x, y) >= v.threshold
}

// Edge reports whether a solid position borders a non-solid one within r pixels.
func (v *MaskView) Edge(x, y, r float32) bool {
	if !v.Solid(x, y) {
		return false
	}
	return !v.Solid(x+r, y) || !v.Solid(x-r, y) || !v.Solid(x, y+r) || !v.Solid(x, y-r)
}

// Color returns the mask image color at a canvas position.
func (v *MaskView) Color(x, y float32) (r, g, b uint8) {
	i := v.pixel(x, y)
	if i < 0 {
		return 255, 255, 255
	}
	return v.Mask.RGB[3*i], v.Mask.RGB[3*i+1], v.Mask.RGB[3*i+2]
}

// Normal returns the unit surface normal at a canvas position, pointing
// out of the solid region. ok is false where the coverage is flat.
func (v *MaskView) Normal(x, y float32) (nx, ny float32, ok bool) {
	gx, gy := v.Coverage.Gradient(x, y)
	m := velocityMagnitude(gx, gy)
	if m < 1e-6 {
		return 0, 0, false
	}
	return -gx / m, -gy / m, true
}

// Pull returns the gradient of the blurred coverage, pointing toward the mask.
func (v *MaskView) Pull(x, y float32) (float32, float32) {
	return v.Soft.Gradient(x, y)
}
