package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/pthm-cable/particles/config"
)

// Band split points in Hz.
const (
	minBandHz  = 30
	bassMaxHz  = 250
	midMaxHz   = 2000
	chunkFrame = 512
)

// ErrUnsupportedFormat is returned by Open for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Analysis is one frame of audio band magnitudes, each in [0,1].
type Analysis struct {
	Bands  []float64
	Bass   float64
	Mid    float64
	Treble float64
	Energy float64
}

// Clone returns a deep copy of a.
func (a *Analysis) Clone() *Analysis {
	if a == nil {
		return nil
	}
	c := *a
	c.Bands = append([]float64(nil), a.Bands...)
	return &c
}

// Analyzer pulls samples from a stream at simulation pace and reduces the
// latest window to log-spaced frequency bands.
type Analyzer struct {
	tap  *tap
	rate beep.SampleRate
	cfg  config.AudioConfig

	fft    *fourier.FFT
	hann   []float64
	window []float64
	coeffs []complex128

	edges  []int     // FFT bin range of each band: [edges[i], edges[i+1])
	center []float64 // band center frequency (Hz)
	smooth []float64

	scratch [][2]float64
	closer  io.Closer
	done    bool
}

// NewAnalyzer analyzes src, sampled at rate.
func NewAnalyzer(src beep.Streamer, rate beep.SampleRate, cfg config.AudioConfig) *Analyzer {
	n := cfg.WindowSize
	if n < 64 {
		n = 2048
	}
	// Round down to a power of two
	n = 1 << (bits(n) - 1)
	bands := max(cfg.Bands, 1)

	a := &Analyzer{
		tap:     newTap(src, n),
		rate:    rate,
		cfg:     cfg,
		fft:     fourier.NewFFT(n),
		hann:    make([]float64, n),
		window:  make([]float64, n),
		smooth:  make([]float64, bands),
		scratch: make([][2]float64, chunkFrame),
	}
	for i := range a.hann {
		a.hann[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	a.layoutBands(bands)
	return a
}

func bits(n int) int {
	b := 0
	for n > 0 {
		n >>= 1
		b++
	}
	return b
}

// layoutBands spaces band edges logarithmically from minBandHz to Nyquist.
func (a *Analyzer) layoutBands(bands int) {
	n := len(a.hann)
	bins := n / 2
	nyquist := float64(a.rate) / 2
	lo := math.Log(minBandHz)
	hi := math.Log(math.Max(nyquist, minBandHz*2))

	a.edges = make([]int, bands+1)
	a.center = make([]float64, bands)
	a.edges[0] = max(1, int(minBandHz*float64(n)/float64(a.rate)))
	for i := 1; i <= bands; i++ {
		hz := math.Exp(lo + (hi-lo)*float64(i)/float64(bands))
		e := int(hz * float64(n) / float64(a.rate))
		a.edges[i] = min(max(e, a.edges[i-1]+1), bins+1)
	}
	for i := range a.center {
		mid := float64(a.edges[i]+a.edges[i+1]) / 2
		a.center[i] = mid * float64(a.rate) / float64(n)
	}
}

// Advance streams dt worth of samples. It returns io.EOF once the stream
// is exhausted and any stream error otherwise.
func (a *Analyzer) Advance(dt time.Duration) error {
	if a.done {
		return io.EOF
	}
	need := a.rate.N(dt)
	for need > 0 {
		chunk := a.scratch[:min(need, len(a.scratch))]
		n, ok := a.tap.Stream(chunk)
		need -= n
		if !ok {
			a.done = true
			if err := a.tap.Err(); err != nil {
				return fmt.Errorf("streaming audio: %w", err)
			}
			return io.EOF
		}
	}
	return nil
}

// Done reports whether the stream has ended.
func (a *Analyzer) Done() bool {
	return a.done
}

// Analysis computes the bands of the most recent window.
func (a *Analyzer) Analysis() *Analysis {
	a.tap.mono(a.window)
	for i := range a.window {
		a.window[i] *= a.hann[i]
	}
	a.coeffs = a.fft.Coefficients(a.coeffs, a.window)

	// A full-scale sine peaks at n/4 under the Hann window
	norm := 4 / float64(len(a.window))
	comp := a.cfg.Compression
	if comp <= 0 {
		comp = 1
	}
	s := math.Min(math.Max(a.cfg.Smoothing, 0), 0.99)

	out := &Analysis{Bands: make([]float64, len(a.smooth))}
	var bass, mid, treble [2]float64 // sum, count
	for b := range out.Bands {
		var peak float64
		for k := a.edges[b]; k < a.edges[b+1] && k < len(a.coeffs); k++ {
			re, im := real(a.coeffs[k]), imag(a.coeffs[k])
			peak = math.Max(peak, math.Sqrt(re*re+im*im)*norm)
		}
		v := math.Min(math.Pow(peak, comp), 1)
		a.smooth[b] = a.smooth[b]*s + v*(1-s)
		v = a.smooth[b]
		out.Bands[b] = v
		out.Energy += v

		switch c := a.center[b]; {
		case c < bassMaxHz:
			bass[0] += v
			bass[1]++
		case c < midMaxHz:
			mid[0] += v
			mid[1]++
		default:
			treble[0] += v
			treble[1]++
		}
	}
	out.Energy /= float64(len(out.Bands))
	out.Bass = mean(bass)
	out.Mid = mean(mid)
	out.Treble = mean(treble)
	return out
}

func mean(acc [2]float64) float64 {
	if acc[1] == 0 {
		return 0
	}
	return acc[0] / acc[1]
}

// Close closes the underlying decoder when the analyzer owns one.
func (a *Analyzer) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Open decodes a wav or mp3 file and returns an analyzer over it.
func Open(path string, cfg config.AudioConfig) (*Analyzer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	a := NewAnalyzer(streamer, format.SampleRate, cfg)
	a.closer = streamer
	return a, nil
}
