package audio

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep"

	"github.com/pthm-cable/particles/config"
)

const testRate = beep.SampleRate(44100)

func testConfig() config.AudioConfig {
	return config.AudioConfig{WindowSize: 2048, Bands: 16, Compression: 0.3, Smoothing: 0}
}

// sine streams a full-scale tone for total samples, then ends.
func sine(hz float64, total int) beep.Streamer {
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= total {
			return 0, false
		}
		n := min(len(samples), total-pos)
		for i := 0; i < n; i++ {
			v := math.Sin(2 * math.Pi * hz * float64(pos+i) / float64(testRate))
			samples[i] = [2]float64{v, v}
		}
		pos += n
		return n, true
	})
}

func TestAnalysisSeparatesBands(t *testing.T) {
	tests := []struct {
		name  string
		hz    float64
		check func(a *Analysis) bool
	}{
		{"low tone", 100, func(a *Analysis) bool { return a.Bass > 2*a.Treble && a.Bass > a.Mid }},
		{"mid tone", 800, func(a *Analysis) bool { return a.Mid > a.Bass && a.Mid > a.Treble }},
		{"high tone", 8000, func(a *Analysis) bool { return a.Treble > 2*a.Bass }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			an := NewAnalyzer(sine(tt.hz, int(testRate)), testRate, testConfig())
			if err := an.Advance(100 * time.Millisecond); err != nil {
				t.Fatal(err)
			}
			a := an.Analysis()
			if len(a.Bands) != 16 {
				t.Fatalf("got %d bands, want 16", len(a.Bands))
			}
			if !tt.check(a) {
				t.Errorf("bass=%.3f mid=%.3f treble=%.3f", a.Bass, a.Mid, a.Treble)
			}
			for i, v := range a.Bands {
				if v < 0 || v > 1 {
					t.Errorf("band %d = %v outside [0,1]", i, v)
				}
			}
		})
	}
}

func TestAnalysisSilence(t *testing.T) {
	an := NewAnalyzer(sine(440, 0), testRate, testConfig())
	a := an.Analysis()
	if a.Energy != 0 || a.Bass != 0 {
		t.Errorf("silence energy=%v bass=%v, want 0", a.Energy, a.Bass)
	}
}

func TestAdvanceReportsEOF(t *testing.T) {
	an := NewAnalyzer(sine(440, 1000), testRate, testConfig())
	err := an.Advance(time.Second)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Advance past the end = %v, want io.EOF", err)
	}
	if !an.Done() {
		t.Error("analyzer should report done")
	}
	// The tail of the stream is still analyzable
	if a := an.Analysis(); a.Energy <= 0 {
		t.Error("expected energy from the streamed samples")
	}
}

func TestSmoothingLagsChanges(t *testing.T) {
	cfg := testConfig()
	cfg.Smoothing = 0.6
	an := NewAnalyzer(sine(100, int(testRate)), testRate, cfg)
	if err := an.Advance(100 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	first := an.Analysis().Bass
	second := an.Analysis().Bass
	if !(second > first) {
		t.Errorf("smoothed bass should rise toward the steady value: %v then %v", first, second)
	}
}

func TestCloneIsDeep(t *testing.T) {
	a := &Analysis{Bands: []float64{0.5}, Bass: 0.5}
	c := a.Clone()
	c.Bands[0] = 1
	if a.Bands[0] != 0.5 {
		t.Error("clone shares the band slice")
	}
	if (*Analysis)(nil).Clone() != nil {
		t.Error("nil clone should stay nil")
	}
}

func TestOpenRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.ogg")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path, testConfig()); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Open(.ogg) = %v, want ErrUnsupportedFormat", err)
	}
}
