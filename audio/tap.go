// Package audio decodes audio files and reduces recently played samples to
// frequency band magnitudes that drive audio-reactive rendering.
package audio

import (
	"sync"

	"github.com/gopxl/beep"
)

// tap wraps a beep.Streamer and records the last samples into a ring
// buffer so the analyzer can inspect recently streamed audio.
type tap struct {
	Source    beep.Streamer
	buffer    [][2]float64
	nextIndex int
	filled    int
	mu        sync.RWMutex
}

func newTap(src beep.Streamer, ringSize int) *tap {
	return &tap{
		Source: src,
		buffer: make([][2]float64, ringSize),
	}
}

func (t *tap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.Source.Stream(samples)
	if n > 0 {
		t.mu.Lock()
		for i := 0; i < n; i++ {
			t.buffer[t.nextIndex] = samples[i]
			t.nextIndex++
			if t.nextIndex >= len(t.buffer) {
				t.nextIndex = 0
			}
		}
		t.filled = min(t.filled+n, len(t.buffer))
		t.mu.Unlock()
	}
	return n, ok
}

func (t *tap) Err() error { return t.Source.Err() }

// mono writes the most recent len(dst) samples, averaged across channels,
// in chronological order. Slots not yet streamed read as silence.
func (t *tap) mono(dst []float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := len(dst)
	idx := t.nextIndex - 1
	for i := n - 1; i >= 0; i-- {
		if n-1-i >= t.filled {
			dst[i] = 0
			continue
		}
		if idx < 0 {
			idx = len(t.buffer) - 1
		}
		s := t.buffer[idx]
		dst[i] = (s[0] + s[1]) / 2
		idx--
	}
}
