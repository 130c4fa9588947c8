package engine

import (
	"sync"
	"time"
)

// FrameDriver invokes a callback once per display frame until stopped.
// After Stop returns no new invocation may begin.
type FrameDriver interface {
	Start(frame func())
	Stop()
}

// TickerDriver drives frames from a time.Ticker on its own goroutine.
type TickerDriver struct {
	Interval time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	stopped bool
}

// NewTickerDriver returns a driver ticking fps times per second.
func NewTickerDriver(fps int) *TickerDriver {
	if fps <= 0 {
		fps = 60
	}
	return &TickerDriver{Interval: time.Second / time.Duration(fps)}
}

// Start begins ticking. Calling Start on a running driver is a no-op.
func (d *TickerDriver) Start(frame func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil && !d.stopped {
		return
	}
	d.stop = make(chan struct{})
	d.stopped = false
	go d.loop(d.stop, frame)
}

func (d *TickerDriver) loop(stop <-chan struct{}, frame func()) {
	t := time.NewTicker(d.Interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if !d.running() {
				return
			}
			frame()
		}
	}
}

func (d *TickerDriver) running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.stopped
}

// Stop halts the ticker. It is safe to call more than once.
func (d *TickerDriver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop == nil || d.stopped {
		return
	}
	d.stopped = true
	close(d.stop)
}
