package telemetry

// Collector decides when a stats window closes and counts the frames and
// particle re-seeds that happened inside it.
type Collector struct {
	windowSec   float64
	windowStart float64

	frames  int
	resets  int
	resizes int
}

// WindowSummary holds the event counts of one closed window.
type WindowSummary struct {
	StartSec float64
	EndSec   float64
	Frames   int
	Resets   int
	Resizes  int
}

// NewCollector creates a collector with windows of windowSec simulated
// seconds. Non-positive windows default to one second.
func NewCollector(windowSec float64) *Collector {
	if windowSec <= 0 {
		windowSec = 1
	}
	return &Collector{windowSec: windowSec}
}

// RecordFrame counts one simulated frame.
func (c *Collector) RecordFrame() {
	c.frames++
}

// RecordReset counts a full re-seed of every layer.
func (c *Collector) RecordReset() {
	c.resets++
}

// RecordResize counts a canvas reallocation.
func (c *Collector) RecordResize() {
	c.resizes++
}

// ShouldFlush reports whether the window containing simTime has closed.
func (c *Collector) ShouldFlush(simTime float64) bool {
	return simTime-c.windowStart >= c.windowSec
}

// Flush closes the current window at simTime and starts the next one.
func (c *Collector) Flush(simTime float64) WindowSummary {
	w := WindowSummary{
		StartSec: c.windowStart,
		EndSec:   simTime,
		Frames:   c.frames,
		Resets:   c.resets,
		Resizes:  c.resizes,
	}
	c.windowStart = simTime
	c.frames, c.resets, c.resizes = 0, 0, 0
	return w
}

// Restart rewinds the window after the simulation clock resets.
func (c *Collector) Restart() {
	c.windowStart = 0
}
