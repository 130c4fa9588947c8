package telemetry

import (
	"log/slog"
	"slices"
	"time"
)

// Phase identifies one stage of an engine frame.
type Phase int

// Frame phases in execution order.
const (
	PhaseConfig Phase = iota
	PhaseFlow
	PhasePhysics
	PhaseFragments
	PhaseRender
	PhasePost
	PhaseTelemetry
	NumPhases
)

var phaseNames = [NumPhases]string{"config", "flow", "physics", "fragments", "render", "post", "telemetry"}

func (p Phase) String() string {
	if p < 0 || p >= NumPhases {
		return "unknown"
	}
	return phaseNames[p]
}

// Phases lists every phase in frame order.
var Phases = []Phase{
	PhaseConfig, PhaseFlow, PhasePhysics, PhaseFragments,
	PhaseRender, PhasePost, PhaseTelemetry,
}

// PhaseTimes holds one duration per phase.
type PhaseTimes [NumPhases]time.Duration

// frameSample is the timing of one engine frame.
type frameSample struct {
	total  time.Duration
	phases PhaseTimes
}

// PerfCollector times engine frames over a rolling window. Samples live in
// a fixed ring so recording a frame allocates nothing.
type PerfCollector struct {
	budget  time.Duration
	ring    []frameSample
	next    int
	count   int
	current frameSample

	frameStart time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool

	// Present timing (viewer mode)
	lastPresent     time.Time
	presentInterval time.Duration
}

// NewPerfCollector creates a collector averaging over windowSize frames.
// Frames longer than budget count as slow; zero disables the check.
func NewPerfCollector(windowSize int, budget time.Duration) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		budget: budget,
		ring:   make([]frameSample, windowSize),
	}
}

// StartFrame begins timing a new engine frame.
func (p *PerfCollector) StartFrame() {
	p.frameStart = time.Now()
	p.current = frameSample{}
	p.inPhase = false
}

// StartPhase closes the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := time.Now()
	p.closePhase(now)
	p.phaseStart = now
	p.phase = phase
	p.inPhase = true
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.inPhase && p.phase >= 0 && p.phase < NumPhases {
		p.current.phases[p.phase] += now.Sub(p.phaseStart)
	}
	p.inPhase = false
}

// EndFrame finishes the current frame and records it.
func (p *PerfCollector) EndFrame() {
	now := time.Now()
	p.closePhase(now)
	p.current.total = now.Sub(p.frameStart)

	p.ring[p.next] = p.current
	p.next = (p.next + 1) % len(p.ring)
	if p.count < len(p.ring) {
		p.count++
	}
}

// Reset drops every recorded frame.
func (p *PerfCollector) Reset() {
	clear(p.ring)
	p.next = 0
	p.count = 0
	p.inPhase = false
}

// RecordPresent records the interval between presented frames.
func (p *PerfCollector) RecordPresent() {
	now := time.Now()
	if !p.lastPresent.IsZero() {
		p.presentInterval = now.Sub(p.lastPresent)
	}
	p.lastPresent = now
}

// PerfStats aggregates the frames in the window.
type PerfStats struct {
	Frames   int
	AvgFrame time.Duration
	MinFrame time.Duration
	MaxFrame time.Duration
	P95Frame time.Duration

	// SlowFrames counts frames over Budget.
	Budget     time.Duration
	SlowFrames int

	PhaseAvg PhaseTimes
	PhasePct [NumPhases]float64
	Slowest  Phase

	// FramesPerSecond is the engine throughput ignoring present waits.
	FramesPerSecond float64

	// Present timing (viewer mode)
	PresentInterval time.Duration
	FPS             float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		Frames:          p.count,
		Budget:          p.budget,
		PresentInterval: p.presentInterval,
	}
	if p.presentInterval > 0 {
		s.FPS = float64(time.Second) / float64(p.presentInterval)
	}
	if p.count == 0 {
		return s
	}

	totals := make([]time.Duration, p.count)
	var sum time.Duration
	var phaseSum PhaseTimes
	for i, f := range p.ring[:p.count] {
		totals[i] = f.total
		sum += f.total
		if p.budget > 0 && f.total > p.budget {
			s.SlowFrames++
		}
		for ph, d := range f.phases {
			phaseSum[ph] += d
		}
	}
	slices.Sort(totals)
	s.MinFrame = totals[0]
	s.MaxFrame = totals[len(totals)-1]
	s.P95Frame = totals[(len(totals)-1)*95/100]
	s.AvgFrame = sum / time.Duration(p.count)

	for ph := range NumPhases {
		s.PhaseAvg[ph] = phaseSum[ph] / time.Duration(p.count)
		if s.AvgFrame > 0 {
			s.PhasePct[ph] = float64(s.PhaseAvg[ph]) / float64(s.AvgFrame) * 100
		}
		if s.PhaseAvg[ph] > s.PhaseAvg[s.Slowest] {
			s.Slowest = ph
		}
	}
	if s.AvgFrame > 0 {
		s.FramesPerSecond = float64(time.Second) / float64(s.AvgFrame)
	}
	return s
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_frame_us", s.AvgFrame.Microseconds(),
		"p95_frame_us", s.P95Frame.Microseconds(),
		"max_frame_us", s.MaxFrame.Microseconds(),
		"frames_per_sec", int(s.FramesPerSecond),
		"slowest", s.Slowest.String(),
	}
	if s.Budget > 0 {
		attrs = append(attrs, "slow_frames", s.SlowFrames)
	}
	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}
	for _, ph := range Phases {
		if pct := s.PhasePct[ph]; pct > 0.1 {
			attrs = append(attrs, ph.String()+"_pct", int(pct*10)/10.0)
		}
	}
	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("frames", s.Frames),
		slog.Int64("avg_frame_us", s.AvgFrame.Microseconds()),
		slog.Int64("p95_frame_us", s.P95Frame.Microseconds()),
		slog.Int("slow_frames", s.SlowFrames),
		slog.String("slowest", s.Slowest.String()),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, ph := range Phases {
		attrs = append(attrs, slog.Float64(ph.String()+"_pct", s.PhasePct[ph]))
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Frame        int     `csv:"frame"`
	AvgFrameUS   int64   `csv:"avg_frame_us"`
	MinFrameUS   int64   `csv:"min_frame_us"`
	MaxFrameUS   int64   `csv:"max_frame_us"`
	P95FrameUS   int64   `csv:"p95_frame_us"`
	SlowFrames   int     `csv:"slow_frames"`
	FPS          float64 `csv:"fps"`
	ConfigPct    float64 `csv:"config_pct"`
	FlowPct      float64 `csv:"flow_pct"`
	PhysicsPct   float64 `csv:"physics_pct"`
	FragmentsPct float64 `csv:"fragments_pct"`
	RenderPct    float64 `csv:"render_pct"`
	PostPct      float64 `csv:"post_pct"`
	TelemetryPct float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the stats into one CSV row tagged with frame.
func (s PerfStats) ToCSV(frame int) PerfStatsCSV {
	return PerfStatsCSV{
		Frame:        frame,
		AvgFrameUS:   s.AvgFrame.Microseconds(),
		MinFrameUS:   s.MinFrame.Microseconds(),
		MaxFrameUS:   s.MaxFrame.Microseconds(),
		P95FrameUS:   s.P95Frame.Microseconds(),
		SlowFrames:   s.SlowFrames,
		FPS:          s.FPS,
		ConfigPct:    s.PhasePct[PhaseConfig],
		FlowPct:      s.PhasePct[PhaseFlow],
		PhysicsPct:   s.PhasePct[PhasePhysics],
		FragmentsPct: s.PhasePct[PhaseFragments],
		RenderPct:    s.PhasePct[PhaseRender],
		PostPct:      s.PhasePct[PhasePost],
		TelemetryPct: s.PhasePct[PhaseTelemetry],
	}
}
