package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/particles/systems"
)

// FrameStats is one layer's state sampled at the end of a stats window.
type FrameStats struct {
	Frame      int     `csv:"frame"`
	SimTimeSec float64 `csv:"sim_time"`
	Layer      string  `csv:"layer"`
	Name       string  `csv:"name"`

	// Population at sample time
	Alive       int `csv:"alive"`
	Stuck       int `csv:"stuck"`
	Transformed int `csv:"transformed"`
	Captured    int `csv:"captured"`

	// Speed distribution (px/s)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	// Surface field totals
	DepositTotal float64 `csv:"deposit_total"`
	SmearTotal   float64 `csv:"smear_total"`

	// Live fragments across all layers
	Fragments int `csv:"fragments"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeSpeedStats returns the mean, sample standard deviation, and the
// median and 90th percentile of values. values is sorted in place.
func ComputeSpeedStats(values []float64) (mean, std, p50, p90 float64) {
	switch len(values) {
	case 0:
		return 0, 0, 0, 0
	case 1:
		return values[0], 0, values[0], values[0]
	}
	mean, std = stat.MeanStdDev(values, nil)
	sort.Float64s(values)
	p50 = Percentile(values, 0.50)
	p90 = Percentile(values, 0.90)
	return mean, std, p50, p90
}

// SampleLayer summarizes a layer's particles. speeds is scratch space
// reused between calls and returned.
func SampleLayer(ls *systems.LayerState, speeds []float64) (FrameStats, []float64) {
	b := ls.Buf
	s := FrameStats{
		Layer: ls.Config.ID,
		Name:  ls.Config.Name,
	}
	speeds = speeds[:0]
	for i := range b.X {
		if !b.Alive[i] {
			continue
		}
		s.Alive++
		if b.Stuck[i] {
			s.Stuck++
		}
		if b.Transformed[i] {
			s.Transformed++
		}
		if b.Captured[i] != systems.NoCapture {
			s.Captured++
		}
		speeds = append(speeds, math.Hypot(float64(b.VX[i]), float64(b.VY[i])))
	}
	s.SpeedMean, s.SpeedStd, s.SpeedP50, s.SpeedP90 = ComputeSpeedStats(speeds)
	s.DepositTotal = float64(ls.Surface.Deposit.Total())
	s.SmearTotal = float64(ls.Surface.Smear.Total())
	return s, speeds
}

// LogValue implements slog.LogValuer for structured logging.
func (s FrameStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("frame", s.Frame),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.String("layer", s.Layer),
		slog.String("name", s.Name),
		slog.Int("alive", s.Alive),
		slog.Int("stuck", s.Stuck),
		slog.Int("transformed", s.Transformed),
		slog.Int("captured", s.Captured),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("deposit_total", s.DepositTotal),
		slog.Int("fragments", s.Fragments),
	)
}

// LogStats logs the frame stats using slog.
func (s FrameStats) LogStats() {
	slog.Info("stats", "layer", s)
}
