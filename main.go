package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/particles/audio"
	"github.com/pthm-cable/particles/config"
	"github.com/pthm-cable/particles/engine"
	"github.com/pthm-cable/particles/scene"
	"github.com/pthm-cable/particles/telemetry"
)

type options struct {
	headless      bool
	frames        int
	fps           int
	outDir        string
	seed          int64
	audioPath     string
	caption       string
	snapshotEvery int
	logStats      bool
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	scenePath := flag.String("scene", "", "Scene JSON to load (empty = default layers)")
	var opts options
	flag.BoolVar(&opts.headless, "headless", false, "Run without graphics")
	flag.IntVar(&opts.frames, "frames", 0, "Stop after N frames (0 = unlimited)")
	flag.IntVar(&opts.fps, "fps", 0, "Simulation frames per second (0 = use config)")
	flag.StringVar(&opts.outDir, "out-dir", "", "Output directory for frames, CSV logs and config snapshot")
	flag.Int64Var(&opts.seed, "seed", 0, "RNG seed (0 = config, then time-based)")
	flag.StringVar(&opts.audioPath, "audio", "", "WAV or MP3 file driving audio modulation")
	flag.StringVar(&opts.caption, "caption", "", "Caption drawn on screenshots")
	flag.IntVar(&opts.snapshotEvery, "snapshot-every", 0, "Write a PNG every N frames in headless mode (0 = last frame only)")
	flag.BoolVar(&opts.logStats, "log-stats", false, "Output stats via slog")
	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if opts.fps <= 0 {
		opts.fps = cfg.Screen.TargetFPS
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	global, layers, err := loadScene(*scenePath)
	if err != nil {
		slog.Error("failed to load scene", "path", *scenePath, "error", err)
		os.Exit(1)
	}

	eng, err := engine.New(engine.Options{
		Logger:  logger,
		Config:  cfg,
		Global:  &global,
		Layers:  layers,
		Seed:    opts.seed,
		Caption: opts.caption,
	})
	if err != nil {
		slog.Error("failed to create engine", "error", err)
		os.Exit(1)
	}
	defer eng.Destroy()

	var analyzer *audio.Analyzer
	if opts.audioPath != "" {
		analyzer, err = audio.Open(opts.audioPath, cfg.Audio)
		if err != nil {
			slog.Error("failed to open audio", "path", opts.audioPath, "error", err)
			os.Exit(1)
		}
		defer analyzer.Close()
	}

	out, err := telemetry.NewOutputManager(opts.outDir)
	if err != nil {
		slog.Error("failed to create output dir", "error", err)
		os.Exit(1)
	}
	if out != nil {
		defer out.Close()
		if err := out.WriteConfig(cfg); err != nil {
			slog.Error("failed to write config snapshot", "error", err)
		}
	}

	r := &runner{eng: eng, audio: analyzer, out: out, opts: opts}
	if opts.headless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err = r.runHeadless(ctx)
	} else {
		err = r.runViewer()
	}
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
	r.saveScene()
}

// loadScene returns the scene at path, or the default stack when empty.
func loadScene(path string) (config.GlobalConfig, []config.LayerConfig, error) {
	if path == "" {
		return config.DefaultGlobal(), defaultLayers(), nil
	}
	s, err := scene.ReadFile(path)
	if err != nil {
		return config.GlobalConfig{}, nil, err
	}
	return s.Global, s.Layers, nil
}

func defaultLayers() []config.LayerConfig {
	ink := config.NewLayer("Ink", config.TypeInk, 3000, config.KindBackground)
	sand := config.NewLayer("Sand", config.TypeSand, 4000, config.KindForeground)
	sparks := config.NewLayer("Sparks", config.TypeSparks, 800, config.KindForeground)
	return []config.LayerConfig{ink, sand, sparks}
}

// runner drives the engine from either front end.
type runner struct {
	eng   *engine.Engine
	audio *audio.Analyzer
	out   *telemetry.OutputManager
	opts  options

	lastAudio *audio.Analysis
}

// step advances audio and the engine by dt seconds.
func (r *runner) step(dt float64) error {
	if r.audio != nil && !r.audio.Done() {
		err := r.audio.Advance(time.Duration(dt * float64(time.Second)))
		switch {
		case errors.Is(err, io.EOF):
			slog.Info("audio finished")
			r.lastAudio = nil
			if err := r.eng.SetAudioData(nil); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			r.lastAudio = r.audio.Analysis()
			if err := r.eng.SetAudioData(r.lastAudio); err != nil {
				return err
			}
		}
	}
	if err := r.eng.StepDT(dt); err != nil {
		return err
	}
	r.flushStats()
	return nil
}

// flushStats writes and logs the telemetry window when it closes.
func (r *runner) flushStats() {
	summary, rows, perf, ok := r.eng.FlushStats()
	if !ok {
		return
	}
	if r.opts.logStats {
		slog.Info("window", "start", summary.StartSec, "end", summary.EndSec, "frames", summary.Frames,
			"resets", summary.Resets, "resizes", summary.Resizes)
		for _, s := range rows {
			s.LogStats()
		}
		perf.LogStats()
	}
	if r.out == nil {
		return
	}
	if err := r.out.WriteStats(rows); err != nil {
		slog.Error("failed to write stats", "error", err)
	}
	if err := r.out.WritePerf(perf, r.eng.FrameCount()); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
}

// runHeadless steps at a fixed dt and writes frames to the output dir.
func (r *runner) runHeadless(ctx context.Context) error {
	dt := 1 / float64(r.opts.fps)
	slog.Info("starting headless run", "fps", r.opts.fps, "frames", r.opts.frames, "out_dir", r.opts.outDir)

	for frame := 1; r.opts.frames == 0 || frame <= r.opts.frames; frame++ {
		if ctx.Err() != nil {
			slog.Info("interrupted", "frame", frame)
			break
		}
		if err := r.step(dt); err != nil {
			return err
		}
		if r.opts.snapshotEvery > 0 && frame%r.opts.snapshotEvery == 0 {
			r.writeFrame()
		}
	}
	if r.opts.snapshotEvery == 0 {
		r.writeFrame()
	}
	slog.Info("headless run finished", "frames", r.eng.FrameCount(), "sim_time", r.eng.SimTime())
	return nil
}

func (r *runner) writeFrame() {
	if r.out == nil {
		return
	}
	img := r.eng.Frame()
	if img == nil {
		return
	}
	path, err := r.out.WriteFrame(r.eng.FrameCount(), img)
	if err != nil {
		slog.Error("failed to write frame", "error", err)
		return
	}
	slog.Debug("frame written", "path", path)
}

// saveScene writes the final configuration as scene.json.
func (r *runner) saveScene() {
	if r.out == nil || r.eng.State() == engine.Destroyed {
		return
	}
	data, err := scene.Marshal(scene.Export(r.eng.Global(), r.eng.Layers(), time.Now()))
	if err != nil {
		slog.Error("failed to encode scene", "error", err)
		return
	}
	if err := r.out.WriteScene(data); err != nil {
		slog.Error("failed to write scene", "error", err)
	}
}
