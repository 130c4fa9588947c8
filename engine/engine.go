// Package engine is the studio façade: it owns every layer's simulation
// state and the frame, applies configuration snapshots between frames and
// exposes the imperative commands a host calls.
package engine

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/pthm-cable/particles/audio"
	"github.com/pthm-cable/particles/config"
	"github.com/pthm-cable/particles/renderer"
	"github.com/pthm-cable/particles/systems"
	"github.com/pthm-cable/particles/telemetry"
)

// Canvas side bounds in pixels. Resize clamps into [MinCanvas, MaxCanvas];
// New only caps at MaxCanvas.
const (
	MinCanvas = 256
	MaxCanvas = 4096
)

var (
	// ErrDestroyed is returned by every call after Destroy.
	ErrDestroyed = errors.New("engine destroyed")
	// ErrNoFrame is returned by Screenshot before the first frame.
	ErrNoFrame = errors.New("no frame rendered")
)

// State is the engine lifecycle state.
type State int

const (
	Uninitialized State = iota
	Ready
	Running
	Paused
	Destroyed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Destroyed:
		return "destroyed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options configures a new engine.
type Options struct {
	Logger *slog.Logger   // nil = slog.Default()
	Config *config.Config // nil = config.Cfg()

	Global *config.GlobalConfig // nil = config.DefaultGlobal()
	Layers []config.LayerConfig

	// Canvas size. Zero takes the global resolution preset.
	Width, Height int

	Seed    int64  // 0 = engine seed from config, then time-based
	Caption string // drawn on screenshots when set

	LoadMask MaskLoader       // nil = systems.LoadMask
	Clock    func() time.Time // nil = time.Now
}

// pending holds configuration set between frames.
type pending struct {
	global    *config.GlobalConfig
	layers    []config.LayerConfig
	hasLayers bool
	audio     *audio.Analysis
	hasAudio  bool
}

// Engine advances and renders a stack of particle layers.
type Engine struct {
	log   *slog.Logger
	cfg   *config.Config
	clock func() time.Time
	seed  int64

	sim   *systems.Simulator
	comp  *renderer.Compositor
	masks *MaskCache
	perf  *telemetry.PerfCollector
	stats *telemetry.Collector

	// mu guards the lifecycle state, the pending snapshot and the driver
	mu      sync.Mutex
	state   State
	pending pending
	driver  FrameDriver

	// frameMu guards everything below; held for the length of a frame
	frameMu  sync.Mutex
	global   config.GlobalConfig
	layers   []*systems.LayerState
	audio    *audio.Analysis
	env      systems.Env
	fb       *renderer.FrameBuffer
	frame    *image.RGBA
	rendered bool
	frameNo  int
	last     time.Time
	caption  string
	speeds   []float64
}

// New builds an engine ready to step. It fails when the canvas or the
// sprite atlas cannot be allocated.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	global := config.DefaultGlobal()
	if opts.Global != nil {
		global = *opts.Global
		global.Sanitize()
	}

	w, h := opts.Width, opts.Height
	if w == 0 && h == 0 {
		w, h = global.Resolution()
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", renderer.ErrBadSize, w, h)
	}
	fb, err := newCanvas(min(w, MaxCanvas), min(h, MaxCanvas))
	if err != nil {
		return nil, err
	}
	comp, err := renderer.NewCompositor(cfg.Render)
	if err != nil {
		return nil, fmt.Errorf("building sprite atlas: %w", err)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = cfg.Engine.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		log:     log,
		cfg:     cfg,
		clock:   clock,
		seed:    seed,
		sim:     systems.NewSimulator(cfg),
		comp:    comp,
		masks:   NewMaskCache(log, opts.LoadMask),
		perf:    telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow, time.Duration(cfg.Engine.RefDT*float64(time.Second))),
		stats:   telemetry.NewCollector(cfg.Telemetry.StatsWindow),
		state:   Ready,
		global:  global,
		caption: opts.Caption,
	}
	e.allocate(fb)
	e.setLayers(sanitizeLayers(opts.Layers))
	e.log.Info("engine ready", "w", fb.W, "h", fb.H, "layers", len(e.layers), "seed", seed)
	return e, nil
}

func newCanvas(w, h int) (*renderer.FrameBuffer, error) {
	fb, err := renderer.NewFrameBuffer(w, h)
	if err != nil {
		return nil, fmt.Errorf("allocating canvas: %w", err)
	}
	return fb, nil
}

// allocate installs fb and rebuilds the shared environment around it.
func (e *Engine) allocate(fb *renderer.FrameBuffer) {
	w, h := float32(fb.W), float32(fb.H)
	e.fb = fb
	e.frame = renderer.NewImage(fb)
	e.rendered = false
	e.env = systems.Env{
		W:         w,
		H:         h,
		Flow:      systems.NewFlowField(w, h, e.seed, e.cfg.Flow),
		Rng:       rand.New(rand.NewSource(e.seed)),
		Fragments: systems.NewFragments(e.cfg.Engine.MaxFragments),
		Cfg:       e.cfg,
	}
}

func sanitizeLayers(layers []config.LayerConfig) []config.LayerConfig {
	out := make([]config.LayerConfig, len(layers))
	for i, l := range layers {
		out[i] = l.Clone()
		out[i].Sanitize()
	}
	return out
}

// checkAlive returns ErrDestroyed once the engine is destroyed.
func (e *Engine) checkAlive() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Destroyed {
		return ErrDestroyed
	}
	return nil
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Size returns the canvas size in pixels.
func (e *Engine) Size() (w, h int) {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	if e.fb == nil {
		return 0, 0
	}
	return e.fb.W, e.fb.H
}

// Resize reallocates the canvas and re-seeds every layer. Sides are
// clamped to [MinCanvas, MaxCanvas]; a call landing on the current size
// changes nothing.
func (e *Engine) Resize(w, h int) error {
	if err := e.checkAlive(); err != nil {
		return err
	}
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.resize(w, h)
}

func clampCanvas(v int) int {
	return min(max(v, MinCanvas), MaxCanvas)
}

func (e *Engine) resize(w, h int) error {
	w, h = clampCanvas(w), clampCanvas(h)
	if e.fb != nil && e.fb.W == w && e.fb.H == h {
		return nil
	}
	fb, err := newCanvas(w, h)
	if err != nil {
		return err
	}
	cfgs := e.layerConfigs()
	e.allocate(fb)
	e.layers = nil
	e.setLayers(cfgs)
	e.stats.RecordResize()
	e.log.Info("canvas resized", "w", w, "h", h, "layers", len(e.layers))
	return nil
}

// SetGlobal replaces the global settings from the next frame on.
func (e *Engine) SetGlobal(g config.GlobalConfig) error {
	g.Sanitize()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Destroyed {
		return ErrDestroyed
	}
	e.pending.global = &g
	return nil
}

// SetLayers replaces the layer stack from the next frame on. Layers are
// matched by id: existing ones keep their particles, new ids are seeded
// and missing ids are dropped. The slice is copied.
func (e *Engine) SetLayers(layers []config.LayerConfig) error {
	cfgs := sanitizeLayers(layers)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Destroyed {
		return ErrDestroyed
	}
	e.pending.layers = cfgs
	e.pending.hasLayers = true
	return nil
}

// SetAudioData sets the audio analysis used from the next frame on. nil
// disables audio modulation.
func (e *Engine) SetAudioData(a *audio.Analysis) error {
	a = a.Clone()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Destroyed {
		return ErrDestroyed
	}
	e.pending.audio = a
	e.pending.hasAudio = true
	return nil
}

// applyPending swaps in the configuration set since the last frame.
func (e *Engine) applyPending() {
	e.mu.Lock()
	p := e.pending
	e.pending = pending{}
	e.mu.Unlock()

	if p.global != nil {
		prev := e.global
		e.global = *p.global
		if resolutionChanged(prev, e.global) {
			w, h := e.global.Resolution()
			if err := e.resize(w, h); err != nil {
				e.log.Warn("resolution change failed", "w", w, "h", h, "error", err)
			}
		}
	}
	if p.hasLayers {
		e.setLayers(p.layers)
	}
	if p.hasAudio {
		e.audio = p.audio
	}
}

func resolutionChanged(a, b config.GlobalConfig) bool {
	aw, ah := a.Resolution()
	bw, bh := b.Resolution()
	return aw != bw || ah != bh
}

// setLayers rebuilds the stack from cfgs, reusing state for known ids.
func (e *Engine) setLayers(cfgs []config.LayerConfig) {
	byID := make(map[string]*systems.LayerState, len(e.layers))
	for _, ls := range e.layers {
		byID[ls.Config.ID] = ls
	}

	next := make([]*systems.LayerState, 0, len(cfgs))
	for _, l := range cfgs {
		if ls, ok := byID[l.ID]; ok {
			ls.Update(l, e.maskView(&l, ls.Mask))
			next = append(next, ls)
			delete(byID, l.ID)
			continue
		}
		ls := systems.NewLayerState(l, &e.env, e.maskView(&l, nil))
		next = append(next, ls)
		e.log.Debug("layer allocated", "layer", l.ID, "name", l.Name, "particles", l.ParticleCount)
	}
	for id := range byID {
		e.env.Fragments.RemoveLayer(id)
		e.log.Debug("layer released", "layer", id)
	}
	e.layers = next
}

// maskView returns the view of l's mask on the current canvas, reusing
// cur when it is still valid. It is nil until the mask has loaded.
func (e *Engine) maskView(l *config.LayerConfig, cur *systems.MaskView) *systems.MaskView {
	m := e.masks.Get(l.MaskURL)
	if m == nil {
		return nil
	}
	if cur.Matches(m, l, e.env.W, e.env.H) {
		return cur
	}
	return systems.NewMaskView(m, l, e.env.W, e.env.H, e.cfg.Surface.GridW, e.cfg.Surface.GridH)
}

// refreshMasks binds masks that finished loading since the last frame.
func (e *Engine) refreshMasks() {
	for _, ls := range e.layers {
		if v := e.maskView(&ls.Config, ls.Mask); v != ls.Mask {
			ls.SetMask(v)
		}
	}
}

// Step advances by the wall time since the previous Step.
func (e *Engine) Step() error {
	now := e.clock()
	e.frameMu.Lock()
	dt := e.cfg.Engine.RefDT
	if !e.last.IsZero() {
		dt = now.Sub(e.last).Seconds()
	}
	e.last = now
	e.frameMu.Unlock()
	return e.StepDT(dt)
}

// StepDT advances the simulation by dt seconds and renders a frame. dt is
// clamped to the configured maximum and scaled by the global time scale.
// While paused the particles are left untouched.
func (e *Engine) StepDT(dt float64) error {
	if err := e.checkAlive(); err != nil {
		return err
	}
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	if e.fb == nil {
		return ErrDestroyed
	}

	e.perf.StartFrame()
	e.perf.StartPhase(telemetry.PhaseConfig)
	e.applyPending()
	e.refreshMasks()

	next := Running
	if e.global.Paused {
		next = Paused
	}
	e.mu.Lock()
	if e.state != Destroyed {
		e.state = next
	}
	e.mu.Unlock()

	if next == Paused {
		if !e.rendered {
			e.render(renderer.Modulation{})
		}
		e.perf.EndFrame()
		return nil
	}

	dt = min(max(dt, 0), e.cfg.Engine.MaxDT) * e.global.TimeScale
	sdt := float32(dt)
	mod := e.modulation()

	e.perf.StartPhase(telemetry.PhaseFlow)
	e.env.Flow.Step(sdt)

	e.perf.StartPhase(telemetry.PhasePhysics)
	for _, ls := range e.layers {
		e.sim.Step(ls, &e.env, sdt)
	}
	e.env.Time += dt

	e.perf.StartPhase(telemetry.PhaseFragments)
	e.env.Fragments.Step(sdt)

	e.render(mod)
	e.perf.StartPhase(telemetry.PhaseTelemetry)
	e.frameNo++
	e.stats.RecordFrame()
	e.perf.EndFrame()
	return nil
}

// render composites every enabled layer in list order and runs the post
// chain into the output image.
func (e *Engine) render(mod renderer.Modulation) {
	e.perf.StartPhase(telemetry.PhaseRender)
	e.fb.Fade(e.global.ClearRate)
	for _, ls := range e.layers {
		e.comp.DrawLayer(e.fb, ls, mod)
	}
	e.comp.DrawFragments(e.fb, e.env.Fragments)

	e.perf.StartPhase(telemetry.PhasePost)
	renderer.Post(e.fb, &e.global, e.frame)
	e.rendered = true
}

// modulation maps the audio analysis onto speed, size and brightness.
func (e *Engine) modulation() renderer.Modulation {
	e.env.SpeedMul = 1
	a := e.audio
	if a == nil {
		return renderer.Modulation{}
	}
	gain := e.global.AudioGain
	ac := &e.cfg.Audio
	e.env.SpeedMul = float32(1 + a.Bass*gain*ac.SpeedGain)
	return renderer.Modulation{
		Size:       float32(1 + a.Energy*gain*ac.SizeGain),
		Brightness: float32(1 + a.Treble*gain*ac.BrightnessGain),
	}
}

// ResetAll re-seeds every layer and clears the canvas, fragments and
// simulation clock. Configuration is unchanged.
func (e *Engine) ResetAll() error {
	if err := e.checkAlive(); err != nil {
		return err
	}
	e.frameMu.Lock()
	defer e.frameMu.Unlock()

	for _, ls := range e.layers {
		ls.Reset()
	}
	e.env.Fragments.Clear()
	e.env.Flow.Reset()
	e.env.Time = 0
	e.fb.Clear()
	e.stats.RecordReset()
	e.stats.Restart()
	return nil
}

// ResetLayer re-seeds one layer. Unknown ids are ignored and report false.
func (e *Engine) ResetLayer(id string) bool {
	if e.checkAlive() != nil {
		return false
	}
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	i := slices.IndexFunc(e.layers, func(ls *systems.LayerState) bool { return ls.Config.ID == id })
	if i < 0 {
		return false
	}
	e.layers[i].Reset()
	e.env.Fragments.RemoveLayer(id)
	return true
}

// Layer returns the applied configuration of layer id.
func (e *Engine) Layer(id string) (config.LayerConfig, bool) {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	for _, ls := range e.layers {
		if ls.Config.ID == id {
			return ls.Config.Clone(), true
		}
	}
	return config.LayerConfig{}, false
}

// Layers returns the applied layer configurations in draw order.
func (e *Engine) Layers() []config.LayerConfig {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.layerConfigs()
}

func (e *Engine) layerConfigs() []config.LayerConfig {
	out := make([]config.LayerConfig, len(e.layers))
	for i, ls := range e.layers {
		out[i] = ls.Config.Clone()
	}
	return out
}

// Global returns the applied global settings.
func (e *Engine) Global() config.GlobalConfig {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.global
}

// SimTime returns simulated seconds since the last reset.
func (e *Engine) SimTime() float64 {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.env.Time
}

// Frame returns the last rendered image. It is reused by the next frame.
func (e *Engine) Frame() *image.RGBA {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	if !e.rendered {
		return nil
	}
	return e.frame
}

// Screenshot encodes the current frame as a PNG data URI.
func (e *Engine) Screenshot() (string, error) {
	if err := e.checkAlive(); err != nil {
		return "", err
	}
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	if !e.rendered || e.frame == nil {
		return "", ErrNoFrame
	}

	img := e.frame
	if e.caption != "" {
		img = image.NewRGBA(e.frame.Rect)
		copy(img.Pix, e.frame.Pix)
		if err := renderer.Caption(img, e.caption); err != nil {
			return "", err
		}
	}
	return renderer.PNGDataURI(img)
}

// Attach hands frame scheduling to d, replacing any previous driver.
func (e *Engine) Attach(d FrameDriver) error {
	e.mu.Lock()
	if e.state == Destroyed {
		e.mu.Unlock()
		return ErrDestroyed
	}
	old := e.driver
	e.driver = d
	e.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	d.Start(func() {
		if err := e.Step(); err != nil && !errors.Is(err, ErrDestroyed) {
			e.log.Error("frame failed", "error", err)
		}
	})
	return nil
}

// Destroy stops the frame driver and releases every buffer. It is safe
// to call at any time and more than once.
func (e *Engine) Destroy() {
	e.mu.Lock()
	if e.state == Destroyed {
		e.mu.Unlock()
		return
	}
	e.state = Destroyed
	d := e.driver
	e.driver = nil
	e.pending = pending{}
	e.mu.Unlock()

	if d != nil {
		d.Stop()
	}

	e.frameMu.Lock()
	e.masks.Close()
	e.layers = nil
	e.fb = nil
	e.frame = nil
	e.rendered = false
	e.env = systems.Env{}
	e.frameMu.Unlock()

	e.log.Info("engine destroyed", "frames", e.frameNo)
}

// Stats samples every layer for telemetry.
func (e *Engine) Stats() []telemetry.FrameStats {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.sample()
}

func (e *Engine) sample() []telemetry.FrameStats {
	rows := make([]telemetry.FrameStats, 0, len(e.layers))
	frags := 0
	if e.env.Fragments != nil {
		frags = e.env.Fragments.Count()
	}
	for _, ls := range e.layers {
		var s telemetry.FrameStats
		s, e.speeds = telemetry.SampleLayer(ls, e.speeds)
		s.Frame = e.frameNo
		s.SimTimeSec = e.env.Time
		s.Fragments = frags
		rows = append(rows, s)
	}
	return rows
}

// FlushStats closes the stats window when it has elapsed and returns its
// summary, the per-layer samples and the perf window.
func (e *Engine) FlushStats() (telemetry.WindowSummary, []telemetry.FrameStats, telemetry.PerfStats, bool) {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	if !e.stats.ShouldFlush(e.env.Time) {
		return telemetry.WindowSummary{}, nil, telemetry.PerfStats{}, false
	}
	return e.stats.Flush(e.env.Time), e.sample(), e.perf.Stats(), true
}

// Perf returns the rolling frame timing window.
func (e *Engine) Perf() telemetry.PerfStats {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.perf.Stats()
}

// RecordPresent marks a frame as shown by the host.
func (e *Engine) RecordPresent() {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	e.perf.RecordPresent()
}

// FrameCount returns the number of simulated frames.
func (e *Engine) FrameCount() int {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.frameNo
}

// Masks returns the engine's mask cache.
func (e *Engine) Masks() *MaskCache {
	return e.masks
}
