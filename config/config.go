// Package config provides configuration loading and access for the particle engine.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds engine tuning parameters and the preset tables.
// Layer and global parameters live in LayerConfig and GlobalConfig.
type Config struct {
	Screen    ScreenConfig     `yaml:"screen"`
	Engine    EngineConfig     `yaml:"engine"`
	Flow      FlowConfig       `yaml:"flow"`
	Surface   SurfaceConfig    `yaml:"surface"`
	Render    RenderConfig     `yaml:"render"`
	Audio     AudioConfig      `yaml:"audio"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`
	Presets   []PresetConfig   `yaml:"presets"`
	Materials []MaterialPreset `yaml:"materials"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds viewer window settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// EngineConfig holds the constants that map normalized layer parameters
// to pixel-space forces.
type EngineConfig struct {
	MaxDT             float64  `yaml:"max_dt"`              // Elapsed time clamp per step (seconds)
	RefDT             float64  `yaml:"ref_dt"`              // Reference tick for scaled drag
	DragMode          DragMode `yaml:"drag_mode"`           // per_tick or scaled
	GravityScale      float64  `yaml:"gravity_scale"`       // px/s^2 per unit gravity
	WindScale         float64  `yaml:"wind_scale"`          // px/s^2 per unit wind
	AttractScale      float64  `yaml:"attract_scale"`       // Attraction numerator scale
	AttractEpsilon    float64  `yaml:"attract_epsilon"`     // Added to normalized distance
	CaptureRadius     float64  `yaml:"capture_radius"`      // Normalized distance that triggers an effect
	CurlScale         float64  `yaml:"curl_scale"`          // px/s^2 per unit curl
	JitterScale       float64  `yaml:"jitter_scale"`        // px/s^2 per unit jitter
	PatternScale      float64  `yaml:"pattern_scale"`       // px/s per unit movement speed
	SpawnScale        float64  `yaml:"spawn_scale"`         // Initial velocity spread (px/s)
	BurstScale        float64  `yaml:"burst_scale"`         // Radial burst velocity (px/s)
	SpeedScale        float64  `yaml:"speed_scale"`         // Position integration multiplier
	MaxSpeed          float64  `yaml:"max_speed"`           // Velocity magnitude cap (px/s)
	RespawnMargin     float64  `yaml:"respawn_margin"`      // Pixels outside the canvas before respawn
	EdgeInset         float64  `yaml:"edge_inset"`          // Pixels inside the edge for edge spawns
	CenterSpread      float64  `yaml:"center_spread"`       // Half-width of the center spawn box (pixels)
	MaskSpawnAttempts int      `yaml:"mask_spawn_attempts"` // Rejection sampling attempts
	MaxFragments      int      `yaml:"max_fragments"`       // Live fragment cap across all layers
	FragmentSpeed     float64  `yaml:"fragment_speed"`      // Fragment ejection speed (px/s)
	Seed              int64    `yaml:"seed"`                // 0 = time-based
}

// FlowConfig holds curl-noise flow field parameters.
type FlowConfig struct {
	GridW     int     `yaml:"grid_w"`
	GridH     int     `yaml:"grid_h"`
	Scale     float64 `yaml:"scale"`      // Noise frequency in cycles per canvas
	Octaves   int     `yaml:"octaves"`    // FBM octaves
	TimeSpeed float64 `yaml:"time_speed"` // Noise evolution per second
	Epsilon   float64 `yaml:"epsilon"`    // Finite difference step (noise units)
	UpdateSec float64 `yaml:"update_sec"` // Seconds between flow keyframes
}

// SurfaceConfig holds surface field grid parameters.
type SurfaceConfig struct {
	GridW          int     `yaml:"grid_w"`
	GridH          int     `yaml:"grid_h"`
	RippleCFL      float64 `yaml:"ripple_cfl"`      // Max wave Courant number
	RipplePush     float64 `yaml:"ripple_push"`     // px/s^2 per unit ripple gradient
	DentPull       float64 `yaml:"dent_pull"`       // px/s^2 per unit dent gradient
	SmearDrag      float64 `yaml:"smear_drag"`      // Extra drag per unit smear
	DepositAmount  float64 `yaml:"deposit_amount"`  // Deposit per contact at accumulation rate 1
	MagnetismScale float64 `yaml:"magnetism_scale"` // px/s^2 per unit mask magnetism
}

// RenderConfig holds compositor parameters.
type RenderConfig struct {
	SpriteSize   int     `yaml:"sprite_size"`   // Atlas cell size in pixels
	TrailSteps   int     `yaml:"trail_steps"`   // Max segment splats at trail length 1
	GlowBoost    float64 `yaml:"glow_boost"`    // Brightness multiplier for glowing particles
	FadeInTime   float64 `yaml:"fade_in_time"`  // Seconds for a new particle to reach full alpha
	FragmentSize float64 `yaml:"fragment_size"` // Fragment sprite size relative to parent
}

// AudioConfig holds audio analysis and modulation parameters.
type AudioConfig struct {
	WindowSize     int     `yaml:"window_size"` // FFT window (power of two)
	Bands          int     `yaml:"bands"`
	Compression    float64 `yaml:"compression"` // Exponent applied to band magnitude
	Smoothing      float64 `yaml:"smoothing"`   // Previous-value weight
	SpeedGain      float64 `yaml:"speed_gain"`
	SizeGain       float64 `yaml:"size_gain"`
	BrightnessGain float64 `yaml:"brightness_gain"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// PresetConfig is the default physical archetype for a particle type.
type PresetConfig struct {
	Type             ParticleType    `yaml:"type"`
	SpawnRegion      SpawnRegion     `yaml:"spawn_region"`
	Pattern          MovementPattern `yaml:"pattern"`
	BoundaryMode     BoundaryMode    `yaml:"boundary_mode"`
	MaskMode         MaskMode        `yaml:"mask_mode"`
	SpawnRate        float64         `yaml:"spawn_rate"`
	SpawnSpeed       float64         `yaml:"spawn_speed"`
	Gravity          float64         `yaml:"gravity"`
	Drag             float64         `yaml:"drag"`
	Jitter           float64         `yaml:"jitter"`
	Curl             float64         `yaml:"curl"`
	Attract          float64         `yaml:"attract"`
	WindAngle        float64         `yaml:"wind_angle"` // Degrees
	WindStrength     float64         `yaml:"wind_strength"`
	Speed            float64         `yaml:"speed"`
	BoundaryBounce   float64         `yaml:"boundary_bounce"`
	AccumulationRate float64         `yaml:"accumulation_rate"`
	AccumulationTime float64         `yaml:"accumulation_time"`
	DecayRate        float64         `yaml:"decay_rate"`
	Brightness       float64         `yaml:"brightness"`
	TrailLength      float64         `yaml:"trail_length"`
	Color            string          `yaml:"color"`
}

// DerivedConfig holds values computed from the loaded configuration.
type DerivedConfig struct {
	MaxDT32     float32
	RefDT32     float32
	PresetIndex map[ParticleType]int
}

var global *Config

// Init loads configuration from path and sets the global config.
// If path is empty, uses embedded defaults.
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	return cfg, nil
}

// computeDerived fills missing tables and calculates cached values.
func (c *Config) computeDerived() {
	if c.Engine.MaxDT <= 0 {
		c.Engine.MaxDT = 0.1
	}
	if c.Engine.RefDT <= 0 {
		c.Engine.RefDT = 1.0 / 60.0
	}
	if !c.Engine.DragMode.Valid() {
		c.Engine.DragMode = DragPerTick
	}
	c.Derived.MaxDT32 = float32(c.Engine.MaxDT)
	c.Derived.RefDT32 = float32(c.Engine.RefDT)

	// The fallback archetype must always resolve
	hasFallback := false
	for _, p := range c.Presets {
		if p.Type == DefaultType {
			hasFallback = true
			break
		}
	}
	if !hasFallback {
		c.Presets = append(c.Presets, PresetConfig{
			Type:             DefaultType,
			SpawnSpeed:       0.8,
			Gravity:          0.02,
			Drag:             0.04,
			Jitter:           0.08,
			Curl:             0.1,
			Attract:          0.05,
			Speed:            1,
			BoundaryBounce:   0.4,
			AccumulationRate: 0.3,
			AccumulationTime: 2,
			DecayRate:        0.3,
			Color:            "#aaaaaa",
		})
	}

	for i := range c.Presets {
		p := &c.Presets[i]
		if p.SpawnRegion == "" {
			p.SpawnRegion = RegionRandom
		}
		if p.Pattern == "" {
			p.Pattern = PatternStill
		}
		if p.BoundaryMode == "" {
			p.BoundaryMode = BoundaryBounce
		}
		if p.MaskMode == "" {
			p.MaskMode = MaskCollision
		}
		if p.Brightness == 0 {
			p.Brightness = 1
		}
		if p.Color == "" {
			p.Color = "#ffffff"
		}
	}

	if len(c.Materials) == 0 {
		c.Materials = []MaterialPreset{
			{ID: "solid", Name: "Solid", Response: MaterialResponse{Deflect: 1}, Color: "#ffffff"},
		}
	}

	c.Derived.PresetIndex = make(map[ParticleType]int, len(c.Presets))
	for i, p := range c.Presets {
		c.Derived.PresetIndex[p.Type] = i
	}
}

// Preset returns the archetype for typ, falling back to the default type.
func (c *Config) Preset(typ ParticleType) PresetConfig {
	if i, ok := c.Derived.PresetIndex[typ]; ok {
		return c.Presets[i]
	}
	return c.Presets[c.Derived.PresetIndex[DefaultType]]
}

// WriteYAML writes the config to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
