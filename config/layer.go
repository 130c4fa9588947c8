package config

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"
)

// MaxAttractionPoints caps the attraction points a layer may carry.
const MaxAttractionPoints = 8

// Point is a normalized canvas coordinate in [0,1]x[0,1].
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// GlobalConfig holds process-wide simulation parameters read by every layer.
type GlobalConfig struct {
	Paused           bool             `json:"paused" yaml:"paused"`
	TimeScale        float64          `json:"timeScale" yaml:"time_scale"`
	ClearRate        float64          `json:"clearRate" yaml:"clear_rate"`
	Exposure         float64          `json:"exposure" yaml:"exposure"`
	Threshold        float64          `json:"threshold" yaml:"threshold"`
	ThresholdSoft    float64          `json:"thresholdSoft" yaml:"threshold_soft"`
	ThresholdGain    float64          `json:"thresholdGain" yaml:"threshold_gain"`
	Monochrome       bool             `json:"monochrome" yaml:"monochrome"`
	Invert           bool             `json:"invert" yaml:"invert"`
	ResolutionPreset ResolutionPreset `json:"resolutionPreset" yaml:"resolution_preset"`
	CustomWidth      int              `json:"customWidth" yaml:"custom_width"`
	CustomHeight     int              `json:"customHeight" yaml:"custom_height"`
	AudioGain        float64          `json:"audioGain" yaml:"audio_gain"`
}

// DefaultGlobal returns the global defaults a fresh studio starts with.
func DefaultGlobal() GlobalConfig {
	return GlobalConfig{
		TimeScale:        1,
		ClearRate:        1,
		Exposure:         1,
		Threshold:        0.2,
		ThresholdSoft:    0.08,
		ThresholdGain:    1.2,
		ResolutionPreset: Res2048,
		CustomWidth:      1920,
		CustomHeight:     1080,
		AudioGain:        1,
	}
}

// Patch applies a partial JSON document on top of g. Only keys present in
// raw change. The result is sanitized.
func (g GlobalConfig) Patch(raw []byte) (GlobalConfig, error) {
	out := g
	if err := json.Unmarshal(raw, &out); err != nil {
		return g, fmt.Errorf("patching global config: %w", err)
	}
	out.Sanitize()
	return out, nil
}

// Resolution returns the canvas size in pixels.
func (g GlobalConfig) Resolution() (width, height int) {
	switch g.ResolutionPreset {
	case ResCustom:
		return clampInt(g.CustomWidth, 256, 4096), clampInt(g.CustomHeight, 256, 4096)
	case Res512:
		return 512, 512
	case Res1024:
		return 1024, 1024
	case Res4096:
		return 4096, 4096
	}
	return 2048, 2048
}

// AttractionPoint is a user-placed point exerting a force on a layer.
type AttractionPoint struct {
	ID       string           `json:"id" yaml:"id"`
	X        float64          `json:"x" yaml:"x"`
	Y        float64          `json:"y" yaml:"y"`
	Strength float64          `json:"strength" yaml:"strength"`
	Falloff  float64          `json:"falloff" yaml:"falloff"`
	Type     AttractionType   `json:"type" yaml:"type"`
	Effect   AttractionEffect `json:"effect" yaml:"effect"`
}

// MaterialResponse holds independent response weights in [0,1].
type MaterialResponse struct {
	Deflect       float64 `json:"deflect" yaml:"deflect"`
	Stick         float64 `json:"stick" yaml:"stick"`
	PassThrough   float64 `json:"passThrough" yaml:"pass_through"`
	Fragment      float64 `json:"fragment" yaml:"fragment"`
	DepositSmear  float64 `json:"depositSmear" yaml:"deposit_smear"`
	DepositRipple float64 `json:"depositRipple" yaml:"deposit_ripple"`
	DepositDent   float64 `json:"depositDent" yaml:"deposit_dent"`
	Glow          float64 `json:"glow" yaml:"glow"`
}

// MaterialPreset is a named bundle of response weights.
type MaterialPreset struct {
	ID               string           `json:"id" yaml:"id"`
	Name             string           `json:"name" yaml:"name"`
	Response         MaterialResponse `json:"response" yaml:"response"`
	FragmentCount    int              `json:"fragmentCount" yaml:"fragment_count"`
	FragmentLifespan float64          `json:"fragmentLifespan" yaml:"fragment_lifespan"`
	DecayRate        float64          `json:"decayRate" yaml:"decay_rate"`
	Color            string           `json:"color" yaml:"color"`
}

// SpawnConfig controls where particles are seeded.
type SpawnConfig struct {
	Region      SpawnRegion `json:"region" yaml:"region"`
	EdgeOffset  float64     `json:"edgeOffset" yaml:"edge_offset"`
	EdgeSpread  float64     `json:"edgeSpread" yaml:"edge_spread"`
	CenterPoint Point       `json:"centerPoint" yaml:"center_point"`
	BurstSpeed  float64     `json:"burstSpeed" yaml:"burst_speed"`
}

// MovementConfig selects and parameterizes a movement pattern.
type MovementConfig struct {
	Pattern               MovementPattern `json:"pattern" yaml:"pattern"`
	Direction             float64         `json:"direction" yaml:"direction"`
	Speed                 float64         `json:"speed" yaml:"speed"`
	CenterPoint           Point           `json:"centerPoint" yaml:"center_point"`
	SpiralTightness       float64         `json:"spiralTightness" yaml:"spiral_tightness"`
	OrbitRadius           float64         `json:"orbitRadius" yaml:"orbit_radius"`
	WaveAmplitude         float64         `json:"waveAmplitude" yaml:"wave_amplitude"`
	WaveFrequency         float64         `json:"waveFrequency" yaml:"wave_frequency"`
	VortexStrength        float64         `json:"vortexStrength" yaml:"vortex_strength"`
	VortexInward          float64         `json:"vortexInward" yaml:"vortex_inward"`
	EvadeStrength         float64         `json:"evadeStrength" yaml:"evade_strength"`
	EvadeRadius           float64         `json:"evadeRadius" yaml:"evade_radius"`
	ClusterStrength       float64         `json:"clusterStrength" yaml:"cluster_strength"`
	ClusterBreakThreshold float64         `json:"clusterBreakThreshold" yaml:"cluster_break_threshold"`
}

// MaskTransform places the mask image on the canvas.
type MaskTransform struct {
	X        float64 `json:"x" yaml:"x"`
	Y        float64 `json:"y" yaml:"y"`
	Scale    float64 `json:"scale" yaml:"scale"`
	Rotation float64 `json:"rotation" yaml:"rotation"`
	SkewX    float64 `json:"skewX" yaml:"skew_x"`
	SkewY    float64 `json:"skewY" yaml:"skew_y"`
}

// PhysicsParams holds forces and the spawn/accumulation rates.
type PhysicsParams struct {
	SpawnRate        float64           `json:"spawnRate" yaml:"spawn_rate"`
	SpawnSpeed       float64           `json:"spawnSpeed" yaml:"spawn_speed"`
	Gravity          float64           `json:"gravity" yaml:"gravity"`
	Drag             float64           `json:"drag" yaml:"drag"`
	Jitter           float64           `json:"jitter" yaml:"jitter"`
	Curl             float64           `json:"curl" yaml:"curl"`
	Attract          float64           `json:"attract" yaml:"attract"`
	AttractFalloff   float64           `json:"attractFalloff" yaml:"attract_falloff"`
	AttractPoint     Point             `json:"attractPoint" yaml:"attract_point"`
	AttractionPoints []AttractionPoint `json:"attractionPoints" yaml:"attraction_points"`
	WindAngle        float64           `json:"windAngle" yaml:"wind_angle"`
	WindStrength     float64           `json:"windStrength" yaml:"wind_strength"`
	Speed            float64           `json:"speed" yaml:"speed"`
	AccumulationRate float64           `json:"accumulationRate" yaml:"accumulation_rate"`
	AccumulationTime float64           `json:"accumulationTime" yaml:"accumulation_time"`
	DecayRate        float64           `json:"decayRate" yaml:"decay_rate"`
}

// BoundaryParams holds canvas edge and mask interaction settings.
type BoundaryParams struct {
	BoundaryMode        BoundaryMode     `json:"boundaryMode" yaml:"boundary_mode"`
	BoundaryBounce      float64          `json:"boundaryBounce" yaml:"boundary_bounce"`
	MaskURL             string           `json:"maskUrl,omitempty" yaml:"mask_url,omitempty"`
	MaskInvert          bool             `json:"maskInvert" yaml:"mask_invert"`
	MaskThreshold       float64          `json:"maskThreshold" yaml:"mask_threshold"`
	MaskTransform       MaskTransform    `json:"maskTransform" yaml:"mask_transform"`
	MaskMode            MaskMode         `json:"maskMode" yaml:"mask_mode"`
	MaskStickiness      float64          `json:"maskStickiness" yaml:"mask_stickiness"`
	MaskMagnetism       float64          `json:"maskMagnetism" yaml:"mask_magnetism"`
	MaskMagnetismRadius float64          `json:"maskMagnetismRadius" yaml:"mask_magnetism_radius"`
	MaterialMode        MaterialMode     `json:"materialMode" yaml:"material_mode"`
	MaterialPalette     []MaterialPreset `json:"materialPalette" yaml:"material_palette"`
}

// AppearanceParams holds per-particle draw settings.
type AppearanceParams struct {
	Shape            Shape      `json:"shape" yaml:"shape"`
	PointSize        float64    `json:"pointSize" yaml:"point_size"`
	SizeJitter       float64    `json:"sizeJitter" yaml:"size_jitter"`
	Brightness       float64    `json:"brightness" yaml:"brightness"`
	BrightnessJitter float64    `json:"brightnessJitter" yaml:"brightness_jitter"`
	Dither           float64    `json:"dither" yaml:"dither"`
	TrailLength      float64    `json:"trailLength" yaml:"trail_length"`
	ColorMode        ColorMode  `json:"colorMode" yaml:"color_mode"`
	Color            string     `json:"color" yaml:"color"`
	ColorSecondary   string     `json:"colorSecondary,omitempty" yaml:"color_secondary,omitempty"`
	ColorTertiary    string     `json:"colorTertiary,omitempty" yaml:"color_tertiary,omitempty"`
	GradientBy       GradientBy `json:"gradientBy,omitempty" yaml:"gradient_by,omitempty"`
	ColorScheme      SchemeName `json:"colorScheme,omitempty" yaml:"color_scheme,omitempty"`
	ColorRangeStart  string     `json:"colorRangeStart,omitempty" yaml:"color_range_start,omitempty"`
	ColorRangeEnd    string     `json:"colorRangeEnd,omitempty" yaml:"color_range_end,omitempty"`
}

// DepthParams holds the depth field and ground plane settings.
type DepthParams struct {
	DepthEnabled       bool    `json:"depthEnabled" yaml:"depth_enabled"`
	DepthFromMask      bool    `json:"depthFromMask" yaml:"depth_from_mask"`
	DepthBlur          int     `json:"depthBlur" yaml:"depth_blur"`
	DepthCurve         float64 `json:"depthCurve" yaml:"depth_curve"`
	DepthInvert        bool    `json:"depthInvert" yaml:"depth_invert"`
	DepthScale         float64 `json:"depthScale" yaml:"depth_scale"`
	GroundPlaneEnabled bool    `json:"groundPlaneEnabled" yaml:"ground_plane_enabled"`
	GroundPlaneTilt    float64 `json:"groundPlaneTilt" yaml:"ground_plane_tilt"`
	GroundPlaneY       float64 `json:"groundPlaneY" yaml:"ground_plane_y"`
}

// SurfaceParams holds the surface field toggles and rates.
type SurfaceParams struct {
	SurfaceFieldsEnabled bool    `json:"surfaceFieldsEnabled" yaml:"surface_fields_enabled"`
	SmearFieldEnabled    bool    `json:"smearFieldEnabled" yaml:"smear_field_enabled"`
	SmearDecayRate       float64 `json:"smearDecayRate" yaml:"smear_decay_rate"`
	RippleFieldEnabled   bool    `json:"rippleFieldEnabled" yaml:"ripple_field_enabled"`
	RippleDamping        float64 `json:"rippleDamping" yaml:"ripple_damping"`
	RippleSpeed          float64 `json:"rippleSpeed" yaml:"ripple_speed"`
	DentFieldEnabled     bool    `json:"dentFieldEnabled" yaml:"dent_field_enabled"`
	DentRecoveryRate     float64 `json:"dentRecoveryRate" yaml:"dent_recovery_rate"`
}

// LayerConfig configures one independently simulated particle population.
// Parameter groups are embedded so the JSON form stays flat.
type LayerConfig struct {
	ID            string         `json:"id" yaml:"id"`
	Name          string         `json:"name" yaml:"name"`
	Kind          LayerKind      `json:"kind" yaml:"kind"`
	Enabled       bool           `json:"enabled" yaml:"enabled"`
	ParticleCount int            `json:"particleCount" yaml:"particle_count"`
	Type          ParticleType   `json:"type" yaml:"type"`
	Spawn         SpawnConfig    `json:"spawnConfig" yaml:"spawn_config"`
	Movement      MovementConfig `json:"movementConfig" yaml:"movement_config"`

	PhysicsParams    `yaml:",inline"`
	BoundaryParams   `yaml:",inline"`
	AppearanceParams `yaml:",inline"`
	DepthParams      `yaml:",inline"`
	SurfaceParams    `yaml:",inline"`
}

// NewLayer builds a layer with the full default-merged parameters for typ.
// Unknown types fall back to the default archetype.
func NewLayer(name string, typ ParticleType, count int, kind LayerKind) LayerConfig {
	p := Cfg().Preset(typ)
	if !typ.Valid() {
		typ = DefaultType
	}
	if !kind.Valid() {
		kind = KindForeground
	}

	l := LayerConfig{
		ID:            NewID(),
		Name:          name,
		Kind:          kind,
		Enabled:       true,
		ParticleCount: count,
		Type:          typ,
		Spawn: SpawnConfig{
			Region:      p.SpawnRegion,
			EdgeOffset:  0.05,
			EdgeSpread:  1,
			CenterPoint: Point{0.5, 0.5},
			BurstSpeed:  0.3,
		},
		Movement: MovementConfig{
			Pattern:               p.Pattern,
			Direction:             270,
			Speed:                 0.1,
			CenterPoint:           Point{0.5, 0.5},
			SpiralTightness:       0.3,
			OrbitRadius:           0.3,
			WaveAmplitude:         0.1,
			WaveFrequency:         2,
			VortexStrength:        0.5,
			VortexInward:          0.2,
			EvadeStrength:         0.3,
			EvadeRadius:           0.1,
			ClusterStrength:       0.5,
			ClusterBreakThreshold: 0.7,
		},
		PhysicsParams: PhysicsParams{
			SpawnRate:        p.SpawnRate,
			SpawnSpeed:       p.SpawnSpeed,
			Gravity:          p.Gravity,
			Drag:             p.Drag,
			Jitter:           p.Jitter,
			Curl:             p.Curl,
			Attract:          p.Attract,
			AttractFalloff:   1,
			AttractPoint:     Point{0.5, 0.5},
			WindAngle:        p.WindAngle,
			WindStrength:     p.WindStrength,
			Speed:            p.Speed,
			AccumulationRate: p.AccumulationRate,
			AccumulationTime: p.AccumulationTime,
			DecayRate:        p.DecayRate,
		},
		BoundaryParams: BoundaryParams{
			BoundaryMode:        p.BoundaryMode,
			BoundaryBounce:      p.BoundaryBounce,
			MaskInvert:          true,
			MaskThreshold:       0.5,
			MaskTransform:       MaskTransform{Scale: 1},
			MaskMode:            p.MaskMode,
			MaskStickiness:      0.3,
			MaskMagnetismRadius: 0.1,
			MaterialMode:        MaterialBinary,
			MaterialPalette:     slices.Clone(Cfg().Materials),
		},
		AppearanceParams: AppearanceParams{
			Shape:       ShapeDot,
			PointSize:   10,
			Brightness:  p.Brightness,
			TrailLength: p.TrailLength,
			ColorMode:   ColorSingle,
			Color:       p.Color,
		},
		DepthParams: DepthParams{
			DepthFromMask:   true,
			DepthBlur:       3,
			DepthCurve:      1,
			DepthScale:      0.5,
			GroundPlaneTilt: 30,
			GroundPlaneY:    0.8,
		},
		SurfaceParams: SurfaceParams{
			SmearDecayRate:   0.3,
			RippleDamping:    0.05,
			RippleSpeed:      1,
			DentRecoveryRate: 0.02,
		},
	}
	l.Sanitize()
	return l
}

// Clone returns a deep copy of l.
func (l LayerConfig) Clone() LayerConfig {
	l.AttractionPoints = slices.Clone(l.AttractionPoints)
	l.MaterialPalette = slices.Clone(l.MaterialPalette)
	return l
}

// Patch applies a partial JSON document on top of l. Only keys present in
// raw change; list fields are replaced wholesale. The identity is kept.
func (l LayerConfig) Patch(raw []byte) (LayerConfig, error) {
	out := l.Clone()
	if err := json.Unmarshal(raw, &out); err != nil {
		return l, fmt.Errorf("patching layer %s: %w", l.ID, err)
	}
	out.ID = l.ID
	out.Sanitize()
	return out, nil
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID returns a random 8-character base36 identity.
func NewID() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return string(b)
}
