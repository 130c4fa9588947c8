package config

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownEnum is returned when a configuration document names a value
// outside an enum's closed set.
var ErrUnknownEnum = errors.New("unknown enum value")

func parseEnum[T ~string](kind string, text []byte, valid []T) (T, error) {
	v := T(text)
	if !slices.Contains(valid, v) {
		return "", fmt.Errorf("%s %q: %w", kind, string(text), ErrUnknownEnum)
	}
	return v, nil
}

// LayerKind is the compositing role of a layer.
type LayerKind string

const (
	KindForeground   LayerKind = "foreground"
	KindBackground   LayerKind = "background"
	KindMask         LayerKind = "mask"
	KindDirectedFlow LayerKind = "directedFlow"
)

var layerKinds = []LayerKind{KindForeground, KindBackground, KindMask, KindDirectedFlow}

func (k LayerKind) Valid() bool { return slices.Contains(layerKinds, k) }

func (k *LayerKind) UnmarshalText(b []byte) error {
	v, err := parseEnum("layer kind", b, layerKinds)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParticleType selects the physical archetype a layer is seeded from.
type ParticleType string

const (
	TypeSand   ParticleType = "sand"
	TypeDust   ParticleType = "dust"
	TypeSparks ParticleType = "sparks"
	TypeInk    ParticleType = "ink"
	TypeLiquid ParticleType = "liquid"
	TypeCrumbs ParticleType = "crumbs"
)

// DefaultType is the archetype used when a preset lookup misses.
const DefaultType = TypeCrumbs

var particleTypes = []ParticleType{TypeSand, TypeDust, TypeSparks, TypeInk, TypeLiquid, TypeCrumbs}

func (t ParticleType) Valid() bool { return slices.Contains(particleTypes, t) }

func (t *ParticleType) UnmarshalText(b []byte) error {
	v, err := parseEnum("particle type", b, particleTypes)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// SpawnRegion is where new or re-seeded particles appear.
type SpawnRegion string

const (
	RegionRandom          SpawnRegion = "random"
	RegionCenter          SpawnRegion = "center"
	RegionCenterBurst     SpawnRegion = "centerBurst"
	RegionTopEdge         SpawnRegion = "topEdge"
	RegionBottomEdge      SpawnRegion = "bottomEdge"
	RegionLeftEdge        SpawnRegion = "leftEdge"
	RegionRightEdge       SpawnRegion = "rightEdge"
	RegionOffCanvasTop    SpawnRegion = "offCanvasTop"
	RegionOffCanvasBottom SpawnRegion = "offCanvasBottom"
	RegionOffCanvasLeft   SpawnRegion = "offCanvasLeft"
	RegionOffCanvasRight  SpawnRegion = "offCanvasRight"
	RegionMask            SpawnRegion = "mask"
	RegionMaskEdge        SpawnRegion = "maskEdge"
	RegionCustom          SpawnRegion = "custom"
)

var spawnRegions = []SpawnRegion{
	RegionRandom, RegionCenter, RegionCenterBurst,
	RegionTopEdge, RegionBottomEdge, RegionLeftEdge, RegionRightEdge,
	RegionOffCanvasTop, RegionOffCanvasBottom, RegionOffCanvasLeft, RegionOffCanvasRight,
	RegionMask, RegionMaskEdge, RegionCustom,
}

func (r SpawnRegion) Valid() bool { return slices.Contains(spawnRegions, r) }

func (r *SpawnRegion) UnmarshalText(b []byte) error {
	v, err := parseEnum("spawn region", b, spawnRegions)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// MovementPattern shapes particle velocity independently of physical forces.
type MovementPattern string

const (
	PatternStill      MovementPattern = "still"
	PatternLinear     MovementPattern = "linear"
	PatternOrbit      MovementPattern = "orbit"
	PatternSpiral     MovementPattern = "spiral"
	PatternWave       MovementPattern = "wave"
	PatternVortex     MovementPattern = "vortex"
	PatternBrownian   MovementPattern = "brownian"
	PatternFigure8    MovementPattern = "figure8"
	PatternFollowCurl MovementPattern = "followCurl"
	PatternEvade      MovementPattern = "evade"
	PatternClusters   MovementPattern = "clusters"
	PatternRadialOut  MovementPattern = "radialOut"
	PatternRadialIn   MovementPattern = "radialIn"
)

var movementPatterns = []MovementPattern{
	PatternStill, PatternLinear, PatternOrbit, PatternSpiral, PatternWave, PatternVortex,
	PatternBrownian, PatternFigure8, PatternFollowCurl, PatternEvade, PatternClusters,
	PatternRadialOut, PatternRadialIn,
}

func (p MovementPattern) Valid() bool { return slices.Contains(movementPatterns, p) }

func (p *MovementPattern) UnmarshalText(b []byte) error {
	v, err := parseEnum("movement pattern", b, movementPatterns)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// BoundaryMode is the canvas edge behavior.
type BoundaryMode string

const (
	BoundaryBounce  BoundaryMode = "bounce"
	BoundaryWrap    BoundaryMode = "wrap"
	BoundaryRespawn BoundaryMode = "respawn"
	BoundaryDestroy BoundaryMode = "destroy"
)

var boundaryModes = []BoundaryMode{BoundaryBounce, BoundaryWrap, BoundaryRespawn, BoundaryDestroy}

func (m BoundaryMode) Valid() bool { return slices.Contains(boundaryModes, m) }

func (m *BoundaryMode) UnmarshalText(b []byte) error {
	v, err := parseEnum("boundary mode", b, boundaryModes)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MaskMode is how particles react to the mask.
type MaskMode string

const (
	MaskIgnore     MaskMode = "ignore"
	MaskCollision  MaskMode = "collision"
	MaskAccumulate MaskMode = "accumulate"
)

var maskModes = []MaskMode{MaskIgnore, MaskCollision, MaskAccumulate}

func (m MaskMode) Valid() bool { return slices.Contains(maskModes, m) }

func (m *MaskMode) UnmarshalText(b []byte) error {
	v, err := parseEnum("mask mode", b, maskModes)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MaterialMode selects how mask pixels map to material responses.
type MaterialMode string

const (
	MaterialBinary    MaterialMode = "binary"
	MaterialPalette   MaterialMode = "palette"
	MaterialRGBParams MaterialMode = "rgbParams"
)

var materialModes = []MaterialMode{MaterialBinary, MaterialPalette, MaterialRGBParams}

func (m MaterialMode) Valid() bool { return slices.Contains(materialModes, m) }

func (m *MaterialMode) UnmarshalText(b []byte) error {
	v, err := parseEnum("material mode", b, materialModes)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Shape is the sprite drawn for each particle.
type Shape string

const (
	ShapeDot     Shape = "dot"
	ShapeSquare  Shape = "square"
	ShapeStar    Shape = "star"
	ShapeDash    Shape = "dash"
	ShapeRing    Shape = "ring"
	ShapeDiamond Shape = "diamond"
	ShapeCross   Shape = "cross"
	ShapeTilde   Shape = "tilde"
)

// Shapes lists every sprite shape in atlas order.
var Shapes = []Shape{ShapeDot, ShapeSquare, ShapeStar, ShapeDash, ShapeRing, ShapeDiamond, ShapeCross, ShapeTilde}

func (s Shape) Valid() bool { return slices.Contains(Shapes, s) }

func (s *Shape) UnmarshalText(b []byte) error {
	v, err := parseEnum("shape", b, Shapes)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ColorMode selects how particle color is resolved.
type ColorMode string

const (
	ColorSingle   ColorMode = "single"
	ColorGradient ColorMode = "gradient"
	ColorScheme   ColorMode = "scheme"
	ColorRange    ColorMode = "range"
)

var colorModes = []ColorMode{ColorSingle, ColorGradient, ColorScheme, ColorRange}

func (m ColorMode) Valid() bool { return slices.Contains(colorModes, m) }

func (m *ColorMode) UnmarshalText(b []byte) error {
	v, err := parseEnum("color mode", b, colorModes)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// SchemeName names a built-in color scheme.
type SchemeName string

const (
	SchemeFire   SchemeName = "fire"
	SchemeIce    SchemeName = "ice"
	SchemeAurora SchemeName = "aurora"
	SchemeSunset SchemeName = "sunset"
	SchemeNeon   SchemeName = "neon"
	SchemeMono   SchemeName = "mono"
)

var schemeNames = []SchemeName{SchemeFire, SchemeIce, SchemeAurora, SchemeSunset, SchemeNeon, SchemeMono}

func (s SchemeName) Valid() bool { return slices.Contains(schemeNames, s) }

func (s *SchemeName) UnmarshalText(b []byte) error {
	v, err := parseEnum("color scheme", b, schemeNames)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// GradientBy is the parameter a gradient color is indexed by.
type GradientBy string

const (
	GradientByAge      GradientBy = "age"
	GradientByPosition GradientBy = "position"
)

var gradientBys = []GradientBy{GradientByAge, GradientByPosition}

func (g GradientBy) Valid() bool { return slices.Contains(gradientBys, g) }

func (g *GradientBy) UnmarshalText(b []byte) error {
	v, err := parseEnum("gradient index", b, gradientBys)
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// AttractionType shapes the force an attraction point exerts.
type AttractionType string

const (
	AttractDirect    AttractionType = "direct"
	AttractSpiral    AttractionType = "spiral"
	AttractBlackhole AttractionType = "blackhole"
	AttractPulsing   AttractionType = "pulsing"
	AttractMagnetic  AttractionType = "magnetic"
)

var attractionTypes = []AttractionType{AttractDirect, AttractSpiral, AttractBlackhole, AttractPulsing, AttractMagnetic}

func (a AttractionType) Valid() bool { return slices.Contains(attractionTypes, a) }

func (a *AttractionType) UnmarshalText(b []byte) error {
	v, err := parseEnum("attraction type", b, attractionTypes)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// AttractionEffect is the transition applied to a captured particle.
type AttractionEffect string

const (
	EffectNone        AttractionEffect = "none"
	EffectDespawn     AttractionEffect = "despawn"
	EffectOrbit       AttractionEffect = "orbit"
	EffectConcentrate AttractionEffect = "concentrate"
	EffectTransform   AttractionEffect = "transform"
	EffectPassToNext  AttractionEffect = "passToNext"
)

var attractionEffects = []AttractionEffect{EffectNone, EffectDespawn, EffectOrbit, EffectConcentrate, EffectTransform, EffectPassToNext}

func (e AttractionEffect) Valid() bool { return slices.Contains(attractionEffects, e) }

func (e *AttractionEffect) UnmarshalText(b []byte) error {
	v, err := parseEnum("attraction effect", b, attractionEffects)
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// ResolutionPreset names an output canvas size.
type ResolutionPreset string

const (
	Res512    ResolutionPreset = "512x512"
	Res1024   ResolutionPreset = "1024x1024"
	Res2048   ResolutionPreset = "2048x2048"
	Res4096   ResolutionPreset = "4096x4096"
	ResCustom ResolutionPreset = "custom"
)

var resolutionPresets = []ResolutionPreset{Res512, Res1024, Res2048, Res4096, ResCustom}

func (r ResolutionPreset) Valid() bool { return slices.Contains(resolutionPresets, r) }

func (r *ResolutionPreset) UnmarshalText(b []byte) error {
	v, err := parseEnum("resolution preset", b, resolutionPresets)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// DragMode selects how drag interacts with the frame delta.
type DragMode string

const (
	// DragPerTick applies v *= 1-drag once per step regardless of dt.
	DragPerTick DragMode = "per_tick"
	// DragScaled applies v *= (1-drag)^(dt/ref_dt).
	DragScaled DragMode = "scaled"
)

var dragModes = []DragMode{DragPerTick, DragScaled}

func (m DragMode) Valid() bool { return slices.Contains(dragModes, m) }

func (m *DragMode) UnmarshalText(b []byte) error {
	v, err := parseEnum("drag mode", b, dragModes)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
