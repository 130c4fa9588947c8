package config

import "math"

func clampF(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MaxParticles is the largest particle count a single layer may request.
const MaxParticles = 20000

// Sanitize clamps every field of g to its valid range and replaces unknown
// enum values with defaults.
func (g *GlobalConfig) Sanitize() {
	g.TimeScale = clampF(g.TimeScale, 0, 4)
	g.ClearRate = clampF(g.ClearRate, 0, 1)
	g.Exposure = clampF(g.Exposure, 0, 4)
	g.Threshold = clampF(g.Threshold, 0, 1)
	g.ThresholdSoft = clampF(g.ThresholdSoft, 0, 0.5)
	g.ThresholdGain = clampF(g.ThresholdGain, 0, 4)
	g.AudioGain = clampF(g.AudioGain, 0, 4)
	if !g.ResolutionPreset.Valid() {
		g.ResolutionPreset = Res2048
	}
	g.CustomWidth = clampInt(g.CustomWidth, 256, 4096)
	g.CustomHeight = clampInt(g.CustomHeight, 256, 4096)
}

// Sanitize clamps every field of l to its UI range and replaces unknown
// enum values with the defaults for the layer's type.
func (l *LayerConfig) Sanitize() {
	if !l.Type.Valid() {
		l.Type = DefaultType
	}
	if !l.Kind.Valid() {
		l.Kind = KindForeground
	}
	l.ParticleCount = clampInt(l.ParticleCount, 1, MaxParticles)

	p := &l.PhysicsParams
	p.SpawnRate = clampF(p.SpawnRate, 0, 1)
	p.SpawnSpeed = clampF(p.SpawnSpeed, 0, 2)
	p.Gravity = clampF(p.Gravity, -0.5, 1)
	p.Drag = clampF(p.Drag, 0, 0.5)
	p.Jitter = clampF(p.Jitter, 0, 1)
	p.Curl = clampF(p.Curl, 0, 2)
	p.Attract = clampF(p.Attract, -1, 1)
	p.AttractFalloff = clampF(p.AttractFalloff, 0, 2)
	p.AttractPoint = clampPoint(p.AttractPoint)
	p.WindAngle = clampF(p.WindAngle, 0, 360)
	p.WindStrength = clampF(p.WindStrength, 0, 0.5)
	p.Speed = clampF(p.Speed, 0, 2)
	p.AccumulationRate = clampF(p.AccumulationRate, 0, 1)
	p.AccumulationTime = clampF(p.AccumulationTime, 0, 10)
	p.DecayRate = clampF(p.DecayRate, 0, 1)
	if len(p.AttractionPoints) > MaxAttractionPoints {
		p.AttractionPoints = p.AttractionPoints[:MaxAttractionPoints]
	}
	for i := range p.AttractionPoints {
		a := &p.AttractionPoints[i]
		a.X = clampF(a.X, 0, 1)
		a.Y = clampF(a.Y, 0, 1)
		a.Strength = clampF(a.Strength, -1, 1)
		a.Falloff = clampF(a.Falloff, 0, 2)
		if !a.Type.Valid() {
			a.Type = AttractDirect
		}
		if !a.Effect.Valid() {
			a.Effect = EffectNone
		}
	}

	preset := Cfg().Preset(l.Type)

	s := &l.Spawn
	if !s.Region.Valid() {
		s.Region = preset.SpawnRegion
	}
	s.EdgeOffset = clampF(s.EdgeOffset, 0, 1)
	s.EdgeSpread = clampF(s.EdgeSpread, 0, 1)
	s.CenterPoint = clampPoint(s.CenterPoint)
	s.BurstSpeed = clampF(s.BurstSpeed, 0, 1)

	m := &l.Movement
	if !m.Pattern.Valid() {
		m.Pattern = preset.Pattern
	}
	m.Direction = clampF(m.Direction, 0, 360)
	m.Speed = clampF(m.Speed, 0, 5)
	m.CenterPoint = clampPoint(m.CenterPoint)
	m.SpiralTightness = clampF(m.SpiralTightness, 0, 2)
	m.OrbitRadius = clampF(m.OrbitRadius, 0, 2)
	m.WaveAmplitude = clampF(m.WaveAmplitude, 0, 1)
	m.WaveFrequency = clampF(m.WaveFrequency, 0, 10)
	m.VortexStrength = clampF(m.VortexStrength, 0, 1)
	m.VortexInward = clampF(m.VortexInward, -1, 1)
	m.EvadeStrength = clampF(m.EvadeStrength, 0, 1)
	m.EvadeRadius = clampF(m.EvadeRadius, 0, 1)
	m.ClusterStrength = clampF(m.ClusterStrength, 0, 1)
	m.ClusterBreakThreshold = clampF(m.ClusterBreakThreshold, 0, 1)

	b := &l.BoundaryParams
	if !b.BoundaryMode.Valid() {
		b.BoundaryMode = preset.BoundaryMode
	}
	b.BoundaryBounce = clampF(b.BoundaryBounce, 0, 1.5)
	b.MaskThreshold = clampF(b.MaskThreshold, 0, 1)
	b.MaskTransform.X = clampF(b.MaskTransform.X, -1, 1)
	b.MaskTransform.Y = clampF(b.MaskTransform.Y, -1, 1)
	b.MaskTransform.Scale = clampF(b.MaskTransform.Scale, 0.1, 4)
	b.MaskTransform.Rotation = clampF(b.MaskTransform.Rotation, -360, 360)
	b.MaskTransform.SkewX = clampF(b.MaskTransform.SkewX, -1, 1)
	b.MaskTransform.SkewY = clampF(b.MaskTransform.SkewY, -1, 1)
	if !b.MaskMode.Valid() {
		b.MaskMode = preset.MaskMode
	}
	b.MaskStickiness = clampF(b.MaskStickiness, 0, 1)
	b.MaskMagnetism = clampF(b.MaskMagnetism, -1, 1)
	b.MaskMagnetismRadius = clampF(b.MaskMagnetismRadius, 0, 1)
	if !b.MaterialMode.Valid() {
		b.MaterialMode = MaterialBinary
	}
	for i := range b.MaterialPalette {
		sanitizeMaterial(&b.MaterialPalette[i])
	}

	a := &l.AppearanceParams
	if !a.Shape.Valid() {
		a.Shape = ShapeDot
	}
	a.PointSize = clampF(a.PointSize, 0.5, 64)
	a.SizeJitter = clampF(a.SizeJitter, 0, 2)
	a.Brightness = clampF(a.Brightness, 0, 2)
	a.BrightnessJitter = clampF(a.BrightnessJitter, 0, 1)
	a.Dither = clampF(a.Dither, 0, 1)
	a.TrailLength = clampF(a.TrailLength, 0, 1)
	if !a.ColorMode.Valid() {
		a.ColorMode = ColorSingle
	}
	if a.Color == "" {
		a.Color = preset.Color
	}
	if a.GradientBy != "" && !a.GradientBy.Valid() {
		a.GradientBy = GradientByAge
	}
	if a.ColorScheme != "" && !a.ColorScheme.Valid() {
		a.ColorScheme = SchemeFire
	}

	d := &l.DepthParams
	d.DepthBlur = clampInt(d.DepthBlur, 0, 16)
	d.DepthCurve = clampF(d.DepthCurve, 0.1, 4)
	d.DepthScale = clampF(d.DepthScale, 0, 2)
	d.GroundPlaneTilt = clampF(d.GroundPlaneTilt, 0, 89)
	d.GroundPlaneY = clampF(d.GroundPlaneY, 0, 1)

	sf := &l.SurfaceParams
	sf.SmearDecayRate = clampF(sf.SmearDecayRate, 0, 1)
	sf.RippleDamping = clampF(sf.RippleDamping, 0, 1)
	sf.RippleSpeed = clampF(sf.RippleSpeed, 0, 4)
	sf.DentRecoveryRate = clampF(sf.DentRecoveryRate, 0, 1)
}

func sanitizeMaterial(m *MaterialPreset) {
	r := &m.Response
	r.Deflect = clampF(r.Deflect, 0, 1)
	r.Stick = clampF(r.Stick, 0, 1)
	r.PassThrough = clampF(r.PassThrough, 0, 1)
	r.Fragment = clampF(r.Fragment, 0, 1)
	r.DepositSmear = clampF(r.DepositSmear, 0, 1)
	r.DepositRipple = clampF(r.DepositRipple, 0, 1)
	r.DepositDent = clampF(r.DepositDent, 0, 1)
	r.Glow = clampF(r.Glow, 0, 1)
	m.FragmentCount = clampInt(m.FragmentCount, 0, 16)
	m.FragmentLifespan = clampF(m.FragmentLifespan, 0, 5)
	m.DecayRate = clampF(m.DecayRate, 0, 1)
	if m.Color == "" {
		m.Color = "#ffffff"
	}
}

func clampPoint(p Point) Point {
	return Point{X: clampF(p.X, 0, 1), Y: clampF(p.Y, 0, 1)}
}
