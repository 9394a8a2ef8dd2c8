package light

import "github.com/go-gl/mathgl/mgl32"

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no position, only direction.
	// Used for distant sources like the sun. No distance attenuation.
	LightTypeDirectional LightType = iota

	// LightTypePoint emits in all directions from a position and attenuates up to its range.
	LightTypePoint

	// LightTypeSpot emits in a cone from a position along a direction.
	LightTypeSpot
)

type lightImpl struct {
	lightType  LightType
	position   mgl32.Vec3
	direction  mgl32.Vec3
	color      mgl32.Vec3
	intensity  float32
	lightRange float32
	innerCone  float32 // cos(angle)
	outerCone  float32 // cos(angle)
	enabled    bool
}

// Light is a light source whose parameters are folded into the per-pass constants each tick.
// Type-specific properties return zero values when not applicable.
type Light interface {
	// Type returns the kind of light source.
	Type() LightType

	// Position returns the world-space position. Meaningless for directional lights.
	Position() mgl32.Vec3

	// Direction returns the normalized light direction.
	Direction() mgl32.Vec3

	// Color returns the RGB color.
	Color() mgl32.Vec3

	// Intensity returns the scalar multiplier applied to Color.
	Intensity() float32

	// Range returns the attenuation cutoff distance for point and spot lights.
	Range() float32

	// Enabled reports whether the light contributes to the pass constants.
	Enabled() bool

	// SetEnabled toggles whether the light contributes to the pass constants.
	//
	// Parameters:
	//   - enabled: true to include the light
	SetEnabled(enabled bool)

	// SetDirection replaces the light direction. The vector is normalized before storing.
	//
	// Parameters:
	//   - x, y, z: direction components
	SetDirection(x, y, z float32)

	// GPU converts the light into its upload layout.
	//
	// Returns:
	//   - GPULight: the packed light
	GPU() GPULight
}

var _ Light = &lightImpl{}

// NewLight creates an enabled Light configured with the given options.
// Defaults to a white directional light pointing straight down.
//
// Parameters:
//   - options: functional options to configure the light
//
// Returns:
//   - Light: the newly created light
func NewLight(options ...LightBuilderOption) Light {
	l := &lightImpl{
		lightType: LightTypeDirectional,
		direction: mgl32.Vec3{0, -1, 0},
		color:     mgl32.Vec3{1, 1, 1},
		intensity: 1,
		enabled:   true,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// DefaultSunLights returns the three-light directional rig used by the land-and-waves scene:
// a strong key light, a weaker fill light and a dim back light.
//
// Returns:
//   - []Light: key, fill and back lights
func DefaultSunLights() []Light {
	return []Light{
		NewLight(WithDirection(0.57735, -0.57735, 0.57735), WithIntensity(0.9)),
		NewLight(WithDirection(-0.57735, -0.57735, 0.57735), WithIntensity(0.5)),
		NewLight(WithDirection(0, -0.707, -0.707), WithIntensity(0.2)),
	}
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() mgl32.Vec3 {
	return l.position
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	return l.direction
}

func (l *lightImpl) Color() mgl32.Vec3 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) Range() float32 {
	return l.lightRange
}

func (l *lightImpl) Enabled() bool {
	return l.enabled
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.enabled = enabled
}

func (l *lightImpl) SetDirection(x, y, z float32) {
	l.direction = normalize(mgl32.Vec3{x, y, z})
}

func (l *lightImpl) GPU() GPULight {
	return GPULight{
		Position:   l.position,
		LightType:  uint32(l.lightType),
		Color:      l.color,
		Intensity:  l.intensity,
		Direction:  l.direction,
		LightRange: l.lightRange,
		InnerCone:  l.innerCone,
		OuterCone:  l.outerCone,
	}
}

// normalize returns v scaled to unit length, or straight down for a zero vector.
func normalize(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() == 0 {
		return mgl32.Vec3{0, -1, 0}
	}
	return v.Normalize()
}
