package scene

import (
	"github.com/Carmen-Shannon/oxy-waves/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// PassBuilderOption is a functional option for configuring a Pass.
// Use the With* functions to create options.
type PassBuilderOption func(p *pass)

// WithLights replaces the default three-light sun rig.
//
// Parameters:
//   - lights: the lights packed into every pass entry (at most light.MaxPassLights)
//
// Returns:
//   - PassBuilderOption: option function to apply
func WithLights(lights ...light.Light) PassBuilderOption {
	return func(p *pass) {
		p.lights = lights
	}
}

// WithAmbient sets the ambient light colour.
//
// Parameters:
//   - ambient: RGBA ambient term
//
// Returns:
//   - PassBuilderOption: option function to apply
func WithAmbient(ambient mgl32.Vec4) PassBuilderOption {
	return func(p *pass) {
		p.ambient = ambient
	}
}

// WithFog sets the fog colour and the distance band over which it fades in.
//
// Parameters:
//   - color: RGBA fog colour
//   - start: distance from the eye where fog begins
//   - rng: distance over which fog reaches full strength
//
// Returns:
//   - PassBuilderOption: option function to apply
func WithFog(color mgl32.Vec4, start, rng float32) PassBuilderOption {
	return func(p *pass) {
		p.fogColor = color
		p.fogStart = start
		p.fogRange = rng
	}
}

// WithRenderTarget sets the render target size in pixels. The camera aspect follows it.
func WithRenderTarget(width, height int) PassBuilderOption {
	return func(p *pass) {
		p.targetWidth = float32(width)
		p.targetHeight = float32(height)
	}
}

// WithReflection adds a second pass entry whose view is mirrored about the plane y = planeY.
// The slots must hold two pass entries.
func WithReflection(planeY float32) PassBuilderOption {
	return func(p *pass) {
		p.reflect = true
		p.planeY = planeY
	}
}

// WithDisturber drops a random impulse into the wave field every interval seconds. Magnitudes
// are uniform in [minMagnitude, maxMagnitude]. The same seed reproduces the same sequence.
//
// Parameters:
//   - interval: seconds between impulses
//   - minMagnitude, maxMagnitude: impulse magnitude range
//   - seed: random seed
//
// Returns:
//   - PassBuilderOption: option function to apply
func WithDisturber(interval, minMagnitude, maxMagnitude float32, seed uint64) PassBuilderOption {
	return func(p *pass) {
		p.disturber = newDisturber(interval, minMagnitude, maxMagnitude, seed)
	}
}
