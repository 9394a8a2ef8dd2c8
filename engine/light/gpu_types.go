package light

import "unsafe"

// MaxPassLights is the number of light records carried by each pass constant entry.
const MaxPassLights = 16

// GPULight is the GPU-aligned representation of a single light source.
// Size: 64 bytes (std430 / WGSL aligned).
type GPULight struct {
	Position   [3]float32 // offset  0: world-space position (point/spot)
	LightType  uint32     // offset 12: 0 = directional, 1 = point, 2 = spot
	Color      [3]float32 // offset 16: RGB color
	Intensity  float32    // offset 28: scalar multiplier
	Direction  [3]float32 // offset 32: normalized direction
	LightRange float32    // offset 44: attenuation cutoff distance
	InnerCone  float32    // offset 48: cos(inner half-angle) for spot
	OuterCone  float32    // offset 52: cos(outer half-angle) for spot
	_pad       [2]uint32  // offset 56: padding to 64 bytes
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Pack fills a fixed-size light array from the enabled lights, in order. Lights beyond
// MaxPassLights are dropped.
//
// Parameters:
//   - lights: the candidate lights
//
// Returns:
//   - [MaxPassLights]GPULight: the packed array
//   - int: the number of records written
func Pack(lights []Light) ([MaxPassLights]GPULight, int) {
	var out [MaxPassLights]GPULight
	n := 0
	for _, l := range lights {
		if l == nil || !l.Enabled() {
			continue
		}
		if n == MaxPassLights {
			break
		}
		out[n] = l.GPU()
		n++
	}
	return out, n
}
