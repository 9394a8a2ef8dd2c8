package frame

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-waves/engine/light"
)

// GPUInstanceData is one transform-table record. Matrices are stored transposed (row-major) as
// the shaders read them.
// Size: 144 bytes (std430 / WGSL aligned).
type GPUInstanceData struct {
	World         [16]float32 // offset   0: object-to-world matrix
	TexTransform  [16]float32 // offset  64: texture coordinate transform
	MaterialIndex uint32      // offset 128: index into the material table
	_pad          [3]uint32   // offset 132: padding to 144 bytes
}

// Size returns the size of the GPUInstanceData struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (144)
func (g *GPUInstanceData) Size() int {
	return int(unsafe.Sizeof(*g))
}

// GPUPassConstants holds the camera, lighting, fog and time constants of one render pass.
// Matrices are stored transposed.
// Size: 1504 bytes (std140 / WGSL aligned).
type GPUPassConstants struct {
	View                [16]float32 // offset    0
	InvView             [16]float32 // offset   64
	Proj                [16]float32 // offset  128
	InvProj             [16]float32 // offset  192
	ViewProj            [16]float32 // offset  256
	InvViewProj         [16]float32 // offset  320
	EyePos              [3]float32  // offset  384
	_pad0               float32     // offset  396
	RenderTargetSize    [2]float32  // offset  400
	InvRenderTargetSize [2]float32  // offset  408
	NearZ               float32     // offset  416
	FarZ                float32     // offset  420
	TotalTime           float32     // offset  424
	DeltaTime           float32     // offset  428
	AmbientLight        [4]float32  // offset  432
	FogColor            [4]float32  // offset  448
	FogStart            float32     // offset  464
	FogRange            float32     // offset  468
	LightCount          uint32      // offset  472
	_pad1               float32     // offset  476
	Lights              [light.MaxPassLights]light.GPULight
}

// Size returns the size of the GPUPassConstants struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (1504)
func (g *GPUPassConstants) Size() int {
	return int(unsafe.Sizeof(*g))
}

// GPUVertex is one vertex of the dynamic wave mesh.
// Size: 32 bytes.
type GPUVertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}
