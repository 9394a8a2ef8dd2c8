package entity

import (
	"github.com/Carmen-Shannon/oxy-waves/common"
	"github.com/go-gl/mathgl/mgl32"
)

// placement collects the position, rotation and scale options until the world matrix is built.
type placement struct {
	position, rotation mgl32.Vec3
	scale              mgl32.Vec3
}

func (e *entity) placer() *placement {
	if e.pending == nil {
		e.pending = &placement{scale: mgl32.Vec3{1, 1, 1}}
	}
	return e.pending
}

// build folds any pending placement into the world matrix.
func (e *entity) build() {
	if e.pending == nil {
		return
	}
	p := e.pending
	common.BuildModelMatrix(e.transform[:],
		p.position.X(), p.position.Y(), p.position.Z(),
		p.rotation.X(), p.rotation.Y(), p.rotation.Z(),
		p.scale.X(), p.scale.Y(), p.scale.Z())
	e.pending = nil
}

// EntityBuilderOption is a functional option for configuring an Entity during Registry.Create.
type EntityBuilderOption func(*entity)

// WithTransform sets the world matrix directly.
//
// Parameters:
//   - m: the world matrix (column-major)
//
// Returns:
//   - EntityBuilderOption: functional option to set the transform
func WithTransform(m mgl32.Mat4) EntityBuilderOption {
	return func(e *entity) {
		e.transform = m
		e.pending = nil
	}
}

// WithPosition translates the entity. Combines with WithRotation and WithScale.
//
// Parameters:
//   - x, y, z: translation in world space
//
// Returns:
//   - EntityBuilderOption: functional option to set the placement
func WithPosition(x, y, z float32) EntityBuilderOption {
	return func(e *entity) {
		e.placer().position = mgl32.Vec3{x, y, z}
	}
}

// WithRotation rotates the entity by Euler angles in radians, applied in Y*X*Z order.
//
// Parameters:
//   - rx, ry, rz: rotation angles around each axis
//
// Returns:
//   - EntityBuilderOption: functional option to set the placement
func WithRotation(rx, ry, rz float32) EntityBuilderOption {
	return func(e *entity) {
		e.placer().rotation = mgl32.Vec3{rx, ry, rz}
	}
}

// WithScale scales the entity along each axis.
//
// Parameters:
//   - sx, sy, sz: scale factors
//
// Returns:
//   - EntityBuilderOption: functional option to set the placement
func WithScale(sx, sy, sz float32) EntityBuilderOption {
	return func(e *entity) {
		e.placer().scale = mgl32.Vec3{sx, sy, sz}
	}
}

// WithTextureTransform sets the texture coordinate transform.
//
// Parameters:
//   - m: the texture transform
//
// Returns:
//   - EntityBuilderOption: functional option to set the texture transform
func WithTextureTransform(m mgl32.Mat4) EntityBuilderOption {
	return func(e *entity) {
		e.textureTransform = m
	}
}

// WithTextureScale tiles the texture su by sv times across the surface.
func WithTextureScale(su, sv float32) EntityBuilderOption {
	return func(e *entity) {
		e.textureTransform = mgl32.Scale3D(su, sv, 1)
	}
}

// WithMaterialIndex sets the material table index.
func WithMaterialIndex(index uint32) EntityBuilderOption {
	return func(e *entity) {
		e.materialIndex = index
	}
}

// WithTextureScroll makes the texture drift by (u, v) texture units per second.
func WithTextureScroll(u, v float32) EntityBuilderOption {
	return func(e *entity) {
		e.scroll = mgl32.Vec2{u, v}
	}
}
