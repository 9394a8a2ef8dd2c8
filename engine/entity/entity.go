package entity

import (
	"math"

	"github.com/Carmen-Shannon/oxy-waves/common"
	"github.com/Carmen-Shannon/oxy-waves/engine/frame"
	"github.com/go-gl/mathgl/mgl32"
)

type entity struct {
	id     uint64
	index  int
	frames int

	transform        mgl32.Mat4
	textureTransform mgl32.Mat4
	materialIndex    uint32

	// scroll is the texture-space velocity applied by AdvanceTextureScroll, in units per second.
	scroll       mgl32.Vec2
	scrollOffset mgl32.Vec2

	pending *placement

	// dirtyCount is the number of frame slots whose transform-table copy is still stale.
	dirtyCount int
}

// Entity is a renderable item whose per-instance data is mirrored into every frame slot's
// transform table. A change re-arms the dirty count to the number of frames; each slot that
// receives the new data consumes one unit. An entity with a zero dirty count is never written.
//
// Entities are owned by the tick goroutine and are not safe for concurrent mutation.
type Entity interface {
	// ID returns the entity's unique identifier.
	//
	// Returns:
	//   - uint64: the entity ID
	ID() uint64

	// Index returns the entity's row in every slot's transform table.
	//
	// Returns:
	//   - int: the table index
	Index() int

	// Transform returns the object-to-world matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the world matrix (column-major)
	Transform() mgl32.Mat4

	// TextureTransform returns the texture coordinate transform.
	//
	// Returns:
	//   - mgl32.Mat4: the texture transform (column-major)
	TextureTransform() mgl32.Mat4

	// MaterialIndex returns the index into the material table.
	//
	// Returns:
	//   - uint32: the material index
	MaterialIndex() uint32

	// SetTransform replaces the world matrix and marks the entity changed.
	//
	// Parameters:
	//   - m: the new world matrix
	SetTransform(m mgl32.Mat4)

	// SetTextureTransform replaces the texture transform and marks the entity changed.
	//
	// Parameters:
	//   - m: the new texture transform
	SetTextureTransform(m mgl32.Mat4)

	// SetMaterialIndex replaces the material index and marks the entity changed.
	//
	// Parameters:
	//   - index: the new material index
	SetMaterialIndex(index uint32)

	// TextureScroll returns the texture scroll velocity (zero when the texture is static).
	//
	// Returns:
	//   - mgl32.Vec2: scroll velocity in texture units per second
	TextureScroll() mgl32.Vec2

	// AdvanceTextureScroll moves the texture offset by the scroll velocity over dt seconds,
	// wrapping into [0,1), and marks the entity changed. It does nothing for static textures.
	//
	// Parameters:
	//   - dt: elapsed seconds
	AdvanceTextureScroll(dt float32)

	// MarkChanged re-arms the entity so every frame slot receives its data again.
	MarkChanged()

	// DirtyCount returns how many frame slots still hold stale data for this entity.
	//
	// Returns:
	//   - int: the remaining dirty count, in [0, frames]
	DirtyCount() int

	// Consume packs the entity's data for one slot's transform table and hands it to write. The
	// dirty count is decremented only when write succeeds; a clean entity never calls write.
	//
	// Parameters:
	//   - write: stores the packed record in a slot
	//
	// Returns:
	//   - bool: true if write was called
	//   - error: the error returned by write, if any
	Consume(write func(frame.GPUInstanceData) error) (bool, error)
}

var _ Entity = &entity{}

func newEntity(id uint64, index, frames int) *entity {
	return &entity{
		id:               id,
		index:            index,
		frames:           frames,
		transform:        mgl32.Ident4(),
		textureTransform: mgl32.Ident4(),
	}
}

func (e *entity) ID() uint64 {
	return e.id
}

func (e *entity) Index() int {
	return e.index
}

func (e *entity) Transform() mgl32.Mat4 {
	return e.transform
}

func (e *entity) TextureTransform() mgl32.Mat4 {
	return e.textureTransform
}

func (e *entity) MaterialIndex() uint32 {
	return e.materialIndex
}

func (e *entity) SetTransform(m mgl32.Mat4) {
	e.transform = m
	e.MarkChanged()
}

func (e *entity) SetTextureTransform(m mgl32.Mat4) {
	e.textureTransform = m
	e.MarkChanged()
}

func (e *entity) SetMaterialIndex(index uint32) {
	e.materialIndex = index
	e.MarkChanged()
}

func (e *entity) TextureScroll() mgl32.Vec2 {
	return e.scroll
}

func (e *entity) AdvanceTextureScroll(dt float32) {
	if e.scroll == (mgl32.Vec2{}) || dt <= 0 {
		return
	}

	e.scrollOffset = mgl32.Vec2{
		wrap(e.scrollOffset.X() + e.scroll.X()*dt),
		wrap(e.scrollOffset.Y() + e.scroll.Y()*dt),
	}
	// Translation lives in the last column of the column-major texture transform.
	e.textureTransform[12] = e.scrollOffset.X()
	e.textureTransform[13] = e.scrollOffset.Y()
	e.MarkChanged()
}

func (e *entity) MarkChanged() {
	e.dirtyCount = e.frames
}

func (e *entity) DirtyCount() int {
	return e.dirtyCount
}

func (e *entity) Consume(write func(frame.GPUInstanceData) error) (bool, error) {
	if e.dirtyCount == 0 {
		return false, nil
	}
	data := frame.GPUInstanceData{
		World:         common.Pack(e.transform),
		TexTransform:  common.Pack(e.textureTransform),
		MaterialIndex: e.materialIndex,
	}
	if err := write(data); err != nil {
		return true, err
	}
	e.dirtyCount--
	return true, nil
}

// wrap folds v into [0,1).
func wrap(v float32) float32 {
	v -= float32(math.Floor(float64(v)))
	if v >= 1 {
		v = 0
	}
	return v
}
