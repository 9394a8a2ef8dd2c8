package entity

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-waves/common"
)

type registry struct {
	frames  int
	nextID  uint64
	entries []*entity // indexed by transform-table index; nil when free
	byID    map[uint64]*entity
}

// Registry allocates entities into a fixed-capacity transform table. Every entity owns one table
// index for its lifetime, and that index addresses the same row in every frame slot.
type Registry interface {
	// Create builds an entity at the lowest free table index. The new entity starts dirty for
	// every frame slot.
	//
	// Parameters:
	//   - options: functional options configuring the entity
	//
	// Returns:
	//   - Entity: the created entity
	//   - error: *CapacityError if no index is free
	Create(options ...EntityBuilderOption) (Entity, error)

	// Destroy releases an entity's table index. Unknown IDs are ignored.
	//
	// Parameters:
	//   - id: the entity ID
	//
	// Returns:
	//   - bool: true if an entity was removed
	Destroy(id uint64) bool

	// Get looks an entity up by ID.
	//
	// Parameters:
	//   - id: the entity ID
	//
	// Returns:
	//   - Entity: the entity, or nil
	//   - bool: true if found
	Get(id uint64) (Entity, bool)

	// Each visits live entities in ascending table-index order.
	//
	// Parameters:
	//   - fn: visitor called once per entity
	Each(fn func(Entity))

	// Count returns the number of live entities.
	Count() int

	// Capacity returns the size of the transform table.
	Capacity() int

	// Frames returns the number of frame slots each change must reach.
	Frames() int
}

var _ Registry = &registry{}

// NewRegistry creates an empty registry.
//
// Parameters:
//   - capacity: number of transform-table entries (at least 1)
//   - frames: number of frame slots in the ring (at least 1)
//
// Returns:
//   - Registry: the registry
//   - error: a configuration error for non-positive sizes
func NewRegistry(capacity, frames int) (Registry, error) {
	if capacity < 1 || frames < 1 {
		return nil, fmt.Errorf("entity: %w: capacity %d and frame count %d must be positive",
			common.ErrConfiguration, capacity, frames)
	}
	return &registry{
		frames:  frames,
		entries: make([]*entity, capacity),
		byID:    make(map[uint64]*entity, capacity),
	}, nil
}

func (r *registry) Create(options ...EntityBuilderOption) (Entity, error) {
	index := -1
	for i, e := range r.entries {
		if e == nil {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, &CapacityError{Capacity: len(r.entries)}
	}

	r.nextID++
	e := newEntity(r.nextID, index, r.frames)
	for _, option := range options {
		option(e)
	}
	e.build()
	e.MarkChanged()

	r.entries[index] = e
	r.byID[e.id] = e
	common.Logger().Debug("entity: created", "id", e.id, "index", index)
	return e, nil
}

func (r *registry) Destroy(id uint64) bool {
	e, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	r.entries[e.index] = nil
	return true
}

func (r *registry) Get(id uint64) (Entity, bool) {
	e, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return e, true
}

func (r *registry) Each(fn func(Entity)) {
	for _, e := range r.entries {
		if e != nil {
			fn(e)
		}
	}
}

func (r *registry) Count() int {
	return len(r.byID)
}

func (r *registry) Capacity() int {
	return len(r.entries)
}

func (r *registry) Frames() int {
	return r.frames
}
