package frame

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-waves/common"
)

// SlotConfig sizes the tables held by every slot of a ring. The sizes are fixed for the life of
// the ring.
type SlotConfig struct {
	// Instances is the transform table capacity, the maximum number of live entities.
	Instances int
	// Passes is the number of pass constant entries: 1, or 2 when an auxiliary pass such as a
	// mirrored view is rendered.
	Passes int
	// Vertices is the dynamic vertex staging size, the simulator's vertex count.
	Vertices int
}

// validate checks the table sizes.
func (c SlotConfig) validate() error {
	if c.Instances < 1 {
		return fmt.Errorf("frame: %w: instance capacity %d must be positive", common.ErrConfiguration, c.Instances)
	}
	if c.Passes < 1 || c.Passes > 2 {
		return fmt.Errorf("frame: %w: pass count %d must be 1 or 2", common.ErrConfiguration, c.Passes)
	}
	if c.Vertices < 0 {
		return fmt.Errorf("frame: %w: vertex count %d must not be negative", common.ErrConfiguration, c.Vertices)
	}
	return nil
}

// Slot is one frame-in-flight context: a private copy of every per-frame upload table plus the
// command context that records it. A slot's tables may only be written between the Advance
// that returned it and the matching Submit.
type Slot struct {
	index    int
	commands CommandContext

	transforms []GPUInstanceData
	passes     []GPUPassConstants
	vertices   []GPUVertex

	// completionTarget is the timeline value that must be reached before reuse. 0 means the
	// slot was never submitted.
	completionTarget uint64
	writable         bool

	transformWrites []uint64 // cumulative writes per table index
	tickWrites      int      // transform writes since the last Advance
}

// newSlot allocates a slot's tables.
func newSlot(index int, cfg SlotConfig, commands CommandContext) *Slot {
	return &Slot{
		index:           index,
		commands:        commands,
		transforms:      make([]GPUInstanceData, cfg.Instances),
		passes:          make([]GPUPassConstants, cfg.Passes),
		vertices:        make([]GPUVertex, cfg.Vertices),
		transformWrites: make([]uint64, cfg.Instances),
	}
}

// Index returns the slot's position in its ring.
func (s *Slot) Index() int {
	return s.index
}

// Commands returns the slot's command recording context, or nil if the ring was built without one.
func (s *Slot) Commands() CommandContext {
	return s.commands
}

// CompletionTarget returns the timeline value that must be reached before the slot is reused.
func (s *Slot) CompletionTarget() uint64 {
	return s.completionTarget
}

// Writable reports whether the slot is between Advance and Submit.
func (s *Slot) Writable() bool {
	return s.writable
}

// InstanceCapacity returns the transform table capacity.
func (s *Slot) InstanceCapacity() int {
	return len(s.transforms)
}

// PassCount returns the number of pass constant entries.
func (s *Slot) PassCount() int {
	return len(s.passes)
}

// VertexCount returns the size of the dynamic vertex staging buffer.
func (s *Slot) VertexCount() int {
	return len(s.vertices)
}

// Transform returns the transform table record at index. Out-of-range indices return a zero record.
//
// Parameters:
//   - index: the table index
//
// Returns:
//   - GPUInstanceData: the stored record
func (s *Slot) Transform(index int) GPUInstanceData {
	if index < 0 || index >= len(s.transforms) {
		return GPUInstanceData{}
	}
	return s.transforms[index]
}

// WriteTransform stores a record in the transform table.
//
// Parameters:
//   - index: the table index owned by the entity
//   - data: the packed record
//
// Returns:
//   - error: ErrSlotNotWritable outside Advance/Submit, or a range error
func (s *Slot) WriteTransform(index int, data GPUInstanceData) error {
	if !s.writable {
		return ErrSlotNotWritable
	}
	if index < 0 || index >= len(s.transforms) {
		return fmt.Errorf("frame: transform index %d out of range [0, %d)", index, len(s.transforms))
	}
	s.transforms[index] = data
	s.transformWrites[index]++
	s.tickWrites++
	return nil
}

// TransformWrites returns how many times the record at index has been written since the slot was built.
//
// Parameters:
//   - index: the table index
//
// Returns:
//   - uint64: the cumulative write count, 0 for out-of-range indices
func (s *Slot) TransformWrites(index int) uint64 {
	if index < 0 || index >= len(s.transformWrites) {
		return 0
	}
	return s.transformWrites[index]
}

// TickWrites returns the number of transform writes made since the slot was last handed out.
func (s *Slot) TickWrites() int {
	return s.tickWrites
}

// Pass returns the pass constant entry at i.
//
// Parameters:
//   - i: the pass index
//
// Returns:
//   - GPUPassConstants: the stored constants, zero for out-of-range indices
func (s *Slot) Pass(i int) GPUPassConstants {
	if i < 0 || i >= len(s.passes) {
		return GPUPassConstants{}
	}
	return s.passes[i]
}

// WritePass stores the constants for pass i.
//
// Parameters:
//   - i: the pass index
//   - data: the constants
//
// Returns:
//   - error: ErrSlotNotWritable outside Advance/Submit, or a range error
func (s *Slot) WritePass(i int, data GPUPassConstants) error {
	if !s.writable {
		return ErrSlotNotWritable
	}
	if i < 0 || i >= len(s.passes) {
		return fmt.Errorf("frame: pass index %d out of range [0, %d)", i, len(s.passes))
	}
	s.passes[i] = data
	return nil
}

// VertexStaging returns the dynamic vertex buffer for rewriting. The returned slice aliases the
// slot's storage and must not be retained past Submit.
//
// Returns:
//   - []GPUVertex: the staging buffer
//   - error: ErrSlotNotWritable outside Advance/Submit
func (s *Slot) VertexStaging() ([]GPUVertex, error) {
	if !s.writable {
		return nil, ErrSlotNotWritable
	}
	return s.vertices, nil
}

// Vertices returns a read-only view of the vertex staging buffer.
func (s *Slot) Vertices() []GPUVertex {
	return s.vertices
}

// TransformBytes returns the transform table as raw bytes for upload.
func (s *Slot) TransformBytes() []byte {
	return common.SliceToBytes(s.transforms)
}

// PassBytes returns the pass constant table as raw bytes for upload.
func (s *Slot) PassBytes() []byte {
	return common.SliceToBytes(s.passes)
}

// VertexBytes returns the vertex staging buffer as raw bytes for upload.
func (s *Slot) VertexBytes() []byte {
	return common.SliceToBytes(s.vertices)
}

// acquire opens the write window after the slot's previous submission completed.
func (s *Slot) acquire() {
	s.writable = true
	s.tickWrites = 0
}

// abandon closes the write window of a slot that was never submitted. Its completion target is
// left alone, since nothing new was queued.
func (s *Slot) abandon() {
	s.writable = false
}

// release closes the write window and records the completion target of the new submission.
func (s *Slot) release(target uint64) {
	s.writable = false
	s.completionTarget = target
}
