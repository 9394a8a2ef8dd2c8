package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-waves/common"
	"github.com/Carmen-Shannon/oxy-waves/engine/camera"
	"github.com/Carmen-Shannon/oxy-waves/engine/entity"
	"github.com/Carmen-Shannon/oxy-waves/engine/frame"
	"github.com/Carmen-Shannon/oxy-waves/engine/light"
	"github.com/Carmen-Shannon/oxy-waves/engine/waves"
	"github.com/go-gl/mathgl/mgl32"
)

type pass struct {
	ring     frame.Ring
	registry entity.Registry
	waves    waves.Waves
	cam      camera.Camera

	lights   []light.Light
	ambient  mgl32.Vec4
	fogColor mgl32.Vec4
	fogStart float32
	fogRange float32

	targetWidth  float32
	targetHeight float32

	reflect bool
	planeY  float32

	disturber *disturber

	totalTime float32
	writes    int
}

// Pass is the per-tick CPU update of one frame slot: it propagates changed entities into the
// slot's transform table, refreshes the pass constants, advances the wave field and rewrites the
// slot's dynamic vertex buffer. It always writes into the ring's current slot, so it must run
// between Advance and Submit.
type Pass interface {
	// Run updates the current slot.
	//
	// Parameters:
	//   - dt: seconds since the previous tick
	//
	// Returns:
	//   - error: frame.ErrSlotNotCurrent if no slot is open, or a slot write error
	Run(dt float32) error

	// Writes returns the number of transform-table records written by the latest Run.
	Writes() int

	// TotalTime returns the accumulated simulation time in seconds.
	TotalTime() float32

	// PassCount returns the number of pass constant entries written per tick (1, or 2 with reflection).
	PassCount() int
}

var _ Pass = &pass{}

// NewPass wires the update pass to its collaborators and checks that their capacities agree.
//
// Parameters:
//   - ring: the frame ring whose current slot is written
//   - registry: the entities mirrored into the transform table
//   - w: the wave simulator feeding the dynamic vertex buffer
//   - cam: the camera providing view and projection
//   - options: functional options (lights, fog, reflection, disturber)
//
// Returns:
//   - Pass: the update pass
//   - error: a configuration error if the slot tables cannot hold the registry, the mesh or the passes
func NewPass(ring frame.Ring, registry entity.Registry, w waves.Waves, cam camera.Camera, options ...PassBuilderOption) (Pass, error) {
	if ring == nil {
		panic("scene: NewPass requires a non-nil Ring")
	}
	if registry == nil {
		panic("scene: NewPass requires a non-nil Registry")
	}
	if w == nil {
		panic("scene: NewPass requires a non-nil Waves")
	}
	if cam == nil {
		panic("scene: NewPass requires a non-nil Camera")
	}

	p := &pass{
		ring:         ring,
		registry:     registry,
		waves:        w,
		cam:          cam,
		lights:       light.DefaultSunLights(),
		ambient:      mgl32.Vec4{0.25, 0.25, 0.35, 1},
		fogColor:     mgl32.Vec4{0.7, 0.7, 0.7, 1},
		fogStart:     5,
		fogRange:     150,
		targetWidth:  800,
		targetHeight: 600,
	}
	for _, option := range options {
		option(p)
	}

	slot := ring.Slot(0)
	if registry.Frames() != ring.SlotCount() {
		return nil, fmt.Errorf("scene: %w: registry tracks %d frames but the ring has %d slots",
			common.ErrConfiguration, registry.Frames(), ring.SlotCount())
	}
	if registry.Capacity() > slot.InstanceCapacity() {
		return nil, fmt.Errorf("scene: %w: registry capacity %d exceeds the transform table (%d)",
			common.ErrConfiguration, registry.Capacity(), slot.InstanceCapacity())
	}
	if slot.VertexCount() != w.VertexCount() {
		return nil, fmt.Errorf("scene: %w: vertex staging holds %d vertices, wave mesh has %d",
			common.ErrConfiguration, slot.VertexCount(), w.VertexCount())
	}
	if slot.PassCount() < p.PassCount() {
		return nil, fmt.Errorf("scene: %w: %d pass entries needed, slot has %d",
			common.ErrConfiguration, p.PassCount(), slot.PassCount())
	}
	if len(p.lights) > light.MaxPassLights {
		return nil, fmt.Errorf("scene: %w: %d lights exceed the pass limit of %d",
			common.ErrConfiguration, len(p.lights), light.MaxPassLights)
	}
	if p.targetWidth <= 0 || p.targetHeight <= 0 {
		return nil, fmt.Errorf("scene: %w: render target %vx%v must be positive",
			common.ErrConfiguration, p.targetWidth, p.targetHeight)
	}
	if p.disturber != nil {
		if err := p.disturber.validate(); err != nil {
			return nil, err
		}
	}

	cam.SetAspect(p.targetWidth / p.targetHeight)
	return p, nil
}

func (p *pass) Run(dt float32) error {
	slot := p.ring.Current()
	if slot == nil {
		return frame.ErrSlotNotCurrent
	}
	if dt < 0 {
		dt = 0
	}
	p.totalTime += dt

	p.registry.Each(func(e entity.Entity) {
		e.AdvanceTextureScroll(dt)
	})

	if err := p.writeTransforms(slot); err != nil {
		return err
	}
	if err := p.writePassConstants(slot, dt); err != nil {
		return err
	}

	if p.disturber != nil {
		p.disturber.advance(dt, p.waves)
	}
	p.waves.Update(dt)

	return p.writeVertices(slot)
}

// writeTransforms copies every dirty entity into the slot. An entity only gives up a unit of its
// dirty count once its record is written.
func (p *pass) writeTransforms(slot *frame.Slot) error {
	p.writes = 0
	var err error
	p.registry.Each(func(e entity.Entity) {
		if err != nil {
			return
		}
		wrote, werr := e.Consume(func(data frame.GPUInstanceData) error {
			return slot.WriteTransform(e.Index(), data)
		})
		if werr != nil {
			err = fmt.Errorf("scene: entity %d: %w", e.ID(), werr)
			return
		}
		if wrote {
			p.writes++
		}
	})
	return err
}

// writeVertices rewrites the full dynamic mesh from the current wave field.
func (p *pass) writeVertices(slot *frame.Slot) error {
	vertices, err := slot.VertexStaging()
	if err != nil {
		return err
	}
	for i := range vertices {
		pos := p.waves.Position(i)
		n := p.waves.Normal(i)
		uv := p.waves.TexCoord(i)
		vertices[i] = frame.GPUVertex{
			Position: [3]float32(pos),
			Normal:   [3]float32(n),
			TexCoord: [2]float32(uv),
		}
	}
	return nil
}

func (p *pass) Writes() int {
	return p.writes
}

func (p *pass) TotalTime() float32 {
	return p.totalTime
}

func (p *pass) PassCount() int {
	if p.reflect {
		return 2
	}
	return 1
}
