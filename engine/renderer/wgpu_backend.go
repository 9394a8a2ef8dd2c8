package renderer

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-waves/common"
	"github.com/Carmen-Shannon/oxy-waves/engine/frame"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuSlotBuffers are the device copies of one frame slot's tables.
type wgpuSlotBuffers struct {
	instances *wgpu.Buffer
	passes    *wgpu.Buffer
	vertices  *wgpu.Buffer
}

func (s *wgpuSlotBuffers) release() {
	for _, buf := range []*wgpu.Buffer{s.instances, s.passes, s.vertices} {
		if buf != nil {
			buf.Release()
		}
	}
}

type wgpuBackend struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// timeline is completed from the queue's work-done callbacks, which fire during Device.Poll.
	timeline *frame.SoftwareTimeline
	poll     time.Duration

	slots   map[int]*wgpuSlotBuffers
	indices *wgpu.Buffer

	presents atomic.Uint64
	released atomic.Bool
}

// WGPUBackend runs the frame ring on a WebGPU device. Each slot owns its own instance, pass and
// vertex buffers; Record uploads the slot's tables into them and encodes the tick. The timeline
// advances when the queue reports submitted work done.
type WGPUBackend interface {
	Backend

	// Device returns the WebGPU device.
	Device() *wgpu.Device

	// UploadIndices creates the shared index buffer of the wave mesh.
	//
	// Parameters:
	//   - indices: triangle list indices
	//
	// Returns:
	//   - error: an error if the buffer could not be created
	UploadIndices(indices []uint32) error
}

var _ WGPUBackend = &wgpuBackend{}

// NewWGPUBackend requests a headless adapter and device and creates the per-slot buffers.
//
// Parameters:
//   - cfg: the slot table capacities, used to size the buffers
//   - slots: number of frame slots
//   - options: functional options (fallback adapter, poll interval)
//
// Returns:
//   - WGPUBackend: the backend
//   - error: an error if no adapter or device is available, or a buffer cannot be created
func NewWGPUBackend(cfg frame.SlotConfig, slots int, options ...WGPUBackendBuilderOption) (WGPUBackend, error) {
	runtime.LockOSThread()

	o := wgpuOptions{poll: 500 * time.Microsecond}
	for _, option := range options {
		option(&o)
	}

	b := &wgpuBackend{
		mu:       &sync.Mutex{},
		instance: wgpu.CreateInstance(nil),
		timeline: frame.NewSoftwareTimeline(),
		poll:     o.poll,
		slots:    make(map[int]*wgpuSlotBuffers, slots),
	}

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: o.forceFallbackAdapter,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("renderer: request adapter: %w", err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Frame Ring Device",
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("renderer: request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()

	for i := 0; i < slots; i++ {
		buffers, err := b.createSlotBuffers(i, cfg)
		if err != nil {
			b.Release()
			return nil, err
		}
		b.slots[i] = buffers
	}

	common.Logger().Info("renderer: wgpu backend ready", "slots", slots)
	return b, nil
}

func (b *wgpuBackend) createSlotBuffers(slot int, cfg frame.SlotConfig) (*wgpuSlotBuffers, error) {
	var (
		instance frame.GPUInstanceData
		pass     frame.GPUPassConstants
		vertex   frame.GPUVertex
	)
	specs := []struct {
		label string
		size  int
		usage wgpu.BufferUsage
	}{
		{"Instances", cfg.Instances * instance.Size(), wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst},
		{"Pass Constants", cfg.Passes * pass.Size(), wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst},
		{"Vertices", max(cfg.Vertices, 1) * vertex.Size(), wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst},
	}

	out := &wgpuSlotBuffers{}
	targets := []**wgpu.Buffer{&out.instances, &out.passes, &out.vertices}
	for i, spec := range specs {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            fmt.Sprintf("Slot %d %s Buffer", slot, spec.label),
			Size:             uint64(spec.size),
			Usage:            spec.usage,
			MappedAtCreation: false,
		})
		if err != nil {
			out.release()
			return nil, fmt.Errorf("renderer: slot %d %s buffer: %w", slot, spec.label, err)
		}
		*targets[i] = buf
	}
	return out, nil
}

func (b *wgpuBackend) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuBackend) UploadIndices(indices []uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := common.SliceToBytes(indices)
	if len(data) == 0 {
		return nil
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            "Wave Index Buffer",
		Size:             uint64(len(data)),
		Usage:            wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return err
	}
	b.queue.WriteBuffer(buf, 0, data)
	if b.indices != nil {
		b.indices.Release()
	}
	b.indices = buf
	return nil
}

func (b *wgpuBackend) Completed() uint64 {
	b.device.Poll(false, nil)
	return b.timeline.Completed()
}

func (b *wgpuBackend) Wait(value uint64, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		b.device.Poll(false, nil)
		if b.timeline.Completed() >= value {
			return true, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		// The callback only fires inside Poll, so wake up periodically to poll again.
		if ok, _ := b.timeline.Wait(value, min(b.poll, remaining)); ok {
			return true, nil
		}
	}
}

func (b *wgpuBackend) NewCommandContext(slot int) (frame.CommandContext, error) {
	if b.released.Load() {
		return nil, ErrReleased
	}
	return &wgpuCommandContext{slot: slot}, nil
}

func (b *wgpuBackend) Record(slot *frame.Slot) (frame.Workload, error) {
	if b.released.Load() {
		return nil, ErrReleased
	}
	if !slot.Writable() {
		return nil, frame.ErrSlotNotWritable
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	buffers, ok := b.slots[slot.Index()]
	if !ok {
		return nil, fmt.Errorf("renderer: no buffers for slot %d", slot.Index())
	}
	b.queue.WriteBuffer(buffers.instances, 0, slot.TransformBytes())
	b.queue.WriteBuffer(buffers.passes, 0, slot.PassBytes())
	if data := slot.VertexBytes(); len(data) > 0 {
		b.queue.WriteBuffer(buffers.vertices, 0, data)
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	commandBuffer, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return nil, err
	}

	if ctx, ok := slot.Commands().(*wgpuCommandContext); ok {
		ctx.hold(commandBuffer)
	}
	return commandBuffer, nil
}

func (b *wgpuBackend) Execute(workload frame.Workload) error {
	if b.released.Load() {
		return ErrReleased
	}
	commandBuffer, ok := workload.(*wgpu.CommandBuffer)
	if !ok {
		return fmt.Errorf("renderer: wgpu backend cannot execute %T", workload)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.Submit(commandBuffer)
	return nil
}

func (b *wgpuBackend) Signal(value uint64) error {
	if b.released.Load() {
		return ErrReleased
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.OnSubmittedWorkDone(func(status wgpu.QueueWorkDoneStatus) {
		if status != wgpu.QueueWorkDoneStatusSuccess {
			common.Logger().Error("renderer: queue work failed", "value", value, "status", status)
			return
		}
		b.timeline.Complete(value)
	})
	return nil
}

func (b *wgpuBackend) Present() error {
	if b.released.Load() {
		return ErrReleased
	}
	b.presents.Add(1)
	return nil
}

func (b *wgpuBackend) Presents() uint64 {
	return b.presents.Load()
}

func (b *wgpuBackend) Release() {
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, buffers := range b.slots {
		buffers.release()
	}
	if b.indices != nil {
		b.indices.Release()
	}
	if b.queue != nil {
		b.queue.Release()
	}
	if b.device != nil {
		b.device.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
}

// wgpuCommandContext keeps the command buffer a slot submitted alive until the slot is reclaimed.
type wgpuCommandContext struct {
	slot          int
	commandBuffer *wgpu.CommandBuffer
}

func (c *wgpuCommandContext) hold(cb *wgpu.CommandBuffer) {
	if c.commandBuffer != nil {
		c.commandBuffer.Release()
	}
	c.commandBuffer = cb
}

func (c *wgpuCommandContext) Reset() error {
	if c.commandBuffer != nil {
		c.commandBuffer.Release()
		c.commandBuffer = nil
	}
	return nil
}
