package scene

import (
	"github.com/Carmen-Shannon/oxy-waves/common"
	"github.com/Carmen-Shannon/oxy-waves/engine/frame"
	"github.com/Carmen-Shannon/oxy-waves/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// writePassConstants fills the main pass and, when reflection is enabled, the mirrored pass.
func (p *pass) writePassConstants(slot *frame.Slot, dt float32) error {
	eye := p.cam.Eye()
	if err := slot.WritePass(0, p.passConstants(p.cam.View(), eye, dt)); err != nil {
		return err
	}
	if !p.reflect {
		return nil
	}
	mirrored := mgl32.Vec3{eye.X(), 2*p.planeY - eye.Y(), eye.Z()}
	return slot.WritePass(1, p.passConstants(p.cam.ReflectedView(p.planeY), mirrored, dt))
}

// passConstants builds one pass entry for the given view matrix and eye position.
func (p *pass) passConstants(view mgl32.Mat4, eye mgl32.Vec3, dt float32) frame.GPUPassConstants {
	proj := p.cam.Projection()
	viewProj := proj.Mul4(view)

	lights, count := light.Pack(p.lights)

	return frame.GPUPassConstants{
		View:                common.Pack(view),
		InvView:             common.Pack(common.Inverse(view)),
		Proj:                common.Pack(proj),
		InvProj:             common.Pack(common.Inverse(proj)),
		ViewProj:            common.Pack(viewProj),
		InvViewProj:         common.Pack(common.Inverse(viewProj)),
		EyePos:              [3]float32(eye),
		RenderTargetSize:    [2]float32{p.targetWidth, p.targetHeight},
		InvRenderTargetSize: [2]float32{1 / p.targetWidth, 1 / p.targetHeight},
		NearZ:               p.cam.Near(),
		FarZ:                p.cam.Far(),
		TotalTime:           p.totalTime,
		DeltaTime:           dt,
		AmbientLight:        [4]float32(p.ambient),
		FogColor:            [4]float32(p.fogColor),
		FogStart:            p.fogStart,
		FogRange:            p.fogRange,
		LightCount:          uint32(count),
		Lights:              lights,
	}
}
