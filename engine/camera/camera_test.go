package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-3

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < eps
}

func TestEyeLiesOnOrbit(t *testing.T) {
	target := mgl32.Vec3{1, 2, 3}
	c := NewCamera(WithTarget(target), WithOrbit(20, 0.3, 1.1))

	if got := c.Eye().Sub(target).Len(); !near(got, 20) {
		t.Errorf("|eye-target| = %v, want 20", got)
	}

	// The view matrix takes the eye to the origin and the target onto -z.
	v := c.View()
	eye := v.Mul4x1(c.Eye().Vec4(1))
	if !near(eye.X(), 0) || !near(eye.Y(), 0) || !near(eye.Z(), 0) {
		t.Errorf("view * eye = %v, want origin", eye)
	}
	tv := v.Mul4x1(target.Vec4(1))
	if !near(tv.X(), 0) || !near(tv.Y(), 0) || !near(tv.Z(), -20) {
		t.Errorf("view * target = %v, want (0,0,-20)", tv)
	}
}

func TestDefaultOrbit(t *testing.T) {
	c := NewCamera()
	radius, theta, phi := c.Orbit()
	if radius != 50 || !near(theta, 1.5*math.Pi) || !near(phi, math.Pi/2-0.1) {
		t.Errorf("Orbit = (%v,%v,%v), want (50, 1.5pi, pi/2-0.1)", radius, theta, phi)
	}
	if e := c.Eye(); !near(e.X(), 0) || e.Z() > -49 || e.Y() <= 0 {
		t.Errorf("Eye = %v, want slightly above the horizon on -z", e)
	}
}

func TestOrbitClamping(t *testing.T) {
	tests := []struct {
		name                string
		radius, phi         float32
		wantRadius, wantPhi float32
	}{
		{"inside", 30, 1, 30, 1},
		{"radius low", 1, 1, 5, 1},
		{"radius high", 1000, 1, 150, 1},
		{"phi over the pole", 30, -0.5, 30, minPhi},
		{"phi under", 30, 4, 30, maxPhi},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCamera()
			c.SetOrbit(tt.radius, 0, tt.phi)
			radius, _, phi := c.Orbit()
			if radius != tt.wantRadius {
				t.Errorf("radius = %v, want %v", radius, tt.wantRadius)
			}
			if !near(phi, tt.wantPhi) {
				t.Errorf("phi = %v, want %v", phi, tt.wantPhi)
			}
		})
	}
}

func TestRotateAccumulates(t *testing.T) {
	c := NewCamera(WithOrbit(10, 0, 1))
	c.Rotate(0.5, 0.25)
	c.Rotate(0.5, 0.25)
	_, theta, phi := c.Orbit()
	if !near(theta, 1) || !near(phi, 1.5) {
		t.Errorf("Orbit angles = (%v,%v), want (1,1.5)", theta, phi)
	}
}

func TestProjectionDepthRange(t *testing.T) {
	c := NewCamera(WithClipPlanes(1, 100), WithAspect(2))
	p := c.Projection()

	for _, tt := range []struct {
		z, want float32
	}{
		{-1, 0},
		{-100, 1},
	} {
		clip := p.Mul4x1(mgl32.Vec4{0, 0, tt.z, 1})
		if got := clip.Z() / clip.W(); !near(got, tt.want) {
			t.Errorf("depth at z=%v = %v, want %v", tt.z, got, tt.want)
		}
	}

	c.SetAspect(0)
	if got := c.Aspect(); got != 2 {
		t.Errorf("Aspect after SetAspect(0) = %v, want 2", got)
	}
}

func TestReflectedViewMirrorsAcrossPlane(t *testing.T) {
	c := NewCamera()
	const planeY = -2

	above := mgl32.Vec4{3, planeY + 5, 1, 1}
	below := mgl32.Vec4{3, planeY - 5, 1, 1}

	got := c.ReflectedView(planeY).Mul4x1(above)
	want := c.View().Mul4x1(below)
	for i := 0; i < 4; i++ {
		if !near(got[i], want[i]) {
			t.Fatalf("reflected view * above = %v, want view * below = %v", got, want)
		}
	}
}
