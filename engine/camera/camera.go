package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-waves/common"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	minPhi = 0.1
	maxPhi = math.Pi - 0.1
)

type cameraImpl struct {
	mu *sync.Mutex

	target mgl32.Vec3
	up     mgl32.Vec3

	// Spherical coordinates of the eye around the target. phi is measured from +y.
	radius    float32
	theta     float32
	phi       float32
	minRadius float32
	maxRadius float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	eye        mgl32.Vec3
	view       mgl32.Mat4
	projection mgl32.Mat4
}

// Camera is an orbit camera: the eye sits on a sphere around a target point, described by a
// radius, an azimuth theta and a polar angle phi. It produces the view and projection matrices
// consumed by the per-pass constants. Safe for concurrent use.
type Camera interface {
	// Eye returns the world-space eye position.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position
	Eye() mgl32.Vec3

	// Target returns the point the camera looks at.
	//
	// Returns:
	//   - mgl32.Vec3: the target
	Target() mgl32.Vec3

	// Orbit returns the spherical coordinates of the eye.
	//
	// Returns:
	//   - radius: distance from the target
	//   - theta: azimuth in radians
	//   - phi: polar angle from +y in radians
	Orbit() (radius, theta, phi float32)

	// View returns the world-to-view matrix (column-major).
	View() mgl32.Mat4

	// Projection returns the view-to-clip matrix (column-major, depth in [0, 1]).
	Projection() mgl32.Mat4

	// ReflectedView returns the view matrix of the scene mirrored about the plane y = planeY.
	//
	// Parameters:
	//   - planeY: height of the mirror plane
	//
	// Returns:
	//   - mgl32.Mat4: view * reflection
	ReflectedView(planeY float32) mgl32.Mat4

	Fov() float32
	Aspect() float32
	Near() float32
	Far() float32

	// SetOrbit moves the eye. The radius is clamped to the configured bounds and phi to
	// [0.1, pi-0.1] so the view never flips over the pole.
	//
	// Parameters:
	//   - radius: distance from the target
	//   - theta: azimuth in radians
	//   - phi: polar angle from +y in radians
	SetOrbit(radius, theta, phi float32)

	// Rotate adds to the azimuth and polar angle, with the same clamping as SetOrbit.
	//
	// Parameters:
	//   - dTheta, dPhi: angle deltas in radians
	Rotate(dTheta, dPhi float32)

	// SetTarget moves the point the camera orbits.
	//
	// Parameters:
	//   - target: the new target
	SetTarget(target mgl32.Vec3)

	// SetAspect sets the aspect ratio (width / height) and rebuilds the projection.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates an orbit camera. Defaults: radius 50, theta 1.5*pi, phi pi/2-0.1 (just above
// the horizon, looking along +z), a 45 degree field of view, aspect 1, near 1, far 1000.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:        &sync.Mutex{},
		up:        mgl32.Vec3{0, 1, 0},
		radius:    50,
		theta:     1.5 * math.Pi,
		phi:       math.Pi/2 - 0.1,
		minRadius: 5,
		maxRadius: 150,
		fov:       0.25 * math.Pi,
		aspect:    1,
		near:      1,
		far:       1000,
	}
	for _, option := range options {
		option(c)
	}
	c.clamp()
	c.updateView()
	c.updateProjection()
	return c
}

func (c *cameraImpl) Eye() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eye
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Orbit() (radius, theta, phi float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.radius, c.theta, c.phi
}

func (c *cameraImpl) View() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) Projection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) ReflectedView(planeY float32) mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	reflect := mgl32.Translate3D(0, planeY, 0).
		Mul4(mgl32.Scale3D(1, -1, 1)).
		Mul4(mgl32.Translate3D(0, -planeY, 0))
	return c.view.Mul4(reflect)
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) SetOrbit(radius, theta, phi float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.radius, c.theta, c.phi = radius, theta, phi
	c.clamp()
	c.updateView()
}

func (c *cameraImpl) Rotate(dTheta, dPhi float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.theta += dTheta
	c.phi += dPhi
	c.clamp()
	c.updateView()
}

func (c *cameraImpl) SetTarget(target mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = target
	c.updateView()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if aspect <= 0 {
		return
	}
	c.aspect = aspect
	c.updateProjection()
}

// clamp keeps radius and phi inside their bounds. Caller must hold the mutex.
func (c *cameraImpl) clamp() {
	c.radius = common.Clamp(c.radius, c.minRadius, c.maxRadius)
	c.phi = common.Clamp(c.phi, minPhi, maxPhi)
}

// updateView recomputes the eye from spherical coordinates and rebuilds the view matrix.
// Caller must hold the mutex.
func (c *cameraImpl) updateView() {
	sinPhi := float32(math.Sin(float64(c.phi)))
	cosPhi := float32(math.Cos(float64(c.phi)))
	sinTheta := float32(math.Sin(float64(c.theta)))
	cosTheta := float32(math.Cos(float64(c.theta)))

	c.eye = c.target.Add(mgl32.Vec3{
		c.radius * sinPhi * cosTheta,
		c.radius * cosPhi,
		c.radius * sinPhi * sinTheta,
	})

	common.LookAt(c.view[:],
		c.eye.X(), c.eye.Y(), c.eye.Z(),
		c.target.X(), c.target.Y(), c.target.Z(),
		c.up.X(), c.up.Y(), c.up.Z(),
	)
}

// updateProjection rebuilds the projection matrix. Caller must hold the mutex.
func (c *cameraImpl) updateProjection() {
	common.Perspective(c.projection[:], c.fov, c.aspect, c.near, c.far)
}
