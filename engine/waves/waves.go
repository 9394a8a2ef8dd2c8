package waves

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-waves/common"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// MinDimension is the smallest row or column count: a 3x3 interior plus the fixed border.
	MinDimension = 5

	// MaxCourant is the stability bound of the explicit five-point scheme in two dimensions:
	// speed*timeStep/spatialStep must not exceed 1/sqrt(2).
	MaxCourant = 0.7071068

	// DefaultParallelRows is the interior row count at which a pooled simulator starts splitting steps.
	DefaultParallelRows = 64
)

type waves struct {
	rows, cols int

	spatialStep float32
	timeStep    float32
	speed       float32
	damping     float32

	// k1, k2, k3 weight the previous height, the current height and the sum of the four
	// neighbouring current heights.
	k1, k2, k3 float32

	accumulated float64

	// Three generations, row-major, rows*cols each. Border cells are never written and stay 0.
	prev, curr, next []float32

	maxSubsteps  int
	workers      int
	parallelRows int
	pool         worker.DynamicWorkerPool
	steps        uint64
}

// Waves simulates a damped 2D wave equation over a fixed grid of heights with an explicit
// second-order finite-difference scheme. The physical rate is independent of how often Update is
// called. Not safe for concurrent use: the grid is owned by the tick that calls Update.
type Waves interface {
	// Update advances the simulation by elapsed seconds, running as many fixed steps as the
	// accumulated time allows (possibly zero).
	//
	// Parameters:
	//   - elapsed: time since the previous call, in seconds
	Update(elapsed float32)

	// Disturb adds a symmetric displacement at (row, col) and its four neighbours. Coordinates
	// are clamped into [1, rows-2] x [1, cols-2]; neighbours on the border are left untouched.
	//
	// Parameters:
	//   - row, col: grid coordinates of the centre
	//   - magnitude: the height added at the centre; neighbours receive half
	Disturb(row, col int, magnitude float32)

	// Position returns the world-space position of vertex i: x and z from the grid cell,
	// y from the current height.
	//
	// Parameters:
	//   - i: flat vertex index, row*cols + col
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position(i int) mgl32.Vec3

	// Normal returns the unit normal at vertex i, from the central-difference gradient.
	//
	// Parameters:
	//   - i: flat vertex index
	//
	// Returns:
	//   - mgl32.Vec3: the normal
	Normal(i int) mgl32.Vec3

	// TangentX returns the unit tangent along +x at vertex i.
	//
	// Parameters:
	//   - i: flat vertex index
	//
	// Returns:
	//   - mgl32.Vec3: the tangent
	TangentX(i int) mgl32.Vec3

	// TexCoord maps vertex i to [0,1]^2 texture space across the grid extent.
	//
	// Parameters:
	//   - i: flat vertex index
	//
	// Returns:
	//   - mgl32.Vec2: the texture coordinate
	TexCoord(i int) mgl32.Vec2

	// Height returns the current height at (row, col), or 0 outside the grid.
	Height(row, col int) float32

	// Energy returns the discrete energy of the field. It is invariant across steps when
	// damping is zero and decays otherwise.
	Energy() float64

	// Indices returns the triangle list indexing the grid vertices.
	Indices() []uint32

	RowCount() int
	ColumnCount() int
	VertexCount() int
	TriangleCount() int

	// Width is the grid extent along x.
	Width() float32
	// Depth is the grid extent along z.
	Depth() float32

	SpatialStep() float32
	TimeStep() float32

	// Steps returns the number of finite-difference steps run since construction.
	Steps() uint64
}

var _ Waves = &waves{}

// NewWaves builds a simulator at rest. All constants are fixed for its lifetime.
//
// Parameters:
//   - rows, cols: grid dimensions (each at least MinDimension)
//   - spatialStep: distance between neighbouring cells (positive)
//   - timeStep: fixed step length in seconds (positive)
//   - speed: wave propagation speed (positive)
//   - damping: damping factor (non-negative)
//   - options: functional options (substep cap, worker pool)
//
// Returns:
//   - Waves: the simulator
//   - error: a configuration error if a dimension or constant is invalid or the stability bound is violated
func NewWaves(rows, cols int, spatialStep, timeStep, speed, damping float32, options ...WavesBuilderOption) (Waves, error) {
	if rows < MinDimension || cols < MinDimension {
		return nil, fmt.Errorf("waves: %w: grid %dx%d is below the %dx%d minimum",
			common.ErrConfiguration, rows, cols, MinDimension, MinDimension)
	}
	if spatialStep <= 0 || timeStep <= 0 || speed <= 0 {
		return nil, fmt.Errorf("waves: %w: spatial step %v, time step %v and speed %v must be positive",
			common.ErrConfiguration, spatialStep, timeStep, speed)
	}
	if damping < 0 {
		return nil, fmt.Errorf("waves: %w: damping %v must not be negative", common.ErrConfiguration, damping)
	}
	if courant := speed * timeStep / spatialStep; courant > MaxCourant {
		return nil, fmt.Errorf("waves: %w: speed*timeStep/spatialStep = %v exceeds the stability bound %v",
			common.ErrConfiguration, courant, MaxCourant)
	}

	w := &waves{
		rows:         rows,
		cols:         cols,
		spatialStep:  spatialStep,
		timeStep:     timeStep,
		speed:        speed,
		damping:      damping,
		parallelRows: DefaultParallelRows,
		prev:         make([]float32, rows*cols),
		curr:         make([]float32, rows*cols),
		next:         make([]float32, rows*cols),
	}
	for _, opt := range options {
		opt(w)
	}
	if w.maxSubsteps < 0 {
		return nil, fmt.Errorf("waves: %w: substep cap %d must not be negative", common.ErrConfiguration, w.maxSubsteps)
	}

	d := damping*timeStep + 2
	e := (speed * speed) * (timeStep * timeStep) / (spatialStep * spatialStep)
	w.k1 = (damping*timeStep - 2) / d
	w.k2 = (4 - 8*e) / d
	w.k3 = (2 * e) / d

	if w.workers > 1 {
		w.pool = worker.NewDynamicWorkerPool(w.workers, 64, 1*time.Second)
	}
	return w, nil
}

func (w *waves) Update(elapsed float32) {
	if elapsed > 0 {
		w.accumulated += float64(elapsed)
	}

	dt := float64(w.timeStep)
	due := int(w.accumulated / dt)
	if due == 0 {
		return
	}
	w.accumulated = max(w.accumulated-float64(due)*dt, 0)

	n := due
	if w.maxSubsteps > 0 && n > w.maxSubsteps {
		// Behind by more than the cap allows: drop whole steps and keep the fraction.
		n = w.maxSubsteps
		common.Logger().Warn("waves: substep cap reached, dropping simulation time",
			"cap", w.maxSubsteps,
			"dropped_steps", due-n)
	}
	for range n {
		w.step()
	}
	if n > 1 {
		common.Logger().Debug("waves: multiple substeps", "steps", n)
	}
}

// step runs one finite-difference step over the interior and rotates the generations.
func (w *waves) step() {
	interior := w.rows - 2
	if w.pool != nil && interior >= w.parallelRows {
		w.stepParallel()
	} else {
		w.stepRows(1, w.rows-1)
	}
	w.prev, w.curr, w.next = w.curr, w.next, w.prev
	w.steps++
}

// stepRows computes next for rows [from, to). Each cell only reads prev and curr, so disjoint
// row ranges can run concurrently.
func (w *waves) stepRows(from, to int) {
	cols := w.cols
	for i := from; i < to; i++ {
		row := i * cols
		for j := 1; j < cols-1; j++ {
			c := row + j
			w.next[c] = w.k1*w.prev[c] +
				w.k2*w.curr[c] +
				w.k3*(w.curr[c+cols]+w.curr[c-cols]+w.curr[c+1]+w.curr[c-1])
		}
	}
}

// stepParallel splits the interior into one row band per worker and waits for every band.
func (w *waves) stepParallel() {
	interior := w.rows - 2
	bands := min(w.workers, interior)
	size := (interior + bands - 1) / bands

	var wg sync.WaitGroup
	for b := 0; b < bands; b++ {
		from := 1 + b*size
		to := min(from+size, w.rows-1)
		if from >= to {
			break
		}
		wg.Add(1)
		w.pool.SubmitTask(worker.Task{
			ID: b,
			Do: func() (any, error) {
				defer wg.Done()
				w.stepRows(from, to)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (w *waves) Disturb(row, col int, magnitude float32) {
	i := common.Clamp(row, 1, w.rows-2)
	j := common.Clamp(col, 1, w.cols-2)
	if i != row || j != col {
		common.Logger().Warn("waves: disturbance clamped into the interior",
			"row", row, "col", col, "clamped_row", i, "clamped_col", j)
	}

	half := 0.5 * magnitude
	w.displace(i, j, magnitude)
	w.displace(i+1, j, half)
	w.displace(i-1, j, half)
	w.displace(i, j+1, half)
	w.displace(i, j-1, half)
}

// displace raises an interior cell in both the current and previous generation, so the
// disturbance starts at rest. Border cells are skipped.
func (w *waves) displace(i, j int, h float32) {
	if i < 1 || i > w.rows-2 || j < 1 || j > w.cols-2 {
		return
	}
	c := i*w.cols + j
	w.curr[c] += h
	w.prev[c] += h
}

func (w *waves) Position(i int) mgl32.Vec3 {
	row, col := w.cell(i)
	halfWidth := 0.5 * float32(w.cols-1) * w.spatialStep
	halfDepth := 0.5 * float32(w.rows-1) * w.spatialStep
	return mgl32.Vec3{
		-halfWidth + float32(col)*w.spatialStep,
		w.curr[row*w.cols+col],
		halfDepth - float32(row)*w.spatialStep,
	}
}

func (w *waves) Normal(i int) mgl32.Vec3 {
	l, r, t, b := w.neighbours(i)
	return mgl32.Vec3{l - r, 2 * w.spatialStep, b - t}.Normalize()
}

func (w *waves) TangentX(i int) mgl32.Vec3 {
	l, r, _, _ := w.neighbours(i)
	return mgl32.Vec3{2 * w.spatialStep, r - l, 0}.Normalize()
}

func (w *waves) TexCoord(i int) mgl32.Vec2 {
	p := w.Position(i)
	return mgl32.Vec2{0.5 + p.X()/w.Width(), 0.5 - p.Z()/w.Depth()}
}

// neighbours returns the left, right, top and bottom heights around vertex i. Border vertices
// reuse their own height for the missing side.
func (w *waves) neighbours(i int) (l, r, t, b float32) {
	row, col := w.cell(i)
	at := func(rr, cc int) float32 {
		rr = common.Clamp(rr, 0, w.rows-1)
		cc = common.Clamp(cc, 0, w.cols-1)
		return w.curr[rr*w.cols+cc]
	}
	return at(row, col-1), at(row, col+1), at(row-1, col), at(row+1, col)
}

// cell converts a flat vertex index to grid coordinates, clamping out-of-range indices.
func (w *waves) cell(i int) (row, col int) {
	i = common.Clamp(i, 0, w.rows*w.cols-1)
	return i / w.cols, i % w.cols
}

func (w *waves) Height(row, col int) float32 {
	if row < 0 || row >= w.rows || col < 0 || col >= w.cols {
		return 0
	}
	return w.curr[row*w.cols+col]
}

// Energy evaluates ||curr-prev||^2 + e*<A curr, prev> where A is the negated five-point
// Laplacian with a zero border and e = (speed*timeStep/spatialStep)^2. For the undamped scheme
// this quantity is exactly preserved by each step.
func (w *waves) Energy() float64 {
	e := float64(w.speed) * float64(w.timeStep) / float64(w.spatialStep)
	e *= e

	var kinetic, potential float64
	cols := w.cols
	for i := 1; i < w.rows-1; i++ {
		for j := 1; j < cols-1; j++ {
			c := i*cols + j
			dv := float64(w.curr[c]) - float64(w.prev[c])
			kinetic += dv * dv

			lap := 4*float64(w.curr[c]) -
				float64(w.curr[c+cols]) - float64(w.curr[c-cols]) -
				float64(w.curr[c+1]) - float64(w.curr[c-1])
			potential += lap * float64(w.prev[c])
		}
	}
	return kinetic + e*potential
}

func (w *waves) Indices() []uint32 {
	indices := make([]uint32, 0, 3*w.TriangleCount())
	n := uint32(w.cols)
	for i := uint32(0); i < uint32(w.rows-1); i++ {
		for j := uint32(0); j < n-1; j++ {
			indices = append(indices,
				i*n+j, i*n+j+1, (i+1)*n+j,
				(i+1)*n+j, i*n+j+1, (i+1)*n+j+1,
			)
		}
	}
	return indices
}

func (w *waves) RowCount() int {
	return w.rows
}

func (w *waves) ColumnCount() int {
	return w.cols
}

func (w *waves) VertexCount() int {
	return w.rows * w.cols
}

func (w *waves) TriangleCount() int {
	return 2 * (w.rows - 1) * (w.cols - 1)
}

func (w *waves) Width() float32 {
	return float32(w.cols) * w.spatialStep
}

func (w *waves) Depth() float32 {
	return float32(w.rows) * w.spatialStep
}

func (w *waves) SpatialStep() float32 {
	return w.spatialStep
}

func (w *waves) TimeStep() float32 {
	return w.timeStep
}

func (w *waves) Steps() uint64 {
	return w.steps
}
