package scene

import (
	"fmt"
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-waves/common"
	"github.com/Carmen-Shannon/oxy-waves/engine/waves"
)

// disturber drops a random impulse into the wave field at a fixed interval. The sequence is
// fully determined by the seed.
type disturber struct {
	interval     float32
	minMagnitude float32
	maxMagnitude float32
	rng          *rand.Rand
	elapsed      float64
	fired        uint64
}

func newDisturber(interval, minMagnitude, maxMagnitude float32, seed uint64) *disturber {
	return &disturber{
		interval:     interval,
		minMagnitude: minMagnitude,
		maxMagnitude: maxMagnitude,
		rng:          rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (d *disturber) validate() error {
	if d.interval <= 0 {
		return fmt.Errorf("scene: %w: disturbance interval %v must be positive", common.ErrConfiguration, d.interval)
	}
	if d.minMagnitude > d.maxMagnitude {
		return fmt.Errorf("scene: %w: disturbance magnitude range [%v, %v] is inverted",
			common.ErrConfiguration, d.minMagnitude, d.maxMagnitude)
	}
	return nil
}

// maxDisturbBurst caps the impulses one advance may fire after a long stall.
const maxDisturbBurst = 8

// advance fires one disturbance per elapsed interval, at most maxDisturbBurst at a time.
func (d *disturber) advance(dt float32, w waves.Waves) {
	if dt > 0 {
		d.elapsed += float64(dt)
	}
	interval := float64(d.interval)
	due := int(d.elapsed / interval)
	if due == 0 {
		return
	}
	d.elapsed = max(d.elapsed-float64(due)*interval, 0)

	n := min(due, maxDisturbBurst)
	if n < due {
		common.Logger().Warn("scene: disturbance burst capped", "cap", maxDisturbBurst, "dropped", due-n)
	}
	for range n {
		row := d.pick(w.RowCount())
		col := d.pick(w.ColumnCount())
		magnitude := d.minMagnitude + d.rng.Float32()*(d.maxMagnitude-d.minMagnitude)
		w.Disturb(row, col, magnitude)
		d.fired++
	}
}

// pick returns a coordinate in [4, n-5], keeping impulses away from the shore. Grids too small
// for that margin fall back to the whole interior.
func (d *disturber) pick(n int) int {
	lo, hi := 4, n-5
	if hi < lo {
		lo, hi = 1, n-2
	}
	return lo + d.rng.IntN(hi-lo+1)
}
