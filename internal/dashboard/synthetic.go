package dashboard

import (
	"math"
	"math/rand/v2"
	"sync"
)

// demoSource fills charts with plausible numbers when no usage has been logged yet.
// The shape is a sine trend around a tenth of the daily quota plus normal noise.
type demoSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newDemoSource(seed uint64) *demoSource {
	return &demoSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func demoBase(cfg APIConfig) float64 {
	base := float64(cfg.QuotaDaily) / 10
	if base == 0 {
		base = 100
	}
	return base
}

// trend returns n daily counts; period controls how fast the sine oscillates.
func (d *demoSource) trend(cfg APIConfig, n int, period float64) []int {
	base := demoBase(cfg)
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]int, n)
	for i := range out {
		v := base + math.Sin(float64(i)/period)*(base/2) + d.rng.NormFloat64()*(base/4)
		out[i] = max(0, int(v))
	}
	return out
}

// intN returns a value in [0, n).
func (d *demoSource) intN(n int) int {
	if n <= 0 {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.IntN(n)
}

func (d *demoSource) float() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Float64()
}
