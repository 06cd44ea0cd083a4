// Package entropy provides the simulation's reproducible randomness. Every
// draw is derived from the game seed and the tick it happens on, so a run
// replays identically from the same seed.
package entropy

import (
	"errors"
	"fmt"
)

// ErrNoCandidates is returned when no item has a positive weight.
var ErrNoCandidates = errors.New("entropy: no item has a positive weight")

// Source is a mulberry32 generator.
type Source struct {
	state uint32
}

// New returns a generator for one (seed, tick) pair.
func New(seed int64, tick uint64) *Source {
	return &Source{state: mix(uint64(seed), tick)}
}

// mix folds seed and tick into 32 bits with a splitmix64 finalizer.
func mix(seed, tick uint64) uint32 {
	z := seed ^ (tick + 0x9e3779b97f4a7c15)
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return uint32(z) ^ uint32(z>>32)
}

// Uint32 returns the next 32 random bits.
func (s *Source) Uint32() uint32 {
	s.state += 0x6d2b79f5
	z := s.state
	z = (z ^ (z >> 15)) * (z | 1)
	z ^= z + (z^(z>>7))*(z|61)
	return z ^ (z >> 14)
}

// Float returns a value in [0, 1).
func (s *Source) Float() float64 {
	return float64(s.Uint32()) / (1 << 32)
}

// Float returns the first draw for (seed, tick).
func Float(seed int64, tick uint64) float64 {
	return New(seed, tick).Float()
}

// Pick draws one item with probability proportional to its weight. Negative
// weights count as zero.
func Pick[T any](seed int64, tick uint64, items []T, weights []float64) (T, error) {
	var zero T
	if len(items) != len(weights) {
		return zero, fmt.Errorf("entropy: %d items but %d weights", len(items), len(weights))
	}
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return zero, ErrNoCandidates
	}

	target := Float(seed, tick) * total
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		if target < w {
			return items[i], nil
		}
		target -= w
	}
	// Float rounding can leave target just above the final weight.
	return items[last], nil
}
