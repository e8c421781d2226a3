package mcts

import "time"

// seedGeneratorFn produces the base seed for each manager's thread-local
// policy RNGs. Worker i is seeded with base+i, so a fixed base makes a
// single-threaded search fully reproducible.
var seedGeneratorFn = func() int64 { return time.Now().UnixNano() }

// SetSeedGeneratorFn overrides how managers derive their RNG base seed.
// Pass a constant-returning function to make searches reproducible.
func SetSeedGeneratorFn(f func() int64) {
	if f != nil {
		seedGeneratorFn = f
	}
}

// SeedGeneratorFn returns the current base-seed generator.
func SeedGeneratorFn() func() int64 { return seedGeneratorFn }
