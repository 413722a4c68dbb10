package hashval

import "math/rand"

// RandomAtDistance returns a hash that is at exactly distance d from
// base, by flipping d distinct, randomly-chosen bit positions. It is a
// test helper: production code never needs to synthesize a hash at a
// prescribed distance.
func RandomAtDistance(rng *rand.Rand, base Hamming, d int) Hamming {
	if d < 0 || d > MaxDistance {
		panic("hashval: distance out of range")
	}
	positions := rng.Perm(MaxDistance)[:d]
	h := base
	for _, pos := range positions {
		if pos < 64 {
			h.Hi ^= 1 << uint(pos)
		} else {
			h.Lo ^= 1 << uint(pos-64)
		}
	}
	return h
}

// Random returns a uniformly random hash.
func Random(rng *rand.Rand) Hamming {
	return Hamming{Hi: rng.Uint64(), Lo: rng.Uint64()}
}
