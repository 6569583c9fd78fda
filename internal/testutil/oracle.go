package testutil

import (
	"fmt"
	"math/rand/v2"
)

// RankOracle answers comparisons from a fixed preference order.
//
// It models a perfectly consistent human: the item listed earlier in the
// preference order always wins. Sorting with a RankOracle must reproduce
// the preference order exactly.
//
// Thread-safety: RankOracle is immutable after construction and safe for
// concurrent use.
type RankOracle struct {
	rank map[string]int
}

// NewRankOracle creates an oracle that prefers items in the given order,
// most-preferred first.
func NewRankOracle(preferred []string) *RankOracle {
	rank := make(map[string]int, len(preferred))
	for i, item := range preferred {
		rank[item] = i
	}
	return &RankOracle{rank: rank}
}

// Choose returns the preferred item of the pair.
// Panics if either item is unknown, which always indicates a test bug.
func (o *RankOracle) Choose(left, right string) string {
	l, lok := o.rank[left]
	r, rok := o.rank[right]
	if !lok || !rok {
		panic(fmt.Sprintf("RankOracle: unknown item in pair (%q, %q)", left, right))
	}
	if l <= r {
		return left
	}
	return right
}

// CoinOracle answers comparisons with seeded pseudo-random choices.
//
// It models an inconsistent human. The same seed yields the same sequence
// of answers, so tests stay deterministic.
//
// Thread-safety: NOT safe for concurrent use.
type CoinOracle struct {
	rng   *rand.Rand
	Calls int
}

// NewCoinOracle creates an oracle seeded with seed.
func NewCoinOracle(seed uint64) *CoinOracle {
	return &CoinOracle{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Choose returns left or right at random.
func (o *CoinOracle) Choose(left, right string) string {
	o.Calls++
	if o.rng.IntN(2) == 0 {
		return left
	}
	return right
}

// Items returns n distinct identifiers "item-000", "item-001", ...
func Items(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("item-%03d", i)
	}
	return out
}
