package markov

import (
	"fmt"
	"math/rand/v2"
)

// Source produces uniformly distributed integers in [0, n).
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Uint64N(n uint64) uint64
}

// SystemSource draws from the runtime's global generator. It is safe for
// concurrent use.
type SystemSource struct{}

// Uint64N implements Source.
func (SystemSource) Uint64N(n uint64) uint64 {
	return rand.Uint64N(n)
}

// Choose picks a token with probability proportional to its weight. Weights
// are accumulated in slice order, so the same draw always selects the same
// token. ts must be non-empty with a positive total.
func Choose(ts Transitions, src Source) Token {
	total := ts.Total()
	if total == 0 {
		panic("markov: choose from empty transitions")
	}
	r := src.Uint64N(total)
	var acc uint64
	for _, t := range ts {
		acc += uint64(t.Weight)
		if acc > r {
			return t.Token
		}
	}
	panic(fmt.Sprintf("markov: source returned %d, want < %d", r, total))
}

// Shuffler reorders tokens in place.
type Shuffler interface {
	Shuffle(tokens []Token)
}

// RandShuffler shuffles with a Source.
type RandShuffler struct {
	Source Source
}

// Shuffle implements Shuffler with a Fisher-Yates pass.
func (s RandShuffler) Shuffle(tokens []Token) {
	src := s.Source
	if src == nil {
		src = SystemSource{}
	}
	for i := len(tokens) - 1; i > 0; i-- {
		j := int(src.Uint64N(uint64(i + 1)))
		tokens[i], tokens[j] = tokens[j], tokens[i]
	}
}
