// Package store provides WeightStore implementations backed by memory,
// SQLite, PostgreSQL and Redis.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rcliao/markov-bot/internal/markov"
)

// Store is a markov.WeightStore that can report statistics and be closed.
type Store interface {
	markov.WeightStore

	// Stats returns counts describing the stored chain.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases the underlying resources.
	Close() error
}

// ErrOrderMismatch is returned when a persistent store was created for a
// different chain order.
var ErrOrderMismatch = errors.New("chain order mismatch")

// weightedLink is a link whose weight grows by n.
type weightedLink struct {
	markov.Link
	n uint32
}

func unitLinks(links []markov.Link) []weightedLink {
	out := make([]weightedLink, len(links))
	for i, l := range links {
		out[i] = weightedLink{Link: l, n: 1}
	}
	return out
}

func entryLinks(entries []Entry) []weightedLink {
	out := make([]weightedLink, len(entries))
	for i, e := range entries {
		out[i] = weightedLink{Link: markov.Link{From: markov.State(e.From), To: e.To}, n: e.Weight}
	}
	return out
}

// checkWeighted rejects the whole batch if any link is malformed.
func checkWeighted(links []weightedLink, order int) error {
	for _, l := range links {
		if len(l.From) != order {
			return fmt.Errorf("add weight: link state has %d tokens, want %d", len(l.From), order)
		}
		if l.n == 0 {
			return fmt.Errorf("add weight: zero weight for %v -> %q", l.From, l.To)
		}
	}
	return nil
}

// addSaturating returns w+n capped at math.MaxUint32 and the amount
// actually added.
func addSaturating(w, n uint32) (sum, added uint32) {
	if n > math.MaxUint32-w {
		return math.MaxUint32, math.MaxUint32 - w
	}
	return w + n, n
}
