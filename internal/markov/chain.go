package markov

import (
	"context"
	"fmt"
	"iter"
)

// Chain couples a WeightStore with a Source for a fixed order.
type Chain struct {
	store WeightStore
	src   Source
	order int
}

// NewChain returns a chain of the given order. A nil src uses SystemSource.
func NewChain(store WeightStore, src Source, order int) (*Chain, error) {
	if store == nil {
		return nil, fmt.Errorf("new chain: nil store")
	}
	if order < 0 {
		return nil, fmt.Errorf("new chain: negative order %d", order)
	}
	if src == nil {
		src = SystemSource{}
	}
	return &Chain{store: store, src: src, order: order}, nil
}

// Order returns the window size.
func (c *Chain) Order() int { return c.order }

// Feed records every link of the token stream. Stores implementing
// BatchIncrementer receive all links in one call.
func (c *Chain) Feed(ctx context.Context, tokens iter.Seq[Token]) error {
	links := Links(tokens, c.order)
	if b, ok := c.store.(BatchIncrementer); ok {
		var batch []Link
		for l := range links {
			batch = append(batch, l)
		}
		if len(batch) == 0 {
			return nil
		}
		return storageErr("increment weights", b.IncrementWeights(ctx, batch))
	}
	for l := range links {
		if err := c.store.IncrementWeight(ctx, l); err != nil {
			return storageErr("increment weight", err)
		}
	}
	return nil
}

// Walk generates tokens starting after start. The sequence ends when the
// current window has no successors, or right after yielding an error.
func (c *Chain) Walk(ctx context.Context, start State) iter.Seq2[Token, error] {
	seed := start.Clone()
	return func(yield func(Token, error) bool) {
		window := seed.Clone()
		for {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			ts, err := c.store.Get(ctx, window)
			if err != nil {
				yield("", storageErr("get", err))
				return
			}
			if len(ts) == 0 {
				return
			}
			next := Choose(ts, c.src)
			if n := len(window); n > 0 {
				copy(window, window[1:])
				window[n-1] = next
			}
			if !yield(next, nil) {
				return
			}
		}
	}
}

// Random returns a random stored state.
func (c *Chain) Random(ctx context.Context) (State, bool, error) {
	s, ok, err := c.store.Random(ctx)
	if err != nil {
		return nil, false, storageErr("random", err)
	}
	return s, ok, nil
}

// RandomStartingWith returns a random stored state whose first token is tok.
func (c *Chain) RandomStartingWith(ctx context.Context, tok Token) (State, bool, error) {
	s, ok, err := c.store.RandomStartingWith(ctx, tok)
	if err != nil {
		return nil, false, storageErr("random starting with", err)
	}
	return s, ok, nil
}
