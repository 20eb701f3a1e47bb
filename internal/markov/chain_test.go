package markov

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"testing"

	gocmp "github.com/google/go-cmp/cmp"
)

// mapStore is a minimal WeightStore for exercising the chain.
type mapStore struct {
	m      map[string]Transitions
	states []State
	getErr error
	incErr error
	rndErr error
}

func newMapStore() *mapStore {
	return &mapStore{m: map[string]Transitions{}}
}

func (s *mapStore) Get(ctx context.Context, from State) (Transitions, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return slices.Clone(s.m[from.Key()]), nil
}

func (s *mapStore) Random(ctx context.Context) (State, bool, error) {
	if s.rndErr != nil {
		return nil, false, s.rndErr
	}
	if len(s.states) == 0 {
		return nil, false, nil
	}
	return s.states[0].Clone(), true, nil
}

func (s *mapStore) RandomStartingWith(ctx context.Context, tok Token) (State, bool, error) {
	if s.rndErr != nil {
		return nil, false, s.rndErr
	}
	for _, st := range s.states {
		if len(st) > 0 && st[0] == tok {
			return st.Clone(), true, nil
		}
	}
	return nil, false, nil
}

func (s *mapStore) IncrementWeight(ctx context.Context, l Link) error {
	if s.incErr != nil {
		return s.incErr
	}
	key := l.From.Key()
	ts, ok := s.m[key]
	if !ok {
		s.states = append(s.states, l.From.Clone())
	}
	i, found := slices.BinarySearchFunc(ts, l.To, func(t Transition, tok Token) int { return cmp.Compare(t.Token, tok) })
	if found {
		ts[i].Weight++
	} else {
		ts = slices.Insert(ts, i, Transition{Token: l.To, Weight: 1})
	}
	s.m[key] = ts
	return nil
}

// batchStore records how many batches it received.
type batchStore struct {
	*mapStore
	batches [][]Link
}

func (s *batchStore) IncrementWeights(ctx context.Context, links []Link) error {
	s.batches = append(s.batches, links)
	for _, l := range links {
		if err := s.IncrementWeight(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func newTestChain(t *testing.T, store WeightStore, order int) *Chain {
	t.Helper()
	c, err := NewChain(store, &sequenceSource{}, order)
	if err != nil {
		t.Fatalf("new chain: %v", err)
	}
	return c
}

func walk(t *testing.T, c *Chain, start State) ([]Token, error) {
	t.Helper()
	var out []Token
	for tok, err := range c.Walk(context.Background(), start) {
		if err != nil {
			return out, err
		}
		out = append(out, tok)
	}
	return out, nil
}

func TestWalkSinglePath(t *testing.T) {
	c := newTestChain(t, newMapStore(), 2)
	err := c.Feed(context.Background(), slices.Values([]Token{"the", "cat", "sat", Sentinel}))
	if err != nil {
		t.Fatalf("feed: %v", err)
	}

	got, err := walk(t, c, State{"the", "cat"})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if diff := gocmp.Diff([]Token{"sat", Sentinel}, got); diff != "" {
		t.Errorf("walk mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkUnknownStateEnds(t *testing.T) {
	c := newTestChain(t, newMapStore(), 2)
	got, err := walk(t, c, State{"never", "seen"})
	if err != nil || len(got) != 0 {
		t.Errorf("expected empty walk, got %v err=%v", got, err)
	}
}

func TestWalkStopsOnStorageError(t *testing.T) {
	store := newMapStore()
	store.getErr = errors.New("disk on fire")
	c := newTestChain(t, store, 2)

	steps := 0
	var last error
	for _, err := range c.Walk(context.Background(), State{"a", "b"}) {
		steps++
		last = err
	}
	if steps != 1 {
		t.Errorf("expected exactly one element, got %d", steps)
	}
	var se *StorageError
	if !errors.As(last, &se) || se.Op != "get" {
		t.Errorf("expected StorageError from get, got %v", last)
	}
}

func TestWalkCancelled(t *testing.T) {
	store := newMapStore()
	store.IncrementWeight(context.Background(), Link{From: State{"a"}, To: "a"})
	c := newTestChain(t, store, 1)

	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	for _, err := range c.Walk(ctx, State{"a"}) {
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
			break
		}
		n++
		if n == 3 {
			cancel()
		}
	}
	if n != 3 {
		t.Errorf("expected 3 tokens before cancellation, got %d", n)
	}
}

func TestWalkDoesNotAliasStart(t *testing.T) {
	store := newMapStore()
	store.IncrementWeight(context.Background(), Link{From: State{"a", "b"}, To: "c"})
	c := newTestChain(t, store, 2)

	start := State{"a", "b"}
	seq := c.Walk(context.Background(), start)
	start[0] = "x"
	for range seq {
	}
	if start[1] != "b" {
		t.Errorf("walk mutated caller's start state: %v", start)
	}
	if got, _ := walk(t, c, State{"a", "b"}); len(got) != 1 || got[0] != "c" {
		t.Errorf("expected [c], got %v", got)
	}
}

func TestFeedUsesBatch(t *testing.T) {
	store := &batchStore{mapStore: newMapStore()}
	c := newTestChain(t, store, 2)

	if err := c.Feed(context.Background(), slices.Values([]Token{"a", "b", "c", "d"})); err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(store.batches) != 1 || len(store.batches[0]) != 2 {
		t.Errorf("expected one batch of 2 links, got %v", store.batches)
	}

	// Nothing to record, nothing sent.
	if err := c.Feed(context.Background(), slices.Values([]Token{"a"})); err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(store.batches) != 1 {
		t.Errorf("expected no batch for short input, got %d", len(store.batches))
	}
}

func TestFeedStorageError(t *testing.T) {
	store := newMapStore()
	store.incErr = errors.New("read-only")
	c := newTestChain(t, store, 1)

	err := c.Feed(context.Background(), slices.Values([]Token{"a", "b"}))
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if !errors.Is(err, store.incErr) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestNewChainValidation(t *testing.T) {
	if _, err := NewChain(nil, nil, 2); err == nil {
		t.Error("expected error for nil store")
	}
	if _, err := NewChain(newMapStore(), nil, -1); err == nil {
		t.Error("expected error for negative order")
	}
	c, err := NewChain(newMapStore(), nil, 0)
	if err != nil {
		t.Fatalf("order 0: %v", err)
	}
	if err := c.Feed(context.Background(), slices.Values([]Token{"a", "b"})); err != nil {
		t.Errorf("order 0 feed: %v", err)
	}
}
