// Package storetest checks that a markov.WeightStore honours the store
// contract. Each implementation's tests call Run with its own factory.
package storetest

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rcliao/markov-bot/internal/markov"
)

// Factory returns an empty store of the given order.
type Factory func(t *testing.T, order int) markov.WeightStore

// Run exercises every contract operation against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("GetUnknownState", func(t *testing.T) { testGetUnknown(t, newStore) })
	t.Run("IncrementWeight", func(t *testing.T) { testIncrementWeight(t, newStore) })
	t.Run("TransitionsSorted", func(t *testing.T) { testSorted(t, newStore) })
	t.Run("RandomEmpty", func(t *testing.T) { testRandomEmpty(t, newStore) })
	t.Run("RandomCoversStates", func(t *testing.T) { testRandomCovers(t, newStore) })
	t.Run("RandomUniform", func(t *testing.T) { testRandomUniform(t, newStore) })
	t.Run("RandomStartingWithUniform", func(t *testing.T) { testRandomStartingWithUniform(t, newStore) })
	t.Run("RandomStartingWith", func(t *testing.T) { testRandomStartingWith(t, newStore) })
	t.Run("Sentinel", func(t *testing.T) { testSentinel(t, newStore) })
	t.Run("ArbitraryBytes", func(t *testing.T) { testArbitraryBytes(t, newStore) })
	t.Run("BatchIncrement", func(t *testing.T) { testBatch(t, newStore) })
}

func link(to string, from ...string) markov.Link {
	return markov.Link{From: markov.State(from), To: to}
}

func mustIncrement(t *testing.T, s markov.WeightStore, l markov.Link) {
	t.Helper()
	if err := s.IncrementWeight(context.Background(), l); err != nil {
		t.Fatalf("increment %v: %v", l, err)
	}
}

func testGetUnknown(t *testing.T, newStore Factory) {
	s := newStore(t, 2)
	ts, err := s.Get(context.Background(), markov.State{"no", "such"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(ts) != 0 {
		t.Errorf("expected no transitions, got %v", ts)
	}
}

func testIncrementWeight(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, 2)

	for i := 0; i < 3; i++ {
		mustIncrement(t, s, link("sat", "the", "cat"))
	}
	mustIncrement(t, s, link("ran", "the", "cat"))
	mustIncrement(t, s, link("ran", "a", "dog"))

	got, err := s.Get(ctx, markov.State{"the", "cat"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := markov.Transitions{{Token: "ran", Weight: 1}, {Token: "sat", Weight: 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}

	// Visible immediately after the write.
	mustIncrement(t, s, link("ran", "the", "cat"))
	got, _ = s.Get(ctx, markov.State{"the", "cat"})
	if w := got.Weight("ran"); w != 2 {
		t.Errorf("expected weight 2 after increment, got %d", w)
	}

	other, _ := s.Get(ctx, markov.State{"a", "dog"})
	if diff := cmp.Diff(markov.Transitions{{Token: "ran", Weight: 1}}, other); diff != "" {
		t.Errorf("unrelated state changed (-want +got):\n%s", diff)
	}
}

func testSorted(t *testing.T, newStore Factory) {
	s := newStore(t, 1)
	for _, to := range []string{"c", "a", "b", "a"} {
		mustIncrement(t, s, link(to, "x"))
	}
	got, err := s.Get(context.Background(), markov.State{"x"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := markov.Transitions{{Token: "a", Weight: 2}, {Token: "b", Weight: 1}, {Token: "c", Weight: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}
}

func testRandomEmpty(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, 2)

	if st, ok, err := s.Random(ctx); err != nil || ok {
		t.Errorf("expected no state, got %v ok=%v err=%v", st, ok, err)
	}
	if st, ok, err := s.RandomStartingWith(ctx, "the"); err != nil || ok {
		t.Errorf("expected no state, got %v ok=%v err=%v", st, ok, err)
	}
}

func testRandomCovers(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, 2)

	states := []markov.State{{"a", "b"}, {"b", "c"}, {"c", "d"}}
	for _, st := range states {
		// Heavier weights must not bias the choice of state.
		for i := 0; i < 5; i++ {
			mustIncrement(t, s, markov.Link{From: st, To: "z"})
		}
	}

	seen := map[string]bool{}
	for i := 0; i < 300 && len(seen) < len(states); i++ {
		st, ok, err := s.Random(ctx)
		if err != nil {
			t.Fatalf("random: %v", err)
		}
		if !ok {
			t.Fatal("expected a state")
		}
		seen[st.Key()] = true
	}
	for _, st := range states {
		if !seen[st.Key()] {
			t.Errorf("state %v never returned", st)
		}
	}
}

func testRandomStartingWith(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, 2)

	mustIncrement(t, s, link("sat", "the", "cat"))
	mustIncrement(t, s, link("ran", "a", "dog"))
	mustIncrement(t, s, link("on", "cat", "sat"))

	for i := 0; i < 20; i++ {
		st, ok, err := s.RandomStartingWith(ctx, "the")
		if err != nil {
			t.Fatalf("random starting with: %v", err)
		}
		if !ok || !st.Equal(markov.State{"the", "cat"}) {
			t.Fatalf("expected [the cat], got %v ok=%v", st, ok)
		}
	}

	// "sat" only ever appears in second position.
	if st, ok, err := s.RandomStartingWith(ctx, "sat"); err != nil || ok {
		t.Errorf("expected no state for sat, got %v ok=%v err=%v", st, ok, err)
	}
}

func testSentinel(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, 2)

	mustIncrement(t, s, link(markov.Sentinel, "cat", "sat"))
	got, err := s.Get(ctx, markov.State{"cat", "sat"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(markov.Transitions{{Token: markov.Sentinel, Weight: 1}}, got); diff != "" {
		t.Errorf("sentinel mismatch (-want +got):\n%s", diff)
	}
}

func testBatch(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, 2)
	b, ok := s.(markov.BatchIncrementer)
	if !ok {
		t.Skip("store does not batch")
	}

	links := []markov.Link{
		link("sat", "the", "cat"),
		link("on", "cat", "sat"),
		link("sat", "the", "cat"),
	}
	if err := b.IncrementWeights(ctx, links); err != nil {
		t.Fatalf("increment weights: %v", err)
	}
	got, _ := s.Get(ctx, markov.State{"the", "cat"})
	if w := got.Weight("sat"); w != 2 {
		t.Errorf("expected weight 2, got %d", w)
	}

	// A malformed link rejects the whole batch.
	bad := []markov.Link{link("x", "cat", "sat"), link("y", "only")}
	if err := b.IncrementWeights(ctx, bad); err == nil {
		t.Fatal("expected error for short state")
	}
	got, _ = s.Get(ctx, markov.State{"cat", "sat"})
	if w := got.Weight("x"); w != 0 {
		t.Errorf("expected rejected batch to leave no trace, got weight %d", w)
	}
}

// countDraws calls draw n times and counts the returned states by key.
func countDraws(t *testing.T, n int, draw func() (markov.State, bool, error)) map[string]int {
	t.Helper()
	counts := map[string]int{}
	for i := 0; i < n; i++ {
		st, ok, err := draw()
		if err != nil {
			t.Fatalf("draw: %v", err)
		}
		if !ok {
			t.Fatal("expected a state")
		}
		counts[st.Key()]++
	}
	return counts
}

// checkEven fails unless every state got within 20% of an equal share.
func checkEven(t *testing.T, counts map[string]int, states []markov.State, draws int) {
	t.Helper()
	want := draws / len(states)
	for _, st := range states {
		got := counts[st.Key()]
		if got < want*8/10 || got > want*12/10 {
			t.Errorf("state %v drawn %d times, want about %d (counts %v)", st, got, want, counts)
		}
	}
}

func testRandomUniform(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, 2)

	// Observation counts must not bias the choice of state.
	repeats := map[string]int{"the cat": 60, "a dog": 1, "my fish": 15}
	var states []markov.State
	for words, n := range repeats {
		st := markov.State(strings.Fields(words))
		states = append(states, st)
		for i := 0; i < n; i++ {
			mustIncrement(t, s, markov.Link{From: st, To: "ran"})
		}
	}

	const draws = 3000
	counts := countDraws(t, draws, func() (markov.State, bool, error) { return s.Random(ctx) })
	checkEven(t, counts, states, draws)
}

func testRandomStartingWithUniform(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, 2)

	states := []markov.State{{"x", "a"}, {"x", "b"}}
	for i := 0; i < 40; i++ {
		mustIncrement(t, s, markov.Link{From: states[0], To: "z"})
	}
	mustIncrement(t, s, markov.Link{From: states[1], To: "z"})
	mustIncrement(t, s, link("z", "y", "x"))

	const draws = 2000
	counts := countDraws(t, draws, func() (markov.State, bool, error) { return s.RandomStartingWith(ctx, "x") })
	checkEven(t, counts, states, draws)
}

func testArbitraryBytes(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, 2)

	from := markov.State{"a\x00b", "\xff\xfe"}
	to := "naïve\x01"
	mustIncrement(t, s, markov.Link{From: from, To: to})

	got, err := s.Get(ctx, from)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(markov.Transitions{{Token: to, Weight: 1}}, got); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}

	st, ok, err := s.RandomStartingWith(ctx, "a\x00b")
	if err != nil {
		t.Fatalf("random starting with: %v", err)
	}
	if !ok || !st.Equal(from) {
		t.Errorf("expected %q, got %q ok=%v", from, st, ok)
	}
}
