package store

import (
	"context"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rcliao/markov-bot/internal/markov"
)

func learnAll(t *testing.T, s markov.WeightStore, texts ...string) {
	t.Helper()
	chain, err := markov.NewChain(s, nil, 2)
	if err != nil {
		t.Fatal(err)
	}
	bot := markov.NewBot(chain, nil)
	for _, text := range texts {
		if err := bot.Learn(context.Background(), text); err != nil {
			t.Fatalf("learn %q: %v", text, err)
		}
	}
}

func TestExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	want := []Entry{
		{From: []string{"cat", "ran"}, To: markov.Sentinel, Weight: 1},
		{From: []string{"cat", "sat"}, To: markov.Sentinel, Weight: 1},
		{From: []string{"the", "cat"}, To: "ran", Weight: 1},
		{From: []string{"the", "cat"}, To: "sat", Weight: 2},
	}

	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore(2, nil) },
		"sqlite": func(t *testing.T) Store { return newTestStore(t, 2) },
	}
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			src := open(t)
			learnAll(t, src, "the cat sat", "the cat ran", "the cat sat")

			got, err := src.(Exporter).Export(ctx)
			if err != nil {
				t.Fatalf("export: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("export mismatch (-want +got):\n%s", diff)
			}

			dst := NewMemoryStore(2, nil)
			n, err := Import(ctx, dst, 2, got)
			if err != nil {
				t.Fatalf("import: %v", err)
			}
			if n != len(want) {
				t.Errorf("expected %d entries imported, got %d", len(want), n)
			}
			again, _ := dst.Export(ctx)
			if diff := cmp.Diff(want, again); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestImportRejectsWrongOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2, nil)
	entries := []Entry{
		{From: []string{"a", "b"}, To: "c", Weight: 1},
		{From: []string{"a"}, To: "b", Weight: 1},
	}
	if _, err := Import(ctx, s, 2, entries); err == nil {
		t.Fatal("expected error for short state")
	}
	if st, _ := s.Stats(ctx); st.States != 0 {
		t.Errorf("expected nothing imported, got %d states", st.States)
	}

	if _, err := Import(ctx, s, 2, []Entry{{From: []string{"a", "b"}, To: "c"}}); err == nil {
		t.Error("expected error for zero weight")
	}
}

func TestImportLargeWeight(t *testing.T) {
	ctx := context.Background()
	const weight = 50_000_000
	entries := []Entry{{From: []string{"the", "cat"}, To: "sat", Weight: weight}}

	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore(2, nil) },
		"sqlite": func(t *testing.T) Store { return newTestStore(t, 2) },
	}
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			s := open(t)

			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)
			if _, err := Import(ctx, s, 2, entries); err != nil {
				t.Fatalf("import: %v", err)
			}
			runtime.ReadMemStats(&after)
			if grown := after.TotalAlloc - before.TotalAlloc; grown > 16<<20 {
				t.Errorf("import allocated %d bytes for one entry", grown)
			}

			ts, err := s.Get(ctx, markov.State{"the", "cat"})
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if w := ts.Weight("sat"); w != weight {
				t.Errorf("expected weight %d, got %d", weight, w)
			}
			st, err := s.Stats(ctx)
			if err != nil {
				t.Fatalf("stats: %v", err)
			}
			if st.Transitions != 1 || st.TotalWeight != weight {
				t.Errorf("unexpected counts: %+v", st)
			}
		})
	}
}
