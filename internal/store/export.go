package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/rcliao/markov-bot/internal/markov"
)

// Entry is one weighted transition in an export.
type Entry struct {
	From   []string `json:"from"`
	To     string   `json:"to"`
	Weight uint32   `json:"weight"`
}

// Exporter is implemented by stores that can list every transition.
type Exporter interface {
	Export(ctx context.Context) ([]Entry, error)
}

// WeightAdder is implemented by stores that can add a whole weight to a
// transition in one step.
type WeightAdder interface {
	AddWeights(ctx context.Context, entries []Entry) error
}

// Import adds the weights of entries to s. Entries for a different order are
// rejected before anything is written. A WeightAdder receives the whole
// import as one learning event; other stores are incremented one unit at a
// time.
func Import(ctx context.Context, s markov.WeightStore, order int, entries []Entry) (int, error) {
	for i, e := range entries {
		if len(e.From) != order {
			return 0, fmt.Errorf("entry %d: state has %d tokens, want %d", i, len(e.From), order)
		}
		if e.Weight == 0 {
			return 0, fmt.Errorf("entry %d: zero weight", i)
		}
	}
	if len(entries) == 0 {
		return 0, nil
	}

	if a, ok := s.(WeightAdder); ok {
		if err := a.AddWeights(ctx, entries); err != nil {
			return 0, err
		}
		return len(entries), nil
	}
	for _, e := range entries {
		l := markov.Link{From: markov.State(e.From), To: e.To}
		for range e.Weight {
			if err := s.IncrementWeight(ctx, l); err != nil {
				return 0, err
			}
		}
	}
	return len(entries), nil
}

func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := slices.Compare(a.From, b.From); c != 0 {
			return c
		}
		return cmp.Compare(a.To, b.To)
	})
}

// Export returns every transition ordered by state then successor.
func (s *MemoryStore) Export(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []Entry
	for _, e := range s.entries {
		for to, w := range e.succ {
			entries = append(entries, Entry{From: slices.Clone(e.state), To: to, Weight: w})
		}
	}
	sortEntries(entries)
	return entries, nil
}

// Export returns every transition ordered by state then successor.
func (s *SQLStore) Export(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.q.exportAll)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	defer rows.Close()

	values := make([]string, s.order+1)
	var weight int64
	dest := make([]any, 0, s.order+2)
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, &weight)

	var entries []Entry
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		from := make([]string, s.order)
		for i := range from {
			from[i] = decodeToken(values[i])
		}
		entries = append(entries, Entry{From: from, To: decodeToken(values[s.order]), Weight: uint32(weight)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortEntries(entries)
	return entries, nil
}

// Export returns every transition ordered by state then successor.
func (s *RedisStore) Export(ctx context.Context) ([]Entry, error) {
	keys, err := s.client.SMembers(ctx, s.prefix+"states").Result()
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	var entries []Entry
	for _, key := range keys {
		st, err := markov.ParseStateKey(key)
		if err != nil {
			return nil, err
		}
		m, err := s.client.HGetAll(ctx, s.prefix+"state:"+key).Result()
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", key, err)
		}
		for to, v := range m {
			w, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("corrupt weight %q for %q", v, to)
			}
			entries = append(entries, Entry{From: []string(st), To: to, Weight: uint32(w)})
		}
	}
	sortEntries(entries)
	return entries, nil
}
