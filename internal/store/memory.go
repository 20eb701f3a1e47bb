package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/rcliao/markov-bot/internal/markov"
)

// MemoryStore keeps the chain in process memory. It grows without bound.
type MemoryStore struct {
	mu      sync.RWMutex
	order   int
	src     markov.Source
	entries map[string]*memEntry
	states  []markov.State
	byFirst map[markov.Token][]int
	words   map[markov.Token]struct{}
	weight  int64
	trans   int64
}

type memEntry struct {
	state markov.State
	succ  map[markov.Token]uint32
}

// NewMemoryStore creates an empty store. A nil src uses markov.SystemSource.
func NewMemoryStore(order int, src markov.Source) *MemoryStore {
	if src == nil {
		src = markov.SystemSource{}
	}
	return &MemoryStore{
		order:   order,
		src:     src,
		entries: make(map[string]*memEntry),
		byFirst: make(map[markov.Token][]int),
		words:   make(map[markov.Token]struct{}),
	}
}

func (s *MemoryStore) Get(ctx context.Context, from markov.State) (markov.Transitions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[from.Key()]
	if !ok {
		return nil, nil
	}
	ts := make(markov.Transitions, 0, len(e.succ))
	for tok, w := range e.succ {
		ts = append(ts, markov.Transition{Token: tok, Weight: w})
	}
	slices.SortFunc(ts, func(a, b markov.Transition) int { return cmp.Compare(a.Token, b.Token) })
	return ts, nil
}

func (s *MemoryStore) Random(ctx context.Context) (markov.State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.states) == 0 {
		return nil, false, nil
	}
	i := s.src.Uint64N(uint64(len(s.states)))
	return s.states[i].Clone(), true, nil
}

func (s *MemoryStore) RandomStartingWith(ctx context.Context, tok markov.Token) (markov.State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.byFirst[tok]
	if len(idx) == 0 {
		return nil, false, nil
	}
	i := s.src.Uint64N(uint64(len(idx)))
	return s.states[idx[i]].Clone(), true, nil
}

func (s *MemoryStore) IncrementWeight(ctx context.Context, link markov.Link) error {
	return s.IncrementWeights(ctx, []markov.Link{link})
}

// IncrementWeights applies all links under one lock.
func (s *MemoryStore) IncrementWeights(ctx context.Context, links []markov.Link) error {
	return s.add(unitLinks(links))
}

// AddWeights adds each entry's weight under one lock.
func (s *MemoryStore) AddWeights(ctx context.Context, entries []Entry) error {
	return s.add(entryLinks(entries))
}

func (s *MemoryStore) add(links []weightedLink) error {
	if err := checkWeighted(links, s.order); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range links {
		key := l.From.Key()
		e, ok := s.entries[key]
		if !ok {
			e = &memEntry{state: l.From.Clone(), succ: make(map[markov.Token]uint32)}
			s.entries[key] = e
			if len(e.state) > 0 {
				s.byFirst[e.state[0]] = append(s.byFirst[e.state[0]], len(s.states))
			}
			s.states = append(s.states, e.state)
			for _, t := range e.state {
				s.words[t] = struct{}{}
			}
		}
		old := e.succ[l.To]
		if old == 0 {
			s.trans++
		}
		w, added := addSaturating(old, l.n)
		e.succ[l.To] = w
		s.words[l.To] = struct{}{}
		s.weight += int64(added)
	}
	return nil
}

func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Stats{
		Backend:     "memory",
		Order:       s.order,
		Words:       int64(len(s.words)),
		States:      int64(len(s.states)),
		Transitions: s.trans,
		TotalWeight: s.weight,
	}, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
