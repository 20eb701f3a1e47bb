package markov

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// keepOrder leaves tokens as they are.
type keepOrder struct{}

func (keepOrder) Shuffle([]Token) {}

// reverseOrder reverses tokens.
type reverseOrder struct{}

func (reverseOrder) Shuffle(tokens []Token) { slices.Reverse(tokens) }

func newTestBot(t *testing.T, store WeightStore, order int, sh Shuffler, opts ...Option) *Bot {
	t.Helper()
	return NewBot(newTestChain(t, store, order), sh, opts...)
}

func TestLearnAndSay(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t, newMapStore(), 2, keepOrder{})

	if err := b.Learn(ctx, "the cat sat"); err != nil {
		t.Fatalf("learn: %v", err)
	}
	got, err := b.Say(ctx)
	if err != nil {
		t.Fatalf("say: %v", err)
	}
	if got != "the cat sat" {
		t.Errorf("expected %q, got %q", "the cat sat", got)
	}
}

func TestSayColdStart(t *testing.T) {
	b := newTestBot(t, newMapStore(), 2, keepOrder{})

	got, err := b.Say(context.Background())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %q, %v", got, err)
	}
}

func TestLearnShortUtterance(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t, newMapStore(), 2, keepOrder{})

	// "hi" plus the sentinel fills the window but leaves no successor.
	if err := b.Learn(ctx, "hi"); err != nil {
		t.Fatalf("learn: %v", err)
	}
	if err := b.Learn(ctx, "   "); err != nil {
		t.Fatalf("learn blank: %v", err)
	}
	if _, err := b.Say(ctx); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestLearnTwoWords(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t, newMapStore(), 2, keepOrder{})

	b.Learn(ctx, "hello world")
	got, err := b.Say(ctx)
	if err != nil {
		t.Fatalf("say: %v", err)
	}
	if got != "hello world" {
		t.Errorf("expected %q, got %q", "hello world", got)
	}
}

func TestReplySeededByMessageWord(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t, newMapStore(), 2, keepOrder{})
	b.Learn(ctx, "the cat sat")
	b.Learn(ctx, "a dog ran")

	got, err := b.Reply(ctx, "hello a friend")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if got != "a dog ran" {
		t.Errorf("expected %q, got %q", "a dog ran", got)
	}
}

func TestReplyUsesShuffledOrder(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t, newMapStore(), 2, reverseOrder{})
	b.Learn(ctx, "the cat sat")
	b.Learn(ctx, "a dog ran")

	got, _ := b.Reply(ctx, "the a")
	if got != "a dog ran" {
		t.Errorf("expected the last word to be tried first, got %q", got)
	}
}

func TestReplyFallsBackToSay(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t, newMapStore(), 2, keepOrder{})
	b.Learn(ctx, "the cat sat")

	reply, err := b.Reply(ctx, "xyzzy")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	say, _ := b.Say(ctx)
	if reply != say {
		t.Errorf("expected fallback %q, got %q", say, reply)
	}
}

func TestReplyColdStart(t *testing.T) {
	b := newTestBot(t, newMapStore(), 2, keepOrder{})
	if _, err := b.Reply(context.Background(), "anything at all"); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestReplyStorageError(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	b := newTestBot(t, store, 2, keepOrder{})
	b.Learn(ctx, "the cat sat")

	store.rndErr = errors.New("connection reset")
	_, err := b.Reply(ctx, "the")
	var se *StorageError
	if !errors.As(err, &se) {
		t.Errorf("expected StorageError, got %v", err)
	}
}

func TestLearnStorageError(t *testing.T) {
	store := newMapStore()
	store.incErr = errors.New("read-only")
	b := newTestBot(t, store, 2, keepOrder{})

	if err := b.Learn(context.Background(), "the cat sat"); !errors.Is(err, store.incErr) {
		t.Errorf("expected storage error, got %v", err)
	}
}

func TestSayMaxWords(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	store.IncrementWeight(ctx, Link{From: State{"a"}, To: "b"})
	store.IncrementWeight(ctx, Link{From: State{"b"}, To: "a"})

	b := newTestBot(t, store, 1, keepOrder{}, WithMaxWords(5))
	got, err := b.Say(ctx)
	if err != nil {
		t.Fatalf("say: %v", err)
	}
	if got != "a b a b a" {
		t.Errorf("expected 5 words, got %q", got)
	}
}

func TestSentenceStopsAtSentinel(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t, newMapStore(), 1, keepOrder{})
	b.Learn(ctx, "one two")
	b.Learn(ctx, "two three")

	got, err := b.Say(ctx)
	if err != nil {
		t.Fatalf("say: %v", err)
	}
	if strings.Contains(got, Sentinel) {
		t.Errorf("sentence contains sentinel: %q", got)
	}
}

func TestLongUtteranceNotTruncatedByDefault(t *testing.T) {
	ctx := context.Background()
	b := newTestBot(t, newMapStore(), 2, keepOrder{})

	words := make([]string, 150)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	text := strings.Join(words, " ")
	if err := b.Learn(ctx, text); err != nil {
		t.Fatalf("learn: %v", err)
	}

	got, err := b.Say(ctx)
	if err != nil {
		t.Fatalf("say: %v", err)
	}
	if got != text {
		t.Errorf("expected the full %d-word utterance, got %d words", len(words), len(strings.Fields(got)))
	}
}

func TestLearnLogsDroppedSentinel(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	b := newTestBot(t, newMapStore(), 2, keepOrder{}, WithLogger(zap.New(core)))

	if err := b.Learn(context.Background(), "the "+Sentinel+" cat sat"); err != nil {
		t.Fatalf("learn: %v", err)
	}
	entries := logs.FilterMessage("dropped sentinel tokens").All()
	if len(entries) != 1 {
		t.Fatalf("expected one dropped-sentinel log entry, got %d", len(entries))
	}
	if n := entries[0].ContextMap()["count"]; n != int64(1) {
		t.Errorf("expected count 1, got %v", n)
	}
}
