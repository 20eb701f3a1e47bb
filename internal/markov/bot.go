package markov

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Bot learns utterances into a chain and generates sentences from it.
type Bot struct {
	chain    *Chain
	shuffler Shuffler
	logger   *zap.Logger
	maxWords int
}

// Option configures a Bot.
type Option func(*Bot)

// WithLogger sets the logger used for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bot) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMaxWords limits sentence length so cyclic chains still terminate.
// 0, the default, disables the limit.
func WithMaxWords(n int) Option {
	return func(b *Bot) { b.maxWords = n }
}

// NewBot creates a bot. A nil shuffler uses RandShuffler.
func NewBot(chain *Chain, shuffler Shuffler, opts ...Option) *Bot {
	if shuffler == nil {
		shuffler = RandShuffler{}
	}
	b := &Bot{
		chain:    chain,
		shuffler: shuffler,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Learn records an utterance. Only storage failures are reported.
func (b *Bot) Learn(ctx context.Context, text string) error {
	words, dropped := tokenize(text)
	if dropped > 0 {
		b.logger.Debug("dropped sentinel tokens", zap.Int("count", dropped))
	}
	b.logger.Debug("learn", zap.Int("words", len(words)))
	words = append(words, Sentinel)
	return b.chain.Feed(ctx, slices.Values(words))
}

// Say builds a sentence from a random state. It returns ErrNoData when
// nothing has been learned.
func (b *Bot) Say(ctx context.Context) (string, error) {
	start, ok, err := b.chain.Random(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoData
	}
	return b.sentence(ctx, start)
}

// Reply builds a sentence seeded by a word of text when one of them starts a
// known state, trying the words in shuffled order. Otherwise it falls back
// to Say.
func (b *Bot) Reply(ctx context.Context, text string) (string, error) {
	words := Tokenize(text)
	b.shuffler.Shuffle(words)
	for _, w := range words {
		start, ok, err := b.chain.RandomStartingWith(ctx, w)
		if err != nil {
			return "", err
		}
		if ok {
			b.logger.Debug("reply seeded", zap.String("word", w))
			return b.sentence(ctx, start)
		}
	}
	b.logger.Debug("reply fallback", zap.Int("candidates", len(words)))
	return b.Say(ctx)
}

// sentence joins start and the walk from it, stopping before the first
// Sentinel.
func (b *Bot) sentence(ctx context.Context, start State) (string, error) {
	words := make([]string, 0, len(start)+8)
	full := func() bool { return b.maxWords > 0 && len(words) >= b.maxWords }
	for _, t := range start {
		if t == Sentinel || full() {
			return strings.Join(words, " "), nil
		}
		words = append(words, t)
	}
	for tok, err := range b.chain.Walk(ctx, start) {
		if err != nil {
			return "", err
		}
		if tok == Sentinel || full() {
			break
		}
		words = append(words, tok)
	}
	return strings.Join(words, " "), nil
}
