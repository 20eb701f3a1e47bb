package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rcliao/markov-bot/internal/markov"
)

// RedisStore implements Store on Redis. Each state is a hash of successor
// weights; the set of states backs uniform random selection.
type RedisStore struct {
	client *redis.Client
	prefix string
	order  int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string // Redis server address (e.g., "localhost:6379")
	Password string
	DB       int
	Prefix   string // Key prefix for namespacing
}

// addScript applies one learning event atomically. Weights saturate at
// 2^32-1.
// ARGV: prefix, link count, then (state key, first token, successor, n) per
// link, then every word seen.
var addScript = redis.NewScript(`
local prefix = ARGV[1]
local n = tonumber(ARGV[2])
local max = 4294967295
for i = 0, n - 1 do
	local key = ARGV[3 + i * 4]
	local first = ARGV[4 + i * 4]
	local to = ARGV[5 + i * 4]
	local add = tonumber(ARGV[6 + i * 4])
	local hash = prefix .. 'state:' .. key
	redis.call('SADD', prefix .. 'states', key)
	redis.call('SADD', prefix .. 'first:' .. first, key)
	local w = redis.call('HINCRBY', hash, to, add)
	if w == add then
		redis.call('INCR', prefix .. 'transitions')
	end
	if w > max then
		add = add - (w - max)
		redis.call('HSET', hash, to, max)
	end
	redis.call('INCRBY', prefix .. 'weight', add)
end
for i = 3 + n * 4, #ARGV do
	redis.call('SADD', prefix .. 'words', ARGV[i])
end
return n
`)

// NewRedisStore connects to Redis and checks that the keyspace was created
// for the same order.
func NewRedisStore(ctx context.Context, config *RedisConfig, order int) (*RedisStore, error) {
	if config == nil {
		config = &RedisConfig{Addr: "localhost:6379"}
	}
	if order < 1 {
		return nil, fmt.Errorf("order must be at least 1, got %d", order)
	}
	prefix := config.Prefix
	if prefix == "" {
		prefix = "markov-bot:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	s := &RedisStore{client: client, prefix: prefix, order: order}

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	if err := s.checkOrder(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

func (s *RedisStore) checkOrder(ctx context.Context) error {
	key := s.prefix + "order"
	if err := s.client.SetNX(ctx, key, s.order, 0).Err(); err != nil {
		return fmt.Errorf("write order: %w", err)
	}
	stored, err := s.client.Get(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("read order: %w", err)
	}
	if stored != strconv.Itoa(s.order) {
		return fmt.Errorf("%w: keyspace has order %s, want %d", ErrOrderMismatch, stored, s.order)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, from markov.State) (markov.Transitions, error) {
	m, err := s.client.HGetAll(ctx, s.prefix+"state:"+from.Key()).Result()
	if err != nil {
		return nil, fmt.Errorf("get weights: %w", err)
	}
	ts := make(markov.Transitions, 0, len(m))
	for tok, v := range m {
		w, err := strconv.ParseUint(v, 10, 32)
		if err != nil || w == 0 {
			return nil, fmt.Errorf("corrupt weight %q for %q", v, tok)
		}
		ts = append(ts, markov.Transition{Token: tok, Weight: uint32(w)})
	}
	slices.SortFunc(ts, func(a, b markov.Transition) int { return cmp.Compare(a.Token, b.Token) })
	return ts, nil
}

func (s *RedisStore) Random(ctx context.Context) (markov.State, bool, error) {
	return s.randomMember(ctx, s.prefix+"states")
}

func (s *RedisStore) RandomStartingWith(ctx context.Context, tok markov.Token) (markov.State, bool, error) {
	return s.randomMember(ctx, s.prefix+"first:"+tok)
}

func (s *RedisStore) randomMember(ctx context.Context, set string) (markov.State, bool, error) {
	key, err := s.client.SRandMember(ctx, set).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("random state: %w", err)
	}
	st, err := markov.ParseStateKey(key)
	if err != nil {
		return nil, false, err
	}
	return st, true, nil
}

func (s *RedisStore) IncrementWeight(ctx context.Context, link markov.Link) error {
	return s.IncrementWeights(ctx, []markov.Link{link})
}

// IncrementWeights applies all links in one script invocation.
func (s *RedisStore) IncrementWeights(ctx context.Context, links []markov.Link) error {
	return s.add(ctx, unitLinks(links))
}

// AddWeights adds each entry's weight in one script invocation.
func (s *RedisStore) AddWeights(ctx context.Context, entries []Entry) error {
	return s.add(ctx, entryLinks(entries))
}

func (s *RedisStore) add(ctx context.Context, links []weightedLink) error {
	if err := checkWeighted(links, s.order); err != nil {
		return err
	}

	args := []any{s.prefix, len(links)}
	words := map[markov.Token]struct{}{}
	for _, l := range links {
		args = append(args, l.From.Key(), l.From[0], l.To, l.n)
		for _, t := range l.From {
			words[t] = struct{}{}
		}
		words[l.To] = struct{}{}
	}
	for w := range words {
		args = append(args, w)
	}

	if err := addScript.Run(ctx, s.client, nil, args...).Err(); err != nil {
		return fmt.Errorf("add weight: %w", err)
	}
	return nil
}

func (s *RedisStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Backend: "redis", Order: s.order}

	pipe := s.client.Pipeline()
	words := pipe.SCard(ctx, s.prefix+"words")
	states := pipe.SCard(ctx, s.prefix+"states")
	trans := pipe.Get(ctx, s.prefix+"transitions")
	weight := pipe.Get(ctx, s.prefix+"weight")
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return st, err
	}

	st.Words = words.Val()
	st.States = states.Val()
	st.Transitions, _ = trans.Int64()
	st.TotalWeight, _ = weight.Int64()
	return st, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
