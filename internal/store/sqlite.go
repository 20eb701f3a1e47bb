package store

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/rcliao/markov-bot/internal/markov"
)

// SQLStore implements Store on a relational database using the
// word / transition_from / transition schema.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	order   int
	path    string
	q       queries
	src     markov.Source
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, order int) (*SQLStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s, err := newSQLStore(db, sqliteDialect, order)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.path = dbPath
	return s, nil
}

func newSQLStore(db *sql.DB, d dialect, order int) (*SQLStore, error) {
	if order < 1 {
		return nil, fmt.Errorf("order must be at least 1, got %d", order)
	}
	s := &SQLStore{
		db:      db,
		dialect: d,
		order:   order,
		q:       buildQueries(d, order),
		src:     markov.SystemSource{},
	}
	if err := s.migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate creates the schema and records the order, refusing to reuse a
// database created for a different order.
func (s *SQLStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, metaSchema); err != nil {
		return err
	}

	var stored string
	fresh := false
	err := s.db.QueryRowContext(ctx, s.q.getOrder).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		fresh = true
	case err != nil:
		return fmt.Errorf("read order: %w", err)
	case stored != strconv.Itoa(s.order):
		return fmt.Errorf("%w: database has order %s, want %d", ErrOrderMismatch, stored, s.order)
	}

	if _, err := s.db.ExecContext(ctx, schemaSQL(s.dialect, s.order)); err != nil {
		return err
	}
	if fresh {
		if _, err := s.db.ExecContext(ctx, s.q.setOrder, strconv.Itoa(s.order)); err != nil {
			return fmt.Errorf("write order: %w", err)
		}
	}
	return nil
}

// The sentinel is stored as the empty string, which tokenization never
// produces, so both dialects keep one representation.
func encodeToken(t markov.Token) string {
	if t == markov.Sentinel {
		return ""
	}
	return t
}

func decodeToken(v string) markov.Token {
	if v == "" {
		return markov.Sentinel
	}
	return v
}

func (s *SQLStore) tokenArg(t markov.Token) any {
	return s.dialect.arg(encodeToken(t))
}

func (s *SQLStore) stateArgs(st markov.State) []any {
	args := make([]any, len(st))
	for i, t := range st {
		args[i] = s.tokenArg(t)
	}
	return args
}

func (s *SQLStore) Get(ctx context.Context, from markov.State) (markov.Transitions, error) {
	if len(from) != s.order {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, s.q.getWeights, s.stateArgs(from)...)
	if err != nil {
		return nil, fmt.Errorf("get weights: %w", err)
	}
	defer rows.Close()

	var ts markov.Transitions
	for rows.Next() {
		var value string
		var weight int64
		if err := rows.Scan(&value, &weight); err != nil {
			return nil, fmt.Errorf("scan weight: %w", err)
		}
		if weight <= 0 {
			return nil, fmt.Errorf("corrupt weight %d for %q", weight, value)
		}
		ts = append(ts, markov.Transition{Token: decodeToken(value), Weight: uint32(min(weight, math.MaxUint32))})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.SortFunc(ts, func(a, b markov.Transition) int { return cmp.Compare(a.Token, b.Token) })
	return ts, nil
}

// Random draws an offset below the state count, so every distinct state is
// equally likely whatever its id.
func (s *SQLStore) Random(ctx context.Context) (markov.State, bool, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, s.q.countStates).Scan(&n); err != nil {
		return nil, false, fmt.Errorf("count states: %w", err)
	}
	if n == 0 {
		return nil, false, nil
	}
	return s.queryState(ctx, s.q.random, int64(s.src.Uint64N(uint64(n))))
}

func (s *SQLStore) RandomStartingWith(ctx context.Context, tok markov.Token) (markov.State, bool, error) {
	return s.queryState(ctx, s.q.randomStartingWith, s.tokenArg(tok))
}

func (s *SQLStore) queryState(ctx context.Context, query string, args ...any) (markov.State, bool, error) {
	values := make([]string, s.order)
	dest := make([]any, s.order)
	for i := range values {
		dest[i] = &values[i]
	}

	err := s.db.QueryRowContext(ctx, query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("random state: %w", err)
	}

	st := make(markov.State, s.order)
	for i, v := range values {
		st[i] = decodeToken(v)
	}
	return st, true, nil
}

func (s *SQLStore) IncrementWeight(ctx context.Context, link markov.Link) error {
	return s.IncrementWeights(ctx, []markov.Link{link})
}

// IncrementWeights applies all links in a single transaction.
func (s *SQLStore) IncrementWeights(ctx context.Context, links []markov.Link) error {
	return s.add(ctx, unitLinks(links))
}

// AddWeights adds each entry's weight in a single transaction.
func (s *SQLStore) AddWeights(ctx context.Context, entries []Entry) error {
	return s.add(ctx, entryLinks(entries))
}

func (s *SQLStore) add(ctx context.Context, links []weightedLink) error {
	if err := checkWeighted(links, s.order); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	words := map[string]int64{}
	for _, l := range links {
		fromIDs := make([]any, s.order)
		for i, t := range l.From {
			id, err := s.getOrCreateWord(ctx, tx, words, encodeToken(t))
			if err != nil {
				return err
			}
			fromIDs[i] = id
		}
		fromID, err := s.getOrCreateTransitionFrom(ctx, tx, fromIDs)
		if err != nil {
			return err
		}
		toID, err := s.getOrCreateWord(ctx, tx, words, encodeToken(l.To))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q.addWeight, fromID, toID, int64(l.n)); err != nil {
			return fmt.Errorf("add weight: %w", err)
		}
	}

	return tx.Commit()
}

// Rows are looked up before inserting: a PostgreSQL INSERT consumes a
// sequence value even when ON CONFLICT skips it.
func (s *SQLStore) getOrCreateWord(ctx context.Context, tx *sql.Tx, cache map[string]int64, value string) (int64, error) {
	if id, ok := cache[value]; ok {
		return id, nil
	}
	arg := s.dialect.arg(value)
	id, err := getOrCreate(ctx, tx, s.q.getWord, s.q.insertWord, arg)
	if err != nil {
		return 0, fmt.Errorf("word: %w", err)
	}
	cache[value] = id
	return id, nil
}

func (s *SQLStore) getOrCreateTransitionFrom(ctx context.Context, tx *sql.Tx, wordIDs []any) (int64, error) {
	id, err := getOrCreate(ctx, tx, s.q.getTransitionFrom, s.q.insertTransitionFrom, wordIDs...)
	if err != nil {
		return 0, fmt.Errorf("transition_from: %w", err)
	}
	return id, nil
}

func getOrCreate(ctx context.Context, tx *sql.Tx, get, insert string, args ...any) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, get, args...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("get: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}
	if err := tx.QueryRowContext(ctx, get, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("get: %w", err)
	}
	return id, nil
}

// Order returns the chain order the schema was created for.
func (s *SQLStore) Order() int { return s.order }

func (s *SQLStore) Close() error {
	return s.db.Close()
}
