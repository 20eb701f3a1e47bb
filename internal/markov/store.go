package markov

import (
	"context"
	"errors"
	"fmt"
)

// WeightStore maps states to the weighted successors observed after them.
type WeightStore interface {
	// Get returns the transitions of a state sorted by token. Unknown states
	// yield an empty result, not an error.
	Get(ctx context.Context, from State) (Transitions, error)

	// Random returns a state chosen uniformly among distinct stored states.
	// ok is false when the store is empty.
	Random(ctx context.Context) (s State, ok bool, err error)

	// RandomStartingWith is like Random but only considers states whose first
	// token is tok.
	RandomStartingWith(ctx context.Context, tok Token) (s State, ok bool, err error)

	// IncrementWeight adds 1 to the weight of link, creating it at 1.
	IncrementWeight(ctx context.Context, link Link) error
}

// BatchIncrementer is implemented by stores that can apply all links of one
// learning event atomically.
type BatchIncrementer interface {
	IncrementWeights(ctx context.Context, links []Link) error
}

// ErrNoData is returned when nothing has been learned yet.
var ErrNoData = errors.New("no data to generate from")

// StorageError wraps a failure reported by a WeightStore.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
