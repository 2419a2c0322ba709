package patterns

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by storage lookups for unknown keys.
var ErrNotFound = errors.New("pattern not found")

// ErrConflict is returned by Save when the key already exists.
var ErrConflict = errors.New("pattern already exists")

// PatternError wraps a storage failure with the operation and key involved.
type PatternError struct {
	Op  string
	Key string
	Err error
}

func (e PatternError) Error() string {
	return fmt.Sprintf("pattern %s %q: %v", e.Op, e.Key, e.Err)
}

func (e PatternError) Unwrap() error {
	return e.Err
}

// Pattern is anything addressable by a composite string key.
type Pattern interface {
	Key() string
}

// Storage is the persistence protocol shared by the in-memory store and the
// Postgres adapter in internal/db. Save rejects duplicate keys, Update
// rejects unknown ones, Upsert accepts both.
type Storage[T Pattern] interface {
	Get(ctx context.Context, key string) (T, error)
	Save(ctx context.Context, p T) error
	Update(ctx context.Context, p T) error
	Upsert(ctx context.Context, p T) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]T, error)
	ClearAll(ctx context.Context) error
}
