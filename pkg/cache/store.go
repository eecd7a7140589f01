package cache

import (
	"context"
	"errors"
)

var (
	// ErrMiss indicates the requested key has no persisted entry.
	ErrMiss = errors.New("cache miss")

	// ErrCorruptEntry indicates a persisted entry could not be decoded.
	// The TTL cache treats it as a miss, never as a caller-visible failure.
	ErrCorruptEntry = errors.New("corrupt cache entry")
)

// Store is the durable backend beneath the in-memory layer. Writes must
// be atomic replace-on-write: a reader sees either the old entry or the
// new one, never a torn mix.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, key string, entry *Entry) error
	Delete(ctx context.Context, key string) error
	Close() error
}
