// Package store defines the key-value store contract the event services
// depend on, and its redis implementation.
//
// The event state lives entirely in the store: request hashes with TTL
// expiry, the address book and ticket result hashes, the per-type NFT
// queues, the token queue and the reward delivery queue. Only the small
// set of operations the services actually use is part of the contract so
// tests can substitute an in-memory implementation.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNil is returned when a key or field is absent, mirroring redis nil
// replies. Callers treat it as "not found", never as a failure.
var ErrNil = errors.New("store: nil reply")

// Store is the key-value contract for event state.
type Store interface {
	// Hash operations.
	HSet(ctx context.Context, key, field string, value interface{}) error
	// HSetNX writes the field only if it does not exist yet and reports
	// whether the write happened. This is the atomic create-if-absent
	// primitive backing single-issuance guarantees.
	HSetNX(ctx context.Context, key, field string, value interface{}) (bool, error)
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// Expire sets a TTL on the whole key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// List/queue operations. Queues push right and pop left.
	RPush(ctx context.Context, key string, value interface{}) error
	LPop(ctx context.Context, key string) (string, error)
	LLen(ctx context.Context, key string) (int64, error)
	// LMove atomically pops from the left of src and pushes to the right
	// of dst, returning the moved element.
	LMove(ctx context.Context, src, dst string) (string, error)
	// LRem removes occurrences of value from the list.
	LRem(ctx context.Context, key string, value interface{}) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// ZAdd adds a member to a sorted set with the given score.
	ZAdd(ctx context.Context, key string, score float64, member interface{}) error

	Close() error
}
