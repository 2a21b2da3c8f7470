package store

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when the key has no value.
var ErrKeyNotFound = errors.New("key not found")

// KV is the durable local store used for session deadlines and per-user
// result collections. Plain keys hold scalar values; hash keys hold
// field → value maps merged with HSet. All writes are synchronous: when a
// call returns nil the value is durable as far as the backend can promise.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	HSet(ctx context.Context, key, field, value string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}
