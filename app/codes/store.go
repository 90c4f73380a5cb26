package codes

import (
	"context"
	"errors"
)

// ErrMissing is returned by Store.Get when the key does not exist.
var ErrMissing = errors.New("codes: key missing")

// Store is the durable key-value map behind the registry.
// Implementations must make SetNX and Delete atomic.
type Store interface {
	// SetNX stores value under key unless the key exists and reports whether it was stored.
	SetNX(ctx context.Context, key, value string) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
