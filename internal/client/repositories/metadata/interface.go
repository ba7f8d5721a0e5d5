// Package metadata persists small key/value records of CLI state, such as
// the current token pair, in the local SQLite database.
package metadata

import (
	"context"
)

// Repository is a string key/value table. Get returns "" for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string]string, error)
	Clear(ctx context.Context) error
}
