// Package storage provides the durable key-value store that replaces browser local
// storage for the companion. Values are JSON documents.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// Store is a flat key-value namespace. Implementations are safe for use by one process;
// writers across processes are not coordinated.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}
