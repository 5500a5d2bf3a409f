package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrStorageIO wraps every persisted-store failure.
	ErrStorageIO = errors.New("storage i/o failure")

	// ErrKeyNotFound is returned by Get for missing keys.
	ErrKeyNotFound = errors.New("key not found")
)

// KVStore is the persisted key-value store holding wallet connection data.
// Enumerate-then-delete sequences built on it are not transactional.
type KVStore interface {
	// ListKeys returns every key currently stored
	ListKeys(ctx context.Context) ([]string, error)

	// DeleteMany removes the given keys; missing keys are ignored
	DeleteMany(ctx context.Context, keys []string) error

	// Get returns the value for key or ErrKeyNotFound
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key
	Set(ctx context.Context, key, value string) error

	// Delete removes a single key; a missing key is not an error
	Delete(ctx context.Context, key string) error
}

// IOError wraps err as a storage failure for op.
func IOError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageIO, op, err)
}
