// Package kv defines the key-value collaborator contract for evolvd.
//
// The pipeline assumes nothing beyond get/set-with-TTL, delete, and
// prefix listing; there are no transactions and writes are
// last-write-wins.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get when the key does not exist or has
// expired.
var ErrKeyNotFound = errors.New("kv: key not found")

// Store is the minimal key-value interface the versioned store is built
// on.
type Store interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// ListKeys returns all keys beginning with prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	// Close releases the backend's resources.
	Close() error
}
