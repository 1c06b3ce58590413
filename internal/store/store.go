// internal/store/store.go
//
// Key-value persistence used for board state.
// Plays the role of a browser's cookie jar / localStorage:
//   - Set with ttl > 0 behaves like a cookie (entry expires).
//   - Set with ttl == 0 behaves like localStorage (entry never expires).
//
// Implementations: memory (this package, process lifetime) and sqlite
// (this package, durable).

package store

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// KV defines the persistence interface for board state.
type KV interface {
	// Get returns the value for key. ok is false when the key is missing
	// or expired.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key. ttl 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Clear removes key. Clearing a missing key is not an error.
	Clear(ctx context.Context, key string) error
}

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func expired(now, exp time.Time) bool {
	return !exp.IsZero() && !now.Before(exp)
}
