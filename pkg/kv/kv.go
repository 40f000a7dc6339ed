// Package kv defines the storage contract shared by token revocation,
// login-failure tracking, MFA code delivery throttling, and channel rate
// limiting. Every one of these is "has this key happened N times in the
// last window" or "is this key marked", so they share one interface instead
// of four bespoke ones.
package kv

import (
	"context"
	"time"
)

// Store is a minimal KV contract backed by Redis in production. Every
// sliding-window operation is expected to be atomic under concurrent callers.
type Store interface {
	// Set stores a value with a TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Get returns the stored value, and false if the key does not exist.
	Get(ctx context.Context, key string) (string, bool, error)

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// RecordEvent appends a timestamped occurrence of key to a sliding
	// window and returns the number of occurrences still within window.
	// Entries older than window are pruned atomically as part of the call.
	RecordEvent(ctx context.Context, key string, window time.Duration) (int64, error)

	// CountEvents returns the number of occurrences of key within window
	// without recording a new one.
	CountEvents(ctx context.Context, key string, window time.Duration) (int64, error)

	// ClearEvents removes all recorded occurrences of key.
	ClearEvents(ctx context.Context, key string) error
}
