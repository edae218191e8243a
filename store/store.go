// Package store defines the backing slot interface and implementations.
package store

import "context"

// Slot is the interface that all backing stores must implement.
// A slot is a flat key-value space where each key holds one serialized
// string (in practice a whole JSON document).
type Slot interface {
	// Get returns the value stored under key. ok is false when the key
	// has never been set.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set replaces the value stored under key.
	Set(ctx context.Context, key, value string) error
}

// Watcher is implemented by slots that can report changes made outside
// the current process (for example another process rewriting a file).
type Watcher interface {
	// Watch returns a channel that receives a value every time key changes.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context, key string) (<-chan struct{}, error)
}
