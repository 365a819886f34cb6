// Package store defines the contract for the hierarchical realtime data store
// that backs chat sessions and product reviews. Records live under slash-joined
// paths ("chats/{sessionID}", "chats/{sessionID}/messages/{messageID}",
// "reviews/{productID}/{reviewID}") and subscribers always receive the entire
// current value at their path, never deltas.
package store

import (
	"errors"
	"strings"
)

// ErrUnavailable is returned by write operations when the store backend is not
// configured or not reachable. Callers surface it as a "service unavailable"
// state instead of crashing the page.
var ErrUnavailable = errors.New("store: backend unavailable")

// Snapshot is the full value at a path. For a record path it maps field names
// to values; for a collection path the values are nested Snapshots keyed by
// child id. A nil Snapshot means "no record".
type Snapshot = map[string]any

// timestampMarker is resolved to the store's own clock at write time.
type timestampMarker struct{}

// ServerTimestamp is an opaque marker that a store implementation replaces
// with its own monotonic timestamp (unix milliseconds) when the write lands.
// Client clocks never reach persisted records.
var ServerTimestamp = timestampMarker{}

// IsServerTimestamp reports whether v is the ServerTimestamp marker.
func IsServerTimestamp(v any) bool {
	_, ok := v.(timestampMarker)
	return ok
}

// Store is the realtime store contract. Every implementation must deliver the
// current snapshot synchronously on Subscribe and again on every change, and
// must hand back an unsubscribe func that stops further callbacks.
type Store interface {
	// Subscribe registers onChange for the path. The callback receives the
	// complete value at the path (full-state replace, not a patch).
	Subscribe(path string, onChange func(Snapshot)) (unsubscribe func())

	// Get reads the current snapshot at the path. Missing records yield a nil
	// snapshot, not an error.
	Get(path string) (Snapshot, error)

	// Write fully replaces the value at the path, dropping any children not
	// present in value.
	Write(path string, value map[string]any) error

	// Update merges only the named fields into the record at the path, leaving
	// sibling fields and child records untouched.
	Update(path string, fields map[string]any) error

	// GenerateKey returns a new push key for a child of the path: unique and
	// lexically increasing per store instance.
	GenerateKey(path string) string
}

// SplitPath breaks a slash-joined path into its segments, dropping empties.
func SplitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinPath assembles path segments back into a slash-joined path.
func JoinPath(segments ...string) string {
	return strings.Join(segments, "/")
}

// Related reports whether a write at wrote affects a subscription at sub:
// true when either path is an ancestor of (or equal to) the other.
func Related(wrote, sub string) bool {
	if wrote == sub {
		return true
	}
	return strings.HasPrefix(wrote, sub+"/") || strings.HasPrefix(sub, wrote+"/")
}

// ResolveTimestamps returns a copy of fields with every ServerTimestamp marker
// replaced by now (unix milliseconds).
func ResolveTimestamps(fields map[string]any, now int64) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if IsServerTimestamp(v) {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}
