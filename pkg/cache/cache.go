package cache

import "time"

// Kind namespaces cached snapshots.
type Kind string

const (
	KindOdds  Kind = "odds"
	KindHype  Kind = "hype"
	KindMatch Kind = "match"
)

// Cache stores the latest read snapshot per (kind, id).
type Cache interface {
	// Get returns (value, true) if a live snapshot exists.
	Get(kind Kind, id string) (interface{}, bool)

	// Set stores a snapshot that expires after ttl.
	Set(kind Kind, id string, value interface{}, ttl time.Duration) bool

	// Delete drops a snapshot.
	Delete(kind Kind, id string)

	// Clear drops all snapshots.
	Clear()

	// Wait blocks until buffered writes are visible.
	Wait()

	// Close releases resources.
	Close()
}

// Key builds the storage key for a snapshot.
func Key(kind Kind, id string) string {
	return string(kind) + ":" + id
}
