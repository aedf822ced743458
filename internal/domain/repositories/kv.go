package repositories

import "context"

// KeyValueStore is a flat byte store keyed by slash-separated strings
// ("credentials/<user>/<provider>", "preferences/<user>").
type KeyValueStore interface {
	// Get returns the value for key, or nil if the key does not exist (not an error).
	Get(ctx context.Context, key string) ([]byte, error)

	// Set creates or replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the keys starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
