package store

import (
	"errors"

	"github.com/google/uuid"
)

// Store is the string-only key/value map the cache layers on top of.
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	// Available reports whether the store can be used at all in the current environment.
	Available() bool
	// GetItem returns the stored value and whether it exists.
	GetItem(key string) (string, bool, error)
	// SetItem stores value under key. It may fail with ErrQuotaExceeded.
	SetItem(key, value string) error
	// RemoveItem deletes key. Removing a missing key is a no-op.
	RemoveItem(key string) error
}

// Batcher is implemented by stores that can apply several writes or deletes
// as one all-or-nothing operation.
type Batcher interface {
	SetItems(items []Item) error
	RemoveItems(keys ...string) error
}

// Item is a single key/value pair of a batch write.
type Item struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

var (
	ErrUnavailable   = errors.New("store: unavailable")
	ErrQuotaExceeded = errors.New("store: quota exceeded")
	ErrClosed        = errors.New("store: closed")
)

const probePrefix = "cachier:probe:"

// Probe checks that s accepts a write and a delete. It never returns an error;
// any fault means the store is not usable.
func Probe(s Store) bool {
	if s == nil {
		return false
	}
	key := probePrefix + uuid.NewString()
	if err := s.SetItem(key, key); err != nil {
		return false
	}
	return s.RemoveItem(key) == nil
}

func itemsSize(items []Item) int64 {
	var n int64
	for _, it := range items {
		n += int64(len(it.Key) + len(it.Value))
	}
	return n
}
