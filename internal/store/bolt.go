package store

import (
	"bytes"
	"errors"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bolt provides a persistent Store backed by a single bbolt bucket.
// It is safe for concurrent use by multiple goroutines.
type Bolt struct {
	db       *bolt.DB
	bucket   []byte
	maxBytes int64
	// size is the summed key and value length of the bucket, kept in step
	// with every committed write.
	size int64
	mu   sync.RWMutex
}

type BoltOptions struct {
	// Bucket is the name of the Bolt bucket to use.
	Bucket string
	// MaxBytes bounds the summed key and value sizes; <= 0 means unbounded.
	MaxBytes int64
	// Timeout is how long to wait for the file lock.
	Timeout time.Duration
}

// OpenBolt initializes or opens a Bolt store at the given path.
func OpenBolt(path string, opts BoltOptions) (*Bolt, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 1 * time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: opts.Timeout})
	if err != nil {
		return nil, err
	}
	bucket := []byte("cachier")
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	var size int64
	if err := db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			size += int64(len(k) + len(v))
			return nil
		})
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Bolt{db: db, bucket: bucket, maxBytes: opts.MaxBytes, size: size}, nil
}

// Close closes the underlying database.
func (s *Bolt) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Bolt) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

func (s *Bolt) GetItem(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return "", false, ErrClosed
	}
	var (
		out    string
		exists bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v, ok := lookup(tx.Bucket(s.bucket), key)
		out, exists = string(v), ok
		return nil
	})
	return out, exists, err
}

// lookup seeks rather than calling Get so that empty values count as present.
func lookup(b *bolt.Bucket, key string) ([]byte, bool) {
	k, v := b.Cursor().Seek([]byte(key))
	if k == nil || !bytes.Equal(k, []byte(key)) {
		return nil, false
	}
	return v, true
}

func (s *Bolt) SetItem(key, value string) error {
	return s.SetItems([]Item{{Key: key, Value: value}})
}

func (s *Bolt) RemoveItem(key string) error {
	return s.RemoveItems(key)
}

// SetItems writes all items in a single transaction, or none of them when
// the quota would be exceeded.
func (s *Bolt) SetItems(items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	var delta int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for _, it := range items {
			if old, ok := lookup(b, it.Key); ok {
				delta -= int64(len(it.Key) + len(old))
			}
			delta += int64(len(it.Key) + len(it.Value))
			if err := b.Put([]byte(it.Key), []byte(it.Value)); err != nil {
				return err
			}
		}
		if s.maxBytes > 0 && s.size+delta > s.maxBytes {
			return ErrQuotaExceeded
		}
		return nil
	})
	if err == nil {
		s.size += delta
	}
	return err
}

// RemoveItems deletes keys in a single transaction.
func (s *Bolt) RemoveItems(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	var delta int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for _, k := range keys {
			old, ok := lookup(b, k)
			if !ok {
				continue
			}
			delta -= int64(len(k) + len(old))
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		s.size += delta
	}
	return err
}

var _ Batcher = (*Bolt)(nil)

// IsQuota reports whether err is a quota fault from any backend.
func IsQuota(err error) bool { return errors.Is(err, ErrQuotaExceeded) }
