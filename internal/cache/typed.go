package cache

import "fmt"

// Typed is a type-safe view of a Cache for values of type T.
type Typed[T any] struct {
	c *Cache
}

func NewTyped[T any](c *Cache) *Typed[T] { return &Typed[T]{c: c} }

// Get returns the decoded value. When the stored payload cannot be decoded
// into T the Result reports ErrMalformed.
func (t *Typed[T]) Get(key string) (out T, res Result) {
	res = t.c.Get(key)
	if !res.Found {
		return out, res
	}
	if err := res.Scan(&out); err != nil {
		var zero T
		return zero, miss(fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	return out, res
}

func (t *Typed[T]) Set(key string, v T, opts ...SetOption) bool {
	return t.c.Set(key, v, opts...)
}

func (t *Typed[T]) Remove(key string) bool { return t.c.Remove(key) }

func (t *Typed[T]) Exists(key string) bool { return t.c.Exists(key) }
