package store

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrRollback marks a failed write whose slots could not all be restored.
var ErrRollback = errors.New("store: rollback failed")

type snapshot struct {
	key    string
	value  string
	exists bool
}

// SetAll writes items as a unit. A Batcher applies them in one batch; any
// other store gets a two-phase write: the current slots are read first and
// put back when a later write faults. A failed restore is reported with
// ErrRollback alongside the original fault.
func SetAll(s Store, items []Item) error {
	if b, ok := s.(Batcher); ok {
		return b.SetItems(items)
	}

	prev := make([]snapshot, 0, len(items))
	for _, it := range items {
		v, ok, err := s.GetItem(it.Key)
		if err != nil {
			return err
		}
		prev = append(prev, snapshot{key: it.Key, value: v, exists: ok})
	}
	for i, it := range items {
		if err := s.SetItem(it.Key, it.Value); err != nil {
			if rerr := restore(s, prev[:i]); rerr != nil {
				return multierr.Append(err, fmt.Errorf("%w: %w", ErrRollback, rerr))
			}
			return err
		}
	}
	return nil
}

func restore(s Store, prev []snapshot) error {
	var err error
	for _, p := range prev {
		if p.exists {
			err = multierr.Append(err, s.SetItem(p.key, p.value))
		} else {
			err = multierr.Append(err, s.RemoveItem(p.key))
		}
	}
	return err
}

// RemoveAll deletes keys through the batch path when available.
func RemoveAll(s Store, keys ...string) error {
	if b, ok := s.(Batcher); ok {
		return b.RemoveItems(keys...)
	}
	for _, k := range keys {
		if err := s.RemoveItem(k); err != nil {
			return err
		}
	}
	return nil
}
