package cache

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/leonardcser/cachier/internal/logger"
	"github.com/leonardcser/cachier/internal/metrics"
	"github.com/leonardcser/cachier/internal/store"
)

// DefaultTTL applies when Set is called without a TTL.
const DefaultTTL = time.Hour

// Cache stores typed values with an expiry on top of a string-only store.
// Each logical key occupies three slots: the payload, its kind tag and the
// absolute expiry in Unix milliseconds. Expired entries are removed when a
// Get finds them; nothing sweeps in the background.
//
// A Cache holds no state between calls and is safe for concurrent use when
// its store is. Eviction re-reads the expiry slot and skips the delete when a
// writer replaced it; a write landing between that check and the delete can
// still be dropped, since the store offers no compare-and-delete.
type Cache struct {
	store      store.Store
	prefix     string
	defaultTTL time.Duration
	clock      clockwork.Clock
	log        *zap.Logger
}

type Option func(*Cache)

// WithPrefix replaces the namespace prefix of the derived keys.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithDefaultTTL overrides DefaultTTL; non-positive values are ignored.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// New returns a Cache over s. A nil store behaves as an unavailable one.
func New(s store.Store, opts ...Option) *Cache {
	c := &Cache{
		store:      s,
		prefix:     DefaultPrefix,
		defaultTTL: DefaultTTL,
		clock:      clockwork.NewRealClock(),
		log:        logger.WithModule("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type setOptions struct {
	ttl time.Duration
}

type SetOption func(*setOptions)

// WithTTL sets the entry lifetime. Zero selects the cache default.
func WithTTL(ttl time.Duration) SetOption {
	return func(o *setOptions) {
		o.ttl = ttl
	}
}

func (c *Cache) available() bool {
	return c.store != nil && c.store.Available()
}

func (c *Cache) keys(key string) Derived { return Keys(c.prefix, key) }

// Exists reports whether key has a payload stored, ignoring kind and expiry.
func (c *Cache) Exists(key string) bool {
	if !c.available() {
		metrics.RecordCache("exists", "unavailable")
		return false
	}
	_, ok, err := c.store.GetItem(c.keys(key).Data)
	if err != nil {
		c.log.Debug("exists: store fault", zap.String("key", key), zap.Error(err))
		metrics.RecordCache("exists", "error")
		return false
	}
	if ok {
		metrics.RecordCache("exists", "hit")
	} else {
		metrics.RecordCache("exists", "miss")
	}
	return ok
}

// Get reads and decodes key. Failures are reported in the Result, never panicked.
func (c *Cache) Get(key string) Result {
	res := c.get(key)
	metrics.RecordCache("get", resultLabel(res.Err))
	return res
}

func (c *Cache) get(key string) Result {
	if !c.available() {
		return miss(ErrUnavailable)
	}
	d := c.keys(key)
	raw, ok, err := c.store.GetItem(d.Data)
	if err != nil {
		return miss(fmt.Errorf("%w: %w", ErrStore, err))
	}
	if !ok {
		return miss(ErrNotFound)
	}

	now := c.clock.Now().UnixMilli()
	expiresAt, stamp, err := c.expiry(d)
	if err != nil {
		return miss(fmt.Errorf("%w: %w", ErrStore, err))
	}
	if now >= expiresAt {
		c.evict(key, d, stamp)
		return miss(ErrExpired)
	}

	tag, _, err := c.store.GetItem(d.Type)
	if err != nil {
		return miss(fmt.Errorf("%w: %w", ErrStore, err))
	}
	data, err := decode(tag, raw)
	if err != nil {
		return miss(err)
	}
	k, _ := ParseKind(tag)
	return Result{
		Found:        true,
		Data:         data,
		RemainingTTL: time.Duration(expiresAt-now) * time.Millisecond,
		kind:         k,
		raw:          raw,
	}
}

// expiry returns the stored expiry and its raw slot text; a missing or
// unreadable slot counts as already expired.
func (c *Cache) expiry(d Derived) (int64, string, error) {
	v, ok, err := c.store.GetItem(d.Expire)
	if err != nil || !ok {
		return 0, "", err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, v, nil
	}
	return ms, v, nil
}

// evict removes an expired entry unless its expiry slot no longer holds stamp.
func (c *Cache) evict(key string, d Derived, stamp string) {
	if _, cur, err := c.expiry(d); err != nil || cur != stamp {
		return
	}
	if err := c.remove(d); err != nil {
		c.log.Warn("lazy eviction failed", zap.String("key", key), zap.Error(err))
		return
	}
	metrics.Evictions.Inc()
}

// Set stores value under key and reports success. See Put for the failure cases.
func (c *Cache) Set(key string, value any, opts ...SetOption) bool {
	if err := c.Put(key, value, opts...); err != nil {
		c.log.Debug("set failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Put stores value under key. It fails without touching the store for
// functions and other unsupported values, negative TTLs and an unavailable
// store. A store fault mid-write leaves the previous entry in place.
func (c *Cache) Put(key string, value any, opts ...SetOption) (err error) {
	defer func() { metrics.RecordCache("set", resultLabel(err)) }()

	o := setOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.ttl < 0 {
		return ErrInvalidTTL
	}
	if o.ttl == 0 {
		o.ttl = c.defaultTTL
	}
	if !c.available() {
		return ErrUnavailable
	}
	k, payload, err := encode(value)
	if err != nil {
		return err
	}

	d := c.keys(key)
	expiresAt := c.clock.Now().Add(o.ttl).UnixMilli()
	items := []store.Item{
		{Key: d.Data, Value: payload},
		{Key: d.Type, Value: k.String()},
		{Key: d.Expire, Value: strconv.FormatInt(expiresAt, 10)},
	}
	if err := c.write(items); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

// Remove deletes every slot of key and reports success. Removing a missing
// key succeeds.
func (c *Cache) Remove(key string) bool {
	if err := c.Delete(key); err != nil {
		c.log.Debug("remove failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Delete is Remove with the failure reason.
func (c *Cache) Delete(key string) (err error) {
	defer func() { metrics.RecordCache("remove", resultLabel(err)) }()
	if !c.available() {
		return ErrUnavailable
	}
	if err := c.remove(c.keys(key)); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

func (c *Cache) remove(d Derived) error {
	return store.RemoveAll(c.store, d.all()...)
}

// write applies items as a unit through store.SetAll.
func (c *Cache) write(items []store.Item) error {
	err := store.SetAll(c.store, items)
	if errors.Is(err, store.ErrRollback) {
		c.log.Error("rollback failed, entry may be inconsistent",
			zap.String("slot", items[0].Key), zap.Error(err))
	}
	return err
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "miss"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case store.IsQuota(err):
		return "quota"
	default:
		return "error"
	}
}
