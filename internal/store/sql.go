package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// record is a single stored item in the SQL backend.
type record struct {
	Key       string `gorm:"column:item_key;primaryKey;size:512"`
	Value     string `gorm:"column:item_value;type:text"`
	UpdatedAt time.Time
}

func (record) TableName() string { return "store_items" }

// SQL implements Store on top of a relational database through gorm.
type SQL struct {
	db       *gorm.DB
	maxBytes int64
	timeout  time.Duration

	clock     clockwork.Clock
	mu        sync.Mutex
	healthyAt time.Time
}

// pingInterval is how long a successful ping vouches for the connection.
const pingInterval = 5 * time.Second

type SQLOptions struct {
	// Driver is one of sqlite, postgres or mysql.
	Driver string
	// DSN is the driver specific connection string; for sqlite a file path.
	DSN      string
	MaxBytes int64
	Timeout  time.Duration
}

// OpenSQL connects to the database and migrates the items table.
func OpenSQL(opts SQLOptions) (*SQL, error) {
	dialector, err := dialectorFor(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", opts.Driver, err)
	}
	return NewSQL(db, opts)
}

// NewSQL wraps an existing gorm handle.
func NewSQL(db *gorm.DB, opts SQLOptions) (*SQL, error) {
	if db == nil {
		return nil, errors.New("store: database handle is required")
	}
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &SQL{db: db, maxBytes: opts.MaxBytes, timeout: opts.Timeout, clock: clockwork.NewRealClock()}, nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3", "":
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		return sqlite.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("store: unsupported sql driver %q", driver)
	}
}

// Close releases the underlying connection pool.
func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Available pings the database at most once per pingInterval while it
// stays healthy. A failed operation forces the next call to ping again.
func (s *SQL) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	if !s.healthyAt.IsZero() && now.Sub(s.healthyAt) < pingInterval {
		return true
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return false
	}
	ctx, cancel := s.ctx()
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		s.healthyAt = time.Time{}
		return false
	}
	s.healthyAt = now
	return true
}

// observe drops the cached ping result when err is a database fault.
func (s *SQL) observe(err error) error {
	if err != nil && !errors.Is(err, ErrQuotaExceeded) {
		s.mu.Lock()
		s.healthyAt = time.Time{}
		s.mu.Unlock()
	}
	return err
}

func (s *SQL) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *SQL) GetItem(key string) (string, bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	var rec record
	err := s.db.WithContext(ctx).Take(&rec, "item_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.observe(err)
	}
	return rec.Value, true, nil
}

func (s *SQL) SetItem(key, value string) error {
	return s.SetItems([]Item{{Key: key, Value: value}})
}

func (s *SQL) RemoveItem(key string) error {
	return s.RemoveItems(key)
}

// SetItems upserts all items inside one transaction.
func (s *SQL) SetItems(items []Item) error {
	if len(items) == 0 {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()
	return s.observe(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.maxBytes > 0 {
			if err := s.checkQuota(tx, items); err != nil {
				return err
			}
		}
		recs := make([]record, 0, len(items))
		for _, it := range items {
			recs = append(recs, record{Key: it.Key, Value: it.Value})
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"item_value", "updated_at"}),
		}).Create(&recs).Error
	}))
}

func (s *SQL) RemoveItems(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()
	return s.observe(s.db.WithContext(ctx).Where("item_key IN ?", keys).Delete(&record{}).Error)
}

func (s *SQL) checkQuota(tx *gorm.DB, items []Item) error {
	keys := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, it.Key)
	}
	var used, replaced int64
	if err := tx.Model(&record{}).
		Select("COALESCE(SUM(LENGTH(item_key) + LENGTH(item_value)), 0)").
		Scan(&used).Error; err != nil {
		return err
	}
	if err := tx.Model(&record{}).
		Where("item_key IN ?", keys).
		Select("COALESCE(SUM(LENGTH(item_key) + LENGTH(item_value)), 0)").
		Scan(&replaced).Error; err != nil {
		return err
	}
	if used-replaced+itemsSize(items) > s.maxBytes {
		return ErrQuotaExceeded
	}
	return nil
}

var _ Batcher = (*SQL)(nil)
