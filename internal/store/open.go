package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Options selects and configures a backend for Open.
type Options struct {
	Driver   string // memory | bolt | sqlite | postgres | mysql | nats | socket
	Path     string // bolt and sqlite file
	DSN      string // postgres and mysql
	Bucket   string // bolt bucket or NATS KV bucket
	Socket   string // daemon socket
	NATSURL  string
	MaxBytes int64
	Timeout  time.Duration
}

// Open builds the Store named by opts.Driver. The returned closer is never nil.
func Open(opts Options) (Store, io.Closer, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	switch driver {
	case "memory":
		return NewMemory(opts.MaxBytes), nopCloser{}, nil
	case "bolt", "":
		if err := ensureParentDir(opts.Path); err != nil {
			return nil, nopCloser{}, err
		}
		s, err := OpenBolt(opts.Path, BoltOptions{Bucket: opts.Bucket, MaxBytes: opts.MaxBytes, Timeout: opts.Timeout})
		if err != nil {
			return nil, nopCloser{}, err
		}
		return s, s, nil
	case "sqlite", "postgres", "mysql":
		dsn := opts.DSN
		if driver == "sqlite" && dsn == "" {
			if err := ensureParentDir(opts.Path); err != nil {
				return nil, nopCloser{}, err
			}
			dsn = opts.Path
		}
		s, err := OpenSQL(SQLOptions{Driver: driver, DSN: dsn, MaxBytes: opts.MaxBytes, Timeout: opts.Timeout})
		if err != nil {
			return nil, nopCloser{}, err
		}
		return s, s, nil
	case "nats":
		s, err := OpenNATS(NATSOptions{URL: opts.NATSURL, Bucket: opts.Bucket, MaxBytes: opts.MaxBytes, Timeout: opts.Timeout})
		if err != nil {
			return nil, nopCloser{}, err
		}
		return s, s, nil
	case "socket":
		return NewClient(opts.Socket), nopCloser{}, nil
	default:
		return nil, nopCloser{}, fmt.Errorf("store: unknown driver %q", opts.Driver)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
