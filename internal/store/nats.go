package store

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATS implements Store on a JetStream key/value bucket.
type NATS struct {
	nc      *nats.Conn
	kv      jetstream.KeyValue
	timeout time.Duration
}

type NATSOptions struct {
	URL    string
	Bucket string
	// MaxBytes is passed to the bucket as its storage limit.
	MaxBytes int64
	Timeout  time.Duration
}

// OpenNATS connects to the server and creates or updates the bucket.
func OpenNATS(opts NATSOptions) (*NATS, error) {
	if opts.URL == "" {
		opts.URL = nats.DefaultURL
	}
	if opts.Bucket == "" {
		opts.Bucket = "cachier"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	nc, err := nats.Connect(opts.URL, nats.Timeout(opts.Timeout))
	if err != nil {
		return nil, err
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()
	cfg := jetstream.KeyValueConfig{
		Bucket:  opts.Bucket,
		Storage: jetstream.FileStorage,
	}
	if opts.MaxBytes > 0 {
		cfg.MaxBytes = opts.MaxBytes
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, cfg)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return &NATS{nc: nc, kv: kv, timeout: opts.Timeout}, nil
}

func (s *NATS) Close() error {
	s.nc.Close()
	return nil
}

func (s *NATS) Available() bool {
	return s.nc != nil && s.nc.IsConnected()
}

func (s *NATS) GetItem(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	e, err := s.kv.Get(ctx, natsKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(e.Value()), true, nil
}

func (s *NATS) SetItem(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.kv.Put(ctx, natsKey(key), []byte(value)); err != nil {
		if isNATSQuota(err) {
			return ErrQuotaExceeded
		}
		return err
	}
	return nil
}

func (s *NATS) RemoveItem(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err := s.kv.Delete(ctx, natsKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

// natsKey maps arbitrary keys onto the KV key alphabet, which excludes ':' and spaces.
func natsKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func isNATSQuota(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "maximum bytes exceeded")
}
