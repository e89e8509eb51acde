package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/leonardcser/cachier/internal/config"
	"github.com/leonardcser/cachier/internal/logger"
	"github.com/leonardcser/cachier/internal/metrics"
	"github.com/leonardcser/cachier/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.File, cfg.Log.Level); err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.WithModule("store-daemon")

	sock := cfg.Store.Socket

	// Ensure socket dir exists and remove stale socket
	_ = os.MkdirAll(filepath.Dir(sock), 0o755)
	_ = os.Remove(sock)

	l, err := net.Listen("unix", sock)
	if err != nil {
		log.Fatal("listen", zap.String("socket", sock), zap.Error(err))
	}
	defer l.Close()
	_ = os.Chmod(sock, 0o600)

	// The daemon serves a local backend; serving its own socket would loop.
	opts := cfg.Store.StoreOptions()
	if opts.Driver == "socket" {
		opts.Driver = "bolt"
	}
	kv, closer, err := store.Open(opts)
	if err != nil {
		log.Fatal("open store", zap.String("driver", opts.Driver), zap.Error(err))
	}
	defer closer.Close()
	if !store.Probe(kv) {
		log.Warn("store rejected a probe write, clients will see it as unavailable", zap.String("driver", opts.Driver))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		go metrics.Serve(ctx, cfg.Metrics.Address, log)
	}

	log.Info("store daemon listening", zap.String("socket", sock), zap.String("driver", opts.Driver))
	if err := store.Serve(ctx, l, kv, log); err != nil {
		log.Error("serve", zap.Error(err))
	}
}
