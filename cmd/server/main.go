package main

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/leonardcser/cachier/internal/cache"
	"github.com/leonardcser/cachier/internal/config"
	"github.com/leonardcser/cachier/internal/logger"
	"github.com/leonardcser/cachier/internal/metrics"
	"github.com/leonardcser/cachier/internal/store"
	tools "github.com/leonardcser/cachier/internal/tools"
	web "github.com/leonardcser/cachier/internal/web"
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
	log := logger.WithModule("server")

	log.Info("starting cachier MCP server", zap.String("driver", cfg.Store.Driver))

	kv, closer, err := openStore(cfg, log)
	if err != nil {
		log.Error("failed to open store, cache runs unavailable", zap.Error(err))
	}
	defer closer.Close()
	if err == nil && !store.Probe(kv) {
		log.Warn("store rejected a probe write", zap.String("driver", cfg.Store.Driver))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Metrics.Enabled {
		go metrics.Serve(ctx, cfg.Metrics.ServerAddress, log)
	}

	c := cache.New(kv,
		cache.WithPrefix(cfg.Cache.Prefix),
		cache.WithDefaultTTL(cfg.Cache.DefaultTTL),
	)

	agents := web.NewAgents(cfg.Web.UserAgent)
	fetcher := web.NewFetcher(c, cfg.Web.FetchTTL, agents)
	searcher := web.NewSearcher(c, cfg.Web.SearchTTL, agents)

	s := server.NewMCPServer(
		"Cachier",
		"0.1.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)
	registerCacheTools(s, c)

	toolFetch := mcp.NewTool("web-fetch",
		mcp.WithDescription(multiline(
			"Fetches a URL and returns its title, description, markdown text and links.",
			"\nUsage notes:",
			"- The URL must start with http:// or https://",
			"- Only text content is supported; images and PDFs are rejected",
			"- Summaries are cached; pass refresh=true to fetch again",
		)),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL to fetch content from")),
		mcp.WithBoolean("refresh", mcp.Description("Drop the cached summary before fetching")),
	)
	s.AddTool(toolFetch, tools.WebFetchHandler(fetcher))

	toolSearch := mcp.NewTool("web-search",
		mcp.WithDescription(multiline(
			"Searches the web through DuckDuckGo and returns a numbered result list.",
			"\nUsage notes:",
			"- Results for a query are cached; pass refresh=true to search again",
			"- At most 20 results are returned",
		)),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query to use")),
		mcp.WithNumber("limit", mcp.Description("Number of results, 1 to 20 (default 10)")),
		mcp.WithBoolean("refresh", mcp.Description("Drop cached results before searching")),
	)
	s.AddTool(toolSearch, tools.WebSearchHandler(searcher))

	log.Info("serving MCP on stdio")
	if err := server.ServeStdio(s); err != nil {
		log.Error("server error", zap.Error(err))
	}
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }

// openStore opens the configured store. For the socket driver it starts the
// daemon when nothing answers yet and waits for the socket to appear.
func openStore(cfg *config.Config, log *zap.Logger) (store.Store, io.Closer, error) {
	opts := cfg.Store.StoreOptions()
	if opts.Driver != "socket" {
		return store.Open(opts)
	}
	client := store.NewClient(opts.Socket)
	if client.Available() {
		return client, nopCloser{}, nil
	}
	log.Warn("store daemon not reachable, attempting to start it", zap.String("socket", opts.Socket))
	if err := startCacheDaemon(); err != nil {
		log.Error("failed to start store daemon", zap.Error(err))
		return client, nopCloser{}, err
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if client.Available() {
			log.Info("store daemon started")
			return client, nopCloser{}, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return client, nopCloser{}, store.ErrUnavailable
}

func startCacheDaemon() error {
	// 1) Try cache binary next to this server executable (works with absolute invocation)
	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		sibling := filepath.Join(exeDir, "cachier-store")
		if _, statErr := os.Stat(sibling); statErr == nil {
			cmd := exec.Command(sibling)
			cmd.Stdout = nil
			cmd.Stderr = nil
			cmd.Env = os.Environ()
			return cmd.Start()
		}
	}

	// 2) Try PATH binary
	if path, err := exec.LookPath("cachier-store"); err == nil {
		cmd := exec.Command(path)
		cmd.Stdout = nil
		cmd.Stderr = nil
		cmd.Env = os.Environ()
		return cmd.Start()
	}

	// 3) Try local binary in current working directory (best-effort)
	if _, err := os.Stat("./cachier-store"); err == nil {
		cmd := exec.Command("./cachier-store")
		cmd.Stdout = nil
		cmd.Stderr = nil
		cmd.Env = os.Environ()
		return cmd.Start()
	}

	return exec.ErrNotFound
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
