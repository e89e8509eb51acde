package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/leonardcser/cachier/internal/cache"
	"github.com/leonardcser/cachier/internal/store"
)

const page = `<html><head><title> Example Page </title>
<meta name="description" content="An example."></head>
<body>
<header>site header</header>
<script>var hidden = 1;</script>
<h1>Welcome</h1>
<p>Some <b>bold</b> text.</p>
<a href="/about#team">About</a>
<a href="https://other.example/x">Other</a>
<a href="mailto:me@example.com">Mail</a>
<a href="javascript:void(0)">JS</a>
</body></html>`

const ddgPage = `<html><body>
<div class="result results_links results_links_deep web-result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2F&rut=abc"> The Go
  Programming Language </a>
  <a class="result__snippet">Go is an open source language.</a>
</div>
<div class="result results_links results_links_deep web-result">
  <a class="result__a" href="https://pkg.go.dev/">Go Packages</a>
</div>
</body></html>`

func newCache() *cache.Cache { return cache.New(store.NewMemory(0)) }

func TestFetcherCachesSummaries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "fixed-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	f := NewFetcher(newCache(), time.Minute, NewAgents("fixed-agent"))
	ps, cached, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.False(t, cached)
	require.Equal(t, "Example Page", ps.Title)
	require.Equal(t, "An example.", ps.Description)
	require.Equal(t, []string{srv.URL + "/about", "https://other.example/x"}, ps.Links)
	require.Contains(t, ps.Text, "Welcome")
	require.Contains(t, ps.Text, "**bold**")
	require.NotContains(t, ps.Text, "hidden")
	require.NotContains(t, ps.Text, "site header")

	again, cached, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.True(t, cached)
	require.Equal(t, ps, again)
	require.EqualValues(t, 1, hits.Load())

	require.True(t, f.Forget(srv.URL))
	_, cached, err = f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.False(t, cached)
	require.EqualValues(t, 2, hits.Load())
}

func TestFetcherRejectsInput(t *testing.T) {
	f := NewFetcher(newCache(), time.Minute, nil)

	_, _, err := f.Fetch(context.Background(), "ftp://example.com")
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = f.Fetch(ctx, "https://example.com")
	require.ErrorIs(t, err, context.Canceled)
}

func TestSummarize(t *testing.T) {
	ps, err := summarize("https://example.com/doc.txt", "text/plain", []byte("plain body"))
	require.NoError(t, err)
	require.Equal(t, "plain body", ps.Text)
	require.Empty(t, ps.Title)

	_, err = summarize("https://example.com/a.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	require.Error(t, err)
}

func TestSearcherCachesResults(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		fmt.Fprint(w, ddgPage)
	}))
	defer srv.Close()

	s := NewSearcher(newCache(), time.Minute, nil)
	s.endpoint = srv.URL + "/html/"

	results, cached, err := s.Search(context.Background(), " golang ", 10)
	require.NoError(t, err)
	require.False(t, cached)
	require.Equal(t, []SearchResult{
		{Title: "The Go Programming Language", Description: "Go is an open source language.", Link: "https://go.dev/"},
		{Title: "Go Packages", Link: "https://pkg.go.dev/"},
	}, results)

	results, cached, err = s.Search(context.Background(), "golang", 1)
	require.NoError(t, err)
	require.True(t, cached)
	require.Len(t, results, 1)
	require.EqualValues(t, 1, hits.Load())

	require.True(t, s.Forget("golang"))
	_, cached, err = s.Search(context.Background(), "golang", 10)
	require.NoError(t, err)
	require.False(t, cached)
	require.EqualValues(t, 2, hits.Load())
}

func TestSearcherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewSearcher(newCache(), time.Minute, nil)
	s.endpoint = srv.URL

	_, _, err := s.Search(context.Background(), "   ", 10)
	require.Error(t, err)

	_, _, err = s.Search(context.Background(), "golang", 10)
	require.ErrorContains(t, err, "status 429")
}

func TestUncachedResultsAreLogged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ddgPage)
	}))
	defer srv.Close()

	mem := store.NewMemory(0)
	core, recorded := observer.New(zap.WarnLevel)
	s := NewSearcher(cache.New(mem), time.Minute, nil)
	s.endpoint = srv.URL
	s.log = zap.New(core)

	mem.SetAvailable(false)
	results, cached, err := s.Search(context.Background(), "golang", 10)
	require.NoError(t, err)
	require.False(t, cached)
	require.Len(t, results, 2)

	entries := recorded.FilterMessage("search results not cached").All()
	require.Len(t, entries, 1)
	require.Equal(t, "golang", entries[0].ContextMap()["query"])
}

func TestExtractDDGURL(t *testing.T) {
	require.Equal(t, "https://example.com/a b", extractDDGURL("//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fa%20b&rut=x"))
	require.Equal(t, "https://plain.example/", extractDDGURL("https://plain.example/"))
}

func TestAgentsRotate(t *testing.T) {
	a := NewAgents("")
	first := a.Next()
	require.Equal(t, defaultAgents[0], first)
	require.Equal(t, defaultAgents[1], a.Next())

	fixed := NewAgents("  custom/1.0 ")
	require.Equal(t, "custom/1.0", fixed.Next())
	require.Equal(t, "custom/1.0", fixed.Next())

	var none *Agents
	require.Equal(t, defaultAgents[0], none.Next())
}
