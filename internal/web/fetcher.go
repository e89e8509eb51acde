package web

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/leonardcser/cachier/internal/cache"
	"github.com/leonardcser/cachier/internal/logger"
	"github.com/leonardcser/cachier/internal/metrics"
)

const (
	RequestTimeout  = 20 * time.Second
	MaxResponseSize = 1 * 1024 * 1024 // 1MB
	maxLinks        = 50
)

type PageSummary struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Text        string   `json:"text"`
	Links       []string `json:"links"`
}

type Fetcher struct {
	c      *colly.Collector
	cache  *cache.Typed[PageSummary]
	ttl    time.Duration
	agents *Agents
	log    *zap.Logger

	mu   sync.Mutex
	last *colly.Response
}

// NewFetcher returns a Fetcher that keeps page summaries in c for ttl.
// A nil agents pool rotates through the built-in User-Agent list.
func NewFetcher(c *cache.Cache, ttl time.Duration, agents *Agents) *Fetcher {
	if agents == nil {
		agents = NewAgents("")
	}
	f := &Fetcher{
		c:      colly.NewCollector(colly.AllowURLRevisit(), colly.Async(false)),
		cache:  cache.NewTyped[PageSummary](c),
		ttl:    ttl,
		agents: agents,
		log:    logger.WithModule("web"),
	}
	_ = f.c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1, Delay: 500 * time.Millisecond})
	f.c.SetRequestTimeout(RequestTimeout)
	f.c.OnRequest(func(r *colly.Request) { setBrowserHeaders(r.Headers, f.agents) })
	f.c.OnResponse(func(r *colly.Response) { f.last = r })
	return f
}

func fetchKey(rawURL string) string { return "web_fetch|" + rawURL }

// Forget drops the cached summary of rawURL.
func (f *Fetcher) Forget(rawURL string) bool { return f.cache.Remove(fetchKey(rawURL)) }

// Fetch returns the summary of rawURL, from the cache when a live entry
// exists. The boolean reports a cache hit.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*PageSummary, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, false, errors.New("url must start with http:// or https://")
	}
	if ps, res := f.cache.Get(fetchKey(rawURL)); res.Found {
		return &ps, true, nil
	} else if res.Err != nil && !errors.Is(res.Err, cache.ErrNotFound) {
		f.log.Debug("cache miss", zap.String("url", rawURL), zap.Error(res.Err))
	}

	start := time.Now()
	resp, err := f.visit(ctx, rawURL)
	if err != nil {
		return nil, false, err
	}
	ps, err := summarize(resp.Request.URL.String(), resp.Headers.Get("Content-Type"), resp.Body)
	if err != nil {
		return nil, false, err
	}
	metrics.WebFetchLatency.WithLabelValues("fetch").Observe(time.Since(start).Seconds())
	if !f.cache.Set(fetchKey(rawURL), *ps, cache.WithTTL(f.ttl)) {
		f.log.Warn("page summary not cached", zap.String("url", rawURL))
	}
	return ps, false, nil
}

func (f *Fetcher) visit(ctx context.Context, rawURL string) (*colly.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = nil
	f.c.Context = ctx
	defer func() { f.c.Context = context.Background() }()

	if err := f.c.Visit(rawURL); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.last == nil || len(f.last.Body) == 0 {
		return nil, errors.New("empty response body")
	}
	return f.last, nil
}

// summarize turns a response body into a PageSummary. HTML is stripped of
// non-content elements and converted to markdown; other text passes through.
func summarize(finalURL, contentType string, body []byte) (*PageSummary, error) {
	if len(body) > MaxResponseSize {
		body = append(body[:MaxResponseSize:MaxResponseSize], "... [response trimmed due to size]"...)
	}
	ct := strings.ToLower(contentType)
	if !strings.HasPrefix(ct, "text/") {
		return nil, errors.New("unsupported content type: binary files like images or PDFs are not supported")
	}
	ps := &PageSummary{URL: finalURL}
	if !strings.Contains(ct, "text/html") {
		ps.Text = string(body)
		return ps, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	doc.Find("script, style, noscript, iframe, object, embed, img, video, picture, svg, canvas, audio, source, track, map, area, form, label, input, button, select, textarea, progress, ins, applet").Remove()

	ps.Title = strings.TrimSpace(doc.Find("head > title").First().Text())
	ps.Description = strings.TrimSpace(doc.Find("meta[name=description]").AttrOr("content", ""))
	ps.Links = collectLinks(doc, finalURL)

	plain := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	doc.Find("a, header, footer, aside").Remove()
	html, err := doc.Html()
	if err != nil {
		return nil, err
	}
	if md, err := htmltomarkdown.ConvertString(html); err == nil {
		ps.Text = md
	} else {
		ps.Text = plain
	}
	return ps, nil
}

// collectLinks resolves anchors against base and returns at most maxLinks
// sorted http(s) URLs without fragments.
func collectLinks(doc *goquery.Document, base string) []string {
	baseURL, _ := url.Parse(base)
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		u, err := url.Parse(strings.TrimSpace(s.AttrOr("href", "")))
		if err != nil || u.String() == "" {
			return
		}
		if baseURL != nil {
			u = baseURL.ResolveReference(u)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return
		}
		u.Fragment = ""
		seen[u.String()] = struct{}{}
	})
	links := make([]string, 0, len(seen))
	for l := range seen {
		links = append(links, l)
	}
	sort.Strings(links)
	if len(links) > maxLinks {
		links = links[:maxLinks]
	}
	return links
}
