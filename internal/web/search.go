package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/leonardcser/cachier/internal/cache"
	"github.com/leonardcser/cachier/internal/logger"
	"github.com/leonardcser/cachier/internal/metrics"
)

const (
	ddgEndpoint = "https://html.duckduckgo.com/html/"
	maxResults  = 20
)

// extractDDGURL unwraps a DuckDuckGo redirect link such as
// //duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com&rut=... into the target
// URL. Links that are not redirects are returned as is.
func extractDDGURL(link string) string {
	if strings.HasPrefix(link, "//") {
		link = "https:" + link
	}
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return link
}

type SearchResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

type Searcher struct {
	client   *http.Client
	endpoint string
	cache    *cache.Typed[[]SearchResult]
	ttl      time.Duration
	agents   *Agents
	log      *zap.Logger
}

// NewSearcher returns a Searcher that keeps result lists in c for ttl.
func NewSearcher(c *cache.Cache, ttl time.Duration, agents *Agents) *Searcher {
	if agents == nil {
		agents = NewAgents("")
	}
	return &Searcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		endpoint: ddgEndpoint,
		cache:    cache.NewTyped[[]SearchResult](c),
		ttl:      ttl,
		agents:   agents,
		log:      logger.WithModule("web"),
	}
}

func searchKey(q string) string { return "web_search|" + strings.ToLower(q) }

// Forget drops the cached results of query.
func (s *Searcher) Forget(query string) bool {
	return s.cache.Remove(searchKey(strings.TrimSpace(query)))
}

// Search queries the DuckDuckGo HTML endpoint. Full result lists are cached
// per query, so a hit can serve any limit. The boolean reports a cache hit.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]SearchResult, bool, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, false, fmt.Errorf("empty query")
	}
	if limit <= 0 || limit > maxResults {
		limit = 10
	}
	if cached, res := s.cache.Get(searchKey(q)); res.Found {
		return truncate(cached, limit), true, nil
	}
	start := time.Now()
	values := url.Values{"q": {q}, "kl": {"us-en"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return nil, false, err
	}
	setBrowserHeaders(req.Header, s.agents)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("duckduckgo status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, false, err
	}
	results := parseResults(doc)
	metrics.WebFetchLatency.WithLabelValues("search").Observe(time.Since(start).Seconds())
	if len(results) > 0 {
		if !s.cache.Set(searchKey(q), results, cache.WithTTL(s.ttl)) {
			s.log.Warn("search results not cached", zap.String("query", q))
		}
	}
	return truncate(results, limit), false, nil
}

func truncate(r []SearchResult, limit int) []SearchResult {
	if len(r) > limit {
		return r[:limit]
	}
	return r
}

// parseResults reads up to maxResults entries from a DuckDuckGo HTML page.
// Result blocks are preferred; bare result anchors are the fallback.
func parseResults(doc *goquery.Document) []SearchResult {
	results := make([]SearchResult, 0, maxResults)
	add := func(a, scope *goquery.Selection) {
		title := singleLine(a.Text())
		link := strings.TrimSpace(a.AttrOr("href", ""))
		if title == "" || link == "" {
			return
		}
		desc := singleLine(scope.Find("a.result__snippet").First().Text())
		results = append(results, SearchResult{Title: title, Description: desc, Link: extractDDGURL(link)})
	}
	doc.Find("div.result.web-result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		add(s.Find("a.result__a").First(), s)
		return len(results) < maxResults
	})
	if len(results) == 0 {
		doc.Find("a.result__a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			add(a, a.Parents())
			return len(results) < maxResults
		})
	}
	return results
}

// singleLine trims and collapses internal whitespace/newlines to single spaces.
func singleLine(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}
