package web

import (
	"strings"
	"sync/atomic"
)

var defaultAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:130.0) Gecko/20100101 Firefox/130.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36 Edg/129.0.0.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_6_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Mobile Safari/537.36",
}

// Agents hands out User-Agent headers in round-robin order.
type Agents struct {
	list []string
	n    atomic.Uint64
}

// NewAgents returns a pool that always answers fixed when it is set, and
// rotates through a built-in list otherwise.
func NewAgents(fixed string) *Agents {
	if fixed = strings.TrimSpace(fixed); fixed != "" {
		return &Agents{list: []string{fixed}}
	}
	return &Agents{list: defaultAgents}
}

func (a *Agents) Next() string {
	if a == nil || len(a.list) == 0 {
		return defaultAgents[0]
	}
	i := a.n.Add(1) - 1
	return a.list[i%uint64(len(a.list))]
}

func setBrowserHeaders(h interface{ Set(string, string) }, agents *Agents) {
	h.Set("User-Agent", agents.Next())
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
}
