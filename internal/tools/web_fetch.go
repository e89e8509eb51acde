package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	web "github.com/leonardcser/cachier/internal/web"
)

// WebFetchHandler returns the MCP tool handler for the "web-fetch" tool.
// Setting "refresh" evicts the cached summary before fetching.
func WebFetchHandler(fetcher *web.Fetcher) handlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if req.GetBool("refresh", false) {
			fetcher.Forget(url)
		}
		ps, cached, err := fetcher.Fetch(ctx, url)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatPageSummary(ps, cached)), nil
	}
}

func formatPageSummary(ps *web.PageSummary, cached bool) string {
	var sb strings.Builder
	if ps.Title != "" {
		sb.WriteString("# " + ps.Title + "\n\n")
	}
	sb.WriteString("Source: " + ps.URL)
	if cached {
		sb.WriteString(" (cached)")
	}
	sb.WriteString("\n\n")
	if ps.Description != "" {
		sb.WriteString(ps.Description + "\n\n")
	}
	sb.WriteString(strings.TrimSpace(ps.Text))
	if len(ps.Links) > 0 {
		sb.WriteString("\n\n## Links\n")
		for _, l := range ps.Links {
			sb.WriteString("- " + l + "\n")
		}
	}
	return sb.String()
}
