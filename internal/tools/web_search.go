package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	web "github.com/leonardcser/cachier/internal/web"
)

// WebSearchHandler returns the MCP tool handler for the "web-search" tool.
func WebSearchHandler(searcher *web.Searcher) handlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if req.GetBool("refresh", false) {
			searcher.Forget(q)
		}
		results, cached, err := searcher.Search(ctx, q, req.GetInt("limit", 10))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatSearchResults(results, cached)), nil
	}
}

// formatSearchResults renders a numbered list, one URL line per result.
func formatSearchResults(results []web.SearchResult, cached bool) string {
	if len(results) == 0 {
		return "No results."
	}
	lines := make([]string, 0, len(results)+1)
	for i, r := range results {
		entry := fmt.Sprintf("%d. %s\n   %s", i+1, r.Title, r.Link)
		if r.Description != "" {
			entry += "\n   " + r.Description
		}
		lines = append(lines, entry)
	}
	if cached {
		lines = append(lines, "(served from cache)")
	}
	return strings.Join(lines, "\n\n")
}
