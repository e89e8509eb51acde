package main

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/cachier/internal/cache"
	tools "github.com/leonardcser/cachier/internal/tools"
)

func registerCacheTools(s *server.MCPServer, c *cache.Cache) {
	s.AddTool(mcp.NewTool("cache-get",
		mcp.WithDescription(multiline(
			"Reads a value from the local TTL cache",
			"- Returns JSON with found, data, error and remaining_ttl_ms",
			"- Expired entries are reported as \"expired\" and removed",
		)),
		mcp.WithString("key", mcp.Required(), mcp.Description("Logical cache key")),
	), tools.CacheGetHandler(c))

	s.AddTool(mcp.NewTool("cache-set",
		mcp.WithDescription(multiline(
			"Stores a value in the local TTL cache",
			"- The value is given as text and converted according to type",
			"- Without ttl_ms the entry lives for the configured default (one hour unless changed)",
		)),
		mcp.WithString("key", mcp.Required(), mcp.Description("Logical cache key")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Value as text; JSON when type is object")),
		mcp.WithString("type", mcp.Description("Value kind"), mcp.Enum("string", "number", "boolean", "object")),
		mcp.WithNumber("ttl_ms", mcp.Description("Time to live in milliseconds")),
	), tools.CacheSetHandler(c))

	s.AddTool(mcp.NewTool("cache-remove",
		mcp.WithDescription("Removes a key from the local TTL cache; removing a missing key succeeds"),
		mcp.WithString("key", mcp.Required(), mcp.Description("Logical cache key")),
	), tools.CacheRemoveHandler(c))

	s.AddTool(mcp.NewTool("cache-exists",
		mcp.WithDescription("Reports whether a key has a stored value, without checking expiry"),
		mcp.WithString("key", mcp.Required(), mcp.Description("Logical cache key")),
	), tools.CacheExistsHandler(c))
}
