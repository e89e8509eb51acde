package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/cachier/internal/cache"
)

type handlerFunc = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// getReply is the JSON shape returned by the "cache-get" tool.
type getReply struct {
	Found          bool   `json:"found"`
	Data           any    `json:"data"`
	Error          string `json:"error,omitempty"`
	RemainingTTLMs int64  `json:"remaining_ttl_ms"`
}

// CacheGetHandler returns the MCP tool handler for the "cache-get" tool.
func CacheGetHandler(c *cache.Cache) handlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatResult(c.Get(key))), nil
	}
}

func formatResult(res cache.Result) string {
	reply := getReply{Found: res.Found, Data: res.Data, RemainingTTLMs: -1}
	if res.Err != nil {
		reply.Error = res.Err.Error()
	}
	if res.Found {
		reply.RemainingTTLMs = res.RemainingTTL.Milliseconds()
	}
	b, err := json.Marshal(reply)
	if err != nil {
		// NaN numbers have no JSON form.
		reply.Data = fmt.Sprint(res.Data)
		b, _ = json.Marshal(reply)
	}
	return string(b)
}

// CacheSetHandler returns the MCP tool handler for the "cache-set" tool.
func CacheSetHandler(c *cache.Cache) handlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		raw, err := req.RequireString("value")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		value, err := parseValue(req.GetString("type", "string"), raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ttl := time.Duration(req.GetFloat("ttl_ms", 0)) * time.Millisecond
		if err := c.Put(key, value, cache.WithTTL(ttl)); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("stored"), nil
	}
}

// parseValue converts tool text input into a value of the requested kind.
func parseValue(kind, raw string) (any, error) {
	switch kind {
	case "string", "":
		return raw, nil
	case "number":
		return strconv.ParseFloat(raw, 64)
	case "boolean":
		return strconv.ParseBool(raw)
	case "object":
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("value is not valid JSON: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported type %q", kind)
	}
}

// CacheRemoveHandler returns the MCP tool handler for the "cache-remove" tool.
func CacheRemoveHandler(c *cache.Cache) handlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := c.Delete(key); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("removed"), nil
	}
}

// CacheExistsHandler returns the MCP tool handler for the "cache-exists" tool.
func CacheExistsHandler(c *cache.Cache) handlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(strconv.FormatBool(c.Exists(key))), nil
	}
}
