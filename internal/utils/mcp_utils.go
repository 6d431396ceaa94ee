package utils

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
)

// NewProjectParameter returns the project_id parameter, defaulting to the configured project
func NewProjectParameter(defaultProjectID int64) mcp.ToolOption {
	opts := []mcp.PropertyOption{
		mcp.Description("The project ID"),
		mcp.Required(),
	}
	if defaultProjectID > 0 {
		opts = append(opts, mcp.DefaultNumber(float64(defaultProjectID)))
	}
	return mcp.WithNumber("project_id", opts...)
}

// ExtractProjectID resolves the project id from the request, then from the request context
// (HTTP header in HTTP mode), then from the configured default
func ExtractProjectID(ctx context.Context, rq mcp.CallToolRequest, defaultProjectID int64) (int64, error) {
	if id, ok, err := OptionalID(rq, "project_id"); err != nil {
		return 0, err
	} else if ok {
		return id, nil
	}
	if id, ok := GetProjectFromContext(ctx); ok {
		return id, nil
	}
	if defaultProjectID > 0 {
		return defaultProjectID, nil
	}
	return 0, fmt.Errorf("required argument %q not found", "project_id")
}

// SetPaginationOptions returns the standard pagination parameters for listing tools
func SetPaginationOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("page",
			mcp.DefaultNumber(FirstPage),
			mcp.Description("Page number (default: 1)"),
		),
		mcp.WithNumber("per_page",
			mcp.DefaultNumber(DefaultPageSize),
			mcp.Description("Results per page (default: 100, max: 100). Valid values: 25, 50, 100"),
		),
		ExpandsOption(),
	}
}

// ExpandsOption returns the expands parameter shared by listing and detail tools
func ExpandsOption() mcp.ToolOption {
	return mcp.WithArray("expands",
		mcp.Description("Related entities to include"),
		mcp.Items(map[string]any{"type": "string"}),
	)
}

// PageOptions returns the requested page and page size, falling back to the defaults
// for out-of-range values
func PageOptions(rq mcp.CallToolRequest) (page, perPage int) {
	page = rq.GetInt("page", FirstPage)
	if page < FirstPage {
		page = FirstPage
	}
	perPage = rq.GetInt("per_page", DefaultPageSize)
	if perPage < 1 || perPage > MaxPageSize {
		perPage = DefaultPageSize
	}
	return page, perPage
}

// ApplyPaginationOptions copies page, per_page and expands from the request into q
func ApplyPaginationOptions(q url.Values, rq mcp.CallToolRequest) {
	page, perPage := PageOptions(rq)
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	AddListParam(q, rq, "expands")
}

// AddIntParam copies an integer argument into q when present
func AddIntParam(q url.Values, rq mcp.CallToolRequest, key string) error {
	id, ok, err := OptionalID(rq, key)
	if err != nil {
		return err
	}
	if ok {
		q.Set(key, strconv.FormatInt(id, 10))
	}
	return nil
}

// AddBoolParam copies a boolean argument into q as 1 or 0 when present
func AddBoolParam(q url.Values, rq mcp.CallToolRequest, key string) {
	if _, ok := rq.GetArguments()[key]; !ok {
		return
	}
	if rq.GetBool(key, false) {
		q.Set(key, "1")
	} else {
		q.Set(key, "0")
	}
}

// AddStringParam copies a non-empty string argument into q
func AddStringParam(q url.Values, rq mcp.CallToolRequest, key string) {
	if v := strings.TrimSpace(rq.GetString(key, "")); v != "" {
		q.Set(key, v)
	}
}

// AddListParam copies an array argument into q as a comma-separated value
func AddListParam(q url.Values, rq mcp.CallToolRequest, key string) {
	raw, ok := rq.GetArguments()[key].([]any)
	if !ok || len(raw) == 0 {
		return
	}
	parts := make([]string, 0, len(raw))
	for _, item := range raw {
		parts = append(parts, fmt.Sprint(item))
	}
	q.Set(key, strings.Join(parts, ","))
}

// RequireID returns a required integer id argument
func RequireID(rq mcp.CallToolRequest, key string) (int64, error) {
	id, ok, err := OptionalID(rq, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("required argument %q not found", key)
	}
	return id, nil
}

// OptionalID returns an integer id argument and whether it was supplied
func OptionalID(rq mcp.CallToolRequest, key string) (int64, bool, error) {
	raw, ok := rq.GetArguments()[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	if s, isString := raw.(string); isString {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("argument %q is not an integer", key)
		}
		return id, true, nil
	}
	id, isInt := testmo.IntValue(raw)
	if !isInt {
		return 0, false, fmt.Errorf("argument %q is not an integer", key)
	}
	return id, true, nil
}

// RequireIDList returns a required array of integer ids
func RequireIDList(rq mcp.CallToolRequest, key string) ([]int64, error) {
	raw, ok := rq.GetArguments()[key].([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be an array of integers", key)
	}
	ids := make([]int64, 0, len(raw))
	for i, item := range raw {
		id, isInt := testmo.IntValue(item)
		if !isInt {
			return nil, fmt.Errorf("item %d in argument %q is not an integer", i, key)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// RequireObject returns a required JSON object argument
func RequireObject(rq mcp.CallToolRequest, key string) (map[string]any, error) {
	obj, ok := rq.GetArguments()[key].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be an object", key)
	}
	return obj, nil
}

// RequireObjectList returns a required array of JSON objects
func RequireObjectList(rq mcp.CallToolRequest, key string) ([]map[string]any, error) {
	raw, ok := rq.GetArguments()[key].([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be an array of objects", key)
	}
	objs := make([]map[string]any, 0, len(raw))
	for i, item := range raw {
		obj, isObj := item.(map[string]any)
		if !isObj {
			return nil, fmt.Errorf("item %d in argument %q is not an object", i, key)
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// WithToolLogging wraps a tool handler to log every call and its duration
func WithToolLogging(toolName string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := handler(ctx, request)

		attrs := []any{"tool", toolName, "duration", time.Since(start)}
		switch {
		case err != nil:
			slog.Error("tool call failed", append(attrs, "error", err)...)
		case result != nil && result.IsError:
			slog.Warn("tool call returned an error result", attrs...)
		default:
			slog.Debug("tool call completed", attrs...)
		}
		return result, err
	}
}
