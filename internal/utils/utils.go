package utils

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
)

const (
	FirstPage       = testmo.FirstPage      // Default starting page for pagination
	DefaultPageSize = testmo.DefaultPerPage // Default number of elements per page
	MaxPageSize     = 100                   // Largest page the Testmo API serves
)

// FormatError renders err as the JSON error document returned by tools.
// Testmo API errors carry their status code and response details.
func FormatError(err error) string {
	payload := map[string]any{"error": true, "message": err.Error()}

	var apiErr *testmo.APIError
	if errors.As(err, &apiErr) {
		payload = map[string]any{
			"error":       true,
			"status_code": apiErr.StatusCode,
			"message":     apiErr.Message,
			"details":     apiErr.Details,
		}
	}

	data, mErr := json.MarshalIndent(payload, "", "  ")
	if mErr != nil {
		return fmt.Sprintf(`{"error": true, "message": %q}`, err.Error())
	}
	return string(data)
}

// ToolError converts err into an error tool result.
func ToolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(FormatError(err))
}

// FormatResult renders v as indented JSON text.
func FormatResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
