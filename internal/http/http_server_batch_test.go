package http

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestValidateSingleRequest(t *testing.T) {
	srv := &HTTPServer{}

	tests := []struct {
		name string
		msg  map[string]any
		want bool
	}{
		{"request", map[string]any{"jsonrpc": "2.0", "id": 1, "method": "tools/list"}, true},
		{"notification", map[string]any{"jsonrpc": "2.0", "method": "notifications/initialized"}, true},
		{"response with result", map[string]any{"jsonrpc": "2.0", "id": 1, "result": map[string]any{}}, true},
		{"response with error", map[string]any{"jsonrpc": "2.0", "id": 1, "error": map[string]any{}}, true},
		{"wrong version", map[string]any{"jsonrpc": "1.0", "id": 1, "method": "tools/list"}, false},
		{"missing version", map[string]any{"id": 1, "method": "tools/list"}, false},
		{"empty method", map[string]any{"jsonrpc": "2.0", "id": 1, "method": ""}, false},
		{"response without id", map[string]any{"jsonrpc": "2.0", "result": map[string]any{}}, false},
		{"id only", map[string]any{"jsonrpc": "2.0", "id": 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := srv.validateSingleRequest(tt.msg); got != tt.want {
				t.Errorf("validateSingleRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateBatchRequest(t *testing.T) {
	srv := &HTTPServer{}

	tests := []struct {
		name  string
		batch []any
		want  bool
	}{
		{
			name: "valid batch",
			batch: []any{
				map[string]any{"jsonrpc": "2.0", "id": 1, "method": "tools/list"},
				map[string]any{"jsonrpc": "2.0", "method": "notifications/initialized"},
			},
			want: true,
		},
		{name: "empty batch", batch: []any{}, want: false},
		{
			name:  "non-object element",
			batch: []any{map[string]any{"jsonrpc": "2.0", "id": 1, "method": "ping"}, "ping"},
			want:  false,
		},
		{
			name: "one invalid element",
			batch: []any{
				map[string]any{"jsonrpc": "2.0", "id": 1, "method": "ping"},
				map[string]any{"id": 2, "method": "ping"},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := srv.validateBatchRequest(tt.batch); got != tt.want {
				t.Errorf("validateBatchRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsMCPRequest(t *testing.T) {
	srv := &HTTPServer{}

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		want        bool
	}{
		{"single request", http.MethodPost, "application/json", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, true},
		{"charset parameter", http.MethodPost, "application/json; charset=utf-8", `{"jsonrpc":"2.0","method":"ping"}`, true},
		{"batch", http.MethodPost, "application/json", `[{"jsonrpc":"2.0","id":1,"method":"ping"}]`, true},
		{"get request", http.MethodGet, "application/json", "", false},
		{"wrong content type", http.MethodPost, "text/plain", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, false},
		{"invalid json", http.MethodPost, "application/json", `{"jsonrpc":`, false},
		{"scalar payload", http.MethodPost, "application/json", `42`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/mcp", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", tt.contentType)

			if got := srv.isMCPRequest(req); got != tt.want {
				t.Errorf("isMCPRequest() = %v, want %v", got, tt.want)
			}
			if tt.method != http.MethodPost || tt.contentType != "application/json" {
				return
			}
			restored, err := io.ReadAll(req.Body)
			if err != nil {
				t.Fatalf("reading restored body: %v", err)
			}
			if string(restored) != tt.body {
				t.Errorf("body not restored: got %q, want %q", restored, tt.body)
			}
		})
	}
}
