package mcp_handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/mcptest"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
)

const testProjectID = 1

// fakeTestmo serves a project with the folder forest
//
//	Root A(1) -> Child A1(2) -> Grandchild A1a(4)
//	Root A(1) -> Child A2(3)
//	Root B(5) -> Child B1(6)
//
// and a few cases in folders 1, 2, 3 and 6.
type fakeTestmo struct {
	*http.ServeMux
	caseCalls   atomic.Int32
	folderCalls atomic.Int32
}

func newFakeTestmo(t *testing.T) *fakeTestmo {
	t.Helper()
	f := &fakeTestmo{ServeMux: http.NewServeMux()}

	folders := []map[string]any{
		{"id": 1, "name": "Root A", "parent_id": nil},
		{"id": 2, "name": "Child A1", "parent_id": 1},
		{"id": 3, "name": "Child A2", "parent_id": 1},
		{"id": 4, "name": "Grandchild A1a", "parent_id": 2},
		{"id": 5, "name": "Root B", "parent_id": nil},
		{"id": 6, "name": "Child B1", "parent_id": 5},
	}
	cases := map[string][]map[string]any{
		"1": {{"id": 10, "name": "Login", "folder_id": 1, "custom_priority": 1, "tags": []any{"regression", "smoke"}}},
		"2": {{"id": 20, "name": "Logout", "folder_id": 2, "custom_priority": 2, "tags": []any{"smoke"},
			"issues": []any{map[string]any{"display_id": "PROJ-7"}}}},
		"3": {{"id": 30, "name": "Signup", "folder_id": 3, "custom_priority": 1, "tags": []any{"regression", "e2e"}}},
		"6": {{"id": 60, "name": "Billing", "folder_id": 6, "custom_priority": 3, "tags": []any{"e2e"}}},
	}

	f.HandleFunc("GET /api/v1/projects/{project_id}/folders", func(w http.ResponseWriter, r *http.Request) {
		f.folderCalls.Add(1)
		writeJSON(w, http.StatusOK, page(folders))
	})
	f.HandleFunc("GET /api/v1/projects/{project_id}/cases", func(w http.ResponseWriter, r *http.Request) {
		f.caseCalls.Add(1)
		folderID := r.URL.Query().Get("folder_id")
		if folderID != "" {
			writeJSON(w, http.StatusOK, page(cases[folderID]))
			return
		}
		var all []map[string]any
		for _, id := range []string{"1", "2", "3", "6"} {
			all = append(all, cases[id]...)
		}
		writeJSON(w, http.StatusOK, page(all))
	})
	return f
}

func page(items []map[string]any) map[string]any {
	if items == nil {
		items = []map[string]any{}
	}
	return map[string]any{
		"page": 1, "prev_page": nil, "next_page": nil, "last_page": 1,
		"per_page": 100, "result": items,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newTestClient points a client without inter-call delays at handler.
func newTestClient(t *testing.T, handler http.Handler) *testmo.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := testmo.NewClient(srv.URL, "test-token-0123456789", testmo.WithPacer(testmo.FixedDelay(0)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// callTool runs a single tool through an in-process MCP server.
func callTool(
	t *testing.T,
	build func() (mcp.Tool, server.ToolHandlerFunc),
	args map[string]any,
) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()

	tool, handler := build()
	srv := mcptest.NewUnstartedServer(t)
	srv.AddTool(tool, handler)
	require.NoError(t, srv.Start(ctx))
	defer srv.Close()

	var req mcp.CallToolRequest
	req.Params.Name = tool.Name
	req.Params.Arguments = args
	result, err := srv.Client().CallTool(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	var textContent mcp.TextContent
	require.IsType(t, textContent, result.Content[0])
	return result.Content[0].(mcp.TextContent).Text
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	return out
}

func caseIDs(t *testing.T, doc map[string]any) []int {
	t.Helper()
	raw, ok := doc["cases"].([]any)
	require.True(t, ok, "cases must be a list")
	ids := make([]int, 0, len(raw))
	for _, c := range raw {
		ids = append(ids, int(c.(map[string]any)["id"].(float64)))
	}
	return ids
}
