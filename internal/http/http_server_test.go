package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
)

const requestToken = "per-request-token-0123456789"

func newTestServer(t *testing.T, hostURL string, origins ...string) *HTTPServer {
	t.Helper()
	srv, err := NewHTTPServer(HTTPServerConfig{
		Version:           "1.0.0",
		HostURL:           hostURL,
		ConnectionTimeout: 5 * time.Second,
		MaxWorkers:        4,
		CORSOrigins:       origins,
		ClientOptions:     []testmo.Option{testmo.WithPacer(testmo.FixedDelay(0))},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Stop() })
	return srv
}

func TestNewHTTPServer(t *testing.T) {
	t.Run("requires host url", func(t *testing.T) {
		_, err := NewHTTPServer(HTTPServerConfig{Version: "1.0.0"})
		require.Error(t, err)
	})

	t.Run("max workers defaults to cpu based value", func(t *testing.T) {
		srv, err := NewHTTPServer(HTTPServerConfig{Version: "1.0.0", HostURL: "https://acme.testmo.net"})
		require.NoError(t, err)
		defer func() { _ = srv.Stop() }()
		assert.Positive(t, srv.Info().MaxWorkers)
	})
}

func TestHealthAndInfo(t *testing.T) {
	srv := newTestServer(t, "https://acme.testmo.net")

	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info HTTPServerInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, HTTPServerInfo{
		Type:       "http_mcp_server",
		Version:    "1.0.0",
		Endpoint:   "/mcp",
		MaxWorkers: 4,
	}, info)
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, "https://acme.testmo.net", "https://app.example.com")

	req := httptest.NewRequest(http.MethodOptions, "/mcp", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestInvalidPayloadRejected(t *testing.T) {
	srv := newTestServer(t, "https://acme.testmo.net")

	for _, body := range []string{`{"foo":"bar"}`, `[]`, `not json`, `{"jsonrpc":"1.0","method":"ping"}`} {
		req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.Router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "2.0", resp["jsonrpc"])
		assert.Contains(t, resp, "error")
	}
}

func TestRequestTokenReachesTestmo(t *testing.T) {
	var mu sync.Mutex
	var authHeaders []string
	testmoAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"prev_page":null,"next_page":null,"last_page":1,` +
			`"per_page":100,"result":[{"id":1,"name":"Web"}]}`))
	}))
	defer testmoAPI.Close()

	srv := newTestServer(t, testmoAPI.URL)
	mcpSrv := httptest.NewServer(srv.Router)
	defer mcpSrv.Close()

	post := func(sessionID, body string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, mcpSrv.URL+"/mcp", strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+requestToken)
		if sessionID != "" {
			req.Header.Set(server.HeaderKeySessionID, sessionID)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	resp := post("", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{`+
		`"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sessionID := resp.Header.Get(server.HeaderKeySessionID)
	require.NotEmpty(t, sessionID)

	resp = post(sessionID, `{"jsonrpc":"2.0","id":2,"method":"tools/call",`+
		`"params":{"name":"testmo_list_projects","arguments":{}}}`)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rpc struct {
		Result struct {
			IsError bool `json:"isError"`
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpc))
	assert.False(t, rpc.Result.IsError)
	require.Len(t, rpc.Result.Content, 1)
	assert.Contains(t, rpc.Result.Content[0].Text, `"Web"`)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, authHeaders, 1)
	assert.Equal(t, "Bearer "+requestToken, authHeaders[0])
}
