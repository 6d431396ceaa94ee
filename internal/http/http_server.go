package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"runtime"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/cors"

	"github.com/mcp-testmo/testmo-mcp-server/internal/fieldmap"
	"github.com/mcp-testmo/testmo-mcp-server/internal/mcp_handlers"
	"github.com/mcp-testmo/testmo-mcp-server/internal/middleware"
	"github.com/mcp-testmo/testmo-mcp-server/internal/security"
	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
)

const (
	mcpEndpoint   = "/mcp"
	maxBodyBytes  = 10 << 20
	jsonRPCVer    = "2.0"
	serverType    = "http_mcp_server"
	invalidRPCMsg = "Invalid JSON-RPC request"
)

// HTTPServerConfig holds configuration for the HTTP-enabled MCP server
type HTTPServerConfig struct {
	Version string
	HostURL string
	// FallbackToken is used for outbound calls when a request carries no bearer token
	FallbackToken     string
	DefaultProjectID  int64
	MaxWorkers        int
	ConnectionTimeout time.Duration
	CORSOrigins       []string
	FieldMappings     fieldmap.Mappings
	// ClientOptions tune the Testmo client (pacing, rate limit). ConnectionTimeout,
	// when set, overrides any timeout given here.
	ClientOptions []testmo.Option
}

// HTTPServer serves the MCP streamable HTTP transport behind a chi router
type HTTPServer struct {
	Router     chi.Router
	mcpServer  *server.MCPServer
	streamable *server.StreamableHTTPServer
	client     *testmo.Client
	config     HTTPServerConfig
}

// HTTPServerInfo describes the running server on /info
type HTTPServerInfo struct {
	Type             string `json:"type"`
	Version          string `json:"version"`
	Endpoint         string `json:"endpoint"`
	MaxWorkers       int    `json:"max_workers"`
	DefaultProjectID int64  `json:"default_project_id,omitempty"`
}

func NewHTTPServer(config HTTPServerConfig) (*HTTPServer, error) {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU() * 2
	}

	opts := append(slices.Clone(config.ClientOptions),
		testmo.WithTimeout(config.ConnectionTimeout),
		// incoming Authorization -> context -> outbound Testmo calls
		testmo.WithRequestMiddleware(middleware.RequestContextMiddleware),
	)
	client, err := testmo.NewClient(config.HostURL, config.FallbackToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Testmo client: %w", err)
	}

	mcpServer, err := mcp_handlers.NewServer(config.Version, client, mcp_handlers.Options{
		DefaultProjectID: config.DefaultProjectID,
		FieldMappings:    config.FieldMappings,
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to create MCP server: %w", err)
	}

	h := &HTTPServer{
		mcpServer:  mcpServer,
		streamable: server.NewStreamableHTTPServer(mcpServer),
		client:     client,
		config:     config,
	}
	h.Router = h.routes()

	slog.Info("HTTP MCP server created",
		"endpoint", mcpEndpoint,
		"max_workers", config.MaxWorkers,
		"cors_origins", config.CORSOrigins)
	return h, nil
}

func (h *HTTPServer) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if len(h.config.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: h.config.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"*"},
			ExposedHeaders: []string{server.HeaderKeySessionID},
		}).Handler)
	}

	r.Get("/health", h.handleHealth)
	r.Get("/info", h.handleInfo)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Throttle(h.config.MaxWorkers))
		r.Use(security.HTTPTokenMiddleware)
		r.Use(h.validateMCPPayload)
		r.Handle(mcpEndpoint, h.streamable)
	})
	return r
}

// Stop releases the Testmo client
func (h *HTTPServer) Stop() error {
	return h.client.Close()
}

// Info returns the description served on /info
func (h *HTTPServer) Info() HTTPServerInfo {
	return HTTPServerInfo{
		Type:             serverType,
		Version:          h.config.Version,
		Endpoint:         mcpEndpoint,
		MaxWorkers:       h.config.MaxWorkers,
		DefaultProjectID: h.config.DefaultProjectID,
	}
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPServer) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Info())
}

// validateMCPPayload rejects POST bodies that are not JSON-RPC 2.0 messages
func (h *HTTPServer) validateMCPPayload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && !h.isMCPRequest(r) {
			slog.Debug("Rejected non JSON-RPC request", "path", r.URL.Path, "remote", r.RemoteAddr)
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"jsonrpc": jsonRPCVer,
				"id":      nil,
				"error":   map[string]any{"code": -32600, "message": invalidRPCMsg},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isMCPRequest reports whether r is a POST carrying a JSON-RPC message or batch.
// The body is restored for the next handler.
func (h *HTTPServer) isMCPRequest(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return false
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return false
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	switch v := payload.(type) {
	case map[string]any:
		return h.validateSingleRequest(v)
	case []any:
		return h.validateBatchRequest(v)
	default:
		return false
	}
}

// validateSingleRequest accepts requests and notifications (method set) and
// responses to server-initiated requests (id with result or error)
func (h *HTTPServer) validateSingleRequest(msg map[string]any) bool {
	if msg["jsonrpc"] != jsonRPCVer {
		return false
	}
	if method, ok := msg["method"].(string); ok {
		return method != ""
	}
	if _, hasID := msg["id"]; !hasID {
		return false
	}
	_, hasResult := msg["result"]
	_, hasError := msg["error"]
	return hasResult || hasError
}

func (h *HTTPServer) validateBatchRequest(batch []any) bool {
	if len(batch) == 0 {
		return false
	}
	for _, item := range batch {
		msg, ok := item.(map[string]any)
		if !ok || !h.validateSingleRequest(msg) {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
