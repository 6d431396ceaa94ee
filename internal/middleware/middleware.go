package middleware

import (
	"log/slog"

	"github.com/google/uuid"
	"resty.dev/v3"

	"github.com/mcp-testmo/testmo-mcp-server/internal/security"
)

// RequestIDHeader carries a per-call id on every request sent to Testmo.
const RequestIDHeader = "X-Request-Id"

// RequestContextMiddleware prepares outbound Testmo requests from the request context.
// In HTTP mode the token extracted from the incoming request replaces the configured one.
func RequestContextMiddleware(_ *resty.Client, r *resty.Request) error {
	if token, ok := security.GetTokenFromContext(r.Context()); ok {
		r.SetAuthToken(token)
	}

	requestID := uuid.NewString()
	r.SetHeader(RequestIDHeader, requestID)

	slog.Debug("Sending Testmo API request",
		"method", r.Method,
		"url", r.URL,
		"request_id", requestID)
	return nil
}
