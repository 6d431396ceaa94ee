package security

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mcp-testmo/testmo-mcp-server/internal/utils"
)

// Context keys for passing data through request context
const (
	// TokenContextKey is used to store the Testmo API token in request context
	TokenContextKey utils.ContextKey = "testmo_api_token" //nolint:gosec // This is a context key, not a credential

	// ProjectHeader carries the default project id in HTTP mode
	ProjectHeader = "X-Testmo-Project"

	minTokenLength = 16
)

// HTTPTokenMiddleware returns an HTTP middleware function that extracts Testmo API tokens
// and the default project from request headers
func HTTPTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if token := extractTokenFromRequest(r); token != "" {
			ctx = WithTokenInContext(ctx, token)
			slog.Debug("Extracted Testmo API token from HTTP request",
				"source", "http_header",
				"method", r.Method,
				"path", r.URL.Path)
		} else {
			slog.Debug("No Testmo API token found in HTTP request headers",
				"method", r.Method,
				"path", r.URL.Path,
				"checked_headers", []string{"Authorization"})
		}

		if project := r.Header.Get(ProjectHeader); project != "" {
			ctx = utils.WithProjectInContext(ctx, project)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractTokenFromRequest extracts the API token from the Authorization Bearer header
func extractTokenFromRequest(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	token := strings.TrimSpace(parts[1])
	if !ValidateToken(token) {
		slog.Debug("Invalid Testmo API token rejected",
			"source", "Authorization Bearer",
			"validation", "failed")
		return ""
	}
	return token
}

// ValidateToken performs a basic sanity check on a Testmo API token
func ValidateToken(token string) bool {
	token = strings.TrimSpace(token)
	if len(token) < minTokenLength {
		return false
	}
	return !strings.ContainsAny(token, " \t\r\n")
}

// WithTokenInContext adds the Testmo API token to request context
func WithTokenInContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, TokenContextKey, token)
}

// GetTokenFromContext extracts the Testmo API token from request context
func GetTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenContextKey).(string)
	return token, ok && token != ""
}
