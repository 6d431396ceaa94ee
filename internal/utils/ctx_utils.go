package utils

import (
	"context"
	"strconv"
	"strings"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const (
	// ProjectIDContextKey is used to store the default Testmo project id in request context
	ProjectIDContextKey ContextKey = "testmo_project_id"
)

// WithProjectInContext adds the default project id to request context
func WithProjectInContext(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, ProjectIDContextKey, strings.TrimSpace(projectID))
}

// GetProjectFromContext extracts the default project id from request context
func GetProjectFromContext(ctx context.Context) (int64, bool) {
	raw, ok := ctx.Value(ProjectIDContextKey).(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
