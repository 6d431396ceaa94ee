package testmo

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrTooManyCases is returned by CreateCases when the payload exceeds MaxCasesPerRequest.
var ErrTooManyCases = errors.New("too many cases for a single request")

// APIError describes a failed call to the Testmo API.
// StatusCode is 408 for timeouts and 0 when the server could not be reached.
type APIError struct {
	StatusCode int
	Message    string
	Details    any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Testmo API Error %d: %s", e.StatusCode, e.Message)
}

func newStatusError(status int, body []byte) *APIError {
	return &APIError{
		StatusCode: status,
		Message:    "Request failed: " + http.StatusText(status),
		Details:    errorDetails(body),
	}
}

// errorDetails returns the decoded JSON error body, or the raw text when it is not JSON.
func errorDetails(body []byte) any {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}
	var details any
	if err := json.Unmarshal(body, &details); err != nil {
		return trimmed
	}
	return details
}
