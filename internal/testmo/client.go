package testmo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"resty.dev/v3"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	MaxCasesPerRequest    = 100

	apiPrefix = "/api/v1"
)

// Client talks to the Testmo REST API. It is safe for concurrent use.
type Client struct {
	rc      *resty.Client
	baseURL string
	pacer   Pacer
}

type Option func(*Client)

// WithPacer replaces the delay used between consecutive calls of a paginated or batched loop.
func WithPacer(p Pacer) Option {
	return func(c *Client) {
		if p != nil {
			c.pacer = p
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.rc.SetTimeout(d)
		}
	}
}

// WithRateLimit makes every outbound request wait for a token from l.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *Client) {
		if l == nil {
			return
		}
		c.rc.AddRequestMiddleware(func(_ *resty.Client, r *resty.Request) error {
			return l.Wait(r.Context())
		})
	}
}

// WithRequestMiddleware registers m to run before each request is sent.
func WithRequestMiddleware(m resty.RequestMiddleware) Option {
	return func(c *Client) {
		c.rc.AddRequestMiddleware(m)
	}
}

// NewClient creates a client for the Testmo instance at baseURL (e.g. https://acme.testmo.net).
// token may be empty when every request carries its own credentials.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("testmo base URL is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid testmo base URL %q: %w", baseURL, err)
	}

	rc := resty.New().
		SetBaseURL(base+apiPrefix).
		SetHeader("Accept", "application/json").
		SetTimeout(DefaultRequestTimeout)
	if token != "" {
		rc.SetAuthToken(token)
	}

	c := &Client{
		rc:      rc,
		baseURL: base,
		pacer:   FixedDelay(RateLimitDelay),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Close() error {
	return c.rc.Close()
}

// BaseURL returns the instance URL without the API prefix.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Pacer returns the delay used between consecutive calls of a loop.
func (c *Client) Pacer() Pacer {
	return c.pacer
}

// WebURL builds the browser URL of a resource, e.g. <base>/repositories/1?group_id=5.
func (c *Client) WebURL(projectID int64, resourceType string, resourceID int64) string {
	u := fmt.Sprintf("%s/%s/%d", c.baseURL, resourceType, projectID)
	if resourceID != 0 {
		u += "?group_id=" + strconv.FormatInt(resourceID, 10)
	}
	return u
}

// execute sends the request and returns the raw response body.
// 204 responses are reported as {"success":true}.
func (c *Client) execute(
	ctx context.Context,
	method, path string,
	prepare func(*resty.Request),
) ([]byte, error) {
	req := c.rc.R().SetContext(ctx)
	if prepare != nil {
		prepare(req)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, transportError(err)
	}
	if resp.StatusCode() == http.StatusNoContent {
		return []byte(`{"success":true}`), nil
	}
	if resp.IsError() {
		return nil, newStatusError(resp.StatusCode(), resp.Bytes())
	}
	body := resp.Bytes()
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s %s: response is not valid JSON", method, path)
	}
	return body, nil
}

func transportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &APIError{StatusCode: http.StatusRequestTimeout, Message: "Request timed out"}
	}
	return &APIError{StatusCode: 0, Message: fmt.Sprintf("Connection error: %v", err)}
}

func decodePage[T any](body []byte) (*Page[T], error) {
	var p Page[T]
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}
	return &p, nil
}

// unwrapResult returns the "result" member of an object response, or the body itself.
func unwrapResult(body []byte) json.RawMessage {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err == nil {
		if r, ok := envelope["result"]; ok {
			return r
		}
	}
	return json.RawMessage(body)
}

func fmtID(v int64) string {
	return strconv.FormatInt(v, 10)
}

func pageQuery(page, perPage int) map[string]string {
	if page < FirstPage {
		page = FirstPage
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return map[string]string{
		"page":     strconv.Itoa(page),
		"per_page": strconv.Itoa(perPage),
	}
}
