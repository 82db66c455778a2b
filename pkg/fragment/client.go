package fragment

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/homectl/internal/errors"
)

// RequestIDHeader carries the per-interaction request ID.
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// Doer performs HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request is one call to the fragment service.
type Request struct {
	// Method is the HTTP method.
	Method string

	// URL is absolute or relative to the client's base URL.
	URL string

	// Header holds extra request headers.
	Header http.Header

	// Body is an optional request body.
	Body io.Reader
}

// Response is a successful (2xx) response.
type Response struct {
	Status    int
	Header    http.Header
	Body      []byte
	RequestID string
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   []byte
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	target := strings.TrimSpace(e.Method + " " + e.URL)
	if target == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("%s: status %d", target, e.Status)
}

// ResponseBody returns the body the server sent with the failure.
func (e *StatusError) ResponseBody() []byte {
	return e.Body
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		c.doer = d
	}
}

// WithTimeout bounds each request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// Client calls the fragment service.
type Client struct {
	base    *url.URL
	doer    Doer
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Client resolving relative URLs against baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.New("E130").WithDetailf("base URL %q must be absolute", baseURL)
	}
	c := &Client{
		base:   base,
		doer:   http.DefaultClient,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Resolve returns ref resolved against the base URL.
func (c *Client) Resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", errors.New("E120").WithDetailf("invalid URL %q", ref).Wrap(err)
	}
	return c.base.ResolveReference(u).String(), nil
}

// Do performs the request. Transport failures return E120, non-2xx
// responses return E121 wrapping a *StatusError.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	target, err := c.Resolve(r.URL)
	if err != nil {
		return nil, err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, errors.New("E120").WithDetailf("%s %s", r.Method, target).Wrap(err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html, application/json")
	}
	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		req.Header.Set(RequestIDHeader, requestID)
	}

	start := time.Now()
	resp, err := c.doer.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "fragment request failed",
			"method", r.Method, "url", target, "request_id", requestID, "error", err)
		return nil, errors.New("E120").WithDetailf("%s %s", r.Method, target).Wrap(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.New("E120").WithDetailf("%s %s: reading body", r.Method, target).Wrap(err)
	}

	c.logger.DebugContext(ctx, "fragment request",
		"method", r.Method,
		"url", target,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.New("E121").Wrap(&StatusError{
			Method: r.Method,
			URL:    target,
			Status: resp.StatusCode,
			Body:   body,
		})
	}

	return &Response{
		Status:    resp.StatusCode,
		Header:    resp.Header,
		Body:      body,
		RequestID: requestID,
	}, nil
}

// Get performs a GET.
func (c *Client) Get(ctx context.Context, ref string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: ref})
}

// Patch performs a PATCH with no body.
func (c *Client) Patch(ctx context.Context, ref string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPatch, URL: ref})
}

// Post performs a POST with no body.
func (c *Client) Post(ctx context.Context, ref string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, URL: ref})
}

// Substitute replaces the first occurrence of placeholder in template with
// value.
func Substitute(template, placeholder, value string) string {
	return strings.Replace(template, placeholder, value, 1)
}

// IsCanceled reports whether err stems from a canceled context.
func IsCanceled(err error) bool {
	return stderrors.Is(err, context.Canceled)
}

// StatusOf returns the HTTP status of a failed request, or 0.
func StatusOf(err error) int {
	var se *StatusError
	if stderrors.As(err, &se) {
		return se.Status
	}
	return 0
}
