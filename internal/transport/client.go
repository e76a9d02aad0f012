// Package transport is the HTTP capability providers talk through:
// send a request, get status and body back. Non-2xx responses are not
// errors at this level; the caller decides what a status means.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/oauthlink/internal/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// Response is what came back from the provider.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// Client sends requests to provider endpoints.
type Client interface {
	Get(ctx context.Context, rawURL string, headers http.Header) (*Response, error)
	Post(ctx context.Context, rawURL string, headers http.Header, form url.Values) (*Response, error)
}

// Options configures HTTPClient.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// Transport overrides the underlying round tripper (tests, proxies).
	Transport http.RoundTripper
}

// HTTPClient implements Client on net/http and records request metrics.
type HTTPClient struct {
	http      *http.Client
	userAgent string
}

// New creates an HTTPClient.
func New(opts Options) *HTTPClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "oauthlink/1.0"
	}
	return &HTTPClient{
		http:      &http.Client{Timeout: timeout, Transport: opts.Transport},
		userAgent: ua,
	}
}

func (c *HTTPClient) Get(ctx context.Context, rawURL string, headers http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: build GET: %w", err)
	}
	return c.do(req, headers)
}

// Post sends form as application/x-www-form-urlencoded. A nil form sends an empty body.
func (c *HTTPClient) Post(ctx context.Context, rawURL string, headers http.Header, form url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("transport: build POST: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, headers)
}

func (c *HTTPClient) do(req *http.Request, headers http.Header) (*Response, error) {
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	host := req.URL.Host
	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ProviderRequestDuration.WithLabelValues(host, req.Method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(host, req.Method, "error").Inc()
		return nil, fmt.Errorf("transport: %s %s: %w", req.Method, host, err)
	}
	defer resp.Body.Close()
	metrics.ProviderRequests.WithLabelValues(host, req.Method, metrics.StatusClass(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("transport: read body: %w", err)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}
