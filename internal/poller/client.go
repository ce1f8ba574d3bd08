package poller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jpalmerr/pulsewatch/internal/status"
)

// DefaultTimeout bounds a single probe when no timeout is configured.
const DefaultTimeout = 3 * time.Second

// DefaultUserAgent is sent with every probe unless overridden.
const DefaultUserAgent = "pulsewatch"

// connection pooling limits to prevent resource exhaustion when probing many URLs
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second // conservative: matches common ALB defaults
)

// Prober performs one reachability probe. It never returns an error; every
// failure is expressed as an [status.Outcome].
type Prober interface {
	Probe(ctx context.Context, rawURL string, timeout time.Duration) status.Outcome
}

// Client is an HTTP client wrapper that issues header-only reachability probes.
//
// Client uses per-request timeouts via context rather than a global timeout.
// Redirects are not followed: a 3xx response is itself proof of reachability.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a new probing [Client].
//
// Connection pooling configuration:
//   - MaxIdleConns: 100 total idle connections
//   - MaxIdleConnsPerHost: 10 idle connections per host
//   - MaxConnsPerHost: 10 concurrent connections per host
//   - IdleConnTimeout: 60 seconds before closing idle connections
//
// An empty userAgent falls back to [DefaultUserAgent].
func NewClient(userAgent string) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		userAgent: userAgent,
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Probe sends a HEAD request to rawURL and classifies the result.
//
// The request is bounded by timeout (or [DefaultTimeout] when timeout <= 0).
// The response body is never read.
func (c *Client) Probe(ctx context.Context, rawURL string, timeout time.Duration) status.Outcome {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	target, err := parseTarget(rawURL)
	if err != nil {
		return status.OtherError(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return status.OtherError(fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyError(ctx, err)
	}
	_ = resp.Body.Close()

	return classifyCode(resp.StatusCode)
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close, the client remains usable but
// new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

var errUnsupportedScheme = errors.New("unsupported scheme")

// parseTarget rejects URLs that can never be probed over HTTP.
func parseTarget(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	case "":
		return "", fmt.Errorf("invalid url %q: missing scheme", rawURL)
	default:
		return "", fmt.Errorf("invalid url %q: %w %q", rawURL, errUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid url %q: missing host", rawURL)
	}
	return u.String(), nil
}

func classifyCode(code int) status.Outcome {
	if code >= http.StatusBadRequest {
		return status.HTTPError(code)
	}
	return status.Success(code)
}
