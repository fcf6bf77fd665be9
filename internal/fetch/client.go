package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// maxBodyBytes caps how much of a response we are willing to read. Search
// result pages are well under this; anything larger is suspicious.
const maxBodyBytes = 2 << 20

// Error is the typed failure returned by Client.Fetch. StatusCode is zero for
// transport-level failures.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is worth retrying: rate limiting,
// server overload, or a network error.
func (e *Error) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusServiceUnavailable ||
		e.StatusCode == 0
}

// Client issues single GET requests with a bounded timeout and an optional
// forward proxy. The underlying http.Client and the proxy resolution are
// memoized for the Client's lifetime, so retries reuse the same transport.
type Client struct {
	timeout  time.Duration
	resolver ProxyResolver
	logger   *slog.Logger

	initOnce sync.Once
	client   *http.Client
}

func NewClient(timeout time.Duration, resolver ProxyResolver, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		timeout:  timeout,
		resolver: resolver,
		logger:   logger.With("component", "fetch"),
	}
}

// Fetch performs a single GET of an absolute URL and returns the body text.
// All failures come back as *Error; nothing is thrown past this boundary.
func (c *Client) Fetch(ctx context.Context, rawURL string, headers map[string]string) (string, *Error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", &Error{URL: rawURL, Err: fmt.Errorf("url must be absolute: %q", rawURL)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &Error{URL: rawURL, Err: err}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", &Error{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("http status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &Error{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	return string(body), nil
}

// httpClient lazily builds the memoized client. The proxy is resolved at most
// once; a resolver failure is logged and treated as "no proxy".
func (c *Client) httpClient() *http.Client {
	c.initOnce.Do(func() {
		var proxyURL *url.URL
		if c.resolver != nil {
			u, err := c.resolver.Resolve()
			if err != nil {
				c.logger.Warn("proxy resolution failed, connecting directly", "error", err)
			} else {
				proxyURL = u
			}
		}

		transport := &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   c.timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
		if proxyURL != nil {
			transport.Proxy = http.ProxyURL(proxyURL)
			c.logger.Info("using forward proxy", "proxy_host", proxyURL.Host)
		}

		c.client = &http.Client{
			Timeout:   c.timeout,
			Transport: transport,
		}
	})

	return c.client
}
