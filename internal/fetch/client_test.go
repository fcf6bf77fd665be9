package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchReturnsBody(t *testing.T) {
	client := NewClient(5*time.Second, nil, testLogger())
	httpmock.ActivateNonDefault(client.httpClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://example.com/search",
		httpmock.NewStringResponder(http.StatusOK, "<html>results</html>"))

	body, ferr := client.Fetch(context.Background(), "https://example.com/search", map[string]string{
		"User-Agent": "test-agent",
	})

	require.Nil(t, ferr)
	assert.Equal(t, "<html>results</html>", body)
}

func TestFetchSendsHeaders(t *testing.T) {
	client := NewClient(5*time.Second, nil, testLogger())
	httpmock.ActivateNonDefault(client.httpClient())
	defer httpmock.DeactivateAndReset()

	var gotUA string
	httpmock.RegisterResponder("GET", "https://example.com/search",
		func(req *http.Request) (*http.Response, error) {
			gotUA = req.Header.Get("User-Agent")
			return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
		})

	_, ferr := client.Fetch(context.Background(), "https://example.com/search", map[string]string{
		"User-Agent": "test-agent",
	})

	require.Nil(t, ferr)
	assert.Equal(t, "test-agent", gotUA)
}

func TestFetchNonSuccessStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"service unavailable", http.StatusServiceUnavailable, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"not found", http.StatusNotFound, false},
		{"server error", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(5*time.Second, nil, testLogger())
			httpmock.ActivateNonDefault(client.httpClient())
			defer httpmock.DeactivateAndReset()

			httpmock.RegisterResponder("GET", "https://example.com/search",
				httpmock.NewStringResponder(tt.status, "nope"))

			body, ferr := client.Fetch(context.Background(), "https://example.com/search", nil)

			assert.Empty(t, body)
			require.NotNil(t, ferr)
			assert.Equal(t, tt.status, ferr.StatusCode)
			assert.Equal(t, tt.transient, ferr.Transient())
		})
	}
}

func TestFetchNetworkErrorIsTransient(t *testing.T) {
	client := NewClient(5*time.Second, nil, testLogger())
	httpmock.ActivateNonDefault(client.httpClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://example.com/search",
		httpmock.NewErrorResponder(assert.AnError))

	_, ferr := client.Fetch(context.Background(), "https://example.com/search", nil)

	require.NotNil(t, ferr)
	assert.Zero(t, ferr.StatusCode)
	assert.True(t, ferr.Transient())
}

func TestFetchRejectsNonAbsoluteURL(t *testing.T) {
	client := NewClient(5*time.Second, nil, testLogger())

	for _, raw := range []string{"", "/search?q=mug", "example.com/search", "://bad"} {
		_, ferr := client.Fetch(context.Background(), raw, nil)
		require.NotNil(t, ferr, "url %q", raw)
		assert.Zero(t, ferr.StatusCode)
	}
}

type countingResolver struct {
	calls int
	url   *url.URL
	err   error
}

func (r *countingResolver) Resolve() (*url.URL, error) {
	r.calls++
	return r.url, r.err
}

func TestProxyResolvedOnce(t *testing.T) {
	proxyURL, err := url.Parse("http://proxy.internal:8080")
	require.NoError(t, err)

	resolver := &countingResolver{url: proxyURL}
	client := NewClient(5*time.Second, resolver, testLogger())

	first := client.httpClient()
	second := client.httpClient()

	assert.Same(t, first, second)
	assert.Equal(t, 1, resolver.calls)

	transport, ok := first.Transport.(*http.Transport)
	require.True(t, ok)
	require.NotNil(t, transport.Proxy)
}

func TestProxyResolutionFailureFallsBackToDirect(t *testing.T) {
	resolver := &countingResolver{err: assert.AnError}
	client := NewClient(5*time.Second, resolver, testLogger())

	transport, ok := client.httpClient().Transport.(*http.Transport)
	require.True(t, ok)
	assert.Nil(t, transport.Proxy)
	assert.Equal(t, 1, resolver.calls)
}

func TestErrorString(t *testing.T) {
	withStatus := &Error{URL: "https://example.com", StatusCode: 503}
	assert.Contains(t, withStatus.Error(), "503")

	withCause := &Error{URL: "https://example.com", Err: assert.AnError}
	assert.Contains(t, withCause.Error(), assert.AnError.Error())
	assert.ErrorIs(t, withCause, assert.AnError)
}
