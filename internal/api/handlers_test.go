package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscope/listing-scout/internal/models"
)

type stubRunner struct {
	lastRequest models.ScrapeRequest
	results     models.ResultSet
}

func (r *stubRunner) Run(_ context.Context, req models.ScrapeRequest) models.ResultSet {
	r.lastRequest = req
	return r.results
}

type fixedAnalyzer struct{ probability float64 }

func (a fixedAnalyzer) Analyze(context.Context, models.ScrapeRequest, models.ResultSet) float64 {
	return a.probability
}

func newTestHandlers(runner Runner, analyzer Analyzer) *Handlers {
	return NewHandlers(runner, analyzer, slog.New(slog.NewTextHandler(io.Discard, nil)), Defaults{
		Timeouts: map[models.Platform]time.Duration{
			models.PlatformMarketplace: 15 * time.Second,
		},
		MaxResults: 10,
	})
}

func postSearch(t *testing.T, h *Handlers, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.SearchProducts(rec, req)
	return rec
}

func TestSearchProducts(t *testing.T) {
	results := models.NewResultSet()
	results.Marketplace = []models.Listing{{
		Platform: models.PlatformMarketplace,
		Title:    "Wireless Mouse 2.4G",
		URL:      "https://www.amazon.com/dp/B0TESTMOUS",
	}}
	runner := &stubRunner{results: results}
	h := newTestHandlers(runner, fixedAnalyzer{probability: 0.42})

	rec := postSearch(t, h, `{"product_query":"  wireless mouse ","source_url":"https://shop.example.com/p/1","max_results_per_platform":5}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "wireless mouse", resp.Query)
	assert.Equal(t, "https://shop.example.com/p/1", resp.SourceURL)
	require.Len(t, resp.Matches.Marketplace, 1)
	assert.Equal(t, "Wireless Mouse 2.4G", resp.Matches.Marketplace[0].Title)
	assert.NotNil(t, resp.Matches.Wholesale)
	assert.NotNil(t, resp.Matches.Storefront)
	assert.InDelta(t, 0.42, resp.Analysis.DropshippingProbability, 0.0001)

	assert.Equal(t, "wireless mouse", runner.lastRequest.Query)
	assert.Equal(t, 5, runner.lastRequest.MaxResults)
}

func TestSearchProductsDefaultsMaxResults(t *testing.T) {
	runner := &stubRunner{results: models.NewResultSet()}
	h := newTestHandlers(runner, nil)

	rec := postSearch(t, h, `{"product_query":"mug"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, runner.lastRequest.MaxResults)
}

func TestSearchProductsRejectsBlankQuery(t *testing.T) {
	runner := &stubRunner{results: models.NewResultSet()}
	h := newTestHandlers(runner, nil)

	for _, body := range []string{`{"product_query":""}`, `{"product_query":"   "}`, `{}`} {
		rec := postSearch(t, h, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
	assert.Empty(t, runner.lastRequest.Query)
}

func TestSearchProductsRejectsMalformedBody(t *testing.T) {
	h := newTestHandlers(&stubRunner{results: models.NewResultSet()}, nil)

	rec := postSearch(t, h, `{"product_query":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "invalid request body")
}

func TestNilAnalyzerFallsBackToNoop(t *testing.T) {
	runner := &stubRunner{results: models.NewResultSet()}
	h := newTestHandlers(runner, nil)

	rec := postSearch(t, h, `{"product_query":"mug"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.Analysis.DropshippingProbability)
}
