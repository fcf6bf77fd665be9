package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dealscope/listing-scout/internal/models"
)

// Runner is the orchestrator surface the handlers invoke.
type Runner interface {
	Run(ctx context.Context, req models.ScrapeRequest) models.ResultSet
}

// Analyzer scores how likely the source shop is a dropshipping front given
// the cross-platform matches. The real implementation lives outside this
// service; NoopAnalyzer stands in for it.
type Analyzer interface {
	Analyze(ctx context.Context, req models.ScrapeRequest, matches models.ResultSet) float64
}

// NoopAnalyzer reports a zero probability. It keeps the response shape stable
// until the external analysis component is wired in.
type NoopAnalyzer struct{}

func (NoopAnalyzer) Analyze(context.Context, models.ScrapeRequest, models.ResultSet) float64 {
	return 0
}

type Handlers struct {
	runner   Runner
	analyzer Analyzer
	logger   *slog.Logger
	defaults Defaults
}

// Defaults carries the configured per-run parameters.
type Defaults struct {
	Timeouts   map[models.Platform]time.Duration
	MaxResults int
}

func NewHandlers(runner Runner, analyzer Analyzer, logger *slog.Logger, defaults Defaults) *Handlers {
	if analyzer == nil {
		analyzer = NoopAnalyzer{}
	}
	return &Handlers{
		runner:   runner,
		analyzer: analyzer,
		logger:   logger.With("component", "api"),
		defaults: defaults,
	}
}

// SearchRequest is the invocation contract consumed from the request layer.
type SearchRequest struct {
	ProductQuery          string `json:"product_query"`
	SourceURL             string `json:"source_url,omitempty"`
	MaxResultsPerPlatform int    `json:"max_results_per_platform,omitempty"`
}

type Analysis struct {
	DropshippingProbability float64 `json:"dropshipping_probability"`
}

type SearchResponse struct {
	Query     string           `json:"query"`
	SourceURL string           `json:"source_url,omitempty"`
	Matches   models.ResultSet `json:"matches"`
	Analysis  Analysis         `json:"analysis"`
}

// SearchProducts handles POST /api/v1/search. The core never surfaces its
// failures here: the worst outcome is an all-empty matches object.
func (h *Handlers) SearchProducts(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	query := strings.TrimSpace(req.ProductQuery)
	if query == "" {
		h.respondError(w, http.StatusBadRequest, "product_query is required")
		return
	}

	maxResults := h.defaults.MaxResults
	if req.MaxResultsPerPlatform > 0 {
		maxResults = req.MaxResultsPerPlatform
	}

	scrapeReq := models.ScrapeRequest{
		Query:      query,
		SourceURL:  strings.TrimSpace(req.SourceURL),
		Timeouts:   h.defaults.Timeouts,
		MaxResults: maxResults,
	}

	matches := h.runner.Run(r.Context(), scrapeReq)
	probability := h.analyzer.Analyze(r.Context(), scrapeReq, matches)

	h.respondJSON(w, http.StatusOK, SearchResponse{
		Query:     query,
		SourceURL: scrapeReq.SourceURL,
		Matches:   matches,
		Analysis:  Analysis{DropshippingProbability: probability},
	})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
