package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dealscope/listing-scout/internal/config"
	"github.com/dealscope/listing-scout/internal/fetch"
	"github.com/dealscope/listing-scout/internal/models"
	"github.com/dealscope/listing-scout/internal/ratelimit"
	"github.com/dealscope/listing-scout/internal/scrape"
)

// Searcher is the per-platform adapter surface the orchestrator fans out to.
type Searcher interface {
	Platform() models.Platform
	Search(ctx context.Context, query string) []models.Listing
}

// Factory builds one adapter instance for a platform and run. A fresh
// instance per run keeps the fetch client and proxy cache exclusively owned
// by that run's adapter.
type Factory func(p models.Platform, timeout time.Duration, maxResults int) Searcher

// Orchestrator runs all platform adapters concurrently for one query and
// ranks each platform's results by relevance.
type Orchestrator struct {
	logger  *slog.Logger
	metrics *scrape.Metrics
	factory Factory
}

func New(cfg *config.Config, logger *slog.Logger, metrics *scrape.Metrics) *Orchestrator {
	o := &Orchestrator{
		logger:  logger.With("component", "orchestrator"),
		metrics: metrics,
	}
	o.factory = func(p models.Platform, timeout time.Duration, maxResults int) Searcher {
		client := fetch.NewClient(timeout, fetch.NewStaticResolver(cfg.Proxy.URL), logger)

		var limiter ratelimit.Limiter
		if cfg.Scraper.RateLimitMin > 0 {
			limiter = ratelimit.NewSimpleLimiter(cfg.Scraper.RateLimitMin, cfg.Scraper.RateLimitMax)
		}

		opts := scrape.Options{
			Fetcher:    client,
			Logger:     logger,
			Metrics:    metrics,
			Limiter:    limiter,
			MaxResults: maxResults,
			UserAgents: cfg.Scraper.UserAgents,
		}

		switch p {
		case models.PlatformWholesale:
			return scrape.NewWholesaleAdapter(opts)
		case models.PlatformStorefront:
			return scrape.NewStorefrontAdapter(opts)
		default:
			return scrape.NewMarketplaceAdapter(opts)
		}
	}
	return o
}

// NewWithFactory builds an orchestrator around a custom adapter factory.
func NewWithFactory(logger *slog.Logger, metrics *scrape.Metrics, factory Factory) *Orchestrator {
	return &Orchestrator{
		logger:  logger.With("component", "orchestrator"),
		metrics: metrics,
		factory: factory,
	}
}

// Run executes one scrape across all platforms. It always returns a complete
// result set with one (possibly empty) entry per platform: a platform that
// fails, is blocked, or crashes contributes an empty sequence and never
// disturbs its siblings. Run returns only after every platform has finished.
func (o *Orchestrator) Run(ctx context.Context, req models.ScrapeRequest) models.ResultSet {
	runID := uuid.NewString()
	logger := o.logger.With("run_id", runID, "query", req.Query)

	maxResults := req.MaxResults
	if maxResults < 1 {
		maxResults = 1
	}

	platforms := models.Platforms()
	collected := make([][]models.Listing, len(platforms))

	start := time.Now()
	var wg sync.WaitGroup
	for i, p := range platforms {
		wg.Add(1)
		go func(i int, p models.Platform) {
			defer wg.Done()
			// Defensive boundary: adapters should never panic, but one
			// platform blowing up must not take down its siblings.
			defer func() {
				if r := recover(); r != nil {
					logger.Error("adapter crashed", "platform", p, "panic", r)
					o.metrics.IncCrash(p)
					collected[i] = []models.Listing{}
				}
			}()

			adapter := o.factory(p, req.TimeoutFor(p), maxResults)
			collected[i] = adapter.Search(ctx, req.Query)
		}(i, p)
	}
	wg.Wait()

	results := models.NewResultSet()
	total := 0
	for i, p := range platforms {
		listings := collected[i]
		if listings == nil {
			listings = []models.Listing{}
		}
		rankByRelevance(listings, req.Query)
		if len(listings) > maxResults {
			listings = listings[:maxResults]
		}
		results.SetListings(p, listings)
		total += len(listings)
	}

	logger.Info("scrape run completed",
		"source_url", req.SourceURL,
		"listings", total,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return results
}
