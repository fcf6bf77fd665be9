package scrape

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dealscope/listing-scout/internal/fetch"
	"github.com/dealscope/listing-scout/internal/models"
	"github.com/dealscope/listing-scout/internal/ratelimit"
)

const (
	maxAttempts = 3
	backoffMin  = 300 * time.Millisecond
	backoffMax  = 600 * time.Millisecond
)

// Fetcher is the slice of the fetch client the adapter needs.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (string, *fetch.Error)
}

// Hooks carries the platform-specific parts of an adapter: how to build the
// search URL, which markers identify an anti-bot challenge page, and how to
// turn the result page into listings.
type Hooks interface {
	Platform() models.Platform
	BuildSearchURL(query string) (string, bool)
	ChallengeMarkers() []string
	ParseListings(doc *goquery.Document, maxResults int) []models.Listing
}

// Options configures the shared adapter core.
type Options struct {
	Fetcher    Fetcher
	Logger     *slog.Logger
	Metrics    *Metrics
	Limiter    ratelimit.Limiter
	MaxResults int
	UserAgents []string
}

// Adapter runs the fetch/retry/parse loop shared by all platforms. The
// platform-specific behavior comes from Hooks.
type Adapter struct {
	hooks      Hooks
	fetcher    Fetcher
	logger     *slog.Logger
	metrics    *Metrics
	limiter    ratelimit.Limiter
	maxResults int
	userAgents []string

	// injectable for tests
	sleep   func(time.Duration)
	backoff func() time.Duration
}

func NewAdapter(hooks Hooks, opts Options) *Adapter {
	maxResults := opts.MaxResults
	if maxResults < 1 {
		maxResults = 1
	}
	return &Adapter{
		hooks:      hooks,
		fetcher:    opts.Fetcher,
		logger:     opts.Logger.With("platform", string(hooks.Platform())),
		metrics:    opts.Metrics,
		limiter:    opts.Limiter,
		maxResults: maxResults,
		userAgents: opts.UserAgents,
		sleep:      time.Sleep,
		backoff:    randomBackoff,
	}
}

func (a *Adapter) Platform() models.Platform {
	return a.hooks.Platform()
}

// Search fetches the platform's result page for query and parses it into
// listings. It never returns an error: every failure path degrades to an
// empty sequence with a diagnostic log line.
func (a *Adapter) Search(ctx context.Context, query string) []models.Listing {
	searchURL, ok := a.hooks.BuildSearchURL(query)
	if !ok {
		a.logger.Warn("no search url could be built", "query", query)
		return []models.Listing{}
	}

	headers := browserHeaders(a.userAgent())

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				a.logger.Warn("rate limiter interrupted", "error", err)
				return []models.Listing{}
			}
		}

		a.metrics.IncAttempt(a.hooks.Platform())

		body, ferr := a.fetcher.Fetch(ctx, searchURL, headers)
		if ferr != nil {
			a.logger.Warn("fetch failed",
				"attempt", attempt,
				"status", ferr.StatusCode,
				"transient", ferr.Transient(),
				"error", ferr.Err,
			)
			a.metrics.IncError(a.hooks.Platform(), errorLabel(ferr))
			a.backoffBeforeRetry(attempt)
			continue
		}

		if strings.TrimSpace(body) == "" {
			a.logger.Warn("empty response body", "attempt", attempt)
			a.metrics.IncError(a.hooks.Platform(), "empty_body")
			a.backoffBeforeRetry(attempt)
			continue
		}

		if marker, blocked := a.detectChallenge(body); blocked {
			// A challenge page will not resolve by retrying; give up now.
			a.logger.Warn("bot challenge detected, abandoning search", "marker", marker)
			a.metrics.IncChallenge(a.hooks.Platform())
			return []models.Listing{}
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			a.logger.Warn("failed to parse html", "attempt", attempt, "error", err)
			a.metrics.IncError(a.hooks.Platform(), "parse")
			a.backoffBeforeRetry(attempt)
			continue
		}

		listings := a.hooks.ParseListings(doc, a.maxResults)
		if listings == nil {
			listings = []models.Listing{}
		}
		a.metrics.AddListings(a.hooks.Platform(), len(listings))
		a.logger.Info("search completed", "query", query, "listings", len(listings), "attempts", attempt)
		return listings
	}

	a.logger.Warn("all fetch attempts exhausted", "query", query, "attempts", maxAttempts)
	return []models.Listing{}
}

// backoffBeforeRetry sleeps between attempts. No delay after the final one.
func (a *Adapter) backoffBeforeRetry(attempt int) {
	if attempt >= maxAttempts {
		return
	}
	a.metrics.IncRetry(a.hooks.Platform())
	a.sleep(a.backoff())
}

func (a *Adapter) detectChallenge(body string) (string, bool) {
	lower := strings.ToLower(body)
	for _, marker := range a.hooks.ChallengeMarkers() {
		if strings.Contains(lower, marker) {
			return marker, true
		}
	}
	return "", false
}

func (a *Adapter) userAgent() string {
	if len(a.userAgents) == 0 {
		return "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	return a.userAgents[rand.Intn(len(a.userAgents))]
}

func randomBackoff() time.Duration {
	return backoffMin + time.Duration(rand.Int63n(int64(backoffMax-backoffMin)))
}

// browserHeaders returns the realistic header set needed to avoid trivial
// blocking on all three platforms.
func browserHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":                userAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Cache-Control":             "no-cache",
		"Pragma":                    "no-cache",
		"Upgrade-Insecure-Requests": "1",
	}
}

func errorLabel(ferr *fetch.Error) string {
	switch {
	case ferr.StatusCode == 429:
		return "rate_limited"
	case ferr.StatusCode == 503:
		return "unavailable"
	case ferr.StatusCode != 0:
		return "http_status"
	default:
		return "network"
	}
}
