package scrape

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dealscope/listing-scout/internal/models"
)

// Metrics bundles Prometheus collectors for the scraping subsystem. All
// helpers are nil-safe so tests can pass a nil *Metrics.
type Metrics struct {
	Registry        *prometheus.Registry
	AttemptsTotal   *prometheus.CounterVec
	RetriesTotal    *prometheus.CounterVec
	ChallengesTotal *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	ListingsTotal   *prometheus.CounterVec
	AdapterCrashes  *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	attempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_fetch_attempts_total",
			Help: "Total fetch attempts issued per platform.",
		},
		[]string{"platform"},
	)
	retries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_retries_total",
			Help: "Total retry backoffs applied per platform.",
		},
		[]string{"platform"},
	)
	challenges := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_bot_challenges_total",
			Help: "Total bot-challenge pages detected per platform.",
		},
		[]string{"platform"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_errors_total",
			Help: "Total fetch/parse errors by platform and type.",
		},
		[]string{"platform", "error_type"},
	)
	listings := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_listings_total",
			Help: "Total listings parsed per platform.",
		},
		[]string{"platform"},
	)
	crashes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_adapter_crashes_total",
			Help: "Total adapter panics recovered at the orchestrator boundary.",
		},
		[]string{"platform"},
	)

	registry.MustRegister(attempts, retries, challenges, errorsTotal, listings, crashes)

	return &Metrics{
		Registry:        registry,
		AttemptsTotal:   attempts,
		RetriesTotal:    retries,
		ChallengesTotal: challenges,
		ErrorsTotal:     errorsTotal,
		ListingsTotal:   listings,
		AdapterCrashes:  crashes,
	}
}

func (m *Metrics) IncAttempt(p models.Platform) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(string(p)).Inc()
}

func (m *Metrics) IncRetry(p models.Platform) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(string(p)).Inc()
}

func (m *Metrics) IncChallenge(p models.Platform) {
	if m == nil {
		return
	}
	m.ChallengesTotal.WithLabelValues(string(p)).Inc()
}

func (m *Metrics) IncError(p models.Platform, errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(string(p), errorType).Inc()
}

func (m *Metrics) AddListings(p models.Platform, n int) {
	if m == nil {
		return
	}
	m.ListingsTotal.WithLabelValues(string(p)).Add(float64(n))
}

func (m *Metrics) IncCrash(p models.Platform) {
	if m == nil {
		return
	}
	m.AdapterCrashes.WithLabelValues(string(p)).Inc()
}
