package orchestrator

import (
	"math"
	"sort"
	"strings"

	"github.com/dealscope/listing-scout/internal/models"
)

// relevanceScore rates how well a listing title matches the query: 2 points
// for a case-insensitive substring match plus a length-mismatch penalty term
// bounded in [0,1]. An empty title always scores 0.
func relevanceScore(title, query string) float64 {
	title = strings.ToLower(strings.TrimSpace(title))
	query = strings.ToLower(strings.TrimSpace(query))
	if title == "" {
		return 0
	}

	score := 0.0
	if query != "" && strings.Contains(title, query) {
		score += 2
	}

	denom := float64(len(query))
	if denom < 1 {
		denom = 1
	}
	diff := math.Abs(float64(len(title) - len(query)))
	score += math.Max(0, 1-diff/denom)

	return score
}

// rankByRelevance sorts listings by descending relevance, keeping the
// original relative order on ties.
func rankByRelevance(listings []models.Listing, query string) {
	scores := make([]float64, len(listings))
	for i, l := range listings {
		scores[i] = relevanceScore(l.Title, query)
	}

	indexed := make([]int, len(listings))
	for i := range indexed {
		indexed[i] = i
	}
	sort.SliceStable(indexed, func(a, b int) bool {
		return scores[indexed[a]] > scores[indexed[b]]
	})

	sorted := make([]models.Listing, len(listings))
	for pos, idx := range indexed {
		sorted[pos] = listings[idx]
	}
	copy(listings, sorted)
}
