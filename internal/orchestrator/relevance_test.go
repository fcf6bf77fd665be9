package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dealscope/listing-scout/internal/models"
)

func TestRelevanceScore(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		query    string
		expected float64
	}{
		{"exact match", "red mug", "red mug", 3.0},
		{"case insensitive match", "RED MUG", "red mug", 3.0},
		{"substring with length penalty", "a red mug set", "red mug", 2.0 + 1.0 - 6.0/7.0},
		{"no match close length", "blue plate", "red mug", 1.0 - 3.0/7.0},
		{"no match far length", "an extremely long unrelated product title", "red mug", 0.0},
		{"empty title", "", "red mug", 0.0},
		{"whitespace title", "   ", "red mug", 0.0},
		{"empty query", "red mug", "", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, relevanceScore(tt.title, tt.query), 0.0001)
		})
	}
}

func TestRankByRelevanceKeepsTieOrder(t *testing.T) {
	listings := []models.Listing{
		{Title: "red mug", URL: "https://example.com/first"},
		{Title: "red mug", URL: "https://example.com/second"},
		{Title: "blue plate", URL: "https://example.com/third"},
	}

	rankByRelevance(listings, "red mug")

	assert.Equal(t, "https://example.com/first", listings[0].URL)
	assert.Equal(t, "https://example.com/second", listings[1].URL)
	assert.Equal(t, "https://example.com/third", listings[2].URL)
}

func TestRankByRelevanceHandlesEmptySlice(t *testing.T) {
	var listings []models.Listing
	rankByRelevance(listings, "red mug")
	assert.Empty(t, listings)
}
