package models

import "time"

// Platform identifies one of the scraped e-commerce surfaces.
type Platform string

const (
	PlatformMarketplace Platform = "marketplace"
	PlatformWholesale   Platform = "wholesale"
	PlatformStorefront  Platform = "storefront"
)

// Platforms returns all platforms in their canonical order.
func Platforms() []Platform {
	return []Platform{PlatformMarketplace, PlatformWholesale, PlatformStorefront}
}

// Listing is one scraped product candidate. Instances are created once during
// a parse pass and never mutated afterwards.
type Listing struct {
	Platform    Platform `json:"platform"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	ID          string   `json:"id,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	IsSponsored bool     `json:"is_sponsored"`
}

// ResultSet maps every platform to its ordered listing sequence. Using a
// struct instead of a map keeps exactly one entry per platform and a stable
// JSON field order.
type ResultSet struct {
	Marketplace []Listing `json:"marketplace"`
	Wholesale   []Listing `json:"wholesale"`
	Storefront  []Listing `json:"storefront"`
}

// NewResultSet returns a result set with empty (non-nil) sequences for every
// platform.
func NewResultSet() ResultSet {
	return ResultSet{
		Marketplace: []Listing{},
		Wholesale:   []Listing{},
		Storefront:  []Listing{},
	}
}

// Listings returns the sequence for a platform.
func (rs *ResultSet) Listings(p Platform) []Listing {
	switch p {
	case PlatformMarketplace:
		return rs.Marketplace
	case PlatformWholesale:
		return rs.Wholesale
	case PlatformStorefront:
		return rs.Storefront
	}
	return nil
}

// SetListings replaces the sequence for a platform.
func (rs *ResultSet) SetListings(p Platform, listings []Listing) {
	if listings == nil {
		listings = []Listing{}
	}
	switch p {
	case PlatformMarketplace:
		rs.Marketplace = listings
	case PlatformWholesale:
		rs.Wholesale = listings
	case PlatformStorefront:
		rs.Storefront = listings
	}
}

// ScrapeRequest describes one orchestrator run. Immutable for its duration.
type ScrapeRequest struct {
	Query      string
	SourceURL  string
	Timeouts   map[Platform]time.Duration
	MaxResults int
}

// DefaultTimeout is used when a platform has no configured timeout.
const DefaultTimeout = 15 * time.Second

// TimeoutFor returns the fetch timeout for a platform.
func (r ScrapeRequest) TimeoutFor(p Platform) time.Duration {
	if d, ok := r.Timeouts[p]; ok && d > 0 {
		return d
	}
	return DefaultTimeout
}
