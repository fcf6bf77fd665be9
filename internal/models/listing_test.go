package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResultSetHasEmptySequences(t *testing.T) {
	rs := NewResultSet()

	for _, p := range Platforms() {
		listings := rs.Listings(p)
		assert.NotNil(t, listings, "platform %s", p)
		assert.Empty(t, listings)
	}
}

func TestSetListingsCoercesNilToEmpty(t *testing.T) {
	rs := NewResultSet()
	rs.SetListings(PlatformWholesale, nil)

	assert.NotNil(t, rs.Wholesale)
	assert.Empty(t, rs.Wholesale)
}

func TestResultSetJSONNeverEmitsNull(t *testing.T) {
	rs := NewResultSet()
	rs.SetListings(PlatformMarketplace, []Listing{{Platform: PlatformMarketplace, Title: "red mug", URL: "https://example.com"}})

	data, err := json.Marshal(rs)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "null")
}

func TestTimeoutFor(t *testing.T) {
	req := ScrapeRequest{Timeouts: map[Platform]time.Duration{
		PlatformMarketplace: 30 * time.Second,
		PlatformWholesale:   0,
	}}

	assert.Equal(t, 30*time.Second, req.TimeoutFor(PlatformMarketplace))
	assert.Equal(t, DefaultTimeout, req.TimeoutFor(PlatformWholesale))
	assert.Equal(t, DefaultTimeout, req.TimeoutFor(PlatformStorefront))
}
