package scrape

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealscope/listing-scout/internal/models"
)

const (
	googleSearchBaseURL  = "https://www.google.com/search"
	storefrontSiteFilter = "site:myshopify.com"
	// Product-intent keyword appended to bias results toward buyable pages.
	storefrontIntentKeyword = "buy"
)

var (
	googleResultSelectors = []string{
		"div.g",
		"div.tF2Cxc",
		"div.Gx5Zad",
	}

	googleChallengeMarkers = []string{
		"captcha",
		"unusual traffic",
		// Google's block page asks for JavaScript instead of serving results.
		"enable javascript",
	}

	storefrontDomainPattern = regexp.MustCompile(`(?i)^https?://[a-z0-9][a-z0-9-]*\.myshopify\.com(/|$)`)
)

// ShopifyHooks implements the storefront-search adapter. Independent
// storefronts are not crawlable at scale, so it queries a web search engine's
// HTML results page restricted to the storefront hosting domain.
type ShopifyHooks struct{}

func NewStorefrontAdapter(opts Options) *Adapter {
	return NewAdapter(&ShopifyHooks{}, opts)
}

func (h *ShopifyHooks) Platform() models.Platform {
	return models.PlatformStorefront
}

func (h *ShopifyHooks) BuildSearchURL(query string) (string, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", false
	}

	q := storefrontSiteFilter + " " + query + " " + storefrontIntentKeyword
	return googleSearchBaseURL + "?q=" + url.QueryEscape(q) + "&num=20", true
}

func (h *ShopifyHooks) ChallengeMarkers() []string {
	return googleChallengeMarkers
}

func (h *ShopifyHooks) ParseListings(doc *goquery.Document, maxResults int) []models.Listing {
	listings := make([]models.Listing, 0, maxResults)
	seen := make(map[string]bool)

	doc.Find(strings.Join(googleResultSelectors, ", ")).EachWithBreak(func(_ int, result *goquery.Selection) bool {
		if len(listings) >= maxResults {
			return false
		}

		anchor := result.Find("a[href]").First()
		if anchor.Length() == 0 {
			return true
		}

		destination, ok := resolveSearchResultURL(anchor.AttrOr("href", ""))
		if !ok || !storefrontDomainPattern.MatchString(destination) {
			return true
		}
		if seen[destination] {
			return true
		}
		seen[destination] = true

		title := strings.TrimSpace(anchor.Find("h3").First().Text())
		if title == "" {
			title = strings.TrimSpace(anchor.Text())
		}
		if title == "" {
			return true
		}

		// Price, currency, and image are not derivable from a search snippet.
		listings = append(listings, models.Listing{
			Platform: models.PlatformStorefront,
			Title:    title,
			URL:      destination,
		})
		return true
	})

	return listings
}

// resolveSearchResultURL unwraps the search engine's /url?q= redirect wrapper
// and otherwise accepts only links that already carry a scheme.
func resolveSearchResultURL(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	if strings.HasPrefix(href, "/url?") {
		parsed, err := url.Parse(href)
		if err != nil {
			return "", false
		}
		target := parsed.Query().Get("q")
		if target == "" {
			target = parsed.Query().Get("url")
		}
		if target == "" {
			return "", false
		}
		href = target
	}

	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		return "", false
	}

	return href, true
}
