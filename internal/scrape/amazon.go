package scrape

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealscope/listing-scout/internal/models"
)

const amazonBaseURL = "https://www.amazon.com"

// Selector and marker sets are best-effort snapshots of the current markup,
// kept as data so fixture tests can pin them and markup shifts stay cheap to
// absorb.
var (
	amazonResultSelector    = "div[data-component-type='s-search-result']"
	amazonSponsoredSelector = "[data-component-type='sp-sponsored-result'], span.puis-sponsored-label-text"
	amazonImageSelector     = "img.s-image"

	amazonChallengeMarkers = []string{
		"captcha",
		"robot check",
		"api-services-support@amazon.com",
		"enter the characters you see below",
		"to discuss automated access",
	}

	// The two known product path shapes carrying a 10-character code.
	amazonProductCodePattern = regexp.MustCompile(`(?i)/(?:dp|gp/product)/([A-Z0-9]{10})(?:[/?]|$)`)

	amazonCurrencySymbols = map[string]string{
		"$": "USD",
		"€": "EUR",
		"£": "GBP",
	}
)

// AmazonHooks implements the marketplace adapter behavior.
type AmazonHooks struct{}

func NewMarketplaceAdapter(opts Options) *Adapter {
	return NewAdapter(&AmazonHooks{}, opts)
}

func (h *AmazonHooks) Platform() models.Platform {
	return models.PlatformMarketplace
}

func (h *AmazonHooks) BuildSearchURL(query string) (string, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", false
	}
	return amazonBaseURL + "/s?k=" + url.QueryEscape(query), true
}

func (h *AmazonHooks) ChallengeMarkers() []string {
	return amazonChallengeMarkers
}

func (h *AmazonHooks) ParseListings(doc *goquery.Document, maxResults int) []models.Listing {
	listings := make([]models.Listing, 0, maxResults)

	doc.Find(amazonResultSelector).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if len(listings) >= maxResults {
			return false
		}

		// Sponsored items are never emitted.
		if item.Find(amazonSponsoredSelector).Length() > 0 {
			return true
		}

		link := item.Find("h2 a").First()
		href, hasHref := link.Attr("href")
		title := strings.TrimSpace(link.Find("span").First().Text())
		if title == "" {
			title = strings.TrimSpace(link.Text())
		}
		if !hasHref || title == "" {
			return true
		}

		canonicalURL, code, ok := canonicalAmazonURL(href)
		if !ok {
			return true
		}

		listing := models.Listing{
			Platform: models.PlatformMarketplace,
			Title:    title,
			URL:      canonicalURL,
			ID:       code,
			ImageURL: item.Find(amazonImageSelector).First().AttrOr("src", ""),
		}
		listing.Price, listing.Currency = amazonPrice(item)

		listings = append(listings, listing)
		return true
	})

	return listings
}

// canonicalAmazonURL resolves href to an absolute URL, unwraps an embedded
// redirect target, and rewrites product links to the shortest canonical
// /dp/<CODE> form. It returns ok=false when no valid absolute URL can be
// produced, which drops the listing.
func canonicalAmazonURL(href string) (canonical, code string, ok bool) {
	base, _ := url.Parse(amazonBaseURL)

	ref, err := url.Parse(href)
	if err != nil {
		return "", "", false
	}
	resolved := base.ResolveReference(ref)

	// Ad click-throughs wrap the real product path in a url= parameter.
	if wrapped := resolved.Query().Get("url"); wrapped != "" {
		if inner, err := url.Parse(wrapped); err == nil {
			resolved = base.ResolveReference(inner)
		}
	}

	if resolved.Scheme == "" || resolved.Host == "" {
		return "", "", false
	}

	if m := amazonProductCodePattern.FindStringSubmatch(resolved.Path); m != nil {
		code = strings.ToUpper(m[1])
		return amazonBaseURL + "/dp/" + code, code, true
	}

	return resolved.Scheme + "://" + resolved.Host + strings.TrimRight(resolved.Path, "/"), "", true
}

// amazonPrice reads the symbol/whole/fraction triple out of a price block.
// Any failure degrades the price to unknown rather than dropping the listing.
func amazonPrice(item *goquery.Selection) (*float64, string) {
	block := item.Find("span.a-price").First()
	if block.Length() == 0 {
		return nil, ""
	}

	whole := digitsOnly(block.Find("span.a-price-whole").First().Text())
	if whole == "" {
		return nil, ""
	}
	fraction := digitsOnly(block.Find("span.a-price-fraction").First().Text())
	if fraction == "" {
		fraction = "00"
	}

	amount, err := strconv.ParseFloat(whole+"."+fraction, 64)
	if err != nil || amount < 0 {
		return nil, ""
	}

	symbol := strings.TrimSpace(block.Find("span.a-price-symbol").First().Text())
	currency := symbol
	if mapped, known := amazonCurrencySymbols[symbol]; known {
		currency = mapped
	}

	return &amount, currency
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
