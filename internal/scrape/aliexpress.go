package scrape

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealscope/listing-scout/internal/models"
)

const (
	aliexpressBaseURL   = "https://www.aliexpress.com"
	aliexpressSortParam = "total_tranpro_desc"
	aliexpressItemPath  = "/item/"
)

// The wholesale site's markup varies between rollouts, so candidate cards are
// matched against a union of known selectors.
var (
	aliexpressCardSelectors = []string{
		"div.search-item-card-wrapper-gallery",
		"a.search-card-item",
		"div.list--gallery--item",
		"div.product-card",
	}

	aliexpressTitleSelectors = []string{
		".multi--titleText--nXeOvyr",
		".manhattan--titleText--WccSjUS",
	}

	aliexpressPriceSelectors = []string{
		".multi--price-sale--U-S0jtj",
		".manhattan--price-sale--1CCSZfK",
		".price-current",
		".product-price-value",
	}

	aliexpressImageAttrs = []string{"src", "data-src", "image-src"}

	aliexpressChallengeMarkers = []string{
		"captcha",
		"robot check",
		"verification",
		"slide to verify",
	}

	aliexpressItemIDPattern = regexp.MustCompile(`/item/(\d+)\.html`)

	// Optional currency symbol or 3-letter code followed by a numeric amount.
	aliexpressPricePattern = regexp.MustCompile(`(?i)(US\s?\$|[$€£¥]|\b[A-Z]{3}\b)?\s*([0-9][0-9.,]*)`)
)

// AliexpressHooks implements the wholesale adapter behavior.
type AliexpressHooks struct{}

func NewWholesaleAdapter(opts Options) *Adapter {
	return NewAdapter(&AliexpressHooks{}, opts)
}

func (h *AliexpressHooks) Platform() models.Platform {
	return models.PlatformWholesale
}

func (h *AliexpressHooks) BuildSearchURL(query string) (string, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", false
	}
	return aliexpressBaseURL + "/wholesale?SearchText=" + url.QueryEscape(query) +
		"&SortType=" + aliexpressSortParam, true
}

func (h *AliexpressHooks) ChallengeMarkers() []string {
	return aliexpressChallengeMarkers
}

func (h *AliexpressHooks) ParseListings(doc *goquery.Document, maxResults int) []models.Listing {
	listings := make([]models.Listing, 0, maxResults)
	seen := make(map[string]bool)

	doc.Find(strings.Join(aliexpressCardSelectors, ", ")).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if len(listings) >= maxResults {
			return false
		}

		href, found := aliexpressProductLink(card)
		title := aliexpressTitle(card)
		if !found || title == "" {
			return true
		}

		absolute, ok := aliexpressAbsoluteURL(href)
		if !ok || seen[absolute] {
			return true
		}
		seen[absolute] = true

		listing := models.Listing{
			Platform: models.PlatformWholesale,
			Title:    title,
			URL:      absolute,
			ImageURL: aliexpressImage(card),
		}
		if m := aliexpressItemIDPattern.FindStringSubmatch(absolute); m != nil {
			listing.ID = m[1]
		}
		listing.Price, listing.Currency = parseWholesalePrice(aliexpressPriceText(card))

		listings = append(listings, listing)
		return true
	})

	return listings
}

// aliexpressProductLink finds the product anchor either inside the card or,
// when the card itself sits inside an anchor, on the enclosing element.
func aliexpressProductLink(card *goquery.Selection) (string, bool) {
	if anchor := card.Find("a[href*='" + aliexpressItemPath + "']").First(); anchor.Length() > 0 {
		return anchor.AttrOr("href", ""), true
	}

	if href, ok := card.Attr("href"); ok && strings.Contains(href, aliexpressItemPath) {
		return href, true
	}

	if parent := card.ParentsFiltered("a[href*='" + aliexpressItemPath + "']").First(); parent.Length() > 0 {
		return parent.AttrOr("href", ""), true
	}

	return "", false
}

func aliexpressTitle(card *goquery.Selection) string {
	if anchor := card.Find("a[title]").First(); anchor.Length() > 0 {
		if title := strings.TrimSpace(anchor.AttrOr("title", "")); title != "" {
			return title
		}
	}
	if title, ok := card.Attr("title"); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}

	for _, sel := range aliexpressTitleSelectors {
		if title := strings.TrimSpace(card.Find(sel).First().Text()); title != "" {
			return title
		}
	}

	return strings.TrimSpace(card.Find("a").First().Text())
}

func aliexpressAbsoluteURL(href string) (string, bool) {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return "", false
	case strings.HasPrefix(href, "//"):
		return "https:" + href, true
	case strings.HasPrefix(href, "/"):
		return aliexpressBaseURL + href, true
	}

	u, err := url.Parse(href)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return href, true
}

func aliexpressImage(card *goquery.Selection) string {
	img := card.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	for _, attr := range aliexpressImageAttrs {
		if src := strings.TrimSpace(img.AttrOr(attr, "")); src != "" {
			if strings.HasPrefix(src, "//") {
				return "https:" + src
			}
			return src
		}
	}
	return ""
}

func aliexpressPriceText(card *goquery.Selection) string {
	for _, sel := range aliexpressPriceSelectors {
		if text := strings.TrimSpace(card.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// parseWholesalePrice extracts an optional currency and a numeric amount from
// raw price text. An amount that fails to parse as a finite number yields a
// nil price while a captured currency is still reported.
func parseWholesalePrice(raw string) (*float64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ""
	}

	m := aliexpressPricePattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, ""
	}

	currency := normalizeWholesaleCurrency(m[1])

	amountText := strings.ReplaceAll(m[2], ",", "")
	amount, err := strconv.ParseFloat(amountText, 64)
	if err != nil || math.IsInf(amount, 0) || math.IsNaN(amount) || amount < 0 {
		return nil, currency
	}

	return &amount, currency
}

func normalizeWholesaleCurrency(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	switch {
	case symbol == "":
		return ""
	case strings.HasPrefix(strings.ToUpper(symbol), "US"):
		return "USD"
	case symbol == "$":
		return "USD"
	case symbol == "€":
		return "EUR"
	case symbol == "£":
		return "GBP"
	case symbol == "¥":
		return "CNY"
	}
	return strings.ToUpper(symbol)
}
