package scraper

import "github.com/PuerkitoBio/goquery"

// Sentinel values for listings whose optional fields are missing.
const (
	NoTitle = "No Title"
	NoPrice = "No Price"
)

// Listing represents one scraped marketplace item
type Listing struct {
	Title    string `json:"title"`
	Price    string `json:"price"`
	PriceRaw string `json:"price_raw,omitempty"`
	URL      string `json:"product_url"`
	ImageURL string `json:"image_url,omitempty"`
}

// StatusRecorder receives human-readable progress lines from the crawl
// components. The scrape job's status log implements it.
type StatusRecorder interface {
	Recordf(format string, args ...interface{})
}

// FieldHandler extracts one candidate value for a field from an item
// selection; an empty string means "not found, try the next handler".
type FieldHandler func(*goquery.Selection) string

// applyHandlers evaluates handlers in order and returns the first
// non-empty result.
func applyHandlers(s *goquery.Selection, handlers []FieldHandler) string {
	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		if result := handler(s); result != "" {
			return result
		}
	}
	return ""
}

// Selectors contains CSS selectors for the marketplace result markup
type Selectors struct {
	ItemList     string
	Title        string
	Price        string
	Link         string
	Image        string
	ImageWrapper string

	// Titles equal to this placeholder mark filler tiles, not listings.
	PlaceholderTitle string
}

// DefaultSelectors returns the selector set for the marketplace's search
// result pages. The markup changes over time, so these may need adjustment.
func DefaultSelectors() Selectors {
	return Selectors{
		ItemList:         "li.s-item",
		Title:            ".s-item__title",
		Price:            ".s-item__price",
		Link:             "a.s-item__link",
		Image:            ".s-item__image-img",
		ImageWrapper:     "picture.s-item__image-img",
		PlaceholderTitle: "Shop on eBay",
	}
}
