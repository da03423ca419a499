package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"marketscrape/listingworker/helpers"
	"marketscrape/listingworker/internal/currency"
	"marketscrape/listingworker/logger"
	apperrors "marketscrape/listingworker/pkg/errors"
)

// Extractor parses one result page into Listing records. Field extraction
// runs layered fallback handlers in order, so a missing or malformed
// element degrades to a sentinel value instead of dropping the item; only
// a missing product URL discards a listing.
type Extractor struct {
	selectors Selectors
	norm      *currency.Normalizer
	status    StatusRecorder
	log       *logger.Logger

	titleHandlers []FieldHandler
	priceHandlers []FieldHandler
	linkHandlers  []FieldHandler
	imageHandlers []FieldHandler
}

// NewExtractor creates an extractor over the given selectors and normalizer
func NewExtractor(selectors Selectors, norm *currency.Normalizer, status StatusRecorder) *Extractor {
	e := &Extractor{
		selectors: selectors,
		norm:      norm,
		status:    status,
		log:       logger.ForExtractor(),
	}

	e.titleHandlers = []FieldHandler{
		func(s *goquery.Selection) string {
			return strings.TrimSpace(s.Find(selectors.Title).First().Text())
		},
	}

	e.priceHandlers = []FieldHandler{
		func(s *goquery.Selection) string {
			return strings.TrimSpace(s.Find(selectors.Price).First().Text())
		},
	}

	e.linkHandlers = []FieldHandler{
		func(s *goquery.Selection) string {
			href, _ := s.Find(selectors.Link).First().Attr("href")
			return strings.TrimSpace(href)
		},
	}

	// Image fallback order: lazy-load attribute, direct src (placeholder
	// gifs excluded), image nested in the media wrapper, then any secure
	// non-placeholder image in the item.
	e.imageHandlers = []FieldHandler{
		func(s *goquery.Selection) string {
			src, _ := s.Find(selectors.Image).First().Attr("data-src")
			return strings.TrimSpace(src)
		},
		func(s *goquery.Selection) string {
			src, ok := s.Find(selectors.Image).First().Attr("src")
			if !ok || strings.HasSuffix(src, "gif") {
				return ""
			}
			return strings.TrimSpace(src)
		},
		func(s *goquery.Selection) string {
			src, _ := s.Find(selectors.ImageWrapper).Find("img").First().Attr("src")
			return strings.TrimSpace(src)
		},
		func(s *goquery.Selection) string {
			var found string
			s.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
				src, ok := img.Attr("src")
				if ok && strings.Contains(src, "https://") && !strings.HasSuffix(src, "gif") {
					found = src
					return false
				}
				return true
			})
			return found
		},
	}

	return e
}

// Extract parses all listings out of a result page document. It never
// fails: a malformed item is logged, surfaced as a status event and
// skipped, and the rest of the page is still processed.
func (e *Extractor) Extract(doc *goquery.Document) []Listing {
	var listings []Listing

	doc.Find(e.selectors.ItemList).Each(func(_ int, s *goquery.Selection) {
		listing, err := e.safeProcessItem(s)
		if err != nil {
			e.status.Recordf("Error extracting product data: %v", err)
			e.log.Warn().Err(err).Msg("Skipping malformed item")
			return
		}
		if listing != nil {
			listings = append(listings, *listing)
		}
	})

	return listings
}

// safeProcessItem shields the page loop from a panicking field handler.
func (e *Extractor) safeProcessItem(s *goquery.Selection) (listing *Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			listing = nil
			err = apperrors.NewExtraction("extractor", fmt.Sprintf("item handler panic: %v", r), nil)
		}
	}()
	return e.processItem(s)
}

// processItem extracts a single listing from an item selection. A nil
// listing with nil error means the item was filtered, not failed.
func (e *Extractor) processItem(s *goquery.Selection) (*Listing, error) {
	title := strings.TrimSpace(applyHandlers(s, e.titleHandlers))

	// Filler tiles the site injects between results are not listings.
	if e.selectors.PlaceholderTitle != "" && strings.Contains(title, e.selectors.PlaceholderTitle) {
		return nil, nil
	}
	if title == "" {
		title = NoTitle
	}

	link := strings.TrimSpace(applyHandlers(s, e.linkHandlers))
	if link == "" {
		return nil, nil
	}

	listing := &Listing{
		Title: title,
		URL:   link,
		Price: NoPrice,
	}

	if raw := strings.TrimSpace(applyHandlers(s, e.priceHandlers)); raw != "" {
		listing.PriceRaw = raw
		listing.Price = e.resolvePrice(raw)
	}

	listing.ImageURL = strings.TrimSpace(applyHandlers(s, e.imageHandlers))

	return listing, nil
}

// resolvePrice cleans raw price text and brings it to canonical currency.
// Resolution order: already-canonical dollar text is reformatted, known
// foreign symbols are converted through the rate table, a bare dollar sign
// gets the canonical prefix, anything else is left as-is.
func (e *Extractor) resolvePrice(raw string) string {
	price := strings.TrimSpace(raw)

	// A range keeps only its lower bound; a per-unit price keeps the
	// prefix before the unit delimiter.
	price = strings.TrimSpace(helpers.SplitBefore(price, " to "))
	price = strings.TrimSpace(helpers.SplitBefore(price, "/"))

	price = coalesceNTDollar(price)

	switch {
	case strings.Contains(price, currency.CanonicalPrefix) || strings.HasPrefix(price, "$"):
		if run, ok := currency.NumericRun(price); ok {
			if amount, err := currency.ParseAmount(run); err == nil {
				price = currency.CanonicalPrefix + currency.FormatAmount(amount)
			} else {
				price = currency.CanonicalPrefix + run
			}
		}
	case e.norm.HasKnownSymbol(price):
		converted := e.norm.ToCanonical(price)
		if converted != price {
			e.status.Recordf("Converted currency: %s -> %s", price, converted)
		}
		price = converted
	case strings.Contains(price, "$"):
		price = "US " + price
	}

	return price
}

// coalesceNTDollar folds spacing and case variants of the NT$ symbol
// ("NT $", "nt$", a detached "NT") into the canonical form so the rate
// table can match it.
func coalesceNTDollar(price string) string {
	if strings.Contains(price, "NT$") {
		return price
	}
	if !strings.Contains(price, "NT $") && !strings.Contains(price, "nt$") && !strings.Contains(price, "NT") {
		return price
	}

	price = strings.ReplaceAll(price, "NT $", "NT$")
	price = strings.ReplaceAll(price, "nt$", "NT$")
	if strings.Contains(price, "NT") && strings.Contains(price, "$") && !strings.Contains(price, "NT$") {
		price = strings.ReplaceAll(price, "NT", "NT$")
		price = strings.ReplaceAll(price, "NT$$", "NT$")
	}
	return price
}
