package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Paginator resolves the URL of the next result page. The primary signal
// is the page's pagination control; when the markup omits it, the page
// number query parameter on the base URL is incremented instead.
type Paginator struct {
	// PageParam is the page-number query parameter name.
	PageParam string

	// Selectors for the pagination control.
	Items string
	Next  string
}

// NewPaginator creates a paginator with the marketplace's defaults
func NewPaginator(pageParam string) *Paginator {
	if pageParam == "" {
		pageParam = "_pgn"
	}
	return &Paginator{
		PageParam: pageParam,
		Items:     ".pagination__items",
		Next:      ".pagination__next",
	}
}

// NextURL returns the URL of the page after currentPage, or "" when no
// pagination signal is available.
//
// Strategy order: a "next" control in the document wins; otherwise, when
// the base URL carries a query string, the page parameter is incremented
// in place (preserving every other parameter and their order) or appended.
// A base URL without a query string and without a control yields "".
func (p *Paginator) NextURL(doc *goquery.Document, currentPage int, baseURL string) string {
	if doc != nil && doc.Find(p.Items).Length() > 0 {
		if href, ok := doc.Find(p.Next).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
			return p.resolve(baseURL, strings.TrimSpace(href))
		}
	}

	basePart, query, found := strings.Cut(baseURL, "?")
	if !found {
		return ""
	}

	// url.Values is a map and would shuffle the parameters; split by hand
	// so their order survives the increment.
	params := strings.Split(query, "&")
	replaced := false
	for i, param := range params {
		if strings.HasPrefix(param, p.PageParam+"=") {
			params[i] = fmt.Sprintf("%s=%d", p.PageParam, currentPage+1)
			replaced = true
		}
	}
	if replaced {
		return basePart + "?" + strings.Join(params, "&")
	}
	return fmt.Sprintf("%s&%s=%d", baseURL, p.PageParam, currentPage+1)
}

// resolve joins a possibly relative pagination href against the base URL
func (p *Paginator) resolve(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
