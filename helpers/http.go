package helpers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"golang.org/x/net/html/charset"
)

// ErrRateLimited is returned when the remote site answers 429/430.
var ErrRateLimited = errors.New("rate limited")

// HTTP client and header configurations
var (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// Header set biasing the marketplace toward canonical-currency,
	// en-US responses.
	browserHeaders = map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
		"Cache-Control":   "no-cache",
		"Pragma":          "no-cache",
		"Referer":         "https://www.ebay.com/",
		"Accept-Currency": "USD",
		"X-Currency":      "USD",
		"Currency":        "USD",
	}

	// Cookies seeded on every request so the site serves USD prices and
	// US-locale markup instead of geo-detected variants.
	currencyCookies = []*http.Cookie{
		{Name: "nonsession", Value: "1"},
		{Name: "ebay", Value: "%5Esbf%3D%23%5E"},
		{Name: "dp1", Value: "bcurrency/1"},
		{Name: "cid", Value: "USD"},
		{Name: "apcid", Value: "1"},
		{Name: "localization", Value: "US"},
		{Name: "gl_gl", Value: "US"},
	}

	// HTTP client with timeout
	client = &http.Client{
		Timeout: 10 * time.Second,
	}
)

// SetTimeout adjusts the shared client timeout. Call before the first fetch.
func SetTimeout(d time.Duration) {
	client.Timeout = d
}

// FetchListingPage sends an HTTP GET request with browser-like headers and
// the pre-seeded currency cookies, converts the response body to UTF-8 (if
// needed), and returns it as an io.Reader.
func FetchListingPage(url string) (io.Reader, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range browserHeaders {
		req.Header.Set(key, value)
	}
	for _, c := range currencyCookies {
		req.AddCookie(c)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}

	// Check for rate limiting
	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		retryAfter := resp.Header.Get("Retry-After")
		resp.Body.Close()
		return nil, fmt.Errorf("%w; retry after %s", ErrRateLimited, retryAfter)
	}

	// Check for other error status codes
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s unexpected status code: %d", url, resp.StatusCode)
	}

	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// Determine the encoding from Content-Type header and body content
	encoding, name, _ := charset.DetermineEncoding(bodyBytes, resp.Header.Get("Content-Type"))

	// If already UTF-8, return as is
	if name == "utf-8" || name == "UTF-8" {
		return bytes.NewReader(bodyBytes), nil
	}

	// Convert to UTF-8 if necessary
	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(bodyBytes))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}

	return &buf, nil
}
