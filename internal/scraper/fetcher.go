package scraper

import (
	"errors"
	"fmt"
	"io"
	mathrand "math/rand"
	"time"

	"marketscrape/listingworker/helpers"
	"marketscrape/listingworker/logger"
	apperrors "marketscrape/listingworker/pkg/errors"
	"marketscrape/listingworker/services/cache"
)

// FetcherConfig configures the retry behavior of a PageFetcher
type FetcherConfig struct {
	// MaxAttempts is the total number of attempts per page (default 3).
	MaxAttempts int

	// BackoffBase is multiplied by 2^attempt between attempts (default 1s).
	BackoffBase time.Duration

	// CacheKey and BlockTime control the rate-limit block marker. With an
	// empty key (or nil cache service) no marker is kept.
	CacheKey  string
	BlockTime time.Duration
}

// PageFetcher fetches result pages with retries. Each attempt sends the
// browser-like header and cookie set; failures back off exponentially with
// a random jitter so concurrent workers don't retry in lockstep. Every
// attempt and the final give-up are surfaced as status events.
type PageFetcher struct {
	maxAttempts int
	backoffBase time.Duration
	cacheKey    string
	blockTime   time.Duration

	cacheSvc cache.CacheService
	status   StatusRecorder
	log      *logger.Logger

	// Injection points for tests.
	fetchFunc func(url string) (io.Reader, error)
	sleepFunc func(d time.Duration)
}

// NewPageFetcher creates a fetcher; cacheSvc may be nil
func NewPageFetcher(cfg FetcherConfig, cacheSvc cache.CacheService, status StatusRecorder) *PageFetcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BlockTime <= 0 {
		cfg.BlockTime = 300 * time.Second
	}
	return &PageFetcher{
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
		cacheKey:    cfg.CacheKey,
		blockTime:   cfg.BlockTime,
		cacheSvc:    cacheSvc,
		status:      status,
		log:         logger.ForFetcher(),
		fetchFunc:   helpers.FetchListingPage,
		sleepFunc:   time.Sleep,
	}
}

// Fetch retrieves a page's content, retrying transport and HTTP-status
// failures up to the attempt limit. On exhaustion it returns a transport
// error; the caller decides whether that ends the whole job.
func (f *PageFetcher) Fetch(url string) (io.Reader, error) {
	if f.cacheSvc != nil && f.cacheKey != "" {
		if _, err := f.cacheSvc.Get(f.cacheKey); err == nil {
			return nil, apperrors.NewTransport("fetcher",
				fmt.Sprintf("%s: blocked for %ds after rate limiting", f.cacheKey, f.blockTime/time.Second), nil)
		}
	}

	var lastErr error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		body, err := f.fetchFunc(url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		f.status.Recordf("Error fetching %s: %v", url, err)
		f.log.Warn().Err(err).Int("attempt", attempt+1).Str("url", url).Msg("Fetch attempt failed")

		if errors.Is(err, helpers.ErrRateLimited) {
			f.markBlocked()
		}

		if attempt < f.maxAttempts-1 {
			wait := f.backoffBase*(1<<attempt) + time.Duration(mathrand.Float64()*float64(time.Second))
			f.status.Recordf("Retrying in %.2f seconds...", wait.Seconds())
			f.sleepFunc(wait)
		} else {
			f.status.Recordf("Max retries reached. Moving on.")
		}
	}

	return nil, apperrors.NewTransport("fetcher", fmt.Sprintf("fetch %s exhausted %d attempts", url, f.maxAttempts), lastErr)
}

// markBlocked records a rate-limit block marker so a restarted job does
// not immediately re-hit the site. Cache trouble never fails the fetch.
func (f *PageFetcher) markBlocked() {
	if f.cacheSvc == nil || f.cacheKey == "" {
		return
	}
	value := []byte(fmt.Sprintf("%d", f.blockTime/time.Second))
	if err := f.cacheSvc.Set(f.cacheKey, value, f.blockTime); err != nil {
		cacheErr := apperrors.NewCache("fetcher", "failed to set block marker", err)
		f.log.Warn().Err(cacheErr).Msg("Block marker not recorded")
	}
}
