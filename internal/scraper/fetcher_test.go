package scraper

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"marketscrape/listingworker/helpers"
	apperrors "marketscrape/listingworker/pkg/errors"
)

// mapCacheService is an in-memory stand-in for the memcache service
type mapCacheService struct {
	data   map[string][]byte
	setErr error
}

func newMapCacheService() *mapCacheService {
	return &mapCacheService{data: map[string][]byte{}}
}

func (m *mapCacheService) Get(key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("cache miss")
}

func (m *mapCacheService) Set(key string, value []byte, expiration time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *mapCacheService) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func TestFetchFirstAttemptSucceeds(t *testing.T) {
	rec := &testRecorder{}
	f := NewPageFetcher(FetcherConfig{}, nil, rec)

	calls := 0
	f.fetchFunc = func(url string) (io.Reader, error) {
		calls++
		return strings.NewReader("<html></html>"), nil
	}

	body, err := f.Fetch("https://www.ebay.com/sch/i.html?_nkw=lens")
	assert.NoError(t, err)
	assert.NotNil(t, body)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, rec.count("Error fetching"))
}

func TestFetchRetriesThenGivesUp(t *testing.T) {
	rec := &testRecorder{}
	f := NewPageFetcher(FetcherConfig{MaxAttempts: 3, BackoffBase: time.Millisecond}, nil, rec)

	calls := 0
	f.fetchFunc = func(url string) (io.Reader, error) {
		calls++
		return nil, fmt.Errorf("connection refused")
	}
	var waits []time.Duration
	f.sleepFunc = func(d time.Duration) { waits = append(waits, d) }

	_, err := f.Fetch("https://www.ebay.com/sch/i.html")
	assert.Error(t, err)
	assert.Equal(t, 3, calls)

	// One error event per attempt, a wait announcement between attempts,
	// and a single give-up event at the end.
	assert.Equal(t, 3, rec.count("Error fetching"))
	assert.Equal(t, 2, rec.count("Retrying in"))
	assert.Equal(t, 1, rec.count("Max retries reached. Moving on."))
	assert.Equal(t, 2, len(waits))

	var scrapeErr *apperrors.ScrapeError
	assert.True(t, errors.As(err, &scrapeErr))
	assert.Equal(t, apperrors.ErrorTypeTransport, scrapeErr.Type)
	assert.True(t, scrapeErr.IsRetryable())
}

func TestFetchBackoffDoubles(t *testing.T) {
	rec := &testRecorder{}
	base := 100 * time.Millisecond
	f := NewPageFetcher(FetcherConfig{MaxAttempts: 3, BackoffBase: base}, nil, rec)

	f.fetchFunc = func(url string) (io.Reader, error) {
		return nil, errors.New("boom")
	}
	var waits []time.Duration
	f.sleepFunc = func(d time.Duration) { waits = append(waits, d) }

	_, err := f.Fetch("https://example.com")
	assert.Error(t, err)
	assert.Equal(t, 2, len(waits))

	// Each wait is base*2^attempt plus up to a second of jitter.
	assert.GreaterOrEqual(t, waits[0], base)
	assert.Less(t, waits[0], base+time.Second)
	assert.GreaterOrEqual(t, waits[1], 2*base)
	assert.Less(t, waits[1], 2*base+time.Second)
}

func TestFetchEventuallySucceeds(t *testing.T) {
	rec := &testRecorder{}
	f := NewPageFetcher(FetcherConfig{MaxAttempts: 3, BackoffBase: time.Millisecond}, nil, rec)

	calls := 0
	f.fetchFunc = func(url string) (io.Reader, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("flaky")
		}
		return strings.NewReader("ok"), nil
	}
	f.sleepFunc = func(d time.Duration) {}

	body, err := f.Fetch("https://example.com")
	assert.NoError(t, err)
	assert.NotNil(t, body)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, rec.count("Error fetching"))
	assert.Equal(t, 0, rec.count("Max retries reached"))
}

func TestFetchRateLimitSetsBlockMarker(t *testing.T) {
	rec := &testRecorder{}
	cacheSvc := newMapCacheService()
	f := NewPageFetcher(FetcherConfig{
		MaxAttempts: 1,
		CacheKey:    "listing_fetch_blocked",
		BlockTime:   300 * time.Second,
	}, cacheSvc, rec)

	f.fetchFunc = func(url string) (io.Reader, error) {
		return nil, fmt.Errorf("%w; retry after 300s", helpers.ErrRateLimited)
	}
	f.sleepFunc = func(d time.Duration) {}

	_, err := f.Fetch("https://example.com")
	assert.Error(t, err)

	marker, getErr := cacheSvc.Get("listing_fetch_blocked")
	assert.NoError(t, getErr)
	assert.Equal(t, "300", string(marker))
}

func TestFetchFailsFastWhileBlocked(t *testing.T) {
	rec := &testRecorder{}
	cacheSvc := newMapCacheService()
	cacheSvc.data["listing_fetch_blocked"] = []byte("300")

	f := NewPageFetcher(FetcherConfig{CacheKey: "listing_fetch_blocked"}, cacheSvc, rec)

	calls := 0
	f.fetchFunc = func(url string) (io.Reader, error) {
		calls++
		return strings.NewReader("ok"), nil
	}

	_, err := f.Fetch("https://example.com")
	assert.Error(t, err)
	assert.Equal(t, 0, calls)
	assert.Contains(t, err.Error(), "blocked")
}
