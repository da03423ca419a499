package job

import (
	"context"
	"encoding/json"
	"math"
	mathrand "math/rand"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"

	"marketscrape/listingworker/internal/scraper"
	"marketscrape/listingworker/logger"
	apperrors "marketscrape/listingworker/pkg/errors"
	"marketscrape/listingworker/services/publisher"
)

// State is the lifecycle state of a scrape job
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateStopped
	StateFailed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Query parameters appended to the base URL to force canonical-currency,
// single-locale result pages.
const currencyParams = "_ccy=1&_fmt=US&_dmd=1"

// Options configures a ScrapeJob
type Options struct {
	// MaxPages bounds the crawl; 0 means unbounded.
	MaxPages int

	// Politeness delay bounds between page fetches.
	DelayMin time.Duration
	DelayMax time.Duration

	Fetcher   *scraper.PageFetcher
	Extractor *scraper.Extractor
	Paginator *scraper.Paginator

	// Publisher is optional; when set, every collected listing is
	// published as it is found.
	Publisher publisher.Publisher

	// Status lets the caller share one status log between the job and
	// the components it wires (fetcher, extractor). Created when nil.
	Status *StatusLog
}

// ScrapeJob drives the fetch, extract, paginate loop for one crawl
// invocation. A single worker owns the loop; external callers may poll
// State, Progress, Products and StatusLog concurrently and request a
// cooperative stop, which is honored at the next loop boundary.
type ScrapeJob struct {
	baseURL  string
	maxPages int
	delayMin time.Duration
	delayMax time.Duration

	fetcher   *scraper.PageFetcher
	extractor *scraper.Extractor
	paginator *scraper.Paginator
	pub       publisher.Publisher

	status *StatusLog
	log    *logger.Logger

	mu       sync.RWMutex
	products []scraper.Listing

	state         atomic.Int32
	stopRequested atomic.Bool
	progressBits  atomic.Uint64

	sleepFunc func(d time.Duration)
}

// New creates a scrape job for one invocation. The currency-forcing query
// parameters are appended to the base URL up front, matching what the
// fetcher's cookies request.
func New(baseURL string, opts Options) *ScrapeJob {
	if strings.Contains(baseURL, "?") {
		baseURL += "&" + currencyParams
	} else {
		baseURL += "?" + currencyParams
	}

	if opts.DelayMin <= 0 {
		opts.DelayMin = 1500 * time.Millisecond
	}
	if opts.DelayMax < opts.DelayMin {
		opts.DelayMax = opts.DelayMin + 2*time.Second
	}
	if opts.Status == nil {
		opts.Status = NewStatusLog()
	}

	j := &ScrapeJob{
		baseURL:   baseURL,
		maxPages:  opts.MaxPages,
		delayMin:  opts.DelayMin,
		delayMax:  opts.DelayMax,
		fetcher:   opts.Fetcher,
		extractor: opts.Extractor,
		paginator: opts.Paginator,
		pub:       opts.Publisher,
		status:    opts.Status,
		log:       logger.ForJob(),
		sleepFunc: time.Sleep,
	}
	j.state.Store(int32(StateIdle))
	return j
}

// BaseURL returns the effective base URL (currency parameters included)
func (j *ScrapeJob) BaseURL() string {
	return j.baseURL
}

// Status returns the job's status log; it implements scraper.StatusRecorder
// and should be handed to the fetcher and extractor at wiring time.
func (j *ScrapeJob) Status() *StatusLog {
	return j.status
}

// State returns the current lifecycle state
func (j *ScrapeJob) State() State {
	return State(j.state.Load())
}

// Progress returns the crawl progress in [0,1]
func (j *ScrapeJob) Progress() float64 {
	return math.Float64frombits(j.progressBits.Load())
}

// Products returns a snapshot of the listings collected so far
func (j *ScrapeJob) Products() []scraper.Listing {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]scraper.Listing, len(j.products))
	copy(out, j.products)
	return out
}

// StatusLog returns a snapshot of the status events recorded so far
func (j *ScrapeJob) StatusLog() []StatusEvent {
	return j.status.Snapshot()
}

// RequestStop asks the running loop to stop at the next loop boundary.
// An in-flight fetch or politeness sleep is not interrupted, so the
// cancellation latency is bounded by one page's worth of work.
func (j *ScrapeJob) RequestStop() {
	j.stopRequested.Store(true)
}

// Start runs the job in its own goroutine and returns a channel that
// yields the terminal state.
func (j *ScrapeJob) Start(ctx context.Context) <-chan State {
	done := make(chan State, 1)
	go func() {
		done <- j.Run(ctx)
	}()
	return done
}

// Run executes the scrape loop until completion, exhaustion, a zero-result
// page, a fetch failure, or a stop request. It blocks the calling
// goroutine and returns the terminal state.
func (j *ScrapeJob) Run(ctx context.Context) State {
	if !j.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return j.State()
	}

	currentURL := j.baseURL
	page := 1
	fetchedOnce := false

	j.status.Recordf("Starting scrape for: %s", j.baseURL)
	j.status.Recordf("Maximum pages to scrape: %s", j.maxPagesLabel())

	for currentURL != "" {
		if j.cancelled(ctx) {
			j.status.Recordf("Scrape was stopped manually.")
			return j.finish(StateStopped, fetchedOnce)
		}

		j.status.Recordf("Scraping page %d...", page)

		body, err := j.fetcher.Fetch(currentURL)
		if err != nil {
			j.status.Recordf("Failed to fetch page content. Stopping.")
			j.log.Error().Err(err).Int("page", page).Msg("Fetch exhausted retries")
			return j.finish(StateFailed, fetchedOnce)
		}
		fetchedOnce = true

		doc, err := goquery.NewDocumentFromReader(body)
		if err != nil {
			j.status.Recordf("Failed to parse page content. Stopping.")
			j.log.Error().Err(err).Int("page", page).Msg("HTML parse failed")
			return j.finish(StateFailed, fetchedOnce)
		}

		listings := j.extractor.Extract(doc)
		if len(listings) == 0 {
			// End of results, not an error.
			j.status.Recordf("No products found on page %d. Stopping.", page)
			return j.finish(StateCompleted, fetchedOnce)
		}

		j.appendProducts(listings)
		j.publish(listings)
		j.status.Recordf("Found %d products on page %d. Total: %d", len(listings), page, len(j.Products()))

		if j.maxPages > 0 {
			j.setProgress(math.Min(1, float64(page)/float64(j.maxPages)))
		}

		delay := j.politenessDelay()
		j.status.Recordf("Waiting %.2f seconds before next request...", delay.Seconds())
		j.sleepFunc(delay)

		if j.maxPages > 0 && page >= j.maxPages {
			j.status.Recordf("Reached maximum number of pages (%d). Stopping.", j.maxPages)
			return j.finish(StateCompleted, fetchedOnce)
		}

		currentURL = j.paginator.NextURL(doc, page, j.baseURL)
		page++
	}

	// The paginator found no next-page signal; normal completion.
	return j.finish(StateCompleted, fetchedOnce)
}

func (j *ScrapeJob) finish(state State, fetchedOnce bool) State {
	j.state.Store(int32(state))
	if fetchedOnce {
		j.setProgress(1.0)
	}
	if state == StateCompleted {
		j.status.Recordf("Scraping complete. Total products collected: %d", len(j.Products()))
	}
	if j.pub != nil {
		if err := j.pub.TrimStream(); err != nil {
			j.log.Warn().Err(apperrors.NewPublisher("job", "stream trim failed", err)).Msg("Stream not trimmed")
		}
	}
	j.log.Info().
		Str("state", state.String()).
		Int("products", len(j.Products())).
		Msg("Scrape job finished")
	return state
}

func (j *ScrapeJob) cancelled(ctx context.Context) bool {
	if j.stopRequested.Load() {
		return true
	}
	return ctx != nil && ctx.Err() != nil
}

func (j *ScrapeJob) appendProducts(listings []scraper.Listing) {
	j.mu.Lock()
	j.products = append(j.products, listings...)
	j.mu.Unlock()
}

// publish pushes each listing to the configured publisher. Publish trouble
// is logged and never interrupts the crawl.
func (j *ScrapeJob) publish(listings []scraper.Listing) {
	if j.pub == nil {
		return
	}
	for _, listing := range listings {
		data, err := json.Marshal(listing)
		if err != nil {
			j.log.Warn().Err(err).Str("url", listing.URL).Msg("Listing not serializable")
			continue
		}
		if err := j.pub.Publish("listing", data); err != nil {
			pubErr := apperrors.NewPublisher("job", "listing publish failed", err)
			j.log.Warn().Err(pubErr).Str("url", listing.URL).Msg("Listing not published")
		}
	}
}

func (j *ScrapeJob) setProgress(v float64) {
	j.progressBits.Store(math.Float64bits(v))
}

func (j *ScrapeJob) politenessDelay() time.Duration {
	spread := j.delayMax - j.delayMin
	if spread <= 0 {
		return j.delayMin
	}
	return j.delayMin + time.Duration(mathrand.Float64()*float64(spread))
}

func (j *ScrapeJob) maxPagesLabel() string {
	if j.maxPages <= 0 {
		return "All"
	}
	return strconv.Itoa(j.maxPages)
}
