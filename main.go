package main

import (
	"context"
	"encoding/csv"
	"os"
	"os/signal"
	"syscall"

	"marketscrape/listingworker/config"
	"marketscrape/listingworker/helpers"
	"marketscrape/listingworker/internal/currency"
	"marketscrape/listingworker/internal/job"
	"marketscrape/listingworker/internal/scraper"
	"marketscrape/listingworker/logger"
	"marketscrape/listingworker/services/cache"
	"marketscrape/listingworker/services/publisher"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if len(os.Args) > 1 {
		cfg.BaseURL = os.Args[1]
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("base_url", cfg.BaseURL).
		Int("max_pages", cfg.MaxPages).
		Msg("Starting application")

	helpers.SetTimeout(cfg.FetchTimeout)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	cacheSvc := cache.NewMemcacheService(cfg.MemcacheAddr)
	logger.Info("Using Memcache at %s for fetch block markers", cfg.MemcacheAddr)

	var pub publisher.Publisher
	if cfg.RedisAddr != "" {
		redisPub := publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMax)
		defer redisPub.Close()
		pub = redisPub
		logger.Info("Publishing listings to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	// Wire the crawl components around one shared status log
	status := job.NewStatusLog()
	fetcher := scraper.NewPageFetcher(scraper.FetcherConfig{
		MaxAttempts: cfg.FetchMaxAttempts,
		CacheKey:    "listing_fetch_blocked",
	}, cacheSvc, status)
	extractor := scraper.NewExtractor(
		scraper.DefaultSelectors(),
		currency.NewNormalizer(currency.DefaultRates()),
		status,
	)
	paginator := scraper.NewPaginator(cfg.PageParam)

	j := job.New(cfg.BaseURL, job.Options{
		MaxPages:  cfg.MaxPages,
		DelayMin:  cfg.DelayMin,
		DelayMax:  cfg.DelayMax,
		Fetcher:   fetcher,
		Extractor: extractor,
		Paginator: paginator,
		Publisher: pub,
		Status:    status,
	})

	// Run the job and wait for either completion or a shutdown signal
	done := j.Start(ctx)

	var final job.State
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal, stopping at next page boundary")
		j.RequestStop()
		final = <-done
	case final = <-done:
	}

	products := j.Products()
	log.Info().
		Str("state", final.String()).
		Int("products", len(products)).
		Float64("progress", j.Progress()).
		Msg("Scrape finished")

	// Tabular export is a host concern, outside the crawl core.
	outPath := os.Getenv("OUTPUT_CSV")
	if outPath == "" {
		outPath = "listings.csv"
	}
	if err := writeCSV(outPath, products); err != nil {
		log.Error().Err(err).Str("path", outPath).Msg("CSV export failed")
		return
	}
	log.Info().Str("path", outPath).Msg("CSV written")
}

// writeCSV exports the collected listings as tabular data
func writeCSV(path string, listings []scraper.Listing) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"title", "price", "product_url", "image_url"}); err != nil {
		return err
	}
	for _, l := range listings {
		if err := w.Write([]string{l.Title, l.Price, l.URL, l.ImageURL}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
