package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/timchilders/jre/pkg/collector"
	"github.com/timchilders/jre/pkg/config"
	"github.com/timchilders/jre/pkg/domain"
	"github.com/timchilders/jre/pkg/filter"
	"github.com/timchilders/jre/pkg/index"
	"github.com/timchilders/jre/pkg/monitor"
	"github.com/timchilders/jre/pkg/replication"
	"github.com/timchilders/jre/pkg/store"
	"github.com/timchilders/jre/pkg/youtube"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Path to YAML config file (optional)")
		channelID    = flag.String("channel", "", "YouTube channel ID to collect from")
		keywords     = flag.String("keywords", "", `Comma-separated title keywords to keep ("default" for the built-in list)`)
		maxVideos    = flag.Int("max", 0, "Max videos to collect this run (<=0 means config/default)")
		workers      = flag.Int("workers", 0, "Number of parallel fetch workers")
		ratePerMin   = flag.Int("rate", 0, "Max transcript requests per minute")
		maxRetries   = flag.Int("retries", -1, "Retries per video after the first attempt")
		outputPath   = flag.String("output", "", "Transcript store directory")
		skipExisting = flag.Bool("skip-existing", true, "Skip videos that already have a stored record")
		reindex      = flag.Bool("reindex", true, "Replicate new records into the segment index after collecting")
		afterDate    = flag.String("published-after", "", "Only collect videos published on or after this date (YYYY-MM-DD)")
		beforeDate   = flag.String("published-before", "", "Only collect videos published before this date (YYYY-MM-DD)")
	)
	flag.Parse()

	window, err := parseDateWindow(*afterDate, *beforeDate)
	if err != nil {
		log.Fatalf("Invalid date window: %v", err)
	}

	cfg := loadConfig(*configPath)
	if *channelID != "" {
		cfg.ChannelID = *channelID
	}
	if *keywords != "" {
		if *keywords == "default" {
			cfg.Keywords = filter.DefaultKeywords
		} else {
			cfg.Keywords = strings.Split(*keywords, ",")
		}
	}
	if *maxVideos > 0 {
		cfg.MaxVideos = *maxVideos
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *ratePerMin > 0 {
		cfg.RateLimitPerMinute = *ratePerMin
	}
	if *maxRetries >= 0 {
		cfg.MaxRetries = *maxRetries
	}
	if *outputPath != "" {
		cfg.OutputPath = *outputPath
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	recordStore, err := store.Open(cfg.OutputPath)
	if err != nil {
		log.Fatalf("Failed to open transcript store: %v", err)
	}

	mon := monitor.New(cfg.StatsPath)

	videos, err := discover(ctx, cfg, recordStore, *skipExisting, window)
	if err != nil {
		log.Fatalf("Video discovery failed: %v", err)
	}
	if len(videos) == 0 {
		log.Printf("Nothing to collect for channel %s", cfg.ChannelID)
		return
	}

	coll, err := collector.New(collector.Config{
		Fetcher:       youtube.NewClient(youtube.WithLanguage(cfg.Language)),
		Store:         recordStore,
		Monitor:       mon,
		RatePerMinute: cfg.RateLimitPerMinute,
		MaxRetries:    cfg.MaxRetries,
		Workers:       cfg.Workers,
	})
	if err != nil {
		log.Fatalf("Failed to build collector: %v", err)
	}

	start := time.Now()
	log.Printf("Collecting transcripts for %d videos from channel %s (rate=%d/min, retries=%d, workers=%d)",
		len(videos), cfg.ChannelID, cfg.RateLimitPerMinute, cfg.MaxRetries, cfg.Workers)

	records, err := coll.Collect(ctx, videos)
	if err != nil {
		log.Fatalf("Collection aborted after %d records: %v", len(records), err)
	}

	summary := mon.Snapshot()
	log.Printf("Collection done in %s: %d success, %d partial, %d failed, %d segments",
		time.Since(start).Round(time.Second),
		summary.ProcessedVideos, summary.PartialVideos, summary.FailedVideos, summary.TotalSegments)

	if *reindex {
		if err := replicate(ctx, cfg, recordStore); err != nil {
			log.Fatalf("Index replication failed: %v", err)
		}
	}
}

func loadConfig(path string) config.Config {
	if path == "" {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// parseDateWindow builds a publish window filter from the date flags.
// Returns nil when neither flag is set.
func parseDateWindow(after, before string) (*filter.PublishedBetweenFilter, error) {
	if after == "" && before == "" {
		return nil, nil
	}

	var from, to time.Time
	var err error
	if after != "" {
		if from, err = time.Parse("2006-01-02", after); err != nil {
			return nil, fmt.Errorf("parse -published-after: %w", err)
		}
	}
	if before != "" {
		if to, err = time.Parse("2006-01-02", before); err != nil {
			return nil, fmt.Errorf("parse -published-before: %w", err)
		}
	}
	if !to.IsZero() && !from.Before(to) {
		return nil, fmt.Errorf("-published-after %s is not before -published-before %s", after, before)
	}
	return filter.NewPublishedBetweenFilter(from, to), nil
}

// discover fetches the channel upload feed, enriches references missing a
// publish date, and applies the configured filters.
func discover(ctx context.Context, cfg config.Config, recordStore *store.Store, skipExisting bool, window *filter.PublishedBetweenFilter) ([]domain.VideoReference, error) {
	refs, err := youtube.NewFeedDiscoverer().Discover(ctx, cfg.ChannelID)
	if err != nil {
		return nil, err
	}
	log.Printf("Discovered %d videos on channel %s", len(refs), cfg.ChannelID)

	scraper := youtube.NewMetadataScraper()
	for i, ref := range refs {
		if ref.PublishedAt != nil {
			continue
		}
		enriched, err := scraper.Enrich(ctx, ref)
		if err != nil {
			log.Printf("Metadata enrichment failed for %s: %v", ref.ID, err)
			continue
		}
		refs[i] = enriched
	}

	var filters []filter.Filter
	if len(cfg.Keywords) > 0 {
		filters = append(filters, filter.NewKeywordFilter(cfg.Keywords))
	}
	if window != nil {
		filters = append(filters, window)
	}
	if skipExisting {
		collected, err := recordStore.CollectedIDs()
		if err != nil {
			return nil, err
		}
		filters = append(filters, filter.NewAlreadyCollectedFilter(collected))
	}

	refs, err = filter.Videos(ctx, refs, filters...)
	if err != nil {
		return nil, err
	}
	log.Printf("%d videos remain after filtering", len(refs))

	if cfg.MaxVideos > 0 && len(refs) > cfg.MaxVideos {
		refs = refs[:cfg.MaxVideos]
	}
	return refs, nil
}

// replicate copies newly stored records into the configured segment index.
func replicate(ctx context.Context, cfg config.Config, recordStore *store.Store) error {
	provider, closeFn, err := openIndexClient(ctx, cfg.Index)
	if err != nil {
		return err
	}
	defer closeFn()

	ix, err := index.New(provider)
	if err != nil {
		return err
	}

	repl, err := replication.New(replication.Config{Store: recordStore, Index: ix})
	if err != nil {
		return err
	}

	indexed, err := repl.ReplicateStoreToIndex(ctx)
	if err != nil {
		return err
	}
	log.Printf("Indexed %d new records", indexed)
	return nil
}

func openIndexClient(ctx context.Context, cfg config.IndexConfig) (index.DBProvider, func() error, error) {
	switch cfg.Driver {
	case "postgres":
		client := index.NewPostgresClient(index.PostgresConfig{DSN: cfg.PostgresDSN})
		if err := client.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	default:
		client := index.NewSQLiteClient(cfg.SQLitePath)
		if err := client.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	}
}
