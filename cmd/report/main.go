package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/timchilders/jre/pkg/config"
	"github.com/timchilders/jre/pkg/domain"
	"github.com/timchilders/jre/pkg/index"
	"github.com/timchilders/jre/pkg/monitor"
	"github.com/timchilders/jre/pkg/quality"
	"github.com/timchilders/jre/pkg/store"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file (optional)")
		outputPath = flag.String("output", "", "Transcript store directory")
		statsPath  = flag.String("stats", "", "Collection statistics file")
		withIndex  = flag.Bool("index", false, "Also report segment index counts")
		verbose    = flag.Bool("verbose", false, "List each record with its quality issues")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *outputPath != "" {
		cfg.OutputPath = *outputPath
	}
	if *statsPath != "" {
		cfg.StatsPath = *statsPath
	}

	recordStore, err := store.Open(cfg.OutputPath)
	if err != nil {
		log.Fatalf("Failed to open transcript store: %v", err)
	}

	records, err := recordStore.List()
	if err != nil {
		log.Fatalf("Failed to list records: %v", err)
	}

	printStoreSummary(recordStore.Dir(), records)
	printQualityReport(records, *verbose)
	printStats(cfg.StatsPath)

	if *withIndex {
		if err := printIndexCounts(context.Background(), cfg.Index); err != nil {
			log.Fatalf("Failed to read segment index: %v", err)
		}
	}
}

func printStoreSummary(dir string, records []domain.TranscriptRecord) {
	byStatus := make(map[domain.Status]int)
	byChannel := make(map[string]int)
	segments := 0
	words := 0
	for _, rec := range records {
		byStatus[rec.Status]++
		byChannel[rec.Channel]++
		segments += len(rec.Segments)
		words += rec.WordCount()
	}

	fmt.Printf("Transcript store (%s)\n", dir)
	fmt.Printf("  records:  %d (%d success, %d partial, %d failed)\n",
		len(records), byStatus[domain.StatusSuccess], byStatus[domain.StatusPartial], byStatus[domain.StatusFailed])
	fmt.Printf("  segments: %d\n", segments)
	fmt.Printf("  words:    %d\n", words)

	channels := make([]string, 0, len(byChannel))
	for ch := range byChannel {
		channels = append(channels, ch)
	}
	sort.Strings(channels)
	for _, ch := range channels {
		name := ch
		if name == "" {
			name = "(unknown)"
		}
		fmt.Printf("  channel %s: %d records\n", name, byChannel[ch])
	}
	fmt.Println()
}

func printQualityReport(records []domain.TranscriptRecord, verbose bool) {
	report := quality.BuildReport(records)

	fmt.Printf("Quality\n")
	fmt.Printf("  complete:    %d/%d\n", report.Complete, report.Total)
	fmt.Printf("  with issues: %d\n", report.WithIssues)

	codes := make([]string, 0, len(report.Issues))
	for code := range report.Issues {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Printf("  %-20s %d\n", code, report.Issues[code])
	}

	if len(report.DuplicateTitles) > 0 {
		titles := make([]string, 0, len(report.DuplicateTitles))
		for title := range report.DuplicateTitles {
			titles = append(titles, title)
		}
		sort.Strings(titles)
		fmt.Printf("  duplicate titles:\n")
		for _, title := range titles {
			fmt.Printf("    %q: %v\n", title, report.DuplicateTitles[title])
		}
	}

	if verbose {
		for _, rec := range records {
			issues := quality.ValidateRecord(rec)
			if rec.Status != domain.StatusFailed {
				issues = append(issues, quality.CheckCompleteness(rec.Segments)...)
			}
			if len(issues) == 0 {
				continue
			}
			fmt.Printf("  %s (%s):\n", rec.VideoID, rec.Status)
			for _, issue := range issues {
				fmt.Printf("    - %s\n", issue)
			}
		}
	}
	fmt.Println()
}

// printStats reads the statistics file written by the collect command.
// A missing file just means no run has happened yet.
func printStats(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		log.Printf("Could not read stats file %s: %v", path, err)
		return
	}

	var stats monitor.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		log.Printf("Could not parse stats file %s: %v", path, err)
		return
	}

	fmt.Printf("Collection runs (since %s)\n", stats.StartTime.Format("2006-01-02"))
	fmt.Printf("  last run:  %s (%s)\n", stats.RunID, stats.LastUpdate.Format("2006-01-02 15:04"))
	fmt.Printf("  processed: %d videos, %d segments\n", stats.TotalVideos, stats.TotalSegments)

	days := make([]string, 0, len(stats.DailyStats))
	for day := range stats.DailyStats {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		d := stats.DailyStats[day]
		fmt.Printf("  %s: %d videos, %d segments, %d errors\n", day, d.VideosProcessed, d.SegmentsCollected, d.Errors)
	}

	if len(stats.ErrorCounts) > 0 {
		types := make([]string, 0, len(stats.ErrorCounts))
		for t := range stats.ErrorCounts {
			types = append(types, t)
		}
		sort.Strings(types)
		fmt.Printf("  errors:\n")
		for _, t := range types {
			fmt.Printf("    %-20s %d\n", t, stats.ErrorCounts[t])
		}
	}
	fmt.Println()
}

func printIndexCounts(ctx context.Context, cfg config.IndexConfig) error {
	var provider index.DBProvider
	var closeFn func() error

	switch cfg.Driver {
	case "postgres":
		client := index.NewPostgresClient(index.PostgresConfig{DSN: cfg.PostgresDSN})
		if err := client.Connect(ctx); err != nil {
			return err
		}
		provider, closeFn = client, client.Close
	default:
		client := index.NewSQLiteClient(cfg.SQLitePath)
		if err := client.Connect(ctx); err != nil {
			return err
		}
		provider, closeFn = client, client.Close
	}
	defer closeFn()

	ix, err := index.New(provider)
	if err != nil {
		return err
	}

	byStatus, segments, err := ix.Counts(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Segment index (%s)\n", cfg.Driver)
	statuses := make([]string, 0, len(byStatus))
	for status := range byStatus {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Printf("  %-8s %d videos\n", status, byStatus[status])
	}
	fmt.Printf("  segments %d\n", segments)
	return nil
}
