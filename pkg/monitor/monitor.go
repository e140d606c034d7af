package monitor

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/timchilders/jre/pkg/domain"
)

// DailyStats aggregates one calendar day of collection activity.
type DailyStats struct {
	VideosProcessed   int `json:"videos_processed"`
	SegmentsCollected int `json:"segments_collected"`
	Errors            int `json:"errors"`
}

// Stats is the persisted statistics document. It survives across runs so
// progress over a long collection effort is visible in one place.
type Stats struct {
	RunID           string                `json:"run_id"`
	StartTime       time.Time             `json:"start_time"`
	LastUpdate      time.Time             `json:"last_update"`
	TotalVideos     int                   `json:"total_videos"`
	ProcessedVideos int                   `json:"processed_videos"`
	PartialVideos   int                   `json:"partial_videos"`
	FailedVideos    int                   `json:"failed_videos"`
	TotalSegments   int                   `json:"total_segments"`
	ErrorCounts     map[string]int        `json:"error_counts"`
	DailyStats      map[string]DailyStats `json:"daily_stats"`
	ProcessingMS    []int64               `json:"processing_times_ms"`
}

// Monitor tracks collection progress and persists it as a JSON stats file.
// Safe for concurrent use.
type Monitor struct {
	mu    sync.Mutex
	path  string
	stats Stats
}

// New loads existing statistics from path, or initializes fresh ones. Each
// call starts a new run id.
func New(path string) *Monitor {
	m := &Monitor{path: path}
	m.stats = loadStats(path)
	m.stats.RunID = uuid.NewString()
	return m
}

func loadStats(path string) Stats {
	now := time.Now().UTC()
	fresh := Stats{
		StartTime:   now,
		LastUpdate:  now,
		ErrorCounts: make(map[string]int),
		DailyStats:  make(map[string]DailyStats),
	}

	if path == "" {
		return fresh
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fresh
	}

	var stats Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		log.Printf("Monitor: could not parse existing stats file %s: %v", path, err)
		return fresh
	}
	if stats.ErrorCounts == nil {
		stats.ErrorCounts = make(map[string]int)
	}
	if stats.DailyStats == nil {
		stats.DailyStats = make(map[string]DailyStats)
	}
	return stats
}

// RecordProcessed updates statistics after one video attempt completes.
func (m *Monitor) RecordProcessed(rec domain.TranscriptRecord, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.TotalVideos++
	switch rec.Status {
	case domain.StatusSuccess:
		m.stats.ProcessedVideos++
		m.stats.TotalSegments += len(rec.Segments)
	case domain.StatusPartial:
		m.stats.PartialVideos++
		m.stats.TotalSegments += len(rec.Segments)
	default:
		m.stats.FailedVideos++
	}

	if elapsed > 0 {
		m.stats.ProcessingMS = append(m.stats.ProcessingMS, elapsed.Milliseconds())
	}

	today := time.Now().UTC().Format("2006-01-02")
	daily := m.stats.DailyStats[today]
	daily.VideosProcessed++
	daily.SegmentsCollected += len(rec.Segments)
	if rec.Status == domain.StatusFailed {
		daily.Errors++
	}
	m.stats.DailyStats[today] = daily

	m.stats.LastUpdate = time.Now().UTC()
	m.save()
}

// RecordError counts an error by type without tying it to a record.
func (m *Monitor) RecordError(errType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.ErrorCounts[errType]++
	today := time.Now().UTC().Format("2006-01-02")
	daily := m.stats.DailyStats[today]
	daily.Errors++
	m.stats.DailyStats[today] = daily

	m.stats.LastUpdate = time.Now().UTC()
	m.save()
}

// save writes the stats file. Best-effort: a stats write failure must never
// abort collection.
func (m *Monitor) save() {
	if m.path == "" {
		return
	}
	data, err := json.MarshalIndent(m.stats, "", "  ")
	if err != nil {
		log.Printf("Monitor: encode stats: %v", err)
		return
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		log.Printf("Monitor: write stats file: %v", err)
	}
}

// Summary is a point-in-time roll-up of the statistics.
type Summary struct {
	RunID           string
	Started         time.Time
	LastUpdate      time.Time
	TotalVideos     int
	ProcessedVideos int
	PartialVideos   int
	FailedVideos    int
	TotalSegments   int
	SuccessRate     string
	AvgProcessing   time.Duration
	ErrorCounts     map[string]int
}

// Snapshot returns a copy of the current summary.
func (m *Monitor) Snapshot() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Summary{
		RunID:           m.stats.RunID,
		Started:         m.stats.StartTime,
		LastUpdate:      m.stats.LastUpdate,
		TotalVideos:     m.stats.TotalVideos,
		ProcessedVideos: m.stats.ProcessedVideos,
		PartialVideos:   m.stats.PartialVideos,
		FailedVideos:    m.stats.FailedVideos,
		TotalSegments:   m.stats.TotalSegments,
		SuccessRate:     "N/A",
		ErrorCounts:     make(map[string]int, len(m.stats.ErrorCounts)),
	}
	for k, v := range m.stats.ErrorCounts {
		s.ErrorCounts[k] = v
	}

	if m.stats.TotalVideos > 0 {
		s.SuccessRate = fmt.Sprintf("%.2f%%", float64(m.stats.ProcessedVideos)/float64(m.stats.TotalVideos)*100)
	}
	if len(m.stats.ProcessingMS) > 0 {
		var total int64
		for _, ms := range m.stats.ProcessingMS {
			total += ms
		}
		s.AvgProcessing = time.Duration(total/int64(len(m.stats.ProcessingMS))) * time.Millisecond
	}

	return s
}
