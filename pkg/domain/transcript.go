package domain

import "time"

// Status describes the outcome of a collection attempt for one video.
type Status string

const (
	// StatusSuccess means a full transcript was fetched and persisted.
	StatusSuccess Status = "success"

	// StatusPartial means a transcript was fetched but failed the
	// completeness quick-check (gaps, too few segments).
	StatusPartial Status = "partial"

	// StatusFailed means no transcript could be obtained. The record is
	// still persisted so "attempted but unavailable" is distinguishable
	// from "not yet attempted".
	StatusFailed Status = "failed"
)

// TranscriptSegment is one contiguous span of transcript text. Segment
// order within a record is the temporal order of the source recording.
type TranscriptSegment struct {
	// StartOffset is the offset from the start of the recording, in seconds.
	StartOffset float64 `json:"start_offset"`

	// Duration is how long the segment is spoken for, in seconds, when known.
	Duration float64 `json:"duration,omitempty"`

	Text string `json:"text"`
}

// End returns the offset at which the segment ends, in seconds.
func (s TranscriptSegment) End() float64 {
	return s.StartOffset + s.Duration
}

// TranscriptRecord is the persisted result of one collection attempt.
// Records are immutable after creation: a re-fetch produces a new record
// that replaces the old one by video id, never an in-place edit.
type TranscriptRecord struct {
	VideoID     string              `json:"video_id"`
	Channel     string              `json:"channel"`
	Title       string              `json:"title,omitempty"`
	PublishedAt *time.Time          `json:"published_at"`
	CollectedAt time.Time           `json:"collected_at"`
	Status      Status              `json:"status"`
	Error       string              `json:"error,omitempty"`
	Segments    []TranscriptSegment `json:"segments"`
}

// NewRecord builds a record for a completed fetch attempt.
func NewRecord(video VideoReference, status Status, segments []TranscriptSegment, fetchErr error) TranscriptRecord {
	rec := TranscriptRecord{
		VideoID:     video.ID,
		Channel:     video.Channel,
		Title:       video.Title,
		PublishedAt: video.PublishedAt,
		CollectedAt: time.Now().UTC(),
		Status:      status,
		Segments:    segments,
	}
	if rec.Segments == nil {
		rec.Segments = []TranscriptSegment{}
	}
	if fetchErr != nil {
		rec.Error = fetchErr.Error()
	}
	return rec
}

// WordCount returns the total number of whitespace-separated words
// across all segments.
func (r TranscriptRecord) WordCount() int {
	total := 0
	for _, seg := range r.Segments {
		inWord := false
		for _, c := range seg.Text {
			switch c {
			case ' ', '\t', '\n', '\r':
				inWord = false
			default:
				if !inWord {
					total++
				}
				inWord = true
			}
		}
	}
	return total
}

// TotalDuration sums the duration of all segments, in seconds.
func (r TranscriptRecord) TotalDuration() float64 {
	total := 0.0
	for _, seg := range r.Segments {
		total += seg.Duration
	}
	return total
}
