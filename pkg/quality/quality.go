package quality

import (
	"fmt"
	"strings"
	"time"

	"github.com/timchilders/jre/pkg/domain"
)

const (
	// minSegments is the minimum segment count below which a transcript is
	// considered suspiciously short.
	minSegments = 10

	// maxGapSeconds is the largest silence between consecutive segments
	// before we flag a gap.
	maxGapSeconds = 5.0

	// minSegmentChars flags segments with almost no text.
	minSegmentChars = 5
)

// earliestPublish is the oldest plausible publish date for collected
// episodes. Anything before it is treated as a metadata error.
var earliestPublish = time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

// Issue describes one problem found in a record.
type Issue struct {
	Code   string
	Detail string
}

func (i Issue) String() string {
	return i.Code + ": " + i.Detail
}

// CheckCompleteness inspects a fetched segment sequence for structural
// problems: too few segments, time gaps, near-empty segments, duplicated
// text. An empty issue list means the transcript looks complete.
func CheckCompleteness(segments []domain.TranscriptSegment) []Issue {
	var issues []Issue

	if len(segments) == 0 {
		return []Issue{{Code: "no_segments", Detail: "no transcript segments"}}
	}

	if len(segments) < minSegments {
		issues = append(issues, Issue{
			Code:   "segment_count",
			Detail: fmt.Sprintf("low segment count: %d", len(segments)),
		})
	}

	gaps := 0
	for i := 0; i < len(segments)-1; i++ {
		if segments[i+1].StartOffset-segments[i].End() > maxGapSeconds {
			gaps++
		}
	}
	if gaps > 0 {
		issues = append(issues, Issue{
			Code:   "time_gaps",
			Detail: fmt.Sprintf("%d gaps longer than %.0fs", gaps, maxGapSeconds),
		})
	}

	short := 0
	for _, seg := range segments {
		if len(strings.TrimSpace(seg.Text)) < minSegmentChars {
			short++
		}
	}
	if short > 0 {
		issues = append(issues, Issue{
			Code:   "short_segments",
			Detail: fmt.Sprintf("%d segments shorter than %d characters", short, minSegmentChars),
		})
	}

	seen := make(map[string]int, len(segments))
	for _, seg := range segments {
		seen[strings.TrimSpace(seg.Text)]++
	}
	dups := 0
	for _, count := range seen {
		if count > 1 {
			dups++
		}
	}
	if dups > 0 {
		issues = append(issues, Issue{
			Code:   "duplicates",
			Detail: fmt.Sprintf("%d segment texts appear more than once", dups),
		})
	}

	return issues
}

// IsComplete reports whether the segment sequence passes all completeness
// checks. The collector marks records "partial" when this fails.
func IsComplete(segments []domain.TranscriptSegment) bool {
	return len(CheckCompleteness(segments)) == 0
}

// ValidateRecord checks a persisted record's metadata for missing or
// implausible values.
func ValidateRecord(rec domain.TranscriptRecord) []Issue {
	var issues []Issue

	if rec.VideoID == "" {
		issues = append(issues, Issue{Code: "missing_video_id", Detail: "required field video_id is missing"})
	}
	if rec.Channel == "" {
		issues = append(issues, Issue{Code: "missing_channel", Detail: "required field channel is missing"})
	}
	if rec.CollectedAt.IsZero() {
		issues = append(issues, Issue{Code: "missing_collected_at", Detail: "required field collected_at is missing"})
	}

	switch rec.Status {
	case domain.StatusSuccess, domain.StatusPartial, domain.StatusFailed:
	default:
		issues = append(issues, Issue{Code: "bad_status", Detail: fmt.Sprintf("unknown status %q", rec.Status)})
	}

	if rec.PublishedAt != nil {
		if rec.PublishedAt.After(time.Now()) {
			issues = append(issues, Issue{Code: "future_date", Detail: "publication date is in the future"})
		}
		if rec.PublishedAt.Before(earliestPublish) {
			issues = append(issues, Issue{Code: "date_range", Detail: fmt.Sprintf("publication date is before %d", earliestPublish.Year())})
		}
	}

	if rec.Status == domain.StatusSuccess && len(rec.Segments) == 0 {
		issues = append(issues, Issue{Code: "empty_success", Detail: "success record has no segments"})
	}

	return issues
}

// DuplicateTitles groups records that share a title (case-insensitive).
// Only groups with more than one video are returned; they usually mean the
// same episode was discovered under two ids.
func DuplicateTitles(records []domain.TranscriptRecord) map[string][]string {
	byTitle := make(map[string][]string)
	for _, rec := range records {
		title := strings.ToLower(strings.TrimSpace(rec.Title))
		if title == "" {
			continue
		}
		byTitle[title] = append(byTitle[title], rec.VideoID)
	}

	for title, ids := range byTitle {
		if len(ids) < 2 {
			delete(byTitle, title)
		}
	}
	return byTitle
}

// Report summarizes quality across a set of records.
type Report struct {
	Total           int
	Complete        int
	WithIssues      int
	Issues          map[string]int
	DuplicateTitles map[string][]string
}

// BuildReport runs all checks over the given records.
func BuildReport(records []domain.TranscriptRecord) Report {
	report := Report{
		Total:           len(records),
		Issues:          make(map[string]int),
		DuplicateTitles: DuplicateTitles(records),
	}

	for _, rec := range records {
		issues := ValidateRecord(rec)
		if rec.Status != domain.StatusFailed {
			issues = append(issues, CheckCompleteness(rec.Segments)...)
		}

		if len(issues) == 0 {
			report.Complete++
			continue
		}
		report.WithIssues++
		for _, issue := range issues {
			report.Issues[issue.Code]++
		}
	}

	return report
}
