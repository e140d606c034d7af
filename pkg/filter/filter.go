package filter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/timchilders/jre/pkg/domain"
)

// Filter decides whether a discovered video should be collected.
type Filter interface {
	ShouldKeep(ctx context.Context, ref domain.VideoReference) (bool, error)
}

// Videos applies all filters to a list of discovered references.
func Videos(ctx context.Context, refs []domain.VideoReference, filters ...Filter) ([]domain.VideoReference, error) {
	filtered := make([]domain.VideoReference, 0, len(refs))

	for _, ref := range refs {
		keep := true
		for _, f := range filters {
			shouldKeep, err := f.ShouldKeep(ctx, ref)
			if err != nil {
				return nil, fmt.Errorf("filter error for video %s: %w", ref.ID, err)
			}
			if !shouldKeep {
				keep = false
				break
			}
		}
		if keep {
			filtered = append(filtered, ref)
		}
	}

	return filtered, nil
}

// DefaultKeywords is the topic list used when no keywords are configured.
var DefaultKeywords = []string{
	"politics", "political", "election", "democracy",
	"democrat", "republican", "liberal", "conservative",
	"libertarian", "progressive", "left wing", "right wing",
	"policy", "government", "congress", "senate",
	"trump", "biden", "obama", "clinton",
	"immigration", "healthcare", "climate change", "foreign policy",
	"censorship", "free speech",
}

// KeywordFilter keeps videos whose title contains at least one keyword
// (case-insensitive).
type KeywordFilter struct {
	keywords []string
}

// NewKeywordFilter creates a keyword filter. With no keywords it keeps
// everything.
func NewKeywordFilter(keywords []string) *KeywordFilter {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return &KeywordFilter{keywords: lowered}
}

// ShouldKeep returns true if the title matches any configured keyword.
func (f *KeywordFilter) ShouldKeep(ctx context.Context, ref domain.VideoReference) (bool, error) {
	if len(f.keywords) == 0 {
		return true, nil
	}

	title := strings.ToLower(ref.Title)
	for _, kw := range f.keywords {
		if strings.Contains(title, kw) {
			return true, nil
		}
	}
	return false, nil
}

// AlreadyCollectedFilter filters out videos that already have a record in
// the provided set.
type AlreadyCollectedFilter struct {
	collected map[string]bool
}

// NewAlreadyCollectedFilter creates a new already-collected filter.
func NewAlreadyCollectedFilter(collected map[string]bool) *AlreadyCollectedFilter {
	return &AlreadyCollectedFilter{
		collected: collected,
	}
}

// ShouldKeep returns false if the video id is already in the collected set.
func (f *AlreadyCollectedFilter) ShouldKeep(ctx context.Context, ref domain.VideoReference) (bool, error) {
	return !f.collected[ref.ID], nil
}

// PublishedBetweenFilter keeps videos published inside [from, to). Videos
// with an unknown publish date are kept so they are not silently dropped
// before collection can enrich them.
type PublishedBetweenFilter struct {
	from time.Time
	to   time.Time
}

// NewPublishedBetweenFilter creates a new publish date window filter.
func NewPublishedBetweenFilter(from, to time.Time) *PublishedBetweenFilter {
	return &PublishedBetweenFilter{from: from, to: to}
}

// ShouldKeep returns true if the video was published inside the window.
func (f *PublishedBetweenFilter) ShouldKeep(ctx context.Context, ref domain.VideoReference) (bool, error) {
	if ref.PublishedAt == nil {
		return true, nil
	}
	published := *ref.PublishedAt
	if published.Before(f.from) {
		return false, nil
	}
	if !f.to.IsZero() && !published.Before(f.to) {
		return false, nil
	}
	return true, nil
}
