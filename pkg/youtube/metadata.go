package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/timchilders/jre/pkg/domain"
	"github.com/timchilders/jre/pkg/httpclient"
)

// DefaultWatchURL is the watch page template used when none is configured.
const DefaultWatchURL = "https://www.youtube.com/watch?v=%s"

// MetadataScraper fills in title, channel and publish date for a reference
// from the video's watch page. Enrichment is best-effort: callers treat a
// scrape failure as "metadata stays unknown", never as an item failure.
type MetadataScraper struct {
	http         *httpclient.HTTPClient
	watchURLTmpl string
}

// MetadataOption customizes MetadataScraper creation.
type MetadataOption func(*MetadataScraper)

// WithWatchURL overrides the watch page URL template (used in tests).
func WithWatchURL(tmpl string) MetadataOption {
	return func(s *MetadataScraper) {
		s.watchURLTmpl = tmpl
	}
}

// NewMetadataScraper creates a new metadata scraper.
func NewMetadataScraper(opts ...MetadataOption) *MetadataScraper {
	s := &MetadataScraper{
		http:         httpclient.NewClient(30 * time.Second),
		watchURLTmpl: DefaultWatchURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enrich returns a copy of ref with any missing metadata filled in from the
// watch page. Fields already set on ref are kept.
func (s *MetadataScraper) Enrich(ctx context.Context, ref domain.VideoReference) (domain.VideoReference, error) {
	if !ValidVideoID(ref.ID) {
		return ref, fmt.Errorf("%w: %q", ErrInvalidVideoID, ref.ID)
	}

	pageURL := fmt.Sprintf(s.watchURLTmpl, url.QueryEscape(ref.ID))
	resp, err := s.http.Get(ctx, pageURL)
	if err != nil {
		return ref, fmt.Errorf("fetch watch page: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return ref, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ref, fmt.Errorf("parse watch page: %w", err)
	}

	if ref.Title == "" {
		ref.Title = firstMetaContent(doc, `meta[itemprop="name"]`, `meta[property="og:title"]`)
	}
	if ref.Channel == "" {
		if name, ok := doc.Find(`link[itemprop="name"]`).First().Attr("content"); ok {
			ref.Channel = strings.TrimSpace(name)
		}
	}
	if ref.PublishedAt == nil {
		if published := firstMetaContent(doc, `meta[itemprop="datePublished"]`, `meta[itemprop="uploadDate"]`); published != "" {
			if t, err := parsePublishedDate(published); err == nil {
				ref.PublishedAt = &t
			}
		}
	}

	return ref, nil
}

func firstMetaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if trimmed := strings.TrimSpace(content); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func parsePublishedDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}
