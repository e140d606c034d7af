package youtube

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/timchilders/jre/pkg/domain"
)

// DefaultFeedURL is the channel upload feed template used when none is
// configured. YouTube publishes the latest uploads of every channel as Atom.
const DefaultFeedURL = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"

// FeedDiscoverer discovers VideoReferences from a channel's upload feed.
type FeedDiscoverer struct {
	feedParser  *gofeed.Parser
	feedURLTmpl string
}

// FeedOption customizes FeedDiscoverer creation.
type FeedOption func(*FeedDiscoverer)

// WithFeedURL overrides the feed URL template (used in tests). The template
// must contain one %s placeholder for the channel id.
func WithFeedURL(tmpl string) FeedOption {
	return func(d *FeedDiscoverer) {
		d.feedURLTmpl = tmpl
	}
}

// NewFeedDiscoverer creates a new feed discoverer.
func NewFeedDiscoverer(opts ...FeedOption) *FeedDiscoverer {
	d := &FeedDiscoverer{
		feedParser:  gofeed.NewParser(),
		feedURLTmpl: DefaultFeedURL,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover fetches the channel's upload feed and returns a reference for
// every entry with a parseable video id, in feed order (newest first).
func (d *FeedDiscoverer) Discover(ctx context.Context, channelID string) ([]domain.VideoReference, error) {
	if channelID == "" {
		return nil, fmt.Errorf("channel id is empty")
	}

	feedURL := fmt.Sprintf(d.feedURLTmpl, url.QueryEscape(channelID))
	feed, err := d.feedParser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse channel feed: %w", err)
	}

	if feed == nil || len(feed.Items) == 0 {
		return nil, fmt.Errorf("channel feed contains no items")
	}

	refs := make([]domain.VideoReference, 0, len(feed.Items))
	for _, item := range feed.Items {
		id := videoIDFromLink(item.Link)
		if id == "" {
			continue
		}
		refs = append(refs, domain.VideoReference{
			ID:          id,
			Channel:     strings.TrimSpace(feed.Title),
			Title:       strings.TrimSpace(item.Title),
			PublishedAt: item.PublishedParsed,
		})
	}

	if len(refs) == 0 {
		return nil, fmt.Errorf("no video entries found in channel feed")
	}

	return refs, nil
}

// videoIDFromLink extracts the watch id from a feed entry link
// (https://www.youtube.com/watch?v=ID). Returns "" when the link does not
// carry a valid id.
func videoIDFromLink(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return ""
	}
	id := u.Query().Get("v")
	if !ValidVideoID(id) {
		return ""
	}
	return id
}
