package youtube

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/timchilders/jre/pkg/domain"
	"github.com/timchilders/jre/pkg/httpclient"
)

// DefaultTimedTextURL is the caption endpoint used when none is configured.
const DefaultTimedTextURL = "https://video.google.com/timedtext"

// videoIDPattern matches YouTube's 11-character watch ids.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ValidVideoID reports whether id is syntactically valid for the service.
func ValidVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// TranscriptFetcher is the single capability the collector needs from the
// remote service. Kept to one method so tests can substitute it.
type TranscriptFetcher interface {
	// FetchTranscript returns the ordered transcript segments for a video.
	// Failures are either permanent sentinels (ErrNoTranscript,
	// ErrInvalidVideoID, ErrVideoUnavailable) or a *TransientError.
	FetchTranscript(ctx context.Context, videoID string) ([]domain.TranscriptSegment, error)
}

// Client fetches transcripts from the YouTube timedtext endpoint.
type Client struct {
	http     *httpclient.HTTPClient
	baseURL  string
	language string
}

// ClientOption customizes Client creation.
type ClientOption func(*Client)

// WithBaseURL overrides the timedtext endpoint (used in tests).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLanguage sets the caption language code. Defaults to "en".
func WithLanguage(lang string) ClientOption {
	return func(c *Client) {
		c.language = lang
	}
}

// NewClient creates a new transcript client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:     httpclient.NewClient(30 * time.Second),
		baseURL:  DefaultTimedTextURL,
		language: "en",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchTranscript fetches and parses the caption track for a video.
func (c *Client) FetchTranscript(ctx context.Context, videoID string) ([]domain.TranscriptSegment, error) {
	if !ValidVideoID(videoID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVideoID, videoID)
	}

	reqURL := fmt.Sprintf("%s?lang=%s&v=%s", c.baseURL, url.QueryEscape(c.language), url.QueryEscape(videoID))

	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Transient(err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to body parsing
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrVideoUnavailable, videoID)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, Transient(fmt.Errorf("rate limited by remote: status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return nil, Transient(fmt.Errorf("remote error: status %d", resp.StatusCode))
	default:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Transient(fmt.Errorf("read response: %w", err))
	}

	// The endpoint answers 200 with an empty body when no caption track
	// exists for the requested language.
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTranscript, videoID)
	}

	segments, err := parseTimedText(body)
	if err != nil {
		return nil, fmt.Errorf("parse transcript for %s: %w", videoID, err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTranscript, videoID)
	}

	return segments, nil
}

// timedText mirrors the <transcript><text start dur> XML the endpoint returns.
type timedText struct {
	XMLName xml.Name        `xml:"transcript"`
	Texts   []timedTextLine `xml:"text"`
}

type timedTextLine struct {
	Start    float64 `xml:"start,attr"`
	Duration float64 `xml:"dur,attr"`
	Body     string  `xml:",chardata"`
}

func parseTimedText(xmlBytes []byte) ([]domain.TranscriptSegment, error) {
	decoder := xml.NewDecoder(bytes.NewReader(xmlBytes))
	var tt timedText
	if err := decoder.Decode(&tt); err != nil {
		return nil, err
	}

	segments := make([]domain.TranscriptSegment, 0, len(tt.Texts))
	for _, line := range tt.Texts {
		text := strings.TrimSpace(html.UnescapeString(line.Body))
		if text == "" {
			continue
		}
		segments = append(segments, domain.TranscriptSegment{
			StartOffset: line.Start,
			Duration:    line.Duration,
			Text:        text,
		})
	}
	return segments, nil
}

func drainAndClose(rc io.ReadCloser) {
	if rc == nil {
		return
	}
	_, _ = io.Copy(io.Discard, rc)
	_ = rc.Close()
}
