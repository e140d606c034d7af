package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testVideoID = "dQw4w9WgXcQ"

func TestClient_FetchTranscript(t *testing.T) {
	timedTextXML := `<?xml version="1.0" encoding="utf-8"?>
<transcript>
	<text start="0.0" dur="3.5">welcome back to the show</text>
	<text start="3.5" dur="4.1">today we&#39;re talking about &amp; reviewing the news</text>
	<text start="7.6" dur="2.2">let&#39;s get into it</text>
</transcript>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("v"); got != testVideoID {
			t.Errorf("Expected video id %q in request, got %q", testVideoID, got)
		}
		if got := r.URL.Query().Get("lang"); got != "en" {
			t.Errorf("Expected lang=en in request, got %q", got)
		}
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(timedTextXML))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	segments, err := client.FetchTranscript(context.Background(), testVideoID)
	if err != nil {
		t.Fatalf("Failed to fetch transcript: %v", err)
	}

	if len(segments) != 3 {
		t.Fatalf("Expected 3 segments, got %d", len(segments))
	}
	if segments[0].StartOffset != 0.0 || segments[0].Duration != 3.5 {
		t.Errorf("Unexpected timing for first segment: %+v", segments[0])
	}
	if segments[1].Text != "today we're talking about & reviewing the news" {
		t.Errorf("Expected HTML entities to be decoded, got %q", segments[1].Text)
	}
	if segments[2].StartOffset != 7.6 {
		t.Errorf("Expected segments in document order, got %+v", segments[2])
	}
}

func TestClient_FetchTranscript_EmptyBodyMeansNoTranscript(t *testing.T) {
	// The endpoint answers 200 with an empty body when the video has no
	// caption track in the requested language.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.FetchTranscript(context.Background(), testVideoID)
	if !errors.Is(err, ErrNoTranscript) {
		t.Errorf("Expected ErrNoTranscript, got %v", err)
	}
	if IsTransient(err) || !IsPermanent(err) {
		t.Error("A missing transcript must classify as permanent, not retryable")
	}
}

func TestClient_FetchTranscript_NotFoundMeansUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.FetchTranscript(context.Background(), testVideoID)
	if !errors.Is(err, ErrVideoUnavailable) {
		t.Errorf("Expected ErrVideoUnavailable, got %v", err)
	}
	if IsTransient(err) || !IsPermanent(err) {
		t.Error("An unavailable video must classify as permanent, not retryable")
	}
}

func TestClient_FetchTranscript_RateLimitedIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.FetchTranscript(context.Background(), testVideoID)
	if !IsTransient(err) {
		t.Errorf("Expected a transient error for 429, got %v", err)
	}
}

func TestClient_FetchTranscript_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.FetchTranscript(context.Background(), testVideoID)
	if !IsTransient(err) {
		t.Errorf("Expected a transient error for 503, got %v", err)
	}
}

func TestClient_FetchTranscript_InvalidID(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.FetchTranscript(context.Background(), "not-an-id")
	if !errors.Is(err, ErrInvalidVideoID) {
		t.Errorf("Expected ErrInvalidVideoID, got %v", err)
	}
	if called {
		t.Error("An invalid id must be rejected before any request is made")
	}
}

func TestValidVideoID(t *testing.T) {
	valid := []string{"dQw4w9WgXcQ", "abcdefghij_", "A1b2C3d4E5-"}
	for _, id := range valid {
		if !ValidVideoID(id) {
			t.Errorf("Expected %q to be valid", id)
		}
	}

	invalid := []string{"", "short", "waytoolongvideoid", "has spaces!", "abc/def.ghi"}
	for _, id := range invalid {
		if ValidVideoID(id) {
			t.Errorf("Expected %q to be invalid", id)
		}
	}
}

func TestTransientErrorWrapping(t *testing.T) {
	base := errors.New("connection reset")
	wrapped := Transient(base)

	if !IsTransient(wrapped) {
		t.Error("Expected wrapped error to be transient")
	}
	if !errors.Is(wrapped, base) {
		t.Error("Expected the cause to remain reachable through Unwrap")
	}
	if Transient(nil) != nil {
		t.Error("Transient(nil) should stay nil")
	}
	if IsTransient(base) {
		t.Error("An unwrapped error must not look transient")
	}
	if IsPermanent(wrapped) || IsPermanent(base) {
		t.Error("Only the known fetch sentinels classify as permanent")
	}
}
