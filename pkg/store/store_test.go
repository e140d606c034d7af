package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/timchilders/jre/pkg/domain"
)

func testRecord(videoID string, collectedAt time.Time) domain.TranscriptRecord {
	return domain.TranscriptRecord{
		VideoID:     videoID,
		Channel:     "Test Channel",
		Title:       "Test Episode",
		CollectedAt: collectedAt,
		Status:      domain.StatusSuccess,
		Segments: []domain.TranscriptSegment{
			{StartOffset: 0, Duration: 2.5, Text: "hello and welcome"},
			{StartOffset: 2.5, Duration: 3.0, Text: "to the test episode"},
		},
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	rec := testRecord("abcdefghijk", time.Now().UTC())
	if err := s.Save(rec); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}

	loaded, err := s.Get("abcdefghijk")
	if err != nil {
		t.Fatalf("Failed to load record: %v", err)
	}
	if loaded.VideoID != rec.VideoID || loaded.Status != rec.Status {
		t.Errorf("Loaded record differs: %+v", loaded)
	}
	if len(loaded.Segments) != 2 {
		t.Errorf("Expected 2 segments, got %d", len(loaded.Segments))
	}
	if loaded.Segments[0].Text != "hello and welcome" {
		t.Errorf("Unexpected first segment: %+v", loaded.Segments[0])
	}
}

func TestStore_GetMissing(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	_, err = s.Get("abcdefghijk")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_SaveReplacesOlderRecord(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	older := testRecord("abcdefghijk", time.Now().UTC().Add(-time.Hour))
	older.Status = domain.StatusFailed
	newer := testRecord("abcdefghijk", time.Now().UTC())

	if err := s.Save(older); err != nil {
		t.Fatalf("Failed to save older record: %v", err)
	}
	if err := s.Save(newer); err != nil {
		t.Fatalf("Failed to save newer record: %v", err)
	}

	loaded, err := s.Get("abcdefghijk")
	if err != nil {
		t.Fatalf("Failed to load record: %v", err)
	}
	if loaded.Status != domain.StatusSuccess {
		t.Errorf("Expected the newer record to replace the older one, got status %q", loaded.Status)
	}
}

func TestStore_SaveKeepsNewerRecord(t *testing.T) {
	// Records arriving out of order must not roll the store backwards.
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	newer := testRecord("abcdefghijk", time.Now().UTC())
	stale := testRecord("abcdefghijk", time.Now().UTC().Add(-time.Hour))
	stale.Status = domain.StatusFailed

	if err := s.Save(newer); err != nil {
		t.Fatalf("Failed to save newer record: %v", err)
	}
	if err := s.Save(stale); err != nil {
		t.Fatalf("Saving a stale record should be a no-op, got: %v", err)
	}

	loaded, err := s.Get("abcdefghijk")
	if err != nil {
		t.Fatalf("Failed to load record: %v", err)
	}
	if loaded.Status != domain.StatusSuccess {
		t.Errorf("Expected the newer record to be kept, got status %q", loaded.Status)
	}
}

func TestStore_List(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	now := time.Now().UTC()
	for _, id := range []string{"videoaaaaaa", "videobbbbbb", "videocccccc"} {
		if err := s.Save(testRecord(id, now)); err != nil {
			t.Fatalf("Failed to save %s: %v", id, err)
		}
	}

	// Corrupt files and unrelated entries are skipped, not fatal.
	if err := os.WriteFile(filepath.Join(dir, "corruptvdid.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatalf("Failed to write unrelated file: %v", err)
	}

	records, err := s.List()
	if err != nil {
		t.Fatalf("Failed to list records: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
}

func TestStore_CollectedIDs(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	now := time.Now().UTC()
	failed := testRecord("failedvideo", now)
	failed.Status = domain.StatusFailed
	failed.Segments = nil

	if err := s.Save(testRecord("okayvideo00", now)); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}
	if err := s.Save(failed); err != nil {
		t.Fatalf("Failed to save failed record: %v", err)
	}

	ids, err := s.CollectedIDs()
	if err != nil {
		t.Fatalf("Failed to list collected ids: %v", err)
	}
	// Failed attempts count as collected so they are not retried forever.
	if !ids["okayvideo00"] || !ids["failedvideo"] {
		t.Errorf("Expected both ids regardless of status, got %v", ids)
	}
}

func TestStore_RejectsUnsafeIDs(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	for _, id := range []string{"", "../escape", "a/b", `a\b`, "dotted.id"} {
		err := s.Save(domain.TranscriptRecord{VideoID: id, CollectedAt: time.Now()})
		if !errors.Is(err, ErrInvalidID) {
			t.Errorf("Expected ErrInvalidID for %q, got %v", id, err)
		}
	}
}

func TestStore_FilesAreHumanReadable(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	if err := s.Save(testRecord("abcdefghijk", time.Now().UTC())); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "abcdefghijk.json"))
	if err != nil {
		t.Fatalf("Failed to read record file: %v", err)
	}

	text := string(data)
	if !strings.Contains(text, `"video_id": "abcdefghijk"`) {
		t.Errorf("Expected indented JSON with named fields, got:\n%s", text)
	}
	if !strings.HasSuffix(text, "\n") {
		t.Error("Expected a trailing newline")
	}
}
