package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/timchilders/jre/pkg/domain"
)

var (
	// ErrNotFound means no record exists for the requested video id.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidID means the video id cannot be used as a store key.
	ErrInvalidID = errors.New("invalid record id")
)

// Store persists transcript records as one JSON file per video id under a
// directory. Writes are atomic (temp file + rename) so a crash never leaves
// a half-written record, and a re-fetch simply replaces the file for that id.
//
// Store methods are not safe for concurrent writers; the collector funnels
// all writes through a single goroutine.
type Store struct {
	dir string
}

// Open creates the store directory if needed and returns a store over it.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("store directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the record for its video id, replacing any existing record.
// An existing record with a newer collection timestamp is kept: the most
// recent fetch stays authoritative even if records arrive out of order.
func (s *Store) Save(rec domain.TranscriptRecord) error {
	path, err := s.recordPath(rec.VideoID)
	if err != nil {
		return err
	}

	if existing, err := s.Get(rec.VideoID); err == nil {
		if existing.CollectedAt.After(rec.CollectedAt) {
			return nil
		}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.VideoID, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, rec.VideoID+".tmp-*")
	if err != nil {
		return fmt.Errorf("write record %s: %w", rec.VideoID, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write record %s: %w", rec.VideoID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write record %s: %w", rec.VideoID, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write record %s: %w", rec.VideoID, err)
	}

	return nil
}

// Get loads the record for a video id.
func (s *Store) Get(videoID string) (*domain.TranscriptRecord, error) {
	path, err := s.recordPath(videoID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, videoID)
		}
		return nil, fmt.Errorf("read record %s: %w", videoID, err)
	}

	var rec domain.TranscriptRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", videoID, err)
	}
	return &rec, nil
}

// List loads every record in the store, in directory order.
func (s *Store) List() ([]domain.TranscriptRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read store directory: %w", err)
	}

	records := make([]domain.TranscriptRecord, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		rec, err := s.Get(strings.TrimSuffix(name, ".json"))
		if err != nil {
			// A record that cannot be decoded is skipped, not fatal:
			// the rest of the store is still usable.
			continue
		}
		records = append(records, *rec)
	}

	return records, nil
}

// CollectedIDs returns the set of video ids that have a record, regardless
// of status.
func (s *Store) CollectedIDs() (map[string]bool, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read store directory: %w", err)
	}

	ids := make(map[string]bool, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids[strings.TrimSuffix(name, ".json")] = true
	}
	return ids, nil
}

func (s *Store) recordPath(videoID string) (string, error) {
	if videoID == "" || strings.ContainsAny(videoID, `/\.`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, videoID)
	}
	return filepath.Join(s.dir, videoID+".json"), nil
}
