package index

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/timchilders/jre/pkg/domain"
)

// Index is a relational view over collected transcript records: one row per
// video and one row per segment, ordered by start offset, so segments can be
// queried without loading whole JSON records.
type Index struct {
	provider DBProvider
}

// New creates an index over a connected database client.
func New(provider DBProvider) (*Index, error) {
	if provider == nil || provider.DB() == nil {
		return nil, fmt.Errorf("index: database not connected")
	}
	return &Index{provider: provider}, nil
}

// EnsureSchema creates the videos and transcript_segments tables if they do
// not exist yet.
func (ix *Index) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS videos (
			video_id     TEXT PRIMARY KEY,
			channel      TEXT,
			title        TEXT,
			published_at TIMESTAMP,
			collected_at TIMESTAMP NOT NULL,
			status       TEXT NOT NULL,
			error        TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS transcript_segments (
			video_id     TEXT NOT NULL REFERENCES videos(video_id) ON DELETE CASCADE,
			position     INTEGER NOT NULL,
			start_offset REAL NOT NULL,
			duration     REAL NOT NULL,
			text         TEXT NOT NULL,
			PRIMARY KEY (video_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_segments_start ON transcript_segments(video_id, start_offset)`,
	}

	for _, stmt := range stmts {
		if _, err := ix.provider.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	return nil
}

// SaveRecord upserts the video row and replaces its segments in one
// transaction. Re-indexing the same record is idempotent.
func (ix *Index) SaveRecord(ctx context.Context, rec domain.TranscriptRecord) error {
	tx, err := ix.provider.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index %s: begin: %w", rec.VideoID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, ix.rebind(
		`INSERT INTO videos (video_id, channel, title, published_at, collected_at, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (video_id) DO UPDATE SET
			channel = excluded.channel,
			title = excluded.title,
			published_at = excluded.published_at,
			collected_at = excluded.collected_at,
			status = excluded.status,
			error = excluded.error`),
		rec.VideoID, rec.Channel, rec.Title, nullableTime(rec.PublishedAt),
		rec.CollectedAt, string(rec.Status), rec.Error)
	if err != nil {
		return fmt.Errorf("index %s: upsert video: %w", rec.VideoID, err)
	}

	if _, err := tx.ExecContext(ctx, ix.rebind(
		`DELETE FROM transcript_segments WHERE video_id = ?`), rec.VideoID); err != nil {
		return fmt.Errorf("index %s: clear segments: %w", rec.VideoID, err)
	}

	for pos, seg := range rec.Segments {
		_, err := tx.ExecContext(ctx, ix.rebind(
			`INSERT INTO transcript_segments (video_id, position, start_offset, duration, text)
			 VALUES (?, ?, ?, ?, ?)`),
			rec.VideoID, pos, seg.StartOffset, seg.Duration, seg.Text)
		if err != nil {
			return fmt.Errorf("index %s: insert segment %d: %w", rec.VideoID, pos, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index %s: commit: %w", rec.VideoID, err)
	}
	return nil
}

// GetSegments returns a video's segments in temporal order.
func (ix *Index) GetSegments(ctx context.Context, videoID string) ([]domain.TranscriptSegment, error) {
	rows, err := ix.provider.DB().QueryContext(ctx, ix.rebind(
		`SELECT start_offset, duration, text
		 FROM transcript_segments
		 WHERE video_id = ?
		 ORDER BY start_offset, position`), videoID)
	if err != nil {
		return nil, fmt.Errorf("query segments for %s: %w", videoID, err)
	}
	defer rows.Close()

	var segments []domain.TranscriptSegment
	for rows.Next() {
		var seg domain.TranscriptSegment
		if err := rows.Scan(&seg.StartOffset, &seg.Duration, &seg.Text); err != nil {
			return nil, fmt.Errorf("scan segment for %s: %w", videoID, err)
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segments for %s: %w", videoID, err)
	}

	return segments, nil
}

// HasVideo reports whether a video row exists.
func (ix *Index) HasVideo(ctx context.Context, videoID string) (bool, error) {
	var one int
	err := ix.provider.DB().QueryRowContext(ctx, ix.rebind(
		`SELECT 1 FROM videos WHERE video_id = ?`), videoID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check video %s: %w", videoID, err)
	}
	return true, nil
}

// IndexedIDs returns the set of video ids present in the index.
func (ix *Index) IndexedIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := ix.provider.DB().QueryContext(ctx, `SELECT video_id FROM videos`)
	if err != nil {
		return nil, fmt.Errorf("query indexed ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan video id: %w", err)
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate video ids: %w", err)
	}

	return ids, nil
}

// Counts reports the number of indexed videos (by status) and segments.
func (ix *Index) Counts(ctx context.Context) (videosByStatus map[string]int, segments int, err error) {
	rows, err := ix.provider.DB().QueryContext(ctx,
		`SELECT status, COUNT(*) FROM videos GROUP BY status`)
	if err != nil {
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}
	defer rows.Close()

	videosByStatus = make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, 0, fmt.Errorf("scan video count: %w", err)
		}
		videosByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate video counts: %w", err)
	}

	if err := ix.provider.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transcript_segments`).Scan(&segments); err != nil {
		return nil, 0, fmt.Errorf("count segments: %w", err)
	}

	return videosByStatus, segments, nil
}

// DeleteVideo removes a video and its segments.
func (ix *Index) DeleteVideo(ctx context.Context, videoID string) error {
	tx, err := ix.provider.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete %s: begin: %w", videoID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, ix.rebind(
		`DELETE FROM transcript_segments WHERE video_id = ?`), videoID); err != nil {
		return fmt.Errorf("delete segments for %s: %w", videoID, err)
	}
	if _, err := tx.ExecContext(ctx, ix.rebind(
		`DELETE FROM videos WHERE video_id = ?`), videoID); err != nil {
		return fmt.Errorf("delete video %s: %w", videoID, err)
	}

	return tx.Commit()
}

// rebind rewrites ? placeholders to $n for the Postgres driver. Queries in
// this package are written with ? (the SQLite style).
func (ix *Index) rebind(query string) string {
	if ix.provider.Driver() != "pgx" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
