package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"murmur/internal/logging"
)

// MetricsArchive records engagement outcomes for content we emitted earlier.
// The engagement-check loop appends rows; the reflection cycle reads them
// back to learn which output actually landed.
type MetricsArchive struct {
	db   *sql.DB
	path string
}

// OutcomeRow is one observed engagement snapshot for a post.
type OutcomeRow struct {
	PostRef   string
	Likes     int
	Replies   int
	Reposts   int
	CheckedAt time.Time
}

// NewMetricsArchive opens (creating if needed) the sqlite archive under dataDir.
func NewMetricsArchive(dataDir string) (*MetricsArchive, error) {
	path := filepath.Join(dataDir, "metrics.db")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics archive: %w", err)
	}

	m := &MetricsArchive{db: db, path: path}
	if err := m.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure metrics schema: %w", err)
	}

	logging.Store("metrics archive opened: %s", path)
	return m, nil
}

func (m *MetricsArchive) ensureSchema() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS engagement_outcomes (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			post_ref    TEXT NOT NULL,
			likes       INTEGER NOT NULL DEFAULT 0,
			replies     INTEGER NOT NULL DEFAULT 0,
			reposts     INTEGER NOT NULL DEFAULT 0,
			checked_at  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_outcomes_post_ref ON engagement_outcomes(post_ref);
		CREATE INDEX IF NOT EXISTS idx_outcomes_checked_at ON engagement_outcomes(checked_at);
	`)
	return err
}

// Record appends one engagement snapshot. Timestamps are stored as unix
// seconds; sqlite aggregates drop the declared column type, so anything
// fancier would not survive a MAX() round trip.
func (m *MetricsArchive) Record(row OutcomeRow) error {
	_, err := m.db.Exec(
		`INSERT INTO engagement_outcomes (post_ref, likes, replies, reposts, checked_at)
		 VALUES (?, ?, ?, ?, ?)`,
		row.PostRef, row.Likes, row.Replies, row.Reposts, row.CheckedAt.UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// TopPerformers returns the highest-engagement posts seen since cutoff,
// using the latest snapshot per post.
func (m *MetricsArchive) TopPerformers(cutoff time.Time, limit int) ([]OutcomeRow, error) {
	rows, err := m.db.Query(`
		SELECT post_ref, likes, replies, reposts, MAX(checked_at) AS checked_at
		FROM engagement_outcomes
		WHERE checked_at >= ?
		GROUP BY post_ref
		ORDER BY (likes + replies * 2 + reposts * 2) DESC
		LIMIT ?`,
		cutoff.UTC().Unix(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query top performers: %w", err)
	}
	defer rows.Close()

	var out []OutcomeRow
	for rows.Next() {
		var r OutcomeRow
		var checkedAt int64
		if err := rows.Scan(&r.PostRef, &r.Likes, &r.Replies, &r.Reposts, &checkedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outcome row: %w", err)
		}
		r.CheckedAt = time.Unix(checkedAt, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (m *MetricsArchive) Close() error {
	return m.db.Close()
}
