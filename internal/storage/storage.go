// Package storage persists computed traffic reports.
//
// Two sinks are provided. ResultsFile appends the rendered report lines to a
// plain text file shared by every run. History keeps the structured reports in
// an embedded SQLite database, rotating out the oldest rows once a configured
// maximum is reached, so earlier survey days can be listed again.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rewired-gh/trafficsurvey/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT    NOT NULL UNIQUE,
	survey_date TEXT    NOT NULL,
	created_at  INTEGER NOT NULL,
	payload     TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_survey_date ON reports (survey_date);
`

// Entry is one stored report
type Entry struct {
	RunID     string
	CreatedAt time.Time
	Report    models.Report
}

// History stores reports in SQLite
type History struct {
	db         *sql.DB
	maxReports int
}

// Open opens (creating if needed) the history database at path.
// Use ":memory:" for a throwaway database.
func Open(path string, maxReports int) (*History, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &History{db: db, maxReports: maxReports}, nil
}

// Close closes the database
func (h *History) Close() error {
	return h.db.Close()
}

// Save stores a report and returns the run ID assigned to it.
func (h *History) Save(ctx context.Context, report *models.Report) (string, error) {
	if err := report.Validate(); err != nil {
		return "", fmt.Errorf("invalid report: %w", err)
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	runID := uuid.New().String()
	_, err = h.db.ExecContext(ctx,
		`INSERT INTO reports (run_id, survey_date, created_at, payload) VALUES (?, ?, ?, ?)`,
		runID, report.Date.Compact(), time.Now().UnixNano(), string(payload),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert report: %w", err)
	}
	return runID, nil
}

// Recent returns up to n reports, newest first.
func (h *History) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT run_id, created_at, payload FROM reports ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	return scanEntries(rows)
}

// ForDate returns every stored report for a survey date, newest first.
func (h *History) ForDate(ctx context.Context, date models.SurveyDate) ([]Entry, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT run_id, created_at, payload FROM reports WHERE survey_date = ? ORDER BY id DESC`,
		date.Compact())
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	return scanEntries(rows)
}

// Count returns the number of stored reports
func (h *History) Count(ctx context.Context) (int, error) {
	var n int
	if err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return n, nil
}

// Rotate removes the oldest reports beyond the configured maximum.
// A maximum of zero or less keeps everything.
func (h *History) Rotate(ctx context.Context) (int64, error) {
	if h.maxReports <= 0 {
		return 0, nil
	}

	res, err := h.db.ExecContext(ctx,
		`DELETE FROM reports WHERE id NOT IN (SELECT id FROM reports ORDER BY id DESC LIMIT ?)`,
		h.maxReports)
	if err != nil {
		return 0, fmt.Errorf("failed to rotate reports: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count rotated reports: %w", err)
	}
	return removed, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			createdAt int64
			payload   string
		)
		if err := rows.Scan(&e.RunID, &createdAt, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Report); err != nil {
			return nil, fmt.Errorf("failed to decode report %s: %w", e.RunID, err)
		}
		e.CreatedAt = time.Unix(0, createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reports: %w", err)
	}
	return entries, nil
}
