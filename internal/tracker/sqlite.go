package tracker

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/shepard/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	document_id TEXT NOT NULL,
	taken_at    TEXT NOT NULL,
	body        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_document ON snapshots(document_id, seq);

CREATE TABLE IF NOT EXISTS changes (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	document_id TEXT NOT NULL,
	body        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_changes_document ON changes(document_id, seq);

CREATE TABLE IF NOT EXISTS alerts (
	seq             INTEGER PRIMARY KEY AUTOINCREMENT,
	id              TEXT NOT NULL UNIQUE,
	document_id     TEXT NOT NULL,
	acknowledged    INTEGER NOT NULL DEFAULT 0,
	acknowledged_at TEXT,
	body            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_document ON alerts(document_id, seq);
`

// SQLiteStore persists history in a local SQLite database (WAL mode).
// Rows carry the entity as JSON next to the columns queries filter on.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path and applies the schema
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("tracker: create database directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("tracker: open sqlite: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tracker: ping sqlite: %w", err)
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tracker: apply schema: %w", err)
	}
	return &SQLiteStore{conn: conn}, nil
}

func (s *SQLiteStore) AppendSnapshot(ctx context.Context, snap model.StatusSnapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO snapshots (id, document_id, taken_at, body) VALUES (?, ?, ?, ?)`,
		snap.ID, snap.DocumentID, snap.Timestamp.UTC().Format(time.RFC3339Nano), string(body))
	if err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Snapshots(ctx context.Context, docID string) ([]model.StatusSnapshot, error) {
	return s.LatestSnapshots(ctx, docID, 0)
}

func (s *SQLiteStore) LatestSnapshots(ctx context.Context, docID string, n int) ([]model.StatusSnapshot, error) {
	limit := n
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT body FROM (
			SELECT seq, body FROM snapshots WHERE document_id = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq`, docID, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	return scanJSONRows[model.StatusSnapshot](rows)
}

func (s *SQLiteStore) AppendChanges(ctx context.Context, changes []model.StatusChange) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append changes: %w", err)
	}
	defer tx.Rollback()
	for _, c := range changes {
		body, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("append changes: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO changes (id, document_id, body) VALUES (?, ?, ?)`,
			c.ID, c.DocumentID, string(body)); err != nil {
			return fmt.Errorf("append changes: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Changes(ctx context.Context, docID string) ([]model.StatusChange, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT body FROM changes WHERE document_id = ? ORDER BY seq`, docID)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	return scanJSONRows[model.StatusChange](rows)
}

func (s *SQLiteStore) AppendAlerts(ctx context.Context, alerts []model.StatusAlert) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append alerts: %w", err)
	}
	defer tx.Rollback()
	for _, a := range alerts {
		body, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("append alerts: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO alerts (id, document_id, body) VALUES (?, ?, ?)`,
			a.ID, a.DocumentID, string(body)); err != nil {
			return fmt.Errorf("append alerts: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Alerts(ctx context.Context, docID string, pendingOnly bool) ([]model.StatusAlert, error) {
	query := `SELECT body, acknowledged, acknowledged_at FROM alerts WHERE 1 = 1`
	var args []any
	if docID != "" {
		query += ` AND document_id = ?`
		args = append(args, docID)
	}
	if pendingOnly {
		query += ` AND acknowledged = 0`
	}
	query += ` ORDER BY seq`

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	out := []model.StatusAlert{}
	for rows.Next() {
		var body string
		var acked bool
		var ackedAt sql.NullString
		if err := rows.Scan(&body, &acked, &ackedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		var a model.StatusAlert
		if err := json.Unmarshal([]byte(body), &a); err != nil {
			return nil, fmt.Errorf("decode alert: %w", err)
		}
		a.Acknowledged = acked
		if ackedAt.Valid {
			ts, err := time.Parse(time.RFC3339Nano, ackedAt.String)
			if err != nil {
				return nil, fmt.Errorf("decode alert %s: %w", a.ID, err)
			}
			a.AcknowledgedDate = &ts
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AcknowledgeAlert(ctx context.Context, alertID string, ts time.Time) (bool, error) {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE alerts SET acknowledged = 1, acknowledged_at = ? WHERE id = ? AND acknowledged = 0`,
		ts.UTC().Format(time.RFC3339Nano), alertID)
	if err != nil {
		return false, fmt.Errorf("acknowledge alert: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return true, nil
	}

	var exists bool
	if err := s.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM alerts WHERE id = ?)`, alertID).Scan(&exists); err != nil {
		return false, fmt.Errorf("acknowledge alert: %w", err)
	}
	if !exists {
		return false, ErrAlertNotFound
	}
	return false, nil
}

// Close closes the underlying database connection
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// scanJSONRows decodes a single JSON body column from every row and closes rows
func scanJSONRows[T any](rows *sql.Rows) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var v T
		if err := json.Unmarshal([]byte(body), &v); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
