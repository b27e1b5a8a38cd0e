package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ppiankov/shepard/internal/model"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS status_snapshots (
		seq         BIGSERIAL PRIMARY KEY,
		id          TEXT NOT NULL UNIQUE,
		document_id TEXT NOT NULL,
		taken_at    TIMESTAMPTZ NOT NULL,
		body        JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_status_snapshots_document ON status_snapshots(document_id, seq)`,
	`CREATE TABLE IF NOT EXISTS status_changes (
		seq         BIGSERIAL PRIMARY KEY,
		id          TEXT NOT NULL UNIQUE,
		document_id TEXT NOT NULL,
		body        JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_status_changes_document ON status_changes(document_id, seq)`,
	`CREATE TABLE IF NOT EXISTS status_alerts (
		seq             BIGSERIAL PRIMARY KEY,
		id              TEXT NOT NULL UNIQUE,
		document_id     TEXT NOT NULL,
		acknowledged    BOOLEAN NOT NULL DEFAULT FALSE,
		acknowledged_at TIMESTAMPTZ,
		body            JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_status_alerts_document ON status_alerts(document_id, seq)`,
}

// PostgresStore persists history in PostgreSQL through a pgx connection pool
type PostgresStore struct {
	db *pgxpool.Pool
}

// OpenPostgresStore connects to dsn and applies the schema
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("tracker: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("tracker: ping postgres: %w", err)
	}
	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("tracker: apply schema: %w", err)
		}
	}
	return NewPostgresStore(pool), nil
}

// NewPostgresStore wraps an existing pool whose schema is already in place
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

func (s *PostgresStore) AppendSnapshot(ctx context.Context, snap model.StatusSnapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO status_snapshots (id, document_id, taken_at, body) VALUES ($1, $2, $3, $4)`,
		snap.ID, snap.DocumentID, snap.Timestamp, string(body))
	if err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) Snapshots(ctx context.Context, docID string) ([]model.StatusSnapshot, error) {
	rows, err := s.db.Query(ctx,
		`SELECT body FROM status_snapshots WHERE document_id = $1 ORDER BY seq`, docID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	return collectJSON[model.StatusSnapshot](rows)
}

func (s *PostgresStore) LatestSnapshots(ctx context.Context, docID string, n int) ([]model.StatusSnapshot, error) {
	if n <= 0 {
		return s.Snapshots(ctx, docID)
	}
	rows, err := s.db.Query(ctx, `
		SELECT body FROM (
			SELECT seq, body FROM status_snapshots WHERE document_id = $1 ORDER BY seq DESC LIMIT $2
		) latest ORDER BY seq`, docID, n)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	return collectJSON[model.StatusSnapshot](rows)
}

func (s *PostgresStore) AppendChanges(ctx context.Context, changes []model.StatusChange) error {
	batch := &pgx.Batch{}
	for _, c := range changes {
		body, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("append changes: %w", err)
		}
		batch.Queue(`INSERT INTO status_changes (id, document_id, body) VALUES ($1, $2, $3)`,
			c.ID, c.DocumentID, string(body))
	}
	return s.sendBatch(ctx, batch, "append changes")
}

func (s *PostgresStore) Changes(ctx context.Context, docID string) ([]model.StatusChange, error) {
	rows, err := s.db.Query(ctx,
		`SELECT body FROM status_changes WHERE document_id = $1 ORDER BY seq`, docID)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	return collectJSON[model.StatusChange](rows)
}

func (s *PostgresStore) AppendAlerts(ctx context.Context, alerts []model.StatusAlert) error {
	batch := &pgx.Batch{}
	for _, a := range alerts {
		body, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("append alerts: %w", err)
		}
		batch.Queue(`INSERT INTO status_alerts (id, document_id, body) VALUES ($1, $2, $3)`,
			a.ID, a.DocumentID, string(body))
	}
	return s.sendBatch(ctx, batch, "append alerts")
}

// sendBatch runs every queued insert in one transaction
func (s *PostgresStore) sendBatch(ctx context.Context, batch *pgx.Batch, op string) error {
	if batch.Len() == 0 {
		return nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *PostgresStore) Alerts(ctx context.Context, docID string, pendingOnly bool) ([]model.StatusAlert, error) {
	rows, err := s.db.Query(ctx, `
		SELECT body, acknowledged, acknowledged_at FROM status_alerts
		WHERE ($1 = '' OR document_id = $1) AND (NOT $2 OR NOT acknowledged)
		ORDER BY seq`, docID, pendingOnly)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	out := []model.StatusAlert{}
	for rows.Next() {
		var body []byte
		var a model.StatusAlert
		var acked bool
		var ackedAt *time.Time
		if err := rows.Scan(&body, &acked, &ackedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		if err := json.Unmarshal(body, &a); err != nil {
			return nil, fmt.Errorf("decode alert: %w", err)
		}
		a.Acknowledged = acked
		a.AcknowledgedDate = ackedAt
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AcknowledgeAlert(ctx context.Context, alertID string, ts time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE status_alerts SET acknowledged = TRUE, acknowledged_at = $2 WHERE id = $1 AND NOT acknowledged`,
		alertID, ts)
	if err != nil {
		return false, fmt.Errorf("acknowledge alert: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM status_alerts WHERE id = $1)`, alertID).Scan(&exists); err != nil {
		return false, fmt.Errorf("acknowledge alert: %w", err)
	}
	if !exists {
		return false, ErrAlertNotFound
	}
	return false, nil
}

// Close releases the pool
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func collectJSON[T any](rows pgx.Rows) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var v T
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
