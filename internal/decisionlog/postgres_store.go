package decisionlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore persists decision records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed decision log.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the decision_log table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS decision_log (
			id             VARCHAR(36) PRIMARY KEY,
			state          VARCHAR(16) NOT NULL CHECK (state IN ('safe', 'caution', 'elevated_risk', 'high_risk')),
			action         VARCHAR(24) NOT NULL,
			priority       SMALLINT NOT NULL CHECK (priority >= 0 AND priority <= 3),
			risk_score     NUMERIC(4,3) NOT NULL CHECK (risk_score >= 0 AND risk_score <= 1),
			risk_velocity  DOUBLE PRECISION NOT NULL DEFAULT 0,
			alerted        BOOLEAN NOT NULL DEFAULT FALSE,
			message        TEXT NOT NULL DEFAULT '',
			latitude       DOUBLE PRECISION NOT NULL DEFAULT 0,
			longitude      DOUBLE PRECISION NOT NULL DEFAULT 0,
			observed_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_decision_log_observed_at
			ON decision_log (observed_at DESC);

		CREATE INDEX IF NOT EXISTS idx_decision_log_alerts
			ON decision_log (observed_at DESC) WHERE alerted;
	`)
	return err
}

func (s *PostgresStore) Record(ctx context.Context, r *Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decision_log (id, state, action, priority, risk_score, risk_velocity, alerted, message, latitude, longitude, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		r.ID,
		r.State,
		r.Action,
		r.Priority,
		r.RiskScore,
		r.RiskVelocity,
		r.Alerted,
		r.Message,
		r.Latitude,
		r.Longitude,
		r.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, state, action, priority, risk_score, risk_velocity, alerted, message, latitude, longitude, observed_at
		FROM decision_log
		ORDER BY observed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Record
	for rows.Next() {
		var r Record
		var observedAt time.Time
		if err := rows.Scan(&r.ID, &r.State, &r.Action, &r.Priority, &r.RiskScore, &r.RiskVelocity, &r.Alerted, &r.Message, &r.Latitude, &r.Longitude, &observedAt); err != nil {
			continue
		}
		r.ObservedAt = observedAt
		result = append(result, &r)
	}
	return result, rows.Err()
}
