package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mkorchagin/smartdoc/internal/core/domain"
)

// OutcomeRepository persists per-document batch results so operators can
// audit what was classified, when and how it ended.
type OutcomeRepository struct {
	db *sql.DB
}

func NewOutcomeRepository(db *sql.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *OutcomeRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026090101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS classification_outcomes (
	id TEXT PRIMARY KEY,
	batch_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	label TEXT,
	state TEXT NOT NULL,
	error_message TEXT,
	latency_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_classification_outcomes_batch ON classification_outcomes(batch_id);
CREATE INDEX IF NOT EXISTS idx_classification_outcomes_created_at ON classification_outcomes(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *OutcomeRepository) RecordBatch(ctx context.Context, batchID string, outcomes []domain.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outcome tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for _, outcome := range outcomes {
		errorMessage := ""
		if outcome.Err != nil {
			errorMessage = outcome.Err.Error()
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO classification_outcomes (
	id, batch_id, filename, label, state, error_message, latency_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
			uuid.NewString(), batchID, outcome.File, outcome.Label, string(outcome.State),
			errorMessage, outcome.Latency.Milliseconds(), now,
		)
		if err != nil {
			return fmt.Errorf("insert outcome for %s: %w", outcome.File, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit outcome tx: %w", err)
	}
	return nil
}
