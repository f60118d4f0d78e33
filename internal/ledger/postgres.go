package ledger

import (
	"context"
	"fmt"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/pkg/database"
	"github.com/jkwon/meridian/pkg/logger"
)

// PostgresStore persists ledger rows in a single append-only table.
// There are no UPDATE or DELETE paths.
type PostgresStore struct {
	db     *database.DB
	logger *logger.Logger
}

var _ contracts.LedgerStore = (*PostgresStore)(nil)

// NewPostgresStore creates a postgres-backed ledger and ensures the
// table exists.
func NewPostgresStore(ctx context.Context, db *database.DB, log *logger.Logger) (*PostgresStore, error) {
	const ddl = `
		CREATE TABLE IF NOT EXISTS performance_ledger (
			id        BIGSERIAL PRIMARY KEY,
			date          DATE             NOT NULL,
			params_id     TEXT             NOT NULL,
			period_return DOUBLE PRECISION NOT NULL,
			drawdown      DOUBLE PRECISION NOT NULL,
			regime        TEXT             NOT NULL
		)`
	if _, err := db.Pool.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger table: %w", err)
	}
	return &PostgresStore{db: db, logger: log}, nil
}

// Append inserts one record.
func (s *PostgresStore) Append(ctx context.Context, rec contracts.LedgerRecord) error {
	const q = `
		INSERT INTO performance_ledger (date, params_id, period_return, drawdown, regime)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.db.Pool.Exec(ctx, q, rec.Date, rec.ParamsID, rec.Return, rec.Drawdown, string(rec.Regime)); err != nil {
		return fmt.Errorf("failed to append ledger record: %w", err)
	}
	return nil
}

// Records returns all rows in insertion order.
func (s *PostgresStore) Records(ctx context.Context) ([]contracts.LedgerRecord, error) {
	const q = `
		SELECT date, params_id, period_return, drawdown, regime
		FROM performance_ledger
		ORDER BY id ASC`
	rows, err := s.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var records []contracts.LedgerRecord
	for rows.Next() {
		var rec contracts.LedgerRecord
		var regime string
		if err := rows.Scan(&rec.Date, &rec.ParamsID, &rec.Return, &rec.Drawdown, &regime); err != nil {
			return nil, fmt.Errorf("failed to scan ledger record: %w", err)
		}
		rec.Regime = contracts.RegimeLabel(regime)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger rows: %w", err)
	}
	return records, nil
}
