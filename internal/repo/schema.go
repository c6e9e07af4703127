package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL — таблица истории запусков.
// idempotency_key UNIQUE гарантирует один run на окно срабатывания.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS scraper_runs (
	id              uuid PRIMARY KEY,
	trigger         text        NOT NULL,
	mode            text        NOT NULL,
	status          text        NOT NULL,
	exit_code       integer     NOT NULL DEFAULT 0,
	attempts        integer     NOT NULL DEFAULT 0,
	output_tail     text,
	error           text,
	idempotency_key text UNIQUE,
	started_at      timestamptz,
	finished_at     timestamptz,
	created_at      timestamptz NOT NULL
);

CREATE INDEX IF NOT EXISTS scraper_runs_created_at_idx ON scraper_runs (created_at DESC);
`

// EnsureSchema создаёт таблицы, если их нет.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
