package api

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/littlesteps-app/backoffice/app/observability/metrics"
)

// Querier is the subset of *pgxpool.Pool the repositories use. pgxmock
// satisfies it in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CountDBError records a failed query in the db_query_errors_total counter.
// Repositories call it on unexpected scan/exec failures (not on ErrNoRows).
func CountDBError(ctx context.Context) {
	metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
}
