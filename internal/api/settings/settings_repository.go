package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/types"
)

var _ Repository = (*PostgresRepo)(nil)

// Repository defines the configuration-record persistence operations.
// Records are addressed by their string key.
type Repository interface {
	List(ctx context.Context, filter map[string]interface{}, sorts []api.SortField, page api.PageParams) ([]types.AppConfig, int, error)
	GetByKey(ctx context.Context, key string) (*types.AppConfig, error)
	Create(ctx context.Context, params types.CreateAppConfigParams) (*types.AppConfig, error)
	Update(ctx context.Context, key string, params types.UpdateAppConfigParams) (*types.AppConfig, error)
	SoftDelete(ctx context.Context, key string) error
	HardDelete(ctx context.Context, key string) error
}

const configColumns = `id, key, value, description, created_at, updated_at, deleted_at`

type PostgresRepo struct {
	logger *slog.Logger
	db     api.Querier
}

func NewPostgresRepo(db api.Querier, logger *slog.Logger) *PostgresRepo {
	return &PostgresRepo{
		logger: logger,
		db:     db,
	}
}

func scanConfig(row pgx.Row) (*types.AppConfig, error) {
	var c types.AppConfig
	err := row.Scan(&c.ID, &c.Key, &c.Value, &c.Description, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scan app config: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepo) List(ctx context.Context, filter map[string]interface{}, sorts []api.SortField, page api.PageParams) ([]types.AppConfig, int, error) {
	where := "WHERE deleted_at IS NULL"
	args := []any{}

	columns := make([]string, 0, len(filter))
	for column := range filter {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	for _, column := range columns {
		args = append(args, filter[column])
		where += fmt.Sprintf(" AND %s = $%d", column, len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx,
		"SELECT count(*) FROM app_configs "+where, args...).Scan(&total); err != nil {
		api.CountDBError(ctx)
		return nil, 0, fmt.Errorf("count app configs: %w", err)
	}

	orderBy := "ORDER BY key"
	if len(sorts) > 0 {
		clauses := make([]string, 0, len(sorts))
		for _, s := range sorts {
			dir := "ASC"
			if s.Desc {
				dir = "DESC"
			}
			clauses = append(clauses, s.Column+" "+dir)
		}
		orderBy = "ORDER BY " + strings.Join(clauses, ", ")
	}

	args = append(args, page.PageSize, page.Offset())
	rows, err := r.db.Query(ctx, fmt.Sprintf(
		"SELECT %s FROM app_configs %s %s LIMIT $%d OFFSET $%d",
		configColumns, where, orderBy, len(args)-1, len(args)), args...)
	if err != nil {
		api.CountDBError(ctx)
		return nil, 0, fmt.Errorf("list app configs: %w", err)
	}
	defer rows.Close()

	configs := make([]types.AppConfig, 0, page.PageSize)
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, 0, err
		}
		configs = append(configs, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list app configs: %w", err)
	}
	return configs, total, nil
}

func (r *PostgresRepo) GetByKey(ctx context.Context, key string) (*types.AppConfig, error) {
	return scanConfig(r.db.QueryRow(ctx,
		"SELECT "+configColumns+" FROM app_configs WHERE key = $1 AND deleted_at IS NULL", key))
}

func (r *PostgresRepo) Create(ctx context.Context, params types.CreateAppConfigParams) (*types.AppConfig, error) {
	config, err := scanConfig(r.db.QueryRow(ctx,
		`INSERT INTO app_configs (key, value, description) VALUES ($1, $2, $3)
         RETURNING `+configColumns,
		params.Key, params.Value, params.Description))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("create app config: %w", types.ErrConflict)
		}
		return nil, fmt.Errorf("create app config: %w", err)
	}
	return config, nil
}

func (r *PostgresRepo) Update(ctx context.Context, key string, params types.UpdateAppConfigParams) (*types.AppConfig, error) {
	query := "UPDATE app_configs SET updated_at = $1"
	args := []any{time.Now()}

	if params.Value != nil {
		args = append(args, params.Value)
		query += fmt.Sprintf(", value = $%d", len(args))
	}
	if params.Description != nil {
		args = append(args, *params.Description)
		query += fmt.Sprintf(", description = $%d", len(args))
	}

	args = append(args, key)
	query += fmt.Sprintf(" WHERE key = $%d AND deleted_at IS NULL RETURNING %s", len(args), configColumns)

	return scanConfig(r.db.QueryRow(ctx, query, args...))
}

func (r *PostgresRepo) SoftDelete(ctx context.Context, key string) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE app_configs SET deleted_at = $1, updated_at = $1 WHERE key = $2 AND deleted_at IS NULL",
		time.Now(), key)
	if err != nil {
		api.CountDBError(ctx)
		return fmt.Errorf("soft delete app config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) HardDelete(ctx context.Context, key string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM app_configs WHERE key = $1", key)
	if err != nil {
		api.CountDBError(ctx)
		return fmt.Errorf("hard delete app config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}
