package role

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/patrickmn/go-cache"

	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/types"
)

var _ Repository = (*PostgresRepo)(nil)

// Repository defines the role persistence operations. GetByCode sits on the
// authorization hot path and is cached; every mutation invalidates the cached
// entry so permission changes take effect immediately.
type Repository interface {
	List(ctx context.Context, page api.PageParams) ([]types.Role, int, error)
	GetByCode(ctx context.Context, code string) (*types.Role, error)
	Create(ctx context.Context, params types.CreateRoleParams) (*types.Role, error)
	Update(ctx context.Context, code string, params types.UpdateRoleParams) (*types.Role, error)
	Delete(ctx context.Context, code string) error
}

const roleColumns = `id, code, name, description, permissions, created_at, updated_at`

type PostgresRepo struct {
	logger *slog.Logger
	db     api.Querier
	cache  *cache.Cache
}

func NewPostgresRepo(db api.Querier, logger *slog.Logger) *PostgresRepo {
	return &PostgresRepo{
		logger: logger,
		db:     db,
		cache:  cache.New(5*time.Minute, 10*time.Minute),
	}
}

func scanRole(row pgx.Row) (*types.Role, error) {
	var r types.Role
	var permsRaw []byte
	err := row.Scan(&r.ID, &r.Code, &r.Name, &r.Description, &permsRaw, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}
	if err := json.Unmarshal(permsRaw, &r.Permissions); err != nil {
		return nil, fmt.Errorf("decode role permissions: %w", err)
	}
	return &r, nil
}

func (r *PostgresRepo) List(ctx context.Context, page api.PageParams) ([]types.Role, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM roles").Scan(&total); err != nil {
		api.CountDBError(ctx)
		return nil, 0, fmt.Errorf("count roles: %w", err)
	}

	rows, err := r.db.Query(ctx,
		"SELECT "+roleColumns+" FROM roles ORDER BY code LIMIT $1 OFFSET $2",
		page.PageSize, page.Offset())
	if err != nil {
		api.CountDBError(ctx)
		return nil, 0, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	roles := make([]types.Role, 0, page.PageSize)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, 0, err
		}
		roles = append(roles, *role)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list roles: %w", err)
	}
	return roles, total, nil
}

func (r *PostgresRepo) GetByCode(ctx context.Context, code string) (*types.Role, error) {
	if cached, found := r.cache.Get(code); found {
		return cached.(*types.Role), nil
	}

	role, err := scanRole(r.db.QueryRow(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE code = $1", code))
	if err != nil {
		return nil, err
	}
	r.cache.Set(code, role, cache.DefaultExpiration)
	return role, nil
}

func (r *PostgresRepo) Create(ctx context.Context, params types.CreateRoleParams) (*types.Role, error) {
	permsRaw, err := json.Marshal(params.Permissions)
	if err != nil {
		return nil, fmt.Errorf("encode role permissions: %w", err)
	}

	role, err := scanRole(r.db.QueryRow(ctx,
		`INSERT INTO roles (code, name, description, permissions) VALUES ($1, $2, $3, $4)
         RETURNING `+roleColumns,
		params.Code, params.Name, params.Description, permsRaw))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("create role: %w", types.ErrConflict)
		}
		return nil, fmt.Errorf("create role: %w", err)
	}
	return role, nil
}

func (r *PostgresRepo) Update(ctx context.Context, code string, params types.UpdateRoleParams) (*types.Role, error) {
	query := "UPDATE roles SET updated_at = $1"
	args := []any{time.Now()}

	if params.Name != nil {
		args = append(args, *params.Name)
		query += fmt.Sprintf(", name = $%d", len(args))
	}
	if params.Description != nil {
		args = append(args, *params.Description)
		query += fmt.Sprintf(", description = $%d", len(args))
	}
	if params.Permissions != nil {
		permsRaw, err := json.Marshal(*params.Permissions)
		if err != nil {
			return nil, fmt.Errorf("encode role permissions: %w", err)
		}
		args = append(args, permsRaw)
		query += fmt.Sprintf(", permissions = $%d", len(args))
	}

	args = append(args, code)
	query += fmt.Sprintf(" WHERE code = $%d RETURNING %s", len(args), roleColumns)

	role, err := scanRole(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}

	// Permission changes must be visible to the guard immediately.
	r.cache.Delete(code)
	return role, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, code string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM roles WHERE code = $1", code)
	if err != nil {
		api.CountDBError(ctx)
		return fmt.Errorf("delete role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	r.cache.Delete(code)
	return nil
}
