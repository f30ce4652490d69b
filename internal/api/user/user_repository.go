package user

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

// Repository defines the user persistence operations.
type Repository interface {
	// List returns a page of users matching the (already whitelisted) filter
	// columns, plus the total match count. Soft-deleted users are excluded
	// unless includeDeleted is set.
	List(ctx context.Context, filter map[string]interface{}, sorts []api.SortField, page api.PageParams, includeDeleted bool) ([]types.User, int, error)

	GetByID(ctx context.Context, id int64) (*types.User, error)
	Create(ctx context.Context, params types.CreateUserParams, passwordHash *string) (*types.User, error)
	Update(ctx context.Context, id int64, params types.UpdateUserParams, passwordHash *string) (*types.User, error)

	// SoftDelete stamps deleted_at, freeing the unique email/phone slots for
	// future signups while keeping the row.
	SoftDelete(ctx context.Context, id int64) error

	// HardDelete removes the row permanently.
	HardDelete(ctx context.Context, id int64) error
}

const userColumns = `id, firstname, lastname, email, phone, password_hash, role_code, status, provider, social_id, created_at, updated_at, deleted_at`

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

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Firstname, &u.Lastname, &u.Email, &u.Phone, &u.PasswordHash,
		&u.RoleCode, &u.Status, &u.Provider, &u.SocialID, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *PostgresRepo) List(ctx context.Context, filter map[string]interface{}, sorts []api.SortField, page api.PageParams, includeDeleted bool) ([]types.User, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	if !includeDeleted {
		where = append(where, "deleted_at IS NULL")
	}

	// Deterministic column order keeps the generated SQL stable for a given
	// filter set.
	columns := make([]string, 0, len(filter))
	for column := range filter {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	for _, column := range columns {
		args = append(args, filter[column])
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	whereClause := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM users"+whereClause, args...).Scan(&total); err != nil {
		api.CountDBError(ctx)
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	orderBy := " ORDER BY id"
	if len(sorts) > 0 {
		clauses := make([]string, 0, len(sorts))
		for _, s := range sorts {
			dir := "ASC"
			if s.Desc {
				dir = "DESC"
			}
			clauses = append(clauses, s.Column+" "+dir)
		}
		orderBy = " ORDER BY " + strings.Join(clauses, ", ")
	}

	args = append(args, page.PageSize)
	limit := fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, page.Offset())
	offset := fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.Query(ctx, "SELECT "+userColumns+" FROM users"+whereClause+orderBy+limit+offset, args...)
	if err != nil {
		api.CountDBError(ctx)
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]types.User, 0, page.PageSize)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (*types.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1 AND deleted_at IS NULL", id))
}

func (r *PostgresRepo) Create(ctx context.Context, params types.CreateUserParams, passwordHash *string) (*types.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx,
		`INSERT INTO users (firstname, lastname, email, phone, password_hash, role_code, status)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING `+userColumns,
		params.Firstname, params.Lastname, params.Email, params.Phone, passwordHash,
		params.RoleCode, types.StatusActivated))
	if err != nil {
		return nil, mapPgError("create user", err)
	}
	return user, nil
}

func (r *PostgresRepo) Update(ctx context.Context, id int64, params types.UpdateUserParams, passwordHash *string) (*types.User, error) {
	query := "UPDATE users SET updated_at = $1"
	args := []any{time.Now()}

	set := func(column string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(", %s = $%d", column, len(args))
	}
	if params.Firstname != nil {
		set("firstname", *params.Firstname)
	}
	if params.Lastname != nil {
		set("lastname", *params.Lastname)
	}
	if params.Email != nil {
		set("email", *params.Email)
	}
	if params.Phone != nil {
		set("phone", *params.Phone)
	}
	if passwordHash != nil {
		set("password_hash", *passwordHash)
	}
	if params.RoleCode != nil {
		set("role_code", *params.RoleCode)
	}
	if params.Status != nil {
		set("status", *params.Status)
	}

	args = append(args, id)
	query += fmt.Sprintf(" WHERE id = $%d AND deleted_at IS NULL RETURNING %s", len(args), userColumns)

	user, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapPgError("update user", err)
	}
	return user, nil
}

func (r *PostgresRepo) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE users SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL",
		time.Now(), id)
	if err != nil {
		api.CountDBError(ctx)
		return fmt.Errorf("soft delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) HardDelete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		api.CountDBError(ctx)
		return fmt.Errorf("hard delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func mapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, types.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
