package kid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/types"
)

var _ Repository = (*PostgresRepo)(nil)

// Repository defines the kid-profile persistence operations. parentID zero
// means "all parents"; the service sets it for non-admin callers.
type Repository interface {
	List(ctx context.Context, parentID int64, filter map[string]interface{}, sorts []api.SortField, page api.PageParams) ([]types.Kid, int, error)
	GetByID(ctx context.Context, id int64) (*types.Kid, error)
	Create(ctx context.Context, params types.CreateKidParams) (*types.Kid, error)
	Update(ctx context.Context, id int64, params types.UpdateKidParams) (*types.Kid, error)
	SoftDelete(ctx context.Context, id int64) error
	HardDelete(ctx context.Context, id int64) error
}

const kidColumns = `id, parent_id, firstname, lastname, birthdate, avatar_url, created_at, updated_at, deleted_at`

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

func scanKid(row pgx.Row) (*types.Kid, error) {
	var k types.Kid
	err := row.Scan(&k.ID, &k.ParentID, &k.Firstname, &k.Lastname, &k.Birthdate,
		&k.AvatarURL, &k.CreatedAt, &k.UpdatedAt, &k.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scan kid: %w", err)
	}
	return &k, nil
}

func (r *PostgresRepo) List(ctx context.Context, parentID int64, filter map[string]interface{}, sorts []api.SortField, page api.PageParams) ([]types.Kid, int, error) {
	where := "WHERE deleted_at IS NULL"
	args := []any{}
	if parentID != 0 {
		args = append(args, parentID)
		where += fmt.Sprintf(" AND parent_id = $%d", len(args))
	}

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
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM kids "+where, args...).Scan(&total); err != nil {
		api.CountDBError(ctx)
		return nil, 0, fmt.Errorf("count kids: %w", err)
	}

	orderBy := "ORDER BY id"
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
		"SELECT %s FROM kids %s %s LIMIT $%d OFFSET $%d",
		kidColumns, where, orderBy, len(args)-1, len(args)), args...)
	if err != nil {
		api.CountDBError(ctx)
		return nil, 0, fmt.Errorf("list kids: %w", err)
	}
	defer rows.Close()

	kids := make([]types.Kid, 0, page.PageSize)
	for rows.Next() {
		k, err := scanKid(rows)
		if err != nil {
			return nil, 0, err
		}
		kids = append(kids, *k)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list kids: %w", err)
	}
	return kids, total, nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (*types.Kid, error) {
	return scanKid(r.db.QueryRow(ctx,
		"SELECT "+kidColumns+" FROM kids WHERE id = $1 AND deleted_at IS NULL", id))
}

func (r *PostgresRepo) Create(ctx context.Context, params types.CreateKidParams) (*types.Kid, error) {
	kid, err := scanKid(r.db.QueryRow(ctx,
		`INSERT INTO kids (parent_id, firstname, lastname, birthdate, avatar_url)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING `+kidColumns,
		params.ParentID, params.Firstname, params.Lastname, params.Birthdate, params.AvatarURL))
	if err != nil {
		return nil, fmt.Errorf("create kid: %w", err)
	}
	return kid, nil
}

func (r *PostgresRepo) Update(ctx context.Context, id int64, params types.UpdateKidParams) (*types.Kid, error) {
	query := "UPDATE kids SET updated_at = $1"
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
	if params.Birthdate != nil {
		set("birthdate", *params.Birthdate)
	}
	if params.AvatarURL != nil {
		set("avatar_url", *params.AvatarURL)
	}

	args = append(args, id)
	query += fmt.Sprintf(" WHERE id = $%d AND deleted_at IS NULL RETURNING %s", len(args), kidColumns)

	return scanKid(r.db.QueryRow(ctx, query, args...))
}

func (r *PostgresRepo) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE kids SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL",
		time.Now(), id)
	if err != nil {
		api.CountDBError(ctx)
		return fmt.Errorf("soft delete kid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) HardDelete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM kids WHERE id = $1", id)
	if err != nil {
		api.CountDBError(ctx)
		return fmt.Errorf("hard delete kid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}
