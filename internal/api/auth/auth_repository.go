package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/types"
)

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// AuthRepo defines the credential-store lookups the login flows need.
type AuthRepo interface {
	// GetUserByEmail retrieves a live (non-soft-deleted) user by email.
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)

	// GetUserByPhone retrieves a user by phone including soft-deleted rows,
	// so the phone flow can refuse deleted accounts instead of recreating them.
	GetUserByPhone(ctx context.Context, phone string) (*types.User, error)

	GetUserByID(ctx context.Context, id int64) (*types.User, error)
	GetUserBySocial(ctx context.Context, provider, socialID string) (*types.User, error)

	// CreatePhoneUser bootstraps a NEW user for a first-time phone login.
	CreatePhoneUser(ctx context.Context, phone, roleCode string) (*types.User, error)

	// CreateSocialUser creates an ACTIVATED user from a federated identity.
	CreateSocialUser(ctx context.Context, provider, socialID string, email, firstname, lastname *string) (*types.User, error)

	// ActivateUser transitions a user's status to ACTIVATED.
	ActivateUser(ctx context.Context, id int64) error

	UpdateEmail(ctx context.Context, id int64, email string) error
	UpdatePhone(ctx context.Context, id int64, phone string) error
}

const userColumns = `id, firstname, lastname, email, phone, password_hash, role_code, status, provider, social_id, created_at, updated_at, deleted_at`

type PostgresAuthRepo struct {
	logger *slog.Logger
	db     api.Querier
}

func NewPostgresAuthRepo(db api.Querier, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
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

func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1 AND deleted_at IS NULL",
		email))
}

func (r *PostgresAuthRepo) GetUserByPhone(ctx context.Context, phone string) (*types.User, error) {
	// Soft-deleted rows included on purpose; most recent row wins.
	return scanUser(r.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE phone = $1 ORDER BY deleted_at IS NOT NULL, id DESC LIMIT 1",
		phone))
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, id int64) (*types.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1 AND deleted_at IS NULL",
		id))
}

func (r *PostgresAuthRepo) GetUserBySocial(ctx context.Context, provider, socialID string) (*types.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE provider = $1 AND social_id = $2 AND deleted_at IS NULL",
		provider, socialID))
}

func (r *PostgresAuthRepo) CreatePhoneUser(ctx context.Context, phone, roleCode string) (*types.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx,
		`INSERT INTO users (phone, role_code, status) VALUES ($1, $2, $3)
         RETURNING `+userColumns,
		phone, roleCode, types.StatusNew))
	if err != nil {
		return nil, mapPgError("create phone user", err)
	}
	return user, nil
}

func (r *PostgresAuthRepo) CreateSocialUser(ctx context.Context, provider, socialID string, email, firstname, lastname *string) (*types.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx,
		`INSERT INTO users (provider, social_id, email, firstname, lastname, role_code, status)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING `+userColumns,
		provider, socialID, email, firstname, lastname, types.DefaultRoleCode, types.StatusActivated))
	if err != nil {
		return nil, mapPgError("create social user", err)
	}
	return user, nil
}

func (r *PostgresAuthRepo) ActivateUser(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE users SET status = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL",
		types.StatusActivated, time.Now(), id)
	if err != nil {
		api.CountDBError(ctx)
		return fmt.Errorf("activate user: db update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresAuthRepo) UpdateEmail(ctx context.Context, id int64, email string) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE users SET email = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL",
		email, time.Now(), id)
	if err != nil {
		api.CountDBError(ctx)
		return mapPgError("update email", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresAuthRepo) UpdatePhone(ctx context.Context, id int64, phone string) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE users SET phone = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL",
		phone, time.Now(), id)
	if err != nil {
		api.CountDBError(ctx)
		return mapPgError("update phone", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// mapPgError translates unique-violation errors into the domain conflict
// sentinel so handlers can answer 409 without inspecting driver errors.
func mapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, types.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
