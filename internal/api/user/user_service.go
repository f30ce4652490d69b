package user

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/api/auth"
	"github.com/littlesteps-app/backoffice/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the user management operations.
type Service interface {
	List(ctx context.Context, filter map[string]interface{}, sorts []api.SortField, page api.PageParams, includeDeleted bool) ([]types.User, int, error)
	Get(ctx context.Context, id int64) (*types.User, error)
	Create(ctx context.Context, params types.CreateUserParams) (*types.User, error)

	// Update edits a user record. Role and status are admin-only fields: a
	// non-admin sending either is refused, otherwise editing your own record
	// would be a self-service promotion to admin.
	Update(ctx context.Context, id int64, params types.UpdateUserParams, caller auth.Caller) (*types.User, error)

	// Delete removes a user. Hard deletion is admin-only; for anyone else a
	// hard request silently degrades to a soft delete.
	Delete(ctx context.Context, id int64, hard bool, caller auth.Caller) error
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
}

func NewService(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *ServiceImpl) List(ctx context.Context, filter map[string]interface{}, sorts []api.SortField, page api.PageParams, includeDeleted bool) ([]types.User, int, error) {
	return s.repo.List(ctx, filter, sorts, page, includeDeleted)
}

func (s *ServiceImpl) Get(ctx context.Context, id int64) (*types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ServiceImpl) Create(ctx context.Context, params types.CreateUserParams) (*types.User, error) {
	if params.Email == nil && params.Phone == nil {
		return nil, fmt.Errorf("%w: email or phone is required", types.ErrBadRequest)
	}
	if params.RoleCode == "" {
		params.RoleCode = types.DefaultRoleCode
	}

	hash, err := hashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Create(ctx, params, hash)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "User created", slog.Int64("user_id", user.ID))
	return user, nil
}

func (s *ServiceImpl) Update(ctx context.Context, id int64, params types.UpdateUserParams, caller auth.Caller) (*types.User, error) {
	if (params.RoleCode != nil || params.Status != nil) && !caller.IsAdmin() {
		s.logger.WarnContext(ctx, "Refused role/status change by non-admin",
			slog.Int64("user_id", id), slog.Int64("caller_id", caller.UserID))
		return nil, fmt.Errorf("%w: only admins may change role or status", types.ErrForbidden)
	}
	if params.Status != nil {
		switch *params.Status {
		case types.StatusNew, types.StatusActivated, types.StatusDeactivated:
		default:
			return nil, fmt.Errorf("%w: unknown status %q", types.ErrBadRequest, *params.Status)
		}
	}

	hash, err := hashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	return s.repo.Update(ctx, id, params, hash)
}

func (s *ServiceImpl) Delete(ctx context.Context, id int64, hard bool, caller auth.Caller) error {
	if hard && caller.IsAdmin() {
		s.logger.InfoContext(ctx, "User hard-deleted",
			slog.Int64("user_id", id), slog.Int64("deleted_by", caller.UserID))
		return s.repo.HardDelete(ctx, id)
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "User soft-deleted",
		slog.Int64("user_id", id), slog.Int64("deleted_by", caller.UserID))
	return nil
}

func hashPassword(password *string) (*string, error) {
	if password == nil || *password == "" {
		return nil, nil
	}
	raw, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	hash := string(raw)
	return &hash, nil
}
