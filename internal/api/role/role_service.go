package role

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the role management operations.
type Service interface {
	List(ctx context.Context, page api.PageParams) ([]types.Role, int, error)
	Get(ctx context.Context, code string) (*types.Role, error)
	Create(ctx context.Context, params types.CreateRoleParams) (*types.Role, error)
	Update(ctx context.Context, code string, params types.UpdateRoleParams) (*types.Role, error)
	Delete(ctx context.Context, code string) error
}

// knownActions is the closed set of permission actions a role may grant.
var knownActions = map[string]struct{}{
	"*": {}, "create": {}, "read": {}, "update": {}, "delete": {}, "list": {},
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

func (s *ServiceImpl) List(ctx context.Context, page api.PageParams) ([]types.Role, int, error) {
	return s.repo.List(ctx, page)
}

func (s *ServiceImpl) Get(ctx context.Context, code string) (*types.Role, error) {
	return s.repo.GetByCode(ctx, code)
}

func (s *ServiceImpl) Create(ctx context.Context, params types.CreateRoleParams) (*types.Role, error) {
	if params.Code == "" || params.Name == "" {
		return nil, fmt.Errorf("%w: code and name are required", types.ErrBadRequest)
	}
	if err := validatePermissions(params.Permissions); err != nil {
		return nil, err
	}

	role, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Role created", slog.String("code", role.Code))
	return role, nil
}

func (s *ServiceImpl) Update(ctx context.Context, code string, params types.UpdateRoleParams) (*types.Role, error) {
	if params.Permissions != nil {
		if err := validatePermissions(*params.Permissions); err != nil {
			return nil, err
		}
	}

	role, err := s.repo.Update(ctx, code, params)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Role updated", slog.String("code", code))
	return role, nil
}

// Delete removes a role. The admin role is load-bearing for the guard and
// cannot be removed.
func (s *ServiceImpl) Delete(ctx context.Context, code string) error {
	if code == types.AdminRoleCode {
		return fmt.Errorf("%w: the admin role cannot be deleted", types.ErrBadRequest)
	}
	if err := s.repo.Delete(ctx, code); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Role deleted", slog.String("code", code))
	return nil
}

func validatePermissions(perms []types.Permission) error {
	for _, p := range perms {
		if p.Resource == "" {
			return fmt.Errorf("%w: permission resource cannot be empty", types.ErrBadRequest)
		}
		if len(p.Action) == 0 {
			return fmt.Errorf("%w: permission for %q grants no actions", types.ErrBadRequest, p.Resource)
		}
		for _, a := range p.Action {
			if _, ok := knownActions[a]; !ok {
				return fmt.Errorf("%w: unknown permission action %q", types.ErrBadRequest, a)
			}
		}
	}
	return nil
}
