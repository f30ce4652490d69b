package kid

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/api/auth"
	"github.com/littlesteps-app/backoffice/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the kid-profile operations. Ownership is enforced here:
// non-admin callers only ever see and touch their own kids, whatever IDs they
// put in the request.
type Service interface {
	List(ctx context.Context, caller auth.Caller, filter map[string]interface{}, sorts []api.SortField, page api.PageParams) ([]types.Kid, int, error)
	Get(ctx context.Context, caller auth.Caller, id int64) (*types.Kid, error)
	Create(ctx context.Context, caller auth.Caller, params types.CreateKidParams) (*types.Kid, error)
	Update(ctx context.Context, caller auth.Caller, id int64, params types.UpdateKidParams) (*types.Kid, error)
	Delete(ctx context.Context, caller auth.Caller, id int64, hard bool) error
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

func (s *ServiceImpl) List(ctx context.Context, caller auth.Caller, filter map[string]interface{}, sorts []api.SortField, page api.PageParams) ([]types.Kid, int, error) {
	parentID := caller.UserID
	if caller.IsAdmin() {
		parentID = 0 // all parents
	}
	return s.repo.List(ctx, parentID, filter, sorts, page)
}

func (s *ServiceImpl) Get(ctx context.Context, caller auth.Caller, id int64) (*types.Kid, error) {
	kid, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(caller, kid); err != nil {
		return nil, err
	}
	return kid, nil
}

func (s *ServiceImpl) Create(ctx context.Context, caller auth.Caller, params types.CreateKidParams) (*types.Kid, error) {
	if params.Firstname == "" {
		return nil, fmt.Errorf("%w: firstname is required", types.ErrBadRequest)
	}
	// Only admins may create a kid under another parent.
	if !caller.IsAdmin() || params.ParentID == 0 {
		params.ParentID = caller.UserID
	}

	kid, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Kid created",
		slog.Int64("kid_id", kid.ID), slog.Int64("parent_id", kid.ParentID))
	return kid, nil
}

func (s *ServiceImpl) Update(ctx context.Context, caller auth.Caller, id int64, params types.UpdateKidParams) (*types.Kid, error) {
	kid, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(caller, kid); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, params)
}

func (s *ServiceImpl) Delete(ctx context.Context, caller auth.Caller, id int64, hard bool) error {
	kid, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkOwner(caller, kid); err != nil {
		return err
	}
	if hard && caller.IsAdmin() {
		return s.repo.HardDelete(ctx, id)
	}
	return s.repo.SoftDelete(ctx, id)
}

func (s *ServiceImpl) checkOwner(caller auth.Caller, kid *types.Kid) error {
	if caller.IsAdmin() || kid.ParentID == caller.UserID {
		return nil
	}
	return types.ErrForbidden
}
