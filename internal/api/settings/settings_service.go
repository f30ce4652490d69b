package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/api/auth"
	"github.com/littlesteps-app/backoffice/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the configuration-record operations.
type Service interface {
	List(ctx context.Context, filter map[string]interface{}, sorts []api.SortField, page api.PageParams) ([]types.AppConfig, int, error)
	Get(ctx context.Context, key string) (*types.AppConfig, error)
	Create(ctx context.Context, params types.CreateAppConfigParams) (*types.AppConfig, error)
	Update(ctx context.Context, key string, params types.UpdateAppConfigParams) (*types.AppConfig, error)
	Delete(ctx context.Context, key string, hard bool, caller auth.Caller) error
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

func (s *ServiceImpl) List(ctx context.Context, filter map[string]interface{}, sorts []api.SortField, page api.PageParams) ([]types.AppConfig, int, error) {
	return s.repo.List(ctx, filter, sorts, page)
}

func (s *ServiceImpl) Get(ctx context.Context, key string) (*types.AppConfig, error) {
	return s.repo.GetByKey(ctx, key)
}

func (s *ServiceImpl) Create(ctx context.Context, params types.CreateAppConfigParams) (*types.AppConfig, error) {
	if params.Key == "" {
		return nil, fmt.Errorf("%w: key is required", types.ErrBadRequest)
	}
	if err := validateValue(params.Value); err != nil {
		return nil, err
	}

	config, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Config created", slog.String("key", config.Key))
	return config, nil
}

func (s *ServiceImpl) Update(ctx context.Context, key string, params types.UpdateAppConfigParams) (*types.AppConfig, error) {
	if params.Value != nil {
		if err := validateValue(params.Value); err != nil {
			return nil, err
		}
	}

	config, err := s.repo.Update(ctx, key, params)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Config updated", slog.String("key", key))
	return config, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, key string, hard bool, caller auth.Caller) error {
	if hard && caller.IsAdmin() {
		s.logger.InfoContext(ctx, "Config hard-deleted",
			slog.String("key", key), slog.Int64("deleted_by", caller.UserID))
		return s.repo.HardDelete(ctx, key)
	}
	if err := s.repo.SoftDelete(ctx, key); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Config soft-deleted",
		slog.String("key", key), slog.Int64("deleted_by", caller.UserID))
	return nil
}

func validateValue(value json.RawMessage) error {
	if len(value) == 0 {
		return fmt.Errorf("%w: value is required", types.ErrBadRequest)
	}
	if !json.Valid(value) {
		return fmt.Errorf("%w: value must be valid JSON", types.ErrBadRequest)
	}
	return nil
}
