package role

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/types"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) List(ctx context.Context, page api.PageParams) ([]types.Role, int, error) {
	args := m.Called(ctx, page)
	roles, _ := args.Get(0).([]types.Role)
	return roles, args.Int(1), args.Error(2)
}

func (m *MockRepository) GetByCode(ctx context.Context, code string) (*types.Role, error) {
	args := m.Called(ctx, code)
	role, _ := args.Get(0).(*types.Role)
	return role, args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, params types.CreateRoleParams) (*types.Role, error) {
	args := m.Called(ctx, params)
	role, _ := args.Get(0).(*types.Role)
	return role, args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, code string, params types.UpdateRoleParams) (*types.Role, error) {
	args := m.Called(ctx, code, params)
	role, _ := args.Get(0).(*types.Role)
	return role, args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func TestCreateValidatesActions(t *testing.T) {
	svc := NewService(new(MockRepository), discardLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, types.CreateRoleParams{
		Code: "editor",
		Name: "Editor",
		Permissions: []types.Permission{
			{Resource: "config", Action: types.Actions{"publish"}},
		},
	})
	assert.ErrorIs(t, err, types.ErrBadRequest)
}

func TestCreateRequiresCodeAndName(t *testing.T) {
	svc := NewService(new(MockRepository), discardLogger())
	_, err := svc.Create(context.Background(), types.CreateRoleParams{Code: "editor"})
	assert.ErrorIs(t, err, types.ErrBadRequest)
}

func TestCreateValidRole(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, discardLogger())
	ctx := context.Background()

	params := types.CreateRoleParams{
		Code: "editor",
		Name: "Editor",
		Permissions: []types.Permission{
			{Resource: "config", Action: types.Actions{"read", "update"}},
		},
	}
	repo.On("Create", ctx, params).Return(&types.Role{ID: 3, Code: "editor", Name: "Editor"}, nil)

	role, err := svc.Create(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, "editor", role.Code)
	repo.AssertExpectations(t)
}

func TestUpdateValidatesPermissions(t *testing.T) {
	svc := NewService(new(MockRepository), discardLogger())
	bad := []types.Permission{{Resource: "", Action: types.Actions{"read"}}}
	_, err := svc.Update(context.Background(), "editor", types.UpdateRoleParams{Permissions: &bad})
	assert.ErrorIs(t, err, types.ErrBadRequest)
}

func TestDeleteProtectsAdminRole(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, discardLogger())

	err := svc.Delete(context.Background(), types.AdminRoleCode)
	assert.ErrorIs(t, err, types.ErrBadRequest)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteOtherRole(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, discardLogger())
	ctx := context.Background()

	repo.On("Delete", ctx, "editor").Return(nil)
	require.NoError(t, svc.Delete(ctx, "editor"))
	repo.AssertExpectations(t)
}
