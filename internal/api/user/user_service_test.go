package user

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/api/auth"
	"github.com/littlesteps-app/backoffice/internal/types"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) List(ctx context.Context, filter map[string]interface{}, sorts []api.SortField, page api.PageParams, includeDeleted bool) ([]types.User, int, error) {
	args := m.Called(ctx, filter, sorts, page, includeDeleted)
	users, _ := args.Get(0).([]types.User)
	return users, args.Int(1), args.Error(2)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*types.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*types.User)
	return user, args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, params types.CreateUserParams, passwordHash *string) (*types.User, error) {
	args := m.Called(ctx, params, passwordHash)
	user, _ := args.Get(0).(*types.User)
	return user, args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, id int64, params types.UpdateUserParams, passwordHash *string) (*types.User, error) {
	args := m.Called(ctx, id, params, passwordHash)
	user, _ := args.Get(0).(*types.User)
	return user, args.Error(1)
}

func (m *MockRepository) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) HardDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestService(repo *MockRepository) *ServiceImpl {
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func ptr[T any](v T) *T { return &v }

func TestCreateHashesPassword(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	params := types.CreateUserParams{
		Email:    ptr("ana@example.com"),
		Password: ptr("correct-horse"),
		RoleCode: "parent",
	}

	var gotHash *string
	repo.On("Create", ctx, params, mock.AnythingOfType("*string")).
		Run(func(args mock.Arguments) { gotHash = args.Get(2).(*string) }).
		Return(&types.User{ID: 1, Email: params.Email, RoleCode: "parent"}, nil)

	_, err := svc.Create(ctx, params)
	require.NoError(t, err)
	require.NotNil(t, gotHash)
	assert.NotEqual(t, "correct-horse", *gotHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*gotHash), []byte("correct-horse")))
}

func TestCreateRequiresContactPoint(t *testing.T) {
	svc := newTestService(new(MockRepository))
	_, err := svc.Create(context.Background(), types.CreateUserParams{RoleCode: "parent"})
	assert.ErrorIs(t, err, types.ErrBadRequest)
}

func TestCreateDefaultsRole(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.MatchedBy(func(p types.CreateUserParams) bool {
		return p.RoleCode == types.DefaultRoleCode
	}), (*string)(nil)).Return(&types.User{ID: 1}, nil)

	_, err := svc.Create(ctx, types.CreateUserParams{Phone: ptr("+351910000000")})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(new(MockRepository))
	bad := types.UserStatus("FROZEN")
	admin := auth.Caller{UserID: 1, RoleCode: types.AdminRoleCode}
	_, err := svc.Update(context.Background(), 1, types.UpdateUserParams{Status: &bad}, admin)
	assert.ErrorIs(t, err, types.ErrBadRequest)
}

func TestUpdateRoleChangeRequiresAdmin(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	// A parent editing their own record must not be able to grant
	// themselves the admin role.
	self := auth.Caller{UserID: 7, RoleCode: "parent"}
	_, err := svc.Update(ctx, 7, types.UpdateUserParams{RoleCode: ptr("admin")}, self)
	assert.ErrorIs(t, err, types.ErrForbidden)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatusChangeRequiresAdmin(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	status := types.StatusActivated
	self := auth.Caller{UserID: 7, RoleCode: "parent"}
	_, err := svc.Update(ctx, 7, types.UpdateUserParams{Status: &status}, self)
	assert.ErrorIs(t, err, types.ErrForbidden)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateOwnProfileFields(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	params := types.UpdateUserParams{Firstname: ptr("Ana")}
	self := auth.Caller{UserID: 7, RoleCode: "parent"}
	repo.On("Update", ctx, int64(7), params, (*string)(nil)).
		Return(&types.User{ID: 7, Firstname: ptr("Ana")}, nil)

	user, err := svc.Update(ctx, 7, params, self)
	require.NoError(t, err)
	assert.Equal(t, "Ana", *user.Firstname)
	repo.AssertExpectations(t)
}

func TestUpdateRoleAsAdmin(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	params := types.UpdateUserParams{RoleCode: ptr("admin")}
	admin := auth.Caller{UserID: 1, RoleCode: types.AdminRoleCode}
	repo.On("Update", ctx, int64(7), params, (*string)(nil)).
		Return(&types.User{ID: 7, RoleCode: "admin"}, nil)

	_, err := svc.Update(ctx, 7, params, admin)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestDeleteHardRequiresAdmin(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	// A non-admin asking for hard deletion gets a soft delete.
	repo.On("SoftDelete", ctx, int64(5)).Return(nil)
	err := svc.Delete(ctx, 5, true, auth.Caller{UserID: 5, RoleCode: "parent"})
	require.NoError(t, err)
	repo.AssertCalled(t, "SoftDelete", ctx, int64(5))
	repo.AssertNotCalled(t, "HardDelete", mock.Anything, mock.Anything)
}

func TestDeleteHardAsAdmin(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("HardDelete", ctx, int64(5)).Return(nil)
	err := svc.Delete(ctx, 5, true, auth.Caller{UserID: 1, RoleCode: types.AdminRoleCode})
	require.NoError(t, err)
	repo.AssertCalled(t, "HardDelete", ctx, int64(5))
	repo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
}

func TestDeleteSoftByDefault(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("SoftDelete", ctx, int64(5)).Return(nil)
	err := svc.Delete(ctx, 5, false, auth.Caller{UserID: 1, RoleCode: types.AdminRoleCode})
	require.NoError(t, err)
	repo.AssertCalled(t, "SoftDelete", ctx, int64(5))
}
