package kid

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/api/auth"
	"github.com/littlesteps-app/backoffice/internal/types"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) List(ctx context.Context, parentID int64, filter map[string]interface{}, sorts []api.SortField, page api.PageParams) ([]types.Kid, int, error) {
	args := m.Called(ctx, parentID, filter, sorts, page)
	kids, _ := args.Get(0).([]types.Kid)
	return kids, args.Int(1), args.Error(2)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*types.Kid, error) {
	args := m.Called(ctx, id)
	kid, _ := args.Get(0).(*types.Kid)
	return kid, args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, params types.CreateKidParams) (*types.Kid, error) {
	args := m.Called(ctx, params)
	kid, _ := args.Get(0).(*types.Kid)
	return kid, args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, id int64, params types.UpdateKidParams) (*types.Kid, error) {
	args := m.Called(ctx, id, params)
	kid, _ := args.Get(0).(*types.Kid)
	return kid, args.Error(1)
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

var (
	parentCaller = auth.Caller{UserID: 7, RoleCode: "parent"}
	adminCaller  = auth.Caller{UserID: 1, RoleCode: types.AdminRoleCode}
)

func TestListScopesToOwnKids(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()
	page := api.PageParams{Page: 1, PageSize: 20}

	repo.On("List", ctx, int64(7), map[string]interface{}(nil), []api.SortField(nil), page).
		Return([]types.Kid{{ID: 3, ParentID: 7}}, 1, nil)

	kids, total, err := svc.List(ctx, parentCaller, nil, nil, page)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, kids, 1)
	repo.AssertExpectations(t)
}

func TestListAdminSeesAll(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()
	page := api.PageParams{Page: 1, PageSize: 20}

	repo.On("List", ctx, int64(0), map[string]interface{}(nil), []api.SortField(nil), page).
		Return([]types.Kid{}, 0, nil)

	_, _, err := svc.List(ctx, adminCaller, nil, nil, page)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCreateForcesOwnParentID(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	// A parent trying to create a kid under someone else gets their own id.
	repo.On("Create", ctx, mock.MatchedBy(func(p types.CreateKidParams) bool {
		return p.ParentID == 7
	})).Return(&types.Kid{ID: 3, ParentID: 7, Firstname: "Maya"}, nil)

	_, err := svc.Create(ctx, parentCaller, types.CreateKidParams{ParentID: 999, Firstname: "Maya"})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCreateAdminMayTargetAnyParent(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.MatchedBy(func(p types.CreateKidParams) bool {
		return p.ParentID == 999
	})).Return(&types.Kid{ID: 3, ParentID: 999, Firstname: "Maya"}, nil)

	_, err := svc.Create(ctx, adminCaller, types.CreateKidParams{ParentID: 999, Firstname: "Maya"})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCreateRequiresFirstname(t *testing.T) {
	svc := newTestService(new(MockRepository))
	_, err := svc.Create(context.Background(), parentCaller, types.CreateKidParams{})
	assert.ErrorIs(t, err, types.ErrBadRequest)
}

func TestGetForbiddenForOtherParent(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, int64(3)).Return(&types.Kid{ID: 3, ParentID: 8}, nil)

	_, err := svc.Get(ctx, parentCaller, 3)
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestUpdateChecksOwnershipBeforeWriting(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, int64(3)).Return(&types.Kid{ID: 3, ParentID: 8}, nil)

	name := "Maya"
	_, err := svc.Update(ctx, parentCaller, 3, types.UpdateKidParams{Firstname: &name})
	assert.ErrorIs(t, err, types.ErrForbidden)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteHardOnlyForAdmin(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, int64(3)).Return(&types.Kid{ID: 3, ParentID: 7}, nil)
	repo.On("SoftDelete", ctx, int64(3)).Return(nil)

	require.NoError(t, svc.Delete(ctx, parentCaller, 3, true))
	repo.AssertCalled(t, "SoftDelete", ctx, int64(3))
	repo.AssertNotCalled(t, "HardDelete", mock.Anything, mock.Anything)
}

func TestDeleteHardAsAdmin(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, int64(3)).Return(&types.Kid{ID: 3, ParentID: 7}, nil)
	repo.On("HardDelete", ctx, int64(3)).Return(nil)

	require.NoError(t, svc.Delete(ctx, adminCaller, 3, true))
	repo.AssertCalled(t, "HardDelete", ctx, int64(3))
}
