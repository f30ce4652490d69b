package role

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/app/observability/metrics"
	"github.com/littlesteps-app/backoffice/internal/types"
)

func TestMain(m *testing.M) {
	metrics.InitAppMetrics()
	m.Run()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var roleCols = []string{"id", "code", "name", "description", "permissions", "created_at", "updated_at"}

func parentRow(t *testing.T) *pgxmock.Rows {
	t.Helper()
	now := time.Now()
	perms := []byte(`[{"resource":"kid","action":["create","read","update","delete","list"]}]`)
	return pgxmock.NewRows(roleCols).
		AddRow(int64(2), "parent", "Parent", (*string)(nil), perms, now, now)
}

func TestGetByCodeDecodesPermissions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM roles WHERE code").
		WithArgs("parent").
		WillReturnRows(parentRow(t))

	repo := NewPostgresRepo(mock, discardLogger())
	role, err := repo.GetByCode(context.Background(), "parent")
	require.NoError(t, err)
	assert.Equal(t, "parent", role.Code)
	require.Len(t, role.Permissions, 1)
	assert.Equal(t, "kid", role.Permissions[0].Resource)
	assert.Contains(t, role.Permissions[0].Action, "list")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByCodeServesSecondLookupFromCache(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// One query expectation only; the second lookup must not hit the pool.
	mock.ExpectQuery("SELECT (.+) FROM roles WHERE code").
		WithArgs("parent").
		WillReturnRows(parentRow(t))

	repo := NewPostgresRepo(mock, discardLogger())
	ctx := context.Background()

	_, err = repo.GetByCode(ctx, "parent")
	require.NoError(t, err)
	role, err := repo.GetByCode(ctx, "parent")
	require.NoError(t, err)
	assert.Equal(t, "parent", role.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByCodeNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM roles WHERE code").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows(roleCols))

	repo := NewPostgresRepo(mock, discardLogger())
	_, err = repo.GetByCode(context.Background(), "ghost")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUpdateInvalidatesCache(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepo(mock, discardLogger())
	ctx := context.Background()

	mock.ExpectQuery("SELECT (.+) FROM roles WHERE code").
		WithArgs("parent").
		WillReturnRows(parentRow(t))
	_, err = repo.GetByCode(ctx, "parent")
	require.NoError(t, err)

	newPerms := []types.Permission{{Resource: "kid", Action: types.Actions{"read", "list"}}}
	mock.ExpectQuery("UPDATE roles SET").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "parent").
		WillReturnRows(parentRow(t))
	_, err = repo.Update(ctx, "parent", types.UpdateRoleParams{Permissions: &newPerms})
	require.NoError(t, err)

	// After the update the next read goes back to the database.
	mock.ExpectQuery("SELECT (.+) FROM roles WHERE code").
		WithArgs("parent").
		WillReturnRows(parentRow(t))
	_, err = repo.GetByCode(ctx, "parent")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteInvalidatesCacheAndReportsMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepo(mock, discardLogger())
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM roles WHERE code").
		WithArgs("parent").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, repo.Delete(ctx, "parent"))

	mock.ExpectExec("DELETE FROM roles WHERE code").
		WithArgs("ghost").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, repo.Delete(ctx, "ghost"), types.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRoles(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT count\(\*\) FROM roles`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	now := time.Now()
	adminPerms := []byte(`[{"resource":"*","action":"*"}]`)
	parentPerms := []byte(`[{"resource":"kid","action":["read"]}]`)
	mock.ExpectQuery("SELECT (.+) FROM roles ORDER BY code").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(roleCols).
			AddRow(int64(1), "admin", "Administrator", (*string)(nil), adminPerms, now, now).
			AddRow(int64(2), "parent", "Parent", (*string)(nil), parentPerms, now, now))

	repo := NewPostgresRepo(mock, discardLogger())
	roles, total, err := repo.List(context.Background(), api.PageParams{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, roles, 2)

	// Single-string action JSON decodes into a one-element set.
	assert.Equal(t, types.Actions{"*"}, roles[0].Permissions[0].Action)
	require.NoError(t, mock.ExpectationsWereMet())
}
