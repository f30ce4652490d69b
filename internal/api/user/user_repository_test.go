package user

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlesteps-app/backoffice/app/observability/metrics"
	"github.com/littlesteps-app/backoffice/internal/api"
	"github.com/littlesteps-app/backoffice/internal/types"
)

func TestMain(m *testing.M) {
	metrics.InitAppMetrics()
	m.Run()
}

var userCols = []string{
	"id", "firstname", "lastname", "email", "phone", "password_hash",
	"role_code", "status", "provider", "social_id", "created_at", "updated_at", "deleted_at",
}

func userRow(id int64, email string) []any {
	now := time.Now()
	return []any{
		id, (*string)(nil), (*string)(nil), &email, (*string)(nil), (*string)(nil),
		"parent", types.StatusActivated, (*string)(nil), (*string)(nil), now, now, (*time.Time)(nil),
	}
}

func newRepo(t *testing.T) (*PostgresRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresRepo(mock, slog.New(slog.NewTextHandler(io.Discard, nil))), mock
}

func TestListExcludesSoftDeletedByDefault(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM users WHERE TRUE AND deleted_at IS NULL`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE TRUE AND deleted_at IS NULL ORDER BY id LIMIT").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(userRow(1, "ana@example.com")...))

	users, total, err := repo.List(context.Background(), nil, nil, api.PageParams{Page: 1, PageSize: 20}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, int64(1), users[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListWithFilterAndSort(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM users WHERE TRUE AND deleted_at IS NULL AND status = \$1`).
		WithArgs("ACTIVATED").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE TRUE AND deleted_at IS NULL AND status = \$1 ORDER BY email DESC LIMIT`).
		WithArgs("ACTIVATED", 10, 10).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(userRow(2, "zoe@example.com")...).
			AddRow(userRow(1, "ana@example.com")...))

	filter := map[string]interface{}{"status": "ACTIVATED"}
	sorts := []api.SortField{{Column: "email", Desc: true}}
	users, total, err := repo.List(context.Background(), filter, sorts, api.PageParams{Page: 2, PageSize: 10}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, users, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows(userCols))

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSoftDelete(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec("UPDATE users SET deleted_at").
		WithArgs(pgxmock.AnyArg(), int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.SoftDelete(context.Background(), 5))

	// Deleting an already-deleted user reports not found.
	mock.ExpectExec("UPDATE users SET deleted_at").
		WithArgs(pgxmock.AnyArg(), int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.SoftDelete(context.Background(), 5), types.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBuildsDynamicSet(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`UPDATE users SET updated_at = \$1, firstname = \$2, role_code = \$3 WHERE id = \$4`).
		WithArgs(pgxmock.AnyArg(), "Ana", "admin", int64(5)).
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(userRow(5, "ana@example.com")...))

	params := types.UpdateUserParams{
		Firstname: ptr("Ana"),
		RoleCode:  ptr("admin"),
	}
	user, err := repo.Update(context.Background(), 5, params, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), user.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
