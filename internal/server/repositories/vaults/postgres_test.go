package vaults

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/common"
	"github.com/dmitrijs2005/alarmlock/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func fill(b byte) address.Address {
	var a address.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func sampleVault() *models.Vault {
	return &models.Vault{
		Address:     fill(1),
		Owner:       fill(2),
		Holding:     fill(3),
		UnlockTime:  1_800_000_000,
		Initialized: true,
		Deposit:     1_245_840,
		LifecycleID: "8d0f7a3e-2b8b-4c55-9b5e-7f3d7f0f4a11",
	}
}

const insertQ = `(?s)^INSERT\s+INTO\s+vaults\b.*RETURNING\s+created_at$`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	v := sampleVault()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(insertQ).
		WithArgs(v.Address.String(), v.Owner.String(), v.Holding.String(),
			v.UnlockTime, true, int64(v.Deposit), v.LifecycleID).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	require.NoError(t, repo.Create(context.Background(), v))
	assert.True(t, v.CreatedAt.Equal(created))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), sampleVault())
	assert.ErrorIs(t, err, common.ErrAlreadyInitialized)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), sampleVault())
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

var vaultCols = []string{"address", "owner", "holding", "unlock_time", "initialized", "deposit", "lifecycle_id", "created_at"}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	want := sampleVault()
	want.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`(?s)^SELECT\s+address,.*FROM\s+vaults\s+WHERE\s+address\s*=\s*\$1$`).
		WithArgs(want.Address.String()).
		WillReturnRows(sqlmock.NewRows(vaultCols).AddRow(
			want.Address.String(), want.Owner.String(), want.Holding.String(),
			want.UnlockTime, true, int64(want.Deposit), want.LifecycleID, want.CreatedAt,
		))

	got, err := repo.Get(context.Background(), want.Address)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetForUpdate_LocksRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	v := sampleVault()
	mock.ExpectQuery(`(?s)^SELECT\s+address,.*FROM\s+vaults\s+WHERE\s+address\s*=\s*\$1\s+FOR\s+UPDATE$`).
		WithArgs(v.Address.String()).
		WillReturnRows(sqlmock.NewRows(vaultCols).AddRow(
			v.Address.String(), v.Owner.String(), v.Holding.String(),
			v.UnlockTime, true, int64(v.Deposit), v.LifecycleID, time.Now(),
		))

	got, err := repo.GetForUpdate(context.Background(), v.Address)
	require.NoError(t, err)
	assert.Equal(t, v.Owner, got.Owner)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), fill(9))
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGet_CorruptAddress(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	v := sampleVault()
	mock.ExpectQuery(`(?s)^SELECT`).
		WillReturnRows(sqlmock.NewRows(vaultCols).AddRow(
			v.Address.String(), "zz", v.Holding.String(),
			v.UnlockTime, true, int64(v.Deposit), v.LifecycleID, time.Now(),
		))

	_, err := repo.Get(context.Background(), v.Address)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt vault owner")
}

func TestDelete(t *testing.T) {
	q := `(?s)^DELETE\s+FROM\s+vaults\s+WHERE\s+address\s*=\s*\$1$`

	t.Run("deleted", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(q).WithArgs(fill(1).String()).WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.Delete(context.Background(), fill(1)))
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.Delete(context.Background(), fill(1)), common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(q).WillReturnError(errors.New("boom"))
		err := repo.Delete(context.Background(), fill(1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db error: boom")
	})
}
