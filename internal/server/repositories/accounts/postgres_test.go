package accounts

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/common"
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

var acct = func() address.Address {
	var a address.Address
	a[0], a[31] = 0xab, 0xcd
	return a
}()

const (
	balanceQ    = `(?s)^SELECT\s+balance\s+FROM\s+accounts\s+WHERE\s+address\s*=\s*\$1$`
	balanceForQ = `(?s)^SELECT\s+balance\s+FROM\s+accounts\s+WHERE\s+address\s*=\s*\$1\s+FOR\s+UPDATE$`
	creditQ     = `(?s)^INSERT\s+INTO\s+accounts\b.*ON\s+CONFLICT.*RETURNING\s+balance$`
	debitQ      = `(?s)^UPDATE\s+accounts\b.*WHERE\s+address\s*=\s*\$1\s+AND\s+balance\s*>=\s*\$2.*RETURNING\s+balance$`
	removeQ     = `(?s)^DELETE\s+FROM\s+accounts\s+WHERE\s+address\s*=\s*\$1\s+AND\s+balance\s*=\s*0$`
)

func TestBalance(t *testing.T) {
	t.Run("existing", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(balanceQ).WithArgs(acct.String()).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(42)))

		got, err := repo.Balance(context.Background(), acct)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), got)
	})

	t.Run("missing account is empty", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(balanceQ).WillReturnError(sql.ErrNoRows)

		got, err := repo.Balance(context.Background(), acct)
		require.NoError(t, err)
		assert.Zero(t, got)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(balanceQ).WillReturnError(errors.New("db down"))

		_, err := repo.Balance(context.Background(), acct)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db error: db down")
	})
}

func TestBalanceForUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(balanceForQ).WithArgs(acct.String()).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(7)))

	got, err := repo.BalanceForUpdate(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+accounts\b.*ON\s+CONFLICT\s+\(address\)\s+DO\s+NOTHING$`).
		WithArgs(acct.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Open(context.Background(), acct))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredit(t *testing.T) {
	t.Run("returns new balance", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(creditQ).WithArgs(acct.String(), int64(500)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(1500)))

		got, err := repo.Credit(context.Background(), acct, 500)
		require.NoError(t, err)
		assert.Equal(t, uint64(1500), got)
	})

	t.Run("amount beyond range", func(t *testing.T) {
		repo, _, db := newRepoWithMock(t)
		defer db.Close()

		_, err := repo.Credit(context.Background(), acct, math.MaxInt64+1)
		assert.ErrorIs(t, err, common.ErrOverflow)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(creditQ).WillReturnError(errors.New("numeric out of range"))

		_, err := repo.Credit(context.Background(), acct, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db error")
	})
}

func TestDebit(t *testing.T) {
	t.Run("returns new balance", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(debitQ).WithArgs(acct.String(), int64(300)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(200)))

		got, err := repo.Debit(context.Background(), acct, 300)
		require.NoError(t, err)
		assert.Equal(t, uint64(200), got)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(debitQ).WillReturnError(sql.ErrNoRows)

		_, err := repo.Debit(context.Background(), acct, 300)
		assert.ErrorIs(t, err, common.ErrInsufficientFunds)
	})

	t.Run("amount beyond range", func(t *testing.T) {
		repo, _, db := newRepoWithMock(t)
		defer db.Close()

		_, err := repo.Debit(context.Background(), acct, math.MaxUint64)
		assert.ErrorIs(t, err, common.ErrInsufficientFunds)
	})
}

func TestRemove(t *testing.T) {
	t.Run("empty account removed", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(removeQ).WithArgs(acct.String()).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Remove(context.Background(), acct))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(removeQ).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(balanceQ).WillReturnError(sql.ErrNoRows)

		require.NoError(t, repo.Remove(context.Background(), acct))
	})

	t.Run("funded account kept", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(removeQ).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(balanceQ).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(1)))

		assert.ErrorIs(t, repo.Remove(context.Background(), acct), common.ErrVaultNotEmpty)
	})
}
