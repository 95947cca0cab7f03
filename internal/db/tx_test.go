package db

import (
	"context"
	"errors"
	"testing"

	"busbooking/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlx.NewDb(sqlDB, "mysql"), mock
}

func cancelAll(ctx context.Context, db *sqlx.DB) error {
	_, err := trmsqlx.DefaultCtxGetter.DefaultTrOrDB(ctx, db).
		ExecContext(ctx, "UPDATE bookings SET status = ? WHERE status = ?", "canceled", "pending")
	return err
}

func TestTxRunnerCommits(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bookings SET status").WithArgs("canceled", "pending").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := NewTxRunner(db).Do(context.Background(), func(ctx context.Context) error {
		return cancelAll(ctx, db)
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunnerRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bookings SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	boom := errors.New("precondition failed")
	err := NewTxRunner(db).Do(context.Background(), func(ctx context.Context) error {
		if err := cancelAll(ctx, db); err != nil {
			return err
		}
		return boom
	})

	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunnerRetriesDeadlock(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bookings SET status").WillReturnError(&mysql.MySQLError{Number: errDeadlock, Message: "Deadlock found"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bookings SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	calls := 0
	err := NewTxRunner(db).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return cancelAll(ctx, db)
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunnerGivesUpAsTransient(t *testing.T) {
	db, mock := newMockDB(t)
	for i := 0; i < defaultTxAttempts; i++ {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE bookings SET status").WillReturnError(&mysql.MySQLError{Number: errLockWaitTimeout})
		mock.ExpectRollback()
	}

	err := NewTxRunner(db).Do(context.Background(), func(ctx context.Context) error {
		return cancelAll(ctx, db)
	})

	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMapError(t *testing.T) {
	assert.True(t, domain.IsNotFound(MapError(sqlNoRows(), "get trip", "trip")))
	assert.True(t, domain.IsConflict(MapError(&mysql.MySQLError{Number: errDuplicateEntry}, "insert review", "review")))
	assert.True(t, domain.IsTransient(MapError(&mysql.MySQLError{Number: errDeadlock}, "update", "booking")))
	assert.True(t, domain.IsValidation(MapError(&mysql.MySQLError{Number: errDataTooLong}, "insert booking", "booking")))
	assert.True(t, domain.IsValidation(MapError(&mysql.MySQLError{Number: errIncorrectValue}, "insert payment", "payment")))
	assert.True(t, domain.IsInternal(MapError(errors.New("syntax"), "update", "booking")))
	assert.NoError(t, MapError(nil, "noop", "booking"))
}
