package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	"busbooking/internal/domain"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

const (
	errDuplicateEntry  = 1062
	errIncorrectValue  = 1366
	errDataTooLong     = 1406
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// HasTable reports whether the current schema contains table.
func HasTable(ctx context.Context, q sqlx.QueryerContext, table string) (bool, error) {
	var name sql.NullString
	err := q.QueryRowxContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		LIMIT 1
	`, table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return name.Valid && name.String != "", nil
}

// IsDuplicateKey reports a unique-key violation.
func IsDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}

// IsRetryable reports failures after which the whole transaction can be replayed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == errDeadlock || me.Number == errLockWaitTimeout
	}
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn)
}

func isDataError(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && (me.Number == errDataTooLong || me.Number == errIncorrectValue)
}

// MapError converts driver errors into domain errors. resource names the row
// kind for not-found reporting.
func MapError(err error, op, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return domain.NotFoundError{Resource: resource, Err: err}
	case IsRetryable(err):
		return domain.TransientError{Op: op, Err: err}
	case IsDuplicateKey(err):
		return domain.ConflictError{Resource: resource, Msg: "already exists", Err: err}
	case isDataError(err):
		return domain.ValidationError{Field: resource, Msg: "value does not fit the column", Err: err}
	default:
		return domain.InternalError{Msg: op + " failed", Err: err}
	}
}
