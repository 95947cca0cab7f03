package db

import (
	"context"
	"database/sql"

	"busbooking/internal/domain"

	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/avito-tech/go-transaction-manager/trm/v2/settings"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const defaultTxAttempts = 3

// TxRunner runs a unit of work in one REPEATABLE READ transaction. Repositories
// pick the transaction up from the context through trmsqlx.DefaultCtxGetter.
// Deadlocks and lock wait timeouts replay the whole unit.
type TxRunner struct {
	manager  *manager.Manager
	attempts int
}

func NewTxRunner(db *sqlx.DB) *TxRunner {
	return &TxRunner{
		manager:  manager.Must(trmsqlx.NewDefaultFactory(db)),
		attempts: defaultTxAttempts,
	}
}

func (r *TxRunner) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		err = r.manager.DoWithSettings(
			ctx,
			trmsql.MustSettings(
				settings.Must(settings.WithCancelable(true)),
				trmsql.WithTxOptions(&sql.TxOptions{Isolation: sql.LevelRepeatableRead}),
			),
			fn,
		)
		if err == nil || !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
		logrus.WithField("attempt", attempt).WithError(err).Warn("transaction aborted, retrying")
	}
	if domain.IsTransient(err) {
		return err
	}
	return domain.TransientError{Op: "transaction", Err: err}
}
