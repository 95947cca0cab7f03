package repositories

import (
	"context"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"
)

// trOrDB returns the transaction bound to ctx by db.TxRunner, or db itself.
func trOrDB(ctx context.Context, getter *trmsqlx.CtxGetter, db *sqlx.DB) trmsqlx.Tr {
	if getter == nil {
		getter = trmsqlx.DefaultCtxGetter
	}
	return getter.DefaultTrOrDB(ctx, db)
}

// expandIn rewrites "IN (?)" placeholders for slice arguments.
func expandIn(db *sqlx.DB, query string, args ...any) (string, []any, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return db.Rebind(q), a, nil
}
