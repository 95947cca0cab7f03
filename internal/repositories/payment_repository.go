package repositories

import (
	"context"

	intdb "busbooking/internal/db"
	"busbooking/internal/domain/models"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"
)

type PaymentRepository struct {
	DB     *sqlx.DB
	Getter *trmsqlx.CtxGetter
}

func (r PaymentRepository) Insert(ctx context.Context, p models.Payment) error {
	_, err := trOrDB(ctx, r.Getter, r.DB).ExecContext(ctx, `
		INSERT INTO payments (id, user_id, status, amount, gateway_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, string(p.Status), p.Amount, p.GatewayRef, p.CreatedAt)
	return intdb.MapError(err, "insert payment", "payment")
}

func (r PaymentRepository) GetByID(ctx context.Context, id string) (models.Payment, error) {
	var out models.Payment
	err := sqlx.GetContext(ctx, trOrDB(ctx, r.Getter, r.DB), &out, `
		SELECT id, user_id, status, amount, gateway_ref, created_at
		FROM payments
		WHERE id = ?`, id)
	if err != nil {
		return models.Payment{}, intdb.MapError(err, "get payment", "payment")
	}
	return out, nil
}
