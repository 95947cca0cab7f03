package repositories

import (
	"context"

	intdb "busbooking/internal/db"
	"busbooking/internal/domain"
	"busbooking/internal/domain/models"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"
)

type ReviewRepository struct {
	DB     *sqlx.DB
	Getter *trmsqlx.CtxGetter
}

// Insert stores a review. A second review for the same booking is a ConflictError.
func (r ReviewRepository) Insert(ctx context.Context, rv models.Review) error {
	_, err := trOrDB(ctx, r.Getter, r.DB).ExecContext(ctx, `
		INSERT INTO reviews (id, booking_id, user_id, trip_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rv.ID, rv.BookingID, rv.UserID, rv.TripID, rv.Rating, rv.Comment, rv.CreatedAt)
	if intdb.IsDuplicateKey(err) {
		return domain.ConflictError{Resource: "review", Msg: "booking already reviewed", Err: err}
	}
	return intdb.MapError(err, "insert review", "review")
}

func (r ReviewRepository) ListByTrip(ctx context.Context, tripID int64) ([]models.Review, error) {
	out := []models.Review{}
	err := sqlx.SelectContext(ctx, trOrDB(ctx, r.Getter, r.DB), &out, `
		SELECT id, booking_id, user_id, trip_id, rating, comment, created_at
		FROM reviews
		WHERE trip_id = ?
		ORDER BY created_at DESC`, tripID)
	if err != nil {
		return nil, intdb.MapError(err, "list reviews", "review")
	}
	return out, nil
}
