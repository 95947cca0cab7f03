package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"busbooking/internal/domain"
	"busbooking/internal/domain/models"

	"github.com/google/uuid"
)

const maxReviewComment = 1000

type ReviewService struct {
	Bookings BookingStore
	Reviews  ReviewStore
	Now      func() time.Time
}

// Submit records the owner's rating of a completed trip. Each booking can be
// reviewed once.
func (s ReviewService) Submit(ctx context.Context, userID, bookingID string, rating int, comment string) (models.Review, error) {
	comment = strings.TrimSpace(comment)
	if rating < 1 || rating > 5 {
		return models.Review{}, domain.ValidationError{Field: "rating", Msg: "must be between 1 and 5"}
	}
	if utf8.RuneCountInString(comment) > maxReviewComment {
		return models.Review{}, domain.ValidationError{Field: "comment", Msg: "is too long"}
	}
	b, err := s.Bookings.GetByID(ctx, strings.TrimSpace(bookingID))
	if err != nil {
		return models.Review{}, err
	}
	if b.UserID != strings.TrimSpace(userID) {
		return models.Review{}, domain.NotFoundError{Resource: "booking"}
	}
	if b.Status != models.BookingCompleted {
		return models.Review{}, domain.ValidationError{Field: "booking_id", Msg: "only completed trips can be reviewed"}
	}

	rv := models.Review{
		ID:        uuid.NewString(),
		BookingID: b.ID,
		UserID:    b.UserID,
		TripID:    b.TripID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: nowUTC(s.Now),
	}
	if err := s.Reviews.Insert(ctx, rv); err != nil {
		return models.Review{}, err
	}
	return rv, nil
}
