package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"busbooking/internal/domain"
	"busbooking/internal/domain/models"
	"busbooking/internal/metrics"
	"busbooking/internal/utils"

	"github.com/google/uuid"
)

type SettlementRequest struct {
	UserID     string
	BookingIDs []string
	Token      string
}

// SettlementService promotes a batch of pending bookings to confirmed against
// one verified payment. Either every booking is confirmed with the payment
// recorded, or nothing changes.
type SettlementService struct {
	Bookings BookingStore
	Payments PaymentStore
	Trips    TripStore
	Tx       Transactor
	Verifier PaymentVerifier
	Tickets  TicketNotifier
	Now      func() time.Time
	NewID    func() string
}

func (s SettlementService) Settle(ctx context.Context, req SettlementRequest) (models.Payment, error) {
	userID := strings.TrimSpace(req.UserID)
	ids := utils.UniqueTrimmed(req.BookingIDs)
	if userID == "" {
		return models.Payment{}, domain.ValidationError{Field: "user", Msg: "is required"}
	}
	if len(ids) == 0 {
		return models.Payment{}, domain.ValidationError{Field: "bookingIds", Msg: "at least one booking is required"}
	}
	if strings.TrimSpace(req.Token) == "" {
		return models.Payment{}, domain.ValidationError{Field: "paymentToken", Msg: "is required"}
	}

	verifier := s.Verifier
	if verifier == nil {
		verifier = PassthroughVerifier{}
	}
	confirmation, err := verifier.Verify(ctx, req.Token, userID, ids)
	if err != nil {
		metrics.Settlements.WithLabelValues("rejected").Inc()
		return models.Payment{}, domain.SettlementError{Reason: "payment not confirmed", Err: err}
	}

	var (
		payment   models.Payment
		confirmed []models.Booking
	)
	err = s.Tx.Do(ctx, func(ctx context.Context) error {
		locked, err := s.Bookings.LockByIDs(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]models.Booking, len(locked))
		for _, b := range locked {
			byID[b.ID] = b
		}

		var amount int64
		for _, id := range ids {
			b, ok := byID[id]
			switch {
			case !ok || b.UserID != userID:
				return domain.SettlementError{Reason: fmt.Sprintf("booking %s not found", id)}
			case b.Status != models.BookingPending:
				return domain.SettlementError{Reason: fmt.Sprintf("booking %s is %s, not pending", id, b.Status)}
			}
			amount += b.Price
		}

		now := nowUTC(s.Now)
		payment = models.Payment{
			ID:         s.newID(),
			UserID:     userID,
			Status:     models.PaymentCompleted,
			Amount:     amount,
			GatewayRef: confirmation.Reference,
			CreatedAt:  now,
			BookingIDs: ids,
		}
		if err := s.Payments.Insert(ctx, payment); err != nil {
			return err
		}
		n, err := s.Bookings.Confirm(ctx, ids, payment.ID, now)
		if err != nil {
			return err
		}
		if n != int64(len(ids)) {
			return domain.SettlementError{Reason: fmt.Sprintf("confirmed %d of %d bookings", n, len(ids))}
		}

		confirmed = confirmed[:0]
		for _, id := range ids {
			b := byID[id]
			b.Status = models.BookingConfirmed
			b.PaymentID = payment.ID
			b.UpdatedAt = now
			confirmed = append(confirmed, b)
		}
		return nil
	})
	if err != nil {
		if domain.IsSettlement(err) || domain.IsValidation(err) {
			metrics.Settlements.WithLabelValues("rejected").Inc()
			return models.Payment{}, err
		}
		metrics.Settlements.WithLabelValues("error").Inc()
		return models.Payment{}, domain.SettlementError{Reason: "settlement rolled back", Err: err}
	}

	metrics.Settlements.WithLabelValues("settled").Inc()
	utils.LogEvent(utils.RequestID(ctx), "payment", "settle",
		fmt.Sprintf("payment=%s bookings=%s amount=%d", payment.ID, strings.Join(ids, ","), payment.Amount))
	s.notify(ctx, confirmed)
	return payment, nil
}

// notify hands each confirmed booking to ticketing. The settlement is already
// committed, so failures are only logged.
func (s SettlementService) notify(ctx context.Context, bookings []models.Booking) {
	if s.Tickets == nil {
		return
	}
	trips := map[int64]models.Trip{}
	for _, b := range bookings {
		trip, ok := trips[b.TripID]
		if !ok && s.Trips != nil {
			t, err := s.Trips.TripByID(ctx, b.TripID)
			if err != nil {
				utils.LogError(utils.RequestID(ctx), "payment", "load trip for ticket", err)
			} else {
				trip = t
				trips[b.TripID] = t
			}
		}
		if err := s.Tickets.NotifyConfirmed(ctx, b, trip); err != nil {
			utils.LogError(utils.RequestID(ctx), "payment", "notify ticketing", fmt.Errorf("booking %s: %w", b.ID, err))
		}
	}
}

func (s SettlementService) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
