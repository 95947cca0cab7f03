package models

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment records one settlement covering one or more bookings.
type Payment struct {
	ID         string        `db:"id" json:"id"`
	UserID     string        `db:"user_id" json:"user_id"`
	Status     PaymentStatus `db:"status" json:"payment_status"`
	Amount     int64         `db:"amount" json:"amount"`
	GatewayRef string        `db:"gateway_ref" json:"gateway_ref"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	BookingIDs []string      `db:"-" json:"booking_ids"`
}

type Review struct {
	ID        string    `db:"id" json:"id"`
	BookingID string    `db:"booking_id" json:"booking_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	TripID    int64     `db:"trip_id" json:"trip_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   string    `db:"comment" json:"comment"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
