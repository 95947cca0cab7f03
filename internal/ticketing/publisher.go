package ticketing

import (
	"context"
	"encoding/json"
	"fmt"

	"busbooking/internal/domain/models"
	"busbooking/internal/utils"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Publisher turns confirmed bookings into BookingConfirmed messages.
type Publisher struct {
	Pub   message.Publisher
	Topic string
}

func (p Publisher) NotifyConfirmed(ctx context.Context, b models.Booking, trip models.Trip) error {
	payload, err := json.Marshal(NewBookingConfirmed(b, trip))
	if err != nil {
		return fmt.Errorf("marshal booking confirmed: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", "BookingConfirmed")
	if id := utils.RequestID(ctx); id != "" {
		msg.Metadata.Set("request_id", id)
	}
	msg.SetContext(ctx)

	topic := p.Topic
	if topic == "" {
		topic = TopicBookingConfirmed
	}
	if err := p.Pub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
