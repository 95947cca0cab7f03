package ticketing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"busbooking/internal/metrics"
	"busbooking/internal/utils"

	"github.com/ThreeDotsLabs/watermill/message"
)

// TicketWriter renders each BookingConfirmed message into Dir.
type TicketWriter struct {
	Dir string
}

func (w TicketWriter) Handle(msg *message.Message) error {
	var ev BookingConfirmed
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		// Redelivery cannot fix a bad payload.
		metrics.TicketsRendered.WithLabelValues("malformed").Inc()
		utils.LogError(msg.Metadata.Get("request_id"), "ticketing", "decode booking confirmed", err)
		return nil
	}

	pdf, name, err := RenderETicket(ev)
	if err != nil {
		metrics.TicketsRendered.WithLabelValues("error").Inc()
		return fmt.Errorf("render ticket for %s: %w", ev.BookingID, err)
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		metrics.TicketsRendered.WithLabelValues("error").Inc()
		return fmt.Errorf("create tickets dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.Dir, name), pdf, 0o644); err != nil {
		metrics.TicketsRendered.WithLabelValues("error").Inc()
		return fmt.Errorf("write ticket %s: %w", name, err)
	}

	metrics.TicketsRendered.WithLabelValues("ok").Inc()
	utils.LogEvent(msg.Metadata.Get("request_id"), "ticketing", "render", "booking="+ev.BookingID+" file="+name)
	return nil
}
