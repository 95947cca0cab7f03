package ticketing

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"busbooking/internal/utils"

	"github.com/phpdave11/gofpdf"
)

const currency = "LKR"

// RenderETicket builds a one-page PDF e-ticket and a file name for it.
func RenderETicket(ev BookingConfirmed) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking        : %s", orDash(ev.BookingID)),
		fmt.Sprintf("Bus            : %s", orDash(ev.VehiclePlate)),
		fmt.Sprintf("Route          : %s -> %s", orDash(ev.From), orDash(ev.To)),
		fmt.Sprintf("Departs        : %s %s", ev.TravelDate, ev.Departure),
		fmt.Sprintf("Arrives        : %s %s", ev.ArrivalDate(), ev.Arrival),
		fmt.Sprintf("Seats          : %s", orDash(strings.Join(ev.Seats, ", "))),
		fmt.Sprintf("Paid           : %s", utils.FormatAmount(currency, ev.Price)),
		fmt.Sprintf("Payment        : %s", orDash(ev.PaymentID)),
		fmt.Sprintf("Issued (UTC)   : %s", utils.FormatDateTime(ev.ConfirmedAt, time.UTC)),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Show this ticket when boarding. Valid only for the seats, trip and date above.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("ETICKET_%s_%s.pdf", utils.SafeFilenamePart(ev.BookingID), ev.TravelDate)
	return buf.Bytes(), name, nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
