package bookings

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"busline/internal/trips"

	"github.com/google/uuid"
	"github.com/phpdave11/gofpdf"
)

// WriteTicketPDF renders a printable ticket for its rider. Cancelled tickets
// have no printout.
func (s *service) WriteTicketPDF(ctx context.Context, actor Actor, ticketID uuid.UUID, w io.Writer) error {
	t, err := s.store.Ticket(ctx, ticketID)
	if err != nil {
		return err
	}
	if !actor.ownsTicket(t) {
		return ErrNotAuthorized
	}
	if !t.Status.HoldsSeats() {
		return ErrInvalidTransition
	}

	trip, err := s.trip(ctx, t.TripID)
	if err != nil {
		return err
	}
	view, err := s.projectTicket(ctx, actor, t, trip)
	if err != nil {
		return err
	}

	doc, err := renderTicket(view, trip)
	if err != nil {
		return err
	}
	_, err = w.Write(doc)
	return err
}

func renderTicket(t *TicketView, trip *trips.Trip) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Bus Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BUS TICKET")
	pdf.Ln(12)

	boarding := "-"
	if t.BoardingPoint != nil {
		boarding = t.BoardingPoint.Name
	}
	seats := "-"
	if len(t.SeatLabels) > 0 {
		seats = strings.Join(t.SeatLabels, ", ")
	}

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Ticket No   : " + t.ID.String(),
		"Status      : " + strings.ToUpper(t.Status.String()),
		"Route       : " + trip.Route(),
		"Bus         : " + fmt.Sprintf("%s (%s)", trip.BusNumber, trip.BusType),
		"Departure   : " + trip.DepartureTime.Format("2006-01-02 15:04"),
		"Boarding at : " + boarding,
		"Seats       : " + fmt.Sprintf("%d (%s)", t.SeatCount, seats),
		"Fare / seat : " + formatMinor(t.FarePerSeat),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Total: "+formatMinor(t.TotalFare))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Show this ticket to the trip supervisor when boarding.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render ticket: %w", err)
	}
	return buf.Bytes(), nil
}

// formatMinor prints minor currency units with two decimals
func formatMinor(v int64) string {
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
