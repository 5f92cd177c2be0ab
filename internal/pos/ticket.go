package pos

import (
	"fmt"
	"strings"
)

const (
	ticketWidth   = 32
	ticketNameLen = 18
)

// RenderTicket formats a receipt for a 32-column spooler: header,
// table number, one fixed-width row per line, subtotal, optional tip,
// and grand total including tip. Pure formatting; the caller hands the
// result to the print spooler.
func RenderTicket(header string, v OrderView) string {
	o := v.Order
	rule := strings.Repeat("-", ticketWidth)

	var b strings.Builder
	b.WriteString(center(header) + "\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Table: %-4d %19s\n", o.TableNumber, o.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Order: %s\n", shortID(o.ID))
	b.WriteString(rule + "\n")

	for _, l := range v.Lines {
		fmt.Fprintf(&b, "%2d x %-*.*s %7s\n", l.Quantity, ticketNameLen, ticketNameLen, l.Name, FormatCents(l.PriceCents))
	}
	b.WriteString(rule + "\n")

	fmt.Fprintf(&b, "%-*s %7s\n", ticketWidth-8, "Subtotal", FormatCents(o.TotalCents))
	if o.TipCents > 0 {
		fmt.Fprintf(&b, "%-*s %7s\n", ticketWidth-8, "Tip", FormatCents(o.TipCents))
	}
	fmt.Fprintf(&b, "%-*s %7s\n", ticketWidth-8, "TOTAL", FormatCents(o.TotalCents+o.TipCents))
	fmt.Fprintf(&b, "Payment: %s\n", o.PaymentMethod)
	return b.String()
}

func center(s string) string {
	if len(s) >= ticketWidth {
		return s[:ticketWidth]
	}
	pad := (ticketWidth - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
