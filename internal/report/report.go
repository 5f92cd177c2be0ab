package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/dmorales/barpos/internal/pos"
)

var columns = []string{
	"order_id", "table", "user", "payment_method", "product",
	"quantity", "unit_price", "line_subtotal", "order_total", "tip",
	"status", "created_at",
}

// Reporter turns a closed sales window into a CSV export and hands it
// to the delivery channel. Row order comes from the store (order
// creation order, then line insertion) and is never reshuffled here.
type Reporter struct {
	Sales  pos.Sales
	Mailer Mailer
	Loc    *time.Location
}

// DefaultWindow is the nightly job's range: yesterday 00:00 through
// today at closeHour, covering a bar's late-night close.
func DefaultWindow(now time.Time, closeHour int, loc *time.Location) (from, to time.Time) {
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return today.AddDate(0, 0, -1), today.Add(time.Duration(closeHour) * time.Hour)
}

// BuildCSV queries the window and encodes one row per (order, line)
// pair. Returns pos.ErrNoSalesInWindow untouched when there is nothing
// to report.
func (r *Reporter) BuildCSV(ctx context.Context, from, to time.Time) ([]byte, error) {
	rows, err := r.Sales.SalesWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, err
	}
	for _, row := range rows {
		rec := []string{
			row.OrderID,
			strconv.Itoa(row.TableNumber),
			row.UserID,
			string(row.PaymentMethod),
			row.Product,
			strconv.Itoa(row.Quantity),
			pos.FormatCents(row.PriceCents),
			pos.FormatCents(row.SubtotalCents),
			pos.FormatCents(row.TotalCents),
			pos.FormatCents(row.TipCents),
			string(row.Status),
			row.CreatedAt.In(r.Loc).Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Send builds the window CSV and mails it. Nothing is sent when the
// window is empty; the error propagates for the caller to log.
func (r *Reporter) Send(ctx context.Context, from, to time.Time, recipient string) error {
	data, err := r.BuildCSV(ctx, from, to)
	if err != nil {
		return err
	}
	day := from.In(r.Loc).Format("2006-01-02")
	msg := Message{
		To:       recipient,
		Subject:  fmt.Sprintf("Sales report %s", day),
		Body:     fmt.Sprintf("Sales from %s to %s attached.", from.In(r.Loc).Format(time.RFC822), to.In(r.Loc).Format(time.RFC822)),
		Filename: fmt.Sprintf("sales-%s.csv", day),
		Data:     data,
	}
	return r.Mailer.Send(ctx, msg)
}
