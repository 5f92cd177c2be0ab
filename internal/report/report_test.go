package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmorales/barpos/internal/pos"
)

type salesFunc func(ctx context.Context, from, to time.Time) ([]pos.ReportRow, error)

func (f salesFunc) SalesWindow(ctx context.Context, from, to time.Time) ([]pos.ReportRow, error) {
	return f(ctx, from, to)
}

func fixtureRows() []pos.ReportRow {
	at := time.Date(2025, 3, 8, 23, 30, 0, 0, time.UTC)
	return []pos.ReportRow{
		{
			OrderID: "o-1", TableNumber: 4, UserID: "waiter-1", PaymentMethod: pos.PayCash,
			Product: "Soup", Quantity: 2, PriceCents: 450, SubtotalCents: 900,
			TotalCents: 1200, TipCents: 100, Status: pos.StatusPaid, CreatedAt: at,
		},
		{
			OrderID: "o-1", TableNumber: 4, UserID: "waiter-1", PaymentMethod: pos.PayCash,
			Product: "Beer", Quantity: 1, PriceCents: 300, SubtotalCents: 300,
			TotalCents: 1200, TipCents: 100, Status: pos.StatusPaid, CreatedAt: at,
		},
	}
}

func TestBuildCSV(t *testing.T) {
	r := &Reporter{
		Sales: salesFunc(func(context.Context, time.Time, time.Time) ([]pos.ReportRow, error) {
			return fixtureRows(), nil
		}),
		Loc: time.UTC,
	}

	data, err := r.BuildCSV(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	recs, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3) // header + 2 lines

	assert.Equal(t, columns, recs[0])
	assert.Equal(t, []string{
		"o-1", "4", "waiter-1", "Cash", "Soup",
		"2", "4.50", "9.00", "12.00", "1.00",
		"Paid", "2025-03-08 23:30:00",
	}, recs[1])
	assert.Equal(t, "Beer", recs[2][4], "line order preserved")
}

func TestSendEmptyWindowSendsNothing(t *testing.T) {
	sent := 0
	r := &Reporter{
		Sales: salesFunc(func(context.Context, time.Time, time.Time) ([]pos.ReportRow, error) {
			return nil, pos.ErrNoSalesInWindow
		}),
		Mailer: MailerFunc(func(context.Context, Message) error {
			sent++
			return nil
		}),
		Loc: time.UTC,
	}

	err := r.Send(context.Background(), time.Now(), time.Now(), "owner@bar")
	assert.ErrorIs(t, err, pos.ErrNoSalesInWindow)
	assert.Zero(t, sent)
}

func TestSendAttachesWindowCSV(t *testing.T) {
	var got Message
	r := &Reporter{
		Sales: salesFunc(func(context.Context, time.Time, time.Time) ([]pos.ReportRow, error) {
			return fixtureRows(), nil
		}),
		Mailer: MailerFunc(func(_ context.Context, msg Message) error {
			got = msg
			return nil
		}),
		Loc: time.UTC,
	}

	from := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 9, 3, 0, 0, 0, time.UTC)
	require.NoError(t, r.Send(context.Background(), from, to, "owner@bar"))

	assert.Equal(t, "owner@bar", got.To)
	assert.Equal(t, "Sales report 2025-03-08", got.Subject)
	assert.Equal(t, "sales-2025-03-08.csv", got.Filename)
	assert.Contains(t, string(got.Data), "o-1")
}

func TestDefaultWindow(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 3, 9, 3, 5, 0, 0, loc) // job fires just past close

	from, to := DefaultWindow(now, 3, loc)
	assert.Equal(t, time.Date(2025, 3, 8, 0, 0, 0, 0, loc), from)
	assert.Equal(t, time.Date(2025, 3, 9, 3, 0, 0, 0, loc), to)
}
