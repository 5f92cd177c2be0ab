package kitchen

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/dmorales/barpos/internal/kafka"
	"github.com/dmorales/barpos/internal/pos"
	"github.com/dmorales/barpos/internal/printing"
)

func createdMessage(t *testing.T) kafkago.Message {
	t.Helper()
	payload := pos.OrderCreatedPayload{
		OrderID:       "o-1",
		UserID:        "waiter-1",
		TableNumber:   7,
		PaymentMethod: pos.PayCash,
		Lines: []pos.OrderLine{
			{OrderID: "o-1", ItemID: "i-1", Name: "Soup", Quantity: 2, PriceCents: 450},
		},
		TotalCents: 900,
	}
	env := pos.Envelope{
		EventID:       "ev-1",
		EventType:     pos.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Date(2025, 3, 8, 22, 0, 0, 0, time.UTC),
		Producer:      "pos-api",
		CorrelationID: "o-1",
		Payload:       kafkax.MustMarshal(payload),
	}
	return kafkago.Message{Key: pos.PartitionKey("o-1"), Value: kafkax.MustMarshal(env)}
}

func TestHandleOrderCreatedPrintsTicket(t *testing.T) {
	var tickets []string
	svc := &Service{
		Spooler: printing.Func(func(_ context.Context, printer, ticket string) error {
			assert.Equal(t, "kitchen-ticket", printer)
			tickets = append(tickets, ticket)
			return nil
		}),
		Printer: "kitchen-ticket",
		Header:  "LA CANTINA",
	}

	require.NoError(t, svc.HandleOrderCreated(context.Background(), createdMessage(t)))
	require.Len(t, tickets, 1)
	assert.Contains(t, tickets[0], "Table: 7")
	assert.Contains(t, tickets[0], "Soup")
}

func TestHandleOrderCreatedIgnoresOtherEvents(t *testing.T) {
	svc := &Service{
		Spooler: printing.Func(func(context.Context, string, string) error {
			t.Fatal("must not print")
			return nil
		}),
	}
	env := pos.Envelope{EventID: "ev-2", EventType: pos.EventOrderPaid}
	m := kafkago.Message{Value: kafkax.MustMarshal(env)}
	assert.NoError(t, svc.HandleOrderCreated(context.Background(), m))
}

func TestHandleOrderCreatedSpoolerFailureRetries(t *testing.T) {
	svc := &Service{
		Spooler: printing.Func(func(context.Context, string, string) error {
			return errors.New("queue unreachable")
		}),
		Printer: "kitchen-ticket",
	}
	err := svc.HandleOrderCreated(context.Background(), createdMessage(t))
	assert.Error(t, err, "error keeps the offset uncommitted for retry")
}
