package kitchen

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/dmorales/barpos/internal/kafka"
	"github.com/dmorales/barpos/internal/pos"
	"github.com/dmorales/barpos/internal/printing"
	"github.com/dmorales/barpos/internal/redisx"
)

// Service prints a kitchen copy of every new order. It consumes
// pos.order.created; the event payload carries the full line snapshot
// so no database access is needed here.
type Service struct {
	Redis       *redis.Client
	Spooler     printing.Spooler
	Printer     string
	Header      string
	ServiceName string
}

// HandleOrderCreated is the consumer handler. A failed print returns
// the error so the message is retried; duplicates are dropped via the
// redis dedup key.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env pos.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != pos.EventOrderCreated {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "kitchen", env.EventID)
	if s.Redis != nil {
		if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[pos.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}

	view := pos.OrderView{
		Order: pos.Order{
			ID:            p.OrderID,
			UserID:        p.UserID,
			TotalCents:    p.TotalCents,
			PaymentMethod: p.PaymentMethod,
			TableNumber:   p.TableNumber,
			Status:        pos.StatusPending,
			CreatedAt:     env.OccurredAt,
		},
		Lines: p.Lines,
	}

	if err := s.Spooler.Print(ctx, s.Printer, pos.RenderTicket(s.Header, view)); err != nil {
		return fmt.Errorf("kitchen print order %s: %w", p.OrderID, err)
	}

	if s.Redis != nil {
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}
	log.Printf("kitchen ticket printed: order=%s table=%d", p.OrderID, p.TableNumber)
	return nil
}
