package pos

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated = "OrderCreated"
	EventOrderPaid    = "OrderPaid"
	EventOrderPrinted = "OrderPrinted"
)

type Envelope struct {
	EventID       string          `json:"event_id"`   // uuid
	EventType     string          `json:"event_type"` // one of the consts above
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"` // RFC3339
	Producer      string          `json:"producer"`    // e.g. "pos-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- payloads ----

type OrderCreatedPayload struct {
	OrderID       string        `json:"order_id"`
	UserID        string        `json:"user_id"`
	TableNumber   int           `json:"table_number"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Lines         []OrderLine   `json:"lines"` // full snapshot so consumers never hit the DB
	TotalCents    int64         `json:"total_cents"`
}

type OrderPaidPayload struct {
	OrderID    string `json:"order_id"`
	TotalCents int64  `json:"total_cents"`
	TipCents   int64  `json:"tip_cents"`
}

type OrderPrintedPayload struct {
	OrderID string `json:"order_id"`
	Printer string `json:"printer"`
}
