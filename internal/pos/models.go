package pos

import "time"

type Item struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	PriceCents int64     `json:"price_cents"`
	Category   string    `json:"category,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CartLine is a pending reservation: its quantity has already been
// subtracted from the item's stock.
type CartLine struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type Order struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	TotalCents    int64         `json:"total_cents"`
	TipCents      int64         `json:"tip_cents"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TableNumber   int           `json:"table_number"`
	Status        Status        `json:"status"` // see status.go
	CreatedAt     time.Time     `json:"created_at"`
}

// OrderLine snapshots name and price at checkout time. Historical
// rendering must never re-read the live item.
type OrderLine struct {
	OrderID    string `json:"order_id"`
	ItemID     string `json:"item_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

func (l OrderLine) SubtotalCents() int64 {
	return int64(l.Quantity) * l.PriceCents
}

type PaymentMethod string

const (
	PayCash     PaymentMethod = "Cash"
	PayCard     PaymentMethod = "Card"
	PayTransfer PaymentMethod = "Transfer"
)

func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PayCash, PayCard, PayTransfer:
		return true
	}
	return false
}

type CartAction string

const (
	ActionIncrease CartAction = "increase"
	ActionDecrease CartAction = "decrease"
	ActionRemove   CartAction = "remove"
)
