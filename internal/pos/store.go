package pos

import (
	"context"
	"time"
)

// CartLineView is a cart line joined with its item for display.
type CartLineView struct {
	LineID        string `json:"line_id"`
	ItemID        string `json:"item_id"`
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	PriceCents    int64  `json:"price_cents"`
	SubtotalCents int64  `json:"subtotal_cents"`
}

type CartView struct {
	Lines      []CartLineView `json:"lines"`
	TotalCents int64          `json:"total_cents"`
}

// OrderView is an order with its resolved snapshot lines.
type OrderView struct {
	Order Order       `json:"order"`
	Lines []OrderLine `json:"lines"`
}

// ReportRow is one (order, line) pair of a sales-window report.
type ReportRow struct {
	OrderID       string
	TableNumber   int
	UserID        string
	PaymentMethod PaymentMethod
	Product       string
	Quantity      int
	PriceCents    int64
	SubtotalCents int64
	TotalCents    int64
	TipCents      int64
	Status        Status
	CreatedAt     time.Time
}

// Ledger owns item quantities. All stock mutation goes through
// Reserve/Release; quantity never goes negative through them.
type Ledger interface {
	CreateItem(ctx context.Context, name string, quantity int, priceCents int64, category string) (Item, error)
	UpdateItem(ctx context.Context, id, name string, quantity int, priceCents int64, category string) (Item, error)
	DeleteItem(ctx context.Context, id string) error
	GetItem(ctx context.Context, id string) (Item, error)
	ListItems(ctx context.Context) ([]Item, error)
	Reserve(ctx context.Context, itemID string, n int) error
	Release(ctx context.Context, itemID string, n int) error
	LowStock(ctx context.Context, threshold int) ([]Item, error)
}

// Carts stages per-user reservations. Every mutation adjusts the
// ledger in the same transaction; failures leave both untouched.
type Carts interface {
	AddToCart(ctx context.Context, userID, itemID string) (CartLine, error)
	AdjustCart(ctx context.Context, userID, lineID string, action CartAction) (CartLine, error)
	CartSnapshot(ctx context.Context, userID string) (CartView, error)
}

// Orders drives the checkout and the status machine.
type Orders interface {
	// Checkout atomically creates the order plus snapshot lines and
	// clears the cart. Reserved stock stays committed to the order.
	Checkout(ctx context.Context, userID string, method PaymentMethod, table int) (OrderView, error)
	GetOrder(ctx context.Context, orderID string) (OrderView, error)
	MarkPaid(ctx context.Context, orderID string, tipCents int64) (Order, error)
	MarkPrinted(ctx context.Context, orderID string) (Order, error)
	UpdatePaymentMethod(ctx context.Context, orderID string, method PaymentMethod) (Order, error)
	ListPending(ctx context.Context) ([]OrderView, error)
	ListHistory(ctx context.Context) ([]OrderView, error)
}

// Sales feeds the window report: orders with created_at in [from, to),
// one row per line, ordered by order id then line insertion.
type Sales interface {
	SalesWindow(ctx context.Context, from, to time.Time) ([]ReportRow, error)
}

type Store interface {
	Ledger
	Carts
	Orders
	Sales
}
