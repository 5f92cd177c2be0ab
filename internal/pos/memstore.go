package pos

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store. The single lock is the serializing
// boundary for every reserve/release pair, so the stock conservation
// law holds under concurrent carts. Used by tests and local dev; the
// Postgres store in repo.go is the production implementation.
type MemStore struct {
	mu         sync.RWMutex
	items      map[string]*Item
	lines      map[string]*CartLine
	userLines  map[string][]string // cart line ids in insertion order
	orders     map[string]*Order
	orderSeq   []string // order ids in creation order
	orderLines map[string][]OrderLine
	now        func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		items:      map[string]*Item{},
		lines:      map[string]*CartLine{},
		userLines:  map[string][]string{},
		orders:     map[string]*Order{},
		orderLines: map[string][]OrderLine{},
		now:        time.Now,
	}
}

var _ Store = (*MemStore)(nil)

// ---- Ledger ----

func (s *MemStore) CreateItem(_ context.Context, name string, quantity int, priceCents int64, category string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := &Item{
		ID:         uuid.NewString(),
		Name:       name,
		Quantity:   quantity,
		PriceCents: priceCents,
		Category:   category,
		CreatedAt:  s.now(),
		UpdatedAt:  s.now(),
	}
	s.items[it.ID] = it
	return *it, nil
}

func (s *MemStore) UpdateItem(_ context.Context, id, name string, quantity int, priceCents int64, category string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	it.Name = name
	it.Quantity = quantity
	it.PriceCents = priceCents
	it.Category = category
	it.UpdatedAt = s.now()
	return *it, nil
}

func (s *MemStore) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ErrItemNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *MemStore) GetItem(_ context.Context, id string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return *it, nil
}

func (s *MemStore) ListItems(_ context.Context) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, *it)
	}
	sortItemsByName(out)
	return out, nil
}

func (s *MemStore) Reserve(_ context.Context, itemID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reserveLocked(itemID, n)
}

func (s *MemStore) reserveLocked(itemID string, n int) error {
	it, ok := s.items[itemID]
	if !ok {
		return ErrItemNotFound
	}
	if it.Quantity < n {
		return ErrInsufficientStock
	}
	it.Quantity -= n
	it.UpdatedAt = s.now()
	return nil
}

func (s *MemStore) Release(_ context.Context, itemID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseLocked(itemID, n)
}

func (s *MemStore) releaseLocked(itemID string, n int) error {
	it, ok := s.items[itemID]
	if !ok {
		return ErrItemNotFound
	}
	if n > 0 {
		it.Quantity += n
		it.UpdatedAt = s.now()
	}
	return nil
}

func (s *MemStore) LowStock(_ context.Context, threshold int) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Item
	for _, it := range s.items {
		if it.Quantity <= threshold {
			out = append(out, *it)
		}
	}
	sortItemsByName(out)
	return out, nil
}

func sortItemsByName(items []Item) {
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
}

// ---- Carts ----

func (s *MemStore) AddToCart(_ context.Context, userID, itemID string) (CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reserveLocked(itemID, 1); err != nil {
		return CartLine{}, err
	}
	for _, id := range s.userLines[userID] {
		if l := s.lines[id]; l.ItemID == itemID {
			l.Quantity++
			return *l, nil
		}
	}
	l := &CartLine{ID: uuid.NewString(), UserID: userID, ItemID: itemID, Quantity: 1}
	s.lines[l.ID] = l
	s.userLines[userID] = append(s.userLines[userID], l.ID)
	return *l, nil
}

func (s *MemStore) AdjustCart(_ context.Context, userID, lineID string, action CartAction) (CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lines[lineID]
	if !ok || l.UserID != userID {
		return CartLine{}, ErrCartLineNotFound
	}

	switch action {
	case ActionIncrease:
		if err := s.reserveLocked(l.ItemID, 1); err != nil {
			return CartLine{}, err
		}
		l.Quantity++
	case ActionDecrease:
		l.Quantity--
		_ = s.releaseLocked(l.ItemID, 1)
		if l.Quantity == 0 {
			s.dropLineLocked(l)
		}
	case ActionRemove:
		_ = s.releaseLocked(l.ItemID, l.Quantity)
		s.dropLineLocked(l)
		l.Quantity = 0
	default:
		return CartLine{}, ErrCartLineNotFound
	}
	return *l, nil
}

func (s *MemStore) dropLineLocked(l *CartLine) {
	delete(s.lines, l.ID)
	ids := s.userLines[l.UserID]
	for i, id := range ids {
		if id == l.ID {
			s.userLines[l.UserID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

func (s *MemStore) CartSnapshot(_ context.Context, userID string) (CartView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cartSnapshotLocked(userID)
}

func (s *MemStore) cartSnapshotLocked(userID string) (CartView, error) {
	var v CartView
	for _, id := range s.userLines[userID] {
		l := s.lines[id]
		it, ok := s.items[l.ItemID]
		if !ok {
			return CartView{}, ErrItemNotFound
		}
		sub := int64(l.Quantity) * it.PriceCents
		v.Lines = append(v.Lines, CartLineView{
			LineID:        l.ID,
			ItemID:        l.ItemID,
			Name:          it.Name,
			Quantity:      l.Quantity,
			PriceCents:    it.PriceCents,
			SubtotalCents: sub,
		})
		v.TotalCents += sub
	}
	return v, nil
}

// ---- Orders ----

func (s *MemStore) Checkout(_ context.Context, userID string, method PaymentMethod, table int) (OrderView, error) {
	if !ValidPaymentMethod(method) {
		return OrderView{}, ErrInvalidPaymentMethod
	}
	if table <= 0 {
		return OrderView{}, ErrInvalidTableNumber
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.cartSnapshotLocked(userID)
	if err != nil {
		return OrderView{}, err
	}
	if len(cart.Lines) == 0 {
		return OrderView{}, ErrEmptyCart
	}

	o := &Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		TotalCents:    cart.TotalCents,
		PaymentMethod: method,
		TableNumber:   table,
		Status:        StatusPending,
		CreatedAt:     s.now(),
	}
	lines := make([]OrderLine, 0, len(cart.Lines))
	for _, cl := range cart.Lines {
		lines = append(lines, OrderLine{
			OrderID:    o.ID,
			ItemID:     cl.ItemID,
			Name:       cl.Name,
			Quantity:   cl.Quantity,
			PriceCents: cl.PriceCents,
		})
	}
	s.orders[o.ID] = o
	s.orderSeq = append(s.orderSeq, o.ID)
	s.orderLines[o.ID] = lines

	// Clear the cart without releasing stock: units are committed to
	// the order now.
	for _, id := range s.userLines[userID] {
		delete(s.lines, id)
	}
	delete(s.userLines, userID)

	return OrderView{Order: *o, Lines: lines}, nil
}

func (s *MemStore) GetOrder(_ context.Context, orderID string) (OrderView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return OrderView{}, ErrOrderNotFound
	}
	return OrderView{Order: *o, Lines: append([]OrderLine(nil), s.orderLines[orderID]...)}, nil
}

func (s *MemStore) MarkPaid(_ context.Context, orderID string, tipCents int64) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	if !CanTransition(o.Status, StatusPaid) {
		return Order{}, ErrInvalidTransition
	}
	o.Status = StatusPaid
	if tipCents < 0 {
		tipCents = 0
	}
	o.TipCents = tipCents
	return *o, nil
}

func (s *MemStore) MarkPrinted(_ context.Context, orderID string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	o.Status = StatusPrinted
	return *o, nil
}

func (s *MemStore) UpdatePaymentMethod(_ context.Context, orderID string, method PaymentMethod) (Order, error) {
	if !ValidPaymentMethod(method) {
		return Order{}, ErrInvalidPaymentMethod
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	o.PaymentMethod = method
	return *o, nil
}

func (s *MemStore) ListPending(_ context.Context) ([]OrderView, error) {
	return s.listOrders(func(o *Order) bool {
		return o.Status == StatusPending || o.Status == StatusPaid
	})
}

func (s *MemStore) ListHistory(_ context.Context) ([]OrderView, error) {
	return s.listOrders(func(*Order) bool { return true })
}

// listOrders returns matching orders newest first.
func (s *MemStore) listOrders(keep func(*Order) bool) ([]OrderView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []OrderView
	for i := len(s.orderSeq) - 1; i >= 0; i-- {
		o := s.orders[s.orderSeq[i]]
		if keep(o) {
			out = append(out, OrderView{Order: *o, Lines: append([]OrderLine(nil), s.orderLines[o.ID]...)})
		}
	}
	return out, nil
}

// ---- Sales ----

func (s *MemStore) SalesWindow(_ context.Context, from, to time.Time) ([]ReportRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []ReportRow
	for _, id := range s.orderSeq {
		o := s.orders[id]
		if o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		for _, l := range s.orderLines[id] {
			rows = append(rows, ReportRow{
				OrderID:       o.ID,
				TableNumber:   o.TableNumber,
				UserID:        o.UserID,
				PaymentMethod: o.PaymentMethod,
				Product:       l.Name,
				Quantity:      l.Quantity,
				PriceCents:    l.PriceCents,
				SubtotalCents: l.SubtotalCents(),
				TotalCents:    o.TotalCents,
				TipCents:      o.TipCents,
				Status:        o.Status,
				CreatedAt:     o.CreatedAt,
			})
		}
	}
	if len(rows) == 0 {
		return nil, ErrNoSalesInWindow
	}
	return rows, nil
}
