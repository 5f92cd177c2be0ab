package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmorales/barpos/internal/pos"
	"github.com/dmorales/barpos/internal/printing"
	"github.com/dmorales/barpos/internal/report"
)

type env struct {
	store   *pos.MemStore
	handler *POSHandler
	router  http.Handler
	spoolOK bool
	spooled []string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{store: pos.NewMemStore(), spoolOK: true}
	e.handler = &POSHandler{
		Store: e.store,
		Spooler: printing.Func(func(_ context.Context, _, ticket string) error {
			if !e.spoolOK {
				return errors.New("queue unreachable")
			}
			e.spooled = append(e.spooled, ticket)
			return nil
		}),
		Reporter:  &report.Reporter{Sales: e.store, Loc: time.UTC},
		Printer:   "bar-ticket",
		Header:    "LA CANTINA",
		LowStock:  5,
		CloseHour: 3,
		Service:   "pos-api-test",
	}
	r := NewRouter()
	e.handler.Register(r)
	e.router = r
	return e
}

func (e *env) do(t *testing.T, method, path string, body any, user, role string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if user != "" {
		req.Header.Set("X-User-Id", user)
		req.Header.Set("X-User-Role", role)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) seedItem(t *testing.T, name string, qty int, cents int64) pos.Item {
	t.Helper()
	it, err := e.store.CreateItem(context.Background(), name, qty, cents, "")
	require.NoError(t, err)
	return it
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestRequiresIdentity(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodGet, "/items", nil, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestItemCRUDRoleGate(t *testing.T) {
	e := newEnv(t)
	body := map[string]any{"name": "Beer", "quantity": 10, "price": "3.00"}

	w := e.do(t, http.MethodPost, "/items", body, "emp-1", "employee")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/items", body, "boss", "admin")
	require.Equal(t, http.StatusCreated, w.Code)
	it := decode[pos.Item](t, w)
	assert.Equal(t, int64(300), it.PriceCents)

	w = e.do(t, http.MethodPut, "/items/"+it.ID,
		map[string]any{"name": "Beer", "quantity": 20, "price": "3.50"}, "sup", "supervisor")
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodDelete, "/items/"+it.ID, nil, "boss", "admin")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = e.do(t, http.MethodDelete, "/items/"+it.ID, nil, "boss", "admin")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartFlow(t *testing.T) {
	e := newEnv(t)
	it := e.seedItem(t, "Soup", 10, 450)

	w := e.do(t, http.MethodPost, "/cart/items/"+it.ID, nil, "waiter", "employee")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]any](t, w)
	assert.EqualValues(t, 1, resp["cart_count"])

	w = e.do(t, http.MethodGet, "/cart", nil, "waiter", "employee")
	require.Equal(t, http.StatusOK, w.Code)
	cart := decode[pos.CartView](t, w)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, int64(450), cart.TotalCents)

	lineID := cart.Lines[0].LineID
	w = e.do(t, http.MethodPost, "/cart/lines/"+lineID+"/increase", nil, "waiter", "employee")
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/cart/lines/"+lineID+"/bogus", nil, "waiter", "employee")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/cart/lines/"+lineID+"/remove", nil, "waiter", "employee")
	require.Equal(t, http.StatusOK, w.Code)

	got, err := e.store.GetItem(context.Background(), it.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Quantity, "remove returned all units to stock")
}

func TestAddToCartInsufficientStock(t *testing.T) {
	e := newEnv(t)
	it := e.seedItem(t, "Mezcal", 1, 1200)

	w := e.do(t, http.MethodPost, "/cart/items/"+it.ID, nil, "waiter", "employee")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]any](t, w)
	assert.Equal(t, true, resp["low_stock"])

	w = e.do(t, http.MethodPost, "/cart/items/"+it.ID, nil, "waiter", "employee")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func (e *env) checkout(t *testing.T, user string) pos.OrderView {
	t.Helper()
	w := e.do(t, http.MethodPost, "/cart/checkout",
		map[string]any{"payment_method": "Cash", "table_number": 4}, user, "employee")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[pos.OrderView](t, w)
}

func TestCheckout(t *testing.T) {
	e := newEnv(t)
	it := e.seedItem(t, "Soup", 10, 450)

	w := e.do(t, http.MethodPost, "/cart/checkout",
		map[string]any{"payment_method": "Cash", "table_number": 4}, "waiter", "employee")
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty cart")

	e.do(t, http.MethodPost, "/cart/items/"+it.ID, nil, "waiter", "employee")
	w = e.do(t, http.MethodPost, "/cart/checkout",
		map[string]any{"payment_method": "Goat", "table_number": 4}, "waiter", "employee")
	assert.Equal(t, http.StatusBadRequest, w.Code, "bad payment method")

	view := e.checkout(t, "waiter")
	assert.Equal(t, pos.StatusPending, view.Order.Status)
	require.Len(t, view.Lines, 1)

	w = e.do(t, http.MethodGet, "/cart", nil, "waiter", "employee")
	cart := decode[pos.CartView](t, w)
	assert.Empty(t, cart.Lines)

	w = e.do(t, http.MethodGet, "/orders/"+view.Order.ID, nil, "waiter", "employee")
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[map[string]string](t, w)
	assert.Equal(t, "Pending", st["status"])
}

func TestOrderActions(t *testing.T) {
	e := newEnv(t)
	it := e.seedItem(t, "Beer", 10, 300)
	e.do(t, http.MethodPost, "/cart/items/"+it.ID, nil, "waiter", "employee")
	view := e.checkout(t, "waiter")

	// junk tip coerces to zero
	w := e.do(t, http.MethodPost, "/orders/"+view.Order.ID+"/action",
		map[string]any{"action": "mark_paid", "tip": "lots"}, "waiter", "employee")
	require.Equal(t, http.StatusOK, w.Code)
	o := decode[pos.Order](t, w)
	assert.Equal(t, pos.StatusPaid, o.Status)
	assert.Zero(t, o.TipCents)

	w = e.do(t, http.MethodPost, "/orders/"+view.Order.ID+"/action",
		map[string]any{"action": "mark_paid", "tip": "1.50"}, "waiter", "employee")
	require.Equal(t, http.StatusOK, w.Code)
	o = decode[pos.Order](t, w)
	assert.Equal(t, int64(150), o.TipCents)

	w = e.do(t, http.MethodPost, "/orders/"+view.Order.ID+"/payment-method",
		map[string]any{"payment_method": "Card"}, "waiter", "employee")
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/orders/"+view.Order.ID+"/action",
		map[string]any{"action": "mark_printed"}, "waiter", "employee")
	require.Equal(t, http.StatusOK, w.Code)

	// printed orders cannot be re-paid
	w = e.do(t, http.MethodPost, "/orders/"+view.Order.ID+"/action",
		map[string]any{"action": "mark_paid"}, "waiter", "employee")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/orders/"+view.Order.ID+"/action",
		map[string]any{"action": "shred"}, "waiter", "employee")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPrintOrder(t *testing.T) {
	e := newEnv(t)
	it := e.seedItem(t, "Beer", 10, 300)
	e.do(t, http.MethodPost, "/cart/items/"+it.ID, nil, "waiter", "employee")
	view := e.checkout(t, "waiter")

	// spooler down: error surfaces, status untouched
	e.spoolOK = false
	w := e.do(t, http.MethodPost, "/orders/"+view.Order.ID+"/print", nil, "waiter", "employee")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	got, err := e.store.GetOrder(context.Background(), view.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, pos.StatusPending, got.Order.Status)

	// retry succeeds and marks printed
	e.spoolOK = true
	w = e.do(t, http.MethodPost, "/orders/"+view.Order.ID+"/print", nil, "waiter", "employee")
	require.Equal(t, http.StatusOK, w.Code)
	o := decode[pos.Order](t, w)
	assert.Equal(t, pos.StatusPrinted, o.Status)
	require.Len(t, e.spooled, 1)
	assert.Contains(t, e.spooled[0], "LA CANTINA")
	assert.Contains(t, e.spooled[0], "Beer")
}

func TestPendingAndHistory(t *testing.T) {
	e := newEnv(t)
	it := e.seedItem(t, "Beer", 10, 300)

	e.do(t, http.MethodPost, "/cart/items/"+it.ID, nil, "w1", "employee")
	v1 := e.checkout(t, "w1")
	e.do(t, http.MethodPost, "/cart/items/"+it.ID, nil, "w2", "employee")
	v2 := e.checkout(t, "w2")

	e.do(t, http.MethodPost, "/orders/"+v2.Order.ID+"/action",
		map[string]any{"action": "mark_printed"}, "w2", "employee")

	w := e.do(t, http.MethodGet, "/orders/pending", nil, "w1", "employee")
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode[map[string][]pos.OrderView](t, w)
	require.Len(t, pending["orders"], 1)
	assert.Equal(t, v1.Order.ID, pending["orders"][0].Order.ID)

	w = e.do(t, http.MethodGet, "/orders/history", nil, "w1", "employee")
	history := decode[map[string][]pos.OrderView](t, w)
	assert.Len(t, history["orders"], 2)
}

func TestSalesReportRoute(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/reports/sales", nil, "waiter", "employee")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodGet, "/reports/sales", nil, "boss", "admin")
	assert.Equal(t, http.StatusNotFound, w.Code, "no sales yet")

	it := e.seedItem(t, "Beer", 10, 300)
	e.do(t, http.MethodPost, "/cart/items/"+it.ID, nil, "waiter", "employee")
	view := e.checkout(t, "waiter")

	from := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	to := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	w = e.do(t, http.MethodGet,
		fmt.Sprintf("/reports/sales?from=%s&to=%s", from, to), nil, "boss", "admin")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), view.Order.ID)
}

func TestLowStockRoute(t *testing.T) {
	e := newEnv(t)
	e.seedItem(t, "Beer", 50, 300)
	soda := e.seedItem(t, "Soda", 2, 150)

	w := e.do(t, http.MethodGet, "/items/low", nil, "waiter", "employee")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]json.RawMessage](t, w)
	var items []pos.Item
	require.NoError(t, json.Unmarshal(resp["items"], &items))
	require.Len(t, items, 1)
	assert.Equal(t, soda.ID, items[0].ID)
}
