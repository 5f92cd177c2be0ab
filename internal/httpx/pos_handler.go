package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/dmorales/barpos/internal/kafka"
	"github.com/dmorales/barpos/internal/pos"
	"github.com/dmorales/barpos/internal/printing"
	"github.com/dmorales/barpos/internal/redisx"
	"github.com/dmorales/barpos/internal/report"
)

// Publisher is the slice of kafkax.Producer the handlers need.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type POSHandler struct {
	Store pos.Store
	Redis *redis.Client

	PubCreated Publisher
	PubPaid    Publisher
	PubPrinted Publisher

	Spooler  printing.Spooler
	Reporter *report.Reporter

	Printer   string
	Header    string
	LowStock  int
	CloseHour int
	Service   string
}

func (h *POSHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(WithIdentity)

		r.Get("/items", h.listItems)
		r.Get("/items/low", h.lowStockItems)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(RoleAdmin, RoleSupervisor))
			r.Post("/items", h.createItem)
			r.Put("/items/{id}", h.updateItem)
			r.Delete("/items/{id}", h.deleteItem)
			r.Get("/reports/sales", h.salesReport)
		})

		r.Post("/cart/items/{itemID}", h.addToCart)
		r.Post("/cart/lines/{lineID}/{action}", h.adjustCart)
		r.Get("/cart", h.viewCart)
		r.Post("/cart/checkout", h.checkout)

		r.Get("/orders/pending", h.listPending)
		r.Get("/orders/history", h.listHistory)
		r.Get("/orders/{id}", h.getOrder)
		r.Post("/orders/{id}/action", h.orderAction)
		r.Post("/orders/{id}/payment-method", h.updatePayment)
		r.Post("/orders/{id}/print", h.printOrder)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pos.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, pos.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, pos.ErrEmptyCart),
		errors.Is(err, pos.ErrInvalidPaymentMethod),
		errors.Is(err, pos.ErrInvalidTableNumber):
		return http.StatusBadRequest
	case errors.Is(err, pos.ErrItemNotFound),
		errors.Is(err, pos.ErrCartLineNotFound),
		errors.Is(err, pos.ErrOrderNotFound),
		errors.Is(err, pos.ErrNoSalesInWindow):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ---- inventory ----

type itemReq struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"` // decimal string, e.g. "12.50"
	Category string `json:"category"`
}

func decodeItem(w http.ResponseWriter, r *http.Request) (itemReq, int64, bool) {
	var req itemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return req, 0, false
	}
	if req.Name == "" || req.Quantity < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return req, 0, false
	}
	cents, err := pos.ParseAmount(req.Price)
	if err != nil || cents < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		return req, 0, false
	}
	return req, cents, true
}

func (h *POSHandler) createItem(w http.ResponseWriter, r *http.Request) {
	req, cents, ok := decodeItem(w, r)
	if !ok {
		return
	}
	it, err := h.Store.CreateItem(r.Context(), req.Name, req.Quantity, cents, req.Category)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (h *POSHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	req, cents, ok := decodeItem(w, r)
	if !ok {
		return
	}
	it, err := h.Store.UpdateItem(r.Context(), chi.URLParam(r, "id"), req.Name, req.Quantity, cents, req.Category)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *POSHandler) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *POSHandler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.ListItems(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *POSHandler) lowStockItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.LowStock(r.Context(), h.LowStock)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"threshold": h.LowStock, "items": items})
}

// ---- cart ----

func (h *POSHandler) addToCart(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	itemID := chi.URLParam(r, "itemID")

	line, err := h.Store.AddToCart(r.Context(), id.UserID, itemID)
	if err != nil {
		writeErr(w, err)
		return
	}

	cart, err := h.Store.CartSnapshot(r.Context(), id.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}

	// advisory low-stock hint for the till UI
	low := false
	if it, err := h.Store.GetItem(r.Context(), itemID); err == nil {
		low = it.Quantity <= h.LowStock
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"line":       line,
		"cart_count": len(cart.Lines),
		"low_stock":  low,
	})
}

func (h *POSHandler) adjustCart(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	action := pos.CartAction(chi.URLParam(r, "action"))
	switch action {
	case pos.ActionIncrease, pos.ActionDecrease, pos.ActionRemove:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown action"})
		return
	}

	line, err := h.Store.AdjustCart(r.Context(), id.UserID, chi.URLParam(r, "lineID"), action)
	if err != nil {
		writeErr(w, err)
		return
	}

	cart, err := h.Store.CartSnapshot(r.Context(), id.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"line":       line,
		"cart_count": len(cart.Lines),
	})
}

func (h *POSHandler) viewCart(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	cart, err := h.Store.CartSnapshot(r.Context(), id.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// ---- orders ----

type checkoutReq struct {
	PaymentMethod pos.PaymentMethod `json:"payment_method"`
	TableNumber   int               `json:"table_number"`
}

func (h *POSHandler) checkout(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	view, err := h.Store.Checkout(r.Context(), id.UserID, req.PaymentMethod, req.TableNumber)
	if err != nil {
		writeErr(w, err)
		return
	}

	h.cacheStatus(r, view.Order.ID, view.Order.Status)
	h.publish(h.PubCreated, pos.EventOrderCreated, view.Order.ID, pos.OrderCreatedPayload{
		OrderID:       view.Order.ID,
		UserID:        view.Order.UserID,
		TableNumber:   view.Order.TableNumber,
		PaymentMethod: view.Order.PaymentMethod,
		Lines:         view.Lines,
		TotalCents:    view.Order.TotalCents,
	}, r)

	writeJSON(w, http.StatusCreated, view)
}

func (h *POSHandler) listPending(w http.ResponseWriter, r *http.Request) {
	views, err := h.Store.ListPending(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": views})
}

func (h *POSHandler) listHistory(w http.ResponseWriter, r *http.Request) {
	views, err := h.Store.ListHistory(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": views})
}

func (h *POSHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	// status fast path from cache
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
		if s, err := h.Redis.Get(r.Context(), key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	view, err := h.Store.GetOrder(r.Context(), orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(r, orderID, view.Order.Status)
	writeJSON(w, http.StatusOK, map[string]any{"status": view.Order.Status})
}

type orderActionReq struct {
	Action string `json:"action"` // mark_paid | mark_printed
	Tip    string `json:"tip,omitempty"`
}

func (h *POSHandler) orderAction(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var req orderActionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	switch req.Action {
	case "mark_paid":
		o, err := h.Store.MarkPaid(r.Context(), orderID, pos.ParseTip(req.Tip))
		if err != nil {
			writeErr(w, err)
			return
		}
		h.cacheStatus(r, orderID, o.Status)
		h.publish(h.PubPaid, pos.EventOrderPaid, o.ID, pos.OrderPaidPayload{
			OrderID: o.ID, TotalCents: o.TotalCents, TipCents: o.TipCents,
		}, r)
		writeJSON(w, http.StatusOK, o)
	case "mark_printed":
		o, err := h.Store.MarkPrinted(r.Context(), orderID)
		if err != nil {
			writeErr(w, err)
			return
		}
		h.cacheStatus(r, orderID, o.Status)
		h.publish(h.PubPrinted, pos.EventOrderPrinted, o.ID, pos.OrderPrintedPayload{
			OrderID: o.ID, Printer: h.Printer,
		}, r)
		writeJSON(w, http.StatusOK, o)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown action"})
	}
}

type paymentReq struct {
	PaymentMethod pos.PaymentMethod `json:"payment_method"`
}

func (h *POSHandler) updatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	o, err := h.Store.UpdatePaymentMethod(r.Context(), chi.URLParam(r, "id"), req.PaymentMethod)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// printOrder renders the ticket and spools it. A spooler failure
// surfaces as 502 and leaves the order status untouched so the print
// can be retried.
func (h *POSHandler) printOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	view, err := h.Store.GetOrder(r.Context(), orderID)
	if err != nil {
		writeErr(w, err)
		return
	}

	ticket := pos.RenderTicket(h.Header, view)
	if err := h.Spooler.Print(r.Context(), h.Printer, ticket); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": fmt.Sprintf("print spooler: %v", err)})
		return
	}

	o, err := h.Store.MarkPrinted(r.Context(), orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(r, orderID, o.Status)
	h.publish(h.PubPrinted, pos.EventOrderPrinted, o.ID, pos.OrderPrintedPayload{
		OrderID: o.ID, Printer: h.Printer,
	}, r)
	writeJSON(w, http.StatusOK, o)
}

// ---- reports ----

func (h *POSHandler) salesReport(w http.ResponseWriter, r *http.Request) {
	from, to := report.DefaultWindow(time.Now(), h.CloseHour, h.Reporter.Loc)
	if q := r.URL.Query().Get("from"); q != "" {
		t, err := time.Parse(time.RFC3339, q)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from"})
			return
		}
		from = t
	}
	if q := r.URL.Query().Get("to"); q != "" {
		t, err := time.Parse(time.RFC3339, q)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid to"})
			return
		}
		to = t
	}

	data, err := h.Reporter.BuildCSV(r.Context(), from, to)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "sales.csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ---- helpers ----

func (h *POSHandler) cacheStatus(r *http.Request, orderID string, status pos.Status) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	body, _ := json.Marshal(map[string]pos.Status{"status": status})
	_ = h.Redis.Set(r.Context(), key, body, redisx.TTLStatusCache).Err()
}

func (h *POSHandler) publish(p Publisher, eventType, orderID string, payload any, r *http.Request) {
	if p == nil {
		return
	}
	ev := pos.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       middleware.GetReqID(r.Context()),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(pos.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
