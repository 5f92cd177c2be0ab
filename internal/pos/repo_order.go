package pos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const orderCols = `id, user_id, total_cents, tip_cents, payment_method, table_number, status, created_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.TotalCents, &o.TipCents, &o.PaymentMethod, &o.TableNumber, &o.Status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

// Checkout converts the user's cart into a Pending order inside one
// transaction: order row, snapshot lines, cart cleared. Stock is not
// touched; it was already reserved at add-to-cart time and stays
// committed to the order.
func (r *Repo) Checkout(ctx context.Context, userID string, method PaymentMethod, table int) (OrderView, error) {
	if !ValidPaymentMethod(method) {
		return OrderView{}, ErrInvalidPaymentMethod
	}
	if table <= 0 {
		return OrderView{}, ErrInvalidTableNumber
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return OrderView{}, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT cl.item_id, i.name, cl.quantity, i.price_cents
		FROM cart_lines cl
		JOIN items i ON i.id = cl.item_id
		WHERE cl.user_id = $1
		ORDER BY cl.created_at, cl.id
		FOR UPDATE OF cl`, userID)
	if err != nil {
		return OrderView{}, err
	}

	var (
		lines []OrderLine
		total int64
	)
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ItemID, &l.Name, &l.Quantity, &l.PriceCents); err != nil {
			rows.Close()
			return OrderView{}, err
		}
		lines = append(lines, l)
		total += l.SubtotalCents()
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return OrderView{}, err
	}
	if len(lines) == 0 {
		return OrderView{}, ErrEmptyCart
	}

	o := Order{ID: uuid.NewString()}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, total_cents, payment_method, table_number, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+orderCols,
		o.ID, userID, total, string(method), table, string(StatusPending)).
		Scan(&o.ID, &o.UserID, &o.TotalCents, &o.TipCents, &o.PaymentMethod, &o.TableNumber, &o.Status, &o.CreatedAt)
	if err != nil {
		return OrderView{}, err
	}

	for i := range lines {
		lines[i].OrderID = o.ID
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_lines(order_id, item_id, name, quantity, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, lines[i].ItemID, lines[i].Name, lines[i].Quantity, lines[i].PriceCents); err != nil {
			return OrderView{}, err
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE user_id=$1`, userID); err != nil {
		return OrderView{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return OrderView{}, err
	}
	return OrderView{Order: o, Lines: lines}, nil
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (OrderView, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, orderID))
	if err != nil {
		return OrderView{}, err
	}
	lines, err := r.orderLines(ctx, orderID)
	if err != nil {
		return OrderView{}, err
	}
	return OrderView{Order: o, Lines: lines}, nil
}

func (r *Repo) orderLines(ctx context.Context, orderID string) ([]OrderLine, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, item_id, name, quantity, price_cents
		FROM order_lines WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.OrderID, &l.ItemID, &l.Name, &l.Quantity, &l.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) MarkPaid(ctx context.Context, orderID string, tipCents int64) (Order, error) {
	if tipCents < 0 {
		tipCents = 0
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer tx.Rollback(ctx)

	var status Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(status, StatusPaid) {
		return Order{}, ErrInvalidTransition
	}

	o, err := scanOrder(tx.QueryRow(ctx, `
		UPDATE orders SET status=$2, tip_cents=$3 WHERE id=$1
		RETURNING `+orderCols, orderID, string(StatusPaid), tipCents))
	if err != nil {
		return Order{}, err
	}
	return o, tx.Commit(ctx)
}

func (r *Repo) MarkPrinted(ctx context.Context, orderID string) (Order, error) {
	return scanOrder(r.DB.QueryRow(ctx, `
		UPDATE orders SET status=$2 WHERE id=$1
		RETURNING `+orderCols, orderID, string(StatusPrinted)))
}

func (r *Repo) UpdatePaymentMethod(ctx context.Context, orderID string, method PaymentMethod) (Order, error) {
	if !ValidPaymentMethod(method) {
		return Order{}, ErrInvalidPaymentMethod
	}
	return scanOrder(r.DB.QueryRow(ctx, `
		UPDATE orders SET payment_method=$2 WHERE id=$1
		RETURNING `+orderCols, orderID, string(method)))
}

func (r *Repo) ListPending(ctx context.Context) ([]OrderView, error) {
	return r.listOrders(ctx, `
		SELECT `+orderCols+` FROM orders
		WHERE status = ANY($1) ORDER BY created_at DESC, id`,
		[]string{string(StatusPending), string(StatusPaid)})
}

func (r *Repo) ListHistory(ctx context.Context) ([]OrderView, error) {
	return r.listOrders(ctx, `SELECT `+orderCols+` FROM orders ORDER BY created_at DESC, id`)
}

func (r *Repo) listOrders(ctx context.Context, sql string, args ...any) ([]OrderView, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderView
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalCents, &o.TipCents, &o.PaymentMethod, &o.TableNumber, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, OrderView{Order: o})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		lines, err := r.orderLines(ctx, out[i].Order.ID)
		if err != nil {
			return nil, err
		}
		out[i].Lines = lines
	}
	return out, nil
}

func (r *Repo) SalesWindow(ctx context.Context, from, to time.Time) ([]ReportRow, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT o.id, o.table_number, o.user_id, o.payment_method,
		       l.name, l.quantity, l.price_cents,
		       o.total_cents, o.tip_cents, o.status, o.created_at
		FROM orders o
		JOIN order_lines l ON l.order_id = o.id
		WHERE o.created_at >= $1 AND o.created_at < $2
		ORDER BY o.created_at, o.id, l.id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var row ReportRow
		if err := rows.Scan(&row.OrderID, &row.TableNumber, &row.UserID, &row.PaymentMethod,
			&row.Product, &row.Quantity, &row.PriceCents,
			&row.TotalCents, &row.TipCents, &row.Status, &row.CreatedAt); err != nil {
			return nil, err
		}
		row.SubtotalCents = int64(row.Quantity) * row.PriceCents
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoSalesInWindow
	}
	return out, nil
}
