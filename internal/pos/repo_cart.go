package pos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AddToCart reserves one unit and creates or bumps the user's line for
// the item. Reservation failure rolls the whole thing back.
func (r *Repo) AddToCart(ctx context.Context, userID, itemID string) (CartLine, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return CartLine{}, err
	}
	defer tx.Rollback(ctx)

	if err := reserveTx(ctx, tx, itemID, 1); err != nil {
		return CartLine{}, err
	}

	var l CartLine
	err = tx.QueryRow(ctx, `
		INSERT INTO cart_lines(id, user_id, item_id, quantity)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, item_id)
		DO UPDATE SET quantity = cart_lines.quantity + 1
		RETURNING id, user_id, item_id, quantity`,
		uuid.NewString(), userID, itemID).
		Scan(&l.ID, &l.UserID, &l.ItemID, &l.Quantity)
	if err != nil {
		return CartLine{}, err
	}
	return l, tx.Commit(ctx)
}

func (r *Repo) AdjustCart(ctx context.Context, userID, lineID string, action CartAction) (CartLine, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return CartLine{}, err
	}
	defer tx.Rollback(ctx)

	var l CartLine
	err = tx.QueryRow(ctx, `
		SELECT id, user_id, item_id, quantity FROM cart_lines
		WHERE id=$1 AND user_id=$2 FOR UPDATE`, lineID, userID).
		Scan(&l.ID, &l.UserID, &l.ItemID, &l.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return CartLine{}, ErrCartLineNotFound
	}
	if err != nil {
		return CartLine{}, err
	}

	switch action {
	case ActionIncrease:
		if err := reserveTx(ctx, tx, l.ItemID, 1); err != nil {
			return CartLine{}, err
		}
		l.Quantity++
		if _, err := tx.Exec(ctx, `UPDATE cart_lines SET quantity=$2 WHERE id=$1`, l.ID, l.Quantity); err != nil {
			return CartLine{}, err
		}
	case ActionDecrease:
		if err := releaseTx(ctx, tx, l.ItemID, 1); err != nil {
			return CartLine{}, err
		}
		l.Quantity--
		if l.Quantity == 0 {
			if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE id=$1`, l.ID); err != nil {
				return CartLine{}, err
			}
		} else {
			if _, err := tx.Exec(ctx, `UPDATE cart_lines SET quantity=$2 WHERE id=$1`, l.ID, l.Quantity); err != nil {
				return CartLine{}, err
			}
		}
	case ActionRemove:
		if err := releaseTx(ctx, tx, l.ItemID, l.Quantity); err != nil {
			return CartLine{}, err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE id=$1`, l.ID); err != nil {
			return CartLine{}, err
		}
		l.Quantity = 0
	default:
		return CartLine{}, ErrCartLineNotFound
	}

	return l, tx.Commit(ctx)
}

func (r *Repo) CartSnapshot(ctx context.Context, userID string) (CartView, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT cl.id, cl.item_id, i.name, cl.quantity, i.price_cents
		FROM cart_lines cl
		JOIN items i ON i.id = cl.item_id
		WHERE cl.user_id = $1
		ORDER BY cl.created_at, cl.id`, userID)
	if err != nil {
		return CartView{}, err
	}
	defer rows.Close()

	var v CartView
	for rows.Next() {
		var cl CartLineView
		if err := rows.Scan(&cl.LineID, &cl.ItemID, &cl.Name, &cl.Quantity, &cl.PriceCents); err != nil {
			return CartView{}, err
		}
		cl.SubtotalCents = int64(cl.Quantity) * cl.PriceCents
		v.Lines = append(v.Lines, cl)
		v.TotalCents += cl.SubtotalCents
	}
	return v, rows.Err()
}
