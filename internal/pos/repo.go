package pos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres Store. Stock mutations lock the item row
// (FOR UPDATE) so concurrent carts cannot oversell.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

const itemCols = `id, name, quantity, price_cents, category, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Name, &it.Quantity, &it.PriceCents, &it.Category, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	return it, err
}

func (r *Repo) CreateItem(ctx context.Context, name string, quantity int, priceCents int64, category string) (Item, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO items(id, name, quantity, price_cents, category)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+itemCols,
		uuid.NewString(), name, quantity, priceCents, category)
	return scanItem(row)
}

func (r *Repo) UpdateItem(ctx context.Context, id, name string, quantity int, priceCents int64, category string) (Item, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE items SET name=$2, quantity=$3, price_cents=$4, category=$5, updated_at=now()
		WHERE id=$1
		RETURNING `+itemCols, id, name, quantity, priceCents, category)
	return scanItem(row)
}

func (r *Repo) DeleteItem(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM items WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *Repo) GetItem(ctx context.Context, id string) (Item, error) {
	return scanItem(r.DB.QueryRow(ctx, `SELECT `+itemCols+` FROM items WHERE id=$1`, id))
}

func (r *Repo) ListItems(ctx context.Context) ([]Item, error) {
	return r.queryItems(ctx, `SELECT `+itemCols+` FROM items ORDER BY name`)
}

func (r *Repo) LowStock(ctx context.Context, threshold int) ([]Item, error) {
	return r.queryItems(ctx, `SELECT `+itemCols+` FROM items WHERE quantity <= $1 ORDER BY name`, threshold)
}

func (r *Repo) queryItems(ctx context.Context, sql string, args ...any) ([]Item, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Quantity, &it.PriceCents, &it.Category, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Reserve decrements stock by n, failing with ErrInsufficientStock if
// fewer than n units remain. The row lock serializes concurrent
// reservations of the same item.
func (r *Repo) Reserve(ctx context.Context, itemID string, n int) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := reserveTx(ctx, tx, itemID, n); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func reserveTx(ctx context.Context, tx pgx.Tx, itemID string, n int) error {
	var stock int
	err := tx.QueryRow(ctx, `SELECT quantity FROM items WHERE id=$1 FOR UPDATE`, itemID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrItemNotFound
	}
	if err != nil {
		return err
	}
	if stock < n {
		return ErrInsufficientStock
	}
	_, err = tx.Exec(ctx, `UPDATE items SET quantity = quantity - $2, updated_at = now() WHERE id=$1`, itemID, n)
	return err
}

func (r *Repo) Release(ctx context.Context, itemID string, n int) error {
	if n <= 0 {
		return nil
	}
	ct, err := r.DB.Exec(ctx, `UPDATE items SET quantity = quantity + $2, updated_at = now() WHERE id=$1`, itemID, n)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func releaseTx(ctx context.Context, tx pgx.Tx, itemID string, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `UPDATE items SET quantity = quantity + $2, updated_at = now() WHERE id=$1`, itemID, n)
	return err
}
