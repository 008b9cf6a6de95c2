package orders

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-smartorder/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository is the order store. Create and Update write the order and its
// items in one transaction.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	Update(ctx context.Context, o *Order) error
	// MarkCanceled performs the single Active -> Canceled transition.
	MarkCanceled(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type PGRepository struct{ DB *pgxpool.Pool }

func (r *PGRepository) Create(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, customer_name, order_date, is_canceled)
		VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.UserID, o.CustomerName, o.OrderDate, o.Canceled); err != nil {
		return err
	}
	if err := insertItems(ctx, tx, o.ID, o.Items); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertItems(ctx context.Context, tx pgx.Tx, orderID string, items []LineItem) error {
	batch := &pgx.Batch{}
	for i, it := range items {
		batch.Queue(`
			INSERT INTO order_items(order_id, position, product_id, product_name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			orderID, i, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func (r *PGRepository) Get(ctx context.Context, id string) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, customer_name, order_date, is_canceled
		FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.UserID, &o.CustomerName, &o.OrderDate, &o.Canceled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.OrderNotFound(id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT product_id, product_name, quantity, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ProductID, &li.ProductName, &li.Quantity, &li.UnitPrice); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, li)
	}
	return &o, rows.Err()
}

func (r *PGRepository) List(ctx context.Context) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT o.id, o.user_id, o.customer_name, o.order_date, o.is_canceled,
		       i.product_id, i.product_name, i.quantity, i.unit_price
		FROM orders o
		LEFT JOIN order_items i ON i.order_id = o.id
		ORDER BY o.created_at, o.id, i.position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		var pid, pname *string
		var qty *int
		var price decimal.NullDecimal
		if err := rows.Scan(&o.ID, &o.UserID, &o.CustomerName, &o.OrderDate, &o.Canceled,
			&pid, &pname, &qty, &price); err != nil {
			return nil, err
		}
		if len(out) == 0 || out[len(out)-1].ID != o.ID {
			out = append(out, o)
		}
		if pid != nil {
			li := LineItem{ProductID: *pid, ProductName: *pname, Quantity: *qty, UnitPrice: price.Decimal}
			last := &out[len(out)-1]
			last.Items = append(last.Items, li)
		}
	}
	return out, rows.Err()
}

func (r *PGRepository) Update(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE orders SET customer_name = $2, order_date = $3
		WHERE id = $1`, o.ID, o.CustomerName, o.OrderDate)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return apperr.OrderNotFound(o.ID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, o.ID); err != nil {
		return err
	}
	if err := insertItems(ctx, tx, o.ID, o.Items); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PGRepository) MarkCanceled(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET is_canceled = TRUE WHERE id = $1 AND NOT is_canceled`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	var canceled bool
	err = r.DB.QueryRow(ctx, `SELECT is_canceled FROM orders WHERE id = $1`, id).Scan(&canceled)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.OrderNotFound(id)
	}
	if err != nil {
		return err
	}
	return apperr.AlreadyCanceled(id)
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return apperr.OrderNotFound(id)
	}
	return nil
}
