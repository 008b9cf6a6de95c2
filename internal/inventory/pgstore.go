package inventory

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-smartorder/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct{ DB *pgxpool.Pool }

// Reserve decrements with a guarded UPDATE; the row lock taken by the UPDATE
// serializes concurrent reservations on the same product.
func (s *PGStore) Reserve(ctx context.Context, productID string, qty int) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE stock_records
		SET quantity_on_hand = quantity_on_hand - $2, updated_at = now()
		WHERE product_id = $1 AND quantity_on_hand >= $2`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	if _, err := s.Quantity(ctx, productID); err != nil {
		return err
	}
	return apperr.InsufficientStock(productID)
}

func (s *PGStore) Release(ctx context.Context, productID string, qty int) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE stock_records
		SET quantity_on_hand = quantity_on_hand + $2, updated_at = now()
		WHERE product_id = $1`, productID, qty)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22003" {
		return errOnHandOverflow(productID)
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return apperr.NotFound(productID, "stock record not found")
	}
	return nil
}

func (s *PGStore) Quantity(ctx context.Context, productID string) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, `SELECT quantity_on_hand FROM stock_records WHERE product_id = $1`, productID).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.NotFound(productID, "stock record not found")
	}
	return n, err
}

func (s *PGStore) Quantities(ctx context.Context) (map[string]int, error) {
	rows, err := s.DB.Query(ctx, `SELECT product_id, quantity_on_hand FROM stock_records`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (s *PGStore) Provision(ctx context.Context, rec StockRecord) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO stock_records(product_id, store_id, quantity_on_hand)
		VALUES ($1, $2, $3)`, rec.ProductID, rec.StoreID, rec.QuantityOnHand)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &apperr.Error{Kind: apperr.KindConflict, ProductID: rec.ProductID, Msg: "stock record already exists"}
	}
	return err
}
