package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"stockflow/internal/domain"
)

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Product(ctx context.Context, id int64) (domain.Product, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProductRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.NewNotFoundError("product", id)
		}
		return domain.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return product, nil
}

// AdjustStock is a single conditional UPDATE, so concurrent adjustments of
// the same row serialize on its row lock and none is lost.
func (t *pgTx) AdjustStock(ctx context.Context, productID int64, delta int) (domain.Product, error) {
	row := t.tx.QueryRow(ctx, `
		UPDATE products
		SET
			stock = stock + $2,
			updated_at = NOW()
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING `+productColumns,
		productID, delta,
	)
	product, err := scanProductRow(row)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("adjust stock of product %d: %w", productID, err)
	}

	var exists bool
	if err := t.tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)",
		productID,
	).Scan(&exists); err != nil {
		return domain.Product{}, fmt.Errorf("check product %d: %w", productID, err)
	}
	if !exists {
		return domain.Product{}, domain.NewNotFoundError("product", productID)
	}
	return domain.Product{}, domain.ErrInsufficientStock
}

func (t *pgTx) CounterpartyName(ctx context.Context, kind domain.PartyKind, id int64) (string, error) {
	table, err := partyTable(kind)
	if err != nil {
		return "", err
	}
	var name string
	if err := t.tx.QueryRow(ctx, `SELECT name FROM `+table+` WHERE id = $1`, id).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.NewNotFoundError(string(kind), id)
		}
		return "", fmt.Errorf("get %s %d: %w", kind, id, err)
	}
	return name, nil
}

func (t *pgTx) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	tables, err := tablesFor(txn.Kind)
	if err != nil {
		return err
	}

	if err := t.tx.QueryRow(ctx, `
		INSERT INTO `+tables.header+` (`+tables.counterparty+`, occurred_at, total)
		VALUES ($1, $2, $3)
		RETURNING id
	`, txn.CounterpartyID, txn.OccurredAt, txn.Total).Scan(&txn.ID); err != nil {
		return fmt.Errorf("insert %s: %w", tables.entity, err)
	}

	batch := &pgx.Batch{}
	for i, line := range txn.Lines {
		batch.Queue(`
			INSERT INTO `+tables.lines+` (`+tables.lineFK+`, line_no, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)
		`, txn.ID, i+1, line.ProductID, line.Quantity, line.UnitPrice)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert %s lines: %w", tables.entity, err)
	}
	return nil
}

func (t *pgTx) InsertAlert(ctx context.Context, alert *domain.Alert) error {
	if err := t.tx.QueryRow(ctx, `
		INSERT INTO alerts (product_id, message, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, alert.ProductID, alert.Message, alert.CreatedAt).Scan(&alert.ID); err != nil {
		return fmt.Errorf("insert alert for product %d: %w", alert.ProductID, err)
	}
	return nil
}

// ReturnableQuantity locks the sale row so concurrent returns against the
// same sale are checked one after another.
func (t *pgTx) ReturnableQuantity(ctx context.Context, saleID, productID int64) (int, error) {
	var id int64
	if err := t.tx.QueryRow(ctx, "SELECT id FROM sales WHERE id = $1 FOR UPDATE", saleID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.NewNotFoundError("sale", saleID)
		}
		return 0, fmt.Errorf("lock sale %d: %w", saleID, err)
	}

	var returnable int
	if err := t.tx.QueryRow(ctx, `
		SELECT
			COALESCE((SELECT SUM(quantity) FROM sale_lines WHERE sale_id = $1 AND product_id = $2), 0)::int
			- COALESCE((SELECT SUM(quantity) FROM returns WHERE sale_id = $1 AND product_id = $2), 0)::int
	`, saleID, productID).Scan(&returnable); err != nil {
		return 0, fmt.Errorf("returnable quantity for sale %d: %w", saleID, err)
	}
	return max(returnable, 0), nil
}

func (t *pgTx) InsertReturn(ctx context.Context, ret *domain.Return) error {
	if err := t.tx.QueryRow(ctx, `
		INSERT INTO returns (sale_id, product_id, quantity, reason, returned_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, ret.SaleID, ret.ProductID, ret.Quantity, ret.Reason, ret.ReturnedAt).Scan(&ret.ID); err != nil {
		return fmt.Errorf("insert return for sale %d: %w", ret.SaleID, err)
	}
	return nil
}
