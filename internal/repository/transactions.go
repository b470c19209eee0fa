package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"stockflow/internal/domain"
)

func (r *Repository) GetTransaction(ctx context.Context, kind domain.TransactionKind, id int64) (*domain.Transaction, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}

	txn := domain.Transaction{Kind: kind}
	err = r.pool.QueryRow(ctx, `
		SELECT h.id, h.`+tables.counterparty+`, p.name, h.occurred_at, h.total
		FROM `+tables.header+` h
		JOIN `+tables.parties+` p ON p.id = h.`+tables.counterparty+`
		WHERE h.id = $1
	`, id).Scan(&txn.ID, &txn.CounterpartyID, &txn.CounterpartyName, &txn.OccurredAt, &txn.Total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError(tables.entity, id)
		}
		return nil, fmt.Errorf("get %s %d: %w", tables.entity, id, err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT l.product_id, p.name, l.quantity, l.unit_price
		FROM `+tables.lines+` l
		JOIN products p ON p.id = l.product_id
		WHERE l.`+tables.lineFK+` = $1
		ORDER BY l.line_no ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get %s %d lines: %w", tables.entity, id, err)
	}
	defer rows.Close()

	txn.Lines = []domain.LineItem{}
	for rows.Next() {
		var line domain.LineItem
		if err := rows.Scan(&line.ProductID, &line.ProductName, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan %s line: %w", tables.entity, err)
		}
		txn.Lines = append(txn.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s lines: %w", tables.entity, err)
	}
	return &txn, nil
}

func (r *Repository) ListTransactions(ctx context.Context, kind domain.TransactionKind, window domain.DateRange) ([]domain.Transaction, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT h.id, h.`+tables.counterparty+`, p.name, h.occurred_at, h.total
		FROM `+tables.header+` h
		JOIN `+tables.parties+` p ON p.id = h.`+tables.counterparty+`
		WHERE ($1::timestamptz IS NULL OR h.occurred_at >= $1)
			AND ($2::timestamptz IS NULL OR h.occurred_at <= $2)
		ORDER BY h.occurred_at DESC, h.id DESC
	`, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", tables.header, err)
	}
	defer rows.Close()

	list := []domain.Transaction{}
	for rows.Next() {
		txn := domain.Transaction{Kind: kind}
		if err := rows.Scan(&txn.ID, &txn.CounterpartyID, &txn.CounterpartyName, &txn.OccurredAt, &txn.Total); err != nil {
			return nil, fmt.Errorf("scan %s: %w", tables.entity, err)
		}
		list = append(list, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", tables.header, err)
	}
	return list, nil
}

const returnSelect = `
	SELECT r.id, r.sale_id, r.product_id, p.name, r.quantity, r.reason, r.returned_at
	FROM returns r
	JOIN products p ON p.id = r.product_id
`

func scanReturnRow(row pgx.Row) (domain.Return, error) {
	var ret domain.Return
	err := row.Scan(&ret.ID, &ret.SaleID, &ret.ProductID, &ret.ProductName, &ret.Quantity, &ret.Reason, &ret.ReturnedAt)
	return ret, err
}

func (r *Repository) GetReturn(ctx context.Context, id int64) (*domain.Return, error) {
	ret, err := scanReturnRow(r.pool.QueryRow(ctx, returnSelect+` WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("return", id)
		}
		return nil, fmt.Errorf("get return %d: %w", id, err)
	}
	return &ret, nil
}

func (r *Repository) ListReturnsBySale(ctx context.Context, saleID int64) ([]domain.Return, error) {
	rows, err := r.pool.Query(ctx, returnSelect+` WHERE r.sale_id = $1 ORDER BY r.returned_at DESC, r.id DESC`, saleID)
	if err != nil {
		return nil, fmt.Errorf("list returns of sale %d: %w", saleID, err)
	}
	defer rows.Close()

	list := []domain.Return{}
	for rows.Next() {
		ret, err := scanReturnRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan return: %w", err)
		}
		list = append(list, ret)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate returns: %w", err)
	}
	return list, nil
}

func (r *Repository) ListAlerts(ctx context.Context, window domain.DateRange) ([]domain.Alert, error) {
	return r.queryAlerts(ctx, `
		WHERE ($1::timestamptz IS NULL OR a.created_at >= $1)
			AND ($2::timestamptz IS NULL OR a.created_at <= $2)
	`, window.From, window.To)
}

func (r *Repository) ListAlertsByProduct(ctx context.Context, productID int64) ([]domain.Alert, error) {
	return r.queryAlerts(ctx, `WHERE a.product_id = $1`, productID)
}

func (r *Repository) queryAlerts(ctx context.Context, where string, args ...any) ([]domain.Alert, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.product_id, p.name, a.message, a.created_at
		FROM alerts a
		JOIN products p ON p.id = a.product_id
	`+where+`
		ORDER BY a.created_at DESC, a.id DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	list := []domain.Alert{}
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(&a.ID, &a.ProductID, &a.ProductName, &a.Message, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return list, nil
}
