package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"stockflow/internal/domain"
	"stockflow/internal/service"
)

func (r *Repository) ListProducts(ctx context.Context, filter service.ProductFilter) ([]domain.Product, error) {
	limit, offset := filter.Page()
	search := strings.TrimSpace(filter.Search)

	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
			AND (NOT $2 OR (active AND stock <= reorder_threshold))
		ORDER BY name ASC, id ASC
		LIMIT $3 OFFSET $4
	`, search, filter.LowStock, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, min(limit, 64))
	for rows.Next() {
		p, err := scanProductRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProductRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("product", id)
		}
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return &product, nil
}

func (r *Repository) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO products (name, description, price, stock, reorder_threshold, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+productColumns,
		p.Name, p.Description, p.Price, p.Stock, p.ReorderThreshold, p.Active,
	)
	product, err := scanProductRow(row)
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

func (r *Repository) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE products
		SET
			name = $2,
			description = $3,
			price = $4,
			reorder_threshold = $5,
			active = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.Name, p.Description, p.Price, p.ReorderThreshold, p.Active,
	)
	product, err := scanProductRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.NewNotFoundError("product", p.ID)
		}
		return domain.Product{}, fmt.Errorf("update product %d: %w", p.ID, err)
	}
	return product, nil
}

func (r *Repository) DeleteOrDeactivateProduct(ctx context.Context, id int64) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin delete product tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked int64
	if err := tx.QueryRow(ctx, "SELECT id FROM products WHERE id = $1 FOR UPDATE", id).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.NewNotFoundError("product", id)
		}
		return false, fmt.Errorf("lock product %d: %w", id, err)
	}

	var referenced bool
	if err := tx.QueryRow(ctx, `
		SELECT
			EXISTS(SELECT 1 FROM sale_lines WHERE product_id = $1)
			OR EXISTS(SELECT 1 FROM purchase_lines WHERE product_id = $1)
			OR EXISTS(SELECT 1 FROM returns WHERE product_id = $1)
			OR EXISTS(SELECT 1 FROM alerts WHERE product_id = $1)
			OR EXISTS(SELECT 1 FROM promotions WHERE product_id = $1)
	`, id).Scan(&referenced); err != nil {
		return false, fmt.Errorf("check references of product %d: %w", id, err)
	}

	if referenced {
		if _, err := tx.Exec(ctx, "UPDATE products SET active = FALSE, updated_at = NOW() WHERE id = $1", id); err != nil {
			return false, fmt.Errorf("deactivate product %d: %w", id, err)
		}
	} else {
		if _, err := tx.Exec(ctx, "DELETE FROM products WHERE id = $1", id); err != nil {
			return false, fmt.Errorf("delete product %d: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, domain.NewPersistenceError("delete product", err)
	}
	return !referenced, nil
}

func (r *Repository) UpsertProducts(ctx context.Context, rows []domain.ProductImportRow) (domain.ProductImportResult, error) {
	var result domain.ProductImportResult
	if len(rows) == 0 {
		return result, nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin import tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, line := range rows {
		name := strings.TrimSpace(line.Name)
		if name == "" {
			continue
		}

		var existingID int64
		err := tx.QueryRow(ctx,
			"SELECT id FROM products WHERE LOWER(name) = LOWER($1) ORDER BY id LIMIT 1 FOR UPDATE",
			name,
		).Scan(&existingID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return domain.ProductImportResult{}, fmt.Errorf("query existing product %q: %w", name, err)
		}

		if errors.Is(err, pgx.ErrNoRows) {
			if _, err := tx.Exec(ctx, `
				INSERT INTO products (name, description, price, stock, reorder_threshold, active)
				VALUES ($1, $2, $3, $4, $5, TRUE)
			`, name, line.Description, line.Price, line.Stock, line.ReorderThreshold); err != nil {
				return domain.ProductImportResult{}, fmt.Errorf("insert imported product %q: %w", name, err)
			}
			result.Created++
			continue
		}

		if _, err := tx.Exec(ctx, `
			UPDATE products
			SET
				description = $2,
				price = $3,
				reorder_threshold = $4,
				active = TRUE,
				updated_at = NOW()
			WHERE id = $1
		`, existingID, line.Description, line.Price, line.ReorderThreshold); err != nil {
			return domain.ProductImportResult{}, fmt.Errorf("update imported product %q: %w", name, err)
		}
		result.Updated++
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ProductImportResult{}, domain.NewPersistenceError("import products", err)
	}
	return result, nil
}
