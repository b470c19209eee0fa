package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"stockflow/internal/domain"
)

const promotionSelect = `
	SELECT pr.id, pr.name, pr.discount, pr.starts_at, pr.ends_at, pr.product_id, p.name
	FROM promotions pr
	LEFT JOIN products p ON p.id = pr.product_id
`

func scanPromotionRow(row pgx.Row) (domain.Promotion, error) {
	var (
		promo       domain.Promotion
		productID   sql.NullInt64
		productName sql.NullString
	)
	if err := row.Scan(
		&promo.ID,
		&promo.Name,
		&promo.Discount,
		&promo.StartsAt,
		&promo.EndsAt,
		&productID,
		&productName,
	); err != nil {
		return domain.Promotion{}, err
	}
	if productID.Valid {
		value := productID.Int64
		promo.ProductID = &value
	}
	promo.ProductName = nullableString(productName)
	return promo, nil
}

func (r *Repository) ListPromotions(ctx context.Context) ([]domain.Promotion, error) {
	return r.queryPromotions(ctx, "")
}

func (r *Repository) ListActivePromotions(ctx context.Context, at time.Time) ([]domain.Promotion, error) {
	return r.queryPromotions(ctx, "WHERE pr.starts_at <= $1 AND pr.ends_at >= $1", at)
}

func (r *Repository) ListPromotionsByProduct(ctx context.Context, productID int64) ([]domain.Promotion, error) {
	return r.queryPromotions(ctx, "WHERE pr.product_id = $1", productID)
}

func (r *Repository) queryPromotions(ctx context.Context, where string, args ...any) ([]domain.Promotion, error) {
	rows, err := r.pool.Query(ctx, promotionSelect+where+` ORDER BY pr.starts_at DESC, pr.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()

	list := []domain.Promotion{}
	for rows.Next() {
		promo, err := scanPromotionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		list = append(list, promo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotions: %w", err)
	}
	return list, nil
}

func (r *Repository) GetPromotion(ctx context.Context, id int64) (*domain.Promotion, error) {
	promo, err := scanPromotionRow(r.pool.QueryRow(ctx, promotionSelect+` WHERE pr.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("promotion", id)
		}
		return nil, fmt.Errorf("get promotion %d: %w", id, err)
	}
	return &promo, nil
}

func (r *Repository) CreatePromotion(ctx context.Context, p domain.Promotion) (domain.Promotion, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO promotions (name, discount, starts_at, ends_at, product_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, p.Name, p.Discount, p.StartsAt, p.EndsAt, p.ProductID).Scan(&id)
	if err != nil {
		return domain.Promotion{}, promotionWriteError(err, p)
	}
	created, err := r.GetPromotion(ctx, id)
	if err != nil {
		return domain.Promotion{}, err
	}
	return *created, nil
}

func (r *Repository) UpdatePromotion(ctx context.Context, p domain.Promotion) (domain.Promotion, error) {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE promotions
		SET
			name = $2,
			discount = $3,
			starts_at = $4,
			ends_at = $5,
			product_id = $6
		WHERE id = $1
	`, p.ID, p.Name, p.Discount, p.StartsAt, p.EndsAt, p.ProductID)
	if err != nil {
		return domain.Promotion{}, promotionWriteError(err, p)
	}
	if cmd.RowsAffected() == 0 {
		return domain.Promotion{}, domain.NewNotFoundError("promotion", p.ID)
	}
	updated, err := r.GetPromotion(ctx, p.ID)
	if err != nil {
		return domain.Promotion{}, err
	}
	return *updated, nil
}

func promotionWriteError(err error, p domain.Promotion) error {
	if pgErrorCode(err) == pgForeignKeyViolation && p.ProductID != nil {
		return domain.NewNotFoundError("product", *p.ProductID)
	}
	return fmt.Errorf("write promotion %q: %w", p.Name, err)
}

func (r *Repository) DeletePromotion(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM promotions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete promotion %d: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NewNotFoundError("promotion", id)
	}
	return nil
}
