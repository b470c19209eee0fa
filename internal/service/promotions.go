package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockflow/internal/domain"
)

var hundred = decimal.NewFromInt(100)

func (s *Service) ListPromotions(ctx context.Context) ([]domain.Promotion, error) {
	return s.store.ListPromotions(ctx)
}

// ActivePromotions lists promotions running at at. A zero at means now.
func (s *Service) ActivePromotions(ctx context.Context, at time.Time) ([]domain.Promotion, error) {
	if at.IsZero() {
		at = s.now()
	}
	return s.store.ListActivePromotions(ctx, at)
}

func (s *Service) PromotionsByProduct(ctx context.Context, productID int64) ([]domain.Promotion, error) {
	if _, err := s.store.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.store.ListPromotionsByProduct(ctx, productID)
}

func (s *Service) GetPromotion(ctx context.Context, id int64) (*domain.Promotion, error) {
	return s.store.GetPromotion(ctx, id)
}

func (s *Service) CreatePromotion(ctx context.Context, p domain.Promotion) (domain.Promotion, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := s.validatePromotion(ctx, p); err != nil {
		return domain.Promotion{}, err
	}
	return s.store.CreatePromotion(ctx, p)
}

func (s *Service) UpdatePromotion(ctx context.Context, p domain.Promotion) (domain.Promotion, error) {
	if p.ID <= 0 {
		return domain.Promotion{}, domain.NewValidationError("id", "is required")
	}
	p.Name = strings.TrimSpace(p.Name)
	if err := s.validatePromotion(ctx, p); err != nil {
		return domain.Promotion{}, err
	}
	return s.store.UpdatePromotion(ctx, p)
}

func (s *Service) DeletePromotion(ctx context.Context, id int64) error {
	return s.store.DeletePromotion(ctx, id)
}

func (s *Service) validatePromotion(ctx context.Context, p domain.Promotion) error {
	switch {
	case p.Name == "":
		return domain.NewValidationError("name", "is required")
	case !p.Discount.IsPositive() || p.Discount.GreaterThan(hundred):
		return domain.NewValidationError("discount", "must be greater than 0 and at most 100")
	case p.StartsAt.IsZero() || p.EndsAt.IsZero():
		return domain.NewValidationError("starts_at", "start and end dates are required")
	case p.EndsAt.Before(p.StartsAt):
		return domain.NewValidationError("ends_at", "must not be before starts_at")
	}
	if p.ProductID != nil {
		if _, err := s.store.GetProduct(ctx, *p.ProductID); err != nil {
			return err
		}
	}
	return nil
}
