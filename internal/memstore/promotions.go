package memstore

import (
	"context"
	"sort"
	"time"

	"stockflow/internal/domain"
)

func (s *Store) ListPromotions(ctx context.Context) ([]domain.Promotion, error) {
	return s.listPromotions(ctx, func(domain.Promotion) bool { return true })
}

func (s *Store) ListActivePromotions(ctx context.Context, at time.Time) ([]domain.Promotion, error) {
	return s.listPromotions(ctx, func(p domain.Promotion) bool { return p.ActiveAt(at) })
}

func (s *Store) ListPromotionsByProduct(ctx context.Context, productID int64) ([]domain.Promotion, error) {
	return s.listPromotions(ctx, func(p domain.Promotion) bool {
		return p.ProductID != nil && *p.ProductID == productID
	})
}

func (s *Store) listPromotions(ctx context.Context, keep func(domain.Promotion) bool) ([]domain.Promotion, error) {
	out := []domain.Promotion{}
	err := s.locked(ctx, func(st *state) error {
		for _, p := range st.promotions {
			if keep(p) {
				out = append(out, withProductName(st, p))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].StartsAt, out[i].ID, out[j].StartsAt, out[j].ID)
	})
	return out, nil
}

func withProductName(st *state, p domain.Promotion) domain.Promotion {
	p.ProductName = nil
	if p.ProductID != nil {
		if product, ok := st.products[*p.ProductID]; ok {
			name := product.Name
			p.ProductName = &name
		}
	}
	return p
}

func (s *Store) GetPromotion(ctx context.Context, id int64) (*domain.Promotion, error) {
	var out domain.Promotion
	err := s.locked(ctx, func(st *state) error {
		p, ok := st.promotions[id]
		if !ok {
			return domain.NewNotFoundError("promotion", id)
		}
		out = withProductName(st, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) CreatePromotion(ctx context.Context, p domain.Promotion) (domain.Promotion, error) {
	err := s.locked(ctx, func(st *state) error {
		if p.ProductID != nil {
			if _, ok := st.products[*p.ProductID]; !ok {
				return domain.NewNotFoundError("product", *p.ProductID)
			}
		}
		p.ID = st.next("promotion")
		st.promotions[p.ID] = p
		p = withProductName(st, p)
		return nil
	})
	return p, err
}

func (s *Store) UpdatePromotion(ctx context.Context, p domain.Promotion) (domain.Promotion, error) {
	err := s.locked(ctx, func(st *state) error {
		if _, ok := st.promotions[p.ID]; !ok {
			return domain.NewNotFoundError("promotion", p.ID)
		}
		if p.ProductID != nil {
			if _, ok := st.products[*p.ProductID]; !ok {
				return domain.NewNotFoundError("product", *p.ProductID)
			}
		}
		st.promotions[p.ID] = p
		p = withProductName(st, p)
		return nil
	})
	return p, err
}

func (s *Store) DeletePromotion(ctx context.Context, id int64) error {
	return s.locked(ctx, func(st *state) error {
		if _, ok := st.promotions[id]; !ok {
			return domain.NewNotFoundError("promotion", id)
		}
		delete(st.promotions, id)
		return nil
	})
}
