package memstore

import (
	"context"
	"sort"
	"strings"

	"stockflow/internal/domain"
	"stockflow/internal/service"
)

func (s *Store) ListProducts(ctx context.Context, filter service.ProductFilter) ([]domain.Product, error) {
	out := []domain.Product{}
	err := s.locked(ctx, func(st *state) error {
		search := strings.ToLower(strings.TrimSpace(filter.Search))
		for _, p := range st.products {
			if search != "" &&
				!strings.Contains(strings.ToLower(p.Name), search) &&
				!strings.Contains(strings.ToLower(p.Description), search) {
				continue
			}
			if filter.LowStock && (!p.Active || !p.BelowThreshold()) {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	limit, offset := filter.Page()
	if offset >= len(out) {
		return []domain.Product{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var out domain.Product
	err := s.locked(ctx, func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return domain.NewNotFoundError("product", id)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	err := s.locked(ctx, func(st *state) error {
		now := s.now()
		p.ID = st.next("product")
		p.CreatedAt = now
		p.UpdatedAt = now
		st.products[p.ID] = p
		return nil
	})
	return p, err
}

func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	var out domain.Product
	err := s.locked(ctx, func(st *state) error {
		current, ok := st.products[p.ID]
		if !ok {
			return domain.NewNotFoundError("product", p.ID)
		}
		current.Name = p.Name
		current.Description = p.Description
		current.Price = p.Price
		current.ReorderThreshold = p.ReorderThreshold
		current.Active = p.Active
		current.UpdatedAt = s.now()
		st.products[p.ID] = current
		out = current
		return nil
	})
	return out, err
}

func (s *Store) DeleteOrDeactivateProduct(ctx context.Context, id int64) (bool, error) {
	deleted := false
	err := s.locked(ctx, func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return domain.NewNotFoundError("product", id)
		}
		if productReferenced(st, id) {
			p.Active = false
			p.UpdatedAt = s.now()
			st.products[id] = p
			return nil
		}
		delete(st.products, id)
		deleted = true
		return nil
	})
	return deleted, err
}

func productReferenced(st *state, id int64) bool {
	for _, byID := range st.transactions {
		for _, txn := range byID {
			for _, line := range txn.Lines {
				if line.ProductID == id {
					return true
				}
			}
		}
	}
	for _, r := range st.returns {
		if r.ProductID == id {
			return true
		}
	}
	for _, a := range st.alerts {
		if a.ProductID == id {
			return true
		}
	}
	for _, promo := range st.promotions {
		if promo.ProductID != nil && *promo.ProductID == id {
			return true
		}
	}
	return false
}

func (s *Store) UpsertProducts(ctx context.Context, rows []domain.ProductImportRow) (domain.ProductImportResult, error) {
	var result domain.ProductImportResult
	err := s.locked(ctx, func(st *state) error {
		byName := make(map[string]int64, len(st.products))
		for id, p := range st.products {
			byName[strings.ToLower(p.Name)] = id
		}
		now := s.now()
		for _, row := range rows {
			key := strings.ToLower(strings.TrimSpace(row.Name))
			if id, ok := byName[key]; ok {
				p := st.products[id]
				p.Description = row.Description
				p.Price = row.Price
				p.ReorderThreshold = row.ReorderThreshold
				p.Active = true
				p.UpdatedAt = now
				st.products[id] = p
				result.Updated++
				continue
			}
			p := domain.Product{
				ID:               st.next("product"),
				Name:             strings.TrimSpace(row.Name),
				Description:      row.Description,
				Price:            row.Price,
				Stock:            row.Stock,
				ReorderThreshold: row.ReorderThreshold,
				Active:           true,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			st.products[p.ID] = p
			byName[key] = p.ID
			result.Created++
		}
		return nil
	})
	return result, err
}
