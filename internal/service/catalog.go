package service

import (
	"context"
	"fmt"
	"strings"

	"stockflow/internal/domain"
)

func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.store.ListProducts(ctx, filter)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.store.GetProduct(ctx, id)
}

// LowStock lists active products at or below their reorder threshold.
func (s *Service) LowStock(ctx context.Context) ([]domain.Product, error) {
	return s.store.ListProducts(ctx, ProductFilter{LowStock: true})
}

func (s *Service) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}
	p.Active = true
	return s.store.CreateProduct(ctx, p)
}

// UpdateProduct replaces the editable fields of a product. Stock is only
// moved through transactions or AdjustProductStock, so p.Stock is ignored.
func (s *Service) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if p.ID <= 0 {
		return domain.Product{}, domain.NewValidationError("id", "is required")
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.Stock = 0
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}
	return s.store.UpdateProduct(ctx, p)
}

// DeleteProduct removes an unreferenced product and deactivates a referenced
// one. deleted reports which of the two happened.
func (s *Service) DeleteProduct(ctx context.Context, id int64) (deleted bool, err error) {
	deleted, err = s.store.DeleteOrDeactivateProduct(ctx, id)
	if err != nil {
		return false, err
	}
	s.logger.Info("product removed", "id", id, "deleted", deleted)
	return deleted, nil
}

func (s *Service) ImportProducts(ctx context.Context, rows []domain.ProductImportRow) (domain.ProductImportResult, error) {
	if len(rows) == 0 {
		return domain.ProductImportResult{}, domain.NewValidationError("file", "import file has no data rows")
	}
	for i := range rows {
		rows[i].Name = strings.TrimSpace(rows[i].Name)
		row := rows[i]
		if err := validateProduct(domain.Product{
			Name:             row.Name,
			Price:            row.Price,
			Stock:            row.Stock,
			ReorderThreshold: row.ReorderThreshold,
		}); err != nil {
			return domain.ProductImportResult{}, err
		}
	}
	result, err := s.store.UpsertProducts(ctx, rows)
	if err != nil {
		return domain.ProductImportResult{}, err
	}
	s.logger.Info("products imported", "created", result.Created, "updated", result.Updated)
	return result, nil
}

func validateProduct(p domain.Product) error {
	if p.Name == "" {
		return domain.NewValidationError("name", "is required")
	}
	if err := domain.CheckPrice(p.Price); err != nil {
		return domain.NewValidationError("price", err.Error())
	}
	switch {
	case p.Stock < 0:
		return domain.NewValidationError("stock", "cannot be negative")
	case p.Stock > domain.MaxQuantity:
		return domain.NewValidationError("stock", fmt.Sprintf("must not exceed %d", domain.MaxQuantity))
	case p.ReorderThreshold < 0:
		return domain.NewValidationError("reorder_threshold", "cannot be negative")
	case p.ReorderThreshold > domain.MaxQuantity:
		return domain.NewValidationError("reorder_threshold", fmt.Sprintf("must not exceed %d", domain.MaxQuantity))
	}
	return nil
}
