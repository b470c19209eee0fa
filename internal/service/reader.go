package service

import (
	"context"

	"stockflow/internal/domain"
)

// GetTransaction returns a sale or purchase with its lines and resolved names.
func (s *Service) GetTransaction(ctx context.Context, kind domain.TransactionKind, id int64) (*domain.Transaction, error) {
	if !kind.Valid() {
		return nil, domain.NewValidationError("kind", "must be sale or purchase")
	}
	return s.store.GetTransaction(ctx, kind, id)
}

// ListTransactions returns headers inside window, newest first, without lines.
func (s *Service) ListTransactions(ctx context.Context, kind domain.TransactionKind, window domain.DateRange) ([]domain.Transaction, error) {
	if !kind.Valid() {
		return nil, domain.NewValidationError("kind", "must be sale or purchase")
	}
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, kind, window)
}

func (s *Service) GetReturn(ctx context.Context, id int64) (*domain.Return, error) {
	return s.store.GetReturn(ctx, id)
}

// ListReturnsBySale fails with NotFoundError when the sale does not exist.
func (s *Service) ListReturnsBySale(ctx context.Context, saleID int64) ([]domain.Return, error) {
	if _, err := s.store.GetTransaction(ctx, domain.KindSale, saleID); err != nil {
		return nil, err
	}
	return s.store.ListReturnsBySale(ctx, saleID)
}

func (s *Service) ListAlerts(ctx context.Context, window domain.DateRange) ([]domain.Alert, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	return s.store.ListAlerts(ctx, window)
}

func (s *Service) ListAlertsByProduct(ctx context.Context, productID int64) ([]domain.Alert, error) {
	if _, err := s.store.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.store.ListAlertsByProduct(ctx, productID)
}
