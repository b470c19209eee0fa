package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"stockflow/internal/domain"
)

type RecordInput struct {
	Kind            domain.TransactionKind
	CounterpartyID  int64
	OccurredAt      *time.Time
	Items           []ItemInput
	UseCatalogPrice bool
}

type ReturnInput struct {
	SaleID     int64
	ProductID  int64
	Quantity   int
	Reason     string
	ReturnedAt *time.Time
}

// RecordTransaction persists a sale or purchase with its lines, moves stock
// and raises low stock alerts, all in one unit of work.
func (s *Service) RecordTransaction(ctx context.Context, in RecordInput) (*domain.Transaction, error) {
	if !in.Kind.Valid() {
		return nil, domain.NewValidationError("kind", "must be sale or purchase")
	}
	field := string(in.Kind.Counterparty()) + "_id"
	if in.CounterpartyID <= 0 {
		return nil, domain.NewValidationError(field, "is required")
	}
	if err := ValidateItemShape(in.Items); err != nil {
		return nil, err
	}

	now := s.now()
	occurredAt := now
	if in.OccurredAt != nil {
		occurredAt = in.OccurredAt.UTC()
	}

	var (
		txn    domain.Transaction
		alerts []domain.Alert
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		name, err := tx.CounterpartyName(ctx, in.Kind.Counterparty(), in.CounterpartyID)
		if err != nil {
			return err
		}
		products, err := ValidateItems(ctx, tx, in.Items)
		if err != nil {
			return err
		}

		lines := make([]domain.LineItem, 0, len(in.Items))
		for _, item := range in.Items {
			price, err := ResolvePrice(ctx, tx, item, in.UseCatalogPrice)
			if err != nil {
				return err
			}
			lines = append(lines, domain.LineItem{
				ProductID:   item.ProductID,
				ProductName: products[item.ProductID].Name,
				Quantity:    item.Quantity,
				UnitPrice:   price,
			})
		}

		txn = domain.Transaction{
			Kind:             in.Kind,
			CounterpartyID:   in.CounterpartyID,
			CounterpartyName: name,
			OccurredAt:       occurredAt,
			Total:            AggregateTotal(lines),
			Lines:            lines,
		}
		if err := tx.InsertTransaction(ctx, &txn); err != nil {
			return err
		}

		alerts, err = applyStock(ctx, tx, in.Kind.StockSign(), lines, now)
		return err
	})
	if err != nil {
		return nil, classify("record "+string(in.Kind), err)
	}

	s.logger.Info("transaction recorded",
		"kind", txn.Kind, "id", txn.ID, "lines", len(txn.Lines), "total", txn.Total.String(), "alerts", len(alerts))

	eventType := EventPurchaseRecorded
	if txn.Kind == domain.KindSale {
		eventType = EventSaleRecorded
	}
	events := []Event{{
		Type:       eventType,
		Key:        strconv.FormatInt(txn.ID, 10),
		OccurredAt: now,
		Payload:    txn,
	}}
	s.publish(ctx, append(events, alertEvents(alerts)...)...)

	return &txn, nil
}

// applyStock moves stock for every line and records one alert per distinct
// product whose stock went down and ended at or below its threshold.
// Stock rows are touched in ascending product id order.
func applyStock(ctx context.Context, tx Tx, sign int, lines []domain.LineItem, now time.Time) ([]domain.Alert, error) {
	type movement struct {
		delta   int
		product domain.Product
	}
	moves := make(map[int64]*movement, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		m, ok := moves[line.ProductID]
		if !ok {
			m = &movement{}
			moves[line.ProductID] = m
			ids = append(ids, line.ProductID)
		}
		m.delta += sign * line.Quantity
		if m.delta > domain.MaxQuantity || m.delta < -domain.MaxQuantity {
			return nil, domain.NewValidationError("items",
				fmt.Sprintf("quantity for product %d must not exceed %d", line.ProductID, domain.MaxQuantity))
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		m := moves[id]
		updated, err := tx.AdjustStock(ctx, id, m.delta)
		if err != nil {
			return nil, annotateStock(err, id)
		}
		m.product = updated
	}

	var alerts []domain.Alert
	for _, id := range ids {
		m := moves[id]
		if m.delta >= 0 || !m.product.BelowThreshold() {
			continue
		}
		alert := newLowStockAlert(m.product, now)
		if err := tx.InsertAlert(ctx, &alert); err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

func annotateStock(err error, productID int64) error {
	if errors.Is(err, domain.ErrInsufficientStock) {
		return fmt.Errorf("product %d: %w", productID, err)
	}
	return err
}

func newLowStockAlert(p domain.Product, now time.Time) domain.Alert {
	return domain.Alert{
		ProductID:   p.ID,
		ProductName: p.Name,
		Message: fmt.Sprintf("Low stock for %s: %d units left (threshold %d)",
			p.Name, p.Stock, p.ReorderThreshold),
		CreatedAt: now,
	}
}

func alertEvents(alerts []domain.Alert) []Event {
	events := make([]Event, 0, len(alerts))
	for _, alert := range alerts {
		events = append(events, Event{
			Type:       EventLowStockAlert,
			Key:        strconv.FormatInt(alert.ProductID, 10),
			OccurredAt: alert.CreatedAt,
			Payload:    alert,
		})
	}
	return events
}

// RecordReturn puts returned units of a sold product back into stock.
func (s *Service) RecordReturn(ctx context.Context, in ReturnInput) (*domain.Return, error) {
	if in.SaleID <= 0 {
		return nil, domain.NewValidationError("sale_id", "is required")
	}
	if in.ProductID <= 0 {
		return nil, domain.NewValidationError("product_id", "is required")
	}
	if in.Quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "must be greater than 0")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, domain.NewValidationError("reason", "is required")
	}

	returnedAt := s.now()
	if in.ReturnedAt != nil {
		returnedAt = in.ReturnedAt.UTC()
	}

	var ret domain.Return
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		returnable, err := tx.ReturnableQuantity(ctx, in.SaleID, in.ProductID)
		if err != nil {
			return err
		}
		if _, err := tx.Product(ctx, in.ProductID); err != nil {
			return err
		}
		if returnable == 0 {
			return domain.NewValidationError("product_id",
				fmt.Sprintf("product %d has nothing left to return on sale %d", in.ProductID, in.SaleID))
		}
		if in.Quantity > returnable {
			return domain.NewValidationError("quantity",
				fmt.Sprintf("exceeds returnable quantity %d", returnable))
		}

		product, err := tx.AdjustStock(ctx, in.ProductID, in.Quantity)
		if err != nil {
			return err
		}
		ret = domain.Return{
			SaleID:      in.SaleID,
			ProductID:   in.ProductID,
			ProductName: product.Name,
			Quantity:    in.Quantity,
			Reason:      reason,
			ReturnedAt:  returnedAt,
		}
		return tx.InsertReturn(ctx, &ret)
	})
	if err != nil {
		return nil, classify("record return", err)
	}

	s.logger.Info("return recorded", "id", ret.ID, "sale_id", ret.SaleID, "product_id", ret.ProductID, "quantity", ret.Quantity)
	s.publish(ctx, Event{
		Type:       EventReturnRecorded,
		Key:        strconv.FormatInt(ret.SaleID, 10),
		OccurredAt: returnedAt,
		Payload:    ret,
	})
	return &ret, nil
}

// AdjustProductStock applies a manual stock correction. A negative delta that
// leaves the product at or below its threshold raises an alert.
func (s *Service) AdjustProductStock(ctx context.Context, productID int64, delta int) (*domain.Product, error) {
	if productID <= 0 {
		return nil, domain.NewValidationError("id", "is required")
	}
	if delta == 0 {
		return nil, domain.NewValidationError("delta", "must not be 0")
	}
	if delta > domain.MaxQuantity || delta < -domain.MaxQuantity {
		return nil, domain.NewValidationError("delta", fmt.Sprintf("must not exceed %d in magnitude", domain.MaxQuantity))
	}

	now := s.now()
	var (
		product domain.Product
		alerts  []domain.Alert
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		product, err = tx.AdjustStock(ctx, productID, delta)
		if err != nil {
			return annotateStock(err, productID)
		}
		if delta < 0 && product.BelowThreshold() {
			alert := newLowStockAlert(product, now)
			if err := tx.InsertAlert(ctx, &alert); err != nil {
				return err
			}
			alerts = append(alerts, alert)
		}
		return nil
	})
	if err != nil {
		return nil, classify("adjust stock", err)
	}
	s.publish(ctx, alertEvents(alerts)...)
	return &product, nil
}
