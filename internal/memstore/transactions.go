package memstore

import (
	"context"
	"slices"
	"sort"
	"time"

	"stockflow/internal/domain"
)

// productName prefers the current catalog name and falls back to the name
// captured when the row was written.
func productName(st *state, id int64, fallback string) string {
	if p, ok := st.products[id]; ok {
		return p.Name
	}
	return fallback
}

func counterpartyName(st *state, kind domain.TransactionKind, id int64, fallback string) string {
	if p, ok := st.parties[kind.Counterparty()][id]; ok {
		return p.Name
	}
	return fallback
}

func (s *Store) GetTransaction(ctx context.Context, kind domain.TransactionKind, id int64) (*domain.Transaction, error) {
	var out domain.Transaction
	err := s.locked(ctx, func(st *state) error {
		txn, ok := st.transactions[kind][id]
		if !ok {
			return domain.NewNotFoundError(txnEntity(kind), id)
		}
		out = txn
		out.CounterpartyName = counterpartyName(st, kind, txn.CounterpartyID, txn.CounterpartyName)
		out.Lines = slices.Clone(txn.Lines)
		for i := range out.Lines {
			out.Lines[i].ProductName = productName(st, out.Lines[i].ProductID, out.Lines[i].ProductName)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListTransactions(ctx context.Context, kind domain.TransactionKind, window domain.DateRange) ([]domain.Transaction, error) {
	out := []domain.Transaction{}
	err := s.locked(ctx, func(st *state) error {
		for _, txn := range st.transactions[kind] {
			if !window.Contains(txn.OccurredAt) {
				continue
			}
			txn.CounterpartyName = counterpartyName(st, kind, txn.CounterpartyID, txn.CounterpartyName)
			txn.Lines = nil
			out = append(out, txn)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].OccurredAt, out[i].ID, out[j].OccurredAt, out[j].ID)
	})
	return out, nil
}

func newerFirst(at1 time.Time, id1 int64, at2 time.Time, id2 int64) bool {
	if !at1.Equal(at2) {
		return at1.After(at2)
	}
	return id1 > id2
}

func (s *Store) GetReturn(ctx context.Context, id int64) (*domain.Return, error) {
	var out domain.Return
	err := s.locked(ctx, func(st *state) error {
		r, ok := st.returns[id]
		if !ok {
			return domain.NewNotFoundError("return", id)
		}
		r.ProductName = productName(st, r.ProductID, r.ProductName)
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListReturnsBySale(ctx context.Context, saleID int64) ([]domain.Return, error) {
	out := []domain.Return{}
	err := s.locked(ctx, func(st *state) error {
		for _, r := range st.returns {
			if r.SaleID != saleID {
				continue
			}
			r.ProductName = productName(st, r.ProductID, r.ProductName)
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].ReturnedAt, out[i].ID, out[j].ReturnedAt, out[j].ID)
	})
	return out, nil
}

func (s *Store) ListAlerts(ctx context.Context, window domain.DateRange) ([]domain.Alert, error) {
	return s.listAlerts(ctx, func(a domain.Alert) bool { return window.Contains(a.CreatedAt) })
}

func (s *Store) ListAlertsByProduct(ctx context.Context, productID int64) ([]domain.Alert, error) {
	return s.listAlerts(ctx, func(a domain.Alert) bool { return a.ProductID == productID })
}

func (s *Store) listAlerts(ctx context.Context, keep func(domain.Alert) bool) ([]domain.Alert, error) {
	out := []domain.Alert{}
	err := s.locked(ctx, func(st *state) error {
		for _, a := range st.alerts {
			if !keep(a) {
				continue
			}
			a.ProductName = productName(st, a.ProductID, a.ProductName)
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	return out, nil
}
