package memstore

import (
	"context"
	"slices"

	"stockflow/internal/domain"
)

type memTx struct {
	st *state
}

func (t *memTx) Product(ctx context.Context, id int64) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	p, ok := t.st.products[id]
	if !ok {
		return domain.Product{}, domain.NewNotFoundError("product", id)
	}
	return p, nil
}

func (t *memTx) AdjustStock(ctx context.Context, productID int64, delta int) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	p, ok := t.st.products[productID]
	if !ok {
		return domain.Product{}, domain.NewNotFoundError("product", productID)
	}
	if p.Stock+delta < 0 {
		return domain.Product{}, domain.ErrInsufficientStock
	}
	p.Stock += delta
	t.st.products[productID] = p
	return p, nil
}

func (t *memTx) CounterpartyName(ctx context.Context, kind domain.PartyKind, id int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, ok := t.st.parties[kind][id]
	if !ok {
		return "", domain.NewNotFoundError(partyEntity(kind), id)
	}
	return p.Name, nil
}

func (t *memTx) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn.ID = t.st.next(txnEntity(txn.Kind))
	stored := *txn
	stored.Lines = slices.Clone(txn.Lines)
	t.st.transactions[txn.Kind][txn.ID] = stored
	return nil
}

func (t *memTx) InsertAlert(ctx context.Context, alert *domain.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	alert.ID = t.st.next("alert")
	t.st.alerts[alert.ID] = *alert
	return nil
}

func (t *memTx) ReturnableQuantity(ctx context.Context, saleID, productID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sale, ok := t.st.transactions[domain.KindSale][saleID]
	if !ok {
		return 0, domain.NewNotFoundError("sale", saleID)
	}
	sold := 0
	for _, line := range sale.Lines {
		if line.ProductID == productID {
			sold += line.Quantity
		}
	}
	for _, r := range t.st.returns {
		if r.SaleID == saleID && r.ProductID == productID {
			sold -= r.Quantity
		}
	}
	return max(sold, 0), nil
}

func (t *memTx) InsertReturn(ctx context.Context, ret *domain.Return) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ret.ID = t.st.next("return")
	t.st.returns[ret.ID] = *ret
	return nil
}
