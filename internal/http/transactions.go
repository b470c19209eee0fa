package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"stockflow/internal/domain"
	"stockflow/internal/service"
)

var transactionRoutes = map[string]domain.TransactionKind{
	"/sales":     domain.KindSale,
	"/purchases": domain.KindPurchase,
}

type lineItemRequest struct {
	ProductID int64            `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
}

type transactionRequest struct {
	OccurredAt      string            `json:"occurred_at"`
	UseCatalogPrice bool              `json:"use_catalog_price"`
	Items           []lineItemRequest `json:"items"`
}

type saleRequest struct {
	CustomerID int64 `json:"customer_id"`
	transactionRequest
}

type purchaseRequest struct {
	SupplierID int64 `json:"supplier_id"`
	transactionRequest
}

func decodeRecordInput(r *http.Request, kind domain.TransactionKind) (service.RecordInput, error) {
	var (
		body           transactionRequest
		counterpartyID int64
	)
	if kind == domain.KindSale {
		var req saleRequest
		if err := decodeJSON(r, &req); err != nil {
			return service.RecordInput{}, err
		}
		body, counterpartyID = req.transactionRequest, req.CustomerID
	} else {
		var req purchaseRequest
		if err := decodeJSON(r, &req); err != nil {
			return service.RecordInput{}, err
		}
		body, counterpartyID = req.transactionRequest, req.SupplierID
	}

	occurredAt, _, err := parseOptionalTime(body.OccurredAt)
	if err != nil {
		return service.RecordInput{}, domain.NewValidationError("occurred_at", "invalid time")
	}
	items := make([]service.ItemInput, 0, len(body.Items))
	for _, item := range body.Items {
		items = append(items, service.ItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     domain.PriceFromOptional(item.Price),
		})
	}
	return service.RecordInput{
		Kind:            kind,
		CounterpartyID:  counterpartyID,
		OccurredAt:      occurredAt,
		Items:           items,
		UseCatalogPrice: body.UseCatalogPrice,
	}, nil
}

func (h *Handler) RecordTransaction(kind domain.TransactionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := decodeRecordInput(r, kind)
		if err != nil {
			if domain.IsValidationError(err) {
				h.writeServiceError(w, r, err)
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.idempotent(w, r, string(kind),
			func(ctx context.Context, id int64) (any, error) {
				return h.svc.GetTransaction(ctx, kind, id)
			},
			func(ctx context.Context) (int64, any, error) {
				txn, err := h.svc.RecordTransaction(ctx, in)
				if err != nil {
					return 0, nil, err
				}
				return txn.ID, txn, nil
			},
		)
	}
}

func (h *Handler) GetTransaction(kind domain.TransactionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		txn, err := h.svc.GetTransaction(r.Context(), kind, id)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, txn)
	}
}

func (h *Handler) ListTransactions(kind domain.TransactionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window, err := parseWindow(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		items, err := h.svc.ListTransactions(r.Context(), kind, window)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
	}
}

type returnRequest struct {
	SaleID     int64  `json:"sale_id"`
	ProductID  int64  `json:"product_id"`
	Quantity   int    `json:"quantity"`
	Reason     string `json:"reason"`
	ReturnedAt string `json:"returned_at"`
}

func (h *Handler) RecordReturn(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	returnedAt, _, err := parseOptionalTime(req.ReturnedAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "returned_at: invalid time")
		return
	}
	in := service.ReturnInput{
		SaleID:     req.SaleID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		Reason:     req.Reason,
		ReturnedAt: returnedAt,
	}
	h.idempotent(w, r, "return",
		func(ctx context.Context, id int64) (any, error) {
			return h.svc.GetReturn(ctx, id)
		},
		func(ctx context.Context) (int64, any, error) {
			ret, err := h.svc.RecordReturn(ctx, in)
			if err != nil {
				return 0, nil, err
			}
			return ret.ID, ret, nil
		},
	)
}

func (h *Handler) GetReturn(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ret, err := h.svc.GetReturn(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (h *Handler) ListReturnsBySale(w http.ResponseWriter, r *http.Request) {
	saleID, err := parseID(chi.URLParam(r, "saleId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.svc.ListReturnsBySale(r.Context(), saleID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.svc.ListAlerts(r.Context(), window)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) ListAlertsByProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := parseID(chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.svc.ListAlertsByProduct(r.Context(), productID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}
