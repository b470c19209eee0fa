package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"stockflow/internal/domain"
)

type promotionRequest struct {
	ID        *int64          `json:"id"`
	Name      string          `json:"name"`
	Discount  decimal.Decimal `json:"discount"`
	StartsAt  string          `json:"starts_at"`
	EndsAt    string          `json:"ends_at"`
	ProductID *int64          `json:"product_id"`
}

// promotion converts the request. A date-only ends_at runs to the end of
// that day.
func (req promotionRequest) promotion() (domain.Promotion, error) {
	p := domain.Promotion{Name: req.Name, Discount: req.Discount, ProductID: req.ProductID}
	start, _, err := parseOptionalTime(req.StartsAt)
	if err != nil {
		return p, domain.NewValidationError("starts_at", "invalid time")
	}
	end, dateOnly, err := parseOptionalTime(req.EndsAt)
	if err != nil {
		return p, domain.NewValidationError("ends_at", "invalid time")
	}
	if start != nil {
		p.StartsAt = start.UTC()
	}
	if end != nil {
		p.EndsAt = end.UTC()
		if dateOnly {
			p.EndsAt = p.EndsAt.Add(24*time.Hour - time.Nanosecond)
		}
	}
	return p, nil
}

func (h *Handler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListPromotions(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) ActivePromotions(w http.ResponseWriter, r *http.Request) {
	at, _, err := parseOptionalTime(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	var when time.Time
	if at != nil {
		when = *at
	}
	items, err := h.svc.ActivePromotions(r.Context(), when)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) PromotionsByProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := parseID(chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.svc.PromotionsByProduct(r.Context(), productID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) GetPromotion(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	promo, err := h.svc.GetPromotion(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promo)
}

func (h *Handler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	var req promotionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := req.promotion()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	created, err := h.svc.CreatePromotion(r.Context(), p)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdatePromotion(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req promotionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID != nil && *req.ID != id {
		writeError(w, http.StatusBadRequest, "id in body does not match URL")
		return
	}
	p, err := req.promotion()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	p.ID = id
	updated, err := h.svc.UpdatePromotion(r.Context(), p)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeletePromotion(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.DeletePromotion(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
