package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"stockflow/internal/domain"
)

var partyRoutes = map[string]domain.PartyKind{
	"/customers": domain.PartyCustomer,
	"/suppliers": domain.PartySupplier,
}

type partyRequest struct {
	ID       *int64  `json:"id"`
	Name     string  `json:"name"`
	Document string  `json:"document"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

func (req partyRequest) party() domain.Party {
	return domain.Party{
		Name:     req.Name,
		Document: req.Document,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
	}
}

func (h *Handler) ListParties(kind domain.PartyKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.svc.ListParties(r.Context(), kind)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
	}
}

func (h *Handler) GetParty(kind domain.PartyKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		party, err := h.svc.GetParty(r.Context(), kind, id)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, party)
	}
}

func (h *Handler) GetPartyByDocument(kind domain.PartyKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		party, err := h.svc.GetPartyByDocument(r.Context(), kind, chi.URLParam(r, "document"))
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, party)
	}
}

func (h *Handler) CreateParty(kind domain.PartyKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req partyRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		created, err := h.svc.CreateParty(r.Context(), kind, req.party())
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func (h *Handler) UpdateParty(kind domain.PartyKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		var req partyRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.ID != nil && *req.ID != id {
			writeError(w, http.StatusBadRequest, "id in body does not match URL")
			return
		}
		p := req.party()
		p.ID = id
		updated, err := h.svc.UpdateParty(r.Context(), kind, p)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func (h *Handler) DeleteParty(kind domain.PartyKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.svc.DeleteParty(r.Context(), kind, id); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
