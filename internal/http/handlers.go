package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stockflow/internal/domain"
	"stockflow/internal/service"
)

const idempotencyHeader = "Idempotency-Key"

// IdempotencyGuard remembers which Idempotency-Key created which resource.
type IdempotencyGuard interface {
	Reserve(ctx context.Context, scope, key string) (storedID string, reserved bool, err error)
	Complete(ctx context.Context, scope, key, id string) error
	Release(ctx context.Context, scope, key string) error
}

type Handler struct {
	svc    *service.Service
	guard  IdempotencyGuard
	logger *slog.Logger
}

// NewHandler wires the API. A nil guard disables Idempotency-Key handling.
func NewHandler(svc *service.Service, guard IdempotencyGuard, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, guard: guard, logger: logger}
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// writeServiceError maps the domain error taxonomy onto status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case domain.IsNotFoundError(err):
		writeError(w, http.StatusNotFound, err.Error())
	case domain.IsConflictError(err):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the body.
		w.WriteHeader(499)
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// idempotent runs create at most once per Idempotency-Key and scope. A
// replayed key answers 200 with the resource fetched by load.
func (h *Handler) idempotent(
	w http.ResponseWriter,
	r *http.Request,
	scope string,
	load func(ctx context.Context, id int64) (any, error),
	create func(ctx context.Context) (id int64, body any, err error),
) {
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if key == "" || h.guard == nil {
		_, body, err := create(r.Context())
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, body)
		return
	}

	storedID, reserved, err := h.guard.Reserve(r.Context(), scope, key)
	if err != nil {
		if domain.IsConflictError(err) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "idempotency reserve failed", "scope", scope, "err", err)
		writeError(w, http.StatusServiceUnavailable, "idempotency store unavailable")
		return
	}
	if !reserved {
		id, err := strconv.ParseInt(storedID, 10, 64)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "corrupt idempotency record", "scope", scope, "value", storedID)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		body, err := load(r.Context(), id)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		w.Header().Set("Idempotent-Replayed", "true")
		writeJSON(w, http.StatusOK, body)
		return
	}

	bg := context.WithoutCancel(r.Context())
	id, body, err := create(r.Context())
	if err != nil {
		if relErr := h.guard.Release(bg, scope, key); relErr != nil {
			h.logger.WarnContext(r.Context(), "idempotency release failed", "scope", scope, "err", relErr)
		}
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.guard.Complete(bg, scope, key, strconv.FormatInt(id, 10)); err != nil {
		h.logger.WarnContext(r.Context(), "idempotency complete failed", "scope", scope, "id", id, "err", err)
	}
	writeJSON(w, http.StatusCreated, body)
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func parseOptionalInt(raw string, defaultValue int) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %s", raw)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("value cannot be negative")
	}
	return parsed, nil
}

const dateLayout = "2006-01-02"

// parseOptionalTime accepts RFC3339 or a bare date. dateOnly reports the
// latter so callers can widen an upper bound to the end of that day.
func parseOptionalTime(raw string) (t *time.Time, dateOnly bool, err error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, false, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return &parsed, false, nil
	}
	if parsed, err := time.Parse(dateLayout, value); err == nil {
		return &parsed, true, nil
	}
	return nil, false, fmt.Errorf("invalid time")
}

// parseWindow reads desde/hasta. A date-only hasta covers that whole day.
func parseWindow(r *http.Request) (domain.DateRange, error) {
	query := r.URL.Query()
	from, _, err := parseOptionalTime(query.Get("desde"))
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("invalid desde date")
	}
	to, dateOnly, err := parseOptionalTime(query.Get("hasta"))
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("invalid hasta date")
	}
	if to != nil && dateOnly {
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	return domain.DateRange{From: from, To: to}, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
