package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"stockflow/internal/domain"
)

type Service struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func New(store Store, publisher Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// publish runs after commit. A failure is logged, it never undoes the write.
func (s *Service) publish(ctx context.Context, events ...Event) {
	if len(events) == 0 {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, events...); err != nil {
		s.logger.Warn("publish events failed", "count", len(events), "first", events[0].Type, "err", err)
	}
}

// classify turns infrastructure failures from a unit of work into
// PersistenceErrors and leaves domain errors untouched.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInsufficientStock):
		return domain.NewValidationError("stock", err.Error())
	case domain.IsValidationError(err), domain.IsNotFoundError(err),
		domain.IsConflictError(err), domain.IsPersistenceError(err):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return domain.NewPersistenceError(op, err)
	}
}

func normalizeNullable(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func validateWindow(window domain.DateRange) error {
	if window.From != nil && window.To != nil && window.From.After(*window.To) {
		return domain.NewValidationError("desde", "must not be after hasta")
	}
	return nil
}
