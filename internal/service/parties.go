package service

import (
	"context"
	"strings"

	"stockflow/internal/domain"
)

func (s *Service) ListParties(ctx context.Context, kind domain.PartyKind) ([]domain.Party, error) {
	return s.store.ListParties(ctx, kind)
}

func (s *Service) GetParty(ctx context.Context, kind domain.PartyKind, id int64) (*domain.Party, error) {
	return s.store.GetParty(ctx, kind, id)
}

func (s *Service) GetPartyByDocument(ctx context.Context, kind domain.PartyKind, document string) (*domain.Party, error) {
	document = strings.TrimSpace(document)
	if document == "" {
		return nil, domain.NewValidationError("document", "is required")
	}
	return s.store.GetPartyByDocument(ctx, kind, document)
}

// CreateParty fails with a ConflictError when the document is already taken.
func (s *Service) CreateParty(ctx context.Context, kind domain.PartyKind, p domain.Party) (domain.Party, error) {
	p = normalizeParty(p)
	if err := validateParty(p); err != nil {
		return domain.Party{}, err
	}
	return s.store.CreateParty(ctx, kind, p)
}

func (s *Service) UpdateParty(ctx context.Context, kind domain.PartyKind, p domain.Party) (domain.Party, error) {
	if p.ID <= 0 {
		return domain.Party{}, domain.NewValidationError("id", "is required")
	}
	p = normalizeParty(p)
	if err := validateParty(p); err != nil {
		return domain.Party{}, err
	}
	return s.store.UpdateParty(ctx, kind, p)
}

// DeleteParty refuses to delete a party referenced by a transaction.
func (s *Service) DeleteParty(ctx context.Context, kind domain.PartyKind, id int64) error {
	return s.store.DeleteParty(ctx, kind, id)
}

func normalizeParty(p domain.Party) domain.Party {
	p.Name = strings.TrimSpace(p.Name)
	p.Document = strings.TrimSpace(p.Document)
	p.Email = normalizeNullable(p.Email)
	p.Phone = normalizeNullable(p.Phone)
	p.Address = normalizeNullable(p.Address)
	return p
}

func validateParty(p domain.Party) error {
	if p.Name == "" {
		return domain.NewValidationError("name", "is required")
	}
	if p.Document == "" {
		return domain.NewValidationError("document", "is required")
	}
	if p.Email != nil && !strings.Contains(*p.Email, "@") {
		return domain.NewValidationError("email", "is not a valid address")
	}
	return nil
}
