package memstore

import (
	"context"
	"fmt"
	"sort"

	"stockflow/internal/domain"
)

func (s *Store) ListParties(ctx context.Context, kind domain.PartyKind) ([]domain.Party, error) {
	out := []domain.Party{}
	err := s.locked(ctx, func(st *state) error {
		for _, p := range st.parties[kind] {
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (s *Store) GetParty(ctx context.Context, kind domain.PartyKind, id int64) (*domain.Party, error) {
	var out domain.Party
	err := s.locked(ctx, func(st *state) error {
		p, ok := st.parties[kind][id]
		if !ok {
			return domain.NewNotFoundError(partyEntity(kind), id)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) GetPartyByDocument(ctx context.Context, kind domain.PartyKind, document string) (*domain.Party, error) {
	var out domain.Party
	err := s.locked(ctx, func(st *state) error {
		for _, p := range st.parties[kind] {
			if p.Document == document {
				out = p
				return nil
			}
		}
		return domain.NewNotFoundError(partyEntity(kind), document)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func documentTaken(st *state, kind domain.PartyKind, document string, except int64) bool {
	for id, p := range st.parties[kind] {
		if id != except && p.Document == document {
			return true
		}
	}
	return false
}

func (s *Store) CreateParty(ctx context.Context, kind domain.PartyKind, p domain.Party) (domain.Party, error) {
	err := s.locked(ctx, func(st *state) error {
		if documentTaken(st, kind, p.Document, 0) {
			return domain.NewConflictError(fmt.Sprintf("%s with document %s already exists", kind, p.Document))
		}
		p.ID = st.next(partyEntity(kind))
		p.CreatedAt = s.now()
		st.parties[kind][p.ID] = p
		return nil
	})
	return p, err
}

func (s *Store) UpdateParty(ctx context.Context, kind domain.PartyKind, p domain.Party) (domain.Party, error) {
	err := s.locked(ctx, func(st *state) error {
		current, ok := st.parties[kind][p.ID]
		if !ok {
			return domain.NewNotFoundError(partyEntity(kind), p.ID)
		}
		if documentTaken(st, kind, p.Document, p.ID) {
			return domain.NewConflictError(fmt.Sprintf("%s with document %s already exists", kind, p.Document))
		}
		p.CreatedAt = current.CreatedAt
		st.parties[kind][p.ID] = p
		return nil
	})
	return p, err
}

func (s *Store) DeleteParty(ctx context.Context, kind domain.PartyKind, id int64) error {
	return s.locked(ctx, func(st *state) error {
		if _, ok := st.parties[kind][id]; !ok {
			return domain.NewNotFoundError(partyEntity(kind), id)
		}
		txnKind := domain.KindSale
		if kind == domain.PartySupplier {
			txnKind = domain.KindPurchase
		}
		for _, txn := range st.transactions[txnKind] {
			if txn.CounterpartyID == id {
				return domain.NewConflictError(fmt.Sprintf("%s %d is referenced by %s %d", kind, id, txnKind, txn.ID))
			}
		}
		delete(st.parties[kind], id)
		return nil
	})
}
