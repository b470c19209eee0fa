// Package memstore is an in-memory implementation of service.Store. Every
// unit of work runs under one mutex and is rolled back from a snapshot when
// it fails, which gives the same all-or-nothing behaviour as the Postgres
// store for local runs and tests.
package memstore

import (
	"context"
	"maps"
	"sync"
	"time"

	"stockflow/internal/domain"
	"stockflow/internal/service"
)

type state struct {
	seq          map[string]int64
	products     map[int64]domain.Product
	parties      map[domain.PartyKind]map[int64]domain.Party
	transactions map[domain.TransactionKind]map[int64]domain.Transaction
	returns      map[int64]domain.Return
	alerts       map[int64]domain.Alert
	promotions   map[int64]domain.Promotion
}

func newState() *state {
	return &state{
		seq:      make(map[string]int64),
		products: make(map[int64]domain.Product),
		parties: map[domain.PartyKind]map[int64]domain.Party{
			domain.PartyCustomer: {},
			domain.PartySupplier: {},
		},
		transactions: map[domain.TransactionKind]map[int64]domain.Transaction{
			domain.KindSale:     {},
			domain.KindPurchase: {},
		},
		returns:    make(map[int64]domain.Return),
		alerts:     make(map[int64]domain.Alert),
		promotions: make(map[int64]domain.Promotion),
	}
}

// clone copies every map. Stored values are replaced, never mutated in
// place, so the values themselves can be shared.
func (st *state) clone() *state {
	out := &state{
		seq:          maps.Clone(st.seq),
		products:     maps.Clone(st.products),
		parties:      make(map[domain.PartyKind]map[int64]domain.Party, len(st.parties)),
		transactions: make(map[domain.TransactionKind]map[int64]domain.Transaction, len(st.transactions)),
		returns:      maps.Clone(st.returns),
		alerts:       maps.Clone(st.alerts),
		promotions:   maps.Clone(st.promotions),
	}
	for k, v := range st.parties {
		out.parties[k] = maps.Clone(v)
	}
	for k, v := range st.transactions {
		out.transactions[k] = maps.Clone(v)
	}
	return out
}

func (st *state) next(entity string) int64 {
	st.seq[entity]++
	return st.seq[entity]
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

var _ service.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		st:  newState(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithinTx serializes units of work. A failed fn, or a context that ends
// before fn returns, discards every write fn made.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx service.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(ctx, &memTx{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// locked runs fn under the store lock after checking ctx.
func (s *Store) locked(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func partyEntity(kind domain.PartyKind) string {
	return string(kind)
}

func txnEntity(kind domain.TransactionKind) string {
	return string(kind)
}
