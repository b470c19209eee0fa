package service

import (
	"context"
	"time"

	"stockflow/internal/domain"
)

// UnitOfWork runs fn inside one atomic storage transaction. If fn returns an
// error nothing it wrote is kept. A failed commit is reported as a
// domain.PersistenceError.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the write side of a unit of work.
type Tx interface {
	Product(ctx context.Context, id int64) (domain.Product, error)
	// AdjustStock applies delta as a single atomic read-modify-write and
	// returns the updated product. It fails with domain.ErrInsufficientStock
	// when the result would be negative.
	AdjustStock(ctx context.Context, productID int64, delta int) (domain.Product, error)
	CounterpartyName(ctx context.Context, kind domain.PartyKind, id int64) (string, error)
	InsertTransaction(ctx context.Context, txn *domain.Transaction) error
	InsertAlert(ctx context.Context, alert *domain.Alert) error
	// ReturnableQuantity locks the sale and returns how many units of the
	// product are sold on it and not yet returned.
	ReturnableQuantity(ctx context.Context, saleID, productID int64) (int, error)
	InsertReturn(ctx context.Context, ret *domain.Return) error
}

type ProductFilter struct {
	Search   string
	LowStock bool
	Limit    int
	Offset   int
}

const (
	defaultListLimit = 200
	maxListLimit     = 1000
)

// Page returns the effective limit and offset of the filter.
func (f ProductFilter) Page() (limit, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset = f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

type ProductStore interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	// UpdateProduct writes name, description, price, threshold and active.
	// Stock is left untouched.
	UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	// DeleteOrDeactivateProduct deletes an unreferenced product or flags a
	// referenced one inactive. deleted reports which happened.
	DeleteOrDeactivateProduct(ctx context.Context, id int64) (deleted bool, err error)
	// UpsertProducts matches rows to products by name, case-insensitively.
	// Matched products keep their stock and are reactivated.
	UpsertProducts(ctx context.Context, rows []domain.ProductImportRow) (domain.ProductImportResult, error)
}

type PartyStore interface {
	ListParties(ctx context.Context, kind domain.PartyKind) ([]domain.Party, error)
	GetParty(ctx context.Context, kind domain.PartyKind, id int64) (*domain.Party, error)
	GetPartyByDocument(ctx context.Context, kind domain.PartyKind, document string) (*domain.Party, error)
	CreateParty(ctx context.Context, kind domain.PartyKind, p domain.Party) (domain.Party, error)
	UpdateParty(ctx context.Context, kind domain.PartyKind, p domain.Party) (domain.Party, error)
	DeleteParty(ctx context.Context, kind domain.PartyKind, id int64) error
}

type TransactionStore interface {
	// GetTransaction returns the header with lines and resolved names.
	GetTransaction(ctx context.Context, kind domain.TransactionKind, id int64) (*domain.Transaction, error)
	// ListTransactions returns headers only, newest first.
	ListTransactions(ctx context.Context, kind domain.TransactionKind, window domain.DateRange) ([]domain.Transaction, error)
}

type ReturnStore interface {
	GetReturn(ctx context.Context, id int64) (*domain.Return, error)
	ListReturnsBySale(ctx context.Context, saleID int64) ([]domain.Return, error)
}

type AlertStore interface {
	ListAlerts(ctx context.Context, window domain.DateRange) ([]domain.Alert, error)
	ListAlertsByProduct(ctx context.Context, productID int64) ([]domain.Alert, error)
}

type PromotionStore interface {
	ListPromotions(ctx context.Context) ([]domain.Promotion, error)
	ListActivePromotions(ctx context.Context, at time.Time) ([]domain.Promotion, error)
	ListPromotionsByProduct(ctx context.Context, productID int64) ([]domain.Promotion, error)
	GetPromotion(ctx context.Context, id int64) (*domain.Promotion, error)
	CreatePromotion(ctx context.Context, p domain.Promotion) (domain.Promotion, error)
	UpdatePromotion(ctx context.Context, p domain.Promotion) (domain.Promotion, error)
	DeletePromotion(ctx context.Context, id int64) error
}

// Store is everything the service needs from persistence.
type Store interface {
	UnitOfWork
	ProductStore
	PartyStore
	TransactionStore
	ReturnStore
	AlertStore
	PromotionStore
}

// Publisher receives domain events after their unit of work committed.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

type EventType string

const (
	EventSaleRecorded     EventType = "SaleRecorded"
	EventPurchaseRecorded EventType = "PurchaseRecorded"
	EventReturnRecorded   EventType = "ReturnRecorded"
	EventLowStockAlert    EventType = "LowStockAlertRaised"
)

// Event is a committed fact. Key is the aggregate id used for partitioning.
type Event struct {
	Type       EventType
	Key        string
	OccurredAt time.Time
	Payload    any
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...Event) error { return nil }
