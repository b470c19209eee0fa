package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	Price            decimal.Decimal `json:"price"`
	Stock            int             `json:"stock"`
	ReorderThreshold int             `json:"reorder_threshold"`
	Active           bool            `json:"active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// BelowThreshold reports whether the product should be restocked.
func (p Product) BelowThreshold() bool {
	return p.Stock <= p.ReorderThreshold
}

// Party is a customer or a supplier.
type Party struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Document  string    `json:"document"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type PartyKind string

const (
	PartyCustomer PartyKind = "customer"
	PartySupplier PartyKind = "supplier"
)

type TransactionKind string

const (
	KindSale     TransactionKind = "sale"
	KindPurchase TransactionKind = "purchase"
)

func (k TransactionKind) Valid() bool {
	return k == KindSale || k == KindPurchase
}

// StockSign is -1 for sales and +1 for purchases.
func (k TransactionKind) StockSign() int {
	if k == KindSale {
		return -1
	}
	return 1
}

// Counterparty returns the party kind a transaction of this kind references.
func (k TransactionKind) Counterparty() PartyKind {
	if k == KindSale {
		return PartyCustomer
	}
	return PartySupplier
}

// Transaction is a sale or purchase header owning its line items.
// Total is fixed at creation time.
type Transaction struct {
	ID               int64           `json:"id"`
	Kind             TransactionKind `json:"kind"`
	CounterpartyID   int64           `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name"`
	OccurredAt       time.Time       `json:"occurred_at"`
	Total            decimal.Decimal `json:"total"`
	Lines            []LineItem      `json:"lines,omitempty"`
}

type LineItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Return struct {
	ID          int64     `json:"id"`
	SaleID      int64     `json:"sale_id"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	Reason      string    `json:"reason"`
	ReturnedAt  time.Time `json:"returned_at"`
}

// Alert is raised when stock falls to or below the reorder threshold. Append-only.
type Alert struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

type Promotion struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Discount    decimal.Decimal `json:"discount"`
	StartsAt    time.Time       `json:"starts_at"`
	EndsAt      time.Time       `json:"ends_at"`
	ProductID   *int64          `json:"product_id,omitempty"`
	ProductName *string         `json:"product_name,omitempty"`
}

// ActiveAt reports whether at falls inside [StartsAt, EndsAt].
func (p Promotion) ActiveAt(at time.Time) bool {
	return !at.Before(p.StartsAt) && !at.After(p.EndsAt)
}

// DateRange is an inclusive, optionally open-ended time window.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (r DateRange) Contains(at time.Time) bool {
	if r.From != nil && at.Before(*r.From) {
		return false
	}
	if r.To != nil && at.After(*r.To) {
		return false
	}
	return true
}

type ProductImportRow struct {
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	Price            decimal.Decimal `json:"price"`
	Stock            int             `json:"stock"`
	ReorderThreshold int             `json:"reorder_threshold"`
}

type ProductImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}
