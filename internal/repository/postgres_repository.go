package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"stockflow/internal/domain"
	"stockflow/internal/service"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type Repository struct {
	pool *pgxpool.Pool
}

var _ service.Store = (*Repository)(nil)

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithinTx runs fn in a read committed transaction. Stock consistency comes
// from conditional updates and sale row locks. Begin and commit failures come
// back as PersistenceErrors.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx service.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return domain.NewPersistenceError("begin", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.NewPersistenceError("commit", err)
	}
	return nil
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

const productColumns = `
	id,
	name,
	description,
	price,
	stock,
	reorder_threshold,
	active,
	created_at,
	updated_at
`

func scanProductRow(row pgx.Row) (domain.Product, error) {
	var product domain.Product
	if err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.ReorderThreshold,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

const partyColumns = `id, name, document, email, phone, address, created_at`

func scanPartyRow(row pgx.Row) (domain.Party, error) {
	var (
		party   domain.Party
		email   sql.NullString
		phone   sql.NullString
		address sql.NullString
	)
	if err := row.Scan(
		&party.ID,
		&party.Name,
		&party.Document,
		&email,
		&phone,
		&address,
		&party.CreatedAt,
	); err != nil {
		return domain.Party{}, err
	}
	party.Email = nullableString(email)
	party.Phone = nullableString(phone)
	party.Address = nullableString(address)
	return party, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	value := v.String
	return &value
}

// kindTables names the storage of one transaction kind. Values are fixed
// identifiers, never user input.
type kindTables struct {
	entity       string
	header       string
	lines        string
	lineFK       string
	parties      string
	counterparty string
}

func tablesFor(kind domain.TransactionKind) (kindTables, error) {
	switch kind {
	case domain.KindSale:
		return kindTables{
			entity:       "sale",
			header:       "sales",
			lines:        "sale_lines",
			lineFK:       "sale_id",
			parties:      "customers",
			counterparty: "customer_id",
		}, nil
	case domain.KindPurchase:
		return kindTables{
			entity:       "purchase",
			header:       "purchases",
			lines:        "purchase_lines",
			lineFK:       "purchase_id",
			parties:      "suppliers",
			counterparty: "supplier_id",
		}, nil
	}
	return kindTables{}, fmt.Errorf("unknown transaction kind %q", kind)
}

func partyTable(kind domain.PartyKind) (string, error) {
	switch kind {
	case domain.PartyCustomer:
		return "customers", nil
	case domain.PartySupplier:
		return "suppliers", nil
	}
	return "", fmt.Errorf("unknown party kind %q", kind)
}
