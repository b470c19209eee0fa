package repository

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"stockflow/internal/domain"
)

func TestTablesFor(t *testing.T) {
	sale, err := tablesFor(domain.KindSale)
	if err != nil || sale.header != "sales" || sale.parties != "customers" || sale.lineFK != "sale_id" {
		t.Fatalf("unexpected sale tables: %+v (err %v)", sale, err)
	}
	purchase, err := tablesFor(domain.KindPurchase)
	if err != nil || purchase.lines != "purchase_lines" || purchase.counterparty != "supplier_id" {
		t.Fatalf("unexpected purchase tables: %+v (err %v)", purchase, err)
	}
	if _, err := tablesFor("refund"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if _, err := partyTable("vendor"); err == nil {
		t.Fatalf("expected error for unknown party kind")
	}
}

func TestPgErrorCode(t *testing.T) {
	wrapped := fmt.Errorf("create customer: %w", &pgconn.PgError{Code: pgUniqueViolation})
	if got := pgErrorCode(wrapped); got != pgUniqueViolation {
		t.Fatalf("expected %s, got %q", pgUniqueViolation, got)
	}
	if got := pgErrorCode(fmt.Errorf("plain")); got != "" {
		t.Fatalf("expected empty code, got %q", got)
	}
}
