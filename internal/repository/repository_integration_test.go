package repository_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"stockflow/internal/db"
	"stockflow/internal/domain"
	"stockflow/internal/repository"
	"stockflow/internal/service"
)

func setupTestDB(t *testing.T) (*pgxpool.Pool, *service.Service) {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Integration tests truncate every table, so they only run against a
	// dedicated database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dbURL, db.PoolOptions{MaxConns: 8})
	if err != nil {
		t.Fatalf("connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := db.RunMigrations(ctx, pool, logger); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		TRUNCATE TABLE returns, alerts, promotions, sale_lines, sales, purchase_lines, purchases,
			customers, suppliers, products RESTART IDENTITY CASCADE
	`); err != nil {
		t.Fatalf("truncate test database: %v", err)
	}
	return pool, service.New(repository.New(pool), nil, logger)
}

type seeded struct {
	customer domain.Party
	supplier domain.Party
	widget   domain.Product
}

func seed(t *testing.T, svc *service.Service, stock, threshold int) seeded {
	t.Helper()
	ctx := context.Background()
	customer, err := svc.CreateParty(ctx, domain.PartyCustomer, domain.Party{Name: "Ana Ruiz", Document: "C-1"})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	supplier, err := svc.CreateParty(ctx, domain.PartySupplier, domain.Party{Name: "Acme SA", Document: "S-1"})
	if err != nil {
		t.Fatalf("seed supplier: %v", err)
	}
	widget, err := svc.CreateProduct(ctx, domain.Product{
		Name: "Widget", Price: decimal.RequireFromString("2.50"), Stock: stock, ReorderThreshold: threshold,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return seeded{customer: customer, supplier: supplier, widget: widget}
}

func TestPostgres_RecordAndReadSale(t *testing.T) {
	_, svc := setupTestDB(t)
	s := seed(t, svc, 10, 5)
	ctx := context.Background()

	occurred := time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	sale, err := svc.RecordTransaction(ctx, service.RecordInput{
		Kind:           domain.KindSale,
		CounterpartyID: s.customer.ID,
		OccurredAt:     &occurred,
		Items: []service.ItemInput{
			{ProductID: s.widget.ID, Quantity: 3},
			{ProductID: s.widget.ID, Quantity: 3, Price: domain.CallerPrice(decimal.RequireFromString("2.00"))},
		},
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if !sale.Total.Equal(decimal.RequireFromString("13.50")) {
		t.Fatalf("expected total 13.50, got %s", sale.Total)
	}

	got, err := svc.GetTransaction(ctx, domain.KindSale, sale.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if got.CounterpartyName != "Ana Ruiz" || len(got.Lines) != 2 || got.Lines[1].ProductName != "Widget" {
		t.Fatalf("unexpected sale: %+v", got)
	}

	from, to := occurred.Add(-time.Hour), occurred.Add(time.Hour)
	list, err := svc.ListTransactions(ctx, domain.KindSale, domain.DateRange{From: &from, To: &to})
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one sale in window, got %d (err %v)", len(list), err)
	}

	alerts, err := svc.ListAlertsByProduct(ctx, s.widget.ID)
	if err != nil || len(alerts) != 1 {
		t.Fatalf("expected one alert, got %d (err %v)", len(alerts), err)
	}

	if _, err := svc.GetTransaction(ctx, domain.KindSale, sale.ID+100); !domain.IsNotFoundError(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestPostgres_ConcurrentSalesDoNotLoseUpdates(t *testing.T) {
	_, svc := setupTestDB(t)
	s := seed(t, svc, 5, 0)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordTransaction(context.Background(), service.RecordInput{
				Kind:           domain.KindSale,
				CounterpartyID: s.customer.ID,
				Items:          []service.ItemInput{{ProductID: s.widget.ID, Quantity: 1}},
			})
			if err != nil {
				t.Errorf("record sale: %v", err)
			}
		}()
	}
	wg.Wait()

	p, err := svc.GetProduct(context.Background(), s.widget.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if p.Stock != 3 {
		t.Fatalf("expected stock 3, got %d", p.Stock)
	}
}

func TestPostgres_InsufficientStockRollsBack(t *testing.T) {
	pool, svc := setupTestDB(t)
	s := seed(t, svc, 2, 0)
	ctx := context.Background()

	_, err := svc.RecordTransaction(ctx, service.RecordInput{
		Kind:           domain.KindSale,
		CounterpartyID: s.customer.ID,
		Items:          []service.ItemInput{{ProductID: s.widget.ID, Quantity: 3}},
	})
	if !domain.IsValidationError(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	var sales, lines int
	if err := pool.QueryRow(ctx, "SELECT (SELECT COUNT(*) FROM sales), (SELECT COUNT(*) FROM sale_lines)").Scan(&sales, &lines); err != nil {
		t.Fatalf("count: %v", err)
	}
	if sales != 0 || lines != 0 {
		t.Fatalf("expected no rows after rollback, got %d sales and %d lines", sales, lines)
	}
}

func TestPostgres_ReturnsAndReferences(t *testing.T) {
	_, svc := setupTestDB(t)
	s := seed(t, svc, 10, 0)
	ctx := context.Background()

	sale, err := svc.RecordTransaction(ctx, service.RecordInput{
		Kind:           domain.KindSale,
		CounterpartyID: s.customer.ID,
		Items:          []service.ItemInput{{ProductID: s.widget.ID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if _, err := svc.RecordReturn(ctx, service.ReturnInput{SaleID: sale.ID, ProductID: s.widget.ID, Quantity: 3, Reason: "broken"}); err != nil {
		t.Fatalf("record return: %v", err)
	}
	if _, err := svc.RecordReturn(ctx, service.ReturnInput{SaleID: sale.ID, ProductID: s.widget.ID, Quantity: 2, Reason: "broken"}); !domain.IsValidationError(err) {
		t.Fatalf("expected ValidationError past sold quantity, got %v", err)
	}

	p, _ := svc.GetProduct(ctx, s.widget.ID)
	if p.Stock != 9 {
		t.Fatalf("expected stock 9, got %d", p.Stock)
	}

	if err := svc.DeleteParty(ctx, domain.PartyCustomer, s.customer.ID); !domain.IsConflictError(err) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	deleted, err := svc.DeleteProduct(ctx, s.widget.ID)
	if err != nil || deleted {
		t.Fatalf("expected deactivation, got deleted=%v err=%v", deleted, err)
	}
	if _, err := svc.CreateParty(ctx, domain.PartyCustomer, domain.Party{Name: "Dup", Document: "C-1"}); !domain.IsConflictError(err) {
		t.Fatalf("expected ConflictError for duplicate document, got %v", err)
	}
}
