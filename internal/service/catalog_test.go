package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockflow/internal/domain"
	"stockflow/internal/service"
)

func TestCreateProduct_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		product domain.Product
		wantErr bool
	}{
		{"empty name", domain.Product{Name: "  ", Price: decimal.NewFromInt(1)}, true},
		{"negative price", domain.Product{Name: "A", Price: decimal.NewFromInt(-1)}, true},
		{"negative stock", domain.Product{Name: "A", Stock: -1}, true},
		{"negative threshold", domain.Product{Name: "A", ReorderThreshold: -1}, true},
		{"valid", domain.Product{Name: " Lamp ", Price: decimal.RequireFromString("9.99"), Stock: 2}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := f.svc.CreateProduct(ctx, tc.product)
			if tc.wantErr {
				if !domain.IsValidationError(err) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.ID == 0 || p.Name != "Lamp" || !p.Active {
				t.Fatalf("unexpected product: %+v", p)
			}
		})
	}
}

func TestProducts_SearchLowStockAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lamp := f.product(t, "Desk Lamp", "10", 2, 5)
	f.product(t, "Chair", "30", 20, 5)

	found, err := f.svc.ListProducts(ctx, service.ProductFilter{Search: "lamp"})
	if err != nil || len(found) != 1 || found[0].ID != lamp.ID {
		t.Fatalf("expected lamp from search, got %v (err %v)", found, err)
	}

	low, err := f.svc.LowStock(ctx)
	if err != nil || len(low) != 1 || low[0].ID != lamp.ID {
		t.Fatalf("expected lamp in low stock, got %v (err %v)", low, err)
	}

	lamp.Price = decimal.NewFromInt(12)
	lamp.Stock = 500
	updated, err := f.svc.UpdateProduct(ctx, lamp)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Price.Equal(decimal.NewFromInt(12)) || updated.Stock != 2 {
		t.Fatalf("update must change price only, got %+v", updated)
	}

	if _, err := f.svc.UpdateProduct(ctx, domain.Product{ID: 999, Name: "x"}); !domain.IsNotFoundError(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDeleteProduct_DeactivatesWhenReferenced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sold := f.product(t, "Sold", "1", 5, 0)
	unused := f.product(t, "Unused", "1", 5, 0)

	if _, err := f.svc.RecordTransaction(ctx, f.sale(service.ItemInput{ProductID: sold.ID, Quantity: 1})); err != nil {
		t.Fatalf("record sale: %v", err)
	}

	deleted, err := f.svc.DeleteProduct(ctx, sold.ID)
	if err != nil || deleted {
		t.Fatalf("expected deactivation, got deleted=%v err=%v", deleted, err)
	}
	p, err := f.svc.GetProduct(ctx, sold.ID)
	if err != nil || p.Active {
		t.Fatalf("expected inactive product, got %+v (err %v)", p, err)
	}
	if _, err := f.svc.RecordTransaction(ctx, f.sale(service.ItemInput{ProductID: sold.ID, Quantity: 1})); !domain.IsValidationError(err) {
		t.Fatalf("inactive products cannot be sold, got %v", err)
	}

	deleted, err = f.svc.DeleteProduct(ctx, unused.ID)
	if err != nil || !deleted {
		t.Fatalf("expected delete, got deleted=%v err=%v", deleted, err)
	}
	if _, err := f.svc.GetProduct(ctx, unused.ID); !domain.IsNotFoundError(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestImportProducts_Upsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.product(t, "Mouse", "5", 7, 1)

	result, err := f.svc.ImportProducts(ctx, []domain.ProductImportRow{
		{Name: "mouse", Price: decimal.NewFromInt(6), Stock: 99, ReorderThreshold: 2},
		{Name: "Keyboard", Price: decimal.NewFromInt(20), Stock: 4},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Created != 1 || result.Updated != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	p, _ := f.svc.GetProduct(ctx, existing.ID)
	if !p.Price.Equal(decimal.NewFromInt(6)) || p.Stock != 7 || p.ReorderThreshold != 2 {
		t.Fatalf("unexpected upserted product: %+v", p)
	}

	if _, err := f.svc.ImportProducts(ctx, nil); !domain.IsValidationError(err) {
		t.Fatalf("expected ValidationError for empty import, got %v", err)
	}
	if _, err := f.svc.ImportProducts(ctx, []domain.ProductImportRow{{Name: ""}}); !domain.IsValidationError(err) {
		t.Fatalf("expected ValidationError for nameless row, got %v", err)
	}
}

func TestParties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreateParty(ctx, domain.PartyCustomer, domain.Party{Name: "Dup", Document: "C-1"}); !domain.IsConflictError(err) {
		t.Fatalf("expected ConflictError for duplicate document, got %v", err)
	}
	if _, err := f.svc.CreateParty(ctx, domain.PartySupplier, domain.Party{Name: "Same doc other kind", Document: "C-1"}); err != nil {
		t.Fatalf("documents are unique per kind: %v", err)
	}
	email := "bad-address"
	if _, err := f.svc.CreateParty(ctx, domain.PartyCustomer, domain.Party{Name: "X", Document: "C-9", Email: &email}); !domain.IsValidationError(err) {
		t.Fatalf("expected ValidationError for email, got %v", err)
	}

	byDoc, err := f.svc.GetPartyByDocument(ctx, domain.PartyCustomer, " C-1 ")
	if err != nil || byDoc.ID != f.customerID {
		t.Fatalf("lookup by document: %+v (err %v)", byDoc, err)
	}

	blank := "  "
	updated, err := f.svc.UpdateParty(ctx, domain.PartyCustomer, domain.Party{ID: f.customerID, Name: "Ana R.", Document: "C-1", Phone: &blank})
	if err != nil || updated.Name != "Ana R." || updated.Phone != nil {
		t.Fatalf("update: %+v (err %v)", updated, err)
	}

	widget := f.product(t, "Widget", "1", 5, 0)
	if _, err := f.svc.RecordTransaction(ctx, f.sale(service.ItemInput{ProductID: widget.ID, Quantity: 1})); err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if err := f.svc.DeleteParty(ctx, domain.PartyCustomer, f.customerID); !domain.IsConflictError(err) {
		t.Fatalf("expected ConflictError deleting referenced customer, got %v", err)
	}

	other, err := f.svc.CreateParty(ctx, domain.PartyCustomer, domain.Party{Name: "Temp", Document: "C-2"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.svc.DeleteParty(ctx, domain.PartyCustomer, other.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.GetParty(ctx, domain.PartyCustomer, other.ID); !domain.IsNotFoundError(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestPromotions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.product(t, "Widget", "10", 5, 0)

	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 31, 23, 59, 59, 0, time.UTC)

	invalid := []domain.Promotion{
		{Name: "", Discount: decimal.NewFromInt(10), StartsAt: start, EndsAt: end},
		{Name: "zero", Discount: decimal.Zero, StartsAt: start, EndsAt: end},
		{Name: "too much", Discount: decimal.NewFromInt(101), StartsAt: start, EndsAt: end},
		{Name: "backwards", Discount: decimal.NewFromInt(10), StartsAt: end, EndsAt: start},
	}
	for _, p := range invalid {
		if _, err := f.svc.CreatePromotion(ctx, p); !domain.IsValidationError(err) {
			t.Fatalf("%q: expected ValidationError, got %v", p.Name, err)
		}
	}
	missing := int64(999)
	if _, err := f.svc.CreatePromotion(ctx, domain.Promotion{Name: "ghost", Discount: decimal.NewFromInt(5), StartsAt: start, EndsAt: end, ProductID: &missing}); !domain.IsNotFoundError(err) {
		t.Fatalf("expected NotFoundError for unknown product, got %v", err)
	}

	promo, err := f.svc.CreatePromotion(ctx, domain.Promotion{
		Name: "August", Discount: decimal.NewFromInt(15), StartsAt: start, EndsAt: end, ProductID: &widget.ID,
	})
	if err != nil {
		t.Fatalf("create promotion: %v", err)
	}
	if promo.ProductName == nil || *promo.ProductName != "Widget" {
		t.Fatalf("expected product name, got %+v", promo)
	}

	active, _ := f.svc.ActivePromotions(ctx, time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC))
	if len(active) != 1 {
		t.Fatalf("expected active promotion on 2025-08-31, got %d", len(active))
	}
	active, _ = f.svc.ActivePromotions(ctx, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))
	if len(active) != 0 {
		t.Fatalf("expected no active promotion on 2025-09-01, got %d", len(active))
	}
	byProduct, _ := f.svc.PromotionsByProduct(ctx, widget.ID)
	if len(byProduct) != 1 {
		t.Fatalf("expected one promotion for widget, got %d", len(byProduct))
	}

	txn, err := f.svc.RecordTransaction(ctx, f.sale(service.ItemInput{ProductID: widget.ID, Quantity: 1}))
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if !txn.Total.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("promotions must not change catalog pricing, got %s", txn.Total)
	}

	if err := f.svc.DeletePromotion(ctx, promo.ID); err != nil {
		t.Fatalf("delete promotion: %v", err)
	}
	if _, err := f.svc.GetPromotion(ctx, promo.ID); !domain.IsNotFoundError(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
