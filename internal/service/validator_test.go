package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"stockflow/internal/domain"
)

type fakeCatalog struct {
	products map[int64]domain.Product
	reads    int
}

func (f *fakeCatalog) Product(_ context.Context, id int64) (domain.Product, error) {
	f.reads++
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, domain.NewNotFoundError("product", id)
	}
	return p, nil
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[int64]domain.Product{
		1: {ID: 1, Name: "Widget", Price: decimal.RequireFromString("2.50"), Active: true},
		2: {ID: 2, Name: "Gadget", Price: decimal.RequireFromString("10"), Active: true},
		3: {ID: 3, Name: "Retired", Price: decimal.RequireFromString("1"), Active: false},
	}}
}

func TestValidateItemShape(t *testing.T) {
	cases := []struct {
		name    string
		items   []ItemInput
		wantErr bool
	}{
		{"empty", nil, true},
		{"zero quantity", []ItemInput{{ProductID: 1, Quantity: 0}}, true},
		{"negative quantity", []ItemInput{{ProductID: 1, Quantity: -2}}, true},
		{"missing product", []ItemInput{{Quantity: 1}}, true},
		{"negative caller price", []ItemInput{{ProductID: 1, Quantity: 1, Price: callerPrice("-1")}}, true},
		{"quantity above int32", []ItemInput{{ProductID: 1, Quantity: domain.MaxQuantity + 1}}, true},
		{"caller price with five decimals", []ItemInput{{ProductID: 1, Quantity: 3, Price: callerPrice("0.00005")}}, true},
		{"caller price above column range", []ItemInput{{ProductID: 1, Quantity: 1, Price: callerPrice("10000000000")}}, true},
		{"largest storable line", []ItemInput{{ProductID: 1, Quantity: domain.MaxQuantity, Price: callerPrice("9999999999.9999")}}, false},
		{"bad item after good one", []ItemInput{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 0}}, true},
		{"valid", []ItemInput{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 3, Price: callerPrice("0")}}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateItemShape(tc.items)
			if tc.wantErr && !domain.IsValidationError(err) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateItemShape_PriceField(t *testing.T) {
	err := ValidateItemShape([]ItemInput{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 1, Price: callerPrice("-1")}})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "items[1].price" {
		t.Fatalf("expected field items[1].price, got %q", verr.Field)
	}
}

func TestValidateItems_References(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown product", func(t *testing.T) {
		_, err := ValidateItems(ctx, newFakeCatalog(), []ItemInput{{ProductID: 99, Quantity: 1}})
		if !domain.IsValidationError(err) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("inactive product", func(t *testing.T) {
		_, err := ValidateItems(ctx, newFakeCatalog(), []ItemInput{{ProductID: 3, Quantity: 1}})
		if !domain.IsValidationError(err) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("shape errors skip lookups", func(t *testing.T) {
		catalog := newFakeCatalog()
		_, err := ValidateItems(ctx, catalog, []ItemInput{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 0}})
		if !domain.IsValidationError(err) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if catalog.reads != 0 {
			t.Fatalf("expected no catalog reads, got %d", catalog.reads)
		}
	})

	t.Run("duplicate products read once", func(t *testing.T) {
		catalog := newFakeCatalog()
		products, err := ValidateItems(ctx, catalog, []ItemInput{{ProductID: 1, Quantity: 1}, {ProductID: 1, Quantity: 2}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if catalog.reads != 1 || products[1].Name != "Widget" {
			t.Fatalf("reads=%d products=%v", catalog.reads, products)
		}
	})
}

func TestResolvePrice(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog()

	cases := []struct {
		name       string
		item       ItemInput
		useCatalog bool
		want       string
	}{
		{"caller price", ItemInput{ProductID: 1, Quantity: 1, Price: callerPrice("3.10")}, false, "3.1"},
		{"catalog when absent", ItemInput{ProductID: 1, Quantity: 1}, false, "2.5"},
		{"catalog flag overrides caller", ItemInput{ProductID: 2, Quantity: 1, Price: callerPrice("1")}, true, "10"},
		{"free item", ItemInput{ProductID: 2, Quantity: 1, Price: callerPrice("0")}, false, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolvePrice(ctx, catalog, tc.item, tc.useCatalog)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}

	t.Run("vanished product", func(t *testing.T) {
		_, err := ResolvePrice(ctx, catalog, ItemInput{ProductID: 42, Quantity: 1}, false)
		if !domain.IsNotFoundError(err) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})
}

func callerPrice(s string) domain.PriceChoice {
	return domain.CallerPrice(decimal.RequireFromString(s))
}
