package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"stockflow/internal/domain"
	"stockflow/internal/memstore"
)

func run(t *testing.T, store *memstore.Store, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	open := func(context.Context, *viper.Viper, *slog.Logger) (*backend, error) {
		return &backend{store: store, close: func() {}}, nil
	}
	cmd := newRootCommand(&out, open)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestImportProductsThenLowStock(t *testing.T) {
	store := memstore.New()
	path := filepath.Join(t.TempDir(), "products.csv")
	csv := "name,price,stock,reorder_threshold\nMouse,5,2,3\nDesk,120,10,1\n"
	if err := os.WriteFile(path, []byte(csv), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	out, err := run(t, store, "import-products", path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "rows=2 created=2 updated=0") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = run(t, store, "low-stock")
	if err != nil {
		t.Fatalf("low-stock: %v", err)
	}
	if !strings.Contains(out, "Mouse") || strings.Contains(out, "Desk") {
		t.Fatalf("unexpected table %q", out)
	}

	out, err = run(t, store, "low-stock", "--json")
	if err != nil {
		t.Fatalf("low-stock --json: %v", err)
	}
	var items []domain.Product
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || !items[0].Price.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestCommandErrors(t *testing.T) {
	store := memstore.New()

	if _, err := run(t, store, "import-products", "/does/not/exist.xlsx"); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := run(t, store, "import-products"); err == nil {
		t.Fatalf("expected error for missing argument")
	}
	if _, err := run(t, store, "migrate"); err == nil {
		t.Fatalf("expected migrate to require postgres")
	}
	if _, err := run(t, store, "low-stock", "--log-level", "shout"); err == nil {
		t.Fatalf("expected error for bad log level")
	}
}

func TestOpenBackend_Driver(t *testing.T) {
	v := viper.New()
	v.Set("store-driver", "memory")
	b, err := openBackend(context.Background(), v, slog.Default())
	if err != nil || b.store == nil || b.migrate != nil {
		t.Fatalf("expected memory backend, got %+v err %v", b, err)
	}

	v.Set("store-driver", "postgres")
	v.Set("database-url", "")
	if _, err := openBackend(context.Background(), v, slog.Default()); err == nil {
		t.Fatalf("expected error without database url")
	}

	v.Set("store-driver", "sqlite")
	if _, err := openBackend(context.Background(), v, slog.Default()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
