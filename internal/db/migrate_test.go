package db

import (
	"strings"
	"testing"
)

func TestMigrations_SortedAndEmbedded(t *testing.T) {
	versions, err := Migrations()
	if err != nil {
		t.Fatalf("list migrations: %v", err)
	}
	if len(versions) == 0 || versions[0] != "0001_init.sql" {
		t.Fatalf("unexpected migrations: %v", versions)
	}
	for i := 1; i < len(versions); i++ {
		if versions[i-1] >= versions[i] {
			t.Fatalf("migrations out of order: %v", versions)
		}
	}

	body, err := migrationFiles.ReadFile("migrations/0001_init.sql")
	if err != nil {
		t.Fatalf("read init migration: %v", err)
	}
	for _, table := range []string{"products", "customers", "suppliers", "sales", "sale_lines", "purchases", "purchase_lines", "returns", "alerts", "promotions"} {
		if !strings.Contains(string(body), "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("init migration does not create %s", table)
		}
	}
}
