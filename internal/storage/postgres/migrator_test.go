package postgres

import (
	"strings"
	"testing"
)

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("load migrations failed: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected at least one embedded migration")
	}

	for i, m := range migrations {
		if m.UpSQL == "" || m.DownSQL == "" {
			t.Fatalf("migration %d is missing up or down sql", m.Version)
		}
		if i > 0 && migrations[i-1].Version >= m.Version {
			t.Fatal("migrations must be sorted by version ascending")
		}
	}

	init := migrations[0]
	if init.Name != "init" {
		t.Fatalf("expected first migration to be init, got %s", init.Name)
	}
	for _, table := range []string{"products", "suppliers", "orders", "order_items", "purchase_orders", "purchase_order_items", "po_sequences", "audit_outbox"} {
		if !strings.Contains(init.UpSQL, table) {
			t.Fatalf("init migration does not create table %s", table)
		}
	}
}

func TestMigrationFilePattern(t *testing.T) {
	tests := []struct {
		name  string
		match bool
	}{
		{name: "0001_init.up.sql", match: true},
		{name: "0001_init.down.sql", match: true},
		{name: "0002_add_index.up.sql", match: true},
		{name: "init.up.sql", match: false},
		{name: "0001_init.sql", match: false},
		{name: "0001_init.up.txt", match: false},
	}

	for _, tt := range tests {
		if got := migrationFilePattern.MatchString(tt.name); got != tt.match {
			t.Errorf("MatchString(%s) = %v, want %v", tt.name, got, tt.match)
		}
	}
}
