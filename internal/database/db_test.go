package database

import (
	"testing"
	"testing/fstest"
)

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_assets.up.sql":    {Data: []byte("SELECT 2")},
		"001_records.up.sql":   {Data: []byte("SELECT 1")},
		"001_records.down.sql": {Data: []byte("SELECT 0")},
		"README.md":            {Data: []byte("notes")},
		"003_cash.up.sql":      {Data: []byte("SELECT 3")},
	}

	got, err := pendingMigrations(fsys, map[string]bool{"002_assets.up.sql": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"001_records.up.sql", "003_cash.up.sql"}
	if len(got) != len(want) {
		t.Fatalf("pending = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pending[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPendingMigrationsAllApplied(t *testing.T) {
	fsys := fstest.MapFS{"001_records.up.sql": {Data: []byte("SELECT 1")}}

	got, err := pendingMigrations(fsys, map[string]bool{"001_records.up.sql": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("pending = %v, want none", got)
	}
}
