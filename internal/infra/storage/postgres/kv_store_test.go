package postgres

import (
	"testing"

	"github.com/vietddude/authguard/internal/infra/storage"
)

var _ storage.KVStore = (*Store)(nil)

func TestDeleteManyQuery(t *testing.T) {
	query, args, err := deleteManyQuery([]string{"wc@2:a", "wc@2:b", "wagmi.store"})
	if err != nil {
		t.Fatalf("deleteManyQuery failed: %v", err)
	}

	want := `DELETE FROM kv_store WHERE key IN ($1, $2, $3)`
	if query != want {
		t.Errorf("query = %q, want %q", query, want)
	}
	if len(args) != 3 || args[0] != "wc@2:a" || args[2] != "wagmi.store" {
		t.Errorf("unexpected args %v", args)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) == 0 {
		t.Error("expected at least one embedded migration")
	}
}
