package extension

import (
	"context"
	"testing"

	"github.com/xraph/rights"
	"github.com/xraph/rights/journal"
	"github.com/xraph/rights/ledger"
	"github.com/xraph/rights/store"
	"github.com/xraph/rights/store/memory"
)

// countingStore counts migrations over a memory store.
type countingStore struct {
	*memory.Store
	migrations int
}

func (s *countingStore) Migrate(ctx context.Context) error {
	s.migrations++
	return s.Store.Migrate(ctx)
}

func seeded(t *testing.T) *countingStore {
	t.Helper()
	ctx := context.Background()
	s := &countingStore{Store: memory.New()}

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	changes := []journal.Change{
		ledger.EntryChange{Entry: ledger.Entry{Book: ledger.Settlement, Account: "alice", Currency: "usd", Amount: 850}},
	}
	if err := tx.Apply(ctx, changes); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return s
}

func TestStartEngine(t *testing.T) {
	tests := []struct {
		name           string
		disableMigrate bool
		wantMigrations int
	}{
		{"migrate", false, 1},
		{"migrations disabled", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seeded(t)
			e := New(WithStore(s))
			e.config.DisableMigrate = tt.disableMigrate
			e.engine = rights.New(s)

			if err := e.startEngine(context.Background()); err != nil {
				t.Fatalf("startEngine: %v", err)
			}
			if s.migrations != tt.wantMigrations {
				t.Errorf("migrations = %d, want %d", s.migrations, tt.wantMigrations)
			}
			if got := e.engine.Balance("alice", "usd").Amount; got != 850 {
				t.Errorf("hydrated balance = %d, want 850", got)
			}
		})
	}
}

var _ store.Store = (*countingStore)(nil)
