package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/rights"
	"github.com/xraph/rights/id"
	"github.com/xraph/rights/journal"
	"github.com/xraph/rights/ledger"
	"github.com/xraph/rights/quorum"
	"github.com/xraph/rights/receipt"
	"github.com/xraph/rights/store/memory"
	"github.com/xraph/rights/treasury"
)

func apply(t *testing.T, s *memory.Store, changes ...journal.Change) {
	t.Helper()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := tx.Apply(ctx, changes); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestApplyIsVisibleOnlyAfterCommit(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	err = tx.Apply(ctx, []journal.Change{
		ledger.EntryChange{Entry: ledger.Entry{Book: ledger.Settlement, Account: "alice", Currency: "usd", Amount: 5}},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	st, _ := s.Load(ctx)
	if len(st.Entries) != 0 {
		t.Fatalf("entries before commit = %+v", st.Entries)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	st, _ = s.Load(ctx)
	if len(st.Entries) != 1 || st.Entries[0].Amount != 5 {
		t.Errorf("entries after commit = %+v", st.Entries)
	}

	if err := tx.Commit(); !errors.Is(err, rights.ErrTransactionFailed) {
		t.Errorf("second Commit err = %v, want ErrTransactionFailed", err)
	}
}

func TestRollbackDiscardsChanges(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	tx, _ := s.Begin(ctx)
	_ = tx.Apply(ctx, []journal.Change{
		treasury.RateChange{Rate: treasury.Rate{Subject: "treasury", Currency: "usd", BPS: 100}},
	})
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	st, _ := s.Load(ctx)
	if len(st.Rates) != 0 {
		t.Errorf("rates = %+v, want none", st.Rates)
	}
}

func TestZeroRowsAreDeleted(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	entry := ledger.Entry{Book: ledger.Enrollment, Account: "acme", Currency: "usd", Amount: 100}
	status := quorum.Record{Domain: quorum.Distributors, Key: quorum.AccountKey("acme"), Status: quorum.Active}
	apply(t, s, ledger.EntryChange{Entry: entry}, quorum.StatusChange{Record: status})

	entry.Amount = 0
	status.Status = quorum.Pending
	apply(t, s, ledger.EntryChange{Entry: entry}, quorum.StatusChange{Record: status})

	st, _ := s.Load(ctx)
	if len(st.Entries) != 0 || len(st.Enrollments) != 0 {
		t.Errorf("state = %+v, want empty", st)
	}
}

func TestLoadOrdersEntries(t *testing.T) {
	s := memory.New()
	apply(t, s,
		ledger.EntryChange{Entry: ledger.Entry{Book: ledger.Settlement, Account: "bob", Currency: "usd", Amount: 1}},
		ledger.EntryChange{Entry: ledger.Entry{Book: ledger.Settlement, Account: "alice", Currency: "usd", Amount: 2}},
		ledger.EntryChange{Entry: ledger.Entry{Book: ledger.Enrollment, Account: "zed", Currency: "usd", Amount: 3}},
	)

	st, _ := s.Load(context.Background())
	want := []string{"zed", "alice", "bob"}
	if len(st.Entries) != len(want) {
		t.Fatalf("entries = %d, want %d", len(st.Entries), len(want))
	}
	for i, account := range want {
		if string(st.Entries[i].Account) != account {
			t.Errorf("[%d] = %s, want %s", i, st.Entries[i].Account, account)
		}
	}
}

func TestReceipts(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	first := &receipt.Receipt{ID: id.NewSettlementID(), Kind: receipt.KindSettlement, Account: "bob", Holder: "alice", Distributor: "acme", Total: 10}
	second := &receipt.Receipt{ID: id.NewWithdrawalID(), Kind: receipt.KindWithdrawal, Account: "alice", Total: 8}
	apply(t, s, receipt.Change{Receipt: first}, receipt.Change{Receipt: second})

	got, err := s.GetReceipt(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetReceipt: %v", err)
	}
	got.Total = 999
	again, _ := s.GetReceipt(ctx, first.ID)
	if again.Total != 10 {
		t.Errorf("stored receipt mutated through returned copy")
	}

	if _, err := s.GetReceipt(ctx, id.NewRefundID()); !errors.Is(err, rights.ErrReceiptNotFound) {
		t.Errorf("err = %v, want ErrReceiptNotFound", err)
	}

	tests := []struct {
		name string
		opts receipt.ListOpts
		want []id.ReceiptID
	}{
		{"newest first", receipt.ListOpts{}, []id.ReceiptID{second.ID, first.ID}},
		{"holder is a party", receipt.ListOpts{Account: "alice"}, []id.ReceiptID{second.ID, first.ID}},
		{"distributor is a party", receipt.ListOpts{Account: "acme"}, []id.ReceiptID{first.ID}},
		{"by kind", receipt.ListOpts{Kind: receipt.KindSettlement}, []id.ReceiptID{first.ID}},
		{"offset past end", receipt.ListOpts{Offset: 5}, nil},
		{"limit and offset", receipt.ListOpts{Limit: 1, Offset: 1}, []id.ReceiptID{first.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListReceipts(ctx, tt.opts)
			if err != nil {
				t.Fatalf("ListReceipts: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID.String() != tt.want[i].String() {
					t.Errorf("[%d] = %s, want %s", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}

func TestClosedStore(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, rights.ErrStoreClosed) {
		t.Errorf("Ping err = %v, want ErrStoreClosed", err)
	}
	if _, err := s.Begin(ctx); !errors.Is(err, rights.ErrStoreClosed) {
		t.Errorf("Begin err = %v, want ErrStoreClosed", err)
	}
}
