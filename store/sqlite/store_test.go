package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/xraph/rights"
	"github.com/xraph/rights/access"
	"github.com/xraph/rights/id"
	"github.com/xraph/rights/journal"
	"github.com/xraph/rights/ledger"
	"github.com/xraph/rights/ownership"
	"github.com/xraph/rights/policy"
	"github.com/xraph/rights/quorum"
	"github.com/xraph/rights/receipt"
	"github.com/xraph/rights/store/sqlite"
	"github.com/xraph/rights/treasury"
	"github.com/xraph/rights/types"
)

func open(t *testing.T) *sqlite.Store {
	t.Helper()
	ctx := context.Background()

	s, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "rights.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func apply(t *testing.T, s *sqlite.Store, changes ...journal.Change) {
	t.Helper()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := tx.Apply(ctx, changes); err != nil {
		_ = tx.Rollback()
		t.Fatalf("Apply: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestApplyAndLoad(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	apply(t, s,
		ledger.EntryChange{Entry: ledger.Entry{Book: ledger.Settlement, Account: "alice", Currency: "usd", Amount: 850}},
		ledger.EntryChange{Entry: ledger.Entry{Book: ledger.Enrollment, Account: "acme", Currency: "usd", Amount: 100}},
		quorum.StatusChange{Record: quorum.Record{Domain: quorum.Distributors, Key: quorum.AccountKey("acme"), Status: quorum.Active}},
		treasury.RateChange{Rate: treasury.Rate{Subject: "acme", Currency: "usd", BPS: 1000}},
		ownership.RecordChange{Record: ownership.Record{ContentID: 42, Holder: "alice", Custodian: "acme", Payload: []byte("ipfs://x")}},
		policy.TermsChange{TermsRecord: policy.TermsRecord{
			Policy: "gated", Holder: "alice", ContentID: 42,
			Terms: policy.Terms{Currency: "usd", Price: 10, Duration: time.Hour, Gate: &policy.Gate{Asset: "nft", MinBalance: 1}},
		}},
		access.GrantChange{Grant: access.Grant{Policy: "rental", Account: "bob", Subject: access.ContentSubject(42), Expiry: expiry}},
		access.GrantChange{Grant: access.Grant{Policy: "gated", Account: "carol", Subject: access.ContentSubject(42), Permanent: true}},
	)

	st, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(st.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(st.Entries))
	}
	if st.Entries[0].Book != ledger.Enrollment || st.Entries[0].Amount != 100 {
		t.Errorf("entries[0] = %+v", st.Entries[0])
	}
	if len(st.Enrollments) != 1 || st.Enrollments[0].Status != quorum.Active {
		t.Errorf("enrollments = %+v", st.Enrollments)
	}
	if len(st.Rates) != 1 || st.Rates[0].BPS != 1000 {
		t.Errorf("rates = %+v", st.Rates)
	}
	if len(st.Contents) != 1 || st.Contents[0].Custodian != "acme" || string(st.Contents[0].Payload) != "ipfs://x" {
		t.Errorf("contents = %+v", st.Contents)
	}
	if len(st.Terms) != 1 {
		t.Fatalf("terms = %+v", st.Terms)
	}
	if g := st.Terms[0].Terms.Gate; g == nil || g.Asset != "nft" || g.MinBalance != 1 {
		t.Errorf("gate = %+v", g)
	}
	if st.Terms[0].Terms.Duration != time.Hour {
		t.Errorf("duration = %v", st.Terms[0].Terms.Duration)
	}
	if len(st.Grants) != 2 {
		t.Fatalf("grants = %+v", st.Grants)
	}
	for _, g := range st.Grants {
		switch g.Account {
		case "bob":
			if !g.Expiry.Equal(expiry) {
				t.Errorf("bob expiry = %v, want %v", g.Expiry, expiry)
			}
		case "carol":
			if !g.Permanent {
				t.Error("carol grant should be permanent")
			}
		}
	}
}

func TestApplyDeletesZeroRows(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	entry := ledger.Entry{Book: ledger.Settlement, Account: "alice", Currency: "usd", Amount: 5}
	status := quorum.Record{Domain: quorum.Policies, Key: quorum.KeyOf("rental"), Status: quorum.Waiting}
	rate := treasury.Rate{Subject: "treasury", Currency: "usd", BPS: 200}
	apply(t, s, ledger.EntryChange{Entry: entry}, quorum.StatusChange{Record: status}, treasury.RateChange{Rate: rate})

	entry.Amount = 0
	status.Status = quorum.Pending
	rate.BPS = 0
	apply(t, s, ledger.EntryChange{Entry: entry}, quorum.StatusChange{Record: status}, treasury.RateChange{Rate: rate})

	st, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(st.Entries) != 0 || len(st.Enrollments) != 0 || len(st.Rates) != 0 {
		t.Errorf("state = %+v, want empty", st)
	}
}

func TestRollbackDiscardsChanges(t *testing.T) {
	s := open(t)
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
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	st, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(st.Entries) != 0 {
		t.Errorf("entries = %+v, want none", st.Entries)
	}
}

func TestReceipts(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	settled := &receipt.Receipt{
		Entity:      types.EntityAt(base),
		ID:          id.NewSettlementID(),
		Kind:        receipt.KindSettlement,
		AgreementID: id.NewAgreementID(),
		Policy:      "rental",
		Account:     "bob",
		Holder:      "alice",
		Distributor: "acme",
		ContentID:   42,
		Currency:    "usd",
		Units:       1,
		Total:       1000,

		DistributorFee: 100,
		TreasuryFee:    50,
		HolderShare:    850,
	}
	withdrawn := &receipt.Receipt{
		Entity:   types.EntityAt(base.Add(time.Minute)),
		ID:       id.NewWithdrawalID(),
		Kind:     receipt.KindWithdrawal,
		Account:  "alice",
		Currency: "usd",
		Total:    850,
	}
	deposit := &receipt.Receipt{
		Entity:   types.EntityAt(base.Add(2 * time.Minute)),
		ID:       id.NewDepositID(),
		Kind:     receipt.KindDeposit,
		Account:  "acme",
		Currency: "usd",
		Total:    100,
	}
	apply(t, s, receipt.Change{Receipt: settled}, receipt.Change{Receipt: withdrawn}, receipt.Change{Receipt: deposit})

	t.Run("get", func(t *testing.T) {
		got, err := s.GetReceipt(ctx, settled.ID)
		if err != nil {
			t.Fatalf("GetReceipt: %v", err)
		}
		if got.AgreementID.String() != settled.AgreementID.String() {
			t.Errorf("agreement = %s, want %s", got.AgreementID, settled.AgreementID)
		}
		if got.HolderShare != 850 || got.ContentID != 42 || !got.CreatedAt.Equal(base) {
			t.Errorf("receipt = %+v", got)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.GetReceipt(ctx, id.NewRefundID())
		if !errors.Is(err, rights.ErrReceiptNotFound) {
			t.Errorf("err = %v, want ErrReceiptNotFound", err)
		}
	})

	tests := []struct {
		name string
		opts receipt.ListOpts
		want []id.ReceiptID
	}{
		{"all newest first", receipt.ListOpts{}, []id.ReceiptID{deposit.ID, withdrawn.ID, settled.ID}},
		{"by kind", receipt.ListOpts{Kind: receipt.KindWithdrawal}, []id.ReceiptID{withdrawn.ID}},
		{"by party", receipt.ListOpts{Account: "alice"}, []id.ReceiptID{withdrawn.ID, settled.ID}},
		{"distributor is a party", receipt.ListOpts{Account: "acme"}, []id.ReceiptID{deposit.ID, settled.ID}},
		{"kind and party", receipt.ListOpts{Kind: receipt.KindSettlement, Account: "alice"}, []id.ReceiptID{settled.ID}},
		{"limit", receipt.ListOpts{Limit: 1}, []id.ReceiptID{deposit.ID}},
		{"offset without limit", receipt.ListOpts{Offset: 2}, []id.ReceiptID{settled.ID}},
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

func TestMigrateIsIdempotent(t *testing.T) {
	s := open(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
