package rental_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/xraph/rights/ledger"
	"github.com/xraph/rights/ownership"
	"github.com/xraph/rights/policy"
	"github.com/xraph/rights/policy/rental"
	"github.com/xraph/rights/types"
)

const (
	engine types.Account   = "engine"
	studio types.Account   = "studio"
	alice  types.Account   = "alice"
	film   types.ContentID = 9
)

func setup(t *testing.T) (*rental.Policy, *ledger.Ledger, *time.Time) {
	t.Helper()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	l := ledger.New(ledger.Settlement, nil)
	owners := ownership.NewBook(nil)
	if err := owners.Register(film, studio, nil); err != nil {
		t.Fatal(err)
	}

	p := rental.New(policy.Env{
		Orchestrator: engine,
		Ledger:       l,
		Ownership:    owners,
		Clock:        func() time.Time { return now },
	})
	err := p.Setup(context.Background(), engine, studio, film, policy.Terms{Currency: "usd", Price: 300, Duration: 48 * time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	return p, l, &now
}

func TestHolderMismatchLeavesLedgerUnchanged(t *testing.T) {
	p, l, _ := setup(t)
	l.SetEntry(studio, "usd", 5)
	before := l.Entries()

	err := p.Exec(context.Background(), engine, policy.Agreement{
		Account: alice, Holder: "forger", ContentID: film, Currency: "usd", Units: 1, Total: 300, Available: 300,
	})
	if !errors.Is(err, policy.ErrHolderMismatch) {
		t.Fatalf("got %v, want ErrHolderMismatch", err)
	}
	if after := l.Entries(); !reflect.DeepEqual(before, after) {
		t.Errorf("ledger changed: %+v -> %+v", before, after)
	}
	if p.Comply(alice, film) {
		t.Error("forged agreement granted access")
	}
}

func TestRent(t *testing.T) {
	p, l, now := setup(t)

	err := p.Exec(context.Background(), engine, policy.Agreement{
		Account: alice, Holder: studio, ContentID: film, Currency: "usd", Units: 2, Total: 600, Available: 540,
	})
	if err != nil {
		t.Fatal(err)
	}
	if l.Read(studio, "usd") != 540 {
		t.Errorf("holder credit = %d", l.Read(studio, "usd"))
	}

	*now = now.Add(95 * time.Hour)
	if !p.Comply(alice, film) {
		t.Error("rental expired early")
	}
	*now = now.Add(2 * time.Hour)
	if p.Comply(alice, film) {
		t.Error("rental outlived its terms")
	}
}

func TestSetupChecksHolder(t *testing.T) {
	p, _, _ := setup(t)
	terms := policy.Terms{Currency: "usd", Price: 1, Duration: time.Hour}

	if err := p.Setup(context.Background(), engine, alice, film, terms); !errors.Is(err, policy.ErrHolderMismatch) {
		t.Errorf("setup by non-holder: %v", err)
	}
	if err := p.Setup(context.Background(), engine, studio, 0, terms); !errors.Is(err, policy.ErrInvalidTerms) {
		t.Errorf("setup without content: %v", err)
	}
	if err := p.Setup(context.Background(), engine, studio, 404, terms); !errors.Is(err, ownership.ErrUnknownContent) {
		t.Errorf("setup on unknown content: %v", err)
	}
}
