package subscription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/rights/ledger"
	"github.com/xraph/rights/ownership"
	"github.com/xraph/rights/policy"
	"github.com/xraph/rights/policy/subscription"
	"github.com/xraph/rights/types"
)

const (
	engine types.Account   = "engine"
	studio types.Account   = "studio"
	alice  types.Account   = "alice"
	film   types.ContentID = 1
	day                    = 24 * time.Hour
)

type fixture struct {
	now    time.Time
	ledger *ledger.Ledger
	policy *subscription.Policy
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ledger: ledger.New(ledger.Settlement, nil),
	}
	owners := ownership.NewBook(nil)
	if err := owners.Register(film, studio, nil); err != nil {
		t.Fatal(err)
	}
	f.policy = subscription.New(policy.Env{
		Orchestrator: engine,
		Ledger:       f.ledger,
		Ownership:    owners,
		Clock:        func() time.Time { return f.now },
	})
	err := f.policy.Setup(context.Background(), engine, studio, 0,
		policy.Terms{Currency: "usd", Price: 100, Duration: 30 * day})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestComplyOverPeriod(t *testing.T) {
	f := newFixture(t)
	start := f.now

	err := f.policy.Exec(context.Background(), engine, policy.Agreement{
		Account: alice, Holder: studio, ContentID: film, Currency: "usd", Units: 1, Total: 100, Available: 100,
	})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"now", start, true},
		{"day 29", start.Add(29 * day), true},
		{"day 31", start.Add(31 * day), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.now = tt.at
			if got := f.policy.Comply(alice, film); got != tt.want {
				t.Errorf("Comply = %v, want %v", got, tt.want)
			}
		})
	}

	if got := f.ledger.Read(studio, "usd"); got != 100 {
		t.Errorf("holder credit = %d", got)
	}
}

func TestExecRejections(t *testing.T) {
	valid := policy.Agreement{Account: alice, Holder: studio, ContentID: film, Currency: "usd", Units: 1, Total: 100, Available: 90}

	tests := []struct {
		name   string
		caller types.Account
		mutate func(*policy.Agreement)
		err    error
	}{
		{"wrong caller", alice, func(*policy.Agreement) {}, policy.ErrUnauthorizedCaller},
		{"underpaid", engine, func(a *policy.Agreement) { a.Total = 99; a.Available = 90 }, policy.ErrInsufficientPayment},
		{"two periods underpaid", engine, func(a *policy.Agreement) { a.Units = 2 }, policy.ErrInsufficientPayment},
		{"wrong currency", engine, func(a *policy.Agreement) { a.Currency = "eur" }, policy.ErrUnsupportedCurrency},
		{"unknown holder", engine, func(a *policy.Agreement) { a.Holder = "nobody" }, policy.ErrNoTerms},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			a := valid
			tt.mutate(&a)

			if err := f.policy.Exec(context.Background(), tt.caller, a); !errors.Is(err, tt.err) {
				t.Fatalf("got %v, want %v", err, tt.err)
			}
			if f.policy.ComplyHolder(alice, studio) {
				t.Error("access granted by a failed Exec")
			}
			if n := len(f.ledger.Entries()); n != 0 {
				t.Errorf("ledger touched by a failed Exec: %d entries", n)
			}
		})
	}
}

func TestRenewalExtends(t *testing.T) {
	f := newFixture(t)
	a := policy.Agreement{Account: alice, Holder: studio, Currency: "usd", Units: 1, Total: 100, Available: 100}
	_ = f.policy.Exec(context.Background(), engine, a)
	f.now = f.now.Add(10 * day)
	_ = f.policy.Exec(context.Background(), engine, a)

	expiry, ok := f.policy.Expiry(alice, studio)
	if !ok {
		t.Fatal("no live subscription")
	}
	want := f.now.Add(-10 * day).Add(60 * day)
	if !expiry.Equal(want) {
		t.Errorf("expiry = %s, want %s", expiry, want)
	}
}

func TestSetupRejectsOutsiders(t *testing.T) {
	f := newFixture(t)
	err := f.policy.Setup(context.Background(), studio, studio, 0, policy.Terms{Currency: "usd", Price: 1, Duration: day})
	if !errors.Is(err, policy.ErrUnauthorizedCaller) {
		t.Errorf("got %v", err)
	}
	if _, err := f.policy.Assess(studio, 0, 3); err != nil {
		t.Errorf("Assess: %v", err)
	}
}
