package policy_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/xraph/rights/journal"
	"github.com/xraph/rights/policy"
	"github.com/xraph/rights/policy/rental"
	"github.com/xraph/rights/policy/subscription"
)

func TestAgreementValidate(t *testing.T) {
	valid := policy.Agreement{Account: "alice", Holder: "studio", Currency: "usd", Units: 1, Total: 10, Available: 9}

	tests := []struct {
		name   string
		mutate func(*policy.Agreement)
		ok     bool
	}{
		{"valid", func(*policy.Agreement) {}, true},
		{"no account", func(a *policy.Agreement) { a.Account = "" }, false},
		{"no holder", func(a *policy.Agreement) { a.Holder = "" }, false},
		{"no currency", func(a *policy.Agreement) { a.Currency = "" }, false},
		{"zero units", func(a *policy.Agreement) { a.Units = 0 }, false},
		{"available above total", func(a *policy.Agreement) { a.Available = 11 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid
			tt.mutate(&a)
			err := a.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, policy.ErrInvalidAgreement) {
				t.Fatalf("got %v, want ErrInvalidAgreement", err)
			}
		})
	}
}

func TestTermsArithmetic(t *testing.T) {
	terms := policy.Terms{Currency: "usd", Price: 100, Duration: time.Hour}

	gross, err := terms.Gross(3)
	if err != nil || gross.Amount != 300 {
		t.Errorf("Gross(3) = %v, %v", gross, err)
	}
	if _, err := (policy.Terms{Currency: "usd", Price: math.MaxUint64}).Gross(2); err == nil {
		t.Error("expected overflow")
	}
	if got := terms.Span(3); got != 3*time.Hour {
		t.Errorf("Span(3) = %s", got)
	}
	if got := terms.Span(math.MaxUint64); got <= 0 {
		t.Errorf("Span saturates, got %s", got)
	}

	bad := []policy.Terms{
		{Price: 1, Duration: time.Hour},
		{Currency: "usd", Duration: time.Hour},
		{Currency: "usd", Price: 1},
	}
	for _, b := range bad {
		if err := b.ValidatePaid(); !errors.Is(err, policy.ErrInvalidTerms) {
			t.Errorf("ValidatePaid(%+v) = %v", b, err)
		}
	}
}

func TestRegistry(t *testing.T) {
	j := journal.New()
	r := policy.NewRegistry(j)
	env := policy.Env{Orchestrator: "engine"}

	if err := r.Register(subscription.New(env)); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(subscription.New(env)); !errors.Is(err, policy.ErrDuplicatePolicy) {
		t.Errorf("duplicate: %v", err)
	}
	if _, err := r.Get("missing"); !errors.Is(err, policy.ErrUnknownPolicy) {
		t.Errorf("Get(missing) = %v", err)
	}

	_ = j.Begin()
	if err := r.Register(rental.New(env, rental.WithName("short-rental"))); err != nil {
		t.Fatal(err)
	}
	if r.Count() != 2 {
		t.Fatalf("Count = %d", r.Count())
	}
	j.Rollback()

	if r.Count() != 1 {
		t.Errorf("Count after rollback = %d", r.Count())
	}
	if names := r.List(); names[0].Name() != subscription.Name {
		t.Errorf("List = %v", names)
	}
}
