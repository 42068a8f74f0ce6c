package gated_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/rights/asset"
	"github.com/xraph/rights/ledger"
	"github.com/xraph/rights/ownership"
	"github.com/xraph/rights/policy"
	"github.com/xraph/rights/policy/gated"
	"github.com/xraph/rights/types"
)

const (
	engine types.Account   = "engine"
	studio types.Account   = "studio"
	track  types.ContentID = 3
)

func newPolicy(t *testing.T, assets *asset.Book, terms policy.Terms) *gated.Policy {
	t.Helper()
	owners := ownership.NewBook(nil)
	if err := owners.Register(track, studio, nil); err != nil {
		t.Fatal(err)
	}
	p := gated.New(policy.Env{
		Orchestrator: engine,
		Ledger:       ledger.New(ledger.Settlement, nil),
		Ownership:    owners,
		Assets:       assets,
	})
	if err := p.Setup(context.Background(), engine, studio, track, terms); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCriteria(t *testing.T) {
	assets := asset.NewBook()
	_ = assets.Mint("fan-token", "whale", 10)
	_ = assets.Mint("fan-token", "minnow", 9)

	p := newPolicy(t, assets, policy.Terms{Gate: &policy.Gate{
		Asset:      "fan-token",
		MinBalance: 10,
		Allow:      []types.Account{"friend"},
	}})

	tests := []struct {
		account types.Account
		want    bool
	}{
		{"whale", true},
		{"minnow", false},
		{"friend", true},
		{"stranger", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.account), func(t *testing.T) {
			if got := p.Comply(tt.account, track); got != tt.want {
				t.Errorf("Comply = %v, want %v", got, tt.want)
			}
		})
	}

	ctx := context.Background()
	if _, err := p.Revoke(ctx, studio, studio, track, "friend"); !errors.Is(err, policy.ErrUnauthorizedCaller) {
		t.Errorf("Revoke by holder directly: got %v, want ErrUnauthorizedCaller", err)
	}
	if _, err := p.Revoke(ctx, engine, "mallory", track, "friend"); !errors.Is(err, policy.ErrHolderMismatch) {
		t.Errorf("Revoke for non-holder: got %v, want ErrHolderMismatch", err)
	}
	if _, err := p.Revoke(ctx, engine, studio, track, "stranger"); !errors.Is(err, policy.ErrNoGrant) {
		t.Errorf("Revoke without grant: got %v, want ErrNoGrant", err)
	}
	g, err := p.Revoke(ctx, engine, studio, track, "friend")
	if err != nil || !g.Revoked {
		t.Fatalf("Revoke = %+v, %v", g, err)
	}
	if p.Comply("friend", track) {
		t.Error("removed account still complies")
	}

	terms, err := p.Terms(studio, track)
	if err != nil || terms.Gate == nil || len(terms.Gate.Allow) != 0 {
		t.Errorf("stored terms should not carry the allow-list: %+v, %v", terms, err)
	}
}

func TestPaidTier(t *testing.T) {
	free := newPolicy(t, asset.NewBook(), policy.Terms{Gate: &policy.Gate{Allow: []types.Account{"friend"}}})
	a := policy.Agreement{Account: "buyer", Holder: studio, ContentID: track, Currency: "usd", Units: 1, Total: 50, Available: 50}
	if err := free.Exec(context.Background(), engine, a); !errors.Is(err, policy.ErrInvalidTerms) {
		t.Errorf("Exec without paid tier: %v", err)
	}
	if _, err := free.Assess(studio, track, 1); !errors.Is(err, policy.ErrInvalidTerms) {
		t.Errorf("Assess without paid tier: %v", err)
	}

	paid := newPolicy(t, asset.NewBook(), policy.Terms{
		Currency: "usd", Price: 50, Duration: time.Hour,
		Gate: &policy.Gate{Allow: []types.Account{"friend"}},
	})
	if err := paid.Exec(context.Background(), engine, a); err != nil {
		t.Fatal(err)
	}
	if !paid.Comply("buyer", track) {
		t.Error("paid tier did not grant access")
	}
}

func TestInvalidGates(t *testing.T) {
	owners := ownership.NewBook(nil)
	_ = owners.Register(track, studio, nil)
	p := gated.New(policy.Env{Orchestrator: engine, Ownership: owners})

	bad := []policy.Terms{
		{},
		{Gate: &policy.Gate{}},
		{Gate: &policy.Gate{Asset: "fan-token"}},
		{Price: 10, Gate: &policy.Gate{Allow: []types.Account{"friend"}}},
	}
	for _, terms := range bad {
		if err := p.Setup(context.Background(), engine, studio, track, terms); !errors.Is(err, policy.ErrInvalidTerms) {
			t.Errorf("Setup(%+v) = %v", terms, err)
		}
	}
}
