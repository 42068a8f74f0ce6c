package rights_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/rights"
	"github.com/xraph/rights/asset"
	"github.com/xraph/rights/policy"
	"github.com/xraph/rights/policy/subscription"
	"github.com/xraph/rights/store/memory"
	"github.com/xraph/rights/types"
)

// TestDocumentationExamples verifies that the package documentation flow works.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		ctx := context.Background()

		// In-memory assets; production deployments plug in their own transfer backend.
		assets := asset.NewBook()

		e := rights.New(memory.New(),
			rights.WithLogger(slog.Default()),
			rights.WithAdmin("ops"),
			rights.WithAssets(assets),
			rights.WithPolicy(func(env policy.Env) policy.Policy { return subscription.New(env) }),
		)
		if err := e.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer e.Stop()

		// Native currency needs no allowance.
		steps := []func() error{
			func() error { return e.SetTreasuryFeePercent(ctx, "ops", rights.Native, 2) },
			func() error { return e.RegisterDistributor(ctx, "acme") },
			func() error { return e.ApproveDistributor(ctx, "ops", "acme") },
			func() error { return e.SetDistributorFee(ctx, "acme", rights.Native, 800) },
			func() error { return e.RegisterPolicy(ctx, subscription.Name) },
			func() error { return e.ApprovePolicy(ctx, "ops", subscription.Name) },
			func() error { return e.RegisterContent(ctx, "alice", 7, nil) },
			func() error { return e.ApproveContent(ctx, "ops", 7) },
			func() error { return e.DelegateCustody(ctx, "alice", 7, "acme") },
			func() error {
				return e.SetupPolicy(ctx, "alice", subscription.Name, 0, policy.Terms{
					Currency: rights.Native,
					Price:    100,
					Duration: 30 * 24 * time.Hour,
				})
			},
		}
		for i, step := range steps {
			if err := step(); err != nil {
				t.Fatalf("step %d: %v", i, err)
			}
		}

		if err := assets.Mint(rights.Native, "bob", 300); err != nil {
			t.Fatal(err)
		}
		q, err := e.Quote(subscription.Name, 7, 3)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("3 months cost %s\n", q.Gross)

		r, err := e.Settle(ctx, rights.SettleRequest{
			Policy:    subscription.Name,
			Account:   "bob",
			ContentID: 7,
			Units:     3,
		})
		if err != nil {
			t.Fatal(err)
		}
		// 8% distributor, 2% treasury, remainder to the holder.
		if r.DistributorFee != 24 || r.TreasuryFee != 6 || r.HolderShare != 270 {
			t.Errorf("split: %+v", r)
		}

		res, err := e.Access(ctx, "bob", subscription.Name, 7)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Allowed {
			t.Fatalf("access denied: %s", res.Reason)
		}

		if _, err := e.Withdraw(ctx, "alice", rights.Native, 0); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("MoneyExamples", func(t *testing.T) {
		m := rights.NewMoney(4900, "usd")
		if m.FormatMajor() != "49.00" {
			t.Errorf("FormatMajor: %s", m.FormatMajor())
		}
		if _, err := m.Add(types.NewMoney(1, rights.Native)); err == nil {
			t.Error("expected currency mismatch")
		}
	})
}
