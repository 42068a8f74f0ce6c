// Package rights provides a content rights-management and monetization
// engine for Go applications.
//
// Rights is designed as a library, not a service. Import it directly into your
// Go application. It provides:
//
//   - Pluggable settlement policies (subscription, rental, gated access)
//   - Basis-point fee splits between holder, distributor and treasury
//   - Enrollment workflows for distributors, policies and content
//   - Pull-based payouts from an internal ledger
//   - Atomic calls: any failure undoes every mutation of the call
//   - Persistence through grove (SQLite, PostgreSQL, MongoDB)
//
// # Quick Start
//
// Create an engine with your preferred store and the policies you offer:
//
//	import (
//	    "github.com/xraph/rights"
//	    "github.com/xraph/rights/policy"
//	    "github.com/xraph/rights/policy/rental"
//	    "github.com/xraph/rights/store/sqlite"
//	)
//
//	s, err := sqlite.Open(ctx, "rights.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	e := rights.New(s,
//	    rights.WithAdmin("ops"),
//	    rights.WithPolicy(func(env policy.Env) policy.Policy { return rental.New(env) }),
//	)
//	if err := e.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Stop()
//
// # Core Concepts
//
// Distributors, policies and content each pass through an enrollment
// workflow: Pending, Waiting, then Active or Blocked. The admin approves.
//
//	_ = e.RegisterDistributor(ctx, "acme")
//	_ = e.ApproveDistributor(ctx, "ops", "acme")
//
// Holders register content, hand custody to a distributor and publish terms:
//
//	_ = e.RegisterContent(ctx, "alice", 42, nil)
//	_ = e.DelegateCustody(ctx, "alice", 42, "acme")
//	_ = e.SetupPolicy(ctx, "alice", "rental", 42, policy.Terms{
//	    Currency: "usd", Price: 500, Duration: 48 * time.Hour,
//	})
//
// Consumers settle, and every party later withdraws its share:
//
//	r, err := e.Settle(ctx, rights.SettleRequest{
//	    Policy: "rental", Account: "bob", ContentID: 42, Units: 1,
//	})
//	_, err = e.Withdraw(ctx, "alice", "usd", 0)
//
// # Amounts
//
// All amounts are unsigned integers in the smallest unit of their currency.
// Fees are basis points: 10000 bps is 100%. Rounding dust goes to the holder.
//
// # TypeID
//
// Receipts use TypeID for globally unique, type-safe identifiers:
//
//	stl_01h2xcejqtf2nbrexx3vqjhp41  // Settlement receipt
//	wd_01h2xcejqtf2nbrexx3vqjhp41   // Withdrawal receipt
//	agr_01h455vb4pex5vsknk084sn02q  // Agreement
package rights
