// Package plugin provides lifecycle hooks into the rights engine.
// Plugins implement any subset of the hook interfaces; the registry
// discovers them by type assertion at registration time.
package plugin

import (
	"context"

	"github.com/xraph/rights/access"
	"github.com/xraph/rights/ownership"
	"github.com/xraph/rights/policy"
	"github.com/xraph/rights/quorum"
	"github.com/xraph/rights/receipt"
	"github.com/xraph/rights/treasury"
	"github.com/xraph/rights/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Enrollment hooks
// ──────────────────────────────────────────────────

// EnrollmentEvent describes a committed enrollment transition.
type EnrollmentEvent struct {
	Domain  quorum.Domain `json:"domain"`
	Subject string        `json:"subject"`
	Key     quorum.Key    `json:"key"`
	Op      quorum.Op     `json:"op"`
	From    quorum.Status `json:"from"`
	To      quorum.Status `json:"to"`
	Actor   types.Account `json:"actor"`
}

// OnEnrollment is called after a distributor, policy or content transition commits.
type OnEnrollment interface {
	Plugin
	OnEnrollment(ctx context.Context, ev EnrollmentEvent) error
}

// ──────────────────────────────────────────────────
// Content and policy hooks
// ──────────────────────────────────────────────────

// OnContentRegistered is called when a holder registers content.
type OnContentRegistered interface {
	Plugin
	OnContentRegistered(ctx context.Context, rec ownership.Record) error
}

// OnCustodyDelegated is called when a holder hands custody to a distributor.
type OnCustodyDelegated interface {
	Plugin
	OnCustodyDelegated(ctx context.Context, rec ownership.Record) error
}

// SetupEvent describes terms a holder set on a policy.
type SetupEvent struct {
	Policy    string          `json:"policy"`
	Holder    types.Account   `json:"holder"`
	ContentID types.ContentID `json:"content_id"`
	Terms     policy.Terms    `json:"terms"`
}

// OnPolicySetup is called after a holder's terms are stored.
type OnPolicySetup interface {
	Plugin
	OnPolicySetup(ctx context.Context, ev SetupEvent) error
}

// OnFeeChanged is called when a treasury or distributor rate changes.
// A zero BPS means the currency was removed.
type OnFeeChanged interface {
	Plugin
	OnFeeChanged(ctx context.Context, rate treasury.Rate) error
}

// ──────────────────────────────────────────────────
// Money movement hooks
// ──────────────────────────────────────────────────

// OnSettled is called after a settlement commits.
type OnSettled interface {
	Plugin
	OnSettled(ctx context.Context, r *receipt.Receipt) error
}

// OnWithdrawn is called after a withdrawal commits.
type OnWithdrawn interface {
	Plugin
	OnWithdrawn(ctx context.Context, r *receipt.Receipt) error
}

// OnDeposit is called after an enrollment deposit or refund commits.
type OnDeposit interface {
	Plugin
	OnDeposit(ctx context.Context, r *receipt.Receipt) error
}

// ──────────────────────────────────────────────────
// Access and failure hooks
// ──────────────────────────────────────────────────

// OnAccessChecked is called for every access check.
type OnAccessChecked interface {
	Plugin
	OnAccessChecked(ctx context.Context, result *access.Result) error
}

// OnAccessRevoked is called after an allow-list grant is revoked.
type OnAccessRevoked interface {
	Plugin
	OnAccessRevoked(ctx context.Context, grant access.Grant) error
}

// OnCallFailed is called when an engine call is rolled back.
type OnCallFailed interface {
	Plugin
	OnCallFailed(ctx context.Context, op string, err error) error
}
