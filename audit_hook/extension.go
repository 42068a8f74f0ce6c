// Package audithook bridges rights lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/rights/access"
	"github.com/xraph/rights/ownership"
	"github.com/xraph/rights/plugin"
	"github.com/xraph/rights/quorum"
	"github.com/xraph/rights/receipt"
	"github.com/xraph/rights/treasury"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnEnrollment        = (*Extension)(nil)
	_ plugin.OnContentRegistered = (*Extension)(nil)
	_ plugin.OnCustodyDelegated  = (*Extension)(nil)
	_ plugin.OnPolicySetup       = (*Extension)(nil)
	_ plugin.OnFeeChanged        = (*Extension)(nil)
	_ plugin.OnSettled           = (*Extension)(nil)
	_ plugin.OnWithdrawn         = (*Extension)(nil)
	_ plugin.OnDeposit           = (*Extension)(nil)
	_ plugin.OnAccessChecked     = (*Extension)(nil)
	_ plugin.OnAccessRevoked     = (*Extension)(nil)
	_ plugin.OnCallFailed        = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly. Callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges rights lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Enrollment hooks
// ──────────────────────────────────────────────────

var enrollmentResources = map[quorum.Domain]string{
	quorum.Distributors: ResourceDistributor,
	quorum.Policies:     ResourcePolicy,
	quorum.Contents:     ResourceContent,
}

// OnEnrollment implements plugin.OnEnrollment. Rejections are warnings.
func (e *Extension) OnEnrollment(ctx context.Context, ev plugin.EnrollmentEvent) error {
	severity := SeverityInfo
	if ev.Op == quorum.OpReject {
		severity = SeverityWarning
	}
	return e.record(ctx, string(ev.Domain)+"."+string(ev.Op), severity, OutcomeSuccess,
		enrollmentResources[ev.Domain], ev.Subject, CategoryEnrollment, nil,
		"from", ev.From.String(),
		"to", ev.To.String(),
		"actor", string(ev.Actor),
	)
}

// ──────────────────────────────────────────────────
// Content and policy hooks
// ──────────────────────────────────────────────────

// OnContentRegistered implements plugin.OnContentRegistered.
func (e *Extension) OnContentRegistered(ctx context.Context, rec ownership.Record) error {
	return e.record(ctx, ActionContentRegistered, SeverityInfo, OutcomeSuccess,
		ResourceContent, rec.ContentID.String(), CategoryContent, nil,
		"holder", string(rec.Holder),
	)
}

// OnCustodyDelegated implements plugin.OnCustodyDelegated.
func (e *Extension) OnCustodyDelegated(ctx context.Context, rec ownership.Record) error {
	return e.record(ctx, ActionCustodyDelegated, SeverityInfo, OutcomeSuccess,
		ResourceContent, rec.ContentID.String(), CategoryContent, nil,
		"holder", string(rec.Holder),
		"custodian", string(rec.Custodian),
	)
}

// OnPolicySetup implements plugin.OnPolicySetup.
func (e *Extension) OnPolicySetup(ctx context.Context, ev plugin.SetupEvent) error {
	return e.record(ctx, ActionPolicySetup, SeverityInfo, OutcomeSuccess,
		ResourcePolicy, ev.Policy, CategoryPricing, nil,
		"holder", string(ev.Holder),
		"content_id", ev.ContentID.String(),
		"currency", string(ev.Terms.Currency),
		"price", ev.Terms.Price,
		"duration", ev.Terms.Duration.String(),
	)
}

// OnFeeChanged implements plugin.OnFeeChanged.
func (e *Extension) OnFeeChanged(ctx context.Context, rate treasury.Rate) error {
	action := ActionFeeChanged
	if rate.BPS == 0 {
		action = ActionFeeRemoved
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceFee, string(rate.Subject), CategoryPricing, nil,
		"currency", string(rate.Currency),
		"bps", rate.BPS,
	)
}

// ──────────────────────────────────────────────────
// Money movement hooks
// ──────────────────────────────────────────────────

// OnSettled implements plugin.OnSettled.
func (e *Extension) OnSettled(ctx context.Context, r *receipt.Receipt) error {
	return e.record(ctx, ActionSettled, SeverityInfo, OutcomeSuccess,
		ResourceReceipt, r.ID.String(), CategoryPayment, nil,
		"policy", r.Policy,
		"account", string(r.Account),
		"holder", string(r.Holder),
		"distributor", string(r.Distributor),
		"content_id", r.ContentID.String(),
		"amount", r.Amount().String(),
		"distributor_fee", r.DistributorFee,
		"treasury_fee", r.TreasuryFee,
	)
}

// OnWithdrawn implements plugin.OnWithdrawn.
func (e *Extension) OnWithdrawn(ctx context.Context, r *receipt.Receipt) error {
	return e.record(ctx, ActionWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourceReceipt, r.ID.String(), CategoryPayment, nil,
		"account", string(r.Account),
		"amount", r.Amount().String(),
	)
}

// OnDeposit implements plugin.OnDeposit.
func (e *Extension) OnDeposit(ctx context.Context, r *receipt.Receipt) error {
	action := ActionDeposited
	if r.Kind == receipt.KindRefund {
		action = ActionRefunded
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceReceipt, r.ID.String(), CategoryPayment, nil,
		"account", string(r.Account),
		"amount", r.Amount().String(),
	)
}

// ──────────────────────────────────────────────────
// Access and failure hooks
// ──────────────────────────────────────────────────

// OnAccessChecked implements plugin.OnAccessChecked.
// Only denied checks are audited to reduce noise.
func (e *Extension) OnAccessChecked(ctx context.Context, result *access.Result) error {
	if result.Allowed {
		return nil
	}
	return e.record(ctx, ActionAccessDenied, SeverityWarning, OutcomeFailure,
		ResourceAccess, result.ContentID.String(), CategoryAccess, nil,
		"policy", result.Policy,
		"account", string(result.Account),
		"reason", result.Reason,
	)
}

// OnAccessRevoked implements plugin.OnAccessRevoked.
func (e *Extension) OnAccessRevoked(ctx context.Context, g access.Grant) error {
	return e.record(ctx, ActionAccessRevoked, SeverityInfo, OutcomeSuccess,
		ResourceAccess, g.Subject.ContentID.String(), CategoryAccess, nil,
		"policy", g.Policy,
		"account", string(g.Account),
	)
}

// OnCallFailed implements plugin.OnCallFailed.
func (e *Extension) OnCallFailed(ctx context.Context, op string, err error) error {
	return e.record(ctx, ActionCallFailed, SeverityError, OutcomeFailure,
		ResourceCall, op, CategorySystem, err,
		"op", op,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
