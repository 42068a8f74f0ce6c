// Package observability provides a metrics extension for rights that records
// lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/rights/access"
	"github.com/xraph/rights/ownership"
	"github.com/xraph/rights/plugin"
	"github.com/xraph/rights/quorum"
	"github.com/xraph/rights/receipt"
	"github.com/xraph/rights/treasury"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnInit              = (*MetricsExtension)(nil)
	_ plugin.OnEnrollment        = (*MetricsExtension)(nil)
	_ plugin.OnContentRegistered = (*MetricsExtension)(nil)
	_ plugin.OnCustodyDelegated  = (*MetricsExtension)(nil)
	_ plugin.OnPolicySetup       = (*MetricsExtension)(nil)
	_ plugin.OnFeeChanged        = (*MetricsExtension)(nil)
	_ plugin.OnSettled           = (*MetricsExtension)(nil)
	_ plugin.OnWithdrawn         = (*MetricsExtension)(nil)
	_ plugin.OnDeposit           = (*MetricsExtension)(nil)
	_ plugin.OnAccessChecked     = (*MetricsExtension)(nil)
	_ plugin.OnCallFailed        = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a rights plugin to track enrollment and money movement.
type MetricsExtension struct {
	factory MetricFactory

	// Enrollment metrics
	DistributorRegistered Counter
	DistributorApproved   Counter
	DistributorRejected   Counter
	DistributorQuit       Counter
	PolicyApproved        Counter
	ContentApproved       Counter
	ContentRejected       Counter

	// Content metrics
	ContentRegistered Counter
	CustodyDelegated  Counter
	PolicySetups      Counter
	FeeChanges        Counter

	// Money movement metrics
	Settlements      Counter
	SettlementAmount Histogram
	DistributorFees  Counter
	TreasuryFees     Counter
	Withdrawals      Counter
	WithdrawalAmount Histogram
	Deposits         Counter
	Refunds          Counter

	// Access metrics
	AccessChecks  Counter
	AccessAllowed Counter
	AccessDenied  Counter

	// Error metrics
	CallFailures Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use NewPrometheusFactory for a Prometheus registry.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		DistributorRegistered: factory.Counter("rights.distributor.registered"),
		DistributorApproved:   factory.Counter("rights.distributor.approved"),
		DistributorRejected:   factory.Counter("rights.distributor.rejected"),
		DistributorQuit:       factory.Counter("rights.distributor.quit"),
		PolicyApproved:        factory.Counter("rights.policy.approved"),
		ContentApproved:       factory.Counter("rights.content.approved"),
		ContentRejected:       factory.Counter("rights.content.rejected"),

		ContentRegistered: factory.Counter("rights.content.registered"),
		CustodyDelegated:  factory.Counter("rights.custody.delegated"),
		PolicySetups:      factory.Counter("rights.policy.setups"),
		FeeChanges:        factory.Counter("rights.fee.changes"),

		Settlements:      factory.Counter("rights.settlement.completed"),
		SettlementAmount: factory.Histogram("rights.settlement.amount"),
		DistributorFees:  factory.Counter("rights.settlement.distributor_fee"),
		TreasuryFees:     factory.Counter("rights.settlement.treasury_fee"),
		Withdrawals:      factory.Counter("rights.withdrawal.completed"),
		WithdrawalAmount: factory.Histogram("rights.withdrawal.amount"),
		Deposits:         factory.Counter("rights.deposit.received"),
		Refunds:          factory.Counter("rights.deposit.refunded"),

		AccessChecks:  factory.Counter("rights.access.checks"),
		AccessAllowed: factory.Counter("rights.access.allowed"),
		AccessDenied:  factory.Counter("rights.access.denied"),

		CallFailures: factory.Counter("rights.call.failed"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Enrollment hooks
// ──────────────────────────────────────────────────

// OnEnrollment implements plugin.OnEnrollment.
func (m *MetricsExtension) OnEnrollment(_ context.Context, ev plugin.EnrollmentEvent) error {
	if c := m.enrollmentCounter(ev.Domain, ev.Op); c != nil {
		c.Inc()
	}
	return nil
}

func (m *MetricsExtension) enrollmentCounter(domain quorum.Domain, op quorum.Op) Counter {
	switch domain {
	case quorum.Distributors:
		switch op {
		case quorum.OpRegister:
			return m.DistributorRegistered
		case quorum.OpApprove:
			return m.DistributorApproved
		case quorum.OpReject:
			return m.DistributorRejected
		case quorum.OpQuit:
			return m.DistributorQuit
		}
	case quorum.Policies:
		if op == quorum.OpApprove {
			return m.PolicyApproved
		}
	case quorum.Contents:
		switch op {
		case quorum.OpApprove:
			return m.ContentApproved
		case quorum.OpReject:
			return m.ContentRejected
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Content and policy hooks
// ──────────────────────────────────────────────────

// OnContentRegistered implements plugin.OnContentRegistered.
func (m *MetricsExtension) OnContentRegistered(_ context.Context, _ ownership.Record) error {
	m.ContentRegistered.Inc()
	return nil
}

// OnCustodyDelegated implements plugin.OnCustodyDelegated.
func (m *MetricsExtension) OnCustodyDelegated(_ context.Context, _ ownership.Record) error {
	m.CustodyDelegated.Inc()
	return nil
}

// OnPolicySetup implements plugin.OnPolicySetup.
func (m *MetricsExtension) OnPolicySetup(_ context.Context, _ plugin.SetupEvent) error {
	m.PolicySetups.Inc()
	return nil
}

// OnFeeChanged implements plugin.OnFeeChanged.
func (m *MetricsExtension) OnFeeChanged(_ context.Context, _ treasury.Rate) error {
	m.FeeChanges.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Money movement hooks
// ──────────────────────────────────────────────────

// OnSettled implements plugin.OnSettled.
func (m *MetricsExtension) OnSettled(_ context.Context, r *receipt.Receipt) error {
	m.Settlements.Inc()
	m.SettlementAmount.Observe(float64(r.Total))
	m.DistributorFees.Add(float64(r.DistributorFee))
	m.TreasuryFees.Add(float64(r.TreasuryFee))
	return nil
}

// OnWithdrawn implements plugin.OnWithdrawn.
func (m *MetricsExtension) OnWithdrawn(_ context.Context, r *receipt.Receipt) error {
	m.Withdrawals.Inc()
	m.WithdrawalAmount.Observe(float64(r.Total))
	return nil
}

// OnDeposit implements plugin.OnDeposit.
func (m *MetricsExtension) OnDeposit(_ context.Context, r *receipt.Receipt) error {
	if r.Kind == receipt.KindRefund {
		m.Refunds.Inc()
		return nil
	}
	m.Deposits.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Access and failure hooks
// ──────────────────────────────────────────────────

// OnAccessChecked implements plugin.OnAccessChecked.
func (m *MetricsExtension) OnAccessChecked(_ context.Context, result *access.Result) error {
	m.AccessChecks.Inc()
	if result.Allowed {
		m.AccessAllowed.Inc()
	} else {
		m.AccessDenied.Inc()
	}
	return nil
}

// OnCallFailed implements plugin.OnCallFailed.
func (m *MetricsExtension) OnCallFailed(_ context.Context, _ string, _ error) error {
	m.CallFailures.Inc()
	return nil
}
