package observability_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/rights/access"
	"github.com/xraph/rights/observability"
	"github.com/xraph/rights/plugin"
	"github.com/xraph/rights/quorum"
	"github.com/xraph/rights/receipt"
)

type counter struct{ n float64 }

func (c *counter) Inc()          { c.n++ }
func (c *counter) Add(v float64) { c.n += v }

type histogram struct{ obs []float64 }

func (h *histogram) Observe(v float64) { h.obs = append(h.obs, v) }

type factory struct {
	counters   map[string]*counter
	histograms map[string]*histogram
}

func newFactory() *factory {
	return &factory{counters: map[string]*counter{}, histograms: map[string]*histogram{}}
}

func (f *factory) Counter(name string) observability.Counter {
	c := &counter{}
	f.counters[name] = c
	return c
}

func (f *factory) Histogram(name string) observability.Histogram {
	h := &histogram{}
	f.histograms[name] = h
	return h
}

func TestEnrollmentCounters(t *testing.T) {
	ctx := context.Background()
	f := newFactory()
	m := observability.NewMetricsExtension(f)

	events := []plugin.EnrollmentEvent{
		{Domain: quorum.Distributors, Op: quorum.OpRegister},
		{Domain: quorum.Distributors, Op: quorum.OpApprove},
		{Domain: quorum.Distributors, Op: quorum.OpQuit},
		{Domain: quorum.Contents, Op: quorum.OpReject},
		{Domain: quorum.Policies, Op: quorum.OpRegister},
	}
	for _, ev := range events {
		if err := m.OnEnrollment(ctx, ev); err != nil {
			t.Fatalf("OnEnrollment: %v", err)
		}
	}

	tests := []struct {
		name string
		want float64
	}{
		{"rights.distributor.registered", 1},
		{"rights.distributor.approved", 1},
		{"rights.distributor.quit", 1},
		{"rights.distributor.rejected", 0},
		{"rights.content.rejected", 1},
		{"rights.policy.approved", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.counters[tt.name].n; got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestMoneyCounters(t *testing.T) {
	ctx := context.Background()
	f := newFactory()
	m := observability.NewMetricsExtension(f)

	_ = m.OnSettled(ctx, &receipt.Receipt{Kind: receipt.KindSettlement, Total: 1000, DistributorFee: 100, TreasuryFee: 9})
	_ = m.OnWithdrawn(ctx, &receipt.Receipt{Kind: receipt.KindWithdrawal, Total: 500})
	_ = m.OnDeposit(ctx, &receipt.Receipt{Kind: receipt.KindDeposit, Total: 100})
	_ = m.OnDeposit(ctx, &receipt.Receipt{Kind: receipt.KindRefund, Total: 100})

	if got := f.counters["rights.settlement.completed"].n; got != 1 {
		t.Errorf("settlements = %v, want 1", got)
	}
	if got := f.counters["rights.settlement.distributor_fee"].n; got != 100 {
		t.Errorf("distributor fees = %v, want 100", got)
	}
	if got := f.counters["rights.settlement.treasury_fee"].n; got != 9 {
		t.Errorf("treasury fees = %v, want 9", got)
	}
	if got := f.histograms["rights.withdrawal.amount"].obs; len(got) != 1 || got[0] != 500 {
		t.Errorf("withdrawal amounts = %v", got)
	}
	if f.counters["rights.deposit.received"].n != 1 || f.counters["rights.deposit.refunded"].n != 1 {
		t.Errorf("deposits = %v, refunds = %v",
			f.counters["rights.deposit.received"].n, f.counters["rights.deposit.refunded"].n)
	}
}

func TestAccessAndFailureCounters(t *testing.T) {
	ctx := context.Background()
	f := newFactory()
	m := observability.NewMetricsExtension(f)

	_ = m.OnAccessChecked(ctx, &access.Result{Allowed: true})
	_ = m.OnAccessChecked(ctx, &access.Result{Allowed: false})
	_ = m.OnAccessChecked(ctx, &access.Result{Allowed: false})
	_ = m.OnCallFailed(ctx, "settle", errors.New("boom"))

	if got := f.counters["rights.access.checks"].n; got != 3 {
		t.Errorf("checks = %v, want 3", got)
	}
	if got := f.counters["rights.access.denied"].n; got != 2 {
		t.Errorf("denied = %v, want 2", got)
	}
	if got := f.counters["rights.call.failed"].n; got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}
}

func TestPrometheusFactory(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))

	_ = m.OnSettled(context.Background(), &receipt.Receipt{Total: 250, DistributorFee: 25})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	values := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				values[mf.GetName()] = c.GetValue()
			}
			if h := metric.GetHistogram(); h != nil {
				values[mf.GetName()] = h.GetSampleSum()
			}
		}
	}

	tests := []struct {
		name string
		want float64
	}{
		{"rights_settlement_completed", 1},
		{"rights_settlement_distributor_fee", 25},
		{"rights_settlement_amount", 250},
		{"rights_withdrawal_completed", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := values[tt.name]
			if !ok {
				t.Fatalf("metric %s not registered", tt.name)
			}
			if got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestPrometheusFactoryReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))

	// A second factory on the same registry must not panic or fail.
	m := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))
	_ = m.OnCallFailed(context.Background(), "withdraw", errors.New("boom"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "rights_call_failed" {
			if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 1 {
				t.Errorf("rights_call_failed = %v, want 1", got)
			}
			return
		}
	}
	t.Fatal("rights_call_failed not registered")
}
