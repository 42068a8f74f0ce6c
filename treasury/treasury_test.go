package treasury_test

import (
	"errors"
	"testing"

	"github.com/xraph/rights/fees"
	"github.com/xraph/rights/journal"
	"github.com/xraph/rights/treasury"
	"github.com/xraph/rights/types"
)

func TestSetAndGetFee(t *testing.T) {
	tr := treasury.New("platform", treasury.NewRates(nil))

	if _, err := tr.GetFee("usd"); !errors.Is(err, treasury.ErrUnsupportedCurrency) {
		t.Fatalf("GetFee on unset currency: got %v", err)
	}

	tests := []struct {
		name string
		bps  uint64
		err  error
	}{
		{"zero rejected", 0, fees.ErrInvalidBPS},
		{"above max rejected", fees.MaxBPS + 1, fees.ErrInvalidBPS},
		{"min", 1, nil},
		{"max", fees.MaxBPS, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tr.SetFee("usd", tt.bps)
			if !errors.Is(err, tt.err) {
				t.Fatalf("SetFee(%d): got %v, want %v", tt.bps, err, tt.err)
			}
			if tt.err != nil {
				return
			}
			got, err := tr.GetFee("usd")
			if err != nil || got != tt.bps {
				t.Errorf("GetFee = %d, %v", got, err)
			}
		})
	}

	if !tr.IsSupported("usd") {
		t.Error("usd should be allowlisted")
	}
	tr.RemoveCurrency("usd")
	if tr.IsSupported("usd") {
		t.Error("usd should be removed")
	}
}

func TestSetFeePercent(t *testing.T) {
	tr := treasury.New("platform", treasury.NewRates(nil))
	if err := tr.SetFeePercent(types.Native, 5); err != nil {
		t.Fatal(err)
	}
	if got, _ := tr.GetFee(types.Native); got != 500 {
		t.Errorf("GetFee = %d, want 500", got)
	}
	if err := tr.SetFeePercent(types.Native, 101); !errors.Is(err, fees.ErrInvalidPercent) {
		t.Errorf("got %v", err)
	}
}

func TestRatesAreSubjectScoped(t *testing.T) {
	rates := treasury.NewRates(nil)
	tr := treasury.New("platform", rates)
	_ = tr.SetFee("usd", 100)
	_ = rates.Set("dist-a", "eur", 250)

	if rates.Supports("dist-a", "usd") {
		t.Error("distributor inherited treasury currency")
	}
	if got := tr.Currencies(); len(got) != 1 || got[0] != "usd" {
		t.Errorf("Currencies = %v", got)
	}
	if n := len(rates.All()); n != 2 {
		t.Errorf("All = %d rows", n)
	}
}

func TestRollback(t *testing.T) {
	j := journal.New()
	tr := treasury.New("platform", treasury.NewRates(j))
	_ = tr.SetFee("usd", 100)

	_ = j.Begin()
	_ = tr.SetFee("usd", 900)
	_ = tr.SetFee("eur", 50)
	tr.RemoveCurrency("usd")
	j.Rollback()

	if got, err := tr.GetFee("usd"); err != nil || got != 100 {
		t.Errorf("usd fee after rollback = %d, %v", got, err)
	}
	if tr.IsSupported("eur") {
		t.Error("eur survived rollback")
	}
}
