package distributor_test

import (
	"errors"
	"testing"

	"github.com/xraph/rights/distributor"
	"github.com/xraph/rights/quorum"
	"github.com/xraph/rights/treasury"
)

func TestDirectory(t *testing.T) {
	m := quorum.New(quorum.Distributors, quorum.RevocationTable(), nil)
	dir := distributor.NewDirectory(m, treasury.NewRates(nil))

	if err := dir.SetFee("acme", "usd", 500); !errors.Is(err, distributor.ErrNotActive) {
		t.Fatalf("SetFee before approval: got %v", err)
	}

	key := quorum.AccountKey("acme")
	_ = m.Register(key)
	_ = m.Approve(key)

	if err := dir.SetFee("acme", "usd", 500); err != nil {
		t.Fatalf("SetFee: %v", err)
	}

	d, err := dir.Active("acme")
	if err != nil {
		t.Fatalf("Active: %v", err)
	}

	var rec distributor.Record = d
	if !rec.IsCurrencySupported("usd") || rec.IsCurrencySupported("eur") {
		t.Error("unexpected currency support")
	}
	if bps, err := rec.GetFeeRate("usd"); err != nil || bps != 500 {
		t.Errorf("GetFeeRate = %d, %v", bps, err)
	}
	if _, err := rec.GetFeeRate("eur"); !errors.Is(err, treasury.ErrUnsupportedCurrency) {
		t.Errorf("GetFeeRate(eur) = %v", err)
	}

	_ = dir.RemoveCurrency("acme", "usd")
	if d.IsCurrencySupported("usd") {
		t.Error("usd still supported after removal")
	}

	_ = m.Reject(key)
	if _, err := dir.Active("acme"); !errors.Is(err, distributor.ErrNotActive) {
		t.Errorf("Active after revoke: got %v", err)
	}
}
