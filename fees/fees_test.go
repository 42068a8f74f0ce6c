package fees_test

import (
	"errors"
	"math"
	"testing"

	"github.com/xraph/rights/fees"
)

func TestPerOf(t *testing.T) {
	tests := []struct {
		name   string
		amount uint64
		bps    uint64
		want   uint64
	}{
		{"full rate", 12345, 10_000, 12345},
		{"five percent", 1000, 500, 50},
		{"floors", 999, 1, 0},
		{"floors mid", 19999, 5000, 9999},
		{"zero amount", 0, 500, 0},
		{"zero bps returns amount", 777, 0, 777},
		{"clamped", 100, 20_000, 100},
		{"max amount full", math.MaxUint64, 10_000, math.MaxUint64},
		{"max amount half", math.MaxUint64, 5_000, math.MaxUint64 / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fees.PerOf(tt.amount, tt.bps); got != tt.want {
				t.Errorf("PerOf(%d, %d) = %d, want %d", tt.amount, tt.bps, got, tt.want)
			}
		})
	}
}

func TestPerOfIdentity(t *testing.T) {
	for _, amount := range []uint64{0, 1, 2, 9999, 10_000, 10_001, 1 << 40, math.MaxUint64 - 1, math.MaxUint64} {
		if got := fees.PerOf(amount, fees.MaxBPS); got != amount {
			t.Errorf("PerOf(%d, MaxBPS) = %d", amount, got)
		}
		if got := fees.PerOf(amount, 0); got != amount {
			t.Errorf("PerOf(%d, 0) = %d", amount, got)
		}
	}
}

func TestCalcBps(t *testing.T) {
	if got := fees.CalcBps(5); got != 500 {
		t.Errorf("CalcBps(5) = %d", got)
	}
	if got := fees.CalcBps(fees.MaxPercent); got != fees.MaxBPS {
		t.Errorf("CalcBps(100) = %d", got)
	}
}

func TestValidate(t *testing.T) {
	for _, bps := range []uint64{0, fees.MaxBPS + 1} {
		if err := fees.ValidateBPS(bps); !errors.Is(err, fees.ErrInvalidBPS) {
			t.Errorf("ValidateBPS(%d) = %v", bps, err)
		}
	}
	for _, bps := range []uint64{1, fees.MaxBPS} {
		if err := fees.ValidateBPS(bps); err != nil {
			t.Errorf("ValidateBPS(%d) = %v", bps, err)
		}
	}
	if err := fees.ValidatePercent(0); !errors.Is(err, fees.ErrInvalidPercent) {
		t.Errorf("ValidatePercent(0) = %v", err)
	}
	if err := fees.ValidatePercent(101); !errors.Is(err, fees.ErrInvalidPercent) {
		t.Errorf("ValidatePercent(101) = %v", err)
	}
}

func TestSplitOf(t *testing.T) {
	tests := []struct {
		name      string
		total     uint64
		dist, trs uint64
		want      fees.Split
		err       error
	}{
		{"typical", 1000, 1000, 500, fees.Split{Total: 1000, Distributor: 100, Treasury: 50, Holder: 850}, nil},
		{"dust to holder", 101, 1000, 1000, fees.Split{Total: 101, Distributor: 10, Treasury: 10, Holder: 81}, nil},
		{"zero total", 0, 1000, 500, fees.Split{}, nil},
		{"fees exceed", 100, 6000, 5000, fees.Split{}, fees.ErrFeesExceedTotal},
		{"unset distributor rate", 100, 0, 500, fees.Split{}, fees.ErrInvalidBPS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fees.SplitOf(tt.total, tt.dist, tt.trs)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("error: got %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if got.Distributor+got.Treasury+got.Holder != got.Total {
				t.Errorf("split does not conserve total: %+v", got)
			}
		})
	}
}
