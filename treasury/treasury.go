// Package treasury holds the platform fee schedule and the allowlist of
// currencies the platform settles in.
package treasury

import (
	"github.com/xraph/rights/fees"
	"github.com/xraph/rights/types"
)

// Treasury is the platform's fee subject. Its fees are credited to Account.
type Treasury struct {
	account types.Account
	rates   *Rates
}

// New creates a treasury that stores its schedule in rates.
func New(account types.Account, rates *Rates) *Treasury {
	return &Treasury{account: account, rates: rates}
}

// Account returns the account treasury fees are credited to.
func (t *Treasury) Account() types.Account { return t.account }

// SetFee sets the platform fee for currency and allowlists it. Callers
// enforce privilege.
func (t *Treasury) SetFee(currency types.Currency, bps uint64) error {
	return t.rates.Set(t.account, currency, bps)
}

// SetFeePercent sets the platform fee from a nominal percentage.
func (t *Treasury) SetFeePercent(currency types.Currency, percent uint64) error {
	if err := fees.ValidatePercent(percent); err != nil {
		return err
	}
	return t.SetFee(currency, fees.CalcBps(percent))
}

// GetFee returns the platform fee for currency.
func (t *Treasury) GetFee(currency types.Currency) (uint64, error) {
	return t.rates.Get(t.account, currency)
}

// RemoveCurrency drops currency from the allowlist.
func (t *Treasury) RemoveCurrency(currency types.Currency) {
	t.rates.Unset(t.account, currency)
}

// IsSupported reports whether the platform settles in currency.
func (t *Treasury) IsSupported(currency types.Currency) bool {
	return t.rates.Supports(t.account, currency)
}

// Currencies lists the allowlisted currencies.
func (t *Treasury) Currencies() []types.Currency {
	return t.rates.Currencies(t.account)
}
