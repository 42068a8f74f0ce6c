// Package distributor models vetted third parties that take custody of
// content and charge their own per-currency fee on settlements.
package distributor

import (
	"errors"
	"fmt"

	"github.com/xraph/rights/quorum"
	"github.com/xraph/rights/treasury"
	"github.com/xraph/rights/types"
)

// ErrNotActive is returned when a distributor is not approved.
var ErrNotActive = errors.New("distributor: not active")

// Record is what settlement needs to know about a distributor.
type Record interface {
	Account() types.Account
	GetFeeRate(currency types.Currency) (uint64, error)
	IsCurrencySupported(currency types.Currency) bool
}

// Distributor is a snapshot of one distributor's enrollment and fee schedule.
type Distributor struct {
	account types.Account
	status  quorum.Status
	rates   *treasury.Rates
}

// Account returns the distributor's account.
func (d *Distributor) Account() types.Account { return d.account }

// Status returns the enrollment status at lookup time.
func (d *Distributor) Status() quorum.Status { return d.status }

// Active reports whether the distributor was approved and not revoked.
func (d *Distributor) Active() bool { return d.status == quorum.Active }

// GetFeeRate returns the distributor's fee in currency.
func (d *Distributor) GetFeeRate(currency types.Currency) (uint64, error) {
	return d.rates.Get(d.account, currency)
}

// IsCurrencySupported reports whether the distributor settles in currency.
func (d *Distributor) IsCurrencySupported(currency types.Currency) bool {
	return d.rates.Supports(d.account, currency)
}

// Currencies lists the currencies the distributor settles in.
func (d *Distributor) Currencies() []types.Currency {
	return d.rates.Currencies(d.account)
}

// Directory joins the onboarding machine with the fee schedule.
type Directory struct {
	machine *quorum.Machine
	rates   *treasury.Rates
}

// NewDirectory creates a directory over an onboarding machine and a rate registry.
func NewDirectory(machine *quorum.Machine, rates *treasury.Rates) *Directory {
	return &Directory{machine: machine, rates: rates}
}

// Machine returns the onboarding workflow.
func (d *Directory) Machine() *quorum.Machine { return d.machine }

// Get returns the distributor for account in whatever state it is in.
func (d *Directory) Get(account types.Account) *Distributor {
	return &Distributor{
		account: account,
		status:  d.machine.Status(quorum.AccountKey(account)),
		rates:   d.rates,
	}
}

// Active returns account's record if it is approved.
func (d *Directory) Active(account types.Account) (*Distributor, error) {
	dist := d.Get(account)
	if !dist.Active() {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotActive, account, dist.status)
	}
	return dist, nil
}

// SetFee sets an approved distributor's rate for currency.
func (d *Directory) SetFee(account types.Account, currency types.Currency, bps uint64) error {
	if _, err := d.Active(account); err != nil {
		return err
	}
	return d.rates.Set(account, currency, bps)
}

// RemoveCurrency stops an approved distributor settling in currency.
func (d *Directory) RemoveCurrency(account types.Account, currency types.Currency) error {
	if _, err := d.Active(account); err != nil {
		return err
	}
	d.rates.Unset(account, currency)
	return nil
}
