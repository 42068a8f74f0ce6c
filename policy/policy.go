// Package policy defines the settlement contract shared by monetization
// policies and the building blocks the built-in policies are made of.
//
// Setup and Exec are privileged: a policy accepts them only from the
// orchestrator it was constructed with, since Exec credits escrowed funds.
// Comply, Terms and Assess are open to anyone and never mutate state.
package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/rights/access"
	"github.com/xraph/rights/id"
	"github.com/xraph/rights/types"
)

var (
	// ErrUnauthorizedCaller is returned when Setup or Exec is called by
	// anyone but the orchestrator.
	ErrUnauthorizedCaller = errors.New("policy: caller is not the orchestrator")
	// ErrInsufficientPayment is returned when the agreement total is below the price.
	ErrInsufficientPayment = errors.New("policy: insufficient payment")
	// ErrUnsupportedCurrency is returned when the agreement currency differs from the terms.
	ErrUnsupportedCurrency = errors.New("policy: unsupported currency")
	// ErrInvalidTerms is returned for zero or inconsistent terms.
	ErrInvalidTerms = errors.New("policy: invalid terms")
	// ErrNoTerms is returned when nothing was set up for a holder or content item.
	ErrNoTerms = errors.New("policy: no terms")
	// ErrHolderMismatch is returned when the declared holder differs from the ownership registry.
	ErrHolderMismatch = errors.New("policy: holder mismatch")
	// ErrNoGrant is returned when there is no allow-list grant to revoke.
	ErrNoGrant = errors.New("policy: no revocable grant")
	// ErrInvalidAgreement is returned for malformed agreements.
	ErrInvalidAgreement = errors.New("policy: invalid agreement")
	// ErrUnknownPolicy is returned by the registry for unregistered names.
	ErrUnknownPolicy = errors.New("policy: unknown policy")
	// ErrDuplicatePolicy is returned by the registry when a name is taken.
	ErrDuplicatePolicy = errors.New("policy: duplicate registration")
)

// Policy is the settlement contract.
type Policy interface {
	Name() string
	Description() string

	// Setup stores terms for holder, or for one of holder's content items.
	Setup(ctx context.Context, caller, holder types.Account, contentID types.ContentID, terms Terms) error
	// Exec settles an agreement: it validates payment against the terms,
	// records access and credits the holder's share.
	Exec(ctx context.Context, caller types.Account, a Agreement) error
	// Comply reports whether account may consume contentID right now.
	Comply(account types.Account, contentID types.ContentID) bool

	// Terms returns the terms that apply to holder's contentID.
	Terms(holder types.Account, contentID types.ContentID) (Terms, error)
	// Assess returns the gross price of units under those terms.
	Assess(holder types.Account, contentID types.ContentID, units uint64) (types.Money, error)
}

// Expirer is implemented by policies whose access lapses. ExpiryOf
// reports false when account has no live grant or the grant is permanent.
type Expirer interface {
	ExpiryOf(account types.Account, contentID types.ContentID) (time.Time, bool)
}

// Revoker is implemented by policies that let a holder revoke allow-list
// grants. Like Setup, Revoke is accepted only from the orchestrator.
type Revoker interface {
	Revoke(ctx context.Context, caller, holder types.Account, contentID types.ContentID, account types.Account) (access.Grant, error)
}

// Agreement is the parameter bundle passed to Exec. Total is gross,
// Available is what remains for the holder after fees.
type Agreement struct {
	ID        id.AgreementID  `json:"id"`
	Account   types.Account   `json:"account"`
	Holder    types.Account   `json:"holder"`
	ContentID types.ContentID `json:"content_id"`
	Currency  types.Currency  `json:"currency"`
	Units     uint64          `json:"units"`
	Total     uint64          `json:"total"`
	Available uint64          `json:"available"`
}

// Validate checks the agreement's internal consistency.
func (a Agreement) Validate() error {
	switch {
	case a.Account.IsZero():
		return fmt.Errorf("%w: missing account", ErrInvalidAgreement)
	case a.Holder.IsZero():
		return fmt.Errorf("%w: missing holder", ErrInvalidAgreement)
	case a.Currency.IsZero():
		return fmt.Errorf("%w: missing currency", ErrInvalidAgreement)
	case a.Units == 0:
		return fmt.Errorf("%w: zero units", ErrInvalidAgreement)
	case a.Available > a.Total:
		return fmt.Errorf("%w: available %d exceeds total %d", ErrInvalidAgreement, a.Available, a.Total)
	}
	return nil
}

// Gate lists the criteria of a gated policy. Accounts holding at least
// MinBalance of Asset, or named in Allow, comply.
type Gate struct {
	Asset      types.Currency  `json:"asset,omitempty"`
	MinBalance uint64          `json:"min_balance,omitempty"`
	Allow      []types.Account `json:"allow,omitempty"`
}

// Terms are the parameters a holder sets for a policy. Price and Duration
// are per unit.
type Terms struct {
	Currency types.Currency `json:"currency"`
	Price    uint64         `json:"price"`
	Duration time.Duration  `json:"duration"`
	Gate     *Gate          `json:"gate,omitempty"`
}

// Paid reports whether the terms carry a price.
func (t Terms) Paid() bool { return t.Price > 0 }

// ValidatePaid checks the terms of a priced policy.
func (t Terms) ValidatePaid() error {
	switch {
	case t.Currency.IsZero():
		return fmt.Errorf("%w: missing currency", ErrInvalidTerms)
	case t.Price == 0:
		return fmt.Errorf("%w: zero price", ErrInvalidTerms)
	case t.Duration <= 0:
		return fmt.Errorf("%w: non-positive duration", ErrInvalidTerms)
	}
	return nil
}

// Gross returns Price × units.
func (t Terms) Gross(units uint64) (types.Money, error) {
	if units == 0 {
		return types.Money{}, fmt.Errorf("%w: zero units", ErrInvalidAgreement)
	}
	return types.NewMoney(t.Price, t.Currency).Mul(units)
}

// Span returns Duration × units, saturating at the largest duration.
func (t Terms) Span(units uint64) time.Duration {
	if units == 0 || t.Duration <= 0 {
		return 0
	}
	const maxDuration = time.Duration(1<<63 - 1)
	if units > uint64(maxDuration/t.Duration) {
		return maxDuration
	}
	return t.Duration * time.Duration(units)
}

// Clock returns the current time. Policies read time only through it.
type Clock func() time.Time
