// Package gated grants access to accounts that meet criteria: holding
// enough of an external asset, or being on the holder's allow-list.
// Holders can add a paid tier so that other accounts may buy timed access.
package gated

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/rights/access"
	"github.com/xraph/rights/policy"
	"github.com/xraph/rights/types"
)

// Name is the default registry name.
const Name = "gated"

// Policy is the gated-access policy. Terms are keyed by content item.
type Policy struct {
	*policy.Base
}

// Option configures a Policy.
type Option func(*Policy)

// WithName registers the policy under a different name.
func WithName(name string) Option {
	return func(p *Policy) {
		p.Base = policy.NewBase(name, p.Description(), p.Env())
	}
}

// New creates a gated policy.
func New(env policy.Env, opts ...Option) *Policy {
	p := &Policy{Base: policy.NewBase(Name, "Access for asset holders or allow-listed accounts, with an optional paid tier.", env)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var (
	_ policy.Policy   = (*Policy)(nil)
	_ policy.Stateful = (*Policy)(nil)
	_ policy.Expirer  = (*Policy)(nil)
	_ policy.Revoker  = (*Policy)(nil)
)

// Setup stores the gate of one of holder's items and issues permanent
// grants to the allow-list. A price makes a paid tier available.
func (p *Policy) Setup(_ context.Context, caller, holder types.Account, contentID types.ContentID, terms policy.Terms) error {
	if err := p.Authorize(caller); err != nil {
		return err
	}
	if contentID == 0 {
		return fmt.Errorf("%w: gated terms need a content item", policy.ErrInvalidTerms)
	}
	if err := p.CheckHolder(holder, contentID); err != nil {
		return err
	}
	if err := validate(terms); err != nil {
		return err
	}

	subject := access.ContentSubject(contentID)
	for _, account := range terms.Gate.Allow {
		p.Grants().Allow(account, subject)
	}
	p.TermsBook().Put(holder, contentID, terms)
	return nil
}

// Exec sells paid-tier access. Items without a paid tier cannot be settled.
func (p *Policy) Exec(_ context.Context, caller types.Account, a policy.Agreement) error {
	if err := p.Authorize(caller); err != nil {
		return err
	}
	if err := p.CheckHolder(a.Holder, a.ContentID); err != nil {
		return err
	}
	terms, err := p.TermsBook().Get(a.Holder, a.ContentID)
	if err != nil {
		return err
	}
	if !terms.Paid() {
		return fmt.Errorf("%w: content %s has no paid tier", policy.ErrInvalidTerms, a.ContentID)
	}
	if err := p.CheckPayment(a, terms); err != nil {
		return err
	}

	p.Grants().Extend(a.Account, access.ContentSubject(a.ContentID), p.Now(), terms.Span(a.Units))
	return p.Credit(a)
}

// Comply reports whether account meets contentID's gate or bought access.
func (p *Policy) Comply(account types.Account, contentID types.ContentID) bool {
	if p.Grants().ValidAt(account, access.ContentSubject(contentID), p.Now()) {
		return true
	}

	holder, err := p.Env().Ownership.OwnerOf(contentID)
	if err != nil {
		return false
	}
	terms, err := p.TermsBook().Get(holder, contentID)
	if err != nil || terms.Gate == nil || terms.Gate.Asset.IsZero() || p.Env().Assets == nil {
		return false
	}
	balance, err := p.Env().Assets.BalanceOf(context.Background(), terms.Gate.Asset, account)
	return err == nil && balance >= terms.Gate.MinBalance
}

// Revoke removes account from contentID's allow-list. Paid-tier access
// is left to expire.
func (p *Policy) Revoke(_ context.Context, caller, holder types.Account, contentID types.ContentID, account types.Account) (access.Grant, error) {
	if err := p.Authorize(caller); err != nil {
		return access.Grant{}, err
	}
	if err := p.CheckHolder(holder, contentID); err != nil {
		return access.Grant{}, err
	}
	g, ok := p.Grants().Disallow(account, access.ContentSubject(contentID))
	if !ok {
		return access.Grant{}, fmt.Errorf("%w: %s on content %s", policy.ErrNoGrant, account, contentID)
	}
	return g, nil
}

// ExpiryOf returns when account's paid access to contentID lapses.
// Allow-listed and balance-gated access has no expiry.
func (p *Policy) ExpiryOf(account types.Account, contentID types.ContentID) (time.Time, bool) {
	return p.AccessUntil(account, access.ContentSubject(contentID))
}

// Terms returns contentID's gate.
func (p *Policy) Terms(holder types.Account, contentID types.ContentID) (policy.Terms, error) {
	return p.TermsBook().Get(holder, contentID)
}

// Assess returns the paid-tier price of units periods.
func (p *Policy) Assess(holder types.Account, contentID types.ContentID, units uint64) (types.Money, error) {
	terms, err := p.Terms(holder, contentID)
	if err != nil {
		return types.Money{}, err
	}
	if !terms.Paid() {
		return types.Money{}, fmt.Errorf("%w: content %s has no paid tier", policy.ErrInvalidTerms, contentID)
	}
	return terms.Gross(units)
}

func validate(t policy.Terms) error {
	g := t.Gate
	if g == nil {
		return fmt.Errorf("%w: missing gate", policy.ErrInvalidTerms)
	}
	if g.Asset.IsZero() && len(g.Allow) == 0 {
		return fmt.Errorf("%w: gate needs an asset or an allow-list", policy.ErrInvalidTerms)
	}
	if !g.Asset.IsZero() && g.MinBalance == 0 {
		return fmt.Errorf("%w: zero minimum balance", policy.ErrInvalidTerms)
	}
	if t.Paid() {
		return t.ValidatePaid()
	}
	return nil
}
