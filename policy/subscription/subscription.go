// Package subscription sells time-limited access to every content item of
// a holder. Each holder publishes one package: a price per period and the
// period's length.
package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/rights/access"
	"github.com/xraph/rights/policy"
	"github.com/xraph/rights/types"
)

// Name is the default registry name.
const Name = "subscription"

// Policy is the subscription policy.
type Policy struct {
	*policy.Base
}

// Option configures a Policy.
type Option func(*options)

type options struct {
	name        string
	description string
}

// WithName registers the policy under a different name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithDescription overrides the description.
func WithDescription(d string) Option {
	return func(o *options) { o.description = d }
}

// New creates a subscription policy.
func New(env policy.Env, opts ...Option) *Policy {
	o := options{
		name:        Name,
		description: "Time-limited access to every item of a holder for a recurring price.",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Policy{Base: policy.NewBase(o.name, o.description, env)}
}

var (
	_ policy.Policy   = (*Policy)(nil)
	_ policy.Stateful = (*Policy)(nil)
	_ policy.Expirer  = (*Policy)(nil)
)

// Setup stores holder's package. contentID is ignored.
func (p *Policy) Setup(_ context.Context, caller, holder types.Account, _ types.ContentID, terms policy.Terms) error {
	if err := p.Authorize(caller); err != nil {
		return err
	}
	if holder.IsZero() {
		return fmt.Errorf("%w: missing holder", policy.ErrInvalidTerms)
	}
	if err := terms.ValidatePaid(); err != nil {
		return err
	}
	terms.Gate = nil
	p.TermsBook().Put(holder, 0, terms)
	return nil
}

// Exec extends the consumer's access to the holder by the paid number of periods.
func (p *Policy) Exec(_ context.Context, caller types.Account, a policy.Agreement) error {
	if err := p.Authorize(caller); err != nil {
		return err
	}
	terms, err := p.TermsBook().Get(a.Holder, 0)
	if err != nil {
		return err
	}
	if err := p.CheckPayment(a, terms); err != nil {
		return err
	}

	p.Grants().Extend(a.Account, access.HolderSubject(a.Holder), p.Now(), terms.Span(a.Units))
	return p.Credit(a)
}

// Comply reports whether account's subscription to contentID's holder is live.
func (p *Policy) Comply(account types.Account, contentID types.ContentID) bool {
	holder, err := p.Env().Ownership.OwnerOf(contentID)
	if err != nil {
		return false
	}
	return p.ComplyHolder(account, holder)
}

// ComplyHolder reports whether account is subscribed to holder.
func (p *Policy) ComplyHolder(account, holder types.Account) bool {
	return p.Grants().ValidAt(account, access.HolderSubject(holder), p.Now())
}

// Expiry returns when account's subscription to holder lapses.
func (p *Policy) Expiry(account, holder types.Account) (time.Time, bool) {
	return p.AccessUntil(account, access.HolderSubject(holder))
}

// ExpiryOf returns when account's subscription to contentID's holder lapses.
func (p *Policy) ExpiryOf(account types.Account, contentID types.ContentID) (time.Time, bool) {
	holder, err := p.Env().Ownership.OwnerOf(contentID)
	if err != nil {
		return time.Time{}, false
	}
	return p.Expiry(account, holder)
}

// Terms returns holder's package.
func (p *Policy) Terms(holder types.Account, _ types.ContentID) (policy.Terms, error) {
	return p.TermsBook().Get(holder, 0)
}

// Assess returns the price of units periods.
func (p *Policy) Assess(holder types.Account, contentID types.ContentID, units uint64) (types.Money, error) {
	terms, err := p.Terms(holder, contentID)
	if err != nil {
		return types.Money{}, err
	}
	return terms.Gross(units)
}
