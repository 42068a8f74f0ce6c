// Package rental sells time-limited access to a single content item.
package rental

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/rights/access"
	"github.com/xraph/rights/policy"
	"github.com/xraph/rights/types"
)

// Name is the default registry name.
const Name = "rental"

// Policy is the rental policy. Terms are keyed by content item.
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

// New creates a rental policy.
func New(env policy.Env, opts ...Option) *Policy {
	p := &Policy{Base: policy.NewBase(Name, "Time-limited access to one content item.", env)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var (
	_ policy.Policy   = (*Policy)(nil)
	_ policy.Stateful = (*Policy)(nil)
	_ policy.Expirer  = (*Policy)(nil)
)

// Setup stores rental terms for one of holder's items.
func (p *Policy) Setup(_ context.Context, caller, holder types.Account, contentID types.ContentID, terms policy.Terms) error {
	if err := p.Authorize(caller); err != nil {
		return err
	}
	if contentID == 0 {
		return fmt.Errorf("%w: rental terms need a content item", policy.ErrInvalidTerms)
	}
	if err := p.CheckHolder(holder, contentID); err != nil {
		return err
	}
	if err := terms.ValidatePaid(); err != nil {
		return err
	}
	terms.Gate = nil
	p.TermsBook().Put(holder, contentID, terms)
	return nil
}

// Exec rents the item to the consumer. The declared holder is checked
// against the ownership registry before anything else.
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
	if err := p.CheckPayment(a, terms); err != nil {
		return err
	}

	p.Grants().Extend(a.Account, access.ContentSubject(a.ContentID), p.Now(), terms.Span(a.Units))
	return p.Credit(a)
}

// Comply reports whether account's rental of contentID is live.
func (p *Policy) Comply(account types.Account, contentID types.ContentID) bool {
	return p.Grants().ValidAt(account, access.ContentSubject(contentID), p.Now())
}

// ExpiryOf returns when account's rental of contentID lapses.
func (p *Policy) ExpiryOf(account types.Account, contentID types.ContentID) (time.Time, bool) {
	return p.AccessUntil(account, access.ContentSubject(contentID))
}

// Terms returns the rental terms of contentID.
func (p *Policy) Terms(holder types.Account, contentID types.ContentID) (policy.Terms, error) {
	return p.TermsBook().Get(holder, contentID)
}

// Assess returns the price of renting for units periods.
func (p *Policy) Assess(holder types.Account, contentID types.ContentID, units uint64) (types.Money, error) {
	terms, err := p.Terms(holder, contentID)
	if err != nil {
		return types.Money{}, err
	}
	return terms.Gross(units)
}
