package policy

import (
	"fmt"
	"time"

	"github.com/xraph/rights/access"
	"github.com/xraph/rights/asset"
	"github.com/xraph/rights/journal"
	"github.com/xraph/rights/ledger"
	"github.com/xraph/rights/ownership"
	"github.com/xraph/rights/types"
)

// Env is what the orchestrator hands a policy at construction.
type Env struct {
	// Orchestrator is the only caller Setup and Exec accept.
	Orchestrator types.Account
	// Ledger receives the holder's share on Exec.
	Ledger *ledger.Ledger
	// Ownership resolves content to its holder.
	Ownership ownership.Registry
	// Assets is consulted by gated policies.
	Assets asset.Transferer
	// Journal records the policy's mutations.
	Journal *journal.Journal
	// Clock defaults to time.Now.
	Clock Clock
}

// State is the persisted state of one policy.
type State struct {
	Terms  []TermsRecord  `json:"terms"`
	Grants []access.Grant `json:"grants"`
}

// Stateful is implemented by policies whose state the engine persists.
type Stateful interface {
	State() State
	Restore(State)
}

// Base carries what every built-in policy shares. Variants embed it and add
// Setup, Exec and Comply.
type Base struct {
	name        string
	description string
	env         Env
	terms       *TermsBook
	grants      *access.Book
}

// NewBase creates the shared part of a policy named name.
func NewBase(name, description string, env Env) *Base {
	if env.Clock == nil {
		env.Clock = time.Now
	}
	return &Base{
		name:        name,
		description: description,
		env:         env,
		terms:       NewTermsBook(name, env.Journal),
		grants:      access.NewBook(name, env.Journal),
	}
}

// Name implements Policy.
func (b *Base) Name() string { return b.name }

// Description implements Policy.
func (b *Base) Description() string { return b.description }

// Env returns the construction environment.
func (b *Base) Env() Env { return b.env }

// Now reads the policy clock.
func (b *Base) Now() time.Time { return b.env.Clock() }

// Grants returns the policy's access grants.
func (b *Base) Grants() *access.Book { return b.grants }

// TermsBook returns the policy's stored terms.
func (b *Base) TermsBook() *TermsBook { return b.terms }

// Authorize rejects every caller but the orchestrator.
func (b *Base) Authorize(caller types.Account) error {
	if caller.IsZero() || caller != b.env.Orchestrator {
		return fmt.Errorf("%w: %s called %s", ErrUnauthorizedCaller, caller, b.name)
	}
	return nil
}

// CheckHolder verifies that holder is the recorded holder of contentID.
func (b *Base) CheckHolder(holder types.Account, contentID types.ContentID) error {
	recorded, err := b.env.Ownership.OwnerOf(contentID)
	if err != nil {
		return err
	}
	if recorded != holder {
		return fmt.Errorf("%w: content %s is held by %s, agreement names %s",
			ErrHolderMismatch, contentID, recorded, holder)
	}
	return nil
}

// CheckPayment validates a against t before any state changes.
func (b *Base) CheckPayment(a Agreement, t Terms) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.Currency != t.Currency {
		return fmt.Errorf("%w: %s accepts %s, got %s", ErrUnsupportedCurrency, b.name, t.Currency, a.Currency)
	}
	gross, err := t.Gross(a.Units)
	if err != nil {
		return err
	}
	if a.Total < gross.Amount {
		return fmt.Errorf("%w: %d %s for %d units, need %d",
			ErrInsufficientPayment, a.Total, a.Currency, a.Units, gross.Amount)
	}
	return nil
}

// Credit credits the holder's share of a.
func (b *Base) Credit(a Agreement) error {
	return b.env.Ledger.Increase(a.Holder, a.Currency, a.Available)
}

// State implements Stateful.
func (b *Base) State() State {
	return State{Terms: b.terms.All(), Grants: b.grants.All()}
}

// Restore implements Stateful.
func (b *Base) Restore(s State) {
	b.terms.Restore(s.Terms)
	b.grants.Restore(s.Grants)
}

// AccessUntil returns the expiry of account's live timed grant on subject.
func (b *Base) AccessUntil(account types.Account, subject access.Subject) (time.Time, bool) {
	g, ok := b.grants.Get(account, subject)
	if !ok || g.Permanent || !g.ValidAt(b.Now()) {
		return time.Time{}, false
	}
	return g.Expiry, true
}
