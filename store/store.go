// Package store defines the persistence contract of the rights engine.
//
// The engine keeps its working state in memory and persists each committed
// call as one change set inside a backend transaction. On start it
// hydrates itself from Load.
package store

import (
	"context"
	"fmt"

	"github.com/xraph/rights/access"
	"github.com/xraph/rights/journal"
	"github.com/xraph/rights/ledger"
	"github.com/xraph/rights/ownership"
	"github.com/xraph/rights/policy"
	"github.com/xraph/rights/quorum"
	"github.com/xraph/rights/receipt"
	"github.com/xraph/rights/treasury"
)

// Store is the unified storage interface for rights state.
type Store interface {
	// Begin opens a transaction for one change set.
	Begin(ctx context.Context) (Tx, error)
	// Load reads the full engine state.
	Load(ctx context.Context) (*State, error)

	// Receipt methods
	receipt.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx applies one change set atomically.
type Tx interface {
	Apply(ctx context.Context, changes []journal.Change) error
	Commit() error
	Rollback() error
}

// State is a full snapshot of persisted engine state.
type State struct {
	Entries     []ledger.Entry       `json:"entries"`
	Enrollments []quorum.Record      `json:"enrollments"`
	Rates       []treasury.Rate      `json:"rates"`
	Contents    []ownership.Record   `json:"contents"`
	Terms       []policy.TermsRecord `json:"terms"`
	Grants      []access.Grant       `json:"grants"`
}

// Visitor receives each typed change of a change set.
type Visitor struct {
	Entry   func(ledger.Entry) error
	Status  func(quorum.Record) error
	Rate    func(treasury.Rate) error
	Content func(ownership.Record) error
	Terms   func(policy.TermsRecord) error
	Grant   func(access.Grant) error
	Receipt func(*receipt.Receipt) error
}

// Visit dispatches every change to the matching Visitor function. Unknown
// change kinds are an error so that no change is silently dropped.
func Visit(changes []journal.Change, v Visitor) error {
	for _, c := range changes {
		var err error
		switch ch := c.(type) {
		case ledger.EntryChange:
			err = v.Entry(ch.Entry)
		case quorum.StatusChange:
			err = v.Status(ch.Record)
		case treasury.RateChange:
			err = v.Rate(ch.Rate)
		case ownership.RecordChange:
			err = v.Content(ch.Record)
		case policy.TermsChange:
			err = v.Terms(ch.TermsRecord)
		case access.GrantChange:
			err = v.Grant(ch.Grant)
		case receipt.Change:
			err = v.Receipt(ch.Receipt)
		default:
			err = fmt.Errorf("store: unknown change kind %q", c.Kind())
		}
		if err != nil {
			return err
		}
	}
	return nil
}
