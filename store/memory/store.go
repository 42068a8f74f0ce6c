// Package memory is an in-process Store. It keeps the persisted snapshot in
// maps and is meant for tests and single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/rights"
	"github.com/xraph/rights/access"
	"github.com/xraph/rights/id"
	"github.com/xraph/rights/journal"
	"github.com/xraph/rights/ledger"
	"github.com/xraph/rights/ownership"
	"github.com/xraph/rights/policy"
	"github.com/xraph/rights/quorum"
	"github.com/xraph/rights/receipt"
	"github.com/xraph/rights/store"
	"github.com/xraph/rights/treasury"
	"github.com/xraph/rights/types"
)

type entryKey struct {
	book     ledger.Book
	account  types.Account
	currency types.Currency
}

type enrollmentKey struct {
	domain quorum.Domain
	key    quorum.Key
}

type rateKey struct {
	subject  types.Account
	currency types.Currency
}

type termsKey struct {
	policy    string
	holder    types.Account
	contentID types.ContentID
}

type grantKey struct {
	policy  string
	account types.Account
	subject access.Subject
}

// Store is the in-memory backend.
type Store struct {
	mu sync.RWMutex

	entries     map[entryKey]ledger.Entry
	enrollments map[enrollmentKey]quorum.Record
	rates       map[rateKey]treasury.Rate
	contents    map[types.ContentID]ownership.Record
	terms       map[termsKey]policy.TermsRecord
	grants      map[grantKey]access.Grant

	receipts []*receipt.Receipt
	closed   bool
}

// New creates an empty store.
func New() *Store {
	return &Store{
		entries:     make(map[entryKey]ledger.Entry),
		enrollments: make(map[enrollmentKey]quorum.Record),
		rates:       make(map[rateKey]treasury.Rate),
		contents:    make(map[types.ContentID]ownership.Record),
		terms:       make(map[termsKey]policy.TermsRecord),
		grants:      make(map[grantKey]access.Grant),
	}
}

var _ store.Store = (*Store)(nil)

// ──────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────

type tx struct {
	s       *Store
	pending []journal.Change
	done    bool
}

// Begin implements store.Store.
func (s *Store) Begin(_ context.Context) (store.Tx, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, rights.ErrStoreClosed
	}
	return &tx{s: s}, nil
}

func (t *tx) Apply(_ context.Context, changes []journal.Change) error {
	if t.done {
		return rights.ErrTransactionFailed
	}
	t.pending = append(t.pending, changes...)
	return nil
}

func (t *tx) Commit() error {
	if t.done {
		return rights.ErrTransactionFailed
	}
	t.done = true
	return t.s.apply(t.pending)
}

func (t *tx) Rollback() error {
	t.done = true
	t.pending = nil
	return nil
}

func (s *Store) apply(changes []journal.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return rights.ErrStoreClosed
	}

	return store.Visit(changes, store.Visitor{
		Entry: func(e ledger.Entry) error {
			k := entryKey{e.Book, e.Account, e.Currency}
			if e.Amount == 0 {
				delete(s.entries, k)
			} else {
				s.entries[k] = e
			}
			return nil
		},
		Status: func(r quorum.Record) error {
			k := enrollmentKey{r.Domain, r.Key}
			if r.Status == quorum.Pending {
				delete(s.enrollments, k)
			} else {
				s.enrollments[k] = r
			}
			return nil
		},
		Rate: func(r treasury.Rate) error {
			k := rateKey{r.Subject, r.Currency}
			if r.BPS == 0 {
				delete(s.rates, k)
			} else {
				s.rates[k] = r
			}
			return nil
		},
		Content: func(r ownership.Record) error {
			s.contents[r.ContentID] = r
			return nil
		},
		Terms: func(r policy.TermsRecord) error {
			s.terms[termsKey{r.Policy, r.Holder, r.ContentID}] = r
			return nil
		},
		Grant: func(g access.Grant) error {
			s.grants[grantKey{g.Policy, g.Account, g.Subject}] = g
			return nil
		},
		Receipt: func(r *receipt.Receipt) error {
			cp := *r
			s.receipts = append(s.receipts, &cp)
			return nil
		},
	})
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// Load implements store.Store.
func (s *Store) Load(_ context.Context) (*store.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &store.State{}
	for _, e := range s.entries {
		st.Entries = append(st.Entries, e)
	}
	for _, r := range s.enrollments {
		st.Enrollments = append(st.Enrollments, r)
	}
	for _, r := range s.rates {
		st.Rates = append(st.Rates, r)
	}
	for _, r := range s.contents {
		st.Contents = append(st.Contents, r)
	}
	for _, r := range s.terms {
		st.Terms = append(st.Terms, r)
	}
	for _, g := range s.grants {
		st.Grants = append(st.Grants, g)
	}

	sort.Slice(st.Entries, func(i, j int) bool {
		a, b := st.Entries[i], st.Entries[j]
		if a.Book != b.Book {
			return a.Book < b.Book
		}
		if a.Account != b.Account {
			return a.Account < b.Account
		}
		return a.Currency < b.Currency
	})
	sort.Slice(st.Enrollments, func(i, j int) bool {
		a, b := st.Enrollments[i], st.Enrollments[j]
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		return a.Key < b.Key
	})
	return st, nil
}

// GetReceipt implements receipt.Store.
func (s *Store) GetReceipt(_ context.Context, receiptID id.ReceiptID) (*receipt.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.receipts {
		if r.ID.String() == receiptID.String() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, rights.ErrReceiptNotFound
}

// ListReceipts implements receipt.Store. Newest receipts come first.
func (s *Store) ListReceipts(_ context.Context, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*receipt.Receipt, 0)
	for i := len(s.receipts) - 1; i >= 0; i-- {
		if opts.Match(s.receipts[i]) {
			cp := *s.receipts[i]
			result = append(result, &cp)
		}
	}

	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}
	return result[start:end], nil
}

// ──────────────────────────────────────────────────
// Core
// ──────────────────────────────────────────────────

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return rights.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
