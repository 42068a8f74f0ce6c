// Package ledger keeps per-account, per-currency balances.
//
// A Ledger is escrow bookkeeping, not a wallet: it never moves external
// assets, and callers are responsible for matching every external transfer
// with a ledger mutation. Balances are unsigned and never go negative;
// unknown pairs read as zero.
package ledger

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"
	"sync"

	"github.com/xraph/rights/journal"
	"github.com/xraph/rights/types"
)

var (
	// ErrOverflow is returned when an increase would exceed the uint64 range.
	ErrOverflow = errors.New("ledger: balance overflow")
	// ErrInsufficientBalance is returned when a decrease exceeds the balance.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
)

// Book names an independent set of balances.
type Book string

// Books used by the engine.
const (
	// Settlement holds withdrawable credits from settlements and refunds.
	Settlement Book = "settlement"
	// Enrollment holds enrollment deposits while an application is pending.
	Enrollment Book = "enrollment"
)

// Entry is a single balance row.
type Entry struct {
	Book     Book           `json:"book"`
	Account  types.Account  `json:"account"`
	Currency types.Currency `json:"currency"`
	Amount   uint64         `json:"amount"`
}

// EntryChange records the new value of a balance row.
type EntryChange struct {
	Entry
}

// Kind implements journal.Change.
func (EntryChange) Kind() string { return "ledger.entry" }

type key struct {
	account  types.Account
	currency types.Currency
}

// Ledger is one book of balances.
type Ledger struct {
	mu       sync.RWMutex
	book     Book
	balances map[key]uint64
	journal  *journal.Journal
}

// New creates an empty book whose mutations are recorded in j.
func New(book Book, j *journal.Journal) *Ledger {
	return &Ledger{
		book:     book,
		balances: make(map[key]uint64),
		journal:  j,
	}
}

// Book returns the book name.
func (l *Ledger) Book() Book { return l.book }

// Read returns the balance for (account, currency), zero when absent.
func (l *Ledger) Read(account types.Account, currency types.Currency) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[key{account, currency}]
}

// SetEntry overwrites the balance for (account, currency).
func (l *Ledger) SetEntry(account types.Account, currency types.Currency, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.set(key{account, currency}, amount)
}

// Increase adds amount to the balance.
func (l *Ledger) Increase(account types.Account, currency types.Currency, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := key{account, currency}
	sum, carry := bits.Add64(l.balances[k], amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: %s/%s in %s", ErrOverflow, account, currency, l.book)
	}
	l.set(k, sum)
	return nil
}

// Decrease subtracts amount from the balance.
func (l *Ledger) Decrease(account types.Account, currency types.Currency, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := key{account, currency}
	current := l.balances[k]
	if amount > current {
		return fmt.Errorf("%w: %s has %d %s in %s, needs %d",
			ErrInsufficientBalance, account, current, currency, l.book, amount)
	}
	l.set(k, current-amount)
	return nil
}

// Move transfers amount between two accounts of the same book.
func (l *Ledger) Move(from, to types.Account, currency types.Currency, amount uint64) error {
	if err := l.Decrease(from, currency, amount); err != nil {
		return err
	}
	if err := l.Increase(to, currency, amount); err != nil {
		// Restore the debit; Increase only fails before mutating.
		l.mu.Lock()
		k := key{from, currency}
		l.set(k, l.balances[k]+amount)
		l.mu.Unlock()
		return err
	}
	return nil
}

// Total sums every balance held in currency. ok is false on overflow.
func (l *Ledger) Total(currency types.Currency) (total uint64, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for k, v := range l.balances {
		if k.currency != currency {
			continue
		}
		var carry uint64
		total, carry = bits.Add64(total, v, 0)
		if carry != 0 {
			return 0, false
		}
	}
	return total, true
}

// Entries returns the non-zero rows ordered by account then currency.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, 0, len(l.balances))
	for k, v := range l.balances {
		if v == 0 {
			continue
		}
		out = append(out, Entry{Book: l.book, Account: k.account, Currency: k.currency, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Account != out[j].Account {
			return out[i].Account < out[j].Account
		}
		return out[i].Currency < out[j].Currency
	})
	return out
}

// Restore loads persisted rows without recording changes.
func (l *Ledger) Restore(entries []Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range entries {
		if e.Book != l.book {
			continue
		}
		if e.Amount == 0 {
			delete(l.balances, key{e.Account, e.Currency})
			continue
		}
		l.balances[key{e.Account, e.Currency}] = e.Amount
	}
}

// set must be called with mu held.
func (l *Ledger) set(k key, amount uint64) {
	prev, existed := l.balances[k]
	if amount == 0 {
		delete(l.balances, k)
	} else {
		l.balances[k] = amount
	}

	l.journal.Record(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if existed {
			l.balances[k] = prev
		} else {
			delete(l.balances, k)
		}
	}, EntryChange{Entry{Book: l.book, Account: k.account, Currency: k.currency, Amount: amount}})
}
