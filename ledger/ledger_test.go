package ledger_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/xraph/rights/journal"
	"github.com/xraph/rights/ledger"
	"github.com/xraph/rights/types"
)

const (
	alice types.Account  = "alice"
	bob   types.Account  = "bob"
	usd   types.Currency = "usd"
)

func TestReadUnknownIsZero(t *testing.T) {
	l := ledger.New(ledger.Settlement, nil)
	if got := l.Read(alice, usd); got != 0 {
		t.Errorf("Read on empty ledger = %d", got)
	}
}

func TestIncreaseDecreaseSums(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	l := ledger.New(ledger.Settlement, nil)

	var want uint64
	for i := 0; i < 500; i++ {
		amount := uint64(rng.Intn(1000))
		if rng.Intn(2) == 0 {
			if err := l.Increase(alice, usd, amount); err != nil {
				t.Fatalf("Increase: %v", err)
			}
			want += amount
			continue
		}

		err := l.Decrease(alice, usd, amount)
		if amount > want {
			if !errors.Is(err, ledger.ErrInsufficientBalance) {
				t.Fatalf("Decrease(%d) over balance %d: got %v", amount, want, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Decrease: %v", err)
		}
		want -= amount
	}

	if got := l.Read(alice, usd); got != want {
		t.Errorf("balance = %d, want %d", got, want)
	}
}

func TestIncreaseOverflow(t *testing.T) {
	l := ledger.New(ledger.Settlement, nil)
	l.SetEntry(alice, usd, math.MaxUint64)

	if err := l.Increase(alice, usd, 1); !errors.Is(err, ledger.ErrOverflow) {
		t.Fatalf("got %v, want ErrOverflow", err)
	}
	if got := l.Read(alice, usd); got != math.MaxUint64 {
		t.Errorf("balance changed after failed increase: %d", got)
	}
}

func TestMove(t *testing.T) {
	l := ledger.New(ledger.Enrollment, nil)
	l.SetEntry(alice, usd, 100)

	if err := l.Move(alice, bob, usd, 60); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if l.Read(alice, usd) != 40 || l.Read(bob, usd) != 60 {
		t.Errorf("unexpected balances: alice=%d bob=%d", l.Read(alice, usd), l.Read(bob, usd))
	}
	if err := l.Move(alice, bob, usd, 41); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Errorf("got %v, want ErrInsufficientBalance", err)
	}

	total, ok := l.Total(usd)
	if !ok || total != 100 {
		t.Errorf("Total = %d, %v", total, ok)
	}
}

func TestRollbackRestoresBalances(t *testing.T) {
	j := journal.New()
	l := ledger.New(ledger.Settlement, j)
	l.SetEntry(alice, usd, 10) // outside a transaction: not journaled

	if err := j.Begin(); err != nil {
		t.Fatal(err)
	}
	_ = l.Increase(alice, usd, 5)
	_ = l.Increase(bob, usd, 7)
	_ = l.Decrease(alice, usd, 15)

	changes := j.Changes()
	if len(changes) != 3 {
		t.Fatalf("recorded %d changes, want 3", len(changes))
	}
	last, ok := changes[2].(ledger.EntryChange)
	if !ok || last.Amount != 0 || last.Account != alice {
		t.Errorf("unexpected last change: %#v", changes[2])
	}

	j.Rollback()

	if got := l.Read(alice, usd); got != 10 {
		t.Errorf("alice = %d, want 10", got)
	}
	if got := l.Read(bob, usd); got != 0 {
		t.Errorf("bob = %d, want 0", got)
	}
	if n := len(l.Entries()); n != 1 {
		t.Errorf("entries = %d, want 1", n)
	}
}

func TestRestoreFiltersBook(t *testing.T) {
	l := ledger.New(ledger.Settlement, nil)
	l.Restore([]ledger.Entry{
		{Book: ledger.Settlement, Account: alice, Currency: usd, Amount: 3},
		{Book: ledger.Enrollment, Account: bob, Currency: usd, Amount: 9},
	})

	entries := l.Entries()
	if len(entries) != 1 || entries[0].Account != alice || entries[0].Amount != 3 {
		t.Errorf("unexpected entries: %+v", entries)
	}
}
