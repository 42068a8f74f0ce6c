package journal_test

import (
	"errors"
	"testing"

	"github.com/xraph/rights/journal"
)

type note string

func (n note) Kind() string { return string(n) }

func TestRollbackRunsNewestFirst(t *testing.T) {
	j := journal.New()
	if err := j.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	var order []int
	j.Record(func() { order = append(order, 1) }, note("a"))
	j.Record(func() { order = append(order, 2) }, note("b"))
	j.Record(func() { order = append(order, 3) }, nil)

	j.Rollback()

	want := []int{3, 2, 1}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
	if j.Active() {
		t.Error("journal still active after rollback")
	}
}

func TestCommitReturnsChanges(t *testing.T) {
	j := journal.New()
	_ = j.Begin()
	j.Record(nil, note("a"))
	j.Record(func() {}, note("b"))

	changes, err := j.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(changes) != 2 || changes[0].Kind() != "a" || changes[1].Kind() != "b" {
		t.Errorf("unexpected changes: %v", changes)
	}

	if _, err := j.Commit(); !errors.Is(err, journal.ErrInactive) {
		t.Errorf("second Commit: got %v, want ErrInactive", err)
	}
}

func TestRecordIgnoredWhenInactive(t *testing.T) {
	j := journal.New()
	called := false
	j.Record(func() { called = true }, note("a"))

	_ = j.Begin()
	j.Rollback()
	if called {
		t.Error("undo recorded outside a transaction ran on rollback")
	}

	var nilJournal *journal.Journal
	nilJournal.Record(func() {}, note("a"))
	if nilJournal.Active() {
		t.Error("nil journal reported active")
	}
}

func TestBeginTwice(t *testing.T) {
	j := journal.New()
	_ = j.Begin()
	if err := j.Begin(); !errors.Is(err, journal.ErrActive) {
		t.Errorf("got %v, want ErrActive", err)
	}
}
