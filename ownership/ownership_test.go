package ownership_test

import (
	"errors"
	"testing"

	"github.com/xraph/rights/journal"
	"github.com/xraph/rights/ownership"
)

func TestRegisterAndDelegate(t *testing.T) {
	b := ownership.NewBook(nil)

	if _, err := b.OwnerOf(1); !errors.Is(err, ownership.ErrUnknownContent) {
		t.Fatalf("OwnerOf unknown: %v", err)
	}
	if err := b.Register(1, "holder", []byte("cid://blob")); err != nil {
		t.Fatal(err)
	}
	if err := b.Register(1, "other", nil); !errors.Is(err, ownership.ErrContentExists) {
		t.Errorf("duplicate register: %v", err)
	}

	holder, err := b.OwnerOf(1)
	if err != nil || holder != "holder" {
		t.Errorf("OwnerOf = %q, %v", holder, err)
	}

	if err := b.Delegate(1, "other", "dist"); !errors.Is(err, ownership.ErrNotHolder) {
		t.Errorf("delegate by non-holder: %v", err)
	}
	if err := b.Delegate(1, "holder", "dist"); err != nil {
		t.Fatal(err)
	}
	r, _ := b.Get(1)
	if r.Custodian != "dist" || string(r.Payload) != "cid://blob" {
		t.Errorf("unexpected record: %+v", r)
	}
}

func TestRollback(t *testing.T) {
	j := journal.New()
	b := ownership.NewBook(j)
	_ = b.Register(1, "holder", nil)

	_ = j.Begin()
	_ = b.Register(2, "holder", nil)
	_ = b.Delegate(1, "holder", "dist")
	j.Rollback()

	if len(b.All()) != 1 {
		t.Errorf("records after rollback: %+v", b.All())
	}
	if r, _ := b.Get(1); r.Custodian != "" {
		t.Errorf("custody survived rollback: %+v", r)
	}
}
