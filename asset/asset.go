// Package asset is the boundary to fungible assets held outside the engine.
//
// Transferer follows the usual fungible-token shape. The Native currency is
// the host's own asset: its value travels with the call, so TransferFrom
// does not consult allowances for it.
package asset

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"sync"

	"github.com/xraph/rights/types"
)

var (
	// ErrInsufficientFunds is returned when the sender's balance is too low.
	ErrInsufficientFunds = errors.New("asset: insufficient funds")
	// ErrInsufficientAllowance is returned when the spender is not approved for the amount.
	ErrInsufficientAllowance = errors.New("asset: insufficient allowance")
	// ErrOverflow is returned when a credit would exceed the uint64 range.
	ErrOverflow = errors.New("asset: balance overflow")
)

// Transferer moves fungible assets between accounts.
type Transferer interface {
	BalanceOf(ctx context.Context, currency types.Currency, account types.Account) (uint64, error)
	Transfer(ctx context.Context, currency types.Currency, from, to types.Account, amount uint64) error
	TransferFrom(ctx context.Context, currency types.Currency, spender, from, to types.Account, amount uint64) error
	Approve(ctx context.Context, currency types.Currency, owner, spender types.Account, amount uint64) error
}

// ReceiveHook runs after an account is credited. Returning an error fails
// the transfer that triggered it.
type ReceiveHook func(ctx context.Context, currency types.Currency, from types.Account, amount uint64) error

type holding struct {
	currency types.Currency
	account  types.Account
}

type allowance struct {
	currency types.Currency
	owner    types.Account
	spender  types.Account
}

// Book is an in-memory Transferer.
type Book struct {
	mu         sync.Mutex
	balances   map[holding]uint64
	allowances map[allowance]uint64
	hooks      map[types.Account]ReceiveHook
}

// NewBook creates an empty asset book.
func NewBook() *Book {
	return &Book{
		balances:   make(map[holding]uint64),
		allowances: make(map[allowance]uint64),
		hooks:      make(map[types.Account]ReceiveHook),
	}
}

var _ Transferer = (*Book)(nil)

// Mint credits account with amount out of thin air.
func (b *Book) Mint(currency types.Currency, account types.Account, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.credit(holding{currency, account}, amount)
}

// OnReceive installs a hook that runs whenever account is credited.
func (b *Book) OnReceive(account types.Account, hook ReceiveHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if hook == nil {
		delete(b.hooks, account)
		return
	}
	b.hooks[account] = hook
}

// BalanceOf implements Transferer.
func (b *Book) BalanceOf(_ context.Context, currency types.Currency, account types.Account) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[holding{currency, account}], nil
}

// Allowance returns what spender may still pull from owner.
func (b *Book) Allowance(currency types.Currency, owner, spender types.Account) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.allowances[allowance{currency, owner, spender}]
}

// Approve implements Transferer.
func (b *Book) Approve(_ context.Context, currency types.Currency, owner, spender types.Account, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allowances[allowance{currency, owner, spender}] = amount
	return nil
}

// Transfer implements Transferer.
func (b *Book) Transfer(ctx context.Context, currency types.Currency, from, to types.Account, amount uint64) error {
	b.mu.Lock()
	if err := b.move(currency, from, to, amount); err != nil {
		b.mu.Unlock()
		return err
	}
	hook := b.hooks[to]
	b.mu.Unlock()

	return b.notify(ctx, hook, currency, from, to, amount)
}

// TransferFrom implements Transferer.
func (b *Book) TransferFrom(ctx context.Context, currency types.Currency, spender, from, to types.Account, amount uint64) error {
	b.mu.Lock()
	a := allowance{currency, from, spender}
	if !currency.IsNative() {
		if b.allowances[a] < amount {
			b.mu.Unlock()
			return fmt.Errorf("%w: %s approved %d %s to %s, needs %d",
				ErrInsufficientAllowance, from, b.allowances[a], currency, spender, amount)
		}
	}
	if err := b.move(currency, from, to, amount); err != nil {
		b.mu.Unlock()
		return err
	}
	if !currency.IsNative() {
		b.allowances[a] -= amount
	}
	hook := b.hooks[to]
	b.mu.Unlock()

	if err := b.notify(ctx, hook, currency, from, to, amount); err != nil {
		if !currency.IsNative() {
			b.mu.Lock()
			b.allowances[a] += amount
			b.mu.Unlock()
		}
		return err
	}
	return nil
}

// notify runs the receiver hook and reverses the transfer if it fails.
func (b *Book) notify(ctx context.Context, hook ReceiveHook, currency types.Currency, from, to types.Account, amount uint64) error {
	if hook == nil {
		return nil
	}
	if err := hook(ctx, currency, from, amount); err != nil {
		b.mu.Lock()
		defer b.mu.Unlock()
		// Reversal cannot fail: to was just credited and from just debited.
		_ = b.move(currency, to, from, amount)
		return err
	}
	return nil
}

// move must be called with mu held.
func (b *Book) move(currency types.Currency, from, to types.Account, amount uint64) error {
	src := holding{currency, from}
	if b.balances[src] < amount {
		return fmt.Errorf("%w: %s has %d %s, needs %d",
			ErrInsufficientFunds, from, b.balances[src], currency, amount)
	}
	b.balances[src] -= amount
	if err := b.credit(holding{currency, to}, amount); err != nil {
		b.balances[src] += amount
		return err
	}
	return nil
}

func (b *Book) credit(h holding, amount uint64) error {
	sum, carry := bits.Add64(b.balances[h], amount, 0)
	if carry != 0 {
		return ErrOverflow
	}
	b.balances[h] = sum
	return nil
}
