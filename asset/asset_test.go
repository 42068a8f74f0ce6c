package asset_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/rights/asset"
	"github.com/xraph/rights/types"
)

func TestTransferFromUsesAllowance(t *testing.T) {
	ctx := context.Background()
	b := asset.NewBook()
	_ = b.Mint("usd", "alice", 100)

	if err := b.TransferFrom(ctx, "usd", "vault", "alice", "vault", 50); !errors.Is(err, asset.ErrInsufficientAllowance) {
		t.Fatalf("without approval: %v", err)
	}

	_ = b.Approve(ctx, "usd", "alice", "vault", 60)
	if err := b.TransferFrom(ctx, "usd", "vault", "alice", "vault", 50); err != nil {
		t.Fatal(err)
	}
	if got := b.Allowance("usd", "alice", "vault"); got != 10 {
		t.Errorf("allowance = %d, want 10", got)
	}
	if got, _ := b.BalanceOf(ctx, "usd", "vault"); got != 50 {
		t.Errorf("vault = %d", got)
	}
	if err := b.TransferFrom(ctx, "usd", "vault", "alice", "vault", 11); !errors.Is(err, asset.ErrInsufficientAllowance) {
		t.Errorf("over allowance: %v", err)
	}
}

func TestNativeSkipsAllowance(t *testing.T) {
	ctx := context.Background()
	b := asset.NewBook()
	_ = b.Mint(types.Native, "alice", 10)

	if err := b.TransferFrom(ctx, types.Native, "vault", "alice", "vault", 10); err != nil {
		t.Fatal(err)
	}
	if err := b.TransferFrom(ctx, types.Native, "vault", "alice", "vault", 1); !errors.Is(err, asset.ErrInsufficientFunds) {
		t.Errorf("got %v", err)
	}
}

func TestReceiveHookFailureReverses(t *testing.T) {
	ctx := context.Background()
	b := asset.NewBook()
	_ = b.Mint("usd", "vault", 100)

	boom := errors.New("boom")
	b.OnReceive("mallory", func(context.Context, types.Currency, types.Account, uint64) error { return boom })

	if err := b.Transfer(ctx, "usd", "vault", "mallory", 40); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
	if got, _ := b.BalanceOf(ctx, "usd", "vault"); got != 100 {
		t.Errorf("vault = %d after reversed transfer", got)
	}
	if got, _ := b.BalanceOf(ctx, "usd", "mallory"); got != 0 {
		t.Errorf("mallory = %d after reversed transfer", got)
	}
}
