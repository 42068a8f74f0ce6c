package receipt

import (
	"context"

	"github.com/xraph/rights/id"
	"github.com/xraph/rights/types"
)

// Store reads committed receipts. Receipts are written through change sets.
type Store interface {
	GetReceipt(ctx context.Context, receiptID id.ReceiptID) (*Receipt, error)
	ListReceipts(ctx context.Context, opts ListOpts) ([]*Receipt, error)
}

// ListOpts filters ListReceipts. Zero values match everything.
type ListOpts struct {
	Kind    Kind
	Account types.Account
	Limit   int
	Offset  int
}

// Match reports whether r passes the filters.
func (o ListOpts) Match(r *Receipt) bool {
	if o.Kind != "" && r.Kind != o.Kind {
		return false
	}
	if o.Account != "" && !r.Involves(o.Account) {
		return false
	}
	return true
}
