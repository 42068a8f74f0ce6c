// Package receipt records the money movements the engine commits:
// settlements, withdrawals, and enrollment deposits and refunds.
package receipt

import (
	"github.com/xraph/rights/id"
	"github.com/xraph/rights/types"
)

// Kind names what a receipt records.
type Kind string

const (
	KindSettlement Kind = "settlement"
	KindWithdrawal Kind = "withdrawal"
	KindDeposit    Kind = "deposit"
	KindRefund     Kind = "refund"
)

// Receipt is an immutable record of one committed movement. Fee and share
// fields are set on settlements only.
type Receipt struct {
	types.Entity
	ID          id.ReceiptID    `json:"id"`
	Kind        Kind            `json:"kind"`
	AgreementID id.AgreementID  `json:"agreement_id,omitempty"`
	Policy      string          `json:"policy,omitempty"`
	Account     types.Account   `json:"account"`
	Holder      types.Account   `json:"holder,omitempty"`
	Distributor types.Account   `json:"distributor,omitempty"`
	ContentID   types.ContentID `json:"content_id,omitempty"`
	Currency    types.Currency  `json:"currency"`
	Units       uint64          `json:"units,omitempty"`
	Total       uint64          `json:"total"`

	DistributorFee uint64 `json:"distributor_fee,omitempty"`
	TreasuryFee    uint64 `json:"treasury_fee,omitempty"`
	HolderShare    uint64 `json:"holder_share,omitempty"`
}

// Amount returns the receipt total as Money.
func (r *Receipt) Amount() types.Money {
	return types.NewMoney(r.Total, r.Currency)
}

// Involves reports whether account is a party to the receipt.
func (r *Receipt) Involves(account types.Account) bool {
	return r.Account == account || r.Holder == account || r.Distributor == account
}

// Change records a new receipt.
type Change struct {
	Receipt *Receipt
}

// Kind implements journal.Change.
func (Change) Kind() string { return "receipt" }
