package rights

import "github.com/xraph/rights/types"

// Re-export common types so callers don't have to import the types package.

// Account is re-exported from types package.
type Account = types.Account

// Currency is re-exported from types package.
type Currency = types.Currency

// ContentID is re-exported from types package.
type ContentID = types.ContentID

// Money is re-exported from types package.
type Money = types.Money

// Native is the sentinel currency for the native asset.
const Native = types.Native

// Re-export constructors
var (
	NewMoney    = types.NewMoney
	NewAccount  = types.NewAccount
	NewCurrency = types.NewCurrency
	Zero        = types.Zero
)
