package rights

import "github.com/xraph/rights/id"

// ID is the identifier type for receipts and agreements.
type ID = id.ID

// Prefix identifies the record kind encoded in a TypeID.
type Prefix = id.Prefix
