package types

import (
	"strconv"
	"strings"
)

// Account is an opaque external identity. Accounts are neither created nor
// destroyed by the engine; they are normalized so that lookups are stable.
type Account string

// NewAccount normalizes s into an Account.
func NewAccount(s string) Account {
	return Account(strings.ToLower(strings.TrimSpace(s)))
}

// String returns the account identifier.
func (a Account) String() string { return string(a) }

// IsZero reports whether a is the empty account.
func (a Account) IsZero() bool { return a == "" }

// Currency identifies a fungible asset. Native is the sentinel for the
// host's native asset.
type Currency string

// Native is the sentinel currency for the native asset.
const Native Currency = "native"

// NewCurrency normalizes s into a Currency.
func NewCurrency(s string) Currency {
	return Currency(strings.ToLower(strings.TrimSpace(s)))
}

// String returns the currency identifier.
func (c Currency) String() string { return string(c) }

// IsNative reports whether c is the native asset sentinel.
func (c Currency) IsNative() bool { return c == Native }

// IsZero reports whether c is unset.
func (c Currency) IsZero() bool { return c == "" }

// ContentID identifies a content item. Holders pick their own IDs.
type ContentID uint64

// String returns the decimal form of the content ID.
func (c ContentID) String() string { return strconv.FormatUint(uint64(c), 10) }

// ParseContentID parses a decimal content ID.
func ParseContentID(s string) (ContentID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return ContentID(v), nil
}
