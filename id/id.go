// Package id defines TypeID-based identifiers for rights records.
//
// Receipts and agreements carry a single ID type whose prefix names the
// record kind, e.g. "stl_01h2xcejqtf2nbrexx3vqjhp41". IDs are K-sortable
// (UUIDv7-based), globally unique and URL-safe.
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the record kind encoded in a TypeID.
type Prefix string

// Record prefixes.
const (
	PrefixSettlement Prefix = "stl"
	PrefixWithdrawal Prefix = "wd"
	PrefixDeposit    Prefix = "dep"
	PrefixRefund     Prefix = "rfd"
	PrefixAgreement  Prefix = "agr"
)

// receiptPrefixes are the prefixes a receipt ID may carry.
var receiptPrefixes = map[Prefix]bool{
	PrefixSettlement: true,
	PrefixWithdrawal: true,
	PrefixDeposit:    true,
	PrefixRefund:     true,
}

// ID identifies a rights record. The zero value is Nil.
//
//nolint:recvcheck // UnmarshalText and Scan need pointer receivers.
type ID struct {
	tid typeid.TypeID
	ok  bool
}

// Nil is the zero ID.
var Nil ID

// ReceiptID identifies a settlement, withdrawal, deposit or refund receipt.
type ReceiptID = ID

// AgreementID identifies the agreement a settlement was executed under.
type AgreementID = ID

// New generates an ID with the given prefix. It panics on an invalid prefix.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: generate %q: %v", prefix, err))
	}
	return ID{tid: tid, ok: true}
}

// NewSettlementID generates a settlement receipt ID.
func NewSettlementID() ID { return New(PrefixSettlement) }

// NewWithdrawalID generates a withdrawal receipt ID.
func NewWithdrawalID() ID { return New(PrefixWithdrawal) }

// NewDepositID generates an enrollment deposit receipt ID.
func NewDepositID() ID { return New(PrefixDeposit) }

// NewRefundID generates a deposit refund receipt ID.
func NewRefundID() ID { return New(PrefixRefund) }

// NewAgreementID generates an agreement ID.
func NewAgreementID() ID { return New(PrefixAgreement) }

// Parse parses any TypeID string.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{tid: tid, ok: true}, nil
}

// ParseWithPrefix parses s and rejects any prefix other than expected.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if p := parsed.Prefix(); p != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, p)
	}
	return parsed, nil
}

// ParseReceiptID parses s and rejects non-receipt prefixes.
func ParseReceiptID(s string) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if !parsed.IsReceipt() {
		return Nil, fmt.Errorf("id: %q is not a receipt prefix", parsed.Prefix())
	}
	return parsed, nil
}

// ParseAgreementID parses s and validates the "agr" prefix.
func ParseAgreementID(s string) (ID, error) { return ParseWithPrefix(s, PrefixAgreement) }

// MustParse is like Parse but panics on error.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return parsed
}

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.ok {
		return ""
	}
	return i.tid.String()
}

// Prefix returns the record kind of i.
func (i ID) Prefix() Prefix {
	if !i.ok {
		return ""
	}
	return Prefix(i.tid.Prefix())
}

// IsNil reports whether i is the zero ID.
func (i ID) IsNil() bool { return !i.ok }

// IsReceipt reports whether i carries a receipt prefix.
func (i ID) IsReceipt() bool { return receiptPrefixes[i.Prefix()] }

// MarshalText implements encoding.TextMarshaler. Nil encodes as "".
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. "" decodes to Nil.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Value implements driver.Valuer. Nil is stored as NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.ok {
		return nil, nil //nolint:nilnil // NULL
	}
	return i.tid.String(), nil
}

// Scan implements sql.Scanner.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
