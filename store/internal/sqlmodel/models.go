// Package sqlmodel holds the grove models shared by the SQL stores.
//
// Amounts, keys and content IDs are stored as decimal text so that the full
// uint64 range survives databases without unsigned integers.
package sqlmodel

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/rights/access"
	"github.com/xraph/rights/id"
	"github.com/xraph/rights/ledger"
	"github.com/xraph/rights/ownership"
	"github.com/xraph/rights/policy"
	"github.com/xraph/rights/quorum"
	"github.com/xraph/rights/receipt"
	"github.com/xraph/rights/treasury"
	"github.com/xraph/rights/types"
)

// TimeLayout is a fixed-width UTC layout, so text order is time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string { return t.UTC().Format(TimeLayout) }

// ParseTime parses a TimeLayout value. Empty text is the zero time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(TimeLayout, s)
}

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

func parseUint(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

// ==================== Ledger entries ====================

// EntryModel is one balance row.
type EntryModel struct {
	grove.BaseModel `grove:"table:rights_entries"`

	Book     string `grove:"book,pk"`
	Account  string `grove:"account,pk"`
	Currency string `grove:"currency,pk"`
	Amount   string `grove:"amount"`
}

// ToEntryModel converts a ledger entry.
func ToEntryModel(e ledger.Entry) *EntryModel {
	return &EntryModel{
		Book:     string(e.Book),
		Account:  string(e.Account),
		Currency: string(e.Currency),
		Amount:   formatUint(e.Amount),
	}
}

// FromEntryModel converts a row back into a ledger entry.
func FromEntryModel(m *EntryModel) (ledger.Entry, error) {
	amount, err := parseUint(m.Amount)
	if err != nil {
		return ledger.Entry{}, err
	}
	return ledger.Entry{
		Book:     ledger.Book(m.Book),
		Account:  types.Account(m.Account),
		Currency: types.Currency(m.Currency),
		Amount:   amount,
	}, nil
}

// ==================== Enrollments ====================

// EnrollmentModel is one enrollment status row.
type EnrollmentModel struct {
	grove.BaseModel `grove:"table:rights_enrollments"`

	Domain string `grove:"domain,pk"`
	Key    string `grove:"key,pk"`
	Status string `grove:"status"`
}

// ToEnrollmentModel converts a quorum record.
func ToEnrollmentModel(r quorum.Record) *EnrollmentModel {
	return &EnrollmentModel{
		Domain: string(r.Domain),
		Key:    r.Key.String(),
		Status: r.Status.String(),
	}
}

// FromEnrollmentModel converts a row back into a quorum record.
func FromEnrollmentModel(m *EnrollmentModel) (quorum.Record, error) {
	key, err := parseUint(m.Key)
	if err != nil {
		return quorum.Record{}, err
	}
	status, err := quorum.ParseStatus(m.Status)
	if err != nil {
		return quorum.Record{}, err
	}
	return quorum.Record{
		Domain: quorum.Domain(m.Domain),
		Key:    quorum.Key(key),
		Status: status,
	}, nil
}

// ==================== Rates ====================

// RateModel is one fee rate row.
type RateModel struct {
	grove.BaseModel `grove:"table:rights_rates"`

	Subject  string `grove:"subject,pk"`
	Currency string `grove:"currency,pk"`
	BPS      int64  `grove:"bps"`
}

// ToRateModel converts a treasury rate.
func ToRateModel(r treasury.Rate) *RateModel {
	return &RateModel{
		Subject:  string(r.Subject),
		Currency: string(r.Currency),
		BPS:      int64(r.BPS), //nolint:gosec // basis points never exceed int64
	}
}

// FromRateModel converts a row back into a treasury rate.
func FromRateModel(m *RateModel) treasury.Rate {
	return treasury.Rate{
		Subject:  types.Account(m.Subject),
		Currency: types.Currency(m.Currency),
		BPS:      uint64(m.BPS), //nolint:gosec // stored from uint64
	}
}

// ==================== Contents ====================

// ContentModel is one ownership row.
type ContentModel struct {
	grove.BaseModel `grove:"table:rights_contents"`

	ContentID string `grove:"content_id,pk"`
	Holder    string `grove:"holder"`
	Custodian string `grove:"custodian"`
	Payload   []byte `grove:"payload"`
}

// ToContentModel converts an ownership record.
func ToContentModel(r ownership.Record) *ContentModel {
	return &ContentModel{
		ContentID: r.ContentID.String(),
		Holder:    string(r.Holder),
		Custodian: string(r.Custodian),
		Payload:   r.Payload,
	}
}

// FromContentModel converts a row back into an ownership record.
func FromContentModel(m *ContentModel) (ownership.Record, error) {
	contentID, err := types.ParseContentID(m.ContentID)
	if err != nil {
		return ownership.Record{}, err
	}
	return ownership.Record{
		ContentID: contentID,
		Holder:    types.Account(m.Holder),
		Custodian: types.Account(m.Custodian),
		Payload:   m.Payload,
	}, nil
}

// ==================== Terms ====================

// TermsModel is one policy terms row.
type TermsModel struct {
	grove.BaseModel `grove:"table:rights_terms"`

	Policy    string `grove:"policy,pk"`
	Holder    string `grove:"holder,pk"`
	ContentID string `grove:"content_id,pk"`
	Currency  string `grove:"currency"`
	Price     string `grove:"price"`
	Duration  int64  `grove:"duration"`
	Gate      string `grove:"gate"`
}

// ToTermsModel converts a terms record. The gate is stored as JSON.
func ToTermsModel(r policy.TermsRecord) (*TermsModel, error) {
	m := &TermsModel{
		Policy:    r.Policy,
		Holder:    string(r.Holder),
		ContentID: r.ContentID.String(),
		Currency:  string(r.Terms.Currency),
		Price:     formatUint(r.Terms.Price),
		Duration:  int64(r.Terms.Duration),
	}
	if r.Terms.Gate != nil {
		gate, err := json.Marshal(r.Terms.Gate)
		if err != nil {
			return nil, err
		}
		m.Gate = string(gate)
	}
	return m, nil
}

// FromTermsModel converts a row back into a terms record.
func FromTermsModel(m *TermsModel) (policy.TermsRecord, error) {
	contentID, err := types.ParseContentID(m.ContentID)
	if err != nil {
		return policy.TermsRecord{}, err
	}
	price, err := parseUint(m.Price)
	if err != nil {
		return policy.TermsRecord{}, err
	}

	var gate *policy.Gate
	if m.Gate != "" {
		gate = new(policy.Gate)
		if err := json.Unmarshal([]byte(m.Gate), gate); err != nil {
			return policy.TermsRecord{}, err
		}
	}

	return policy.TermsRecord{
		Policy:    m.Policy,
		Holder:    types.Account(m.Holder),
		ContentID: contentID,
		Terms: policy.Terms{
			Currency: types.Currency(m.Currency),
			Price:    price,
			Duration: time.Duration(m.Duration),
			Gate:     gate,
		},
	}, nil
}

// ==================== Grants ====================

// GrantModel is one access grant row. Holder-wide grants use content_id "0".
type GrantModel struct {
	grove.BaseModel `grove:"table:rights_grants"`

	Policy    string `grove:"policy,pk"`
	Account   string `grove:"account,pk"`
	Holder    string `grove:"holder,pk"`
	ContentID string `grove:"content_id,pk"`
	Expiry    string `grove:"expiry"`
	Permanent bool   `grove:"permanent"`
	Revoked   bool   `grove:"revoked"`
}

// ToGrantModel converts an access grant.
func ToGrantModel(g access.Grant) *GrantModel {
	m := &GrantModel{
		Policy:    g.Policy,
		Account:   string(g.Account),
		Holder:    string(g.Subject.Holder),
		ContentID: g.Subject.ContentID.String(),
		Permanent: g.Permanent,
		Revoked:   g.Revoked,
	}
	if !g.Expiry.IsZero() {
		m.Expiry = FormatTime(g.Expiry)
	}
	return m
}

// FromGrantModel converts a row back into an access grant.
func FromGrantModel(m *GrantModel) (access.Grant, error) {
	contentID, err := types.ParseContentID(m.ContentID)
	if err != nil {
		return access.Grant{}, err
	}
	expiry, err := ParseTime(m.Expiry)
	if err != nil {
		return access.Grant{}, err
	}
	return access.Grant{
		Policy:  m.Policy,
		Account: types.Account(m.Account),
		Subject: access.Subject{
			Holder:    types.Account(m.Holder),
			ContentID: contentID,
		},
		Expiry:    expiry,
		Permanent: m.Permanent,
		Revoked:   m.Revoked,
	}, nil
}

// ==================== Receipts ====================

// ReceiptModel is one committed receipt.
type ReceiptModel struct {
	grove.BaseModel `grove:"table:rights_receipts"`

	ID             string `grove:"id,pk"`
	Kind           string `grove:"kind"`
	AgreementID    string `grove:"agreement_id"`
	Policy         string `grove:"policy"`
	Account        string `grove:"account"`
	Holder         string `grove:"holder"`
	Distributor    string `grove:"distributor"`
	ContentID      string `grove:"content_id"`
	Currency       string `grove:"currency"`
	Units          string `grove:"units"`
	Total          string `grove:"total"`
	DistributorFee string `grove:"distributor_fee"`
	TreasuryFee    string `grove:"treasury_fee"`
	HolderShare    string `grove:"holder_share"`
	CreatedAt      string `grove:"created_at"`
	UpdatedAt      string `grove:"updated_at"`
}

// ToReceiptModel converts a receipt.
func ToReceiptModel(r *receipt.Receipt) *ReceiptModel {
	return &ReceiptModel{
		ID:             r.ID.String(),
		Kind:           string(r.Kind),
		AgreementID:    r.AgreementID.String(),
		Policy:         r.Policy,
		Account:        string(r.Account),
		Holder:         string(r.Holder),
		Distributor:    string(r.Distributor),
		ContentID:      r.ContentID.String(),
		Currency:       string(r.Currency),
		Units:          formatUint(r.Units),
		Total:          formatUint(r.Total),
		DistributorFee: formatUint(r.DistributorFee),
		TreasuryFee:    formatUint(r.TreasuryFee),
		HolderShare:    formatUint(r.HolderShare),
		CreatedAt:      FormatTime(r.CreatedAt),
		UpdatedAt:      FormatTime(r.UpdatedAt),
	}
}

// FromReceiptModel converts a row back into a receipt.
func FromReceiptModel(m *ReceiptModel) (*receipt.Receipt, error) {
	receiptID, err := id.ParseReceiptID(m.ID)
	if err != nil {
		return nil, err
	}

	var agreementID id.AgreementID
	if m.AgreementID != "" {
		if agreementID, err = id.ParseAgreementID(m.AgreementID); err != nil {
			return nil, err
		}
	}

	contentID, err := types.ParseContentID(m.ContentID)
	if err != nil {
		return nil, err
	}

	var amounts [5]uint64
	for i, s := range []string{m.Units, m.Total, m.DistributorFee, m.TreasuryFee, m.HolderShare} {
		if amounts[i], err = parseUint(s); err != nil {
			return nil, err
		}
	}

	created, err := ParseTime(m.CreatedAt)
	if err != nil {
		return nil, err
	}
	updated, err := ParseTime(m.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &receipt.Receipt{
		Entity:         types.Entity{CreatedAt: created, UpdatedAt: updated},
		ID:             receiptID,
		Kind:           receipt.Kind(m.Kind),
		AgreementID:    agreementID,
		Policy:         m.Policy,
		Account:        types.Account(m.Account),
		Holder:         types.Account(m.Holder),
		Distributor:    types.Account(m.Distributor),
		ContentID:      contentID,
		Currency:       types.Currency(m.Currency),
		Units:          amounts[0],
		Total:          amounts[1],
		DistributorFee: amounts[2],
		TreasuryFee:    amounts[3],
		HolderShare:    amounts[4],
	}, nil
}
