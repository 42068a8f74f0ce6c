package mongo

import (
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

// Amounts are decimal strings: BSON has no unsigned 64-bit integer.

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

func parseUint(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

// ==================== Entry models ====================

type entryKey struct {
	Book     string `bson:"book"`
	Account  string `bson:"account"`
	Currency string `bson:"currency"`
}

type entryModel struct {
	grove.BaseModel `grove:"table:rights_entries"`

	ID     entryKey `grove:"id,pk"  bson:"_id"`
	Amount string   `grove:"amount" bson:"amount"`
}

func entryKeyOf(e ledger.Entry) entryKey {
	return entryKey{Book: string(e.Book), Account: string(e.Account), Currency: string(e.Currency)}
}

func fromEntryModel(m *entryModel) (ledger.Entry, error) {
	amount, err := parseUint(m.Amount)
	if err != nil {
		return ledger.Entry{}, err
	}
	return ledger.Entry{
		Book:     ledger.Book(m.ID.Book),
		Account:  types.Account(m.ID.Account),
		Currency: types.Currency(m.ID.Currency),
		Amount:   amount,
	}, nil
}

// ==================== Enrollment models ====================

type enrollmentKey struct {
	Domain string `bson:"domain"`
	Key    string `bson:"key"`
}

type enrollmentModel struct {
	grove.BaseModel `grove:"table:rights_enrollments"`

	ID     enrollmentKey `grove:"id,pk"  bson:"_id"`
	Status string        `grove:"status" bson:"status"`
}

func enrollmentKeyOf(r quorum.Record) enrollmentKey {
	return enrollmentKey{Domain: string(r.Domain), Key: r.Key.String()}
}

func fromEnrollmentModel(m *enrollmentModel) (quorum.Record, error) {
	key, err := parseUint(m.ID.Key)
	if err != nil {
		return quorum.Record{}, err
	}
	status, err := quorum.ParseStatus(m.Status)
	if err != nil {
		return quorum.Record{}, err
	}
	return quorum.Record{Domain: quorum.Domain(m.ID.Domain), Key: quorum.Key(key), Status: status}, nil
}

// ==================== Rate models ====================

type rateKey struct {
	Subject  string `bson:"subject"`
	Currency string `bson:"currency"`
}

type rateModel struct {
	grove.BaseModel `grove:"table:rights_rates"`

	ID  rateKey `grove:"id,pk" bson:"_id"`
	BPS int64   `grove:"bps"   bson:"bps"`
}

func rateKeyOf(r treasury.Rate) rateKey {
	return rateKey{Subject: string(r.Subject), Currency: string(r.Currency)}
}

func fromRateModel(m *rateModel) treasury.Rate {
	return treasury.Rate{
		Subject:  types.Account(m.ID.Subject),
		Currency: types.Currency(m.ID.Currency),
		BPS:      uint64(m.BPS), //nolint:gosec // stored from uint64
	}
}

// ==================== Content models ====================

type contentModel struct {
	grove.BaseModel `grove:"table:rights_contents"`

	ContentID string `grove:"content_id,pk" bson:"_id"`
	Holder    string `grove:"holder"        bson:"holder"`
	Custodian string `grove:"custodian"     bson:"custodian"`
	Payload   []byte `grove:"payload"       bson:"payload,omitempty"`
}

func fromContentModel(m *contentModel) (ownership.Record, error) {
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

// ==================== Terms models ====================

type termsKey struct {
	Policy    string `bson:"policy"`
	Holder    string `bson:"holder"`
	ContentID string `bson:"content_id"`
}

type gateModel struct {
	Asset      string   `bson:"asset"`
	MinBalance string   `bson:"min_balance"`
	Allow      []string `bson:"allow,omitempty"`
}

type termsModel struct {
	grove.BaseModel `grove:"table:rights_terms"`

	ID       termsKey   `grove:"id,pk"    bson:"_id"`
	Currency string     `grove:"currency" bson:"currency"`
	Price    string     `grove:"price"    bson:"price"`
	Duration int64      `grove:"duration" bson:"duration"`
	Gate     *gateModel `grove:"gate"     bson:"gate,omitempty"`
}

func termsKeyOf(r policy.TermsRecord) termsKey {
	return termsKey{Policy: r.Policy, Holder: string(r.Holder), ContentID: r.ContentID.String()}
}

func toGateModel(g *policy.Gate) *gateModel {
	if g == nil {
		return nil
	}
	m := &gateModel{Asset: string(g.Asset), MinBalance: formatUint(g.MinBalance)}
	for _, a := range g.Allow {
		m.Allow = append(m.Allow, string(a))
	}
	return m
}

func fromTermsModel(m *termsModel) (policy.TermsRecord, error) {
	contentID, err := types.ParseContentID(m.ID.ContentID)
	if err != nil {
		return policy.TermsRecord{}, err
	}
	price, err := parseUint(m.Price)
	if err != nil {
		return policy.TermsRecord{}, err
	}

	var gate *policy.Gate
	if m.Gate != nil {
		minBalance, err := parseUint(m.Gate.MinBalance)
		if err != nil {
			return policy.TermsRecord{}, err
		}
		gate = &policy.Gate{Asset: types.Currency(m.Gate.Asset), MinBalance: minBalance}
		for _, a := range m.Gate.Allow {
			gate.Allow = append(gate.Allow, types.Account(a))
		}
	}

	return policy.TermsRecord{
		Policy:    m.ID.Policy,
		Holder:    types.Account(m.ID.Holder),
		ContentID: contentID,
		Terms: policy.Terms{
			Currency: types.Currency(m.Currency),
			Price:    price,
			Duration: time.Duration(m.Duration),
			Gate:     gate,
		},
	}, nil
}

// ==================== Grant models ====================

type grantKey struct {
	Policy    string `bson:"policy"`
	Account   string `bson:"account"`
	Holder    string `bson:"holder"`
	ContentID string `bson:"content_id"`
}

type grantModel struct {
	grove.BaseModel `grove:"table:rights_grants"`

	ID        grantKey  `grove:"id,pk"     bson:"_id"`
	Expiry    time.Time `grove:"expiry"    bson:"expiry"`
	Permanent bool      `grove:"permanent" bson:"permanent"`
	Revoked   bool      `grove:"revoked"   bson:"revoked"`
}

func grantKeyOf(g access.Grant) grantKey {
	return grantKey{
		Policy:    g.Policy,
		Account:   string(g.Account),
		Holder:    string(g.Subject.Holder),
		ContentID: g.Subject.ContentID.String(),
	}
}

func fromGrantModel(m *grantModel) (access.Grant, error) {
	contentID, err := types.ParseContentID(m.ID.ContentID)
	if err != nil {
		return access.Grant{}, err
	}
	var expiry time.Time
	if !m.Expiry.IsZero() {
		expiry = m.Expiry.UTC()
	}
	return access.Grant{
		Policy:  m.ID.Policy,
		Account: types.Account(m.ID.Account),
		Subject: access.Subject{
			Holder:    types.Account(m.ID.Holder),
			ContentID: contentID,
		},
		Expiry:    expiry,
		Permanent: m.Permanent,
		Revoked:   m.Revoked,
	}, nil
}

// ==================== Receipt models ====================

type receiptModel struct {
	grove.BaseModel `grove:"table:rights_receipts"`

	ID             string    `grove:"id,pk"           bson:"_id"`
	Kind           string    `grove:"kind"            bson:"kind"`
	AgreementID    string    `grove:"agreement_id"    bson:"agreement_id,omitempty"`
	Policy         string    `grove:"policy"          bson:"policy,omitempty"`
	Account        string    `grove:"account"         bson:"account"`
	Holder         string    `grove:"holder"          bson:"holder,omitempty"`
	Distributor    string    `grove:"distributor"     bson:"distributor,omitempty"`
	ContentID      string    `grove:"content_id"      bson:"content_id"`
	Currency       string    `grove:"currency"        bson:"currency"`
	Units          string    `grove:"units"           bson:"units"`
	Total          string    `grove:"total"           bson:"total"`
	DistributorFee string    `grove:"distributor_fee" bson:"distributor_fee"`
	TreasuryFee    string    `grove:"treasury_fee"    bson:"treasury_fee"`
	HolderShare    string    `grove:"holder_share"    bson:"holder_share"`
	CreatedAt      time.Time `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"      bson:"updated_at"`
}

func toReceiptModel(r *receipt.Receipt) *receiptModel {
	return &receiptModel{
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
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func fromReceiptModel(m *receiptModel) (*receipt.Receipt, error) {
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

	return &receipt.Receipt{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
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
