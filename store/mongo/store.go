// Package mongo is a grove-backed MongoDB Store. Change sets run in
// multi-document transactions, so the deployment must be a replica set.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/rights"
	"github.com/xraph/rights/access"
	"github.com/xraph/rights/id"
	"github.com/xraph/rights/journal"
	"github.com/xraph/rights/ledger"
	"github.com/xraph/rights/ownership"
	"github.com/xraph/rights/policy"
	"github.com/xraph/rights/quorum"
	"github.com/xraph/rights/receipt"
	rightsstore "github.com/xraph/rights/store"
	"github.com/xraph/rights/treasury"
)

// Collection name constants.
const (
	colEntries     = "rights_entries"
	colEnrollments = "rights_enrollments"
	colRates       = "rights_rates"
	colContents    = "rights_contents"
	colTerms       = "rights_terms"
	colGrants      = "rights_grants"
	colReceipts    = "rights_receipts"
)

// compile-time interface check
var _ rightsstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all rights collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("rights/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Change sets ====================

type tx struct {
	tx *mongodriver.MongoTx
}

// Begin starts a session transaction for one change set.
func (s *Store) Begin(ctx context.Context) (rightsstore.Tx, error) {
	raw, err := s.mdb.GroveTx(ctx, 0, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", rights.ErrTransactionFailed, err)
	}
	mtx, ok := raw.(*mongodriver.MongoTx)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected transaction type %T", rights.ErrTransactionFailed, raw)
	}
	return &tx{tx: mtx}, nil
}

func (t *tx) Commit() error   { return t.tx.Commit() }
func (t *tx) Rollback() error { return t.tx.Rollback() }

func (t *tx) upsert(ctx context.Context, model any, key any, fields bson.M) error {
	_, err := t.tx.NewUpdate(model).
		Filter(bson.M{"_id": key}).
		SetUpdate(bson.M{"$set": fields}).
		Upsert().
		Exec(ctx)
	return err
}

func (t *tx) remove(ctx context.Context, model any, key any) error {
	_, err := t.tx.NewDelete(model).
		Filter(bson.M{"_id": key}).
		Exec(ctx)
	return err
}

// Apply writes every change inside the session transaction.
func (t *tx) Apply(ctx context.Context, changes []journal.Change) error {
	err := rightsstore.Visit(changes, rightsstore.Visitor{
		Entry: func(e ledger.Entry) error {
			if e.Amount == 0 {
				return t.remove(ctx, (*entryModel)(nil), entryKeyOf(e))
			}
			return t.upsert(ctx, (*entryModel)(nil), entryKeyOf(e), bson.M{"amount": formatUint(e.Amount)})
		},
		Status: func(r quorum.Record) error {
			if r.Status == quorum.Pending {
				return t.remove(ctx, (*enrollmentModel)(nil), enrollmentKeyOf(r))
			}
			return t.upsert(ctx, (*enrollmentModel)(nil), enrollmentKeyOf(r), bson.M{"status": r.Status.String()})
		},
		Rate: func(r treasury.Rate) error {
			if r.BPS == 0 {
				return t.remove(ctx, (*rateModel)(nil), rateKeyOf(r))
			}
			return t.upsert(ctx, (*rateModel)(nil), rateKeyOf(r), bson.M{"bps": int64(r.BPS)}) //nolint:gosec // basis points
		},
		Content: func(r ownership.Record) error {
			return t.upsert(ctx, (*contentModel)(nil), r.ContentID.String(), bson.M{
				"holder":    string(r.Holder),
				"custodian": string(r.Custodian),
				"payload":   r.Payload,
			})
		},
		Terms: func(r policy.TermsRecord) error {
			return t.upsert(ctx, (*termsModel)(nil), termsKeyOf(r), bson.M{
				"currency": string(r.Terms.Currency),
				"price":    formatUint(r.Terms.Price),
				"duration": int64(r.Terms.Duration),
				"gate":     toGateModel(r.Terms.Gate),
			})
		},
		Grant: func(g access.Grant) error {
			return t.upsert(ctx, (*grantModel)(nil), grantKeyOf(g), bson.M{
				"expiry":    g.Expiry,
				"permanent": g.Permanent,
				"revoked":   g.Revoked,
			})
		},
		Receipt: func(r *receipt.Receipt) error {
			_, err := t.tx.NewInsert(toReceiptModel(r)).Exec(ctx)
			return err
		},
	})
	if err != nil {
		return fmt.Errorf("rights/mongo: apply: %w", err)
	}
	return nil
}

// ==================== State ====================

// Load reads every persisted document.
func (s *Store) Load(ctx context.Context) (*rightsstore.State, error) {
	st := &rightsstore.State{}

	var entries []entryModel
	if err := s.mdb.NewFind(&entries).Sort(bson.D{{Key: "_id", Value: 1}}).Scan(ctx); err != nil {
		return nil, fmt.Errorf("rights/mongo: load entries: %w", err)
	}
	for i := range entries {
		e, err := fromEntryModel(&entries[i])
		if err != nil {
			return nil, err
		}
		st.Entries = append(st.Entries, e)
	}

	var enrollments []enrollmentModel
	if err := s.mdb.NewFind(&enrollments).Sort(bson.D{{Key: "_id", Value: 1}}).Scan(ctx); err != nil {
		return nil, fmt.Errorf("rights/mongo: load enrollments: %w", err)
	}
	for i := range enrollments {
		r, err := fromEnrollmentModel(&enrollments[i])
		if err != nil {
			return nil, err
		}
		st.Enrollments = append(st.Enrollments, r)
	}

	var rates []rateModel
	if err := s.mdb.NewFind(&rates).Scan(ctx); err != nil {
		return nil, fmt.Errorf("rights/mongo: load rates: %w", err)
	}
	for i := range rates {
		st.Rates = append(st.Rates, fromRateModel(&rates[i]))
	}

	var contents []contentModel
	if err := s.mdb.NewFind(&contents).Scan(ctx); err != nil {
		return nil, fmt.Errorf("rights/mongo: load contents: %w", err)
	}
	for i := range contents {
		r, err := fromContentModel(&contents[i])
		if err != nil {
			return nil, err
		}
		st.Contents = append(st.Contents, r)
	}

	var terms []termsModel
	if err := s.mdb.NewFind(&terms).Scan(ctx); err != nil {
		return nil, fmt.Errorf("rights/mongo: load terms: %w", err)
	}
	for i := range terms {
		r, err := fromTermsModel(&terms[i])
		if err != nil {
			return nil, err
		}
		st.Terms = append(st.Terms, r)
	}

	var grants []grantModel
	if err := s.mdb.NewFind(&grants).Scan(ctx); err != nil {
		return nil, fmt.Errorf("rights/mongo: load grants: %w", err)
	}
	for i := range grants {
		g, err := fromGrantModel(&grants[i])
		if err != nil {
			return nil, err
		}
		st.Grants = append(st.Grants, g)
	}

	return st, nil
}

// ==================== Receipt Store ====================

func (s *Store) GetReceipt(ctx context.Context, receiptID id.ReceiptID) (*receipt.Receipt, error) {
	var m receiptModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": receiptID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, rights.ErrReceiptNotFound
		}
		return nil, fmt.Errorf("rights/mongo: get receipt: %w", err)
	}
	return fromReceiptModel(&m)
}

func (s *Store) ListReceipts(ctx context.Context, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	var models []receiptModel

	filter := bson.M{}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	if opts.Account != "" {
		a := string(opts.Account)
		filter["$or"] = bson.A{
			bson.M{"account": a},
			bson.M{"holder": a},
			bson.M{"distributor": a},
		}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("rights/mongo: list receipts: %w", err)
	}

	result := make([]*receipt.Receipt, 0, len(models))
	for i := range models {
		r, err := fromReceiptModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, nil
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all rights collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colEntries: {
			{Keys: bson.D{{Key: "_id.account", Value: 1}}},
		},
		colEnrollments: {
			{Keys: bson.D{{Key: "_id.domain", Value: 1}, {Key: "status", Value: 1}}},
		},
		colRates: {},
		colContents: {
			{Keys: bson.D{{Key: "holder", Value: 1}}},
			{Keys: bson.D{{Key: "custodian", Value: 1}}},
		},
		colTerms: {},
		colGrants: {
			{Keys: bson.D{{Key: "_id.account", Value: 1}, {Key: "expiry", Value: 1}}},
		},
		colReceipts: {
			{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "account", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "holder", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "distributor", Value: 1}, {Key: "created_at", Value: -1}}},
			{
				Keys:    bson.D{{Key: "agreement_id", Value: 1}},
				Options: options.Index().SetSparse(true),
			},
		},
	}
}
