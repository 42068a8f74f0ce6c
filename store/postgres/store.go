// Package postgres is a grove-backed PostgreSQL Store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the pg migration executor
	"github.com/xraph/grove/migrate"

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
	"github.com/xraph/rights/store/internal/sqlmodel"
	"github.com/xraph/rights/treasury"
)

// compile-time interface check
var _ rightsstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// Open connects to the PostgreSQL database at dsn and wraps it in a Store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	drv := pgdriver.New()
	if err := drv.Open(ctx, dsn); err != nil {
		return nil, fmt.Errorf("rights/postgres: open %s: %w", dsn, err)
	}
	db, err := grove.Open(drv)
	if err != nil {
		return nil, fmt.Errorf("rights/postgres: open %s: %w", dsn, err)
	}
	return New(db), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("rights/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("rights/postgres: migration failed: %w", err)
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
	tx *pgdriver.PgTx
}

// Begin opens a database transaction for one change set.
func (s *Store) Begin(ctx context.Context) (rightsstore.Tx, error) {
	t, err := s.pg.BeginTxQuery(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", rights.ErrTransactionFailed, err)
	}
	return &tx{tx: t}, nil
}

func (t *tx) Commit() error   { return t.tx.Commit() }
func (t *tx) Rollback() error { return t.tx.Rollback() }

// Apply writes every change inside the transaction. Zero balances, Pending
// statuses and zero rates delete their row.
func (t *tx) Apply(ctx context.Context, changes []journal.Change) error {
	return rightsstore.Visit(changes, rightsstore.Visitor{
		Entry: func(e ledger.Entry) error {
			if e.Amount == 0 {
				_, err := t.tx.NewDelete((*sqlmodel.EntryModel)(nil)).
					Where("book = $1 AND account = $2 AND currency = $3", string(e.Book), string(e.Account), string(e.Currency)).
					Exec(ctx)
				return err
			}
			_, err := t.tx.NewInsert(sqlmodel.ToEntryModel(e)).
				OnConflict("(book, account, currency) DO UPDATE").
				Set("amount = EXCLUDED.amount").
				Exec(ctx)
			return err
		},
		Status: func(r quorum.Record) error {
			if r.Status == quorum.Pending {
				_, err := t.tx.NewDelete((*sqlmodel.EnrollmentModel)(nil)).
					Where("domain = $1 AND key = $2", string(r.Domain), r.Key.String()).
					Exec(ctx)
				return err
			}
			_, err := t.tx.NewInsert(sqlmodel.ToEnrollmentModel(r)).
				OnConflict("(domain, key) DO UPDATE").
				Set("status = EXCLUDED.status").
				Exec(ctx)
			return err
		},
		Rate: func(r treasury.Rate) error {
			if r.BPS == 0 {
				_, err := t.tx.NewDelete((*sqlmodel.RateModel)(nil)).
					Where("subject = $1 AND currency = $2", string(r.Subject), string(r.Currency)).
					Exec(ctx)
				return err
			}
			_, err := t.tx.NewInsert(sqlmodel.ToRateModel(r)).
				OnConflict("(subject, currency) DO UPDATE").
				Set("bps = EXCLUDED.bps").
				Exec(ctx)
			return err
		},
		Content: func(r ownership.Record) error {
			_, err := t.tx.NewInsert(sqlmodel.ToContentModel(r)).
				OnConflict("(content_id) DO UPDATE").
				Set("holder = EXCLUDED.holder").
				Set("custodian = EXCLUDED.custodian").
				Set("payload = EXCLUDED.payload").
				Exec(ctx)
			return err
		},
		Terms: func(r policy.TermsRecord) error {
			m, err := sqlmodel.ToTermsModel(r)
			if err != nil {
				return err
			}
			_, err = t.tx.NewInsert(m).
				OnConflict("(policy, holder, content_id) DO UPDATE").
				Set("currency = EXCLUDED.currency").
				Set("price = EXCLUDED.price").
				Set("duration = EXCLUDED.duration").
				Set("gate = EXCLUDED.gate").
				Exec(ctx)
			return err
		},
		Grant: func(g access.Grant) error {
			_, err := t.tx.NewInsert(sqlmodel.ToGrantModel(g)).
				OnConflict("(policy, account, holder, content_id) DO UPDATE").
				Set("expiry = EXCLUDED.expiry").
				Set("permanent = EXCLUDED.permanent").
				Set("revoked = EXCLUDED.revoked").
				Exec(ctx)
			return err
		},
		Receipt: func(r *receipt.Receipt) error {
			_, err := t.tx.NewInsert(sqlmodel.ToReceiptModel(r)).Exec(ctx)
			return err
		},
	})
}

// ==================== State ====================

// Load reads every persisted row.
func (s *Store) Load(ctx context.Context) (*rightsstore.State, error) {
	st := &rightsstore.State{}

	var entries []sqlmodel.EntryModel
	if err := s.pg.NewSelect(&entries).OrderExpr("book, account, currency").Scan(ctx); err != nil {
		return nil, fmt.Errorf("rights/postgres: load entries: %w", err)
	}
	for i := range entries {
		e, err := sqlmodel.FromEntryModel(&entries[i])
		if err != nil {
			return nil, err
		}
		st.Entries = append(st.Entries, e)
	}

	var enrollments []sqlmodel.EnrollmentModel
	if err := s.pg.NewSelect(&enrollments).OrderExpr("domain, key").Scan(ctx); err != nil {
		return nil, fmt.Errorf("rights/postgres: load enrollments: %w", err)
	}
	for i := range enrollments {
		r, err := sqlmodel.FromEnrollmentModel(&enrollments[i])
		if err != nil {
			return nil, err
		}
		st.Enrollments = append(st.Enrollments, r)
	}

	var rates []sqlmodel.RateModel
	if err := s.pg.NewSelect(&rates).Scan(ctx); err != nil {
		return nil, fmt.Errorf("rights/postgres: load rates: %w", err)
	}
	for i := range rates {
		st.Rates = append(st.Rates, sqlmodel.FromRateModel(&rates[i]))
	}

	var contents []sqlmodel.ContentModel
	if err := s.pg.NewSelect(&contents).Scan(ctx); err != nil {
		return nil, fmt.Errorf("rights/postgres: load contents: %w", err)
	}
	for i := range contents {
		r, err := sqlmodel.FromContentModel(&contents[i])
		if err != nil {
			return nil, err
		}
		st.Contents = append(st.Contents, r)
	}

	var terms []sqlmodel.TermsModel
	if err := s.pg.NewSelect(&terms).Scan(ctx); err != nil {
		return nil, fmt.Errorf("rights/postgres: load terms: %w", err)
	}
	for i := range terms {
		r, err := sqlmodel.FromTermsModel(&terms[i])
		if err != nil {
			return nil, err
		}
		st.Terms = append(st.Terms, r)
	}

	var grants []sqlmodel.GrantModel
	if err := s.pg.NewSelect(&grants).Scan(ctx); err != nil {
		return nil, fmt.Errorf("rights/postgres: load grants: %w", err)
	}
	for i := range grants {
		g, err := sqlmodel.FromGrantModel(&grants[i])
		if err != nil {
			return nil, err
		}
		st.Grants = append(st.Grants, g)
	}

	return st, nil
}

// ==================== Receipts ====================

func (s *Store) GetReceipt(ctx context.Context, receiptID id.ReceiptID) (*receipt.Receipt, error) {
	m := new(sqlmodel.ReceiptModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", receiptID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, rights.ErrReceiptNotFound
		}
		return nil, err
	}
	return sqlmodel.FromReceiptModel(m)
}

func (s *Store) ListReceipts(ctx context.Context, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	var models []sqlmodel.ReceiptModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Kind != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("kind = $%d", argIdx), string(opts.Kind))
	}
	if opts.Account != "" {
		a := string(opts.Account)
		q = q.Where(fmt.Sprintf("(account = $%d OR holder = $%d OR distributor = $%d)", argIdx+1, argIdx+2, argIdx+3), a, a, a)
	}
	q = q.OrderExpr("created_at DESC, id DESC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*receipt.Receipt, 0, len(models))
	for i := range models {
		r, err := sqlmodel.FromReceiptModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, nil
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
