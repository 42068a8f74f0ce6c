package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the rights store (PostgreSQL).
var Migrations = migrate.NewGroup("rights")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_rights_entries",
			Version: "20250601000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rights_entries (
    book     TEXT NOT NULL,
    account  TEXT NOT NULL,
    currency TEXT NOT NULL,
    amount   TEXT NOT NULL DEFAULT '0',
    PRIMARY KEY (book, account, currency)
);

CREATE INDEX IF NOT EXISTS idx_rights_entries_account ON rights_entries (account);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rights_entries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rights_enrollments",
			Version: "20250601000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rights_enrollments (
    domain TEXT NOT NULL,
    key    TEXT NOT NULL,
    status TEXT NOT NULL,
    PRIMARY KEY (domain, key)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rights_enrollments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rights_rates",
			Version: "20250601000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rights_rates (
    subject  TEXT NOT NULL,
    currency TEXT NOT NULL,
    bps      BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (subject, currency)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rights_rates`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rights_contents",
			Version: "20250601000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rights_contents (
    content_id TEXT PRIMARY KEY,
    holder     TEXT NOT NULL,
    custodian  TEXT NOT NULL DEFAULT '',
    payload    BYTEA
);

CREATE INDEX IF NOT EXISTS idx_rights_contents_holder ON rights_contents (holder);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rights_contents`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rights_terms",
			Version: "20250601000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rights_terms (
    policy     TEXT NOT NULL,
    holder     TEXT NOT NULL,
    content_id TEXT NOT NULL,
    currency   TEXT NOT NULL DEFAULT '',
    price      TEXT NOT NULL DEFAULT '0',
    duration   BIGINT NOT NULL DEFAULT 0,
    gate       TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (policy, holder, content_id)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rights_terms`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rights_grants",
			Version: "20250601000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rights_grants (
    policy     TEXT NOT NULL,
    account    TEXT NOT NULL,
    holder     TEXT NOT NULL DEFAULT '',
    content_id TEXT NOT NULL DEFAULT '0',
    expiry     TEXT NOT NULL DEFAULT '',
    permanent  BOOLEAN NOT NULL DEFAULT FALSE,
    revoked    BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (policy, account, holder, content_id)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rights_grants`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rights_receipts",
			Version: "20250601000007",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rights_receipts (
    id              TEXT PRIMARY KEY,
    kind            TEXT NOT NULL,
    agreement_id    TEXT NOT NULL DEFAULT '',
    policy          TEXT NOT NULL DEFAULT '',
    account         TEXT NOT NULL,
    holder          TEXT NOT NULL DEFAULT '',
    distributor     TEXT NOT NULL DEFAULT '',
    content_id      TEXT NOT NULL DEFAULT '0',
    currency        TEXT NOT NULL,
    units           TEXT NOT NULL DEFAULT '0',
    total           TEXT NOT NULL DEFAULT '0',
    distributor_fee TEXT NOT NULL DEFAULT '0',
    treasury_fee    TEXT NOT NULL DEFAULT '0',
    holder_share    TEXT NOT NULL DEFAULT '0',
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rights_receipts_kind ON rights_receipts (kind, created_at);
CREATE INDEX IF NOT EXISTS idx_rights_receipts_account ON rights_receipts (account, created_at);
CREATE INDEX IF NOT EXISTS idx_rights_receipts_holder ON rights_receipts (holder, created_at);
CREATE INDEX IF NOT EXISTS idx_rights_receipts_distributor ON rights_receipts (distributor, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rights_receipts`)
				return err
			},
		},
	)
}
