// Package ledger persists the append-only issuance state: the issuances
// journal, the asset registry, address balances, and the audit trail of
// debits and credits. The store never opens its own transactions; the host
// block loop owns commit boundaries and threads one handle through every
// message parsed from a block.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/glebarez/sqlite"
)

// Store wraps the issuance persistence layer.
type Store struct {
	db *sql.DB
}

var (
	// ErrPathRequired is returned when the backing store path is missing.
	ErrPathRequired = errors.New("ledger: storage path must be configured")
	// ErrNotFound is returned by lookups that matched no row.
	ErrNotFound = errors.New("ledger: not found")
)

const defaultFilePragmas = "mode=rwc&_busy_timeout=5000&_journal_mode=WAL"

// FileDSN converts a filesystem path into an on-disk SQLite DSN with sensible
// defaults. Callers must ensure the path is non-empty.
func FileDSN(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", ErrPathRequired
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve storage path: %w", err)
	}
	return fmt.Sprintf("file:%s?%s", abs, defaultFilePragmas), nil
}

// Open initialises the backing store using a sqlite-compatible DSN and runs
// the one-shot schema migration.
func Open(dsn string) (*Store, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, ErrPathRequired
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store := &Store{db: db}
	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate applies the issuance schema. It is idempotent: missing columns are
// back-filled onto old databases, and journals created before the composite
// (tx_index, msg_index) key are rebuilt row-for-row.
func (s *Store) Migrate() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("ledger: store not configured")
	}
	if _, err := s.db.Exec(legacyIssuancesSchema); err != nil {
		return fmt.Errorf("create issuances: %w", err)
	}

	columns, err := s.tableColumns("issuances")
	if err != nil {
		return err
	}
	for _, column := range []struct{ name, kind string }{
		{"asset_longname", "TEXT"},
		{"listed", "BOOL"},
		{"reassignable", "BOOL"},
		{"vendable", "BOOL"},
		{"fungible", "BOOL"},
	} {
		if _, ok := columns[column.name]; ok {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE issuances ADD COLUMN %s %s", column.name, column.kind)
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("add column %s: %w", column.name, err)
		}
	}

	// SQLite cannot drop a UNIQUE constraint in place, so journals without
	// msg_index are copied into a replacement table carrying the composite
	// primary key.
	if _, ok := columns["msg_index"]; !ok {
		if _, err := s.db.Exec(issuancesSchema); err != nil {
			return fmt.Errorf("create replacement issuances: %w", err)
		}
		if _, err := s.db.Exec(`
            INSERT INTO new_issuances(tx_index, tx_hash, msg_index, block_index, asset,
                quantity, divisible, source, issuer, transfer, callable, call_date,
                call_price, description, fee_paid, locked, status, asset_longname,
                listed, reassignable, vendable, fungible)
            SELECT tx_index, tx_hash, 0, block_index, asset, quantity, divisible,
                source, issuer, transfer, callable, call_date, call_price, description,
                fee_paid, locked, status, asset_longname, listed, reassignable,
                vendable, fungible
            FROM issuances
        `); err != nil {
			return fmt.Errorf("copy issuances: %w", err)
		}
		if _, err := s.db.Exec(`DROP TABLE issuances`); err != nil {
			return fmt.Errorf("drop old issuances: %w", err)
		}
		if _, err := s.db.Exec(`ALTER TABLE new_issuances RENAME TO issuances`); err != nil {
			return fmt.Errorf("rename issuances: %w", err)
		}
	}

	if _, err := s.db.Exec(issuanceIndexes); err != nil {
		return fmt.Errorf("create issuance indexes: %w", err)
	}
	if _, err := s.db.Exec(companionSchema); err != nil {
		return fmt.Errorf("create companion tables: %w", err)
	}
	return s.MigrateAssetGroups()
}

// MigrateAssetGroups applies the non-fungible group registry schema. Split
// out so the assetgroup collaborator can initialise against a store that
// skipped the full migration.
func (s *Store) MigrateAssetGroups() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("ledger: store not configured")
	}
	if _, err := s.db.Exec(assetGroupSchema); err != nil {
		return fmt.Errorf("create assetgroups: %w", err)
	}
	return nil
}

func (s *Store) tableColumns(table string) (map[string]struct{}, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]struct{})
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns[name] = struct{}{}
	}
	return columns, rows.Err()
}

const legacyIssuancesSchema = `
CREATE TABLE IF NOT EXISTS issuances(
    tx_index INTEGER PRIMARY KEY,
    tx_hash TEXT UNIQUE,
    block_index INTEGER,
    asset TEXT,
    quantity INTEGER,
    divisible BOOL,
    source TEXT,
    issuer TEXT,
    transfer BOOL,
    callable BOOL,
    call_date INTEGER,
    call_price REAL,
    description TEXT,
    fee_paid INTEGER,
    locked BOOL,
    status TEXT,
    asset_longname TEXT,
    listed BOOL,
    reassignable BOOL,
    vendable BOOL,
    fungible BOOL
);`

const issuancesSchema = `
CREATE TABLE IF NOT EXISTS new_issuances(
    tx_index INTEGER,
    tx_hash TEXT,
    msg_index INTEGER DEFAULT 0,
    block_index INTEGER,
    asset TEXT,
    quantity INTEGER,
    divisible BOOL,
    source TEXT,
    issuer TEXT,
    transfer BOOL,
    callable BOOL,
    call_date INTEGER,
    call_price REAL,
    description TEXT,
    fee_paid INTEGER,
    locked BOOL,
    status TEXT,
    asset_longname TEXT,
    listed BOOL,
    reassignable BOOL,
    vendable BOOL,
    fungible BOOL,
    PRIMARY KEY (tx_index, msg_index),
    UNIQUE (tx_hash, msg_index)
);`

const issuanceIndexes = `
CREATE INDEX IF NOT EXISTS block_index_idx ON issuances (block_index);
CREATE INDEX IF NOT EXISTS valid_asset_idx ON issuances (asset, status);
CREATE INDEX IF NOT EXISTS status_idx ON issuances (status);
CREATE INDEX IF NOT EXISTS source_idx ON issuances (source);
CREATE INDEX IF NOT EXISTS asset_longname_idx ON issuances (asset_longname);`

const companionSchema = `
CREATE TABLE IF NOT EXISTS assets(
    asset_id TEXT UNIQUE,
    asset_name TEXT UNIQUE,
    block_index INTEGER,
    asset_longname TEXT UNIQUE,
    asset_group TEXT
);
CREATE INDEX IF NOT EXISTS assets_longname_idx ON assets (asset_longname);

CREATE TABLE IF NOT EXISTS balances(
    address TEXT,
    asset TEXT,
    quantity INTEGER
);
CREATE INDEX IF NOT EXISTS balances_address_asset_idx ON balances (address, asset);

CREATE TABLE IF NOT EXISTS debits(
    block_index INTEGER,
    address TEXT,
    asset TEXT,
    quantity INTEGER,
    action TEXT,
    event TEXT
);
CREATE TABLE IF NOT EXISTS credits(
    block_index INTEGER,
    address TEXT,
    asset TEXT,
    quantity INTEGER,
    action TEXT,
    event TEXT
);

CREATE TABLE IF NOT EXISTS dispensers(
    tx_index INTEGER,
    tx_hash TEXT,
    block_index INTEGER,
    source TEXT,
    asset TEXT,
    status INTEGER
);
CREATE INDEX IF NOT EXISTS dispensers_asset_idx ON dispensers (asset, status);`

const assetGroupSchema = `
CREATE TABLE IF NOT EXISTS assetgroups(
    tx_index INTEGER,
    tx_hash TEXT,
    block_index INTEGER,
    asset_group TEXT,
    issuer TEXT,
    status TEXT,
    PRIMARY KEY (tx_index)
);
CREATE INDEX IF NOT EXISTS assetgroups_group_idx ON assetgroups (asset_group, status);`
