package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// Issuance is one journal row. Message fields are nullable because decode
// failures persist a stub row, and the listing/vendability flags are nullable
// because rows written before those columns existed carry NULL there.
type Issuance struct {
	TxIndex       int64
	TxHash        string
	MsgIndex      int64
	BlockIndex    int64
	Asset         sql.NullString
	Quantity      sql.NullInt64
	Divisible     sql.NullBool
	Source        string
	Issuer        string
	Transfer      bool
	Callable      sql.NullBool
	CallDate      sql.NullInt64
	CallPrice     sql.NullFloat64
	Description   sql.NullString
	FeePaid       int64
	Locked        bool
	Status        string
	AssetLongname sql.NullString
	Listed        sql.NullBool
	Reassignable  sql.NullBool
	Vendable      sql.NullBool
	Fungible      sql.NullBool
}

const issuanceColumns = `tx_index, tx_hash, msg_index, block_index, asset, quantity,
    divisible, source, issuer, transfer, callable, call_date, call_price,
    description, fee_paid, locked, status, asset_longname, listed, reassignable,
    vendable, fungible`

func scanIssuance(rows *sql.Rows) (Issuance, error) {
	var row Issuance
	err := rows.Scan(&row.TxIndex, &row.TxHash, &row.MsgIndex, &row.BlockIndex,
		&row.Asset, &row.Quantity, &row.Divisible, &row.Source, &row.Issuer,
		&row.Transfer, &row.Callable, &row.CallDate, &row.CallPrice,
		&row.Description, &row.FeePaid, &row.Locked, &row.Status,
		&row.AssetLongname, &row.Listed, &row.Reassignable, &row.Vendable,
		&row.Fungible)
	return row, err
}

// ValidIssuances returns every valid issuance of the asset in tx_index order.
func (s *Store) ValidIssuances(ctx context.Context, asset string) ([]Issuance, error) {
	if s == nil {
		return nil, fmt.Errorf("storage not configured")
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+issuanceColumns+`
        FROM issuances
        WHERE status = ? AND asset = ?
        ORDER BY tx_index ASC
    `, "valid", asset)
	if err != nil {
		return nil, fmt.Errorf("query valid issuances: %w", err)
	}
	defer rows.Close()

	var out []Issuance
	for rows.Next() {
		row, err := scanIssuance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issuance: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// InsertIssuance appends one journal row.
func (s *Store) InsertIssuance(ctx context.Context, row Issuance) error {
	if s == nil {
		return fmt.Errorf("storage not configured")
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO issuances(`+issuanceColumns+`)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, row.TxIndex, row.TxHash, row.MsgIndex, row.BlockIndex, row.Asset,
		row.Quantity, row.Divisible, row.Source, row.Issuer, row.Transfer,
		row.Callable, row.CallDate, row.CallPrice, row.Description, row.FeePaid,
		row.Locked, row.Status, row.AssetLongname, row.Listed, row.Reassignable,
		row.Vendable, row.Fungible)
	if err != nil {
		return fmt.Errorf("insert issuance: %w", err)
	}
	return nil
}

// AssetByTxHash returns the asset recorded for a journal row, or ErrNotFound.
func (s *Store) AssetByTxHash(ctx context.Context, txHash string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("storage not configured")
	}
	var asset sql.NullString
	err := s.db.QueryRowContext(ctx, `
        SELECT asset FROM issuances WHERE tx_hash = ?
    `, txHash).Scan(&asset)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query issuance by hash: %w", err)
	}
	return asset.String, nil
}

// IssuanceByTxHash returns the journal row written for the transaction, or
// ErrNotFound when the message was rejected without a row.
func (s *Store) IssuanceByTxHash(ctx context.Context, txHash string) (Issuance, error) {
	if s == nil {
		return Issuance{}, fmt.Errorf("storage not configured")
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+issuanceColumns+`
        FROM issuances
        WHERE tx_hash = ?
        ORDER BY msg_index ASC
        LIMIT 1
    `, txHash)
	if err != nil {
		return Issuance{}, fmt.Errorf("query issuance by hash: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Issuance{}, err
		}
		return Issuance{}, ErrNotFound
	}
	row, err := scanIssuance(rows)
	if err != nil {
		return Issuance{}, fmt.Errorf("scan issuance: %w", err)
	}
	return row, nil
}

// LastValidIssuance returns the most recent valid issuance of the asset.
func (s *Store) LastValidIssuance(ctx context.Context, asset string) (Issuance, error) {
	if s == nil {
		return Issuance{}, fmt.Errorf("storage not configured")
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+issuanceColumns+`
        FROM issuances
        WHERE status = ? AND asset = ?
        ORDER BY tx_index DESC
        LIMIT 1
    `, "valid", asset)
	if err != nil {
		return Issuance{}, fmt.Errorf("query last issuance: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Issuance{}, err
		}
		return Issuance{}, ErrNotFound
	}
	row, err := scanIssuance(rows)
	if err != nil {
		return Issuance{}, fmt.Errorf("scan issuance: %w", err)
	}
	return row, nil
}

// OpenDispenserExists reports whether any dispenser on the asset is open.
func (s *Store) OpenDispenserExists(ctx context.Context, asset string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("storage not configured")
	}
	var count int
	err := s.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM dispensers WHERE asset = ? AND status = 0
    `, asset).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query dispensers: %w", err)
	}
	return count > 0, nil
}
