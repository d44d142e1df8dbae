package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrInsufficientBalance is returned when a debit exceeds the held quantity.
// Validation checks funds before any debit, so hitting this mid-parse means
// the ledger is inconsistent and the host must abort.
var ErrInsufficientBalance = errors.New("ledger: insufficient balance")

// Balance returns the quantity of the asset held by the address. Addresses
// with no row hold zero.
func (s *Store) Balance(ctx context.Context, address, asset string) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("storage not configured")
	}
	var quantity int64
	err := s.db.QueryRowContext(ctx, `
        SELECT quantity FROM balances WHERE address = ? AND asset = ?
    `, address, asset).Scan(&quantity)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return quantity, nil
}

// Debit removes quantity from the address and records the audit row.
func (s *Store) Debit(ctx context.Context, blockIndex int64, address, asset string, quantity int64, action, event string) error {
	if s == nil {
		return fmt.Errorf("storage not configured")
	}
	if quantity < 0 {
		return fmt.Errorf("ledger: negative debit")
	}
	held, err := s.Balance(ctx, address, asset)
	if err != nil {
		return err
	}
	if held < quantity {
		return fmt.Errorf("%w: %s holds %d %s, debit %d", ErrInsufficientBalance, address, held, asset, quantity)
	}
	if _, err := s.db.ExecContext(ctx, `
        UPDATE balances SET quantity = quantity - ? WHERE address = ? AND asset = ?
    `, quantity, address, asset); err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
        INSERT INTO debits(block_index, address, asset, quantity, action, event)
        VALUES(?, ?, ?, ?, ?, ?)
    `, blockIndex, address, asset, quantity, action, event); err != nil {
		return fmt.Errorf("record debit: %w", err)
	}
	return nil
}

// Credit adds quantity to the address and records the audit row.
func (s *Store) Credit(ctx context.Context, blockIndex int64, address, asset string, quantity int64, action, event string) error {
	if s == nil {
		return fmt.Errorf("storage not configured")
	}
	if quantity < 0 {
		return fmt.Errorf("ledger: negative credit")
	}
	result, err := s.db.ExecContext(ctx, `
        UPDATE balances SET quantity = quantity + ? WHERE address = ? AND asset = ?
    `, quantity, address, asset)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	if affected == 0 {
		if _, err := s.db.ExecContext(ctx, `
            INSERT INTO balances(address, asset, quantity) VALUES(?, ?, ?)
        `, address, asset, quantity); err != nil {
			return fmt.Errorf("create balance: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, `
        INSERT INTO credits(block_index, address, asset, quantity, action, event)
        VALUES(?, ?, ?, ?, ?, ?)
    `, blockIndex, address, asset, quantity, action, event); err != nil {
		return fmt.Errorf("record credit: %w", err)
	}
	return nil
}
