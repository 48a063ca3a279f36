package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arexans/lisensi/internal/models"
)

// ErrNotFound is returned when a row lookup matches nothing.
var ErrNotFound = errors.New("not found")

const transactionColumns = `
	id, transaction_id, customer_name, customer_email, customer_whatsapp,
	package_name, package_duration, original_amount, total_amount,
	unique_nominal, qr_string, status, license_key, created_at, updated_at,
	paid_at, cancelled_at, expires_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var tx models.Transaction
	err := row.Scan(
		&tx.ID, &tx.ProviderID, &tx.CustomerName, &tx.CustomerEmail, &tx.CustomerWhatsapp,
		&tx.PackageName, &tx.PackageDuration, &tx.OriginalAmount, &tx.TotalAmount,
		&tx.UniqueNominal, &tx.QRString, &tx.Status, &tx.LicenseKey, &tx.CreatedAt, &tx.UpdatedAt,
		&tx.PaidAt, &tx.CancelledAt, &tx.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return &tx, nil
}

// CreateTransaction inserts a new pending transaction.
func (db *DB) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO transactions (
			id, transaction_id, customer_name, customer_email, customer_whatsapp,
			package_name, package_duration, original_amount, total_amount,
			unique_nominal, qr_string, status, created_at, updated_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, tx.ID, tx.ProviderID, tx.CustomerName, tx.CustomerEmail, tx.CustomerWhatsapp,
		tx.PackageName, tx.PackageDuration, tx.OriginalAmount, tx.TotalAmount,
		tx.UniqueNominal, tx.QRString, tx.Status, tx.CreatedAt, tx.UpdatedAt, tx.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// GetTransactionByProviderID returns the transaction with the given
// provider-assigned transaction ID.
func (db *DB) GetTransactionByProviderID(ctx context.Context, providerID string) (*models.Transaction, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT`+transactionColumns+`
		FROM transactions
		WHERE transaction_id = $1
	`, providerID)
	return scanTransaction(row)
}

// MarkTransactionPaid applies the pending->paid transition and records the
// license key. The update is conditional on the row still being pending, so
// under concurrent confirmations exactly one caller sees transitioned=true.
func (db *DB) MarkTransactionPaid(ctx context.Context, providerID, licenseKey string, paidAt time.Time) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE transactions
		SET status = 'paid', license_key = $2, paid_at = $3, updated_at = NOW()
		WHERE transaction_id = $1 AND status = 'pending'
	`, providerID, licenseKey, paidAt)
	if err != nil {
		return false, fmt.Errorf("mark transaction paid: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkTransactionStatus applies a pending->terminal transition. Like
// MarkTransactionPaid, the update only succeeds while the row is pending.
func (db *DB) MarkTransactionStatus(ctx context.Context, providerID string, status models.TransactionStatus, at time.Time) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("status %q is not terminal", status)
	}

	var tag pgconn.CommandTag
	var err error
	if status == models.TransactionStatusCancelled {
		tag, err = db.Pool.Exec(ctx, `
			UPDATE transactions
			SET status = $2, cancelled_at = $3, updated_at = NOW()
			WHERE transaction_id = $1 AND status = 'pending'
		`, providerID, status, at)
	} else {
		tag, err = db.Pool.Exec(ctx, `
			UPDATE transactions
			SET status = $2, updated_at = NOW()
			WHERE transaction_id = $1 AND status = 'pending'
		`, providerID, status)
	}
	if err != nil {
		return false, fmt.Errorf("mark transaction %s: %w", status, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListTransactions returns the most recent transactions, newest first.
func (db *DB) ListTransactions(ctx context.Context, limit int) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT`+transactionColumns+`
		FROM transactions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// CountTransactionsByStatus returns the number of transactions per status.
func (db *DB) CountTransactionsByStatus(ctx context.Context) (map[models.TransactionStatus]int64, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM transactions
		GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.TransactionStatus]int64)
	for rows.Next() {
		var status models.TransactionStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan transaction count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ExpireOverdueTransactions marks every pending transaction whose local
// expiry has passed as expired, returning how many rows transitioned.
func (db *DB) ExpireOverdueTransactions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE transactions
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'pending' AND expires_at < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("expire overdue transactions: %w", err)
	}
	return tag.RowsAffected(), nil
}
