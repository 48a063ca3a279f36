// Package license issues license keys for paid transactions and records them
// in the external ledger.
package license

import (
	"context"
	"time"

	"github.com/arexans/lisensi/internal/models"
	"github.com/rs/zerolog"
)

// Ledger is the external append-only record of issued licenses.
type Ledger interface {
	Append(ctx context.Context, entry models.LicenseEntry) error
}

// Issuer derives license keys and syncs them to the ledger.
type Issuer struct {
	ledger Ledger
	logger zerolog.Logger
}

// NewIssuer creates an Issuer. ledger may be nil, in which case issuance only
// derives keys and skips the external sync (useful when the ledger is not
// configured in development).
func NewIssuer(ledger Ledger, logger zerolog.Logger) *Issuer {
	return &Issuer{
		ledger: ledger,
		logger: logger.With().Str("component", "license_issuer").Logger(),
	}
}

// DeriveKey returns the license key for a transaction. The key is the
// customer name recorded at quote time; this mirrors the storefront's
// historical behavior and means buyer-chosen, possibly colliding keys. Kept
// deliberately; see DESIGN.md.
func DeriveKey(tx *models.Transaction) string {
	return tx.CustomerName
}

// ExpiryFor computes the license validity end for a transaction paid at the
// given time.
func ExpiryFor(tx *models.Transaction, paidAt time.Time) time.Time {
	return paidAt.AddDate(0, 0, tx.PackageDuration)
}

// Issue records a license in the external ledger. Ledger failures are logged
// and reported to the caller, but callers must not fail the payment
// confirmation on them: the transaction store's paid status and license_key
// are authoritative regardless of ledger sync success.
func (i *Issuer) Issue(ctx context.Context, key, packageName string, expiry time.Time) error {
	if i.ledger == nil {
		i.logger.Warn().Str("key", key).Msg("no ledger configured, skipping external sync")
		return nil
	}

	entry := models.NewLicenseEntry(key, packageName, expiry)
	if err := i.ledger.Append(ctx, entry); err != nil {
		i.logger.Error().Err(err).Str("key", key).Msg("ledger sync failed")
		return err
	}
	return nil
}
