// Package payment implements the payment lifecycle: quote creation, status
// polling with an exactly-once paid transition, and cancellation.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arexans/lisensi/internal/gateway"
	"github.com/arexans/lisensi/internal/license"
	"github.com/arexans/lisensi/internal/metrics"
	"github.com/arexans/lisensi/internal/models"
	"github.com/rs/zerolog"
)

// markPaidRetries is how often the paid-transition store write is retried
// before giving up. Losing this write would orphan a paid transaction in
// pending, so it gets more patience than ordinary writes.
const markPaidRetries = 3

// markPaidRetryDelay is the delay between paid-transition write retries.
const markPaidRetryDelay = 200 * time.Millisecond

// Store defines the transaction persistence operations the service needs.
// The conditional Mark* methods report whether the row actually transitioned,
// which is the guard against duplicate terminal transitions under concurrent
// polls.
type Store interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransactionByProviderID(ctx context.Context, providerID string) (*models.Transaction, error)
	GetPackageByName(ctx context.Context, name string) (*models.Package, error)
	MarkTransactionPaid(ctx context.Context, providerID, licenseKey string, paidAt time.Time) (bool, error)
	MarkTransactionStatus(ctx context.Context, providerID string, status models.TransactionStatus, at time.Time) (bool, error)
}

// Gateway defines the provider operations the service needs.
type Gateway interface {
	CreatePayment(ctx context.Context, amount int64) (*gateway.CreateResult, error)
	CheckStatus(ctx context.Context, transactionID string) (models.TransactionStatus, error)
	CancelPayment(ctx context.Context, transactionID string) error
}

// Issuer records issued licenses in the external ledger.
type Issuer interface {
	Issue(ctx context.Context, key, packageName string, expiry time.Time) error
}

// Service drives the per-transaction state machine:
//
//	pending -> paid | expired | cancelled
//
// Terminal states never transition again; re-applying a terminal transition
// is a no-op.
type Service struct {
	store   Store
	gateway Gateway
	issuer  Issuer
	metrics *metrics.PaymentMetrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewService creates a payment Service. metrics may be nil.
func NewService(store Store, gw Gateway, issuer Issuer, m *metrics.PaymentMetrics, logger zerolog.Logger) *Service {
	return &Service{
		store:   store,
		gateway: gw,
		issuer:  issuer,
		metrics: m,
		logger:  logger.With().Str("component", "payment_service").Logger(),
		now:     time.Now,
	}
}

// QuoteRequest carries the buyer's order details.
type QuoteRequest struct {
	CustomerName     string
	CustomerEmail    string
	CustomerWhatsapp string
	PackageName      string
	DurationDays     int
}

// QuoteResult is returned to the buyer to render the QR and start polling.
type QuoteResult struct {
	TransactionID  string    `json:"transactionId"`
	QRString       string    `json:"qr_string"`
	OriginalAmount int64     `json:"originalAmount"`
	TotalAmount    int64     `json:"totalAmount"`
	UniqueNominal  int64     `json:"uniqueNominal"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// CreateQuote validates the order, opens a provider payment session, and
// persists a pending transaction. Validation failures happen before any
// external call; a provider failure leaves no transaction behind.
func (s *Service) CreateQuote(ctx context.Context, req QuoteRequest) (*QuoteResult, error) {
	if req.CustomerName == "" || req.CustomerWhatsapp == "" {
		return nil, fmt.Errorf("%w: customer name and whatsapp are required", ErrInvalidQuote)
	}
	if req.DurationDays <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidQuote)
	}

	pkg, err := s.store.GetPackageByName(ctx, req.PackageName)
	if err != nil || pkg == nil || !pkg.IsActive {
		return nil, ErrPackageUnknown
	}

	amount := pkg.PricePerDay * int64(req.DurationDays)
	if amount < MinAmount {
		return nil, fmt.Errorf("%w: %d < %d", ErrAmountTooSmall, amount, MinAmount)
	}

	session, err := s.gateway.CreatePayment(ctx, amount)
	if err != nil {
		s.metrics.GatewayError("create")
		return nil, err
	}

	tx := models.NewTransaction(session.TransactionID, req.CustomerName, req.CustomerWhatsapp, pkg.Name, req.DurationDays)
	if req.CustomerEmail != "" {
		email := req.CustomerEmail
		tx.CustomerEmail = &email
	}
	tx.OriginalAmount = session.OriginalAmount
	tx.TotalAmount = session.TotalAmount
	tx.UniqueNominal = session.UniqueNominal
	tx.QRString = session.QRString

	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		// The provider session is now orphaned; cancelling it is advisory
		// cleanup and must not mask the persistence failure.
		if cancelErr := s.gateway.CancelPayment(ctx, session.TransactionID); cancelErr != nil {
			s.logger.Warn().Err(cancelErr).Str("transaction_id", session.TransactionID).Msg("failed to cancel orphaned provider session")
		}
		return nil, fmt.Errorf("persist transaction: %w", err)
	}

	s.metrics.Created()
	s.logger.Info().
		Str("transaction_id", tx.ProviderID).
		Str("package", tx.PackageName).
		Int64("total_amount", tx.TotalAmount).
		Time("expires_at", tx.ExpiresAt).
		Msg("quote created")

	return &QuoteResult{
		TransactionID:  tx.ProviderID,
		QRString:       tx.QRString,
		OriginalAmount: tx.OriginalAmount,
		TotalAmount:    tx.TotalAmount,
		UniqueNominal:  tx.UniqueNominal,
		ExpiresAt:      tx.ExpiresAt,
	}, nil
}

// PollResult is the outcome of a single status poll.
type PollResult struct {
	Status     models.TransactionStatus `json:"status"`
	LicenseKey *string                  `json:"licenseKey,omitempty"`
}

// PollOnce checks the provider's view of the transaction and applies at most
// one local state transition. It is safe to call concurrently for the same
// transaction: the paid transition is a conditional store update that only
// one caller can win, and only the winner performs the license issuance and
// ledger write.
func (s *Service) PollOnce(ctx context.Context, providerID string) (*PollResult, error) {
	tx, err := s.store.GetTransactionByProviderID(ctx, providerID)
	if err != nil {
		return nil, ErrTransactionNotFound
	}

	// Terminal rows never change again; skip the provider round trip.
	if tx.Status.IsTerminal() {
		return &PollResult{Status: tx.Status, LicenseKey: tx.LicenseKey}, nil
	}

	// The payment window has closed. Local expiry is authoritative over a
	// provider still reporting pending, but money wins: check the provider
	// once more so a settlement landing in the final seconds is honored
	// rather than discarded.
	if s.now().After(tx.ExpiresAt) {
		providerStatus, statusErr := s.gateway.CheckStatus(ctx, providerID)
		if statusErr == nil && providerStatus == models.TransactionStatusPaid {
			return s.confirmPaid(ctx, tx)
		}
		if statusErr != nil {
			s.metrics.GatewayError("check-status")
			s.logger.Warn().Err(statusErr).Str("transaction_id", providerID).Msg("final status check failed, expiring locally")
		}
		transitioned, err := s.store.MarkTransactionStatus(ctx, providerID, models.TransactionStatusExpired, s.now())
		if err != nil {
			return nil, fmt.Errorf("mark transaction expired: %w", err)
		}
		if transitioned {
			s.metrics.Expired()
		}
		return s.currentResult(ctx, providerID)
	}

	providerStatus, err := s.gateway.CheckStatus(ctx, providerID)
	if err != nil {
		// Unknown, not pending: the caller retries on its next tick.
		s.metrics.GatewayError("check-status")
		return nil, err
	}

	switch providerStatus {
	case models.TransactionStatusPending:
		return &PollResult{Status: models.TransactionStatusPending}, nil

	case models.TransactionStatusPaid:
		return s.confirmPaid(ctx, tx)

	case models.TransactionStatusExpired, models.TransactionStatusCancelled:
		transitioned, err := s.store.MarkTransactionStatus(ctx, providerID, providerStatus, s.now())
		if err != nil {
			return nil, fmt.Errorf("mark transaction %s: %w", providerStatus, err)
		}
		if transitioned {
			if providerStatus == models.TransactionStatusExpired {
				s.metrics.Expired()
			} else {
				s.metrics.Cancelled()
			}
		}
		// Re-read: a racing paid confirmation may have won instead.
		return s.currentResult(ctx, providerID)

	default:
		return nil, fmt.Errorf("provider returned unexpected status %q", providerStatus)
	}
}

// confirmPaid applies the exactly-once pending->paid transition. The store
// update is conditional on the row still being pending; the caller that wins
// it issues the license, every other caller returns the persisted outcome.
func (s *Service) confirmPaid(ctx context.Context, tx *models.Transaction) (*PollResult, error) {
	key := license.DeriveKey(tx)
	paidAt := s.now()

	transitioned, err := s.markPaidWithRetry(ctx, tx.ProviderID, key, paidAt)
	if err != nil {
		return nil, fmt.Errorf("mark transaction paid: %w", err)
	}

	if !transitioned {
		// Lost the race, or the row reached another terminal state first
		// (a cancel landing just before the paid confirmation stands).
		return s.currentResult(ctx, tx.ProviderID)
	}

	s.metrics.Paid()
	s.logger.Info().
		Str("transaction_id", tx.ProviderID).
		Str("package", tx.PackageName).
		Msg("payment confirmed")

	// Ledger sync is best-effort: the paid row is authoritative and the
	// buyer gets the key whether or not the external write lands.
	expiry := license.ExpiryFor(tx, paidAt)
	if err := s.issuer.Issue(ctx, key, tx.PackageName, expiry); err != nil {
		s.logger.Error().Err(err).Str("transaction_id", tx.ProviderID).Msg("license ledger sync failed, payment stands")
	}

	return &PollResult{Status: models.TransactionStatusPaid, LicenseKey: &key}, nil
}

// markPaidWithRetry retries the paid-transition write on persistence errors.
// Losing this write would leave a paid transaction stuck in pending.
func (s *Service) markPaidWithRetry(ctx context.Context, providerID, key string, paidAt time.Time) (bool, error) {
	var lastErr error
	for attempt := 1; attempt <= markPaidRetries; attempt++ {
		transitioned, err := s.store.MarkTransactionPaid(ctx, providerID, key, paidAt)
		if err == nil {
			return transitioned, nil
		}
		lastErr = err
		s.logger.Warn().Err(err).Int("attempt", attempt).Str("transaction_id", providerID).Msg("paid-transition write failed")

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(markPaidRetryDelay):
		}
	}
	return false, lastErr
}

// Cancel asks the provider to cancel the session (best-effort) and applies
// the local cancelled transition if the transaction is still pending. The
// local store is the source of truth: a provider cancel failure never blocks
// the local cancellation.
func (s *Service) Cancel(ctx context.Context, providerID string) (*PollResult, error) {
	if _, err := s.store.GetTransactionByProviderID(ctx, providerID); err != nil {
		return nil, ErrTransactionNotFound
	}

	if err := s.gateway.CancelPayment(ctx, providerID); err != nil {
		s.logger.Warn().Err(err).Str("transaction_id", providerID).Msg("provider cancel failed, cancelling locally anyway")
	}

	transitioned, err := s.store.MarkTransactionStatus(ctx, providerID, models.TransactionStatusCancelled, s.now())
	if err != nil {
		return nil, fmt.Errorf("mark transaction cancelled: %w", err)
	}
	if transitioned {
		s.metrics.Cancelled()
		s.logger.Info().Str("transaction_id", providerID).Msg("transaction cancelled")
	}

	return s.currentResult(ctx, providerID)
}

// currentResult re-reads the row and reports its persisted state.
func (s *Service) currentResult(ctx context.Context, providerID string) (*PollResult, error) {
	tx, err := s.store.GetTransactionByProviderID(ctx, providerID)
	if err != nil {
		return nil, ErrTransactionNotFound
	}
	if tx.Status == models.TransactionStatusPaid && tx.LicenseKey == nil {
		return nil, errors.New("paid transaction has no license key")
	}
	return &PollResult{Status: tx.Status, LicenseKey: tx.LicenseKey}, nil
}
