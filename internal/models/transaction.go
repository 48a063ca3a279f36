package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus represents the lifecycle state of a payment transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusPaid      TransactionStatus = "paid"
	TransactionStatusExpired   TransactionStatus = "expired"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// ValidTransactionStatus reports whether s is a known transaction status.
func ValidTransactionStatus(s TransactionStatus) bool {
	switch s {
	case TransactionStatusPending, TransactionStatusPaid, TransactionStatusExpired, TransactionStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusPaid || s == TransactionStatusExpired || s == TransactionStatusCancelled
}

// PendingWindow is how long a created payment stays scannable before it
// expires locally, matching the expiry requested from the provider.
const PendingWindow = 15 * time.Minute

// Transaction represents a single QRIS payment for a license purchase.
// The provider-assigned ProviderID is the key used for all status lookups;
// ID is only the local row identity.
type Transaction struct {
	ID               uuid.UUID         `json:"id"`
	ProviderID       string            `json:"transaction_id"`
	CustomerName     string            `json:"customer_name"`
	CustomerEmail    *string           `json:"customer_email,omitempty"`
	CustomerWhatsapp string            `json:"customer_whatsapp"`
	PackageName      string            `json:"package_name"`
	PackageDuration  int               `json:"package_duration"`
	OriginalAmount   int64             `json:"original_amount"`
	TotalAmount      int64             `json:"total_amount"`
	UniqueNominal    int64             `json:"unique_nominal"`
	QRString         string            `json:"qr_string"`
	Status           TransactionStatus `json:"status"`
	LicenseKey       *string           `json:"license_key,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	PaidAt           *time.Time        `json:"paid_at,omitempty"`
	CancelledAt      *time.Time        `json:"cancelled_at,omitempty"`
	ExpiresAt        time.Time         `json:"expires_at"`
}

// NewTransaction creates a pending Transaction for a freshly created provider
// payment session. ExpiresAt is fixed at creation and is the local authority
// for expiry regardless of what the provider later reports.
func NewTransaction(providerID, customerName, customerWhatsapp, packageName string, durationDays int) *Transaction {
	now := time.Now()
	return &Transaction{
		ID:               uuid.New(),
		ProviderID:       providerID,
		CustomerName:     customerName,
		CustomerWhatsapp: customerWhatsapp,
		PackageName:      packageName,
		PackageDuration:  durationDays,
		Status:           TransactionStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
		ExpiresAt:        now.Add(PendingWindow),
	}
}
