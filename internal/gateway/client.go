// Package gateway provides the HTTP client for the Cashify QRIS payment provider.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arexans/lisensi/internal/config"
	"github.com/arexans/lisensi/internal/models"
	"github.com/rs/zerolog"
)

// DefaultTimeout is the default timeout for provider requests.
const DefaultTimeout = 30 * time.Second

// ExpiryMinutes is the payment session expiry requested from the provider.
// It matches models.PendingWindow; the local expires_at remains the authority.
const ExpiryMinutes = 15

// Error is returned for provider transport failures, non-success envelope
// statuses, and malformed payloads. Callers must treat it as "status unknown,
// retry later" rather than as any particular payment state.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("gateway %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway %s: status %d", e.Op, e.StatusCode)
}

func (e *Error) Unwrap() error { return e.Err }

// CreateResult is the normalized result of creating a payment session.
// TotalAmount may exceed OriginalAmount by UniqueNominal, the small suffix
// the provider adds to disambiguate concurrent payments of the same amount.
type CreateResult struct {
	TransactionID  string
	QRString       string
	OriginalAmount int64
	TotalAmount    int64
	UniqueNominal  int64
}

// Client talks to the Cashify QRIS API.
type Client struct {
	baseURL    string
	licenseKey string
	qrID       string
	client     *http.Client
	logger     zerolog.Logger
}

// New creates a gateway Client from provider configuration.
func New(cfg config.ProviderConfig, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		licenseKey: cfg.LicenseKey,
		qrID:       cfg.QRID,
		client:     &http.Client{Timeout: DefaultTimeout},
		logger:     logger.With().Str("component", "gateway").Logger(),
	}
}

// envelope is the provider's response wrapper. Success payloads are only
// trusted when Status is 200 and Data is present.
type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type createRequest struct {
	QRID             string   `json:"qr_id"`
	Amount           int64    `json:"amount"`
	UseUniqueCode    bool     `json:"useUniqueCode"`
	PackageIDs       []string `json:"packageIds"`
	ExpiredInMinutes int      `json:"expiredInMinutes"`
	QRType           string   `json:"qrType"`
	PaymentMethod    string   `json:"paymentMethod"`
	UseQRIS          bool     `json:"useQris"`
}

type createData struct {
	TransactionID  string `json:"transactionId"`
	QRString       string `json:"qr_string"`
	OriginalAmount int64  `json:"originalAmount"`
	TotalAmount    int64  `json:"totalAmount"`
	UniqueNominal  int64  `json:"uniqueNominal"`
}

type statusData struct {
	Status string `json:"status"`
}

// CreatePayment creates a dynamic QRIS payment session for the given amount.
// The caller is responsible for enforcing the minimum payable amount before
// calling; the client sends whatever it is given.
func (c *Client) CreatePayment(ctx context.Context, amount int64) (*CreateResult, error) {
	body := createRequest{
		QRID:             c.qrID,
		Amount:           amount,
		UseUniqueCode:    true,
		PackageIDs:       []string{"id.dana"},
		ExpiredInMinutes: ExpiryMinutes,
		QRType:           "dynamic",
		PaymentMethod:    "qris",
		UseQRIS:          true,
	}

	env, err := c.post(ctx, "create", "/api/generate/v2/qris", body)
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 {
		return nil, &Error{Op: "create", StatusCode: env.Status, Message: "response missing data"}
	}

	var data createData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, &Error{Op: "create", Err: fmt.Errorf("decode data: %w", err)}
	}
	if data.TransactionID == "" || data.QRString == "" {
		return nil, &Error{Op: "create", StatusCode: env.Status, Message: "response missing transaction id or qr string"}
	}

	c.logger.Info().
		Str("transaction_id", data.TransactionID).
		Int64("original_amount", data.OriginalAmount).
		Int64("total_amount", data.TotalAmount).
		Msg("payment session created")

	return &CreateResult{
		TransactionID:  data.TransactionID,
		QRString:       data.QRString,
		OriginalAmount: data.OriginalAmount,
		TotalAmount:    data.TotalAmount,
		UniqueNominal:  data.UniqueNominal,
	}, nil
}

// CheckStatus returns the payment status the provider currently reports for
// the transaction.
func (c *Client) CheckStatus(ctx context.Context, transactionID string) (models.TransactionStatus, error) {
	env, err := c.post(ctx, "check-status", "/api/generate/check-status", map[string]string{
		"transactionId": transactionID,
	})
	if err != nil {
		return "", err
	}
	if len(env.Data) == 0 {
		return "", &Error{Op: "check-status", StatusCode: env.Status, Message: "response missing data"}
	}

	var data statusData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", &Error{Op: "check-status", Err: fmt.Errorf("decode data: %w", err)}
	}

	status := models.TransactionStatus(data.Status)
	if !models.ValidTransactionStatus(status) {
		return "", &Error{Op: "check-status", StatusCode: env.Status, Message: fmt.Sprintf("unknown status %q", data.Status)}
	}
	return status, nil
}

// CancelPayment asks the provider to cancel the payment session. Callers use
// this as advisory cleanup only; the local transaction store is the source of
// truth for cancellation.
func (c *Client) CancelPayment(ctx context.Context, transactionID string) error {
	_, err := c.post(ctx, "cancel", "/api/generate/cancel-status", map[string]string{
		"transactionId": transactionID,
	})
	return err
}

func (c *Client) post(ctx context.Context, op, path string, body any) (*envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("x-license-key", c.licenseKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	if env.Status != http.StatusOK {
		msg := env.Message
		if msg == "" {
			msg = "provider reported failure"
		}
		return nil, &Error{Op: op, StatusCode: env.Status, Message: msg}
	}

	return &env, nil
}
