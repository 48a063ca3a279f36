package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/arexans/lisensi/internal/payment"
	"github.com/arexans/lisensi/internal/session"
)

// PaymentService drives the payment lifecycle.
type PaymentService interface {
	CreateQuote(ctx context.Context, req payment.QuoteRequest) (*payment.QuoteResult, error)
	PollOnce(ctx context.Context, providerID string) (*payment.PollResult, error)
	Cancel(ctx context.Context, providerID string) (*payment.PollResult, error)
}

// SessionStore persists resumable payment sessions.
type SessionStore interface {
	Save(ctx context.Context, customerWhatsapp string, sess *session.Session) error
	Get(ctx context.Context, customerWhatsapp string) (*session.Session, error)
	Delete(ctx context.Context, customerWhatsapp string) error
}

// TransactionWatcher runs the server-side poll loop for a transaction.
type TransactionWatcher interface {
	Watch(providerID string, expiresAt time.Time)
}

// PaymentsHandler handles payment HTTP endpoints.
type PaymentsHandler struct {
	service  PaymentService
	sessions SessionStore
	watcher  TransactionWatcher
	logger   zerolog.Logger
}

// NewPaymentsHandler creates a new PaymentsHandler. sessions and watcher may
// be nil, which disables session resume and server-side polling.
func NewPaymentsHandler(service PaymentService, sessions SessionStore, watcher TransactionWatcher, logger zerolog.Logger) *PaymentsHandler {
	return &PaymentsHandler{
		service:  service,
		sessions: sessions,
		watcher:  watcher,
		logger:   logger.With().Str("component", "payments_handler").Logger(),
	}
}

// RegisterRoutes registers payment routes on the given router group.
func (h *PaymentsHandler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.POST("", h.Create)
		payments.GET("/resume", h.Resume)
		payments.GET("/:id", h.Status)
		payments.POST("/:id/cancel", h.Cancel)
	}
}

// createRequest is the body for creating a payment.
type createRequest struct {
	CustomerName     string `json:"customer_name" binding:"required"`
	CustomerEmail    string `json:"customer_email"`
	CustomerWhatsapp string `json:"customer_whatsapp" binding:"required"`
	PackageName      string `json:"package_name" binding:"required"`
	DurationDays     int    `json:"duration_days" binding:"required,min=1"`
}

// Create opens a payment session and returns the QR code to scan.
// POST /api/v1/payments
func (h *PaymentsHandler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	// A buyer with a live pending payment resumes it instead of opening a
	// second one.
	if h.sessions != nil {
		if sess, err := h.sessions.Get(c.Request.Context(), req.CustomerWhatsapp); err == nil {
			h.logger.Info().Str("transaction_id", sess.TransactionID).Msg("resuming existing payment session")
			c.JSON(http.StatusOK, gin.H{
				"resumed": true,
				"data": payment.QuoteResult{
					TransactionID: sess.TransactionID,
					QRString:      sess.QRString,
					TotalAmount:   sess.TotalAmount,
					ExpiresAt:     sess.ExpiresAt,
				},
			})
			return
		}
	}

	quote, err := h.service.CreateQuote(c.Request.Context(), payment.QuoteRequest{
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		CustomerWhatsapp: req.CustomerWhatsapp,
		PackageName:      req.PackageName,
		DurationDays:     req.DurationDays,
	})
	if err != nil {
		h.writeServiceError(c, err, "create payment")
		return
	}

	if h.sessions != nil {
		sess := &session.Session{
			TransactionID: quote.TransactionID,
			CustomerName:  req.CustomerName,
			PackageName:   req.PackageName,
			TotalAmount:   quote.TotalAmount,
			QRString:      quote.QRString,
			ExpiresAt:     quote.ExpiresAt,
		}
		if err := h.sessions.Save(c.Request.Context(), req.CustomerWhatsapp, sess); err != nil {
			h.logger.Warn().Err(err).Str("transaction_id", quote.TransactionID).Msg("failed to save payment session")
		}
	}

	if h.watcher != nil {
		h.watcher.Watch(quote.TransactionID, quote.ExpiresAt)
	}

	c.JSON(http.StatusCreated, gin.H{"data": quote})
}

// Status polls the transaction once and returns its current state.
// GET /api/v1/payments/:id
func (h *PaymentsHandler) Status(c *gin.Context) {
	providerID := c.Param("id")

	res, err := h.service.PollOnce(c.Request.Context(), providerID)
	if err != nil {
		h.writeServiceError(c, err, "poll payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

// Cancel cancels a pending transaction.
// POST /api/v1/payments/:id/cancel
func (h *PaymentsHandler) Cancel(c *gin.Context) {
	providerID := c.Param("id")

	res, err := h.service.Cancel(c.Request.Context(), providerID)
	if err != nil {
		h.writeServiceError(c, err, "cancel payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

// Resume returns the buyer's active payment session, if any.
// GET /api/v1/payments/resume?whatsapp=...
func (h *PaymentsHandler) Resume(c *gin.Context) {
	if h.sessions == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
		return
	}

	whatsapp := c.Query("whatsapp")
	if whatsapp == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "whatsapp query parameter is required"})
		return
	}

	sess, err := h.sessions.Get(c.Request.Context(), whatsapp)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
			return
		}
		h.logger.Error().Err(err).Msg("failed to load payment session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sess})
}

func (h *PaymentsHandler) writeServiceError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, payment.ErrInvalidQuote):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, payment.ErrAmountTooSmall):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, payment.ErrPackageUnknown):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown package"})
	case errors.Is(err, payment.ErrTransactionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
	default:
		h.logger.Error().Err(err).Msg("failed to " + op)
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
	}
}
