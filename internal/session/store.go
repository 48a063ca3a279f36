// Package session persists in-flight payment sessions in Redis so a buyer
// who reloads the page can resume polling the same transaction instead of
// opening a duplicate payment.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// keyPrefix namespaces session keys in a shared Redis.
const keyPrefix = "lisensi:session:"

// ttlGrace keeps a session readable slightly past its payment expiry so the
// client sees a definitive expired answer instead of a missing session.
const ttlGrace = 5 * time.Minute

// ErrNoSession is returned when no resumable session exists for the buyer.
var ErrNoSession = errors.New("no active session")

// Session is the resumable state of one pending payment.
type Session struct {
	TransactionID string    `json:"transaction_id"`
	CustomerName  string    `json:"customer_name"`
	PackageName   string    `json:"package_name"`
	TotalAmount   int64     `json:"total_amount"`
	QRString      string    `json:"qr_string"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Store reads and writes sessions in Redis, keyed by the buyer's whatsapp
// number. One buyer has at most one active session.
type Store struct {
	client *redis.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewStore creates a session Store on the given Redis client.
func NewStore(client *redis.Client, logger zerolog.Logger) *Store {
	return &Store{
		client: client,
		logger: logger.With().Str("component", "session").Logger(),
		now:    time.Now,
	}
}

// Save stores the session with a TTL derived from the payment expiry.
func (s *Store) Save(ctx context.Context, customerWhatsapp string, sess *Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(sess.ExpiresAt) + ttlGrace
	if ttl <= 0 {
		return fmt.Errorf("session for %s already expired", sess.TransactionID)
	}

	if err := s.client.Set(ctx, keyPrefix+customerWhatsapp, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.logger.Debug().
		Str("transaction_id", sess.TransactionID).
		Time("expires_at", sess.ExpiresAt).
		Msg("session saved")
	return nil
}

// Get returns the buyer's active session. A session whose payment expiry has
// passed is discarded locally without any provider round trip.
func (s *Store) Get(ctx context.Context, customerWhatsapp string) (*Session, error) {
	payload, err := s.client.Get(ctx, keyPrefix+customerWhatsapp).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		// Unreadable payload: drop it so the buyer can start fresh.
		s.logger.Warn().Err(err).Msg("discarding corrupt session payload")
		_ = s.client.Del(ctx, keyPrefix+customerWhatsapp).Err()
		return nil, ErrNoSession
	}

	if s.now().After(sess.ExpiresAt) {
		_ = s.client.Del(ctx, keyPrefix+customerWhatsapp).Err()
		return nil, ErrNoSession
	}

	return &sess, nil
}

// Delete removes the buyer's session once the payment reaches a terminal
// state.
func (s *Store) Delete(ctx context.Context, customerWhatsapp string) error {
	if err := s.client.Del(ctx, keyPrefix+customerWhatsapp).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
