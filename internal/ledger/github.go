// Package ledger provides the external append-only license ledger backed by
// a versioned JSON file in a GitHub repository.
package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arexans/lisensi/internal/config"
	"github.com/arexans/lisensi/internal/models"
	"github.com/rs/zerolog"
)

// DefaultTimeout is the default timeout for ledger requests.
const DefaultTimeout = 30 * time.Second

// maxConflictRetries bounds how many times an append is retried after losing
// an optimistic-concurrency race on the underlying file.
const maxConflictRetries = 3

// ConflictError is returned when the file SHA changed between read and write
// and all retries were exhausted.
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("ledger write conflict on %s after %d attempts", e.Path, maxConflictRetries)
}

// GitHubLedger appends license entries to a JSON array file via the GitHub
// Contents API. Writes are conditioned on the blob SHA read beforehand, so
// two racing issuances cannot silently drop each other's entries.
type GitHubLedger struct {
	apiBase string
	token   string
	owner   string
	repo    string
	path    string
	client  *http.Client
	logger  zerolog.Logger
}

// Option configures a GitHubLedger.
type Option func(*GitHubLedger)

// WithAPIBase overrides the GitHub API base URL. Used by tests.
func WithAPIBase(base string) Option {
	return func(l *GitHubLedger) { l.apiBase = base }
}

// New creates a GitHubLedger from ledger configuration.
func New(cfg config.LedgerConfig, logger zerolog.Logger, opts ...Option) *GitHubLedger {
	l := &GitHubLedger{
		apiBase: "https://api.github.com",
		token:   cfg.Token,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		path:    cfg.Path,
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  logger.With().Str("component", "ledger").Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// contentsResponse is the Contents API GET payload.
type contentsResponse struct {
	SHA     string `json:"sha"`
	Content string `json:"content"`
}

// Append adds entry to the ledger file. Read-modify-write: fetch the current
// array and its SHA, append, write back conditioned on that SHA. On a
// conflict the whole cycle is retried with a fresh read.
func (l *GitHubLedger) Append(ctx context.Context, entry models.LicenseEntry) error {
	var lastErr error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		entries, sha, err := l.read(ctx)
		if err != nil {
			return err
		}

		entries = append(entries, entry)

		err = l.write(ctx, entries, sha, entry.Key)
		if err == nil {
			l.logger.Info().
				Str("key", entry.Key).
				Str("role", entry.Role).
				Int("entries", len(entries)).
				Msg("license appended to ledger")
			return nil
		}

		if !isConflict(err) {
			return err
		}
		lastErr = err
		l.logger.Warn().Err(err).Int("attempt", attempt).Msg("ledger write conflict, retrying")
	}
	return fmt.Errorf("%w: %v", &ConflictError{Path: l.path}, lastErr)
}

// read fetches the current ledger entries and the file's blob SHA. A missing
// file yields an empty slice and empty SHA so the first write bootstraps it.
func (l *GitHubLedger) read(ctx context.Context) ([]models.LicenseEntry, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.contentsURL(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("create ledger read request: %w", err)
	}
	l.setHeaders(req)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("read ledger: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []models.LicenseEntry{}, "", nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("read ledger: status %d: %s", resp.StatusCode, string(body))
	}

	var contents contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&contents); err != nil {
		return nil, "", fmt.Errorf("decode ledger response: %w", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(stripNewlines(contents.Content))
	if err != nil {
		return nil, "", fmt.Errorf("decode ledger content: %w", err)
	}

	var entries []models.LicenseEntry
	if err := json.Unmarshal(decoded, &entries); err != nil {
		// A corrupt or empty file is treated as empty rather than blocking
		// issuance; the next write restores a valid array.
		l.logger.Warn().Err(err).Msg("ledger file is not a valid JSON array, starting fresh")
		entries = []models.LicenseEntry{}
	}

	return entries, contents.SHA, nil
}

type updateRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
}

func (l *GitHubLedger) write(ctx context.Context, entries []models.LicenseEntry, sha, key string) error {
	serialized, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger entries: %w", err)
	}

	payload, err := json.Marshal(updateRequest{
		Message: fmt.Sprintf("Add license key: %s", key),
		Content: base64.StdEncoding.EncodeToString(serialized),
		SHA:     sha,
	})
	if err != nil {
		return fmt.Errorf("marshal ledger update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, l.contentsURL(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create ledger write request: %w", err)
	}
	l.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return nil
	case resp.StatusCode == http.StatusConflict:
		return errConflict
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("write ledger: status %d: %s", resp.StatusCode, string(body))
	}
}

func (l *GitHubLedger) contentsURL() string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", l.apiBase, l.owner, l.repo, l.path)
}

func (l *GitHubLedger) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "token "+l.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
}

var errConflict = fmt.Errorf("ledger sha mismatch")

func isConflict(err error) bool {
	return err == errConflict
}

// stripNewlines removes the line breaks GitHub inserts into base64 content.
func stripNewlines(s string) string {
	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\n' && s[i] != '\r' {
			buf = append(buf, s[i])
		}
	}
	return string(buf)
}
