package license

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arexans/lisensi/internal/models"
	"github.com/rs/zerolog"
)

type fakeLedger struct {
	entries []models.LicenseEntry
	err     error
}

func (f *fakeLedger) Append(_ context.Context, entry models.LicenseEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func TestDeriveKey(t *testing.T) {
	tx := models.NewTransaction("TX1", "budi santoso", "0812", "VIP", 7)
	if key := DeriveKey(tx); key != "budi santoso" {
		t.Errorf("key must equal the customer name, got %q", key)
	}
}

func TestExpiryFor(t *testing.T) {
	tx := models.NewTransaction("TX1", "budi", "0812", "VIP", 7)
	paidAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	expiry := ExpiryFor(tx, paidAt)
	want := time.Date(2025, 3, 8, 10, 0, 0, 0, time.UTC)
	if !expiry.Equal(want) {
		t.Errorf("expected %v, got %v", want, expiry)
	}
}

func TestIssueAppendsToLedger(t *testing.T) {
	ledger := &fakeLedger{}
	issuer := NewIssuer(ledger, zerolog.Nop())

	expiry := time.Now().Add(7 * 24 * time.Hour)
	if err := issuer.Issue(context.Background(), "budi", "VIP", expiry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ledger.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(ledger.entries))
	}
	entry := ledger.entries[0]
	if entry.Key != "budi" || entry.Role != "VIP" {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestIssueReportsLedgerFailure(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("api down")}
	issuer := NewIssuer(ledger, zerolog.Nop())

	err := issuer.Issue(context.Background(), "budi", "VIP", time.Now())
	if err == nil {
		t.Fatal("expected error when ledger is unreachable")
	}
}

func TestIssueWithoutLedger(t *testing.T) {
	issuer := NewIssuer(nil, zerolog.Nop())
	if err := issuer.Issue(context.Background(), "budi", "VIP", time.Now()); err != nil {
		t.Fatalf("nil ledger must not error: %v", err)
	}
}
