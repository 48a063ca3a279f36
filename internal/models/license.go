package models

import "time"

// LicenseEntry is one record in the external append-only license ledger.
// Entries are appended on successful payment and never mutated in place.
//
// The key is the buyer-supplied customer name recorded at quote time. The
// ledger format inherits this from the storefront it serves: keys are not
// generated, so two buyers entering the same name collide on the same key.
// See DESIGN.md before changing the derivation.
type LicenseEntry struct {
	Key     string    `json:"key"`
	Expired time.Time `json:"expired"`
	Role    string    `json:"role"`
}

// NewLicenseEntry builds a ledger entry for a paid transaction. Role carries
// the package tier name.
func NewLicenseEntry(key, packageName string, expiry time.Time) LicenseEntry {
	return LicenseEntry{
		Key:     key,
		Expired: expiry.UTC(),
		Role:    packageName,
	}
}
