package payment

import "errors"

// MinAmount is the smallest payable amount in IDR minor units. Quotes below
// it are rejected before any provider call.
const MinAmount = 1000

var (
	// ErrAmountTooSmall is returned when a quote's computed amount is below
	// MinAmount.
	ErrAmountTooSmall = errors.New("amount is below the minimum payable amount")

	// ErrPackageUnknown is returned when the requested package does not exist
	// or is not active.
	ErrPackageUnknown = errors.New("unknown or inactive package")

	// ErrTransactionNotFound is returned when no transaction exists for the
	// given provider transaction id.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidQuote is returned when required quote fields are missing.
	ErrInvalidQuote = errors.New("invalid quote request")
)
