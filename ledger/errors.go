/*
errors.go - Centralized error types for the sale ledger

PURPOSE:
  All error kinds in one place. The ledger carries the kind and the
  relevant data (e.g. available stock); rendering a user-facing message is
  the caller's job (CLI or HTTP layer).

ERROR CATEGORIES:
  1. Not-found errors   - member/book/sale lookups
  2. Validation errors  - bad quantity, discount, date
  3. Stock errors       - insufficient stock, concurrent-write conflict
  4. Storage errors     - underlying transaction failures (always rolled back)

USAGE:
  if errors.Is(err, ledger.ErrInsufficientStock) {
      var stockErr *ledger.InsufficientStockError
      errors.As(err, &stockErr)
      fmt.Println("only", stockErr.Available, "left")
  }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMemberNotFound is returned when a referenced member doesn't exist.
	ErrMemberNotFound = errors.New("member not found")

	// ErrBookNotFound is returned when a referenced book doesn't exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrSaleNotFound is returned when a sale id doesn't exist.
	// Deleting a missing sale surfaces this; it is never a silent no-op.
	ErrSaleNotFound = errors.New("sale not found")

	// ErrInsufficientStock is returned when a create or update would drive
	// book stock below zero. No mutation happens.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidInput is returned for non-positive quantity, negative
	// discount, or a malformed sale date.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStockConflict is returned when a concurrent writer holds the book
	// row. The caller may retry; stock is never corrupted.
	ErrStockConflict = errors.New("stock write conflict")

	// ErrStorage wraps underlying store failures. The ledger guarantees the
	// transaction was rolled back before this is returned.
	ErrStorage = errors.New("storage error")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientStockError reports how much stock was actually available to
// the failing operation. For an update, Available includes the units the
// sale itself had reserved, since those can be re-requested.
type InsufficientStockError struct {
	BookID    BookID
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for book %s: available %d, requested %d",
		e.BookID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// InvalidInputError reports which input failed validation.
type InvalidInputError struct {
	Field  string // "quantity", "discount", "date"
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrBookNotFound) ||
		errors.Is(err, ErrSaleNotFound)
}

// IsClientError returns true if the error is due to invalid caller input
// rather than a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInsufficientStock) ||
		IsNotFound(err)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStockConflict)
}
