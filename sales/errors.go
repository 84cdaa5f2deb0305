/*
errors.go - Error taxonomy for the sale engine

PURPOSE:
  All error kinds in one place. Every rejection is a local, recoverable,
  user-actionable error that names the failing field and line.

ERROR KINDS:
  ErrEmployeeInvalid:  employee missing, unknown, or inactive
  ErrEmptyOrder:       no line items
  ErrItemInvalid:      a line has no product id or a non-positive quantity
  ErrProductInvalid:   a referenced product is unknown or inactive
  ErrTotalMismatch:    declared total differs from the calculated one
  ErrCommitFailed:     catalog lookup or atomic write failed

USAGE:
  if errors.Is(err, sales.ErrProductInvalid) { ... }

  var verr *sales.ValidationError
  if errors.As(err, &verr) {
      fmt.Println(verr.Field, verr.Line)
  }
*/
package sales

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrEmployeeInvalid = errors.New("employee invalid")
	ErrEmptyOrder      = errors.New("empty order")
	ErrItemInvalid     = errors.New("item invalid")
	ErrProductInvalid  = errors.New("product invalid")
	ErrTotalMismatch   = errors.New("total mismatch")

	// ErrCommitFailed wraps any unexpected catalog or persistence failure.
	ErrCommitFailed = errors.New("commit failed")

	// ErrSaleNotFound is returned by stores for unknown sale ids.
	ErrSaleNotFound = errors.New("sale not found")

	// ErrDuplicateSale is returned when a sale id is written twice.
	ErrDuplicateSale = errors.New("duplicate sale")
)

// NoLine marks a ValidationError that is not tied to a specific line.
const NoLine = -1

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError reports which field (and line, if any) failed.
type ValidationError struct {
	Kind    error
	Field   string
	Line    int
	Message string
}

func (e *ValidationError) Error() string {
	if e.Line == NoLine {
		return fmt.Sprintf("%v: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%v: items[%d].%s: %s", e.Kind, e.Line, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// TotalMismatchError carries both figures so the client can correct the request.
type TotalMismatchError struct {
	Declared   decimal.Decimal
	Calculated decimal.Decimal
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("total mismatch: declared %s, calculated %s",
		e.Declared.StringFixed(2), e.Calculated.StringFixed(2))
}

func (e *TotalMismatchError) Unwrap() error { return ErrTotalMismatch }

// CommitError wraps a collaborator failure. It matches both ErrCommitFailed
// and the underlying cause.
type CommitError struct {
	Stage string
	Err   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed: %s: %v", e.Stage, e.Err)
}

func (e *CommitError) Unwrap() []error { return []error{ErrCommitFailed, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the request itself must be fixed.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmployeeInvalid) ||
		errors.Is(err, ErrEmptyOrder) ||
		errors.Is(err, ErrItemInvalid) ||
		errors.Is(err, ErrProductInvalid) ||
		errors.Is(err, ErrTotalMismatch)
}

// Code returns the taxonomy name of err, or "" for unknown errors.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrEmployeeInvalid):
		return "EmployeeInvalid"
	case errors.Is(err, ErrEmptyOrder):
		return "EmptyOrder"
	case errors.Is(err, ErrItemInvalid):
		return "ItemInvalid"
	case errors.Is(err, ErrProductInvalid):
		return "ProductInvalid"
	case errors.Is(err, ErrTotalMismatch):
		return "TotalMismatch"
	case errors.Is(err, ErrCommitFailed):
		return "CommitFailed"
	}
	return ""
}
