// Package errors defines the error taxonomy shared by the storefront layers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a keyed resource does not exist and its
	// absence is meaningful to the caller (order by transaction id, product by id).
	ErrNotFound = stderrors.New("not found")

	// ErrEmptyCart means no valid items remained after re-validation against
	// the catalog. The caller should send the user back to the cart.
	ErrEmptyCart = stderrors.New("no valid items to check out")

	// ErrNothingToCharge blocks submission of a zero-item or zero-total checkout.
	ErrNothingToCharge = stderrors.New("nothing to charge")

	// ErrPaymentDeclined is a retryable payment failure. Nothing was persisted.
	ErrPaymentDeclined = stderrors.New("payment declined")

	// ErrStoreUnavailable wraps backing store failures.
	ErrStoreUnavailable = stderrors.New("store unavailable")

	// ErrOrderPending means the payment went through but the order could not
	// be written yet. The checkout must not be retried by the caller.
	ErrOrderPending = stderrors.New("payment captured, order pending")
)

// OrderPendingError carries the transaction id of a charged checkout whose
// order write failed. The reconciler finishes it from the checkout intent.
type OrderPendingError struct {
	TransactionID string
	Err           error
}

func (e *OrderPendingError) Error() string {
	return fmt.Sprintf("order %s pending: %v", e.TransactionID, e.Err)
}

func (e *OrderPendingError) Unwrap() []error {
	return []error{ErrOrderPending, e.Err}
}

// IsOrderPending reports whether err is (or wraps) an OrderPendingError.
func IsOrderPending(err error) (*OrderPendingError, bool) {
	var p *OrderPendingError
	if stderrors.As(err, &p) {
		return p, true
	}
	return nil, false
}

// ValidationError reports input rejected before any store mutation.
type ValidationError struct {
	Field   string            `json:"field"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a field-level validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Details: map[string]string{field: message},
	}
}

// WithDetail adds another field-level message.
func (e *ValidationError) WithDetail(field, message string) *ValidationError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[field] = message
	return e
}

// StoreError wraps a failure of a backing store operation.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if stderrors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// Is and As re-export the standard library helpers so callers importing this
// package don't also need the standard errors package.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target interface{}) bool { return stderrors.As(err, target) }

// Join joins messages of several errors, skipping nils.
func Join(errs ...error) error { return stderrors.Join(errs...) }

// New creates a plain error.
func New(text string) error { return stderrors.New(text) }

// Messages flattens a list of errors to their messages.
func Messages(errs []error) string {
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			parts = append(parts, err.Error())
		}
	}
	return strings.Join(parts, "; ")
}
