package services

import "fmt"

// Error kinds for the order core. Callers branch on the concrete type with
// errors.As instead of matching message strings; the Code fields carry the
// machine-readable reason surfaced to API clients.

// ValidationError indicates malformed client input. It is returned before
// any transaction is started.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError indicates the requested resource does not exist or sits
// outside the caller's authorization scope. The two cases are deliberately
// indistinguishable so existence is never leaked.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// BusinessRuleError indicates a domain rule rejected the request:
// insufficient stock, a duplicate in-flight order, an inactive or unapproved
// warehouse, an illegal state transition, a missing rejection reason.
type BusinessRuleError struct {
	Code    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

// ConflictError indicates a lost race: state observed before the row lock no
// longer held once the lock was acquired. The request may be retried.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// SystemError wraps database or infrastructure failures. The enclosing
// transaction is guaranteed rolled back when one is returned.
type SystemError struct {
	Message string
	Err     error
}

func (e *SystemError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SystemError) Unwrap() error {
	return e.Err
}

// Machine-readable business rule codes.
const (
	CodeInsufficientStock     = "insufficient_stock"
	CodeOrderInFlight         = "order_in_flight"
	CodeWarehouseUnavailable  = "warehouse_unavailable"
	CodeInvalidTransition     = "invalid_transition"
	CodeTransitionForbidden   = "transition_role_forbidden"
	CodeRejectionReasonNeeded = "rejection_reason_required"
	CodeDeliveryExists        = "delivery_exists"
)
