package domain

import "fmt"

// Errors returned by stores and services. Handlers map them to HTTP
// statuses with errors.As, so every store must produce these rather than
// driver-specific errors.

// ErrNotFound indicates that no vehicle, driver or transaction has the
// given row id.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ErrConflict indicates a write collided with a unique column: a
// transaction_id, a VIN, a license plate or a driver's license number.
// Field and Key are empty when the backend did not report them.
type ErrConflict struct {
	Resource string
	Field    string
	Key      string
}

func (e *ErrConflict) Error() string {
	switch {
	case e.Field != "" && e.Key != "":
		return fmt.Sprintf("%s with %s %q already exists", e.Resource, e.Field, e.Key)
	case e.Field != "":
		return fmt.Sprintf("%s with this %s already exists", e.Resource, e.Field)
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

// TransactionConflict reports a duplicate transaction_id.
func TransactionConflict(transactionID string) *ErrConflict {
	return &ErrConflict{Resource: "transaction", Field: "transaction_id", Key: transactionID}
}

// ErrValidation indicates a request field that failed validation. Field is
// the JSON path of the offending value, e.g. "transactions[2].amount".
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates a missing or invalid bearer token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrExternalService wraps a storage backend failure that survived retries.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates a storage call ran past its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("%s timed out", e.Operation)
}

// ErrCircuitOpen indicates the breaker in front of a backend is rejecting calls.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("%s is unavailable: circuit open", e.Service)
}
