package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain error taxonomy. Callers match with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrRefundRequired    = errors.New("refund required")
	ErrTerminalState     = errors.New("terminal state")
	ErrValidation        = errors.New("validation failed")
	ErrGateway           = errors.New("gateway error")
)

// DomainError wraps a sentinel with a human-readable message.
type DomainError struct {
	Err     error
	Message string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

// Unwrap exposes the sentinel for errors.Is / errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a not-found error for an entity and its identifier.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{Err: ErrNotFound, Message: fmt.Sprintf("%s %s", entity, id)}
}

// NewConflictError creates an optimistic-concurrency conflict error.
func NewConflictError(message string) *DomainError {
	return &DomainError{Err: ErrConflict, Message: message}
}

// NewInvalidTransitionError creates a state-machine rejection error.
func NewInvalidTransitionError(from, to string) *DomainError {
	return &DomainError{Err: ErrInvalidTransition, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// NewRefundRequiredError signals that a cancellation needs a refund first.
func NewRefundRequiredError(orderNumber string) *DomainError {
	return &DomainError{Err: ErrRefundRequired, Message: fmt.Sprintf("booking %s holds a completed card payment; refund it to cancel", orderNumber)}
}

// NewTerminalStateError signals a mutation attempt on a terminal booking.
func NewTerminalStateError(status string) *DomainError {
	return &DomainError{Err: ErrTerminalState, Message: fmt.Sprintf("booking is %s and immutable", status)}
}

// NewValidationError creates a malformed-input error.
func NewValidationError(message string) *DomainError {
	return &DomainError{Err: ErrValidation, Message: message}
}

// NewGatewayError wraps a payment processor failure. The cause is kept verbatim.
func NewGatewayError(cause error) *DomainError {
	return &DomainError{Err: ErrGateway, Message: cause.Error()}
}
