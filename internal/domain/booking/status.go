package booking

import (
	"github.com/TaskNest-Marketplace/service-admin/pkg/domain"
)

// Status represents the current state of a booking in its lifecycle.
// The literals match the stored record values.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusConfirmed  Status = "Confirmed"
	StatusInProgress Status = "In-Progress"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

// validTransitions defines the state machine for booking status transitions.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// IsValid returns true if the status is a recognized booking status.
func (s Status) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s Status) IsTerminal() bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a string to a Status, rejecting unknown literals.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", domain.NewValidationError("unknown booking status: " + s)
	}
	return status, nil
}

// PaymentStatus represents the settlement state of a booking's payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentCompleted PaymentStatus = "Completed"
	PaymentCancelled PaymentStatus = "Cancelled"
)

// IsValid returns true if the payment status is a recognized literal.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentCancelled:
		return true
	}
	return false
}

// ParsePaymentStatus converts a string to a PaymentStatus, rejecting unknown literals.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(s)
	if !status.IsValid() {
		return "", domain.NewValidationError("unknown payment status: " + s)
	}
	return status, nil
}

// PaymentMethod is how the customer chose to pay for the booking.
type PaymentMethod string

const (
	MethodCashOnDelivery PaymentMethod = "CashOnDelivery"
	MethodCard           PaymentMethod = "Card"
)

// IsValid returns true if the payment method is a recognized literal.
func (m PaymentMethod) IsValid() bool {
	return m == MethodCashOnDelivery || m == MethodCard
}

// ParsePaymentMethod converts a string to a PaymentMethod, rejecting unknown literals.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	method := PaymentMethod(s)
	if !method.IsValid() {
		return "", domain.NewValidationError("unknown payment method: " + s)
	}
	return method, nil
}
