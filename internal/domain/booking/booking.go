package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/TaskNest-Marketplace/service-admin/pkg/domain"
)

// PricingOption is the {label, price} snapshot chosen at booking time.
// The price is in major currency units and is the monetary amount of record.
type PricingOption struct {
	Label string
	Price float64
}

// Booking is the aggregate root for the booking lifecycle domain.
// Status and payment status only change through the transition methods below.
type Booking struct {
	id              uuid.UUID
	orderNumber     string
	userID          uuid.UUID
	serviceID       uuid.UUID
	bookingDate     time.Time
	timeSlot        string
	address         string
	instructions    string
	pricing         PricingOption
	status          Status
	paymentMethod   PaymentMethod
	paymentStatus   PaymentStatus
	paymentIntentID string
	refundID        string
	version         int64
	createdAt       time.Time
	updatedAt       time.Time
}

// NewBooking creates a new Booking aggregate in the Pending state.
func NewBooking(
	orderNumber string,
	userID, serviceID uuid.UUID,
	bookingDate time.Time,
	timeSlot, address, instructions string,
	pricing PricingOption,
	method PaymentMethod,
	paymentIntentID string,
) (*Booking, error) {
	if orderNumber == "" {
		return nil, domain.NewValidationError("order number is required")
	}
	if pricing.Price < 0 {
		return nil, domain.NewValidationError("pricing option price cannot be negative")
	}
	if !method.IsValid() {
		return nil, domain.NewValidationError("unknown payment method: " + string(method))
	}
	// Card bookings carry a payment intent reference; cash bookings never do.
	if (method == MethodCard) != (paymentIntentID != "") {
		return nil, domain.NewValidationError("payment intent id must be set exactly when payment method is Card")
	}

	now := time.Now().UTC()
	return &Booking{
		id:              uuid.New(),
		orderNumber:     orderNumber,
		userID:          userID,
		serviceID:       serviceID,
		bookingDate:     bookingDate,
		timeSlot:        timeSlot,
		address:         address,
		instructions:    instructions,
		pricing:         pricing,
		status:          StatusPending,
		paymentMethod:   method,
		paymentStatus:   PaymentPending,
		paymentIntentID: paymentIntentID,
		version:         1,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// --- Getters ---

func (b *Booking) ID() uuid.UUID                { return b.id }
func (b *Booking) OrderNumber() string          { return b.orderNumber }
func (b *Booking) UserID() uuid.UUID            { return b.userID }
func (b *Booking) ServiceID() uuid.UUID         { return b.serviceID }
func (b *Booking) BookingDate() time.Time       { return b.bookingDate }
func (b *Booking) TimeSlot() string             { return b.timeSlot }
func (b *Booking) Address() string              { return b.address }
func (b *Booking) Instructions() string         { return b.instructions }
func (b *Booking) Pricing() PricingOption       { return b.pricing }
func (b *Booking) Status() Status               { return b.status }
func (b *Booking) PaymentMethod() PaymentMethod { return b.paymentMethod }
func (b *Booking) PaymentStatus() PaymentStatus { return b.paymentStatus }
func (b *Booking) PaymentIntentID() string      { return b.paymentIntentID }
func (b *Booking) RefundID() string             { return b.refundID }
func (b *Booking) Version() int64               { return b.version }
func (b *Booking) CreatedAt() time.Time         { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time         { return b.updatedAt }

// --- Behavior / State Transitions ---

// TransitionStatus moves the booking to the target status per the transition
// table. Requesting the current status is a no-op and succeeds. Cancelling a
// card booking whose payment is completed is rejected; that path must go
// through the refund flow, which cancels the payment first.
func (b *Booking) TransitionStatus(target Status) error {
	if !target.IsValid() {
		return domain.NewValidationError("unknown booking status: " + string(target))
	}
	if target == b.status {
		return nil
	}
	if b.status == StatusCompleted {
		return domain.NewTerminalStateError(string(b.status))
	}
	if !b.status.CanTransitionTo(target) {
		return domain.NewInvalidTransitionError(string(b.status), string(target))
	}
	if target == StatusCancelled && b.paymentMethod == MethodCard && b.paymentStatus == PaymentCompleted {
		return domain.NewRefundRequiredError(b.orderNumber)
	}
	if target == StatusCompleted && b.paymentMethod == MethodCard && b.paymentStatus != PaymentCompleted {
		return &domain.DomainError{
			Err:     domain.ErrInvalidTransition,
			Message: "cannot complete booking " + b.orderNumber + ": card payment is still outstanding",
		}
	}
	b.status = target
	b.updatedAt = time.Now().UTC()
	return nil
}

// MarkPaid records settlement of the booking's payment. Marking an already
// completed payment is a no-op. Payment completion on a still-pending booking
// confirms it, since a captured charge implies the provider accepted the job.
func (b *Booking) MarkPaid() error {
	if b.paymentStatus == PaymentCompleted {
		return nil
	}
	if b.paymentStatus == PaymentCancelled {
		return &domain.DomainError{
			Err:     domain.ErrInvalidTransition,
			Message: "payment for booking " + b.orderNumber + " was cancelled and cannot be completed",
		}
	}
	if b.status == StatusCancelled {
		return &domain.DomainError{
			Err:     domain.ErrInvalidTransition,
			Message: "booking " + b.orderNumber + " is cancelled; its payment cannot be completed",
		}
	}
	if b.status == StatusPending {
		b.status = StatusConfirmed
	}
	b.paymentStatus = PaymentCompleted
	b.updatedAt = time.Now().UTC()
	return nil
}

// RecordRefund stores the gateway refund id as the de-duplication key.
// The id is written at most once; recording the same id again is a no-op.
func (b *Booking) RecordRefund(refundID string) error {
	if refundID == "" {
		return domain.NewValidationError("refund id is required")
	}
	if b.refundID == refundID {
		return nil
	}
	if b.refundID != "" {
		return domain.NewConflictError("booking " + b.orderNumber + " already has refund " + b.refundID)
	}
	if b.paymentMethod != MethodCard {
		return domain.NewValidationError("only card bookings can carry a refund")
	}
	b.refundID = refundID
	b.updatedAt = time.Now().UTC()
	return nil
}

// CancelPayment marks the payment cancelled after a confirmed refund and
// cancels the booking itself unless it already reached a terminal status.
// A completed booking keeps its status; only the payment side moves.
func (b *Booking) CancelPayment() error {
	if b.paymentStatus == PaymentCancelled {
		return nil
	}
	b.paymentStatus = PaymentCancelled
	if !b.status.IsTerminal() {
		b.status = StatusCancelled
	}
	b.updatedAt = time.Now().UTC()
	return nil
}

// UpdateDetails edits the pass-through scheduling fields. These fields are
// not governed by the state machine but terminal bookings stay immutable.
func (b *Booking) UpdateDetails(bookingDate time.Time, timeSlot, address, instructions string) error {
	if b.status.IsTerminal() {
		return domain.NewTerminalStateError(string(b.status))
	}
	if !bookingDate.IsZero() {
		b.bookingDate = bookingDate
	}
	if timeSlot != "" {
		b.timeSlot = timeSlot
	}
	if address != "" {
		b.address = address
	}
	if instructions != "" {
		b.instructions = instructions
	}
	b.updatedAt = time.Now().UTC()
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}

// --- Reconstitution (used by repository to rebuild from persistence) ---

// Reconstitute rebuilds a Booking from persisted data.
func Reconstitute(
	id uuid.UUID,
	orderNumber string,
	userID, serviceID uuid.UUID,
	bookingDate time.Time,
	timeSlot, address, instructions string,
	pricing PricingOption,
	status Status,
	method PaymentMethod,
	paymentStatus PaymentStatus,
	paymentIntentID, refundID string,
	version int64,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:              id,
		orderNumber:     orderNumber,
		userID:          userID,
		serviceID:       serviceID,
		bookingDate:     bookingDate,
		timeSlot:        timeSlot,
		address:         address,
		instructions:    instructions,
		pricing:         pricing,
		status:          status,
		paymentMethod:   method,
		paymentStatus:   paymentStatus,
		paymentIntentID: paymentIntentID,
		refundID:        refundID,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}
