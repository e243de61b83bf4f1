package events

import (
	"time"

	"github.com/google/uuid"
)

// Kafka topics.
const (
	// TopicBookingEvents carries lifecycle events published by this service.
	TopicBookingEvents = "booking.events"
	// TopicGatewayEvents carries settlement/refund notifications relayed from
	// the payment processor's webhooks.
	TopicGatewayEvents = "gateway.events"
)

// Event types published on TopicBookingEvents.
const (
	BookingStatusChanged    = "booking.status.changed"
	BookingPaymentCompleted = "booking.payment.completed"
	BookingPaymentRefunded  = "booking.payment.refunded"
)

// Event types consumed from TopicGatewayEvents. The literals match the
// processor's own event names.
const (
	GatewayPaymentSucceeded = "payment_intent.succeeded"
	GatewayChargeRefunded   = "charge.refunded"
)

// StatusChangedEvent announces a booking status transition.
type StatusChangedEvent struct {
	BookingID   uuid.UUID `json:"booking_id"`
	OrderNumber string    `json:"order_number"`
	OldStatus   string    `json:"old_status"`
	NewStatus   string    `json:"new_status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// PaymentCompletedEvent announces settlement of a booking's payment.
type PaymentCompletedEvent struct {
	BookingID   uuid.UUID `json:"booking_id"`
	OrderNumber string    `json:"order_number"`
	AmountCents int64     `json:"amount_cents"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// PaymentRefundedEvent announces a confirmed refund and the resulting cancellation.
type PaymentRefundedEvent struct {
	BookingID       uuid.UUID `json:"booking_id"`
	OrderNumber     string    `json:"order_number"`
	PaymentIntentID string    `json:"payment_intent_id"`
	RefundID        string    `json:"refund_id"`
	AmountCents     int64     `json:"amount_cents"`
	Reason          string    `json:"reason,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// PaymentSucceededEvent is the inbound gateway notification of a captured charge.
// The order number travels in the intent's metadata on the processor side.
type PaymentSucceededEvent struct {
	PaymentIntentID string    `json:"payment_intent_id"`
	OrderNumber     string    `json:"order_number"`
	AmountCents     int64     `json:"amount_cents"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// ChargeRefundedEvent is the inbound gateway notification of a settled refund.
type ChargeRefundedEvent struct {
	PaymentIntentID string    `json:"payment_intent_id"`
	RefundID        string    `json:"refund_id"`
	AmountCents     int64     `json:"amount_cents"`
	Reason          string    `json:"reason,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}
