package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TaskNest-Marketplace/service-admin/internal/adapter"
	"github.com/TaskNest-Marketplace/service-admin/internal/domain/booking"
	"github.com/TaskNest-Marketplace/service-admin/internal/events"
	"github.com/TaskNest-Marketplace/service-admin/pkg/domain"
	"github.com/TaskNest-Marketplace/service-admin/pkg/kafka"
)

const eventSource = "service-admin"

// EventPublisher publishes lifecycle events. Satisfied by kafka.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// errNoChange signals that the requested change is already in effect; the
// operation returns the current booking without a store write.
var errNoChange = errors.New("no change")

// Service orchestrates requested changes across state-machine validation,
// store persistence, and gateway calls. Every operation is safe under
// concurrent invocation on the same order number or payment intent.
type Service struct {
	repo           booking.Repository
	gateway        adapter.StripeAdapter
	producer       EventPublisher
	gatewayTimeout time.Duration
	logger         *zap.Logger
}

// NewService creates a reconciliation service.
func NewService(
	repo booking.Repository,
	gateway adapter.StripeAdapter,
	producer EventPublisher,
	gatewayTimeout time.Duration,
	logger *zap.Logger,
) *Service {
	if gatewayTimeout <= 0 {
		gatewayTimeout = 10 * time.Second
	}
	return &Service{
		repo:           repo,
		gateway:        gateway,
		producer:       producer,
		gatewayTimeout: gatewayTimeout,
		logger:         logger,
	}
}

// SetStatus validates and applies a status transition on the booking
// identified by order number. Transitions that would strand a completed card
// payment are rejected before any mutation.
func (s *Service) SetStatus(ctx context.Context, orderNumber string, target booking.Status) (*booking.Booking, error) {
	s.logger.Info("setting booking status",
		zap.String("order_number", orderNumber),
		zap.String("target", target.String()),
	)

	var oldStatus booking.Status
	changed := false
	b, err := s.applyWithRetry(ctx,
		func(ctx context.Context) (*booking.Booking, error) {
			return s.repo.FindByOrderNumber(ctx, orderNumber)
		},
		func(b *booking.Booking) error {
			oldStatus = b.Status()
			changed = false
			if b.Status() == target {
				return errNoChange
			}
			if err := b.TransitionStatus(target); err != nil {
				return err
			}
			changed = true
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	if changed {
		s.publishStatusChanged(ctx, b, oldStatus)
	}
	return b, nil
}

// MarkPaid records settlement of the booking's payment. A payment that is
// already completed returns success without a store write, so duplicate
// gateway notifications are tolerated.
func (s *Service) MarkPaid(ctx context.Context, orderNumber string) (*booking.Booking, error) {
	s.logger.Info("marking payment completed", zap.String("order_number", orderNumber))

	changed := false
	b, err := s.applyWithRetry(ctx,
		func(ctx context.Context) (*booking.Booking, error) {
			return s.repo.FindByOrderNumber(ctx, orderNumber)
		},
		func(b *booking.Booking) error {
			changed = false
			if b.PaymentStatus() == booking.PaymentCompleted {
				return errNoChange
			}
			if err := b.MarkPaid(); err != nil {
				return err
			}
			changed = true
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	if changed {
		s.publish(ctx, events.BookingPaymentCompleted, events.PaymentCompletedEvent{
			BookingID:   b.ID(),
			OrderNumber: b.OrderNumber(),
			AmountCents: adapter.ToMinorUnits(b.Pricing().Price),
			OccurredAt:  time.Now().UTC(),
		})
	}
	return b, nil
}

// RefundAndCancel refunds the booking's card payment at the gateway and, on
// confirmed success, cancels payment status and (unless terminal) booking
// status. A booking whose payment is already cancelled is returned as-is
// without a second gateway call. A zero amount refunds the full charge.
func (s *Service) RefundAndCancel(ctx context.Context, paymentIntentID string, amount float64, reason string) (*booking.Booking, error) {
	b, err := s.repo.FindByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus() == booking.PaymentCancelled {
		s.logger.Info("payment already cancelled, skipping gateway refund",
			zap.String("order_number", b.OrderNumber()),
			zap.String("refund_id", b.RefundID()),
		)
		return b, nil
	}

	amountCents := int64(0)
	if amount > 0 {
		amountCents = adapter.ToMinorUnits(amount)
	}

	// One refund per intent. The key is stable across retries and across
	// concurrent callers, so the gateway collapses them onto a single refund.
	idempotencyKey := "refund-" + paymentIntentID

	s.logger.Info("requesting gateway refund",
		zap.String("order_number", b.OrderNumber()),
		zap.String("payment_intent_id", paymentIntentID),
		zap.Int64("amount_cents", amountCents),
	)

	// A timed-out call is an ambiguous outcome; it surfaces as a gateway
	// error and the retry replays the same idempotency key, so the gateway
	// either reports the refund it already made or makes it once.
	gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	result, err := s.gateway.CreateRefund(gwCtx, paymentIntentID, amountCents, reason, idempotencyKey)
	if err != nil {
		return nil, domain.NewGatewayError(err)
	}
	if result.Status != adapter.RefundSucceeded {
		return nil, &domain.DomainError{
			Err:     domain.ErrGateway,
			Message: fmt.Sprintf("refund %s not confirmed: status=%s", result.RefundID, result.Status),
		}
	}

	// Gateway confirmed. From here only the store write may be retried; the
	// refund id travels with every attempt as the de-duplication key.
	return s.settleRefund(ctx, paymentIntentID, result.RefundID, amountCents, reason)
}

// ReconcileRefund applies the store-side effect of a refund the gateway has
// already confirmed (webhook notification, or a retry after a store failure).
// It never invokes the gateway.
func (s *Service) ReconcileRefund(ctx context.Context, paymentIntentID, refundID string, amountCents int64, reason string) (*booking.Booking, error) {
	return s.settleRefund(ctx, paymentIntentID, refundID, amountCents, reason)
}

func (s *Service) settleRefund(ctx context.Context, paymentIntentID, refundID string, amountCents int64, reason string) (*booking.Booking, error) {
	changed := false
	b, err := s.applyWithRetry(ctx,
		func(ctx context.Context) (*booking.Booking, error) {
			return s.repo.FindByPaymentIntentID(ctx, paymentIntentID)
		},
		func(b *booking.Booking) error {
			changed = false
			if b.PaymentStatus() == booking.PaymentCancelled {
				return errNoChange
			}
			if err := b.RecordRefund(refundID); err != nil {
				return err
			}
			if err := b.CancelPayment(); err != nil {
				return err
			}
			changed = true
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("refund reconciled",
			zap.String("order_number", b.OrderNumber()),
			zap.String("refund_id", refundID),
		)
		s.publish(ctx, events.BookingPaymentRefunded, events.PaymentRefundedEvent{
			BookingID:       b.ID(),
			OrderNumber:     b.OrderNumber(),
			PaymentIntentID: paymentIntentID,
			RefundID:        refundID,
			AmountCents:     amountCents,
			Reason:          reason,
			OccurredAt:      time.Now().UTC(),
		})
	}
	return b, nil
}

// applyWithRetry loads the booking, applies the mutation, and persists it.
// Losing an optimistic-concurrency race triggers exactly one retry with a
// fresh read; a second loss surfaces as Conflict.
func (s *Service) applyWithRetry(
	ctx context.Context,
	load func(context.Context) (*booking.Booking, error),
	mutate func(*booking.Booking) error,
) (*booking.Booking, error) {
	b, err := load(ctx)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		if err := mutate(b); err != nil {
			if errors.Is(err, errNoChange) {
				return b, nil
			}
			return nil, err
		}
		b.IncrementVersion()

		err := s.repo.Update(ctx, b)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, domain.ErrConflict) || attempt >= 1 {
			return nil, err
		}

		s.logger.Warn("concurrent modification, retrying with fresh read",
			zap.String("order_number", b.OrderNumber()),
		)
		if b, err = load(ctx); err != nil {
			return nil, err
		}
	}
}

func (s *Service) publishStatusChanged(ctx context.Context, b *booking.Booking, oldStatus booking.Status) {
	s.publish(ctx, events.BookingStatusChanged, events.StatusChangedEvent{
		BookingID:   b.ID(),
		OrderNumber: b.OrderNumber(),
		OldStatus:   oldStatus.String(),
		NewStatus:   b.Status().String(),
		OccurredAt:  time.Now().UTC(),
	})
}

// publish is best-effort: the store is the source of truth and a failed
// event write must not roll back an applied transition.
func (s *Service) publish(ctx context.Context, eventType string, data interface{}) {
	ce, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := s.producer.PublishEvent(ctx, events.TopicBookingEvents, ce); err != nil {
		s.logger.Error("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}
