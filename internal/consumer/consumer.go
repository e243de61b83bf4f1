package consumer

import (
	"context"
	"errors"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/TaskNest-Marketplace/service-admin/internal/domain/booking"
	"github.com/TaskNest-Marketplace/service-admin/internal/events"
	"github.com/TaskNest-Marketplace/service-admin/pkg/domain"
	"github.com/TaskNest-Marketplace/service-admin/pkg/kafka"
)

// Reconciler applies gateway-confirmed payment outcomes to the booking store.
// Satisfied by reconcile.Service.
type Reconciler interface {
	MarkPaid(ctx context.Context, orderNumber string) (*booking.Booking, error)
	ReconcileRefund(ctx context.Context, paymentIntentID, refundID string, amountCents int64, reason string) (*booking.Booking, error)
}

// GatewayEventConsumer consumes settlement and refund notifications relayed
// from the payment processor's webhooks and routes them to the reconciler.
type GatewayEventConsumer struct {
	consumer   *kafka.Consumer
	reconciler Reconciler
	logger     *zap.Logger
}

// NewGatewayEventConsumer creates a new consumer for gateway events.
func NewGatewayEventConsumer(
	brokers []string,
	groupID string,
	reconciler Reconciler,
	logger *zap.Logger,
) *GatewayEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, events.TopicGatewayEvents, logger)
	return &GatewayEventConsumer{
		consumer:   consumer,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Start begins consuming gateway events. It blocks until the context is cancelled.
func (c *GatewayEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// handleMessage routes incoming Kafka messages to the appropriate handler.
func (c *GatewayEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from gateway topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return err
	}

	c.logger.Info("received gateway event",
		zap.String("type", cloudEvent.Type),
		zap.String("id", cloudEvent.ID),
	)

	switch {
	case strings.EqualFold(cloudEvent.Type, events.GatewayPaymentSucceeded):
		return c.handlePaymentSucceeded(ctx, cloudEvent)

	case strings.EqualFold(cloudEvent.Type, events.GatewayChargeRefunded):
		return c.handleChargeRefunded(ctx, cloudEvent)

	default:
		c.logger.Debug("ignoring unhandled gateway event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

// handlePaymentSucceeded marks the booking's payment completed. A booking the
// gateway knows but we do not is logged and skipped, not retried forever.
func (c *GatewayEventConsumer) handlePaymentSucceeded(ctx context.Context, ce kafka.CloudEvent) error {
	var event events.PaymentSucceededEvent
	if err := ce.ParseData(&event); err != nil {
		c.logger.Error("failed to parse PaymentSucceededEvent data", zap.Error(err))
		return err
	}

	_, err := c.reconciler.MarkPaid(ctx, event.OrderNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.logger.Warn("no booking found for payment notification, skipping",
				zap.String("order_number", event.OrderNumber),
			)
			return nil
		}
		return err
	}
	return nil
}

// handleChargeRefunded applies the store-side effect of a gateway-confirmed
// refund. The refund id is the de-duplication key; the gateway is never
// re-invoked from this path.
func (c *GatewayEventConsumer) handleChargeRefunded(ctx context.Context, ce kafka.CloudEvent) error {
	var event events.ChargeRefundedEvent
	if err := ce.ParseData(&event); err != nil {
		c.logger.Error("failed to parse ChargeRefundedEvent data", zap.Error(err))
		return err
	}

	_, err := c.reconciler.ReconcileRefund(ctx, event.PaymentIntentID, event.RefundID, event.AmountCents, event.Reason)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.logger.Warn("no booking found for refund notification, skipping",
				zap.String("payment_intent_id", event.PaymentIntentID),
			)
			return nil
		}
		return err
	}
	return nil
}

// Close closes the underlying Kafka consumer.
func (c *GatewayEventConsumer) Close() error {
	return c.consumer.Close()
}
