package adapter

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Refund statuses reported by the gateway.
const (
	RefundSucceeded = "succeeded"
	RefundFailed    = "failed"
	RefundPending   = "pending"
)

// RefundResult is the gateway's answer to a refund request.
type RefundResult struct {
	RefundID string
	Status   string
}

// Transfer is one gateway payout record, passed through without domain semantics.
type Transfer struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"created_at"`
}

// TransferPage is a cursor-paged slice of transfers.
type TransferPage struct {
	Items      []Transfer `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// StripeAdapter defines the Anti-Corruption Layer interface for the payment
// processor. It is the only component permitted to talk to the gateway.
// Amounts cross this boundary in minor currency units.
type StripeAdapter interface {
	// CreateRefund refunds a captured PaymentIntent. A zero amount refunds
	// the full original charge. The idempotency key makes retries of the
	// same logical refund safe: the processor replays the original refund
	// instead of issuing a second one, so an ambiguous outcome (timeout,
	// lost response) can be retried without double-refunding. Processor
	// failures are returned verbatim; retries belong to the caller.
	CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, reason, idempotencyKey string) (*RefundResult, error)

	// ListTransfers lists gateway payouts after the given cursor.
	ListTransfers(ctx context.Context, cursor string) (*TransferPage, error)
}

// ToMinorUnits converts a major-unit amount to the gateway's minor units.
func ToMinorUnits(major float64) int64 {
	return int64(math.Round(major * 100))
}

// MockStripeAdapter is a development/testing implementation of StripeAdapter.
// It simulates gateway behavior, including idempotency-key replay, without
// requiring a real Stripe account.
type MockStripeAdapter struct {
	logger *zap.Logger

	mu      sync.Mutex
	refunds map[string]RefundResult
}

// NewMockStripeAdapter creates a new mock Stripe adapter for development.
func NewMockStripeAdapter(logger *zap.Logger) *MockStripeAdapter {
	return &MockStripeAdapter{
		logger:  logger,
		refunds: make(map[string]RefundResult),
	}
}

// CreateRefund simulates a successful refund. A repeated idempotency key
// replays the original refund, as the real processor does.
func (m *MockStripeAdapter) CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, reason, idempotencyKey string) (*RefundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.refunds[idempotencyKey]; ok {
		m.logger.Info("[MOCK STRIPE] Refund replayed for idempotency key",
			zap.String("idempotency_key", idempotencyKey),
			zap.String("refund_id", existing.RefundID),
		)
		result := existing
		return &result, nil
	}

	result := RefundResult{
		RefundID: fmt.Sprintf("re_mock_%s", uuid.New().String()[:8]),
		Status:   RefundSucceeded,
	}
	m.refunds[idempotencyKey] = result

	m.logger.Info("[MOCK STRIPE] Refund created",
		zap.String("payment_intent_id", paymentIntentID),
		zap.Int64("amount_cents", amountCents),
		zap.String("reason", reason),
		zap.String("refund_id", result.RefundID),
	)

	return &result, nil
}

// ListTransfers simulates listing gateway payouts.
func (m *MockStripeAdapter) ListTransfers(ctx context.Context, cursor string) (*TransferPage, error) {
	m.logger.Info("[MOCK STRIPE] Transfers listed",
		zap.String("cursor", cursor),
	)

	return &TransferPage{
		Items: []Transfer{
			{
				ID:          fmt.Sprintf("tr_mock_%s", uuid.New().String()[:8]),
				AmountCents: 12500,
				Currency:    "usd",
				Status:      "paid",
				CreatedAt:   time.Now().UTC().Unix(),
			},
		},
	}, nil
}
