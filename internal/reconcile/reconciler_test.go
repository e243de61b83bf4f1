package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TaskNest-Marketplace/service-admin/internal/adapter"
	"github.com/TaskNest-Marketplace/service-admin/internal/domain/booking"
	"github.com/TaskNest-Marketplace/service-admin/internal/events"
	"github.com/TaskNest-Marketplace/service-admin/pkg/domain"
	"github.com/TaskNest-Marketplace/service-admin/pkg/kafka"
)

// fakeRepo is an in-memory booking.Repository. Finds return reconstituted
// copies so a retry observes the store, not the caller's working aggregate.
type fakeRepo struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*booking.Booking
	conflicts int
	updates   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[uuid.UUID]*booking.Booking{}}
}

func cloneBooking(b *booking.Booking) *booking.Booking {
	return booking.Reconstitute(
		b.ID(), b.OrderNumber(), b.UserID(), b.ServiceID(),
		b.BookingDate(), b.TimeSlot(), b.Address(), b.Instructions(),
		b.Pricing(), b.Status(), b.PaymentMethod(), b.PaymentStatus(),
		b.PaymentIntentID(), b.RefundID(), b.Version(),
		b.CreatedAt(), b.UpdatedAt(),
	)
}

func (r *fakeRepo) put(b *booking.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[b.ID()] = cloneBooking(b)
}

func (r *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.byID[id]; ok {
		return cloneBooking(b), nil
	}
	return nil, domain.NewNotFoundError("booking", id.String())
}

func (r *fakeRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.byID {
		if b.OrderNumber() == orderNumber {
			return cloneBooking(b), nil
		}
	}
	return nil, domain.NewNotFoundError("booking", orderNumber)
}

func (r *fakeRepo) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.byID {
		if b.PaymentIntentID() == paymentIntentID {
			return cloneBooking(b), nil
		}
	}
	return nil, domain.NewNotFoundError("booking", paymentIntentID)
}

func (r *fakeRepo) Save(ctx context.Context, b *booking.Booking) error {
	r.put(b)
	return nil
}

func (r *fakeRepo) Update(ctx context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	if r.conflicts > 0 {
		r.conflicts--
		return domain.NewConflictError("booking was modified concurrently")
	}
	stored, ok := r.byID[b.ID()]
	if !ok {
		return domain.NewNotFoundError("booking", b.ID().String())
	}
	if stored.Version() != b.Version()-1 {
		return domain.NewConflictError("booking was modified concurrently")
	}
	r.byID[b.ID()] = cloneBooking(b)
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter booking.ListFilter) ([]*booking.Booking, int64, error) {
	return nil, 0, nil
}

func (r *fakeRepo) MonthlyCompletedStats(ctx context.Context) ([]booking.MonthlyStatRow, error) {
	return nil, nil
}

func (r *fakeRepo) CompletedCountByCategory(ctx context.Context) ([]booking.CategoryCountRow, error) {
	return nil, nil
}

func (r *fakeRepo) CountByStatus(ctx context.Context, status booking.Status) (int64, error) {
	return 0, nil
}

func (r *fakeRepo) CompletedEarnings(ctx context.Context) (float64, error) {
	return 0, nil
}

// fakeGateway counts refund calls and replays results by idempotency key the
// way the real processor does. processBeforeErr models an ambiguous outcome:
// the refund is recorded gateway-side but the response is lost.
type fakeGateway struct {
	mu               sync.Mutex
	refundCalls      int
	lastAmount       int64
	status           string
	byKey            map[string]adapter.RefundResult
	nextID           int
	err              error
	processBeforeErr bool
}

func (g *fakeGateway) CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, reason, idempotencyKey string) (*adapter.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundCalls++
	g.lastAmount = amountCents

	if g.err != nil {
		if g.processBeforeErr {
			g.recordLocked(idempotencyKey)
		}
		return nil, g.err
	}

	result := g.recordLocked(idempotencyKey)
	return &result, nil
}

func (g *fakeGateway) recordLocked(idempotencyKey string) adapter.RefundResult {
	if existing, ok := g.byKey[idempotencyKey]; ok {
		return existing
	}
	g.nextID++
	result := adapter.RefundResult{
		RefundID: fmt.Sprintf("re_test_%d", g.nextID),
		Status:   g.status,
	}
	g.byKey[idempotencyKey] = result
	return result
}

// effectiveRefunds is the number of refunds the gateway actually issued.
func (g *fakeGateway) effectiveRefunds() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.byKey)
}

func (g *fakeGateway) ListTransfers(ctx context.Context, cursor string) (*adapter.TransferPage, error) {
	return &adapter.TransferPage{}, nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) typed(eventType string) []kafka.CloudEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []kafka.CloudEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testFixture struct {
	repo      *fakeRepo
	gateway   *fakeGateway
	publisher *recordingPublisher
	svc       *Service
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	repo := newFakeRepo()
	gateway := &fakeGateway{
		status: adapter.RefundSucceeded,
		byKey:  map[string]adapter.RefundResult{},
	}
	publisher := &recordingPublisher{}
	svc := NewService(repo, gateway, publisher, 5*time.Second, zap.NewNop())
	return &testFixture{repo: repo, gateway: gateway, publisher: publisher, svc: svc}
}

func seedCardBooking(t *testing.T, repo *fakeRepo, orderNumber, intentID string) *booking.Booking {
	t.Helper()
	b, err := booking.NewBooking(
		orderNumber, uuid.New(), uuid.New(),
		time.Now().UTC().Add(24*time.Hour),
		"10:00-12:00", "12 Elm Street", "",
		booking.PricingOption{Label: "Deep Clean", Price: 149.99},
		booking.MethodCard, intentID,
	)
	require.NoError(t, err)
	repo.put(b)
	return b
}

func TestSetStatus(t *testing.T) {
	t.Run("valid transition persists and publishes", func(t *testing.T) {
		f := newFixture(t)
		seedCardBooking(t, f.repo, "ORD-2001", "pi_2001")

		b, err := f.svc.SetStatus(context.Background(), "ORD-2001", booking.StatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, booking.StatusConfirmed, b.Status())
		assert.Equal(t, int64(2), b.Version())

		evts := f.publisher.typed(events.BookingStatusChanged)
		require.Len(t, evts, 1)
		var payload events.StatusChangedEvent
		require.NoError(t, evts[0].ParseData(&payload))
		assert.Equal(t, "Pending", payload.OldStatus)
		assert.Equal(t, "Confirmed", payload.NewStatus)
	})

	t.Run("same status is a no-op without write or event", func(t *testing.T) {
		f := newFixture(t)
		seedCardBooking(t, f.repo, "ORD-2002", "pi_2002")

		b, err := f.svc.SetStatus(context.Background(), "ORD-2002", booking.StatusPending)
		require.NoError(t, err)
		assert.Equal(t, booking.StatusPending, b.Status())
		assert.Zero(t, f.repo.updates)
		assert.Empty(t, f.publisher.events)
	})

	t.Run("invalid transition leaves the store untouched", func(t *testing.T) {
		f := newFixture(t)
		seedCardBooking(t, f.repo, "ORD-2003", "pi_2003")

		_, err := f.svc.SetStatus(context.Background(), "ORD-2003", booking.StatusCompleted)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		stored, err := f.repo.FindByOrderNumber(context.Background(), "ORD-2003")
		require.NoError(t, err)
		assert.Equal(t, booking.StatusPending, stored.Status())
	})

	t.Run("cancelling a paid card booking demands the refund flow", func(t *testing.T) {
		f := newFixture(t)
		seedCardBooking(t, f.repo, "ORD-2004", "pi_2004")
		_, err := f.svc.MarkPaid(context.Background(), "ORD-2004")
		require.NoError(t, err)

		_, err = f.svc.SetStatus(context.Background(), "ORD-2004", booking.StatusCancelled)
		assert.ErrorIs(t, err, domain.ErrRefundRequired)
	})

	t.Run("unknown order number", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.SetStatus(context.Background(), "ORD-NOPE", booking.StatusConfirmed)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestMarkPaid(t *testing.T) {
	t.Run("settles payment and confirms a pending booking", func(t *testing.T) {
		f := newFixture(t)
		seedCardBooking(t, f.repo, "ORD-3001", "pi_3001")

		b, err := f.svc.MarkPaid(context.Background(), "ORD-3001")
		require.NoError(t, err)
		assert.Equal(t, booking.PaymentCompleted, b.PaymentStatus())
		assert.Equal(t, booking.StatusConfirmed, b.Status())

		evts := f.publisher.typed(events.BookingPaymentCompleted)
		require.Len(t, evts, 1)
		var payload events.PaymentCompletedEvent
		require.NoError(t, evts[0].ParseData(&payload))
		assert.Equal(t, int64(14999), payload.AmountCents)
	})

	t.Run("duplicate notification is a no-op", func(t *testing.T) {
		f := newFixture(t)
		seedCardBooking(t, f.repo, "ORD-3002", "pi_3002")

		_, err := f.svc.MarkPaid(context.Background(), "ORD-3002")
		require.NoError(t, err)
		updatesAfterFirst := f.repo.updates

		b, err := f.svc.MarkPaid(context.Background(), "ORD-3002")
		require.NoError(t, err)
		assert.Equal(t, booking.PaymentCompleted, b.PaymentStatus())
		assert.Equal(t, updatesAfterFirst, f.repo.updates)
		assert.Len(t, f.publisher.typed(events.BookingPaymentCompleted), 1)
	})

	t.Run("cancelled booking rejects settlement", func(t *testing.T) {
		f := newFixture(t)
		seedCardBooking(t, f.repo, "ORD-3003", "pi_3003")
		_, err := f.svc.SetStatus(context.Background(), "ORD-3003", booking.StatusCancelled)
		require.NoError(t, err)

		_, err = f.svc.MarkPaid(context.Background(), "ORD-3003")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestRefundAndCancel(t *testing.T) {
	t.Run("refunds at the gateway then cancels payment and booking", func(t *testing.T) {
		f := newFixture(t)
		seedCardBooking(t, f.repo, "ORD-4001", "pi_4001")
		_, err := f.svc.MarkPaid(context.Background(), "ORD-4001")
		require.NoError(t, err)

		b, err := f.svc.RefundAndCancel(context.Background(), "pi_4001", 0, "customer request")
		require.NoError(t, err)
		assert.Equal(t, 1, f.gateway.refundCalls)
		assert.Equal(t, int64(0), f.gateway.lastAmount, "zero amount means full refund")
		assert.Equal(t, booking.PaymentCancelled, b.PaymentStatus())
		assert.Equal(t, booking.StatusCancelled, b.Status())
		assert.Equal(t, "re_test_1", b.RefundID())

		evts := f.publisher.typed(events.BookingPaymentRefunded)
		require.Len(t, evts, 1)
		var payload events.PaymentRefundedEvent
		require.NoError(t, evts[0].ParseData(&payload))
		assert.Equal(t, "re_test_1", payload.RefundID)
		assert.Equal(t, "customer request", payload.Reason)
	})

	t.Run("partial amount is forwarded in minor units", func(t *testing.T) {
		f := newFixture(t)
		seedCardBooking(t, f.repo, "ORD-4002", "pi_4002")
		_, err := f.svc.MarkPaid(context.Background(), "ORD-4002")
		require.NoError(t, err)

		_, err = f.svc.RefundAndCancel(context.Background(), "pi_4002", 49.99, "partial")
		require.NoError(t, err)
		assert.Equal(t, int64(4999), f.gateway.lastAmount)
	})

	t.Run("second request never reaches the gateway", func(t *testing.T) {
		f := newFixture(t)
		seedCardBooking(t, f.repo, "ORD-4003", "pi_4003")
		_, err := f.svc.MarkPaid(context.Background(), "ORD-4003")
		require.NoError(t, err)

		_, err = f.svc.RefundAndCancel(context.Background(), "pi_4003", 0, "first")
		require.NoError(t, err)

		b, err := f.svc.RefundAndCancel(context.Background(), "pi_4003", 0, "second")
		require.NoError(t, err)
		assert.Equal(t, 1, f.gateway.refundCalls)
		assert.Equal(t, "re_test_1", b.RefundID())
		assert.Len(t, f.publisher.typed(events.BookingPaymentRefunded), 1)
	})

	t.Run("gateway failure leaves the booking untouched and retryable", func(t *testing.T) {
		f := newFixture(t)
		seedCardBooking(t, f.repo, "ORD-4004", "pi_4004")
		_, err := f.svc.MarkPaid(context.Background(), "ORD-4004")
		require.NoError(t, err)

		f.gateway.err = errors.New("stripe: connection reset")
		_, err = f.svc.RefundAndCancel(context.Background(), "pi_4004", 0, "flaky")
		assert.ErrorIs(t, err, domain.ErrGateway)

		stored, err := f.repo.FindByPaymentIntentID(context.Background(), "pi_4004")
		require.NoError(t, err)
		assert.Equal(t, booking.PaymentCompleted, stored.PaymentStatus())
		assert.Empty(t, stored.RefundID())

		// The outcome was ambiguous, so the retry goes back to the gateway
		// with the same idempotency key and ends up with one refund.
		f.gateway.err = nil
		_, err = f.svc.RefundAndCancel(context.Background(), "pi_4004", 0, "retry")
		require.NoError(t, err)
		assert.Equal(t, 2, f.gateway.refundCalls)
		assert.Equal(t, 1, f.gateway.effectiveRefunds())
	})

	t.Run("retry after a lost response replays the original refund", func(t *testing.T) {
		f := newFixture(t)
		seedCardBooking(t, f.repo, "ORD-4006", "pi_4006")
		_, err := f.svc.MarkPaid(context.Background(), "ORD-4006")
		require.NoError(t, err)

		// The gateway processes the refund but the response never arrives.
		f.gateway.err = errors.New("stripe: request timed out")
		f.gateway.processBeforeErr = true
		_, err = f.svc.RefundAndCancel(context.Background(), "pi_4006", 0, "first attempt")
		assert.ErrorIs(t, err, domain.ErrGateway)
		require.Equal(t, 1, f.gateway.effectiveRefunds())

		f.gateway.err = nil
		b, err := f.svc.RefundAndCancel(context.Background(), "pi_4006", 0, "retry")
		require.NoError(t, err)
		assert.Equal(t, 1, f.gateway.effectiveRefunds(), "the retry must not issue a second refund")
		assert.Equal(t, "re_test_1", b.RefundID(), "the retry settles the refund the gateway already made")
		assert.Equal(t, booking.PaymentCancelled, b.PaymentStatus())
	})

	t.Run("unconfirmed refund status is an error", func(t *testing.T) {
		f := newFixture(t)
		seedCardBooking(t, f.repo, "ORD-4005", "pi_4005")
		_, err := f.svc.MarkPaid(context.Background(), "ORD-4005")
		require.NoError(t, err)

		f.gateway.status = adapter.RefundPending
		_, err = f.svc.RefundAndCancel(context.Background(), "pi_4005", 0, "slow")
		assert.ErrorIs(t, err, domain.ErrGateway)
	})
}

func TestReconcileRefund(t *testing.T) {
	t.Run("applies a gateway-confirmed refund without calling the gateway", func(t *testing.T) {
		f := newFixture(t)
		seedCardBooking(t, f.repo, "ORD-5001", "pi_5001")
		_, err := f.svc.MarkPaid(context.Background(), "ORD-5001")
		require.NoError(t, err)

		b, err := f.svc.ReconcileRefund(context.Background(), "pi_5001", "re_webhook_1", 14999, "webhook")
		require.NoError(t, err)
		assert.Zero(t, f.gateway.refundCalls)
		assert.Equal(t, booking.PaymentCancelled, b.PaymentStatus())
		assert.Equal(t, "re_webhook_1", b.RefundID())
	})

	t.Run("replayed notification is a no-op", func(t *testing.T) {
		f := newFixture(t)
		seedCardBooking(t, f.repo, "ORD-5002", "pi_5002")
		_, err := f.svc.MarkPaid(context.Background(), "ORD-5002")
		require.NoError(t, err)

		_, err = f.svc.ReconcileRefund(context.Background(), "pi_5002", "re_webhook_2", 14999, "webhook")
		require.NoError(t, err)
		updatesAfterFirst := f.repo.updates

		_, err = f.svc.ReconcileRefund(context.Background(), "pi_5002", "re_webhook_2", 14999, "webhook")
		require.NoError(t, err)
		assert.Equal(t, updatesAfterFirst, f.repo.updates)
		assert.Len(t, f.publisher.typed(events.BookingPaymentRefunded), 1)
	})
}

func TestApplyWithRetry(t *testing.T) {
	t.Run("one conflict is absorbed with a fresh read", func(t *testing.T) {
		f := newFixture(t)
		seedCardBooking(t, f.repo, "ORD-6001", "pi_6001")

		f.repo.conflicts = 1
		b, err := f.svc.MarkPaid(context.Background(), "ORD-6001")
		require.NoError(t, err)
		assert.Equal(t, booking.PaymentCompleted, b.PaymentStatus())
		assert.Equal(t, 2, f.repo.updates)
	})

	t.Run("a second conflict surfaces", func(t *testing.T) {
		f := newFixture(t)
		seedCardBooking(t, f.repo, "ORD-6002", "pi_6002")

		f.repo.conflicts = 2
		_, err := f.svc.MarkPaid(context.Background(), "ORD-6002")
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}
