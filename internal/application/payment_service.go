package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/TaskNest-Marketplace/service-admin/internal/adapter"
	"github.com/TaskNest-Marketplace/service-admin/internal/domain/booking"
	"github.com/TaskNest-Marketplace/service-admin/internal/reconcile"
	"github.com/TaskNest-Marketplace/service-admin/pkg/domain"
)

// ListPaymentsQuery filters the payment view of bookings.
type ListPaymentsQuery struct {
	Status string
	Method string
	From   string
	To     string
	Page   int
	Limit  int
}

// MarkCompletedRequest identifies the booking whose payment settled.
type MarkCompletedRequest struct {
	OrderNumber string `json:"order_number" binding:"required"`
}

// RefundRequest carries a refund order. A nil amount refunds the full charge;
// the amount is in major currency units.
type RefundRequest struct {
	PaymentIntentID string   `json:"payment_intent_id" binding:"required"`
	Amount          *float64 `json:"amount"`
	Reason          string   `json:"reason"`
}

// PaymentService handles the payment-side admin use cases.
type PaymentService struct {
	repo           booking.Repository
	reconciler     *reconcile.Service
	gateway        adapter.StripeAdapter
	gatewayTimeout time.Duration
	bookings       *BookingService
	logger         *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	repo booking.Repository,
	reconciler *reconcile.Service,
	gateway adapter.StripeAdapter,
	gatewayTimeout time.Duration,
	bookings *BookingService,
	logger *zap.Logger,
) *PaymentService {
	if gatewayTimeout <= 0 {
		gatewayTimeout = 10 * time.Second
	}
	return &PaymentService{
		repo:           repo,
		reconciler:     reconciler,
		gateway:        gateway,
		gatewayTimeout: gatewayTimeout,
		bookings:       bookings,
		logger:         logger,
	}
}

// ListPayments returns the payment view of bookings, filtered and paginated.
func (s *PaymentService) ListPayments(ctx context.Context, q ListPaymentsQuery) ([]BookingDTO, int64, error) {
	filter := booking.ListFilter{Page: q.Page, Limit: q.Limit}

	if q.Status != "" {
		status, err := booking.ParsePaymentStatus(q.Status)
		if err != nil {
			return nil, 0, err
		}
		filter.PaymentStatus = &status
	}
	if q.Method != "" {
		method, err := booking.ParsePaymentMethod(q.Method)
		if err != nil {
			return nil, 0, err
		}
		filter.PaymentMethod = &method
	}
	from, to, err := parseDateRange(q.From, q.To)
	if err != nil {
		return nil, 0, err
	}
	filter.From, filter.To = from, to

	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	dtos := make([]BookingDTO, len(list))
	for i, b := range list {
		dtos[i] = s.bookings.toBookingDTO(ctx, b)
	}
	return dtos, total, nil
}

// GetPaymentDetails retrieves the payment view of one booking by order number.
func (s *PaymentService) GetPaymentDetails(ctx context.Context, orderNumber string) (*BookingDTO, error) {
	b, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	dto := s.bookings.toBookingDTO(ctx, b)
	return &dto, nil
}

// MarkCompleted records settlement of a booking's payment.
func (s *PaymentService) MarkCompleted(ctx context.Context, req MarkCompletedRequest) (*BookingDTO, error) {
	b, err := s.reconciler.MarkPaid(ctx, req.OrderNumber)
	if err != nil {
		return nil, err
	}
	dto := s.bookings.toBookingDTO(ctx, b)
	return &dto, nil
}

// Refund refunds a card payment at the gateway and cancels the booking.
func (s *PaymentService) Refund(ctx context.Context, req RefundRequest) (*BookingDTO, error) {
	amount := 0.0
	if req.Amount != nil {
		if *req.Amount <= 0 {
			return nil, domain.NewValidationError("refund amount must be positive")
		}
		amount = *req.Amount
	}

	b, err := s.reconciler.RefundAndCancel(ctx, req.PaymentIntentID, amount, req.Reason)
	if err != nil {
		return nil, err
	}
	dto := s.bookings.toBookingDTO(ctx, b)
	return &dto, nil
}

// ListTransfers lists gateway payouts. The gateway call gets a timeout and a
// timed-out call surfaces as a gateway error.
func (s *PaymentService) ListTransfers(ctx context.Context, cursor string) (*adapter.TransferPage, error) {
	gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	page, err := s.gateway.ListTransfers(gwCtx, cursor)
	if err != nil {
		return nil, domain.NewGatewayError(err)
	}
	return page, nil
}
