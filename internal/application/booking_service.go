package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TaskNest-Marketplace/service-admin/internal/domain/booking"
	"github.com/TaskNest-Marketplace/service-admin/internal/domain/catalog"
	"github.com/TaskNest-Marketplace/service-admin/internal/reconcile"
	"github.com/TaskNest-Marketplace/service-admin/pkg/domain"
)

// ListBookingsQuery filters the admin booking listing.
type ListBookingsQuery struct {
	Status string
	From   string
	To     string
	Page   int
	Limit  int
}

// EditBookingRequest carries the editable pass-through fields. Empty fields
// are left unchanged.
type EditBookingRequest struct {
	BookingDate  string `json:"booking_date"`
	TimeSlot     string `json:"time_slot"`
	Address      string `json:"address"`
	Instructions string `json:"instructions"`
}

// UserRefDTO is the denormalized user display view attached to a booking.
type UserRefDTO struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
}

// ServiceRefDTO is the denormalized service display view attached to a booking.
type ServiceRefDTO struct {
	ID          uuid.UUID `json:"id"`
	ServiceName string    `json:"service_name"`
	City        string    `json:"city"`
	Category    string    `json:"category"`
}

// PricingOptionDTO is the booking-time pricing snapshot.
type PricingOptionDTO struct {
	Label string  `json:"label"`
	Price float64 `json:"price"`
}

// BookingDTO is the API response representation of a booking.
type BookingDTO struct {
	ID                    uuid.UUID        `json:"id"`
	OrderNumber           string           `json:"order_number"`
	User                  *UserRefDTO      `json:"user,omitempty"`
	Service               *ServiceRefDTO   `json:"service,omitempty"`
	BookingDate           time.Time        `json:"booking_date"`
	TimeSlot              string           `json:"time_slot"`
	Address               string           `json:"address"`
	Instructions          string           `json:"instructions,omitempty"`
	SelectedPricingOption PricingOptionDTO `json:"selected_pricing_option"`
	Status                string           `json:"status"`
	PaymentMethod         string           `json:"payment_method"`
	PaymentStatus         string           `json:"payment_status"`
	PaymentIntentID       string           `json:"payment_intent_id,omitempty"`
	RefundID              string           `json:"refund_id,omitempty"`
	Version               int64            `json:"version"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// BookingService handles the admin booking use cases.
type BookingService struct {
	repo       booking.Repository
	catalog    catalog.Resolver
	reconciler *reconcile.Service
	logger     *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo booking.Repository,
	resolver catalog.Resolver,
	reconciler *reconcile.Service,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:       repo,
		catalog:    resolver,
		reconciler: reconciler,
		logger:     logger,
	}
}

// ListBookings returns a filtered, paginated page of bookings, newest first.
func (s *BookingService) ListBookings(ctx context.Context, q ListBookingsQuery) ([]BookingDTO, int64, error) {
	filter := booking.ListFilter{Page: q.Page, Limit: q.Limit}

	if q.Status != "" {
		status, err := booking.ParseStatus(q.Status)
		if err != nil {
			return nil, 0, err
		}
		filter.Status = &status
	}
	from, to, err := parseDateRange(q.From, q.To)
	if err != nil {
		return nil, 0, err
	}
	filter.From, filter.To = from, to

	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, b := range bookings {
		dtos[i] = s.toBookingDTO(ctx, b)
	}
	return dtos, total, nil
}

// GetBooking retrieves a booking by its ID.
func (s *BookingService) GetBooking(ctx context.Context, id uuid.UUID) (*BookingDTO, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := s.toBookingDTO(ctx, b)
	return &dto, nil
}

// UpdateStatus routes a status edit through the reconciliation service.
func (s *BookingService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*BookingDTO, error) {
	target, err := booking.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.reconciler.SetStatus(ctx, b.OrderNumber(), target)
	if err != nil {
		return nil, err
	}
	dto := s.toBookingDTO(ctx, updated)
	return &dto, nil
}

// EditBooking updates the pass-through scheduling fields of a booking.
func (s *BookingService) EditBooking(ctx context.Context, id uuid.UUID, req EditBookingRequest) (*BookingDTO, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var bookingDate time.Time
	if req.BookingDate != "" {
		bookingDate, err = time.Parse(time.RFC3339, req.BookingDate)
		if err != nil {
			return nil, domain.NewValidationError("invalid booking_date format (use RFC3339)")
		}
	}

	if err := b.UpdateDetails(bookingDate, req.TimeSlot, req.Address, req.Instructions); err != nil {
		return nil, err
	}
	b.IncrementVersion()

	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("booking edited", zap.String("order_number", b.OrderNumber()))
	dto := s.toBookingDTO(ctx, b)
	return &dto, nil
}

// DeleteBooking removes a booking permanently.
func (s *BookingService) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("booking deleted", zap.String("booking_id", id.String()))
	return nil
}

// toBookingDTO maps a domain Booking to a BookingDTO, resolving user and
// service display fields best-effort. A dangling reference leaves the field
// nil rather than failing the request.
func (s *BookingService) toBookingDTO(ctx context.Context, b *booking.Booking) BookingDTO {
	dto := BookingDTO{
		ID:           b.ID(),
		OrderNumber:  b.OrderNumber(),
		BookingDate:  b.BookingDate(),
		TimeSlot:     b.TimeSlot(),
		Address:      b.Address(),
		Instructions: b.Instructions(),
		SelectedPricingOption: PricingOptionDTO{
			Label: b.Pricing().Label,
			Price: b.Pricing().Price,
		},
		Status:          string(b.Status()),
		PaymentMethod:   string(b.PaymentMethod()),
		PaymentStatus:   string(b.PaymentStatus()),
		PaymentIntentID: b.PaymentIntentID(),
		RefundID:        b.RefundID(),
		Version:         b.Version(),
		CreatedAt:       b.CreatedAt(),
		UpdatedAt:       b.UpdatedAt(),
	}

	if user, err := s.catalog.UserByID(ctx, b.UserID()); err == nil {
		dto.User = &UserRefDTO{ID: user.ID, FullName: user.FullName, Email: user.Email}
	}
	if svc, err := s.catalog.ServiceByID(ctx, b.ServiceID()); err == nil {
		dto.Service = &ServiceRefDTO{
			ID:          svc.ID,
			ServiceName: svc.ServiceName,
			City:        svc.City,
			Category:    svc.CategoryName,
		}
	}
	return dto
}

// parseDateRange parses optional RFC3339 range bounds.
func parseDateRange(from, to string) (*time.Time, *time.Time, error) {
	var fromT, toT *time.Time
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return nil, nil, domain.NewValidationError("invalid from date (use RFC3339)")
		}
		fromT = &t
	}
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return nil, nil, domain.NewValidationError("invalid to date (use RFC3339)")
		}
		toT = &t
	}
	return fromT, toT, nil
}
