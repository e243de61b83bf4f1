package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows and pages booking queries. Nil fields are not applied.
// Results are always sorted by creation time descending.
type ListFilter struct {
	Status        *Status
	PaymentStatus *PaymentStatus
	PaymentMethod *PaymentMethod
	From          *time.Time
	To            *time.Time
	Page          int
	Limit         int
}

// MonthlyStatRow is one (year, month) aggregation bucket over completed bookings.
type MonthlyStatRow struct {
	Year          int
	Month         int
	BookingCount  int64
	TotalEarnings float64
}

// CategoryCountRow is one category bucket over completed bookings.
// Category is "Unknown" when the service or category link cannot be resolved.
type CategoryCountRow struct {
	Category string
	Count    int64
}

// Repository defines the persistence contract for Booking aggregates.
type Repository interface {
	// FindByID retrieves a booking by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByOrderNumber retrieves a booking by its immutable order number.
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Booking, error)

	// FindByPaymentIntentID retrieves a booking by its gateway payment intent.
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*Booking, error)

	// List retrieves bookings matching the filter with pagination.
	List(ctx context.Context, filter ListFilter) ([]*Booking, int64, error)

	// Save persists a new booking aggregate.
	Save(ctx context.Context, b *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, b *Booking) error

	// Delete removes a booking permanently.
	Delete(ctx context.Context, id uuid.UUID) error

	// MonthlyCompletedStats aggregates completed bookings per (year, month),
	// sorted chronologically ascending.
	MonthlyCompletedStats(ctx context.Context) ([]MonthlyStatRow, error)

	// CompletedCountByCategory counts completed bookings per service category.
	CompletedCountByCategory(ctx context.Context) ([]CategoryCountRow, error)

	// CountByStatus counts bookings currently in the given status.
	CountByStatus(ctx context.Context, status Status) (int64, error)

	// CompletedEarnings sums the pricing snapshot over completed bookings.
	CompletedEarnings(ctx context.Context) (float64, error)
}
