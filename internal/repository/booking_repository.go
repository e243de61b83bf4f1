package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	bookingDomain "github.com/TaskNest-Marketplace/service-admin/internal/domain/booking"
	"github.com/TaskNest-Marketplace/service-admin/pkg/domain"
)

// BookingModel is the GORM persistence model for the bookings table.
type BookingModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	OrderNumber     string    `gorm:"type:varchar(40);uniqueIndex;not null"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;index"`
	ServiceID       uuid.UUID `gorm:"type:uuid;not null;index"`
	BookingDate     time.Time `gorm:"type:timestamptz"`
	TimeSlot        string    `gorm:"type:varchar(50)"`
	Address         string    `gorm:"type:text"`
	Instructions    string    `gorm:"type:text"`
	PricingLabel    string    `gorm:"type:varchar(100)"`
	PricingPrice    float64   `gorm:"type:numeric(12,2);not null"`
	Status          string    `gorm:"type:varchar(20);not null;default:'Pending';index"`
	PaymentMethod   string    `gorm:"type:varchar(20);not null"`
	PaymentStatus   string    `gorm:"type:varchar(20);not null;default:'Pending'"`
	PaymentIntentID string    `gorm:"type:varchar(255);index"`
	RefundID        string    `gorm:"type:varchar(255)"`
	Version         int64     `gorm:"not null;default:1"`
	CreatedAt       time.Time `gorm:"type:timestamptz;not null;default:now();index"`
	UpdatedAt       time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (BookingModel) TableName() string {
	return "bookings"
}

// BookingRepositoryImpl is the GORM-based implementation of the booking Repository.
type BookingRepositoryImpl struct {
	db *gorm.DB
}

// NewBookingRepository creates a new GORM-based booking repository.
func NewBookingRepository(db *gorm.DB) *BookingRepositoryImpl {
	return &BookingRepositoryImpl{db: db}
}

// FindByID retrieves a booking by its unique ID.
func (r *BookingRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, err
	}
	return toDomain(&model), nil
}

// FindByOrderNumber retrieves a booking by its immutable order number.
func (r *BookingRepositoryImpl) FindByOrderNumber(ctx context.Context, orderNumber string) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("order_number = ?", orderNumber).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", orderNumber)
		}
		return nil, err
	}
	return toDomain(&model), nil
}

// FindByPaymentIntentID retrieves a booking by its gateway payment intent.
func (r *BookingRepositoryImpl) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("payment_intent_id = ?", paymentIntentID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", paymentIntentID)
		}
		return nil, err
	}
	return toDomain(&model), nil
}

// List retrieves bookings matching the filter, newest first, with pagination.
func (r *BookingRepositoryImpl) List(ctx context.Context, filter bookingDomain.ListFilter) ([]*bookingDomain.Booking, int64, error) {
	query := r.db.WithContext(ctx).Model(&BookingModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", string(*filter.PaymentStatus))
	}
	if filter.PaymentMethod != nil {
		query = query.Where("payment_method = ?", string(*filter.PaymentMethod))
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []BookingModel
	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bookings[i] = toDomain(&models[i])
	}
	return bookings, total, nil
}

// Save persists a new booking aggregate.
func (r *BookingRepositoryImpl) Save(ctx context.Context, b *bookingDomain.Booking) error {
	model := toModel(b)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *BookingRepositoryImpl) Update(ctx context.Context, b *bookingDomain.Booking) error {
	model := toModel(b)
	previousVersion := b.Version() - 1

	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}

	return nil
}

// Delete removes a booking permanently. Booking is the one admin entity with
// genuine hard delete; there is no soft-ban flag here.
func (r *BookingRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&BookingModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Booking", id.String())
	}
	return nil
}

// MonthlyCompletedStats aggregates completed bookings per (year, month) of
// creation time, chronologically ascending.
func (r *BookingRepositoryImpl) MonthlyCompletedStats(ctx context.Context) ([]bookingDomain.MonthlyStatRow, error) {
	var rows []bookingDomain.MonthlyStatRow
	err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("EXTRACT(YEAR FROM created_at)::int AS year, EXTRACT(MONTH FROM created_at)::int AS month, COUNT(*) AS booking_count, COALESCE(SUM(pricing_price), 0) AS total_earnings").
		Where("status = ?", string(bookingDomain.StatusCompleted)).
		Group("1, 2").
		Order("year, month").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CompletedCountByCategory counts completed bookings per service category.
// Dangling service or category references land in the Unknown bucket.
func (r *BookingRepositoryImpl) CompletedCountByCategory(ctx context.Context) ([]bookingDomain.CategoryCountRow, error) {
	var rows []bookingDomain.CategoryCountRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(c.name, 'Unknown') AS category, COUNT(*) AS count
		FROM bookings b
		LEFT JOIN services s ON s.id = b.service_id
		LEFT JOIN categories c ON c.id = s.category_id
		WHERE b.status = ?
		GROUP BY 1
		ORDER BY count DESC`,
		string(bookingDomain.StatusCompleted),
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByStatus counts bookings currently in the given status.
func (r *BookingRepositoryImpl) CountByStatus(ctx context.Context, status bookingDomain.Status) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Where("status = ?", string(status)).
		Count(&count).Error
	return count, err
}

// CompletedEarnings sums the pricing snapshot over completed bookings.
func (r *BookingRepositoryImpl) CompletedEarnings(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Where("status = ?", string(bookingDomain.StatusCompleted)).
		Select("COALESCE(SUM(pricing_price), 0)").
		Scan(&total).Error
	return total, err
}

// toDomain maps a BookingModel to the domain Booking aggregate.
func toDomain(model *BookingModel) *bookingDomain.Booking {
	return bookingDomain.Reconstitute(
		model.ID,
		model.OrderNumber,
		model.UserID,
		model.ServiceID,
		model.BookingDate,
		model.TimeSlot,
		model.Address,
		model.Instructions,
		bookingDomain.PricingOption{Label: model.PricingLabel, Price: model.PricingPrice},
		bookingDomain.Status(model.Status),
		bookingDomain.PaymentMethod(model.PaymentMethod),
		bookingDomain.PaymentStatus(model.PaymentStatus),
		model.PaymentIntentID,
		model.RefundID,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

// toModel maps a domain Booking aggregate to a BookingModel for persistence.
func toModel(b *bookingDomain.Booking) *BookingModel {
	return &BookingModel{
		ID:              b.ID(),
		OrderNumber:     b.OrderNumber(),
		UserID:          b.UserID(),
		ServiceID:       b.ServiceID(),
		BookingDate:     b.BookingDate(),
		TimeSlot:        b.TimeSlot(),
		Address:         b.Address(),
		Instructions:    b.Instructions(),
		PricingLabel:    b.Pricing().Label,
		PricingPrice:    b.Pricing().Price,
		Status:          string(b.Status()),
		PaymentMethod:   string(b.PaymentMethod()),
		PaymentStatus:   string(b.PaymentStatus()),
		PaymentIntentID: b.PaymentIntentID(),
		RefundID:        b.RefundID(),
		Version:         b.Version(),
		CreatedAt:       b.CreatedAt(),
		UpdatedAt:       b.UpdatedAt(),
	}
}
