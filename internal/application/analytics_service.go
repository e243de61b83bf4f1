package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/TaskNest-Marketplace/service-admin/internal/domain/booking"
	"github.com/TaskNest-Marketplace/service-admin/internal/domain/catalog"
)

// MonthlyStatDTO is one (year, month) bucket of completed bookings.
type MonthlyStatDTO struct {
	Month         string  `json:"month"`
	TotalBookings int64   `json:"total_bookings"`
	TotalEarnings float64 `json:"total_earnings"`
}

// CategoryCountDTO is one category bucket of completed bookings.
type CategoryCountDTO struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// DashboardSummaryDTO is the headline figures for the admin dashboard.
type DashboardSummaryDTO struct {
	TotalUsers            int64   `json:"total_users"`
	TotalServiceProviders int64   `json:"total_service_providers"`
	ActiveBookings        int64   `json:"active_bookings"`
	TotalEarnings         float64 `json:"total_earnings"`
}

// AnalyticsService computes derived statistics from the booking store.
// It is strictly read-only and tolerates eventually-consistent snapshots.
type AnalyticsService struct {
	repo    booking.Repository
	catalog catalog.Resolver
	logger  *zap.Logger
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(repo booking.Repository, resolver catalog.Resolver, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{repo: repo, catalog: resolver, logger: logger}
}

// MonthlyStats returns completed-booking counts and earnings per calendar
// month of creation time, chronologically ascending. Earnings sum the
// booking-time pricing snapshot.
func (s *AnalyticsService) MonthlyStats(ctx context.Context) ([]MonthlyStatDTO, error) {
	rows, err := s.repo.MonthlyCompletedStats(ctx)
	if err != nil {
		return nil, err
	}

	stats := make([]MonthlyStatDTO, len(rows))
	for i, row := range rows {
		stats[i] = MonthlyStatDTO{
			Month:         fmt.Sprintf("%d-%d", row.Month, row.Year),
			TotalBookings: row.BookingCount,
			TotalEarnings: row.TotalEarnings,
		}
	}
	return stats, nil
}

// CategoryBreakdown returns completed-booking counts per service category.
// Bookings whose service or category no longer resolves are bucketed under
// Unknown rather than dropped.
func (s *AnalyticsService) CategoryBreakdown(ctx context.Context) ([]CategoryCountDTO, error) {
	rows, err := s.repo.CompletedCountByCategory(ctx)
	if err != nil {
		return nil, err
	}

	breakdown := make([]CategoryCountDTO, len(rows))
	for i, row := range rows {
		category := row.Category
		if category == "" {
			category = catalog.UnknownLabel
		}
		breakdown[i] = CategoryCountDTO{Category: category, Count: row.Count}
	}
	return breakdown, nil
}

// DashboardSummary returns the headline dashboard figures. Active bookings
// are counted with the canonical In-Progress status literal.
func (s *AnalyticsService) DashboardSummary(ctx context.Context) (*DashboardSummaryDTO, error) {
	roleCounts, err := s.catalog.CountUsersByRole(ctx)
	if err != nil {
		return nil, err
	}

	active, err := s.repo.CountByStatus(ctx, booking.StatusInProgress)
	if err != nil {
		return nil, err
	}

	earnings, err := s.repo.CompletedEarnings(ctx)
	if err != nil {
		return nil, err
	}

	return &DashboardSummaryDTO{
		TotalUsers:            roleCounts[catalog.RoleServiceUser],
		TotalServiceProviders: roleCounts[catalog.RoleServiceProvider],
		ActiveBookings:        active,
		TotalEarnings:         earnings,
	}, nil
}
