package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/TaskNest-Marketplace/service-admin/internal/application"
	"github.com/TaskNest-Marketplace/service-admin/pkg/auth"
	"github.com/TaskNest-Marketplace/service-admin/pkg/middleware"
	"github.com/TaskNest-Marketplace/service-admin/pkg/response"
)

// AnalyticsHandler handles admin HTTP requests for dashboard statistics.
type AnalyticsHandler struct {
	service *application.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(service *application.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// RegisterRoutes registers the analytics routes on the admin group.
func (h *AnalyticsHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	stats := r.Group("/stats")
	stats.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleAdmin))
	{
		stats.GET("/dashboard", h.DashboardSummary)
		stats.GET("/monthly-bookings", h.MonthlyStats)
		stats.GET("/bookings-by-category", h.CategoryBreakdown)
	}
}

// DashboardSummary handles GET /api/v1/admin/stats/dashboard
func (h *AnalyticsHandler) DashboardSummary(c *gin.Context) {
	summary, err := h.service.DashboardSummary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, summary)
}

// MonthlyStats handles GET /api/v1/admin/stats/monthly-bookings
func (h *AnalyticsHandler) MonthlyStats(c *gin.Context) {
	stats, err := h.service.MonthlyStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// CategoryBreakdown handles GET /api/v1/admin/stats/bookings-by-category
func (h *AnalyticsHandler) CategoryBreakdown(c *gin.Context) {
	breakdown, err := h.service.CategoryBreakdown(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, breakdown)
}
