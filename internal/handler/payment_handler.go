package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/TaskNest-Marketplace/service-admin/internal/application"
	"github.com/TaskNest-Marketplace/service-admin/pkg/auth"
	"github.com/TaskNest-Marketplace/service-admin/pkg/middleware"
	"github.com/TaskNest-Marketplace/service-admin/pkg/response"
)

// PaymentHandler handles admin HTTP requests for payment operations.
type PaymentHandler struct {
	service *application.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *application.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// RegisterRoutes registers the payment routes on the admin group.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	payments := r.Group("/payments")
	payments.Use(authMW, adminRole)
	{
		payments.GET("", h.ListPayments)
		payments.GET("/:orderNumber", h.GetPaymentDetails)
		payments.POST("/mark-completed", h.MarkCompleted)
		payments.POST("/refund", h.Refund)
	}

	stripe := r.Group("/stripe")
	stripe.Use(authMW, adminRole)
	{
		stripe.GET("/transfers", h.ListTransfers)
	}
}

// ListPayments handles GET /api/v1/admin/payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	page, limit := pageParams(c)
	q := application.ListPaymentsQuery{
		Status: c.Query("status"),
		Method: c.Query("method"),
		From:   c.Query("from"),
		To:     c.Query("to"),
		Page:   page,
		Limit:  limit,
	}

	payments, total, err := h.service.ListPayments(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, payments, total, page, limit)
}

// GetPaymentDetails handles GET /api/v1/admin/payments/:orderNumber
func (h *PaymentHandler) GetPaymentDetails(c *gin.Context) {
	dto, err := h.service.GetPaymentDetails(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// MarkCompleted handles POST /api/v1/admin/payments/mark-completed
func (h *PaymentHandler) MarkCompleted(c *gin.Context) {
	var req application.MarkCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.MarkCompleted(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// Refund handles POST /api/v1/admin/payments/refund
func (h *PaymentHandler) Refund(c *gin.Context) {
	var req application.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.Refund(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// ListTransfers handles GET /api/v1/admin/stripe/transfers
func (h *PaymentHandler) ListTransfers(c *gin.Context) {
	page, err := h.service.ListTransfers(c.Request.Context(), c.Query("cursor"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, page)
}
