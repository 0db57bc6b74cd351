// internal/handler/payment_handler.go
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/paytently/payment-gateway/internal/eventbus"
	"github.com/paytently/payment-gateway/internal/middleware"
	"github.com/paytently/payment-gateway/internal/models"
	"github.com/paytently/payment-gateway/internal/repository"
	"github.com/paytently/payment-gateway/internal/service"
)

type PaymentHandler struct {
	service *service.PaymentService
	logger  *zap.Logger
}

func NewPaymentHandler(service *service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger,
	}
}

// CreatePayment handles POST /api/v1/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req models.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	payment, err := h.service.CreatePayment(c.Request.Context(), principal, &req)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Reason, "field": verr.Field})
			return
		}

		var perr *eventbus.PublishError
		if errors.As(err, &perr) {
			h.logger.Error("payment accepted but event publish failed",
				zap.String("request_id", c.GetString("request_id")),
				zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to publish payment event"})
			return
		}

		h.logger.Error("failed to create payment",
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process payment"})
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// GetPayment handles GET /api/v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.service.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		h.logger.Error("failed to get payment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get payment"})
		return
	}

	c.JSON(http.StatusOK, payment)
}
