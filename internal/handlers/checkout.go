package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// Checkout handles POST /api/v1/users/:user_id/checkout
func (h *Handlers) Checkout(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind checkout request", logging.Fields{"error": err.Error()})
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.checkout.Checkout(c.Request.Context(), p, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"state":                result.State,
		"transactionId":        result.TransactionID,
		"order":                result.Order,
		"rejected":             result.Rejected,
		"cartRetracted":        result.CartRetracted,
		"redirect":             cartPath(c),
		"redirectAfterSeconds": int(result.RedirectAfter.Seconds()),
	})
}
