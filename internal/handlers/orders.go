package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// CreateOrder handles POST /api/v1/users/:user_id/orders
func (h *Handlers) CreateOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var order models.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		h.logger.Error("Failed to bind order", logging.Fields{"error": err.Error()})
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	created, err := h.orders.Create(c.Request.Context(), p, &order)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// ListOrders handles GET /api/v1/users/:user_id/orders. With
// ?transactionId= it returns only that order.
func (h *Handlers) ListOrders(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	orders, err := h.orders.List(c.Request.Context(), p, c.Query("transactionId"))
	if errors.Is(err, errors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// DeleteOrder handles DELETE /api/v1/users/:user_id/orders?transactionId=
func (h *Handlers) DeleteOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	transactionID := c.Query("transactionId")
	err := h.orders.Delete(c.Request.Context(), p, transactionID)
	if errors.Is(err, errors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Order deleted",
		"transactionId": transactionID,
	})
}
