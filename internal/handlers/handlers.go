package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/catalog"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/service"
)

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

// Handlers holds all HTTP handlers for the storefront service.
type Handlers struct {
	carts        *service.CartService
	materializer *service.Materializer
	checkout     *service.CheckoutService
	orders       *service.OrderService
	catalog      catalog.Accessor
	checks       map[string]ReadinessCheck
	config       *config.Config
	logger       *logging.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(
	carts *service.CartService,
	materializer *service.Materializer,
	checkout *service.CheckoutService,
	orders *service.OrderService,
	cat catalog.Accessor,
	cfg *config.Config,
	logger *logging.Logger,
) *Handlers {
	return &Handlers{
		carts:        carts,
		materializer: materializer,
		checkout:     checkout,
		orders:       orders,
		catalog:      cat,
		checks:       make(map[string]ReadinessCheck),
		config:       cfg,
		logger:       logger,
	}
}

// AddReadinessCheck registers a dependency probed by GET /ready.
func (h *Handlers) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

// principal returns the caller set by middleware.Principal. Routes mounted
// without that middleware get a 400.
func principal(c *gin.Context) (models.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user id is required", "field": "user_id"})
	}
	return p, ok
}

func cartPath(c *gin.Context) string {
	return "/api/v1/users/" + c.Param("user_id") + "/cart"
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	_ = c.Error(err)

	if validationErr, ok := errors.IsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   validationErr.Message,
			"field":   validationErr.Field,
			"details": validationErr.Details,
		})
		return
	}

	// The customer has been charged; a retry would charge again.
	if pending, ok := errors.IsOrderPending(err); ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":         "payment was captured but the order could not be saved yet",
			"state":         "pending",
			"transactionId": pending.TransactionID,
			"message":       "the order will be completed automatically; do not retry the checkout",
			"retryable":     false,
		})
		return
	}

	switch {
	case errors.Is(err, errors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, errors.ErrPaymentDeclined):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":     "payment was not approved",
			"retryable": true,
		})
	case errors.Is(err, errors.ErrEmptyCart):
		c.JSON(http.StatusConflict, gin.H{
			"error":    "none of the selected items can be purchased",
			"redirect": cartPath(c),
		})
	case errors.Is(err, errors.ErrNothingToCharge):
		c.JSON(http.StatusConflict, gin.H{
			"error":    "order total must be greater than zero",
			"redirect": cartPath(c),
		})
	case errors.Is(err, errors.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
