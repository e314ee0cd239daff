package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
)

const (
	serviceName  = "storefront-service"
	readyTimeout = 2 * time.Second
)

var startTime = time.Now()

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
	})
}

// Ready handles GET /ready. Every registered check must pass.
func (h *Handlers) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		if h.logger != nil {
			h.logger.Warn("Readiness check failed", logging.Fields(failed))
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"service": serviceName,
			"failed":  failed,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"service": serviceName,
	})
}

// Live handles GET /live
func (h *Handlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// Version handles GET /version
func (h *Handlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":    "1.0.0",
		"service":    serviceName,
		"go_version": runtime.Version(),
		"started_at": startTime.Format(time.RFC3339),
	})
}

// Debug handles GET /debug
func (h *Handlers) Debug(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"features": gin.H{
			"enable_catalog_caching": h.config.Features.EnableCatalogCaching,
			"enable_order_caching":   h.config.Features.EnableOrderCaching,
			"enable_checkout_events": h.config.Features.EnableCheckoutEvents,
			"enable_reconciler":      h.config.Features.EnableReconciler,
			"enable_notifications":   h.config.Features.EnableNotifications,
		},
		"config": gin.H{
			"server_port":  h.config.Server.Port,
			"cart_backend": h.config.CartBackend,
			"payment_mode": h.config.PaymentMode,
			"database":     h.config.Database.Host,
			"redis_host":   h.config.Redis.Host,
		},
	})
}
