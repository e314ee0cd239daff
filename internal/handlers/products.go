package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// ListProducts handles GET /api/v1/products
func (h *Handlers) ListProducts(c *gin.Context) {
	products, err := h.catalog.ListAll(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetProducts handles GET /api/v1/products/:ids where ids is one id or a
// comma-separated list. A single id returns the product itself.
func (h *Handlers) GetProducts(c *gin.Context) {
	ids := splitIDs(c.Param("ids"))
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product id is required"})
		return
	}

	if len(ids) == 1 {
		product, err := h.catalog.Find(c.Request.Context(), ids[0])
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
		return
	}

	found, err := h.catalog.FindMany(c.Request.Context(), ids)
	if err != nil {
		handleError(c, err)
		return
	}

	products := make([]*models.Product, 0, len(found))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if p, ok := found[id]; ok && !seen[id] {
			seen[id] = true
			products = append(products, p)
		}
	}
	if len(products) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

func splitIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
