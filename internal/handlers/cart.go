package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// cartRequest accepts productId as a string and productIds as either a
// string or an array of strings.
type cartRequest struct {
	ProductID   *string         `json:"productId"`
	ProductIDs  json.RawMessage `json:"productIds"`
	ReplaceCart bool            `json:"replaceCart"`
}

// normalizeIDs flattens the accepted body shapes into one id list.
func normalizeIDs(req *cartRequest) ([]string, error) {
	ids := make([]string, 0)

	if raw := strings.TrimSpace(string(req.ProductIDs)); raw != "" && raw != "null" {
		var many []string
		if err := json.Unmarshal(req.ProductIDs, &many); err == nil {
			ids = append(ids, many...)
		} else {
			var one string
			if err := json.Unmarshal(req.ProductIDs, &one); err != nil {
				return nil, errors.NewValidationError("productIds", "must be a string or an array of strings")
			}
			ids = append(ids, one)
		}
	}

	if req.ProductID != nil {
		ids = append(ids, *req.ProductID)
	}

	for i := range ids {
		ids[i] = strings.TrimSpace(ids[i])
	}
	return ids, nil
}

func (h *Handlers) bindCartRequest(c *gin.Context) (*cartRequest, []string, bool) {
	var req cartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind cart request", logging.Fields{"error": err.Error()})
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return nil, nil, false
	}

	ids, err := normalizeIDs(&req)
	if err != nil {
		handleError(c, err)
		return nil, nil, false
	}
	return &req, ids, true
}

// GetCart handles GET /api/v1/users/:user_id/cart
func (h *Handlers) GetCart(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	slots, err := h.materializer.Materialize(c.Request.Context(), p)
	if err != nil {
		handleError(c, err)
		return
	}

	ids := make([]string, len(slots))
	for i, s := range slots {
		ids[i] = s.ID
	}

	resp := gin.H{
		"userId":    p.UserID,
		"cartIds":   ids,
		"cartItems": slots,
	}
	if len(slots) == 0 {
		resp["empty"] = true
	}
	c.JSON(http.StatusOK, resp)
}

// AddToCart handles POST /api/v1/users/:user_id/cart
func (h *Handlers) AddToCart(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	_, ids, ok := h.bindCartRequest(c)
	if !ok {
		return
	}

	result, err := h.carts.Add(c.Request.Context(), p, ids)
	if err != nil {
		handleError(c, err)
		return
	}

	writeUpdate(c, http.StatusCreated, p, result)
}

// UpdateCart handles PUT /api/v1/users/:user_id/cart. replaceCart selects
// between overwrite and append.
func (h *Handlers) UpdateCart(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	req, ids, ok := h.bindCartRequest(c)
	if !ok {
		return
	}

	var result *models.CartUpdateResult
	var err error
	if req.ReplaceCart {
		result, err = h.carts.Replace(c.Request.Context(), p, ids)
	} else {
		result, err = h.carts.Add(c.Request.Context(), p, ids)
	}
	if err != nil {
		handleError(c, err)
		return
	}

	writeUpdate(c, http.StatusOK, p, result)
}

// RemoveFromCart handles DELETE /api/v1/users/:user_id/cart
func (h *Handlers) RemoveFromCart(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	_, ids, ok := h.bindCartRequest(c)
	if !ok {
		return
	}

	result, err := h.carts.Remove(c.Request.Context(), p, ids)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":      p.UserID,
		"removed":     result.Removed,
		"notFound":    result.NotFound,
		"updatedCart": result.Cart,
	})
}

// writeUpdate answers with okStatus when every id was accepted and 207 when
// some were rejected.
func writeUpdate(c *gin.Context, okStatus int, p models.Principal, result *models.CartUpdateResult) {
	status := okStatus
	if result.Partial() {
		status = http.StatusMultiStatus
	}

	c.JSON(status, gin.H{
		"userId":          p.UserID,
		"addedProducts":   result.Added,
		"invalidProducts": result.Invalid,
		"updatedCart":     result.Cart,
	})
}
