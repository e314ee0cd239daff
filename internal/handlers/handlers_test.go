package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Health(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "storefront-service", resp["service"])
}

func TestLive(t *testing.T) {
	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Live(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]ReadinessCheck
		wantStatus int
	}{
		{"no checks", nil, http.StatusOK},
		{
			"all pass",
			map[string]ReadinessCheck{"postgres": func(context.Context) error { return nil }},
			http.StatusOK,
		},
		{
			"one fails",
			map[string]ReadinessCheck{
				"postgres": func(context.Context) error { return nil },
				"redis":    func(context.Context) error { return stderrors.New("connection refused") },
			},
			http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Handlers{checks: map[string]ReadinessCheck{}, logger: logging.NewNopLogger()}
			for name, check := range tt.checks {
				h.AddReadinessCheck(name, check)
			}

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

			h.Ready(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				failed := decode(t, w)["failed"].(map[string]interface{})
				assert.Equal(t, "connection refused", failed["redis"])
				assert.NotContains(t, failed, "postgres")
			}
		})
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKey    string
	}{
		{"validation", errors.NewValidationError("email", "email is required"), http.StatusBadRequest, "details"},
		{"wrapped validation", fmt.Errorf("add: %w", errors.NewValidationError("productIds", "bad")), http.StatusBadRequest, "field"},
		{"not found", errors.ErrNotFound, http.StatusNotFound, "error"},
		{"declined", errors.ErrPaymentDeclined, http.StatusPaymentRequired, "retryable"},
		{"declined with cause", fmt.Errorf("%w: %w", errors.ErrPaymentDeclined, stderrors.New("timeout")), http.StatusPaymentRequired, "retryable"},
		{"empty cart", errors.ErrEmptyCart, http.StatusConflict, "redirect"},
		{"nothing to charge", errors.ErrNothingToCharge, http.StatusConflict, "redirect"},
		{"store down", errors.StoreError("load cart", stderrors.New("dial tcp")), http.StatusServiceUnavailable, "error"},
		{"unknown", stderrors.New("boom"), http.StatusInternalServerError, "error"},
		{"order pending", &errors.OrderPendingError{TransactionID: "tx-1", Err: errors.StoreError("append order", stderrors.New("dial tcp"))}, http.StatusInternalServerError, "transactionId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Params = gin.Params{{Key: "user_id", Value: "u1"}}

			handleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, decode(t, w), tt.wantKey)
		})
	}
}

func TestHandleError_RedirectPointsAtCart(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "user_id", Value: "alice"}}

	handleError(c, errors.ErrEmptyCart)

	assert.Equal(t, "/api/v1/users/alice/cart", decode(t, w)["redirect"])
}

func TestHandleError_OrderPendingIsNotRetryable(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "user_id", Value: "alice"}}

	cause := fmt.Errorf("commit order tx-42: %w", errors.StoreError("append order", stderrors.New("dial tcp")))
	handleError(c, &errors.OrderPendingError{TransactionID: "tx-42", Err: cause})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "tx-42", resp["transactionId"])
	assert.Equal(t, "pending", resp["state"])
	assert.Equal(t, false, resp["retryable"])
	assert.Contains(t, resp["message"], "completed automatically")
}

func TestNormalizeIDs(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []string
		wantErr bool
	}{
		{"single productId", `{"productId":"111"}`, []string{"111"}, false},
		{"productIds array", `{"productIds":["111","123","111"]}`, []string{"111", "123", "111"}, false},
		{"productIds string", `{"productIds":"234"}`, []string{"234"}, false},
		{"both fields", `{"productIds":["111"],"productId":"123"}`, []string{"111", "123"}, false},
		{"trimmed", `{"productIds":[" 111 "]}`, []string{"111"}, false},
		{"null", `{"productIds":null}`, []string{}, false},
		{"nothing", `{}`, []string{}, false},
		{"wrong type", `{"productIds":42}`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req cartRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			got, err := normalizeIDs(&req)
			if tt.wantErr {
				_, ok := errors.IsValidation(err)
				assert.True(t, ok)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{"111", "123"}, splitIDs("111, 123,,"))
	assert.Empty(t, splitIDs(" , "))
}

func TestPrincipalMissing(t *testing.T) {
	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/cart", nil)

	h.GetCart(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
