package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// Ensure HTTPPaymentClient implements PaymentGateway
var _ PaymentGateway = (*HTTPPaymentClient)(nil)

// HTTPPaymentClient charges through an external payment service.
type HTTPPaymentClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	logger     *logging.Logger
}

// NewHTTPPaymentClient creates a new HTTP-based payment client.
func NewHTTPPaymentClient(cfg config.ServiceConfig, logger *logging.Logger) *HTTPPaymentClient {
	return &HTTPPaymentClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

// Process submits the payment. A 402 from the service is a decline, not an
// error.
func (c *HTTPPaymentClient) Process(ctx context.Context, req *models.PaymentRequest) (*models.PaymentResult, error) {
	c.logger.Debug("Processing payment", logging.Fields{
		"user_id": req.UserID,
		"amount":  req.TotalPrice,
		"method":  req.PaymentMethod,
	})

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v1/payments", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	setHeaders(ctx, httpReq, c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Payment request failed", logging.Fields{
			"user_id": req.UserID,
			"error":   err.Error(),
		})
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		c.logger.Info("Payment declined", logging.Fields{"user_id": req.UserID})
		return &models.PaymentResult{Success: false}, nil
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("Payment request returned error", logging.Fields{
			"user_id":     req.UserID,
			"status_code": resp.StatusCode,
		})
		return nil, fmt.Errorf("payment service returned status %d", resp.StatusCode)
	}

	var result models.PaymentResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if result.Success && result.TransactionID == "" {
		return nil, fmt.Errorf("payment service approved without a transaction id")
	}

	c.logger.Info("Payment processed", logging.Fields{
		"user_id":        req.UserID,
		"transaction_id": result.TransactionID,
		"success":        result.Success,
	})

	return &result, nil
}

func setHeaders(ctx context.Context, req *http.Request, apiKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(middleware.HeaderRequestID, requestID)
	}
}
