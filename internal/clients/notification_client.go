package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// Ensure HTTPNotificationClient implements NotificationSender
var _ NotificationSender = (*HTTPNotificationClient)(nil)

const orderConfirmationTemplate = "order_confirmation"

// EmailRequest is the notification service payload for a templated email.
type EmailRequest struct {
	To       string                 `json:"to"`
	Template string                 `json:"template"`
	Data     map[string]interface{} `json:"data"`
}

// HTTPNotificationClient sends emails through the notification service.
type HTTPNotificationClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	logger     *logging.Logger
}

// NewHTTPNotificationClient creates a new HTTP-based notification client.
func NewHTTPNotificationClient(cfg config.ServiceConfig, logger *logging.Logger) *HTTPNotificationClient {
	return &HTTPNotificationClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

// SendOrderConfirmation emails the order summary to the customer.
func (c *HTTPNotificationClient) SendOrderConfirmation(ctx context.Context, email string, order *models.Order) error {
	return c.SendEmail(ctx, &EmailRequest{
		To:       email,
		Template: orderConfirmationTemplate,
		Data: map[string]interface{}{
			"transactionId": order.TransactionID,
			"items":         order.Items,
			"totalCost":     order.TotalCost,
			"dateReceived":  order.DateReceived,
		},
	})
}

// SendEmail sends an email notification.
func (c *HTTPNotificationClient) SendEmail(ctx context.Context, req *EmailRequest) error {
	c.logger.Debug("Sending email", logging.Fields{
		"to":       req.To,
		"template": req.Template,
	})

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v1/notifications/email", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	setHeaders(ctx, httpReq, c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Failed to send email", logging.Fields{
			"to":    req.To,
			"error": err.Error(),
		})
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	c.logger.Info("Email sent", logging.Fields{"to": req.To, "template": req.Template})
	return nil
}

// NoopNotificationSender records confirmations instead of sending them. It is
// used when notifications are disabled.
type NoopNotificationSender struct {
	mu   sync.Mutex
	sent []string
}

func NewNoopNotificationSender() *NoopNotificationSender {
	return &NoopNotificationSender{}
}

func (n *NoopNotificationSender) SendOrderConfirmation(ctx context.Context, email string, order *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, order.TransactionID)
	return nil
}

// Sent returns the transaction ids confirmed so far.
func (n *NoopNotificationSender) Sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	copy(out, n.sent)
	return out
}
