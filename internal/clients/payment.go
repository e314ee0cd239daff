package clients

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// PaymentGateway charges a checkout. A nil error with Success=false is a
// declined payment; a non-nil error is an unknown outcome and is treated the
// same way by callers.
type PaymentGateway interface {
	Process(ctx context.Context, req *models.PaymentRequest) (*models.PaymentResult, error)
}

// NotificationSender delivers customer notifications.
type NotificationSender interface {
	SendOrderConfirmation(ctx context.Context, email string, order *models.Order) error
}
