package service

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

const maxIDsPerRequest = 100

// ValidateProductIDs checks an id list before it reaches any store.
func ValidateProductIDs(ids []string) error {
	if len(ids) == 0 {
		return errors.NewValidationError("productIds", "at least one product id is required")
	}

	if len(ids) > maxIDsPerRequest {
		return errors.NewValidationError("productIds", fmt.Sprintf("at most %d product ids per request", maxIDsPerRequest))
	}

	var verr *errors.ValidationError
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			if verr == nil {
				verr = errors.NewValidationError("productIds", "product ids must not be blank")
			}
			verr = verr.WithDetail(fmt.Sprintf("productIds[%d]", i), "blank id")
		}
	}
	if verr != nil {
		return verr
	}

	return nil
}

// ValidateCheckoutRequest validates the customer fields of a checkout. An
// empty id list is not a validation error; it is reported as an empty cart.
func ValidateCheckoutRequest(req *models.CheckoutRequest) error {
	if req == nil {
		return errors.NewValidationError("body", "checkout request is required")
	}

	if err := validateEmail(req.Email); err != nil {
		return err
	}

	if !req.PaymentMethod.Valid() {
		return errors.NewValidationError("paymentMethod", "payment method must be one of credit, paypal, debit")
	}

	for i, id := range req.ItemIDs {
		if strings.TrimSpace(id) == "" {
			return errors.NewValidationError("itemIds", "item ids must not be blank").
				WithDetail(fmt.Sprintf("itemIds[%d]", i), "blank id")
		}
	}

	return nil
}

// ValidateOrder validates an order submitted directly to the order resource.
func ValidateOrder(order *models.Order) error {
	if order == nil {
		return errors.NewValidationError("body", "order is required")
	}

	if len(order.Items) == 0 {
		return errors.NewValidationError("items", "at least one item is required")
	}

	for i, item := range order.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return errors.NewValidationError("items", "product id is required for item").
				WithDetail(fmt.Sprintf("items[%d].productId", i), "required")
		}
		if item.Quantity <= 0 {
			return errors.NewValidationError("items", "quantity must be positive").
				WithDetail(fmt.Sprintf("items[%d].quantity", i), "must be > 0")
		}
	}

	if strings.TrimSpace(order.TransactionID) == "" {
		return errors.NewValidationError("transactionId", "transaction id is required")
	}

	if order.TotalCost < 0 {
		return errors.NewValidationError("totalCost", "total cost cannot be negative")
	}

	if !order.PaymentMethod.Valid() {
		return errors.NewValidationError("paymentMethod", "payment method must be one of credit, paypal, debit")
	}

	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.NewValidationError("email", "email is required")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email, "@") {
		return errors.NewValidationError("email", "email is not a valid address")
	}

	return nil
}
