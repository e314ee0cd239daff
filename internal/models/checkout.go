package models

import "time"

// CheckoutState is the terminal state of one checkout attempt.
type CheckoutState string

const (
	CheckoutStateCollecting CheckoutState = "collecting"
	CheckoutStateSubmitting CheckoutState = "submitting"
	CheckoutStateSucceeded  CheckoutState = "succeeded"
	CheckoutStateFailed     CheckoutState = "failed"
)

// CheckoutRequest carries the ids the user is checking out. The ids are
// re-validated against the live catalog.
type CheckoutRequest struct {
	ItemIDs       []string      `json:"itemIds"`
	Email         string        `json:"email"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

// GroupedItem is a product with its quantity in the checkout.
type GroupedItem struct {
	Product  *Product `json:"product"`
	Quantity int      `json:"quantity"`
}

// CheckoutResult is returned for a checkout attempt that reached payment.
type CheckoutResult struct {
	State         CheckoutState `json:"state"`
	TransactionID string        `json:"transactionId,omitempty"`
	Order         *Order        `json:"order,omitempty"`
	Rejected      []string      `json:"rejected,omitempty"`
	CartRetracted bool          `json:"cartRetracted"`
	RedirectAfter time.Duration `json:"-"`
}

// PaymentRequest is sent to the payment gateway.
type PaymentRequest struct {
	UserID        string        `json:"userId"`
	Email         string        `json:"email"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Items         []OrderItem   `json:"items"`
	TotalPrice    float64       `json:"totalPrice"`
}

// PaymentResult is the gateway's answer. Only Success=true allows writes.
type PaymentResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
}
