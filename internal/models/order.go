package models

import "time"

// PaymentMethod is the instrument the customer chose at checkout.
type PaymentMethod string

const (
	PaymentMethodCredit PaymentMethod = "credit"
	PaymentMethodPayPal PaymentMethod = "paypal"
	PaymentMethodDebit  PaymentMethod = "debit"
)

// Valid reports whether m is one of the supported methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCredit, PaymentMethodPayPal, PaymentMethodDebit:
		return true
	}
	return false
}

// OrderItem is one grouped line of an order.
type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Order is the immutable record of a completed checkout.
type Order struct {
	UserID        string        `json:"userId"`
	Items         []OrderItem   `json:"items"`
	TransactionID string        `json:"transactionId"`
	TotalCost     float64       `json:"totalCost"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	DateReceived  time.Time     `json:"dateReceived"`
}

// ItemCount returns the total number of units in the order.
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}
