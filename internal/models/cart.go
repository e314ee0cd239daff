package models

import "time"

// Principal is the identity a core operation acts for. How it was
// established is not the core's concern.
type Principal struct {
	UserID string `json:"userId"`
}

// Cart is a user's ordered multiset of product ids. Repetition encodes quantity.
type Cart struct {
	UserID  string   `json:"userId"`
	CartIDs []string `json:"cartIds"`
}

// CartUpdateResult reports the outcome of an add or replace.
type CartUpdateResult struct {
	Added   []string `json:"addedProducts"`
	Invalid []string `json:"invalidProducts"`
	Cart    []string `json:"updatedCart"`
}

// Partial reports whether some requested ids were rejected.
func (r *CartUpdateResult) Partial() bool {
	return len(r.Invalid) > 0
}

// CartRemoveResult reports the outcome of a remove.
type CartRemoveResult struct {
	Removed  []string `json:"removed"`
	NotFound []string `json:"notFound"`
	Cart     []string `json:"updatedCart"`
}

// IntentPhase records how far the post-payment writes of a checkout got.
type IntentPhase string

const (
	IntentPhasePaid           IntentPhase = "paid"
	IntentPhaseOrderCommitted IntentPhase = "order_committed"
	IntentPhaseCompleted      IntentPhase = "completed"
)

// CheckoutIntent is the durable record of a paid checkout whose order write
// and cart retraction may not both have happened yet.
type CheckoutIntent struct {
	ID            string      `json:"id"`
	UserID        string      `json:"userId"`
	TransactionID string      `json:"transactionId"`
	Email         string      `json:"email"`
	ItemIDs       []string    `json:"itemIds"`
	Order         *Order      `json:"order"`
	Phase         IntentPhase `json:"phase"`
	Attempts      int         `json:"attempts"`
	LastError     string      `json:"lastError,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// Pending reports whether the intent still has writes outstanding.
func (i *CheckoutIntent) Pending() bool {
	return i.Phase != IntentPhaseCompleted
}
