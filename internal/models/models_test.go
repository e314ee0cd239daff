package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartSlot_MarshalJSON(t *testing.T) {
	t.Run("product slot renders the product", func(t *testing.T) {
		slot := CartSlot{ID: "123", Product: &Product{ID: "123", Name: "Hat", Price: 29}}

		data, err := json.Marshal(slot)
		require.NoError(t, err)

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "Hat", got["name"])
		assert.Equal(t, float64(29), got["price"])
		assert.NotContains(t, got, "error")
	})

	t.Run("tombstone renders id and error", func(t *testing.T) {
		slot := CartSlot{ID: "999", Error: SlotErrorNotFound}

		data, err := json.Marshal(slot)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"999","error":"not found"}`, string(data))
		assert.True(t, slot.Missing())
	})
}

func TestPaymentMethod_Valid(t *testing.T) {
	tests := []struct {
		method PaymentMethod
		want   bool
	}{
		{PaymentMethodCredit, true},
		{PaymentMethodPayPal, true},
		{PaymentMethodDebit, true},
		{"bitcoin", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.method.Valid())
		})
	}
}

func TestOrder_ItemCount(t *testing.T) {
	order := &Order{Items: []OrderItem{
		{ProductID: "111", Quantity: 2},
		{ProductID: "123", Quantity: 1},
	}}
	assert.Equal(t, 3, order.ItemCount())
}

func TestCheckoutIntent_Pending(t *testing.T) {
	assert.True(t, (&CheckoutIntent{Phase: IntentPhasePaid}).Pending())
	assert.True(t, (&CheckoutIntent{Phase: IntentPhaseOrderCommitted}).Pending())
	assert.False(t, (&CheckoutIntent{Phase: IntentPhaseCompleted}).Pending())
}
