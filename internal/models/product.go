package models

import "encoding/json"

// Product is a catalog entry. The cart never mutates it.
type Product struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	ImageURL        string   `json:"imageUrl"`
	Description     string   `json:"description"`
	Price           float64  `json:"price"`
	Supplier        string   `json:"supplier"`
	Genre           []string `json:"genre"`
	CountryOfOrigin string   `json:"countryOfOrigin"`
	Material        string   `json:"material"`
	InStock         bool     `json:"inStock"`
}

// SlotErrorNotFound is the tombstone message for a dangling cart id.
const SlotErrorNotFound = "not found"

// CartSlot is one position of a materialized cart: either the product or a
// tombstone naming the id that no longer resolves.
type CartSlot struct {
	ID      string
	Product *Product
	Error   string
}

// Missing reports whether the slot is a tombstone.
func (s CartSlot) Missing() bool {
	return s.Product == nil
}

// MarshalJSON renders the product itself, or {"id", "error"} for a tombstone.
func (s CartSlot) MarshalJSON() ([]byte, error) {
	if s.Product != nil {
		return json.Marshal(s.Product)
	}
	return json.Marshal(struct {
		ID    string `json:"id"`
		Error string `json:"error"`
	}{
		ID:    s.ID,
		Error: s.Error,
	})
}
