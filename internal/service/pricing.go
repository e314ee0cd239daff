package service

import (
	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// GroupItems collapses repeated products into one line each, in the order a
// product is first seen. The quantity is the number of occurrences.
func GroupItems(products []*models.Product) []models.GroupedItem {
	index := make(map[string]int, len(products))
	grouped := make([]models.GroupedItem, 0, len(products))

	for _, p := range products {
		if i, ok := index[p.ID]; ok {
			grouped[i].Quantity++
			continue
		}
		index[p.ID] = len(grouped)
		grouped = append(grouped, models.GroupedItem{Product: p, Quantity: 1})
	}

	return grouped
}

// CalculateTotal returns sum(price * quantity), rounded to cents.
func CalculateTotal(items []models.GroupedItem) float64 {
	total := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.Product.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
	}
	return total.Round(2).InexactFloat64()
}

// OrderItems converts grouped lines into order items.
func OrderItems(items []models.GroupedItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.OrderItem{ProductID: item.Product.ID, Quantity: item.Quantity})
	}
	return out
}
