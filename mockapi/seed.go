package mockapi

import (
	"time"

	"github.com/noghresod/shopsync/model"
)

// SeedProducts 默认商品目录
func SeedProducts(now time.Time) []model.Product {
	return stamp([]model.Product{
		{ID: "p-001", Name: "Twisted Silver Ring", Category: "rings", Price: 2_450_000, WeightGrams: 4.2, Purity: 925, Stock: 12, ImageURL: "https://cdn.noghresod.ir/p-001.jpg"},
		{ID: "p-002", Name: "Turquoise Pendant", Category: "necklaces", Price: 5_900_000, WeightGrams: 7.8, Purity: 925, Stock: 4, ImageURL: "https://cdn.noghresod.ir/p-002.jpg"},
		{ID: "p-003", Name: "Filigree Bangle", Category: "bracelets", Price: 8_300_000, WeightGrams: 18.5, Purity: 950, Stock: 2, ImageURL: "https://cdn.noghresod.ir/p-003.jpg"},
		{ID: "p-004", Name: "Hoop Earrings", Category: "earrings", Price: 1_750_000, WeightGrams: 3.1, Purity: 925, Stock: 30, ImageURL: "https://cdn.noghresod.ir/p-004.jpg"},
		{ID: "p-005", Name: "Rope Chain 50cm", Category: "necklaces", Price: 4_200_000, WeightGrams: 11.0, Purity: 925, Stock: 0, ImageURL: "https://cdn.noghresod.ir/p-005.jpg"},
		{ID: "p-006", Name: "Agate Signet Ring", Category: "rings", Price: 6_650_000, WeightGrams: 9.4, Purity: 950, Stock: 7, ImageURL: "https://cdn.noghresod.ir/p-006.jpg"},
	}, now)
}

func stamp(products []model.Product, now time.Time) []model.Product {
	for i := range products {
		if products[i].UpdatedAt.IsZero() {
			products[i].UpdatedAt = now
		}
		if products[i].Description == "" {
			products[i].Description = "Handmade " + products[i].Name
		}
	}
	return products
}
