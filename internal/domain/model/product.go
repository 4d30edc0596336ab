package model

import "time"

type Product struct {
	ID              string         `json:"id" bson:"_id"`
	Name            string         `json:"name" bson:"name"`
	Description     string         `json:"description" bson:"description"`
	MRP             float64        `json:"mrp" bson:"mrp"`
	DiscountedPrice float64        `json:"discountedPrice" bson:"discountedPrice"`
	Sizes           map[string]int `json:"sizes" bson:"sizes"`
	Images          []string       `json:"images" bson:"images"`
	IsActive        bool           `json:"isActive" bson:"isActive"`
	CreatedAt       time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// CurrentPrice is the price a buyer pays today.
func (p Product) CurrentPrice() float64 {
	if p.DiscountedPrice > 0 && p.DiscountedPrice < p.MRP {
		return p.DiscountedPrice
	}
	return p.MRP
}

func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
