package usecase

import (
	"regexp"
	"strings"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

var (
	freeShippingAbove = decimal.NewFromInt(100)
	flatShipping      = decimal.NewFromInt(10)
)

type Pricing struct {
	ItemsPrice    float64
	TaxPrice      float64
	ShippingPrice float64
	TotalPrice    float64
}

// PriceItems sums unitPrice x quantity. Shipping is free strictly above 100,
// flat 10 otherwise. Tax is always zero.
func PriceItems(items []model.OrderItem) Pricing {
	itemsPrice := decimal.Zero
	for _, it := range items {
		itemsPrice = itemsPrice.Add(decimal.NewFromFloat(it.UnitPrice).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	itemsPrice = itemsPrice.Round(2)

	shipping := flatShipping
	if itemsPrice.GreaterThan(freeShippingAbove) {
		shipping = decimal.Zero
	}
	tax := decimal.Zero
	total := itemsPrice.Add(tax).Add(shipping).Round(2)

	return Pricing{
		ItemsPrice:    itemsPrice.InexactFloat64(),
		TaxPrice:      tax.InexactFloat64(),
		ShippingPrice: shipping.InexactFloat64(),
		TotalPrice:    total.InexactFloat64(),
	}
}

var (
	postalCodeRe = regexp.MustCompile(`^\d{6}$`)
	nonDigitRe   = regexp.MustCompile(`\D`)
)

// ValidateShippingAddress checks what the carrier needs before a shipment is booked.
func ValidateShippingAddress(a *model.ShippingAddress) error {
	if a == nil {
		return ValidationError("shipping address is required")
	}
	var missing []string
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.State) == "" {
		missing = append(missing, "state")
	}
	if len(missing) > 0 {
		return ValidationError("shipping address is missing %s", strings.Join(missing, ", "))
	}
	if !postalCodeRe.MatchString(strings.TrimSpace(a.PostalCode)) {
		return ValidationError("postal code must be 6 digits")
	}
	if len(nonDigitRe.ReplaceAllString(a.Phone, "")) < 10 {
		return ValidationError("phone must have at least 10 digits")
	}
	return nil
}
