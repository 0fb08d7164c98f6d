package checkout

import "math"

// DiscountedPrice returns the unit price after applying a percentage
// discount. The discount amount is rounded up to the next whole currency
// unit before subtracting. A discountPercent of 0 leaves the price as is.
func DiscountedPrice(price, discountPercent float64) float64 {
	return price - math.Ceil(price*discountPercent/100)
}
