package models

import "github.com/shopspring/decimal"

// RoundHours rounds half away from zero to 2 decimal places.
func RoundHours(hours float64) float64 {
	rounded, _ := decimal.NewFromFloat(hours).Round(2).Float64()
	return rounded
}
