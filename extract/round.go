package extract

import "github.com/shopspring/decimal"

// Round2 rounds to two decimal places, half away from zero, on the shortest
// decimal form of v. 1.005 becomes 1.01 and 2.675 becomes 2.68, where naive
// float scaling would give 1.00 and 2.67.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
