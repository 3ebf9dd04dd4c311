// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/shopspring/decimal"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
// Used for making logical comparisons.
func Round(val float64) float64 {
	return math.Round(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// RoundUnit rounds a value to the nearest whole currency unit, half away from zero.
// Decimal arithmetic keeps values such as 1066185.5 from landing on the wrong side
// because of binary representation.
func RoundUnit(val float64) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return val
	}
	rounded, _ := decimal.NewFromFloat(val).Round(0).Float64()
	return rounded
}

// RoundTo rounds a value to the given number of decimal places.
func RoundTo(val float64, places int32) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return val
	}
	rounded, _ := decimal.NewFromFloat(val).Round(places).Float64()
	return rounded
}

// IsFinite reports whether val is neither NaN nor infinite.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// ClampZero returns 0 for negative inputs.
func ClampZero(val float64) float64 {
	if val < 0 {
		return 0
	}
	return val
}

// ApplyPercentage applies a percentage to a value
func ApplyPercentage(value, percentage float64) float64 {
	return value * (percentage / constants.PercentageMultiplier)
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * 100
}
