// Package format renders and parses the monetary and numeric strings shown on
// calculator forms.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/finance-calculators/pkg/mathutil"
)

// Won returns a whole-unit KRW string with thousands separators (e.g., "₩1,066,185").
func Won(amount float64) string {
	grouped := Grouped(amount)
	if strings.HasPrefix(grouped, "-") {
		return "-₩" + grouped[1:]
	}
	return "₩" + grouped
}

// NumericCurrency returns a currency string without a currency symbol but with separators (e.g., "-1,234.56").
func NumericCurrency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
	}
	return sign + formatPositive(math.Abs(amount), 2)
}

// Grouped returns the whole-unit value with thousands separators and no symbol.
func Grouped(amount float64) string {
	rounded := mathutil.RoundUnit(amount)
	sign := ""
	if rounded < 0 {
		sign = "-"
	}
	return sign + formatPositive(math.Abs(rounded), 0)
}

// Percent renders a percentage with up to two decimals, trimming trailing zeros ("1.5%").
func Percent(value float64) string {
	s := fmt.Sprintf("%.2f", value)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s + "%"
}

func formatPositive(value float64, decimals int) string {
	formatted := fmt.Sprintf("%.*f", decimals, value)
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	if len(parts) == 2 {
		return intPart + "." + parts[1]
	}
	return intPart
}
