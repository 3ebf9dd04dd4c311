package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var amountReplacer = strings.NewReplacer(
	",", "",
	" ", "",
	"\t", "",
	"₩", "",
	"$", "",
	"원", "",
	"%", "",
)

// ParseAmount parses a form value such as "12,000,000" or "₩1,000". Anything
// that does not parse yields 0, mirroring how the calculator forms treat
// blank or malformed fields.
func ParseAmount(s string) float64 {
	value, err := ParseAmountStrict(s)
	if err != nil {
		return 0
	}
	return value
}

// ParseAmountStrict is ParseAmount for callers that want to reject bad input.
func ParseAmountStrict(s string) (float64, error) {
	cleaned := amountReplacer.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount")
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return value, nil
}

// ParseInt parses a whole number form value such as a term in months. Invalid
// input, and values outside the int range, yield 0.
func ParseInt(s string) int {
	value := ParseAmount(s)
	if math.IsNaN(value) || value >= float64(math.MaxInt) || value <= float64(math.MinInt) {
		return 0
	}
	if value < 0 {
		return int(value - 0.5)
	}
	return int(value + 0.5)
}
