package validation

import (
	"fmt"
	"math"
	"strings"
)

// NonNegative checks that a named form value is a finite number >= 0.
func NonNegative(field string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%s must be a finite number", field)
	}
	if value < 0 {
		return fmt.Errorf("%s must not be negative, got %v", field, value)
	}
	return nil
}

// Positive checks that a named form value is a finite number > 0.
func Positive(field string, value float64) error {
	if err := NonNegative(field, value); err != nil {
		return err
	}
	if value == 0 {
		return fmt.Errorf("%s must be greater than zero", field)
	}
	return nil
}

// MonthRange checks a term in months against an inclusive range.
func MonthRange(field string, months, min, max int) error {
	if months < min || months > max {
		return fmt.Errorf("%s must be between %d and %d months, got %d", field, min, max, months)
	}
	return nil
}

// CurrencyCode checks for a three-letter ISO 4217 style code.
func CurrencyCode(field, code string) error {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != 3 {
		return fmt.Errorf("%s must be a three-letter currency code, got %q", field, code)
	}
	for _, r := range trimmed {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return fmt.Errorf("%s must be a three-letter currency code, got %q", field, code)
		}
	}
	return nil
}

// Collect joins the non-nil errors into one, or returns nil.
func Collect(errs ...error) error {
	var messages []string
	for _, err := range errs {
		if err != nil {
			messages = append(messages, err.Error())
		}
	}
	if len(messages) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(messages, "; "))
}
