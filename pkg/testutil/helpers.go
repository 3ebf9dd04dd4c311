// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/finance-calculators/pkg/amortization"
	"github.com/iwvelando/finance-calculators/pkg/mathutil"
)

// FindEntry finds the schedule entry for period.
// Returns a pointer to the entry if found, nil otherwise.
func FindEntry(schedule []amortization.PeriodEntry, period int) *amortization.PeriodEntry {
	for i := range schedule {
		if schedule[i].Period == period {
			return &schedule[i]
		}
	}
	return nil
}

// AlmostEqual reports whether got is within tolerance of want.
func AlmostEqual(got, want, tolerance float64) bool {
	return mathutil.WithinTolerance(got, want, tolerance)
}
