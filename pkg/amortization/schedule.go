// Package amortization computes period-by-period repayment schedules for
// loans, mortgages and card installments.
package amortization

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/mathutil"
)

// ErrInvalidTerms is wrapped by every validation failure.
var ErrInvalidTerms = errors.New("invalid loan terms")

// LoanTerms is the input of one calculation.
type LoanTerms struct {
	Principal         float64         `json:"principal"`
	AnnualRatePercent float64         `json:"annualRate"`
	TermMonths        int             `json:"termMonths"`
	Policy            RepaymentPolicy `json:"policy"`
}

// PeriodEntry holds the values for a given period.
type PeriodEntry struct {
	Period           int     `json:"period"`
	Payment          float64 `json:"payment"`
	Principal        float64 `json:"principal"`
	Interest         float64 `json:"interest"`
	RemainingBalance float64 `json:"remainingBalance"`
}

// ScheduleResult is the full schedule plus its aggregates.
type ScheduleResult struct {
	Terms          LoanTerms     `json:"terms"`
	Schedule       []PeriodEntry `json:"schedule"`
	MonthlyPayment float64       `json:"monthlyPayment"`
	TotalPayment   float64       `json:"totalPayment"`
	TotalInterest  float64       `json:"totalInterest"`
}

// Validate rejects terms the engine would only answer with a degenerate schedule.
func (t LoanTerms) Validate() error {
	switch {
	case !mathutil.IsFinite(t.Principal) || t.Principal < 0:
		return fmt.Errorf("%w: principal must be a non-negative number, got %v", ErrInvalidTerms, t.Principal)
	case !mathutil.IsFinite(t.AnnualRatePercent) || t.AnnualRatePercent < 0:
		return fmt.Errorf("%w: annual rate must be a non-negative number, got %v", ErrInvalidTerms, t.AnnualRatePercent)
	case t.TermMonths < 1:
		return fmt.Errorf("%w: term must be at least 1 month, got %d", ErrInvalidTerms, t.TermMonths)
	case !t.Policy.Valid():
		return fmt.Errorf("%w: unknown repayment policy %d", ErrInvalidTerms, int(t.Policy))
	}
	return nil
}

// MonthlyRate converts an annual percentage rate into the periodic monthly rate.
func MonthlyRate(annualRatePercent float64) float64 {
	return annualRatePercent / (constants.PercentageMultiplier * constants.MonthsPerYear)
}

// AnnuityPayment is the constant payment that retires principal over n periods at rate r.
// It evaluates P*r / (1 - (1+r)^-n) through Log1p and Expm1, which stay finite
// for rates too small to change 1+r and for terms long enough to overflow (1+r)^n.
func AnnuityPayment(principal, r float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	if r == 0 {
		return principal / float64(n)
	}
	denominator := -math.Expm1(-float64(n) * math.Log1p(r))
	if denominator == 0 {
		return principal / float64(n)
	}
	return principal * r / denominator
}

// ComputeSchedule produces the schedule for terms. It never fails: a term of
// zero or less yields an empty schedule, and a zero principal yields zero rows.
// Balances carry full precision; use Rounded for display.
func ComputeSchedule(terms LoanTerms) ScheduleResult {
	result := ScheduleResult{Terms: terms}
	n := terms.TermMonths
	if n <= 0 {
		return result
	}

	r := MonthlyRate(terms.AnnualRatePercent)
	result.Schedule = make([]PeriodEntry, 0, n)

	switch terms.Policy {
	case EqualPrincipal:
		result.Schedule = equalPrincipal(terms.Principal, r, n, result.Schedule)
	case InterestOnly:
		result.Schedule = interestOnly(terms.Principal, r, n, result.Schedule)
	default:
		result.Schedule = equalPayment(terms.Principal, r, n, result.Schedule)
	}

	for _, entry := range result.Schedule {
		result.TotalInterest += entry.Interest
	}
	result.TotalPayment = terms.Principal + result.TotalInterest
	result.MonthlyPayment = result.Schedule[0].Payment
	return result
}

func equalPayment(principal, r float64, n int, rows []PeriodEntry) []PeriodEntry {
	payment := AnnuityPayment(principal, r, n)
	balance := principal
	for period := 1; period <= n; period++ {
		interest := balance * r
		principalPart := payment - interest
		if period == n {
			// The last period retires whatever floating residue is left.
			principalPart = balance
		}
		balance = mathutil.ClampZero(balance - principalPart)
		if period == n {
			balance = 0
		}
		rows = append(rows, PeriodEntry{
			Period:           period,
			Payment:          principalPart + interest,
			Principal:        principalPart,
			Interest:         interest,
			RemainingBalance: balance,
		})
	}
	return rows
}

func equalPrincipal(principal, r float64, n int, rows []PeriodEntry) []PeriodEntry {
	fixed := principal / float64(n)
	balance := principal
	for period := 1; period <= n; period++ {
		interest := balance * r
		principalPart := fixed
		if period == n {
			principalPart = balance
		}
		balance = mathutil.ClampZero(balance - principalPart)
		if period == n {
			balance = 0
		}
		rows = append(rows, PeriodEntry{
			Period:           period,
			Payment:          principalPart + interest,
			Principal:        principalPart,
			Interest:         interest,
			RemainingBalance: balance,
		})
	}
	return rows
}

func interestOnly(principal, r float64, n int, rows []PeriodEntry) []PeriodEntry {
	interest := principal * r
	for period := 1; period < n; period++ {
		rows = append(rows, PeriodEntry{
			Period:           period,
			Payment:          interest,
			Interest:         interest,
			RemainingBalance: principal,
		})
	}
	return append(rows, PeriodEntry{
		Period:    n,
		Payment:   interest + principal,
		Principal: principal,
		Interest:  interest,
	})
}

// Rounded returns a copy with every monetary figure rounded to whole currency
// units. Aggregates are re-derived from the rounded rows so the displayed
// totals add up.
func (s ScheduleResult) Rounded() ScheduleResult {
	out := ScheduleResult{
		Terms:    s.Terms,
		Schedule: make([]PeriodEntry, len(s.Schedule)),
	}
	for i, entry := range s.Schedule {
		out.Schedule[i] = PeriodEntry{
			Period:           entry.Period,
			Payment:          mathutil.RoundUnit(entry.Payment),
			Principal:        mathutil.RoundUnit(entry.Principal),
			Interest:         mathutil.RoundUnit(entry.Interest),
			RemainingBalance: mathutil.RoundUnit(entry.RemainingBalance),
		}
		out.TotalInterest += out.Schedule[i].Interest
	}
	out.TotalPayment = mathutil.RoundUnit(s.Terms.Principal) + out.TotalInterest
	out.MonthlyPayment = mathutil.RoundUnit(s.MonthlyPayment)
	return out
}

// LastPayment returns the final period's payment, or 0 for an empty schedule.
func (s ScheduleResult) LastPayment() float64 {
	if len(s.Schedule) == 0 {
		return 0
	}
	return s.Schedule[len(s.Schedule)-1].Payment
}

// PrincipalRepaid sums the principal component of every period.
func PrincipalRepaid(s ScheduleResult) float64 {
	var total float64
	for _, entry := range s.Schedule {
		total += entry.Principal
	}
	return total
}

// CompareTerms computes the schedule for every policy with otherwise identical terms.
func CompareTerms(terms LoanTerms) map[RepaymentPolicy]ScheduleResult {
	results := make(map[RepaymentPolicy]ScheduleResult, len(Policies))
	for _, policy := range Policies {
		variant := terms
		variant.Policy = policy
		results[policy] = ComputeSchedule(variant)
	}
	return results
}
