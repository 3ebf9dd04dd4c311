// Package savings projects deposits, installment savings and fund
// contributions month by month.
package savings

import (
	"fmt"
	"strings"

	"github.com/iwvelando/finance-calculators/pkg/amortization"
	"github.com/iwvelando/finance-calculators/pkg/tax"
)

// Compounding selects how interest accrues.
type Compounding string

const (
	// Simple interest accrues on the deposited principal only (단리).
	Simple Compounding = "simple"
	// Monthly interest compounds every month (월복리).
	Monthly Compounding = "monthly"
)

// ParseCompounding accepts "simple"/"단리" and "monthly"/"compound"/"월복리". Empty means simple.
func ParseCompounding(s string) (Compounding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "simple", "단리":
		return Simple, nil
	case "monthly", "compound", "월복리", "복리":
		return Monthly, nil
	}
	return "", fmt.Errorf("unknown compounding %q", s)
}

// Period is one month of a projection.
type Period struct {
	Month       int     `json:"month"`
	Deposited   float64 `json:"deposited"`
	Interest    float64 `json:"interest"`
	Balance     float64 `json:"balance"`
	Accumulated float64 `json:"accumulatedInterest"`
}

// Result holds the totals of a projection. Maturity is principal plus interest after tax.
type Result struct {
	Principal     float64  `json:"principal"`
	GrossInterest float64  `json:"grossInterest"`
	Tax           float64  `json:"tax"`
	NetInterest   float64  `json:"netInterest"`
	Maturity      float64  `json:"maturity"`
	Schedule      []Period `json:"schedule"`
}

// Deposit projects a lump sum held for months.
func Deposit(principal, annualRatePercent float64, months int, compounding Compounding, kind tax.InterestTaxKind) Result {
	result := Result{Principal: principal}
	if months <= 0 {
		result.Maturity = principal
		return result
	}

	r := amortization.MonthlyRate(annualRatePercent)
	balance := principal
	var accumulated float64
	result.Schedule = make([]Period, 0, months)
	for month := 1; month <= months; month++ {
		var interest float64
		if compounding == Monthly {
			interest = balance * r
			balance += interest
		} else {
			interest = principal * r
			balance = principal + accumulated + interest
		}
		accumulated += interest
		result.Schedule = append(result.Schedule, Period{
			Month:       month,
			Deposited:   principal,
			Interest:    interest,
			Balance:     balance,
			Accumulated: accumulated,
		})
	}

	return settle(result, accumulated, kind)
}

// Installment projects a fixed monthly deposit; each deposit earns interest
// for the months it stays in the account.
func Installment(monthly, annualRatePercent float64, months int, compounding Compounding, kind tax.InterestTaxKind) Result {
	var result Result
	if months <= 0 {
		return result
	}

	r := amortization.MonthlyRate(annualRatePercent)
	var deposited, accumulated, balance float64
	result.Schedule = make([]Period, 0, months)
	for month := 1; month <= months; month++ {
		deposited += monthly
		balance += monthly
		var interest float64
		if compounding == Monthly {
			interest = balance * r
		} else {
			interest = deposited * r
		}
		balance += interest
		accumulated += interest
		result.Schedule = append(result.Schedule, Period{
			Month:       month,
			Deposited:   deposited,
			Interest:    interest,
			Balance:     balance,
			Accumulated: accumulated,
		})
	}

	result.Principal = deposited
	return settle(result, accumulated, kind)
}

// Fund projects an initial investment plus monthly contributions at an
// expected annual return, compounded monthly. Fund gains are reported untaxed.
func Fund(initial, monthly, annualReturnPercent float64, months int) Result {
	result := Result{Principal: initial}
	if months <= 0 {
		result.Maturity = initial
		return result
	}

	r := amortization.MonthlyRate(annualReturnPercent)
	balance := initial
	deposited := initial
	var accumulated float64
	result.Schedule = make([]Period, 0, months)
	for month := 1; month <= months; month++ {
		gain := balance * r
		balance += gain + monthly
		deposited += monthly
		accumulated += gain
		result.Schedule = append(result.Schedule, Period{
			Month:       month,
			Deposited:   deposited,
			Interest:    gain,
			Balance:     balance,
			Accumulated: accumulated,
		})
	}

	result.Principal = deposited
	return settle(result, accumulated, tax.TaxFree)
}

func settle(result Result, gross float64, kind tax.InterestTaxKind) Result {
	result.GrossInterest = gross
	result.Tax = tax.InterestIncomeTax(gross, kind)
	result.NetInterest = gross - result.Tax
	result.Maturity = result.Principal + result.NetInterest
	return result
}
