// Package tax evaluates progressive bracket tables.
//
// Each table is published with a cumulative deduction per bracket, so a tax
// amount is a single multiply-and-subtract against the first bracket whose
// upper bound covers the base.
package tax

import (
	"math"

	"github.com/iwvelando/finance-calculators/pkg/constants"
)

// Bracket is one row of a progressive table. Rate is a fraction (0.15 for 15%).
type Bracket struct {
	UpperBound float64 `json:"upperBound" yaml:"upperBound"`
	Rate       float64 `json:"rate" yaml:"rate"`
	Deduction  float64 `json:"deduction" yaml:"deduction"`
}

// ApplyBrackets returns base*rate - deduction for the first bracket with
// UpperBound >= base. Bases at or below zero owe nothing. A base above every
// bound falls into the last bracket.
func ApplyBrackets(base float64, brackets []Bracket) float64 {
	if base <= 0 || len(brackets) == 0 {
		return 0
	}
	b := find(base, brackets)
	return base*b.Rate - b.Deduction
}

// MarginalRate returns the rate of the bracket base falls into.
func MarginalRate(base float64, brackets []Bracket) float64 {
	if base <= 0 || len(brackets) == 0 {
		return 0
	}
	return find(base, brackets).Rate
}

// EffectiveRate returns tax as a fraction of base.
func EffectiveRate(base float64, brackets []Bracket) float64 {
	if base <= 0 {
		return 0
	}
	return ApplyBrackets(base, brackets) / base
}

// LocalIncomeTax is the 10% surtax levied on national income tax.
func LocalIncomeTax(nationalTax float64) float64 {
	if nationalTax <= 0 {
		return 0
	}
	return nationalTax * LocalIncomeTaxRate
}

func find(base float64, brackets []Bracket) Bracket {
	for _, b := range brackets {
		if base <= b.UpperBound {
			return b
		}
	}
	return brackets[len(brackets)-1]
}

// LocalIncomeTaxRate is applied to national income tax.
const LocalIncomeTaxRate = 0.10

const (
	man = 10_000      // 만원
	eok = 100_000_000 // 억원
)

// IncomeTaxBrackets is the comprehensive income tax table in effect from 2023.
var IncomeTaxBrackets = []Bracket{
	{UpperBound: 1400 * man, Rate: 0.06, Deduction: 0},
	{UpperBound: 5000 * man, Rate: 0.15, Deduction: 126 * man},
	{UpperBound: 8800 * man, Rate: 0.24, Deduction: 576 * man},
	{UpperBound: 1.5 * eok, Rate: 0.35, Deduction: 1544 * man},
	{UpperBound: 3 * eok, Rate: 0.38, Deduction: 1994 * man},
	{UpperBound: 5 * eok, Rate: 0.40, Deduction: 2594 * man},
	{UpperBound: 10 * eok, Rate: 0.42, Deduction: 3594 * man},
	{UpperBound: math.Inf(1), Rate: 0.45, Deduction: 6594 * man},
}

// GiftTaxBrackets is the inheritance and gift tax table.
var GiftTaxBrackets = []Bracket{
	{UpperBound: 1 * eok, Rate: 0.10, Deduction: 0},
	{UpperBound: 5 * eok, Rate: 0.20, Deduction: 1000 * man},
	{UpperBound: 10 * eok, Rate: 0.30, Deduction: 6000 * man},
	{UpperBound: 30 * eok, Rate: 0.40, Deduction: 1.6 * eok},
	{UpperBound: math.Inf(1), Rate: 0.50, Deduction: 4.6 * eok},
}

// Tables maps the names accepted by the API and CLI to their bracket tables.
var Tables = map[string][]Bracket{
	"income": IncomeTaxBrackets,
	"gift":   GiftTaxBrackets,
}

// InterestTaxKind selects how interest income is taxed.
type InterestTaxKind string

const (
	// TaxGeneral is the standard 14% national + 1.4% local withholding.
	TaxGeneral InterestTaxKind = "general"
	// TaxPreferential is the 9.5% rate for qualifying savings products.
	TaxPreferential InterestTaxKind = "preferential"
	// TaxFree applies to tax-exempt products.
	TaxFree InterestTaxKind = "free"
)

// InterestTaxRatePercent returns the withholding rate for kind. Unknown kinds are taxed as general.
func InterestTaxRatePercent(kind InterestTaxKind) float64 {
	switch kind {
	case TaxPreferential:
		return 9.5
	case TaxFree:
		return 0
	}
	return 15.4
}

// InterestIncomeTax returns the withholding on interest for the given kind.
func InterestIncomeTax(interest float64, kind InterestTaxKind) float64 {
	if interest <= 0 {
		return 0
	}
	return interest * InterestTaxRatePercent(kind) / constants.PercentageMultiplier
}
