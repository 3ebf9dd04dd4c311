package amortization

import (
	"fmt"

	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/mathutil"
	"go.uber.org/zap"
)

// Generator validates terms before computing schedules and logs what it did.
type Generator struct {
	logger *zap.Logger
}

// NewGenerator creates a new generator instance
func NewGenerator(logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{logger: logger}
}

// Generate validates terms and computes the schedule.
func (g *Generator) Generate(terms LoanTerms) (ScheduleResult, error) {
	if err := terms.Validate(); err != nil {
		g.logger.Debug("rejecting loan terms",
			zap.String("op", "amortization.Generate"),
			zap.Error(err),
		)
		return ScheduleResult{}, err
	}

	if terms.AnnualRatePercent == 0 {
		g.logger.Debug(fmt.Sprintf("zero interest rate, %s schedule reduces to principal/%d",
			terms.Policy, terms.TermMonths),
			zap.String("op", "amortization.Generate"),
		)
	}

	result := ComputeSchedule(terms)
	if repaid := PrincipalRepaid(result); !mathutil.WithinTolerance(repaid, terms.Principal, constants.CurrencyTolerance) {
		g.logger.Warn("schedule does not repay the loan principal",
			zap.String("op", "amortization.Generate"),
			zap.Float64("principal", terms.Principal),
			zap.Float64("repaid", repaid),
		)
	}
	g.logger.Debug("computed amortization schedule",
		zap.String("op", "amortization.Generate"),
		zap.String("policy", terms.Policy.String()),
		zap.Float64("principal", terms.Principal),
		zap.Float64("annualRate", terms.AnnualRatePercent),
		zap.Int("termMonths", terms.TermMonths),
		zap.Float64("monthlyPayment", result.MonthlyPayment),
		zap.Float64("totalInterest", result.TotalInterest),
	)
	return result, nil
}

// Compare validates terms and computes the schedule under every policy.
func (g *Generator) Compare(terms LoanTerms) (map[RepaymentPolicy]ScheduleResult, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	results := CompareTerms(terms)
	for _, policy := range Policies {
		g.logger.Debug(fmt.Sprintf("%s: total interest %.2f", policy, results[policy].TotalInterest),
			zap.String("op", "amortization.Compare"),
		)
	}
	return results, nil
}
