package cmd

import (
	"fmt"

	"github.com/iwvelando/finance-calculators/pkg/amortization"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/format"
	"github.com/iwvelando/finance-calculators/pkg/output"
	"github.com/iwvelando/finance-calculators/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type loanFlags struct {
	principal string
	rate      float64
	months    string
	policy    string
	noRound   bool
}

func (f *loanFlags) register(cmd *cobra.Command, withPolicy bool) {
	cmd.Flags().StringVarP(&f.principal, "principal", "p", "", `loan principal, e.g. "12,000,000"`)
	cmd.Flags().Float64VarP(&f.rate, "rate", "r", 0, "annual interest rate in percent")
	cmd.Flags().StringVarP(&f.months, "months", "m", "", "term in months")
	if withPolicy {
		cmd.Flags().StringVar(&f.policy, "policy", "", "equal-payment, equal-principal or interest-only (default from config)")
	}
	cmd.Flags().BoolVar(&f.noRound, "no-round", false, "print full-precision figures instead of whole currency units")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("months")
}

func (a *app) terms(f *loanFlags) (amortization.LoanTerms, error) {
	principal, err := format.ParseAmountStrict(f.principal)
	if err != nil {
		return amortization.LoanTerms{}, fmt.Errorf("invalid principal: %w", err)
	}
	months := format.ParseInt(f.months)
	if err := validation.MonthRange("months", months, 1, constants.MaxTermMonths); err != nil {
		return amortization.LoanTerms{}, err
	}
	policy := a.conf.DefaultPolicy()
	if f.policy != "" {
		if policy, err = amortization.ParsePolicy(f.policy); err != nil {
			return amortization.LoanTerms{}, err
		}
	}
	return amortization.LoanTerms{
		Principal:         principal,
		AnnualRatePercent: f.rate,
		TermMonths:        months,
		Policy:            policy,
	}, nil
}

func (a *app) round(f *loanFlags) bool {
	return a.conf.ShouldRound() && !f.noRound
}

func (a *app) newScheduleCmd() *cobra.Command {
	flags := &loanFlags{}
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the repayment schedule of a loan",
		Example: `  finance-calc schedule -p 12,000,000 -r 12 -m 12
  finance-calc schedule -p 300000000 -r 4.2 -m 360 --policy 원금균등 --output-format csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			terms, err := a.terms(flags)
			if err != nil {
				return err
			}
			result, err := amortization.NewGenerator(a.logger).Generate(terms)
			if err != nil {
				return err
			}
			if a.round(flags) {
				result = result.Rounded()
			}
			return output.Schedule(cmd.OutOrStdout(), a.outputFormat, result)
		},
	}
	flags.register(cmd, true)
	return cmd
}

func (a *app) newCompareCmd() *cobra.Command {
	flags := &loanFlags{}
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare every repayment policy for the same loan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			terms, err := a.terms(flags)
			if err != nil {
				return err
			}
			results, err := amortization.NewGenerator(a.logger).Compare(terms)
			if err != nil {
				return err
			}
			if a.round(flags) {
				for policy, result := range results {
					results[policy] = result.Rounded()
				}
			}
			a.logger.Debug("compared repayment policies",
				zap.String("op", "cmd.compare"),
				zap.Int("policies", len(results)),
			)
			return output.Comparison(cmd.OutOrStdout(), a.outputFormat, results)
		},
	}
	flags.register(cmd, false)
	return cmd
}
