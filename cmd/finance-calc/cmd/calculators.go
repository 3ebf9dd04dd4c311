package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/convert"
	"github.com/iwvelando/finance-calculators/pkg/format"
	"github.com/iwvelando/finance-calculators/pkg/health"
	"github.com/iwvelando/finance-calculators/pkg/mathutil"
	"github.com/iwvelando/finance-calculators/pkg/output"
	"github.com/iwvelando/finance-calculators/pkg/savings"
	"github.com/iwvelando/finance-calculators/pkg/tax"
	"github.com/iwvelando/finance-calculators/pkg/validation"
	"github.com/spf13/cobra"
)

func (a *app) newTaxCmd() *cobra.Command {
	var base, table string
	cmd := &cobra.Command{
		Use:   "tax",
		Short: "Apply a progressive tax table to a taxable base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := format.ParseAmountStrict(base)
			if err == nil {
				err = validation.NonNegative("base", amount)
			}
			if err != nil {
				return err
			}
			brackets, ok := tax.Tables[strings.ToLower(table)]
			if !ok {
				return fmt.Errorf("unknown tax table %q", table)
			}

			national := tax.ApplyBrackets(amount, brackets)
			var local float64
			if strings.EqualFold(table, "income") {
				local = tax.LocalIncomeTax(national)
			}
			marginal := tax.MarginalRate(amount, brackets) * constants.PercentageMultiplier
			effective := mathutil.CalculatePercentage(national, amount)

			fields := []output.Field{
				{Label: "Base", Value: amount},
				{Label: "Tax", Value: mathutil.RoundUnit(national)},
				{Label: "Local tax", Value: mathutil.RoundUnit(local)},
				{Label: "Total", Value: mathutil.RoundUnit(national + local)},
				{Label: "Marginal rate", Value: format.Percent(marginal)},
				{Label: "Effective rate", Value: format.Percent(mathutil.Round(effective))},
			}
			payload := map[string]interface{}{
				"base": amount, "table": strings.ToLower(table),
				"tax": national, "localTax": local, "total": national + local,
				"marginalRate": marginal, "effectiveRate": effective,
			}
			return output.Fields(cmd.OutOrStdout(), a.outputFormat, strings.ToLower(table)+" tax", fields, payload)
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "taxable base in KRW")
	cmd.Flags().StringVar(&table, "table", "income", "bracket table: income or gift")
	_ = cmd.MarkFlagRequired("base")
	return cmd
}

func (a *app) newConvertCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:     "convert VALUE FROM TO",
		Short:   "Convert a value between units of one category",
		Example: "  finance-calc convert 33 m2 pyeong --category area",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[0], err)
			}
			result, err := convert.ConvertIn(category, value, args[1], args[2])
			if errors.Is(err, convert.ErrUnknownUnit) {
				units := convert.Categories[strings.ToLower(strings.TrimSpace(category))].UnitKeys()
				return fmt.Errorf("%w (units: %s)", err, strings.Join(units, ", "))
			}
			if err != nil {
				return err
			}
			fields := []output.Field{
				{Label: args[1], Value: value},
				{Label: args[2], Value: mathutil.RoundTo(result, 6)},
			}
			payload := map[string]interface{}{
				"category": category, "from": args[1], "to": args[2], "value": value, "result": result,
			}
			return output.Fields(cmd.OutOrStdout(), a.outputFormat, category, fields, payload)
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "length", "unit category: "+strings.Join(convert.CategoryNames(), ", "))
	return cmd
}

func (a *app) newSavingsCmd() *cobra.Command {
	var (
		kind, principal, monthly, compounding, taxKind string
		rate                                           float64
		months                                         int
	)
	cmd := &cobra.Command{
		Use:   "savings",
		Short: "Project a deposit, installment savings or fund at maturity",
		Example: `  finance-calc savings --kind deposit --principal 10,000,000 --rate 3.5 --months 12
  finance-calc savings --kind installment --monthly 500,000 --rate 4 --months 24 --compounding monthly`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := savings.ParseCompounding(compounding)
			if err != nil {
				return err
			}
			principalAmount := format.ParseAmount(principal)
			monthlyAmount := format.ParseAmount(monthly)
			if err := validation.Collect(
				validation.NonNegative("principal", principalAmount),
				validation.NonNegative("monthly", monthlyAmount),
				validation.NonNegative("rate", rate),
				validation.MonthRange("months", months, 1, constants.MaxTermMonths),
			); err != nil {
				return err
			}

			kindTax := tax.InterestTaxKind(a.conf.Defaults.TaxKind)
			if taxKind != "" {
				kindTax = tax.InterestTaxKind(strings.ToLower(taxKind))
			}

			var result savings.Result
			switch strings.ToLower(kind) {
			case "deposit":
				result = savings.Deposit(principalAmount, rate, months, comp, kindTax)
			case "installment":
				result = savings.Installment(monthlyAmount, rate, months, comp, kindTax)
			case "fund":
				result = savings.Fund(principalAmount, monthlyAmount, rate, months)
			default:
				return fmt.Errorf("unknown savings kind %q", kind)
			}

			fields := []output.Field{
				{Label: "Principal", Value: mathutil.RoundUnit(result.Principal)},
				{Label: "Gross interest", Value: mathutil.RoundUnit(result.GrossInterest)},
				{Label: "Tax", Value: mathutil.RoundUnit(result.Tax)},
				{Label: "Net interest", Value: mathutil.RoundUnit(result.NetInterest)},
				{Label: "Maturity", Value: mathutil.RoundUnit(result.Maturity)},
			}
			return output.Fields(cmd.OutOrStdout(), a.outputFormat, strings.ToLower(kind), fields, result)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "deposit", "deposit, installment or fund")
	cmd.Flags().StringVar(&principal, "principal", "0", "lump sum (deposit, fund)")
	cmd.Flags().StringVar(&monthly, "monthly", "0", "monthly contribution (installment, fund)")
	cmd.Flags().Float64Var(&rate, "rate", 0, "annual interest or expected return in percent")
	cmd.Flags().IntVar(&months, "months", 12, "term in months")
	cmd.Flags().StringVar(&compounding, "compounding", "simple", "simple or monthly")
	cmd.Flags().StringVar(&taxKind, "tax", "", "interest tax: general, preferential or free (default from config)")
	return cmd
}

func (a *app) newBMICmd() *cobra.Command {
	var (
		weight, height float64
		age            int
		sex, activity  string
	)
	cmd := &cobra.Command{
		Use:   "bmi",
		Short: "Compute body-mass index and, given sex and age, daily calories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.Collect(
				validation.Positive("weight", weight),
				validation.Positive("height", height),
			); err != nil {
				return err
			}

			bmi := health.BMI(weight, height)
			low, high := health.HealthyWeightRange(height)
			fields := []output.Field{
				{Label: "BMI", Value: mathutil.Round(bmi)},
				{Label: "Category", Value: health.Classify(bmi)},
				{Label: "Healthy weight", Value: fmt.Sprintf("%.1f-%.1f kg", low, high)},
			}
			payload := map[string]interface{}{
				"bmi": bmi, "category": health.Classify(bmi),
				"healthyWeightMin": low, "healthyWeightMax": high,
			}

			if sex != "" && age > 0 {
				s, err := health.ParseSex(sex)
				if err != nil {
					return err
				}
				bmr := health.BMR(s, weight, height, age)
				calories := health.DailyCalories(bmr, health.ActivityLevel(strings.ToLower(activity)))
				fields = append(fields,
					output.Field{Label: "BMR", Value: mathutil.RoundUnit(bmr)},
					output.Field{Label: "Daily calories", Value: mathutil.RoundUnit(calories)},
				)
				payload["bmr"] = bmr
				payload["dailyCalories"] = calories
			}
			return output.Fields(cmd.OutOrStdout(), a.outputFormat, "BMI", fields, payload)
		},
	}
	cmd.Flags().Float64Var(&weight, "weight", 0, "weight in kg")
	cmd.Flags().Float64Var(&height, "height", 0, "height in cm")
	cmd.Flags().IntVar(&age, "age", 0, "age in years")
	cmd.Flags().StringVar(&sex, "sex", "", "male or female")
	cmd.Flags().StringVar(&activity, "activity", string(health.Sedentary), "sedentary, light, moderate, active or very-active")
	return cmd
}
