package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/iwvelando/finance-calculators/internal/rates"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/convert"
	"github.com/iwvelando/finance-calculators/pkg/format"
	"github.com/iwvelando/finance-calculators/pkg/output"
	"github.com/iwvelando/finance-calculators/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ratesSource is swapped out by tests.
type ratesSource interface {
	Rates(ctx context.Context) (rates.Snapshot, error)
}

// newRatesSource builds the configured rates service. The returned function releases it.
var newRatesSource = func(a *app) (ratesSource, func(), error) {
	svc, closeFn, err := rates.NewServiceFromConfig(a.conf, a.logger)
	if err != nil {
		return nil, nil, err
	}
	return svc, func() {
		if err := closeFn(); err != nil {
			a.logger.Warn("failed to close rate cache",
				zap.String("op", "cmd.newRatesSource"),
				zap.Error(err),
			)
		}
	}, nil
}

func (a *app) newExchangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "exchange AMOUNT FROM TO",
		Short:   "Quote a currency exchange including commission",
		Example: "  finance-calc exchange 100 USD KRW\n  finance-calc exchange 1,000,000 KRW JPY",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := format.ParseAmountStrict(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}
			if err := validation.Collect(
				validation.NonNegative("amount", amount),
				validation.CurrencyCode("from", args[1]),
				validation.CurrencyCode("to", args[2]),
			); err != nil {
				return err
			}

			source, release, err := newRatesSource(a)
			if err != nil {
				return err
			}
			defer release()

			snapshot, err := source.Rates(cmd.Context())
			if err != nil {
				return err
			}
			quote, err := convert.Exchange(amount, args[1], args[2], snapshot.Rates)
			if err != nil {
				return err
			}

			fields := []output.Field{
				{Label: "Amount", Value: money(quote.Amount, quote.From)},
				{Label: "Rate", Value: quote.AppliedRate},
				{Label: "Gross", Value: money(quote.Gross, quote.To)},
				{Label: "Commission", Value: money(quote.Commission, quote.To) + " (" + format.Percent(quote.CommissionPercent) + ")"},
				{Label: "Net", Value: money(quote.Net, quote.To)},
				{Label: "Source", Value: snapshot.Source},
			}
			return output.Fields(cmd.OutOrStdout(), a.outputFormat, string(quote.Kind), fields, quote)
		},
	}
}

// money prints KRW in whole won and other currencies with two decimals.
func money(amount float64, code string) string {
	if code == constants.BaseCurrency {
		return format.Won(amount)
	}
	return format.NumericCurrency(amount) + " " + code
}

func (a *app) newRatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rates",
		Short: "Print the current KRW exchange rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, release, err := newRatesSource(a)
			if err != nil {
				return err
			}
			defer release()

			snapshot, err := source.Rates(cmd.Context())
			if err != nil {
				return err
			}

			codes := make([]string, 0, len(snapshot.Rates))
			for code := range snapshot.Rates {
				codes = append(codes, code)
			}
			sort.Strings(codes)

			fields := make([]output.Field, 0, len(codes))
			for _, code := range codes {
				fields = append(fields, output.Field{Label: code, Value: snapshot.Rates[code].Rate})
			}
			title := fmt.Sprintf("%s per unit (%s, %s)", constants.BaseCurrency, snapshot.Source,
				snapshot.FetchedAt.Format("2006-01-02 15:04"))
			return output.Fields(cmd.OutOrStdout(), a.outputFormat, title, fields, snapshot)
		},
	}
}
