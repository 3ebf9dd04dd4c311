package convert

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/mathutil"
)

// ErrUnknownCurrency is returned when a currency has no usable rate.
var ErrUnknownCurrency = errors.New("unknown currency")

// Rate is the KRW price of one unit of a currency. Synthetic rates were
// derived from a USD quote through the KRW/USD rate.
type Rate struct {
	Rate       float64 `json:"rate"`
	Name       string  `json:"name"`
	LastUpdate string  `json:"lastUpdate,omitempty"`
	Synthetic  bool    `json:"synthetic,omitempty"`
}

// ExchangeKind classifies an exchange path, which determines the commission.
type ExchangeKind string

const (
	// KindSame is a no-op exchange between identical currencies.
	KindSame ExchangeKind = "same"
	// KindBuyForeign spends KRW on a foreign currency.
	KindBuyForeign ExchangeKind = "krw-to-foreign"
	// KindSellForeign sells a foreign currency for KRW.
	KindSellForeign ExchangeKind = "foreign-to-krw"
	// KindCross exchanges two foreign currencies through a synthetic KRW cross rate.
	KindCross ExchangeKind = "cross"
)

// Quote is the result of one exchange calculation.
type Quote struct {
	From              string       `json:"from"`
	To                string       `json:"to"`
	Amount            float64      `json:"amount"`
	Kind              ExchangeKind `json:"kind"`
	AppliedRate       float64      `json:"appliedRate"`
	Gross             float64      `json:"gross"`
	CommissionPercent float64      `json:"commissionPercent"`
	Commission        float64      `json:"commission"`
	Net               float64      `json:"net"`
	Synthetic         bool         `json:"synthetic,omitempty"`
}

// Classify returns the kind of exchange between two currency codes.
func Classify(from, to string) ExchangeKind {
	from, to = normalizeCode(from), normalizeCode(to)
	switch {
	case from == to:
		return KindSame
	case from == constants.BaseCurrency:
		return KindBuyForeign
	case to == constants.BaseCurrency:
		return KindSellForeign
	}
	return KindCross
}

// CommissionRate returns the commission percentage charged for the path.
func CommissionRate(from, to string) float64 {
	switch Classify(from, to) {
	case KindSame:
		return 0
	case KindCross:
		return constants.CrossCommissionPercent
	}
	return constants.DirectCommissionPercent
}

// Exchange converts amount of from into to using KRW-denominated rates and
// deducts the path's flat commission from the converted amount.
func Exchange(amount float64, from, to string, rates map[string]Rate) (Quote, error) {
	from, to = normalizeCode(from), normalizeCode(to)
	quote := Quote{From: from, To: to, Amount: amount, Kind: Classify(from, to)}

	fromRate, err := rateFor(from, rates)
	if err != nil {
		return Quote{}, err
	}
	toRate, err := rateFor(to, rates)
	if err != nil {
		return Quote{}, err
	}

	quote.AppliedRate = fromRate.Rate / toRate.Rate
	quote.Gross = amount * quote.AppliedRate
	quote.CommissionPercent = CommissionRate(from, to)
	if quote.Kind != KindSame && (fromRate.Synthetic || toRate.Synthetic) {
		quote.Synthetic = true
		quote.CommissionPercent = constants.CrossCommissionPercent
	}
	quote.Commission = mathutil.ApplyPercentage(quote.Gross, quote.CommissionPercent)
	quote.Net = quote.Gross - quote.Commission
	return quote, nil
}

// CrossRate synthesizes the KRW rate of a currency worth usdPerUnit dollars
// from the KRW/USD rate in rates.
func CrossRate(usdPerUnit float64, rates map[string]Rate) (Rate, error) {
	usd, err := rateFor(constants.BridgeCurrency, rates)
	if err != nil {
		return Rate{}, err
	}
	return Rate{Rate: usdPerUnit * usd.Rate, Synthetic: true}, nil
}

func rateFor(code string, rates map[string]Rate) (Rate, error) {
	if code == constants.BaseCurrency {
		return Rate{Rate: 1}, nil
	}
	rate, ok := rates[code]
	if !ok || rate.Rate <= 0 || !mathutil.IsFinite(rate.Rate) {
		return Rate{}, fmt.Errorf("%w %q", ErrUnknownCurrency, code)
	}
	return rate, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
