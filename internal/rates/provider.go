// Package rates fetches exchange-rate tables from upstream APIs and keeps a
// time-keyed snapshot of them.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/convert"
)

// ErrNoData is returned when an upstream answers successfully but without rates.
var ErrNoData = errors.New("no exchange-rate data")

// Provider fetches a currency-code -> KRW rate table.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (map[string]convert.Rate, error)
}

// EximProvider reads the Korea Eximbank exchange API.
type EximProvider struct {
	BaseURL string
	AuthKey string
	Client  *http.Client
	// Now supplies the search date; defaults to time.Now.
	Now func() time.Time
}

type eximRow struct {
	Result   int    `json:"result"`
	CurUnit  string `json:"cur_unit"`
	CurName  string `json:"cur_nm"`
	DealBasR string `json:"deal_bas_r"`
	TTB      string `json:"ttb"`
	TTS      string `json:"tts"`
}

// Name implements Provider.
func (p *EximProvider) Name() string { return "koreaexim" }

// Fetch implements Provider.
func (p *EximProvider) Fetch(ctx context.Context) (map[string]convert.Rate, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	searchDate := now().Format("20060102")

	query := url.Values{}
	query.Set("authkey", p.AuthKey)
	query.Set("searchdate", searchDate)
	query.Set("data", "AP01")

	body, err := get(ctx, p.Client, p.BaseURL+"?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}

	var rows []eximRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", p.Name(), err)
	}
	return parseEximRows(rows, searchDate)
}

func parseEximRows(rows []eximRow, lastUpdate string) (map[string]convert.Rate, error) {
	result := make(map[string]convert.Rate, len(rows))
	for _, row := range rows {
		if row.Result != 1 {
			continue
		}
		code, units := splitCurUnit(row.CurUnit)
		if code == "" || code == constants.BaseCurrency {
			continue
		}
		rate, err := parseCommaFloat(row.DealBasR)
		if err != nil || rate <= 0 {
			continue
		}
		result[code] = convert.Rate{
			Rate:       rate / units,
			Name:       strings.TrimSpace(row.CurName),
			LastUpdate: lastUpdate,
		}
	}
	if len(result) == 0 {
		// The API returns an empty list on weekends, holidays and before 11:00 KST.
		return nil, ErrNoData
	}
	return result, nil
}

// splitCurUnit turns "JPY(100)" into ("JPY", 100) and "USD" into ("USD", 1).
func splitCurUnit(curUnit string) (string, float64) {
	trimmed := strings.ToUpper(strings.TrimSpace(curUnit))
	open := strings.IndexByte(trimmed, '(')
	if open < 0 {
		return trimmed, 1
	}
	code := strings.TrimSpace(trimmed[:open])
	inner := strings.TrimSuffix(trimmed[open+1:], ")")
	units, err := strconv.ParseFloat(strings.TrimSpace(inner), 64)
	if err != nil || units <= 0 {
		return code, 1
	}
	return code, units
}

func parseCommaFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
}

// OpenAPIProvider reads a public multi-currency API quoting every ISO code
// against KRW, or against USD when URL names the USD table.
type OpenAPIProvider struct {
	URL    string
	Client *http.Client
}

type openAPIResponse struct {
	Result            string             `json:"result"`
	BaseCode          string             `json:"base_code"`
	TimeLastUpdateUTC string             `json:"time_last_update_utc"`
	Rates             map[string]float64 `json:"rates"`
	ErrorType         string             `json:"error-type"`
}

// Name implements Provider.
func (p *OpenAPIProvider) Name() string { return "open-er-api" }

// Fetch implements Provider.
func (p *OpenAPIProvider) Fetch(ctx context.Context) (map[string]convert.Rate, error) {
	body, err := get(ctx, p.Client, p.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}

	var resp openAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", p.Name(), err)
	}
	if resp.Result != "success" {
		return nil, fmt.Errorf("%s: upstream reported %q %s", p.Name(), resp.Result, resp.ErrorType)
	}
	switch base := strings.ToUpper(resp.BaseCode); base {
	case "", constants.BaseCurrency:
		return p.krwTable(resp)
	case constants.BridgeCurrency:
		return p.usdTable(resp)
	default:
		return nil, fmt.Errorf("%s: expected base %s or %s, got %s",
			p.Name(), constants.BaseCurrency, constants.BridgeCurrency, base)
	}
}

// krwTable inverts a KRW-based table into KRW per unit.
func (p *OpenAPIProvider) krwTable(resp openAPIResponse) (map[string]convert.Rate, error) {
	result := make(map[string]convert.Rate, len(resp.Rates))
	for code, perKRW := range resp.Rates {
		code = strings.ToUpper(code)
		if code == constants.BaseCurrency || perKRW <= 0 {
			continue
		}
		result[code] = convert.Rate{
			Rate:       1 / perKRW,
			Name:       currencyName(code),
			LastUpdate: resp.TimeLastUpdateUTC,
		}
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%s: %w", p.Name(), ErrNoData)
	}
	return result, nil
}

// usdTable crosses a USD-based table through its KRW quote. Every currency
// except USD itself comes out synthetic.
func (p *OpenAPIProvider) usdTable(resp openAPIResponse) (map[string]convert.Rate, error) {
	var krwPerUSD float64
	for code, rate := range resp.Rates {
		if strings.EqualFold(code, constants.BaseCurrency) {
			krwPerUSD = rate
		}
	}
	if krwPerUSD <= 0 {
		return nil, fmt.Errorf("%s: USD table has no %s quote: %w", p.Name(), constants.BaseCurrency, ErrNoData)
	}

	bridge := convert.Rate{Rate: krwPerUSD, Name: currencyName(constants.BridgeCurrency), LastUpdate: resp.TimeLastUpdateUTC}
	result := map[string]convert.Rate{constants.BridgeCurrency: bridge}
	for code, perUSD := range resp.Rates {
		code = strings.ToUpper(code)
		if code == constants.BaseCurrency || code == constants.BridgeCurrency || perUSD <= 0 {
			continue
		}
		rate, err := convert.CrossRate(1/perUSD, result)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name(), err)
		}
		rate.Name = currencyName(code)
		rate.LastUpdate = resp.TimeLastUpdateUTC
		result[code] = rate
	}
	return result, nil
}

var currencyNames = map[string]string{
	"USD": "미국 달러",
	"JPY": "일본 옌",
	"EUR": "유로",
	"CNY": "위안화",
	"GBP": "영국 파운드",
	"HKD": "홍콩 달러",
	"AUD": "호주 달러",
	"CAD": "캐나다 달러",
	"CHF": "스위스 프랑",
	"SGD": "싱가포르 달러",
	"THB": "태국 바트",
	"VND": "베트남 동",
}

func currencyName(code string) string {
	if name, ok := currencyNames[code]; ok {
		return name
	}
	return code
}

func get(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
