package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/iwvelando/finance-calculators/internal/config"
	"github.com/iwvelando/finance-calculators/internal/rates"
	"github.com/iwvelando/finance-calculators/pkg/amortization"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/convert"
	"github.com/iwvelando/finance-calculators/pkg/health"
	"github.com/iwvelando/finance-calculators/pkg/savings"
	"github.com/iwvelando/finance-calculators/pkg/tax"
	"github.com/iwvelando/finance-calculators/pkg/validation"
	"go.uber.org/zap"
)

// RatesSource supplies the current exchange-rate snapshot.
type RatesSource interface {
	Rates(ctx context.Context) (rates.Snapshot, error)
}

// Options configures NewHandler.
type Options struct {
	MaxBodySize int64
	Version     string
	// Rates backs /api/rates and /api/exchange; both answer 503 when nil.
	Rates   RatesSource
	Limiter *RateLimiter
	// Config supplies request defaults; config.Default() when nil.
	Config *config.Configuration
}

type handler struct {
	logger      *zap.Logger
	maxBodySize int64
	version     string
	rates       RatesSource
	limiter     *RateLimiter
	conf        *config.Configuration
	generator   *amortization.Generator
}

// NewHandler constructs the HTTP handler that serves the calculator API.
func NewHandler(logger *zap.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxBodySize := opts.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = constants.DefaultMaxBodySizeBytes
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	conf := opts.Config
	if conf == nil {
		conf = config.Default()
	}

	h := &handler{
		logger:      logger,
		maxBodySize: maxBodySize,
		version:     trimmedVersion,
		rates:       opts.Rates,
		limiter:     opts.Limiter,
		conf:        conf,
		generator:   amortization.NewGenerator(logger),
	}

	mux := http.NewServeMux()

	// Loan schedules
	mux.HandleFunc("/api/schedule", h.handleSchedule)
	mux.HandleFunc("/api/schedule/compare", h.handleCompare)

	// Tax and unit calculators
	mux.HandleFunc("/api/tax", h.handleTax)
	mux.HandleFunc("/api/convert", h.handleConvert)

	// Currency exchange
	mux.HandleFunc("/api/exchange", h.handleExchange)
	mux.HandleFunc("/api/rates", h.handleRates)

	mux.HandleFunc("/api/savings", h.handleSavings)
	mux.HandleFunc("/api/health", h.handleHealth)

	mux.HandleFunc("/api/version", h.handleVersion)

	return h.limitBody(h.requestID(h.rateLimit(mux)))
}

type scheduleRequest struct {
	Principal  float64 `json:"principal"`
	AnnualRate float64 `json:"annualRate"`
	TermMonths int     `json:"termMonths"`
	Policy     string  `json:"policy"`
	Rounded    *bool   `json:"rounded,omitempty"`
}

type scheduleResponse struct {
	amortization.ScheduleResult
	Label       string  `json:"label"`
	LastPayment float64 `json:"lastPayment"`
	Rounded     bool    `json:"rounded"`
}

type compareResponse struct {
	Results  []scheduleResponse `json:"results"`
	Cheapest string             `json:"cheapest"`
}

func (h *handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSchedule"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var req scheduleRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	terms, ok := h.loanTerms(w, r, req, op)
	if !ok {
		return
	}

	result, err := h.generator.Generate(terms)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	h.writeJSON(w, http.StatusOK, h.scheduleResponse(result, req.Rounded))
}

func (h *handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCompare"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var req scheduleRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	terms, ok := h.loanTerms(w, r, req, op)
	if !ok {
		return
	}

	results, err := h.generator.Compare(terms)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	resp := compareResponse{Results: make([]scheduleResponse, 0, len(amortization.Policies))}
	cheapest := -1.0
	for _, policy := range amortization.Policies {
		result := results[policy]
		if cheapest < 0 || result.TotalInterest < cheapest {
			cheapest = result.TotalInterest
			resp.Cheapest = policy.String()
		}
		resp.Results = append(resp.Results, h.scheduleResponse(result, req.Rounded))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) loanTerms(w http.ResponseWriter, r *http.Request, req scheduleRequest, op string) (amortization.LoanTerms, bool) {
	policy := h.conf.DefaultPolicy()
	if strings.TrimSpace(req.Policy) != "" {
		parsed, err := amortization.ParsePolicy(req.Policy)
		if err != nil {
			h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
			return amortization.LoanTerms{}, false
		}
		policy = parsed
	}
	if err := validation.MonthRange("termMonths", req.TermMonths, 1, constants.MaxTermMonths); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return amortization.LoanTerms{}, false
	}
	return amortization.LoanTerms{
		Principal:         req.Principal,
		AnnualRatePercent: req.AnnualRate,
		TermMonths:        req.TermMonths,
		Policy:            policy,
	}, true
}

func (h *handler) scheduleResponse(result amortization.ScheduleResult, rounded *bool) scheduleResponse {
	round := h.conf.ShouldRound()
	if rounded != nil {
		round = *rounded
	}
	if round {
		result = result.Rounded()
	}
	return scheduleResponse{
		ScheduleResult: result,
		Label:          result.Terms.Policy.Label(),
		LastPayment:    result.LastPayment(),
		Rounded:        round,
	}
}

type taxRequest struct {
	Base  float64 `json:"base"`
	Table string  `json:"table"`
}

type taxResponse struct {
	Base          float64 `json:"base"`
	Table         string  `json:"table"`
	Tax           float64 `json:"tax"`
	LocalTax      float64 `json:"localTax"`
	Total         float64 `json:"total"`
	MarginalRate  float64 `json:"marginalRate"`
	EffectiveRate float64 `json:"effectiveRate"`
}

func (h *handler) handleTax(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleTax"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var req taxRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	if err := validation.NonNegative("base", req.Base); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	table := strings.ToLower(strings.TrimSpace(req.Table))
	if table == "" {
		table = "income"
	}
	brackets, ok := tax.Tables[table]
	if !ok {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("unknown tax table %q", req.Table), op)
		return
	}

	amount := tax.ApplyBrackets(req.Base, brackets)
	resp := taxResponse{
		Base:          req.Base,
		Table:         table,
		Tax:           amount,
		MarginalRate:  tax.MarginalRate(req.Base, brackets),
		EffectiveRate: tax.EffectiveRate(req.Base, brackets),
	}
	if table == "income" {
		resp.LocalTax = tax.LocalIncomeTax(amount)
	}
	resp.Total = resp.Tax + resp.LocalTax

	h.writeJSON(w, http.StatusOK, resp)
}

type convertRequest struct {
	Value    float64 `json:"value"`
	Category string  `json:"category"`
	From     string  `json:"from"`
	To       string  `json:"to"`
}

type convertResponse struct {
	convertRequest
	Result float64 `json:"result"`
}

func (h *handler) handleConvert(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleConvert"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var req convertRequest
	if !h.decode(w, r, &req, op) {
		return
	}

	result, err := convert.ConvertIn(req.Category, req.Value, req.From, req.To)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	h.writeJSON(w, http.StatusOK, convertResponse{convertRequest: req, Result: result})
}

type exchangeRequest struct {
	Amount float64 `json:"amount"`
	From   string  `json:"from"`
	To     string  `json:"to"`
}

type exchangeResponse struct {
	convert.Quote
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetchedAt"`
}

func (h *handler) handleExchange(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleExchange"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var req exchangeRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	if err := validation.Collect(
		validation.NonNegative("amount", req.Amount),
		validation.CurrencyCode("from", req.From),
		validation.CurrencyCode("to", req.To),
	); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	snapshot, ok := h.snapshot(w, r, op)
	if !ok {
		return
	}

	quote, err := convert.Exchange(req.Amount, req.From, req.To, snapshot.Rates)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, convert.ErrUnknownCurrency) {
			status = http.StatusBadRequest
		}
		h.respondErrorWithOp(w, r, status, err.Error(), op)
		return
	}

	h.writeJSON(w, http.StatusOK, exchangeResponse{
		Quote:     quote,
		Source:    snapshot.Source,
		FetchedAt: snapshot.FetchedAt,
	})
}

type ratesResponse struct {
	Base      string                  `json:"base"`
	Source    string                  `json:"source"`
	FetchedAt time.Time               `json:"fetchedAt"`
	Rates     map[string]convert.Rate `json:"rates"`
}

func (h *handler) handleRates(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRates"
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	snapshot, ok := h.snapshot(w, r, op)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, ratesResponse{
		Base:      constants.BaseCurrency,
		Source:    snapshot.Source,
		FetchedAt: snapshot.FetchedAt,
		Rates:     snapshot.Rates,
	})
}

func (h *handler) snapshot(w http.ResponseWriter, r *http.Request, op string) (rates.Snapshot, bool) {
	if h.rates == nil {
		h.respondErrorWithOp(w, r, http.StatusServiceUnavailable, "exchange rates are not configured", op)
		return rates.Snapshot{}, false
	}
	snapshot, err := h.rates.Rates(r.Context())
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadGateway, fmt.Sprintf("failed to fetch exchange rates: %v", err), op)
		return rates.Snapshot{}, false
	}
	return snapshot, true
}

type savingsRequest struct {
	Kind        string  `json:"kind"`
	Principal   float64 `json:"principal"`
	Monthly     float64 `json:"monthly"`
	AnnualRate  float64 `json:"annualRate"`
	Months      int     `json:"months"`
	Compounding string  `json:"compounding"`
	TaxKind     string  `json:"taxKind"`
}

type savingsResponse struct {
	Kind string `json:"kind"`
	savings.Result
}

func (h *handler) handleSavings(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSavings"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var req savingsRequest
	if !h.decode(w, r, &req, op) {
		return
	}

	compounding, err := savings.ParseCompounding(req.Compounding)
	if err == nil {
		err = validation.Collect(
			validation.NonNegative("principal", req.Principal),
			validation.NonNegative("monthly", req.Monthly),
			validation.NonNegative("annualRate", req.AnnualRate),
			validation.MonthRange("months", req.Months, 1, constants.MaxTermMonths),
		)
	}
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	taxKind := tax.InterestTaxKind(h.conf.Defaults.TaxKind)
	if strings.TrimSpace(req.TaxKind) != "" {
		taxKind = tax.InterestTaxKind(strings.ToLower(strings.TrimSpace(req.TaxKind)))
	}

	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	var result savings.Result
	switch kind {
	case "", "deposit":
		kind = "deposit"
		result = savings.Deposit(req.Principal, req.AnnualRate, req.Months, compounding, taxKind)
	case "installment":
		result = savings.Installment(req.Monthly, req.AnnualRate, req.Months, compounding, taxKind)
	case "fund":
		result = savings.Fund(req.Principal, req.Monthly, req.AnnualRate, req.Months)
	default:
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("unknown savings kind %q", req.Kind), op)
		return
	}

	h.writeJSON(w, http.StatusOK, savingsResponse{Kind: kind, Result: result})
}

type healthRequest struct {
	WeightKg float64 `json:"weightKg"`
	HeightCm float64 `json:"heightCm"`
	AgeYears int     `json:"ageYears"`
	Sex      string  `json:"sex"`
	Activity string  `json:"activity"`
}

type healthResponse struct {
	BMI              float64         `json:"bmi"`
	Category         health.Category `json:"category"`
	HealthyWeightMin float64         `json:"healthyWeightMin"`
	HealthyWeightMax float64         `json:"healthyWeightMax"`
	BMR              float64         `json:"bmr,omitempty"`
	DailyCalories    float64         `json:"dailyCalories,omitempty"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleHealth"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var req healthRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	if err := validation.Collect(
		validation.Positive("weightKg", req.WeightKg),
		validation.Positive("heightCm", req.HeightCm),
	); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	bmi := health.BMI(req.WeightKg, req.HeightCm)
	low, high := health.HealthyWeightRange(req.HeightCm)
	resp := healthResponse{
		BMI:              bmi,
		Category:         health.Classify(bmi),
		HealthyWeightMin: low,
		HealthyWeightMax: high,
	}

	if strings.TrimSpace(req.Sex) != "" && req.AgeYears > 0 {
		sex, err := health.ParseSex(req.Sex)
		if err != nil {
			h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
			return
		}
		resp.BMR = health.BMR(sex, req.WeightKg, req.HeightCm, req.AgeYears)
		resp.DailyCalories = health.DailyCalories(resp.BMR, health.ActivityLevel(strings.ToLower(strings.TrimSpace(req.Activity))))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// decode reads a size-limited JSON body into dst, answering the request itself on failure.
// decode reads the JSON request body. The size cap is installed by limitBody.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds limit of %d bytes", h.maxBodySize), op)
			return false
		}
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, r *http.Request, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.String("requestID", requestIDFrom(r.Context())),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

// writeJSON encodes payload before committing the status, so a payload that
// cannot be encoded becomes a 500 instead of an empty 200.
func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode JSON response",
			zap.String("op", "server.writeJSON"),
			zap.Int("status", status),
			zap.Error(err),
		)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		h.logger.Error("failed to write JSON response", zap.String("op", "server.writeJSON"), zap.Error(err))
	}
}
