package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/finance-calculators/internal/rates"
	"github.com/iwvelando/finance-calculators/pkg/amortization"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/convert"
	"github.com/iwvelando/finance-calculators/pkg/health"
	"github.com/iwvelando/finance-calculators/pkg/testutil"
	"go.uber.org/zap"
)

type fakeRates struct {
	snapshot rates.Snapshot
	err      error
}

func (f fakeRates) Rates(context.Context) (rates.Snapshot, error) {
	return f.snapshot, f.err
}

func testRates() fakeRates {
	return fakeRates{snapshot: rates.Snapshot{
		Source:    "test",
		FetchedAt: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
		Rates: map[string]convert.Rate{
			"USD": {Rate: 1380, Name: "미국 달러"},
			"JPY": {Rate: 9.2, Name: "일본 옌"},
		},
	}}
}

func newTestHandler() http.Handler {
	return NewHandler(zap.NewNop(), Options{
		MaxBodySize: constants.DefaultMaxBodySizeBytes,
		Version:     "test",
		Rates:       testRates(),
	})
}

func performJSON(t *testing.T, handler http.Handler, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("failed to encode payload: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response: %v (%s)", err, rr.Body.String())
	}
}

func TestHandleScheduleSuccess(t *testing.T) {
	handler := newTestHandler()

	rr := performJSON(t, handler, http.MethodPost, "/api/schedule", map[string]interface{}{
		"principal":  12_000_000,
		"annualRate": 12,
		"termMonths": 12,
		"policy":     "원리금균등",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp scheduleResponse
	decodeBody(t, rr, &resp)

	if resp.Terms.Policy != amortization.EqualPayment {
		t.Errorf("policy = %s, expected equal-payment", resp.Terms.Policy)
	}
	if !resp.Rounded {
		t.Error("expected rounded output by default")
	}
	if resp.MonthlyPayment != 1_066_185 {
		t.Errorf("MonthlyPayment = %v, expected 1066185", resp.MonthlyPayment)
	}
	if len(resp.Schedule) != 12 {
		t.Fatalf("expected 12 periods, got %d", len(resp.Schedule))
	}
	if resp.Schedule[11].RemainingBalance != 0 {
		t.Errorf("final balance = %v", resp.Schedule[11].RemainingBalance)
	}
	if resp.Label != "원리금균등" {
		t.Errorf("Label = %q", resp.Label)
	}
}

func TestHandleScheduleUnrounded(t *testing.T) {
	handler := newTestHandler()

	rr := performJSON(t, handler, http.MethodPost, "/api/schedule", map[string]interface{}{
		"principal":  12_000_000,
		"annualRate": 12,
		"termMonths": 12,
		"policy":     "equal-principal",
		"rounded":    false,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp scheduleResponse
	decodeBody(t, rr, &resp)
	if resp.Rounded {
		t.Error("expected unrounded output")
	}
	if !testutil.AlmostEqual(testutil.FindEntry(resp.Schedule, 1).Payment, 1_120_000, 0.01) {
		t.Errorf("first payment = %v, expected 1120000", resp.Schedule[0].Payment)
	}
	if !testutil.AlmostEqual(resp.TotalInterest, 780_000, 0.01) {
		t.Errorf("TotalInterest = %v, expected 780000", resp.TotalInterest)
	}
}

func TestHandleScheduleErrors(t *testing.T) {
	handler := newTestHandler()

	tests := []struct {
		name    string
		method  string
		payload interface{}
		status  int
	}{
		{"Wrong method", http.MethodGet, nil, http.StatusMethodNotAllowed},
		{"Zero principal", http.MethodPost, map[string]interface{}{"principal": 0, "annualRate": 5, "termMonths": 12}, http.StatusBadRequest},
		{"Zero term", http.MethodPost, map[string]interface{}{"principal": 1000, "annualRate": 5, "termMonths": 0}, http.StatusBadRequest},
		{"Term above cap", http.MethodPost, map[string]interface{}{"principal": 1000, "annualRate": 5, "termMonths": constants.MaxTermMonths + 1}, http.StatusBadRequest},
		{"Huge term", http.MethodPost, map[string]interface{}{"principal": 12_000_000, "annualRate": 12, "termMonths": 2_000_000}, http.StatusBadRequest},
		{"Unknown policy", http.MethodPost, map[string]interface{}{"principal": 1000, "annualRate": 5, "termMonths": 12, "policy": "weekly"}, http.StatusBadRequest},
		{"Bad JSON type", http.MethodPost, map[string]interface{}{"principal": "lots"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := performJSON(t, handler, tt.method, "/api/schedule", tt.payload)
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			if tt.status == http.StatusBadRequest {
				var resp map[string]string
				decodeBody(t, rr, &resp)
				if resp["error"] == "" {
					t.Error("expected error message in response")
				}
			}
		})
	}
}

func TestScheduleTermLimits(t *testing.T) {
	handler := newTestHandler()

	for _, path := range []string{"/api/schedule", "/api/schedule/compare"} {
		rr := performJSON(t, handler, http.MethodPost, path, map[string]interface{}{
			"principal":  12_000_000,
			"annualRate": 12,
			"termMonths": 2_000_000,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", path, rr.Code)
		}
	}

	rr := performJSON(t, handler, http.MethodPost, "/api/schedule", map[string]interface{}{
		"principal":  12_000_000,
		"annualRate": 12,
		"termMonths": constants.MaxTermMonths,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 at the cap, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp scheduleResponse
	decodeBody(t, rr, &resp)
	if len(resp.Schedule) != constants.MaxTermMonths {
		t.Errorf("expected %d rows, got %d", constants.MaxTermMonths, len(resp.Schedule))
	}
}

func TestScheduleTinyRate(t *testing.T) {
	handler := newTestHandler()

	rr := performJSON(t, handler, http.MethodPost, "/api/schedule", map[string]interface{}{
		"principal":  12_000_000,
		"annualRate": 1e-14,
		"termMonths": 12,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp scheduleResponse
	decodeBody(t, rr, &resp)
	if resp.MonthlyPayment != 1_000_000 {
		t.Errorf("MonthlyPayment = %v, expected 1000000", resp.MonthlyPayment)
	}
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	h := &handler{logger: zap.NewNop()}
	rr := httptest.NewRecorder()

	h.writeJSON(rr, http.StatusOK, map[string]float64{"payment": math.Inf(1)})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
	var resp map[string]string
	decodeBody(t, rr, &resp)
	if resp["error"] == "" {
		t.Error("expected error message in response")
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHandleCompare(t *testing.T) {
	handler := newTestHandler()

	rr := performJSON(t, handler, http.MethodPost, "/api/schedule/compare", map[string]interface{}{
		"principal":  12_000_000,
		"annualRate": 12,
		"termMonths": 12,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp compareResponse
	decodeBody(t, rr, &resp)

	if len(resp.Results) != len(amortization.Policies) {
		t.Fatalf("expected %d results, got %d", len(amortization.Policies), len(resp.Results))
	}
	for i, policy := range amortization.Policies {
		if resp.Results[i].Terms.Policy != policy {
			t.Errorf("result %d policy = %s, expected %s", i, resp.Results[i].Terms.Policy, policy)
		}
	}
	if resp.Cheapest != amortization.EqualPrincipal.String() {
		t.Errorf("Cheapest = %q, expected equal-principal", resp.Cheapest)
	}
}

func TestHandleTax(t *testing.T) {
	handler := newTestHandler()

	rr := performJSON(t, handler, http.MethodPost, "/api/tax", map[string]interface{}{"base": 50_000_000})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp taxResponse
	decodeBody(t, rr, &resp)
	if resp.Table != "income" {
		t.Errorf("Table = %q, expected income default", resp.Table)
	}
	if !testutil.AlmostEqual(resp.Tax, 6_240_000, 0.01) {
		t.Errorf("Tax = %v, expected 6240000", resp.Tax)
	}
	if !testutil.AlmostEqual(resp.LocalTax, 624_000, 0.01) {
		t.Errorf("LocalTax = %v, expected 624000", resp.LocalTax)
	}
	if resp.MarginalRate != 0.15 {
		t.Errorf("MarginalRate = %v", resp.MarginalRate)
	}

	rr = performJSON(t, handler, http.MethodPost, "/api/tax", map[string]interface{}{"base": 1, "table": "property"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown table should be rejected, got %d", rr.Code)
	}
}

func TestHandleConvert(t *testing.T) {
	handler := newTestHandler()

	rr := performJSON(t, handler, http.MethodPost, "/api/convert", map[string]interface{}{
		"value": 1.5, "category": "length", "from": "km", "to": "m",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp convertResponse
	decodeBody(t, rr, &resp)
	if !testutil.AlmostEqual(resp.Result, 1500, 1e-9) {
		t.Errorf("Result = %v, expected 1500", resp.Result)
	}

	rr = performJSON(t, handler, http.MethodPost, "/api/convert", map[string]interface{}{
		"value": 1, "category": "length", "from": "km", "to": "furlong",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown unit should be rejected, got %d", rr.Code)
	}
}

func TestHandleExchange(t *testing.T) {
	handler := newTestHandler()

	rr := performJSON(t, handler, http.MethodPost, "/api/exchange", map[string]interface{}{
		"amount": 100, "from": "usd", "to": "KRW",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp exchangeResponse
	decodeBody(t, rr, &resp)
	if resp.Kind != convert.KindSellForeign {
		t.Errorf("Kind = %s", resp.Kind)
	}
	if !testutil.AlmostEqual(resp.Gross, 138_000, 0.01) || !testutil.AlmostEqual(resp.Net, 135_930, 0.01) {
		t.Errorf("Gross/Net = %v/%v, expected 138000/135930", resp.Gross, resp.Net)
	}
	if resp.Source != "test" {
		t.Errorf("Source = %q", resp.Source)
	}

	rr = performJSON(t, handler, http.MethodPost, "/api/exchange", map[string]interface{}{
		"amount": 100, "from": "EUR", "to": "KRW",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("currency missing from the snapshot should be 400, got %d", rr.Code)
	}

	rr = performJSON(t, handler, http.MethodPost, "/api/exchange", map[string]interface{}{
		"amount": 100, "from": "dollars", "to": "KRW",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed code should be 400, got %d", rr.Code)
	}
}

func TestHandleRates(t *testing.T) {
	rr := performJSON(t, newTestHandler(), http.MethodGet, "/api/rates", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp ratesResponse
	decodeBody(t, rr, &resp)
	if resp.Base != "KRW" || resp.Rates["USD"].Rate != 1380 {
		t.Errorf("unexpected rates response %+v", resp)
	}
}

func TestHandleRatesUpstreamFailure(t *testing.T) {
	handler := NewHandler(zap.NewNop(), Options{
		Rates: fakeRates{err: errors.New("upstream down")},
	})

	for _, path := range []string{"/api/rates", "/api/exchange"} {
		method := http.MethodGet
		var payload interface{}
		if path == "/api/exchange" {
			method = http.MethodPost
			payload = map[string]interface{}{"amount": 1, "from": "USD", "to": "KRW"}
		}
		rr := performJSON(t, handler, method, path, payload)
		if rr.Code != http.StatusBadGateway {
			t.Errorf("%s: expected 502, got %d", path, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "upstream down") {
			t.Errorf("%s: expected upstream error message, got %s", path, rr.Body.String())
		}
	}

	unconfigured := NewHandler(zap.NewNop(), Options{})
	if rr := performJSON(t, unconfigured, http.MethodGet, "/api/rates", nil); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a rates source, got %d", rr.Code)
	}
}

func TestHandleSavings(t *testing.T) {
	handler := newTestHandler()

	tests := []struct {
		name        string
		payload     map[string]interface{}
		status      int
		netInterest float64
	}{
		{
			name:        "Deposit simple",
			payload:     map[string]interface{}{"kind": "deposit", "principal": 10_000_000, "annualRate": 3.5, "months": 12},
			status:      http.StatusOK,
			netInterest: 296_100,
		},
		{
			name:        "Deposit tax free",
			payload:     map[string]interface{}{"principal": 10_000_000, "annualRate": 3.5, "months": 12, "taxKind": "free"},
			status:      http.StatusOK,
			netInterest: 350_000,
		},
		{
			name:    "Unknown kind",
			payload: map[string]interface{}{"kind": "lottery", "principal": 1, "months": 12},
			status:  http.StatusBadRequest,
		},
		{
			name:    "Bad compounding",
			payload: map[string]interface{}{"principal": 1, "months": 12, "compounding": "daily"},
			status:  http.StatusBadRequest,
		},
		{
			name:    "Zero months",
			payload: map[string]interface{}{"principal": 1, "months": 0},
			status:  http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := performJSON(t, handler, http.MethodPost, "/api/savings", tt.payload)
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var resp savingsResponse
			decodeBody(t, rr, &resp)
			if resp.Kind != "deposit" {
				t.Errorf("Kind = %q", resp.Kind)
			}
			if !testutil.AlmostEqual(resp.NetInterest, tt.netInterest, 0.01) {
				t.Errorf("NetInterest = %v, expected %v", resp.NetInterest, tt.netInterest)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	handler := newTestHandler()

	rr := performJSON(t, handler, http.MethodPost, "/api/health", map[string]interface{}{
		"weightKg": 70, "heightCm": 175, "ageYears": 30, "sex": "male", "activity": "moderate",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp healthResponse
	decodeBody(t, rr, &resp)
	if !testutil.AlmostEqual(resp.BMI, 22.857, 0.001) || resp.Category != health.Normal {
		t.Errorf("BMI = %v (%s)", resp.BMI, resp.Category)
	}
	if !testutil.AlmostEqual(resp.BMR, 1648.75, 1e-9) {
		t.Errorf("BMR = %v", resp.BMR)
	}
	if !testutil.AlmostEqual(resp.DailyCalories, 1648.75*1.55, 1e-9) {
		t.Errorf("DailyCalories = %v", resp.DailyCalories)
	}

	rr = performJSON(t, handler, http.MethodPost, "/api/health", map[string]interface{}{"weightKg": 70, "heightCm": 0})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("zero height should be rejected, got %d", rr.Code)
	}
}

func TestHandleVersion(t *testing.T) {
	rr := performJSON(t, newTestHandler(), http.MethodGet, "/api/version", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp map[string]string
	decodeBody(t, rr, &resp)
	if resp["version"] != "test" {
		t.Errorf("version = %q", resp["version"])
	}

	rr = performJSON(t, NewHandler(nil, Options{}), http.MethodGet, "/api/version", nil)
	decodeBody(t, rr, &resp)
	if resp["version"] != "dev" {
		t.Errorf("default version = %q, expected dev", resp["version"])
	}
}

func TestBodyTooLarge(t *testing.T) {
	handler := NewHandler(zap.NewNop(), Options{MaxBodySize: 16})

	rr := performJSON(t, handler, http.MethodPost, "/api/schedule", map[string]interface{}{
		"principal":  12_000_000,
		"annualRate": 12,
		"termMonths": 12,
	})
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestBodyTooLargeClosesConnection(t *testing.T) {
	srv := httptest.NewServer(NewHandler(zap.NewNop(), Options{MaxBodySize: 16}))
	defer srv.Close()

	body := strings.NewReader(`{"principal":12000000,"annualRate":12,"termMonths":12}`)
	resp, err := http.Post(srv.URL+"/api/schedule", "application/json", body)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", resp.StatusCode)
	}
	if !resp.Close {
		t.Error("expected the server to close the connection after an oversized body")
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("expected request ID on the rejected response")
	}
}

func TestRequestIDHeader(t *testing.T) {
	handler := newTestHandler()

	rr := performJSON(t, handler, http.MethodGet, "/api/version", nil)
	id := rr.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected generated UUID request ID, got %q", id)
	}

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	req.Header.Set(RequestIDHeader, incoming)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if got := rr.Header().Get(RequestIDHeader); got != incoming {
		t.Errorf("expected incoming request ID to be echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/version", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if got := rr.Header().Get(RequestIDHeader); got == "not-a-uuid" {
		t.Error("malformed request ID should be replaced")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	limiter := newRateLimiter(2, time.Minute, func() time.Time { return now })
	handler := NewHandler(zap.NewNop(), Options{Limiter: limiter})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := performJSON(t, handler, http.MethodGet, "/api/version", nil)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}

	now = now.Add(time.Minute)
	if rr := performJSON(t, handler, http.MethodGet, "/api/version", nil); rr.Code != http.StatusOK {
		t.Errorf("expected bucket refill after the period, got %d", rr.Code)
	}
}

func TestRateLimiterPerClient(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	limiter := newRateLimiter(1, time.Minute, func() time.Time { return now })

	if !limiter.Allow("10.0.0.1") || limiter.Allow("10.0.0.1") {
		t.Fatal("first client should get exactly one request")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Error("second client has its own bucket")
	}

	now = now.Add(2 * time.Hour)
	limiter.cleanup()
	if len(limiter.clients) != 0 {
		t.Errorf("expected idle buckets to be cleaned up, %d remain", len(limiter.clients))
	}
	limiter.Stop()
	limiter.Stop()
}
