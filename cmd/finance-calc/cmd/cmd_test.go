package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/finance-calculators/internal/config"
	"github.com/iwvelando/finance-calculators/internal/rates"
	"github.com/iwvelando/finance-calculators/internal/server"
	"github.com/iwvelando/finance-calculators/pkg/convert"
	"go.uber.org/zap"
)

type stubRates struct {
	snapshot rates.Snapshot
	err      error
}

func (s stubRates) Rates(context.Context) (rates.Snapshot, error) {
	return s.snapshot, s.err
}

func useStubRates(t *testing.T, source stubRates) {
	t.Helper()
	original := newRatesSource
	newRatesSource = func(*app) (ratesSource, func(), error) {
		return source, func() {}, nil
	}
	t.Cleanup(func() { newRatesSource = original })
}

func quietConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: error\n"), 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--config", quietConfig(t)}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestScheduleCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name:     "Pretty",
			args:     []string{"schedule", "-p", "12,000,000", "-r", "12", "-m", "12"},
			contains: []string{"원리금균등", "₩1,066,185", "Total interest"},
		},
		{
			name:     "CSV equal principal",
			args:     []string{"schedule", "-p", "12000000", "-r", "12", "-m", "12", "--policy", "원금균등", "--output-format", "csv"},
			contains: []string{`"period","payment"`, `"1","1120000.00","1000000.00","120000.00","11000000.00"`},
		},
		{
			name:     "Unrounded",
			args:     []string{"schedule", "-p", "12000000", "-r", "12", "-m", "12", "--no-round", "--output-format", "csv"},
			contains: []string{`"1","1066185.46"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if err != nil {
				t.Fatalf("schedule error = %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q\n%s", want, out)
				}
			}
		})
	}
}

func TestScheduleCommandErrors(t *testing.T) {
	tests := map[string][]string{
		"Missing principal": {"schedule", "-r", "5", "-m", "12"},
		"Bad principal":     {"schedule", "-p", "lots", "-m", "12"},
		"Zero term":         {"schedule", "-p", "1000", "-m", "0"},
		"Term too long":     {"schedule", "-p", "1000", "-m", "601"},
		"Term out of range": {"compare", "-p", "1000", "-m", "1e19"},
		"Unknown policy":    {"schedule", "-p", "1000", "-m", "12", "--policy", "weekly"},
		"Bad output format": {"schedule", "-p", "1000", "-m", "12", "--output-format", "xml"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := run(t, args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCompareCommand(t *testing.T) {
	out, err := run(t, "compare", "-p", "12000000", "-r", "12", "-m", "12", "--output-format", "csv")
	if err != nil {
		t.Fatalf("compare error = %v", err)
	}
	if !strings.Contains(out, `"interest-only","120000.00","12120000.00","1440000.00","13440000.00"`) {
		t.Errorf("unexpected compare output\n%s", out)
	}
	if lines := strings.Count(out, "\n"); lines != 4 {
		t.Errorf("expected header plus three policies, got %d lines", lines)
	}
}

func TestTaxCommand(t *testing.T) {
	out, err := run(t, "tax", "--base", "50,000,000", "--output-format", "json")
	if err != nil {
		t.Fatalf("tax error = %v", err)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if resp["tax"].(float64) != 6_240_000 {
		t.Errorf("tax = %v", resp["tax"])
	}
	if resp["marginalRate"].(float64) != 15 {
		t.Errorf("marginalRate = %v", resp["marginalRate"])
	}

	out, err = run(t, "tax", "--base", "50000000")
	if err != nil {
		t.Fatalf("tax error = %v", err)
	}
	for _, want := range []string{"--- income tax ---", "6,240,000", "624,000", "15%"} {
		if !strings.Contains(out, want) {
			t.Errorf("pretty tax output missing %q\n%s", want, out)
		}
	}

	if _, err := run(t, "tax", "--base", "1", "--table", "property"); err == nil {
		t.Error("expected error for unknown table")
	}
}

func TestConvertCommand(t *testing.T) {
	out, err := run(t, "convert", "1.5", "km", "m")
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}
	if !strings.Contains(out, "1,500") {
		t.Errorf("expected 1,500 m\n%s", out)
	}

	out, err = run(t, "convert", "100", "c", "f", "--category", "temperature", "--output-format", "json")
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}
	if !strings.Contains(out, `"result": 212`) {
		t.Errorf("expected 212F\n%s", out)
	}

	if _, err := run(t, "convert", "1", "km", "m", "--category", "time"); !errors.Is(err, convert.ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}
	_, err = run(t, "convert", "1", "km", "parsec")
	if !errors.Is(err, convert.ErrUnknownUnit) {
		t.Fatalf("expected ErrUnknownUnit, got %v", err)
	}
	if !strings.Contains(err.Error(), "units: ") || !strings.Contains(err.Error(), "km") {
		t.Errorf("expected the category's units in the error, got %q", err)
	}

	if _, err := run(t, "convert", "one", "km", "m"); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestExchangeCommand(t *testing.T) {
	useStubRates(t, stubRates{snapshot: rates.Snapshot{
		Source: "stub",
		Rates:  map[string]convert.Rate{"USD": {Rate: 1380}},
	}})

	out, err := run(t, "exchange", "100", "usd", "KRW", "--output-format", "json")
	if err != nil {
		t.Fatalf("exchange error = %v", err)
	}
	var quote convert.Quote
	if err := json.Unmarshal([]byte(out), &quote); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if quote.Net != 135_930 || quote.Kind != convert.KindSellForeign {
		t.Errorf("unexpected quote %+v", quote)
	}

	out, err = run(t, "exchange", "1,380,000", "KRW", "USD")
	if err != nil {
		t.Fatalf("exchange error = %v", err)
	}
	for _, want := range []string{"₩1,380,000", "985.00 USD", "1.5%", "stub"} {
		if !strings.Contains(out, want) {
			t.Errorf("pretty exchange output missing %q\n%s", want, out)
		}
	}

	if _, err := run(t, "exchange", "1", "EUR", "KRW"); !errors.Is(err, convert.ErrUnknownCurrency) {
		t.Errorf("expected ErrUnknownCurrency, got %v", err)
	}
}

func TestExchangeCommandUpstreamFailure(t *testing.T) {
	useStubRates(t, stubRates{err: rates.ErrUnavailable})
	if _, err := run(t, "exchange", "1", "USD", "KRW"); !errors.Is(err, rates.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestRatesCommand(t *testing.T) {
	useStubRates(t, stubRates{snapshot: rates.Snapshot{
		Source:    "stub",
		FetchedAt: time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC),
		Rates: map[string]convert.Rate{
			"USD": {Rate: 1380},
			"EUR": {Rate: 1500},
		},
	}})

	out, err := run(t, "rates", "--output-format", "csv")
	if err != nil {
		t.Fatalf("rates error = %v", err)
	}
	if out != "\"EUR\",\"USD\"\n\"1500.00\",\"1380.00\"\n" {
		t.Errorf("unexpected rates CSV %q", out)
	}
}

func TestSavingsCommand(t *testing.T) {
	out, err := run(t, "savings", "--principal", "10,000,000", "--rate", "3.5", "--months", "12")
	if err != nil {
		t.Fatalf("savings error = %v", err)
	}
	for _, want := range []string{"--- deposit ---", "350,000", "53,900", "296,100", "10,296,100"} {
		if !strings.Contains(out, want) {
			t.Errorf("savings output missing %q\n%s", want, out)
		}
	}

	if _, err := run(t, "savings", "--kind", "lottery"); err == nil {
		t.Error("expected error for unknown kind")
	}
	if _, err := run(t, "savings", "--compounding", "daily"); err == nil {
		t.Error("expected error for unknown compounding")
	}
}

func TestBMICommand(t *testing.T) {
	out, err := run(t, "bmi", "--weight", "70", "--height", "175", "--age", "30", "--sex", "남", "--activity", "moderate", "--output-format", "json")
	if err != nil {
		t.Fatalf("bmi error = %v", err)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if resp["category"] != "normal" || resp["bmr"].(float64) != 1648.75 {
		t.Errorf("unexpected bmi response %v", resp)
	}

	if _, err := run(t, "bmi", "--weight", "70"); err == nil {
		t.Error("expected error without height")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "finance-calc "+Version) {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestExplicitMissingConfig(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "version"})
	if err := root.Execute(); err == nil {
		t.Error("expected error when an explicit config file is missing")
	}
}

func TestInitializeLogger(t *testing.T) {
	tests := []struct {
		name      string
		conf      config.LoggingConfig
		override  string
		wantError bool
	}{
		{"Defaults", config.LoggingConfig{}, "", false},
		{"Console debug", config.LoggingConfig{Format: "console", Level: "debug"}, "", false},
		{"Override", config.LoggingConfig{Level: "bogus"}, "warn", false},
		{"Invalid level", config.LoggingConfig{Level: "loud"}, "", true},
		{"Invalid format", config.LoggingConfig{Format: "xml"}, "", true},
		{"Output file", config.LoggingConfig{OutputFile: filepath.Join(t.TempDir(), "logs", "app.log")}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := initializeLogger(tt.conf, tt.override)
			if tt.wantError {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("initializeLogger() error = %v", err)
			}
			logger.Info("test message")
			_ = logger.Sync()
			if tt.conf.OutputFile != "" {
				data, err := os.ReadFile(tt.conf.OutputFile)
				if err != nil || !strings.Contains(string(data), "test message") {
					t.Errorf("expected log file to contain message, got %q (%v)", data, err)
				}
			}
		})
	}
}

func TestRunServerShutsDown(t *testing.T) {
	serverConf, err := server.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	serverConf.Address = "127.0.0.1:0"

	a := &app{conf: config.Default(), logger: zap.NewNop()}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, a, serverConf, a.logger) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runServer() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runServer did not return after cancel")
	}
}
