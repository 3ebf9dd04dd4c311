package output

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/iwvelando/finance-calculators/pkg/amortization"
	"github.com/iwvelando/finance-calculators/pkg/constants"
)

func testSchedule() amortization.ScheduleResult {
	return amortization.ComputeSchedule(amortization.LoanTerms{
		Principal:         12_000_000,
		AnnualRatePercent: 12,
		TermMonths:        12,
		Policy:            amortization.EqualPayment,
	}).Rounded()
}

func TestPrettySchedule(t *testing.T) {
	var buf bytes.Buffer
	PrettySchedule(&buf, testSchedule())
	output := buf.String()

	for _, want := range []string{
		"--- 원리금균등 (equal-payment) ---",
		"Principal ₩12,000,000 | Rate 12.00% | Term 12 months",
		"Period | Payment | Principal | Interest | Balance",
		"₩1,066,185",
		"Monthly payment",
		"Total interest",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("PrettySchedule output missing %q\n%s", want, output)
		}
	}
	if lines := strings.Count(output, "\n"); lines != 4+12+4 {
		t.Errorf("expected %d lines, got %d", 4+12+4, lines)
	}
}

func TestPrettyScheduleFractional(t *testing.T) {
	result := amortization.ComputeSchedule(amortization.LoanTerms{
		Principal:         1000,
		AnnualRatePercent: 5,
		TermMonths:        3,
	})

	var buf bytes.Buffer
	PrettySchedule(&buf, result)
	if !strings.Contains(buf.String(), ".") {
		t.Errorf("unrounded figures should keep two decimals:\n%s", buf.String())
	}
}

func TestCsvSchedule(t *testing.T) {
	var buf bytes.Buffer
	CsvSchedule(&buf, testSchedule())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 13 {
		t.Fatalf("expected header plus 12 rows, got %d", len(lines))
	}
	if lines[0] != `"period","payment","principal","interest","balance"` {
		t.Errorf("unexpected header %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], `"1","1066185.00","946185.00","120000.00"`) {
		t.Errorf("unexpected first row %s", lines[1])
	}
	if !strings.HasSuffix(lines[12], `,"0.00"`) {
		t.Errorf("final balance should be zero: %s", lines[12])
	}
}

func TestComparison(t *testing.T) {
	results := amortization.CompareTerms(amortization.LoanTerms{
		Principal:         12_000_000,
		AnnualRatePercent: 12,
		TermMonths:        12,
	})

	var pretty bytes.Buffer
	if err := Comparison(&pretty, constants.OutputFormatPretty, results); err != nil {
		t.Fatalf("Comparison() error = %v", err)
	}
	for _, policy := range amortization.Policies {
		if !strings.Contains(pretty.String(), policy.Label()) {
			t.Errorf("pretty comparison missing %s", policy.Label())
		}
	}

	var csv bytes.Buffer
	if err := Comparison(&csv, constants.OutputFormatCSV, results); err != nil {
		t.Fatalf("Comparison() error = %v", err)
	}
	if !strings.Contains(csv.String(), `"interest-only","120000.00","12120000.00","1440000.00","13440000.00"`) {
		t.Errorf("unexpected CSV comparison:\n%s", csv.String())
	}

	var js bytes.Buffer
	if err := Comparison(&js, constants.OutputFormatJSON, results); err != nil {
		t.Fatalf("Comparison() error = %v", err)
	}
	var decoded map[string]amortization.ScheduleResult
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := decoded["equal-principal"]; !ok {
		t.Errorf("JSON keys should be policy names, got %v", js.String())
	}
}

func TestFields(t *testing.T) {
	fields := []Field{
		{"Tax", 6_240_000.0},
		{"Marginal rate", "15%"},
		{"Months", 12},
	}

	var pretty bytes.Buffer
	if err := Fields(&pretty, constants.OutputFormatPretty, "Income tax", fields, nil); err != nil {
		t.Fatalf("Fields() error = %v", err)
	}
	for _, want := range []string{"--- Income tax ---", "Tax           : 6,240,000", "Marginal rate : 15%", "Months        : 12"} {
		if !strings.Contains(pretty.String(), want) {
			t.Errorf("pretty fields missing %q\n%s", want, pretty.String())
		}
	}

	var csv bytes.Buffer
	if err := Fields(&csv, constants.OutputFormatCSV, "", fields, nil); err != nil {
		t.Fatalf("Fields() error = %v", err)
	}
	if csv.String() != "\"Tax\",\"Marginal rate\",\"Months\"\n\"6240000.00\",\"15%\",\"12\"\n" {
		t.Errorf("unexpected CSV fields %q", csv.String())
	}

	var js bytes.Buffer
	if err := Fields(&js, constants.OutputFormatJSON, "", fields, map[string]float64{"tax": 6_240_000}); err != nil {
		t.Fatalf("Fields() error = %v", err)
	}
	if !strings.Contains(js.String(), `"tax": 6240000`) {
		t.Errorf("JSON should encode the payload, got %s", js.String())
	}
}

func TestUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Schedule(&buf, "xml", testSchedule()); err == nil {
		t.Error("expected error for unsupported format")
	}
	if err := Fields(&buf, "xml", "", nil, nil); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestCsvQuote(t *testing.T) {
	if got := csvQuote(`say "hi"`); got != `"say ""hi"""` {
		t.Errorf("csvQuote() = %s", got)
	}
}

func TestAmountVerb(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected string
	}{
		{"Whole", 1066185, "%.0f"},
		{"Fractional", 1066185.46, "%.2f"},
		{"Negative whole", -12, "%.0f"},
		{"Beyond int64", 1e19, "%.0f"},
		{"Beyond int64 negative", -3e20, "%.0f"},
		{"Infinity", math.Inf(1), "%.0f"},
		{"NaN", math.NaN(), "%.2f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := amountVerb(tt.value); got != tt.expected {
				t.Errorf("amountVerb(%v) = %q, expected %q", tt.value, got, tt.expected)
			}
		})
	}
}
