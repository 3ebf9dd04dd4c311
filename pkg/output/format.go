// Package output renders calculation results for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/iwvelando/finance-calculators/pkg/amortization"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Field is one labelled value of a summary.
type Field struct {
	Label string
	Value interface{}
}

func newPrinter() *message.Printer {
	return message.NewPrinter(language.Korean)
}

// amountVerb prints whole won without decimals and anything fractional with two.
func amountVerb(v float64) string {
	if v == math.Trunc(v) {
		return "%.0f"
	}
	return "%.2f"
}

// PrettySchedule writes a human-readable rather than machine-readable table.
func PrettySchedule(w io.Writer, result amortization.ScheduleResult) {
	p := newPrinter()
	terms := result.Terms
	_, _ = fmt.Fprintf(w, "--- %s (%s) ---\n", terms.Policy.Label(), terms.Policy)
	_, _ = p.Fprintf(w, "Principal ₩"+amountVerb(terms.Principal)+" | Rate %.2f%% | Term %d months\n",
		terms.Principal, terms.AnnualRatePercent, terms.TermMonths)
	_, _ = fmt.Fprintf(w, "Period | Payment | Principal | Interest | Balance\n")
	_, _ = fmt.Fprintf(w, "______ | _______ | _________ | ________ | _______\n")
	for _, entry := range result.Schedule {
		_, _ = p.Fprintf(w, "%6d | ₩"+amountVerb(entry.Payment)+" | ₩"+amountVerb(entry.Principal)+
			" | ₩"+amountVerb(entry.Interest)+" | ₩"+amountVerb(entry.RemainingBalance)+"\n",
			entry.Period, entry.Payment, entry.Principal, entry.Interest, entry.RemainingBalance)
	}
	PrettyFields(w, "", []Field{
		{"Monthly payment", result.MonthlyPayment},
		{"Last payment", result.LastPayment()},
		{"Total interest", result.TotalInterest},
		{"Total payment", result.TotalPayment},
	})
}

// PrettyComparison writes one summary row per policy.
func PrettyComparison(w io.Writer, results map[amortization.RepaymentPolicy]amortization.ScheduleResult) {
	p := newPrinter()
	_, _ = fmt.Fprintf(w, "Policy | First payment | Last payment | Total interest | Total payment\n")
	_, _ = fmt.Fprintf(w, "______ | _____________ | ____________ | ______________ | _____________\n")
	for _, policy := range amortization.Policies {
		result, ok := results[policy]
		if !ok {
			continue
		}
		var first float64
		if len(result.Schedule) > 0 {
			first = result.Schedule[0].Payment
		}
		last := result.LastPayment()
		_, _ = p.Fprintf(w, "%s | ₩"+amountVerb(first)+" | ₩"+amountVerb(last)+" | ₩"+amountVerb(result.TotalInterest)+
			" | ₩"+amountVerb(result.TotalPayment)+"\n",
			policy.Label(), first, last, result.TotalInterest, result.TotalPayment)
	}
}

// PrettyFields writes "label: value" lines, grouping numbers with the Korean locale.
func PrettyFields(w io.Writer, title string, fields []Field) {
	p := newPrinter()
	if title != "" {
		_, _ = fmt.Fprintf(w, "--- %s ---\n", title)
	}
	width := 0
	for _, f := range fields {
		if len(f.Label) > width {
			width = len(f.Label)
		}
	}
	for _, f := range fields {
		pad := strings.Repeat(" ", width-len(f.Label))
		switch v := f.Value.(type) {
		case float64:
			_, _ = p.Fprintf(w, "%s%s : "+amountVerb(v)+"\n", f.Label, pad, v)
		case int:
			_, _ = p.Fprintf(w, "%s%s : %d\n", f.Label, pad, v)
		default:
			_, _ = fmt.Fprintf(w, "%s%s : %v\n", f.Label, pad, v)
		}
	}
}

// CsvSchedule writes the schedule in comma-separated value format.
func CsvSchedule(w io.Writer, result amortization.ScheduleResult) {
	_, _ = fmt.Fprintf(w, `"period","payment","principal","interest","balance"`+"\n")
	for _, entry := range result.Schedule {
		_, _ = fmt.Fprintf(w, `"%d","%.2f","%.2f","%.2f","%.2f"`+"\n",
			entry.Period, entry.Payment, entry.Principal, entry.Interest, entry.RemainingBalance)
	}
}

// CsvComparison writes one row per policy in comma-separated value format.
func CsvComparison(w io.Writer, results map[amortization.RepaymentPolicy]amortization.ScheduleResult) {
	_, _ = fmt.Fprintf(w, `"policy","monthlyPayment","lastPayment","totalInterest","totalPayment"`+"\n")
	for _, policy := range amortization.Policies {
		result, ok := results[policy]
		if !ok {
			continue
		}
		_, _ = fmt.Fprintf(w, `"%s","%.2f","%.2f","%.2f","%.2f"`+"\n",
			policy, result.MonthlyPayment, result.LastPayment(), result.TotalInterest, result.TotalPayment)
	}
}

// CsvFields writes a header row of labels and a single row of values.
func CsvFields(w io.Writer, fields []Field) {
	labels := make([]string, len(fields))
	values := make([]string, len(fields))
	for i, f := range fields {
		labels[i] = csvQuote(f.Label)
		switch v := f.Value.(type) {
		case float64:
			values[i] = csvQuote(fmt.Sprintf("%.2f", v))
		default:
			values[i] = csvQuote(fmt.Sprint(v))
		}
	}
	_, _ = fmt.Fprintln(w, strings.Join(labels, ","))
	_, _ = fmt.Fprintln(w, strings.Join(values, ","))
}

func csvQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// Schedule renders result in the named format.
func Schedule(w io.Writer, format string, result amortization.ScheduleResult) error {
	switch format {
	case constants.OutputFormatPretty:
		PrettySchedule(w, result)
	case constants.OutputFormatCSV:
		CsvSchedule(w, result)
	case constants.OutputFormatJSON:
		return JSON(w, result)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	return nil
}

// Comparison renders per-policy results in the named format.
func Comparison(w io.Writer, format string, results map[amortization.RepaymentPolicy]amortization.ScheduleResult) error {
	switch format {
	case constants.OutputFormatPretty:
		PrettyComparison(w, results)
	case constants.OutputFormatCSV:
		CsvComparison(w, results)
	case constants.OutputFormatJSON:
		return JSON(w, results)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	return nil
}

// Fields renders a summary in the named format. JSON output encodes payload
// instead of the fields so machine consumers get the typed result.
func Fields(w io.Writer, format, title string, fields []Field, payload interface{}) error {
	switch format {
	case constants.OutputFormatPretty:
		PrettyFields(w, title, fields)
	case constants.OutputFormatCSV:
		CsvFields(w, fields)
	case constants.OutputFormatJSON:
		return JSON(w, payload)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	return nil
}
