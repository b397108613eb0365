// Package present renders batch results as chat replies.
package present

import (
	"fmt"
	"strings"

	"github.com/mrwersa/saba-pharma-bot/internal/pharma"
)

// Greeting is the /start reply.
func Greeting() string {
	return "Hello! I am a pharmacy information bot. Send me a UK postcode or a pharmacy code and I will look it up."
}

// Help is the /help reply.
func Help() string {
	return "Send a UK postcode (e.g. W9 1SY) to list nearby pharmacies, or a pharmacy code (e.g. FJ144) for one pharmacy directly."
}

// Searching acknowledges a lookup in progress.
func Searching(query string) string {
	return fmt.Sprintf("Searching pharmacy data for %s...", strings.TrimSpace(query))
}

// ValidationFailure explains a rejected query.
func ValidationFailure(err *pharma.ValidationError) string {
	return fmt.Sprintf("I didn't understand %q. Please send a UK postcode or a pharmacy code.", err.Query)
}

// Batch renders a finished batch. An empty batch with attempted targets is
// worded as a transient condition, distinct from a validation failure.
func Batch(result pharma.BatchResult) string {
	if result.Empty() {
		if result.Attempted == 0 {
			return "No pharmacies found for that search."
		}
		return "No pharmacy data available right now, please try again."
	}

	var b strings.Builder
	b.WriteString("--- Results (averages over 3 months) ---\n")
	for _, record := range result.Records {
		writeRecord(&b, record)
	}
	if n := len(result.Failures); n > 0 {
		fmt.Fprintf(&b, "\n%d result(s) could not be fetched.\n", n)
	}
	return b.String()
}

func writeRecord(b *strings.Builder, record pharma.Record) {
	b.WriteString("\n🏥 ")
	b.WriteString(record.Name)
	if record.Postcode != "" {
		fmt.Fprintf(b, " (%s)", record.Postcode)
	}
	b.WriteByte('\n')

	fmt.Fprintf(b, "Items Dispensed: %s\n", metricText(record.Metrics, pharma.MetricItems, false))
	fmt.Fprintf(b, "Prescriptions: %s\n", metricText(record.Metrics, pharma.MetricForms, false))
	fmt.Fprintf(b, "CPCS: %s\n", metricText(record.Metrics, pharma.MetricCPCS, false))
	fmt.Fprintf(b, "Pharmacy First: %s\n", metricText(record.Metrics, pharma.MetricPharmacyFirst, false))
	fmt.Fprintf(b, "NMS: %s\n", metricText(record.Metrics, pharma.MetricNMS, false))
	fmt.Fprintf(b, "EPS Takeup: %s\n", metricText(record.Metrics, pharma.MetricEPSTakeup, true))
}

// metricText formats a metric value, rendering absent metrics as "N/A"
// rather than zero.
func metricText(metrics map[string]pharma.Metric, label string, percentage bool) string {
	m, ok := metrics[label]
	if !ok || !m.Present {
		return "N/A"
	}
	if percentage {
		return strings.TrimSuffix(fmt.Sprintf("%.1f", m.Value), ".0") + "%"
	}
	if m.Value == float64(int64(m.Value)) {
		return fmt.Sprintf("%d", int64(m.Value))
	}
	return fmt.Sprintf("%.1f", m.Value)
}
