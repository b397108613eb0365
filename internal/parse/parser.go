// Package parse extracts pharmacy records from raw page content.
package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mrwersa/saba-pharma-bot/internal/pharma"
)

// ErrMalformedPage indicates the page loaded but its expected structure was
// missing. It is reported like a fetch failure, never a crash.
var ErrMalformedPage = errors.New("malformed page")

var postcodeRe = regexp.MustCompile(`\b[A-Z]{1,2}[0-9][A-Z]?\s*[0-9][A-Z]{2}\b`)

// Detail extracts a pharmacy record from one detail page. A metric whose
// label is missing, or whose value is blank or non-numeric, is absent.
func Detail(target pharma.Target, page pharma.Page) (pharma.Record, error) {
	name := pharmacyName(page.Title)
	if name == "" {
		return pharma.Record{}, fmt.Errorf("%w: no pharmacy name for %s", ErrMalformedPage, target.Identifier())
	}
	if len(page.Fields) == 0 {
		return pharma.Record{}, fmt.Errorf("%w: no labeled fields for %s", ErrMalformedPage, target.Identifier())
	}

	metrics := make(map[string]pharma.Metric, len(pharma.KnownMetrics))
	for _, label := range pharma.KnownMetrics {
		raw, ok := page.Fields[label]
		if !ok {
			continue
		}
		metrics[label] = parseMetric(raw)
	}

	return pharma.Record{
		Name:      name,
		Postcode:  addressPostcode(page.Address),
		DetailURL: page.URL,
		Metrics:   metrics,
	}, nil
}

// pharmacyName trims the panel title down to the name, dropping the
// parenthesized code suffix the site appends.
func pharmacyName(title string) string {
	name, _, _ := strings.Cut(title, "(")
	return strings.TrimSpace(name)
}

// addressPostcode pulls a UK postcode out of the address block, or "".
func addressPostcode(address string) string {
	return postcodeRe.FindString(strings.ToUpper(address))
}

// parseMetric converts one labeled value to a metric. The site prints
// numbers with thousands separators and percentages with a trailing "%",
// sometimes followed by commentary; only the leading token counts. A value
// of "0" is a present zero, anything non-numeric is absent.
func parseMetric(raw string) pharma.Metric {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return pharma.Metric{}
	}
	token := strings.ReplaceAll(fields[0], ",", "")
	token = strings.TrimSuffix(token, "%")
	if token == "" {
		return pharma.Metric{}
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return pharma.Metric{}
	}
	return pharma.MetricOf(v)
}
