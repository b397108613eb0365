// Package resolve classifies raw chat queries into fetch targets.
package resolve

import (
	"regexp"
	"strings"

	"github.com/mrwersa/saba-pharma-bot/internal/pharma"
)

var (
	// UK postcode, internal space optional: outward letter-digit block
	// followed by digit + two letters.
	postcodeRe = regexp.MustCompile(`(?i)^[A-Z]{1,2}[0-9][A-Z0-9]?\s*[0-9][A-Z]{2}$`)

	// Pharmacy identifier: a letter followed by four alphanumerics (FJ144).
	// Checked after the postcode shape, which wins on overlap.
	codeRe = regexp.MustCompile(`(?i)^[A-Z][A-Z0-9]{4}$`)
)

// Query turns a raw user query into fetch targets. A postcode yields one
// search target, a pharmacy code one detail target. Anything else returns
// a *pharma.ValidationError and no targets.
func Query(raw string) ([]pharma.Target, error) {
	q := strings.TrimSpace(raw)
	if q == "" {
		return nil, &pharma.ValidationError{Query: raw, Reason: "empty query"}
	}

	switch {
	case postcodeRe.MatchString(q):
		return []pharma.Target{pharma.SearchTarget(NormalizePostcode(q))}, nil
	case codeRe.MatchString(q):
		return []pharma.Target{pharma.DetailTarget(q, "")}, nil
	}
	return nil, &pharma.ValidationError{Query: raw, Reason: "not a UK postcode or pharmacy code"}
}

// FromListing expands search-result rows into detail targets, deduplicated
// by identifier keeping the first occurrence, capped at limit (0 = no cap).
func FromListing(rows []pharma.ListingRow, limit int) []pharma.Target {
	targets := make([]pharma.Target, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row.ID == "" {
			continue
		}
		t := pharma.DetailTarget(row.ID, strings.TrimSpace(row.Name))
		if _, dup := seen[t.Identifier()]; dup {
			continue
		}
		seen[t.Identifier()] = struct{}{}
		targets = append(targets, t)
		if limit > 0 && len(targets) == limit {
			break
		}
	}
	return targets
}

// NormalizePostcode uppercases and collapses internal whitespace.
func NormalizePostcode(postcode string) string {
	return strings.ToUpper(strings.Join(strings.Fields(postcode), " "))
}
