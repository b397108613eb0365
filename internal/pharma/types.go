// Package pharma defines core types shared across the lookup pipeline.
package pharma

import (
	"strings"
	"time"
)

// TargetKind distinguishes search-result listings from pharmacy detail pages.
type TargetKind string

// Target kinds.
const (
	KindSearch TargetKind = "search"
	KindDetail TargetKind = "detail"
)

// Target identifies one page to fetch. A search target carries the postcode
// query; a detail target carries the pharmacy identifier and, when it came
// from a listing row, a display hint.
type Target struct {
	Kind  TargetKind
	ID    string
	Query string
	Hint  string
}

// SearchTarget builds a target for a postcode search-results page.
func SearchTarget(postcode string) Target {
	return Target{Kind: KindSearch, Query: postcode}
}

// DetailTarget builds a target for one pharmacy detail page.
func DetailTarget(id, hint string) Target {
	return Target{Kind: KindDetail, ID: strings.ToUpper(id), Hint: hint}
}

// Identifier returns the dedupe key for the target.
func (t Target) Identifier() string {
	if t.Kind == KindSearch {
		return "search:" + strings.ToUpper(t.Query)
	}
	return strings.ToUpper(t.ID)
}

// ListingRow is one row of a search-results table.
type ListingRow struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Page is the raw content of one fetched page. Search pages populate Rows;
// detail pages populate URL, Title, Address and Fields (label -> raw text).
type Page struct {
	Rows    []ListingRow      `json:"rows,omitempty"`
	URL     string            `json:"url,omitempty"`
	Title   string            `json:"title,omitempty"`
	Address string            `json:"address,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Metric is a named data point that may legitimately be absent. An absent
// metric is distinct from a value of zero.
type Metric struct {
	Value   float64
	Present bool
}

// MetricOf wraps a value in a present metric.
func MetricOf(v float64) Metric {
	return Metric{Value: v, Present: true}
}

// Metric labels as published on pharmacy detail pages.
const (
	MetricItems         = "Items"
	MetricForms         = "Forms"
	MetricCPCS          = "CPCS"
	MetricPharmacyFirst = "Pharmacy First"
	MetricNMS           = "NMS"
	MetricEPSTakeup     = "EPS Takeup"
)

// KnownMetrics lists the metric labels in presentation order.
var KnownMetrics = []string{
	MetricItems,
	MetricForms,
	MetricCPCS,
	MetricPharmacyFirst,
	MetricNMS,
	MetricEPSTakeup,
}

// Record is one parsed pharmacy. Metrics map known labels to values;
// a missing key means the metric was not recognized at all.
type Record struct {
	Name      string
	Postcode  string
	DetailURL string
	Metrics   map[string]Metric
}

// FailureReason tags why a target produced no record.
type FailureReason string

// Failure reasons recorded per target.
const (
	ReasonTimeout      FailureReason = "timeout"
	ReasonFetchError   FailureReason = "fetch_error"
	ReasonParseError   FailureReason = "parse_error"
	ReasonBatchTimeout FailureReason = "batch_timeout"
)

// Failure records one target that yielded no record, for diagnostics only.
type Failure struct {
	Target Target
	Reason FailureReason
	Err    error
}

// BatchResult is the coordinator's output: successfully parsed records in
// presentation order plus the targets that failed. A target appears in at
// most one of the two buckets.
type BatchResult struct {
	ID        string
	Records   []Record
	Failures  []Failure
	Attempted int
	Elapsed   time.Duration
}

// Empty reports whether the batch produced no records.
func (r BatchResult) Empty() bool {
	return len(r.Records) == 0
}
