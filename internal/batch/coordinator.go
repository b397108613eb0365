// Package batch runs the concurrent fetch-and-parse fan-out for one lookup.
package batch

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mrwersa/saba-pharma-bot/internal/metrics"
	"github.com/mrwersa/saba-pharma-bot/internal/parse"
	"github.com/mrwersa/saba-pharma-bot/internal/pharma"
)

// Config controls Coordinator behavior.
type Config struct {
	PerTargetTimeout  time.Duration
	GlobalTimeout     time.Duration
	MaxConcurrency    int
	PreferredProvider string
	MaxResults        int
}

func (c Config) withDefaults() Config {
	if c.PerTargetTimeout <= 0 {
		c.PerTargetTimeout = 15 * time.Second
	}
	if c.GlobalTimeout <= 0 {
		c.GlobalTimeout = 45 * time.Second
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 3
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 5
	}
	return c
}

// Coordinator dispatches fetch+parse units over a bounded pool, one isolated
// unit per target, and assembles whatever completed within the deadlines.
// Completion order never leaks into the result: records are ordered by the
// preferred-provider partition, then by target submission order.
type Coordinator struct {
	fetcher pharma.Fetcher
	cfg     Config
	clock   pharma.Clock
	logger  *zap.Logger
}

// New constructs a Coordinator.
func New(fetcher pharma.Fetcher, cfg Config, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		fetcher: fetcher,
		cfg:     cfg.withDefaults(),
		clock:   pharma.SystemClock{},
		logger:  logger,
	}
}

// Run executes the fan-out for an already-resolved target list under a fresh
// global deadline. It always returns a BatchResult; per-target failures are
// captured, never propagated.
func (c *Coordinator) Run(ctx context.Context, targets []pharma.Target) pharma.BatchResult {
	start := c.clock.Now()
	targets = dedupe(targets)

	batchCtx, cancel := context.WithTimeout(ctx, c.cfg.GlobalTimeout)
	defer cancel()

	records, failures := c.fanOut(batchCtx, targets)
	return c.assemble(newLookupID(), start, len(targets), records, failures)
}

type indexedRecord struct {
	idx    int
	record pharma.Record
}

type indexedFailure struct {
	idx     int
	failure pharma.Failure
}

// fanOut launches one goroutine per target, admitted through a semaphore of
// MaxConcurrency slots. A unit that times out releases its slot immediately;
// units still waiting for a slot when the batch context expires are recorded
// as batch timeouts without ever fetching.
func (c *Coordinator) fanOut(ctx context.Context, targets []pharma.Target) ([]indexedRecord, []indexedFailure) {
	if len(targets) == 0 {
		return nil, nil
	}

	results := make(chan unitResult, len(targets))
	sem := make(chan struct{}, c.cfg.MaxConcurrency)

	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func(idx int, target pharma.Target) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results <- unitResult{idx: idx, failure: &pharma.Failure{
					Target: target,
					Reason: pharma.ReasonBatchTimeout,
					Err:    ctx.Err(),
				}}
				return
			}
			metrics.IncInflight()
			res := c.runUnit(ctx, idx, target)
			metrics.DecInflight()
			<-sem
			results <- res
		}(i, t)
	}
	wg.Wait()
	close(results)

	var (
		records  []indexedRecord
		failures []indexedFailure
	)
	for res := range results {
		switch {
		case res.record != nil:
			records = append(records, indexedRecord{idx: res.idx, record: *res.record})
		case res.failure != nil:
			failures = append(failures, indexedFailure{idx: res.idx, failure: *res.failure})
		}
	}
	return records, failures
}

type unitResult struct {
	idx     int
	record  *pharma.Record
	failure *pharma.Failure
}

func (c *Coordinator) runUnit(ctx context.Context, idx int, target pharma.Target) unitResult {
	unitCtx, cancel := context.WithTimeout(ctx, c.cfg.PerTargetTimeout)
	defer cancel()

	started := time.Now()
	page, err := c.fetcher.Fetch(unitCtx, target)
	if err != nil {
		reason := classifyFetchErr(ctx, unitCtx, err)
		metrics.ObserveTarget(string(reason), time.Since(started))
		c.logger.Debug("fetch unit failed",
			zap.String("target", target.Identifier()),
			zap.String("reason", string(reason)),
			zap.Error(err),
		)
		return unitResult{idx: idx, failure: &pharma.Failure{Target: target, Reason: reason, Err: err}}
	}

	record, err := parse.Detail(target, page)
	if err != nil {
		metrics.ObserveTarget(string(pharma.ReasonParseError), time.Since(started))
		c.logger.Debug("parse failed",
			zap.String("target", target.Identifier()),
			zap.Error(err),
		)
		return unitResult{idx: idx, failure: &pharma.Failure{
			Target: target,
			Reason: pharma.ReasonParseError,
			Err:    err,
		}}
	}

	metrics.ObserveTarget("success", time.Since(started))
	return unitResult{idx: idx, record: &record}
}

// classifyFetchErr separates the global deadline from the per-target one:
// a unit interrupted by batch expiry is a batch timeout, a unit that used up
// its own budget is a plain timeout, everything else is a fetch error.
func classifyFetchErr(batchCtx, unitCtx context.Context, err error) pharma.FailureReason {
	switch {
	case batchCtx.Err() != nil:
		return pharma.ReasonBatchTimeout
	case errors.Is(err, context.DeadlineExceeded) || unitCtx.Err() != nil:
		return pharma.ReasonTimeout
	default:
		return pharma.ReasonFetchError
	}
}

// assemble orders records by the preferred-provider partition (stable within
// each group by submission order) and finalizes the batch.
func (c *Coordinator) assemble(
	id string,
	start time.Time,
	attempted int,
	records []indexedRecord,
	failures []indexedFailure,
) pharma.BatchResult {
	provider := strings.ToUpper(strings.TrimSpace(c.cfg.PreferredProvider))
	sort.SliceStable(records, func(i, j int) bool {
		pi, pj := isPreferred(records[i].record.Name, provider), isPreferred(records[j].record.Name, provider)
		if pi != pj {
			return pi
		}
		return records[i].idx < records[j].idx
	})
	sort.SliceStable(failures, func(i, j int) bool {
		return failures[i].idx < failures[j].idx
	})

	result := pharma.BatchResult{
		ID:        id,
		Attempted: attempted,
		Elapsed:   c.clock.Now().Sub(start),
	}
	for _, r := range records {
		result.Records = append(result.Records, r.record)
	}
	for _, f := range failures {
		result.Failures = append(result.Failures, f.failure)
	}

	c.logger.Info("batch finished",
		zap.String("lookup_id", result.ID),
		zap.Int("attempted", result.Attempted),
		zap.Int("records", len(result.Records)),
		zap.Int("failures", len(result.Failures)),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result
}

func isPreferred(name, provider string) bool {
	return provider != "" && strings.Contains(strings.ToUpper(name), provider)
}

func dedupe(targets []pharma.Target) []pharma.Target {
	seen := make(map[string]struct{}, len(targets))
	out := targets[:0:0]
	for _, t := range targets {
		key := t.Identifier()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

func newLookupID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
