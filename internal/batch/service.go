package batch

import (
	"context"

	"go.uber.org/zap"

	"github.com/mrwersa/saba-pharma-bot/internal/metrics"
	"github.com/mrwersa/saba-pharma-bot/internal/pharma"
	"github.com/mrwersa/saba-pharma-bot/internal/resolve"
)

// Lookup is the single entry point for one user query: resolve the query,
// expand a postcode search into detail targets (phase a), then fan the
// detail fetches out (phase b). Both phases share one global deadline.
//
// A query that matches neither shape returns a *pharma.ValidationError and
// no fetch is attempted. A failed or slow listing fetch does not abort the
// lookup with an error; it finalizes the batch with zero records and one
// failure entry, so the caller can still present a "no data right now"
// reply distinct from a validation failure.
func (c *Coordinator) Lookup(ctx context.Context, query string) (pharma.BatchResult, error) {
	targets, err := resolve.Query(query)
	if err != nil {
		metrics.ObserveLookup("validation_failed")
		c.logger.Debug("query rejected", zap.String("query", query), zap.Error(err))
		return pharma.BatchResult{}, err
	}

	start := c.clock.Now()
	id := newLookupID()

	batchCtx, cancel := context.WithTimeout(ctx, c.cfg.GlobalTimeout)
	defer cancel()

	if len(targets) == 1 && targets[0].Kind == pharma.KindSearch {
		rows, fail := c.fetchListing(batchCtx, targets[0])
		if fail != nil {
			result := c.assemble(id, start, 1, nil, []indexedFailure{{idx: 0, failure: *fail}})
			metrics.ObserveLookup("empty")
			return result, nil
		}
		targets = resolve.FromListing(rows, c.cfg.MaxResults)
	} else {
		targets = dedupe(targets)
	}

	records, failures := c.fanOut(batchCtx, targets)
	result := c.assemble(id, start, len(targets), records, failures)

	if result.Empty() {
		metrics.ObserveLookup("empty")
	} else {
		metrics.ObserveLookup("ok")
	}
	return result, nil
}

// fetchListing loads the search-results page under one per-target budget.
func (c *Coordinator) fetchListing(ctx context.Context, target pharma.Target) ([]pharma.ListingRow, *pharma.Failure) {
	unitCtx, cancel := context.WithTimeout(ctx, c.cfg.PerTargetTimeout)
	defer cancel()

	page, err := c.fetcher.Fetch(unitCtx, target)
	if err != nil {
		reason := classifyFetchErr(ctx, unitCtx, err)
		c.logger.Warn("listing fetch failed",
			zap.String("postcode", target.Query),
			zap.String("reason", string(reason)),
			zap.Error(err),
		)
		return nil, &pharma.Failure{Target: target, Reason: reason, Err: err}
	}
	return page.Rows, nil
}
