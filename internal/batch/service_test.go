package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrwersa/saba-pharma-bot/internal/pharma"
)

func TestLookup_PostcodeSearchFansOut(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.pages["search:W9 1SY"] = pharma.Page{Rows: []pharma.ListingRow{
		{ID: "FA111", Name: "Day Lewis Pharmacy"},
		{ID: "FB222", Name: "Boots"},
		{ID: "FC333", Name: "Lloyds Pharmacy"},
	}}
	fetcher.pages["FA111"] = detailPage("FA111", "Day Lewis Pharmacy", "W9 1SY")
	fetcher.pages["FB222"] = detailPage("FB222", "Boots", "W9 2AB")
	fetcher.pages["FC333"] = detailPage("FC333", "Lloyds Pharmacy", "W9 3CD")

	c := New(fetcher, testConfig(), zap.NewNop())
	result, err := c.Lookup(context.Background(), "W9 1SY")

	require.NoError(t, err)
	require.Len(t, result.Records, 3)
	require.Equal(t, "Boots", result.Records[0].Name)
	require.Equal(t, 3, result.Attempted)
	require.Empty(t, result.Failures)
}

func TestLookup_DirectCodeFetchesExactlyOne(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.pages["FJ144"] = detailPage("FJ144", "Corner Pharmacy", "SW1A 1AA")

	c := New(fetcher, testConfig(), zap.NewNop())
	result, err := c.Lookup(context.Background(), "FJ144")

	require.NoError(t, err)
	require.Equal(t, 1, fetcher.callCount())
	require.Len(t, result.Records, 1)
	require.Equal(t, "Corner Pharmacy", result.Records[0].Name)
	require.Equal(t, "SW1A 1AA", result.Records[0].Postcode)
}

func TestLookup_InvalidQueryShortCircuits(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	c := New(fetcher, testConfig(), zap.NewNop())

	_, err := c.Lookup(context.Background(), "zzz")

	var vErr *pharma.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Zero(t, fetcher.callCount(), "no fetch may be attempted for an invalid query")
}

func TestLookup_ListingTimeoutDegradesGracefully(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.hangs["search:W9 1SY"] = true

	cfg := testConfig()
	cfg.PerTargetTimeout = 100 * time.Millisecond

	c := New(fetcher, cfg, zap.NewNop())
	result, err := c.Lookup(context.Background(), "W9 1SY")

	require.NoError(t, err, "a slow listing degrades, it does not error")
	require.True(t, result.Empty())
	require.Equal(t, 1, result.Attempted)
	require.Len(t, result.Failures, 1)
	require.Equal(t, pharma.ReasonTimeout, result.Failures[0].Reason)
}

func TestLookup_NoListingRowsMeansNoTargets(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.pages["search:ZE2 9XX"] = pharma.Page{}

	c := New(fetcher, testConfig(), zap.NewNop())
	result, err := c.Lookup(context.Background(), "ZE2 9XX")

	require.NoError(t, err)
	require.True(t, result.Empty())
	require.Zero(t, result.Attempted)
	require.Empty(t, result.Failures)
}

func TestLookup_ListingCappedAtMaxResults(t *testing.T) {
	t.Parallel()

	rows := make([]pharma.ListingRow, 0, 7)
	fetcher := newFakeFetcher()
	for i := 1; i <= 7; i++ {
		id := "FZ00" + string(rune('0'+i))
		rows = append(rows, pharma.ListingRow{ID: id, Name: "Pharmacy"})
		fetcher.pages[id] = detailPage(id, "Pharmacy", "W9 1SY")
	}
	fetcher.pages["search:W9 1SY"] = pharma.Page{Rows: rows}

	cfg := testConfig()
	cfg.MaxResults = 5

	c := New(fetcher, cfg, zap.NewNop())
	result, err := c.Lookup(context.Background(), "W9 1SY")

	require.NoError(t, err)
	require.Equal(t, 5, result.Attempted)
	require.Len(t, result.Records, 5)
}

func TestLookup_HungDetailDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.pages["search:W9 1SY"] = pharma.Page{Rows: []pharma.ListingRow{
		{ID: "FA111", Name: "One"},
		{ID: "FB222", Name: "Two"},
		{ID: "FC333", Name: "Three"},
	}}
	fetcher.pages["FA111"] = detailPage("FA111", "One", "W9 1SY")
	fetcher.pages["FC333"] = detailPage("FC333", "Three", "W9 1SY")
	fetcher.hangs["FB222"] = true

	cfg := testConfig()
	cfg.PerTargetTimeout = 100 * time.Millisecond
	cfg.MaxConcurrency = 2

	c := New(fetcher, cfg, zap.NewNop())
	result, err := c.Lookup(context.Background(), "W9 1SY")

	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	require.Len(t, result.Failures, 1)
	require.Equal(t, "FB222", result.Failures[0].Target.Identifier())
	require.Equal(t, pharma.ReasonTimeout, result.Failures[0].Reason)
}
