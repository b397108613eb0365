// Package headless drives pharmdata pages through headless Chrome.
//
// Each Fetch runs in its own browser tab (chromedp.NewContext off a shared
// exec allocator), so concurrent fetches never share session state; a
// cancelled fetch tears its tab down and the allocator stays healthy for
// later fetches. A semaphore bounds the number of live tabs.
package headless

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/mrwersa/saba-pharma-bot/internal/pharma"
)

const defaultBaseURL = "https://www.pharmdata.co.uk"

// Config controls the headless fetcher.
type Config struct {
	BaseURL     string
	UserAgent   string
	MaxParallel int
	// NavTimeout bounds a fetch whose context carries no deadline.
	NavTimeout time.Duration
}

// Fetcher implements pharma.Fetcher using chromedp.
type Fetcher struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New creates a headless fetcher backed by a shared Chrome exec allocator.
func New(cfg Config) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 15 * time.Second
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context and shuts the browser down.
func (f *Fetcher) Close() {
	f.allocCancel()
}

// Fetch loads the page implied by the target and returns its raw content.
// The caller's deadline is honored; hitting it surfaces as an error wrapping
// context.DeadlineExceeded and the tab is discarded, never reused.
func (f *Fetcher) Fetch(ctx context.Context, target pharma.Target) (pharma.Page, error) {
	if err := f.acquire(ctx); err != nil {
		return pharma.Page{}, err
	}
	defer f.release()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.NavTimeout)
		defer cancel()
	}

	taskCtx, taskCancel := chromedp.NewContext(f.allocator)
	defer taskCancel()
	// Tie the tab's lifetime to the caller's context so cancellation and
	// deadlines abandon the navigation cleanly.
	stop := context.AfterFunc(ctx, taskCancel)
	defer stop()

	var (
		page pharma.Page
		err  error
	)
	switch target.Kind {
	case pharma.KindSearch:
		page, err = f.fetchListing(taskCtx, target.Query)
	case pharma.KindDetail:
		page, err = f.fetchDetail(taskCtx, target.ID)
	default:
		return pharma.Page{}, fmt.Errorf("unknown target kind %q", target.Kind)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return pharma.Page{}, fmt.Errorf("headless fetch %s: %w", target.Identifier(), ctxErr)
		}
		return pharma.Page{}, fmt.Errorf("headless fetch %s: %w", target.Identifier(), err)
	}
	return page, nil
}

const listingJS = `Array.from(document.querySelectorAll("tr.search-result"))
	.map(function(row) {
		var cell = row.querySelector("td");
		return {id: row.id, name: cell ? cell.innerText.trim() : row.innerText.trim()};
	})
	.filter(function(row) { return row.id !== ""; })`

// fetchListing submits the postcode into the site search form and extracts
// the result rows once they are present.
func (f *Fetcher) fetchListing(ctx context.Context, postcode string) (pharma.Page, error) {
	var rows []pharma.ListingRow
	actions := []chromedp.Action{
		f.sessionSetup(),
		chromedp.Navigate(f.cfg.BaseURL),
		chromedp.WaitVisible(`input[name="query"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="query"]`, postcode+kb.Enter, chromedp.ByQuery),
		chromedp.WaitReady(`tr.search-result`, chromedp.ByQuery),
		chromedp.Evaluate(listingJS, &rows),
	}
	if err := chromedp.Run(ctx, actions...); err != nil {
		return pharma.Page{}, fmt.Errorf("chromedp run: %w", err)
	}
	return pharma.Page{Rows: rows}, nil
}

const detailJS = `(function() {
	var fields = {};
	document.querySelectorAll(".list-group-item").forEach(function(item) {
		var label = item.querySelector(".list-group-item-heading");
		var value = item.querySelector(".list-group-item-text");
		if (label && value) {
			fields[label.innerText.trim()] = value.innerText.trim();
		}
	});
	var title = document.querySelector(".panel-title-custom");
	var address = document.querySelector("div[class*='col-md-3']");
	return {
		title: title ? title.innerText.trim() : "",
		address: address ? address.innerText : "",
		fields: fields
	};
})()`

// fetchDetail loads one pharmacy detail page and extracts its labeled fields.
func (f *Fetcher) fetchDetail(ctx context.Context, id string) (pharma.Page, error) {
	detailURL := f.DetailURL(id)
	var out struct {
		Title   string            `json:"title"`
		Address string            `json:"address"`
		Fields  map[string]string `json:"fields"`
	}
	actions := []chromedp.Action{
		f.sessionSetup(),
		chromedp.Navigate(detailURL),
		chromedp.WaitReady(`.list-group-item-text`, chromedp.ByQuery),
		chromedp.Evaluate(detailJS, &out),
	}
	if err := chromedp.Run(ctx, actions...); err != nil {
		return pharma.Page{}, fmt.Errorf("chromedp run: %w", err)
	}
	return pharma.Page{
		URL:     detailURL,
		Title:   out.Title,
		Address: out.Address,
		Fields:  out.Fields,
	}, nil
}

// DetailURL builds the detail-page URL for a pharmacy identifier.
func (f *Fetcher) DetailURL(id string) string {
	return f.cfg.BaseURL + "/nacs_select.php?query=" + url.QueryEscape(id)
}

func (f *Fetcher) sessionSetup() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func (f *Fetcher) acquire(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	select {
	case f.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait canceled: %w", ctx.Err())
	}
}

func (f *Fetcher) release() {
	if f.limiter == nil {
		return
	}
	select {
	case <-f.limiter:
	default:
	}
}
