// Package static fetches pharmdata pages over plain HTTP with colly.
//
// It is the lighter alternative to the headless fetcher for deployments
// where the target pages render server-side. Every Fetch builds a fresh
// collector, so concurrent fetches share nothing.
package static

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/mrwersa/saba-pharma-bot/internal/pharma"
)

const (
	defaultBaseURL    = "https://www.pharmdata.co.uk"
	defaultSearchPath = "/search.php"
)

// Config controls the static fetcher.
type Config struct {
	BaseURL    string
	SearchPath string
	UserAgent  string
	// Timeout bounds a fetch whose context carries no deadline.
	Timeout time.Duration
}

// Fetcher implements pharma.Fetcher over plain HTTP.
type Fetcher struct {
	cfg       Config
	transport http.RoundTripper
}

// New creates a static fetcher.
func New(cfg Config) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.SearchPath == "" {
		cfg.SearchPath = defaultSearchPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Fetcher{cfg: cfg}
}

// WithTransport overrides the HTTP transport (tests inject httpmock here).
func (f *Fetcher) WithTransport(rt http.RoundTripper) *Fetcher {
	f.transport = rt
	return f
}

// Fetch loads the page implied by the target. The caller's deadline is
// honored; hitting it surfaces as an error wrapping context.DeadlineExceeded.
func (f *Fetcher) Fetch(ctx context.Context, target pharma.Target) (pharma.Page, error) {
	var (
		page pharma.Page
		err  error
	)
	switch target.Kind {
	case pharma.KindSearch:
		page, err = f.fetchListing(ctx, target.Query)
	case pharma.KindDetail:
		page, err = f.fetchDetail(ctx, target.ID)
	default:
		return pharma.Page{}, fmt.Errorf("unknown target kind %q", target.Kind)
	}
	if err != nil {
		if isTimeout(ctx, err) {
			return pharma.Page{}, fmt.Errorf("static fetch %s: %w", target.Identifier(), context.DeadlineExceeded)
		}
		return pharma.Page{}, fmt.Errorf("static fetch %s: %w", target.Identifier(), err)
	}
	return page, nil
}

func (f *Fetcher) fetchListing(ctx context.Context, postcode string) (pharma.Page, error) {
	c := f.newCollector(ctx)

	var rows []pharma.ListingRow
	c.OnHTML("tr.search-result", func(e *colly.HTMLElement) {
		rows = append(rows, pharma.ListingRow{
			ID:   e.Attr("id"),
			Name: strings.TrimSpace(e.ChildText("td:nth-of-type(1)")),
		})
	})

	var fetchErr error
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	searchURL := f.cfg.BaseURL + f.cfg.SearchPath + "?query=" + url.QueryEscape(postcode)
	if err := c.Visit(searchURL); err != nil {
		return pharma.Page{}, err
	}
	c.Wait()
	if fetchErr != nil {
		return pharma.Page{}, fetchErr
	}
	if err := ctx.Err(); err != nil {
		return pharma.Page{}, err
	}
	return pharma.Page{Rows: rows}, nil
}

func (f *Fetcher) fetchDetail(ctx context.Context, id string) (pharma.Page, error) {
	c := f.newCollector(ctx)

	page := pharma.Page{
		URL:    f.DetailURL(id),
		Fields: make(map[string]string),
	}
	c.OnHTML(".panel-title-custom", func(e *colly.HTMLElement) {
		if page.Title == "" {
			page.Title = strings.TrimSpace(e.Text)
		}
	})
	c.OnHTML("div[class*='col-md-3']", func(e *colly.HTMLElement) {
		if page.Address == "" {
			page.Address = e.Text
		}
	})
	c.OnHTML(".list-group-item", func(e *colly.HTMLElement) {
		label := strings.TrimSpace(e.ChildText(".list-group-item-heading"))
		value := strings.TrimSpace(e.ChildText(".list-group-item-text"))
		if label != "" {
			page.Fields[label] = value
		}
	})

	var fetchErr error
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(page.URL); err != nil {
		return pharma.Page{}, err
	}
	c.Wait()
	if fetchErr != nil {
		return pharma.Page{}, fetchErr
	}
	if err := ctx.Err(); err != nil {
		return pharma.Page{}, err
	}
	return page, nil
}

// DetailURL builds the detail-page URL for a pharmacy identifier.
func (f *Fetcher) DetailURL(id string) string {
	return f.cfg.BaseURL + "/nacs_select.php?query=" + url.QueryEscape(id)
}

func (f *Fetcher) newCollector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(colly.UserAgent(f.cfg.UserAgent))
	c.IgnoreRobotsTxt = true

	timeout := f.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	c.SetRequestTimeout(timeout)

	if f.transport != nil {
		c.WithTransport(f.transport)
	}
	return c
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
