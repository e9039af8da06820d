// Package stats knows the layout of the MLB stats page and turns its player
// table into column names and rows of cells.
package stats

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lance13c/mlbstats/internal/browser"
	"github.com/lance13c/mlbstats/internal/logging"
)

var (
	// ErrMissingAnchor means no "player" header was found to place "pos" after.
	ErrMissingAnchor = errors.New(`no "player" column header`)
	// ErrNotBinaryToggle means more than one unselected variant button exists.
	ErrNotBinaryToggle = errors.New("variant navigation is not a two-way toggle")
)

// PositionHeader is the column name given to the position cell, which the
// page renders in every row but never in the header.
const PositionHeader = "pos"

const anchorHeader = "player"

// PageOptions tunes the waits used by Page.
type PageOptions struct {
	Selectors      Selectors
	BannerTimeout  time.Duration
	BannerInterval time.Duration
	ClickTimeout   time.Duration
	// CellConcurrency caps concurrent cell reads per row; 0 means no cap.
	CellConcurrency int
}

// DefaultPageOptions waits up to 8s for the banner, polling every second.
func DefaultPageOptions() PageOptions {
	return PageOptions{
		Selectors:      DefaultSelectors(),
		BannerTimeout:  8 * time.Second,
		BannerInterval: time.Second,
		ClickTimeout:   10 * time.Second,
	}
}

// Page wraps a Driver with the stats page's affordances.
type Page struct {
	driver browser.Driver
	opts   PageOptions
}

// NewPage returns a Page over d. Zero durations and empty selectors fall
// back to DefaultPageOptions.
func NewPage(d browser.Driver, opts PageOptions) *Page {
	def := DefaultPageOptions()
	if opts.BannerTimeout <= 0 {
		opts.BannerTimeout = def.BannerTimeout
	}
	if opts.BannerInterval <= 0 {
		opts.BannerInterval = def.BannerInterval
	}
	if opts.ClickTimeout <= 0 {
		opts.ClickTimeout = def.ClickTimeout
	}
	opts.Selectors = opts.Selectors.withDefaults()
	return &Page{driver: d, opts: opts}
}

// URL reports where the page was loaded from, when the driver knows.
func (p *Page) URL() string {
	if u, ok := p.driver.(interface{ URL() string }); ok {
		return u.URL()
	}
	return ""
}

// DismissBanner closes the promotional banner if one shows up within the
// banner timeout. A missing or stuck banner is logged, not returned; only
// cancellation of ctx is an error.
func (p *Page) DismissBanner(ctx context.Context) error {
	wait := &browser.Wait{Timeout: p.opts.BannerTimeout, Interval: p.opts.BannerInterval}
	btn, err := browser.First(ctx, p.driver, p.opts.Selectors.BannerClose, nil, wait)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Info("Banner not found: %v", err)
		return nil
	}

	if err := p.driver.WaitClickable(ctx, btn, p.opts.ClickTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Warn("Banner never became clickable: %v", err)
		return nil
	}
	if err := p.driver.Click(ctx, btn); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Warn("Banner close failed: %v", err)
		return nil
	}

	logging.Info("Banner closed")
	return nil
}

// ActiveVariant reads which table variant is currently selected.
func (p *Page) ActiveVariant(ctx context.Context) (Variant, error) {
	btn, err := browser.First(ctx, p.driver, p.opts.Selectors.SelectedVariant, nil, nil)
	if err != nil {
		return 0, fmt.Errorf("active variant: %w", err)
	}
	label, err := p.driver.Text(ctx, btn)
	if err != nil {
		return 0, fmt.Errorf("active variant: %w", err)
	}
	return ParseVariant(label)
}

// SwitchVariant clicks the variant button that is not selected.
func (p *Page) SwitchVariant(ctx context.Context) error {
	sel := p.opts.Selectors.UnselectedVariant
	btns, err := p.driver.Query(ctx, sel, nil, nil)
	if err != nil {
		return fmt.Errorf("switch variant: %w", err)
	}
	switch {
	case len(btns) == 0:
		return fmt.Errorf("switch variant: %w: %q", browser.ErrNotFound, sel)
	case len(btns) > 1:
		return fmt.Errorf("switch variant: %w: %d candidates", ErrNotBinaryToggle, len(btns))
	}
	btn := btns[0]

	label, err := p.driver.Text(ctx, btn)
	if err != nil {
		return fmt.Errorf("switch variant: %w", err)
	}
	if err := p.driver.WaitClickable(ctx, btn, p.opts.ClickTimeout); err != nil {
		return fmt.Errorf("switch variant: %w", err)
	}
	if err := p.driver.Click(ctx, btn); err != nil {
		return fmt.Errorf("switch variant: %w", err)
	}

	logging.Info("Switched to: %s", label)
	return nil
}

// ColumnHeaders returns the lowercase header labels with PositionHeader
// inserted right after "player".
func (p *Page) ColumnHeaders(ctx context.Context) ([]string, error) {
	cells, err := p.driver.Query(ctx, p.opts.Selectors.HeaderCells, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("column headers: %w", err)
	}

	headers := make([]string, 0, len(cells)+1)
	for i, c := range cells {
		text, err := p.driver.Text(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("column header %d: %w", i, err)
		}
		headers = append(headers, strings.ToLower(text))
	}
	return insertPosition(headers)
}

func insertPosition(headers []string) ([]string, error) {
	idx := slices.Index(headers, anchorHeader)
	if idx < 0 {
		return nil, fmt.Errorf("%w: got %v", ErrMissingAnchor, headers)
	}
	return slices.Insert(headers, idx+1, PositionHeader), nil
}

// Rows reads every body row in document order. A row is finished, cell
// fan-out included, before the next one starts.
func (p *Page) Rows(ctx context.Context, strategy FetchStrategy) ([]Row, error) {
	trs, err := p.driver.Query(ctx, p.opts.Selectors.BodyRows, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	rows := make([]Row, 0, len(trs))
	for i, tr := range trs {
		row, err := p.row(ctx, tr, strategy)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	logging.Debug("Read %d rows (%s)", len(rows), strategy)
	return rows, nil
}

func (p *Page) row(ctx context.Context, tr browser.Element, strategy FetchStrategy) (Row, error) {
	sel := p.opts.Selectors

	link, err := browser.First(ctx, p.driver, sel.PlayerLink, tr, nil)
	if err != nil {
		return nil, err
	}
	player, err := p.driver.Attribute(ctx, link, sel.PlayerLabelAttr)
	if err != nil {
		return nil, err
	}

	posCell, err := browser.First(ctx, p.driver, sel.PositionCell, tr, nil)
	if err != nil {
		return nil, err
	}
	pos, err := p.driver.Text(ctx, posCell)
	if err != nil {
		return nil, err
	}

	cells, err := p.driver.Query(ctx, sel.DataCells, tr, nil)
	if err != nil {
		return nil, err
	}
	values, err := cellTexts(ctx, p.driver, cells, strategy, p.opts.CellConcurrency)
	if err != nil {
		return nil, err
	}

	row := make(Row, 0, 2+len(values))
	row = append(row, player, pos)
	return append(row, values...), nil
}
