package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lance13c/mlbstats/internal/logging"
)

// ErrVariantMismatch means the requested variant is still not active after
// the single allowed switch.
var ErrVariantMismatch = errors.New("table variant did not change after switching")

// Extractor makes sure the requested variant is showing before it reads
// the table. Calls are serialized because the page state is shared.
type Extractor struct {
	mu       sync.Mutex
	page     *Page
	strategy FetchStrategy
	now      func() time.Time
}

// NewExtractor returns an Extractor reading rows with strategy.
func NewExtractor(page *Page, strategy FetchStrategy) *Extractor {
	return &Extractor{
		page:     page,
		strategy: strategy,
		now:      time.Now,
	}
}

// Ensure makes v the active variant, switching at most once.
func (e *Extractor) Ensure(ctx context.Context, v Variant) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensure(ctx, v)
}

func (e *Extractor) ensure(ctx context.Context, v Variant) error {
	active, err := e.page.ActiveVariant(ctx)
	if err != nil {
		return err
	}
	if active == v {
		return nil
	}

	logging.Debug("Active table is %s, switching to %s", active, v)
	if err := e.page.SwitchVariant(ctx); err != nil {
		return err
	}

	after, err := e.page.ActiveVariant(ctx)
	if err != nil {
		return err
	}
	if after != v {
		return fmt.Errorf("%w: wanted %s, page shows %s", ErrVariantMismatch, v, after)
	}
	return nil
}

// ColumnsFor returns the column headers of variant v.
func (e *Extractor) ColumnsFor(ctx context.Context, v Variant) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensure(ctx, v); err != nil {
		return nil, err
	}
	return e.page.ColumnHeaders(ctx)
}

// SnapshotFor returns the headers and rows of variant v.
func (e *Extractor) SnapshotFor(ctx context.Context, v Variant) (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(ctx, v)
}

func (e *Extractor) snapshot(ctx context.Context, v Variant) (*Snapshot, error) {
	if err := e.ensure(ctx, v); err != nil {
		return nil, err
	}

	columns, err := e.page.ColumnHeaders(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := e.page.Rows(ctx, e.strategy)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Variant:    v,
		URL:        e.page.URL(),
		Columns:    columns,
		Rows:       rows,
		CapturedAt: e.now().UTC(),
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Snapshots reads each requested variant in turn.
func (e *Extractor) Snapshots(ctx context.Context, variants ...Variant) ([]*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*Snapshot, 0, len(variants))
	for _, v := range variants {
		snap, err := e.snapshot(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("%s table: %w", v, err)
		}
		out = append(out, snap)
	}
	return out, nil
}
