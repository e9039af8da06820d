package stats

import (
	"context"
	"fmt"
	"strings"

	"github.com/lance13c/mlbstats/internal/browser"
	"golang.org/x/sync/errgroup"
)

// FetchStrategy selects how the data cells of one row are read.
type FetchStrategy int

const (
	// Sequential reads cells one at a time.
	Sequential FetchStrategy = iota
	// Concurrent issues every cell read of a row at once and waits for all.
	Concurrent
)

func (f FetchStrategy) String() string {
	if f == Concurrent {
		return "concurrent"
	}
	return "sequential"
}

// ParseFetchStrategy accepts "sequential" or "concurrent".
func ParseFetchStrategy(s string) (FetchStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sequential", "seq":
		return Sequential, nil
	case "concurrent", "parallel":
		return Concurrent, nil
	}
	return Sequential, fmt.Errorf("unknown fetch strategy %q (want sequential or concurrent)", s)
}

// Set implements pflag.Value.
func (f *FetchStrategy) Set(s string) error {
	parsed, err := ParseFetchStrategy(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Type implements pflag.Value.
func (f *FetchStrategy) Type() string {
	return "strategy"
}

// cellTexts reads the text of every cell, in order. Any failed read fails
// the whole call; a row is never returned with cells missing.
func cellTexts(ctx context.Context, d browser.Driver, cells []browser.Element, strategy FetchStrategy, limit int) ([]string, error) {
	out := make([]string, len(cells))

	if strategy == Sequential {
		for i, c := range cells {
			text, err := d.Text(ctx, c)
			if err != nil {
				return nil, fmt.Errorf("cell %d: %w", i, err)
			}
			out[i] = text
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, c := range cells {
		g.Go(func() error {
			text, err := d.Text(gctx, c)
			if err != nil {
				return fmt.Errorf("cell %d: %w", i, err)
			}
			out[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
