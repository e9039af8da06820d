package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lance13c/mlbstats/internal/browser"
	"github.com/lance13c/mlbstats/internal/config"
	"github.com/lance13c/mlbstats/internal/database"
	"github.com/lance13c/mlbstats/internal/logging"
	"github.com/lance13c/mlbstats/internal/output"
	"github.com/lance13c/mlbstats/internal/stats"
	"github.com/spf13/cobra"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Extract the stats table in one or both variants",
	Long: `Open the stats page, dismiss the banner if one shows up, and read the
player table. Each requested variant is made active with at most one toggle
click before its headers and rows are read.

Any cell that cannot be read fails the whole run; no partial table is printed.`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

var (
	scrapeSave     bool
	scrapeDumpHTML string
	scrapeDumpRaw  bool
)

func init() {
	rootCmd.AddCommand(scrapeCmd)

	addExtractFlags(scrapeCmd)
	scrapeCmd.Flags().BoolVar(&scrapeSave, "save", false, "store the snapshots in the project database")
	scrapeCmd.Flags().StringVar(&scrapeDumpHTML, "dump-html", "", "write the page HTML to this file after extraction")
	scrapeCmd.Flags().BoolVar(&scrapeDumpRaw, "raw", false, "keep scripts and styles in the --dump-html file")
}

// addExtractFlags registers the flags shared by commands that read tables.
func addExtractFlags(cmd *cobra.Command) {
	cmd.Flags().Var(new(config.VariantSet), "variant", "table variant: standard, expanded or both (default from config)")
	cmd.Flags().Var(new(stats.FetchStrategy), "fetch", "cell fetch strategy: sequential or concurrent (default from config)")
	cmd.Flags().String("format", "", "output format: auto, table, json, yaml or csv (default from config)")
	cmd.Flags().Int("concurrency", 0, "max concurrent cell reads per row, 0 for unbounded")
}

// extractSettings is the per-run view of config plus flag overrides.
type extractSettings struct {
	variants []stats.Variant
	strategy stats.FetchStrategy
	format   output.Format
	page     stats.PageOptions
}

func loadExtractSettings(cmd *cobra.Command, cfg *config.Config) (*extractSettings, error) {
	var (
		variants []stats.Variant
		strategy stats.FetchStrategy
		err      error
	)
	if f := cmd.Flags().Lookup("variant"); f.Changed {
		variants = *f.Value.(*config.VariantSet)
	} else if variants, err = cfg.Variants(); err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup("fetch"); f.Changed {
		strategy = *f.Value.(*stats.FetchStrategy)
	} else if strategy, err = stats.ParseFetchStrategy(cfg.Extract.Fetch); err != nil {
		return nil, err
	}
	format, err := output.ParseFormat(stringSetting(cmd, "format", cfg.Output.Format))
	if err != nil {
		return nil, err
	}

	page := cfg.PageOptions()
	if cmd.Flags().Changed("concurrency") {
		page.CellConcurrency, _ = cmd.Flags().GetInt("concurrency")
		if page.CellConcurrency < 0 {
			return nil, fmt.Errorf("--concurrency must not be negative")
		}
	}

	return &extractSettings{
		variants: variants,
		strategy: strategy,
		format:   format,
		page:     page,
	}, nil
}

// openPage connects to the browser and clears the banner.
func openPage(ctx context.Context, cfg *config.Config, opts stats.PageOptions) (*browser.Session, *stats.Page, error) {
	session, err := browser.Open(ctx, cfg.BrowserOptions())
	if err != nil {
		return nil, nil, err
	}
	logging.Info("Current page: %s", session.URL())

	page := stats.NewPage(session, opts)
	if err := page.DismissBanner(ctx); err != nil {
		session.Close()
		return nil, nil, err
	}
	return session, page, nil
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	startTime := time.Now()

	settings, err := loadExtractSettings(cmd, appConfig)
	if err != nil {
		return err
	}

	session, page, err := openPage(ctx, appConfig, settings.page)
	if err != nil {
		return err
	}
	defer session.Close()

	extractor := stats.NewExtractor(page, settings.strategy)
	snaps, err := extractor.Snapshots(ctx, settings.variants...)
	if scrapeDumpHTML != "" {
		// Dump even on failure; the HTML is most useful when extraction broke.
		if dumpErr := dumpHTML(ctx, session, scrapeDumpHTML); dumpErr != nil {
			logging.Warn("Failed to dump page HTML: %v", dumpErr)
		}
	}
	if err != nil {
		return err
	}

	if scrapeSave {
		if err := saveSnapshots(ctx, cmd, snaps); err != nil {
			return err
		}
	}

	if err := output.Render(cmd.OutOrStdout(), settings.format, snaps...); err != nil {
		return err
	}

	logging.Info("Extracted %d table(s) with %s fetch in %v", len(snaps), settings.strategy, time.Since(startTime))
	return nil
}

func dumpHTML(ctx context.Context, session *browser.Session, path string) error {
	html, err := session.HTML(ctx)
	if err != nil {
		return err
	}
	if !scrapeDumpRaw {
		if html, err = browser.StripPage(html); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logging.Info("Page HTML written to %s (%d bytes)", path, len(html))
	return nil
}

func saveSnapshots(ctx context.Context, cmd *cobra.Command, snaps []*stats.Snapshot) error {
	db, err := database.New(appConfig.Storage.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, snap := range snaps {
		id, err := db.SaveSnapshot(ctx, snap)
		if err != nil {
			return fmt.Errorf("failed to save %s snapshot: %w", snap.Variant, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s snapshot #%d (%d players)\n", snap.Variant, id, len(snap.Rows))
	}
	return nil
}
