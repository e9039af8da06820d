package cmd

import (
	"github.com/lance13c/mlbstats/internal/browser"
	"github.com/lance13c/mlbstats/internal/logging"
	"github.com/lance13c/mlbstats/internal/output"
	"github.com/lance13c/mlbstats/internal/stats"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file.html>",
	Short: "Extract the stats table from a saved page",
	Long: `Read a page saved with 'scrape --dump-html' (or the browser's "Save as")
and extract the table without a browser.

A saved page cannot toggle variants, so by default the variant that was
active when the page was saved is read. Asking for another variant fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
	addExtractFlags(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	settings, err := loadExtractSettings(cmd, appConfig)
	if err != nil {
		return err
	}

	doc, err := browser.LoadDocument(args[0])
	if err != nil {
		return err
	}
	defer doc.Close()

	page := stats.NewPage(doc, settings.page)
	variants := settings.variants
	if !cmd.Flags().Changed("variant") {
		active, err := page.ActiveVariant(ctx)
		if err != nil {
			return err
		}
		variants = []stats.Variant{active}
	}
	logging.Info("Parsing %s (%v)", doc.URL(), variants)

	snaps, err := stats.NewExtractor(page, settings.strategy).Snapshots(ctx, variants...)
	if err != nil {
		return err
	}
	return output.Render(cmd.OutOrStdout(), settings.format, snaps...)
}
