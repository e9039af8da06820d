package cmd

import (
	"github.com/lance13c/mlbstats/internal/config"
	"github.com/lance13c/mlbstats/internal/output"
	"github.com/lance13c/mlbstats/internal/stats"
	"github.com/spf13/cobra"
)

var columnsCmd = &cobra.Command{
	Use:       "columns [standard|expanded|both]",
	Short:     "List the column headers of a table variant",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"standard", "expanded", "both"},
	RunE:      runColumns,
}

func init() {
	rootCmd.AddCommand(columnsCmd)
	columnsCmd.Flags().String("format", "", "output format: auto, table, json, yaml or csv (default from config)")
}

func runColumns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	variantName := appConfig.Extract.Variant
	if len(args) == 1 {
		variantName = args[0]
	}
	variants, err := config.ParseVariants(variantName)
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(stringSetting(cmd, "format", appConfig.Output.Format))
	if err != nil {
		return err
	}

	session, page, err := openPage(ctx, appConfig, appConfig.PageOptions())
	if err != nil {
		return err
	}
	defer session.Close()

	// Rows are never read here, so the strategy is irrelevant.
	extractor := stats.NewExtractor(page, stats.Sequential)
	for _, v := range variants {
		columns, err := extractor.ColumnsFor(ctx, v)
		if err != nil {
			return err
		}
		if err := output.RenderColumns(cmd.OutOrStdout(), format, v, columns); err != nil {
			return err
		}
	}
	return nil
}
