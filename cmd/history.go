package cmd

import (
	"fmt"
	"strconv"

	"github.com/lance13c/mlbstats/internal/database"
	"github.com/lance13c/mlbstats/internal/output"
	"github.com/lance13c/mlbstats/internal/stats"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse snapshots saved with 'scrape --save'",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a saved snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Delete saved snapshots",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistoryRm,
}

var historyPlayerCmd = &cobra.Command{
	Use:   "player <name>",
	Short: "Show one player's row across saved snapshots",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryPlayer,
}

var (
	historyLimit   int
	historyVariant = stats.Standard
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyRmCmd, historyPlayerCmd)

	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of snapshots to list")
	historyShowCmd.Flags().String("format", "", "output format: auto, table, json, yaml or csv (default from config)")
	historyPlayerCmd.Flags().Var(&historyVariant, "variant", "table variant: standard or expanded")
}

func openDB() (*database.DB, error) {
	return database.New(appConfig.Storage.Database)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid snapshot id %q", s)
	}
	return id, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	summaries, err := db.ListSnapshots(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No saved snapshots. Run 'mlbstats scrape --save' first.")
		return nil
	}

	rows := make([][]string, len(summaries))
	for i, s := range summaries {
		rows[i] = []string{
			strconv.FormatInt(s.ID, 10),
			s.Variant.String(),
			strconv.Itoa(s.ColumnCount),
			strconv.Itoa(s.RowCount),
			s.CapturedAt.Local().Format("2006-01-02 15:04"),
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), output.Table([]string{"id", "variant", "columns", "players", "captured"}, rows))
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(stringSetting(cmd, "format", appConfig.Output.Format))
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	snap, err := db.GetSnapshot(cmd.Context(), id)
	if err != nil {
		return err
	}
	return output.Render(cmd.OutOrStdout(), format, snap)
}

func runHistoryRm(cmd *cobra.Command, args []string) error {
	ids := make([]int64, len(args))
	for i, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	for _, id := range ids {
		if err := db.DeleteSnapshot(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted snapshot #%d\n", id)
	}
	return nil
}

func runHistoryPlayer(cmd *cobra.Command, args []string) error {
	variant := historyVariant

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.PlayerHistory(cmd.Context(), args[0], variant)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no %s rows saved for %q", variant, args[0])
	}

	// Headers can change between snapshots; the latest one labels the table.
	latest := entries[len(entries)-1]
	headers := append([]string{"snapshot", "captured"}, latest.Columns[1:]...)
	rows := make([][]string, len(entries))
	for i, e := range entries {
		row := []string{strconv.FormatInt(e.SnapshotID, 10), e.CapturedAt.Local().Format("2006-01-02")}
		rows[i] = append(row, e.Row[1:]...)
	}
	fmt.Fprintln(cmd.OutOrStdout(), output.Table(headers, rows))
	return nil
}
