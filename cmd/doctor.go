package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lance13c/mlbstats/internal/browser"
	"github.com/lance13c/mlbstats/internal/database"
	"github.com/lance13c/mlbstats/internal/logging"
	"github.com/spf13/cobra"
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the configuration, browser and database",
	Long: `Doctor runs health checks before a scrape.

This command will:
• Show which config file is in use
• Probe the DevTools endpoint, or locate a local Chrome
• Open the snapshot database

Example:
  mlbstats doctor --endpoint localhost:9222`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "mlbstats health check")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintln(out)

	allPassed := true

	fmt.Fprint(out, "📄 Configuration... ")
	if appConfig.Source != "" {
		fmt.Fprintf(out, "✅ %s\n", appConfig.Source)
	} else {
		fmt.Fprintln(out, "✅ defaults (no config file found)")
	}
	fmt.Fprintf(out, "   Page: %s\n", appConfig.Browser.URL)
	fmt.Fprintf(out, "   Variant: %s, fetch: %s\n", appConfig.Extract.Variant, appConfig.Extract.Fetch)
	fmt.Fprintf(out, "   Log file: %s\n", logging.GetLogger().GetLogPath())

	if appConfig.Browser.Endpoint != "" {
		fmt.Fprintf(out, "🌐 DevTools endpoint %s... ", appConfig.Browser.Endpoint)
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		version, err := browser.Probe(ctx, appConfig.Browser.Endpoint)
		if err != nil {
			fmt.Fprintln(out, "❌ FAILED")
			fmt.Fprintf(out, "   %v\n", err)
			fmt.Fprintln(out, "   Start Chrome with --remote-debugging-port=9222 or drop --endpoint.")
			allPassed = false
		} else {
			fmt.Fprintln(out, "✅ PASSED")
			fmt.Fprintf(out, "   Browser: %s (protocol %s)\n", version.Browser, version.Protocol)
		}
	} else {
		fmt.Fprint(out, "🌐 Local Chrome... ")
		path := appConfig.Browser.ExecPath
		var err error
		if path != "" {
			_, err = os.Stat(path)
		} else {
			path, err = browser.FindChrome()
		}
		if err != nil {
			fmt.Fprintln(out, "❌ FAILED")
			fmt.Fprintf(out, "   %v\n", err)
			allPassed = false
		} else {
			fmt.Fprintln(out, "✅ PASSED")
			fmt.Fprintf(out, "   Executable: %s (headless=%t)\n", path, appConfig.Browser.Headless)
		}
	}

	fmt.Fprintf(out, "🗄  Database %s... ", appConfig.Storage.Database)
	if db, err := database.New(appConfig.Storage.Database); err != nil {
		fmt.Fprintln(out, "❌ FAILED")
		fmt.Fprintf(out, "   %v\n", err)
		allPassed = false
	} else {
		st, err := db.GetStatistics(cmd.Context())
		db.Close()
		if err != nil {
			fmt.Fprintln(out, "❌ FAILED")
			fmt.Fprintf(out, "   %v\n", err)
			allPassed = false
		} else {
			fmt.Fprintln(out, "✅ PASSED")
			fmt.Fprintf(out, "   %d snapshots, %d players\n", st.Snapshots, st.Players)
			if st.LastCapture != nil {
				fmt.Fprintf(out, "   Last capture: %s\n", st.LastCapture.Local().Format(time.RFC1123))
			}
		}
	}

	fmt.Fprintln(out, "\n"+strings.Repeat("=", 40))
	if !allPassed {
		return fmt.Errorf("some checks failed")
	}
	fmt.Fprintln(out, "🎉 All checks passed.")
	return nil
}
