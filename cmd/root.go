package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lance13c/mlbstats/internal/config"
	"github.com/lance13c/mlbstats/internal/logging"
	"github.com/spf13/cobra"
)

var cfgFile string
var appConfig *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mlbstats",
	Short: "Pull the MLB player stats table through a real browser",
	Long: `mlbstats drives a Chrome tab on the MLB stats page and reads the
player table in its standard and expanded variants.

Point it at a running browser with --endpoint (for example a Chrome started
with --remote-debugging-port=9222), or let it launch a local Chrome.

Examples:
  mlbstats scrape
  mlbstats scrape --variant both --format csv > stats.csv
  mlbstats columns expanded --endpoint localhost:9222
  mlbstats parse saved-page.html`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute adds all child commands to the root command and runs it with ctx.
// The log file is closed afterwards whether or not the command succeeded.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	logger := logging.GetLogger()
	// Flag errors happen before a log file is opened; main prints those.
	if err != nil && logger.GetLogPath() != "" {
		logger.Error("%v", err)
	}
	logger.Close()
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .mlbstats/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "V", false, "verbose output (debug logs on stderr)")
	rootCmd.PersistentFlags().StringP("project", "p", ".", "project directory")
	rootCmd.PersistentFlags().String("endpoint", "", "DevTools endpoint of a running browser (host:port, http:// or ws://)")
	rootCmd.PersistentFlags().String("url", "", "stats page URL")
	rootCmd.PersistentFlags().Bool("headless", true, "run a launched Chrome without a window")
}

// initConfig sets up logging and loads the configuration, applying flag
// overrides last.
func initConfig(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	flags := cmd.Flags()
	verbose, _ := flags.GetBool("verbose")
	projectDir, _ := flags.GetString("project")

	if err := logging.Initialize(projectDir); err != nil {
		// Fall back to stderr if logging fails to initialize
		fmt.Fprintf(os.Stderr, "Warning: Failed to initialize logging: %v\n", err)
	} else {
		logging.RedirectStandardLog()
	}

	loader := config.NewLoader(projectDir)
	var err error
	if cfgFile != "" {
		appConfig, err = loader.LoadFile(cfgFile)
	} else {
		appConfig, err = loader.Load()
	}
	if err != nil {
		return err
	}

	if flags.Changed("endpoint") {
		appConfig.Browser.Endpoint, _ = flags.GetString("endpoint")
	}
	if flags.Changed("url") {
		appConfig.Browser.URL, _ = flags.GetString("url")
	}
	if flags.Changed("headless") {
		appConfig.Browser.Headless, _ = flags.GetBool("headless")
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	if !filepath.IsAbs(appConfig.Storage.Database) {
		appConfig.Storage.Database = filepath.Join(projectDir, appConfig.Storage.Database)
	}

	level, _ := logging.ParseLevel(appConfig.Log.Level)
	logging.GetLogger().SetLevel(level)
	if verbose {
		logging.GetLogger().SetLevel(logging.DEBUG)
		logging.GetLogger().SetMirror(os.Stderr)
	}

	if appConfig.Source != "" {
		logging.Info("Using config %s", appConfig.Source)
	}
	logging.Debug("Config loaded in %v", time.Since(startTime))
	return nil
}

// stringSetting returns the flag value when the user set it and fallback
// otherwise.
func stringSetting(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return fallback
}
