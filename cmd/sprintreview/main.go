// Command sprintreview scrapes a Jira sprint report into an enriched JSON
// report and renders it as a slide deck.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sprintreview/internal/config"
	"sprintreview/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Resolved by PersistentPreRunE
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sprintreview",
	Short: "Turn a closed Jira sprint into a review deck",
	Long: `sprintreview drives Chrome through the sprint report of a closed sprint,
visits every ticket to collect developer, epic and pull request details,
and writes the result to a JSON report. The slides command turns that
report into a Markdown and HTML deck.

Settings come from the config file and can be overridden with environment
variables such as ISSUE_URL and SPRINT_REPORT_URL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if _, err := logging.Initialize(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			File:   cfg.Logging.File,
		}); err != nil {
			return err
		}
		if _, err := os.Stat(configPath); err != nil {
			logging.BootWarn("config file %s not found, using defaults and environment", configPath)
		} else {
			logging.Boot("config loaded from %s", configPath)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

// scrapeCmd runs the scraper and enrichment pipeline
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape the sprint report and enrich every ticket",
	Long: `Opens the sprint report in Chrome, extracts the ticket table and visits
each ticket for its developer, epic and linked pull request.

The first run opens a visible browser with the configured profile; log in
to Jira there once and later runs reuse the session.`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

// slidesCmd renders the deck from the saved report
var slidesCmd = &cobra.Command{
	Use:   "slides",
	Short: "Render the report as a Markdown and HTML slide deck",
	Args:  cobra.NoArgs,
	RunE:  runSlides,
}

// previewCmd renders the deck in the terminal
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview the slide deck in the terminal",
	Args:  cobra.NoArgs,
	RunE:  runPreview,
}

// checkCmd validates the configuration
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that every setting has a value",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "sprintreview.yaml", "Config file (.yaml or .toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	slidesCmd.Flags().BoolVarP(&watchReport, "watch", "w", false, "Regenerate the deck whenever the report changes")
	slidesCmd.Flags().StringVar(&assetDir, "assets", "", "Directory that image paths are relative to (default: current)")

	previewCmd.Flags().StringVar(&previewStyle, "style", "", "Glamour style (dark, light, notty; default: detect)")
	previewCmd.Flags().IntVar(&previewWidth, "width", 100, "Word wrap width")

	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(slidesCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

// commandContext returns the command's context, or Background when the
// command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
