package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"sprintreview/internal/browser"
	"sprintreview/internal/config"
	"sprintreview/internal/logging"
	"sprintreview/internal/report"
	"sprintreview/internal/scraper"
)

func runScrape(cmd *cobra.Command, args []string) error {
	if err := requireSettings(cmd.ErrOrStderr(), config.ScrapeKeys...); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !cfg.Browser.Headless && cfg.Browser.DebuggerURL == "" {
		printHint(out, "The first run may require you to log in to Jira in the opened browser window.")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sm := browser.NewSessionManager(cfg)
	if err := sm.Start(ctx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer func() {
		if err := sm.Shutdown(context.Background()); err != nil {
			logging.BrowserWarn("shutdown: %v", err)
		}
	}()

	res, err := scraper.New(sm, cfg).Run(ctx)
	if err != nil {
		return err
	}
	if err := report.Save(cfg.Output.ReportFile, res.Report); err != nil {
		return err
	}

	printScrapeSummary(out, res)
	printSaved(out, cfg.Output.ReportFile)
	return nil
}

// requireSettings prints every missing setting with the resolved config and
// returns an error when any is missing.
func requireSettings(w io.Writer, keys ...string) error {
	missing := cfg.Check(keys...)
	if len(missing) == 0 {
		return nil
	}
	for _, name := range missing {
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("expected env var '%s'", name)))
	}
	fmt.Fprintln(w, cfg.Dump())
	return fmt.Errorf("%d required setting(s) missing", len(missing))
}

func printScrapeSummary(w io.Writer, res *scraper.Result) {
	r := res.Report
	lines := []string{
		titleStyle.Render(orDash(r.BoardName)),
		r.SprintTitle,
		fmt.Sprintf("%d tickets", len(r.Tickets)),
	}
	if n := res.SkipCount(); n > 0 {
		lines = append(lines, warnStyle.Render(fmt.Sprintf("%d stages skipped", n)))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
