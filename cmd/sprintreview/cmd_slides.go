package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sprintreview/internal/logging"
	"sprintreview/internal/report"
	"sprintreview/internal/slides"
)

var (
	watchReport  bool
	assetDir     string
	previewStyle string
	previewWidth int
)

func runSlides(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := generateSlides(ctx, out); err != nil {
		return err
	}
	if !watchReport {
		return nil
	}

	w, err := slides.NewWatcher(cfg.Output.ReportFile, 0, func(ctx context.Context) error {
		return generateSlides(ctx, out)
	})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return fmt.Errorf("watch %s: %w", cfg.Output.ReportFile, err)
	}
	defer w.Stop()

	printHint(out, "watching "+cfg.Output.ReportFile+", press Ctrl+C to stop")
	select {
	case <-ctx.Done():
	case <-w.Done():
	}
	return nil
}

// generateSlides writes the deck, or prints how to produce the report when
// it does not exist yet.
func generateSlides(ctx context.Context, out io.Writer) error {
	paths, err := slides.Generate(ctx, cfg, assetDir)
	if errors.Is(err, os.ErrNotExist) {
		printHint(out, "run 'sprintreview scrape' to generate the report file: "+cfg.Output.ReportFile)
		return nil
	}
	if err != nil {
		return err
	}
	for _, p := range paths {
		printSaved(out, p)
	}
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	r, err := report.Load(cfg.Output.ReportFile)
	if errors.Is(err, os.ErrNotExist) {
		printHint(cmd.OutOrStdout(), "run 'sprintreview scrape' to generate the report file: "+cfg.Output.ReportFile)
		return nil
	}
	if err != nil {
		return err
	}

	d := slides.Build(r, cfg.Slides)
	logging.SlidesDebug("preview %v", d.Counts())
	rendered, err := slides.Preview(d, previewStyle, previewWidth)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}
