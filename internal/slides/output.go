package slides

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"

	"sprintreview/internal/config"
	"sprintreview/internal/logging"
	"sprintreview/internal/report"
)

// Preview renders the Markdown deck for a terminal. An empty style picks
// one from the terminal background.
func Preview(d *Deck, style string, width int) (string, error) {
	md, err := RenderMarkdown(d)
	if err != nil {
		return "", err
	}
	if width <= 0 {
		width = 80
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	renderer, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("create terminal renderer: %w", err)
	}
	return renderer.Render(string(md))
}

// Outputs names the files Write produces. Empty paths are skipped.
type Outputs struct {
	Markdown string
	HTML     string
}

// Write renders the deck formats concurrently and replaces each output file
// atomically. It returns the paths written.
func Write(ctx context.Context, d *Deck, theme Theme, out Outputs) ([]string, error) {
	g, _ := errgroup.WithContext(ctx)

	var written [2]string
	if out.Markdown != "" {
		g.Go(func() error {
			data, err := RenderMarkdown(d)
			if err != nil {
				return err
			}
			if err := writeFile(out.Markdown, data); err != nil {
				return err
			}
			written[0] = out.Markdown
			return nil
		})
	}
	if out.HTML != "" {
		g.Go(func() error {
			data, err := RenderHTML(d, theme)
			if err != nil {
				return err
			}
			if err := writeFile(out.HTML, data); err != nil {
				return err
			}
			written[1] = out.HTML
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	paths := make([]string, 0, 2)
	for _, p := range written {
		if p != "" {
			paths = append(paths, p)
			logging.Slides("saved slides: %s", p)
		}
	}
	return paths, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Generate loads the report named in cfg.Output and writes the Markdown and
// HTML decks. Image paths are resolved against assetDir.
func Generate(ctx context.Context, cfg *config.Config, assetDir string) ([]string, error) {
	r, err := report.Load(cfg.Output.ReportFile)
	if err != nil {
		return nil, err
	}
	logging.Slides("generate slides from %s (%d tickets)", cfg.Output.ReportFile, len(r.Tickets))

	d := Build(r, cfg.Slides)
	theme := NewTheme(cfg.Slides, assetDir)
	return Write(ctx, d, theme, Outputs{
		Markdown: cfg.Output.MarkdownFile,
		HTML:     cfg.Output.SlideFile,
	})
}
