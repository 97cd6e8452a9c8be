// Package scraper drives a dom.Document through the sprint report and each
// ticket's issue page, producing an enriched report.Report.
//
// Every selector wait is bounded. A wait that expires is an expected absence:
// the stage is skipped, a Skip is recorded and the run continues. Errors from
// the document itself (navigation failures, a closed browser) abort the run.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sprintreview/internal/config"
	"sprintreview/internal/dom"
	"sprintreview/internal/logging"
	"sprintreview/internal/report"
)

// ErrReportTableMissing is returned by Run when the sprint report table never
// appears.
var ErrReportTableMissing = errors.New("sprint report table not found")

// Stage names one optional step of ticket enrichment.
type Stage string

const (
	StagePeopleModule  Stage = "people-module"
	StageDevPanel      Stage = "dev-panel"
	StagePanelToggle   Stage = "panel-toggle"
	StagePRLink        Stage = "pr-link"
	StagePRList        Stage = "pr-list"
	StagePRMatch       Stage = "pr-match"
	StagePRDescription Stage = "pr-description"
)

// Skip records a stage that was abandoned because its element was absent.
type Skip struct {
	Key      string
	Stage    Stage
	Selector string
}

func (s Skip) String() string {
	return fmt.Sprintf("%s: %s skipped, %q not found", s.Key, s.Stage, s.Selector)
}

// Outcome summarizes the enrichment of one ticket.
type Outcome struct {
	Key   string
	Skips []Skip
}

// Skipped reports whether stage was skipped for this ticket.
func (o Outcome) Skipped(stage Stage) bool {
	for _, s := range o.Skips {
		if s.Stage == stage {
			return true
		}
	}
	return false
}

// Scraper runs extraction and enrichment against one document view. It is
// not safe for concurrent use.
type Scraper struct {
	doc dom.Document
	cfg *config.Config
	log *logging.Logger
}

// New creates a scraper. A nil cfg uses the defaults.
func New(doc dom.Document, cfg *config.Config) *Scraper {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scraper{
		doc: doc,
		cfg: cfg,
		log: logging.Get(logging.CategoryEnrich),
	}
}

// Result is the product of a full run.
type Result struct {
	RunID    string
	Report   *report.Report
	Outcomes []Outcome
}

// SkipCount returns the total number of skipped stages.
func (r *Result) SkipCount() int {
	n := 0
	for _, o := range r.Outcomes {
		n += len(o.Skips)
	}
	return n
}

// Run loads the sprint report, extracts its tickets, enriches each one in
// order and assembles the report.
func (s *Scraper) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	log := logging.WithRunID(logging.CategoryScrape, runID)
	s.log = logging.WithRunID(logging.CategoryEnrich, runID)
	timer := logging.StartTimer(logging.CategoryScrape, "scrape run")
	defer timer.StopWithInfo()

	url := s.cfg.Tracker.SprintReportURL
	if err := s.doc.Load(ctx, url); err != nil {
		return nil, fmt.Errorf("load sprint report %s: %w", url, err)
	}

	sel := s.cfg.Selectors
	found, err := s.doc.AwaitSelector(ctx, sel.ReportTable, s.cfg.GetNavigationTimeout())
	if err != nil {
		return nil, fmt.Errorf("await report table: %w", err)
	}
	if found != dom.Found {
		return nil, fmt.Errorf("%w: %q at %s", ErrReportTableMissing, sel.ReportTable, url)
	}
	log.Info("sprint report loaded %s", url)

	boardName, err := dom.Text(ctx, s.doc, sel.BoardName)
	if err != nil {
		return nil, err
	}
	sprintLabel, err := dom.Text(ctx, s.doc, sel.SprintLabel)
	if err != nil {
		return nil, err
	}

	tickets, err := s.Extract(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("report ready, %d tickets", len(tickets))

	outcomes, err := s.EnrichAll(ctx, tickets)
	if err != nil {
		return nil, err
	}
	log.Info("report complete")

	markers := report.Markers{
		Milestone: s.cfg.Scrape.MilestoneMarker,
		Sprint:    s.cfg.Scrape.SprintMarker,
	}
	return &Result{
		RunID:    runID,
		Report:   report.Assemble(boardName, sprintLabel, tickets, markers),
		Outcomes: outcomes,
	}, nil
}

// skip records and logs an abandoned stage.
func (s *Scraper) skip(out *Outcome, stage Stage, selector string) {
	sk := Skip{Key: out.Key, Stage: stage, Selector: selector}
	out.Skips = append(out.Skips, sk)
	s.log.Warn("%s", sk)
}

// await waits for selector and reports whether it appeared in time.
func (s *Scraper) await(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	p, err := s.doc.AwaitSelector(ctx, selector, timeout)
	if err != nil {
		return false, fmt.Errorf("await %q: %w", selector, err)
	}
	return p == dom.Found, nil
}

// click clicks the index-th match of selector. A vanished element reports
// false instead of an error.
func (s *Scraper) click(ctx context.Context, selector string, index int) (bool, error) {
	err := s.doc.Click(ctx, selector, index)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, dom.ErrNoElement):
		return false, nil
	default:
		return false, fmt.Errorf("click %q: %w", selector, err)
	}
}
