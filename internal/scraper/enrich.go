package scraper

import (
	"context"
	"fmt"

	"sprintreview/internal/dom"
	"sprintreview/internal/report"
)

// EnrichAll enriches tickets one at a time, in slice order. Skipped stages
// never stop the loop; a document error does, returning the outcomes of the
// tickets finished so far.
func (s *Scraper) EnrichAll(ctx context.Context, tickets []report.Ticket) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(tickets))
	for i := range tickets {
		out, err := s.EnrichTicket(ctx, &tickets[i])
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// EnrichTicket loads the ticket's issue page and fills in developer,
// developers, epic and, when enabled, the linked pull request. Previous
// enrichment is discarded first, so a re-run replaces rather than merges.
func (s *Scraper) EnrichTicket(ctx context.Context, t *report.Ticket) (Outcome, error) {
	t.ClearEnrichment()
	out := Outcome{Key: t.Key}
	sel := s.cfg.Selectors

	url := s.cfg.Tracker.IssueURL + t.Key
	if err := s.doc.Load(ctx, url); err != nil {
		return out, fmt.Errorf("load issue %s: %w", t.Key, err)
	}

	ok, err := s.await(ctx, sel.PeopleModule, s.cfg.GetPeopleModuleTimeout())
	if err != nil {
		return out, fmt.Errorf("%s: %w", t.Key, err)
	}
	if !ok {
		s.skip(&out, StagePeopleModule, sel.PeopleModule)
		return out, nil
	}
	s.log.Debug("page loaded %s", t.Key)

	if t.Developer, err = dom.Text(ctx, s.doc, sel.Developer); err != nil {
		return out, fmt.Errorf("%s developer: %w", t.Key, err)
	}
	if t.Developers, err = dom.Text(ctx, s.doc, sel.Developers); err != nil {
		return out, fmt.Errorf("%s developers: %w", t.Key, err)
	}
	if t.Epic, err = dom.Text(ctx, s.doc, sel.Epic); err != nil {
		return out, fmt.Errorf("%s epic: %w", t.Key, err)
	}

	if s.cfg.Scrape.PullRequests {
		pr, err := s.pullRequest(ctx, t, &out)
		if err != nil {
			return out, fmt.Errorf("%s pull request: %w", t.Key, err)
		}
		t.PR = pr
	}

	s.log.Info("%s done. added developer: %s", t.Key, orNull(t.Developer))
	return out, nil
}

func orNull(s *string) string {
	if s == nil {
		return "null"
	}
	return *s
}
