package scraper

import (
	"context"
	"strings"
	"time"

	"sprintreview/internal/dom"
	"sprintreview/internal/report"
)

// pullRequest walks from the issue page to the linked pull request and reads
// its description and images. Each missing element skips the rest of the
// walk and yields a nil pull request.
func (s *Scraper) pullRequest(ctx context.Context, t *report.Ticket, out *Outcome) (*report.PullRequest, error) {
	sel := s.cfg.Selectors

	ok, err := s.await(ctx, sel.DevPanelHeading, s.cfg.GetDevPanelTimeout())
	if err != nil || !ok {
		return nil, s.abandon(out, StageDevPanel, sel.DevPanelHeading, err)
	}

	collapsed, err := dom.HasClass(ctx, s.doc, sel.DevPanel, sel.CollapsedClass)
	if err != nil {
		return nil, err
	}
	if collapsed {
		if ok, err = s.awaitAndClick(ctx, sel.PanelToggle, 0, s.cfg.GetPanelToggleTimeout()); err != nil || !ok {
			return nil, s.abandon(out, StagePanelToggle, sel.PanelToggle, err)
		}
	}

	if ok, err = s.awaitAndClick(ctx, sel.PRLink, 0, s.cfg.GetPRLinkTimeout()); err != nil || !ok {
		return nil, s.abandon(out, StagePRLink, sel.PRLink, err)
	}

	ok, err = s.await(ctx, sel.PRListLink, s.cfg.GetPRListTimeout())
	if err != nil || !ok {
		return nil, s.abandon(out, StagePRList, sel.PRListLink, err)
	}
	links, err := dom.Texts(ctx, s.doc, sel.PRListLink)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, s.abandon(out, StagePRList, sel.PRListLink, nil)
	}
	idx := MatchPullRequest(links, t.ShortID())
	if idx < 0 {
		return nil, s.abandon(out, StagePRMatch, sel.PRListLink, nil)
	}
	if ok, err = s.click(ctx, sel.PRListLink, idx); err != nil || !ok {
		return nil, s.abandon(out, StagePRMatch, sel.PRListLink, err)
	}

	ok, err = s.await(ctx, sel.PRDescription, s.cfg.GetPRDescriptionTimeout())
	if err != nil || !ok {
		return nil, s.abandon(out, StagePRDescription, sel.PRDescription, err)
	}
	desc, err := dom.Text(ctx, s.doc, sel.PRDescription)
	if err != nil {
		return nil, err
	}
	imgs, err := dom.Attrs(ctx, s.doc, sel.PRDescription+" "+sel.PRImage, "src")
	if err != nil {
		return nil, err
	}
	s.log.Debug("%s pull request read, %d images", t.Key, len(imgs))
	return &report.PullRequest{Description: desc, Images: imgs}, nil
}

// abandon records a skip unless err is a document failure, which is returned
// unchanged.
func (s *Scraper) abandon(out *Outcome, stage Stage, selector string, err error) error {
	if err != nil {
		return err
	}
	s.skip(out, stage, selector)
	return nil
}

// awaitAndClick waits for selector and clicks its index-th match.
func (s *Scraper) awaitAndClick(ctx context.Context, selector string, index int, timeout time.Duration) (bool, error) {
	ok, err := s.await(ctx, selector, timeout)
	if err != nil || !ok {
		return false, err
	}
	return s.click(ctx, selector, index)
}

// MatchPullRequest picks the pull request link for a ticket. A single link is
// used as is; among several, the first whose text contains shortID wins. It
// returns -1 when nothing qualifies.
func MatchPullRequest(links []string, shortID string) int {
	switch len(links) {
	case 0:
		return -1
	case 1:
		return 0
	}
	for i, text := range links {
		if strings.Contains(text, shortID) {
			return i
		}
	}
	return -1
}
