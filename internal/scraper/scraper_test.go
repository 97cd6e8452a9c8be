package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"sprintreview/internal/config"
	"sprintreview/internal/dom"
	"sprintreview/internal/dom/domtest"
	"sprintreview/internal/logging"
	"sprintreview/internal/report"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	issueBase = "https://jira.example/browse/"
	reportURL = "https://jira.example/secure/RapidBoard.jspa?view=reporting&chart=sprintRetrospective"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Tracker.IssueURL = issueBase
	cfg.Tracker.SprintReportURL = reportURL
	return cfg
}

func strp(s string) *string { return &s }

// issuePage returns an issue page with a people module. Empty values leave
// the field out of the page.
func issuePage(cfg *config.Config, developer, developers, epic string) *domtest.Page {
	sel := cfg.Selectors
	p := domtest.NewPage().Show(sel.PeopleModule)
	if developer != "" {
		p.Text(sel.Developer, developer)
	}
	if developers != "" {
		p.Text(sel.Developers, developers)
	}
	if epic != "" {
		p.Text(sel.Epic, epic)
	}
	return p
}

// withPullRequests adds a collapsed development panel whose pull request
// link opens a list of links. Clicking link i navigates to prURLs[i].
func withPullRequests(cfg *config.Config, p *domtest.Page, links []string, prURLs []string) *domtest.Page {
	sel := cfg.Selectors
	p.Show(sel.DevPanelHeading, sel.PanelToggle, sel.PRLink).
		Class(sel.DevPanel, "module", sel.CollapsedClass)
	p.Click(sel.PanelToggle, 0, func(d *domtest.Document) {
		p.Class(sel.DevPanel, "module")
	})
	p.Click(sel.PRLink, 0, func(d *domtest.Document) {
		p.Text(sel.PRListLink, links...)
	})
	for i, u := range prURLs {
		p.NavigateOnClick(sel.PRListLink, i, u)
	}
	return p
}

func prPage(cfg *config.Config, description string, imgs ...string) *domtest.Page {
	sel := cfg.Selectors
	return domtest.NewPage().
		Text(sel.PRDescription, description).
		Attr(sel.PRDescription+" "+sel.PRImage, "src", imgs...)
}

func TestTicketsFromRows(t *testing.T) {
	rows := [][]string{
		{"Key", "Summary", "Issue Type", "Priority", "Status"},
		{"KEY-1", "Fix bug", "Bug", "High", "Done", "3"},
		{},
		{"KEY-2", "", "Story", "", "CLOSED", ""},
		{"KEY-3", "Too", "many", "cells", "in", "this", "row"},
	}

	got := TicketsFromRows(rows, 6)
	want := []report.Ticket{
		{Key: "KEY-1", Summary: "Fix bug", IssueType: "Bug", Priority: "High", Status: "Done", Points: "3"},
		{Key: "KEY-2", IssueType: "Story", Status: "CLOSED"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TicketsFromRows mismatch (-want +got):\n%s", diff)
	}

	// A row is kept iff its width matches.
	for _, cols := range []int{0, 1, 5, 6, 7} {
		n := 0
		for _, r := range rows {
			if len(r) == cols {
				n++
			}
		}
		assert.Len(t, TicketsFromRows(rows, cols), n, "columns=%d", cols)
	}

	narrow := TicketsFromRows([][]string{{"KEY-9", "Only two"}}, 2)
	require.Len(t, narrow, 1)
	assert.Equal(t, "KEY-9", narrow[0].Key)
	assert.Equal(t, "", narrow[0].Points)
}

func TestMatchPullRequest(t *testing.T) {
	tests := []struct {
		name    string
		links   []string
		shortID string
		want    int
	}{
		{"none", nil, "KEY-1", -1},
		{"single is used without matching", []string{"Unrelated title"}, "KEY-1", 0},
		{"substring match takes the first hit", []string{"KEY-10 other", "KEY-1 fix"}, "KEY-1", 0},
		{"exact match later", []string{"chore: bump", "KEY-7 fix login"}, "KEY-7", 1},
		{"no match among several", []string{"a", "b"}, "KEY-1", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchPullRequest(tt.links, tt.shortID))
		})
	}
}

func TestEnrichTicketPeopleModuleTimeout(t *testing.T) {
	cfg := testConfig()
	doc := domtest.New()
	doc.AddPage(issueBase+"KEY-1", domtest.NewPage())

	tk := report.Ticket{Key: "KEY-1", Developer: strp("stale"), PR: &report.PullRequest{}}
	out, err := New(doc, cfg).EnrichTicket(context.Background(), &tk)
	require.NoError(t, err)

	assert.Nil(t, tk.Developer)
	assert.Nil(t, tk.Developers)
	assert.Nil(t, tk.Epic)
	assert.Nil(t, tk.PR)
	assert.Equal(t, "KEY-1", tk.Key)

	require.Len(t, out.Skips, 1)
	assert.Equal(t, Skip{Key: "KEY-1", Stage: StagePeopleModule, Selector: cfg.Selectors.PeopleModule}, out.Skips[0])

	// Nothing after the people module is attempted.
	require.Len(t, doc.Waits, 1)
	assert.Equal(t, 30*time.Second, doc.Waits[0].Timeout)
	assert.Empty(t, doc.Evals)
}

func TestEnrichTicketIndependentFields(t *testing.T) {
	cfg := testConfig()
	cfg.Scrape.PullRequests = false
	doc := domtest.New()
	doc.AddPage(issueBase+"KEY-1", issuePage(cfg, "Ada", "", "Payments"))

	tk := report.Ticket{Key: "KEY-1"}
	out, err := New(doc, cfg).EnrichTicket(context.Background(), &tk)
	require.NoError(t, err)

	require.NotNil(t, tk.Developer)
	assert.Equal(t, "Ada", *tk.Developer)
	assert.Nil(t, tk.Developers)
	require.NotNil(t, tk.Epic)
	assert.Equal(t, "Payments", *tk.Epic)
	assert.Nil(t, tk.PR)
	assert.Empty(t, out.Skips)
	assert.False(t, doc.WaitedFor(issueBase+"KEY-1", cfg.Selectors.DevPanelHeading))
}

func TestEnrichTicketPullRequest(t *testing.T) {
	cfg := testConfig()
	doc := domtest.New()
	issue := issuePage(cfg, "Ada", "Ada, Linus", "Auth")
	withPullRequests(cfg, issue,
		[]string{"KEY-2 unrelated", "KEY-1 add login form"},
		[]string{"https://git/pr/10", "https://git/pr/1"})
	doc.AddPage(issueBase+"KEY-1 Login", issue)
	doc.AddPage("https://git/pr/10", prPage(cfg, "wrong"))
	doc.AddPage("https://git/pr/1", prPage(cfg, "Adds the login form", "https://git/img/a.png", "https://git/img/b.png"))

	tk := report.Ticket{Key: "KEY-1 Login"}
	out, err := New(doc, cfg).EnrichTicket(context.Background(), &tk)
	require.NoError(t, err)
	assert.Empty(t, out.Skips)

	sel := cfg.Selectors
	assert.True(t, doc.Clicked(sel.PanelToggle, 0), "collapsed panel is expanded")
	assert.True(t, doc.Clicked(sel.PRLink, 0))
	assert.True(t, doc.Clicked(sel.PRListLink, 1), "link containing the short id is chosen")
	assert.False(t, doc.Clicked(sel.PRListLink, 0))

	want := &report.PullRequest{
		Description: strp("Adds the login form"),
		Images:      []string{"https://git/img/a.png", "https://git/img/b.png"},
	}
	if diff := cmp.Diff(want, tk.PR); diff != "" {
		t.Errorf("PR mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Ada, Linus", *tk.Developers)
}

func TestEnrichTicketExpandedPanelSkipsToggle(t *testing.T) {
	cfg := testConfig()
	doc := domtest.New()
	issue := issuePage(cfg, "Ada", "", "")
	withPullRequests(cfg, issue, []string{"Only PR"}, []string{"https://git/pr/1"})
	issue.Class(cfg.Selectors.DevPanel, "module")
	doc.AddPage(issueBase+"KEY-1", issue)
	doc.AddPage("https://git/pr/1", prPage(cfg, "Body"))

	tk := report.Ticket{Key: "KEY-1"}
	_, err := New(doc, cfg).EnrichTicket(context.Background(), &tk)
	require.NoError(t, err)

	assert.False(t, doc.Clicked(cfg.Selectors.PanelToggle, 0))
	require.NotNil(t, tk.PR)
	assert.NotNil(t, tk.PR.Images)
	assert.Empty(t, tk.PR.Images)
}

func TestEnrichTicketDevPanelTimeoutKeepsPeopleFields(t *testing.T) {
	cfg := testConfig()
	doc := domtest.New()
	doc.AddPage(issueBase+"KEY-1", issuePage(cfg, "Ada", "Ada, Linus", "Auth"))

	tk := report.Ticket{Key: "KEY-1"}
	out, err := New(doc, cfg).EnrichTicket(context.Background(), &tk)
	require.NoError(t, err)

	assert.Nil(t, tk.PR)
	assert.Equal(t, "Ada", *tk.Developer)
	assert.Equal(t, "Ada, Linus", *tk.Developers)
	assert.Equal(t, "Auth", *tk.Epic)
	assert.True(t, out.Skipped(StageDevPanel))
	assert.Len(t, out.Skips, 1)
}

func TestEnrichTicketPullRequestSkips(t *testing.T) {
	tests := []struct {
		name  string
		setup func(cfg *config.Config, p *domtest.Page)
		stage Stage
	}{
		{
			name: "toggle missing",
			setup: func(cfg *config.Config, p *domtest.Page) {
				withPullRequests(cfg, p, []string{"KEY-1"}, nil)
				p.Hide(cfg.Selectors.PanelToggle)
			},
			stage: StagePanelToggle,
		},
		{
			name: "no pull request link",
			setup: func(cfg *config.Config, p *domtest.Page) {
				withPullRequests(cfg, p, []string{"KEY-1"}, nil)
				p.Hide(cfg.Selectors.PRLink)
			},
			stage: StagePRLink,
		},
		{
			name: "list never renders",
			setup: func(cfg *config.Config, p *domtest.Page) {
				withPullRequests(cfg, p, nil, nil)
			},
			stage: StagePRList,
		},
		{
			name: "several links none matching",
			setup: func(cfg *config.Config, p *domtest.Page) {
				withPullRequests(cfg, p, []string{"KEY-2 a", "KEY-3 b"}, []string{"https://git/pr/2", "https://git/pr/3"})
			},
			stage: StagePRMatch,
		},
		{
			name: "description missing",
			setup: func(cfg *config.Config, p *domtest.Page) {
				withPullRequests(cfg, p, []string{"KEY-1"}, []string{"https://git/pr/empty"})
			},
			stage: StagePRDescription,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			doc := domtest.New()
			issue := issuePage(cfg, "Ada", "", "Auth")
			tt.setup(cfg, issue)
			doc.AddPage(issueBase+"KEY-1", issue)

			tk := report.Ticket{Key: "KEY-1"}
			out, err := New(doc, cfg).EnrichTicket(context.Background(), &tk)
			require.NoError(t, err)

			assert.Nil(t, tk.PR)
			assert.Equal(t, "Ada", *tk.Developer)
			assert.Equal(t, "Auth", *tk.Epic)
			require.Len(t, out.Skips, 1)
			assert.Equal(t, tt.stage, out.Skips[0].Stage)
		})
	}
}

func TestEnrichTicketDocumentErrorPropagates(t *testing.T) {
	cfg := testConfig()
	boom := errors.New("target closed")
	doc := domtest.New()
	doc.AddPage(issueBase+"KEY-1", issuePage(cfg, "Ada", "", ""))
	doc.Errors[dom.QueryText.Name] = boom

	tk := report.Ticket{Key: "KEY-1"}
	_, err := New(doc, cfg).EnrichTicket(context.Background(), &tk)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "KEY-1")
}

func TestEnrichAllInOrderAndStopsOnError(t *testing.T) {
	cfg := testConfig()
	cfg.Scrape.PullRequests = false
	doc := domtest.New()
	doc.AddPage(issueBase+"A-1", issuePage(cfg, "Ada", "", ""))
	doc.AddPage(issueBase+"A-3", issuePage(cfg, "Grace", "", ""))

	tickets := []report.Ticket{{Key: "A-1"}, {Key: "A-2"}, {Key: "A-3"}}
	outcomes, err := New(doc, cfg).EnrichAll(context.Background(), tickets)
	require.NoError(t, err)

	assert.Equal(t, issueBase+"A-1,"+issueBase+"A-2,"+issueBase+"A-3", doc.LoadedURLs())
	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[1].Skipped(StagePeopleModule))
	assert.Equal(t, "Ada", *tickets[0].Developer)
	assert.Nil(t, tickets[1].Developer)
	assert.Equal(t, "Grace", *tickets[2].Developer)

	doc.Errors[issueBase+"A-2"] = errors.New("net::ERR_CONNECTION_RESET")
	outcomes, err = New(doc, cfg).EnrichAll(context.Background(), tickets)
	require.Error(t, err)
	assert.Len(t, outcomes, 1)
}

func TestEnrichTicketReplacesPreviousValues(t *testing.T) {
	cfg := testConfig()
	cfg.Scrape.PullRequests = false
	doc := domtest.New()
	page := issuePage(cfg, "Ada", "", "Auth")
	doc.AddPage(issueBase+"KEY-1", page)

	s := New(doc, cfg)
	tk := report.Ticket{Key: "KEY-1"}
	_, err := s.EnrichTicket(context.Background(), &tk)
	require.NoError(t, err)
	require.NotNil(t, tk.Epic)

	delete(page.Texts, cfg.Selectors.Epic)
	_, err = s.EnrichTicket(context.Background(), &tk)
	require.NoError(t, err)
	assert.Equal(t, "Ada", *tk.Developer)
	assert.Nil(t, tk.Epic)
}

func TestEnrichTicketCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tk := report.Ticket{Key: "KEY-1"}
	_, err := New(domtest.New(), testConfig()).EnrichTicket(ctx, &tk)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig()
	sel := cfg.Selectors
	doc := domtest.New()
	board := domtest.NewPage().
		Show(sel.ReportTable).
		Text(sel.BoardName, "Checkout Board").
		Text(sel.SprintLabel, "XM2 YS3")
	board.Rows = [][]string{
		{"Key", "Summary"},
		{"KEY-1", "Fix bug", "Bug", "High", "Done", "3"},
	}
	doc.AddPage(reportURL, board)

	res, err := New(doc, cfg).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Report)
	assert.NotEmpty(t, res.RunID)

	want := &report.Report{
		BoardName:   strp("Checkout Board"),
		SprintLabel: strp("XM2 YS3"),
		SprintTitle: "Milestone 2 Sprint 3 in review",
		Tickets: []report.Ticket{
			{Key: "KEY-1", Summary: "Fix bug", IssueType: "Bug", Priority: "High", Status: "Done", Points: "3"},
		},
	}
	if diff := cmp.Diff(want, res.Report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, res.SkipCount())
	assert.True(t, res.Outcomes[0].Skipped(StagePeopleModule))
}

func TestRunMissingTable(t *testing.T) {
	doc := domtest.New()
	doc.AddPage(reportURL, domtest.NewPage())

	_, err := New(doc, testConfig()).Run(context.Background())
	assert.ErrorIs(t, err, ErrReportTableMissing)
}

func TestRunWithoutLabel(t *testing.T) {
	cfg := testConfig()
	doc := domtest.New()
	doc.AddPage(reportURL, domtest.NewPage().Show(cfg.Selectors.ReportTable))

	res, err := New(doc, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res.Report.BoardName)
	assert.Nil(t, res.Report.SprintLabel)
	assert.Equal(t, "", res.Report.SprintTitle)
	assert.NotNil(t, res.Report.Tickets)
	assert.Empty(t, res.Report.Tickets)
}

func TestRunLoadFailure(t *testing.T) {
	doc := domtest.New()
	doc.Errors[reportURL] = errors.New("net::ERR_NAME_NOT_RESOLVED")

	_, err := New(doc, testConfig()).Run(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrReportTableMissing)
	assert.Contains(t, err.Error(), "load sprint report")
}

func TestExtractLogsRowCounts(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(nil) })

	ctx := context.Background()
	doc := domtest.New()
	page := domtest.NewPage()
	page.Rows = [][]string{{"Key", "Summary"}, {"KEY-1", "Fix bug"}}
	doc.AddPage(reportURL, page)
	require.NoError(t, doc.Load(ctx, reportURL))

	tickets, err := New(doc, testConfig()).Extract(ctx)
	require.NoError(t, err)
	assert.Empty(t, tickets)

	assert.Equal(t, 1, logs.FilterMessage("0 of 2 table rows are tickets").Len())
	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "no row has 6 cells, check table_columns", warnings[0].Message)
	assert.Equal(t, "scrape", warnings[0].ContextMap()["cat"])
}
