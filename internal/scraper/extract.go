package scraper

import (
	"context"

	"sprintreview/internal/dom"
	"sprintreview/internal/logging"
	"sprintreview/internal/report"
)

// Extract reads the ticket rows of the loaded sprint report.
func (s *Scraper) Extract(ctx context.Context) ([]report.Ticket, error) {
	sel := s.cfg.Selectors
	rows, err := dom.Rows(ctx, s.doc, sel.ReportRow, sel.ReportCell)
	if err != nil {
		return nil, err
	}
	columns := s.cfg.GetTableColumns()
	tickets := TicketsFromRows(rows, columns)
	logging.Scrape("%d of %d table rows are tickets", len(tickets), len(rows))
	if len(tickets) == 0 && len(rows) > 0 {
		logging.ScrapeWarn("no row has %d cells, check table_columns", columns)
	}
	return tickets, nil
}

// TicketsFromRows maps table rows to tickets by position. Rows whose cell
// count differs from columns are header, spacer or malformed rows and are
// dropped. Cell text is taken as is; a narrower table leaves the trailing
// fields empty.
func TicketsFromRows(rows [][]string, columns int) []report.Ticket {
	tickets := make([]report.Ticket, 0, len(rows))
	for _, cells := range rows {
		if len(cells) != columns {
			continue
		}
		cell := func(i int) string {
			if i < len(cells) {
				return cells[i]
			}
			return ""
		}
		tickets = append(tickets, report.Ticket{
			Key:       cell(0),
			Summary:   cell(1),
			IssueType: cell(2),
			Priority:  cell(3),
			Status:    cell(4),
			Points:    cell(5),
		})
	}
	return tickets
}
