// Package report holds the sprint report record produced by a scrape run:
// the ticket model, sprint title derivation, assembly and persistence.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"sprintreview/internal/logging"
)

// Ticket is one row of the sprint report. Key is set once by extraction;
// the pointer fields are filled in by enrichment and stay nil when the
// detail page does not expose them.
type Ticket struct {
	Key       string `json:"key"`
	Summary   string `json:"summary"`
	IssueType string `json:"issueType"`
	Priority  string `json:"priority"`
	Status    string `json:"status"`
	Points    string `json:"points"`

	Developer  *string      `json:"developer,omitempty"`
	Developers *string      `json:"developers,omitempty"`
	Epic       *string      `json:"epic,omitempty"`
	PR         *PullRequest `json:"pr,omitempty"`
}

// PullRequest is the content read from the pull request linked to a ticket.
type PullRequest struct {
	Description *string  `json:"description,omitempty"`
	Images      []string `json:"imgs"`
}

// ShortID returns the part of the key before its first space.
func (t Ticket) ShortID() string {
	for i := 0; i < len(t.Key); i++ {
		if t.Key[i] == ' ' {
			return t.Key[:i]
		}
	}
	return t.Key
}

// ClearEnrichment drops every enrichment field.
func (t *Ticket) ClearEnrichment() {
	t.Developer = nil
	t.Developers = nil
	t.Epic = nil
	t.PR = nil
}

// Field returns the named field as a string. Absent optional fields and
// unknown names return "".
func (t Ticket) Field(name string) string {
	switch name {
	case "key":
		return t.Key
	case "summary":
		return t.Summary
	case "issueType":
		return t.IssueType
	case "priority":
		return t.Priority
	case "status":
		return t.Status
	case "points":
		return t.Points
	case "developer":
		return deref(t.Developer)
	case "developers":
		return deref(t.Developers)
	case "epic":
		return deref(t.Epic)
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Report is the persisted artifact of one scrape run.
type Report struct {
	BoardName   *string  `json:"boardName,omitempty"`
	SprintLabel *string  `json:"sprintLabel,omitempty"`
	SprintTitle string   `json:"sprintTitle"`
	Tickets     []Ticket `json:"tickets"`
}

// Assemble combines the scraped header values and enriched tickets into a
// Report, deriving the display title from the sprint label.
func Assemble(boardName, sprintLabel *string, tickets []Ticket, markers Markers) *Report {
	if tickets == nil {
		tickets = []Ticket{}
	}
	title := ""
	if sprintLabel != nil {
		title = markers.Derive(*sprintLabel)
	}
	return &Report{
		BoardName:   boardName,
		SprintLabel: sprintLabel,
		SprintTitle: title,
		Tickets:     tickets,
	}
}

// Save writes the report as indented JSON, replacing any previous file.
func Save(path string, r *Report) error {
	if r == nil {
		return errors.New("nil report")
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	logging.Report("saved report %s (%d tickets)", path, len(r.Tickets))
	return nil
}

// Load reads a report file. Files holding a bare ticket array (the format
// written before reports carried sprint metadata) are accepted too.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var tickets []Ticket
		if err := json.Unmarshal(trimmed, &tickets); err != nil {
			return nil, fmt.Errorf("parse ticket list %s: %w", path, err)
		}
		return &Report{Tickets: tickets}, nil
	}

	var r Report
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	if r.Tickets == nil {
		r.Tickets = []Ticket{}
	}
	return &r, nil
}
