// Package slides turns a sprint report into a slide deck: a title slide, an
// overview of the epics, one slide per epic and developer, and a closing
// slide. Decks render to Markdown, to a self-contained HTML page and to the
// terminal.
package slides

import (
	"fmt"
	"strings"

	"sprintreview/internal/config"
	"sprintreview/internal/group"
	"sprintreview/internal/logging"
	"sprintreview/internal/report"
)

// TitleLimit bounds content slide titles, in characters.
const TitleLimit = 44

// Kind selects the layout of a slide.
type Kind string

const (
	KindTitle    Kind = "title"
	KindOverview Kind = "overview"
	KindContent  Kind = "content"
	KindEnd      Kind = "end"
)

// Bullet is one line of a slide body. Label is an optional small caption
// printed above the text, such as a ticket key.
type Bullet struct {
	Label string
	Text  string
}

// Slide is one page of the deck.
type Slide struct {
	Kind     Kind
	Title    string
	Subtitle string
	Caption  string
	Bullets  []Bullet
	Images   []string
	Footer   string
	Notes    string
}

// Deck is a built presentation.
type Deck struct {
	Title    string
	Subject  string
	Author   string
	Revision string
	Board    string
	Slides   []Slide
}

// Build lays out the deck for r. Only tickets in cfg.FilterStatus are shown
// (every ticket when it is empty); tickets without an epic or developer are
// collected under cfg.NullValue.
func Build(r *report.Report, cfg config.SlidesConfig) *Deck {
	d := &Deck{
		Title:    cfg.Title,
		Subject:  cfg.Subject,
		Author:   cfg.Author,
		Revision: cfg.Revision,
	}
	if r.BoardName != nil {
		d.Board = *r.BoardName
	}

	d.Slides = append(d.Slides, Slide{
		Kind:     KindTitle,
		Title:    cfg.Title,
		Subtitle: cfg.Subject,
		Caption:  r.SprintTitle,
	})

	opts := func(groupKey, sortKey string) group.Options {
		return group.Options{
			GroupKey:     groupKey,
			SortKey:      sortKey,
			FilterStatus: cfg.FilterStatus,
			NoFilter:     cfg.FilterStatus == "",
			NullValue:    cfg.NullValue,
		}
	}

	epics := group.ByKey(r.Tickets, opts("epic", "summary"))
	overview := Slide{Kind: KindOverview, Title: cfg.TextOverview}
	var notes []string
	for _, g := range epics {
		overview.Bullets = append(overview.Bullets, Bullet{Text: g.Key})
		notes = append(notes, "• "+g.Key)
		for _, it := range g.Items {
			notes = append(notes, "  ◦ "+it.Summary)
		}
	}
	overview.Notes = strings.Join(notes, "\n")
	d.Slides = append(d.Slides, overview)

	for _, epic := range epics {
		tickets := make([]report.Ticket, len(epic.Items))
		for i, it := range epic.Items {
			tickets[i] = it.Ticket
		}
		for _, dev := range group.ByKey(tickets, opts("developer", "")) {
			d.Slides = append(d.Slides, contentSlide(epic.Key, dev))
			logging.SlidesDebug("slide: %s %s %s %d/%d", epic.Key, keys(dev.Items), dev.Key, len(dev.Items), len(epic.Items))
		}
	}

	d.Slides = append(d.Slides, Slide{
		Kind:     KindEnd,
		Title:    cfg.TextEndThanks,
		Subtitle: cfg.TextEndCredits,
	})
	return d
}

func contentSlide(epic string, dev group.Group) Slide {
	s := Slide{
		Kind:   KindContent,
		Title:  TruncateWords(epic, TitleLimit),
		Footer: dev.Key,
	}
	var notes []string
	for _, it := range dev.Items {
		s.Bullets = append(s.Bullets, Bullet{Label: it.Key, Text: it.Summary})
		if it.PR == nil {
			continue
		}
		s.Images = append(s.Images, it.PR.Images...)
		if it.PR.Description != nil && *it.PR.Description != "" {
			notes = append(notes, fmt.Sprintf("%s: %s", it.ShortID(), *it.PR.Description))
		}
	}
	s.Notes = strings.Join(notes, "\n\n")
	return s
}

func keys(items []group.Item) string {
	ks := make([]string, len(items))
	for i, it := range items {
		ks[i] = it.Key
	}
	return strings.Join(ks, ", ")
}

// Counts reports how many slides of each kind the deck has.
func (d *Deck) Counts() map[Kind]int {
	out := make(map[Kind]int)
	for _, s := range d.Slides {
		out[s.Kind]++
	}
	return out
}

// TruncateWords shortens s to whole words that fit in fewer than limit
// characters. A first word that is already too long is cut at limit and
// marked with an ellipsis.
func TruncateWords(s string, limit int) string {
	var sb strings.Builder
	n := 0
	for _, w := range strings.Split(s, " ") {
		wl := len([]rune(w))
		switch {
		case n+wl < limit:
			sb.WriteString(w)
			sb.WriteByte(' ')
			n += wl + 1
		case n == 0:
			r := []rune(s)
			if len(r) > limit {
				r = r[:limit]
			}
			return string(r) + "…"
		default:
			return strings.TrimRight(sb.String(), " ")
		}
	}
	return strings.TrimRight(sb.String(), " ")
}
