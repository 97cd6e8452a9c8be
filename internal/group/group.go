// Package group partitions report tickets for the slide renderer.
package group

import (
	"sort"
	"strings"

	"sprintreview/internal/report"
)

// Options controls ByKey. Zero values fall back to the defaults documented
// on each field.
type Options struct {
	// GroupKey is the ticket field to partition on, e.g. "epic".
	GroupKey string
	// SortKey orders items inside a partition. Default "status".
	SortKey string
	// FilterStatus keeps only tickets in this status. Default "CLOSED";
	// set NoFilter to keep everything.
	FilterStatus string
	NoFilter     bool
	// NullValue names the bucket for tickets missing GroupKey, and stands in
	// for a missing SortKey. Default "unassigned".
	NullValue string
}

func (o Options) withDefaults() Options {
	if o.SortKey == "" {
		o.SortKey = "status"
	}
	if o.FilterStatus == "" && !o.NoFilter {
		o.FilterStatus = "CLOSED"
	}
	if o.NullValue == "" {
		o.NullValue = "unassigned"
	}
	return o
}

// Item is a ticket placed in a group, with its "<key> <summary>" label.
type Item struct {
	report.Ticket
	Issue string
}

// Group is one partition.
type Group struct {
	Key   string
	Items []Item
}

// ByKey filters, sorts and partitions tickets. Groups appear in order of
// their first item after sorting. The sort breaks ties on the ticket key, so
// the result does not depend on the input order.
func ByKey(tickets []report.Ticket, opts Options) []Group {
	opts = opts.withDefaults()

	kept := make([]report.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if !opts.NoFilter && t.Status != opts.FilterStatus {
			continue
		}
		kept = append(kept, t)
	}

	sortValue := func(t report.Ticket) string {
		if v := t.Field(opts.SortKey); v != "" {
			return v
		}
		return opts.NullValue
	}
	sort.SliceStable(kept, func(i, j int) bool {
		a, b := sortValue(kept[i]), sortValue(kept[j])
		if a != b {
			return strings.Compare(a, b) < 0
		}
		return kept[i].Key < kept[j].Key
	})

	var groups []Group
	index := make(map[string]int)
	for _, t := range kept {
		key := t.Field(opts.GroupKey)
		if key == "" {
			key = opts.NullValue
		}
		item := Item{Ticket: t, Issue: t.Key + " " + t.Summary}
		if i, ok := index[key]; ok {
			groups[i].Items = append(groups[i].Items, item)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, Group{Key: key, Items: []Item{item}})
	}
	return groups
}

// Keys returns the group keys in order.
func Keys(groups []Group) []string {
	keys := make([]string, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
	}
	return keys
}
