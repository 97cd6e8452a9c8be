package group

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprintreview/internal/report"
)

func strPtr(s string) *string { return &s }

func sampleTickets() []report.Ticket {
	return []report.Ticket{
		{Key: "K-1", Summary: "Zebra export", Status: "CLOSED", Epic: strPtr("Payments"), Developer: strPtr("Ada")},
		{Key: "K-2", Summary: "Apple login", Status: "CLOSED", Epic: strPtr("Auth"), Developer: strPtr("Lin")},
		{Key: "K-3", Summary: "Mango refund", Status: "CLOSED", Epic: strPtr("Payments")},
		{Key: "K-4", Summary: "Apple login", Status: "CLOSED", Epic: strPtr("Auth"), Developer: strPtr("Ada")},
		{Key: "K-5", Summary: "Orphan", Status: "CLOSED"},
		{Key: "K-6", Summary: "Still open", Status: "IN PROGRESS", Epic: strPtr("Auth")},
	}
}

func keysOf(g Group) []string {
	out := make([]string, len(g.Items))
	for i, it := range g.Items {
		out[i] = it.Key
	}
	return out
}

func TestByKey_EpicBySummary(t *testing.T) {
	groups := ByKey(sampleTickets(), Options{GroupKey: "epic", SortKey: "summary"})

	require.Equal(t, []string{"Auth", "Payments", "unassigned"}, Keys(groups))
	assert.Equal(t, []string{"K-2", "K-4"}, keysOf(groups[0]))
	assert.Equal(t, []string{"K-3", "K-1"}, keysOf(groups[1]))
	assert.Equal(t, []string{"K-5"}, keysOf(groups[2]))
	assert.Equal(t, "K-2 Apple login", groups[0].Items[0].Issue)
}

func TestByKey_FiltersStatus(t *testing.T) {
	groups := ByKey(sampleTickets(), Options{GroupKey: "epic"})
	for _, g := range groups {
		for _, it := range g.Items {
			assert.Equal(t, "CLOSED", it.Status)
		}
	}

	all := ByKey(sampleTickets(), Options{GroupKey: "epic", NoFilter: true})
	total := 0
	for _, g := range all {
		total += len(g.Items)
	}
	assert.Equal(t, 6, total)

	done := ByKey(sampleTickets(), Options{GroupKey: "epic", FilterStatus: "IN PROGRESS"})
	require.Len(t, done, 1)
	assert.Equal(t, "Auth", done[0].Key)
}

func TestByKey_DeveloperNullBucket(t *testing.T) {
	groups := ByKey(sampleTickets(), Options{GroupKey: "developer", NullValue: "nobody"})
	assert.ElementsMatch(t, []string{"Ada", "Lin", "nobody"}, Keys(groups))
}

func TestByKey_IndependentOfInputOrder(t *testing.T) {
	base := sampleTickets()
	want := ByKey(base, Options{GroupKey: "epic", SortKey: "summary"})

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]report.Ticket(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := ByKey(shuffled, Options{GroupKey: "epic", SortKey: "summary"})
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("grouping changed with input order (-want +got):\n%s", diff)
		}
	}
}

func TestByKey_DoesNotMutateInput(t *testing.T) {
	in := sampleTickets()
	ByKey(in, Options{GroupKey: "epic", SortKey: "summary"})
	assert.Equal(t, "K-1", in[0].Key)
	assert.Equal(t, "K-6", in[5].Key)
}

func TestByKey_Empty(t *testing.T) {
	assert.Empty(t, ByKey(nil, Options{GroupKey: "epic"}))
}
