package dom_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprintreview/internal/dom"
	"sprintreview/internal/dom/domtest"
)

func loaded(t *testing.T, p *domtest.Page) *domtest.Document {
	t.Helper()
	d := domtest.New()
	d.AddPage("https://jira/page", p)
	require.NoError(t, d.Load(context.Background(), "https://jira/page"))
	return d
}

func TestTextMissingIsNil(t *testing.T) {
	ctx := context.Background()
	d := loaded(t, domtest.NewPage().Text("#name", "Board A", "Board B"))

	got, err := dom.Text(ctx, d, "#name")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Board A", *got)

	got, err = dom.Text(ctx, d, "#absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTextsAndAttrs(t *testing.T) {
	ctx := context.Background()
	d := loaded(t, domtest.NewPage().
		Text("a.pr", "PR one", "PR two").
		Attr(".desc img", "src", "https://img/1.png", "", "https://img/2.png"))

	texts, err := dom.Texts(ctx, d, "a.pr")
	require.NoError(t, err)
	assert.Equal(t, []string{"PR one", "PR two"}, texts)

	srcs, err := dom.Attrs(ctx, d, ".desc img", "src")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img/1.png", "https://img/2.png"}, srcs)

	srcs, err = dom.Attrs(ctx, d, ".other img", "src")
	require.NoError(t, err)
	assert.NotNil(t, srcs)
	assert.Empty(t, srcs)
}

func TestHasClassAndRows(t *testing.T) {
	ctx := context.Background()
	p := domtest.NewPage().Class("#panel", "module", "collapsed")
	p.Rows = [][]string{{"a", "b"}, {"c"}}
	d := loaded(t, p)

	has, err := dom.HasClass(ctx, d, "#panel", "collapsed")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = dom.HasClass(ctx, d, "#panel", "expanded")
	require.NoError(t, err)
	assert.False(t, has)

	rows, err := dom.Rows(ctx, d, "tr", "td")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, rows)
}

func TestEvaluateErrorIsWrapped(t *testing.T) {
	boom := errors.New("target closed")
	d := loaded(t, domtest.NewPage())
	d.Errors[dom.QueryTexts.Name] = boom

	_, err := dom.Texts(context.Background(), d, "a")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "evaluate texts")
}

func TestFakeClickOutOfRange(t *testing.T) {
	d := loaded(t, domtest.NewPage().Text("a.pr", "only"))

	err := d.Click(context.Background(), "a.pr", 1)
	assert.ErrorIs(t, err, dom.ErrNoElement)
	assert.NoError(t, d.Click(context.Background(), "a.pr", 0))
}

func TestPresenceString(t *testing.T) {
	assert.Equal(t, "found", dom.Found.String())
	assert.Equal(t, "timed out", dom.TimedOut.String())
}
