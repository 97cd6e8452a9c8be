// Package domtest provides an in-memory dom.Document for tests. Pages are
// described declaratively; waits resolve instantly.
package domtest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"sprintreview/internal/dom"
)

// Page describes what a loaded URL exposes.
type Page struct {
	// Visible lists selectors that AwaitSelector finds. Selectors with
	// entries in Texts are visible too.
	Visible map[string]bool
	// Texts holds the innerText of each match, in document order.
	Texts map[string][]string
	// Attrs holds property values keyed by "selector|name".
	Attrs map[string][]string
	// Classes holds the class list of the first match of a selector.
	Classes map[string][]string
	// Rows is returned by dom.QueryRows regardless of its arguments.
	Rows [][]string
	// OnClick runs when "selector#index" is clicked.
	OnClick map[string]func(d *Document)
}

// NewPage returns an empty page ready for the builder methods.
func NewPage() *Page {
	return &Page{
		Visible: make(map[string]bool),
		Texts:   make(map[string][]string),
		Attrs:   make(map[string][]string),
		Classes: make(map[string][]string),
		OnClick: make(map[string]func(d *Document)),
	}
}

// Show marks selectors as visible.
func (p *Page) Show(selectors ...string) *Page {
	for _, s := range selectors {
		p.Visible[s] = true
	}
	return p
}

// Hide removes selectors from the visible set.
func (p *Page) Hide(selectors ...string) *Page {
	for _, s := range selectors {
		delete(p.Visible, s)
	}
	return p
}

// Text sets the innerText of the matches of selector.
func (p *Page) Text(selector string, texts ...string) *Page {
	p.Texts[selector] = texts
	return p
}

// Attr sets property values for selector.
func (p *Page) Attr(selector, name string, values ...string) *Page {
	p.Attrs[selector+"|"+name] = values
	return p
}

// Class sets the class list of selector.
func (p *Page) Class(selector string, classes ...string) *Page {
	p.Classes[selector] = classes
	return p
}

// Click registers an effect for clicking the index-th match of selector.
func (p *Page) Click(selector string, index int, fn func(d *Document)) *Page {
	p.OnClick[clickKey(selector, index)] = fn
	return p
}

// NavigateOnClick makes a click load another URL, as a link would.
func (p *Page) NavigateOnClick(selector string, index int, url string) *Page {
	return p.Click(selector, index, func(d *Document) { d.navigate(url) })
}

func (p *Page) visible(selector string) bool {
	return p.Visible[selector] || len(p.Texts[selector]) > 0
}

func (p *Page) count(selector string) int {
	if n := len(p.Texts[selector]); n > 0 {
		return n
	}
	if p.Visible[selector] {
		return 1
	}
	return 0
}

func clickKey(selector string, index int) string {
	return fmt.Sprintf("%s#%d", selector, index)
}

// Wait records one AwaitSelector call.
type Wait struct {
	URL      string
	Selector string
	Timeout  time.Duration
	Result   dom.Presence
}

// Document is a fake dom.Document.
type Document struct {
	mu sync.Mutex

	Pages map[string]*Page
	// Errors injects failures: keyed by URL for Load, by selector for
	// AwaitSelector and Click, and by query name for Evaluate.
	Errors map[string]error

	url     string
	current *Page

	Loads  []string
	Waits  []Wait
	Clicks []string
	Evals  []string
}

// New returns a fake with no pages.
func New() *Document {
	return &Document{
		Pages:  make(map[string]*Page),
		Errors: make(map[string]error),
	}
}

// AddPage registers a page under url and returns it.
func (d *Document) AddPage(url string, p *Page) *Page {
	d.Pages[url] = p
	return p
}

// URL returns the currently loaded URL.
func (d *Document) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

// Current returns the currently loaded page.
func (d *Document) Current() *Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

func (d *Document) navigate(url string) {
	d.url = url
	if p, ok := d.Pages[url]; ok {
		d.current = p
		return
	}
	d.current = NewPage()
}

// Load implements dom.Document.
func (d *Document) Load(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Loads = append(d.Loads, url)
	if err := d.Errors[url]; err != nil {
		return err
	}
	d.navigate(url)
	return nil
}

// AwaitSelector implements dom.Document.
func (d *Document) AwaitSelector(ctx context.Context, selector string, timeout time.Duration) (dom.Presence, error) {
	if err := ctx.Err(); err != nil {
		return dom.TimedOut, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.Errors[selector]; err != nil {
		return dom.TimedOut, err
	}
	res := dom.TimedOut
	if d.current != nil && d.current.visible(selector) {
		res = dom.Found
	}
	d.Waits = append(d.Waits, Wait{URL: d.url, Selector: selector, Timeout: timeout, Result: res})
	return res, nil
}

// Evaluate implements dom.Document for the queries in the dom catalog.
func (d *Document) Evaluate(ctx context.Context, q dom.Query, args ...any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Evals = append(d.Evals, q.Name)
	if err := d.Errors[q.Name]; err != nil {
		return nil, err
	}
	p := d.current
	if p == nil {
		p = NewPage()
	}

	arg := func(i int) string {
		if i < len(args) {
			if s, ok := args[i].(string); ok {
				return s
			}
		}
		return ""
	}

	var v any
	switch q.Name {
	case dom.QueryText.Name:
		if texts := p.Texts[arg(0)]; len(texts) > 0 {
			v = texts[0]
		}
	case dom.QueryTexts.Name:
		v = nonNil(p.Texts[arg(0)])
	case dom.QueryAttrs.Name:
		v = nonNil(p.Attrs[arg(0)+"|"+arg(1)])
	case dom.QueryHasClass.Name:
		has := false
		for _, c := range p.Classes[arg(0)] {
			if c == arg(1) {
				has = true
			}
		}
		v = has
	case dom.QueryRows.Name:
		rows := p.Rows
		if rows == nil {
			rows = [][]string{}
		}
		v = rows
	default:
		return nil, fmt.Errorf("domtest: unsupported query %q", q.Name)
	}
	return json.Marshal(v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Click implements dom.Document.
func (d *Document) Click(ctx context.Context, selector string, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	key := clickKey(selector, index)
	d.Clicks = append(d.Clicks, key)
	if err := d.Errors[selector]; err != nil {
		return err
	}
	if d.current == nil || index < 0 || index >= d.current.count(selector) {
		return fmt.Errorf("click %s: %w", key, dom.ErrNoElement)
	}
	if fn := d.current.OnClick[key]; fn != nil {
		fn(d)
	}
	return nil
}

// Clicked reports whether "selector#index" was clicked.
func (d *Document) Clicked(selector string, index int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := clickKey(selector, index)
	for _, c := range d.Clicks {
		if c == key {
			return true
		}
	}
	return false
}

// WaitedFor reports whether AwaitSelector was called with selector while
// url was loaded.
func (d *Document) WaitedFor(url, selector string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, w := range d.Waits {
		if w.URL == url && w.Selector == selector {
			return true
		}
	}
	return false
}

// LoadedURLs returns the Load history joined for easy assertions.
func (d *Document) LoadedURLs() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.Join(d.Loads, ",")
}

var _ dom.Document = (*Document)(nil)
