package dom

import (
	"context"
	"encoding/json"
	"fmt"
)

// Query is a read-only script evaluated in the page. Name identifies the
// query for implementations that do not run JavaScript.
type Query struct {
	Name string
	JS   string
}

// The catalog of queries the scraper uses. Every script is a function
// expression taking its arguments positionally.
var (
	// QueryText returns the innerText of the first match, or null.
	QueryText = Query{
		Name: "text",
		JS: `(sel) => {
			const el = document.querySelector(sel);
			return el ? el.innerText : null;
		}`,
	}

	// QueryTexts returns the innerText of every match.
	QueryTexts = Query{
		Name: "texts",
		JS: `(sel) => Array.from(document.querySelectorAll(sel)).map(el => el.innerText)`,
	}

	// QueryAttrs returns a property (falling back to the attribute) of every
	// match. Properties give resolved URLs for src/href.
	QueryAttrs = Query{
		Name: "attrs",
		JS: `(sel, name) => Array.from(document.querySelectorAll(sel))
			.map(el => el[name] || el.getAttribute(name) || '')`,
	}

	// QueryHasClass reports whether the first match carries a class.
	QueryHasClass = Query{
		Name: "hasClass",
		JS: `(sel, cls) => {
			const el = document.querySelector(sel);
			return !!el && el.classList.contains(cls);
		}`,
	}

	// QueryRows returns the cell texts of every row.
	QueryRows = Query{
		Name: "rows",
		JS: `(rowSel, cellSel) => Array.from(document.querySelectorAll(rowSel))
			.map(tr => Array.from(tr.querySelectorAll(cellSel)).map(td => td.innerText))`,
	}
)

// Text evaluates QueryText. A missing element yields nil.
func Text(ctx context.Context, d Document, selector string) (*string, error) {
	var v *string
	if err := evalInto(ctx, d, &v, QueryText, selector); err != nil {
		return nil, err
	}
	return v, nil
}

// Texts evaluates QueryTexts.
func Texts(ctx context.Context, d Document, selector string) ([]string, error) {
	var v []string
	if err := evalInto(ctx, d, &v, QueryTexts, selector); err != nil {
		return nil, err
	}
	return v, nil
}

// Attrs evaluates QueryAttrs, dropping empty values.
func Attrs(ctx context.Context, d Document, selector, name string) ([]string, error) {
	var raw []string
	if err := evalInto(ctx, d, &raw, QueryAttrs, selector, name); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

// HasClass evaluates QueryHasClass.
func HasClass(ctx context.Context, d Document, selector, class string) (bool, error) {
	var v bool
	if err := evalInto(ctx, d, &v, QueryHasClass, selector, class); err != nil {
		return false, err
	}
	return v, nil
}

// Rows evaluates QueryRows.
func Rows(ctx context.Context, d Document, rowSelector, cellSelector string) ([][]string, error) {
	var v [][]string
	if err := evalInto(ctx, d, &v, QueryRows, rowSelector, cellSelector); err != nil {
		return nil, err
	}
	return v, nil
}

func evalInto(ctx context.Context, d Document, dst any, q Query, args ...any) error {
	raw, err := d.Evaluate(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", q.Name, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s result: %w", q.Name, err)
	}
	return nil
}
