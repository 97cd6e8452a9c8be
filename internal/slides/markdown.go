package slides

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// SlideSeparator separates slides in the Markdown deck.
const SlideSeparator = "\n\n---\n\n"

var slideTemplates = template.Must(template.New("slides").Funcs(template.FuncMap{
	"md":  escapeMarkdown,
	"url": escapeDestination,
}).Parse(`
{{- define "title" -}}
# {{ md .Title }}

## {{ md .Subtitle }}
{{- with .Caption }}

{{ md . }}
{{- end }}
{{- end }}

{{- define "overview" -}}
# {{ md .Title }}
{{ range .Bullets }}
- {{ md .Text }}
{{- end }}
{{- end }}

{{- define "content" -}}
# {{ md .Title }}
{{ range .Bullets }}
- **{{ md .Label }}** {{ md .Text }}
{{- end }}
{{- range .Images }}

![](<{{ url . }}>)
{{- end }}
{{- with .Footer }}

_{{ md . }}_
{{- end }}
{{- end }}

{{- define "end" -}}
# {{ md .Title }}

## {{ md .Subtitle }}
{{- end }}
`))

// markdownSpecial holds the characters that can start inline Markdown or raw
// HTML. "!" is left alone: it only matters before "[", which is escaped.
const markdownSpecial = "\\`*_[]<>#|"

// escapeMarkdown backslash-escapes scraped text so it renders literally.
func escapeMarkdown(s string) string {
	if !strings.ContainsAny(s, markdownSpecial) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		if strings.ContainsRune(markdownSpecial, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// escapeDestination prepares a URL for a <...> link destination, where
// spaces and parentheses are allowed but angle brackets and line breaks are
// not.
func escapeDestination(s string) string {
	return strings.NewReplacer(
		"\\", "\\\\",
		"<", "\\<",
		">", "\\>",
		"\n", "%0A",
		"\r", "%0D",
	).Replace(s)
}

// SlideMarkdown renders the visible part of one slide.
func SlideMarkdown(s Slide) (string, error) {
	var buf bytes.Buffer
	if err := slideTemplates.ExecuteTemplate(&buf, string(s.Kind), s); err != nil {
		return "", fmt.Errorf("render %s slide %q: %w", s.Kind, s.Title, err)
	}
	return buf.String(), nil
}

// RenderMarkdown renders the deck with speaker notes as HTML comments.
func RenderMarkdown(d *Deck) ([]byte, error) {
	header := fmt.Sprintf("<!-- %s | %s | %s | rev %s -->\n\n", d.Title, d.Subject, d.Author, d.Revision)
	parts := make([]string, 0, len(d.Slides))
	for _, s := range d.Slides {
		md, err := SlideMarkdown(s)
		if err != nil {
			return nil, err
		}
		if s.Notes != "" {
			md += "\n\n<!-- notes\n" + strings.ReplaceAll(s.Notes, "-->", "-- >") + "\n-->"
		}
		parts = append(parts, md)
	}
	return []byte(header + strings.Join(parts, SlideSeparator) + "\n"), nil
}
