package slides

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	markdownOnce sync.Once
	markdown     goldmark.Markdown
)

func getMarkdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return markdown
}

type htmlSlide struct {
	Kind  Kind
	Body  template.HTML
	Notes string
}

// htmlTheme marks the embedded images as trusted so data URIs survive
// escaping.
type htmlTheme struct {
	Theme
	TitleImage   template.URL
	SectionImage template.URL
	EndImage     template.URL
	Logo         template.URL
	LogoIcon     template.URL
}

type htmlDeck struct {
	Deck   *Deck
	Theme  htmlTheme
	Slides []htmlSlide
}

var pageTemplate = template.Must(template.New("deck").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="author" content="{{ .Deck.Author }}">
<meta name="revision" content="{{ .Deck.Revision }}">
<meta name="subject" content="{{ .Deck.Subject }}">
<title>{{ .Deck.Title }}</title>
<style>
body { margin: 0; background: #545454; font-family: {{ .Theme.Font }}, sans-serif; }
.slide { box-sizing: border-box; width: 960px; height: 540px; margin: 24px auto; padding: 48px; position: relative; overflow: hidden; background-size: contain; background-repeat: no-repeat; }
.slide h1, .slide h2 { font-family: {{ .Theme.FontDisplay }}, sans-serif; margin: 0 0 16px; }
.slide-title { color: {{ .Theme.TitleFont }}; background-color: {{ .Theme.TitleBackground }};{{ with .Theme.TitleImage }} background-image: url("{{ . }}");{{ end }} }
.slide-title h1 { font-size: 63px; }
.slide-title h2 { font-size: 45px; font-weight: normal; }
.slide-overview { color: {{ .Theme.TitleFont }}; background-color: {{ .Theme.TitleBackground }};{{ with .Theme.SectionImage }} background-image: url("{{ . }}");{{ end }} }
.slide-overview li::marker { content: "\2713  "; }
.slide-content { color: {{ .Theme.ContentFont }}; background-color: {{ .Theme.ContentBackground }}; padding-bottom: 72px; }
.slide-content h1 { font-size: 31px; white-space: nowrap; }
.slide-content strong { display: block; font-size: 11px; color: {{ .Theme.Primary }}; }
.slide-content img { max-width: 45%; max-height: 160px; float: right; margin: 4px; }
.slide-content .footer { position: absolute; left: 0; right: 0; bottom: 0; height: 40px; background: {{ .Theme.Secondary }}; color: #FFFFFF; }
.slide-content .footer img { float: right; height: 32px; margin: 4px 24px; }
.slide-end { color: {{ .Theme.EndFont }}; background-color: {{ .Theme.EndBackground }};{{ with .Theme.EndImage }} background-image: url("{{ . }}");{{ end }} text-align: center; padding-top: 200px; }
.logo { position: absolute; left: 48px; bottom: 24px; height: 62px; }
aside.notes { display: none; }
@media print { .slide { page-break-after: always; margin: 0; } body { background: none; } }
</style>
</head>
<body>
{{ range .Slides -}}
<section class="slide slide-{{ .Kind }}">
{{ .Body }}
{{- if eq .Kind "title" }}
<img class="logo" alt="" src="{{ $.Theme.Logo }}">
{{- end }}
{{- if eq .Kind "content" }}
<div class="footer"><img alt="" src="{{ $.Theme.LogoIcon }}"></div>
{{- end }}
{{- with .Notes }}
<aside class="notes">{{ . }}</aside>
{{- end }}
</section>
{{ end -}}
</body>
</html>
`))

// RenderHTML renders the deck as a single HTML page. Slide bodies go through
// the Markdown renderer; images are embedded so the file stands alone.
func RenderHTML(d *Deck, theme Theme) ([]byte, error) {
	view := htmlDeck{
		Deck: d,
		Theme: htmlTheme{
			Theme:        theme,
			TitleImage:   template.URL(theme.TitleImage),
			SectionImage: template.URL(theme.SectionImage),
			EndImage:     template.URL(theme.EndImage),
			Logo:         template.URL(theme.Logo),
			LogoIcon:     template.URL(theme.LogoIcon),
		},
		Slides: make([]htmlSlide, 0, len(d.Slides)),
	}
	for _, s := range d.Slides {
		md, err := SlideMarkdown(s)
		if err != nil {
			return nil, err
		}
		var body bytes.Buffer
		if err := getMarkdown().Convert([]byte(md), &body); err != nil {
			return nil, fmt.Errorf("convert %s slide %q: %w", s.Kind, s.Title, err)
		}
		view.Slides = append(view.Slides, htmlSlide{
			Kind:  s.Kind,
			Body:  template.HTML(body.String()),
			Notes: s.Notes,
		})
	}

	var out bytes.Buffer
	if err := pageTemplate.Execute(&out, view); err != nil {
		return nil, fmt.Errorf("render deck: %w", err)
	}
	return out.Bytes(), nil
}
