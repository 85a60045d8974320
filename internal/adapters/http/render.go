package web

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"noticeboard/internal/application/board"
	"noticeboard/internal/domain/notice"
)

//go:embed templates/*.html
var templateFS embed.FS

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// baseFuncs is overridden per request for request-bound helpers.
var baseFuncs = template.FuncMap{
	"renderMarkdown": renderMarkdown,
	"csrfField":      func() template.HTML { return "" },
}

var boardTemplate = template.Must(
	template.New("layout.html").Funcs(baseFuncs).ParseFS(templateFS, "templates/layout.html", "templates/board.html"),
)

// chip is one filter button with its count.
type chip struct {
	Filter notice.Filter
	Label  string
	Count  int
	Active bool
}

// boardPage is the view model for board.html.
type boardPage struct {
	Filter     notice.Filter
	Chips      []chip
	Notices    []notice.Notice
	Compose    bool
	Draft      notice.Draft
	Error      string
	Categories []notice.Category
}

// load fills the board-derived fields. Call inside Session.Do.
func (p *boardPage) load(b *board.Board) {
	counts := b.Counts()
	p.Chips = make([]chip, 0, len(notice.Filters))
	for _, f := range notice.Filters {
		p.Chips = append(p.Chips, chip{Filter: f, Label: f.Label(), Count: counts[f], Active: f == p.Filter})
	}
	p.Notices = collect(b, p.Filter)
	p.Categories = notice.ValidCategories
}

func renderBoard(w http.ResponseWriter, r *http.Request, status int, page boardPage) {
	tpl, err := boardTemplate.Clone()
	if err != nil {
		internalError(w, err)
		return
	}
	tpl.Funcs(template.FuncMap{
		"csrfField": func() template.HTML { return csrf.TemplateField(r) },
	})

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, page); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("render_aborted", "error", err.Error())
	}
}
