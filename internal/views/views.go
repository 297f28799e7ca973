// Package views renders the site's HTML pages from embedded templates.
// Informational pages are kept as Markdown and converted once at startup.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/Dan9191/vaccine-booking/internal/forms"
	"github.com/Dan9191/vaccine-booking/internal/models"
)

//go:embed templates/*.html content/*.md
var files embed.FS

const layoutFile = "templates/layout.html"

// InfoPage is a static page served from content/<Slug>.md
type InfoPage struct {
	Path  string
	Slug  string
	Title string
}

// InfoPages lists the informational pages in navigation order
var InfoPages = []InfoPage{
	{"/", "home", "Home"},
	{"/keyThings", "keyThings", "Key Things to Know"},
	{"/benefits", "benefits", "Benefits"},
	{"/info", "info", "Vaccine Info"},
	{"/safety", "safety", "Safety"},
	{"/efficiency", "efficiency", "Efficiency"},
	{"/vaccinesToYou", "vaccinesToYou", "Vaccines to You"},
}

// TemplateData is passed to every page
type TemplateData struct {
	Title        string
	Path         string
	CurrentUser  *models.User
	Flashes      []models.Flash
	CSRFField    template.HTML
	Content      template.HTML
	Form         any
	Errors       forms.Errors
	Next         string
	Appointments []models.Appointment
	DoseChoices  []forms.Choice
	AgeChoices   []forms.Choice
	Nav          []InfoPage
}

var functions = template.FuncMap{
	"errorFor": func(errs forms.Errors, field string) string {
		return errs.Get(field)
	},
	"invalid": func(errs forms.Errors, field string) string {
		if errs.Get(field) != "" {
			return " is-invalid"
		}
		return ""
	},
	"alertClass": func(category string) string {
		switch category {
		case models.FlashDanger:
			return "alert-danger"
		case models.FlashInfo:
			return "alert-info"
		}
		return "alert-success"
	},
}

// markdown is configured without WithUnsafe, so raw HTML in content is escaped
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Renderer holds parsed templates and rendered Markdown
type Renderer struct {
	pages   map[string]*template.Template
	content map[string]template.HTML
}

// New parses every page against the layout and converts the Markdown pages
func New() (*Renderer, error) {
	r := &Renderer{
		pages:   make(map[string]*template.Template),
		content: make(map[string]template.HTML),
	}

	pageFiles, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}
	for _, file := range pageFiles {
		if file == layoutFile {
			continue
		}
		ts, err := template.New("").Funcs(functions).ParseFS(files, layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(file, "templates/"), ".html")
		r.pages[name] = ts
	}

	for _, p := range InfoPages {
		src, err := files.ReadFile("content/" + p.Slug + ".md")
		if err != nil {
			return nil, fmt.Errorf("failed to read content for %s: %w", p.Slug, err)
		}
		var buf bytes.Buffer
		if err := markdown.Convert(src, &buf); err != nil {
			return nil, fmt.Errorf("failed to convert %s: %w", p.Slug, err)
		}
		r.content[p.Slug] = template.HTML(buf.String())
	}

	return r, nil
}

// Content returns the rendered Markdown for an informational page
func (r *Renderer) Content(slug string) (template.HTML, bool) {
	html, ok := r.content[slug]
	return html, ok
}

// Render executes page into a buffer first so a template failure never
// leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data *TemplateData) error {
	ts, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("the template %s does not exist", page)
	}
	if data == nil {
		data = &TemplateData{}
	}
	if data.Nav == nil {
		data.Nav = InfoPages
	}

	buf := new(bytes.Buffer)
	if err := ts.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
