// Package views renders the server-side HTML pages.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/arzan03/TourBooking/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// TemplateData is passed to every page.
type TemplateData struct {
	Title       string
	User        *models.User
	Tours       []*models.Tour
	Tour        *models.Tour
	Message     string
	Alert       string
	CurrentYear int
}

var funcs = template.FuncMap{
	"formatDate": func(t time.Time) string { return t.Format("January 2006") },
	"photoURL":   func(key string) string { return "/img/users/" + key },
	"firstName": func(name string) string {
		if f := strings.Fields(name); len(f) > 0 {
			return f[0]
		}
		return name
	},
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	cache map[string]*template.Template
}

func New() (*Renderer, error) {
	return newRenderer(templateFS)
}

func newRenderer(fsys fs.FS) (*Renderer, error) {
	pages, err := fs.Glob(fsys, "templates/*.page.tmpl")
	if err != nil {
		return nil, err
	}
	cache := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		ts, err := template.New(path.Base(page)).Funcs(funcs).ParseFS(fsys,
			"templates/base.layout.tmpl", "templates/*.partial.tmpl", page)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(path.Base(page), ".page.tmpl")
		cache[name] = ts
	}
	return &Renderer{cache: cache}, nil
}

// Render executes page into w. Nothing is written when rendering fails.
func (r *Renderer) Render(w io.Writer, page string, data *TemplateData) error {
	ts, ok := r.cache[page]
	if !ok {
		return fmt.Errorf("the template %s does not exist", page)
	}
	if data == nil {
		data = &TemplateData{}
	}
	if data.CurrentYear == 0 {
		data.CurrentYear = time.Now().Year()
	}

	buf := new(bytes.Buffer)
	if err := ts.ExecuteTemplate(buf, "base", data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
