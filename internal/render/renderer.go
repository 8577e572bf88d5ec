package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"time"

	"granabox/internal/core"
)

// Renderer executes the dashboard templates.
type Renderer struct {
	templates *template.Template
}

// Funcs are the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"monthName": MonthName,
		"dueClass":  core.DueClass,
		"year":      func() int { return time.Now().Year() },
		"add":       func(a, b int) int { return a + b },
	}
}

// New parses the templates matching patterns in fsys.
func New(fsys fs.FS, patterns ...string) (*Renderer, error) {
	if len(patterns) == 0 {
		patterns = []string{"templates/*.html"}
	}
	t, err := template.New("").Funcs(Funcs()).ParseFS(fsys, patterns...)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// Page renders the full index page.
func (r *Renderer) Page(w io.Writer, data Page) error {
	return r.Partial(w, "index.html", data)
}

// Partial executes the named template into w. Output is buffered so a failing
// template never writes a partial response.
func (r *Renderer) Partial(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Has reports whether a template with that name was parsed.
func (r *Renderer) Has(name string) bool {
	return r.templates.Lookup(name) != nil
}
