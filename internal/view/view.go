// Package view renders the server-side HTML pages.
//
// Every page is parsed together with base.html: base defines the layout and
// calls {{template "content" .}}, which each page file defines. Pages are
// parsed once at startup and each gets its own template set, so their
// "content" definitions never collide.
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/sakif/project-showcase/internal/flash"
	"github.com/sakif/project-showcase/internal/model"
)

// Page names, matching templates/<name>.html.
const (
	PageAll      = "all"
	PageProject  = "project"
	PageProjects = "projects"
	PageCreate   = "create"
	PageSignIn   = "signin"
	PageError    = "error"
)

var pages = []string{PageAll, PageProject, PageProjects, PageCreate, PageSignIn, PageError}

// Data is what every page template receives. Fields a page does not use are
// left zero.
type Data struct {
	Title       string
	User        *model.User
	Flash       flash.Messages
	AuthEnabled bool

	Project *model.Project
	IsOwner bool

	List      *model.ProjectList
	Query     string
	PrevStart int
	NextStart int
	HasPrev   bool
	HasNext   bool

	// Status is the HTTP status shown on the error page.
	Status int
}

// Renderer holds the parsed page templates.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses templates/base.html and every page from fsys.
func New(fsys fs.FS) (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		tmpl, err := template.New("base.html").Funcs(Funcs()).ParseFS(fsys,
			"templates/base.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("view: parsing %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render executes page into w. The page is rendered to a buffer first so a
// template error never leaves a half-written response.
func (r *Renderer) Render(w io.Writer, page string, data Data) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("view: unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("view: rendering %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
