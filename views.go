package pubgarden

import (
	"context"
	"html/template"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// PageData is what a page component receives for one matched route.
type PageData struct {
	Site    SiteConfig
	Route   Route
	Meta    PageMeta
	Entry   *Entry             // nil for static pages
	Body    templ.Component    // rendered entry body, nil for static pages
	Lists   map[string][]Entry // collection -> entries, for index pages
	Linking []Entry            // entries referencing Entry, e.g. posts of a category
	Related []Entry            // same-collection entries sharing a reference target
	Links   map[string]string  // "Collection/id" -> route path
}

// PageFunc renders one page unit.
type PageFunc func(PageData) templ.Component

// ViewFuncs holds the page components the server resolves route page names
// against. Unknown page names fall back to Default.
type ViewFuncs struct {
	Pages       map[string]PageFunc
	Default     PageFunc
	NotFound    PageFunc
	ServerError func() templ.Component
}

func (v ViewFuncs) page(name string) PageFunc {
	if fn, ok := v.Pages[name]; ok {
		return fn
	}
	return v.Default
}

// DefaultViews returns plain HTML views good enough to browse a site before
// custom templates exist.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Pages:       map[string]PageFunc{},
		Default:     htmlPage(defaultPageTmpl),
		NotFound:    htmlPage(notFoundTmpl),
		ServerError: func() templ.Component { return templ.Raw("<h1>Something went wrong</h1>") },
	}
}

func htmlPage(t *template.Template) PageFunc {
	return func(d PageData) templ.Component {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			var body strings.Builder
			if d.Body != nil {
				if err := d.Body.Render(ctx, &body); err != nil {
					return err
				}
			}
			return t.Execute(w, struct {
				PageData
				HTML template.HTML
			}{d, template.HTML(body.String())})
		})
	}
}

var tmplFuncs = template.FuncMap{
	"link": func(links map[string]string, e Entry) string {
		return links[e.Collection+"/"+e.ID]
	},
}

var defaultPageTmpl = template.Must(template.New("page").Funcs(tmplFuncs).Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Meta.Title}}</title>
<meta name="description" content="{{.Meta.Description}}">
<link rel="canonical" href="{{.Meta.URL}}">
<meta property="og:type" content="{{.Meta.OGType}}">
</head>
<body>
<header><a href="/">{{.Site.Name}}</a></header>
<main>
{{- if .Entry}}
<article>
<h1>{{.Entry.Title}}</h1>
{{.HTML}}
</article>
{{- if .Linking}}
<ul>{{range .Linking}}<li><a href="{{link $.Links .}}">{{.Title}}</a></li>{{end}}</ul>
{{- end}}
{{- if .Related}}
<aside>
<h2>Related</h2>
<ul>{{range .Related}}<li><a href="{{link $.Links .}}">{{.Title}}</a></li>{{end}}</ul>
</aside>
{{- end}}
{{- else}}
{{- range $name, $list := .Lists}}
<section>
<h2>{{$name}}</h2>
<ul>{{range $list}}<li><a href="{{link $.Links .}}">{{.Title}}</a></li>{{end}}</ul>
</section>
{{- end}}
{{- end}}
</main>
</body>
</html>
`))

var notFoundTmpl = template.Must(template.New("404").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Not found · {{.Site.Name}}</title></head>
<body><h1>404</h1><p>Nothing lives at this address.</p><a href="/">Home</a></body>
</html>
`))
