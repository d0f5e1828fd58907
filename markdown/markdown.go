// Package markdown renders entry bodies to HTML with goldmark and exposes them
// as templ components.
package markdown

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Options configures a Renderer.
type Options struct {
	// ExternalLinksTarget is set as the target attribute of links leaving the
	// site, e.g. "_blank". Empty leaves links alone.
	ExternalLinksTarget string
	// ExternalLinksRel is joined into the rel attribute of external links.
	ExternalLinksRel []string
	// SiteURL decides which absolute links are internal.
	SiteURL string
	// Extensions names goldmark extensions; empty means gfm.
	Extensions []string
	// Plugins are renderer plugin declarations passed through untouched.
	Plugins []Plugin
}

// Plugin is an opaque plugin declaration, e.g. a syntax highlighting theme.
type Plugin struct {
	Name    string
	Options map[string]any
}

// Renderer converts markdown to HTML.
type Renderer struct {
	md      goldmark.Markdown
	plugins []Plugin
}

// New builds a Renderer. It is safe for concurrent use.
func New(opts Options) *Renderer {
	parserOptions := []parser.Option{parser.WithAutoHeadingID()}
	if opts.ExternalLinksTarget != "" || len(opts.ExternalLinksRel) > 0 {
		parserOptions = append(parserOptions, parser.WithASTTransformers(
			util.Prioritized(&externalLinks{
				target: opts.ExternalLinksTarget,
				rel:    strings.Join(opts.ExternalLinksRel, " "),
				host:   siteHost(opts.SiteURL),
			}, 500),
		))
	}
	md := goldmark.New(
		goldmark.WithExtensions(collectExtensions(opts.Extensions)...),
		goldmark.WithParserOptions(parserOptions...),
		goldmark.WithRendererOptions(html.WithXHTML()),
	)
	return &Renderer{md: md, plugins: append([]Plugin(nil), opts.Plugins...)}
}

// Plugins returns the configured plugin declarations.
func (r *Renderer) Plugins() []Plugin {
	return append([]Plugin(nil), r.plugins...)
}

// Render writes the HTML for source to w.
func (r *Renderer) Render(w io.Writer, source string) error {
	return r.md.Convert([]byte(source), w)
}

// RenderString returns the HTML for source.
func (r *Renderer) RenderString(source string) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, source); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Component returns a templ.Component that renders source as HTML.
func (r *Renderer) Component(source string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return r.Render(w, source)
	})
}

var defaultRenderer = New(Options{})

// Markdown returns a templ.Component that renders md with default options.
func Markdown(content string) templ.Component {
	return defaultRenderer.Component(content)
}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"tasklist":      extension.TaskList,
	"footnote":      extension.Footnote,
	"typographer":   extension.Typographer,
}

func collectExtensions(names []string) []goldmark.Extender {
	if len(names) == 0 {
		return []goldmark.Extender{extension.GFM}
	}
	var out []goldmark.Extender
	seen := map[string]bool{}
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		ext, ok := extensionRegistry[key]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ext)
	}
	return out
}

// externalLinks marks links to other hosts with target and rel attributes.
type externalLinks struct {
	target string
	rel    string
	host   string
}

func (t *externalLinks) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var dest string
		switch l := n.(type) {
		case *ast.Link:
			dest = string(l.Destination)
		case *ast.AutoLink:
			if l.AutoLinkType != ast.AutoLinkURL {
				return ast.WalkContinue, nil
			}
			dest = string(l.URL(source))
			if !strings.Contains(dest, "://") {
				dest = "http://" + dest
			}
		default:
			return ast.WalkContinue, nil
		}
		if !IsExternal(dest, t.host) {
			return ast.WalkContinue, nil
		}
		if t.target != "" {
			n.SetAttributeString("target", []byte(t.target))
		}
		if t.rel != "" {
			n.SetAttributeString("rel", []byte(t.rel))
		}
		return ast.WalkContinue, nil
	})
}

// IsExternal reports whether dest is an absolute http(s) URL pointing at a
// host other than siteHost.
func IsExternal(dest, siteHost string) bool {
	u, err := url.Parse(strings.TrimSpace(dest))
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return false
	}
	return siteHost == "" || !strings.EqualFold(strings.TrimPrefix(u.Hostname(), "www."), siteHost)
}

func siteHost(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
