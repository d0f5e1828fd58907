package pubgarden

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// WildcardPath is the catch-all route path, always evaluated last.
const WildcardPath = "*"

// ErrMissingPlaceholder is returned when an entry lacks a value for a
// placeholder of its collection's template.
var ErrMissingPlaceholder = errors.New("pubgarden: missing placeholder value")

// DuplicateRouteError reports two routes resolving to the same path.
type DuplicateRouteError struct {
	Path   string
	First  Route
	Second Route
}

func (e *DuplicateRouteError) Error() string {
	return fmt.Sprintf("pubgarden: duplicate route %s: %s and %s", e.Path, describeRoute(e.First), describeRoute(e.Second))
}

func describeRoute(r Route) string {
	if r.Collection != "" {
		return r.Collection + " " + r.EntryID
	}
	return "page " + r.Page
}

// RouteTemplate is a parsed URL path template such as "/digital-garden/:title".
type RouteTemplate struct {
	TypeName string
	Page     string
	Pattern  string
	segments []string
}

// ParseRouteTemplate splits a path template into segments. Placeholders are
// whole segments starting with ':'.
func ParseRouteTemplate(typeName, page, pattern string) (RouteTemplate, error) {
	if !strings.HasPrefix(pattern, "/") {
		return RouteTemplate{}, fmt.Errorf("pubgarden: template %q for %s must start with '/'", pattern, typeName)
	}
	if page == "" {
		page = typeName
	}
	t := RouteTemplate{TypeName: typeName, Page: page, Pattern: pattern}
	for _, seg := range strings.Split(strings.Trim(pattern, "/"), "/") {
		if seg == "" {
			continue
		}
		if seg == ":" {
			return RouteTemplate{}, fmt.Errorf("pubgarden: template %q has an unnamed placeholder", pattern)
		}
		t.segments = append(t.segments, seg)
	}
	return t, nil
}

// Placeholders returns the placeholder names in order.
func (t RouteTemplate) Placeholders() []string {
	var out []string
	for _, seg := range t.segments {
		if strings.HasPrefix(seg, ":") {
			out = append(out, seg[1:])
		}
	}
	return out
}

// Expand substitutes the entry's attributes into the template.
func (t RouteTemplate) Expand(e Entry) (string, error) {
	parts := make([]string, 0, len(t.segments))
	for _, seg := range t.segments {
		if !strings.HasPrefix(seg, ":") {
			parts = append(parts, seg)
			continue
		}
		v := placeholderValue(e, seg[1:])
		if v == "" {
			return "", fmt.Errorf("%w :%s for %s %q", ErrMissingPlaceholder, seg[1:], e.Collection, e.ID)
		}
		parts = append(parts, v)
	}
	return "/" + strings.Join(parts, "/"), nil
}

func placeholderValue(e Entry, name string) string {
	switch name {
	case "id":
		return escapeSegments(e.ID)
	case "year", "month", "day":
		d := e.Date()
		if d.IsZero() {
			return ""
		}
		switch name {
		case "year":
			return d.Format("2006")
		case "month":
			return d.Format("01")
		default:
			return d.Format("02")
		}
	}
	return Slugify(e.Field(name))
}

// escapeSegments escapes each '/'-separated part of id, so a nested id such as
// "posts/hello" stays a multi-segment path.
func escapeSegments(id string) string {
	parts := strings.Split(strings.Trim(id, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// DeriveRoutes builds the route table from the collections and declarations.
// It is a pure function of its inputs: entry routes come first, grouped by
// template in declaration order and sorted by path, then the static pages in
// declaration order, then the not-found page and the wildcard fallback.
//
// Two routes with the same path are an error unless allowShadowing is set, in
// which case the later route replaces the earlier one and a diagnostic is
// returned.
func DeriveRoutes(cols Collections, templates []RouteTemplate, pages []PageConfig, notFound PageConfig, allowShadowing bool) (*RouteTable, []Diagnostic, error) {
	var routes []Route
	for _, t := range templates {
		col, ok := cols[t.TypeName]
		if !ok {
			return nil, nil, fmt.Errorf("%w %q (route template %s)", ErrUnknownCollection, t.TypeName, t.Pattern)
		}
		derived := make([]Route, 0, col.Len())
		for _, e := range col.Entries() {
			p, err := t.Expand(e)
			if err != nil {
				return nil, nil, err
			}
			meta := map[string]string{"title": e.Title}
			if d := e.Date(); !d.IsZero() {
				meta["date"] = d.Format("2006-01-02")
			}
			derived = append(derived, Route{
				Path:       p,
				Page:       t.Page,
				Collection: t.TypeName,
				EntryID:    e.ID,
				Meta:       meta,
			})
		}
		sort.SliceStable(derived, func(i, j int) bool { return derived[i].Path < derived[j].Path })
		routes = append(routes, derived...)
	}
	for _, p := range pages {
		routes = append(routes, Route{Path: normalizePath(p.Path), Name: p.Name, Page: p.Page})
	}
	nf := Route{Path: normalizePath(notFound.Path), Name: notFound.Name, Page: notFound.Page}
	routes = append(routes, nf)

	var diags []Diagnostic
	final := make([]Route, 0, len(routes)+1)
	seen := make(map[string]int, len(routes))
	for _, r := range routes {
		if i, ok := seen[r.Path]; ok {
			prev := final[i]
			if !allowShadowing {
				return nil, nil, &DuplicateRouteError{Path: r.Path, First: prev, Second: r}
			}
			diags = append(diags, Diagnostic{
				Kind:    DiagShadowedRoute,
				Message: fmt.Sprintf("route %s: %s shadows %s", r.Path, describeRoute(r), describeRoute(prev)),
			})
			final[i] = r
			continue
		}
		seen[r.Path] = len(final)
		final = append(final, r)
	}
	wildcard := nf
	wildcard.Path = WildcardPath
	wildcard.Name = WildcardPath
	final = append(final, wildcard)
	return NewRouteTable(final), diags, nil
}

// RouteTable is the ordered, generated list of routes.
type RouteTable struct {
	Routes   []Route
	index    map[string]int // path -> position
	entries  map[string]int // collection + "\x00" + entry id -> position
	notFound int
}

// NewRouteTable indexes an already ordered route list, e.g. one read back from
// storage. The last wildcard route is used as the fallback.
func NewRouteTable(routes []Route) *RouteTable {
	t := &RouteTable{
		Routes:   routes,
		index:    make(map[string]int, len(routes)),
		entries:  make(map[string]int, len(routes)),
		notFound: -1,
	}
	for i, r := range routes {
		if r.IsWildcard() {
			t.notFound = i
			continue
		}
		t.index[r.Path] = i
		if r.Collection != "" {
			t.entries[entryKey(r.Collection, r.EntryID)] = i
		}
	}
	return t
}

// Match returns the route serving path, which must be in escaped form (see
// url.URL.EscapedPath). Paths matching nothing resolve to the
// not-found route; the boolean is false in that case.
func (t *RouteTable) Match(p string) (Route, bool) {
	if i, ok := t.index[normalizePath(p)]; ok {
		r := t.Routes[i]
		return r, true
	}
	if t.notFound >= 0 && t.notFound < len(t.Routes) {
		return t.Routes[t.notFound], false
	}
	return Route{Path: WildcardPath, Name: WildcardPath, Page: "NotFound"}, false
}

// ForEntry returns the route derived for the given entry.
func (t *RouteTable) ForEntry(collection, id string) (Route, bool) {
	i, ok := t.entries[entryKey(collection, id)]
	if !ok {
		return Route{}, false
	}
	return t.Routes[i], true
}

func entryKey(collection, id string) string {
	return collection + "\x00" + id
}

// Len returns the number of routes including the wildcard.
func (t *RouteTable) Len() int {
	return len(t.Routes)
}

// normalizePath makes paths comparable: leading slash, no trailing slash
// except for the root, no query string.
func normalizePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == WildcardPath {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
