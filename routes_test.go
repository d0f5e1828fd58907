package pubgarden

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

var defaultNotFound = PageConfig{Path: "/404", Name: "404", Page: "NotFound"}

func mustTemplate(t *testing.T, typeName, pattern string) RouteTemplate {
	t.Helper()
	tmpl, err := ParseRouteTemplate(typeName, "", pattern)
	if err != nil {
		t.Fatalf("ParseRouteTemplate(%q): %v", pattern, err)
	}
	return tmpl
}

func routePaths(table *RouteTable) []string {
	var out []string
	for _, r := range table.Routes {
		if r.Collection != "" {
			out = append(out, r.Path)
		}
	}
	return out
}

func TestPostRoutesByMode(t *testing.T) {
	newCols := func() Collections {
		return postCollection(
			Entry{ID: "a", Title: "hello", Fields: map[string]any{"published": true}},
			Entry{ID: "b", Title: "world", Fields: map[string]any{"published": false}},
		)
	}
	templates := []RouteTemplate{mustTemplate(t, "Post", "/:title")}

	tests := []struct {
		mode Mode
		want []string
	}{
		{ModeProduction, []string{"/hello"}},
		{ModeDevelopment, []string{"/hello", "/world"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			cols := newCols()
			PublishFilter{Mode: tt.mode}.Apply(cols)
			table, _, err := DeriveRoutes(cols, templates, nil, defaultNotFound, false)
			if err != nil {
				t.Fatalf("DeriveRoutes: %v", err)
			}
			if got := routePaths(table); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("paths = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSynthesizedEntriesGetRoutes(t *testing.T) {
	loader := stubLoader{
		"garden": {{ID: "x", Title: "x", SourcePath: "garden", Fields: map[string]any{"topic": "rust"}}},
	}
	reg, err := NewRegistry([]SourceConfig{
		{TypeName: "DigitalGarden", Path: "garden", Refs: []RefConfig{{Field: "topic", TypeName: "Topic", Create: true}}},
		{TypeName: "Topic", Path: "topics"},
	}, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	cols, _, err := reg.Load(context.Background(), loader)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	templates := []RouteTemplate{
		mustTemplate(t, "DigitalGarden", "/digital-garden/:title"),
		mustTemplate(t, "Topic", "/topic/:title"),
	}
	table, _, err := DeriveRoutes(cols, templates, nil, defaultNotFound, false)
	if err != nil {
		t.Fatalf("DeriveRoutes: %v", err)
	}
	r, ok := table.Match("/topic/rust")
	if !ok {
		t.Fatal("no route for synthesized topic rust")
	}
	if r.Collection != "Topic" || r.EntryID != "rust" {
		t.Errorf("route = %+v, want Topic rust", r)
	}
}

func TestRouteTableOrder(t *testing.T) {
	cols := postCollection(
		Entry{ID: "b", Title: "Beta"},
		Entry{ID: "a", Title: "Alpha"},
	)
	pages := []PageConfig{{Path: "/", Name: "home", Page: "Index"}, {Path: "/about", Page: "About"}}
	table, _, err := DeriveRoutes(cols, []RouteTemplate{mustTemplate(t, "Post", "/blog/:title")}, pages, defaultNotFound, false)
	if err != nil {
		t.Fatalf("DeriveRoutes: %v", err)
	}
	var got []string
	for _, r := range table.Routes {
		got = append(got, r.Path)
	}
	want := []string{"/blog/alpha", "/blog/beta", "/", "/about", "/404", WildcardPath}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("paths = %v, want %v", got, want)
	}
	if last := table.Routes[len(table.Routes)-1]; last.Page != "NotFound" {
		t.Errorf("wildcard page = %q, want NotFound", last.Page)
	}
}

func TestRouteTableMatch(t *testing.T) {
	cols := postCollection(Entry{ID: "a", Title: "hello"})
	pages := []PageConfig{{Path: "/", Name: "home", Page: "Index"}}
	table, _, err := DeriveRoutes(cols, []RouteTemplate{mustTemplate(t, "Post", "/:title")}, pages, defaultNotFound, false)
	if err != nil {
		t.Fatalf("DeriveRoutes: %v", err)
	}

	tests := []struct {
		path  string
		found bool
		page  string
	}{
		{"/", true, "Index"},
		{"/hello", true, "Post"},
		{"/hello/", true, "Post"},
		{"/hello?ref=rss", true, "Post"},
		{"/404", true, "NotFound"},
		{"/does-not-exist", false, "NotFound"},
		{"/hello/extra", false, "NotFound"},
	}
	for _, tt := range tests {
		r, found := table.Match(tt.path)
		if found != tt.found {
			t.Errorf("Match(%q) found = %v, want %v", tt.path, found, tt.found)
		}
		if r.Page != tt.page {
			t.Errorf("Match(%q).Page = %q, want %q", tt.path, r.Page, tt.page)
		}
	}
}

func TestDuplicateRoutes(t *testing.T) {
	cols := postCollection(
		Entry{ID: "a", Title: "Same"},
		Entry{ID: "b", Title: "same"},
	)
	templates := []RouteTemplate{mustTemplate(t, "Post", "/:title")}

	_, _, err := DeriveRoutes(cols, templates, nil, defaultNotFound, false)
	var dup *DuplicateRouteError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want *DuplicateRouteError", err)
	}
	if dup.Path != "/same" {
		t.Errorf("Path = %q, want /same", dup.Path)
	}

	table, diags, err := DeriveRoutes(cols, templates, nil, defaultNotFound, true)
	if err != nil {
		t.Fatalf("DeriveRoutes with shadowing: %v", err)
	}
	if len(diags) != 1 || diags[0].Kind != DiagShadowedRoute {
		t.Errorf("diags = %v, want one shadowed-route", diags)
	}
	r, _ := table.Match("/same")
	if r.EntryID != "b" {
		t.Errorf("EntryID = %q, want the later entry b", r.EntryID)
	}
	if _, ok := table.ForEntry("Post", "a"); ok {
		t.Error("ForEntry(Post, a) should miss: its route was shadowed")
	}
	if r, ok := table.ForEntry("Post", "b"); !ok || r.Path != "/same" {
		t.Errorf("ForEntry(Post, b) = %+v, %v", r, ok)
	}
}

func TestStaticPageCollidesWithNotFound(t *testing.T) {
	_, _, err := DeriveRoutes(Collections{}, nil, []PageConfig{{Path: "/404", Page: "Custom"}}, defaultNotFound, false)
	var dup *DuplicateRouteError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want *DuplicateRouteError", err)
	}
}

func TestDeriveRoutesUnknownTemplateCollection(t *testing.T) {
	_, _, err := DeriveRoutes(Collections{}, []RouteTemplate{mustTemplate(t, "Post", "/:title")}, nil, defaultNotFound, false)
	if !errors.Is(err, ErrUnknownCollection) {
		t.Errorf("err = %v, want ErrUnknownCollection", err)
	}
}

func TestDeriveRoutesDeterministic(t *testing.T) {
	build := func() []Route {
		cols := postCollection(
			Entry{ID: "c", Title: "Gamma", Fields: map[string]any{"date": "2024-03-01"}},
			Entry{ID: "a", Title: "Alpha"},
			Entry{ID: "b", Title: "Beta"},
		)
		table, _, err := DeriveRoutes(cols, []RouteTemplate{mustTemplate(t, "Post", "/:title")}, nil, defaultNotFound, false)
		if err != nil {
			t.Fatalf("DeriveRoutes: %v", err)
		}
		return table.Routes
	}
	first := build()
	for i := 0; i < 10; i++ {
		if got := build(); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs:\n%v\n%v", i, got, first)
		}
	}
}

func TestRouteTemplateExpand(t *testing.T) {
	e := Entry{
		ID:         "notes/first post",
		Collection: "Post",
		Title:      "Café Society",
		Fields:     map[string]any{"date": "2024-01-15", "category": "Go Tips"},
	}
	tests := []struct {
		pattern string
		want    string
	}{
		{"/:title", "/cafe-society"},
		{"/blog/:year/:month/:day/:title", "/blog/2024/01/15/cafe-society"},
		{"/:category/:title", "/go-tips/cafe-society"},
		{"/p/:id", "/p/notes/first%20post"},
		{"/about", "/about"},
	}
	for _, tt := range tests {
		tmpl := mustTemplate(t, "Post", tt.pattern)
		got, err := tmpl.Expand(e)
		if err != nil {
			t.Errorf("Expand(%q): %v", tt.pattern, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Expand(%q) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestRouteTemplateMissingPlaceholder(t *testing.T) {
	tmpl := mustTemplate(t, "Post", "/:year/:title")
	_, err := tmpl.Expand(Entry{ID: "a", Title: "A"})
	if !errors.Is(err, ErrMissingPlaceholder) {
		t.Errorf("err = %v, want ErrMissingPlaceholder", err)
	}
}

func TestParseRouteTemplate(t *testing.T) {
	tmpl, err := ParseRouteTemplate("Post", "", "/blog/:year/:title/")
	if err != nil {
		t.Fatalf("ParseRouteTemplate: %v", err)
	}
	if tmpl.Page != "Post" {
		t.Errorf("Page = %q, want Post", tmpl.Page)
	}
	if got := tmpl.Placeholders(); !reflect.DeepEqual(got, []string{"year", "title"}) {
		t.Errorf("Placeholders() = %v", got)
	}
	for _, bad := range []string{"blog/:title", "/blog/:"} {
		if _, err := ParseRouteTemplate("Post", "", bad); err == nil {
			t.Errorf("ParseRouteTemplate(%q) should fail", bad)
		}
	}
}

func TestNewRouteTableFromStoredRoutes(t *testing.T) {
	routes := []Route{
		{Path: "/hello", Page: "Post", Collection: "Post", EntryID: "a"},
		{Path: "/404", Name: "404", Page: "NotFound"},
		{Path: WildcardPath, Name: WildcardPath, Page: "NotFound"},
	}
	table := NewRouteTable(routes)
	if r, ok := table.ForEntry("Post", "a"); !ok || r.Path != "/hello" {
		t.Errorf("ForEntry = %+v, %v", r, ok)
	}
	r, ok := table.Match("/nope")
	if ok || !r.IsWildcard() {
		t.Errorf("Match(/nope) = %+v, %v, want wildcard", r, ok)
	}
}

func TestIDRoutesMatchNestedIDs(t *testing.T) {
	cols := postCollection(
		Entry{ID: "posts/hello", Title: "Hello"},
		Entry{ID: "notes/first post", Title: "First"},
	)
	table, _, err := DeriveRoutes(cols, []RouteTemplate{mustTemplate(t, "Post", "/p/:id")}, nil, defaultNotFound, false)
	if err != nil {
		t.Fatalf("DeriveRoutes: %v", err)
	}
	tests := []struct {
		path string
		id   string
	}{
		{"/p/posts/hello", "posts/hello"},
		{"/p/notes/first%20post", "notes/first post"},
	}
	for _, tt := range tests {
		r, ok := table.Match(tt.path)
		if !ok || r.EntryID != tt.id {
			t.Errorf("Match(%q) = %+v, %v, want entry %q", tt.path, r, ok, tt.id)
		}
	}
}
