package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/eringen/pubgarden"
)

var sampleRoutes = []pubgarden.Route{
	{Path: "/hello", Page: "Post", Collection: "Post", EntryID: "posts/hello"},
	{Path: "/", Name: "home", Page: "Index"},
	{Path: "/404", Name: "404", Page: "NotFound"},
	{Path: pubgarden.WildcardPath, Name: pubgarden.WildcardPath, Page: "NotFound"},
}

func TestPrintRoutesTable(t *testing.T) {
	var buf bytes.Buffer
	if err := printRoutes(&buf, "table", sampleRoutes); err != nil {
		t.Fatalf("printRoutes: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"PATH", "/hello", "posts/hello", "NotFound"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintRoutesJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printRoutes(&buf, "json", sampleRoutes); err != nil {
		t.Fatalf("printRoutes: %v", err)
	}
	var got []pubgarden.Route
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(sampleRoutes) || got[0].EntryID != "posts/hello" {
		t.Errorf("got %+v", got)
	}
}

func TestPrintRoutesYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := printRoutes(&buf, "yaml", sampleRoutes); err != nil {
		t.Fatalf("printRoutes: %v", err)
	}
	var got []pubgarden.Route
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(sampleRoutes) || got[3].Path != pubgarden.WildcardPath {
		t.Errorf("got %+v", got)
	}
}

func TestPrintRoutesUnknownFormat(t *testing.T) {
	if err := printRoutes(&bytes.Buffer{}, "csv", sampleRoutes); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestToTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"my-garden", "My Garden"},
		{"notes", "Notes"},
	}
	for _, tt := range tests {
		if got := toTitle(tt.in); got != tt.want {
			t.Errorf("toTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewScaffoldBuilds(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	var out bytes.Buffer
	newCmd.SetOut(&out)
	if err := runNew(newCmd, "my-garden"); err != nil {
		t.Fatalf("runNew: %v", err)
	}
	if !strings.Contains(out.String(), "my-garden/pubgarden.yaml") {
		t.Errorf("output does not list the config file:\n%s", out.String())
	}
	if err := runNew(newCmd, "my-garden"); err == nil {
		t.Error("second runNew into an existing directory should fail")
	}

	cfg, err := pubgarden.LoadConfig(filepath.Join("my-garden", "pubgarden.yaml"), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "My Garden" {
		t.Errorf("Name = %q, want My Garden", cfg.Name)
	}
	cfg.ContentDir = "my-garden"
	cfg.Mode = pubgarden.ModeProduction

	res, err := pubgarden.NewBuilder(cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, p := range []string{"/hello-world", "/digital-garden/seedling", "/topic/gardening", "/category/meta"} {
		if _, ok := res.Routes.Match(p); !ok {
			t.Errorf("scaffolded site has no route %s", p)
		}
	}
	if _, ok := res.Routes.Match("/work-in-progress"); ok {
		t.Error("draft post should be filtered in production")
	}
}
