package markdown

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestRenderHeadingsAndEmphasis(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"# Heading 1", `<h1 id="heading-1">Heading 1</h1>`},
		{"## Heading 2", `<h2 id="heading-2">Heading 2</h2>`},
		{"**bold**", "<strong>bold</strong>"},
		{"*italic*", "<em>italic</em>"},
		{"`code`", "<code>code</code>"},
	}
	r := New(Options{})
	for _, tt := range tests {
		got, err := r.RenderString(tt.input)
		if err != nil {
			t.Fatalf("RenderString(%q) error: %v", tt.input, err)
		}
		if !strings.Contains(got, tt.expected) {
			t.Errorf("RenderString(%q) = %q, want it to contain %q", tt.input, got, tt.expected)
		}
	}
}

func TestRenderFencedCodeKeepsLanguage(t *testing.T) {
	got, err := New(Options{}).RenderString("```go\nfmt.Println(\"hello\")\n```")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, `class="language-go"`) {
		t.Errorf("code block should have language-go class: %q", got)
	}
}

func TestExternalLinksGetTargetAndRel(t *testing.T) {
	r := New(Options{
		ExternalLinksTarget: "_blank",
		ExternalLinksRel:    []string{"nofollow", "noopener", "noreferrer"},
		SiteURL:             "https://mitchellgritts.com",
	})
	got, err := r.RenderString("[go](https://go.dev/doc)")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, `target="_blank"`) {
		t.Errorf("external link should open in new tab: %q", got)
	}
	if !strings.Contains(got, `rel="nofollow noopener noreferrer"`) {
		t.Errorf("external link should carry rel: %q", got)
	}
}

func TestInternalLinksUntouched(t *testing.T) {
	r := New(Options{
		ExternalLinksTarget: "_blank",
		ExternalLinksRel:    []string{"noopener"},
		SiteURL:             "https://mitchellgritts.com",
	})
	for _, input := range []string{
		"[about](/about)",
		"[home](https://mitchellgritts.com/)",
		"[home](https://www.mitchellgritts.com/)",
		"[top](#top)",
	} {
		got, err := r.RenderString(input)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(got, "target=") || strings.Contains(got, "rel=") {
			t.Errorf("RenderString(%q) = %q, internal link should not be marked", input, got)
		}
	}
}

func TestNoLinkPolicyByDefault(t *testing.T) {
	got, err := New(Options{}).RenderString("[go](https://go.dev)")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "target=") {
		t.Errorf("default renderer should not set target: %q", got)
	}
}

func TestIsExternal(t *testing.T) {
	tests := []struct {
		dest string
		host string
		want bool
	}{
		{"https://go.dev", "example.com", true},
		{"http://example.com/x", "example.com", false},
		{"https://www.example.com/x", "example.com", false},
		{"/local", "example.com", false},
		{"mailto:me@example.com", "example.com", false},
		{"https://go.dev", "", true},
	}
	for _, tt := range tests {
		if got := IsExternal(tt.dest, tt.host); got != tt.want {
			t.Errorf("IsExternal(%q, %q) = %v, want %v", tt.dest, tt.host, got, tt.want)
		}
	}
}

func TestMarkdownComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Markdown("hello *world*").Render(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); !strings.Contains(got, "<p>hello <em>world</em></p>") {
		t.Errorf("Markdown component = %q", got)
	}
}

func TestPluginsPassThrough(t *testing.T) {
	r := New(Options{Plugins: []Plugin{{Name: "shiki", Options: map[string]any{"theme": "nord"}}}})
	plugins := r.Plugins()
	if len(plugins) != 1 || plugins[0].Name != "shiki" || plugins[0].Options["theme"] != "nord" {
		t.Errorf("Plugins() = %+v", plugins)
	}
}
