package pubgarden

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// yamlFormat decodes YAML front matter with YAML 1.2 rules, so only true and
// false are booleans. "yes", "on" and "y" stay strings.
var yamlFormat = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

// Loader returns the raw entries matching a source pattern. Entries come back
// with ID, Title, Fields and Body set; references are resolved later.
type Loader interface {
	Load(ctx context.Context, pattern string) ([]Entry, error)
}

// FileLoader loads markdown files with front matter from a filesystem.
type FileLoader struct {
	fsys fs.FS
}

// NewFileLoader returns a FileLoader rooted at fsys. Patterns are matched
// against slash-separated paths relative to that root.
func NewFileLoader(fsys fs.FS) *FileLoader {
	return &FileLoader{fsys: fsys}
}

// Load walks the filesystem and parses every file matching pattern. A pattern
// that matches nothing yields no entries and no error.
func (l *FileLoader) Load(ctx context.Context, pattern string) ([]Entry, error) {
	m, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	err = fs.WalkDir(l.fsys, walkRoot(pattern), func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == walkRoot(pattern) && isNotExist(walkErr) {
				return fs.SkipDir
			}
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !m.Match(p) {
			return nil
		}
		e, err := l.loadFile(p)
		if err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].SourcePath < entries[j].SourcePath })
	return entries, nil
}

func (l *FileLoader) loadFile(p string) (Entry, error) {
	data, err := fs.ReadFile(l.fsys, p)
	if err != nil {
		return Entry{}, fmt.Errorf("pubgarden: read %s: %w", p, err)
	}
	fields := map[string]any{}
	body, err := frontmatter.Parse(bytes.NewReader(data), &fields, yamlFormat)
	if err != nil {
		return Entry{}, fmt.Errorf("pubgarden: parse front matter %s: %w", p, err)
	}
	normalizeValue(fields)

	e := Entry{
		ID:         strings.TrimSuffix(p, path.Ext(p)),
		SourcePath: p,
		Fields:     fields,
		Body:       string(body),
	}
	if id, ok := fields["id"]; ok && fmt.Sprint(id) != "" {
		e.ID = fmt.Sprint(id)
	}
	e.Title = e.Field("title")
	if e.Title == "" {
		e.Title = strings.TrimSuffix(path.Base(p), path.Ext(p))
	}
	return e, nil
}

// patternMatcher treats "dir/**/x" as also matching "dir/x", the way shell
// globstar does.
type patternMatcher struct {
	globs []glob.Glob
}

func (m patternMatcher) Match(p string) bool {
	for _, g := range m.globs {
		if g.Match(p) {
			return true
		}
	}
	return false
}

func compilePattern(pattern string) (patternMatcher, error) {
	pattern = strings.TrimPrefix(path.Clean(pattern), "./")
	variants := []string{pattern}
	if strings.Contains(pattern, "**/") {
		variants = append(variants, strings.ReplaceAll(pattern, "**/", ""))
	}
	var m patternMatcher
	for _, v := range variants {
		g, err := glob.Compile(v, '/')
		if err != nil {
			return patternMatcher{}, fmt.Errorf("pubgarden: compile pattern %q: %w", pattern, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// walkRoot returns the longest leading directory of pattern without glob
// metacharacters, so loading content/posts/** does not walk the whole tree.
func walkRoot(pattern string) string {
	pattern = strings.TrimPrefix(path.Clean(pattern), "./")
	parts := strings.Split(pattern, "/")
	var root []string
	for _, part := range parts[:len(parts)-1] {
		if strings.ContainsAny(part, "*?[{") {
			break
		}
		root = append(root, part)
	}
	if len(root) == 0 {
		return "."
	}
	return strings.Join(root, "/")
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// normalizeValue turns the map[interface{}]interface{} values the YAML decoder
// produces for nested mappings into map[string]any so entries stay JSON-safe.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeValue(val)
		}
		return t
	case []any:
		for i := range t {
			t[i] = normalizeValue(t[i])
		}
		return t
	}
	return v
}
