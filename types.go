package pubgarden

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Entry is one content record (a post, a garden note, a synthesized tag...)
// belonging to exactly one collection.
type Entry struct {
	ID         string
	Collection string
	Title      string
	SourcePath string
	Fields     map[string]any      // raw front matter
	Refs       map[string][]string // reference field -> target entry ids
	Body       string
	Synthetic  bool // created by reference resolution, no source file
}

// Published reports whether the entry carries published: true exactly.
// Strings, numbers and a missing field all count as unpublished.
func (e Entry) Published() bool {
	v, ok := e.Fields["published"].(bool)
	return ok && v
}

// Field returns the front matter value for key as a string.
func (e Entry) Field(key string) string {
	switch key {
	case "id":
		return e.ID
	case "title":
		if e.Title != "" {
			return e.Title
		}
	}
	v, ok := e.Fields[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return fmt.Sprint(t)
	}
}

// Date returns the entry's date field, or the zero time when absent or unparsable.
func (e Entry) Date() time.Time {
	switch v := e.Fields["date"].(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// Summary returns the summary or description front matter field.
func (e Entry) Summary() string {
	if s := e.Field("summary"); s != "" {
		return s
	}
	return e.Field("description")
}

func (e Entry) clone() Entry {
	out := e
	out.Fields = make(map[string]any, len(e.Fields))
	for k, v := range e.Fields {
		out.Fields[k] = v
	}
	out.Refs = make(map[string][]string, len(e.Refs))
	for k, v := range e.Refs {
		out.Refs[k] = append([]string(nil), v...)
	}
	return out
}

// Collection is a named set of entries sourced from one or more globs.
type Collection struct {
	TypeName string
	entries  map[string]Entry
}

// NewCollection returns an empty collection.
func NewCollection(typeName string) *Collection {
	return &Collection{TypeName: typeName, entries: make(map[string]Entry)}
}

// Put adds or replaces an entry. It reports whether an entry with the same id
// was already present.
func (c *Collection) Put(e Entry) bool {
	e.Collection = c.TypeName
	_, existed := c.entries[e.ID]
	c.entries[e.ID] = e
	return existed
}

// Get returns the entry with the given id.
func (c *Collection) Get(id string) (Entry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// Remove deletes an entry by id.
func (c *Collection) Remove(id string) {
	delete(c.entries, id)
}

// Len returns the number of entries.
func (c *Collection) Len() int {
	return len(c.entries)
}

// Entries returns the entries sorted by id.
func (c *Collection) Entries() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// find returns the entry whose id or title equals value.
func (c *Collection) find(value string) (Entry, bool) {
	if e, ok := c.entries[value]; ok {
		return e, true
	}
	for _, e := range c.Entries() {
		if e.Title == value {
			return e, true
		}
	}
	return Entry{}, false
}

// Collections maps typeName to collection.
type Collections map[string]*Collection

// Route is one record of the generated route table.
type Route struct {
	Path       string            `json:"path" yaml:"path"`
	Name       string            `json:"name,omitempty" yaml:"name,omitempty"`
	Page       string            `json:"page" yaml:"page"`
	Collection string            `json:"collection,omitempty" yaml:"collection,omitempty"`
	EntryID    string            `json:"entryId,omitempty" yaml:"entryId,omitempty"`
	Meta       map[string]string `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// IsWildcard reports whether the route is the catch-all fallback.
func (r Route) IsWildcard() bool {
	return r.Path == WildcardPath
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
}
