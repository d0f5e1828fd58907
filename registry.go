package pubgarden

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownCollection is returned when a reference points at a collection
// that no source declares.
var ErrUnknownCollection = errors.New("pubgarden: unknown target collection")

// Registry holds the content source declarations and materializes them into
// collections.
type Registry struct {
	sources []SourceConfig
	order   []string // typeNames in first-declared order
	logger  Logger
}

// NewRegistry validates the declarations. Every reference must target a
// declared typeName. A typeName may appear in several declarations; their
// entries land in one collection.
func NewRegistry(sources []SourceConfig, logger Logger) (*Registry, error) {
	if logger == nil {
		logger = nopLogger{}
	}
	declared := make(map[string]struct{})
	r := &Registry{logger: logger}
	for _, s := range sources {
		if _, ok := declared[s.TypeName]; !ok {
			declared[s.TypeName] = struct{}{}
			r.order = append(r.order, s.TypeName)
		}
	}
	for _, s := range sources {
		for _, ref := range s.Refs {
			if _, ok := declared[ref.TypeName]; !ok {
				return nil, fmt.Errorf("%w %q (referenced by %s.%s)", ErrUnknownCollection, ref.TypeName, s.TypeName, ref.Field)
			}
		}
	}
	r.sources = append(r.sources, sources...)
	return r, nil
}

// TypeNames returns the declared collection names in declaration order.
func (r *Registry) TypeNames() []string {
	return append([]string(nil), r.order...)
}

// Load runs both phases: every source is loaded first, then every reference
// is resolved. Resolution never starts before all collections are complete.
func (r *Registry) Load(ctx context.Context, loader Loader) (Collections, []Diagnostic, error) {
	cols := make(Collections, len(r.order))
	for _, name := range r.order {
		cols[name] = NewCollection(name)
	}

	var diags []Diagnostic
	for _, s := range r.sources {
		entries, err := loader.Load(ctx, s.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("pubgarden: load %s from %q: %w", s.TypeName, s.Path, err)
		}
		if len(entries) == 0 {
			r.logger.Warnf("source %s: pattern %q matched no files", s.TypeName, s.Path)
		}
		col := cols[s.TypeName]
		for _, e := range entries {
			if col.Put(e) {
				d := Diagnostic{
					Kind:    DiagDuplicateEntry,
					Message: fmt.Sprintf("entry %q in %s loaded twice, last source wins (%s)", e.ID, s.TypeName, e.SourcePath),
				}
				r.logger.Warnf("%s", d.Message)
				diags = append(diags, d)
			}
		}
	}

	resolved, err := r.resolve(cols)
	if err != nil {
		return nil, nil, err
	}
	return cols, append(diags, resolved...), nil
}

// resolve links reference fields to target entries, synthesizing missing
// targets for create references.
func (r *Registry) resolve(cols Collections) ([]Diagnostic, error) {
	var diags []Diagnostic
	for _, s := range r.sources {
		if len(s.Refs) == 0 {
			continue
		}
		col := cols[s.TypeName]
		for _, e := range col.Entries() {
			if e.SourcePath != "" && !r.ownsEntry(s, e) {
				continue
			}
			e = e.clone()
			for _, ref := range s.Refs {
				target := cols[ref.TypeName]
				if target == nil {
					return nil, fmt.Errorf("%w %q", ErrUnknownCollection, ref.TypeName)
				}
				ids := make([]string, 0)
				for _, value := range refValues(e.Fields[ref.Field]) {
					t, ok := target.find(value)
					if !ok {
						if !ref.Create {
							d := Diagnostic{
								Kind:    DiagUnresolvedRef,
								Message: fmt.Sprintf("%s %q: %s %q not found in %s", s.TypeName, e.ID, ref.Field, value, ref.TypeName),
							}
							r.logger.Debugf("%s", d.Message)
							diags = append(diags, d)
							continue
						}
						t = Entry{
							ID:        value,
							Title:     value,
							Fields:    map[string]any{"title": value},
							Synthetic: true,
						}
						target.Put(t)
					}
					ids = appendUnique(ids, t.ID)
				}
				if len(ids) > 0 {
					if e.Refs == nil {
						e.Refs = make(map[string][]string)
					}
					e.Refs[ref.Field] = ids
				}
			}
			col.Put(e)
		}
	}
	return diags, nil
}

// ownsEntry reports whether the entry's file matches the source's pattern, so
// references declared on one source are not applied to files loaded by
// another source of the same typeName.
func (r *Registry) ownsEntry(s SourceConfig, e Entry) bool {
	m, err := compilePattern(s.Path)
	if err != nil {
		return true
	}
	return m.Match(e.SourcePath)
}

// refValues accepts a scalar or a list front matter value.
func refValues(v any) []string {
	var out []string
	add := func(x any) {
		if x == nil {
			return
		}
		s := strings.TrimSpace(fmt.Sprint(x))
		if s != "" {
			out = appendUnique(out, s)
		}
	}
	switch t := v.(type) {
	case nil:
	case []any:
		for _, x := range t {
			add(x)
		}
	case []string:
		for _, x := range t {
			add(x)
		}
	default:
		add(t)
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}

// DiagnosticKind classifies a non-fatal build finding.
type DiagnosticKind string

const (
	DiagDuplicateEntry DiagnosticKind = "duplicate-entry"
	DiagUnresolvedRef  DiagnosticKind = "unresolved-reference"
	DiagShadowedRoute  DiagnosticKind = "shadowed-route"
)

// Diagnostic is a non-fatal finding reported by a build.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
}

// sortedKeys returns the map keys in order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedCollectionNames returns the collection names in lexical order.
func SortedCollectionNames(cols Collections) []string {
	return sortedKeys(cols)
}
