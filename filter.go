package pubgarden

// PublishFilter removes unpublished entries from one collection in production.
type PublishFilter struct {
	Mode       Mode
	Collection string // default "Post"
	Field      string // default "published"
}

// Apply drops every entry of the filtered collection whose publish field is
// not exactly the boolean true. It is a no-op outside production and when the
// collection does not exist. It returns the ids it removed.
func (f PublishFilter) Apply(cols Collections) []string {
	if f.Mode != ModeProduction {
		return nil
	}
	name := f.Collection
	if name == "" {
		name = "Post"
	}
	field := f.Field
	if field == "" {
		field = "published"
	}
	col, ok := cols[name]
	if !ok {
		return nil
	}
	var removed []string
	for _, e := range col.Entries() {
		if v, ok := e.Fields[field].(bool); ok && v {
			continue
		}
		col.Remove(e.ID)
		removed = append(removed, e.ID)
	}
	return removed
}
