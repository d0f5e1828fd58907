package pubgarden

import (
	"net/url"
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify converts a title to a URL-safe slug. Accents are folded
// ("Café" -> "cafe"), anything else outside [a-z0-9] becomes a single '-'.
func Slugify(s string) string {
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// BuildURL joins a base URL with a route path, ensuring a trailing slash.
// Segments may be escaped route paths; they are not escaped twice.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	p := path.Join(pathSegments...)
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	u.Path = path.Join(u.Path, p)
	u.RawPath = ""
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// RelatedEntries returns entries of the same collection sharing at least one
// reference target with current, e.g. posts in the same category.
func RelatedEntries(current Entry, entries []Entry) []Entry {
	targets := make(map[string]struct{})
	for field, ids := range current.Refs {
		for _, id := range ids {
			targets[field+"\x00"+id] = struct{}{}
		}
	}
	var related []Entry
	for _, e := range entries {
		if e.ID == current.ID {
			continue
		}
	refs:
		for field, ids := range e.Refs {
			for _, id := range ids {
				if _, ok := targets[field+"\x00"+id]; ok {
					related = append(related, e)
					break refs
				}
			}
		}
	}
	return related
}

// ReferencingEntries returns the entries of src whose field references id,
// e.g. the posts listed on a category page.
func ReferencingEntries(src []Entry, field, id string) []Entry {
	var out []Entry
	for _, e := range src {
		for _, ref := range e.Refs[field] {
			if ref == id {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
