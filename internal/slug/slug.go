// Package slug derives default document identifiers from collection paths.
package slug

import (
	"path/filepath"
	"strings"
	"unicode"
)

// Slugify lower-cases s and replaces every interior run of whitespace with a
// single hyphen; leading and trailing runs are dropped. Path separators and
// dots are preserved, so slugs of nested paths keep their segment structure.
// The transform is pure: the resolver applies the same normalization to
// literal link targets before suffix matching.
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace {
			if b.Len() > 0 {
				b.WriteByte('-')
			}
			inSpace = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// DefaultID returns the default document id for a relative collection path:
// the slug of the path with its file extension removed. Used whenever
// frontmatter supplies no id override.
func DefaultID(path string) string {
	path = filepath.ToSlash(path)
	if ext := filepath.Ext(path); ext != "" {
		path = strings.TrimSuffix(path, ext)
	}
	return Slugify(path)
}
