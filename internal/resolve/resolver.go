// Package resolve turns raw link targets into resolved document identifiers.
//
// Resolution runs against a Universe: an immutable snapshot of every live
// document id, alias, and path, built once per sync run after all documents
// in the run have been parsed. The snapshot is passed explicitly so that
// resolution is a pure function of its inputs and idempotent across runs.
package resolve

import (
	"path"
	"sort"
	"strings"

	"github.com/zet-dev/zet/internal/apperr"
	"github.com/zet-dev/zet/internal/slug"
)

// Kind classifies the outcome of resolving one target.
type Kind int

const (
	// Unresolved covers targets that match no live document, including bare
	// relative paths to files outside the collection. The link edge is kept
	// with a null target ("broken internal"), not discarded.
	Unresolved Kind = iota
	// Internal means the target resolved to a live document id.
	Internal
	// External covers URLs and other scheme-qualified references.
	External
)

func (k Kind) String() string {
	switch k {
	case Internal:
		return "internal"
	case External:
		return "external"
	default:
		return "unresolved"
	}
}

// Resolution is the outcome for one raw target. DocumentID is set exactly
// when Kind is Internal. Diagnostic is non-nil when the match was ambiguous.
type Resolution struct {
	Kind       Kind
	DocumentID string
	Diagnostic *apperr.Diagnostic
}

// Universe is the read-only identifier snapshot resolution runs against.
type Universe struct {
	ids     map[string]string   // document id -> id (identity, for exact match)
	aliases map[string][]string // alias -> owning document ids
	paths   map[string]string   // normalized relative path -> document id
	// every (identifier, document id) pair, for suffix matching
	entries []entry
}

type entry struct {
	ident string // normalized id or alias
	docID string
}

// NewUniverse builds a snapshot. ids maps document id to its relative path;
// aliases maps alias strings to the ids of the documents declaring them.
func NewUniverse(ids map[string]string, aliases map[string][]string) *Universe {
	u := &Universe{
		ids:     make(map[string]string, len(ids)),
		aliases: make(map[string][]string, len(aliases)),
		paths:   make(map[string]string, len(ids)),
	}
	for id, p := range ids {
		u.ids[id] = id
		u.paths[path.Clean(p)] = id
		u.entries = append(u.entries, entry{ident: slug.Slugify(id), docID: id})
	}
	for alias, owners := range aliases {
		u.aliases[alias] = append([]string(nil), owners...)
		norm := slug.Slugify(alias)
		for _, id := range owners {
			u.entries = append(u.entries, entry{ident: norm, docID: id})
		}
	}
	// Deterministic candidate order: by owning document id, bytewise.
	sort.Slice(u.entries, func(i, j int) bool {
		if u.entries[i].docID != u.entries[j].docID {
			return u.entries[i].docID < u.entries[j].docID
		}
		return u.entries[i].ident < u.entries[j].ident
	})
	return u
}

// Size returns the number of live documents in the snapshot.
func (u *Universe) Size() int { return len(u.ids) }

// Resolve maps a raw link target from a document at sourcePath to its
// resolution. sourcePath is the source document's collection-relative path;
// path-form targets are interpreted relative to its directory.
func (u *Universe) Resolve(raw, sourcePath string) Resolution {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Resolution{Kind: Unresolved}
	}
	if hasScheme(raw) {
		return Resolution{Kind: External}
	}
	// Drop a fragment; `note#section` still targets `note`.
	if i := strings.IndexByte(raw, '#'); i > 0 {
		raw = raw[:i]
	}

	if hasMarkdownExtension(raw) {
		return u.resolvePath(raw, sourcePath)
	}
	return u.resolveID(raw)
}

// resolvePath interprets the target as a path relative to the source
// document's directory. Only an exact normalized-path match resolves; a
// near-miss stays Unresolved, never falls through to suffix matching.
func (u *Universe) resolvePath(raw, sourcePath string) Resolution {
	var joined string
	if strings.HasPrefix(raw, "/") {
		// Collection-absolute.
		joined = strings.TrimPrefix(raw, "/")
	} else {
		joined = path.Join(path.Dir(sourcePath), raw)
	}
	cleaned := path.Clean(joined)
	if strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		// Escapes the collection root.
		return Resolution{Kind: Unresolved}
	}
	if id, ok := u.paths[cleaned]; ok {
		return Resolution{Kind: Internal, DocumentID: id}
	}
	return Resolution{Kind: Unresolved}
}

// resolveID tries exact id/alias match first, then a path-segment-aligned
// suffix match on the normalized target. Ambiguity is resolved by picking
// the lexicographically first document id and recording a diagnostic.
func (u *Universe) resolveID(raw string) Resolution {
	var candidates []string
	if id, ok := u.ids[raw]; ok {
		candidates = append(candidates, id)
	}
	candidates = append(candidates, u.aliases[raw]...)

	if len(candidates) == 0 {
		norm := slug.Slugify(raw)
		seen := make(map[string]struct{})
		for _, e := range u.entries {
			if !suffixAligned(e.ident, norm) {
				continue
			}
			if _, dup := seen[e.docID]; dup {
				continue
			}
			seen[e.docID] = struct{}{}
			candidates = append(candidates, e.docID)
		}
	}

	switch len(candidates) {
	case 0:
		return Resolution{Kind: Unresolved}
	case 1:
		return Resolution{Kind: Internal, DocumentID: candidates[0]}
	}

	sort.Strings(candidates)
	chosen := candidates[0]
	return Resolution{
		Kind:       Internal,
		DocumentID: chosen,
		Diagnostic: &apperr.Diagnostic{
			Kind:    apperr.DiagAmbiguousResolution,
			Target:  raw,
			Chosen:  chosen,
			Rejects: candidates[1:],
		},
	}
}

// suffixAligned reports whether target equals ident or a trailing suffix of
// ident whose boundary falls on a '/' segment break. `todo` matches
// `work/todo` but not `workflow/todo-list` partway through a segment.
func suffixAligned(ident, target string) bool {
	if ident == target {
		return true
	}
	return strings.HasSuffix(ident, "/"+target)
}

func hasScheme(raw string) bool {
	if strings.Contains(raw, "://") {
		return true
	}
	return strings.HasPrefix(raw, "mailto:")
}

func hasMarkdownExtension(raw string) bool {
	ext := strings.ToLower(path.Ext(raw))
	switch ext {
	case ".md", ".markdown", ".mdown":
		return true
	}
	return false
}
