// Package apperr defines the shared error taxonomy and the per-run summary.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// FileError is a recoverable per-file failure (unreadable, not valid text).
// A sync run reports it and skips the file; it never aborts the run.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// InconsistentCacheError reports a schema invariant violation in one
// document's cache rows, e.g. a node referencing a missing parent. It is
// fatal for that document's data only; a resync rebuilds the entry.
type InconsistentCacheError struct {
	DocumentID string
	Detail     string
}

func (e *InconsistentCacheError) Error() string {
	return fmt.Sprintf("%s: cache entry is inconsistent (%s); it will be rebuilt on next sync", e.DocumentID, e.Detail)
}

func (e *InconsistentCacheError) Unwrap() error { return ErrConflict }

// Diagnostic converts the error into its recordable form.
func (e *InconsistentCacheError) Diagnostic() Diagnostic {
	return Diagnostic{Kind: DiagInconsistentCache, Target: e.DocumentID, Detail: e.Detail}
}

// DiagnosticKind classifies recorded, non-fatal observations.
type DiagnosticKind string

const (
	// DiagAmbiguousResolution is recorded when a link target matched more
	// than one document and the lexicographically first was chosen.
	DiagAmbiguousResolution DiagnosticKind = "ambiguous_resolution"
	// DiagDuplicateID is recorded when two live documents resolve to the
	// same id; both files are kept but only one owns the id.
	DiagDuplicateID DiagnosticKind = "duplicate_id"
	// DiagInconsistentCache is recorded when a document's cache rows violate
	// a schema invariant; the entry is rebuilt on the next sync.
	DiagInconsistentCache DiagnosticKind = "inconsistent_cache"
)

// Diagnostic is a recorded anomaly with a deterministic outcome. It is not
// an error: the run continues and the outcome is stable across reruns.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Path    string         `json:"path,omitempty"`
	Target  string         `json:"target,omitempty"`
	Chosen  string         `json:"chosen,omitempty"`
	Rejects []string       `json:"rejected,omitempty"`
	Detail  string         `json:"detail,omitempty"`
}

// Summary aggregates one sync run. Per-file errors and diagnostics are
// collected here instead of being raised as a terminal error.
type Summary struct {
	Added       int          `json:"added"`
	Modified    int          `json:"modified"`
	Removed     int          `json:"removed"`
	Unchanged   int          `json:"unchanged"`
	Touched     int          `json:"touched"`
	FileErrors  []*FileError `json:"-"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// ErrorCount returns the number of per-file errors collected.
func (s *Summary) ErrorCount() int { return len(s.FileErrors) }

func (s *Summary) String() string {
	return fmt.Sprintf("added=%d modified=%d removed=%d unchanged=%d touched=%d errors=%d diagnostics=%d",
		s.Added, s.Modified, s.Removed, s.Unchanged, s.Touched, len(s.FileErrors), len(s.Diagnostics))
}
