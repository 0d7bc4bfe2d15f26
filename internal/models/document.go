// Package models defines the domain types for Zet.
package models

import "time"

// Range is a half-open byte interval [Start, End) into a document's raw content.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether other lies entirely within r.
func (r Range) Contains(other Range) bool {
	return r.Start <= other.Start && other.End <= r.End
}

// Valid reports whether the range is non-negative and ordered.
func (r Range) Valid() bool {
	return r.Start >= 0 && r.Start <= r.End
}

// Document represents one markdown file's cache record. The file on disk is
// the source of truth; everything here is re-derivable from it.
type Document struct {
	ID          string         `json:"id"`
	Path        string         `json:"path"`
	Title       string         `json:"title,omitempty"`
	Hash        uint64         `json:"hash"`
	Aliases     []string       `json:"aliases,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ModifiedAt  time.Time      `json:"modified_at"`
}

// FileInfo is what collection enumeration yields: a relative path plus the
// filesystem modification time. No content is read to produce it.
type FileInfo struct {
	Path       string    `json:"path"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Link is a directed edge from a source document to an optional target.
// To is empty exactly when the link is external or unresolved; RawTarget is
// always kept so a broken edge stays diagnosable.
type Link struct {
	From      string `json:"from"`
	To        string `json:"to,omitempty"`
	RawTarget string `json:"raw_target"`
	Range     Range  `json:"range"`
}
