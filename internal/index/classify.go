package index

import (
	"github.com/zet-dev/zet/internal/apperr"
	"github.com/zet-dev/zet/internal/hash"
	"github.com/zet-dev/zet/internal/models"
	"github.com/zet-dev/zet/internal/storage"
)

// Change is one intersecting document that needs attention. For a modified
// document the content read during hashing is retained so the parse phase
// does not read the file twice.
type Change struct {
	Previous models.Document
	Info     models.FileInfo
	Content  []byte
	Hash     uint64
}

// Classification partitions the collection for one sync run.
type Classification struct {
	Added    []models.FileInfo // on disk, not in cache: skip straight to full parse
	Removed  []models.Document // in cache, not on disk: skip straight to deletion
	Modified []Change          // content hash changed: reparse required
	Touched  []Change          // timestamp changed, bytes identical: update stored timestamp only
	Unchanged int

	Errors []*apperr.FileError
}

// Classify partitions documents into added/removed/modified/unchanged using
// three tiers, each only examining survivors of the prior tier:
//
//  1. path:      set difference between disk paths and cached paths
//  2. timestamp: cached modification time vs. the enumerated one; equal
//     means unchanged with no file read at all
//  3. hash:      file bytes are read and digested only for timestamp-dirty
//     survivors; an equal digest is a metadata-only change (touch, checkout)
//
// An unreadable file in tier 3 is reported and treated as unchanged for this
// run; it never aborts classification.
func Classify(store storage.Provider, previous []models.Document, files []models.FileInfo) *Classification {
	c := &Classification{}

	cached := make(map[string]models.Document, len(previous))
	for _, d := range previous {
		cached[d.Path] = d
	}
	onDisk := make(map[string]struct{}, len(files))

	for _, f := range files {
		onDisk[f.Path] = struct{}{}
		prev, ok := cached[f.Path]
		if !ok {
			c.Added = append(c.Added, f)
			continue
		}

		// Timestamp tier: the cheap filter for the common no-change case.
		if f.ModifiedAt.UnixNano() == prev.ModifiedAt.UnixNano() {
			c.Unchanged++
			continue
		}

		// Hash tier: read bytes once, keep them for the parse phase.
		data, err := store.Read(f.Path)
		if err != nil {
			c.Errors = append(c.Errors, &apperr.FileError{Path: f.Path, Err: err})
			c.Unchanged++
			continue
		}
		ch := Change{Previous: prev, Info: f, Content: data, Hash: hash.Sum(data)}
		if ch.Hash == prev.Hash {
			c.Touched = append(c.Touched, ch)
		} else {
			c.Modified = append(c.Modified, ch)
		}
	}

	for _, d := range previous {
		if _, ok := onDisk[d.Path]; !ok {
			c.Removed = append(c.Removed, d)
		}
	}

	return c
}
