package index

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/zet-dev/zet/internal/apperr"
	"github.com/zet-dev/zet/internal/ast"
	"github.com/zet-dev/zet/internal/hash"
	"github.com/zet-dev/zet/internal/models"
	"github.com/zet-dev/zet/internal/parser"
	"github.com/zet-dev/zet/internal/resolve"
	"github.com/zet-dev/zet/internal/slug"
	"github.com/zet-dev/zet/internal/storage"
)

// EventCallback is called after each committed index mutation.
// kind is "indexed" or "removed".
type EventCallback func(kind, path string)

// Syncer brings the cache up to date with the collection. A run walks the
// phases scan -> classify -> process -> resolve -> commit; documents are
// isolated from each other so one bad file never stops the rest.
type Syncer struct {
	db          *DB
	store       storage.Provider
	logger      *slog.Logger
	concurrency int
	cb          EventCallback
}

// NewSyncer creates a Syncer. concurrency bounds the parse worker pool;
// values below 1 mean serial. cb may be nil.
func NewSyncer(db *DB, store storage.Provider, logger *slog.Logger, concurrency int, cb EventCallback) *Syncer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Syncer{db: db, store: store, logger: logger, concurrency: concurrency, cb: cb}
}

// processed is one fully parsed document awaiting resolution and commit.
type processed struct {
	doc   models.Document
	oldID string // previous id when a frontmatter override re-keyed the document
	nodes []models.Node
	links []ast.LinkRef
	body  string
	skip  bool // set when a duplicate-id collision keeps this commit out of the run

	linksResolved []models.Link
}

// Run executes one sync. Only a failure to enumerate the collection or to
// read the cache aborts the run; everything per-document lands in the
// summary instead.
func (s *Syncer) Run(ctx context.Context) (*apperr.Summary, error) {
	files, err := s.store.List("")
	if err != nil {
		return nil, fmt.Errorf("sync: enumerate collection: %w", err)
	}
	previous, err := s.db.ListDocuments()
	if err != nil {
		return nil, fmt.Errorf("sync: load cache state: %w", err)
	}

	cls := Classify(s.store, previous, files)
	summary := &apperr.Summary{
		Added:     len(cls.Added),
		Modified:  len(cls.Modified),
		Removed:   len(cls.Removed),
		Unchanged: cls.Unchanged,
		Touched:   len(cls.Touched),
	}
	summary.FileErrors = append(summary.FileErrors, cls.Errors...)

	procs := s.processAll(ctx, cls, summary)
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	// All documents in the run are parsed before any resolution, so links
	// between two documents that both changed resolve against each other's
	// final state.
	universe := s.buildUniverse(previous, cls, procs, summary)
	s.resolveAll(universe, procs, summary)

	s.commit(ctx, cls, procs, summary)

	s.logger.Info("sync: completed", slog.String("summary", summary.String()))
	return summary, ctx.Err()
}

// processAll reads and parses added and modified documents on a bounded
// worker pool. Documents are independent; the pool is the only concurrency.
func (s *Syncer) processAll(ctx context.Context, cls *Classification, summary *apperr.Summary) []*processed {
	var (
		mu    sync.Mutex
		procs []*processed
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	collect := func(p *processed, ferr *apperr.FileError) {
		mu.Lock()
		defer mu.Unlock()
		if ferr != nil {
			summary.FileErrors = append(summary.FileErrors, ferr)
			return
		}
		procs = append(procs, p)
	}

	for _, f := range cls.Added {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			data, err := s.store.Read(f.Path)
			if err != nil {
				s.logger.Warn("sync: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
				collect(nil, &apperr.FileError{Path: f.Path, Err: err})
				return nil
			}
			collect(s.process(nil, f, data, hash.Sum(data)), nil)
			return nil
		})
	}
	for _, ch := range cls.Modified {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			collect(s.process(&ch.Previous, ch.Info, ch.Content, ch.Hash), nil)
			return nil
		})
	}
	_ = g.Wait()

	// Deterministic downstream order regardless of worker scheduling.
	sort.Slice(procs, func(i, j int) bool { return procs[i].doc.Path < procs[j].doc.Path })
	return procs
}

// process maps one document's raw bytes into its cache record. prev is nil
// for added documents.
func (s *Syncer) process(prev *models.Document, info models.FileInfo, content []byte, digest uint64) *processed {
	fm, body, bodyOffset := parser.ExtractFrontmatter(content)

	id := slug.DefaultID(info.Path)
	if fm != nil && fm.ID != "" {
		id = fm.ID
	}

	events := parser.Scan(body)
	tree, links := ast.Build(id, len(body), bodyOffset, events)

	doc := models.Document{
		ID:         id,
		Path:       info.Path,
		Hash:       digest,
		ModifiedAt: info.ModifiedAt,
		CreatedAt:  info.ModifiedAt,
	}
	if prev != nil {
		doc.CreatedAt = prev.CreatedAt
	}
	if fm != nil {
		doc.Frontmatter = fm.Raw
		doc.Aliases = fm.Aliases
		doc.Title = fm.Title
		doc.Tags = fm.Tags
	}
	if doc.Title == "" {
		doc.Title = tree.FirstHeading()
	}
	if doc.Title == "" {
		doc.Title = stem(info.Path)
	}
	doc.Tags = mergeTags(doc.Tags, tree.Tags())

	p := &processed{doc: doc, nodes: tree.Nodes, links: links, body: string(body)}
	if prev != nil && prev.ID != id {
		p.oldID = prev.ID
	}
	s.logger.Debug("sync: parsed", slog.String("path", info.Path), slog.String("id", id))
	return p
}

// buildUniverse assembles the post-run identifier snapshot: every cached
// document that survives this run plus this run's parsed documents. An added
// or modified document whose id collides with a different live path is
// flagged and kept out of the commit; the first owner keeps the id.
func (s *Syncer) buildUniverse(previous []models.Document, cls *Classification, procs []*processed, summary *apperr.Summary) *resolve.Universe {
	removedPaths := make(map[string]struct{}, len(cls.Removed))
	for _, d := range cls.Removed {
		removedPaths[d.Path] = struct{}{}
	}
	reprocessed := make(map[string]struct{}, len(procs))
	for _, p := range procs {
		reprocessed[p.doc.Path] = struct{}{}
	}

	ids := make(map[string]string)
	aliases := make(map[string][]string)
	for _, d := range previous {
		if _, gone := removedPaths[d.Path]; gone {
			continue
		}
		if _, again := reprocessed[d.Path]; again {
			continue
		}
		ids[d.ID] = d.Path
		for _, a := range d.Aliases {
			aliases[a] = append(aliases[a], d.ID)
		}
	}

	for _, p := range procs {
		if otherPath, taken := ids[p.doc.ID]; taken && otherPath != p.doc.Path {
			p.skip = true
			summary.Diagnostics = append(summary.Diagnostics, apperr.Diagnostic{
				Kind:   apperr.DiagDuplicateID,
				Path:   p.doc.Path,
				Target: p.doc.ID,
				Detail: fmt.Sprintf("id already owned by %s; document kept on disk but not committed this run", otherPath),
			})
			s.logger.Warn("sync: duplicate id",
				slog.String("id", p.doc.ID),
				slog.String("path", p.doc.Path),
				slog.String("owner", otherPath))
			continue
		}
		ids[p.doc.ID] = p.doc.Path
		for _, a := range p.doc.Aliases {
			aliases[a] = append(aliases[a], p.doc.ID)
		}
	}

	return resolve.NewUniverse(ids, aliases)
}

// resolveAll turns every collected raw link target into a link edge against
// the complete identifier universe.
func (s *Syncer) resolveAll(universe *resolve.Universe, procs []*processed, summary *apperr.Summary) {
	for _, p := range procs {
		if p.skip {
			continue
		}
		for _, ref := range p.links {
			res := universe.Resolve(ref.RawTarget, p.doc.Path)
			if res.Diagnostic != nil {
				d := *res.Diagnostic
				d.Path = p.doc.Path
				summary.Diagnostics = append(summary.Diagnostics, d)
			}
			link := models.Link{
				From:      p.doc.ID,
				RawTarget: ref.RawTarget,
				Range:     ref.Range,
			}
			if res.Kind == resolve.Internal {
				link.To = res.DocumentID
			}
			p.linksResolved = append(p.linksResolved, link)
		}
	}
}

// commit applies the run: removals first (freeing ids and nulling incoming
// edges), then timestamp-only touches, then one transaction per processed
// document. A failed commit is recorded and skipped, never rolled into
// another document's transaction.
func (s *Syncer) commit(ctx context.Context, cls *Classification, procs []*processed, summary *apperr.Summary) {
	for _, d := range cls.Removed {
		if ctx.Err() != nil {
			return
		}
		if err := s.db.DeleteDocument(d.ID); err != nil {
			s.logger.Warn("sync: delete failed", slog.String("path", d.Path), slog.String("error", err.Error()))
			summary.FileErrors = append(summary.FileErrors, &apperr.FileError{Path: d.Path, Err: err})
			continue
		}
		s.logger.Debug("sync: removed", slog.String("path", d.Path))
		if s.cb != nil {
			s.cb("removed", d.Path)
		}
	}

	for _, ch := range cls.Touched {
		if ctx.Err() != nil {
			return
		}
		if err := s.db.TouchDocument(ch.Previous.ID, ch.Info.ModifiedAt); err != nil {
			summary.FileErrors = append(summary.FileErrors, &apperr.FileError{Path: ch.Info.Path, Err: err})
		}
	}

	for _, p := range procs {
		if ctx.Err() != nil {
			return
		}
		if p.skip {
			continue
		}
		if p.oldID != "" {
			// Re-keyed by a frontmatter override: retire the old record so
			// the path uniqueness constraint holds for the new id.
			if err := s.db.DeleteDocument(p.oldID); err != nil {
				summary.FileErrors = append(summary.FileErrors, &apperr.FileError{Path: p.doc.Path, Err: err})
				continue
			}
		}
		rec := DocumentRecord{Document: p.doc, Nodes: p.nodes, Links: p.linksResolved, Body: p.body}
		if err := s.db.ReplaceDocument(rec); err != nil {
			s.logger.Warn("sync: commit failed", slog.String("path", p.doc.Path), slog.String("error", err.Error()))
			summary.FileErrors = append(summary.FileErrors, &apperr.FileError{Path: p.doc.Path, Err: err})
			continue
		}
		s.logger.Debug("sync: indexed", slog.String("path", p.doc.Path))
		if s.cb != nil {
			s.cb("indexed", p.doc.Path)
		}
	}
}

func stem(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

func mergeTags(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, t := range append(append([]string(nil), a...), b...) {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
