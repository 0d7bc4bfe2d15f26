package api

import (
	"context"
	"sort"
	"time"

	"github.com/zet-dev/zet/internal/apperr"
	"github.com/zet-dev/zet/internal/index"
	"github.com/zet-dev/zet/internal/models"
	"github.com/zet-dev/zet/internal/resolve"
	"github.com/zet-dev/zet/internal/storage"
)

// Service coordinates cache reads, raw content reads, and sync runs for the
// API layer. The collection itself is never mutated through the API; writes
// happen on disk and arrive via sync.
type Service struct {
	store  storage.Provider
	db     index.Cache
	syncer *index.Syncer
}

// NewService creates a new API service. syncer may be nil when the sync
// endpoint is not exposed.
func NewService(store storage.Provider, db index.Cache, syncer *index.Syncer) *Service {
	return &Service{store: store, db: db, syncer: syncer}
}

// DocumentDetail is the response payload for a single document.
type DocumentDetail struct {
	ID          string         `json:"id"`
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Aliases     []string       `json:"aliases"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Content     string         `json:"content"`
	Nodes       []models.Node  `json:"nodes"`
	Links       []models.Link  `json:"links"`
	Backlinks   []models.Link  `json:"backlinks"`
	CreatedAt   time.Time      `json:"created_at"`
	ModifiedAt  time.Time      `json:"modified_at"`
}

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Tags       []string  `json:"tags"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ResolveResult is the outcome of a resolution probe.
type ResolveResult struct {
	Kind       string             `json:"kind"`
	DocumentID string             `json:"document_id,omitempty"`
	Diagnostic *apperr.Diagnostic `json:"diagnostic,omitempty"`
}

// ListDocuments returns cached documents, optionally filtered by tag,
// ordered by path. limit <= 0 means no limit.
func (s *Service) ListDocuments(ctx context.Context, limit, offset int, tag string) ([]DocumentListItem, int, error) {
	docs, err := s.db.ListDocuments()
	if err != nil {
		return nil, 0, err
	}

	items := make([]DocumentListItem, 0, len(docs))
	for _, d := range docs {
		if tag != "" && !hasTag(d.Tags, tag) {
			continue
		}
		tags := d.Tags
		if tags == nil {
			tags = []string{}
		}
		items = append(items, DocumentListItem{
			ID:         d.ID,
			Path:       d.Path,
			Title:      d.Title,
			Tags:       tags,
			ModifiedAt: d.ModifiedAt,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })

	total := len(items)
	if offset > len(items) {
		offset = len(items)
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, total, nil
}

// GetDocument looks a document up by id first, then by collection-relative
// path, and enriches it with raw content, nodes, and link edges both ways.
func (s *Service) GetDocument(ctx context.Context, ref string) (*DocumentDetail, error) {
	doc, err := s.db.GetDocument(ref)
	if err != nil {
		doc, err = s.db.GetDocumentByPath(ref)
	}
	if err != nil {
		return nil, err
	}

	data, err := s.store.Read(doc.Path)
	if err != nil {
		return nil, err
	}
	nodes, err := s.db.NodesByDocument(doc.ID)
	if err != nil {
		return nil, err
	}
	links, err := s.db.LinksFrom(doc.ID)
	if err != nil {
		return nil, err
	}
	backlinks, err := s.db.Backlinks(doc.ID)
	if err != nil {
		return nil, err
	}

	detail := &DocumentDetail{
		ID:          doc.ID,
		Path:        doc.Path,
		Title:       doc.Title,
		Aliases:     doc.Aliases,
		Tags:        doc.Tags,
		Frontmatter: doc.Frontmatter,
		Content:     string(data),
		Nodes:       nodes,
		Links:       links,
		Backlinks:   backlinks,
		CreatedAt:   doc.CreatedAt,
		ModifiedAt:  doc.ModifiedAt,
	}
	if detail.Aliases == nil {
		detail.Aliases = []string{}
	}
	if detail.Tags == nil {
		detail.Tags = []string{}
	}
	if detail.Nodes == nil {
		detail.Nodes = []models.Node{}
	}
	if detail.Links == nil {
		detail.Links = []models.Link{}
	}
	if detail.Backlinks == nil {
		detail.Backlinks = []models.Link{}
	}
	return detail, nil
}

// Backlinks returns the link edges pointing at the given document id.
func (s *Service) Backlinks(ctx context.Context, id string) ([]models.Link, error) {
	if _, err := s.db.GetDocument(id); err != nil {
		return nil, err
	}
	return s.db.Backlinks(id)
}

// Search delegates to the cache.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Graph delegates to the cache.
func (s *Service) Graph(ctx context.Context) ([]index.GraphNode, []index.GraphEdge, error) {
	return s.db.Graph()
}

// ResolveLink probes resolution of a raw target against the current cache
// state, as if it appeared in a document at sourcePath. Nothing is written.
func (s *Service) ResolveLink(ctx context.Context, target, sourcePath string) (*ResolveResult, error) {
	docs, err := s.db.ListDocuments()
	if err != nil {
		return nil, err
	}
	ids := make(map[string]string, len(docs))
	aliases := make(map[string][]string)
	for _, d := range docs {
		ids[d.ID] = d.Path
		for _, a := range d.Aliases {
			aliases[a] = append(aliases[a], d.ID)
		}
	}
	res := resolve.NewUniverse(ids, aliases).Resolve(target, sourcePath)
	out := &ResolveResult{Kind: res.Kind.String(), Diagnostic: res.Diagnostic}
	if res.Kind == resolve.Internal {
		out.DocumentID = res.DocumentID
	}
	return out, nil
}

// Sync runs one sync pass against the collection.
func (s *Service) Sync(ctx context.Context) (*apperr.Summary, error) {
	if s.syncer == nil {
		return nil, apperr.ErrNotFound
	}
	return s.syncer.Run(ctx)
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
