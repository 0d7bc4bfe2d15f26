package index

import (
	"time"

	"github.com/zet-dev/zet/internal/models"
)

// Cache defines the read/write surface of the document cache. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with mocks.
type Cache interface {
	ListDocuments() ([]models.Document, error)
	GetDocument(id string) (*models.Document, error)
	GetDocumentByPath(path string) (*models.Document, error)
	ReplaceDocument(rec DocumentRecord) error
	TouchDocument(id string, modifiedAt time.Time) error
	DeleteDocument(id string) error
	NodesByDocument(documentID string) ([]models.Node, error)
	CountNodes(documentID string) (int, error)
	LinksFrom(fromID string) ([]models.Link, error)
	Backlinks(toID string) ([]models.Link, error)
	Graph() ([]GraphNode, []GraphEdge, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies Cache at compile time.
var _ Cache = (*DB)(nil)
