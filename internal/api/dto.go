package api

import (
	"github.com/zet-dev/zet/internal/index"
	"github.com/zet-dev/zet/internal/models"
)

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []DocumentListItem `json:"documents" validate:"required"`
	Total     int                `json:"total" example:"42" validate:"required"`
}

// BacklinksResponse wraps incoming link edges for one document.
type BacklinksResponse struct {
	Backlinks []models.Link `json:"backlinks" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// GraphResponse wraps the document link graph.
type GraphResponse struct {
	Nodes []index.GraphNode `json:"nodes" validate:"required"`
	Edges []index.GraphEdge `json:"edges" validate:"required"`
}
