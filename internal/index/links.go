package index

import (
	"database/sql"
	"fmt"

	"github.com/zet-dev/zet/internal/models"
)

// replaceLinks swaps a document's full outgoing link set inside an open
// transaction. A link with an empty To is stored with a NULL target
// (external or unresolved); the raw target is always kept.
func replaceLinks(tx *sql.Tx, fromID string, links []models.Link) error {
	if _, err := tx.Exec(`DELETE FROM links WHERE from_id = ?`, fromID); err != nil {
		return fmt.Errorf("index: delete links: %w", err)
	}
	if len(links) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO links (from_id, to_id, raw_target, range_start, range_end)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare link insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range links {
		var to any
		if l.To != "" {
			to = l.To
		}
		if _, err := stmt.Exec(fromID, to, l.RawTarget, l.Range.Start, l.Range.End); err != nil {
			return fmt.Errorf("index: insert link: %w", err)
		}
	}
	return nil
}

// LinksFrom returns a document's outgoing links in document order.
func (db *DB) LinksFrom(fromID string) ([]models.Link, error) {
	rows, err := db.conn.Query(`
		SELECT from_id, to_id, raw_target, range_start, range_end
		FROM links WHERE from_id = ? ORDER BY range_start`, fromID)
	if err != nil {
		return nil, fmt.Errorf("index: links from: %w", err)
	}
	defer rows.Close()
	return scanLinks(rows)
}

// Backlinks returns every link whose resolved target is the given document.
func (db *DB) Backlinks(toID string) ([]models.Link, error) {
	rows, err := db.conn.Query(`
		SELECT from_id, to_id, raw_target, range_start, range_end
		FROM links WHERE to_id = ? ORDER BY from_id, range_start`, toID)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()
	return scanLinks(rows)
}

// GraphNode is one vertex of the link graph.
type GraphNode struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// GraphEdge is one resolved internal edge of the link graph.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph returns all live documents and the resolved edges between them.
// Broken and external edges (NULL target) are not part of the graph.
func (db *DB) Graph() ([]GraphNode, []GraphEdge, error) {
	rows, err := db.conn.Query(`SELECT id, title FROM documents ORDER BY id`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	defer rows.Close()

	var nodes []GraphNode
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.ID, &n.Title); err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	er, err := db.conn.Query(`
		SELECT DISTINCT from_id, to_id FROM links
		WHERE to_id IS NOT NULL ORDER BY from_id, to_id`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph edges: %w", err)
	}
	defer er.Close()

	var edges []GraphEdge
	for er.Next() {
		var e GraphEdge
		if err := er.Scan(&e.Source, &e.Target); err != nil {
			return nil, nil, err
		}
		edges = append(edges, e)
	}
	return nodes, edges, er.Err()
}

func scanLinks(rows *sql.Rows) ([]models.Link, error) {
	var out []models.Link
	for rows.Next() {
		var (
			l  models.Link
			to sql.NullString
		)
		if err := rows.Scan(&l.From, &to, &l.RawTarget, &l.Range.Start, &l.Range.End); err != nil {
			return nil, err
		}
		l.To = to.String
		out = append(out, l)
	}
	return out, rows.Err()
}
