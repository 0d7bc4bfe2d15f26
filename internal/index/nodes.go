package index

import (
	"database/sql"
	"fmt"

	"github.com/zet-dev/zet/internal/apperr"
	"github.com/zet-dev/zet/internal/models"
)

// replaceNodes swaps a document's full node set inside an open transaction.
// Nodes arrive in arena order with Parent as an arena index; parents are
// remapped to the freshly assigned row ids as rows are inserted, which works
// because a parent always precedes its children in the arena.
func replaceNodes(tx *sql.Tx, documentID string, nodes []models.Node) error {
	if _, err := tx.Exec(`DELETE FROM nodes WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("index: delete nodes: %w", err)
	}
	if len(nodes) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO nodes (document_id, parent_id, kind, range_start, range_end, payload)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare node insert: %w", err)
	}
	defer stmt.Close()

	rowIDs := make([]int64, len(nodes))
	for i, n := range nodes {
		var parent any
		if n.Parent >= 0 {
			parent = rowIDs[n.Parent]
		}
		payload, err := models.MarshalPayload(n.Payload)
		if err != nil {
			return err
		}
		res, err := stmt.Exec(documentID, parent, string(n.Kind), n.Range.Start, n.Range.End, payload)
		if err != nil {
			return fmt.Errorf("index: insert node: %w", err)
		}
		rowIDs[i], _ = res.LastInsertId()
	}
	return nil
}

// NodesByDocument returns a document's nodes in insertion (document) order.
func (db *DB) NodesByDocument(documentID string) ([]models.Node, error) {
	rows, err := db.conn.Query(`
		SELECT id, parent_id, kind, range_start, range_end, payload
		FROM nodes WHERE document_id = ? ORDER BY id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("index: nodes by document: %w", err)
	}
	defer rows.Close()

	var out []models.Node
	rowToIdx := make(map[int64]int)
	for rows.Next() {
		var (
			n       models.Node
			parent  sql.NullInt64
			payload string
			kind    string
		)
		if err := rows.Scan(&n.ID, &parent, &kind, &n.Range.Start, &n.Range.End, &payload); err != nil {
			return nil, err
		}
		n.DocumentID = documentID
		n.Kind = models.NodeKind(kind)
		n.Parent = -1
		if parent.Valid {
			i, ok := rowToIdx[parent.Int64]
			if !ok {
				return nil, &apperr.InconsistentCacheError{
					DocumentID: documentID,
					Detail:     fmt.Sprintf("node %d references missing parent row %d", n.ID, parent.Int64),
				}
			}
			n.Parent = i
		}
		if n.Payload, err = models.UnmarshalPayload(payload); err != nil {
			return nil, err
		}
		rowToIdx[n.ID] = len(out)
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountNodes returns how many node rows a document owns.
func (db *DB) CountNodes(documentID string) (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT count(*) FROM nodes WHERE document_id = ?`, documentID).Scan(&n)
	return n, err
}
