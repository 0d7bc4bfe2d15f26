package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zet-dev/zet/internal/apperr"
	"github.com/zet-dev/zet/internal/models"
)

// DocumentRecord is one document's full cache payload for a commit: the
// metadata row plus the node arena, outgoing links, and the plain-text body
// fed to the search sink.
type DocumentRecord struct {
	Document models.Document
	Nodes    []models.Node
	Links    []models.Link
	Body     string
}

// ListDocuments returns every cached document, aliases included.
func (db *DB) ListDocuments() ([]models.Document, error) {
	rows, err := db.conn.Query(`
		SELECT id, path, title, hash, tags, frontmatter, created_at, modified_at
		FROM documents ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []models.Document
	byID := make(map[string]int)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		byID[d.ID] = len(out)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ar, err := db.conn.Query(`SELECT alias, document_id FROM aliases`)
	if err != nil {
		return nil, fmt.Errorf("index: list aliases: %w", err)
	}
	defer ar.Close()
	for ar.Next() {
		var alias, docID string
		if err := ar.Scan(&alias, &docID); err != nil {
			return nil, err
		}
		if i, ok := byID[docID]; ok {
			out[i].Aliases = append(out[i].Aliases, alias)
		}
	}
	return out, ar.Err()
}

// GetDocument returns one document by id.
func (db *DB) GetDocument(id string) (*models.Document, error) {
	row := db.conn.QueryRow(`
		SELECT id, path, title, hash, tags, frontmatter, created_at, modified_at
		FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ar, err := db.conn.Query(`SELECT alias FROM aliases WHERE document_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("index: get aliases: %w", err)
	}
	defer ar.Close()
	for ar.Next() {
		var alias string
		if err := ar.Scan(&alias); err != nil {
			return nil, err
		}
		d.Aliases = append(d.Aliases, alias)
	}
	return &d, ar.Err()
}

// GetDocumentByPath returns one document by its collection-relative path.
func (db *DB) GetDocumentByPath(path string) (*models.Document, error) {
	var id string
	err := db.conn.QueryRow(`SELECT id FROM documents WHERE path = ?`, path).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get by path: %w", err)
	}
	return db.GetDocument(id)
}

// TouchDocument updates only the stored modification time. Used when a file
// was touched but its content hash is unchanged, so the next run's timestamp
// tier short-circuits again.
func (db *DB) TouchDocument(id string, modifiedAt time.Time) error {
	_, err := db.conn.Exec(`UPDATE documents SET modified_at = ? WHERE id = ?`,
		modifiedAt.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("index: touch document: %w", err)
	}
	return nil
}

// ReplaceDocument commits one document atomically: the metadata row is
// upserted and the node set, outgoing links, aliases, and search entry are
// replaced wholesale (delete-then-insert, never patched). One transaction
// per document; a failure here never affects other documents' commits.
func (db *DB) ReplaceDocument(rec DocumentRecord) error {
	d := rec.Document
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(d.Tags)
	fmJSON := ""
	if d.Frontmatter != nil {
		raw, err := json.Marshal(d.Frontmatter)
		if err != nil {
			return fmt.Errorf("index: marshal frontmatter: %w", err)
		}
		fmJSON = string(raw)
	}

	_, err = tx.Exec(`
		INSERT INTO documents (id, path, title, hash, tags, frontmatter, body, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path        = excluded.path,
			title       = excluded.title,
			hash        = excluded.hash,
			tags        = excluded.tags,
			frontmatter = excluded.frontmatter,
			body        = excluded.body,
			modified_at = excluded.modified_at
	`, d.ID, d.Path, d.Title, int64(d.Hash), string(tagsJSON), fmJSON, rec.Body,
		d.CreatedAt.UnixNano(), d.ModifiedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	_, _ = tx.Exec(`DELETE FROM aliases WHERE document_id = ?`, d.ID)
	for _, alias := range d.Aliases {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO aliases (alias, document_id) VALUES (?, ?)`, alias, d.ID); err != nil {
			return fmt.Errorf("index: insert alias: %w", err)
		}
	}

	if err := replaceNodes(tx, d.ID, rec.Nodes); err != nil {
		return err
	}
	if err := replaceLinks(tx, d.ID, rec.Links); err != nil {
		return err
	}
	if err := ftsUpsert(tx, d.ID, d.Title, rec.Body, d.Tags); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteDocument removes a document and cascades explicitly: its nodes,
// aliases, outgoing links, and search entry are deleted, while incoming
// links from other documents keep their row and get a null target. The
// cascade lives here as code, not as store triggers, so the policy stays
// visible.
func (db *DB) DeleteDocument(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM nodes WHERE document_id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM links WHERE from_id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM aliases WHERE document_id = ?`, id)
	// Incoming edges survive as "now broken" records.
	_, _ = tx.Exec(`UPDATE links SET to_id = NULL WHERE to_id = ?`, id)
	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM documents WHERE id = ?`, id)

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (models.Document, error) {
	var (
		d                    models.Document
		hash                 int64
		tagsJSON, fmJSON     string
		createdNS, modifiedNS int64
	)
	if err := r.Scan(&d.ID, &d.Path, &d.Title, &hash, &tagsJSON, &fmJSON, &createdNS, &modifiedNS); err != nil {
		return d, err
	}
	d.Hash = uint64(hash)
	d.CreatedAt = time.Unix(0, createdNS)
	d.ModifiedAt = time.Unix(0, modifiedNS)
	if tagsJSON != "" && tagsJSON != "[]" {
		_ = json.Unmarshal([]byte(tagsJSON), &d.Tags)
	}
	if fmJSON != "" {
		_ = json.Unmarshal([]byte(fmJSON), &d.Frontmatter)
	}
	return d, nil
}
