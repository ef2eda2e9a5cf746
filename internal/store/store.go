// Package store is the SQLite persistence layer for normalized
// documents and their extracted assets.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/docnorm/internal/normdoc"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a document or asset does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	format TEXT NOT NULL,
	text TEXT NOT NULL,
	html TEXT NOT NULL,
	metadata TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS assets (
	doc_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	token TEXT NOT NULL,
	position INTEGER NOT NULL,
	asset_id TEXT NOT NULL DEFAULT '',
	source_url TEXT NOT NULL DEFAULT '',
	mime TEXT NOT NULL DEFAULT '',
	original_name TEXT NOT NULL DEFAULT '',
	alt_text TEXT NOT NULL DEFAULT '',
	width_px INTEGER NOT NULL DEFAULT 0,
	height_px INTEGER NOT NULL DEFAULT 0,
	keep_original_language INTEGER NOT NULL DEFAULT 0,
	bytes BLOB,
	PRIMARY KEY (doc_id, token)
);
CREATE INDEX IF NOT EXISTS idx_assets_doc ON assets(doc_id);
`

// Store wraps the SQLite database. Safe for concurrent use; SQLite
// serializes writers behind the busy timeout.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path, applies the production
// pragmas, and ensures the schema exists. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DocumentRecord is a stored document with its decoded metadata. Asset
// rows are loaded without their bytes; use GetAsset for the payload.
type DocumentRecord struct {
	ID        string
	Filename  string
	Doc       *normdoc.Document
	CreatedAt time.Time
}

// DocumentSummary is the listing row.
type DocumentSummary struct {
	ID         string         `json:"id"`
	Filename   string         `json:"filename"`
	Format     normdoc.Format `json:"format"`
	AssetCount int            `json:"asset_count"`
	CreatedAt  time.Time      `json:"created_at"`
}

// SaveDocument upserts a document under its content-derived id.
// Re-ingesting byte-identical input overwrites the same row, so the
// operation is idempotent.
func (s *Store) SaveDocument(ctx context.Context, id, filename string, doc *normdoc.Document) error {
	meta, err := json.Marshal(doc.Meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, filename, format, text, html, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			format = excluded.format,
			text = excluded.text,
			html = excluded.html,
			metadata = excluded.metadata`,
		id, filename, string(doc.Meta.Format), doc.Text, doc.HTML, string(meta), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM assets WHERE doc_id = ?`, id); err != nil {
		return fmt.Errorf("clear assets: %w", err)
	}
	for i, a := range doc.Assets {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO assets (doc_id, token, position, asset_id, source_url, mime,
				original_name, alt_text, width_px, height_px, keep_original_language, bytes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, a.Token, i, a.AssetID, a.SourceURL, a.MIME,
			a.OriginalName, a.AltText, a.WidthPx, a.HeightPx, boolInt(a.KeepOriginalLanguage), a.Bytes)
		if err != nil {
			return fmt.Errorf("insert asset %s: %w", a.Token, err)
		}
	}
	return tx.Commit()
}

// GetDocument loads a document and its asset rows (payloads omitted).
func (s *Store) GetDocument(ctx context.Context, id string) (*DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT filename, text, html, metadata, created_at FROM documents WHERE id = ?`, id)

	var rec DocumentRecord
	var metaJSON string
	var createdAt int64
	doc := &normdoc.Document{}
	if err := row.Scan(&rec.Filename, &doc.Text, &doc.HTML, &metaJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load document: %w", err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &doc.Meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT token, asset_id, source_url, mime, original_name, alt_text,
			width_px, height_px, keep_original_language
		FROM assets WHERE doc_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a normdoc.Asset
		var keep int
		if err := rows.Scan(&a.Token, &a.AssetID, &a.SourceURL, &a.MIME,
			&a.OriginalName, &a.AltText, &a.WidthPx, &a.HeightPx, &keep); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		a.KeepOriginalLanguage = keep != 0
		doc.Assets = append(doc.Assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}

	rec.ID = id
	rec.Doc = doc
	rec.CreatedAt = time.Unix(createdAt, 0)
	return &rec, nil
}

// GetAsset loads a single asset including its payload bytes.
func (s *Store) GetAsset(ctx context.Context, docID, token string) (*normdoc.Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token, asset_id, source_url, mime, original_name, alt_text,
			width_px, height_px, keep_original_language, bytes
		FROM assets WHERE doc_id = ? AND token = ?`, docID, token)

	var a normdoc.Asset
	var keep int
	err := row.Scan(&a.Token, &a.AssetID, &a.SourceURL, &a.MIME,
		&a.OriginalName, &a.AltText, &a.WidthPx, &a.HeightPx, &keep, &a.Bytes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load asset: %w", err)
	}
	a.KeepOriginalLanguage = keep != 0
	return &a, nil
}

// ListDocuments returns summaries newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.filename, d.format, d.created_at,
			(SELECT COUNT(*) FROM assets a WHERE a.doc_id = d.id)
		FROM documents d ORDER BY d.created_at DESC, d.id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentSummary
	for rows.Next() {
		var s DocumentSummary
		var createdAt int64
		var format string
		if err := rows.Scan(&s.ID, &s.Filename, &format, &createdAt, &s.AssetCount); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.Format = normdoc.Format(format)
		s.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteDocument removes a document and, via the foreign key cascade,
// its assets. Reports whether a row existed.
func (s *Store) DeleteDocument(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
