package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/qquiche/ir/pkg/errors"
)

// Document is one corpus document: a stable identifier and its raw text.
// For HTML corpora the text has already been stripped of markup.
type Document struct {
	ID   string
	Text string
}

// Source enumerates a document collection and reloads single documents by ID.
// Load is used by relevance feedback to re-derive document vectors with the
// same tokenizer configuration as the index.
type Source interface {
	Documents(ctx context.Context) ([]Document, error)
	Load(ctx context.Context, id string) (Document, error)
}

// DirSource reads every regular file in a directory as one document, in
// lexicographic file-name order so that indexing is deterministic.
type DirSource struct {
	Dir     string
	DocType DocType
}

// Documents reads all files in the source directory.
func (s DirSource) Documents(ctx context.Context) ([]Document, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory %s: %w", s.Dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	docs := make([]Document, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := s.Load(ctx, name)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Load reads a single document by file name.
func (s DirSource) Load(_ context.Context, id string) (Document, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, fmt.Errorf("document %s: %w", id, errors.ErrDocumentNotFound)
		}
		return Document{}, fmt.Errorf("reading document %s: %w", id, err)
	}
	text := string(data)
	if s.DocType == TypeHTML {
		text = StripHTML(text)
	}
	return Document{ID: id, Text: text}, nil
}

// PostgresSource reads documents from a Postgres table with doc_id, title,
// and body columns. Title and body are concatenated into the document text.
type PostgresSource struct {
	DB      *sql.DB
	Table   string
	DocType DocType
}

// Documents scans the whole table ordered by doc_id.
func (s PostgresSource) Documents(ctx context.Context) ([]Document, error) {
	query := fmt.Sprintf("SELECT doc_id, title, body FROM %s ORDER BY doc_id", s.Table)
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("scanning corpus table %s: %w", s.Table, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id, title, body string
		if err := rows.Scan(&id, &title, &body); err != nil {
			return nil, fmt.Errorf("scanning corpus row: %w", err)
		}
		docs = append(docs, s.document(id, title, body))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating corpus rows: %w", err)
	}
	return docs, nil
}

// Load fetches a single document row by doc_id.
func (s PostgresSource) Load(ctx context.Context, id string) (Document, error) {
	query := fmt.Sprintf("SELECT title, body FROM %s WHERE doc_id = $1", s.Table)
	var title, body string
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&title, &body)
	if err == sql.ErrNoRows {
		return Document{}, fmt.Errorf("document %s: %w", id, errors.ErrDocumentNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("loading document %s: %w", id, err)
	}
	return s.document(id, title, body), nil
}

func (s PostgresSource) document(id, title, body string) Document {
	text := title + " " + body
	if s.DocType == TypeHTML {
		text = StripHTML(text)
	}
	return Document{ID: id, Text: text}
}
