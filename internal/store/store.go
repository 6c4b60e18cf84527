// Package store keeps indexed documents in SQLite: the text each one had
// when it was indexed, its definition tags, and the identity used to tell
// whether the file on disk has changed since.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	_ "modernc.org/sqlite"

	"github.com/dl/gogrok/internal/query"
	"github.com/dl/gogrok/internal/symbols"
)

var (
	// ErrNotFound is returned for a path that was never indexed.
	ErrNotFound = errors.New("document not found")
	// ErrStale is returned when the file changed after it was indexed.
	ErrStale = errors.New("document is stale")
)

// Document is one indexed file. Path is slash-separated and rooted at the
// source root, e.g. "/project/src/main.c".
type Document struct {
	Path        string
	UID         string
	Type        string
	Fingerprint uint64
	Content     string
	Tags        []symbols.Tag
}

// Definitions returns the document's tags.
func (d *Document) Definitions() *symbols.Definitions {
	return symbols.NewDefinitions(d.Tags...)
}

// Fingerprint hashes document content.
func Fingerprint(content []byte) uint64 {
	return xxhash.Sum64(content)
}

// PathUID builds the document identity from its path and modification
// time: the path with '/' replaced by NUL, a NUL, then the time as
// yyyyMMddHHmmssSSS in UTC.
func PathUID(p string, mtime time.Time) string {
	buf := make([]byte, 0, len(p)+18)
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			buf = append(buf, 0)
		} else {
			buf = append(buf, p[i])
		}
	}
	buf = append(buf, 0)
	t := mtime.UTC()
	buf = t.AppendFormat(buf, "20060102150405")
	return fmt.Sprintf("%s%03d", buf, t.Nanosecond()/int(time.Millisecond))
}

// Store is a SQLite-backed document store. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer at a time; readers share the same connection.
	db.SetMaxOpenConns(1)

	if err := CreateSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts or replaces a document.
func (s *Store) Put(ctx context.Context, doc Document) error {
	tags := doc.Tags
	if tags == nil {
		tags = []symbols.Tag{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshaling tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents (path, uid, type, fingerprint, content, tags_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		doc.Path,
		doc.UID,
		doc.Type,
		strconv.FormatUint(doc.Fingerprint, 16),
		doc.Content,
		string(tagsJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM dirs WHERE path = ?", doc.Path); err != nil {
		return fmt.Errorf("clearing dirs: %w", err)
	}
	for _, dir := range ancestors(doc.Path) {
		_, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO dirs (dir_key, path) VALUES (?, ?)",
			query.DirPathKey(dir), doc.Path)
		if err != nil {
			return fmt.Errorf("inserting dir: %w", err)
		}
	}
	return tx.Commit()
}

// Get returns the document stored for path.
func (s *Store) Get(ctx context.Context, p string) (*Document, error) {
	var (
		doc      Document
		fp       string
		tagsJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT path, uid, type, fingerprint, content, tags_json
		FROM documents
		WHERE path = ?
	`, p).Scan(&doc.Path, &doc.UID, &doc.Type, &fp, &doc.Content, &tagsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document: %w", err)
	}

	if doc.Fingerprint, err = strconv.ParseUint(fp, 16, 64); err != nil {
		return nil, fmt.Errorf("parsing fingerprint of %s: %w", p, err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &doc.Tags); err != nil {
		return nil, fmt.Errorf("unmarshaling tags of %s: %w", p, err)
	}
	return &doc, nil
}

// Fresh returns the document stored for path only if it was indexed from
// the file version identified by uid. Otherwise the error wraps ErrStale
// and the outdated document is returned with it.
func (s *Store) Fresh(ctx context.Context, p, uid string) (*Document, error) {
	doc, err := s.Get(ctx, p)
	if err != nil {
		return nil, err
	}
	if doc.UID != uid {
		return doc, fmt.Errorf("%s: %w", p, ErrStale)
	}
	return doc, nil
}

// Delete removes a document. Deleting an unknown path is not an error.
func (s *Store) Delete(ctx context.Context, p string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE path = ?", p); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM dirs WHERE path = ?", p); err != nil {
		return fmt.Errorf("deleting dirs: %w", err)
	}
	return tx.Commit()
}

// Filter narrows Paths. Empty fields match everything.
type Filter struct {
	// DirKey restricts to documents below the directory with this key.
	DirKey string
	// Type restricts to one document type.
	Type string
}

// Paths returns the stored paths matching f in path order.
func (s *Store) Paths(ctx context.Context, f Filter) ([]string, error) {
	q := "SELECT d.path FROM documents d"
	var args []any
	if f.DirKey != "" {
		q += " JOIN dirs k ON k.path = d.path AND k.dir_key = ?"
		args = append(args, f.DirKey)
	}
	if f.Type != "" {
		q += " WHERE d.type = ?"
		args = append(args, f.Type)
	}
	q += " ORDER BY d.path"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// ancestors lists every directory above p, innermost first, ending with
// the root.
func ancestors(p string) []string {
	var dirs []string
	for dir := path.Dir(p); ; dir = path.Dir(dir) {
		dirs = append(dirs, dir)
		if dir == "/" || dir == "." {
			return dirs
		}
	}
}
