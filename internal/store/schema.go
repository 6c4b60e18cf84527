package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// CreateSchema creates the database schema if it doesn't exist.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	if err := createSchemaVersionTable(ctx, db); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}
	if err := createDocumentsTable(ctx, db); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	if err := createDirsTable(ctx, db); err != nil {
		return fmt.Errorf("creating dirs table: %w", err)
	}
	return nil
}

func createSchemaVersionTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		_, err = db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", SchemaVersion)
		return err
	}

	var version int
	if err := db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return err
	}
	if version != SchemaVersion {
		return fmt.Errorf("unsupported schema version %d (want %d)", version, SchemaVersion)
	}
	return nil
}

func createDocumentsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			path TEXT PRIMARY KEY NOT NULL,
			uid TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT '',
			fingerprint TEXT NOT NULL,
			content TEXT NOT NULL,
			tags_json TEXT NOT NULL DEFAULT '[]'
		)
	`)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(type)")
	return err
}

// dirs maps every ancestor directory key of a document to its path, so a
// directory restriction covers the whole subtree.
func createDirsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS dirs (
			dir_key TEXT NOT NULL,
			path TEXT NOT NULL,
			PRIMARY KEY (dir_key, path)
		)
	`)
	return err
}
