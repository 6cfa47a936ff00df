package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the metadata tables if they do not exist. The
// unique index on (parent_id, name) backs the conditional-insert duplicate
// check; parent_id and folder_id indexes are the partition keys for
// sibling and contents listing; the path index serves subtree queries.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, stmt := range schemaStatements(tables) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}

func schemaStatements(tables *TableNames) []string {
	return []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				parent_id UUID REFERENCES %s(id),
				name VARCHAR(100) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				path TEXT NOT NULL,
				depth INT NOT NULL,
				document_count INT NOT NULL DEFAULT 0,
				subfolder_count INT NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL,
				modified_at TIMESTAMPTZ NOT NULL
			)
		`, tables.Folders, tables.Folders),
		fmt.Sprintf(`
			CREATE UNIQUE INDEX IF NOT EXISTS %s_parent_name_idx
			ON %s (parent_id, name)
		`, tables.Folders, tables.Folders),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_path_idx
			ON %s (path text_pattern_ops)
		`, tables.Folders, tables.Folders),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				folder_id UUID NOT NULL REFERENCES %s(id),
				name VARCHAR(100) NOT NULL,
				file_name TEXT NOT NULL,
				size BIGINT NOT NULL,
				content_type TEXT NOT NULL,
				blob_ref TEXT NOT NULL,
				tags JSONB NOT NULL DEFAULT '[]',
				metadata JSONB NOT NULL DEFAULT '{}',
				uploaded_at TIMESTAMPTZ NOT NULL,
				modified_at TIMESTAMPTZ NOT NULL
			)
		`, tables.Documents, tables.Folders),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_folder_idx
			ON %s (folder_id)
		`, tables.Documents, tables.Documents),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				name VARCHAR(50) PRIMARY KEY,
				usage_count INT NOT NULL DEFAULT 0
			)
		`, tables.Tags),
	}
}
