package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"doctree/internal/domain"
	"doctree/internal/domain/models"
	"doctree/internal/domain/repositories"
	"doctree/internal/pathcodec"
)

// PostgresFolderRepository implements the FolderRepository interface.
// Folders are partitioned by parent_id (sibling listing is one partition
// read) and carry a unique index on (parent_id, name) so sibling-name
// uniqueness is a conditional write, not a read-check.
type PostgresFolderRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(config *RepositoryConfig) repositories.FolderRepository {
	return &PostgresFolderRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const folderColumns = "id, parent_id, name, description, path, depth, document_count, subfolder_count, created_at, modified_at"

func scanFolder(row interface{ Scan(...any) error }, folder *models.Folder) error {
	return row.Scan(
		&folder.ID,
		&folder.ParentID,
		&folder.Name,
		&folder.Description,
		&folder.Path,
		&folder.Depth,
		&folder.DocumentCount,
		&folder.SubfolderCount,
		&folder.CreatedAt,
		&folder.ModifiedAt,
	)
}

// GetByID retrieves a folder by ID
func (r *PostgresFolderRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, folderColumns, r.tables.Folders)

	var folder models.Folder
	err := scanFolder(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id), &folder)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}

	return &folder, nil
}

// Create inserts a new folder. The unique index on (parent_id, name) makes
// this the conditional write that enforces sibling-name uniqueness.
func (r *PostgresFolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, parent_id, name, description, path, depth, document_count, subfolder_count, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.tables.Folders)

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		folder.ID,
		folder.ParentID,
		folder.Name,
		folder.Description,
		folder.Path,
		folder.Depth,
		folder.DocumentCount,
		folder.SubfolderCount,
		folder.CreatedAt,
		folder.ModifiedAt,
	)

	if err != nil {
		if isPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a folder named %q already exists in this location", folder.Name),
				ResourceType: "folder",
			}
		}
		return fmt.Errorf("create folder: %w", err)
	}

	return nil
}

// Update rewrites a folder record
func (r *PostgresFolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET parent_id = $1, name = $2, description = $3, path = $4, depth = $5, modified_at = $6
		WHERE id = $7
	`, r.tables.Folders)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		folder.ParentID,
		folder.Name,
		folder.Description,
		folder.Path,
		folder.Depth,
		folder.ModifiedAt,
		folder.ID,
	)

	if err != nil {
		if isPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a folder named %q already exists in this location", folder.Name),
				ResourceType: "folder",
			}
		}
		return fmt.Errorf("update folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}

	return nil
}

// UpdatePath rewrites only the derived path/depth columns (subtree walk step)
func (r *PostgresFolderRepository) UpdatePath(ctx context.Context, id, path string, depth int) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET path = $1, depth = $2
		WHERE id = $3
	`, r.tables.Folders)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, path, depth, id)
	if err != nil {
		return fmt.Errorf("update folder path: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Delete deletes a folder
func (r *PostgresFolderRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
	`, r.tables.Folders)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("folder has children: %w", domain.ErrFolderNotEmpty)
		}
		return fmt.Errorf("delete folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListChildren lists immediate child folders
func (r *PostgresFolderRepository) ListChildren(ctx context.Context, parentID string) ([]models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE parent_id = $1
		ORDER BY name ASC
	`, folderColumns, r.tables.Folders)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("list folder children: %w", err)
	}
	defer rows.Close()

	var folders []models.Folder
	for rows.Next() {
		var folder models.Folder
		if err := scanFolder(rows, &folder); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return folders, nil
}

// ListSubtree lists a folder and all descendants by materialized-path
// prefix, parents before children. The prefix is a literal, not a pattern:
// '%' and '_' are legal in folder names and must not act as wildcards.
func (r *PostgresFolderRepository) ListSubtree(ctx context.Context, path string) ([]models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE path = $1 OR path LIKE $2 ESCAPE '\'
		ORDER BY depth ASC, path ASC
	`, folderColumns, r.tables.Folders)

	pattern := escapeLikeLiteral(pathcodec.SubtreePrefix(path)) + "%"
	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, path, pattern)
	if err != nil {
		return nil, fmt.Errorf("list subtree: %w", err)
	}
	defer rows.Close()

	var folders []models.Folder
	for rows.Next() {
		var folder models.Folder
		if err := scanFolder(rows, &folder); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return folders, nil
}

// IncrementCounters applies relative counter deltas. The single relative
// UPDATE is atomic per row, so concurrent increments on the same folder
// never lose an update.
func (r *PostgresFolderRepository) IncrementCounters(ctx context.Context, id string, docDelta, subfolderDelta int) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET document_count = document_count + $1,
		    subfolder_count = subfolder_count + $2,
		    modified_at = $3
		WHERE id = $4
	`, r.tables.Folders)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, docDelta, subfolderDelta, time.Now(), id)
	if err != nil {
		return fmt.Errorf("increment counters: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// SetCounters overwrites both counters (reconciliation only)
func (r *PostgresFolderRepository) SetCounters(ctx context.Context, id string, docCount, subfolderCount int) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET document_count = $1, subfolder_count = $2
		WHERE id = $3
	`, r.tables.Folders)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, docCount, subfolderCount, id)
	if err != nil {
		return fmt.Errorf("set counters: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// CountChildren recounts direct children by full scan, for repair
func (r *PostgresFolderRepository) CountChildren(ctx context.Context, id string) (int, int, error) {
	query := fmt.Sprintf(`
		SELECT
			(SELECT COUNT(*) FROM %s WHERE folder_id = $1),
			(SELECT COUNT(*) FROM %s WHERE parent_id = $1)
	`, r.tables.Documents, r.tables.Folders)

	var docCount, subfolderCount int
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, id).Scan(&docCount, &subfolderCount)
	if err != nil {
		return 0, 0, fmt.Errorf("count children: %w", err)
	}

	return docCount, subfolderCount, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLikeLiteral escapes LIKE metacharacters so a path prefix matches
// byte-for-byte, the same way the in-memory store's HasPrefix does.
func escapeLikeLiteral(s string) string {
	return likeEscaper.Replace(s)
}
