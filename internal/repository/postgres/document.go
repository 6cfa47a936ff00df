package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"doctree/internal/domain"
	"doctree/internal/domain/models"
	"doctree/internal/domain/repositories"
)

// PostgresDocumentRepository implements the DocumentRepository interface.
// Documents are partitioned by folder_id for efficient contents listing.
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const documentColumns = "id, folder_id, name, file_name, size, content_type, blob_ref, tags, metadata, uploaded_at, modified_at"

// Tags and metadata are stored as JSONB. Marshaling explicitly keeps the
// encoding independent of the pool's query execution mode.
func scanDocument(row interface{ Scan(...any) error }, doc *models.Document) error {
	var tags, metadata []byte
	err := row.Scan(
		&doc.ID,
		&doc.FolderID,
		&doc.Name,
		&doc.FileName,
		&doc.Size,
		&doc.ContentType,
		&doc.BlobRef,
		&tags,
		&metadata,
		&doc.UploadedAt,
		&doc.ModifiedAt,
	)
	if err != nil {
		return err
	}

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &doc.Tags); err != nil {
			return fmt.Errorf("decode tags: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
			return fmt.Errorf("decode metadata: %w", err)
		}
	}
	return nil
}

func encodeDocumentFields(doc *models.Document) (tags, metadata []byte, err error) {
	tags, err = json.Marshal(doc.Tags)
	if err != nil {
		return nil, nil, fmt.Errorf("encode tags: %w", err)
	}
	metadata, err = json.Marshal(doc.Metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("encode metadata: %w", err)
	}
	return tags, metadata, nil
}

// GetByID retrieves a document by ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, documentColumns, r.tables.Documents)

	var doc models.Document
	err := scanDocument(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id), &doc)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return &doc, nil
}

// Create inserts a new document record
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	tags, metadata, err := encodeDocumentFields(doc)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, folder_id, name, file_name, size, content_type, blob_ref, tags, metadata, uploaded_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.tables.Documents)

	_, err = GetExecutor(ctx, r.pool).Exec(ctx, query,
		doc.ID,
		doc.FolderID,
		doc.Name,
		doc.FileName,
		doc.Size,
		doc.ContentType,
		doc.BlobRef,
		tags,
		metadata,
		doc.UploadedAt,
		doc.ModifiedAt,
	)

	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("folder %s: %w", doc.FolderID, domain.ErrNotFound)
		}
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// Update rewrites an existing document record
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	tags, metadata, err := encodeDocumentFields(doc)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET folder_id = $1, name = $2, file_name = $3, size = $4, content_type = $5,
		    blob_ref = $6, tags = $7, metadata = $8, modified_at = $9
		WHERE id = $10
	`, r.tables.Documents)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		doc.FolderID,
		doc.Name,
		doc.FileName,
		doc.Size,
		doc.ContentType,
		doc.BlobRef,
		tags,
		metadata,
		doc.ModifiedAt,
		doc.ID,
	)

	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("folder %s: %w", doc.FolderID, domain.ErrNotFound)
		}
		return fmt.Errorf("update document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes a document record
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
	`, r.tables.Documents)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListByFolder lists documents directly inside a folder
func (r *PostgresDocumentRepository) ListByFolder(ctx context.Context, folderID string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE folder_id = $1
		ORDER BY name ASC
	`, documentColumns, r.tables.Documents)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		if err := scanDocument(rows, &doc); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return docs, nil
}

// ListByFolders lists documents across several folders in one read
func (r *PostgresDocumentRepository) ListByFolders(ctx context.Context, folderIDs []string) ([]models.Document, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE folder_id = ANY($1)
		ORDER BY folder_id ASC, name ASC
	`, documentColumns, r.tables.Documents)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, folderIDs)
	if err != nil {
		return nil, fmt.Errorf("list documents by folders: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		if err := scanDocument(rows, &doc); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return docs, nil
}
