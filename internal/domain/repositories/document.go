package repositories

import (
	"context"

	"doctree/internal/domain/models"
)

// DocumentRepository is the metadata store's document collection,
// partitioned by folder_id for efficient contents listing.
type DocumentRepository interface {
	// GetByID retrieves a document. Fails with domain.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Document, error)

	// Create inserts a new document record.
	Create(ctx context.Context, doc *models.Document) error

	// Update rewrites an existing document record.
	Update(ctx context.Context, doc *models.Document) error

	// Delete removes a document record. Fails with domain.ErrNotFound.
	Delete(ctx context.Context, id string) error

	// ListByFolder lists the documents directly inside a folder.
	ListByFolder(ctx context.Context, folderID string) ([]models.Document, error)

	// ListByFolders lists documents across several folders in one read;
	// used by tree assembly.
	ListByFolders(ctx context.Context, folderIDs []string) ([]models.Document, error)
}
