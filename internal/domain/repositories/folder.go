package repositories

import (
	"context"

	"doctree/internal/domain/models"
)

// FolderRepository is the metadata store's folder collection. The store is
// canonical: every read here is authoritative, unlike the cache layer.
//
// The collection is partitioned by parent_id so sibling listing is a
// single-partition read, and uniqueness of (parent_id, name) is enforced by
// a conditional write, not a read-check.
type FolderRepository interface {
	// GetByID retrieves a folder. Fails with domain.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Folder, error)

	// Create inserts a new folder. The write is conditional on
	// (parent_id, name) being free; fails with domain.ErrDuplicateName.
	Create(ctx context.Context, folder *models.Folder) error

	// Update rewrites a folder record (rename, move, description). Subject
	// to the same (parent_id, name) condition as Create.
	Update(ctx context.Context, folder *models.Folder) error

	// UpdatePath rewrites only the derived path/depth columns. It is the
	// idempotent step of a subtree walk: re-running it with the same
	// inputs is a no-op.
	UpdatePath(ctx context.Context, id, path string, depth int) error

	// Delete removes a folder record. Fails with domain.ErrNotFound.
	Delete(ctx context.Context, id string) error

	// ListChildren lists the direct subfolders of a folder, name-ordered.
	ListChildren(ctx context.Context, parentID string) ([]models.Folder, error)

	// ListSubtree lists a folder and all its descendants by materialized
	// path prefix, ordered by depth then path (parents before children).
	ListSubtree(ctx context.Context, path string) ([]models.Folder, error)

	// IncrementCounters applies relative deltas to the denormalized child
	// counters. The update is atomic with respect to concurrent increments
	// on the same folder: concurrent creates never lose an increment.
	IncrementCounters(ctx context.Context, id string, docDelta, subfolderDelta int) error

	// SetCounters overwrites both counters; used only by reconciliation.
	SetCounters(ctx context.Context, id string, docCount, subfolderCount int) error

	// CountChildren recounts direct children by full scan, for repair.
	CountChildren(ctx context.Context, id string) (docCount, subfolderCount int, err error)
}
