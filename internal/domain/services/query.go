package services

import (
	"context"

	"doctree/internal/domain/models"
)

// QueryService is the read-only facade over the metadata store and the
// cache layer. Reads served from cache may be stale up to the TTL; callers
// needing strong consistency read the store through the repositories.
type QueryService interface {
	// GetFolderTree returns the nested subtree rooted at rootID. A
	// maxDepth of zero means the full subtree; otherwise levels below
	// rootID.Depth+maxDepth are pruned.
	GetFolderTree(ctx context.Context, rootID string, maxDepth int) (*models.FolderTree, error)

	// GetFolderContents returns a folder and its direct children.
	GetFolderContents(ctx context.Context, folderID string) (*models.FolderContents, error)

	// GetDocument returns a single document record.
	GetDocument(ctx context.Context, id string) (*models.Document, error)

	// ListTags returns all tags with their live usage counts.
	ListTags(ctx context.Context) ([]models.Tag, error)
}
