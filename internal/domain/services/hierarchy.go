package services

import (
	"context"
	"io"

	"doctree/internal/domain/models"
)

// CreateFolderRequest carries the inputs for folder creation. ParentID is
// required; the root folder is created by bootstrap, never through here.
type CreateFolderRequest struct {
	ParentID    string `json:"parent_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UpdateFolderRequest renames a folder and/or edits its description.
type UpdateFolderRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// UploadDocumentRequest carries the inputs for upload-commit. Content is
// streamed to the blob collaborator before the metadata record is created.
type UploadDocumentRequest struct {
	FolderID    string            `json:"folder_id"`
	Name        string            `json:"name"`
	FileName    string            `json:"file_name"`
	ContentType string            `json:"content_type"`
	Size        int64             `json:"size"`
	Tags        []string          `json:"tags,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Content     io.Reader         `json:"-"`
}

// UpdateDocumentRequest edits descriptive metadata. Nil fields are left
// unchanged; a non-nil Tags replaces the whole tag set.
type UpdateDocumentRequest struct {
	Name     *string            `json:"name,omitempty"`
	Tags     *[]string          `json:"tags,omitempty"`
	Metadata *map[string]string `json:"metadata,omitempty"`
}

// HierarchyService validates and executes every mutation of the
// folder/document graph, maintaining the path, depth, counter, and tag
// invariants, and driving cache invalidation and index emission.
type HierarchyService interface {
	// EnsureRoot creates the root folder singleton if it does not exist.
	EnsureRoot(ctx context.Context) error

	// CreateFolder creates a folder under an existing parent.
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*models.Folder, error)

	// UpdateFolder renames a folder and/or edits its description,
	// rewriting the materialized paths of the whole subtree.
	UpdateFolder(ctx context.Context, id string, req *UpdateFolderRequest) (*models.Folder, error)

	// MoveFolder reparents a folder, rejecting cycles and depth-bound
	// violations, and rewrites the subtree's paths and depths.
	MoveFolder(ctx context.Context, id, newParentID string) (*models.Folder, error)

	// DeleteFolder deletes a folder. Without force the folder must be
	// empty; with force the whole subtree is deleted innermost-first,
	// including document blobs.
	DeleteFolder(ctx context.Context, id string, force bool) error

	// UploadDocument commits an upload: blob write, then metadata record.
	UploadDocument(ctx context.Context, req *UploadDocumentRequest) (*models.Document, error)

	// UpdateDocumentMetadata edits a document's descriptive metadata,
	// adjusting tag usage counts by the tag-set diff.
	UpdateDocumentMetadata(ctx context.Context, id string, req *UpdateDocumentRequest) (*models.Document, error)

	// MoveDocument moves a document to another existing folder.
	MoveDocument(ctx context.Context, id, newFolderID string) (*models.Document, error)

	// DeleteDocument removes a document record, then its blob.
	DeleteDocument(ctx context.Context, id string) error

	// Reconcile repairs a subtree: recomputes paths/depths top-down and
	// recounts the denormalized counters by full scan.
	Reconcile(ctx context.Context, folderID string) error
}
