package handler

import (
	"doctree/internal/httputil"
)

// createFolderRequest is the POST /api/folders body.
type createFolderRequest struct {
	ParentID    string `json:"parent_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// updateFolderRequest is the PATCH /api/folders/{id} body. ParentID uses
// tri-state presence: absent leaves the folder where it is, a value moves
// it. A rename and a move may arrive in the same request; the move is
// applied first so the rename lands under the new parent.
type updateFolderRequest struct {
	Name        *string                  `json:"name,omitempty"`
	Description *string                  `json:"description,omitempty"`
	ParentID    httputil.OptionalString  `json:"parent_id"`
}

// updateDocumentRequest is the PATCH /api/documents/{id} body. FolderID
// moves the document; the remaining fields edit descriptive metadata.
type updateDocumentRequest struct {
	Name     *string                 `json:"name,omitempty"`
	Tags     *[]string               `json:"tags,omitempty"`
	Metadata *map[string]string      `json:"metadata,omitempty"`
	FolderID httputil.OptionalString `json:"folder_id"`
}
