package models

import "time"

// IndexRecord is the flattened record handed to the search collaborator
// after every successful write. It is intentionally path-independent:
// consumers resolve location through FolderID, so folder renames and moves
// never require document re-indexing.
type IndexRecord struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"` // "folder" or "document"
	Name       string            `json:"name"`
	FolderID   string            `json:"folder_id"`
	Tags       []string          `json:"tags,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	UploadedAt time.Time         `json:"uploaded_at"`
}
