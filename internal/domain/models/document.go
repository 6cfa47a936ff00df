package models

import (
	"time"
)

// Document is the metadata record for an uploaded file. The bytes live in
// the external blob store under BlobRef; the record and its blob share a
// lifecycle (the blob is deleted exactly when the record is).
type Document struct {
	ID          string            `json:"id" db:"id"`
	FolderID    string            `json:"folder_id" db:"folder_id"`
	Name        string            `json:"name" db:"name"`
	FileName    string            `json:"file_name" db:"file_name"`
	Size        int64             `json:"size" db:"size"`
	ContentType string            `json:"content_type" db:"content_type"`
	BlobRef     string            `json:"blob_ref" db:"blob_ref"`
	Tags        []string          `json:"tags" db:"tags"`
	Metadata    map[string]string `json:"metadata" db:"metadata"`
	UploadedAt  time.Time         `json:"uploaded_at" db:"uploaded_at"`
	ModifiedAt  time.Time         `json:"modified_at" db:"modified_at"`
}
