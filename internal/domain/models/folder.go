package models

import (
	"time"
)

// RootFolderID is the fixed id of the root folder singleton. The root is
// created once at bootstrap, has path "/" and depth 0, and is never
// deleted, renamed, or moved.
const RootFolderID = "00000000-0000-0000-0000-000000000000"

// Folder is a node in the hierarchical namespace. Path and Depth are
// derived from the parent chain and materialized on the record;
// DocumentCount and SubfolderCount are denormalized live counts of direct
// children, maintained incrementally and repairable by full recount.
type Folder struct {
	ID             string    `json:"id" db:"id"`
	ParentID       *string   `json:"parent_id" db:"parent_id"` // NULL only for the root folder
	Name           string    `json:"name" db:"name"`
	Description    string    `json:"description,omitempty" db:"description"`
	Path           string    `json:"path" db:"path"`
	Depth          int       `json:"depth" db:"depth"`
	DocumentCount  int       `json:"document_count" db:"document_count"`
	SubfolderCount int       `json:"subfolder_count" db:"subfolder_count"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	ModifiedAt     time.Time `json:"modified_at" db:"modified_at"`
}

// IsRoot reports whether this folder is the root singleton.
func (f *Folder) IsRoot() bool {
	return f.ID == RootFolderID
}

// IsEmpty reports whether the folder has no direct children of either kind.
func (f *Folder) IsEmpty() bool {
	return f.DocumentCount == 0 && f.SubfolderCount == 0
}
