package models

import "time"

// FolderTree is the nested view of a folder subtree rooted at Root.
type FolderTree struct {
	Root *FolderTreeNode `json:"root"`
}

// FolderTreeNode represents a folder in the tree with nested children
type FolderTreeNode struct {
	ID             string             `json:"id"`
	ParentID       *string            `json:"parent_id"`
	Name           string             `json:"name"`
	Path           string             `json:"path"`
	Depth          int                `json:"depth"`
	DocumentCount  int                `json:"document_count"`
	SubfolderCount int                `json:"subfolder_count"`
	Folders        []*FolderTreeNode  `json:"folders"` // Pointers for proper nesting
	Documents      []DocumentTreeNode `json:"documents"`
}

// DocumentTreeNode represents a document in the tree (descriptive metadata only)
type DocumentTreeNode struct {
	ID         string    `json:"id"`
	FolderID   string    `json:"folder_id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Tags       []string  `json:"tags"`
	ModifiedAt time.Time `json:"modified_at"`
}

// FolderContents is the flat listing of a folder's direct children.
type FolderContents struct {
	Folder    *Folder    `json:"folder"`
	Folders   []Folder   `json:"folders"`
	Documents []Document `json:"documents"`
}
