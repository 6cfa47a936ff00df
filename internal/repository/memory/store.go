// Package memory is an in-memory implementation of the metadata store,
// used by tests and by memory-mode servers running without infrastructure.
// It enforces the same contracts as the postgres adapter: sibling-name
// uniqueness as a conditional write and lost-update-free counter increments.
package memory

import (
	"sync"

	"doctree/internal/domain/models"
)

// Store holds all three collections behind one RWMutex, so every operation
// the interfaces describe as atomic is atomic here too.
type Store struct {
	mu      sync.RWMutex
	folders map[string]*models.Folder
	docs    map[string]*models.Document
	tags    map[string]*models.Tag
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		folders: make(map[string]*models.Folder),
		docs:    make(map[string]*models.Document),
		tags:    make(map[string]*models.Tag),
	}
}

// Folders returns the store's FolderRepository view.
func (s *Store) Folders() *FolderStore { return &FolderStore{s} }

// Documents returns the store's DocumentRepository view.
func (s *Store) Documents() *DocumentStore { return &DocumentStore{s} }

// Tags returns the store's TagRepository view.
func (s *Store) Tags() *TagStore { return &TagStore{s} }

func copyFolder(f *models.Folder) *models.Folder {
	c := *f
	return &c
}

func copyDocument(d *models.Document) *models.Document {
	c := *d
	c.Tags = append([]string(nil), d.Tags...)
	if d.Metadata != nil {
		c.Metadata = make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func (s *Store) siblingNameTaken(parentID *string, name, excludeID string) bool {
	for _, f := range s.folders {
		if f.ID == excludeID {
			continue
		}
		if f.Name != name {
			continue
		}
		switch {
		case f.ParentID == nil && parentID == nil:
			return true
		case f.ParentID != nil && parentID != nil && *f.ParentID == *parentID:
			return true
		}
	}
	return false
}
