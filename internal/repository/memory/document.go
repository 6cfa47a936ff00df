package memory

import (
	"context"
	"fmt"
	"sort"

	"doctree/internal/domain"
	"doctree/internal/domain/models"
)

// DocumentStore implements repositories.DocumentRepository over a Store.
type DocumentStore struct {
	s *Store
}

// GetByID retrieves a document by ID
func (r *DocumentStore) GetByID(ctx context.Context, id string) (*models.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return copyDocument(d), nil
}

// Create inserts a new document record
func (r *DocumentStore) Create(ctx context.Context, doc *models.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.docs[doc.ID]; exists {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrConflict)
	}
	if _, ok := r.s.folders[doc.FolderID]; !ok {
		return fmt.Errorf("folder %s: %w", doc.FolderID, domain.ErrNotFound)
	}

	r.s.docs[doc.ID] = copyDocument(doc)
	return nil
}

// Update rewrites an existing document record
func (r *DocumentStore) Update(ctx context.Context, doc *models.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.docs[doc.ID]; !ok {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}
	if _, ok := r.s.folders[doc.FolderID]; !ok {
		return fmt.Errorf("folder %s: %w", doc.FolderID, domain.ErrNotFound)
	}

	r.s.docs[doc.ID] = copyDocument(doc)
	return nil
}

// Delete removes a document record
func (r *DocumentStore) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.docs[id]; !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	delete(r.s.docs, id)
	return nil
}

// ListByFolder lists documents directly inside a folder, name-ordered
func (r *DocumentStore) ListByFolder(ctx context.Context, folderID string) ([]models.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var docs []models.Document
	for _, d := range r.s.docs {
		if d.FolderID == folderID {
			docs = append(docs, *copyDocument(d))
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// ListByFolders lists documents across several folders in one read
func (r *DocumentStore) ListByFolders(ctx context.Context, folderIDs []string) ([]models.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := make(map[string]bool, len(folderIDs))
	for _, id := range folderIDs {
		wanted[id] = true
	}

	var docs []models.Document
	for _, d := range r.s.docs {
		if wanted[d.FolderID] {
			docs = append(docs, *copyDocument(d))
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].FolderID != docs[j].FolderID {
			return docs[i].FolderID < docs[j].FolderID
		}
		return docs[i].Name < docs[j].Name
	})
	return docs, nil
}
