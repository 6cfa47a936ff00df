package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"doctree/internal/domain"
	"doctree/internal/domain/models"
	"doctree/internal/pathcodec"
)

// FolderStore implements repositories.FolderRepository over a Store.
type FolderStore struct {
	s *Store
}

// GetByID retrieves a folder by ID
func (r *FolderStore) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	f, ok := r.s.folders[id]
	if !ok {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	return copyFolder(f), nil
}

// Create inserts a folder, enforcing sibling-name uniqueness under the
// write lock (the conditional-write equivalent).
func (r *FolderStore) Create(ctx context.Context, folder *models.Folder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.folders[folder.ID]; exists {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrConflict)
	}
	if r.s.siblingNameTaken(folder.ParentID, folder.Name, folder.ID) {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("a folder named %q already exists in this location", folder.Name),
			ResourceType: "folder",
		}
	}

	r.s.folders[folder.ID] = copyFolder(folder)
	return nil
}

// Update rewrites a folder record
func (r *FolderStore) Update(ctx context.Context, folder *models.Folder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.folders[folder.ID]
	if !ok {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}
	if r.s.siblingNameTaken(folder.ParentID, folder.Name, folder.ID) {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("a folder named %q already exists in this location", folder.Name),
			ResourceType: "folder",
		}
	}

	updated := copyFolder(folder)
	// Counters are owned by IncrementCounters/SetCounters, not Update.
	updated.DocumentCount = existing.DocumentCount
	updated.SubfolderCount = existing.SubfolderCount
	r.s.folders[folder.ID] = updated
	return nil
}

// UpdatePath rewrites only the derived path/depth columns
func (r *FolderStore) UpdatePath(ctx context.Context, id, path string, depth int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, ok := r.s.folders[id]
	if !ok {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	f.Path = path
	f.Depth = depth
	return nil
}

// Delete removes a folder record. A folder that still has children fails
// with FolderNotEmpty, the same backstop the postgres foreign keys give.
func (r *FolderStore) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.folders[id]; !ok {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	for _, f := range r.s.folders {
		if f.ParentID != nil && *f.ParentID == id {
			return fmt.Errorf("folder %s has subfolders: %w", id, domain.ErrFolderNotEmpty)
		}
	}
	for _, d := range r.s.docs {
		if d.FolderID == id {
			return fmt.Errorf("folder %s has documents: %w", id, domain.ErrFolderNotEmpty)
		}
	}
	delete(r.s.folders, id)
	return nil
}

// ListChildren lists immediate child folders, name-ordered
func (r *FolderStore) ListChildren(ctx context.Context, parentID string) ([]models.Folder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var folders []models.Folder
	for _, f := range r.s.folders {
		if f.ParentID != nil && *f.ParentID == parentID {
			folders = append(folders, *copyFolder(f))
		}
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	return folders, nil
}

// ListSubtree lists a folder and all descendants by path prefix,
// parents before children.
func (r *FolderStore) ListSubtree(ctx context.Context, path string) ([]models.Folder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	prefix := pathcodec.SubtreePrefix(path)
	var folders []models.Folder
	for _, f := range r.s.folders {
		if f.Path == path || strings.HasPrefix(f.Path, prefix) {
			folders = append(folders, *copyFolder(f))
		}
	}
	sort.Slice(folders, func(i, j int) bool {
		if folders[i].Depth != folders[j].Depth {
			return folders[i].Depth < folders[j].Depth
		}
		return folders[i].Path < folders[j].Path
	})
	return folders, nil
}

// IncrementCounters applies relative deltas under the write lock, so
// concurrent increments on the same folder never lose an update.
func (r *FolderStore) IncrementCounters(ctx context.Context, id string, docDelta, subfolderDelta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, ok := r.s.folders[id]
	if !ok {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	f.DocumentCount += docDelta
	f.SubfolderCount += subfolderDelta
	f.ModifiedAt = time.Now()
	return nil
}

// SetCounters overwrites both counters (reconciliation only)
func (r *FolderStore) SetCounters(ctx context.Context, id string, docCount, subfolderCount int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, ok := r.s.folders[id]
	if !ok {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	f.DocumentCount = docCount
	f.SubfolderCount = subfolderCount
	return nil
}

// CountChildren recounts direct children by full scan
func (r *FolderStore) CountChildren(ctx context.Context, id string) (int, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.folders[id]; !ok {
		return 0, 0, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	docCount := 0
	for _, d := range r.s.docs {
		if d.FolderID == id {
			docCount++
		}
	}
	subfolderCount := 0
	for _, f := range r.s.folders {
		if f.ParentID != nil && *f.ParentID == id {
			subfolderCount++
		}
	}
	return docCount, subfolderCount, nil
}
