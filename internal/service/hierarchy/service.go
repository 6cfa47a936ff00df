// Package hierarchy implements the mutation engine for the folder/document
// graph. Every operation validates against the structural invariants,
// writes through the metadata store, and then fires cache invalidations
// and search-index records as non-blocking side effects.
package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"doctree/internal/config"
	"doctree/internal/domain"
	"doctree/internal/domain/models"
	"doctree/internal/domain/repositories"
	"doctree/internal/domain/services"
	"doctree/internal/pathcodec"
)

// Service implements services.HierarchyService.
type Service struct {
	folders repositories.FolderRepository
	docs    repositories.DocumentRepository
	tags    repositories.TagRepository
	tx      repositories.TransactionManager
	blobs   services.BlobStore
	cache   services.Cache
	index   services.SearchIndex
	queue   services.JobQueue
	logger  *slog.Logger
}

// NewService creates a new hierarchy service. The transaction manager
// scopes each record-write-plus-counter pair; subtree walks stay outside
// it on purpose (they are restartable, not atomic).
func NewService(
	folders repositories.FolderRepository,
	docs repositories.DocumentRepository,
	tags repositories.TagRepository,
	tx repositories.TransactionManager,
	blobs services.BlobStore,
	cache services.Cache,
	index services.SearchIndex,
	queue services.JobQueue,
	logger *slog.Logger,
) services.HierarchyService {
	return &Service{
		folders: folders,
		docs:    docs,
		tags:    tags,
		tx:      tx,
		blobs:   blobs,
		cache:   cache,
		index:   index,
		queue:   queue,
		logger:  logger,
	}
}

// EnsureRoot creates the root folder singleton if it does not exist.
func (s *Service) EnsureRoot(ctx context.Context) error {
	_, err := s.folders.GetByID(ctx, models.RootFolderID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	now := time.Now()
	root := &models.Folder{
		ID:         models.RootFolderID,
		ParentID:   nil,
		Name:       "",
		Path:       pathcodec.RootPath,
		Depth:      0,
		CreatedAt:  now,
		ModifiedAt: now,
	}

	if err := s.folders.Create(ctx, root); err != nil {
		// A concurrent bootstrap won the insert; that is fine.
		if errors.Is(err, domain.ErrDuplicateName) || errors.Is(err, domain.ErrConflict) {
			return nil
		}
		return err
	}

	s.logger.Info("root folder created", "id", models.RootFolderID)
	return nil
}

// withRetry re-runs fn while it loses conditional writes to concurrent
// mutations. Structural failures pass through untouched; exhausting the
// bound surfaces PartialFailure.
func (s *Service) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= config.MaxWriteRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Debug("retrying after write conflict", "op", op, "attempt", attempt+1)
	}
	return fmt.Errorf("%s after %d retries: %w", op, config.MaxWriteRetries, domain.ErrPartialFailure)
}

// ancestorIDs returns the folder's id followed by every ancestor id up to
// and including the root. The chain is read live, so it reflects the
// hierarchy at call time; depth is bounded, so so is the walk.
func (s *Service) ancestorIDs(ctx context.Context, folder *models.Folder) ([]string, error) {
	ids := []string{folder.ID}
	current := folder
	for current.ParentID != nil {
		parent, err := s.folders.GetByID(ctx, *current.ParentID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, parent.ID)
		current = parent
	}
	return ids, nil
}

// invalidate drops cache keys without ever failing the mutation: errors
// are logged and the invalidation is retried through the job queue.
func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidation failed, enqueueing retry", "keys", len(keys), "error", err)
		if err := s.queue.EnqueueCacheInvalidate(ctx, keys); err != nil {
			s.logger.Error("cache invalidation retry enqueue failed", "error", err)
		}
	}
}

// invalidateFolderViews drops the contents listing of the folder's parent
// and the tree caches of the folder and every ancestor.
func (s *Service) invalidateFolderViews(ctx context.Context, folder *models.Folder) {
	keys := []string{}
	if folder.ParentID != nil {
		keys = append(keys, services.ContentsCacheKey(*folder.ParentID))
	}

	ancestors, err := s.ancestorIDs(ctx, folder)
	if err != nil {
		// Fall back to the broadest cover we know: the global root tree.
		s.logger.Warn("ancestor walk for invalidation failed", "folder_id", folder.ID, "error", err)
		ancestors = []string{folder.ID, models.RootFolderID}
	}
	for _, id := range ancestors {
		keys = append(keys, services.TreeCacheKey(id))
	}

	s.invalidate(ctx, keys...)
}

// invalidateSubtreeViews drops the cached views touched by a subtree path
// rewrite: the tree and contents entries of every visited folder, plus the
// usual parent/ancestor views of the subtree root.
func (s *Service) invalidateSubtreeViews(ctx context.Context, folder *models.Folder, visited []string) {
	keys := make([]string, 0, len(visited)*2)
	for _, id := range visited {
		keys = append(keys, services.TreeCacheKey(id), services.ContentsCacheKey(id))
	}
	s.invalidate(ctx, keys...)
	s.invalidateFolderViews(ctx, folder)
}

// emitIndex forwards a flattened record to the search collaborator,
// fire-and-forget.
func (s *Service) emitIndex(ctx context.Context, rec *models.IndexRecord) {
	if err := s.index.Index(ctx, rec); err != nil {
		s.logger.Warn("index emission failed", "id", rec.ID, "error", err)
	}
}

// emitIndexRemove drops a record from the search collaborator.
func (s *Service) emitIndexRemove(ctx context.Context, id string) {
	if err := s.index.Remove(ctx, id); err != nil {
		s.logger.Warn("index removal failed", "id", id, "error", err)
	}
}

// flagForReconciliation schedules background repair of a subtree whose
// counters or paths may have drifted.
func (s *Service) flagForReconciliation(ctx context.Context, folderID string) {
	if err := s.queue.EnqueueReconcile(ctx, folderID); err != nil {
		s.logger.Error("reconcile enqueue failed", "folder_id", folderID, "error", err)
	}
}

func folderIndexRecord(folder *models.Folder) *models.IndexRecord {
	parentID := ""
	if folder.ParentID != nil {
		parentID = *folder.ParentID
	}
	return &models.IndexRecord{
		ID:         folder.ID,
		Kind:       "folder",
		Name:       folder.Name,
		FolderID:   parentID,
		UploadedAt: folder.CreatedAt,
	}
}

func documentIndexRecord(doc *models.Document) *models.IndexRecord {
	return &models.IndexRecord{
		ID:         doc.ID,
		Kind:       "document",
		Name:       doc.Name,
		FolderID:   doc.FolderID,
		Tags:       doc.Tags,
		Metadata:   doc.Metadata,
		UploadedAt: doc.UploadedAt,
	}
}
