package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"doctree/internal/domain"
	"doctree/internal/domain/models"
	"doctree/internal/domain/services"
	"doctree/internal/pathcodec"
)

// CreateFolder creates a folder under an existing parent. Sibling-name
// uniqueness is enforced by the store's conditional write, not a
// read-then-check, so two concurrent creates with the same name cannot
// both succeed.
func (s *Service) CreateFolder(ctx context.Context, req *services.CreateFolderRequest) (*models.Folder, error) {
	if err := validateCreateFolder(req); err != nil {
		return nil, err
	}

	var folder *models.Folder
	err := s.withRetry(ctx, "create folder", func() error {
		// Re-read the parent each attempt: a concurrent move may have
		// changed its path or depth since the last try.
		parent, err := s.folders.GetByID(ctx, req.ParentID)
		if err != nil {
			return fmt.Errorf("parent folder: %w", err)
		}

		depth, err := pathcodec.ComputeDepth(parent.Depth)
		if err != nil {
			return err
		}
		path, err := pathcodec.ComputePath(parent.Path, req.Name)
		if err != nil {
			return err
		}

		now := time.Now()
		folder = &models.Folder{
			ID:          uuid.New().String(),
			ParentID:    &req.ParentID,
			Name:        req.Name,
			Description: req.Description,
			Path:        path,
			Depth:       depth,
			CreatedAt:   now,
			ModifiedAt:  now,
		}
		return s.tx.ExecTx(ctx, func(txCtx context.Context) error {
			// The path was derived from a read outside this tx; if the
			// parent was renamed or moved in between, retry rather than
			// persist a stale path.
			latest, err := s.folders.GetByID(txCtx, req.ParentID)
			if err != nil {
				return fmt.Errorf("parent folder: %w", err)
			}
			if latest.Path != parent.Path || latest.Depth != parent.Depth {
				return fmt.Errorf("parent changed during create: %w", domain.ErrConflict)
			}
			if err := s.folders.Create(txCtx, folder); err != nil {
				return err
			}
			return s.folders.IncrementCounters(txCtx, req.ParentID, 0, 1)
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateFolderViews(ctx, folder)
	s.emitIndex(ctx, folderIndexRecord(folder))

	s.logger.Info("folder created", "id", folder.ID, "path", folder.Path)
	return folder, nil
}

// UpdateFolder renames a folder and/or edits its description. A rename
// rewrites the materialized paths of the whole subtree top-down.
func (s *Service) UpdateFolder(ctx context.Context, id string, req *services.UpdateFolderRequest) (*models.Folder, error) {
	if req.Name != nil {
		if err := pathcodec.ValidateName(*req.Name); err != nil {
			return nil, err
		}
	}

	var folder *models.Folder
	err := s.withRetry(ctx, "update folder", func() error {
		current, err := s.folders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.IsRoot() && req.Name != nil {
			return fmt.Errorf("%w: root folder cannot be renamed", domain.ErrForbidden)
		}

		if req.Name != nil {
			current.Name = *req.Name
		}
		if req.Description != nil {
			current.Description = *req.Description
		}
		current.ModifiedAt = time.Now()

		if err := s.folders.Update(ctx, current); err != nil {
			return err
		}
		folder = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if req.Name != nil && !folder.IsRoot() {
		// The stored path still reflects the old name; the walk derives
		// the new one from the parent and cascades it to descendants.
		visited, walkErr := s.rewriteSubtreePaths(ctx, folder.ID)
		s.invalidateSubtreeViews(ctx, folder, visited)
		if walkErr != nil {
			s.logger.Error("rename path rewrite failed", "id", folder.ID, "error", walkErr)
			s.flagForReconciliation(ctx, folder.ID)
			return folder, fmt.Errorf("rename path rewrite: %w", domain.ErrPartialFailure)
		}
		refreshed, err := s.folders.GetByID(ctx, folder.ID)
		if err == nil {
			folder = refreshed
		}
	} else {
		s.invalidateFolderViews(ctx, folder)
	}

	s.emitIndex(ctx, folderIndexRecord(folder))

	s.logger.Info("folder updated", "id", folder.ID, "path", folder.Path)
	return folder, nil
}

// MoveFolder reparents a folder. Cycles are rejected by walking the live
// parent chain of the destination, and the check is repeated inside the
// retry loop so a concurrent move cannot slip a cycle past a stale read.
func (s *Service) MoveFolder(ctx context.Context, id, newParentID string) (*models.Folder, error) {
	if id == newParentID {
		return nil, fmt.Errorf("%w: cannot move a folder into itself", domain.ErrInvalidMove)
	}

	var (
		folder      *models.Folder
		oldParentID string
	)
	err := s.withRetry(ctx, "move folder", func() error {
		current, err := s.folders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.IsRoot() {
			return fmt.Errorf("%w: root folder cannot be moved", domain.ErrForbidden)
		}
		oldParentID = *current.ParentID

		newParent, err := s.folders.GetByID(ctx, newParentID)
		if err != nil {
			return fmt.Errorf("destination folder: %w", err)
		}

		descendant, err := s.isDescendantOf(ctx, newParent, current.ID)
		if err != nil {
			return err
		}
		if descendant {
			return fmt.Errorf("%w: destination is inside the folder being moved", domain.ErrInvalidMove)
		}

		height, err := s.subtreeHeight(ctx, current)
		if err != nil {
			return err
		}
		if _, err := pathcodec.ComputeDepth(newParent.Depth + height); err != nil {
			return err
		}

		current.ParentID = &newParentID
		current.ModifiedAt = time.Now()
		return s.tx.ExecTx(ctx, func(txCtx context.Context) error {
			if err := s.folders.Update(txCtx, current); err != nil {
				return err
			}
			if oldParentID == newParentID {
				folder = current
				return nil
			}
			if err := s.folders.IncrementCounters(txCtx, oldParentID, 0, -1); err != nil {
				return err
			}
			if err := s.folders.IncrementCounters(txCtx, newParentID, 0, 1); err != nil {
				return err
			}
			folder = current
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	visited, walkErr := s.rewriteSubtreePaths(ctx, folder.ID)
	s.invalidateSubtreeViews(ctx, folder, visited)
	s.invalidate(ctx, services.ContentsCacheKey(oldParentID))
	if walkErr != nil {
		s.logger.Error("move path rewrite failed", "id", folder.ID, "error", walkErr)
		s.flagForReconciliation(ctx, folder.ID)
		return folder, fmt.Errorf("move path rewrite: %w", domain.ErrPartialFailure)
	}

	refreshed, err := s.folders.GetByID(ctx, folder.ID)
	if err == nil {
		folder = refreshed
	}

	s.emitIndex(ctx, folderIndexRecord(folder))

	s.logger.Info("folder moved", "id", folder.ID, "path", folder.Path, "new_parent_id", newParentID)
	return folder, nil
}

// DeleteFolder deletes a folder. Without force the folder must be empty.
// With force the whole subtree is deleted innermost-first so the walk is
// restartable: an interrupted cascade leaves only complete subfolders
// behind, and re-running it finishes the job.
func (s *Service) DeleteFolder(ctx context.Context, id string, force bool) error {
	folder, err := s.folders.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if folder.IsRoot() {
		return fmt.Errorf("%w: root folder cannot be deleted", domain.ErrForbidden)
	}

	if !force {
		// Recount rather than trusting the denormalized counters: a
		// drifted counter must not block or allow a delete incorrectly.
		docCount, subfolderCount, err := s.folders.CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if docCount > 0 || subfolderCount > 0 {
			return fmt.Errorf("%w: folder has %d documents and %d subfolders",
				domain.ErrFolderNotEmpty, docCount, subfolderCount)
		}

		err = s.tx.ExecTx(ctx, func(txCtx context.Context) error {
			if err := s.folders.Delete(txCtx, id); err != nil {
				return err
			}
			return s.folders.IncrementCounters(txCtx, *folder.ParentID, 0, -1)
		})
		if err != nil {
			return err
		}
	} else {
		// The cascade is deliberately not one transaction: it is
		// restartable, and a huge subtree must not pin a tx open.
		if err := s.deleteSubtree(ctx, folder); err != nil {
			return err
		}
		if err := s.folders.IncrementCounters(ctx, *folder.ParentID, 0, -1); err != nil {
			s.logger.Error("subfolder counter decrement failed", "parent_id", *folder.ParentID, "error", err)
			s.flagForReconciliation(ctx, *folder.ParentID)
			return fmt.Errorf("delete folder counters: %w", domain.ErrPartialFailure)
		}
	}

	s.invalidateFolderViews(ctx, folder)
	s.emitIndexRemove(ctx, folder.ID)

	s.logger.Info("folder deleted", "id", folder.ID, "path", folder.Path, "force", force)
	return nil
}

// deleteSubtree removes every folder and document under folder, innermost
// first. Blob deletes happen after each metadata record is removed and
// never fail the cascade; an unreachable blob is handed to the job queue.
func (s *Service) deleteSubtree(ctx context.Context, folder *models.Folder) error {
	subtree, err := s.folders.ListSubtree(ctx, folder.Path)
	if err != nil {
		return err
	}

	// ListSubtree orders parents before children; walk it backwards.
	for i := len(subtree) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		f := subtree[i]

		docs, err := s.docs.ListByFolder(ctx, f.ID)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if err := s.docs.Delete(ctx, doc.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			s.decrementTagUsage(ctx, doc.Tags)
			s.removeBlob(ctx, doc.BlobRef)
			s.emitIndexRemove(ctx, doc.ID)
			s.invalidate(ctx, services.DocumentCacheKey(doc.ID))
		}

		if err := s.folders.Delete(ctx, f.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if f.ID != folder.ID {
			s.emitIndexRemove(ctx, f.ID)
		}
		s.invalidate(ctx, services.TreeCacheKey(f.ID), services.ContentsCacheKey(f.ID))
	}

	return nil
}

// decrementTagUsage releases a document's tags, flooring each count at
// zero in the store. Usage counts are advisory; a failed decrement is
// logged and left for the next recount.
func (s *Service) decrementTagUsage(ctx context.Context, tags []string) {
	for _, tag := range tags {
		if err := s.tags.IncrementUsage(ctx, models.CanonicalTag(tag), -1); err != nil {
			s.logger.Warn("tag usage decrement failed", "tag", tag, "error", err)
		}
	}
}

func validateCreateFolder(req *services.CreateFolderRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.ParentID, validation.Required),
	); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return pathcodec.ValidateName(req.Name)
}
