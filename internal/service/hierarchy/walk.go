package hierarchy

import (
	"context"
	"fmt"

	"doctree/internal/config"
	"doctree/internal/domain/models"
	"doctree/internal/domain/services"
	"doctree/internal/pathcodec"
)

// rewriteSubtreePaths recomputes the materialized path and depth of a
// folder and every descendant, top-down, using an explicit worklist rather
// than recursion so deep trees cannot blow the stack and the walk can be
// cancelled between batches.
//
// Each step derives a child's path from its parent's *currently stored*
// path, which makes the walk idempotent and restartable: re-running it
// after a crash converges to the same values as a clean run.
//
// Returns the ids of every folder visited, for cache invalidation.
func (s *Service) rewriteSubtreePaths(ctx context.Context, rootID string) ([]string, error) {
	visited := []string{}
	queue := []string{rootID}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return visited, err
		}

		id := queue[0]
		queue = queue[1:]

		folder, err := s.folders.GetByID(ctx, id)
		if err != nil {
			return visited, err
		}
		visited = append(visited, id)

		expectedPath, expectedDepth := pathcodec.RootPath, 0
		if folder.ParentID != nil {
			parent, err := s.folders.GetByID(ctx, *folder.ParentID)
			if err != nil {
				return visited, err
			}
			expectedPath, err = pathcodec.ComputePath(parent.Path, folder.Name)
			if err != nil {
				return visited, err
			}
			expectedDepth = parent.Depth + 1
		}

		if folder.Path != expectedPath || folder.Depth != expectedDepth {
			err := s.withRetry(ctx, "rewrite path", func() error {
				return s.folders.UpdatePath(ctx, id, expectedPath, expectedDepth)
			})
			if err != nil {
				return visited, err
			}
		}

		children, err := s.folders.ListChildren(ctx, id)
		if err != nil {
			return visited, err
		}
		for i, child := range children {
			queue = append(queue, child.ID)
			// Re-check cancellation between batches on wide folders.
			if (i+1)%config.WalkBatchSize == 0 {
				if err := ctx.Err(); err != nil {
					return visited, err
				}
			}
		}
	}

	return visited, nil
}

// subtreeHeight returns the height of a folder's subtree relative to the
// folder itself (0 for a leaf), read from the materialized depths.
func (s *Service) subtreeHeight(ctx context.Context, folder *models.Folder) (int, error) {
	subtree, err := s.folders.ListSubtree(ctx, folder.Path)
	if err != nil {
		return 0, err
	}

	maxDepth := folder.Depth
	for _, f := range subtree {
		if f.Depth > maxDepth {
			maxDepth = f.Depth
		}
	}
	return maxDepth - folder.Depth, nil
}

// isDescendantOf reports whether candidate lies in the subtree rooted at
// ancestorID, by walking candidate's live parent chain. Used as the cycle
// check for moves: the chain is re-read at call time, not from an earlier
// snapshot.
func (s *Service) isDescendantOf(ctx context.Context, candidate *models.Folder, ancestorID string) (bool, error) {
	current := candidate
	for current.ParentID != nil {
		if *current.ParentID == ancestorID {
			return true, nil
		}
		parent, err := s.folders.GetByID(ctx, *current.ParentID)
		if err != nil {
			return false, err
		}
		current = parent
	}
	return false, nil
}

// Reconcile repairs a subtree: every folder's path and depth are
// recomputed top-down, and the denormalized counters are recounted by full
// scan. A full-tree reconcile additionally recounts tag usage, since usage
// counts are global. It is the repair path referenced by PartialFailure.
func (s *Service) Reconcile(ctx context.Context, folderID string) error {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return err
	}

	visited, walkErr := s.rewriteSubtreePaths(ctx, folder.ID)

	keys := make([]string, 0, len(visited)*2)
	for _, id := range visited {
		docCount, subfolderCount, err := s.folders.CountChildren(ctx, id)
		if err != nil {
			return fmt.Errorf("recount %s: %w", id, err)
		}

		current, err := s.folders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.DocumentCount != docCount || current.SubfolderCount != subfolderCount {
			s.logger.Warn("counter drift repaired",
				"folder_id", id,
				"document_count", docCount,
				"subfolder_count", subfolderCount,
			)
			if err := s.folders.SetCounters(ctx, id, docCount, subfolderCount); err != nil {
				return err
			}
		}

		keys = append(keys, services.TreeCacheKey(id), services.ContentsCacheKey(id))
	}

	s.invalidate(ctx, keys...)

	if walkErr != nil {
		return fmt.Errorf("reconcile walk: %w", walkErr)
	}

	if folder.IsRoot() {
		if err := s.reconcileTagUsage(ctx, visited); err != nil {
			return fmt.Errorf("reconcile tag usage: %w", err)
		}
	}

	s.logger.Info("subtree reconciled", "folder_id", folderID, "folders", len(visited))
	return nil
}

// reconcileTagUsage recounts every tag's usage from the live documents in
// folderIDs (the whole tree when called from a root reconcile) and
// overwrites drifted counts, including tags whose every use is gone.
func (s *Service) reconcileTagUsage(ctx context.Context, folderIDs []string) error {
	docs, err := s.docs.ListByFolders(ctx, folderIDs)
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	for _, doc := range docs {
		for _, tag := range doc.Tags {
			counts[models.CanonicalTag(tag)]++
		}
	}

	existing, err := s.tags.List(ctx)
	if err != nil {
		return err
	}
	for _, tag := range existing {
		want := counts[tag.Name]
		delete(counts, tag.Name)
		if tag.UsageCount == want {
			continue
		}
		s.logger.Warn("tag usage drift repaired", "tag", tag.Name, "usage_count", want)
		if err := s.tags.SetUsage(ctx, tag.Name, want); err != nil {
			return err
		}
	}

	// Tags referenced by documents but missing from the store entirely.
	for name, want := range counts {
		if err := s.tags.SetUsage(ctx, name, want); err != nil {
			return err
		}
	}

	return nil
}
