// Package query implements the read-only facade over the metadata store.
// Every read goes through the advisory cache first: a hit may be stale up
// to the TTL, a miss is served from the store and cached. Cache failures
// degrade to store reads and never fail the request.
package query

import (
	"context"
	"log/slog"
	"time"

	"doctree/internal/domain/models"
	"doctree/internal/domain/repositories"
	"doctree/internal/domain/services"
)

// Service implements services.QueryService.
type Service struct {
	folders  repositories.FolderRepository
	docs     repositories.DocumentRepository
	tags     repositories.TagRepository
	cache    services.Cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewService creates a new query service.
func NewService(
	folders repositories.FolderRepository,
	docs repositories.DocumentRepository,
	tags repositories.TagRepository,
	cache services.Cache,
	cacheTTL time.Duration,
	logger *slog.Logger,
) services.QueryService {
	return &Service{
		folders:  folders,
		docs:     docs,
		tags:     tags,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// GetFolderTree assembles the nested subtree rooted at rootID from two
// range reads (folders by path prefix, documents by folder ids) and an
// in-memory stitch, never one query per node.
//
// Depth pruning happens after the cache: the cache holds the full subtree
// under the root's key, and invalidation stays a single-key affair.
func (s *Service) GetFolderTree(ctx context.Context, rootID string, maxDepth int) (*models.FolderTree, error) {
	key := services.TreeCacheKey(rootID)

	var tree models.FolderTree
	if hit := s.cacheGet(ctx, key, &tree); hit {
		return pruneTree(&tree, maxDepth), nil
	}

	root, err := s.folders.GetByID(ctx, rootID)
	if err != nil {
		return nil, err
	}

	folders, err := s.folders.ListSubtree(ctx, root.Path)
	if err != nil {
		return nil, err
	}

	folderIDs := make([]string, len(folders))
	for i, f := range folders {
		folderIDs[i] = f.ID
	}
	docs, err := s.docs.ListByFolders(ctx, folderIDs)
	if err != nil {
		return nil, err
	}

	assembled := assembleTree(root, folders, docs)
	s.cacheSet(ctx, key, assembled)

	return pruneTree(assembled, maxDepth), nil
}

// GetFolderContents returns a folder and its direct children.
func (s *Service) GetFolderContents(ctx context.Context, folderID string) (*models.FolderContents, error) {
	key := services.ContentsCacheKey(folderID)

	var contents models.FolderContents
	if hit := s.cacheGet(ctx, key, &contents); hit {
		return &contents, nil
	}

	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	subfolders, err := s.folders.ListChildren(ctx, folderID)
	if err != nil {
		return nil, err
	}
	docs, err := s.docs.ListByFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}

	result := &models.FolderContents{
		Folder:    folder,
		Folders:   subfolders,
		Documents: docs,
	}
	s.cacheSet(ctx, key, result)
	return result, nil
}

// GetDocument returns a single document record.
func (s *Service) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	key := services.DocumentCacheKey(id)

	var doc models.Document
	if hit := s.cacheGet(ctx, key, &doc); hit {
		return &doc, nil
	}

	stored, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, stored)
	return stored, nil
}

// ListTags returns all tags with their live usage counts. Tag listings are
// not cached: the store read is a single small scan.
func (s *Service) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.tags.List(ctx)
}

func (s *Service) cacheGet(ctx context.Context, key string, dest any) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("cache read failed, serving from store", "key", key, "error", err)
		return false
	}
	return hit
}

func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// assembleTree stitches flat folder and document listings into a nested
// tree. Folders arrive ordered by depth then path, so every parent node
// exists before its children are attached.
func assembleTree(root *models.Folder, folders []models.Folder, docs []models.Document) *models.FolderTree {
	nodes := make(map[string]*models.FolderTreeNode, len(folders))
	for i := range folders {
		f := folders[i]
		nodes[f.ID] = &models.FolderTreeNode{
			ID:             f.ID,
			ParentID:       f.ParentID,
			Name:           f.Name,
			Path:           f.Path,
			Depth:          f.Depth,
			DocumentCount:  f.DocumentCount,
			SubfolderCount: f.SubfolderCount,
			Folders:        []*models.FolderTreeNode{},
			Documents:      []models.DocumentTreeNode{},
		}
	}

	for _, f := range folders {
		if f.ID == root.ID || f.ParentID == nil {
			continue
		}
		if parent, ok := nodes[*f.ParentID]; ok {
			parent.Folders = append(parent.Folders, nodes[f.ID])
		}
	}

	for _, d := range docs {
		node, ok := nodes[d.FolderID]
		if !ok {
			continue
		}
		node.Documents = append(node.Documents, models.DocumentTreeNode{
			ID:         d.ID,
			FolderID:   d.FolderID,
			Name:       d.Name,
			Size:       d.Size,
			Tags:       d.Tags,
			ModifiedAt: d.ModifiedAt,
		})
	}

	return &models.FolderTree{Root: nodes[root.ID]}
}

// pruneTree drops levels deeper than maxDepth below the root. Zero means
// no pruning.
func pruneTree(tree *models.FolderTree, maxDepth int) *models.FolderTree {
	if maxDepth <= 0 || tree.Root == nil {
		return tree
	}
	limit := tree.Root.Depth + maxDepth
	prune(tree.Root, limit)
	return tree
}

func prune(node *models.FolderTreeNode, limit int) {
	if node.Depth >= limit {
		node.Folders = []*models.FolderTreeNode{}
		return
	}
	for _, child := range node.Folders {
		prune(child, limit)
	}
}
