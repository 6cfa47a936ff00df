package query

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"doctree/internal/blob"
	"doctree/internal/domain/models"
	"doctree/internal/domain/services"
	"doctree/internal/jobs"
	"doctree/internal/repository/memory"
	"doctree/internal/service/hierarchy"
)

// mapCache is a JSON-encoding in-memory cache with the same semantics as
// the Redis adapter, plus hit/set counters for assertions.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	hits    int
	sets    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	c.hits++
	return true, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	c.sets++
	return nil
}

func (c *mapCache) Invalidate(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *mapCache) hitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

func TestReadThroughAndInvalidateOnWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := newMapCache()

	hier := hierarchy.NewService(
		store.Folders(), store.Documents(), store.Tags(), memory.NewTxManager(),
		blob.NewMemoryStore(), cache, jobs.NoopIndex{}, jobs.NoopQueue{},
		logger,
	)
	if err := hier.EnsureRoot(ctx); err != nil {
		t.Fatalf("EnsureRoot: %v", err)
	}
	q := NewService(store.Folders(), store.Documents(), store.Tags(), cache, time.Minute, logger)

	folder, err := hier.CreateFolder(ctx, &services.CreateFolderRequest{
		ParentID: models.RootFolderID,
		Name:     "docs",
	})
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	// First read populates, second read hits.
	if _, err := q.GetFolderContents(ctx, folder.ID); err != nil {
		t.Fatalf("first GetFolderContents: %v", err)
	}
	if _, err := q.GetFolderContents(ctx, folder.ID); err != nil {
		t.Fatalf("second GetFolderContents: %v", err)
	}
	if cache.hitCount() != 1 {
		t.Errorf("cache hits = %d, want 1", cache.hitCount())
	}

	// A write through the hierarchy engine invalidates the cached view:
	// the next read reflects the new child immediately, not after the TTL.
	if _, err := hier.CreateFolder(ctx, &services.CreateFolderRequest{
		ParentID: folder.ID,
		Name:     "sub",
	}); err != nil {
		t.Fatalf("CreateFolder(sub): %v", err)
	}

	contents, err := q.GetFolderContents(ctx, folder.ID)
	if err != nil {
		t.Fatalf("post-write GetFolderContents: %v", err)
	}
	if len(contents.Folders) != 1 || contents.Folders[0].Name != "sub" {
		t.Errorf("post-write contents = %v, want the new subfolder", contents.Folders)
	}

	// The tree view of every ancestor was dropped too.
	tree, err := q.GetFolderTree(ctx, models.RootFolderID, 0)
	if err != nil {
		t.Fatalf("GetFolderTree: %v", err)
	}
	if len(tree.Root.Folders) != 1 || len(tree.Root.Folders[0].Folders) != 1 {
		t.Error("tree does not reflect the new subfolder")
	}
}
