package services

import (
	"context"
	"io"
	"time"

	"doctree/internal/domain/models"
)

// BlobStore is the external content collaborator, keyed by opaque refs.
// Orphan blobs (written but never committed to metadata) are acceptable
// and cleaned by an out-of-band sweep.
type BlobStore interface {
	// Put stores content and returns its opaque reference.
	Put(ctx context.Context, content io.Reader, size int64, contentType string) (string, error)

	// Get streams content back. Fails with domain.ErrNotFound.
	Get(ctx context.Context, ref string) (io.ReadCloser, error)

	// Delete removes content. Deleting a missing ref is not an error.
	Delete(ctx context.Context, ref string) error
}

// Cache is the advisory read-through cache. It never originates state, and
// no operation here may block a mutation's success: callers treat every
// error as a logged, retryable side effect.
type Cache interface {
	// Get loads a cached entry into dest, reporting whether it was found.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores an entry with a time-to-live.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Invalidate drops entries. Idempotent; missing keys are fine.
	Invalidate(ctx context.Context, keys ...string) error
}

// Cache key builders. Keys are part of the cache contract: the hierarchy
// engine invalidates exactly what the query service populates.
func TreeCacheKey(rootID string) string       { return "tree:" + rootID }
func ContentsCacheKey(folderID string) string { return "contents:" + folderID }
func DocumentCacheKey(id string) string       { return "doc:" + id }

// SearchIndex consumes flattened records after every successful write.
// Emission is fire-and-forget with the same staleness tolerance as the
// cache; failures are logged, never surfaced to the mutating caller.
type SearchIndex interface {
	// Index upserts a record into the search collaborator.
	Index(ctx context.Context, rec *models.IndexRecord) error

	// Remove drops a record by id.
	Remove(ctx context.Context, id string) error
}

// JobQueue hands failed or deferred side effects to the background worker.
type JobQueue interface {
	// EnqueueCacheInvalidate retries cache invalidations that failed inline.
	EnqueueCacheInvalidate(ctx context.Context, keys []string) error

	// EnqueueBlobDelete retries a blob delete that failed after its
	// metadata record was removed.
	EnqueueBlobDelete(ctx context.Context, ref string) error

	// EnqueueReconcile schedules counter/path repair for a subtree.
	EnqueueReconcile(ctx context.Context, folderID string) error
}
