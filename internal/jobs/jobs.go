// Package jobs carries side effects that must not block or fail a
// mutation: search-index emission, cache-invalidation retries, deferred
// blob deletes, and subtree reconciliation. Tasks go through asynq so they
// survive process restarts and retry with backoff.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"doctree/internal/domain/models"
	"doctree/internal/domain/services"
)

const (
	// TaskIndexUpsert forwards a flattened record to the search collaborator.
	TaskIndexUpsert = "index:upsert"

	// TaskIndexRemove drops a record from the search collaborator.
	TaskIndexRemove = "index:remove"

	// TaskCacheInvalidate retries cache invalidations that failed inline.
	TaskCacheInvalidate = "cache:invalidate"

	// TaskBlobDelete retries a blob delete whose metadata record is gone.
	TaskBlobDelete = "blob:delete"

	// TaskReconcile repairs counters and paths for a subtree.
	TaskReconcile = "tree:reconcile"
)

// IndexRemovePayload names the record to drop from the index.
type IndexRemovePayload struct {
	ID string `json:"id"`
}

// CacheInvalidatePayload lists the cache keys to drop.
type CacheInvalidatePayload struct {
	Keys []string `json:"keys"`
}

// BlobDeletePayload names the orphaned blob ref.
type BlobDeletePayload struct {
	Ref string `json:"ref"`
}

// ReconcilePayload names the subtree root to repair.
type ReconcilePayload struct {
	FolderID string `json:"folder_id"`
}

// Enqueuer hands side effects to the worker. It implements both
// services.JobQueue and services.SearchIndex: index emission is just
// another fire-and-forget task.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer constructs an Enqueuer over an asynq client.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) enqueue(ctx context.Context, taskType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	if _, err := e.client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}

// Index emits a flattened record for the search collaborator.
func (e *Enqueuer) Index(ctx context.Context, rec *models.IndexRecord) error {
	return e.enqueue(ctx, TaskIndexUpsert, rec)
}

// Remove drops a record from the search collaborator.
func (e *Enqueuer) Remove(ctx context.Context, id string) error {
	return e.enqueue(ctx, TaskIndexRemove, IndexRemovePayload{ID: id})
}

// EnqueueCacheInvalidate retries cache invalidations in the background.
func (e *Enqueuer) EnqueueCacheInvalidate(ctx context.Context, keys []string) error {
	return e.enqueue(ctx, TaskCacheInvalidate, CacheInvalidatePayload{Keys: keys})
}

// EnqueueBlobDelete retries a blob delete in the background.
func (e *Enqueuer) EnqueueBlobDelete(ctx context.Context, ref string) error {
	return e.enqueue(ctx, TaskBlobDelete, BlobDeletePayload{Ref: ref})
}

// EnqueueReconcile schedules counter/path repair for a subtree.
func (e *Enqueuer) EnqueueReconcile(ctx context.Context, folderID string) error {
	return e.enqueue(ctx, TaskReconcile, ReconcilePayload{FolderID: folderID})
}

var (
	_ services.JobQueue    = (*Enqueuer)(nil)
	_ services.SearchIndex = (*Enqueuer)(nil)
)
