package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"doctree/internal/domain/models"
	"doctree/internal/domain/services"
)

// IndexSink is the boundary to the external search collaborator. The
// worker forwards flattened records here; the default sink just logs them,
// since index internals are outside this system.
type IndexSink interface {
	Upsert(ctx context.Context, rec *models.IndexRecord) error
	Delete(ctx context.Context, id string) error
}

// LogIndexSink logs index records instead of forwarding them anywhere.
type LogIndexSink struct {
	Logger *slog.Logger
}

func (s *LogIndexSink) Upsert(ctx context.Context, rec *models.IndexRecord) error {
	s.Logger.Info("index upsert", "id", rec.ID, "kind", rec.Kind, "name", rec.Name, "folder_id", rec.FolderID)
	return nil
}

func (s *LogIndexSink) Delete(ctx context.Context, id string) error {
	s.Logger.Info("index delete", "id", id)
	return nil
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	cache     services.Cache
	blobs     services.BlobStore
	hierarchy services.HierarchyService
	sink      IndexSink
	logger    *slog.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(
	cache services.Cache,
	blobs services.BlobStore,
	hierarchy services.HierarchyService,
	sink IndexSink,
	logger *slog.Logger,
) *Processor {
	return &Processor{
		cache:     cache,
		blobs:     blobs,
		hierarchy: hierarchy,
		sink:      sink,
		logger:    logger,
	}
}

// Handler registers all task handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskIndexUpsert, p.handleIndexUpsert)
	mux.HandleFunc(TaskIndexRemove, p.handleIndexRemove)
	mux.HandleFunc(TaskCacheInvalidate, p.handleCacheInvalidate)
	mux.HandleFunc(TaskBlobDelete, p.handleBlobDelete)
	mux.HandleFunc(TaskReconcile, p.handleReconcile)
	return mux
}

func (p *Processor) handleIndexUpsert(ctx context.Context, task *asynq.Task) error {
	var rec models.IndexRecord
	if err := json.Unmarshal(task.Payload(), &rec); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return p.sink.Upsert(ctx, &rec)
}

func (p *Processor) handleIndexRemove(ctx context.Context, task *asynq.Task) error {
	var payload IndexRemovePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return p.sink.Delete(ctx, payload.ID)
}

func (p *Processor) handleCacheInvalidate(ctx context.Context, task *asynq.Task) error {
	var payload CacheInvalidatePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := p.cache.Invalidate(ctx, payload.Keys...); err != nil {
		return err
	}
	p.logger.Debug("cache invalidation retried", "keys", len(payload.Keys))
	return nil
}

func (p *Processor) handleBlobDelete(ctx context.Context, task *asynq.Task) error {
	var payload BlobDeletePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := p.blobs.Delete(ctx, payload.Ref); err != nil {
		return err
	}
	p.logger.Info("orphan blob deleted", "ref", payload.Ref)
	return nil
}

func (p *Processor) handleReconcile(ctx context.Context, task *asynq.Task) error {
	var payload ReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := p.hierarchy.Reconcile(ctx, payload.FolderID); err != nil {
		return err
	}
	p.logger.Info("subtree reconciled", "folder_id", payload.FolderID)
	return nil
}
