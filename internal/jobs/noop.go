package jobs

import (
	"context"

	"doctree/internal/domain/models"
	"doctree/internal/domain/services"
)

// NoopQueue drops every job. Memory-mode servers and tests use it; losing
// a retry job only extends staleness until the TTL or a manual recount.
type NoopQueue struct{}

func (NoopQueue) EnqueueCacheInvalidate(ctx context.Context, keys []string) error { return nil }
func (NoopQueue) EnqueueBlobDelete(ctx context.Context, ref string) error         { return nil }
func (NoopQueue) EnqueueReconcile(ctx context.Context, folderID string) error     { return nil }

// NoopIndex drops every index record.
type NoopIndex struct{}

func (NoopIndex) Index(ctx context.Context, rec *models.IndexRecord) error { return nil }
func (NoopIndex) Remove(ctx context.Context, id string) error              { return nil }

var (
	_ services.JobQueue    = NoopQueue{}
	_ services.SearchIndex = NoopIndex{}
)
