package hierarchy

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"doctree/internal/config"
	"doctree/internal/domain"
	"doctree/internal/domain/models"
	"doctree/internal/domain/services"
	"doctree/internal/pathcodec"
)

// UploadDocument commits an upload. The blob is written first: if the
// metadata insert then fails, the orphaned blob is acceptable and cleaned
// by the out-of-band sweep. The reverse order would risk a record pointing
// at content that never landed.
func (s *Service) UploadDocument(ctx context.Context, req *services.UploadDocumentRequest) (*models.Document, error) {
	if err := validateUploadDocument(req); err != nil {
		return nil, err
	}

	folder, err := s.folders.GetByID(ctx, req.FolderID)
	if err != nil {
		return nil, fmt.Errorf("target folder: %w", err)
	}

	ref, err := s.blobs.Put(ctx, req.Content, req.Size, req.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBlobUnavailable, err)
	}

	now := time.Now()
	doc := &models.Document{
		ID:          uuid.New().String(),
		FolderID:    folder.ID,
		Name:        req.Name,
		FileName:    req.FileName,
		Size:        req.Size,
		ContentType: req.ContentType,
		BlobRef:     ref,
		Tags:        canonicalTags(req.Tags),
		Metadata:    req.Metadata,
		UploadedAt:  now,
		ModifiedAt:  now,
	}

	err = s.tx.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.docs.Create(txCtx, doc); err != nil {
			return err
		}
		return s.folders.IncrementCounters(txCtx, folder.ID, 1, 0)
	})
	if err != nil {
		// The blob is now orphaned; the sweep will collect it.
		s.logger.Warn("document create failed after blob write", "blob_ref", ref, "error", err)
		return nil, err
	}

	for _, tag := range doc.Tags {
		if err := s.tags.IncrementUsage(ctx, tag, 1); err != nil {
			s.logger.Warn("tag usage increment failed", "tag", tag, "error", err)
		}
	}

	s.invalidateDocumentViews(ctx, folder, doc.ID)
	s.emitIndex(ctx, documentIndexRecord(doc))

	s.logger.Info("document uploaded", "id", doc.ID, "folder_id", folder.ID, "size", doc.Size)
	return doc, nil
}

// UpdateDocumentMetadata edits descriptive metadata. Tag usage counts move
// by the diff between the old and new sets, so an unchanged tag costs
// nothing and a replaced set settles to the same counts regardless of
// ordering.
func (s *Service) UpdateDocumentMetadata(ctx context.Context, id string, req *services.UpdateDocumentRequest) (*models.Document, error) {
	if err := validateUpdateDocument(req); err != nil {
		return nil, err
	}

	var (
		doc     *models.Document
		added   []string
		removed []string
	)
	err := s.withRetry(ctx, "update document", func() error {
		current, err := s.docs.GetByID(ctx, id)
		if err != nil {
			return err
		}

		added, removed = nil, nil
		if req.Name != nil {
			current.Name = *req.Name
		}
		if req.Tags != nil {
			added, removed = models.DiffTags(current.Tags, *req.Tags)
			current.Tags = canonicalTags(*req.Tags)
		}
		if req.Metadata != nil {
			current.Metadata = *req.Metadata
		}
		current.ModifiedAt = time.Now()

		if err := s.docs.Update(ctx, current); err != nil {
			return err
		}
		doc = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, tag := range added {
		if err := s.tags.IncrementUsage(ctx, tag, 1); err != nil {
			s.logger.Warn("tag usage increment failed", "tag", tag, "error", err)
		}
	}
	s.decrementTagUsage(ctx, removed)

	folder, ferr := s.folders.GetByID(ctx, doc.FolderID)
	if ferr == nil {
		s.invalidateDocumentViews(ctx, folder, doc.ID)
	} else {
		s.invalidate(ctx, services.DocumentCacheKey(doc.ID), services.ContentsCacheKey(doc.FolderID))
	}
	s.emitIndex(ctx, documentIndexRecord(doc))

	s.logger.Info("document updated", "id", doc.ID)
	return doc, nil
}

// MoveDocument moves a document to another existing folder, adjusting both
// folders' document counts.
func (s *Service) MoveDocument(ctx context.Context, id, newFolderID string) (*models.Document, error) {
	var (
		doc         *models.Document
		oldFolderID string
	)
	err := s.withRetry(ctx, "move document", func() error {
		current, err := s.docs.GetByID(ctx, id)
		if err != nil {
			return err
		}
		oldFolderID = current.FolderID
		if oldFolderID == newFolderID {
			doc = current
			return nil
		}

		if _, err := s.folders.GetByID(ctx, newFolderID); err != nil {
			return fmt.Errorf("destination folder: %w", err)
		}

		current.FolderID = newFolderID
		current.ModifiedAt = time.Now()
		return s.tx.ExecTx(ctx, func(txCtx context.Context) error {
			if err := s.docs.Update(txCtx, current); err != nil {
				return err
			}
			if err := s.folders.IncrementCounters(txCtx, oldFolderID, -1, 0); err != nil {
				return err
			}
			if err := s.folders.IncrementCounters(txCtx, newFolderID, 1, 0); err != nil {
				return err
			}
			doc = current
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if oldFolderID == newFolderID {
		return doc, nil
	}

	s.invalidate(ctx, services.ContentsCacheKey(oldFolderID))
	if folder, err := s.folders.GetByID(ctx, newFolderID); err == nil {
		s.invalidateDocumentViews(ctx, folder, doc.ID)
	} else {
		s.invalidate(ctx, services.DocumentCacheKey(doc.ID), services.ContentsCacheKey(newFolderID))
	}
	s.emitIndex(ctx, documentIndexRecord(doc))

	s.logger.Info("document moved", "id", doc.ID, "new_folder_id", newFolderID)
	return doc, nil
}

// DeleteDocument removes the metadata record, then its blob. The record is
// the source of truth: once it is gone the delete has succeeded, and a
// failed blob delete only leaves an orphan for the job queue to retry.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.tx.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.docs.Delete(txCtx, id); err != nil {
			return err
		}
		return s.folders.IncrementCounters(txCtx, doc.FolderID, -1, 0)
	})
	if err != nil {
		return err
	}

	s.decrementTagUsage(ctx, doc.Tags)
	s.removeBlob(ctx, doc.BlobRef)

	if folder, ferr := s.folders.GetByID(ctx, doc.FolderID); ferr == nil {
		s.invalidateDocumentViews(ctx, folder, doc.ID)
	} else {
		s.invalidate(ctx, services.DocumentCacheKey(doc.ID), services.ContentsCacheKey(doc.FolderID))
	}
	s.emitIndexRemove(ctx, doc.ID)

	s.logger.Info("document deleted", "id", doc.ID)
	return nil
}

// removeBlob deletes blob content after its metadata record is gone.
// Failures never propagate; the ref is handed to the job queue instead.
func (s *Service) removeBlob(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.blobs.Delete(ctx, ref); err != nil {
		s.logger.Warn("blob delete failed, enqueueing retry", "ref", ref, "error", err)
		if err := s.queue.EnqueueBlobDelete(ctx, ref); err != nil {
			s.logger.Error("blob delete retry enqueue failed", "ref", ref, "error", err)
		}
	}
}

// invalidateDocumentViews drops the document's own cache entry plus the
// folder views that list it.
func (s *Service) invalidateDocumentViews(ctx context.Context, folder *models.Folder, docID string) {
	s.invalidate(ctx, services.DocumentCacheKey(docID))
	keys := []string{services.ContentsCacheKey(folder.ID)}
	ancestors, err := s.ancestorIDs(ctx, folder)
	if err != nil {
		s.logger.Warn("ancestor walk for invalidation failed", "folder_id", folder.ID, "error", err)
		ancestors = []string{folder.ID, models.RootFolderID}
	}
	for _, id := range ancestors {
		keys = append(keys, services.TreeCacheKey(id))
	}
	s.invalidate(ctx, keys...)
}

func canonicalTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		c := models.CanonicalTag(t)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func validateUploadDocument(req *services.UploadDocumentRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.FolderID, validation.Required),
		validation.Field(&req.Size,
			validation.Min(int64(0)),
			validation.Max(int64(config.MaxDocumentSize)),
		),
		validation.Field(&req.Tags, validation.Length(0, config.MaxTagsPerDocument)),
		validation.Field(&req.Metadata, validation.Length(0, config.MaxMetadataEntries)),
	); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := pathcodec.ValidateName(req.Name); err != nil {
		return err
	}
	return validateTags(req.Tags)
}

func validateUpdateDocument(req *services.UpdateDocumentRequest) error {
	if req.Name != nil {
		if err := pathcodec.ValidateName(*req.Name); err != nil {
			return err
		}
	}
	if req.Tags != nil {
		if len(*req.Tags) > config.MaxTagsPerDocument {
			return fmt.Errorf("%w: at most %d tags", domain.ErrValidation, config.MaxTagsPerDocument)
		}
		if err := validateTags(*req.Tags); err != nil {
			return err
		}
	}
	if req.Metadata != nil && len(*req.Metadata) > config.MaxMetadataEntries {
		return fmt.Errorf("%w: at most %d metadata entries", domain.ErrValidation, config.MaxMetadataEntries)
	}
	return nil
}

func validateTags(tags []string) error {
	for _, t := range tags {
		if len(models.CanonicalTag(t)) > config.MaxTagLength {
			return fmt.Errorf("%w: tag %q exceeds %d characters", domain.ErrValidation, t, config.MaxTagLength)
		}
	}
	return nil
}
