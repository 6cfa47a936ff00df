package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"doctree/internal/domain"
	"doctree/internal/domain/models"
	"doctree/internal/domain/services"
)

func (f *fixture) uploadDocument(t *testing.T, folderID, name string, tags []string) *models.Document {
	t.Helper()
	doc, err := f.svc.UploadDocument(context.Background(), &services.UploadDocumentRequest{
		FolderID:    folderID,
		Name:        name,
		FileName:    name,
		ContentType: "application/octet-stream",
		Size:        4,
		Tags:        tags,
		Content:     strings.NewReader("data"),
	})
	if err != nil {
		t.Fatalf("UploadDocument(%q): %v", name, err)
	}
	return doc
}

func TestUploadDocument(t *testing.T) {
	t.Run("commits blob then record", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		folder := f.createFolder(t, models.RootFolderID, "docs")
		doc := f.uploadDocument(t, folder.ID, "report.pdf", []string{"Finance", "q3"})

		if doc.BlobRef == "" {
			t.Fatal("document has no blob ref")
		}
		if f.blobs.Len() != 1 {
			t.Errorf("blob count = %d, want 1", f.blobs.Len())
		}

		if got := f.getFolder(t, folder.ID); got.DocumentCount != 1 {
			t.Errorf("document count = %d, want 1", got.DocumentCount)
		}

		// Tags are canonicalized to lowercase.
		for _, want := range []string{"finance", "q3"} {
			tag, err := f.tags.GetByName(ctx, want)
			if err != nil {
				t.Fatalf("GetByName(%s): %v", want, err)
			}
			if tag.UsageCount != 1 {
				t.Errorf("tag %s usage = %d, want 1", want, tag.UsageCount)
			}
		}
	})

	t.Run("missing folder", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.UploadDocument(context.Background(), &services.UploadDocumentRequest{
			FolderID: "ffffffff-0000-0000-0000-000000000000",
			Name:     "report.pdf",
			Size:     4,
			Content:  strings.NewReader("data"),
		})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("upload to missing folder = %v, want ErrNotFound", err)
		}
		if f.blobs.Len() != 0 {
			t.Errorf("blob written for a rejected upload")
		}
	})

	t.Run("blob store unavailable", func(t *testing.T) {
		f := newFixture(t)
		folder := f.createFolder(t, models.RootFolderID, "docs")

		f.blobs.FailPuts = true
		_, err := f.svc.UploadDocument(context.Background(), &services.UploadDocumentRequest{
			FolderID: folder.ID,
			Name:     "report.pdf",
			Size:     4,
			Content:  strings.NewReader("data"),
		})
		if !errors.Is(err, domain.ErrBlobUnavailable) {
			t.Fatalf("upload with failing blob store = %v, want ErrBlobUnavailable", err)
		}

		// No metadata record may exist for content that never landed.
		if got := f.getFolder(t, folder.ID); got.DocumentCount != 0 {
			t.Errorf("document count = %d, want 0", got.DocumentCount)
		}
	})

	t.Run("invalid name", func(t *testing.T) {
		f := newFixture(t)
		folder := f.createFolder(t, models.RootFolderID, "docs")

		_, err := f.svc.UploadDocument(context.Background(), &services.UploadDocumentRequest{
			FolderID: folder.ID,
			Name:     "a/b.pdf",
			Size:     4,
			Content:  strings.NewReader("data"),
		})
		if !errors.Is(err, domain.ErrInvalidName) {
			t.Fatalf("upload with invalid name = %v, want ErrInvalidName", err)
		}
	})
}

func TestConcurrentUploadsKeepCountsExact(t *testing.T) {
	f := newFixture(t)
	folder := f.createFolder(t, models.RootFolderID, "inbox")

	const uploads = 50
	var wg sync.WaitGroup
	errs := make(chan error, uploads)

	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := f.svc.UploadDocument(context.Background(), &services.UploadDocumentRequest{
				FolderID: folder.ID,
				Name:     fmt.Sprintf("doc-%d", n),
				Size:     4,
				Content:  strings.NewReader("data"),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent upload: %v", err)
		}
	}

	if got := f.getFolder(t, folder.ID); got.DocumentCount != uploads {
		t.Errorf("document count = %d, want %d (lost increments)", got.DocumentCount, uploads)
	}
}

func TestUpdateDocumentMetadata(t *testing.T) {
	t.Run("tag diff drives usage counts", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		folder := f.createFolder(t, models.RootFolderID, "docs")
		doc := f.uploadDocument(t, folder.ID, "report.pdf", []string{"a", "b"})

		newTags := []string{"b", "c"}
		updated, err := f.svc.UpdateDocumentMetadata(ctx, doc.ID, &services.UpdateDocumentRequest{Tags: &newTags})
		if err != nil {
			t.Fatalf("UpdateDocumentMetadata: %v", err)
		}
		if len(updated.Tags) != 2 {
			t.Errorf("tags = %v, want [b c]", updated.Tags)
		}

		wantCounts := map[string]int{"a": 0, "b": 1, "c": 1}
		for name, want := range wantCounts {
			tag, err := f.tags.GetByName(ctx, name)
			if err != nil {
				t.Fatalf("GetByName(%s): %v", name, err)
			}
			if tag.UsageCount != want {
				t.Errorf("tag %s usage = %d, want %d", name, tag.UsageCount, want)
			}
		}
	})

	t.Run("nil fields left unchanged", func(t *testing.T) {
		f := newFixture(t)

		folder := f.createFolder(t, models.RootFolderID, "docs")
		doc := f.uploadDocument(t, folder.ID, "report.pdf", []string{"keep"})

		name := "renamed.pdf"
		updated, err := f.svc.UpdateDocumentMetadata(context.Background(), doc.ID, &services.UpdateDocumentRequest{Name: &name})
		if err != nil {
			t.Fatalf("UpdateDocumentMetadata: %v", err)
		}
		if updated.Name != name {
			t.Errorf("name = %q, want %q", updated.Name, name)
		}
		if len(updated.Tags) != 1 || updated.Tags[0] != "keep" {
			t.Errorf("tags = %v, want [keep]", updated.Tags)
		}
	})

	t.Run("missing document", func(t *testing.T) {
		f := newFixture(t)

		name := "x"
		_, err := f.svc.UpdateDocumentMetadata(context.Background(), "nope", &services.UpdateDocumentRequest{Name: &name})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("update missing document = %v, want ErrNotFound", err)
		}
	})
}

func TestMoveDocument(t *testing.T) {
	t.Run("adjusts both folder counts", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		src := f.createFolder(t, models.RootFolderID, "src")
		dst := f.createFolder(t, models.RootFolderID, "dst")
		doc := f.uploadDocument(t, src.ID, "report.pdf", nil)

		moved, err := f.svc.MoveDocument(ctx, doc.ID, dst.ID)
		if err != nil {
			t.Fatalf("MoveDocument: %v", err)
		}
		if moved.FolderID != dst.ID {
			t.Errorf("folder id = %s, want %s", moved.FolderID, dst.ID)
		}

		if got := f.getFolder(t, src.ID); got.DocumentCount != 0 {
			t.Errorf("source document count = %d, want 0", got.DocumentCount)
		}
		if got := f.getFolder(t, dst.ID); got.DocumentCount != 1 {
			t.Errorf("destination document count = %d, want 1", got.DocumentCount)
		}
	})

	t.Run("missing destination", func(t *testing.T) {
		f := newFixture(t)

		src := f.createFolder(t, models.RootFolderID, "src")
		doc := f.uploadDocument(t, src.ID, "report.pdf", nil)

		_, err := f.svc.MoveDocument(context.Background(), doc.ID, "ffffffff-0000-0000-0000-000000000000")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("move to missing folder = %v, want ErrNotFound", err)
		}

		if got := f.getFolder(t, src.ID); got.DocumentCount != 1 {
			t.Errorf("source document count = %d after failed move, want 1", got.DocumentCount)
		}
	})

	t.Run("same folder is a no-op", func(t *testing.T) {
		f := newFixture(t)

		src := f.createFolder(t, models.RootFolderID, "src")
		doc := f.uploadDocument(t, src.ID, "report.pdf", nil)

		if _, err := f.svc.MoveDocument(context.Background(), doc.ID, src.ID); err != nil {
			t.Fatalf("same-folder move: %v", err)
		}
		if got := f.getFolder(t, src.ID); got.DocumentCount != 1 {
			t.Errorf("document count = %d, want 1", got.DocumentCount)
		}
	})
}

func TestDeleteDocument(t *testing.T) {
	t.Run("record first, then blob", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		folder := f.createFolder(t, models.RootFolderID, "docs")
		doc := f.uploadDocument(t, folder.ID, "report.pdf", []string{"finance"})

		if err := f.svc.DeleteDocument(ctx, doc.ID); err != nil {
			t.Fatalf("DeleteDocument: %v", err)
		}

		if _, err := f.docs.GetByID(ctx, doc.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Error("document record still present")
		}
		if f.blobs.Len() != 0 {
			t.Errorf("blob count = %d, want 0", f.blobs.Len())
		}
		if got := f.getFolder(t, folder.ID); got.DocumentCount != 0 {
			t.Errorf("document count = %d, want 0", got.DocumentCount)
		}

		tag, err := f.tags.GetByName(ctx, "finance")
		if err != nil {
			t.Fatalf("GetByName(finance): %v", err)
		}
		if tag.UsageCount != 0 {
			t.Errorf("tag usage = %d, want 0", tag.UsageCount)
		}
	})

	t.Run("blob failure does not undo the delete", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		folder := f.createFolder(t, models.RootFolderID, "docs")
		doc := f.uploadDocument(t, folder.ID, "report.pdf", nil)

		f.blobs.FailDeletes = true
		if err := f.svc.DeleteDocument(ctx, doc.ID); err != nil {
			t.Fatalf("DeleteDocument with failing blob store: %v", err)
		}

		if _, err := f.docs.GetByID(ctx, doc.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Error("document record still present")
		}
	})

	t.Run("missing document", func(t *testing.T) {
		f := newFixture(t)

		err := f.svc.DeleteDocument(context.Background(), "nope")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("delete missing document = %v, want ErrNotFound", err)
		}
	})
}
