package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"doctree/internal/domain"
	"doctree/internal/domain/models"
)

func seedFolder(t *testing.T, s *Store, id string, parentID *string, name, path string, depth int) *models.Folder {
	t.Helper()

	now := time.Now()
	folder := &models.Folder{
		ID:         id,
		ParentID:   parentID,
		Name:       name,
		Path:       path,
		Depth:      depth,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if err := s.Folders().Create(context.Background(), folder); err != nil {
		t.Fatalf("Create(%s): %v", name, err)
	}
	return folder
}

func TestFolderDeleteRefusesNonEmpty(t *testing.T) {
	ctx := context.Background()

	t.Run("with subfolder", func(t *testing.T) {
		s := NewStore()
		root := seedFolder(t, s, models.RootFolderID, nil, "", "/", 0)
		parent := seedFolder(t, s, "f-parent", &root.ID, "parent", "/parent", 1)
		seedFolder(t, s, "f-child", &parent.ID, "child", "/parent/child", 2)

		err := s.Folders().Delete(ctx, parent.ID)
		if !errors.Is(err, domain.ErrFolderNotEmpty) {
			t.Fatalf("delete with subfolder = %v, want ErrFolderNotEmpty", err)
		}
	})

	t.Run("with document", func(t *testing.T) {
		s := NewStore()
		root := seedFolder(t, s, models.RootFolderID, nil, "", "/", 0)
		folder := seedFolder(t, s, "f-docs", &root.ID, "docs", "/docs", 1)

		doc := &models.Document{ID: "d-1", FolderID: folder.ID, Name: "report.pdf"}
		if err := s.Documents().Create(ctx, doc); err != nil {
			t.Fatalf("Create document: %v", err)
		}

		err := s.Folders().Delete(ctx, folder.ID)
		if !errors.Is(err, domain.ErrFolderNotEmpty) {
			t.Fatalf("delete with document = %v, want ErrFolderNotEmpty", err)
		}

		if err := s.Documents().Delete(ctx, doc.ID); err != nil {
			t.Fatalf("Delete document: %v", err)
		}
		if err := s.Folders().Delete(ctx, folder.ID); err != nil {
			t.Fatalf("delete after emptying = %v, want nil", err)
		}
	})
}
