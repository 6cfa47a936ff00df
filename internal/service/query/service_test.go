package query

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"doctree/internal/blob"
	"doctree/internal/cache"
	"doctree/internal/domain"
	"doctree/internal/domain/models"
	"doctree/internal/domain/services"
	"doctree/internal/jobs"
	"doctree/internal/repository/memory"
	"doctree/internal/service/hierarchy"
)

type fixture struct {
	query     services.QueryService
	hierarchy services.HierarchyService
	store     *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	noop := cache.NewNoopCache()

	hier := hierarchy.NewService(
		store.Folders(), store.Documents(), store.Tags(), memory.NewTxManager(),
		blob.NewMemoryStore(), noop, jobs.NoopIndex{}, jobs.NoopQueue{},
		logger,
	)
	if err := hier.EnsureRoot(context.Background()); err != nil {
		t.Fatalf("EnsureRoot: %v", err)
	}

	q := NewService(store.Folders(), store.Documents(), store.Tags(), noop, time.Minute, logger)

	return &fixture{query: q, hierarchy: hier, store: store}
}

func (f *fixture) createFolder(t *testing.T, parentID, name string) *models.Folder {
	t.Helper()
	folder, err := f.hierarchy.CreateFolder(context.Background(), &services.CreateFolderRequest{
		ParentID: parentID,
		Name:     name,
	})
	if err != nil {
		t.Fatalf("CreateFolder(%q): %v", name, err)
	}
	return folder
}

func (f *fixture) uploadDocument(t *testing.T, folderID, name string) *models.Document {
	t.Helper()
	doc, err := f.hierarchy.UploadDocument(context.Background(), &services.UploadDocumentRequest{
		FolderID: folderID,
		Name:     name,
		FileName: name,
		Size:     4,
		Content:  strings.NewReader("data"),
	})
	if err != nil {
		t.Fatalf("UploadDocument(%q): %v", name, err)
	}
	return doc
}

func TestGetFolderTree(t *testing.T) {
	t.Run("nests folders and documents", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		a := f.createFolder(t, models.RootFolderID, "a")
		b := f.createFolder(t, a.ID, "b")
		f.uploadDocument(t, b.ID, "deep.pdf")
		f.uploadDocument(t, models.RootFolderID, "top.pdf")

		tree, err := f.query.GetFolderTree(ctx, models.RootFolderID, 0)
		if err != nil {
			t.Fatalf("GetFolderTree: %v", err)
		}

		root := tree.Root
		if root == nil || root.ID != models.RootFolderID {
			t.Fatal("tree root missing or wrong")
		}
		if len(root.Documents) != 1 || root.Documents[0].Name != "top.pdf" {
			t.Errorf("root documents = %v, want [top.pdf]", root.Documents)
		}
		if len(root.Folders) != 1 || root.Folders[0].ID != a.ID {
			t.Fatalf("root folders = %d, want the one subfolder", len(root.Folders))
		}

		nodeA := root.Folders[0]
		if len(nodeA.Folders) != 1 || nodeA.Folders[0].ID != b.ID {
			t.Fatal("nested folder missing")
		}
		nodeB := nodeA.Folders[0]
		if len(nodeB.Documents) != 1 || nodeB.Documents[0].Name != "deep.pdf" {
			t.Errorf("nested documents = %v, want [deep.pdf]", nodeB.Documents)
		}
	})

	t.Run("prunes below max depth", func(t *testing.T) {
		f := newFixture(t)

		a := f.createFolder(t, models.RootFolderID, "a")
		f.createFolder(t, a.ID, "b")

		tree, err := f.query.GetFolderTree(context.Background(), models.RootFolderID, 1)
		if err != nil {
			t.Fatalf("GetFolderTree: %v", err)
		}

		if len(tree.Root.Folders) != 1 {
			t.Fatalf("level 1 folders = %d, want 1", len(tree.Root.Folders))
		}
		if len(tree.Root.Folders[0].Folders) != 0 {
			t.Error("level 2 folders survived a depth-1 prune")
		}
	})

	t.Run("subtree root", func(t *testing.T) {
		f := newFixture(t)

		a := f.createFolder(t, models.RootFolderID, "a")
		b := f.createFolder(t, a.ID, "b")

		tree, err := f.query.GetFolderTree(context.Background(), a.ID, 0)
		if err != nil {
			t.Fatalf("GetFolderTree: %v", err)
		}
		if tree.Root.ID != a.ID {
			t.Errorf("subtree root = %s, want %s", tree.Root.ID, a.ID)
		}
		if len(tree.Root.Folders) != 1 || tree.Root.Folders[0].ID != b.ID {
			t.Error("subtree child missing")
		}
	})

	t.Run("missing root", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.query.GetFolderTree(context.Background(), "nope", 0)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("missing root = %v, want ErrNotFound", err)
		}
	})
}

func TestGetFolderContents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder := f.createFolder(t, models.RootFolderID, "docs")
	f.createFolder(t, folder.ID, "sub")
	f.uploadDocument(t, folder.ID, "report.pdf")

	contents, err := f.query.GetFolderContents(ctx, folder.ID)
	if err != nil {
		t.Fatalf("GetFolderContents: %v", err)
	}

	if contents.Folder.ID != folder.ID {
		t.Errorf("folder id = %s, want %s", contents.Folder.ID, folder.ID)
	}
	if len(contents.Folders) != 1 || contents.Folders[0].Name != "sub" {
		t.Errorf("subfolders = %v, want [sub]", contents.Folders)
	}
	if len(contents.Documents) != 1 || contents.Documents[0].Name != "report.pdf" {
		t.Errorf("documents = %v, want [report.pdf]", contents.Documents)
	}
}

func TestGetDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder := f.createFolder(t, models.RootFolderID, "docs")
	doc := f.uploadDocument(t, folder.ID, "report.pdf")

	got, err := f.query.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.ID != doc.ID || got.Name != "report.pdf" {
		t.Errorf("document = %+v, want id %s", got, doc.ID)
	}

	if _, err := f.query.GetDocument(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing document = %v, want ErrNotFound", err)
	}
}

func TestListTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder := f.createFolder(t, models.RootFolderID, "docs")
	if _, err := f.hierarchy.UploadDocument(ctx, &services.UploadDocumentRequest{
		FolderID: folder.ID,
		Name:     "report.pdf",
		Size:     4,
		Tags:     []string{"B", "a"},
		Content:  strings.NewReader("data"),
	}); err != nil {
		t.Fatalf("UploadDocument: %v", err)
	}

	tags, err := f.query.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("tag count = %d, want 2", len(tags))
	}
	// Name-ordered, canonical lowercase.
	if tags[0].Name != "a" || tags[1].Name != "b" {
		t.Errorf("tags = %v, want [a b]", tags)
	}
}
