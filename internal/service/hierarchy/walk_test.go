package hierarchy

import (
	"context"
	"testing"

	"doctree/internal/domain/models"
)

func TestRewriteSubtreePaths(t *testing.T) {
	t.Run("converges on corrupted paths", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		a := f.createFolder(t, models.RootFolderID, "a")
		b := f.createFolder(t, a.ID, "b")
		c := f.createFolder(t, b.ID, "c")

		// Simulate a crash mid-rename: stale paths and depths below a.
		if err := f.folders.UpdatePath(ctx, b.ID, "/stale/b", 7); err != nil {
			t.Fatalf("UpdatePath: %v", err)
		}
		if err := f.folders.UpdatePath(ctx, c.ID, "/stale/b/c", 8); err != nil {
			t.Fatalf("UpdatePath: %v", err)
		}

		visited, err := f.svc.rewriteSubtreePaths(ctx, a.ID)
		if err != nil {
			t.Fatalf("rewriteSubtreePaths: %v", err)
		}
		if len(visited) != 3 {
			t.Errorf("visited %d folders, want 3", len(visited))
		}

		if got := f.getFolder(t, b.ID); got.Path != "/a/b" || got.Depth != 2 {
			t.Errorf("b path/depth = %q/%d, want \"/a/b\"/2", got.Path, got.Depth)
		}
		if got := f.getFolder(t, c.ID); got.Path != "/a/b/c" || got.Depth != 3 {
			t.Errorf("c path/depth = %q/%d, want \"/a/b/c\"/3", got.Path, got.Depth)
		}
	})

	t.Run("idempotent on a clean subtree", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		a := f.createFolder(t, models.RootFolderID, "a")
		b := f.createFolder(t, a.ID, "b")

		before := f.getFolder(t, b.ID)
		if _, err := f.svc.rewriteSubtreePaths(ctx, a.ID); err != nil {
			t.Fatalf("first walk: %v", err)
		}
		if _, err := f.svc.rewriteSubtreePaths(ctx, a.ID); err != nil {
			t.Fatalf("second walk: %v", err)
		}
		after := f.getFolder(t, b.ID)

		if before.Path != after.Path || before.Depth != after.Depth {
			t.Errorf("clean walk changed path/depth: %q/%d -> %q/%d",
				before.Path, before.Depth, after.Path, after.Depth)
		}
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		f := newFixture(t)

		a := f.createFolder(t, models.RootFolderID, "a")
		f.createFolder(t, a.ID, "b")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := f.svc.rewriteSubtreePaths(ctx, a.ID); err == nil {
			t.Fatal("cancelled walk returned nil error")
		}
	})
}

func TestReconcile(t *testing.T) {
	t.Run("repairs counter drift", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		folder := f.createFolder(t, models.RootFolderID, "docs")
		f.uploadDocument(t, folder.ID, "one.pdf", nil)
		f.uploadDocument(t, folder.ID, "two.pdf", nil)
		f.createFolder(t, folder.ID, "sub")

		// Inject drift.
		if err := f.folders.SetCounters(ctx, folder.ID, 99, 99); err != nil {
			t.Fatalf("SetCounters: %v", err)
		}

		if err := f.svc.Reconcile(ctx, folder.ID); err != nil {
			t.Fatalf("Reconcile: %v", err)
		}

		got := f.getFolder(t, folder.ID)
		if got.DocumentCount != 2 || got.SubfolderCount != 1 {
			t.Errorf("counters = %d/%d, want 2/1", got.DocumentCount, got.SubfolderCount)
		}
	})

	t.Run("full-tree reconcile recounts tag usage", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		folder := f.createFolder(t, models.RootFolderID, "docs")
		f.uploadDocument(t, folder.ID, "one.pdf", []string{"finance", "q3"})
		f.uploadDocument(t, folder.ID, "two.pdf", []string{"finance"})

		// Inject drift: one count too high, one tag no document carries.
		if err := f.tags.SetUsage(ctx, "finance", 9); err != nil {
			t.Fatalf("SetUsage(finance): %v", err)
		}
		if err := f.tags.SetUsage(ctx, "stale", 4); err != nil {
			t.Fatalf("SetUsage(stale): %v", err)
		}

		if err := f.svc.Reconcile(ctx, models.RootFolderID); err != nil {
			t.Fatalf("Reconcile: %v", err)
		}

		want := map[string]int{"finance": 2, "q3": 1, "stale": 0}
		for name, count := range want {
			tag, err := f.tags.GetByName(ctx, name)
			if err != nil {
				t.Fatalf("GetByName(%s): %v", name, err)
			}
			if tag.UsageCount != count {
				t.Errorf("tag %s usage = %d, want %d", name, tag.UsageCount, count)
			}
		}
	})

	t.Run("subtree reconcile leaves tag usage alone", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		folder := f.createFolder(t, models.RootFolderID, "docs")
		f.uploadDocument(t, folder.ID, "one.pdf", []string{"finance"})

		if err := f.tags.SetUsage(ctx, "finance", 9); err != nil {
			t.Fatalf("SetUsage: %v", err)
		}

		// Tag usage is global; a partial walk must not rewrite it.
		if err := f.svc.Reconcile(ctx, folder.ID); err != nil {
			t.Fatalf("Reconcile: %v", err)
		}

		tag, err := f.tags.GetByName(ctx, "finance")
		if err != nil {
			t.Fatalf("GetByName: %v", err)
		}
		if tag.UsageCount != 9 {
			t.Errorf("tag usage = %d, want 9 (untouched)", tag.UsageCount)
		}
	})

	t.Run("repairs paths and counters together", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		a := f.createFolder(t, models.RootFolderID, "a")
		b := f.createFolder(t, a.ID, "b")

		if err := f.folders.UpdatePath(ctx, b.ID, "/wrong", 5); err != nil {
			t.Fatalf("UpdatePath: %v", err)
		}
		if err := f.folders.SetCounters(ctx, a.ID, 3, 0); err != nil {
			t.Fatalf("SetCounters: %v", err)
		}

		if err := f.svc.Reconcile(ctx, a.ID); err != nil {
			t.Fatalf("Reconcile: %v", err)
		}

		if got := f.getFolder(t, b.ID); got.Path != "/a/b" || got.Depth != 2 {
			t.Errorf("b path/depth = %q/%d, want \"/a/b\"/2", got.Path, got.Depth)
		}
		if got := f.getFolder(t, a.ID); got.DocumentCount != 0 || got.SubfolderCount != 1 {
			t.Errorf("a counters = %d/%d, want 0/1", got.DocumentCount, got.SubfolderCount)
		}
	})
}

func TestIsDescendantOf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.createFolder(t, models.RootFolderID, "a")
	b := f.createFolder(t, a.ID, "b")
	other := f.createFolder(t, models.RootFolderID, "other")

	tests := []struct {
		name       string
		candidate  *models.Folder
		ancestorID string
		want       bool
	}{
		{"direct child", b, a.ID, true},
		{"unrelated", other, a.ID, false},
		{"ancestor not descendant", a, b.ID, false},
		{"root is nobody's descendant", f.getFolder(t, models.RootFolderID), a.ID, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.isDescendantOf(ctx, tt.candidate, tt.ancestorID)
			if err != nil {
				t.Fatalf("isDescendantOf: %v", err)
			}
			if got != tt.want {
				t.Errorf("isDescendantOf = %v, want %v", got, tt.want)
			}
		})
	}
}
