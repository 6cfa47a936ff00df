package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"doctree/internal/blob"
	"doctree/internal/cache"
	"doctree/internal/domain/models"
	"doctree/internal/jobs"
	"doctree/internal/repository/memory"
	"doctree/internal/service/hierarchy"
	"doctree/internal/service/query"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()

	store := memory.NewStore()
	blobs := blob.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	noop := cache.NewNoopCache()

	hier := hierarchy.NewService(
		store.Folders(), store.Documents(), store.Tags(), memory.NewTxManager(),
		blobs, noop, jobs.NoopIndex{}, jobs.NoopQueue{},
		logger,
	)
	if err := hier.EnsureRoot(context.Background()); err != nil {
		t.Fatalf("EnsureRoot: %v", err)
	}
	q := query.NewService(store.Folders(), store.Documents(), store.Tags(), noop, time.Minute, logger)

	folderHandler := NewFolderHandler(hier, q, logger)
	treeHandler := NewTreeHandler(q, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/folders", folderHandler.CreateFolder)
	mux.HandleFunc("GET /api/folders/{id}", folderHandler.GetFolder)
	mux.HandleFunc("PATCH /api/folders/{id}", folderHandler.UpdateFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", folderHandler.DeleteFolder)
	mux.HandleFunc("GET /api/tree", treeHandler.GetTree)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateFolderEndpoint(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		mux := newTestMux(t)

		rec := doJSON(t, mux, http.MethodPost, "/api/folders", map[string]string{"name": "docs"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
		}

		var folder models.Folder
		if err := json.Unmarshal(rec.Body.Bytes(), &folder); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if folder.Path != "/docs" {
			t.Errorf("path = %q, want \"/docs\"", folder.Path)
		}
	})

	t.Run("duplicate name maps to 409 with code", func(t *testing.T) {
		mux := newTestMux(t)

		doJSON(t, mux, http.MethodPost, "/api/folders", map[string]string{"name": "docs"})
		rec := doJSON(t, mux, http.MethodPost, "/api/folders", map[string]string{"name": "docs"})

		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
		var problem map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
			t.Fatalf("decode problem: %v", err)
		}
		if problem["code"] != "DUPLICATE_NAME" {
			t.Errorf("code = %v, want DUPLICATE_NAME", problem["code"])
		}
	})

	t.Run("invalid name maps to 400", func(t *testing.T) {
		mux := newTestMux(t)

		rec := doJSON(t, mux, http.MethodPost, "/api/folders", map[string]string{"name": "a/b"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestUpdateFolderEndpoint(t *testing.T) {
	t.Run("rename", func(t *testing.T) {
		mux := newTestMux(t)

		rec := doJSON(t, mux, http.MethodPost, "/api/folders", map[string]string{"name": "old"})
		var folder models.Folder
		if err := json.Unmarshal(rec.Body.Bytes(), &folder); err != nil {
			t.Fatalf("decode create response: %v", err)
		}

		rec = doJSON(t, mux, http.MethodPatch, "/api/folders/"+folder.ID, map[string]string{"name": "new"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
		var updated models.Folder
		if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
			t.Fatalf("decode update response: %v", err)
		}
		if updated.Path != "/new" {
			t.Errorf("path = %q, want \"/new\"", updated.Path)
		}
	})

	t.Run("move via parent_id", func(t *testing.T) {
		mux := newTestMux(t)

		var a, b models.Folder
		rec := doJSON(t, mux, http.MethodPost, "/api/folders", map[string]string{"name": "a"})
		if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
			t.Fatalf("decode: %v", err)
		}
		rec = doJSON(t, mux, http.MethodPost, "/api/folders", map[string]string{"name": "b"})
		if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
			t.Fatalf("decode: %v", err)
		}

		rec = doJSON(t, mux, http.MethodPatch, "/api/folders/"+b.ID, map[string]string{"parent_id": a.ID})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
		var moved models.Folder
		if err := json.Unmarshal(rec.Body.Bytes(), &moved); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if moved.Path != "/a/b" {
			t.Errorf("path = %q, want \"/a/b\"", moved.Path)
		}
	})

	t.Run("empty patch rejected", func(t *testing.T) {
		mux := newTestMux(t)

		rec := doJSON(t, mux, http.MethodPost, "/api/folders", map[string]string{"name": "a"})
		var folder models.Folder
		if err := json.Unmarshal(rec.Body.Bytes(), &folder); err != nil {
			t.Fatalf("decode: %v", err)
		}

		rec = doJSON(t, mux, http.MethodPatch, "/api/folders/"+folder.ID, map[string]string{})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestDeleteFolderEndpoint(t *testing.T) {
	mux := newTestMux(t)

	var parent, child models.Folder
	rec := doJSON(t, mux, http.MethodPost, "/api/folders", map[string]string{"name": "parent"})
	if err := json.Unmarshal(rec.Body.Bytes(), &parent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	rec = doJSON(t, mux, http.MethodPost, "/api/folders", map[string]string{"name": "child", "parent_id": parent.ID})
	if err := json.Unmarshal(rec.Body.Bytes(), &child); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(t, mux, http.MethodDelete, "/api/folders/"+parent.ID, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("non-empty delete status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodDelete, fmt.Sprintf("/api/folders/%s?force=true", parent.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("force delete status = %d, want 204: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/folders/"+child.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cascaded child status = %d, want 404", rec.Code)
	}
}

func TestGetTreeEndpoint(t *testing.T) {
	mux := newTestMux(t)

	doJSON(t, mux, http.MethodPost, "/api/folders", map[string]string{"name": "docs"})

	rec := doJSON(t, mux, http.MethodGet, "/api/tree", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var tree models.FolderTree
	if err := json.Unmarshal(rec.Body.Bytes(), &tree); err != nil {
		t.Fatalf("decode tree: %v", err)
	}
	if tree.Root == nil || len(tree.Root.Folders) != 1 {
		t.Error("tree does not show the created folder")
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/tree?depth=-1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative depth status = %d, want 400", rec.Code)
	}
}
