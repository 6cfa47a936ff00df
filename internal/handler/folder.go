package handler

import (
	"log/slog"
	"net/http"

	"doctree/internal/domain/models"
	"doctree/internal/domain/services"
	"doctree/internal/httputil"
)

// FolderHandler handles folder HTTP requests
type FolderHandler struct {
	hierarchy services.HierarchyService
	query     services.QueryService
	logger    *slog.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(hierarchy services.HierarchyService, query services.QueryService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{
		hierarchy: hierarchy,
		query:     query,
		logger:    logger,
	}
}

// CreateFolder creates a new folder
// POST /api/folders
// Returns 201 if created, 409 if a sibling with the name exists
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ParentID == "" {
		// Creating at the top level targets the root singleton.
		req.ParentID = models.RootFolderID
	}

	folder, err := h.hierarchy.CreateFolder(r.Context(), &services.CreateFolderRequest{
		ParentID:    req.ParentID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// GetFolder retrieves a folder with its direct children
// GET /api/folders/{id}
func (h *FolderHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Folder ID is required")
		return
	}

	contents, err := h.query.GetFolderContents(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, contents)
}

// UpdateFolder renames, re-describes, and/or moves a folder
// PATCH /api/folders/{id}
func (h *FolderHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Folder ID is required")
		return
	}

	var req updateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var folder *models.Folder
	var err error

	if req.ParentID.Present {
		if req.ParentID.Value == nil {
			httputil.RespondError(w, http.StatusBadRequest, "parent_id cannot be null")
			return
		}
		folder, err = h.hierarchy.MoveFolder(r.Context(), id, *req.ParentID.Value)
		if err != nil {
			handleError(w, err)
			return
		}
	}

	if req.Name != nil || req.Description != nil {
		folder, err = h.hierarchy.UpdateFolder(r.Context(), id, &services.UpdateFolderRequest{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			handleError(w, err)
			return
		}
	}

	if folder == nil {
		httputil.RespondError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// DeleteFolder deletes a folder
// DELETE /api/folders/{id}?force=true
// Without force the folder must be empty.
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Folder ID is required")
		return
	}
	force := r.URL.Query().Get("force") == "true"

	if err := h.hierarchy.DeleteFolder(r.Context(), id, force); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReconcileFolder triggers counter and path repair for a subtree
// POST /api/folders/{id}/reconcile
func (h *FolderHandler) ReconcileFolder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Folder ID is required")
		return
	}

	if err := h.hierarchy.Reconcile(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
