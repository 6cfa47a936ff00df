package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"doctree/internal/domain/models"
	"doctree/internal/domain/services"
	"doctree/internal/httputil"
)

// TreeHandler serves the nested tree views
type TreeHandler struct {
	query  services.QueryService
	logger *slog.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(query services.QueryService, logger *slog.Logger) *TreeHandler {
	return &TreeHandler{
		query:  query,
		logger: logger,
	}
}

// GetTree returns the full tree from the root folder
// GET /api/tree?depth=N
func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	h.respondTree(w, r, models.RootFolderID)
}

// GetSubtree returns the tree rooted at a specific folder
// GET /api/folders/{id}/tree?depth=N
func (h *TreeHandler) GetSubtree(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Folder ID is required")
		return
	}
	h.respondTree(w, r, id)
}

func (h *TreeHandler) respondTree(w http.ResponseWriter, r *http.Request, rootID string) {
	maxDepth := 0
	if raw := r.URL.Query().Get("depth"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httputil.RespondError(w, http.StatusBadRequest, "depth must be a non-negative integer")
			return
		}
		maxDepth = parsed
	}

	tree, err := h.query.GetFolderTree(r.Context(), rootID, maxDepth)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tree)
}
