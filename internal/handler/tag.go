package handler

import (
	"log/slog"
	"net/http"

	"doctree/internal/domain/services"
	"doctree/internal/httputil"
)

// TagHandler serves the tag vocabulary with live usage counts
type TagHandler struct {
	query  services.QueryService
	logger *slog.Logger
}

// NewTagHandler creates a new tag handler
func NewTagHandler(query services.QueryService, logger *slog.Logger) *TagHandler {
	return &TagHandler{
		query:  query,
		logger: logger,
	}
}

// ListTags returns all tags, name-ordered
// GET /api/tags
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.query.ListTags(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"tags":  tags,
		"total": len(tags),
	})
}
