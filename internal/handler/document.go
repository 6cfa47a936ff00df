package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"doctree/internal/config"
	"doctree/internal/domain/services"
	"doctree/internal/httputil"
)

// DocumentHandler handles document HTTP requests
type DocumentHandler struct {
	hierarchy services.HierarchyService
	query     services.QueryService
	blobs     services.BlobStore
	logger    *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(hierarchy services.HierarchyService, query services.QueryService, blobs services.BlobStore, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		hierarchy: hierarchy,
		query:     query,
		blobs:     blobs,
		logger:    logger,
	}
}

// HealthCheck responds to health probes
// GET /health
func (h *DocumentHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// UploadDocument commits a multipart upload: the file part is streamed to
// the blob store before the metadata record is created
// POST /api/documents (multipart/form-data: file, folder_id, name, tags, metadata keys)
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	// Form fields are parsed in memory; the file part stays streamed.
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "A file part is required")
		return
	}
	defer file.Close()

	if header.Size > config.MaxDocumentSize {
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, "File exceeds the maximum document size")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req := &services.UploadDocumentRequest{
		FolderID:    r.FormValue("folder_id"),
		Name:        name,
		FileName:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Tags:        parseTags(r.FormValue("tags")),
		Content:     file,
	}
	if meta := r.FormValue("metadata"); meta != "" {
		parsed, err := parseMetadata(meta)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid metadata JSON")
			return
		}
		req.Metadata = parsed
	}

	doc, err := h.hierarchy.UploadDocument(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// GetDocument retrieves a document's metadata record
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	doc, err := h.query.GetDocument(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// DownloadDocument streams a document's content from the blob store
// GET /api/documents/{id}/content
func (h *DocumentHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	doc, err := h.query.GetDocument(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	content, err := h.blobs.Get(r.Context(), doc.BlobRef)
	if err != nil {
		handleError(w, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	if _, err := io.Copy(w, content); err != nil {
		// Headers are gone; all we can do is log the broken stream.
		h.logger.Warn("document download interrupted", "id", id, "error", err)
	}
}

// UpdateDocument edits a document's descriptive metadata and/or moves it
// PATCH /api/documents/{id}
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	var req updateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	moved := false
	if req.FolderID.Present {
		if req.FolderID.Value == nil {
			httputil.RespondError(w, http.StatusBadRequest, "folder_id cannot be null")
			return
		}
		if _, err := h.hierarchy.MoveDocument(r.Context(), id, *req.FolderID.Value); err != nil {
			handleError(w, err)
			return
		}
		moved = true
	}

	if req.Name == nil && req.Tags == nil && req.Metadata == nil {
		if !moved {
			httputil.RespondError(w, http.StatusBadRequest, "No fields to update")
			return
		}
		doc, err := h.query.GetDocument(r.Context(), id)
		if err != nil {
			handleError(w, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, doc)
		return
	}

	doc, err := h.hierarchy.UpdateDocumentMetadata(r.Context(), id, &services.UpdateDocumentRequest{
		Name:     req.Name,
		Tags:     req.Tags,
		Metadata: req.Metadata,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// DeleteDocument removes a document record, then its blob
// DELETE /api/documents/{id}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	if err := h.hierarchy.DeleteDocument(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseTags splits a comma-separated form value into tags.
func parseTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// parseMetadata decodes the metadata form value, a flat JSON object.
func parseMetadata(raw string) (map[string]string, error) {
	var meta map[string]string
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, err
	}
	return meta, nil
}
