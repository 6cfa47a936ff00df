package handler

import (
	"errors"
	"net/http"

	"doctree/internal/domain"
	"doctree/internal/httputil"
)

// handleError converts domain errors to HTTP responses. Every response
// carries the stable machine-readable code so clients can branch without
// parsing the detail text.
func handleError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		// Internal store details never leak to clients.
		detail = "internal server error"
	}
	httputil.RespondErrorWithExtras(w, status, detail, map[string]interface{}{
		"code": domain.Code(err),
	})
}

func statusFromError(err error) int {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}

	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrDepthExceeded),
		errors.Is(err, domain.ErrInvalidMove):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrDuplicateName),
		errors.Is(err, domain.ErrFolderNotEmpty),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrPartialFailure):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBlobUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleCreateConflict handles conflicts during creation by returning the existing resource with 409
// If the error is a ConflictError, it calls fetchFn to retrieve the existing resource
func HandleCreateConflict[T any](w http.ResponseWriter, err error, fetchFn func() (*T, error)) {
	var conflictErr *domain.ConflictError
	if errors.As(err, &conflictErr) {
		// Try to fetch existing resource
		existing, fetchErr := fetchFn()
		if fetchErr != nil {
			handleError(w, fetchErr)
			return
		}

		// Return existing resource with 409 status
		httputil.RespondJSON(w, http.StatusConflict, existing)
		return
	}

	// Not a conflict error, handle normally
	handleError(w, err)
}
