package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel error kinds - use with errors.Is().
// Every error surfaced by the hierarchy engine wraps exactly one of these,
// so callers get a stable machine-readable kind without parsing messages.
var (
	// ErrNotFound indicates a folder or document id that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName indicates a sibling with the same name already exists.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrInvalidName indicates a name violating length or charset rules.
	ErrInvalidName = errors.New("invalid name")

	// ErrDepthExceeded indicates the folder tree depth bound would be violated.
	ErrDepthExceeded = errors.New("depth exceeded")

	// ErrInvalidMove indicates a self-move or a move into the folder's own subtree.
	ErrInvalidMove = errors.New("invalid move")

	// ErrFolderNotEmpty indicates a non-force delete of a folder with children.
	ErrFolderNotEmpty = errors.New("folder not empty")

	// ErrForbidden indicates a mutation of the root folder.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict indicates a lost conditional write. Retryable.
	ErrConflict = errors.New("write conflict")

	// ErrPartialFailure indicates a multi-step subtree operation exhausted its
	// retries. The affected subtree is internally consistent and flagged for
	// reconciliation.
	ErrPartialFailure = errors.New("partial failure")

	// ErrBlobUnavailable indicates the blob collaborator could not be reached.
	// Metadata that already committed is never rolled back because of it.
	ErrBlobUnavailable = errors.New("blob store unavailable")

	// ErrValidation indicates invalid request input outside the specific kinds above.
	ErrValidation = errors.New("validation failed")
)

// ConflictError carries details about the existing resource that caused a
// duplicate-name rejection, so handlers can return it alongside the 409.
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (document, folder)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrDuplicateName
func (e *ConflictError) Is(target error) bool {
	return target == ErrDuplicateName
}

// Code returns the stable machine-readable code for an error kind.
// Internal store error details never leak into these codes.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrDuplicateName):
		return "DUPLICATE_NAME"
	case errors.Is(err, ErrInvalidName):
		return "INVALID_NAME"
	case errors.Is(err, ErrDepthExceeded):
		return "DEPTH_EXCEEDED"
	case errors.Is(err, ErrInvalidMove):
		return "INVALID_MOVE"
	case errors.Is(err, ErrFolderNotEmpty):
		return "FOLDER_NOT_EMPTY"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrPartialFailure):
		return "PARTIAL_FAILURE"
	case errors.Is(err, ErrBlobUnavailable):
		return "BLOB_STORE_UNAVAILABLE"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_FAILED"
	default:
		return "INTERNAL"
	}
}
