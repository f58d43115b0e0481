package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/driveos/filecore/pkg/catalog/models"
)

// decodeJSONBody decodes a JSON request body into the provided pointer.
// Returns true if successful, false if decoding fails (error response is
// written automatically).
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// writeServiceError maps a catalog sentinel error onto an RFC 7807
// problem response. Unknown errors become a 500 without leaking the
// internal message.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrFileNotFound),
		errors.Is(err, models.ErrVersionNotFound),
		errors.Is(err, models.ErrShareNotFound):
		NotFound(w, err.Error())

	case errors.Is(err, models.ErrDuplicatePath),
		errors.Is(err, models.ErrDuplicateVersion),
		errors.Is(err, models.ErrFolderCycle),
		errors.Is(err, models.ErrShareLimitReached):
		Conflict(w, err.Error())

	case errors.Is(err, models.ErrPermissionDenied):
		Forbidden(w, err.Error())

	case errors.Is(err, models.ErrParentNotFound),
		errors.Is(err, models.ErrNotAFolder),
		errors.Is(err, models.ErrSelfShare),
		errors.Is(err, models.ErrInvalidVersion):
		BadRequest(w, err.Error())

	case errors.Is(err, models.ErrFileTooLarge):
		WriteProblem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", err.Error())

	case errors.Is(err, models.ErrQuotaExceeded):
		WriteProblem(w, http.StatusInsufficientStorage, "Insufficient Storage", err.Error())

	case errors.Is(err, models.ErrQuotaUnavailable):
		WriteProblem(w, http.StatusBadGateway, "Bad Gateway", "quota service unavailable")

	default:
		InternalServerError(w, "Internal error")
	}
}

// pageParams reads limit/offset query parameters. Invalid or missing
// values fall back to zero, which the store treats as "no limit".
func pageParams(r *http.Request) (limit, offset int) {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}
	return limit, offset
}
