package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/driveos/filecore/pkg/api/middleware"
	"github.com/driveos/filecore/pkg/catalog"
	"github.com/driveos/filecore/pkg/catalog/models"
)

// AccessHandler exposes the permission resolver.
type AccessHandler struct {
	access *catalog.AccessResolver
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(a *catalog.AccessResolver) *AccessHandler {
	return &AccessHandler{access: a}
}

// Check handles GET /api/v1/files/{fileID}/access/check?level=write.
// Reports whether the caller holds at least the required level, along
// with the level they effectively hold.
func (h *AccessHandler) Check(w http.ResponseWriter, r *http.Request) {
	level := models.ParsePermissionLevel(r.URL.Query().Get("level"))
	if level == "" {
		BadRequest(w, "Query parameter 'level' must be one of read, write, delete, share, admin")
		return
	}

	fileID := chi.URLParam(r, "fileID")
	userID := middleware.GetUserID(r.Context())

	allowed, err := h.access.CheckPermission(r.Context(), fileID, userID, level)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	effective, err := h.access.GetUserPermission(r.Context(), fileID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSONOK(w, map[string]any{
		"allowed":         allowed,
		"effective_level": effective.String(),
	})
}

// Context handles GET /api/v1/files/{fileID}/access.
// Returns the caller's full capability set on the file; owners also see
// the file's active shares.
func (h *AccessHandler) Context(w http.ResponseWriter, r *http.Request) {
	accessCtx, err := h.access.GetFileAccessContext(r.Context(), chi.URLParam(r, "fileID"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONOK(w, accessCtx)
}
