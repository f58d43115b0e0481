package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/driveos/filecore/pkg/api/middleware"
	"github.com/driveos/filecore/pkg/catalog"
)

// VersionHandler handles version history endpoints.
type VersionHandler struct {
	versions *catalog.VersionManager
}

// NewVersionHandler creates a new VersionHandler.
func NewVersionHandler(v *catalog.VersionManager) *VersionHandler {
	return &VersionHandler{versions: v}
}

// CreateVersionRequest is the request body for
// POST /api/v1/files/{fileID}/versions. The version number is chosen by
// the caller; it must not already exist for the file.
type CreateVersionRequest struct {
	Version     int    `json:"version"`
	Size        int64  `json:"size"`
	Hash        string `json:"hash,omitempty"`
	StoragePath string `json:"storage_path,omitempty"`
}

// versionNumber parses the {number} URL parameter.
func versionNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || n < 1 {
		BadRequest(w, "Version number must be a positive integer")
		return 0, false
	}
	return n, true
}

// Create handles POST /api/v1/files/{fileID}/versions.
func (h *VersionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateVersionRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	version, err := h.versions.CreateVersion(r.Context(), chi.URLParam(r, "fileID"), middleware.GetUserID(r.Context()), catalog.VersionParams{
		Version:     req.Version,
		Size:        req.Size,
		Hash:        req.Hash,
		StoragePath: req.StoragePath,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONCreated(w, version)
}

// List handles GET /api/v1/files/{fileID}/versions.
// Snapshots are returned newest first.
func (h *VersionHandler) List(w http.ResponseWriter, r *http.Request) {
	versions, err := h.versions.GetVersions(r.Context(), chi.URLParam(r, "fileID"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONOK(w, versions)
}

// Get handles GET /api/v1/files/{fileID}/versions/{number}.
func (h *VersionHandler) Get(w http.ResponseWriter, r *http.Request) {
	number, ok := versionNumber(w, r)
	if !ok {
		return
	}

	version, err := h.versions.GetVersion(r.Context(), chi.URLParam(r, "fileID"), number, middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONOK(w, version)
}

// Restore handles POST /api/v1/files/{fileID}/versions/{number}/restore.
// Returns the updated file record carrying the restored content under a
// new version number.
func (h *VersionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	number, ok := versionNumber(w, r)
	if !ok {
		return
	}

	file, err := h.versions.RestoreVersion(r.Context(), chi.URLParam(r, "fileID"), number, middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONOK(w, file)
}
