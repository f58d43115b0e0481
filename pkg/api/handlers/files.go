package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/driveos/filecore/pkg/api/middleware"
	"github.com/driveos/filecore/pkg/catalog"
	"github.com/driveos/filecore/pkg/catalog/store"
)

// FileHandler handles file and folder management endpoints.
type FileHandler struct {
	catalog *catalog.FileCatalog
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(c *catalog.FileCatalog) *FileHandler {
	return &FileHandler{catalog: c}
}

// CreateFileRequest is the request body for POST /api/v1/files.
type CreateFileRequest struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Size     int64   `json:"size,omitempty"`
	MimeType string  `json:"mime_type,omitempty"`
	Hash     string  `json:"hash,omitempty"`
	IsFolder bool    `json:"is_folder,omitempty"`
	ParentID *string `json:"parent_id,omitempty"`
}

// UpdateFileRequest is the request body for PATCH /api/v1/files/{fileID}.
// Absent fields are left untouched.
type UpdateFileRequest struct {
	Name     *string `json:"name,omitempty"`
	Size     *int64  `json:"size,omitempty"`
	Hash     *string `json:"hash,omitempty"`
	MimeType *string `json:"mime_type,omitempty"`
}

// MoveFileRequest is the request body for POST /api/v1/files/{fileID}/move.
// A nil parent moves the file to the root of the owner's namespace.
type MoveFileRequest struct {
	NewParentID *string `json:"new_parent_id"`
}

// ListResponse is the envelope for paged listings.
type ListResponse struct {
	Items any   `json:"items"`
	Total int64 `json:"total"`
}

// Create handles POST /api/v1/files.
func (h *FileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateFileRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		BadRequest(w, "Name is required")
		return
	}
	if req.Path == "" {
		BadRequest(w, "Path is required")
		return
	}

	file, err := h.catalog.CreateFile(r.Context(), catalog.CreateFileParams{
		Name:     req.Name,
		Path:     req.Path,
		OwnerID:  middleware.GetUserID(r.Context()),
		Size:     req.Size,
		MimeType: req.MimeType,
		Hash:     req.Hash,
		IsFolder: req.IsFolder,
		ParentID: req.ParentID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSONCreated(w, file)
}

// Get handles GET /api/v1/files/{fileID}.
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	file, err := h.catalog.GetFile(r.Context(), chi.URLParam(r, "fileID"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONOK(w, file)
}

// GetByPath handles GET /api/v1/files/by-path?path=/docs/a.txt.
// Resolves a path within the caller's own namespace.
func (h *FileHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	filePath := r.URL.Query().Get("path")
	if filePath == "" {
		BadRequest(w, "Query parameter 'path' is required")
		return
	}

	file, err := h.catalog.GetFileByPath(r.Context(), middleware.GetUserID(r.Context()), filePath)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONOK(w, file)
}

// List handles GET /api/v1/files.
// Lists the caller's live records, optionally scoped to one folder via
// the parent_id query parameter.
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	params := store.ListFilesParams{
		OwnerID: middleware.GetUserID(r.Context()),
		Limit:   limit,
		Offset:  offset,
	}
	if v := r.URL.Query().Get("parent_id"); v != "" {
		params.ParentID = &v
	}

	files, total, err := h.catalog.ListFiles(r.Context(), params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONOK(w, ListResponse{Items: files, Total: total})
}

// Search handles GET /api/v1/files/search?q=report.
func (h *FileHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		BadRequest(w, "Query parameter 'q' is required")
		return
	}

	limit, offset := pageParams(r)
	files, total, err := h.catalog.SearchFiles(r.Context(), middleware.GetUserID(r.Context()), query, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONOK(w, ListResponse{Items: files, Total: total})
}

// Update handles PATCH /api/v1/files/{fileID}.
func (h *FileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateFileRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Name != nil && *req.Name == "" {
		BadRequest(w, "Name must not be empty")
		return
	}
	if req.Size != nil && *req.Size < 0 {
		BadRequest(w, "Size must not be negative")
		return
	}

	file, err := h.catalog.UpdateFile(r.Context(), chi.URLParam(r, "fileID"), middleware.GetUserID(r.Context()), catalog.UpdatePatch{
		Name:     req.Name,
		Size:     req.Size,
		Hash:     req.Hash,
		MimeType: req.MimeType,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONOK(w, file)
}

// Delete handles DELETE /api/v1/files/{fileID}.
// The first delete moves the record to trash; deleting a trashed record
// purges it permanently.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.catalog.DeleteFile(r.Context(), chi.URLParam(r, "fileID"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteNoContent(w)
}

// Move handles POST /api/v1/files/{fileID}/move.
func (h *FileHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req MoveFileRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	file, err := h.catalog.MoveFile(r.Context(), chi.URLParam(r, "fileID"), req.NewParentID, middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONOK(w, file)
}

// ListTrash handles GET /api/v1/trash.
func (h *FileHandler) ListTrash(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	files, total, err := h.catalog.ListTrash(r.Context(), middleware.GetUserID(r.Context()), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONOK(w, ListResponse{Items: files, Total: total})
}

// Restore handles POST /api/v1/files/{fileID}/restore.
func (h *FileHandler) Restore(w http.ResponseWriter, r *http.Request) {
	file, err := h.catalog.RestoreFile(r.Context(), chi.URLParam(r, "fileID"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONOK(w, file)
}

// EmptyTrash handles DELETE /api/v1/trash.
func (h *FileHandler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	purged, err := h.catalog.EmptyTrash(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONOK(w, map[string]int{"purged": purged})
}
