package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/driveos/filecore/pkg/api/middleware"
	"github.com/driveos/filecore/pkg/catalog"
	"github.com/driveos/filecore/pkg/catalog/models"
)

// ShareHandler handles share management endpoints.
type ShareHandler struct {
	shares *catalog.ShareRegistry
}

// NewShareHandler creates a new ShareHandler.
func NewShareHandler(s *catalog.ShareRegistry) *ShareHandler {
	return &ShareHandler{shares: s}
}

// ShareFileRequest is the request body for
// POST /api/v1/files/{fileID}/shares. A missing expiry defaults to the
// configured window; an unknown permission falls back to read.
type ShareFileRequest struct {
	UserID     string     `json:"user_id"`
	Permission string     `json:"permission,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Create handles POST /api/v1/files/{fileID}/shares.
// Sharing the same file with the same user again updates the existing
// share in place.
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ShareFileRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		BadRequest(w, "user_id is required")
		return
	}

	share, err := h.shares.ShareFile(
		r.Context(),
		chi.URLParam(r, "fileID"),
		middleware.GetUserID(r.Context()),
		req.UserID,
		models.ParseSharePermission(req.Permission),
		req.ExpiresAt,
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONCreated(w, share)
}

// ListByFile handles GET /api/v1/files/{fileID}/shares. Owner-only.
func (h *ShareHandler) ListByFile(w http.ResponseWriter, r *http.Request) {
	shares, err := h.shares.GetFileShares(r.Context(), chi.URLParam(r, "fileID"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONOK(w, shares)
}

// Revoke handles DELETE /api/v1/files/{fileID}/shares/{userID}.
func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	err := h.shares.RevokeShare(
		r.Context(),
		chi.URLParam(r, "fileID"),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "userID"),
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteNoContent(w)
}

// RevokeAll handles DELETE /api/v1/files/{fileID}/shares.
func (h *ShareHandler) RevokeAll(w http.ResponseWriter, r *http.Request) {
	removed, err := h.shares.RevokeAllShares(r.Context(), chi.URLParam(r, "fileID"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONOK(w, map[string]int64{"revoked": removed})
}

// RevokeByID handles DELETE /api/v1/shares/{shareID}.
// Allowed for the file owner and for the share recipient.
func (h *ShareHandler) RevokeByID(w http.ResponseWriter, r *http.Request) {
	err := h.shares.RevokeShareByID(r.Context(), chi.URLParam(r, "shareID"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteNoContent(w)
}

// ListMine handles GET /api/v1/shares/outgoing.
// Lists the active shares on every live file the caller owns.
func (h *ShareHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	shares, err := h.shares.ListMyShares(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONOK(w, shares)
}

// ListSharedWithMe handles GET /api/v1/shares/incoming.
func (h *ShareHandler) ListSharedWithMe(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	shares, total, err := h.shares.ListSharedWithMe(r.Context(), middleware.GetUserID(r.Context()), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONOK(w, ListResponse{Items: shares, Total: total})
}
