package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/driveos/filecore/pkg/catalog/models"
)

func (e *handlerEnv) shareFile(t *testing.T, fileID, owner, body string) models.FileShare {
	t.Helper()
	w := httptest.NewRecorder()
	e.shares.Create(w, asUser("POST", "/api/v1/files/"+fileID+"/shares", owner, body, map[string]string{"fileID": fileID}))
	if w.Code != http.StatusCreated {
		t.Fatalf("share Create returned %d: %s", w.Code, w.Body.String())
	}
	var share models.FileShare
	if err := json.NewDecoder(w.Body).Decode(&share); err != nil {
		t.Fatalf("Failed to decode share: %v", err)
	}
	return share
}

func TestShareCreate_DefaultsToRead(t *testing.T) {
	env := newHandlerEnv(t)
	file := env.createFile(t, "u1", `{"name":"doc.txt","path":"/doc.txt"}`)

	share := env.shareFile(t, file.ID, "u1", `{"user_id":"u2"}`)

	if share.Permission != models.ShareRead {
		t.Errorf("Expected permission 'read', got '%s'", share.Permission)
	}
	if share.ExpiresAt == nil {
		t.Error("Expected a defaulted expiry")
	}
}

func TestShareCreate_SelfShare_Returns400(t *testing.T) {
	env := newHandlerEnv(t)
	file := env.createFile(t, "u1", `{"name":"doc.txt","path":"/doc.txt"}`)

	w := httptest.NewRecorder()
	env.shares.Create(w, asUser("POST", "/api/v1/files/"+file.ID+"/shares", "u1",
		`{"user_id":"u1"}`, map[string]string{"fileID": file.ID}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestShareCreate_NonOwner_Returns403(t *testing.T) {
	env := newHandlerEnv(t)
	file := env.createFile(t, "u1", `{"name":"doc.txt","path":"/doc.txt"}`)

	w := httptest.NewRecorder()
	env.shares.Create(w, asUser("POST", "/api/v1/files/"+file.ID+"/shares", "u2",
		`{"user_id":"u3"}`, map[string]string{"fileID": file.ID}))

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status %d, got %d", http.StatusForbidden, w.Code)
	}
}

func TestShareRevoke_Returns204(t *testing.T) {
	env := newHandlerEnv(t)
	file := env.createFile(t, "u1", `{"name":"doc.txt","path":"/doc.txt"}`)
	env.shareFile(t, file.ID, "u1", `{"user_id":"u2","permission":"write"}`)

	w := httptest.NewRecorder()
	env.shares.Revoke(w, asUser("DELETE", "/api/v1/files/"+file.ID+"/shares/u2", "u1", "",
		map[string]string{"fileID": file.ID, "userID": "u2"}))

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status %d, got %d", http.StatusNoContent, w.Code)
	}
}

func TestShareListIncoming_ReturnsPage(t *testing.T) {
	env := newHandlerEnv(t)
	file := env.createFile(t, "u1", `{"name":"doc.txt","path":"/doc.txt"}`)
	env.shareFile(t, file.ID, "u1", `{"user_id":"u2"}`)

	w := httptest.NewRecorder()
	env.shares.ListSharedWithMe(w, asUser("GET", "/api/v1/shares/incoming", "u2", "", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp ListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("Expected 1 incoming share, got %d", resp.Total)
	}
}

func TestVersionRestore_ReturnsNewCounter(t *testing.T) {
	env := newHandlerEnv(t)
	file := env.createFile(t, "u1", `{"name":"doc.txt","path":"/doc.txt","size":10,"hash":"h1"}`)

	// Archive v1 through a content update.
	w := httptest.NewRecorder()
	env.files.Update(w, asUser("PATCH", "/api/v1/files/"+file.ID, "u1",
		`{"size":20,"hash":"h2"}`, map[string]string{"fileID": file.ID}))
	if w.Code != http.StatusOK {
		t.Fatalf("Update returned %d", w.Code)
	}

	w = httptest.NewRecorder()
	env.versions.Restore(w, asUser("POST", "/api/v1/files/"+file.ID+"/versions/1/restore", "u1", "",
		map[string]string{"fileID": file.ID, "number": "1"}))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var restored models.File
	if err := json.NewDecoder(w.Body).Decode(&restored); err != nil {
		t.Fatalf("Failed to decode file: %v", err)
	}
	if restored.Version != 3 || restored.Hash != "h1" {
		t.Errorf("Expected v3 with h1, got v%d with %s", restored.Version, restored.Hash)
	}
}

func TestVersionGet_BadNumber_Returns400(t *testing.T) {
	env := newHandlerEnv(t)
	file := env.createFile(t, "u1", `{"name":"doc.txt","path":"/doc.txt"}`)

	w := httptest.NewRecorder()
	env.versions.Get(w, asUser("GET", "/api/v1/files/"+file.ID+"/versions/zero", "u1", "",
		map[string]string{"fileID": file.ID, "number": "zero"}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestAccessCheck_ReportsEffectiveLevel(t *testing.T) {
	env := newHandlerEnv(t)
	file := env.createFile(t, "u1", `{"name":"doc.txt","path":"/doc.txt"}`)
	env.shareFile(t, file.ID, "u1", `{"user_id":"u2","permission":"write"}`)

	// The response carries the level the caller actually holds, not an
	// echo of the requested one.
	w := httptest.NewRecorder()
	env.access.Check(w, asUser("GET", "/api/v1/files/"+file.ID+"/access/check?level=read", "u2", "",
		map[string]string{"fileID": file.ID}))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["allowed"] != true {
		t.Errorf("Expected allowed=true, got %v", resp["allowed"])
	}
	if resp["effective_level"] != "write" {
		t.Errorf("Expected effective level 'write', got %v", resp["effective_level"])
	}
}

func TestAccessContext_Owner(t *testing.T) {
	env := newHandlerEnv(t)
	file := env.createFile(t, "u1", `{"name":"doc.txt","path":"/doc.txt"}`)

	w := httptest.NewRecorder()
	env.access.Context(w, asUser("GET", "/api/v1/files/"+file.ID+"/access", "u1", "",
		map[string]string{"fileID": file.ID}))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["access_type"] != "owner" || resp["can_share"] != true {
		t.Errorf("Unexpected access context: %v", resp)
	}
}
