package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/driveos/filecore/pkg/api/middleware"
	"github.com/driveos/filecore/pkg/catalog"
	"github.com/driveos/filecore/pkg/catalog/models"
	"github.com/driveos/filecore/pkg/catalog/store"
	"github.com/driveos/filecore/pkg/quota"
)

// newHandlerEnv builds the handlers against real services on an
// in-memory database.
type handlerEnv struct {
	files    *FileHandler
	versions *VersionHandler
	shares   *ShareHandler
	access   *AccessHandler
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	st, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	access := catalog.NewAccessResolver(st)
	fileCatalog := catalog.NewFileCatalog(st, access, nil, quota.NewAllowAll(), nil, nil, catalog.Config{})
	versions := catalog.NewVersionManager(st, access, nil, nil, nil, catalog.Config{})
	shares := catalog.NewShareRegistry(st, nil, nil, catalog.Config{})

	return &handlerEnv{
		files:    NewFileHandler(fileCatalog),
		versions: NewVersionHandler(versions),
		shares:   NewShareHandler(shares),
		access:   NewAccessHandler(access),
	}
}

// asUser builds a request with the caller identity in context and the
// given URL parameters, the way the router middleware would.
func asUser(method, target, userID, body string, urlParams map[string]string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	ctx := middleware.WithUserID(req.Context(), userID)
	if len(urlParams) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range urlParams {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) Problem {
	t.Helper()
	var p Problem
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("Failed to decode problem: %v", err)
	}
	return p
}

func (e *handlerEnv) createFile(t *testing.T, owner, body string) models.File {
	t.Helper()
	w := httptest.NewRecorder()
	e.files.Create(w, asUser("POST", "/api/v1/files", owner, body, nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("Create returned %d: %s", w.Code, w.Body.String())
	}
	var file models.File
	if err := json.NewDecoder(w.Body).Decode(&file); err != nil {
		t.Fatalf("Failed to decode file: %v", err)
	}
	return file
}

func TestFileCreate_ReturnsCreated(t *testing.T) {
	env := newHandlerEnv(t)

	file := env.createFile(t, "u1", `{"name":"doc.txt","path":"/doc.txt","size":42,"hash":"h1"}`)

	if file.OwnerID != "u1" {
		t.Errorf("Expected owner 'u1', got '%s'", file.OwnerID)
	}
	if file.Version != 1 {
		t.Errorf("Expected version 1, got %d", file.Version)
	}
	if !strings.HasPrefix(file.StoragePath, "files/") {
		t.Errorf("Expected deterministic storage path, got '%s'", file.StoragePath)
	}
}

func TestFileCreate_MissingName_Returns400(t *testing.T) {
	env := newHandlerEnv(t)
	w := httptest.NewRecorder()

	env.files.Create(w, asUser("POST", "/api/v1/files", "u1", `{"path":"/doc.txt"}`, nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != ContentTypeProblemJSON {
		t.Errorf("Expected problem+json content type, got '%s'", got)
	}
}

func TestFileCreate_DuplicatePath_Returns409(t *testing.T) {
	env := newHandlerEnv(t)
	env.createFile(t, "u1", `{"name":"doc.txt","path":"/doc.txt"}`)

	w := httptest.NewRecorder()
	env.files.Create(w, asUser("POST", "/api/v1/files", "u1", `{"name":"doc.txt","path":"/doc.txt"}`, nil))

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status %d, got %d", http.StatusConflict, w.Code)
	}
	p := decodeProblem(t, w)
	if p.Title != "Conflict" {
		t.Errorf("Expected title 'Conflict', got '%s'", p.Title)
	}
}

func TestFileGet_Stranger_Returns403(t *testing.T) {
	env := newHandlerEnv(t)
	file := env.createFile(t, "u1", `{"name":"doc.txt","path":"/doc.txt"}`)

	w := httptest.NewRecorder()
	env.files.Get(w, asUser("GET", "/api/v1/files/"+file.ID, "stranger", "", map[string]string{"fileID": file.ID}))

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status %d, got %d", http.StatusForbidden, w.Code)
	}
}

func TestFileGet_Unknown_Returns404(t *testing.T) {
	env := newHandlerEnv(t)

	w := httptest.NewRecorder()
	env.files.Get(w, asUser("GET", "/api/v1/files/missing", "u1", "", map[string]string{"fileID": "missing"}))

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestFileUpdate_BumpsVersion(t *testing.T) {
	env := newHandlerEnv(t)
	file := env.createFile(t, "u1", `{"name":"doc.txt","path":"/doc.txt","size":10,"hash":"h1"}`)

	w := httptest.NewRecorder()
	env.files.Update(w, asUser("PATCH", "/api/v1/files/"+file.ID, "u1",
		`{"size":20,"hash":"h2"}`, map[string]string{"fileID": file.ID}))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var updated models.File
	if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
		t.Fatalf("Failed to decode file: %v", err)
	}
	if updated.Version != 2 || updated.Size != 20 {
		t.Errorf("Expected v2 size 20, got v%d size %d", updated.Version, updated.Size)
	}
}

func TestFileDelete_ThenListTrash(t *testing.T) {
	env := newHandlerEnv(t)
	file := env.createFile(t, "u1", `{"name":"doc.txt","path":"/doc.txt"}`)

	w := httptest.NewRecorder()
	env.files.Delete(w, asUser("DELETE", "/api/v1/files/"+file.ID, "u1", "", map[string]string{"fileID": file.ID}))
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status %d, got %d", http.StatusNoContent, w.Code)
	}

	w = httptest.NewRecorder()
	env.files.ListTrash(w, asUser("GET", "/api/v1/trash", "u1", "", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp ListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("Expected 1 trashed record, got %d", resp.Total)
	}
}

func TestFileMove_IntoDescendant_Returns409(t *testing.T) {
	env := newHandlerEnv(t)
	folder := env.createFile(t, "u1", `{"name":"a","path":"/a","is_folder":true}`)
	child := env.createFile(t, "u1", `{"name":"b","path":"/a/b","is_folder":true,"parent_id":"`+folder.ID+`"}`)

	w := httptest.NewRecorder()
	env.files.Move(w, asUser("POST", "/api/v1/files/"+folder.ID+"/move", "u1",
		`{"new_parent_id":"`+child.ID+`"}`, map[string]string{"fileID": folder.ID}))

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status %d, got %d: %s", http.StatusConflict, w.Code, w.Body.String())
	}
}

func TestFileSearch_RequiresQuery(t *testing.T) {
	env := newHandlerEnv(t)

	w := httptest.NewRecorder()
	env.files.Search(w, asUser("GET", "/api/v1/files/search", "u1", "", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}
