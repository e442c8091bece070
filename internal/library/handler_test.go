package library

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"comicshelf/internal/auth"
	"comicshelf/pkg/models"
)

// asUser injects claims the way the auth middleware would after verifying a
// token, so handlers can be tested without minting one.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.CtxClaimsKey, &auth.Claims{UserID: userID})
		c.Next()
	}
}

func setupRouter(t *testing.T, authed bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	h := NewHandler(NewRepo(db), nil)
	r := gin.New()
	rg := r.Group("/api/users")
	if authed {
		rg.Use(asUser("u1"))
	}
	h.RegisterRoutes(rg)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type apiResp struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
	Error   string          `json:"error"`
}

func decodeResp(t *testing.T, w *httptest.ResponseRecorder) apiResp {
	t.Helper()
	var resp apiResp
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return resp
}

func putProgress(t *testing.T, r *gin.Engine, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, r, http.MethodPut, "/api/users/progress", body)
}

func TestUpsertProgress_HTTP(t *testing.T) {
	r := setupRouter(t, true)

	w := putProgress(t, r, map[string]any{
		"comic_id": "c1", "chapter_id": "ch1", "page_number": 5, "client_ts": 2000,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var saved models.ReadingProgress
	if err := json.Unmarshal(decodeResp(t, w).Data, &saved); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if saved.UserID != "u1" || saved.PageNumber != 5 || saved.ClientTS != 2000 {
		t.Fatalf("unexpected saved row %+v", saved)
	}

	// a stale write still answers 200 with the row that beat it
	w = putProgress(t, r, map[string]any{
		"comic_id": "c1", "chapter_id": "ch1", "page_number": 2, "client_ts": 1000,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for stale write, got %d", w.Code)
	}
	if err := json.Unmarshal(decodeResp(t, w).Data, &saved); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if saved.PageNumber != 5 || saved.ClientTS != 2000 {
		t.Fatalf("stale write must lose, got %+v", saved)
	}
}

func TestUpsertProgress_Validation(t *testing.T) {
	r := setupRouter(t, true)

	w := putProgress(t, r, map[string]any{"page_number": 1})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing comic_id, got %d", w.Code)
	}

	w = putProgress(t, r, map[string]any{"comic_id": "c1", "page_number": 0})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for page 0, got %d", w.Code)
	}

	w = putProgress(t, r, map[string]any{"comic_id": "ghost", "page_number": 1})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown comic, got %d", w.Code)
	}
}

func TestUpsertProgress_DefaultClientTS(t *testing.T) {
	r := setupRouter(t, true)

	w := putProgress(t, r, map[string]any{"comic_id": "c1", "page_number": 3})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var saved models.ReadingProgress
	if err := json.Unmarshal(decodeResp(t, w).Data, &saved); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if saved.ClientTS <= 0 {
		t.Fatalf("expected server-filled client_ts, got %d", saved.ClientTS)
	}
}

func TestProgressEndpoints_RequireAuth(t *testing.T) {
	r := setupRouter(t, false)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/users/library"},
		{http.MethodPut, "/api/users/progress"},
		{http.MethodGet, "/api/users/progress/c1"},
		{http.MethodDelete, "/api/users/progress/c1"},
		{http.MethodGet, "/api/users/history"},
	}
	for _, p := range paths {
		var body any
		if p.method == http.MethodPut {
			body = map[string]any{"comic_id": "c1", "page_number": 1}
		}
		w := doJSON(t, r, p.method, p.path, body)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", p.method, p.path, w.Code)
		}
	}
}

func TestGetAndDeleteProgress_HTTP(t *testing.T) {
	r := setupRouter(t, true)

	w := doJSON(t, r, http.MethodGet, "/api/users/progress/c1", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any write, got %d", w.Code)
	}

	if w := putProgress(t, r, map[string]any{"comic_id": "c1", "page_number": 4, "client_ts": 10}); w.Code != http.StatusOK {
		t.Fatalf("seed progress: %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/users/progress/c1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var p models.ReadingProgress
	if err := json.Unmarshal(decodeResp(t, w).Data, &p); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if p.PageNumber != 4 {
		t.Fatalf("unexpected progress %+v", p)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/users/progress/c1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodDelete, "/api/users/progress/c1", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestLibrary_HTTP(t *testing.T) {
	r := setupRouter(t, true)

	for _, body := range []map[string]any{
		{"comic_id": "c1", "chapter_id": "ch1", "page_number": 7, "client_ts": 10},
		{"comic_id": "c2", "page_number": 1, "client_ts": 20},
	} {
		if w := putProgress(t, r, body); w.Code != http.StatusOK {
			t.Fatalf("seed progress: %d", w.Code)
		}
	}

	w := doJSON(t, r, http.MethodGet, "/api/users/library", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decodeResp(t, w)
	if resp.Count == nil || *resp.Count != 2 {
		t.Fatalf("expected count 2, got %v", resp.Count)
	}
	var entries []models.LibraryEntry
	if err := json.Unmarshal(resp.Data, &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.ComicTitle == "" {
			t.Fatalf("expected joined title in %+v", e)
		}
	}

	// paging trims entries but keeps the full total
	w = doJSON(t, r, http.MethodGet, "/api/users/library?limit=1", nil)
	resp = decodeResp(t, w)
	if resp.Count == nil || *resp.Count != 2 {
		t.Fatalf("expected total 2 with limit 1, got %v", resp.Count)
	}
	entries = nil
	if err := json.Unmarshal(resp.Data, &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry with limit 1, got %d", len(entries))
	}
}

func TestHistory_HTTP(t *testing.T) {
	r := setupRouter(t, true)

	for _, body := range []map[string]any{
		{"comic_id": "c1", "page_number": 1, "client_ts": 1},
		{"comic_id": "c2", "page_number": 2, "client_ts": 2},
		{"comic_id": "c1", "page_number": 3, "client_ts": 3},
	} {
		if w := putProgress(t, r, body); w.Code != http.StatusOK {
			t.Fatalf("seed progress: %d", w.Code)
		}
	}

	w := doJSON(t, r, http.MethodGet, "/api/users/history", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decodeResp(t, w)
	var entries []models.ProgressEntry
	if err := json.Unmarshal(resp.Data, &entries); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 history rows, got %d", len(entries))
	}

	w = doJSON(t, r, http.MethodGet, "/api/users/history?comic_id=c1", nil)
	entries = nil
	if err := json.Unmarshal(decodeResp(t, w).Data, &entries); err != nil {
		t.Fatalf("decode filtered history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 rows for c1, got %d", len(entries))
	}
}
