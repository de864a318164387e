package routes

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/app/repositories"
)

func setupTestRouter(t *testing.T, backend string) http.Handler {
	t.Helper()
	stores, err := repositories.Open(context.Background(), repositories.Options{
		Backend:  backend,
		DataDir:  t.TempDir(),
		InMemory: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return SetupRoutes(NewServices(stores, logger), logger)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type idBody struct {
	ID string `json:"id"`
}

type pageBody struct {
	Data []map[string]any `json:"data"`
	Meta struct {
		Total           int  `json:"total"`
		Page            int  `json:"page"`
		PageSize        int  `json:"pageSize"`
		TotalPages      int  `json:"totalPages"`
		HasNextPage     bool `json:"hasNextPage"`
		HasPreviousPage bool `json:"hasPreviousPage"`
	} `json:"meta"`
}

func TestBlogAPI(t *testing.T) {
	for _, backend := range []string{repositories.BackendJSON, repositories.BackendBadger, repositories.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			router := setupTestRouter(t, backend)

			w := do(t, router, http.MethodPost, "/api/categories", `{"name":"Tech","description":"Gadgets"}`)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			category := decode[idBody](t, w)

			w = do(t, router, http.MethodPost, "/api/categories", `{"name":"tech"}`)
			assert.Equal(t, http.StatusConflict, w.Code)

			w = do(t, router, http.MethodPost, "/api/posts",
				`{"title":"Hello Go","content":"Go is a fun language to write.","author":"Alice","tags":["go","intro"],"categoryId":"`+category.ID+`"}`)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			post := decode[idBody](t, w)

			w = do(t, router, http.MethodPost, "/api/posts",
				`{"title":"Second","content":"Another post body here.","author":"Bob","tags":["intro"]}`)
			require.Equal(t, http.StatusCreated, w.Code)

			w = do(t, router, http.MethodGet, "/api/posts?tag=go", "")
			require.Equal(t, http.StatusOK, w.Code)
			page := decode[pageBody](t, w)
			require.Len(t, page.Data, 1)
			assert.Equal(t, post.ID, page.Data[0]["id"])
			assert.Equal(t, 1, page.Meta.Total)
			assert.Equal(t, 10, page.Meta.PageSize)

			w = do(t, router, http.MethodGet, "/api/posts/tags", "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, []string{"go", "intro"}, decode[[]string](t, w))

			w = do(t, router, http.MethodGet, "/api/posts/author/Bob", "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Len(t, decode[[]map[string]any](t, w), 1)

			w = do(t, router, http.MethodGet, "/api/categories/"+category.ID, "")
			require.Equal(t, http.StatusOK, w.Code)
			detail := decode[map[string]any](t, w)
			assert.Equal(t, "Tech", detail["name"])
			assert.EqualValues(t, 1, detail["postCount"])

			for _, c := range []string{"first", "second"} {
				w = do(t, router, http.MethodPost, "/api/posts/"+post.ID+"/comments", `{"author":"Carol","content":"`+c+`"}`)
				require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			}
			w = do(t, router, http.MethodPost, "/api/posts/missing/comments", `{"author":"Carol","content":"x"}`)
			assert.Equal(t, http.StatusNotFound, w.Code)

			w = do(t, router, http.MethodGet, "/api/posts/"+post.ID+"/comments/count", "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, map[string]int{"count": 2}, decode[map[string]int](t, w))

			w = do(t, router, http.MethodPatch, "/api/posts/"+post.ID, `{"title":"Hello again"}`)
			require.Equal(t, http.StatusOK, w.Code)
			updated := decode[map[string]any](t, w)
			assert.Equal(t, "Hello again", updated["title"])
			assert.Equal(t, "Alice", updated["author"])

			w = do(t, router, http.MethodDelete, "/api/posts/"+post.ID, "")
			assert.Equal(t, http.StatusNoContent, w.Code)
			w = do(t, router, http.MethodDelete, "/api/posts/"+post.ID, "")
			assert.Equal(t, http.StatusNotFound, w.Code)

			w = do(t, router, http.MethodGet, "/api/posts/"+post.ID+"/comments/count", "")
			assert.Equal(t, map[string]int{"count": 0}, decode[map[string]int](t, w))
		})
	}
}

func TestCategoryListing(t *testing.T) {
	router := setupTestRouter(t, repositories.BackendJSON)
	for _, name := range []string{"Tech", "Travel", "Food"} {
		w := do(t, router, http.MethodPost, "/api/categories", `{"name":"`+name+`"}`)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := do(t, router, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 3)

	w = do(t, router, http.MethodGet, "/api/categories?page=2&pageSize=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[pageBody](t, w)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Food", page.Data[0]["name"])
	assert.True(t, page.Meta.HasPreviousPage)
	assert.False(t, page.Meta.HasNextPage)

	w = do(t, router, http.MethodGet, "/api/categories/search?q=tr", "")
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[[]map[string]any](t, w)
	require.Len(t, found, 1)
	assert.Equal(t, "Travel", found[0]["name"])
}

func TestErrorResponses(t *testing.T) {
	router := setupTestRouter(t, repositories.BackendJSON)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown post", http.MethodGet, "/api/posts/nope", "", http.StatusNotFound},
		{"invalid json", http.MethodPost, "/api/posts", `{"title":`, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/posts", "", http.StatusBadRequest},
		{"validation", http.MethodPost, "/api/posts", `{"title":"x","content":"short","author":"A"}`, http.StatusBadRequest},
		{"bad page", http.MethodGet, "/api/posts?page=0", "", http.StatusBadRequest},
		{"page not a number", http.MethodGet, "/api/posts?page=abc", "", http.StatusBadRequest},
		{"page size too large", http.MethodGet, "/api/posts?pageSize=101", "", http.StatusBadRequest},
		{"unknown sort field", http.MethodGet, "/api/posts?sortBy=secret", "", http.StatusBadRequest},
		{"unknown comment", http.MethodDelete, "/api/comments/nope", "", http.StatusNotFound},
		{"unknown category", http.MethodPatch, "/api/categories/nope", `{"description":"x"}`, http.StatusNotFound},
		{"no route", http.MethodGet, "/api/unknown", "", http.StatusNotFound},
		{"wrong method", http.MethodPut, "/api/posts", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			body := decode[map[string]string](t, w)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	router := setupTestRouter(t, repositories.BackendJSON)

	w := do(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	do(t, router, http.MethodGet, "/api/posts", "")
	w = do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "quill_http_requests_total")
	assert.Contains(t, w.Body.String(), "quill_store_operations_total")
}
