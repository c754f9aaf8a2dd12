package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"custom-url-shortener/internal/accounts"
	"custom-url-shortener/internal/apperrors"
	"custom-url-shortener/internal/auth"
	"custom-url-shortener/internal/db"
	"custom-url-shortener/internal/redirect"
	"custom-url-shortener/internal/shortener"
	"custom-url-shortener/internal/stats"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	router *gin.Engine
	store  *db.Store
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	store := db.NewStore(conn)

	generator, err := shortener.NewGenerator(7)
	require.NoError(t, err)
	tokens := auth.NewTokenManager("test_secret_key_12345", time.Hour)

	h := NewHandler(
		store,
		shortener.NewAllocator(store, generator, shortener.DefaultMaxAttempts),
		redirect.NewResolver(store, nil),
		stats.NewService(store, nil),
		accounts.NewService(store, tokens),
	)
	return &testAPI{router: SetupRouter(h, tokens), store: store}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// signUp registers an account and returns its token.
func (a *testAPI) signUp(t *testing.T, email string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/auth/register", accounts.RegisterInput{
		FirstName: "Test", LastName: "User", Email: email, Password: "hunter22",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: email, Password: "hunter22"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthCheckHandler(t *testing.T) {
	a := setupTestAPI(t)

	w := a.do(t, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "UP", decode(t, w)["status"])
}

func TestShortenHandler(t *testing.T) {
	a := setupTestAPI(t)

	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
		expectedError  string
	}{
		{"valid URL", ShortenRequest{OriginalURL: "https://example.com/test"}, http.StatusCreated, ""},
		{"empty URL", ShortenRequest{OriginalURL: "  "}, http.StatusBadRequest, "Paste your URL in the input field"},
		{"invalid JSON", "invalid json", http.StatusBadRequest, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(t, http.MethodPost, "/api/links", tt.body, "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			body := decode(t, w)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, body["error"])
				return
			}
			link, ok := body["newLink"].(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, "https://example.com/test", link["originalUrl"])
			assert.Len(t, link["shortenedUrl"], 7)
			assert.EqualValues(t, 0, link["clicks"])
		})
	}
}

func TestRedirectHandler(t *testing.T) {
	a := setupTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/links", ShortenRequest{OriginalURL: "https://example.com/landing"}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	code := decode(t, w)["newLink"].(map[string]interface{})["shortenedUrl"].(string)

	for i := 0; i < 3; i++ {
		w = a.do(t, http.MethodGet, "/"+code, nil, "")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://example.com/landing", w.Header().Get("Location"))
	}

	// Global resolution never counts.
	link, err := a.store.FindShortLinkByCode(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, int64(0), link.Clicks)

	w = a.do(t, http.MethodGet, "/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Short code not found", decode(t, w)["error"])
}

func TestAuthHandlers(t *testing.T) {
	a := setupTestAPI(t)
	a.signUp(t, "ada@example.com")

	tests := []struct {
		name           string
		path           string
		body           interface{}
		expectedStatus int
	}{
		{"duplicate email", "/api/auth/register", accounts.RegisterInput{FirstName: "A", LastName: "B", Email: "ada@example.com", Password: "x"}, http.StatusConflict},
		{"missing fields", "/api/auth/register", accounts.RegisterInput{Email: "new@example.com"}, http.StatusBadRequest},
		{"wrong password", "/api/auth/login", LoginRequest{Email: "ada@example.com", Password: "nope"}, http.StatusUnauthorized},
		{"unknown email", "/api/auth/login", LoginRequest{Email: "bob@example.com", Password: "hunter22"}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(t, http.MethodPost, tt.path, tt.body, "")
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func TestCustomLinksRequireToken(t *testing.T) {
	a := setupTestAPI(t)

	paths := []string{"/get-all", "/count-links", "/click-count", "/average-clicks", "/last-creation", "/abc"}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			w := a.do(t, http.MethodGet, "/api/custom-links"+p, nil, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Unauthorized", decode(t, w)["error"])
		})
	}

	w := a.do(t, http.MethodPost, "/api/custom-links/add", CustomLinkRequest{OriginalLink: "https://a.com", CustomLink: "a"}, "bogus")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCustomLinksFlow(t *testing.T) {
	a := setupTestAPI(t)
	owner := a.signUp(t, "owner@example.com")
	other := a.signUp(t, "other@example.com")

	w := a.do(t, http.MethodGet, "/api/custom-links/last-creation", nil, owner)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "No links created yet", decode(t, w)["message"])

	w = a.do(t, http.MethodGet, "/api/custom-links/average-clicks", nil, owner)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["averageClicks"])

	w = a.do(t, http.MethodPost, "/api/custom-links/add", CustomLinkRequest{OriginalLink: "https://example.com/x", CustomLink: "promo"}, owner)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "promo", decode(t, w)["customLink"])

	w = a.do(t, http.MethodPost, "/api/custom-links/add", CustomLinkRequest{OriginalLink: "https://example.com/y", CustomLink: "promo"}, other)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Custom link already taken", decode(t, w)["error"])

	w = a.do(t, http.MethodPost, "/api/custom-links/add", CustomLinkRequest{OriginalLink: "https://example.com/y", CustomLink: "bad code!"}, owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for i := 1; i <= 2; i++ {
		w = a.do(t, http.MethodGet, "/api/custom-links/promo", nil, owner)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.EqualValues(t, i, body["clicks"])
		assert.Equal(t, "https://example.com/x", body["originalLink"])
	}

	// Someone else's code is indistinguishable from a missing one.
	w = a.do(t, http.MethodGet, "/api/custom-links/promo", nil, other)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Link not found", decode(t, w)["error"])

	w = a.do(t, http.MethodGet, "/api/custom-links/get-all", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["customLinks"], 1)

	w = a.do(t, http.MethodGet, "/api/custom-links/get-all", nil, other)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["customLinks"], 0)

	w = a.do(t, http.MethodGet, "/api/custom-links/count-links", nil, owner)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = a.do(t, http.MethodGet, "/api/custom-links/click-count", nil, owner)
	assert.EqualValues(t, 2, decode(t, w)["totalClicks"])

	w = a.do(t, http.MethodGet, "/api/custom-links/average-clicks", nil, owner)
	assert.EqualValues(t, 2, decode(t, w)["averageClicks"])

	w = a.do(t, http.MethodGet, "/api/custom-links/last-creation", nil, owner)
	assert.Equal(t, "Just now", decode(t, w)["lastCreated"])
}

func TestStoreUnavailableMapsTo503(t *testing.T) {
	a := setupTestAPI(t)
	require.NoError(t, a.store.DB().Close())

	w := a.do(t, http.MethodPost, "/api/links", ShortenRequest{OriginalURL: "https://example.com"}, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = a.do(t, http.MethodGet, "/abc", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = a.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DOWN", decode(t, w)["status"])
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedMessage string
	}{
		{"invalid input", apperrors.InvalidInput("bad"), http.StatusBadRequest, "bad"},
		{"unauthorized", apperrors.Unauthorized("who"), http.StatusUnauthorized, "who"},
		{"not found", apperrors.NotFound("gone"), http.StatusNotFound, "gone"},
		{"duplicate", apperrors.DuplicateKey("taken", nil), http.StatusConflict, "taken"},
		{"exhausted", apperrors.AllocationExhausted("Failed to create a unique shortened URL"), http.StatusInternalServerError, "Failed to create a unique shortened URL"},
		{"store down", apperrors.StoreUnavailable("db", errors.New("conn refused")), http.StatusServiceUnavailable, "db"},
		{"untyped", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedMessage, decode(t, w)["error"])
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	a := setupTestAPI(t)
	a.do(t, http.MethodGet, "/health", nil, "")

	w := a.do(t, http.MethodGet, "/metrics", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func BenchmarkRedirectHandler(b *testing.B) {
	gin.SetMode(gin.TestMode)
	conn, err := db.Open("sqlite3", ":memory:")
	require.NoError(b, err)
	defer conn.Close()
	store := db.NewStore(conn)
	require.NoError(b, store.CreateShortLink(context.Background(), &db.ShortLink{ShortCode: "bench", OriginalURL: "https://example.com"}))

	tokens := auth.NewTokenManager("bench", time.Hour)
	h := NewHandler(store, nil, redirect.NewResolver(store, nil), nil, nil)
	router := SetupRouter(h, tokens)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bench", nil))
	}
}
