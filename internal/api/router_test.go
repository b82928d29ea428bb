package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/isdelr/folio-api/internal/api"
	"github.com/isdelr/folio-api/internal/auth"
	"github.com/isdelr/folio-api/internal/database"
	"github.com/isdelr/folio-api/internal/services"
	"github.com/isdelr/folio-api/internal/storage"
	"github.com/isdelr/folio-api/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const maxUpload = 64 << 10

// 1x1 transparent PNG.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

type testServer struct {
	handler   http.Handler
	tokens    *auth.TokenManager
	uploadDir string
	hub       *websocket.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	db, err := database.New(filepath.Join(dir, "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	uploadDir := filepath.Join(dir, "uploads")
	store, err := storage.NewLocalStorage(uploadDir, "uploads")
	require.NoError(t, err)

	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	tokens := auth.NewTokenManager([]byte("router-test-secret"), time.Hour)
	events := services.NewEventService(db, hub)
	users := services.NewUserService(db, hasher, "https://example.test/default.png")
	portfolio := services.NewPortfolioService(db, users, events)
	authService, err := services.NewAuthService(users, hasher, tokens, events)
	require.NoError(t, err)

	router := api.NewRouter(api.Deps{
		Auth:           authService,
		Users:          users,
		Portfolio:      portfolio,
		Events:         events,
		Verifier:       tokens,
		Storage:        store,
		Hub:            hub,
		UploadDir:      uploadDir,
		MaxUploadBytes: maxUpload,
		CORSOrigins:    []string{"*"},
	})
	return &testServer{handler: router, tokens: tokens, uploadDir: uploadDir, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// signup registers a user and returns the token and user ID.
func (s *testServer) signup(t *testing.T, email string) (string, string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"firstName": "Ann", "email": email, "password": "pw1", "confirmPassword": "pw1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	user := body["user"].(map[string]any)
	return body["token"].(string), user["_id"].(string)
}

func TestSignup(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"firstName": "Ann", "email": "a@x.com", "password": "pw1", "confirmPassword": "pw1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "password")

	body := decode(t, rec)
	assert.Equal(t, "Signup successful", body["message"])
	token := body["token"].(string)
	user := body["user"].(map[string]any)
	userID, err := s.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user["_id"], userID)
	assert.Equal(t, "Ann", user["firstName"])
	assert.Equal(t, "https://example.test/default.png", user["profileImage"])
}

func TestSignupRejections(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "taken@x.com")

	tests := []struct {
		name    string
		body    any
		message string
	}{
		{"mismatch", map[string]string{"firstName": "A", "email": "b@x.com", "password": "p", "confirmPassword": "q"}, "Passwords do not match"},
		{"missing field", map[string]string{"firstName": "A", "email": "b@x.com", "password": "p"}, "All fields are required."},
		{"bad email", map[string]string{"firstName": "A", "email": "nope", "password": "p", "confirmPassword": "p"}, "email must be a valid email address"},
		{"duplicate", map[string]string{"firstName": "A", "email": "taken@x.com", "password": "p", "confirmPassword": "p"}, "User already exists"},
		{"malformed", "{not json", "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/auth/signup", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, decode(t, rec)["message"])
		})
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	t1, userID := s.signup(t, "a@x.com")

	rec := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "pw1"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Login successful", body["message"])
	t2 := body["token"].(string)
	assert.NotEqual(t, t1, t2)
	assert.Equal(t, userID, body["user"].(map[string]any)["_id"])

	// Both sessions stay valid.
	for _, tok := range []string{t1, t2} {
		rec := s.do(t, http.MethodGet, "/api/user/profile", tok, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "a@x.com")

	wrong := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "bad"})
	unknown := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "b@x.com", "password": "pw1"})
	empty := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com"})

	for _, rec := range []*httptest.ResponseRecorder{wrong, unknown, empty} {
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid credentials", decode(t, rec)["message"])
	}
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/user/profile"},
		{http.MethodPut, "/api/user/update"},
		{http.MethodPost, "/api/user/uploadProfileImage"},
		{http.MethodGet, "/api/user/activity"},
		{http.MethodPost, "/api/portfolio/add"},
		{http.MethodGet, "/api/portfolio/user/abc"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := s.do(t, rt.method, rt.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Authentication token missing", decode(t, rec)["message"])

			rec = s.do(t, rt.method, rt.path, "garbage", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Invalid or expired token", decode(t, rec)["message"])
		})
	}
}

func TestExpiredTokenIsRejected(t *testing.T) {
	s := newTestServer(t)
	_, userID := s.signup(t, "a@x.com")

	past := auth.NewTokenManager([]byte("router-test-secret"), time.Hour,
		auth.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
	stale, err := past.Issue(userID)
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/user/profile", stale, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfile(t *testing.T) {
	s := newTestServer(t)
	token, userID := s.signup(t, "a@x.com")

	rec := s.do(t, http.MethodGet, "/api/user/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, userID, user["_id"])
	assert.Equal(t, "a@x.com", user["email"])
}

func TestProfileForDeletedUser(t *testing.T) {
	s := newTestServer(t)
	ghost, err := s.tokens.Issue("no-such-user")
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/user/profile", ghost, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decode(t, rec)["message"])
}

func TestUpdate(t *testing.T) {
	s := newTestServer(t)
	token, userID := s.signup(t, "a@x.com")
	_, otherID := s.signup(t, "b@x.com")

	// A userId in the body does not redirect the update.
	rec := s.do(t, http.MethodPut, "/api/user/update", token, map[string]string{
		"userId": otherID, "firstName": "Annie",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, userID, body["_id"])
	assert.Equal(t, "Annie", body["firstName"])
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(t, http.MethodPut, "/api/user/update", token, map[string]string{"password": "pw2"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "pw2"})
	assert.Equal(t, http.StatusOK, login.Code)
	login = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "pw1"})
	assert.Equal(t, http.StatusBadRequest, login.Code)

	rec = s.do(t, http.MethodPut, "/api/user/update", token, map[string]string{"email": "b@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email is already in use", decode(t, rec)["message"])

	rec = s.do(t, http.MethodPut, "/api/user/update", token, map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (s *testServer) upload(t *testing.T, token, field, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, field, filename, data)
	req := httptest.NewRequest(http.MethodPost, "/api/user/uploadProfileImage", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestUploadProfileImage(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup(t, "a@x.com")

	rec := s.upload(t, token, "profileImage", "me.png", pngBytes)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Profile image updated successfully", body["message"])
	path := body["profileImage"].(string)
	assert.True(t, strings.HasPrefix(path, "uploads/"), path)
	assert.True(t, strings.HasSuffix(path, ".png"), path)

	stored, err := os.ReadFile(filepath.Join(s.uploadDir, strings.TrimPrefix(path, "uploads/")))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)

	profile := decode(t, s.do(t, http.MethodGet, "/api/user/profile", token, nil))
	assert.Equal(t, path, profile["user"].(map[string]any)["profileImage"])

	// The stored file is served back.
	served := s.do(t, http.MethodGet, "/"+path, "", nil)
	assert.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, "image/png", served.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, served.Body.Bytes())
}

func TestUploadProfileImageIgnoresClientExtension(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup(t, "a@x.com")

	rec := s.upload(t, token, "profileImage", "evil.html", pngBytes)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	path := decode(t, rec)["profileImage"].(string)
	assert.Equal(t, ".png", filepath.Ext(path))
}

func TestUploadProfileImageRejections(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup(t, "a@x.com")

	tests := []struct {
		name    string
		field   string
		data    []byte
		message string
	}{
		{"no file", "", nil, "No image uploaded"},
		{"wrong field", "avatar", pngBytes, "No image uploaded"},
		{"not an image", "profileImage", []byte("hello, world"), "Only image uploads are allowed"},
		{"too large", "profileImage", append(append([]byte{}, pngBytes...), make([]byte, maxUpload)...), "Image is too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.upload(t, token, tt.field, "f.png", tt.data)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, decode(t, rec)["message"])
		})
	}

	entries, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPortfolio(t *testing.T) {
	s := newTestServer(t)
	token, userID := s.signup(t, "a@x.com")
	_, otherID := s.signup(t, "b@x.com")

	rec := s.do(t, http.MethodPost, "/api/portfolio/add", token, map[string]any{
		"userId":       otherID,
		"title":        "Site",
		"description":  "A site",
		"technologies": "Go, React ,",
		"githubLink":   "https://github.com/a/site",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decode(t, rec)
	assert.Equal(t, userID, item["user"])
	assert.Equal(t, []any{"Go", "React"}, item["technologies"])
	assert.NotContains(t, item, "demoLink")

	rec = s.do(t, http.MethodPost, "/api/portfolio/add", token, map[string]any{
		"title": "CLI", "description": "d", "technologies": []string{"Go"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/portfolio/user/"+userID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 2)

	rec = s.do(t, http.MethodGet, "/api/portfolio/user/"+otherID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestPortfolioValidation(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup(t, "a@x.com")

	tests := []struct {
		name    string
		body    map[string]any
		message string
	}{
		{"missing title", map[string]any{"description": "d", "technologies": []string{"Go"}}, "All fields are required."},
		{"empty technologies", map[string]any{"title": "t", "description": "d", "technologies": []string{}}, "All fields are required."},
		{"blank technologies string", map[string]any{"title": "t", "description": "d", "technologies": " , "}, "All fields are required."},
		{"bad link", map[string]any{"title": "t", "description": "d", "technologies": []string{"Go"}, "demoLink": "not a url"}, "demoLink must be a valid URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/portfolio/add", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, decode(t, rec)["message"])
		})
	}
}

func TestActivity(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup(t, "a@x.com")
	s.do(t, http.MethodPut, "/api/user/update", token, map[string]string{"firstName": "Annie"})

	rec := s.do(t, http.MethodGet, "/api/user/activity?limit=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)

	rec = s.do(t, http.MethodGet, "/api/user/activity", token, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	assert.Len(t, events, 2)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestActivityWebSocket(t *testing.T) {
	s := newTestServer(t)
	token, userID := s.signup(t, "a@x.com")

	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/activity"
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, resp, err := gorillaws.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var welcome websocket.Message
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, "subscribed", welcome.Action)

	rec := s.do(t, http.MethodPut, "/api/user/update", token, map[string]string{"firstName": "Annie"})
	require.Equal(t, http.StatusOK, rec.Code)

	var pushed struct {
		Action  string         `json:"action"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&pushed))
	assert.Equal(t, "event", pushed.Action)
	assert.Equal(t, userID, pushed.Payload["userId"])
	assert.Equal(t, "user.update", pushed.Payload["type"])
}

func TestActivityWebSocketRequiresToken(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/activity"
	_, resp, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
