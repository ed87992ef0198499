package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"maiblog/internal/auth"
	"maiblog/internal/config"
	"maiblog/internal/content"
	"maiblog/internal/db"
	"maiblog/internal/errors"
	"maiblog/internal/handler"
	"maiblog/internal/model"
	"maiblog/internal/repository"
	"maiblog/internal/service"
)

const testSecret = "router-test-secret"

type testApp struct {
	e       *echo.Echo
	db      *gorm.DB
	store   *content.FSStore
	authSvc service.AuthService
	codec   *auth.TokenCodec
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gormDB, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))

	userRepo := repository.NewUserRepository(gormDB)
	postRepo := repository.NewPostRepository(gormDB)
	codec := auth.NewTokenCodec(testSecret, 60)
	resolver := auth.NewResolver(codec, userRepo, nil)
	store := content.NewFSStore(t.TempDir())

	authSvc := service.NewAuthService(userRepo, auth.NewHasher(testSecret), codec, nil, nil)
	postSvc := service.NewPostService(postRepo, store, auth.NewGate(nil), nil, nil)

	e := echo.New()
	cfg := &config.Config{CORSOrigins: []string{"http://localhost:5173"}}
	Register(e, cfg, zap.NewNop(), resolver, handler.NewAuthHandler(authSvc), handler.NewPostHandler(postSvc))

	return &testApp{e: e, db: gormDB, store: store, authSvc: authSvc, codec: codec}
}

func (a *testApp) do(t *testing.T, method, path, authorization string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) register(t *testing.T, email string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": email, "password": "password123"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp handler.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return "Bearer " + resp.AccessToken
}

func (a *testApp) admin(t *testing.T) string {
	t.Helper()
	user, err := a.authSvc.CreateUser(context.Background(), "admin@example.com", "adminpass", model.RoleAdmin)
	require.NoError(t, err)
	token, _, err := a.codec.Encode(fmt.Sprintf("%d", user.ID))
	require.NoError(t, err)
	return "Bearer " + token
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Code
}

func (a *testApp) seedPost(t *testing.T, slug, visibility string) uint {
	t.Helper()
	s := slug
	post := &model.Post{Title: slug, ContentPath: slug + ".md", Slug: &s, Visibility: visibility}
	require.NoError(t, a.db.Create(post).Error)
	require.NoError(t, a.store.Write(context.Background(), post.ContentPath, "# "+slug))
	return post.ID
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)

	token := app.register(t, "reader@example.com")

	rec := app.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "reader@example.com", "password": "password123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EMAIL_ALREADY_REGISTERED", errorCode(t, rec))

	rec = app.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "not-an-email", "password": "password123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))

	wrongPassword := app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "reader@example.com", "password": "nope"})
	unknownEmail := app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ghost@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())

	rec = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "reader@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login handler.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.Equal(t, "bearer", login.TokenType)
	assert.Equal(t, model.RoleUser, login.User.Role)

	rec = app.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me handler.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "reader@example.com", me.Email)
	assert.False(t, me.MembershipActive)

	rec = app.do(t, http.MethodPost, "/api/auth/upgrade", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, model.RoleMember, me.Role)
	assert.True(t, me.MembershipActive)
	assert.NotNil(t, me.MembershipExpiresAt)
}

func TestRequiredIdentityErrors(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "gone@example.com")
	expired, _, err := auth.NewTokenCodec(testSecret, -5).Encode("1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"no header", "", "UNAUTHENTICATED"},
		{"basic scheme", "Basic dXNlcjpwYXNz", "UNSUPPORTED_CREDENTIAL_TYPE"},
		{"garbage token", "Bearer not.a.token", "TOKEN_INVALID"},
		{"expired token", "Bearer " + expired, "TOKEN_EXPIRED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodGet, "/api/auth/me", tt.header, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}

	require.NoError(t, app.db.Where("email = ?", "gone@example.com").Delete(&model.User{}).Error)
	rec := app.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "IDENTITY_NOT_FOUND", errorCode(t, rec))
}

func TestPostVisibility(t *testing.T) {
	app := newTestApp(t)
	publicID := app.seedPost(t, "open", model.VisibilityPublic)
	registeredID := app.seedPost(t, "signed-in", model.VisibilityRegistered)
	memberID := app.seedPost(t, "paid", model.VisibilityMember)
	reader := app.register(t, "reader@example.com")

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"public anonymous", fmt.Sprintf("/api/posts/%d", publicID), "", http.StatusOK, ""},
		{"public with broken token", fmt.Sprintf("/api/posts/%d", publicID), "Bearer junk", http.StatusOK, ""},
		{"registered anonymous", fmt.Sprintf("/api/posts/%d", registeredID), "", http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"registered reader", fmt.Sprintf("/api/posts/%d", registeredID), reader, http.StatusOK, ""},
		{"member anonymous", fmt.Sprintf("/api/posts/%d", memberID), "", http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"member reader", fmt.Sprintf("/api/posts/%d", memberID), reader, http.StatusForbidden, "MEMBERSHIP_REQUIRED"},
		{"slug lookup", "/api/posts/slug/signed-in", reader, http.StatusOK, ""},
		{"unknown slug", "/api/posts/slug/nope", reader, http.StatusNotFound, "POST_NOT_FOUND"},
		{"bad id", "/api/posts/abc", "", http.StatusBadRequest, "INVALID_ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodGet, tt.path, tt.header, nil)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, rec))
				assert.NotContains(t, rec.Body.String(), `"content"`)
			} else {
				var detail handler.PostDetailResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
				assert.Equal(t, "# "+detail.Title, detail.Content)
			}
		})
	}

	rec := app.do(t, http.MethodPost, "/api/auth/upgrade", reader, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = app.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", memberID), reader, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []handler.PostSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 3)
	assert.NotContains(t, rec.Body.String(), "content_path")
}

func TestAdminPosts(t *testing.T) {
	app := newTestApp(t)
	reader := app.register(t, "reader@example.com")
	admin := app.admin(t)

	payload := map[string]interface{}{
		"title":      "Launch",
		"slug":       "launch",
		"content":    "# Launch\n\nWe are live.",
		"tags":       "news, launch",
		"visibility": "public",
	}

	rec := app.do(t, http.MethodPost, "/api/admin/posts", reader, payload)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "ADMIN_REQUIRED", errorCode(t, rec))

	rec = app.do(t, http.MethodPost, "/api/admin/posts", "", payload)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/admin/posts", admin, payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created handler.PostSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, []string{"news", "launch"}, created.Tags)

	rec = app.do(t, http.MethodPost, "/api/admin/posts", admin, payload)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SLUG_TAKEN", errorCode(t, rec))

	rec = app.do(t, http.MethodPost, "/api/admin/posts", admin, map[string]interface{}{"title": "x", "content_path": "x.md", "visibility": "vip"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	path := fmt.Sprintf("/api/admin/posts/%d", created.ID)
	rec = app.do(t, http.MethodPatch, path, admin, map[string]interface{}{"tags": []string{"release"}, "visibility": "member"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated handler.PostSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, []string{"release"}, updated.Tags)
	assert.Equal(t, model.VisibilityMember, updated.Visibility)
	assert.Equal(t, "Launch", updated.Title)

	rec = app.do(t, http.MethodGet, "/api/posts/slug/launch", reader, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(t, http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndCORS(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5173")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec = httptest.NewRecorder()
	app.e.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
