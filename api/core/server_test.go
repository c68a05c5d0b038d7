package core

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anoixa/image-admin/api/middleware"
	"github.com/anoixa/image-admin/database/dbtest"
	"github.com/anoixa/image-admin/database/repo/accounts"
	"github.com/anoixa/image-admin/internal/admin"
	"github.com/anoixa/image-admin/internal/auth"
	"github.com/anoixa/image-admin/internal/coreadmin"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticHealth map[string]string

func (h staticHealth) Health(context.Context) map[string]string { return h }

func newTestRouter(t *testing.T, health HealthChecker) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := dbtest.Provider(t)
	dbtest.CreateUser(t, provider.DB(), "root@example.com", "correct horse battery", dbtest.Superuser)

	repo := accounts.NewRepository(provider)
	site := admin.NewSite(provider, repo, admin.SiteOptions{})
	require.NoError(t, coreadmin.Register(site, coreadmin.Deps{DB: provider}))

	jwtService, err := auth.NewJWTServiceWithConfig(auth.TokenConfig{Secret: []byte(strings.Repeat("k", 32)), ExpiresIn: time.Hour})
	require.NoError(t, err)

	router := gin.New()
	RegisterRoutes(router, &RouterDependencies{
		Site:           site,
		LoginService:   auth.NewLoginService(repo, jwtService),
		Health:         health,
		PreviewLimiter: middleware.NewConcurrencyLimiter(1),
		ServerVersion:  ServerVersion{Version: "test", CommitHash: "abc"},
		EnableSwagger:  true,
	})
	return router
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		checks staticHealth
		want   int
		status string
	}{
		{"all ok", staticHealth{"database": "ok", "cache": "ok"}, http.StatusOK, "ok"},
		{"database down", staticHealth{"database": "connection refused"}, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, tt.checks)
			req, _ := http.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body["status"])
		})
	}
}

func TestBasicRoutes(t *testing.T) {
	router := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"commit":"abc"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "request_count")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/v1/admin/{model}")
}

func TestAdminFlow(t *testing.T) {
	router := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	body, _ := json.Marshal(map[string]string{"email": "root@example.com", "password": "correct horse battery"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var login struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	token := login.Data.AccessToken

	call := func(method, target, payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(payload))
		req.Header.Set("Authorization", token)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, call(http.MethodGet, "/api/auth/me", "").Code)
	assert.Equal(t, http.StatusOK, call(http.MethodGet, "/api/v1/admin", "").Code)
	assert.Equal(t, http.StatusOK, call(http.MethodGet, "/api/v1/admin/label/add", "").Code)

	w = call(http.MethodPost, "/api/v1/admin/label", `{"slug":"cats"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data admin.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.Data.ID
	require.NotZero(t, id)

	w = call(http.MethodPost, "/api/v1/admin/label", `{"slug":"Not A Slug"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_slug")

	path := "/api/v1/admin/label/" + jsonID(id)
	assert.Equal(t, http.StatusOK, call(http.MethodGet, path, "").Code)
	assert.Equal(t, http.StatusOK, call(http.MethodPut, path, `{"slug":"dogs"}`).Code)
	assert.Contains(t, call(http.MethodGet, "/api/v1/admin/label?q=dogs", "").Body.String(), `"result_count":1`)
	assert.Equal(t, http.StatusOK, call(http.MethodDelete, path, "").Code)
	assert.Equal(t, http.StatusNotFound, call(http.MethodGet, path, "").Code)

	w = call(http.MethodPost, "/api/v1/admin/label/actions/delete_selected", `{"select_across":true}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"level":"warning"`)

	assert.Equal(t, http.StatusNotFound, call(http.MethodGet, "/api/v1/admin/label/1/preview", "").Code)
}

func jsonID(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
