package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anoixa/image-admin/api/common"
	"github.com/anoixa/image-admin/api/middleware"
	"github.com/anoixa/image-admin/database/dbtest"
	"github.com/anoixa/image-admin/database/repo/accounts"
	"github.com/anoixa/image-admin/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTest 初始化测试环境
func setupTest(t *testing.T) (*gin.Engine, *accounts.Repository) {
	gin.SetMode(gin.TestMode)

	provider := dbtest.Provider(t)
	db := provider.DB()
	dbtest.CreateUser(t, db, "staff@example.com", "correct horse battery", dbtest.Staff)
	dbtest.CreateUser(t, db, "plain@example.com", "correct horse battery")
	dbtest.CreateUser(t, db, "gone@example.com", "correct horse battery", dbtest.Staff, dbtest.Inactive)

	jwtService, err := auth.NewJWTServiceWithConfig(auth.TokenConfig{
		Secret:    []byte(strings.Repeat("k", 32)),
		ExpiresIn: 30 * time.Minute,
	})
	require.NoError(t, err)

	repo := accounts.NewRepository(provider)
	loginService := auth.NewLoginService(repo, jwtService)
	handler := NewLoginHandlerWithService(loginService)

	router := gin.New()
	router.Use(middleware.Locale())
	router.POST("/login", handler.LoginHandlerFunc)
	router.GET("/me", middleware.JWTAuth(loginService), handler.MeHandlerFunc)
	return router, repo
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch v := body.(type) {
	case string:
		buf.WriteString(v)
	default:
		_ = json.NewEncoder(&buf).Encode(v)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLoginHandler(t *testing.T) {
	router, _ := setupTest(t)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantMsg    string
	}{
		{"invalid json", "invalid json", http.StatusBadRequest, "Invalid request body"},
		{"missing password", map[string]string{"email": "staff@example.com"}, http.StatusBadRequest, "Invalid request body"},
		{"not an email", map[string]string{"email": "staff", "password": "x"}, http.StatusBadRequest, "Invalid request body"},
		{"wrong password", map[string]string{"email": "staff@example.com", "password": "nope"}, http.StatusUnauthorized,
			"Please enter the correct email and password for a staff account."},
		{"unknown user", map[string]string{"email": "who@example.com", "password": "nope"}, http.StatusUnauthorized,
			"Please enter the correct email and password for a staff account."},
		{"not staff", map[string]string{"email": "plain@example.com", "password": "correct horse battery"}, http.StatusUnauthorized,
			"Please enter the correct email and password for a staff account."},
		{"inactive", map[string]string{"email": "gone@example.com", "password": "correct horse battery"}, http.StatusUnauthorized,
			"This account is inactive."},
		{"success", map[string]string{"email": "STAFF@example.com", "password": "correct horse battery"}, http.StatusOK,
			"Login successful"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(router, "/login", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp common.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantMsg, resp.Msg)
		})
	}
}

func TestLoginThenMe(t *testing.T) {
	router, repo := setupTest(t)

	w := postJSON(router, "/login", map[string]string{"email": "staff@example.com", "password": "correct horse battery"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data loginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.Data.AccessToken, "Bearer "))
	assert.Greater(t, resp.Data.AccessTokenExpiry, time.Now().Unix())
	assert.Equal(t, "staff@example.com", resp.Data.User.Email)

	user, err := repo.GetUserByEmail(t.Context(), "staff@example.com")
	require.NoError(t, err)
	assert.NotNil(t, user.LastLogin, "last_login is updated")

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", resp.Data.AccessToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"staff@example.com"`)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginHandler_Localized(t *testing.T) {
	router, _ := setupTest(t)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]string{"email": "gone@example.com", "password": "correct horse battery"}))
	req := httptest.NewRequest(http.MethodPost, "/login", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Language", "zh-CN")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "该账号已停用。")
}
