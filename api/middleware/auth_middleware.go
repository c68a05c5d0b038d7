package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/anoixa/image-admin/api/common"
	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/internal/auth"
	"github.com/gin-gonic/gin"
)

const (
	ContextUserKey   = "user"
	ContextUserIDKey = "user_id"
	ContextEmailKey  = "email"
)

// Authenticator 由访问令牌解析出后台用户
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// JWTAuth Bearer 令牌认证，只放行可以进入后台的用户
func JWTAuth(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			common.RespondErrorAbort(c, http.StatusUnauthorized,
				common.T(c, "auth.unauthorized", nil, "Authentication credentials were not provided or are invalid."))
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			common.RespondErrorAbort(c, http.StatusBadRequest, "Authorization field format error")
			return
		}

		user, err := authenticator.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthorized) {
				log.Printf("[Auth] Failed to authenticate request: %v", err)
			}
			common.RespondErrorAbort(c, http.StatusUnauthorized,
				common.T(c, "auth.unauthorized", nil, "Authentication credentials were not provided or are invalid."))
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextUserIDKey, user.ID)
		c.Set(ContextEmailKey, user.Email)
		c.Next()
	}
}

// CurrentUser 当前登录的后台用户
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
