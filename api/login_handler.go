package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/anoixa/image-admin/api/common"
	"github.com/anoixa/image-admin/api/middleware"
	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/internal/auth"
	"github.com/anoixa/image-admin/utils"

	"github.com/gin-gonic/gin"
)

// LoginHandler 登录处理器
type LoginHandler struct {
	loginService *auth.LoginService
}

// NewLoginHandlerWithService 使用 LoginService 创建登录处理器
func NewLoginHandlerWithService(loginService *auth.LoginService) *LoginHandler {
	return &LoginHandler{
		loginService: loginService,
	}
}

type userAuthRequestBody struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,max=4096"`
}

type userResponse struct {
	ID          uint       `json:"id"`
	Email       string     `json:"email"`
	IsStaff     bool       `json:"is_staff"`
	IsSuperuser bool       `json:"is_superuser"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

type loginResponse struct {
	AccessToken       string       `json:"access_token"`
	AccessTokenExpiry int64        `json:"access_token_expiry"`
	User              userResponse `json:"user"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		LastLogin:   u.LastLogin,
	}
}

// LoginHandlerFunc 后台登录，仅启用的员工账号可以登录
// @Summary      Admin login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      userAuthRequestBody  true  "email and password"
// @Success      200      {object}  common.Response
// @Failure      400      {object}  common.Response  "Invalid request body"
// @Failure      401      {object}  common.Response  "Invalid credentials or inactive account"
// @Router       /auth/login [post]
func (h *LoginHandler) LoginHandlerFunc(context *gin.Context) {
	if h.loginService == nil {
		common.RespondError(context, http.StatusInternalServerError, "Login service not initialized")
		return
	}

	var req userAuthRequestBody
	if err := context.ShouldBindJSON(&req); err != nil {
		common.RespondError(context, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.loginService.Login(context.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			common.RespondError(context, http.StatusUnauthorized, common.T(context, "auth.invalid_credentials", nil,
				"Please enter the correct email and password for a staff account."))
		case errors.Is(err, auth.ErrInactive):
			common.RespondError(context, http.StatusUnauthorized, common.T(context, "auth.inactive", nil,
				"This account is inactive."))
		default:
			log.Printf("[Auth] Login failed for %s: %v", utils.SanitizeLogEmail(req.Email), err)
			common.RespondError(context, http.StatusInternalServerError, common.T(context, "error.internal", nil,
				"Internal server error."))
		}
		return
	}

	common.RespondSuccessMessage(context, "Login successful", loginResponse{
		AccessToken:       "Bearer " + result.AccessToken,
		AccessTokenExpiry: result.AccessTokenExpiry.Unix(),
		User:              newUserResponse(result.User),
	})
}

// MeHandlerFunc 当前登录用户
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *LoginHandler) MeHandlerFunc(context *gin.Context) {
	user := middleware.CurrentUser(context)
	if user == nil {
		common.RespondError(context, http.StatusUnauthorized, common.T(context, "auth.unauthorized", nil,
			"Authentication credentials were not provided or are invalid."))
		return
	}
	common.RespondSuccess(context, newUserResponse(user))
}
