package admin

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/anoixa/image-admin/api/common"
	"github.com/anoixa/image-admin/api/middleware"
	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/database/repo/accounts"
	"github.com/anoixa/image-admin/internal/admin"
	"github.com/anoixa/image-admin/internal/auth/password"
	"github.com/anoixa/image-admin/internal/forms"
	"github.com/anoixa/image-admin/internal/preview"
	"github.com/anoixa/image-admin/storage"
	"github.com/anoixa/image-admin/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler 后台 JSON 接口
type Handler struct {
	site     *admin.Site
	accounts *accounts.Repository
	policy   *password.Policy
	preview  *preview.Service
}

// NewHandler 创建后台处理器，previewSvc 可为空
func NewHandler(site *admin.Site, policy *password.Policy, previewSvc *preview.Service) *Handler {
	if policy == nil {
		policy = password.DefaultPolicy()
	}
	return &Handler{
		site:     site,
		accounts: accounts.NewRepository(site.DB()),
		policy:   policy,
		preview:  previewSvc,
	}
}

// registration 解析 :model 参数
func (h *Handler) registration(c *gin.Context) (admin.Registration, bool) {
	reg, err := h.site.Get(c.Param("model"))
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return reg, true
}

// objectID 解析 :id 参数
func objectID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		common.RespondError(c, http.StatusBadRequest, "Invalid object ID format")
		return 0, false
	}
	return uint(id), true
}

// bindData 读取 JSON 请求体
func bindData(c *gin.Context) (map[string]interface{}, bool) {
	data := map[string]interface{}{}
	if c.Request.ContentLength == 0 {
		return data, true
	}
	if err := c.ShouldBindJSON(&data); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid JSON format: "+err.Error())
		return nil, false
	}
	return data, true
}

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

// respondError 将后台错误映射为 HTTP 状态码
func (h *Handler) respondError(c *gin.Context, err error) {
	if errs, ok := forms.AsErrors(err); ok {
		common.RespondFormErrors(c, errs)
		return
	}

	switch {
	case errors.Is(err, admin.ErrUnknownModel),
		errors.Is(err, admin.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, storage.ErrNotFound):
		common.RespondError(c, http.StatusNotFound, common.T(c, "error.not_found", nil, "Not found."))
	case errors.Is(err, admin.ErrPermissionDenied):
		common.RespondError(c, http.StatusForbidden,
			common.T(c, "auth.forbidden", nil, "You do not have permission to perform this action."))
	case errors.Is(err, admin.ErrUnknownAction):
		common.RespondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, preview.ErrExternal):
		common.RespondError(c, http.StatusConflict, "Image is not stored by this service")
	case errors.Is(err, preview.ErrUnsupported):
		common.RespondError(c, http.StatusUnsupportedMediaType, "Unsupported image format")
	case errors.Is(err, context.Canceled) || utils.IsClientDisconnect(err):
		c.Abort()
	default:
		log.Printf("[Admin] %s %s failed: %s", c.Request.Method, c.FullPath(), utils.SanitizeLogMessage(err.Error()))
		common.RespondError(c, http.StatusInternalServerError, common.T(c, "error.internal", nil, "Internal server error."))
	}
}
