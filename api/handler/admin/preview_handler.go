package admin

import (
	"net/http"

	"github.com/anoixa/image-admin/api/common"
	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/internal/admin"
	"github.com/anoixa/image-admin/internal/coreadmin"
	"github.com/anoixa/image-admin/internal/preview"
	"github.com/gin-gonic/gin"
)

// Preview 返回图片缩略图
// @Summary      Image preview
// @Tags         admin
// @Produce      png
// @Param        id  path  int  true  "image id"
// @Success      200
// @Failure      404  {object}  common.Response
// @Failure      409  {object}  common.Response  "Image is hosted elsewhere"
// @Security     BearerAuth
// @Router       /v1/admin/image/{id}/preview [get]
func (h *Handler) Preview(c *gin.Context) {
	if h.preview == nil {
		common.RespondError(c, http.StatusServiceUnavailable, "Preview service not initialized")
		return
	}
	if c.Param("model") != coreadmin.ImageModel {
		h.respondError(c, admin.ErrUnknownModel)
		return
	}
	id, ok := objectID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	allowed, err := h.site.HasPermission(ctx, currentUser(c), models.PermView, coreadmin.ImageModel)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !allowed {
		h.respondError(c, admin.ErrPermissionDenied)
		return
	}

	data, err := h.preview.Thumbnail(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, preview.ContentType, data)
}
