package admin

import (
	"context"
	"net/http"

	"github.com/anoixa/image-admin/api/common"
	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/internal/admin"
	"github.com/anoixa/image-admin/internal/coreadmin"
	"github.com/anoixa/image-admin/internal/forms"
	"github.com/gin-gonic/gin"
)

type passwordFormView struct {
	ID        uint     `json:"id"`
	Object    string   `json:"object"`
	Fields    []string `json:"fields"`
	HelpTexts []string `json:"help_texts"`
}

// passwordTarget 校验 change_user 权限并加载目标用户
func (h *Handler) passwordTarget(c *gin.Context) (*models.User, bool) {
	if c.Param("model") != coreadmin.UserModel {
		h.respondError(c, admin.ErrUnknownModel)
		return nil, false
	}
	id, ok := objectID(c)
	if !ok {
		return nil, false
	}
	ctx := c.Request.Context()
	allowed, err := h.site.HasPermission(ctx, currentUser(c), models.PermChange, coreadmin.UserModel)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	if !allowed {
		h.respondError(c, admin.ErrPermissionDenied)
		return nil, false
	}
	user, err := h.accounts.GetUserByID(ctx, id)
	if err == nil && user == nil {
		err = admin.ErrNotFound
	}
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return user, true
}

// PasswordForm 修改密码页
// @Summary      Set password form
// @Tags         admin
// @Produce      json
// @Param        id  path  int  true  "user id"
// @Success      200  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/admin/user/{id}/password [get]
func (h *Handler) PasswordForm(c *gin.Context) {
	user, ok := h.passwordTarget(c)
	if !ok {
		return
	}
	common.RespondSuccess(c, passwordFormView{
		ID:        user.ID,
		Object:    user.Email,
		Fields:    []string{"password1", "password2"},
		HelpTexts: h.policy.HelpTexts(),
	})
}

// SetPassword 为用户设置新密码
// @Summary      Set password
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id       path  int     true  "user id"
// @Param        request  body  object  true  "password1 and password2"
// @Success      200      {object}  common.Response
// @Failure      400      {object}  common.Response  "Validation errors"
// @Security     BearerAuth
// @Router       /v1/admin/user/{id}/password [post]
func (h *Handler) SetPassword(c *gin.Context) {
	user, ok := h.passwordTarget(c)
	if !ok {
		return
	}
	data, ok := bindData(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	form := forms.NewSetPasswordForm(h.site.DB().DB(), h.policy, user)
	if err := form.Bind(ctx, data); err != nil {
		h.respondError(c, err)
		return
	}
	if _, err := form.Save(ctx, true); err != nil {
		h.respondError(c, err)
		return
	}
	h.site.Changed(context.WithoutCancel(ctx), coreadmin.UserModel)

	messages := &admin.Messages{}
	messages.Add(admin.LevelSuccess, "admin.password_changed", "Password changed successfully.", nil)
	common.RespondMessages(c, http.StatusOK, &admin.Result{ID: user.ID, Object: user.Email}, messages.Items())
}
