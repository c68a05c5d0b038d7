package admin

import (
	"net/http"

	"github.com/anoixa/image-admin/api/common"
	"github.com/gin-gonic/gin"
)

// AddView 新建页布局
// @Summary      Add form layout
// @Tags         admin
// @Produce      json
// @Param        model  path  string  true  "model name"
// @Success      200    {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/admin/{model}/add [get]
func (h *Handler) AddView(c *gin.Context) {
	reg, ok := h.registration(c)
	if !ok {
		return
	}
	view, err := reg.AddView(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	common.RespondSuccess(c, view)
}

// Create 新建对象
// @Summary      Create object
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        model    path  string  true  "model name"
// @Param        request  body  object  true  "form data"
// @Success      201      {object}  common.Response
// @Failure      400      {object}  common.Response  "Validation errors"
// @Security     BearerAuth
// @Router       /v1/admin/{model} [post]
func (h *Handler) Create(c *gin.Context) {
	reg, ok := h.registration(c)
	if !ok {
		return
	}
	data, ok := bindData(c)
	if !ok {
		return
	}
	result, err := reg.Create(c.Request.Context(), currentUser(c), data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	common.RespondMessages(c, http.StatusCreated, result, result.Messages)
}

// Detail 修改页
// @Summary      Change form
// @Tags         admin
// @Produce      json
// @Param        model  path  string  true  "model name"
// @Param        id     path  int     true  "object id"
// @Success      200    {object}  common.Response
// @Failure      404    {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/admin/{model}/{id} [get]
func (h *Handler) Detail(c *gin.Context) {
	reg, ok := h.registration(c)
	if !ok {
		return
	}
	id, ok := objectID(c)
	if !ok {
		return
	}
	view, err := reg.Detail(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	common.RespondSuccess(c, view)
}

// Update 保存修改，包括内联表格
// @Summary      Update object
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        model    path  string  true  "model name"
// @Param        id       path  int     true  "object id"
// @Param        request  body  object  true  "form data"
// @Success      200      {object}  common.Response
// @Failure      400      {object}  common.Response  "Validation errors"
// @Security     BearerAuth
// @Router       /v1/admin/{model}/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	reg, ok := h.registration(c)
	if !ok {
		return
	}
	id, ok := objectID(c)
	if !ok {
		return
	}
	data, ok := bindData(c)
	if !ok {
		return
	}
	result, err := reg.Update(c.Request.Context(), currentUser(c), id, data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	common.RespondMessages(c, http.StatusOK, result, result.Messages)
}

// Delete 删除对象
// @Summary      Delete object
// @Tags         admin
// @Produce      json
// @Param        model  path  string  true  "model name"
// @Param        id     path  int     true  "object id"
// @Success      200    {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/admin/{model}/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	reg, ok := h.registration(c)
	if !ok {
		return
	}
	id, ok := objectID(c)
	if !ok {
		return
	}
	result, err := reg.Delete(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	common.RespondMessages(c, http.StatusOK, result, result.Messages)
}
