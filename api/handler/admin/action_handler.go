package admin

import (
	"net/http"

	"github.com/anoixa/image-admin/api/common"
	"github.com/anoixa/image-admin/internal/admin"
	"github.com/gin-gonic/gin"
)

type actionRequest struct {
	IDs          []uint `json:"ids"`
	SelectAcross bool   `json:"select_across"`
}

// RunAction 执行批量操作，select_across 时作用于当前查询参数过滤后的全部对象
// @Summary      Run bulk action
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        model    path  string         true  "model name"
// @Param        action   path  string         true  "action name"
// @Param        request  body  actionRequest  true  "selection"
// @Success      200      {object}  common.Response
// @Failure      400      {object}  common.Response  "Unknown action"
// @Failure      403      {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/admin/{model}/actions/{action} [post]
func (h *Handler) RunAction(c *gin.Context) {
	reg, ok := h.registration(c)
	if !ok {
		return
	}

	var req actionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.RespondError(c, http.StatusBadRequest, "Invalid JSON format: "+err.Error())
			return
		}
	}

	sel := admin.Selection{IDs: req.IDs, SelectAcross: req.SelectAcross, Params: parseParams(c)}
	result, err := reg.RunAction(c.Request.Context(), currentUser(c), c.Param("action"), sel)
	if err != nil {
		h.respondError(c, err)
		return
	}
	common.RespondMessages(c, http.StatusOK, result, result.Messages)
}
