package admin

import (
	"strconv"
	"strings"

	"github.com/anoixa/image-admin/api/common"
	"github.com/anoixa/image-admin/internal/admin"
	"github.com/gin-gonic/gin"
)

// 列表页保留的查询参数，其余参数视为过滤条件
var reservedParams = map[string]bool{
	"q": true, "p": true, "page": true, "limit": true, "o": true, "all": true, "lang": true,
}

// parseParams 解析列表页查询参数
func parseParams(c *gin.Context) admin.Params {
	params := admin.Params{
		Query:    strings.TrimSpace(c.Query("q")),
		Ordering: c.Query("o"),
		Filters:  map[string]string{},
	}
	page := c.Query("page")
	if page == "" {
		page = c.Query("p")
	}
	params.Page, _ = strconv.Atoi(page)
	params.Limit, _ = strconv.Atoi(c.Query("limit"))
	if _, ok := c.GetQuery("all"); ok {
		params.ShowAll = true
	}
	for key, values := range c.Request.URL.Query() {
		if reservedParams[key] || len(values) == 0 {
			continue
		}
		params.Filters[key] = values[0]
	}
	return params
}

// Index 站点首页：已注册模型及当前用户的权限
// @Summary      Admin index
// @Tags         admin
// @Produce      json
// @Success      200  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/admin [get]
func (h *Handler) Index(c *gin.Context) {
	entries, err := h.site.Index(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	common.RespondSuccess(c, entries)
}

// Changelist 列表页
// @Summary      Model changelist
// @Tags         admin
// @Produce      json
// @Param        model  path   string  true   "model name"
// @Param        q      query  string  false  "search terms"
// @Param        page   query  int     false  "page number"
// @Param        limit  query  int     false  "rows per page"
// @Param        o      query  string  false  "ordering, e.g. -id,email"
// @Success      200    {object}  common.Response
// @Failure      403    {object}  common.Response
// @Failure      404    {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/admin/{model} [get]
func (h *Handler) Changelist(c *gin.Context) {
	reg, ok := h.registration(c)
	if !ok {
		return
	}

	cl, err := reg.Changelist(c.Request.Context(), currentUser(c), parseParams(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	plural := reg.Meta().VerboseNamePlural
	for i, a := range cl.Actions {
		cl.Actions[i].Description = common.T(c, a.DescriptionID, map[string]interface{}{"Model": plural}, a.Description)
	}
	common.RespondSuccess(c, cl)
}
