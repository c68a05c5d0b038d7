package middleware

import (
	"github.com/anoixa/image-admin/api/common"
	"github.com/anoixa/image-admin/utils/i18n"
	"github.com/gin-gonic/gin"
)

// ContextLangKey 请求显式指定的语言
const ContextLangKey = "lang"

// Locale 解析请求语言：?lang= 优先，其次 Accept-Language，最后为默认语言
func Locale() gin.HandlerFunc {
	return func(c *gin.Context) {
		var prefs []string
		if lang := c.Query("lang"); lang != "" {
			prefs = append(prefs, lang)
			c.Set(ContextLangKey, lang)
		}
		if accept := c.GetHeader("Accept-Language"); accept != "" {
			prefs = append(prefs, accept)
		}

		c.Set(common.LocalizerKey, i18n.Localizer(prefs...))
		c.Next()
	}
}
