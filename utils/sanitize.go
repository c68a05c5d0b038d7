package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// StrictPolicy 去除全部 HTML
var StrictPolicy = bluemonday.StrictPolicy()

// StripHTML 去掉标签后返回纯文本
func StripHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(StrictPolicy.Sanitize(s)))
}
