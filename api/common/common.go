package common

import (
	"net/http"

	"github.com/anoixa/image-admin/internal/admin"
	"github.com/anoixa/image-admin/internal/forms"
	"github.com/anoixa/image-admin/utils/i18n"
	"github.com/gin-gonic/gin"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
)

// LocalizerKey Locale 中间件写入的上下文键
const LocalizerKey = "localizer"

// Message 已本地化的操作员提示
type Message struct {
	Level admin.Level `json:"level"`
	Text  string      `json:"text"`
}

// FieldError 已本地化的字段错误
type FieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Response struct {
	Status   string                  `json:"status"`
	Msg      string                  `json:"msg"`
	Data     interface{}             `json:"data,omitempty"`
	Messages []Message               `json:"messages,omitempty"`
	Errors   map[string][]FieldError `json:"errors,omitempty"`
}

func Respond(c *gin.Context, httpStatus int, status string, message string, data interface{}) {
	c.JSON(httpStatus, Response{
		Status: status,
		Msg:    message,
		Data:   data,
	})
}

// RespondSuccess sends a success response with data.
func RespondSuccess(c *gin.Context, data interface{}) {
	Respond(c, http.StatusOK, "success", "", data)
}

// RespondSuccessMessage sends a success response with message and data.
func RespondSuccessMessage(c *gin.Context, message string, data interface{}) {
	Respond(c, http.StatusOK, "success", message, data)
}

// RespondMessages 成功响应并附带本地化后的操作员提示
func RespondMessages(c *gin.Context, httpStatus int, data interface{}, messages []admin.Message) {
	c.JSON(httpStatus, Response{
		Status:   "success",
		Data:     data,
		Messages: LocalizeMessages(c, messages),
	})
}

// RespondError sends an error response with message.
func RespondError(c *gin.Context, httpStatus int, message string) {
	Respond(c, httpStatus, "error", message, nil)
}

// RespondErrorAbort 返回错误并中止后续中间件
func RespondErrorAbort(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, Response{
		Status: "error",
		Msg:    message,
	})
}

// RespondFormErrors 表单校验失败，400
func RespondFormErrors(c *gin.Context, errs forms.Errors) {
	c.JSON(http.StatusBadRequest, Response{
		Status: "error",
		Msg:    T(c, "form.invalid_submission", nil, "Please correct the errors below."),
		Errors: LocalizeErrors(c, errs),
	})
}

// Localizer 取当前请求的本地化器，未设置时按 Accept-Language 生成
func Localizer(c *gin.Context) *goi18n.Localizer {
	if v, ok := c.Get(LocalizerKey); ok {
		if l, ok := v.(*goi18n.Localizer); ok {
			return l
		}
	}
	return i18n.Localizer(c.GetHeader("Accept-Language"))
}

// T 翻译单条文案
func T(c *gin.Context, id string, data map[string]interface{}, fallback string) string {
	if id == "" {
		return fallback
	}
	return i18n.Translate(Localizer(c), id, data, fallback)
}

// LocalizeMessages 翻译操作员提示
func LocalizeMessages(c *gin.Context, messages []admin.Message) []Message {
	if len(messages) == 0 {
		return nil
	}
	l := Localizer(c)
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		text := m.Text
		if m.ID != "" {
			text = i18n.Translate(l, m.ID, m.Data, m.Text)
		}
		out = append(out, Message{Level: m.Level, Text: text})
	}
	return out
}

// LocalizeErrors 翻译表单错误，键为 form.<code>
func LocalizeErrors(c *gin.Context, errs forms.Errors) map[string][]FieldError {
	l := Localizer(c)
	out := make(map[string][]FieldError, len(errs))
	for field, list := range errs {
		for _, e := range list {
			out[field] = append(out[field], FieldError{
				Code:    e.Code,
				Message: i18n.Translate(l, "form."+e.Code, e.Params, e.Message),
			})
		}
	}
	return out
}
