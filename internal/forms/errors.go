// Package forms 后台表单：解码、校验与保存
package forms

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// NonFieldErrors 非字段错误的键
const NonFieldErrors = "__all__"

// 错误代码
const (
	CodeRequired         = "required"
	CodeInvalid          = "invalid"
	CodeInvalidEmail     = "invalid_email"
	CodeInvalidSlug      = "invalid_slug"
	CodeMaxLength        = "max_length"
	CodeUnique           = "unique"
	CodeInvalidChoice    = "invalid_choice"
	CodeDuplicate        = "duplicate"
	CodePasswordMismatch = "password_mismatch"
)

// Error 单条字段错误
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Params  map[string]interface{} `json:"-"`
}

// Errors 字段名到错误列表
type Errors map[string][]Error

// Add 追加错误
func (e Errors) Add(field, code, message string, params map[string]interface{}) {
	e[field] = append(e[field], Error{Code: code, Message: message, Params: params})
}

// Merge 合并另一组错误，prefix 非空时键变为 prefix-key
func (e Errors) Merge(prefix string, other Errors) {
	for field, list := range other {
		key := field
		if prefix != "" {
			key = prefix + "-" + field
		}
		e[key] = append(e[key], list...)
	}
}

// Has 字段是否有错误
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// Err 为空时返回 nil
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		for _, fe := range e[field] {
			parts = append(parts, fmt.Sprintf("%s: %s", field, fe.Message))
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsErrors 提取表单错误
func AsErrors(err error) (Errors, bool) {
	var fe Errors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
