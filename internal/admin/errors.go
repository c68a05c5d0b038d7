package admin

import "errors"

var (
	// ErrNotFound 对象不存在或已软删除
	ErrNotFound = errors.New("object not found")
	// ErrPermissionDenied 无权限
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnknownModel 未注册的模型
	ErrUnknownModel = errors.New("unknown model")
	// ErrUnknownAction 未知的批量操作
	ErrUnknownAction = errors.New("unknown action")
	// ErrAlreadyRegistered 重复注册
	ErrAlreadyRegistered = errors.New("model already registered")
)
