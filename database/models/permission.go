package models

import "fmt"

// 后台权限动作
const (
	PermView   = "view"
	PermAdd    = "add"
	PermChange = "change"
	PermDelete = "delete"
)

// Permission 模型级权限，codename 形如 change_image
type Permission struct {
	Base
	Codename  string `gorm:"type:varchar(100);uniqueIndex;not null" json:"codename"`
	Name      string `gorm:"type:varchar(255);not null" json:"name"`
	ModelName string `gorm:"type:varchar(100);index;not null" json:"model"`
}

// Group 权限组
type Group struct {
	Base
	Name        string        `gorm:"type:varchar(150);uniqueIndex;not null" json:"name"`
	Permissions []*Permission `gorm:"many2many:group_permissions;" json:"permissions,omitempty"`
}

// Codename 生成权限代码
func Codename(action, model string) string {
	return fmt.Sprintf("%s_%s", action, model)
}

// DefaultPermissions 为模型生成四个标准权限
func DefaultPermissions(model, verboseName string) []Permission {
	actions := []string{PermAdd, PermChange, PermDelete, PermView}
	perms := make([]Permission, 0, len(actions))
	for _, action := range actions {
		perms = append(perms, Permission{
			Codename:  Codename(action, model),
			Name:      fmt.Sprintf("Can %s %s", action, verboseName),
			ModelName: model,
		})
	}
	return perms
}
