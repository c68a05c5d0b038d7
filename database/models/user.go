package models

import (
	"strings"
	"time"

	"github.com/anoixa/image-admin/utils"
	cryptopackage "github.com/anoixa/image-admin/utils/crypto"
)

// UnusablePasswordPrefix 不可用密码标记前缀，该前缀永远不会出现在合法哈希中
const UnusablePasswordPrefix = "!"

type User struct {
	Base
	Email       string     `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"type:varchar(255);not null" json:"-"`
	IsActive    bool       `gorm:"not null" json:"is_active"`
	IsStaff     bool       `gorm:"not null" json:"is_staff"`
	IsSuperuser bool       `gorm:"not null" json:"is_superuser"`
	ImportedAt  *time.Time `json:"imported_at"`
	LastLogin   *time.Time `json:"last_login"`

	Groups          []*Group      `gorm:"many2many:user_groups;" json:"groups,omitempty"`
	UserPermissions []*Permission `gorm:"many2many:user_permissions;" json:"user_permissions,omitempty"`
}

// SetPassword 使用 Argon2id 哈希并设置密码
func (u *User) SetPassword(raw string) error {
	hash, err := cryptopackage.GenerateFromPassword(raw)
	if err != nil {
		return err
	}
	u.Password = hash
	return nil
}

// SetUnusablePassword 设置一个无法通过校验的密码
func (u *User) SetUnusablePassword() error {
	token, err := utils.GenerateRandomToken(30)
	if err != nil {
		return err
	}
	u.Password = UnusablePasswordPrefix + token
	return nil
}

// HasUsablePassword 密码是否可用于登录
func (u *User) HasUsablePassword() bool {
	return u.Password != "" && !strings.HasPrefix(u.Password, UnusablePasswordPrefix)
}

// CheckPassword 校验明文密码
func (u *User) CheckPassword(raw string) bool {
	if !u.HasUsablePassword() {
		return false
	}
	ok, err := cryptopackage.ComparePasswordAndHash(raw, u.Password)
	return err == nil && ok
}

// CanAccessAdmin 是否可进入后台
func (u *User) CanAccessAdmin() bool {
	return u != nil && u.IsActive && u.IsStaff
}

// NormalizeEmail 域名部分转为小写
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}
