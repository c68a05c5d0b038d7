// Package accounts 用户、组与权限的数据访问
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anoixa/image-admin/database"
	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/database/repo/base"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 账户仓库 - 封装所有账户相关的数据库操作
type Repository struct {
	*base.Repository[models.User]
	db database.Provider
}

// NewRepository 创建新的账户仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{Repository: base.NewRepository[models.User](db.DB()), db: db}
}

// GetUserByEmail 通过邮箱获取用户，大小写不敏感，不存在时返回 nil, nil
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID 通过ID获取用户
func (r *Repository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return r.GetByID(ctx, id)
}

// CreateUser 创建用户
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
}

// UpdatePassword 只更新密码哈希
func (r *Repository) UpdatePassword(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Model(user).UpdateColumn("password", user.Password).Error
}

// UpdateLastLogin 记录最近登录时间
func (r *Repository) UpdateLastLogin(ctx context.Context, user *models.User, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(user).UpdateColumn("last_login", at).Error; err != nil {
		return err
	}
	user.LastLogin = &at
	return nil
}

// UserPermissions 用户直接授予与所在组授予的权限代码并集
func (r *Repository) UserPermissions(ctx context.Context, user *models.User) (map[string]bool, error) {
	codes := make(map[string]bool)
	if user == nil {
		return codes, nil
	}

	var direct []string
	err := r.db.WithContext(ctx).Model(&models.Permission{}).
		Joins("JOIN user_permissions up ON up.permission_id = permissions.id").
		Where("up.user_id = ?", user.ID).
		Pluck("permissions.codename", &direct).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load user permissions: %w", err)
	}

	var viaGroups []string
	err = r.db.WithContext(ctx).Model(&models.Permission{}).
		Joins("JOIN group_permissions gp ON gp.permission_id = permissions.id").
		Joins("JOIN user_groups ug ON ug.group_id = gp.group_id").
		Joins(`JOIN "groups" g ON g.id = ug.group_id AND g.deleted_at IS NULL`).
		Where("ug.user_id = ?", user.ID).
		Pluck("permissions.codename", &viaGroups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load group permissions: %w", err)
	}

	for _, c := range append(direct, viaGroups...) {
		codes[c] = true
	}
	return codes, nil
}

// EnsurePermissions 补齐缺失的权限记录，返回新建数量
func (r *Repository) EnsurePermissions(ctx context.Context, perms []models.Permission) (int64, error) {
	if len(perms) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "codename"}},
		DoNothing: true,
	}).Create(&perms)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to seed permissions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// GetGroupByName 通过名称获取组
func (r *Repository) GetGroupByName(ctx context.Context, name string) (*models.Group, error) {
	var group models.Group
	err := r.db.WithContext(ctx).Preload("Permissions").Where("name = ?", name).First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

// CreateGroup 创建组并授予权限
func (r *Repository) CreateGroup(ctx context.Context, name string, codenames ...string) (*models.Group, error) {
	group := &models.Group{Name: name}
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if len(codenames) > 0 {
			if err := tx.Where("codename IN ?", codenames).Find(&group.Permissions).Error; err != nil {
				return err
			}
			if len(group.Permissions) != len(codenames) {
				return fmt.Errorf("unknown permission in %v", codenames)
			}
		}
		return tx.Create(group).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create group %s: %w", name, err)
	}
	return group, nil
}

// AddUserToGroup 将用户加入组
func (r *Repository) AddUserToGroup(ctx context.Context, user *models.User, group *models.Group) error {
	return r.db.WithContext(ctx).Model(user).Association("Groups").Append(group)
}

// ForceDeleteWithTx 在事务中物理删除用户及其组与权限关联
func (r *Repository) ForceDeleteWithTx(tx *gorm.DB, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	for _, table := range []string{"user_groups", "user_permissions"} {
		if err := tx.Exec("DELETE FROM "+table+" WHERE user_id IN ?", ids).Error; err != nil {
			return 0, fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}
	res := tx.Unscoped().Where("id IN ?", ids).Delete(&models.User{})
	return res.RowsAffected, res.Error
}
